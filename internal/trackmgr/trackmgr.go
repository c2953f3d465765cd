// Package trackmgr implements the free/occupied track pool: a growable,
// ordered list of tracks with 1-based contiguous ids, grounded on the
// teacher's map-keyed track lifecycle but simplified to the single
// integer-id pool the core requires.
package trackmgr

import "github.com/yeltrix/radartrack/internal/model"

// State is a track's lifecycle state.
type State int

const (
	Free State = iota
	Occupied
)

func (s State) String() string {
	if s == Occupied {
		return "occupied"
	}
	return "free"
}

// Track is one slot in the manager's pool.
type Track struct {
	ID      int
	State   State
	History []model.Detection
}

// Manager owns the ordered track pool. It is not safe for concurrent
// use; the core loop is single-threaded by design.
type Manager struct {
	tracks []*Track
}

// New creates a Manager preallocated with n FREE tracks, matching the
// initial_track_pool configuration option.
func New(initialPoolSize int) *Manager {
	m := &Manager{}
	for i := 0; i < initialPoolSize; i++ {
		m.AddTrack()
	}
	return m
}

// AddTrack appends a new FREE track with id = current_size + 1.
func (m *Manager) AddTrack() *Track {
	t := &Track{ID: len(m.tracks) + 1, State: Free}
	m.tracks = append(m.tracks, t)
	return t
}

// GetFreeTrack returns the first FREE track in id order, creating one
// if none exists. The caller is responsible for transitioning the
// returned track to OCCUPIED (via Assign).
func (m *Manager) GetFreeTrack() *Track {
	for _, t := range m.tracks {
		if t.State == Free {
			return t
		}
	}
	return m.AddTrack()
}

// Assign sets the track OCCUPIED and appends d to its history.
func (m *Manager) Assign(t *Track, d model.Detection) {
	t.State = Occupied
	t.History = append(t.History, d)
}

// Release sets the track FREE and clears its history.
func (m *Manager) Release(t *Track) {
	t.State = Free
	t.History = nil
}

// Tracks returns the pool in id order. The returned slice aliases the
// manager's internal storage and must not be mutated by the caller.
func (m *Manager) Tracks() []*Track {
	return m.tracks
}

// Len returns the current pool size.
func (m *Manager) Len() int {
	return len(m.tracks)
}
