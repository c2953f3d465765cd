package trackstore

import (
	"path/filepath"
	"testing"

	"github.com/yeltrix/radartrack/internal/model"
)

func TestOpenMigratesAndWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	if s.RunID() == "" {
		t.Error("expected a non-empty run id")
	}

	rec := model.OutputRecord{T: 1.0, R: 1000, Az: 90, El: 0, State: [6]float64{1000, 0, 0, 10, 0, 0}}
	if err := s.Write(rec); err != nil {
		t.Fatalf("write: %v", err)
	}

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM filtered_track WHERE run_id = ?`, s.RunID()).Scan(&count); err != nil {
		t.Fatalf("query: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 row, got %d", count)
	}
}

func TestTwoStoresHaveDistinctRunIDs(t *testing.T) {
	dir := t.TempDir()
	s1, err := Open(filepath.Join(dir, "a.db"))
	if err != nil {
		t.Fatalf("open a: %v", err)
	}
	defer s1.Close()

	s2, err := Open(filepath.Join(dir, "b.db"))
	if err != nil {
		t.Fatalf("open b: %v", err)
	}
	defer s2.Close()

	if s1.RunID() == s2.RunID() {
		t.Error("expected distinct run ids across separate Store instances")
	}
}
