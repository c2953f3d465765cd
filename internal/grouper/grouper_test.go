package grouper

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/yeltrix/radartrack/internal/model"
)

func det(t float64) model.Detection {
	return model.Detection{R: 1000, Az: 0, El: 0, T: t}
}

func TestEmptyStream(t *testing.T) {
	groups := Group(nil, DefaultMaxTimeDiff)
	if groups != nil {
		t.Errorf("expected nil groups for empty input, got %v", groups)
	}
}

func TestGroupingBoundary(t *testing.T) {
	// S6: timestamps [0.000, 0.049, 0.050, 0.101] with max_time_diff=0.050
	// produce groups [[0.000,0.049,0.050],[0.101]] -- inclusive on the
	// threshold.
	detections := []model.Detection{det(0.000), det(0.049), det(0.050), det(0.101)}
	groups := Group(detections, 0.050)

	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if len(groups[0]) != 3 {
		t.Errorf("expected first group to have 3 detections, got %d", len(groups[0]))
	}
	if len(groups[1]) != 1 {
		t.Errorf("expected second group to have 1 detection, got %d", len(groups[1]))
	}
}

func TestPartition(t *testing.T) {
	// Property: concatenating all groups reconstructs the input exactly,
	// no detection appears twice, and each group spans <= max_time_diff
	// measured from its first element.
	detections := []model.Detection{
		det(0), det(0.01), det(0.02), det(0.09), det(0.10), det(0.20),
	}
	maxDiff := 0.05
	groups := Group(detections, maxDiff)

	var flat []model.Detection
	for _, g := range groups {
		if len(g) == 0 {
			t.Fatal("empty group produced")
		}
		base := g[0].T
		for _, d := range g {
			if d.T-base > maxDiff {
				t.Errorf("group spans more than max_time_diff: base=%v d.T=%v", base, d.T)
			}
		}
		flat = append(flat, g...)
	}

	if diff := cmp.Diff(detections, flat); diff != "" {
		t.Errorf("reconstructed stream mismatch (-want +got):\n%s", diff)
	}
}

func TestAccumulatorMatchesGroup(t *testing.T) {
	detections := []model.Detection{det(0), det(0.03), det(0.07), det(0.08)}
	want := Group(detections, 0.05)

	acc := NewAccumulator(0.05)
	var got [][]model.Detection
	for _, d := range detections {
		if g, ok := acc.Add(d); ok {
			got = append(got, g)
		}
	}
	if g := acc.Flush(); g != nil {
		got = append(got, g)
	}

	if len(got) != len(want) {
		t.Fatalf("accumulator produced %d groups, Group produced %d", len(got), len(want))
	}
	for i := range want {
		if len(got[i]) != len(want[i]) {
			t.Errorf("group %d length mismatch: got %d want %d", i, len(got[i]), len(want[i]))
		}
	}
}
