package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func iv(startHour, endHour int) Interval {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	return Interval{Start: base.Add(time.Duration(startHour) * time.Hour), End: base.Add(time.Duration(endHour) * time.Hour)}
}

func TestInterval_Valid(t *testing.T) {
	assert.True(t, iv(9, 12).Valid())
	assert.False(t, iv(12, 12).Valid())
	assert.False(t, iv(12, 9).Valid())
}

func TestInterval_Overlaps(t *testing.T) {
	assert.True(t, iv(9, 12).Overlaps(iv(11, 14)), "partial overlap")
	assert.True(t, iv(9, 12).Overlaps(iv(10, 11)), "containment")
	assert.False(t, iv(9, 12).Overlaps(iv(12, 14)), "touching intervals are half-open, no shared instant")
	assert.False(t, iv(9, 12).Overlaps(iv(13, 14)))
}

func TestInterval_Contains(t *testing.T) {
	window := iv(9, 12)
	assert.True(t, window.Contains(window.Start), "start is inclusive")
	assert.False(t, window.Contains(window.End), "end is exclusive")
	assert.True(t, window.Contains(window.Start.Add(time.Hour)))
}

func TestInterval_GapTo(t *testing.T) {
	assert.Equal(t, time.Duration(0), iv(9, 12).GapTo(iv(11, 14)), "overlapping intervals have no gap")
	assert.Equal(t, time.Duration(0), iv(9, 12).GapTo(iv(12, 14)), "touching intervals have no gap")
	assert.Equal(t, 2*time.Hour, iv(9, 12).GapTo(iv(14, 16)))
	assert.Equal(t, 2*time.Hour, iv(14, 16).GapTo(iv(9, 12)), "gap is symmetric")
}

func TestNormalizeIntervals_MergesOverlapping(t *testing.T) {
	normalized := NormalizeIntervals([]Interval{iv(11, 14), iv(9, 12), iv(16, 18)})

	require.Len(t, normalized, 2)
	assert.Equal(t, iv(9, 14), normalized[0])
	assert.Equal(t, iv(16, 18), normalized[1])
}

func TestNormalizeIntervals_MergesTouching(t *testing.T) {
	normalized := NormalizeIntervals([]Interval{iv(9, 12), iv(12, 14)})

	require.Len(t, normalized, 1)
	assert.Equal(t, iv(9, 14), normalized[0])
}

func TestNormalizeIntervals_Empty(t *testing.T) {
	assert.Empty(t, NormalizeIntervals(nil))
}

func TestNormalizeIntervals_Deterministic(t *testing.T) {
	input := []Interval{iv(16, 18), iv(9, 12), iv(11, 14), iv(9, 10)}
	first := NormalizeIntervals(input)
	second := NormalizeIntervals(input)
	assert.Equal(t, first, second)
}

func TestSortAssignments_CanonicalOrder(t *testing.T) {
	assignments := []Assignment{
		{PersonID: "p2", EventID: "e1", Role: "usher"},
		{PersonID: "p1", EventID: "e2", Role: "usher"},
		{PersonID: "p1", EventID: "e1", Role: "usher"},
		{PersonID: "p1", EventID: "e1", Role: "greeter"},
	}

	SortAssignments(assignments)

	assert.Equal(t, Assignment{PersonID: "p1", EventID: "e1", Role: "greeter"}, assignments[0])
	assert.Equal(t, Assignment{PersonID: "p1", EventID: "e1", Role: "usher"}, assignments[1])
	assert.Equal(t, Assignment{PersonID: "p1", EventID: "e2", Role: "usher"}, assignments[2])
	assert.Equal(t, Assignment{PersonID: "p2", EventID: "e1", Role: "usher"}, assignments[3])
}

func TestSolutionStatus_HasAssignments(t *testing.T) {
	assert.True(t, StatusOptimal.HasAssignments())
	assert.True(t, StatusFeasible.HasAssignments())
	assert.True(t, StatusDraft.HasAssignments())
	assert.True(t, StatusCommitted.HasAssignments())
	assert.False(t, StatusInfeasible.HasAssignments())
	assert.False(t, StatusTimedOut.HasAssignments())
	assert.False(t, StatusCancelled.HasAssignments())
}

func TestWeights_Weighted(t *testing.T) {
	w := Weights{Coverage: 10, Fairness: 1, Preference: 0.5}
	assert.Equal(t, 23.5, w.Weighted(2, 3, 1))
}

func TestSolution_LockedAssignments(t *testing.T) {
	sol := Solution{Assignments: []Assignment{
		{PersonID: "p1", EventID: "e1", Role: "usher", Locked: true},
		{PersonID: "p2", EventID: "e1", Role: "usher"},
	}}

	locked := sol.LockedAssignments()
	require.Len(t, locked, 1)
	assert.Equal(t, "p1", locked[0].PersonID)
}
