package model

import (
	"sort"
	"time"
)

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Valid returns true if the interval has positive duration
func (iv Interval) Valid() bool {
	return iv.End.After(iv.Start)
}

// Duration returns the length of the interval
func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// Overlaps returns true if the two intervals share any instant
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

// Contains returns true if t falls within the interval
func (iv Interval) Contains(t time.Time) bool {
	return !t.Before(iv.Start) && t.Before(iv.End)
}

// GapTo returns the gap between this interval and another.
// Returns 0 if the intervals overlap or touch.
func (iv Interval) GapTo(other Interval) time.Duration {
	if iv.Overlaps(other) {
		return 0
	}
	if iv.End.After(other.End) {
		return iv.Start.Sub(other.End)
	}
	return other.Start.Sub(iv.End)
}

// NormalizeIntervals sorts intervals by start time and merges any that overlap
// or touch. The result contains no overlapping intervals.
func NormalizeIntervals(intervals []Interval) []Interval {
	if len(intervals) == 0 {
		return []Interval{}
	}

	sorted := make([]Interval, len(intervals))
	copy(sorted, intervals)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].Start.Equal(sorted[j].Start) {
			return sorted[i].Start.Before(sorted[j].Start)
		}
		return sorted[i].End.Before(sorted[j].End)
	})

	merged := []Interval{sorted[0]}
	for _, iv := range sorted[1:] {
		last := &merged[len(merged)-1]
		if !iv.Start.After(last.End) {
			// Overlapping or touching - extend the previous interval
			if iv.End.After(last.End) {
				last.End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}

	return merged
}
