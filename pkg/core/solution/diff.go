package solution

import (
	"github.com/jakechorley/rotasolve/pkg/core/model"
)

// Change pairs the two sides of a modified assignment (same person, event and
// role but a different lock flag)
type Change struct {
	Before model.Assignment
	After  model.Assignment
}

// Diff lists the assignment-level differences between two solution versions.
// All slices follow the canonical (PersonID, EventID, Role) ordering.
type Diff struct {
	// Added are assignments present in B but not A
	Added []model.Assignment

	// Removed are assignments present in A but not B
	Removed []model.Assignment

	// Changed are assignments present in both with a different lock flag
	Changed []Change
}

// Empty returns true if the two versions carry identical assignment sets
func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// Compare diffs two solutions by assignment identity (person, event, role).
// Deterministic: identical inputs always produce an identical diff.
func Compare(a, b *model.Solution) Diff {
	byKeyA := make(map[model.AssignmentKey]model.Assignment, len(a.Assignments))
	for _, assignment := range a.Assignments {
		byKeyA[assignment.Key()] = assignment
	}
	byKeyB := make(map[model.AssignmentKey]model.Assignment, len(b.Assignments))
	for _, assignment := range b.Assignments {
		byKeyB[assignment.Key()] = assignment
	}

	var diff Diff
	for _, assignment := range a.Assignments {
		other, ok := byKeyB[assignment.Key()]
		if !ok {
			diff.Removed = append(diff.Removed, assignment)
			continue
		}
		if other.Locked != assignment.Locked {
			diff.Changed = append(diff.Changed, Change{Before: assignment, After: other})
		}
	}
	for _, assignment := range b.Assignments {
		if _, ok := byKeyA[assignment.Key()]; !ok {
			diff.Added = append(diff.Added, assignment)
		}
	}

	return diff
}
