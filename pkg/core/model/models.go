package model

import (
	"slices"
	"time"
)

// Person represents a volunteer who can be assigned to event role slots.
// People are owned by the organization and read-only to the solver.
type Person struct {
	ID          string
	FirstName   string
	LastName    string
	DisplayName string

	// TeamIDs lists the teams this person belongs to
	TeamIDs []string

	// Roles lists the roles this person is qualified to fill
	Roles []string

	// PreferredRoles lists the roles this person prefers to be assigned.
	// Assignments outside this set count toward the preference mismatch
	// objective. An empty set means no preference.
	PreferredRoles []string
}

// QualifiedFor returns true if the person holds the given role
func (p Person) QualifiedFor(role string) bool {
	return slices.Contains(p.Roles, role)
}

// Prefers returns true if the person has no preferences or prefers the role
func (p Person) Prefers(role string) bool {
	if len(p.PreferredRoles) == 0 {
		return true
	}
	return slices.Contains(p.PreferredRoles, role)
}

// Team is a named grouping of people used for team-scoped constraints.
// Membership lives on Person.TeamIDs.
type Team struct {
	ID   string
	Name string
}

// RoleSlot specifies a required role and how many people should fill it
type RoleSlot struct {
	Role  string
	Count int
}

// Event is a time-bounded occurrence with one or more role slots to fill
type Event struct {
	ID    string
	Name  string
	Time  Interval
	Slots []RoleSlot
}

// SlotCount returns the total number of positions across all role slots
func (e Event) SlotCount() int {
	total := 0
	for _, slot := range e.Slots {
		total += slot.Count
	}
	return total
}

// Assignment places a person into one position of an event's role slot.
// Locked assignments are pinned by a human and immutable inputs to any re-solve.
type Assignment struct {
	ID       string
	PersonID string
	EventID  string
	Role     string
	Locked   bool
}

// Key returns the identity triple of the assignment, ignoring ID and lock flag
func (a Assignment) Key() AssignmentKey {
	return AssignmentKey{PersonID: a.PersonID, EventID: a.EventID, Role: a.Role}
}

// AssignmentKey identifies a (person, event, role) pairing
type AssignmentKey struct {
	PersonID string
	EventID  string
	Role     string
}

// SolutionStatus describes the outcome of the solve (or edit) that produced a solution
type SolutionStatus string

const (
	// StatusOptimal means the solver proved no better assignment set exists
	StatusOptimal SolutionStatus = "optimal"

	// StatusFeasible means all hard constraints hold but optimality is unproven
	StatusFeasible SolutionStatus = "feasible"

	// StatusInfeasible means the hard constraints are structurally unsatisfiable
	// even with every slot left uncovered (e.g. conflicting locked assignments)
	StatusInfeasible SolutionStatus = "infeasible"

	// StatusTimedOut means the time budget expired before any feasible
	// assignment set was established
	StatusTimedOut SolutionStatus = "timed_out"

	// StatusCancelled means the solve was cancelled before any feasible
	// assignment set was established
	StatusCancelled SolutionStatus = "cancelled"

	// StatusDraft marks a manually edited version that has been validated
	// but not yet committed
	StatusDraft SolutionStatus = "draft"

	// StatusCommitted marks a manually edited version accepted as the new
	// baseline; re-solves start from a committed version's locked subset
	StatusCommitted SolutionStatus = "committed"
)

// HasAssignments returns true for statuses that carry a usable assignment set
func (s SolutionStatus) HasAssignments() bool {
	switch s {
	case StatusOptimal, StatusFeasible, StatusDraft, StatusCommitted:
		return true
	}
	return false
}

// ObjectiveBreakdown holds the objective metrics for an assignment set.
// The same formula is used by the solver's objective and by reporting.
type ObjectiveBreakdown struct {
	// CoverageGap is the number of role slot positions left unfilled
	CoverageGap int

	// FairnessSpread is the spread (max minus min) of per-person assignment
	// counts across the people in the snapshot who are candidates for at
	// least one slot
	FairnessSpread int

	// PreferenceMismatch counts assignments whose role is outside the
	// person's preferred set
	PreferenceMismatch int

	// Weighted is the weighted sum the solver minimizes
	Weighted float64
}

// Weights are the soft-constraint weights applied to the objective terms
type Weights struct {
	Coverage   float64 `yaml:"coverage" validate:"min=0"`
	Fairness   float64 `yaml:"fairness" validate:"min=0"`
	Preference float64 `yaml:"preference" validate:"min=0"`
}

// DefaultWeights are used when neither config nor the solve request supply weights
func DefaultWeights() Weights {
	return Weights{Coverage: 10, Fairness: 1, Preference: 0.5}
}

// Weighted applies the weights to raw objective terms
func (w Weights) Weighted(coverageGap, fairnessSpread, preferenceMismatch int) float64 {
	return w.Coverage*float64(coverageGap) +
		w.Fairness*float64(fairnessSpread) +
		w.Preference*float64(preferenceMismatch)
}

// Solution is an immutable, versioned assignment set produced by a solve run
// or a manual edit. Solutions are never mutated in place - edits produce a new
// version with a parent link.
type Solution struct {
	ID       string
	OrgID    string
	Version  int
	ParentID string
	Status   SolutionStatus

	// Assignments are ordered by (PersonID, EventID, Role)
	Assignments []Assignment

	Score     ObjectiveBreakdown
	CreatedAt time.Time
}

// LockedAssignments returns the locked subset of the solution's assignments
func (s *Solution) LockedAssignments() []Assignment {
	var locked []Assignment
	for _, a := range s.Assignments {
		if a.Locked {
			locked = append(locked, a)
		}
	}
	return locked
}

// SortAssignments orders assignments by (PersonID, EventID, Role) in place.
// This is the canonical ordering for solutions and diffs.
func SortAssignments(assignments []Assignment) {
	slices.SortFunc(assignments, func(a, b Assignment) int {
		if a.PersonID != b.PersonID {
			if a.PersonID < b.PersonID {
				return -1
			}
			return 1
		}
		if a.EventID != b.EventID {
			if a.EventID < b.EventID {
				return -1
			}
			return 1
		}
		if a.Role != b.Role {
			if a.Role < b.Role {
				return -1
			}
			return 1
		}
		return 0
	})
}
