package constraint

import (
	"fmt"
	"time"
)

// Kind identifies a constraint variant. The set is closed: the solver's model
// builder and the conflict validator both switch exhaustively over it, so a
// new kind requires updates in both places.
type Kind string

const (
	KindEligibility             Kind = "eligibility"
	KindAvailabilityConflict    Kind = "availability_conflict"
	KindNoDoubleBooking         Kind = "no_double_booking"
	KindMaxAssignmentsPerPeriod Kind = "max_assignments_per_period"
	KindMinimumRestGap          Kind = "minimum_rest_gap"
	KindFairnessTarget          Kind = "fairness_target"
	KindLockedAssignment        Kind = "locked_assignment"
)

// Kinds lists every constraint kind in sort order
var Kinds = []Kind{
	KindEligibility,
	KindAvailabilityConflict,
	KindNoDoubleBooking,
	KindMaxAssignmentsPerPeriod,
	KindMinimumRestGap,
	KindFairnessTarget,
	KindLockedAssignment,
}

// Hard returns true for kinds that must never be violated in a returned
// feasible solution. FairnessTarget is the only soft kind - it tunes the
// objective rather than restricting the model.
func (k Kind) Hard() bool {
	return k != KindFairnessTarget
}

// ScopeLevel is the breadth a constraint applies at
type ScopeLevel string

const (
	ScopeOrg    ScopeLevel = "org"
	ScopeTeam   ScopeLevel = "team"
	ScopePerson ScopeLevel = "person"
)

// rank orders scope levels for the stable compile sort (broadest first)
func (l ScopeLevel) rank() int {
	switch l {
	case ScopeOrg:
		return 0
	case ScopeTeam:
		return 1
	case ScopePerson:
		return 2
	}
	return 3
}

// Scope narrows a constraint to the whole org, one team, or one person
type Scope struct {
	Level    ScopeLevel
	TeamID   string
	PersonID string
}

func (s Scope) String() string {
	switch s.Level {
	case ScopeTeam:
		return fmt.Sprintf("team:%s", s.TeamID)
	case ScopePerson:
		return fmt.Sprintf("person:%s", s.PersonID)
	}
	return "org"
}

// Constraint is a compiled, typed policy rule. Kind selects which parameter
// fields are meaningful.
type Constraint struct {
	Kind  Kind
	Scope Scope

	// SourceID is the policy record this constraint was compiled from, empty
	// for implicit constraints
	SourceID string

	// MaxAssignmentsPerPeriod parameters
	MaxPerPeriod int
	Period       time.Duration

	// MinimumRestGap parameter
	RestGap time.Duration

	// FairnessTarget parameter, in [0,1]. Scales the fairness objective
	// weight: 0 disables fairness pressure, 1 applies the full weight.
	FairnessTarget float64

	// LockedAssignment parameters
	LockedPersonID string
	LockedEventID  string
	LockedRole     string
}

// AppliesTo reports whether the constraint's scope covers the given person.
// teamIDs are the person's team memberships.
func (c Constraint) AppliesTo(personID string, teamIDs []string) bool {
	switch c.Scope.Level {
	case ScopeOrg:
		return true
	case ScopeTeam:
		for _, id := range teamIDs {
			if id == c.Scope.TeamID {
				return true
			}
		}
		return false
	case ScopePerson:
		return c.Scope.PersonID == personID
	}
	return false
}

// paramKey renders the parameter tuple for the stable compile sort
func (c Constraint) paramKey() string {
	switch c.Kind {
	case KindMaxAssignmentsPerPeriod:
		return fmt.Sprintf("%d/%s", c.MaxPerPeriod, c.Period)
	case KindMinimumRestGap:
		return c.RestGap.String()
	case KindFairnessTarget:
		return fmt.Sprintf("%.6f", c.FairnessTarget)
	case KindLockedAssignment:
		return fmt.Sprintf("%s/%s/%s", c.LockedPersonID, c.LockedEventID, c.LockedRole)
	}
	return ""
}

func (c Constraint) String() string {
	key := c.paramKey()
	if key == "" {
		return fmt.Sprintf("%s[%s]", c.Kind, c.Scope)
	}
	return fmt.Sprintf("%s[%s](%s)", c.Kind, c.Scope, key)
}
