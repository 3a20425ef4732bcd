package constraint

import (
	"fmt"
	"sort"
	"time"

	"github.com/jakechorley/rotasolve/pkg/core/model"
	"github.com/jakechorley/rotasolve/pkg/core/snapshot"
	"github.com/jakechorley/rotasolve/pkg/db"
)

// InvalidConstraintError indicates a policy record failed compilation. It
// always names the offending record.
type InvalidConstraintError struct {
	RecordID string
	Reason   string
}

func (e *InvalidConstraintError) Error() string {
	return fmt.Sprintf("invalid constraint in policy record '%s': %s", e.RecordID, e.Reason)
}

// Compile normalizes raw policy records into typed constraints plus the
// objective weight vector for soft constraints.
//
// The output is deterministic: identical input always yields the same
// constraint list in the same order. Constraints are sorted by a stable key
// (scope, then kind, then parameter tuple) so the solver encoding is
// reproducible across runs.
//
// Locked assignments carried over from a parent solution are passed in
// separately and compiled into LockedAssignment constraints alongside any
// lock policies.
func Compile(snap *snapshot.Snapshot, baseWeights model.Weights, locked []model.Assignment) ([]Constraint, model.Weights, error) {
	constraints := implicitConstraints()

	fairnessScale := 1.0
	sawFairness := false

	for _, rec := range snap.Policies {
		c, err := compileRecord(rec, snap)
		if err != nil {
			return nil, model.Weights{}, err
		}

		if c.Kind == KindFairnessTarget {
			// The objective is global, so the last target in record order
			// wins. The target scales the fairness weight.
			fairnessScale = c.FairnessTarget
			sawFairness = true
		}

		constraints = append(constraints, c)
	}

	for _, a := range locked {
		constraints = append(constraints, Constraint{
			Kind:           KindLockedAssignment,
			Scope:          Scope{Level: ScopePerson, PersonID: a.PersonID},
			LockedPersonID: a.PersonID,
			LockedEventID:  a.EventID,
			LockedRole:     a.Role,
		})
	}

	weights := baseWeights
	if sawFairness {
		weights.Fairness *= fairnessScale
	}

	sortConstraints(constraints)
	return constraints, weights, nil
}

// implicitConstraints are always present regardless of policy records:
// eligibility, availability and double-booking are never optional.
func implicitConstraints() []Constraint {
	return []Constraint{
		{Kind: KindEligibility, Scope: Scope{Level: ScopeOrg}},
		{Kind: KindAvailabilityConflict, Scope: Scope{Level: ScopeOrg}},
		{Kind: KindNoDoubleBooking, Scope: Scope{Level: ScopeOrg}},
	}
}

func compileRecord(rec db.PolicyRecord, snap *snapshot.Snapshot) (Constraint, error) {
	scope, err := compileScope(rec, snap)
	if err != nil {
		return Constraint{}, err
	}

	c := Constraint{Scope: scope, SourceID: rec.ID}

	switch Kind(rec.Kind) {
	case KindEligibility, KindAvailabilityConflict, KindNoDoubleBooking:
		// Implicit constraints restated as policy; harmless, kept for audit
		c.Kind = Kind(rec.Kind)

	case KindMaxAssignmentsPerPeriod:
		c.Kind = KindMaxAssignmentsPerPeriod
		if rec.MaxPerPeriod <= 0 {
			return Constraint{}, &InvalidConstraintError{RecordID: rec.ID,
				Reason: fmt.Sprintf("max assignments per period must be > 0, got %d", rec.MaxPerPeriod)}
		}
		if rec.PeriodDays <= 0 {
			return Constraint{}, &InvalidConstraintError{RecordID: rec.ID,
				Reason: fmt.Sprintf("period must be > 0 days, got %d", rec.PeriodDays)}
		}
		c.MaxPerPeriod = rec.MaxPerPeriod
		c.Period = time.Duration(rec.PeriodDays) * 24 * time.Hour

	case KindMinimumRestGap:
		c.Kind = KindMinimumRestGap
		if rec.RestGapMinutes < 0 {
			return Constraint{}, &InvalidConstraintError{RecordID: rec.ID,
				Reason: fmt.Sprintf("rest gap must be >= 0 minutes, got %d", rec.RestGapMinutes)}
		}
		c.RestGap = time.Duration(rec.RestGapMinutes) * time.Minute

	case KindFairnessTarget:
		c.Kind = KindFairnessTarget
		if rec.FairnessTarget < 0 || rec.FairnessTarget > 1 {
			return Constraint{}, &InvalidConstraintError{RecordID: rec.ID,
				Reason: fmt.Sprintf("fairness target must be in [0,1], got %g", rec.FairnessTarget)}
		}
		c.FairnessTarget = rec.FairnessTarget

	case KindLockedAssignment:
		c.Kind = KindLockedAssignment
		if rec.LockedPersonID == "" || rec.LockedEventID == "" || rec.LockedRole == "" {
			return Constraint{}, &InvalidConstraintError{RecordID: rec.ID,
				Reason: "locked assignment requires person, event and role"}
		}
		if snap.PersonByID(rec.LockedPersonID) == nil {
			return Constraint{}, &InvalidConstraintError{RecordID: rec.ID,
				Reason: fmt.Sprintf("locked assignment references unknown person '%s'", rec.LockedPersonID)}
		}
		if snap.EventByID(rec.LockedEventID) == nil {
			return Constraint{}, &InvalidConstraintError{RecordID: rec.ID,
				Reason: fmt.Sprintf("locked assignment references unknown event '%s'", rec.LockedEventID)}
		}
		c.LockedPersonID = rec.LockedPersonID
		c.LockedEventID = rec.LockedEventID
		c.LockedRole = rec.LockedRole

	default:
		return Constraint{}, &InvalidConstraintError{RecordID: rec.ID,
			Reason: fmt.Sprintf("unknown constraint kind '%s'", rec.Kind)}
	}

	return c, nil
}

func compileScope(rec db.PolicyRecord, snap *snapshot.Snapshot) (Scope, error) {
	switch ScopeLevel(rec.ScopeLevel) {
	case ScopeOrg, "":
		return Scope{Level: ScopeOrg}, nil
	case ScopeTeam:
		if rec.TeamID == "" {
			return Scope{}, &InvalidConstraintError{RecordID: rec.ID, Reason: "team scope requires a team ID"}
		}
		if snap.TeamByID(rec.TeamID) == nil {
			return Scope{}, &InvalidConstraintError{RecordID: rec.ID,
				Reason: fmt.Sprintf("team scope references unknown team '%s'", rec.TeamID)}
		}
		return Scope{Level: ScopeTeam, TeamID: rec.TeamID}, nil
	case ScopePerson:
		if rec.PersonID == "" {
			return Scope{}, &InvalidConstraintError{RecordID: rec.ID, Reason: "person scope requires a person ID"}
		}
		if snap.PersonByID(rec.PersonID) == nil {
			return Scope{}, &InvalidConstraintError{RecordID: rec.ID,
				Reason: fmt.Sprintf("person scope references unknown person '%s'", rec.PersonID)}
		}
		return Scope{Level: ScopePerson, PersonID: rec.PersonID}, nil
	}
	return Scope{}, &InvalidConstraintError{RecordID: rec.ID,
		Reason: fmt.Sprintf("unknown scope level '%s'", rec.ScopeLevel)}
}

// sortConstraints applies the stable compile ordering: scope, then kind, then
// parameter tuple
func sortConstraints(constraints []Constraint) {
	kindRank := make(map[Kind]int, len(Kinds))
	for i, k := range Kinds {
		kindRank[k] = i
	}

	sort.SliceStable(constraints, func(i, j int) bool {
		a, b := constraints[i], constraints[j]
		if a.Scope.Level != b.Scope.Level {
			return a.Scope.Level.rank() < b.Scope.Level.rank()
		}
		if a.Scope.TeamID != b.Scope.TeamID {
			return a.Scope.TeamID < b.Scope.TeamID
		}
		if a.Scope.PersonID != b.Scope.PersonID {
			return a.Scope.PersonID < b.Scope.PersonID
		}
		if a.Kind != b.Kind {
			return kindRank[a.Kind] < kindRank[b.Kind]
		}
		return a.paramKey() < b.paramKey()
	})
}
