package solver

import (
	"fmt"
	"sort"
	"time"

	"github.com/jakechorley/rotasolve/pkg/core/conflict"
	"github.com/jakechorley/rotasolve/pkg/core/constraint"
	"github.com/jakechorley/rotasolve/pkg/core/model"
	"github.com/jakechorley/rotasolve/pkg/core/snapshot"
)

// position is one assignable place in the variable space: a single seat of an
// event's role slot. The model only materializes positions with candidates
// drawn from feasible pairings - people failing eligibility or availability
// never enter the model at all, keeping its size proportional to feasible
// pairings rather than the full cross product.
type position struct {
	event *model.Event
	role  string

	// slotID groups positions belonging to the same (event, role) slot so the
	// search can break the symmetry between interchangeable seats
	slotID int

	// candidates are person IDs eligible and available for this seat, sorted
	candidates []string

	// lockedPerson pins this seat to a person; the search never reassigns it
	lockedPerson string
}

// personRules are the hard constraints that apply to one person, precomputed
// so the search checks them in O(assignments) per node
type personRules struct {
	// restGap is the largest applicable minimum rest gap
	restGap time.Duration

	// maxPerPeriod constraints, every one of which must hold
	maxPer []constraint.Constraint
}

// solveModel is the compiled search model for one snapshot
type solveModel struct {
	snap      *snapshot.Snapshot
	positions []position
	rules     map[string]personRules
	weights   model.Weights

	// lockedAssignments are the pinned pairings, already validated conflict-free
	lockedAssignments []model.Assignment
}

// buildModel compiles the snapshot and constraint set into positions and
// per-person rules. Returns a non-empty conflict report instead of a model
// when the locked assignment set is structurally unsatisfiable.
func buildModel(snap *snapshot.Snapshot, constraints []constraint.Constraint, weights model.Weights) (*solveModel, conflict.Report, error) {
	locked := lockedFromConstraints(constraints)

	// Structural pre-check: a conflicting locked set can never be satisfied,
	// with or without coverage. The report names the conflicting constraints
	// so the operator can resolve the locks rather than retry the solve.
	if report := conflict.Validate(snap, constraints, locked); report.HasConflicts() {
		return nil, report, nil
	}

	m := &solveModel{
		snap:              snap,
		rules:             buildPersonRules(snap, constraints),
		weights:           weights,
		lockedAssignments: locked,
	}

	lockedBySlot := make(map[string][]string)
	for _, a := range locked {
		key := a.EventID + "\x00" + a.Role
		lockedBySlot[key] = append(lockedBySlot[key], a.PersonID)
	}

	slotID := 0
	for i := range snap.Events {
		event := &snap.Events[i]

		slots := make([]model.RoleSlot, len(event.Slots))
		copy(slots, event.Slots)
		sort.Slice(slots, func(a, b int) bool { return slots[a].Role < slots[b].Role })

		for _, slot := range slots {
			if slot.Count <= 0 {
				continue
			}

			key := event.ID + "\x00" + slot.Role
			pinned := lockedBySlot[key]
			sort.Strings(pinned)
			if len(pinned) > slot.Count {
				// Caught by the slot capacity check above; defensive only
				return nil, nil, fmt.Errorf("internal: %d locks for %d positions on event '%s' role '%s'",
					len(pinned), slot.Count, event.ID, slot.Role)
			}

			candidates := snap.Candidates(*event, slot.Role)

			for seat := 0; seat < slot.Count; seat++ {
				pos := position{event: event, role: slot.Role, slotID: slotID, candidates: candidates}
				if seat < len(pinned) {
					pos.lockedPerson = pinned[seat]
				}
				m.positions = append(m.positions, pos)
			}
			slotID++
		}
	}

	return m, nil, nil
}

func lockedFromConstraints(constraints []constraint.Constraint) []model.Assignment {
	var locked []model.Assignment
	seen := make(map[model.AssignmentKey]bool)
	for _, c := range constraints {
		if c.Kind != constraint.KindLockedAssignment {
			continue
		}
		key := model.AssignmentKey{PersonID: c.LockedPersonID, EventID: c.LockedEventID, Role: c.LockedRole}
		if seen[key] {
			continue
		}
		seen[key] = true
		locked = append(locked, model.Assignment{
			ID:       assignmentID(c.LockedPersonID, c.LockedEventID, c.LockedRole),
			PersonID: c.LockedPersonID,
			EventID:  c.LockedEventID,
			Role:     c.LockedRole,
			Locked:   true,
		})
	}
	model.SortAssignments(locked)
	return locked
}

func buildPersonRules(snap *snapshot.Snapshot, constraints []constraint.Constraint) map[string]personRules {
	rules := make(map[string]personRules, len(snap.People))
	for _, person := range snap.People {
		var r personRules
		for _, c := range constraints {
			if !c.AppliesTo(person.ID, person.TeamIDs) {
				continue
			}
			switch c.Kind {
			case constraint.KindMinimumRestGap:
				if c.RestGap > r.restGap {
					r.restGap = c.RestGap
				}
			case constraint.KindMaxAssignmentsPerPeriod:
				r.maxPer = append(r.maxPer, c)
			}
		}
		rules[person.ID] = r
	}
	return rules
}
