// Package conflict independently re-checks assignment sets against the hard
// constraint set. It runs after every solve as a defense against encoding
// bugs, and synchronously on every manual edit before persistence. It is pure
// and stateless - safe to call concurrently on different assignment sets.
package conflict

import (
	"fmt"
	"sort"
	"time"

	"github.com/jakechorley/rotasolve/pkg/core/constraint"
	"github.com/jakechorley/rotasolve/pkg/core/model"
	"github.com/jakechorley/rotasolve/pkg/core/snapshot"
)

// Conflict describes one hard-constraint violation: the violated constraint,
// the offending assignments and a human-readable explanation.
type Conflict struct {
	Kind          constraint.Kind
	Constraint    string
	PersonID      string
	EventIDs      []string
	AssignmentIDs []string
	Detail        string
}

// Report is an ordered list of conflicts. Reports are ephemeral - recomputed
// on every validation call, never persisted as authoritative state.
type Report []Conflict

// HasConflicts returns true if the report contains any violation
func (r Report) HasConflicts() bool {
	return len(r) > 0
}

// Validate checks an assignment set against the compiled constraints.
// An empty report means every hard constraint holds.
//
// Validation is deterministic and idempotent: identical input produces an
// identical report, in a stable order.
func Validate(snap *snapshot.Snapshot, constraints []constraint.Constraint, assignments []model.Assignment) Report {
	var report Report

	for _, c := range constraints {
		switch c.Kind {
		case constraint.KindEligibility:
			report = append(report, checkEligibility(snap, c, assignments)...)
		case constraint.KindAvailabilityConflict:
			report = append(report, checkAvailability(snap, c, assignments)...)
		case constraint.KindNoDoubleBooking:
			report = append(report, checkDoubleBooking(snap, c, assignments)...)
		case constraint.KindMaxAssignmentsPerPeriod:
			report = append(report, checkMaxPerPeriod(snap, c, assignments)...)
		case constraint.KindMinimumRestGap:
			report = append(report, checkRestGap(snap, c, assignments)...)
		case constraint.KindLockedAssignment:
			report = append(report, checkLocked(c, assignments)...)
		case constraint.KindFairnessTarget:
			// Soft - contributes to the objective, never to conflicts
		}
	}

	report = append(report, checkSlotOverfill(snap, assignments)...)

	sortReport(report)
	return report
}

func checkEligibility(snap *snapshot.Snapshot, c constraint.Constraint, assignments []model.Assignment) Report {
	var report Report
	for _, a := range assignments {
		person := snap.PersonByID(a.PersonID)
		if person == nil {
			report = append(report, Conflict{
				Kind:          c.Kind,
				Constraint:    c.String(),
				PersonID:      a.PersonID,
				EventIDs:      []string{a.EventID},
				AssignmentIDs: []string{a.ID},
				Detail:        fmt.Sprintf("assignment references unknown person '%s'", a.PersonID),
			})
			continue
		}
		if !person.QualifiedFor(a.Role) {
			report = append(report, Conflict{
				Kind:          c.Kind,
				Constraint:    c.String(),
				PersonID:      a.PersonID,
				EventIDs:      []string{a.EventID},
				AssignmentIDs: []string{a.ID},
				Detail:        fmt.Sprintf("%s is not qualified for role '%s'", displayName(person), a.Role),
			})
		}
	}
	return report
}

func checkAvailability(snap *snapshot.Snapshot, c constraint.Constraint, assignments []model.Assignment) Report {
	var report Report
	for _, a := range assignments {
		event := snap.EventByID(a.EventID)
		if event == nil {
			report = append(report, Conflict{
				Kind:          c.Kind,
				Constraint:    c.String(),
				PersonID:      a.PersonID,
				EventIDs:      []string{a.EventID},
				AssignmentIDs: []string{a.ID},
				Detail:        fmt.Sprintf("assignment references unknown event '%s'", a.EventID),
			})
			continue
		}
		if snap.IsBlackedOut(a.PersonID, event.Time) {
			report = append(report, Conflict{
				Kind:          c.Kind,
				Constraint:    c.String(),
				PersonID:      a.PersonID,
				EventIDs:      []string{a.EventID},
				AssignmentIDs: []string{a.ID},
				Detail:        fmt.Sprintf("person '%s' is unavailable during event '%s'", a.PersonID, event.Name),
			})
		}
	}
	return report
}

func checkDoubleBooking(snap *snapshot.Snapshot, c constraint.Constraint, assignments []model.Assignment) Report {
	var report Report
	byPerson := groupByPerson(assignments)

	for _, personID := range sortedKeys(byPerson) {
		personAssignments := byPerson[personID]
		for i := 0; i < len(personAssignments); i++ {
			for j := i + 1; j < len(personAssignments); j++ {
				a, b := personAssignments[i], personAssignments[j]
				eventA := snap.EventByID(a.EventID)
				eventB := snap.EventByID(b.EventID)
				if eventA == nil || eventB == nil {
					continue
				}
				if a.EventID == b.EventID || eventA.Time.Overlaps(eventB.Time) {
					report = append(report, Conflict{
						Kind:          c.Kind,
						Constraint:    c.String(),
						PersonID:      personID,
						EventIDs:      []string{a.EventID, b.EventID},
						AssignmentIDs: []string{a.ID, b.ID},
						Detail: fmt.Sprintf("person '%s' is booked into overlapping events '%s' and '%s'",
							personID, eventA.Name, eventB.Name),
					})
				}
			}
		}
	}
	return report
}

func checkMaxPerPeriod(snap *snapshot.Snapshot, c constraint.Constraint, assignments []model.Assignment) Report {
	var report Report
	byPerson := groupByPerson(assignments)

	for _, personID := range sortedKeys(byPerson) {
		person := snap.PersonByID(personID)
		if person == nil || !c.AppliesTo(personID, person.TeamIDs) {
			continue
		}

		timed := timedAssignments(snap, byPerson[personID])
		// Rolling window: anchored at each assignment's start, count
		// assignments whose events begin within the period
		for _, anchor := range timed {
			count := 0
			var windowEvents, windowIDs []string
			for _, other := range timed {
				if !other.start.Before(anchor.start) && other.start.Before(anchor.start.Add(c.Period)) {
					count++
					windowEvents = append(windowEvents, other.assignment.EventID)
					windowIDs = append(windowIDs, other.assignment.ID)
				}
			}
			if count > c.MaxPerPeriod {
				report = append(report, Conflict{
					Kind:          c.Kind,
					Constraint:    c.String(),
					PersonID:      personID,
					EventIDs:      windowEvents,
					AssignmentIDs: windowIDs,
					Detail: fmt.Sprintf("person '%s' has %d assignments within %s (max %d)",
						personID, count, c.Period, c.MaxPerPeriod),
				})
				break // one conflict per person per constraint is enough to act on
			}
		}
	}
	return report
}

func checkRestGap(snap *snapshot.Snapshot, c constraint.Constraint, assignments []model.Assignment) Report {
	var report Report
	byPerson := groupByPerson(assignments)

	for _, personID := range sortedKeys(byPerson) {
		person := snap.PersonByID(personID)
		if person == nil || !c.AppliesTo(personID, person.TeamIDs) {
			continue
		}

		personAssignments := byPerson[personID]
		for i := 0; i < len(personAssignments); i++ {
			for j := i + 1; j < len(personAssignments); j++ {
				a, b := personAssignments[i], personAssignments[j]
				eventA := snap.EventByID(a.EventID)
				eventB := snap.EventByID(b.EventID)
				if eventA == nil || eventB == nil || a.EventID == b.EventID {
					continue
				}
				if eventA.Time.Overlaps(eventB.Time) {
					continue // double booking, reported separately
				}
				gap := eventA.Time.GapTo(eventB.Time)
				if gap < c.RestGap {
					report = append(report, Conflict{
						Kind:          c.Kind,
						Constraint:    c.String(),
						PersonID:      personID,
						EventIDs:      []string{a.EventID, b.EventID},
						AssignmentIDs: []string{a.ID, b.ID},
						Detail: fmt.Sprintf("person '%s' has only %s between events '%s' and '%s' (minimum %s)",
							personID, gap, eventA.Name, eventB.Name, c.RestGap),
					})
				}
			}
		}
	}
	return report
}

// checkLocked verifies every locked-assignment constraint is honoured: the
// pinned pairing must appear in the set, locked
func checkLocked(c constraint.Constraint, assignments []model.Assignment) Report {
	for _, a := range assignments {
		if a.PersonID == c.LockedPersonID && a.EventID == c.LockedEventID && a.Role == c.LockedRole {
			return nil
		}
	}
	return Report{{
		Kind:       c.Kind,
		Constraint: c.String(),
		PersonID:   c.LockedPersonID,
		EventIDs:   []string{c.LockedEventID},
		Detail: fmt.Sprintf("locked assignment of person '%s' to event '%s' role '%s' is missing",
			c.LockedPersonID, c.LockedEventID, c.LockedRole),
	}}
}

// checkSlotOverfill flags slots with more assignments than positions, and
// assignments to a role the event carries no slot for. Not a policy
// constraint, but a structural rule any assignment set must obey.
func checkSlotOverfill(snap *snapshot.Snapshot, assignments []model.Assignment) Report {
	var report Report
	filled := make(map[string]map[string][]model.Assignment)
	for _, a := range assignments {
		if filled[a.EventID] == nil {
			filled[a.EventID] = make(map[string][]model.Assignment)
		}
		filled[a.EventID][a.Role] = append(filled[a.EventID][a.Role], a)
	}

	for _, a := range assignments {
		event := snap.EventByID(a.EventID)
		if event == nil {
			continue // unknown event, reported by the availability check
		}
		positions := 0
		for _, slot := range event.Slots {
			if slot.Role == a.Role {
				positions += slot.Count
			}
		}
		if positions == 0 {
			report = append(report, Conflict{
				Kind:          constraint.KindNoDoubleBooking,
				Constraint:    "slot_capacity",
				PersonID:      a.PersonID,
				EventIDs:      []string{a.EventID},
				AssignmentIDs: []string{a.ID},
				Detail: fmt.Sprintf("event '%s' has no '%s' positions for person '%s'",
					event.Name, a.Role, a.PersonID),
			})
		}
	}

	for _, event := range snap.Events {
		for _, slot := range event.Slots {
			got := filled[event.ID][slot.Role]
			if len(got) > slot.Count {
				ids := make([]string, 0, len(got))
				for _, a := range got {
					ids = append(ids, a.ID)
				}
				report = append(report, Conflict{
					Kind:          constraint.KindNoDoubleBooking,
					Constraint:    "slot_capacity",
					EventIDs:      []string{event.ID},
					AssignmentIDs: ids,
					Detail: fmt.Sprintf("event '%s' slot '%s' has %d assignments for %d positions",
						event.Name, slot.Role, len(got), slot.Count),
				})
			}
		}
	}
	return report
}

func displayName(person *model.Person) string {
	if person.DisplayName != "" {
		return person.DisplayName
	}
	return person.FirstName + " " + person.LastName
}

func groupByPerson(assignments []model.Assignment) map[string][]model.Assignment {
	byPerson := make(map[string][]model.Assignment)
	for _, a := range assignments {
		byPerson[a.PersonID] = append(byPerson[a.PersonID], a)
	}
	for _, list := range byPerson {
		model.SortAssignments(list)
	}
	return byPerson
}

type timedAssignment struct {
	assignment model.Assignment
	start      time.Time
}

func timedAssignments(snap *snapshot.Snapshot, assignments []model.Assignment) []timedAssignment {
	timed := make([]timedAssignment, 0, len(assignments))
	for _, a := range assignments {
		if event := snap.EventByID(a.EventID); event != nil {
			timed = append(timed, timedAssignment{assignment: a, start: event.Time.Start})
		}
	}
	sort.Slice(timed, func(i, j int) bool {
		if !timed[i].start.Equal(timed[j].start) {
			return timed[i].start.Before(timed[j].start)
		}
		return timed[i].assignment.EventID < timed[j].assignment.EventID
	})
	return timed
}

func sortedKeys(m map[string][]model.Assignment) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortReport(report Report) {
	sort.SliceStable(report, func(i, j int) bool {
		if report[i].Kind != report[j].Kind {
			return report[i].Kind < report[j].Kind
		}
		if report[i].PersonID != report[j].PersonID {
			return report[i].PersonID < report[j].PersonID
		}
		return report[i].Detail < report[j].Detail
	})
}
