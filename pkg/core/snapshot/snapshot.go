package snapshot

import (
	"time"

	"github.com/jakechorley/rotasolve/pkg/core/model"
	"github.com/jakechorley/rotasolve/pkg/db"
)

// Snapshot is an immutable, consistent view of one organization's scheduling
// data at a reference time. It is rebuilt for every solve request and never
// mutated - the solver, validator and scorer all read from the same copy.
type Snapshot struct {
	OrgID   string
	OrgName string

	// Roles is the organization's role registry
	Roles []string

	// Ref is the reference time the snapshot was assembled for. The
	// scheduling horizon runs from Ref to Ref + Horizon.
	Ref     time.Time
	Horizon time.Duration

	People []model.Person
	Teams  []model.Team

	// Events are sorted by (start time, ID)
	Events []model.Event

	// Blackouts maps person ID to a normalized (sorted, non-overlapping)
	// set of unavailability intervals
	Blackouts map[string][]model.Interval

	// Policies are the raw policy records for the constraint compiler
	Policies []db.PolicyRecord

	peopleByID map[string]*model.Person
	eventsByID map[string]*model.Event
	teamsByID  map[string]*model.Team
}

// PersonByID returns the person with the given ID, or nil
func (s *Snapshot) PersonByID(id string) *model.Person {
	return s.peopleByID[id]
}

// EventByID returns the event with the given ID, or nil
func (s *Snapshot) EventByID(id string) *model.Event {
	return s.eventsByID[id]
}

// TeamByID returns the team with the given ID, or nil
func (s *Snapshot) TeamByID(id string) *model.Team {
	return s.teamsByID[id]
}

// IsBlackedOut returns true if the person has a blackout overlapping the interval
func (s *Snapshot) IsBlackedOut(personID string, iv model.Interval) bool {
	for _, blackout := range s.Blackouts[personID] {
		if blackout.Overlaps(iv) {
			return true
		}
	}
	return false
}

// Candidates returns the IDs of people who are qualified for the role and not
// blacked out during the event, sorted by person ID. Pairings excluded here
// never enter the solver's variable space.
func (s *Snapshot) Candidates(event model.Event, role string) []string {
	var candidates []string
	for _, person := range s.People {
		if !person.QualifiedFor(role) {
			continue
		}
		if s.IsBlackedOut(person.ID, event.Time) {
			continue
		}
		candidates = append(candidates, person.ID)
	}
	return candidates
}

// CandidatePeople returns the IDs of people who are candidates for at least
// one slot in the snapshot, sorted by person ID. Fairness spread is measured
// over this set.
func (s *Snapshot) CandidatePeople() []string {
	seen := make(map[string]bool)
	for _, event := range s.Events {
		for _, slot := range event.Slots {
			for _, id := range s.Candidates(event, slot.Role) {
				seen[id] = true
			}
		}
	}
	var ids []string
	for _, person := range s.People {
		if seen[person.ID] {
			ids = append(ids, person.ID)
		}
	}
	return ids
}
