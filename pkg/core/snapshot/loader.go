package snapshot

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/jakechorley/rotasolve/pkg/core/model"
	"github.com/jakechorley/rotasolve/pkg/db"
)

// DefaultHorizon is how far past the reference time the snapshot includes
// events when the caller does not specify a horizon.
const DefaultHorizon = 90 * 24 * time.Hour

// DataIntegrityError indicates the stored data is malformed and the solve
// must be aborted before model construction.
type DataIntegrityError struct {
	OrgID  string
	Detail string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("data integrity error for org %s: %s", e.OrgID, e.Detail)
}

// LoadOptions adjusts snapshot assembly
type LoadOptions struct {
	// Horizon bounds event expansion; DefaultHorizon if zero
	Horizon time.Duration
}

// Load assembles an immutable domain snapshot for one organization at the
// given reference time. Pure read - no side effects.
//
// Fails with DataIntegrityError if:
//   - a role slot references a role no person in the org holds
//   - an availability interval ends before it starts
//   - an event has zero or negative duration
//   - person IDs are duplicated
func Load(ctx context.Context, store db.SnapshotStore, orgID string, ref time.Time, opts LoadOptions) (*Snapshot, error) {
	horizon := opts.Horizon
	if horizon <= 0 {
		horizon = DefaultHorizon
	}

	org, err := store.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to load organization: %w", err)
	}

	people, err := loadPeople(ctx, store, orgID)
	if err != nil {
		return nil, err
	}

	teams, err := loadTeams(ctx, store, orgID)
	if err != nil {
		return nil, err
	}

	events, err := loadEvents(ctx, store, orgID, ref, horizon)
	if err != nil {
		return nil, err
	}

	blackouts, err := loadBlackouts(ctx, store, orgID, ref, horizon)
	if err != nil {
		return nil, err
	}

	policies, err := store.GetPolicies(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to load policies: %w", err)
	}

	snap := &Snapshot{
		OrgID:      orgID,
		OrgName:    org.Name,
		Roles:      org.Roles,
		Ref:        ref,
		Horizon:    horizon,
		People:     people,
		Teams:      teams,
		Events:     events,
		Blackouts:  blackouts,
		Policies:   policies,
		peopleByID: make(map[string]*model.Person, len(people)),
		eventsByID: make(map[string]*model.Event, len(events)),
		teamsByID:  make(map[string]*model.Team, len(teams)),
	}

	for i := range snap.People {
		snap.peopleByID[snap.People[i].ID] = &snap.People[i]
	}
	for i := range snap.Events {
		snap.eventsByID[snap.Events[i].ID] = &snap.Events[i]
	}
	for i := range snap.Teams {
		snap.teamsByID[snap.Teams[i].ID] = &snap.Teams[i]
	}

	if err := checkRoleCoverage(snap); err != nil {
		return nil, err
	}

	return snap, nil
}

func loadPeople(ctx context.Context, store db.SnapshotStore, orgID string) ([]model.Person, error) {
	records, err := store.GetPeople(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to load people: %w", err)
	}

	seen := make(map[string]bool, len(records))
	people := make([]model.Person, 0, len(records))
	for _, rec := range records {
		if seen[rec.ID] {
			return nil, &DataIntegrityError{OrgID: orgID, Detail: fmt.Sprintf("duplicate person ID '%s'", rec.ID)}
		}
		seen[rec.ID] = true

		people = append(people, model.Person{
			ID:             rec.ID,
			FirstName:      rec.FirstName,
			LastName:       rec.LastName,
			DisplayName:    rec.DisplayName,
			TeamIDs:        rec.TeamIDs,
			Roles:          rec.Roles,
			PreferredRoles: rec.PreferredRoles,
		})
	}

	sort.Slice(people, func(i, j int) bool { return people[i].ID < people[j].ID })
	return people, nil
}

func loadTeams(ctx context.Context, store db.SnapshotStore, orgID string) ([]model.Team, error) {
	records, err := store.GetTeams(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to load teams: %w", err)
	}

	teams := make([]model.Team, 0, len(records))
	for _, rec := range records {
		teams = append(teams, model.Team{ID: rec.ID, Name: rec.Name})
	}
	sort.Slice(teams, func(i, j int) bool { return teams[i].ID < teams[j].ID })
	return teams, nil
}

// loadEvents loads concrete events and expands recurring event series into
// occurrences within [ref, ref+horizon)
func loadEvents(ctx context.Context, store db.SnapshotStore, orgID string, ref time.Time, horizon time.Duration) ([]model.Event, error) {
	records, err := store.GetEvents(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}

	window := model.Interval{Start: ref, End: ref.Add(horizon)}

	var events []model.Event
	for _, rec := range records {
		event := model.Event{
			ID:    rec.ID,
			Name:  rec.Name,
			Time:  model.Interval{Start: rec.Start, End: rec.End},
			Slots: toSlots(rec.Slots),
		}
		if !event.Time.Valid() {
			return nil, &DataIntegrityError{OrgID: orgID,
				Detail: fmt.Sprintf("event '%s' has non-positive duration", rec.ID)}
		}
		for _, slot := range event.Slots {
			if slot.Count < 0 {
				return nil, &DataIntegrityError{OrgID: orgID,
					Detail: fmt.Sprintf("event '%s' slot '%s' has negative count", rec.ID, slot.Role)}
			}
		}
		if !event.Time.Overlaps(window) {
			continue
		}
		events = append(events, event)
	}

	series, err := store.GetEventSeries(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to load event series: %w", err)
	}

	for _, rec := range series {
		if rec.Duration <= 0 {
			return nil, &DataIntegrityError{OrgID: orgID,
				Detail: fmt.Sprintf("event series '%s' has non-positive duration", rec.ID)}
		}

		rule, err := rrule.StrToRRule(rec.RRule)
		if err != nil {
			return nil, &DataIntegrityError{OrgID: orgID,
				Detail: fmt.Sprintf("event series '%s' has invalid rrule: %v", rec.ID, err)}
		}

		occurrences := rule.Between(ref, ref.Add(horizon), true)
		for _, start := range occurrences {
			events = append(events, model.Event{
				ID:    fmt.Sprintf("%s:%s", rec.ID, start.UTC().Format("2006-01-02T15:04")),
				Name:  rec.Name,
				Time:  model.Interval{Start: start, End: start.Add(rec.Duration)},
				Slots: toSlots(rec.Slots),
			})
		}
	}

	sort.Slice(events, func(i, j int) bool {
		if !events[i].Time.Start.Equal(events[j].Time.Start) {
			return events[i].Time.Start.Before(events[j].Time.Start)
		}
		return events[i].ID < events[j].ID
	})

	return events, nil
}

// loadBlackouts loads unavailability windows, expands recurring exceptions and
// normalizes each person's set so intervals never overlap
func loadBlackouts(ctx context.Context, store db.SnapshotStore, orgID string, ref time.Time, horizon time.Duration) (map[string][]model.Interval, error) {
	records, err := store.GetBlackouts(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to load blackouts: %w", err)
	}

	raw := make(map[string][]model.Interval)
	for _, rec := range records {
		if rec.RRule != "" {
			if rec.Duration <= 0 {
				return nil, &DataIntegrityError{OrgID: orgID,
					Detail: fmt.Sprintf("recurring blackout '%s' has non-positive duration", rec.ID)}
			}
			rule, err := rrule.StrToRRule(rec.RRule)
			if err != nil {
				return nil, &DataIntegrityError{OrgID: orgID,
					Detail: fmt.Sprintf("blackout '%s' has invalid rrule: %v", rec.ID, err)}
			}
			for _, start := range rule.Between(ref, ref.Add(horizon), true) {
				raw[rec.PersonID] = append(raw[rec.PersonID], model.Interval{Start: start, End: start.Add(rec.Duration)})
			}
			continue
		}

		iv := model.Interval{Start: rec.Start, End: rec.End}
		if !iv.Valid() {
			return nil, &DataIntegrityError{OrgID: orgID,
				Detail: fmt.Sprintf("blackout '%s' for person '%s' ends before it starts", rec.ID, rec.PersonID)}
		}
		raw[rec.PersonID] = append(raw[rec.PersonID], iv)
	}

	blackouts := make(map[string][]model.Interval, len(raw))
	for personID, intervals := range raw {
		blackouts[personID] = model.NormalizeIntervals(intervals)
	}
	return blackouts, nil
}

// checkRoleCoverage fails if any role slot references a role outside the
// organization's role registry - a sign the role was deleted while still
// referenced. Roles held by individual people count as defined, so a registry
// left empty by older data does not fail every snapshot. A defined role that
// nobody currently holds is under-coverage, not a data error.
func checkRoleCoverage(snap *Snapshot) error {
	known := make(map[string]bool)
	for _, role := range snap.Roles {
		known[role] = true
	}
	for _, person := range snap.People {
		for _, role := range person.Roles {
			known[role] = true
		}
	}

	for _, event := range snap.Events {
		for _, slot := range event.Slots {
			if slot.Count > 0 && !known[slot.Role] {
				return &DataIntegrityError{OrgID: snap.OrgID,
					Detail: fmt.Sprintf("event '%s' requires undefined role '%s'", event.ID, slot.Role)}
			}
		}
	}
	return nil
}

func toSlots(records []db.RoleSlotRecord) []model.RoleSlot {
	slots := make([]model.RoleSlot, 0, len(records))
	for _, rec := range records {
		slots = append(slots, model.RoleSlot{Role: rec.Role, Count: rec.Count})
	}
	return slots
}
