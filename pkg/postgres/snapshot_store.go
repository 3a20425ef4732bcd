package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jakechorley/rotasolve/pkg/db"
)

// GetOrganization retrieves one organization record
func (d *DB) GetOrganization(ctx context.Context, orgID string) (db.OrganizationRecord, error) {
	var org db.OrganizationRecord
	err := d.pool.QueryRow(ctx, `
		SELECT id, name, roles
		FROM organization
		WHERE id = $1
	`, orgID).Scan(&org.ID, &org.Name, &org.Roles)
	if err != nil {
		return db.OrganizationRecord{}, fmt.Errorf("failed to query organization: %w", err)
	}
	return org, nil
}

// GetPeople retrieves all person records for an organization
func (d *DB) GetPeople(ctx context.Context, orgID string) ([]db.PersonRecord, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, org_id, first_name, last_name, display_name, team_ids, roles, preferred_roles
		FROM person
		WHERE org_id = $1
		ORDER BY id
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to query people: %w", err)
	}
	defer rows.Close()

	var people []db.PersonRecord
	for rows.Next() {
		var p db.PersonRecord
		if err := rows.Scan(&p.ID, &p.OrgID, &p.FirstName, &p.LastName, &p.DisplayName,
			&p.TeamIDs, &p.Roles, &p.PreferredRoles); err != nil {
			return nil, fmt.Errorf("failed to scan person: %w", err)
		}
		people = append(people, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating people: %w", err)
	}
	return people, nil
}

// GetTeams retrieves all team records for an organization
func (d *DB) GetTeams(ctx context.Context, orgID string) ([]db.TeamRecord, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, org_id, name
		FROM team
		WHERE org_id = $1
		ORDER BY id
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to query teams: %w", err)
	}
	defer rows.Close()

	var teams []db.TeamRecord
	for rows.Next() {
		var t db.TeamRecord
		if err := rows.Scan(&t.ID, &t.OrgID, &t.Name); err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		teams = append(teams, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating teams: %w", err)
	}
	return teams, nil
}

// GetEvents retrieves all concrete event records with their role slots
func (d *DB) GetEvents(ctx context.Context, orgID string) ([]db.EventRecord, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, org_id, name, start_at, end_at
		FROM event
		WHERE org_id = $1
		ORDER BY id
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []db.EventRecord
	byID := make(map[string]int)
	for rows.Next() {
		var e db.EventRecord
		if err := rows.Scan(&e.ID, &e.OrgID, &e.Name, &e.Start, &e.End); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		byID[e.ID] = len(events)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	slotRows, err := d.pool.Query(ctx, `
		SELECT s.event_id, s.role, s.slot_count
		FROM event_slot s
		JOIN event e ON e.id = s.event_id
		WHERE e.org_id = $1
		ORDER BY s.event_id, s.role
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to query event slots: %w", err)
	}
	defer slotRows.Close()

	for slotRows.Next() {
		var eventID string
		var slot db.RoleSlotRecord
		if err := slotRows.Scan(&eventID, &slot.Role, &slot.Count); err != nil {
			return nil, fmt.Errorf("failed to scan event slot: %w", err)
		}
		if idx, ok := byID[eventID]; ok {
			events[idx].Slots = append(events[idx].Slots, slot)
		}
	}
	if err := slotRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event slots: %w", err)
	}
	return events, nil
}

// GetEventSeries retrieves recurring event definitions with their role slots
func (d *DB) GetEventSeries(ctx context.Context, orgID string) ([]db.EventSeriesRecord, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, org_id, name, rrule, duration_minutes
		FROM event_series
		WHERE org_id = $1
		ORDER BY id
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to query event series: %w", err)
	}
	defer rows.Close()

	var series []db.EventSeriesRecord
	byID := make(map[string]int)
	for rows.Next() {
		var s db.EventSeriesRecord
		var minutes int
		if err := rows.Scan(&s.ID, &s.OrgID, &s.Name, &s.RRule, &minutes); err != nil {
			return nil, fmt.Errorf("failed to scan event series: %w", err)
		}
		s.Duration = time.Duration(minutes) * time.Minute
		byID[s.ID] = len(series)
		series = append(series, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event series: %w", err)
	}

	slotRows, err := d.pool.Query(ctx, `
		SELECT s.series_id, s.role, s.slot_count
		FROM event_series_slot s
		JOIN event_series es ON es.id = s.series_id
		WHERE es.org_id = $1
		ORDER BY s.series_id, s.role
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to query event series slots: %w", err)
	}
	defer slotRows.Close()

	for slotRows.Next() {
		var seriesID string
		var slot db.RoleSlotRecord
		if err := slotRows.Scan(&seriesID, &slot.Role, &slot.Count); err != nil {
			return nil, fmt.Errorf("failed to scan event series slot: %w", err)
		}
		if idx, ok := byID[seriesID]; ok {
			series[idx].Slots = append(series[idx].Slots, slot)
		}
	}
	if err := slotRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event series slots: %w", err)
	}
	return series, nil
}

// GetBlackouts retrieves all blackout records for an organization
func (d *DB) GetBlackouts(ctx context.Context, orgID string) ([]db.BlackoutRecord, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, org_id, person_id, start_at, end_at, rrule, duration_minutes
		FROM blackout
		WHERE org_id = $1
		ORDER BY id
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to query blackouts: %w", err)
	}
	defer rows.Close()

	var blackouts []db.BlackoutRecord
	for rows.Next() {
		var b db.BlackoutRecord
		var start, end *time.Time
		var minutes int
		if err := rows.Scan(&b.ID, &b.OrgID, &b.PersonID, &start, &end, &b.RRule, &minutes); err != nil {
			return nil, fmt.Errorf("failed to scan blackout: %w", err)
		}
		if start != nil {
			b.Start = *start
		}
		if end != nil {
			b.End = *end
		}
		b.Duration = time.Duration(minutes) * time.Minute
		blackouts = append(blackouts, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating blackouts: %w", err)
	}
	return blackouts, nil
}

// GetPolicies retrieves all policy records for an organization
func (d *DB) GetPolicies(ctx context.Context, orgID string) ([]db.PolicyRecord, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, org_id, kind, scope_level, team_id, person_id,
		       max_per_period, period_days, rest_gap_minutes, fairness_target,
		       locked_person_id, locked_event_id, locked_role
		FROM policy
		WHERE org_id = $1
		ORDER BY id
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to query policies: %w", err)
	}
	defer rows.Close()

	var policies []db.PolicyRecord
	for rows.Next() {
		var p db.PolicyRecord
		if err := rows.Scan(&p.ID, &p.OrgID, &p.Kind, &p.ScopeLevel, &p.TeamID, &p.PersonID,
			&p.MaxPerPeriod, &p.PeriodDays, &p.RestGapMinutes, &p.FairnessTarget,
			&p.LockedPersonID, &p.LockedEventID, &p.LockedRole); err != nil {
			return nil, fmt.Errorf("failed to scan policy: %w", err)
		}
		policies = append(policies, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating policies: %w", err)
	}
	return policies, nil
}
