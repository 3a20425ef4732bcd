package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/rotasolve/pkg/core/model"
	"github.com/jakechorley/rotasolve/pkg/core/solution"
)

// Propose appends a new solution version. Optimistic concurrency: the insert
// happens in a transaction that re-reads the organization's latest version,
// and the UNIQUE (org_id, version) constraint backstops any race.
func (d *DB) Propose(ctx context.Context, proposal solution.Proposal) (*model.Solution, error) {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var latestID string
	var latestVersion int
	err = tx.QueryRow(ctx, `
		SELECT id, version
		FROM solution
		WHERE org_id = $1
		ORDER BY version DESC
		LIMIT 1
	`, proposal.OrgID).Scan(&latestID, &latestVersion)

	version := 1
	switch {
	case err == nil:
		if proposal.ParentID != latestID {
			return nil, &solution.StaleVersionError{OrgID: proposal.OrgID, ParentID: proposal.ParentID, LatestID: latestID}
		}
		version = latestVersion + 1
	case errors.Is(err, pgx.ErrNoRows):
		if proposal.ParentID != "" {
			return nil, &solution.StaleVersionError{OrgID: proposal.OrgID, ParentID: proposal.ParentID}
		}
	default:
		return nil, fmt.Errorf("failed to query latest solution: %w", err)
	}

	sol := &model.Solution{
		ID:          uuid.NewString(),
		OrgID:       proposal.OrgID,
		Version:     version,
		ParentID:    proposal.ParentID,
		Status:      proposal.Status,
		Assignments: make([]model.Assignment, len(proposal.Assignments)),
		Score:       proposal.Score,
	}
	copy(sol.Assignments, proposal.Assignments)
	model.SortAssignments(sol.Assignments)

	err = tx.QueryRow(ctx, `
		INSERT INTO solution (id, org_id, version, parent_id, status,
			coverage_gap, fairness_spread, preference_mismatch, weighted_score)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`, sol.ID, sol.OrgID, sol.Version, sol.ParentID, string(sol.Status),
		sol.Score.CoverageGap, sol.Score.FairnessSpread, sol.Score.PreferenceMismatch,
		sol.Score.Weighted).Scan(&sol.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert solution: %w", err)
	}

	for _, a := range sol.Assignments {
		_, err = tx.Exec(ctx, `
			INSERT INTO assignment (id, solution_id, person_id, event_id, role, locked)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, a.ID, sol.ID, a.PersonID, a.EventID, a.Role, a.Locked)
		if err != nil {
			return nil, fmt.Errorf("failed to insert assignment: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit solution: %w", err)
	}
	return sol, nil
}

// Get returns one solution version with its assignments
func (d *DB) Get(ctx context.Context, solutionID string) (*model.Solution, error) {
	sol, err := d.scanSolution(ctx, `
		SELECT id, org_id, version, parent_id, status, created_at,
		       coverage_gap, fairness_spread, preference_mismatch, weighted_score
		FROM solution
		WHERE id = $1
	`, solutionID)
	if err != nil {
		return nil, err
	}
	return sol, nil
}

// Latest returns the organization's newest solution version
func (d *DB) Latest(ctx context.Context, orgID string) (*model.Solution, error) {
	sol, err := d.scanSolution(ctx, `
		SELECT id, org_id, version, parent_id, status, created_at,
		       coverage_gap, fairness_spread, preference_mismatch, weighted_score
		FROM solution
		WHERE org_id = $1
		ORDER BY version DESC
		LIMIT 1
	`, orgID)
	if err != nil {
		return nil, err
	}
	return sol, nil
}

// History returns all solution versions for the organization, oldest first
func (d *DB) History(ctx context.Context, orgID string) ([]*model.Solution, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id
		FROM solution
		WHERE org_id = $1
		ORDER BY version
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to query solution history: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan solution id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating solution history: %w", err)
	}

	history := make([]*model.Solution, 0, len(ids))
	for _, id := range ids {
		sol, err := d.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		history = append(history, sol)
	}
	return history, nil
}

func (d *DB) scanSolution(ctx context.Context, query string, arg any) (*model.Solution, error) {
	var sol model.Solution
	var status string
	err := d.pool.QueryRow(ctx, query, arg).Scan(
		&sol.ID, &sol.OrgID, &sol.Version, &sol.ParentID, &status, &sol.CreatedAt,
		&sol.Score.CoverageGap, &sol.Score.FairnessSpread, &sol.Score.PreferenceMismatch,
		&sol.Score.Weighted)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, solution.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query solution: %w", err)
	}
	sol.Status = model.SolutionStatus(status)

	rows, err := d.pool.Query(ctx, `
		SELECT id, person_id, event_id, role, locked
		FROM assignment
		WHERE solution_id = $1
		ORDER BY person_id, event_id, role
	`, sol.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a model.Assignment
		if err := rows.Scan(&a.ID, &a.PersonID, &a.EventID, &a.Role, &a.Locked); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		sol.Assignments = append(sol.Assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assignments: %w", err)
	}

	return &sol, nil
}
