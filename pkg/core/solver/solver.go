// Package solver searches for an assignment of people to event role slots
// that satisfies every hard constraint and minimizes the weighted sum of soft
// constraint violations (coverage gap, fairness spread, preference mismatch).
//
// Each solve call operates on its own immutable snapshot and returns a fresh
// result; no solver state is carried between calls or organizations.
package solver

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jakechorley/rotasolve/pkg/core/conflict"
	"github.com/jakechorley/rotasolve/pkg/core/constraint"
	"github.com/jakechorley/rotasolve/pkg/core/model"
	"github.com/jakechorley/rotasolve/pkg/core/scorer"
	"github.com/jakechorley/rotasolve/pkg/core/snapshot"
)

// DefaultTimeBudget bounds a solve when the caller supplies none
const DefaultTimeBudget = 30 * time.Second

// Result is the outcome of one solve run
type Result struct {
	Status model.SolutionStatus

	// Assignments is the best assignment set found, sorted by
	// (PersonID, EventID, Role). Empty for infeasible, timed_out and
	// cancelled results.
	Assignments []model.Assignment

	// Score is the objective breakdown of Assignments
	Score model.ObjectiveBreakdown

	// Conflicts names the conflicting hard constraints when Status is
	// infeasible
	Conflicts conflict.Report

	// Nodes is the number of search nodes visited
	Nodes int64

	// Elapsed is the wall-clock search time
	Elapsed time.Duration
}

// Solve runs the constraint search under the given time budget.
//
// Status semantics:
//   - optimal: search exhausted, every slot position covered
//   - feasible: hard constraints hold but either slots remain uncovered or
//     the budget expired before the search space was exhausted
//   - infeasible: the locked assignment set is structurally unsatisfiable;
//     Conflicts names the clashing constraints
//   - timed_out: the budget expired before any feasible set was established
//   - cancelled: the caller cancelled before any feasible set was established
//
// Under-coverage is never infeasible: unfillable seats are left uncovered and
// costed in the objective instead.
func Solve(ctx context.Context, snap *snapshot.Snapshot, constraints []constraint.Constraint, weights model.Weights, budget time.Duration) (*Result, error) {
	if budget <= 0 {
		budget = DefaultTimeBudget
	}

	started := time.Now()

	m, lockConflicts, err := buildModel(snap, constraints, weights)
	if err != nil {
		return nil, err
	}
	if lockConflicts.HasConflicts() {
		return &Result{
			Status:    model.StatusInfeasible,
			Conflicts: lockConflicts,
			Elapsed:   time.Since(started),
		}, nil
	}

	searchCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	state := newSearchState(m)
	searchErr := state.search(searchCtx, 0)

	result := &Result{
		Nodes:   state.nodes,
		Elapsed: time.Since(started),
	}

	switch {
	case searchErr == nil:
		// Search space exhausted: the incumbent is proven best. Full
		// coverage earns optimal; a proven-best set with seats still
		// uncovered reports feasible, since the rota is best-effort.
		result.Assignments = state.best
		result.Score = state.bestScore
		if state.bestScore.CoverageGap == 0 {
			result.Status = model.StatusOptimal
		} else {
			result.Status = model.StatusFeasible
		}

	case state.haveBest:
		// Budget expired or caller cancelled mid-search: return the best
		// feasible set found so far, flagged as such - never a silently
		// degraded "optimal"
		result.Assignments = state.best
		result.Score = state.bestScore
		result.Status = model.StatusFeasible

	case errors.Is(searchErr, context.Canceled):
		result.Status = model.StatusCancelled

	default:
		result.Status = model.StatusTimedOut
	}

	if result.Assignments == nil && result.Status.HasAssignments() {
		// All-uncovered is still a valid (empty) assignment set
		result.Assignments = []model.Assignment{}
		result.Score = scorer.Score(snap, result.Assignments, weights)
	}

	return result, nil
}

// assignmentNamespace seeds deterministic assignment IDs so identical solver
// input yields byte-identical output
var assignmentNamespace = uuid.MustParse("7b0d3f86-5a1c-4f6e-9e2a-1c8e04c1c9d4")

func assignmentID(personID, eventID, role string) string {
	return uuid.NewSHA1(assignmentNamespace, []byte(personID+"\x00"+eventID+"\x00"+role)).String()
}
