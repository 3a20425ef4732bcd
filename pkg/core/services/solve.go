package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/rotasolve/pkg/core/conflict"
	"github.com/jakechorley/rotasolve/pkg/core/constraint"
	"github.com/jakechorley/rotasolve/pkg/core/model"
	"github.com/jakechorley/rotasolve/pkg/core/snapshot"
	"github.com/jakechorley/rotasolve/pkg/core/solution"
	"github.com/jakechorley/rotasolve/pkg/core/solver"
	"github.com/jakechorley/rotasolve/pkg/db"
)

// SolveRequest describes one solve run
type SolveRequest struct {
	OrgID string

	// TimeBudget bounds the solver's wall clock; the service default applies
	// when zero
	TimeBudget time.Duration

	// Weights overrides the objective weights; the service default applies
	// when nil
	Weights *model.Weights

	// ParentSolutionID is the version to re-solve from. The parent's locked
	// assignments are pinned in the new solve. Empty means solve from the
	// organization's latest version, or from scratch if none exists.
	ParentSolutionID string

	// Ref is the snapshot reference time; now if zero
	Ref time.Time

	// Horizon bounds event expansion; the loader default applies when zero
	Horizon time.Duration
}

// SolveOutcome is the result of one solve run. Solution is nil when the run
// produced no assignment set to persist (infeasible, timed out or cancelled
// before any feasible incumbent was found) - inspect Result in that case.
type SolveOutcome struct {
	Solution *model.Solution
	Result   *solver.Result
}

// SolveService runs the full pipeline: snapshot loader, constraint compiler,
// solver engine, conflict validator, solution store.
type SolveService struct {
	Snapshots db.SnapshotStore
	Solutions solution.Store
	Logger    *zap.Logger

	// DefaultWeights applies when a request carries none
	DefaultWeights model.Weights

	// DefaultBudget applies when a request carries none
	DefaultBudget time.Duration
}

// Solve executes one solve run for an organization.
//
// Fatal input errors (DataIntegrityError, InvalidConstraintError) abort
// before any solving. Business outcomes (infeasible, timed out, cancelled)
// are returned inside the outcome, never as errors, since callers branch on
// them routinely.
func (s *SolveService) Solve(ctx context.Context, req SolveRequest) (*SolveOutcome, error) {
	ref := req.Ref
	if ref.IsZero() {
		ref = time.Now()
	}

	logger := s.Logger.With(zap.String("org", req.OrgID))
	logger.Info("Starting solve", zap.Time("ref", ref))

	snap, err := snapshot.Load(ctx, s.Snapshots, req.OrgID, ref, snapshot.LoadOptions{Horizon: req.Horizon})
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	logger.Debug("Snapshot loaded",
		zap.Int("people", len(snap.People)),
		zap.Int("events", len(snap.Events)),
		zap.Int("policies", len(snap.Policies)))

	parent, locked, err := s.resolveParent(ctx, req)
	if err != nil {
		return nil, err
	}

	weights := s.DefaultWeights
	if weights == (model.Weights{}) {
		weights = model.DefaultWeights()
	}
	if req.Weights != nil {
		weights = *req.Weights
	}

	constraints, weights, err := constraint.Compile(snap, weights, locked)
	if err != nil {
		return nil, fmt.Errorf("failed to compile constraints: %w", err)
	}
	logger.Debug("Constraints compiled", zap.Int("count", len(constraints)))

	budget := req.TimeBudget
	if budget <= 0 {
		budget = s.DefaultBudget
	}

	result, err := solver.Solve(ctx, snap, constraints, weights, budget)
	if err != nil {
		return nil, fmt.Errorf("solver failed: %w", err)
	}
	logger.Info("Solve finished",
		zap.String("status", string(result.Status)),
		zap.Int64("nodes", result.Nodes),
		zap.Duration("elapsed", result.Elapsed),
		zap.Int("coverage_gap", result.Score.CoverageGap))

	outcome := &SolveOutcome{Result: result}
	if !result.Status.HasAssignments() {
		if result.Status == model.StatusInfeasible {
			logger.Warn("Solve infeasible", zap.Int("conflicts", len(result.Conflicts)))
		}
		return outcome, nil
	}

	// Independent re-check of solver output. Any hard violation here is a
	// solver or encoding bug, not a user problem - surfaced as an internal
	// error, never "fixed" by dropping the offending assignment.
	report := conflict.Validate(snap, constraints, result.Assignments)
	if report.HasConflicts() {
		logger.Error("Solver output failed independent validation",
			zap.Int("violations", len(report)),
			zap.String("first", report[0].Detail))
		return nil, fmt.Errorf("internal: solver output violates %d hard constraints (first: %s)",
			len(report), report[0].Detail)
	}

	parentID := ""
	if parent != nil {
		parentID = parent.ID
	}
	sol, err := s.Solutions.Propose(ctx, solution.Proposal{
		OrgID:       req.OrgID,
		ParentID:    parentID,
		Status:      result.Status,
		Assignments: result.Assignments,
		Score:       result.Score,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store solution: %w", err)
	}

	logger.Info("Solution stored",
		zap.String("solution", sol.ID),
		zap.Int("version", sol.Version),
		zap.Int("assignments", len(sol.Assignments)))

	outcome.Solution = sol
	return outcome, nil
}

// resolveParent determines the version a solve descends from and the locked
// subset to pin. Re-solves never start from an uncommitted draft.
func (s *SolveService) resolveParent(ctx context.Context, req SolveRequest) (*model.Solution, []model.Assignment, error) {
	var parent *model.Solution
	var err error

	if req.ParentSolutionID != "" {
		parent, err = s.Solutions.Get(ctx, req.ParentSolutionID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load parent solution: %w", err)
		}
	} else {
		parent, err = s.Solutions.Latest(ctx, req.OrgID)
		if err != nil {
			if errors.Is(err, solution.ErrNotFound) {
				return nil, nil, nil
			}
			return nil, nil, fmt.Errorf("failed to load latest solution: %w", err)
		}
	}

	if parent.Status == model.StatusDraft {
		return nil, nil, fmt.Errorf("cannot re-solve from draft version %s: commit or discard it first", parent.ID)
	}

	return parent, parent.LockedAssignments(), nil
}
