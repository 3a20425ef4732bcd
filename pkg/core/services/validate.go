package services

import (
	"context"
	"fmt"
	"time"

	"github.com/jakechorley/rotasolve/pkg/core/conflict"
	"github.com/jakechorley/rotasolve/pkg/core/constraint"
	"github.com/jakechorley/rotasolve/pkg/core/model"
	"github.com/jakechorley/rotasolve/pkg/core/snapshot"
	"github.com/jakechorley/rotasolve/pkg/core/solution"
	"github.com/jakechorley/rotasolve/pkg/db"
)

// ValidateService re-checks stored solutions on demand. Read-only, callable
// anytime, concurrently safe - reports are recomputed on every call and never
// persisted.
type ValidateService struct {
	Snapshots db.SnapshotStore
	Solutions solution.Store
}

// ValidateSolution revalidates a stored solution against a fresh snapshot and
// the current constraint set
func (s *ValidateService) ValidateSolution(ctx context.Context, solutionID string) (conflict.Report, error) {
	sol, err := s.Solutions.Get(ctx, solutionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load solution: %w", err)
	}

	snap, err := snapshot.Load(ctx, s.Snapshots, sol.OrgID, time.Now(), snapshot.LoadOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	constraints, _, err := constraint.Compile(snap, model.DefaultWeights(), sol.LockedAssignments())
	if err != nil {
		return nil, fmt.Errorf("failed to compile constraints: %w", err)
	}

	return conflict.Validate(snap, constraints, sol.Assignments), nil
}
