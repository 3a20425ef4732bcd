package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jakechorley/rotasolve/pkg/core/conflict"
	"github.com/jakechorley/rotasolve/pkg/core/constraint"
	"github.com/jakechorley/rotasolve/pkg/core/model"
	"github.com/jakechorley/rotasolve/pkg/core/scorer"
	"github.com/jakechorley/rotasolve/pkg/core/snapshot"
	"github.com/jakechorley/rotasolve/pkg/core/solution"
	"github.com/jakechorley/rotasolve/pkg/db"
)

// ChangeOp is a manual edit operation
type ChangeOp string

const (
	ChangeAdd    ChangeOp = "add"
	ChangeRemove ChangeOp = "remove"
)

// AssignmentChange is one entry of a manual change set
type AssignmentChange struct {
	Op       ChangeOp
	PersonID string
	EventID  string
	Role     string
}

// EditOutcome is the result of a proposed manual change. When Accepted is
// false, Conflicts explains every violation and nothing was persisted.
type EditOutcome struct {
	Accepted  bool
	Conflicts conflict.Report
	Solution  *model.Solution
}

// EditService applies manual edits to solutions: assignment change sets,
// lock/unlock toggles, and draft commits. Every edit is validated by the
// conflict validator before persistence and produces a new solution version.
// Edits share the organization's single-flight lease with solves, so a manual
// edit can never race an in-flight solve.
type EditService struct {
	Snapshots db.SnapshotStore
	Solutions solution.Store
	Locks     *OrgLocks
	Logger    *zap.Logger

	// Weights score edited versions for reporting; defaults apply when zero
	Weights model.Weights

	// EditLeaseTTL bounds the lease held during a synchronous edit
	EditLeaseTTL time.Duration
}

// ProposeChange validates a manual change set against the solution and, if no
// hard constraint is violated, persists it as a new draft version. Rejected
// change sets persist nothing - the caller gets immediate conflict feedback.
func (s *EditService) ProposeChange(ctx context.Context, solutionID string, changes []AssignmentChange) (*EditOutcome, error) {
	base, err := s.Solutions.Get(ctx, solutionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load solution: %w", err)
	}

	release, err := s.acquire(base.OrgID)
	if err != nil {
		return nil, err
	}
	defer release()

	edited, err := applyChanges(base.Assignments, changes)
	if err != nil {
		return nil, err
	}

	snap, constraints, weights, err := s.compileFor(ctx, base.OrgID, edited)
	if err != nil {
		return nil, err
	}

	report := conflict.Validate(snap, constraints, edited)
	if report.HasConflicts() {
		s.Logger.Info("Manual edit rejected",
			zap.String("solution", solutionID),
			zap.Int("conflicts", len(report)))
		return &EditOutcome{Accepted: false, Conflicts: report}, nil
	}

	sol, err := s.Solutions.Propose(ctx, solution.Proposal{
		OrgID:       base.OrgID,
		ParentID:    base.ID,
		Status:      model.StatusDraft,
		Assignments: edited,
		Score:       scorer.Score(snap, edited, weights),
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("Manual edit accepted",
		zap.String("solution", solutionID),
		zap.String("draft", sol.ID),
		zap.Int("changes", len(changes)))
	return &EditOutcome{Accepted: true, Solution: sol}, nil
}

// Commit promotes a draft version to committed. Re-solves start from a
// committed version's locked subset, never from an open draft.
func (s *EditService) Commit(ctx context.Context, solutionID string) (*model.Solution, error) {
	draft, err := s.Solutions.Get(ctx, solutionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load solution: %w", err)
	}
	if draft.Status != model.StatusDraft {
		return nil, fmt.Errorf("solution %s has status '%s', only drafts can be committed", solutionID, draft.Status)
	}

	release, err := s.acquire(draft.OrgID)
	if err != nil {
		return nil, err
	}
	defer release()

	return s.Solutions.Propose(ctx, solution.Proposal{
		OrgID:       draft.OrgID,
		ParentID:    draft.ID,
		Status:      model.StatusCommitted,
		Assignments: draft.Assignments,
		Score:       draft.Score,
	})
}

// SetLock toggles the locked flag on one assignment, producing a new
// committed version. Only valid against the organization's latest version -
// the store's optimistic concurrency rejects anything else.
func (s *EditService) SetLock(ctx context.Context, solutionID, assignmentID string, locked bool) (*model.Solution, error) {
	base, err := s.Solutions.Get(ctx, solutionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load solution: %w", err)
	}

	release, err := s.acquire(base.OrgID)
	if err != nil {
		return nil, err
	}
	defer release()

	edited := make([]model.Assignment, len(base.Assignments))
	copy(edited, base.Assignments)

	found := false
	for i := range edited {
		if edited[i].ID == assignmentID {
			edited[i].Locked = locked
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("assignment '%s' not found in solution %s: %w", assignmentID, solutionID, solution.ErrNotFound)
	}

	return s.Solutions.Propose(ctx, solution.Proposal{
		OrgID:       base.OrgID,
		ParentID:    base.ID,
		Status:      model.StatusCommitted,
		Assignments: edited,
		Score:       base.Score,
	})
}

func (s *EditService) acquire(orgID string) (func(), error) {
	ttl := s.EditLeaseTTL
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return s.Locks.Acquire(orgID, "edit-"+uuid.NewString(), ttl)
}

func (s *EditService) compileFor(ctx context.Context, orgID string, assignments []model.Assignment) (*snapshot.Snapshot, []constraint.Constraint, model.Weights, error) {
	snap, err := snapshot.Load(ctx, s.Snapshots, orgID, time.Now(), snapshot.LoadOptions{})
	if err != nil {
		return nil, nil, model.Weights{}, fmt.Errorf("failed to load snapshot: %w", err)
	}

	var locked []model.Assignment
	for _, a := range assignments {
		if a.Locked {
			locked = append(locked, a)
		}
	}

	weights := s.Weights
	if weights == (model.Weights{}) {
		weights = model.DefaultWeights()
	}

	constraints, weights, err := constraint.Compile(snap, weights, locked)
	if err != nil {
		return nil, nil, model.Weights{}, fmt.Errorf("failed to compile constraints: %w", err)
	}
	return snap, constraints, weights, nil
}

// applyChanges produces the edited assignment set. Removing a locked
// assignment is rejected - it must be unlocked first.
func applyChanges(base []model.Assignment, changes []AssignmentChange) ([]model.Assignment, error) {
	edited := make([]model.Assignment, len(base))
	copy(edited, base)

	for _, change := range changes {
		key := model.AssignmentKey{PersonID: change.PersonID, EventID: change.EventID, Role: change.Role}

		switch change.Op {
		case ChangeAdd:
			for _, a := range edited {
				if a.Key() == key {
					return nil, fmt.Errorf("change set adds assignment that already exists: %s/%s/%s",
						change.PersonID, change.EventID, change.Role)
				}
			}
			edited = append(edited, model.Assignment{
				ID:       uuid.NewString(),
				PersonID: change.PersonID,
				EventID:  change.EventID,
				Role:     change.Role,
			})

		case ChangeRemove:
			idx := -1
			for i, a := range edited {
				if a.Key() == key {
					idx = i
					break
				}
			}
			if idx < 0 {
				return nil, fmt.Errorf("change set removes assignment that does not exist: %s/%s/%s",
					change.PersonID, change.EventID, change.Role)
			}
			if edited[idx].Locked {
				return nil, fmt.Errorf("cannot remove locked assignment %s/%s/%s: unlock it first",
					change.PersonID, change.EventID, change.Role)
			}
			edited = append(edited[:idx], edited[idx+1:]...)

		default:
			return nil, fmt.Errorf("unknown change op '%s'", change.Op)
		}
	}

	model.SortAssignments(edited)
	return edited, nil
}
