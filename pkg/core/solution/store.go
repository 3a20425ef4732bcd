// Package solution versions assignment sets. Solutions are append-only: every
// solve, manual edit or lock toggle produces a new version with a parent
// link, so any prior version can be diffed against or rolled back to.
package solution

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jakechorley/rotasolve/pkg/core/model"
)

// ErrNotFound is returned when a solution or assignment does not exist
var ErrNotFound = errors.New("solution not found")

// StaleVersionError is returned when a proposal's parent is no longer the
// latest version for the organization. Recoverable: re-fetch the latest
// version and re-propose. Concurrent proposals are rejected, never merged.
type StaleVersionError struct {
	OrgID    string
	ParentID string
	LatestID string
}

func (e *StaleVersionError) Error() string {
	return fmt.Sprintf("stale version for org %s: parent %s is not the latest version %s",
		e.OrgID, e.ParentID, e.LatestID)
}

// Proposal describes a new solution version to append
type Proposal struct {
	OrgID string

	// ParentID must be the organization's latest version, or empty for the
	// first version
	ParentID string

	Status      model.SolutionStatus
	Assignments []model.Assignment
	Score       model.ObjectiveBreakdown
}

// Store persists versioned solutions. Implementations must enforce
// append-only versioning and optimistic concurrency on Propose.
type Store interface {
	// Propose appends a new immutable version. Fails with StaleVersionError
	// if ParentID is not the organization's latest version.
	Propose(ctx context.Context, proposal Proposal) (*model.Solution, error)

	// Get returns one version by ID
	Get(ctx context.Context, solutionID string) (*model.Solution, error)

	// Latest returns the organization's newest version
	Latest(ctx context.Context, orgID string) (*model.Solution, error)

	// History returns all versions for the organization, oldest first
	History(ctx context.Context, orgID string) ([]*model.Solution, error)
}

// MemoryStore is an in-memory Store, used in tests and single-process runs
type MemoryStore struct {
	mu    sync.Mutex
	byID  map[string]*model.Solution
	byOrg map[string][]*model.Solution
	now   func() time.Time
}

// NewMemoryStore creates an empty in-memory solution store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:  make(map[string]*model.Solution),
		byOrg: make(map[string][]*model.Solution),
		now:   time.Now,
	}
}

func (s *MemoryStore) Propose(ctx context.Context, proposal Proposal) (*model.Solution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.byOrg[proposal.OrgID]

	version := 1
	if len(history) > 0 {
		latest := history[len(history)-1]
		if proposal.ParentID != latest.ID {
			return nil, &StaleVersionError{OrgID: proposal.OrgID, ParentID: proposal.ParentID, LatestID: latest.ID}
		}
		version = latest.Version + 1
	} else if proposal.ParentID != "" {
		return nil, &StaleVersionError{OrgID: proposal.OrgID, ParentID: proposal.ParentID}
	}

	assignments := make([]model.Assignment, len(proposal.Assignments))
	copy(assignments, proposal.Assignments)
	model.SortAssignments(assignments)

	sol := &model.Solution{
		ID:          uuid.NewString(),
		OrgID:       proposal.OrgID,
		Version:     version,
		ParentID:    proposal.ParentID,
		Status:      proposal.Status,
		Assignments: assignments,
		Score:       proposal.Score,
		CreatedAt:   s.now(),
	}

	s.byID[sol.ID] = sol
	s.byOrg[proposal.OrgID] = append(history, sol)
	return copySolution(sol), nil
}

func (s *MemoryStore) Get(ctx context.Context, solutionID string) (*model.Solution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sol, ok := s.byID[solutionID]
	if !ok {
		return nil, fmt.Errorf("solution '%s': %w", solutionID, ErrNotFound)
	}
	return copySolution(sol), nil
}

func (s *MemoryStore) Latest(ctx context.Context, orgID string) (*model.Solution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.byOrg[orgID]
	if len(history) == 0 {
		return nil, fmt.Errorf("no solutions for org '%s': %w", orgID, ErrNotFound)
	}
	return copySolution(history[len(history)-1]), nil
}

func (s *MemoryStore) History(ctx context.Context, orgID string) ([]*model.Solution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.byOrg[orgID]
	out := make([]*model.Solution, len(history))
	for i, sol := range history {
		out[i] = copySolution(sol)
	}
	return out, nil
}

// copySolution returns a deep copy so callers can never mutate a stored version
func copySolution(sol *model.Solution) *model.Solution {
	out := *sol
	out.Assignments = make([]model.Assignment, len(sol.Assignments))
	copy(out.Assignments, sol.Assignments)
	return &out
}
