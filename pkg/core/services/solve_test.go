package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/rotasolve/pkg/core/model"
	"github.com/jakechorley/rotasolve/pkg/core/solution"
	"github.com/jakechorley/rotasolve/pkg/db"
)

// fakeStore is an in-memory db.SnapshotStore for service tests. The optional
// block channel stalls snapshot loading until closed, to hold a job running.
type fakeStore struct {
	org       db.OrganizationRecord
	people    []db.PersonRecord
	events    []db.EventRecord
	blackouts []db.BlackoutRecord
	policies  []db.PolicyRecord
	block     chan struct{}
}

func (s *fakeStore) GetOrganization(ctx context.Context, orgID string) (db.OrganizationRecord, error) {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return db.OrganizationRecord{}, ctx.Err()
		}
	}
	return s.org, nil
}
func (s *fakeStore) GetPeople(ctx context.Context, orgID string) ([]db.PersonRecord, error) {
	return s.people, nil
}
func (s *fakeStore) GetTeams(ctx context.Context, orgID string) ([]db.TeamRecord, error) {
	return nil, nil
}
func (s *fakeStore) GetEvents(ctx context.Context, orgID string) ([]db.EventRecord, error) {
	return s.events, nil
}
func (s *fakeStore) GetEventSeries(ctx context.Context, orgID string) ([]db.EventSeriesRecord, error) {
	return nil, nil
}
func (s *fakeStore) GetBlackouts(ctx context.Context, orgID string) ([]db.BlackoutRecord, error) {
	return s.blackouts, nil
}
func (s *fakeStore) GetPolicies(ctx context.Context, orgID string) ([]db.PolicyRecord, error) {
	return s.policies, nil
}

// Edit and validate services snapshot at the current time, so fixtures live in
// the near future
var base = time.Now().UTC().Add(24 * time.Hour).Truncate(time.Hour)

func at(day, hour int) time.Time {
	return base.AddDate(0, 0, day).Add(time.Duration(hour) * time.Hour)
}

func twoPersonStore() *fakeStore {
	return &fakeStore{
		org: db.OrganizationRecord{ID: "org1", Name: "Test Org", Roles: []string{"usher", "greeter"}},
		people: []db.PersonRecord{
			{ID: "p1", OrgID: "org1", Roles: []string{"usher"}},
			{ID: "p2", OrgID: "org1", Roles: []string{"usher", "greeter"}},
		},
		events: []db.EventRecord{
			{ID: "e1", OrgID: "org1", Name: "Service", Start: at(1, 9), End: at(1, 12),
				Slots: []db.RoleSlotRecord{{Role: "usher", Count: 1}, {Role: "greeter", Count: 1}}},
		},
	}
}

func newSolveService(store *fakeStore, solutions solution.Store) *SolveService {
	return &SolveService{
		Snapshots:     store,
		Solutions:     solutions,
		Logger:        zap.NewNop(),
		DefaultBudget: time.Minute,
	}
}

func TestSolve_PersistsFirstVersion(t *testing.T) {
	solutions := solution.NewMemoryStore()
	svc := newSolveService(twoPersonStore(), solutions)

	outcome, err := svc.Solve(context.Background(), SolveRequest{OrgID: "org1"})
	require.NoError(t, err)

	require.NotNil(t, outcome.Solution)
	assert.Equal(t, model.StatusOptimal, outcome.Solution.Status)
	assert.Equal(t, 1, outcome.Solution.Version)
	assert.Empty(t, outcome.Solution.ParentID)
	assert.Len(t, outcome.Solution.Assignments, 2)

	latest, err := solutions.Latest(context.Background(), "org1")
	require.NoError(t, err)
	assert.Equal(t, outcome.Solution.ID, latest.ID)
}

func TestSolve_ReSolveDescendsFromLatest(t *testing.T) {
	solutions := solution.NewMemoryStore()
	svc := newSolveService(twoPersonStore(), solutions)
	ctx := context.Background()

	first, err := svc.Solve(ctx, SolveRequest{OrgID: "org1"})
	require.NoError(t, err)

	second, err := svc.Solve(ctx, SolveRequest{OrgID: "org1"})
	require.NoError(t, err)

	assert.Equal(t, 2, second.Solution.Version)
	assert.Equal(t, first.Solution.ID, second.Solution.ParentID)
}

func TestSolve_PreservesParentLocks(t *testing.T) {
	solutions := solution.NewMemoryStore()
	svc := newSolveService(twoPersonStore(), solutions)
	ctx := context.Background()

	// Committed baseline pinning p2 to the usher seat (the solver would
	// otherwise pick p1, the lower ID)
	parent, err := solutions.Propose(ctx, solution.Proposal{
		OrgID:  "org1",
		Status: model.StatusCommitted,
		Assignments: []model.Assignment{
			{ID: "a1", PersonID: "p2", EventID: "e1", Role: "usher", Locked: true},
		},
	})
	require.NoError(t, err)

	outcome, err := svc.Solve(ctx, SolveRequest{OrgID: "org1"})
	require.NoError(t, err)

	require.NotNil(t, outcome.Solution)
	assert.Equal(t, parent.ID, outcome.Solution.ParentID)

	var usher *model.Assignment
	for i := range outcome.Solution.Assignments {
		if outcome.Solution.Assignments[i].Role == "usher" {
			usher = &outcome.Solution.Assignments[i]
		}
	}
	require.NotNil(t, usher)
	assert.Equal(t, "p2", usher.PersonID)
	assert.True(t, usher.Locked)
}

func TestSolve_InfeasibleIsNotPersisted(t *testing.T) {
	store := twoPersonStore()
	store.events = append(store.events, db.EventRecord{
		ID: "e2", OrgID: "org1", Name: "Overlap", Start: at(1, 10), End: at(1, 13),
		Slots: []db.RoleSlotRecord{{Role: "usher", Count: 1}},
	})
	solutions := solution.NewMemoryStore()
	svc := newSolveService(store, solutions)
	ctx := context.Background()

	parent, err := solutions.Propose(ctx, solution.Proposal{
		OrgID:  "org1",
		Status: model.StatusCommitted,
		Assignments: []model.Assignment{
			{ID: "a1", PersonID: "p1", EventID: "e1", Role: "usher", Locked: true},
			{ID: "a2", PersonID: "p1", EventID: "e2", Role: "usher", Locked: true},
		},
	})
	require.NoError(t, err)

	outcome, err := svc.Solve(ctx, SolveRequest{OrgID: "org1"})
	require.NoError(t, err)

	assert.Nil(t, outcome.Solution, "infeasible runs persist nothing")
	assert.Equal(t, model.StatusInfeasible, outcome.Result.Status)
	assert.True(t, outcome.Result.Conflicts.HasConflicts())

	latest, err := solutions.Latest(ctx, "org1")
	require.NoError(t, err)
	assert.Equal(t, parent.ID, latest.ID, "latest version unchanged")
}

func TestSolve_LockOnRemovedSlotIsInfeasible(t *testing.T) {
	// The committed baseline locks p2 into a role the event carries no slot
	// for anymore. That is the operator's to resolve, so the solve reports
	// infeasible naming the lock rather than an internal error
	store := twoPersonStore()
	store.org.Roles = append(store.org.Roles, "cleaner")
	store.people[1].Roles = append(store.people[1].Roles, "cleaner")
	solutions := solution.NewMemoryStore()
	svc := newSolveService(store, solutions)
	ctx := context.Background()

	parent, err := solutions.Propose(ctx, solution.Proposal{
		OrgID:  "org1",
		Status: model.StatusCommitted,
		Assignments: []model.Assignment{
			{ID: "a1", PersonID: "p2", EventID: "e1", Role: "cleaner", Locked: true},
		},
	})
	require.NoError(t, err)

	outcome, err := svc.Solve(ctx, SolveRequest{OrgID: "org1"})
	require.NoError(t, err)

	assert.Nil(t, outcome.Solution)
	assert.Equal(t, model.StatusInfeasible, outcome.Result.Status)
	require.True(t, outcome.Result.Conflicts.HasConflicts())
	assert.Contains(t, outcome.Result.Conflicts[0].Detail, "no 'cleaner' positions")

	latest, err := solutions.Latest(ctx, "org1")
	require.NoError(t, err)
	assert.Equal(t, parent.ID, latest.ID, "latest version unchanged")
}

func TestSolve_RejectsDraftParent(t *testing.T) {
	solutions := solution.NewMemoryStore()
	svc := newSolveService(twoPersonStore(), solutions)
	ctx := context.Background()

	_, err := solutions.Propose(ctx, solution.Proposal{OrgID: "org1", Status: model.StatusDraft})
	require.NoError(t, err)

	_, err = svc.Solve(ctx, SolveRequest{OrgID: "org1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot re-solve from draft")
}

func TestSolve_ExplicitParentMustExist(t *testing.T) {
	solutions := solution.NewMemoryStore()
	svc := newSolveService(twoPersonStore(), solutions)

	_, err := svc.Solve(context.Background(), SolveRequest{OrgID: "org1", ParentSolutionID: "ghost"})
	require.Error(t, err)
	assert.ErrorIs(t, err, solution.ErrNotFound)
}

func TestSolve_DeterministicAcrossRuns(t *testing.T) {
	ctx := context.Background()
	ref := base

	run := func() *model.Solution {
		solutions := solution.NewMemoryStore()
		svc := newSolveService(twoPersonStore(), solutions)
		outcome, err := svc.Solve(ctx, SolveRequest{OrgID: "org1", Ref: ref})
		require.NoError(t, err)
		require.NotNil(t, outcome.Solution)
		return outcome.Solution
	}

	first := run()
	second := run()

	assert.Equal(t, first.Assignments, second.Assignments,
		"assignment sets, IDs included, are identical across fresh runs")
	assert.Equal(t, first.Score, second.Score)
}

func bigStore(days int) *fakeStore {
	store := &fakeStore{
		org: db.OrganizationRecord{ID: "org1", Name: "Test Org", Roles: []string{"usher"}},
		people: []db.PersonRecord{
			{ID: "p1", OrgID: "org1", Roles: []string{"usher"}},
			{ID: "p2", OrgID: "org1", Roles: []string{"usher"}},
		},
	}
	for day := 0; day < days; day++ {
		store.events = append(store.events, db.EventRecord{
			ID: fmt.Sprintf("e%03d", day), OrgID: "org1", Name: "Shift",
			Start: at(day, 9), End: at(day, 12),
			Slots: []db.RoleSlotRecord{{Role: "usher", Count: 1}},
		})
	}
	return store
}

func TestSolve_BudgetExpiryReturnsBestIncumbent(t *testing.T) {
	// A search space far too large to exhaust in the budget; the first
	// incumbent arrives within microseconds
	solutions := solution.NewMemoryStore()
	svc := newSolveService(bigStore(40), solutions)

	outcome, err := svc.Solve(context.Background(), SolveRequest{
		OrgID:      "org1",
		TimeBudget: 100 * time.Millisecond,
	})
	require.NoError(t, err)

	require.NotNil(t, outcome.Solution)
	assert.Equal(t, model.StatusFeasible, outcome.Solution.Status)
	assert.NotEmpty(t, outcome.Solution.Assignments)
}
