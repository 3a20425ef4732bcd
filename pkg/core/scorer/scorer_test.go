package scorer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/rotasolve/pkg/core/model"
	"github.com/jakechorley/rotasolve/pkg/core/snapshot"
	"github.com/jakechorley/rotasolve/pkg/db"
)

type fakeStore struct {
	org    db.OrganizationRecord
	people []db.PersonRecord
	events []db.EventRecord
}

func (s *fakeStore) GetOrganization(ctx context.Context, orgID string) (db.OrganizationRecord, error) {
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
	return nil, nil
}
func (s *fakeStore) GetPolicies(ctx context.Context, orgID string) ([]db.PolicyRecord, error) {
	return nil, nil
}

var ref = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func loadSnapshot(t *testing.T) *snapshot.Snapshot {
	t.Helper()
	store := &fakeStore{
		org: db.OrganizationRecord{ID: "org1", Name: "Test Org", Roles: []string{"usher", "greeter"}},
		people: []db.PersonRecord{
			{ID: "p1", OrgID: "org1", Roles: []string{"usher", "greeter"}, PreferredRoles: []string{"usher"}},
			{ID: "p2", OrgID: "org1", Roles: []string{"usher"}},
		},
		events: []db.EventRecord{
			{ID: "e1", OrgID: "org1", Name: "Morning", Start: ref.Add(24 * time.Hour), End: ref.Add(27 * time.Hour),
				Slots: []db.RoleSlotRecord{{Role: "usher", Count: 2}, {Role: "greeter", Count: 1}}},
			{ID: "e2", OrgID: "org1", Name: "Evening", Start: ref.Add(30 * time.Hour), End: ref.Add(33 * time.Hour),
				Slots: []db.RoleSlotRecord{{Role: "usher", Count: 1}}},
		},
	}
	snap, err := snapshot.Load(context.Background(), store, "org1", ref, snapshot.LoadOptions{})
	require.NoError(t, err)
	return snap
}

func TestScore_EmptyAssignmentSet(t *testing.T) {
	snap := loadSnapshot(t)

	score := Score(snap, nil, model.DefaultWeights())

	assert.Equal(t, 4, score.CoverageGap, "all 4 positions unfilled")
	assert.Equal(t, 0, score.FairnessSpread)
	assert.Equal(t, 0, score.PreferenceMismatch)
	assert.Equal(t, 40.0, score.Weighted)
}

func TestScore_FullCoverage(t *testing.T) {
	snap := loadSnapshot(t)

	assignments := []model.Assignment{
		{PersonID: "p1", EventID: "e1", Role: "usher"},
		{PersonID: "p2", EventID: "e1", Role: "usher"},
		{PersonID: "p1", EventID: "e1", Role: "greeter"},
		{PersonID: "p2", EventID: "e2", Role: "usher"},
	}
	score := Score(snap, assignments, model.DefaultWeights())

	assert.Equal(t, 0, score.CoverageGap)
	assert.Equal(t, 0, score.FairnessSpread, "two assignments each")
	assert.Equal(t, 1, score.PreferenceMismatch, "p1 prefers usher but holds a greeter assignment")
}

func TestScore_FairnessSpread(t *testing.T) {
	snap := loadSnapshot(t)

	assignments := []model.Assignment{
		{PersonID: "p1", EventID: "e1", Role: "usher"},
		{PersonID: "p1", EventID: "e2", Role: "usher"},
	}
	score := Score(snap, assignments, model.DefaultWeights())

	assert.Equal(t, 2, score.FairnessSpread, "p1 has 2, p2 has 0")
}

func TestScore_NoPreferenceMeansNoMismatch(t *testing.T) {
	snap := loadSnapshot(t)

	// p2 states no preference, so any role fits
	score := Score(snap, []model.Assignment{{PersonID: "p2", EventID: "e1", Role: "usher"}}, model.DefaultWeights())

	assert.Equal(t, 0, score.PreferenceMismatch)
}

func TestScore_BetterCoverageScoresLower(t *testing.T) {
	snap := loadSnapshot(t)

	partial := []model.Assignment{
		{PersonID: "p2", EventID: "e1", Role: "usher"},
	}
	fuller := append(partial, model.Assignment{PersonID: "p1", EventID: "e1", Role: "greeter"})

	partialScore := Score(snap, partial, model.DefaultWeights())
	fullerScore := Score(snap, fuller, model.DefaultWeights())

	// The extra assignment costs a preference mismatch, but coverage dominates
	assert.Less(t, fullerScore.CoverageGap, partialScore.CoverageGap)
	assert.Less(t, fullerScore.Weighted, partialScore.Weighted)
}

func TestScore_Deterministic(t *testing.T) {
	snap := loadSnapshot(t)
	assignments := []model.Assignment{
		{PersonID: "p1", EventID: "e1", Role: "greeter"},
		{PersonID: "p2", EventID: "e2", Role: "usher"},
	}

	first := Score(snap, assignments, model.DefaultWeights())
	second := Score(snap, assignments, model.DefaultWeights())
	assert.Equal(t, first, second)
}
