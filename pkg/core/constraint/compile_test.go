package constraint

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
	org       db.OrganizationRecord
	people    []db.PersonRecord
	teams     []db.TeamRecord
	events    []db.EventRecord
	blackouts []db.BlackoutRecord
	policies  []db.PolicyRecord
}

func (s *fakeStore) GetOrganization(ctx context.Context, orgID string) (db.OrganizationRecord, error) {
	return s.org, nil
}
func (s *fakeStore) GetPeople(ctx context.Context, orgID string) ([]db.PersonRecord, error) {
	return s.people, nil
}
func (s *fakeStore) GetTeams(ctx context.Context, orgID string) ([]db.TeamRecord, error) {
	return s.teams, nil
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

var ref = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func loadSnapshot(t *testing.T, policies []db.PolicyRecord) *snapshot.Snapshot {
	t.Helper()
	store := &fakeStore{
		org: db.OrganizationRecord{ID: "org1", Name: "Test Org", Roles: []string{"usher"}},
		people: []db.PersonRecord{
			{ID: "p1", OrgID: "org1", TeamIDs: []string{"t1"}, Roles: []string{"usher"}},
			{ID: "p2", OrgID: "org1", Roles: []string{"usher"}},
		},
		teams: []db.TeamRecord{{ID: "t1", OrgID: "org1", Name: "Morning"}},
		events: []db.EventRecord{
			{ID: "e1", OrgID: "org1", Name: "Service", Start: ref.Add(24 * time.Hour), End: ref.Add(27 * time.Hour),
				Slots: []db.RoleSlotRecord{{Role: "usher", Count: 1}}},
		},
		policies: policies,
	}
	snap, err := snapshot.Load(context.Background(), store, "org1", ref, snapshot.LoadOptions{})
	require.NoError(t, err)
	return snap
}

func TestCompile_ImplicitConstraintsAlwaysPresent(t *testing.T) {
	snap := loadSnapshot(t, nil)

	constraints, _, err := Compile(snap, model.DefaultWeights(), nil)
	require.NoError(t, err)

	require.Len(t, constraints, 3)
	assert.Equal(t, KindEligibility, constraints[0].Kind)
	assert.Equal(t, KindAvailabilityConflict, constraints[1].Kind)
	assert.Equal(t, KindNoDoubleBooking, constraints[2].Kind)
}

func TestCompile_MaxPerPeriod(t *testing.T) {
	snap := loadSnapshot(t, []db.PolicyRecord{
		{ID: "pol1", OrgID: "org1", Kind: "max_assignments_per_period",
			ScopeLevel: "team", TeamID: "t1", MaxPerPeriod: 2, PeriodDays: 7},
	})

	constraints, _, err := Compile(snap, model.DefaultWeights(), nil)
	require.NoError(t, err)

	var found *Constraint
	for i := range constraints {
		if constraints[i].Kind == KindMaxAssignmentsPerPeriod {
			found = &constraints[i]
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, 2, found.MaxPerPeriod)
	assert.Equal(t, 7*24*time.Hour, found.Period)
	assert.Equal(t, ScopeTeam, found.Scope.Level)
	assert.True(t, found.AppliesTo("p1", []string{"t1"}))
	assert.False(t, found.AppliesTo("p2", nil))
}

func TestCompile_RejectsNonPositiveMaxPerPeriod(t *testing.T) {
	snap := loadSnapshot(t, []db.PolicyRecord{
		{ID: "pol1", OrgID: "org1", Kind: "max_assignments_per_period", MaxPerPeriod: 0, PeriodDays: 7},
	})

	_, _, err := Compile(snap, model.DefaultWeights(), nil)

	var invalidErr *InvalidConstraintError
	require.ErrorAs(t, err, &invalidErr)
	assert.Equal(t, "pol1", invalidErr.RecordID)
	assert.Contains(t, invalidErr.Reason, "must be > 0")
}

func TestCompile_RejectsFairnessTargetOutOfRange(t *testing.T) {
	snap := loadSnapshot(t, []db.PolicyRecord{
		{ID: "pol1", OrgID: "org1", Kind: "fairness_target", FairnessTarget: 1.5},
	})

	_, _, err := Compile(snap, model.DefaultWeights(), nil)

	var invalidErr *InvalidConstraintError
	require.ErrorAs(t, err, &invalidErr)
	assert.Contains(t, invalidErr.Reason, "must be in [0,1]")
}

func TestCompile_RejectsUnknownKind(t *testing.T) {
	snap := loadSnapshot(t, []db.PolicyRecord{
		{ID: "pol1", OrgID: "org1", Kind: "phase_of_the_moon"},
	})

	_, _, err := Compile(snap, model.DefaultWeights(), nil)

	var invalidErr *InvalidConstraintError
	require.ErrorAs(t, err, &invalidErr)
	assert.Contains(t, invalidErr.Reason, "unknown constraint kind")
}

func TestCompile_RejectsUnknownScopeReferences(t *testing.T) {
	snap := loadSnapshot(t, []db.PolicyRecord{
		{ID: "pol1", OrgID: "org1", Kind: "minimum_rest_gap",
			ScopeLevel: "person", PersonID: "ghost", RestGapMinutes: 60},
	})

	_, _, err := Compile(snap, model.DefaultWeights(), nil)

	var invalidErr *InvalidConstraintError
	require.ErrorAs(t, err, &invalidErr)
	assert.Contains(t, invalidErr.Reason, "unknown person 'ghost'")
}

func TestCompile_RejectsLockedReferencingUnknownEvent(t *testing.T) {
	snap := loadSnapshot(t, []db.PolicyRecord{
		{ID: "pol1", OrgID: "org1", Kind: "locked_assignment",
			LockedPersonID: "p1", LockedEventID: "ghost", LockedRole: "usher"},
	})

	_, _, err := Compile(snap, model.DefaultWeights(), nil)

	var invalidErr *InvalidConstraintError
	require.ErrorAs(t, err, &invalidErr)
	assert.Contains(t, invalidErr.Reason, "unknown event 'ghost'")
}

func TestCompile_FairnessTargetScalesWeight(t *testing.T) {
	snap := loadSnapshot(t, []db.PolicyRecord{
		{ID: "pol1", OrgID: "org1", Kind: "fairness_target", FairnessTarget: 0.5},
	})

	base := model.Weights{Coverage: 10, Fairness: 4, Preference: 1}
	_, weights, err := Compile(snap, base, nil)
	require.NoError(t, err)

	assert.Equal(t, 2.0, weights.Fairness)
	assert.Equal(t, 10.0, weights.Coverage, "other weights untouched")
}

func TestCompile_ZeroFairnessTargetDisablesFairness(t *testing.T) {
	snap := loadSnapshot(t, []db.PolicyRecord{
		{ID: "pol1", OrgID: "org1", Kind: "fairness_target", FairnessTarget: 0},
	})

	_, weights, err := Compile(snap, model.DefaultWeights(), nil)
	require.NoError(t, err)

	assert.Equal(t, 0.0, weights.Fairness)
}

func TestCompile_LockedAssignmentsFromParent(t *testing.T) {
	snap := loadSnapshot(t, nil)

	locked := []model.Assignment{{PersonID: "p1", EventID: "e1", Role: "usher", Locked: true}}
	constraints, _, err := Compile(snap, model.DefaultWeights(), locked)
	require.NoError(t, err)

	var lockConstraints []Constraint
	for _, c := range constraints {
		if c.Kind == KindLockedAssignment {
			lockConstraints = append(lockConstraints, c)
		}
	}
	require.Len(t, lockConstraints, 1)
	assert.Equal(t, "p1", lockConstraints[0].LockedPersonID)
	assert.Equal(t, "e1", lockConstraints[0].LockedEventID)
	assert.Equal(t, ScopePerson, lockConstraints[0].Scope.Level)
}

func TestCompile_DeterministicOrdering(t *testing.T) {
	policies := []db.PolicyRecord{
		{ID: "pol2", OrgID: "org1", Kind: "minimum_rest_gap",
			ScopeLevel: "person", PersonID: "p2", RestGapMinutes: 120},
		{ID: "pol1", OrgID: "org1", Kind: "minimum_rest_gap",
			ScopeLevel: "person", PersonID: "p1", RestGapMinutes: 60},
		{ID: "pol3", OrgID: "org1", Kind: "max_assignments_per_period",
			MaxPerPeriod: 3, PeriodDays: 30},
	}
	snap := loadSnapshot(t, policies)

	first, _, err := Compile(snap, model.DefaultWeights(), nil)
	require.NoError(t, err)
	second, _, err := Compile(snap, model.DefaultWeights(), nil)
	require.NoError(t, err)

	assert.Equal(t, first, second)

	// Org scope sorts before person scope, and person scopes sort by ID
	assert.Equal(t, ScopeOrg, first[0].Scope.Level)
	last := first[len(first)-1]
	secondLast := first[len(first)-2]
	assert.Equal(t, "p1", secondLast.Scope.PersonID)
	assert.Equal(t, "p2", last.Scope.PersonID)
}

func TestKind_Hard(t *testing.T) {
	for _, kind := range Kinds {
		if kind == KindFairnessTarget {
			assert.False(t, kind.Hard())
		} else {
			assert.True(t, kind.Hard(), "kind %s should be hard", kind)
		}
	}
}
