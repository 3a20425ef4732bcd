package db

import "context"

// SnapshotStore defines the read operations the snapshot loader needs to
// assemble a domain snapshot for one organization
type SnapshotStore interface {
	GetOrganization(ctx context.Context, orgID string) (OrganizationRecord, error)
	GetPeople(ctx context.Context, orgID string) ([]PersonRecord, error)
	GetTeams(ctx context.Context, orgID string) ([]TeamRecord, error)
	GetEvents(ctx context.Context, orgID string) ([]EventRecord, error)
	GetEventSeries(ctx context.Context, orgID string) ([]EventSeriesRecord, error)
	GetBlackouts(ctx context.Context, orgID string) ([]BlackoutRecord, error)
	GetPolicies(ctx context.Context, orgID string) ([]PolicyRecord, error)
}
