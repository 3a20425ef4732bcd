package db

import "time"

// OrganizationRecord represents a database organization record
type OrganizationRecord struct {
	ID   string
	Name string

	// Roles is the organization's role registry. Role slots may only
	// reference roles defined here.
	Roles []string
}

// PersonRecord represents a database person record
type PersonRecord struct {
	ID             string
	OrgID          string
	FirstName      string
	LastName       string
	DisplayName    string
	TeamIDs        []string
	Roles          []string
	PreferredRoles []string
}

// TeamRecord represents a database team record
type TeamRecord struct {
	ID    string
	OrgID string
	Name  string
}

// EventRecord represents a single concrete event occurrence
type EventRecord struct {
	ID    string
	OrgID string
	Name  string
	Start time.Time
	End   time.Time
	Slots []RoleSlotRecord
}

// EventSeriesRecord represents a recurring event definition. The snapshot
// loader expands the rrule into concrete events within the scheduling horizon.
type EventSeriesRecord struct {
	ID       string
	OrgID    string
	Name     string
	RRule    string
	Duration time.Duration
	Slots    []RoleSlotRecord
}

// RoleSlotRecord represents a required role and count on an event
type RoleSlotRecord struct {
	Role  string
	Count int
}

// BlackoutRecord represents an unavailability window for a person.
// One-off blackouts set Start/End; recurring exceptions (e.g. "every first
// Sunday") set RRule plus Duration and are expanded by the snapshot loader.
type BlackoutRecord struct {
	ID       string
	OrgID    string
	PersonID string
	Start    time.Time
	End      time.Time
	RRule    string
	Duration time.Duration
}

// PolicyRecord represents a raw organizational policy row. The constraint
// compiler normalizes these into typed constraints and rejects records with
// out-of-range parameters.
type PolicyRecord struct {
	ID    string
	OrgID string

	// Kind is one of the constraint kind names (e.g. "max_assignments_per_period")
	Kind string

	// Scope fields. ScopeLevel is "org", "team" or "person".
	ScopeLevel string
	TeamID     string
	PersonID   string

	// MaxAssignmentsPerPeriod parameters
	MaxPerPeriod int
	PeriodDays   int

	// MinimumRestGap parameter
	RestGapMinutes int

	// FairnessTarget parameter, in [0,1]
	FairnessTarget float64

	// LockedAssignment parameters
	LockedPersonID string
	LockedEventID  string
	LockedRole     string
}

// SolutionRecord represents a database solution version record
type SolutionRecord struct {
	ID        string
	OrgID     string
	Version   int
	ParentID  string
	Status    string
	CreatedAt time.Time

	CoverageGap        int
	FairnessSpread     int
	PreferenceMismatch int
	WeightedScore      float64
}

// AssignmentRecord represents a database assignment record
type AssignmentRecord struct {
	ID         string
	SolutionID string
	PersonID   string
	EventID    string
	Role       string
	Locked     bool
}
