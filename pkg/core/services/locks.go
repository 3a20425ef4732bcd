package services

import (
	"fmt"
	"sync"
	"time"
)

// SolveInProgressError is returned when an organization already holds an
// active solve or edit lease. Recoverable: poll the existing job instead of
// retrying the submit.
type SolveInProgressError struct {
	OrgID string
	JobID string
}

func (e *SolveInProgressError) Error() string {
	if e.JobID != "" {
		return fmt.Sprintf("a solve is already in progress for org %s (job %s)", e.OrgID, e.JobID)
	}
	return fmt.Sprintf("a solve is already in progress for org %s", e.OrgID)
}

type lease struct {
	jobID   string
	expires time.Time
}

// OrgLocks enforces single-flight per organization: at most one active solve
// or manual edit at a time, keyed on org ID. Leases carry a TTL so a worker
// that crashes mid-solve cannot deadlock the organization - the next acquire
// reclaims the expired lease.
type OrgLocks struct {
	mu     sync.Mutex
	leases map[string]lease
	now    func() time.Time
}

// NewOrgLocks creates an empty lock arena
func NewOrgLocks() *OrgLocks {
	return &OrgLocks{
		leases: make(map[string]lease),
		now:    time.Now,
	}
}

// Acquire takes the organization's lease for up to ttl. Non-blocking: if an
// unexpired lease is held, it fails immediately with SolveInProgressError.
// The returned release function is idempotent and only releases the caller's
// own lease.
func (l *OrgLocks) Acquire(orgID, jobID string, ttl time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if held, ok := l.leases[orgID]; ok && held.expires.After(l.now()) {
		return nil, &SolveInProgressError{OrgID: orgID, JobID: held.jobID}
	}

	l.leases[orgID] = lease{jobID: jobID, expires: l.now().Add(ttl)}

	released := false
	release := func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if released {
			return
		}
		released = true
		if held, ok := l.leases[orgID]; ok && held.jobID == jobID {
			delete(l.leases, orgID)
		}
	}
	return release, nil
}
