package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jakechorley/rotasolve/pkg/core/conflict"
	"github.com/jakechorley/rotasolve/pkg/core/model"
)

// JobStatus tracks a background solve job through its lifecycle
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobDone      JobStatus = "done"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// JobView is a point-in-time snapshot of a job's state
type JobView struct {
	ID          string
	OrgID       string
	Status      JobStatus
	SubmittedAt time.Time
	FinishedAt  time.Time

	// SolutionID is set when the job produced a stored solution
	SolutionID string

	// SolverStatus is the solver's outcome (optimal, feasible, infeasible...)
	SolverStatus model.SolutionStatus

	// Conflicts carries the conflicting constraint set for infeasible runs
	Conflicts conflict.Report

	// Err holds the failure message for failed jobs
	Err string
}

type job struct {
	view   JobView
	cancel context.CancelFunc
}

// JobManager runs solve requests as cancellable background jobs with a
// single-flight lease per organization. Solves are CPU-bound and can run up
// to the time budget, so they never execute on the caller's goroutine.
type JobManager struct {
	Solver   *SolveService
	Locks    *OrgLocks
	Logger   *zap.Logger
	LeaseTTL time.Duration

	mu   sync.Mutex
	jobs map[string]*job
	wg   sync.WaitGroup
}

// NewJobManager creates a job manager around a solve service
func NewJobManager(solver *SolveService, locks *OrgLocks, logger *zap.Logger, leaseTTL time.Duration) *JobManager {
	return &JobManager{
		Solver:   solver,
		Locks:    locks,
		Logger:   logger,
		LeaseTTL: leaseTTL,
		jobs:     make(map[string]*job),
	}
}

// Submit starts a background solve for the organization. Fails immediately
// with SolveInProgressError when the org already has an active solve - a
// second concurrent solve would race its stale snapshot against manual edits,
// so it is rejected, not queued.
func (m *JobManager) Submit(req SolveRequest) (string, error) {
	jobID := uuid.NewString()

	ttl := m.LeaseTTL
	if ttl <= 0 {
		ttl = defaultLeaseTTL(req, m.Solver)
	}

	release, err := m.Locks.Acquire(req.OrgID, jobID, ttl)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithCancel(context.Background())

	j := &job{
		view: JobView{
			ID:          jobID,
			OrgID:       req.OrgID,
			Status:      JobPending,
			SubmittedAt: time.Now(),
		},
		cancel: cancel,
	}

	m.mu.Lock()
	m.jobs[jobID] = j
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer release()
		defer cancel()
		m.run(ctx, j, req)
	}()

	return jobID, nil
}

func (m *JobManager) run(ctx context.Context, j *job, req SolveRequest) {
	m.setStatus(j, JobRunning)
	m.Logger.Info("Solve job started", zap.String("job", j.view.ID), zap.String("org", req.OrgID))

	outcome, err := m.Solver.Solve(ctx, req)

	m.mu.Lock()
	defer m.mu.Unlock()

	j.view.FinishedAt = time.Now()

	if err != nil {
		j.view.Status = JobFailed
		j.view.Err = err.Error()
		m.Logger.Error("Solve job failed", zap.String("job", j.view.ID), zap.Error(err))
		return
	}

	j.view.SolverStatus = outcome.Result.Status
	j.view.Conflicts = outcome.Result.Conflicts
	if outcome.Solution != nil {
		j.view.SolutionID = outcome.Solution.ID
	}

	if outcome.Result.Status == model.StatusCancelled {
		j.view.Status = JobCancelled
	} else {
		j.view.Status = JobDone
	}
	m.Logger.Info("Solve job finished",
		zap.String("job", j.view.ID),
		zap.String("status", string(j.view.Status)),
		zap.String("solver_status", string(j.view.SolverStatus)))
}

func (m *JobManager) setStatus(j *job, status JobStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j.view.Status = status
}

// Status returns a copy of the job's current state
func (m *JobManager) Status(jobID string) (JobView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[jobID]
	if !ok {
		return JobView{}, fmt.Errorf("unknown job '%s'", jobID)
	}
	return j.view, nil
}

// Cancel requests cancellation of a running job. The solver returns its best
// feasible solution found so far rather than blocking to completion.
func (m *JobManager) Cancel(jobID string) error {
	m.mu.Lock()
	j, ok := m.jobs[jobID]
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("unknown job '%s'", jobID)
	}
	j.cancel()
	return nil
}

// Wait blocks until all submitted jobs have finished. Used on shutdown and
// in tests.
func (m *JobManager) Wait() {
	m.wg.Wait()
}

// defaultLeaseTTL sizes the lease from the solve budget plus headroom for
// snapshot loading and persistence
func defaultLeaseTTL(req SolveRequest, svc *SolveService) time.Duration {
	budget := req.TimeBudget
	if budget <= 0 {
		budget = svc.DefaultBudget
	}
	if budget <= 0 {
		budget = 30 * time.Second
	}
	return budget + 30*time.Second
}
