package task

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/clipscribe/internal/domain"
	"github.com/phrazzld/clipscribe/internal/events"
)

// DefaultMaxConcurrent is used whenever the limiter reports a value <= 0.
const DefaultMaxConcurrent = 3

// DefaultRemoveDelay is how long a successful job stays visible.
const DefaultRemoveDelay = 1500 * time.Millisecond

// Admission selects which queued job the scheduler starts first.
type Admission string

// Admission policies
const (
	// AdmissionLIFO starts the most recently submitted queued job first.
	AdmissionLIFO Admission = "lifo"
	// AdmissionFIFO starts the oldest queued job first.
	AdmissionFIFO Admission = "fifo"
)

// QueueConfig holds configuration for the job queue.
type QueueConfig struct {
	// RemoveDelay is how long a successful job stays in the list before it is
	// removed automatically. Zero uses DefaultRemoveDelay.
	RemoveDelay time.Duration

	// Admission is the admission policy. Empty means AdmissionLIFO.
	Admission Admission
}

// DefaultQueueConfig returns a QueueConfig with the default delay and LIFO admission.
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{
		RemoveDelay: DefaultRemoveDelay,
		Admission:   AdmissionLIFO,
	}
}

// Queue is the job store and scheduler. Jobs are kept newest first; every
// mutation and every scheduling pass runs under mu, and executors run in
// their own goroutines.
//
// Invariant: running equals the number of jobs with status running and
// never exceeds the limit in force when they were admitted. Events reach
// the emitter in the order their state changes were made, so handlers must
// not call back into the queue.
type Queue struct {
	mu        sync.Mutex
	emitMu    sync.Mutex // held while publishing; acquired before mu is released
	jobs      []*domain.Job
	running   int
	limiter   ConcurrencyLimiter
	executors map[domain.JobKind]Executor
	emitter   events.EventEmitter
	config    QueueConfig
	logger    *slog.Logger
	ctx       context.Context
	wg        sync.WaitGroup

	// afterFunc schedules auto-removal; tests replace it.
	afterFunc func(d time.Duration, f func())
}

// dispatch is an admitted job waiting for its goroutine.
type dispatch struct {
	job  domain.Job
	exec Executor
}

// NewQueue creates a Queue. Every job kind must have an executor.
func NewQueue(
	limiter ConcurrencyLimiter,
	executors map[domain.JobKind]Executor,
	config QueueConfig,
	emitter events.EventEmitter,
	logger *slog.Logger,
) (*Queue, error) {
	if limiter == nil {
		return nil, ErrNilLimiter
	}
	if emitter == nil {
		return nil, ErrNilEmitter
	}
	if logger == nil {
		return nil, ErrNilLogger
	}

	table := make(map[domain.JobKind]Executor, len(domain.JobKinds))
	for _, kind := range domain.JobKinds {
		exec, ok := executors[kind]
		if !ok || exec == nil {
			return nil, fmt.Errorf("%w: %s", ErrMissingExecutor, kind)
		}
		table[kind] = exec
	}

	if config.RemoveDelay <= 0 {
		config.RemoveDelay = DefaultRemoveDelay
	}
	switch config.Admission {
	case AdmissionLIFO, AdmissionFIFO:
	case "":
		config.Admission = AdmissionLIFO
	default:
		return nil, fmt.Errorf("unknown admission policy %q", config.Admission)
	}

	return &Queue{
		limiter:   limiter,
		executors: table,
		emitter:   emitter,
		config:    config,
		logger:    logger.With("component", "job_queue"),
		ctx:       context.Background(),
		afterFunc: func(d time.Duration, f func()) { time.AfterFunc(d, f) },
	}, nil
}

// Submit validates spec, inserts the new job at the front of the list and
// runs a scheduling pass. It returns the new job's id.
func (q *Queue) Submit(spec domain.JobSpec) (uuid.UUID, error) {
	job, err := domain.NewJob(spec)
	if err != nil {
		return uuid.Nil, err
	}

	q.mu.Lock()
	q.jobs = append([]*domain.Job{job}, q.jobs...)
	pending := []*events.JobEvent{events.NewJobEvent(events.EventTypeSubmitted, job)}
	dispatches, started := q.scheduleLocked()
	q.unlockAndEmit(append(pending, started...))

	q.logger.Info("job submitted",
		"job_id", job.ID,
		"job_kind", job.Kind,
		"title", job.Title)
	q.start(dispatches)

	return job.ID, nil
}

// SubmitAll validates every spec, inserts the new jobs at the front of the
// list in order (so the last spec ends up first) and runs a single
// scheduling pass. Either all jobs are created or none are.
func (q *Queue) SubmitAll(specs []domain.JobSpec) ([]uuid.UUID, error) {
	jobs := make([]*domain.Job, 0, len(specs))
	for i, spec := range specs {
		job, err := domain.NewJob(spec)
		if err != nil {
			return nil, fmt.Errorf("job %d: %w", i, err)
		}
		jobs = append(jobs, job)
	}

	ids := make([]uuid.UUID, 0, len(jobs))
	pending := make([]*events.JobEvent, 0, len(jobs))

	q.mu.Lock()
	for _, job := range jobs {
		q.jobs = append([]*domain.Job{job}, q.jobs...)
		ids = append(ids, job.ID)
		pending = append(pending, events.NewJobEvent(events.EventTypeSubmitted, job))
	}
	dispatches, started := q.scheduleLocked()
	q.unlockAndEmit(append(pending, started...))

	q.logger.Info("jobs submitted", "count", len(jobs))
	q.start(dispatches)

	return ids, nil
}

// Remove deletes the job with id. Running jobs cannot be removed because
// their executor still owns a slot; ErrJobRunning is returned instead.
func (q *Queue) Remove(id uuid.UUID) error {
	q.mu.Lock()
	idx := q.indexLocked(id)
	if idx < 0 {
		q.mu.Unlock()
		return ErrJobNotFound
	}
	job := q.jobs[idx]
	if job.Status == domain.JobStatusRunning {
		q.mu.Unlock()
		q.logger.Warn("refusing to remove running job", "job_id", id, "job_kind", job.Kind)
		return ErrJobRunning
	}
	q.jobs = append(q.jobs[:idx], q.jobs[idx+1:]...)
	q.unlockAndEmit([]*events.JobEvent{events.NewJobEvent(events.EventTypeRemoved, job)})
	return nil
}

// ClearFinished removes every successful and failed job, keeping the order
// of the rest. It returns how many jobs were removed.
func (q *Queue) ClearFinished() int {
	q.mu.Lock()
	kept := q.jobs[:0]
	var removed []*events.JobEvent
	for _, job := range q.jobs {
		if job.Status.IsFinished() {
			removed = append(removed, events.NewJobEvent(events.EventTypeRemoved, job))
			continue
		}
		kept = append(kept, job)
	}
	// Drop references held past the new length.
	for i := len(kept); i < len(q.jobs); i++ {
		q.jobs[i] = nil
	}
	q.jobs = kept
	q.unlockAndEmit(removed)
	return len(removed)
}

// Retry moves a failed job back to queued, clearing its error and progress,
// and runs a scheduling pass. Jobs in any other state are left alone and
// ErrNotRetryable is returned.
func (q *Queue) Retry(id uuid.UUID) error {
	q.mu.Lock()
	idx := q.indexLocked(id)
	if idx < 0 {
		q.mu.Unlock()
		return ErrJobNotFound
	}
	job := q.jobs[idx]
	if job.Status != domain.JobStatusError {
		q.mu.Unlock()
		return fmt.Errorf("%w: job is %s", ErrNotRetryable, job.Status)
	}
	if err := job.Transition(domain.JobStatusQueued); err != nil {
		q.mu.Unlock()
		return err
	}
	job.Error = ""
	job.ResetProgress()
	pending := []*events.JobEvent{events.NewJobEvent(events.EventTypeRetried, job)}
	dispatches, started := q.scheduleLocked()
	q.unlockAndEmit(append(pending, started...))

	q.logger.Info("job retried", "job_id", id, "job_kind", job.Kind)
	q.start(dispatches)
	return nil
}

// Jobs returns snapshots of every job, newest first.
func (q *Queue) Jobs() []domain.Job {
	return q.filter(func(*domain.Job) bool { return true })
}

// Job returns a snapshot of the job with id.
func (q *Queue) Job(id uuid.UUID) (domain.Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	idx := q.indexLocked(id)
	if idx < 0 {
		return domain.Job{}, false
	}
	return q.jobs[idx].Clone(), true
}

// Total returns the number of jobs in the list.
func (q *Queue) Total() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// QueuedJobs returns snapshots of the queued jobs in list order.
func (q *Queue) QueuedJobs() []domain.Job {
	return q.filter(func(j *domain.Job) bool { return j.Status == domain.JobStatusQueued })
}

// RunningJobs returns snapshots of the running jobs in list order.
func (q *Queue) RunningJobs() []domain.Job {
	return q.filter(func(j *domain.Job) bool { return j.Status == domain.JobStatusRunning })
}

// HasPendingWork reports whether any job is queued or running.
func (q *Queue) HasPendingWork() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, job := range q.jobs {
		if job.Status.IsPending() {
			return true
		}
	}
	return false
}

// MaxConcurrent returns the limit the next scheduling pass will use.
func (q *Queue) MaxConcurrent() int {
	n := q.limiter.MaxConcurrent()
	if n <= 0 {
		return DefaultMaxConcurrent
	}
	return n
}

// RunningCount returns the number of jobs currently running.
func (q *Queue) RunningCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

// Wait blocks until every dispatched executor has returned or ctx is done.
// It does not stop new jobs from being admitted. When ctx ends first, the
// helper goroutine stays blocked until the remaining executors return.
func (q *Queue) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) filter(keep func(*domain.Job) bool) []domain.Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]domain.Job, 0, len(q.jobs))
	for _, job := range q.jobs {
		if keep(job) {
			out = append(out, job.Clone())
		}
	}
	return out
}

func (q *Queue) indexLocked(id uuid.UUID) int {
	for i, job := range q.jobs {
		if job.ID == id {
			return i
		}
	}
	return -1
}

// scheduleLocked admits queued jobs while capacity allows. The running count
// and the WaitGroup are bumped here, under the lock, before any goroutine
// exists; start launches the goroutines once the lock is released.
func (q *Queue) scheduleLocked() ([]dispatch, []*events.JobEvent) {
	limit := q.MaxConcurrent()
	if q.running >= limit {
		return nil, nil
	}

	var dispatches []dispatch
	var started []*events.JobEvent

	admit := func(job *domain.Job) bool {
		if job.Status != domain.JobStatusQueued {
			return true
		}
		if err := job.Transition(domain.JobStatusRunning); err != nil {
			q.logger.Error("failed to start job", "job_id", job.ID, "error", err)
			return true
		}
		q.running++
		q.wg.Add(1)
		dispatches = append(dispatches, dispatch{job: job.Clone(), exec: q.executors[job.Kind]})
		started = append(started, events.NewJobEvent(events.EventTypeStarted, job))
		return q.running < limit
	}

	if q.config.Admission == AdmissionFIFO {
		for i := len(q.jobs) - 1; i >= 0; i-- {
			if !admit(q.jobs[i]) {
				break
			}
		}
	} else {
		for _, job := range q.jobs {
			if !admit(job) {
				break
			}
		}
	}

	return dispatches, started
}

func (q *Queue) start(dispatches []dispatch) {
	for _, d := range dispatches {
		q.logger.Debug("job started", "job_id", d.job.ID, "job_kind", d.job.Kind)
		go q.run(d)
	}
}

// run executes one admitted job. The deferred completion always runs, even
// when the executor panics, so the running count is released exactly once.
func (q *Queue) run(d dispatch) {
	defer q.wg.Done()

	var err error
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("executor panicked",
				"job_id", d.job.ID,
				"job_kind", d.job.Kind,
				"panic", r,
				"stack", string(debug.Stack()))
			err = fmt.Errorf("%w: %v", ErrExecutorPanic, r)
		}
		q.complete(d.job.ID, err)
	}()

	progress := &jobProgress{queue: q, id: d.job.ID}
	err = d.exec.Execute(q.ctx, d.job, progress)
}

// complete records a job's outcome, releases its slot and schedules again.
func (q *Queue) complete(id uuid.UUID, execErr error) {
	q.mu.Lock()
	q.running--

	var pending []*events.JobEvent
	var succeeded bool
	if idx := q.indexLocked(id); idx >= 0 {
		job := q.jobs[idx]
		if execErr != nil {
			q.transitionLocked(job, domain.JobStatusError)
			job.Error = execErr.Error()
			pending = append(pending, events.NewJobEvent(events.EventTypeFailed, job))
			q.logger.Warn("job failed",
				"job_id", job.ID,
				"job_kind", job.Kind,
				"error", execErr)
		} else {
			q.transitionLocked(job, domain.JobStatusSuccess)
			job.Error = ""
			succeeded = true
			pending = append(pending, events.NewJobEvent(events.EventTypeSucceeded, job))
			q.logger.Info("job succeeded", "job_id", job.ID, "job_kind", job.Kind)
		}
	}

	dispatches, started := q.scheduleLocked()
	q.unlockAndEmit(append(pending, started...))

	if succeeded {
		q.afterFunc(q.config.RemoveDelay, func() { q.removeSucceeded(id) })
	}
	q.start(dispatches)
}

// transitionLocked moves a running job to a terminal status. The lifecycle
// table always allows it; a refusal means the invariant broke and is logged.
func (q *Queue) transitionLocked(job *domain.Job, status domain.JobStatus) {
	if err := job.Transition(status); err != nil {
		q.logger.Error("failed to finish job",
			"job_id", job.ID,
			"job_kind", job.Kind,
			"status", status,
			"error", err)
	}
}

// removeSucceeded is the auto-removal callback. The job may have been
// removed or cleared in the meantime.
func (q *Queue) removeSucceeded(id uuid.UUID) {
	q.mu.Lock()
	idx := q.indexLocked(id)
	if idx < 0 || q.jobs[idx].Status != domain.JobStatusSuccess {
		q.mu.Unlock()
		return
	}
	job := q.jobs[idx]
	q.jobs = append(q.jobs[:idx], q.jobs[idx+1:]...)
	q.unlockAndEmit([]*events.JobEvent{events.NewJobEvent(events.EventTypeRemoved, job)})
}

func (q *Queue) updateProgress(id uuid.UUID, percent int, text string) {
	percent = clampPercent(percent)

	q.mu.Lock()
	idx := q.indexLocked(id)
	if idx < 0 || q.jobs[idx].Status != domain.JobStatusRunning {
		q.mu.Unlock()
		return
	}
	job := q.jobs[idx]
	job.Progress = percent
	job.ProgressText = text
	q.unlockAndEmit([]*events.JobEvent{events.NewJobEvent(events.EventTypeProgress, job)})
}

func (q *Queue) linkHistory(id, historyID uuid.UUID) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if idx := q.indexLocked(id); idx >= 0 {
		q.jobs[idx].HistoryID = historyID
	}
}

// unlockAndEmit releases mu and publishes pending. emitMu is taken before
// mu is released, so a later state change cannot publish ahead of these
// events.
func (q *Queue) unlockAndEmit(pending []*events.JobEvent) {
	q.emitMu.Lock()
	q.mu.Unlock()
	defer q.emitMu.Unlock()

	for _, event := range pending {
		if err := q.emitter.EmitEvent(q.ctx, event); err != nil {
			q.logger.Warn("failed to emit job event",
				"event_type", event.Type,
				"job_id", event.JobID,
				"error", err)
		}
	}
}

// jobProgress is the Progress handle given to an executor.
type jobProgress struct {
	queue *Queue
	id    uuid.UUID
}

func (p *jobProgress) Report(percent int, text string) {
	p.queue.updateProgress(p.id, percent, text)
}

func (p *jobProgress) LinkHistory(id uuid.UUID) {
	p.queue.linkHistory(p.id, id)
}

func clampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
