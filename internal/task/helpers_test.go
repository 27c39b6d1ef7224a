package task

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/clipscribe/internal/domain"
	"github.com/phrazzld/clipscribe/internal/events"
	"github.com/stretchr/testify/require"
)

const waitTimeout = 2 * time.Second

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// blockingExecutor holds every job until the test finishes it by title.
type blockingExecutor struct {
	mu      sync.Mutex
	started chan domain.Job
	results map[string]chan error
	done    chan struct{}
}

func newBlockingExecutor() *blockingExecutor {
	return &blockingExecutor{
		started: make(chan domain.Job, 64),
		results: make(map[string]chan error),
		done:    make(chan struct{}),
	}
}

func (b *blockingExecutor) result(title string) chan error {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch, ok := b.results[title]
	if !ok {
		ch = make(chan error, 1)
		b.results[title] = ch
	}
	return ch
}

func (b *blockingExecutor) Execute(ctx context.Context, job domain.Job, progress Progress) error {
	select {
	case b.started <- job:
	case <-b.done:
		return nil
	}
	select {
	case err := <-b.result(job.Title):
		return err
	case <-b.done:
		return nil
	}
}

// finish lets the job with title return err.
func (b *blockingExecutor) finish(title string, err error) {
	b.result(title) <- err
}

// waitStarted returns the titles of the next n jobs to start.
func (b *blockingExecutor) waitStarted(t *testing.T, n int) []string {
	t.Helper()
	titles := make([]string, 0, n)
	for len(titles) < n {
		select {
		case job := <-b.started:
			titles = append(titles, job.Title)
		case <-time.After(waitTimeout):
			t.Fatalf("timed out waiting for %d jobs to start, got %v", n, titles)
		}
	}
	return titles
}

// assertNoneStarted fails if a job starts within a short window.
func (b *blockingExecutor) assertNoneStarted(t *testing.T) {
	t.Helper()
	select {
	case job := <-b.started:
		t.Fatalf("unexpected job started: %s", job.Title)
	case <-time.After(50 * time.Millisecond):
	}
}

// recordingHandler collects emitted events.
type recordingHandler struct {
	mu     sync.Mutex
	events []events.JobEvent
}

func (h *recordingHandler) HandleEvent(ctx context.Context, event *events.JobEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, *event)
	return nil
}

func (h *recordingHandler) types(jobID uuid.UUID) []events.EventType {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []events.EventType
	for _, ev := range h.events {
		if ev.JobID == jobID {
			out = append(out, ev.Type)
		}
	}
	return out
}

func (h *recordingHandler) statuses(jobID uuid.UUID) []domain.JobStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []domain.JobStatus
	for _, ev := range h.events {
		if ev.JobID == jobID {
			out = append(out, ev.Status)
		}
	}
	return out
}

// removalRecorder captures auto-removal callbacks instead of arming timers.
type removalRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
	funcs  []func()
}

func (r *removalRecorder) afterFunc(d time.Duration, f func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	r.funcs = append(r.funcs, f)
}

func (r *removalRecorder) fireAll() {
	r.mu.Lock()
	funcs := r.funcs
	r.funcs = nil
	r.mu.Unlock()
	for _, f := range funcs {
		f()
	}
}

func (r *removalRecorder) armed() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

func (r *removalRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.delays)
}

type queueFixture struct {
	queue    *Queue
	limiter  *StaticLimiter
	exec     *blockingExecutor
	handler  *recordingHandler
	removals *removalRecorder
}

// newQueueFixture builds a Queue whose executors all block until finished.
func newQueueFixture(t *testing.T, limit int, admission Admission) *queueFixture {
	t.Helper()

	exec := newBlockingExecutor()
	limiter := &StaticLimiter{Limit: limit}
	handler := &recordingHandler{}
	emitter := events.NewInMemoryEventEmitter(testLogger())
	emitter.RegisterHandler(handler)

	executors := map[domain.JobKind]Executor{
		domain.JobKindExtract:  exec,
		domain.JobKindRewrite:  exec,
		domain.JobKindDownload: exec,
	}
	q, err := NewQueue(limiter, executors, QueueConfig{Admission: admission}, emitter, testLogger())
	require.NoError(t, err)

	removals := &removalRecorder{}
	q.afterFunc = removals.afterFunc

	// Release anything still blocked so goroutines exit.
	t.Cleanup(func() { close(exec.done) })

	return &queueFixture{queue: q, limiter: limiter, exec: exec, handler: handler, removals: removals}
}

func spec(title string) domain.JobSpec {
	return domain.JobSpec{Kind: domain.JobKindExtract, Title: title}
}

func titles(jobs []domain.Job) []string {
	out := make([]string, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.Title)
	}
	return out
}

// waitFor polls cond until it holds or the wait times out.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met: %s", msg)
}

func jobStatus(q *Queue, id uuid.UUID) domain.JobStatus {
	job, ok := q.Job(id)
	if !ok {
		return ""
	}
	return job.Status
}
