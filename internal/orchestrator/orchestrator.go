package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// Sentinel errors surfaced through job status and Enqueue.
var (
	ErrQueueFull   = errors.New("job queue is full")
	ErrEvicted     = errors.New("job evicted by a higher-priority job")
	ErrStopped     = errors.New("orchestrator is stopped")
	ErrJobTimedOut = errors.New("job timed out")
)

// Config tunes queue sizes, concurrency ceilings and the default job timeout.
type Config struct {
	// Concurrency is the worker count per job type. Types absent from the
	// map fall back to DefaultConfig values.
	Concurrency map[JobType]int
	// QueueCapacity bounds each per-type queue.
	QueueCapacity int
	// DefaultTimeout applies to jobs that do not carry their own.
	DefaultTimeout time.Duration
}

// DefaultConfig returns the standard ceilings: scraping stays sequential per
// site, extraction parallelizes against the AI service, analysis and batch
// run one at a time, health checks get their own lane so they never wait.
func DefaultConfig() Config {
	return Config{
		Concurrency: map[JobType]int{
			JobScrape:      1,
			JobExtraction:  3,
			JobAnalysis:    1,
			JobBatch:       1,
			JobHealthCheck: 2,
		},
		QueueCapacity:  128,
		DefaultTimeout: 10 * time.Minute,
	}
}

// typeLane is one job type's queue plus its wait condition.
type typeLane struct {
	queue *jobQueue
	cond  *sync.Cond
}

// Orchestrator owns the queues, the workers and the per-job state machine.
// Handlers are injected at construction so tests can substitute fakes.
type Orchestrator struct {
	handlers map[JobType]Executor
	config   Config
	logger   *slog.Logger

	mu       sync.Mutex
	lanes    map[JobType]*typeLane
	statuses map[uuid.UUID]Status
	timers   map[uuid.UUID]*time.Timer
	stopping bool
	started  bool

	flight singleflight.Group
	wg     sync.WaitGroup
}

// Handle lets a caller wait for one job without polling.
type Handle struct {
	ID   uuid.UUID
	Done <-chan struct{}
}

func New(handlers map[JobType]Executor, config Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultConfig()
	if config.Concurrency == nil {
		config.Concurrency = defaults.Concurrency
	}
	if config.QueueCapacity <= 0 {
		config.QueueCapacity = defaults.QueueCapacity
	}
	if config.DefaultTimeout <= 0 {
		config.DefaultTimeout = defaults.DefaultTimeout
	}

	o := &Orchestrator{
		handlers: handlers,
		config:   config,
		logger:   logger,
		lanes:    make(map[JobType]*typeLane),
		statuses: make(map[uuid.UUID]Status),
		timers:   make(map[uuid.UUID]*time.Timer),
	}
	for jobType := range handlers {
		o.lanes[jobType] = &typeLane{
			queue: newJobQueue(config.QueueCapacity),
			cond:  sync.NewCond(&o.mu),
		}
	}
	return o
}

// Start launches the worker goroutines. It is a no-op when already started.
func (o *Orchestrator) Start() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.started || o.stopping {
		return
	}
	o.started = true

	defaults := DefaultConfig()
	for jobType, lane := range o.lanes {
		workers := o.config.Concurrency[jobType]
		if workers <= 0 {
			workers = defaults.Concurrency[jobType]
		}
		if workers <= 0 {
			workers = 1
		}
		for i := 0; i < workers; i++ {
			o.wg.Add(1)
			go o.worker(jobType, lane)
		}
	}
}

// Stop drains the queues: running jobs finish, queued and retry-scheduled
// jobs fail with ErrStopped, then all workers exit.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if o.stopping {
		o.mu.Unlock()
		o.wg.Wait()
		return
	}
	o.stopping = true

	var orphans []*Job
	for id, timer := range o.timers {
		if timer.Stop() {
			delete(o.timers, id)
		}
	}
	for _, lane := range o.lanes {
		for {
			job := lane.queue.pop()
			if job == nil {
				break
			}
			orphans = append(orphans, job)
		}
		lane.cond.Broadcast()
	}
	o.mu.Unlock()

	for _, job := range orphans {
		o.failJob(job, ErrStopped)
	}
	o.wg.Wait()
}

// Enqueue validates the job and adds it to its type's queue. The returned
// Handle's Done channel closes when the job reaches a terminal state.
func (o *Orchestrator) Enqueue(job *Job) (*Handle, error) {
	if err := job.validate(); err != nil {
		return nil, err
	}
	if _, ok := o.handlers[job.Type]; !ok {
		return nil, fmt.Errorf("no handler registered for job type %q", job.Type)
	}
	if job.done == nil {
		job.done = make(chan struct{})
	}
	if job.Timeout <= 0 {
		job.Timeout = o.config.DefaultTimeout
	}

	o.mu.Lock()
	if o.stopping {
		o.mu.Unlock()
		return nil, ErrStopped
	}
	lane := o.lanes[job.Type]
	job.enqueuedAt = time.Now()
	o.setStatusLocked(job, StateQueued, 0, nil)

	rejected := lane.queue.push(job)
	if rejected == job {
		delete(o.statuses, job.ID)
		o.mu.Unlock()
		return nil, ErrQueueFull
	}
	lane.cond.Signal()
	o.mu.Unlock()

	if rejected != nil {
		o.failJob(rejected, ErrEvicted)
		o.logger.Warn("evicted queued job",
			"evicted_id", rejected.ID,
			"evicted_type", rejected.Type,
			"for_id", job.ID)
	}
	return &Handle{ID: job.ID, Done: job.done}, nil
}

// Status returns the latest snapshot for a job, if the orchestrator has
// seen it.
func (o *Orchestrator) Status(id uuid.UUID) (Status, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	status, ok := o.statuses[id]
	return status, ok
}

// Wait blocks until the job completes or the context is done, then returns
// the final status.
func (o *Orchestrator) Wait(ctx context.Context, handle *Handle) (Status, error) {
	select {
	case <-handle.Done:
		status, _ := o.Status(handle.ID)
		return status, nil
	case <-ctx.Done():
		return Status{}, ctx.Err()
	}
}

func (o *Orchestrator) worker(jobType JobType, lane *typeLane) {
	defer o.wg.Done()
	for {
		o.mu.Lock()
		for lane.queue.len() == 0 && !o.stopping {
			lane.cond.Wait()
		}
		if o.stopping && lane.queue.len() == 0 {
			o.mu.Unlock()
			return
		}
		job := lane.queue.pop()
		o.setStatusLocked(job, StateRunning, progressOf(o.statuses[job.ID]), nil)
		o.mu.Unlock()

		o.run(job)
	}
}

// run executes one attempt and drives the retry state machine. Analysis jobs
// for the same (company, site) key share a single flight so concurrent
// duplicates collapse into one fetch.
func (o *Orchestrator) run(job *Job) {
	ctx, cancel := context.WithTimeout(context.Background(), job.Timeout)
	defer cancel()

	outcome := o.execute(ctx, job)

	if outcome.Code != OutcomeSuccess && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		outcome = Retryable(fmt.Errorf("%w after %s", ErrJobTimedOut, job.Timeout))
	}

	switch outcome.Code {
	case OutcomeSuccess:
		o.mu.Lock()
		o.setStatusLocked(job, StateSucceeded, 100, nil)
		o.mu.Unlock()
		close(job.done)

	case OutcomePermanent:
		o.failJob(job, outcome.Err)

	case OutcomeRetryable:
		job.AttemptCount++
		if job.AttemptCount >= job.MaxRetries {
			o.failJob(job, fmt.Errorf("retries exhausted after %d attempts: %w", job.AttemptCount, outcome.Err))
			return
		}
		delay := backoffFor(job).Delay(job.AttemptCount - 1)
		o.logger.Info("retry scheduled",
			"job_id", job.ID,
			"type", job.Type,
			"attempt", job.AttemptCount,
			"delay", delay,
			"error", outcome.Err)

		o.mu.Lock()
		if o.stopping {
			o.mu.Unlock()
			o.failJob(job, ErrStopped)
			return
		}
		o.setStatusLocked(job, StateRetryScheduled, progressOf(o.statuses[job.ID]), outcome.Err)
		o.timers[job.ID] = time.AfterFunc(delay, func() { o.requeue(job) })
		o.mu.Unlock()
	}
}

func (o *Orchestrator) execute(ctx context.Context, job *Job) Outcome {
	handler := o.handlers[job.Type]
	progress := o.progressFunc(job)

	key := job.singleFlightKey()
	if key == "" {
		return handler.Execute(ctx, job, progress)
	}
	result, err, _ := o.flight.Do(key, func() (any, error) {
		return handler.Execute(ctx, job, progress), nil
	})
	if err != nil {
		return Retryable(err)
	}
	return result.(Outcome)
}

// requeue puts a retry-scheduled job back on its lane once the backoff timer
// fires.
func (o *Orchestrator) requeue(job *Job) {
	o.mu.Lock()
	delete(o.timers, job.ID)
	if o.stopping {
		o.mu.Unlock()
		o.failJob(job, ErrStopped)
		return
	}
	lane := o.lanes[job.Type]
	job.enqueuedAt = time.Now()
	o.setStatusLocked(job, StateQueued, progressOf(o.statuses[job.ID]), nil)
	rejected := lane.queue.push(job)
	lane.cond.Signal()
	o.mu.Unlock()

	if rejected != nil {
		if rejected == job {
			o.failJob(job, ErrQueueFull)
		} else {
			o.failJob(rejected, ErrEvicted)
		}
	}
}

// failJob moves a job to failed-permanent and releases its waiters. Failure
// is isolated: siblings and the enclosing batch keep running.
func (o *Orchestrator) failJob(job *Job, cause error) {
	o.mu.Lock()
	status := o.statuses[job.ID]
	if status.State.Terminal() {
		o.mu.Unlock()
		return
	}
	o.setStatusLocked(job, StateFailedPermanent, progressOf(status), cause)
	o.mu.Unlock()

	o.logger.Error("job failed permanently",
		"job_id", job.ID,
		"type", job.Type,
		"attempts", job.AttemptCount,
		"error", cause)
	close(job.done)
}

// progressFunc returns a reporter that keeps the job's progress monotonic
// even if an executor reports checkpoints out of order.
func (o *Orchestrator) progressFunc(job *Job) ProgressFunc {
	return func(pct int) {
		if pct < 0 {
			pct = 0
		}
		if pct > 100 {
			pct = 100
		}
		o.mu.Lock()
		defer o.mu.Unlock()
		status, ok := o.statuses[job.ID]
		if !ok || status.State.Terminal() || pct <= status.Progress {
			return
		}
		status.Progress = pct
		status.UpdatedAt = time.Now()
		o.statuses[job.ID] = status
	}
}

// setStatusLocked updates the status table. Callers hold o.mu.
func (o *Orchestrator) setStatusLocked(job *Job, state State, progress int, cause error) {
	status := Status{
		ID:           job.ID,
		Type:         job.Type,
		State:        state,
		Progress:     progress,
		AttemptCount: job.AttemptCount,
		UpdatedAt:    time.Now(),
	}
	if cause != nil {
		status.LastError = cause.Error()
	} else if prev, ok := o.statuses[job.ID]; ok {
		status.LastError = prev.LastError
	}
	o.statuses[job.ID] = status
}

func progressOf(status Status) int { return status.Progress }
