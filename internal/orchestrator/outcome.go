package orchestrator

import "context"

// OutcomeCode classifies how a job execution ended. The orchestrator's retry
// state machine consumes codes, never error types or message text.
type OutcomeCode int

const (
	// OutcomeSuccess: the job did its work.
	OutcomeSuccess OutcomeCode = iota
	// OutcomeRetryable: a transient failure; re-run after backoff until the
	// retry budget is spent.
	OutcomeRetryable
	// OutcomePermanent: retrying cannot help; fail the job now.
	OutcomePermanent
)

// Outcome is the result of one execution attempt.
type Outcome struct {
	Code OutcomeCode
	Err  error
}

func Success() Outcome            { return Outcome{Code: OutcomeSuccess} }
func Retryable(err error) Outcome { return Outcome{Code: OutcomeRetryable, Err: err} }
func Permanent(err error) Outcome { return Outcome{Code: OutcomePermanent, Err: err} }

// ProgressFunc reports a job's progress checkpoint (0-100). The orchestrator
// keeps progress monotonic, so executors may report checkpoints freely.
type ProgressFunc func(pct int)

// Executor runs one attempt of a job. The context carries the job's timeout;
// executors must return promptly once it is done.
type Executor interface {
	Execute(ctx context.Context, job *Job, progress ProgressFunc) Outcome
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, job *Job, progress ProgressFunc) Outcome

func (f ExecutorFunc) Execute(ctx context.Context, job *Job, progress ProgressFunc) Outcome {
	return f(ctx, job, progress)
}
