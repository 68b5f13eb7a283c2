package orchestrator

import (
	"math/rand"
	"time"
)

// BackoffPolicy computes the delay before a retry attempt.
type BackoffPolicy struct {
	Base   time.Duration
	Max    time.Duration
	Jitter float64 // fraction of the delay, e.g. 0.3 for ±30%
}

// Delay returns base * 2^attempt with jitter, capped at Max. With Jitter at
// 0.3 the delays stay strictly increasing across attempts below the cap:
// the upper bound of attempt n (×1.3) is below the lower bound of attempt
// n+1 (×2×0.7 = ×1.4).
func (p BackoffPolicy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	delay := p.Base
	for i := 0; i < attempt; i++ {
		delay *= 2
		if p.Max > 0 && delay >= p.Max {
			delay = p.Max
			break
		}
	}
	if p.Jitter > 0 {
		spread := float64(delay) * p.Jitter
		delay += time.Duration((rand.Float64()*2 - 1) * spread)
	}
	if delay < 0 {
		delay = 0
	}
	return delay
}

// defaultBackoff gives each job type its own base delay: short for the
// latency-bound AI extraction, long for company analysis which touches
// external sites and must stay polite.
var defaultBackoff = map[JobType]BackoffPolicy{
	JobScrape:      {Base: 5 * time.Second, Max: 2 * time.Minute, Jitter: 0.3},
	JobExtraction:  {Base: 2 * time.Second, Max: 30 * time.Second, Jitter: 0.3},
	JobAnalysis:    {Base: 30 * time.Second, Max: 10 * time.Minute, Jitter: 0.3},
	JobBatch:       {Base: 10 * time.Second, Max: 5 * time.Minute, Jitter: 0.3},
	JobHealthCheck: {Base: time.Second, Max: 10 * time.Second, Jitter: 0.3},
}

// backoffFor resolves the policy for a job: its own override, then the
// per-type default, then the scrape default as a safe fallback.
func backoffFor(job *Job) BackoffPolicy {
	if job.Backoff != nil {
		return *job.Backoff
	}
	if policy, ok := defaultBackoff[job.Type]; ok {
		return policy
	}
	return defaultBackoff[JobScrape]
}
