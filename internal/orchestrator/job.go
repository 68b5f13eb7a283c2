// Package orchestrator runs typed jobs through a bounded priority queue with
// per-type concurrency ceilings, retry with exponential backoff, and progress
// reporting. Jobs are ephemeral: their outcomes land in the store, the jobs
// themselves live only in memory.
package orchestrator

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobType discriminates the job payload union.
type JobType string

const (
	JobScrape      JobType = "scrape"
	JobExtraction  JobType = "ai-extraction"
	JobAnalysis    JobType = "company-analysis"
	JobBatch       JobType = "batch-processing"
	JobHealthCheck JobType = "health-check"
)

// State is a job's position in the queued → running → terminal state machine.
type State string

const (
	StateQueued          State = "queued"
	StateRunning         State = "running"
	StateRetryScheduled  State = "retry-scheduled"
	StateSucceeded       State = "succeeded"
	StateFailedPermanent State = "failed-permanent"
)

// Terminal reports whether the state admits no further transitions.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailedPermanent
}

// Priority bounds. Higher runs sooner within a job type.
const (
	MinPriority = 1
	MaxPriority = 10

	PriorityLow    = 3
	PriorityMedium = 5
	PriorityHigh   = 8
)

// ScrapePayload asks for one site's listing to be scraped.
type ScrapePayload struct {
	Site  string
	Limit int // 0 means no limit
}

// ExtractionPayload asks for AI enrichment of one persisted posting.
type ExtractionPayload struct {
	PostingID   uuid.UUID
	DetailURL   string
	ContentHash string
}

// AnalysisPayload asks for a company profile fetch, AI analysis and scoring.
type AnalysisPayload struct {
	CompanyID  uuid.UUID
	SourceSite string
	SourceURL  string
}

// BatchPayload fans out over several sites with bounded sub-concurrency.
type BatchPayload struct {
	Sites []string
	Limit int
}

// Job is one unit of orchestrated work. Exactly one payload pointer matching
// Type must be set; health-check jobs carry no payload.
type Job struct {
	ID           uuid.UUID
	Type         JobType
	Priority     int
	AttemptCount int
	MaxRetries   int
	Timeout      time.Duration
	Backoff      *BackoffPolicy // overrides the per-type default when set

	Scrape     *ScrapePayload
	Extraction *ExtractionPayload
	Analysis   *AnalysisPayload
	Batch      *BatchPayload

	enqueuedAt time.Time
	done       chan struct{}
}

// NewJob builds a job with defaults applied: a fresh ID, clamped priority and
// the standard retry budget.
func NewJob(jobType JobType, priority int) *Job {
	if priority < MinPriority {
		priority = MinPriority
	}
	if priority > MaxPriority {
		priority = MaxPriority
	}
	return &Job{
		ID:         uuid.New(),
		Type:       jobType,
		Priority:   priority,
		MaxRetries: 3,
		done:       make(chan struct{}),
	}
}

// validate checks the type/payload pairing before the job is accepted.
func (j *Job) validate() error {
	switch j.Type {
	case JobScrape:
		if j.Scrape == nil || j.Scrape.Site == "" {
			return fmt.Errorf("scrape job %s is missing its site payload", j.ID)
		}
	case JobExtraction:
		if j.Extraction == nil || j.Extraction.PostingID == uuid.Nil {
			return fmt.Errorf("extraction job %s is missing its posting payload", j.ID)
		}
	case JobAnalysis:
		if j.Analysis == nil || j.Analysis.CompanyID == uuid.Nil || j.Analysis.SourceSite == "" {
			return fmt.Errorf("analysis job %s is missing its company payload", j.ID)
		}
	case JobBatch:
		if j.Batch == nil || len(j.Batch.Sites) == 0 {
			return fmt.Errorf("batch job %s has no sites", j.ID)
		}
	case JobHealthCheck:
	default:
		return fmt.Errorf("unknown job type %q", j.Type)
	}
	return nil
}

// singleFlightKey returns a non-empty key for jobs that must not run
// concurrently for the same resource. Analysis jobs serialize per
// (company, site) so two workers never fetch the same profile at once.
func (j *Job) singleFlightKey() string {
	if j.Type == JobAnalysis && j.Analysis != nil {
		return j.Analysis.CompanyID.String() + "|" + j.Analysis.SourceSite
	}
	return ""
}

// Status is a point-in-time snapshot of a job's execution, safe to hand out.
type Status struct {
	ID           uuid.UUID
	Type         JobType
	State        State
	Progress     int
	AttemptCount int
	LastError    string
	UpdatedAt    time.Time
}
