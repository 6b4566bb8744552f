package jobs

import (
	"context"
	"errors"
	"time"
)

const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Per-item outcomes inside a batch.
const (
	ItemStored    = "stored"
	ItemDuplicate = "duplicate"
	ItemFailed    = "failed"
)

var ErrJobNotFound = errors.New("jobs: job not found")

// ItemResult is the outcome of one record inside a batch ingest.
type ItemResult struct {
	Index    int    `json:"index"`
	Status   string `json:"status"`
	LogID    string `json:"log_id,omitempty"`
	TicketID string `json:"ticket_id,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Job tracks a batch ingest run. Counters are cumulative and monotonic;
// CurrentIndex lets pollers see progress through the batch.
type Job struct {
	ID           string       `json:"job_id"`
	Status       string       `json:"status"`
	Total        int          `json:"total"`
	CurrentIndex int          `json:"current_index"`
	Processed    int          `json:"processed"`
	Stored       int          `json:"stored"`
	Duplicates   int          `json:"duplicates"`
	Failed       int          `json:"failed"`
	Results      []ItemResult `json:"results"`
	Error        string       `json:"error,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Store persists batch jobs for status polling. Update replaces the stored
// job wholesale; callers mutate a copy returned by Get and write it back.
type Store interface {
	Create(ctx context.Context, job *Job) error
	Get(ctx context.Context, id string) (*Job, error)
	Update(ctx context.Context, job *Job) error
}
