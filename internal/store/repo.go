package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// QueryOpts configures event queries.
type QueryOpts struct {
	Limit   int    // max results (0 = unlimited)
	Purpose string // exact purpose match ("" = any)
	Subject string // subject prefix match, e.g. a file label ("" = any)
}

// RunRecord is one persisted check run.
type RunRecord struct {
	ID          uuid.UUID
	Root        string
	StartedAt   time.Time
	Duration    time.Duration
	Files       int
	FailedFiles int
	Violations  int

	// Results is only populated by GetRun.
	Results []FileRecord
}

// FileRecord is the stored outcome for one file of a run.
type FileRecord struct {
	File       string
	Passed     bool
	LoadError  string
	Violations []ViolationRecord
}

// ViolationRecord is a stored integrity violation. Question and Answer are
// 1-based; 0 means not applicable.
type ViolationRecord struct {
	Question int
	Answer   int
	Rule     string
	Message  string
}

// RunRepo persists check runs.
type RunRepo interface {
	// SaveRun stores the run and all of its file results atomically.
	// A zero ID is replaced with a new random UUID.
	SaveRun(ctx context.Context, run *RunRecord) error

	// ListRuns returns the most recent runs first, without file results.
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)

	// GetRun returns the run with its file results, or nil if not found.
	GetRun(ctx context.Context, id uuid.UUID) (*RunRecord, error)

	// PruneRuns deletes all but the keep most recent runs.
	PruneRuns(ctx context.Context, keep int) error
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	// Subject names what the call was about, e.g. "php.yml#3" for the
	// third question of php.yml.
	Subject      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMEvent is a stored LLM request event.
type LLMEvent struct {
	ID        int
	Timestamp time.Time
	LLMRequestEventData
}

// ModelUsage aggregates token usage per model.
type ModelUsage struct {
	Model        string
	Calls        int
	InputTokens  int
	OutputTokens int
}

// EventRepo provides append and query access to LLM request events.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// QueryLLMEvents returns events newest first.
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMEvent, error)

	// GetLLMEvent returns one event, or nil if not found.
	GetLLMEvent(ctx context.Context, id int) (*LLMEvent, error)

	// LLMUsageByModel aggregates calls and tokens per model.
	LLMUsageByModel(ctx context.Context) ([]ModelUsage, error)
}
