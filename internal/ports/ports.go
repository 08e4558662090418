package ports

import (
	"context"
	"errors"

	"DealScreener/internal/domain"
)

// ErrEmptyQueue reports a non-blocking pop against an empty work list.
var ErrEmptyQueue = errors.New("queue is empty")

// Queue hands submission envelopes between producers and the worker.
// Pop returns the raw payload so decode failures stay distinguishable
// from transport failures.
type Queue interface {
	Push(ctx context.Context, msg domain.QueueMessage) error
	Pop(ctx context.Context) ([]byte, error)
	Ping(ctx context.Context) error
	Close() error
}

// MarkerStore records short-lived idempotency markers.
type MarkerStore interface {
	// Acquire atomically checks the message- and submission-scoped markers
	// and, when neither exists, sets both with their TTLs. It returns false
	// when the message was already handled.
	Acquire(ctx context.Context, messageID, submissionID string) (bool, error)
}

// Publisher announces submission outcomes and per-job status transitions.
type Publisher interface {
	Notify(ctx context.Context, n domain.Notification) error
	PublishJobStatus(ctx context.Context, jobID string, status domain.JobStatus) error
}

// TextGenerator is the external evaluation capability: free-text
// summarization plus schema-constrained structuring. Both are fallible
// and can take tens of seconds.
type TextGenerator interface {
	Summarize(ctx context.Context, prompt string) (string, error)
	Structure(ctx context.Context, prompt string, schema []byte) ([]byte, error)
}

// RecordRepository persists one ProcessingRecord per submission,
// insert-only.
type RecordRepository interface {
	Create(ctx context.Context, rec domain.ProcessingRecord) error
}

// DeadLetterSink receives verdicts that could not be persisted.
type DeadLetterSink interface {
	Push(ctx context.Context, payload []byte) error
}
