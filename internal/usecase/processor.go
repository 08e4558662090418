package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"DealScreener/internal/chunker"
	"DealScreener/internal/domain"
	"DealScreener/internal/metrics"
	"DealScreener/internal/ports"
)

// ErrNoContent marks a submission whose content produced no chunks.
// Non-retryable: requeueing the same empty document cannot succeed.
var ErrNoContent = errors.New("no content to evaluate")

// ProcessorDeps wires the pipeline stages into the processor.
type ProcessorDeps struct {
	Chunker     *chunker.Chunker
	Evaluator   *ChunkEvaluator
	Aggregator  *Aggregator
	Records     ports.RecordRepository
	Publisher   ports.Publisher
	DeadLetters ports.DeadLetterSink
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
}

// Processor runs one submission through chunking, evaluation,
// aggregation, persistence, and notification. It never panics past a
// stage: hard failures come back as errors, advisory failures are logged
// and swallowed.
type Processor struct {
	chunker     *chunker.Chunker
	evaluator   *ChunkEvaluator
	aggregator  *Aggregator
	records     ports.RecordRepository
	publisher   ports.Publisher
	deadLetters ports.DeadLetterSink
	metrics     *metrics.Metrics
	logger      *slog.Logger
	now         func() time.Time
}

// NewProcessor constructs the pipeline stage driver.
func NewProcessor(deps ProcessorDeps) *Processor {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Processor{
		chunker:     deps.Chunker,
		evaluator:   deps.Evaluator,
		aggregator:  deps.Aggregator,
		records:     deps.Records,
		publisher:   deps.Publisher,
		deadLetters: deps.DeadLetters,
		metrics:     deps.Metrics,
		logger:      log,
		now:         time.Now,
	}
}

// Process runs the full pipeline for one submission. The returned error
// reports the terminal failure to the consumer; notifications for both
// outcomes have already been attempted by the time it returns.
func (p *Processor) Process(ctx context.Context, sub domain.Submission) error {
	started := p.now()
	p.publishStatus(ctx, sub.ID, domain.JobProcessing)

	chunks := p.chunker.Split(chunker.Normalize(sub.Content))
	if len(chunks) == 0 {
		p.logger.Warn("submission has no evaluable content", "submission", sub.ID)
		p.finishFailed(ctx, sub, started)
		return fmt.Errorf("submission %s: %w", sub.ID, ErrNoContent)
	}

	summaries := p.evaluator.Evaluate(ctx, sub, chunks)
	combined := CombineSummaries(summaries)

	verdict, err := p.aggregator.Aggregate(ctx, sub, combined)
	if err != nil {
		p.logger.Error("aggregation failed", "submission", sub.ID, "error", err)
		p.finishFailed(ctx, sub, started)
		return fmt.Errorf("aggregate submission %s: %w", sub.ID, err)
	}

	record := domain.ProcessingRecord{
		SubmissionID:    sub.ID,
		Verdict:         verdict,
		CombinedSummary: combined,
		CreatedAt:       p.now(),
	}
	if err := p.records.Create(ctx, record); err != nil {
		p.logger.Error("persistence failed after verdict", "submission", sub.ID, "error", err)
		p.deadLetter(ctx, record)
		p.finishFailed(ctx, sub, started)
		return fmt.Errorf("save submission %s: %w", sub.ID, err)
	}

	p.notify(ctx, sub, domain.JobDone)
	p.publishStatus(ctx, sub.ID, domain.JobDone)
	p.metrics.ObserveProcessed(string(domain.JobDone), p.now().Sub(started))
	p.logger.Info("submission processed",
		"submission", sub.ID, "chunks", len(chunks),
		"score", verdict.Score, "sentiment", verdict.Sentiment)
	return nil
}

func (p *Processor) finishFailed(ctx context.Context, sub domain.Submission, started time.Time) {
	p.notify(ctx, sub, domain.JobFailed)
	p.publishStatus(ctx, sub.ID, domain.JobFailed)
	p.metrics.ObserveProcessed(string(domain.JobFailed), p.now().Sub(started))
}

// notify is best-effort: a publish failure never flips the submission
// outcome, since downstream consumers can re-derive state from the
// persisted record.
func (p *Processor) notify(ctx context.Context, sub domain.Submission, status domain.JobStatus) {
	n := domain.Notification{
		UserID:       sub.UserID,
		SubmissionID: sub.ID,
		Status:       status,
		Name:         sub.Name,
	}
	if err := p.publisher.Notify(ctx, n); err != nil {
		p.logger.Warn("notification publish failed",
			"submission", sub.ID, "status", status, "error", err)
	}
}

func (p *Processor) publishStatus(ctx context.Context, jobID string, status domain.JobStatus) {
	if err := p.publisher.PublishJobStatus(ctx, jobID, status); err != nil {
		p.logger.Warn("job status publish failed",
			"job", jobID, "status", status, "error", err)
	}
}

// deadLetter stashes a computed-but-unsaved verdict for out-of-band
// reconciliation.
func (p *Processor) deadLetter(ctx context.Context, record domain.ProcessingRecord) {
	if p.deadLetters == nil {
		return
	}

	payload, err := json.Marshal(domain.DeadLetter{
		SubmissionID:    record.SubmissionID,
		Verdict:         record.Verdict,
		CombinedSummary: record.CombinedSummary,
		FailedAt:        p.now().UTC(),
	})
	if err != nil {
		p.logger.Error("marshal dead letter", "submission", record.SubmissionID, "error", err)
		return
	}

	if err := p.deadLetters.Push(ctx, payload); err != nil {
		p.logger.Error("dead letter push failed", "submission", record.SubmissionID, "error", err)
		return
	}
	p.metrics.IncDeadLetter()
}
