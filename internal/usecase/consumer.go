package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"DealScreener/internal/domain"
	"DealScreener/internal/metrics"
	"DealScreener/internal/ports"
)

// ConsumerConfig tunes the polling loop. Zero values are replaced with
// conservative defaults so a partially filled config still behaves.
type ConsumerConfig struct {
	PollInterval       time.Duration
	SubmissionDelay    time.Duration
	BackoffBase        time.Duration
	BackoffCap         time.Duration
	MaxConnectAttempts int
	ReconnectCooldown  time.Duration
	FailureThreshold   int
	FailureCooldown    time.Duration
}

func (c ConsumerConfig) withDefaults() ConsumerConfig {
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Second
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = 2 * time.Second
	}
	if c.BackoffCap <= 0 {
		c.BackoffCap = 30 * time.Second
	}
	if c.MaxConnectAttempts <= 0 {
		c.MaxConnectAttempts = 5
	}
	if c.ReconnectCooldown <= 0 {
		c.ReconnectCooldown = 2 * time.Minute
	}
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.FailureCooldown <= 0 {
		c.FailureCooldown = time.Minute
	}
	return c
}

// Consumer drives the worker loop: connect with backoff, pop, dedup,
// process, delay, repeat. It never returns except on context
// cancellation; no error class is allowed to kill the loop.
type Consumer struct {
	queue     ports.Queue
	markers   ports.MarkerStore
	processor *Processor
	cfg       ConsumerConfig
	metrics   *metrics.Metrics
	logger    *slog.Logger

	consecutiveFailures int
}

// NewConsumer wires the loop dependencies.
func NewConsumer(queue ports.Queue, markers ports.MarkerStore, processor *Processor, cfg ConsumerConfig, m *metrics.Metrics, log *slog.Logger) *Consumer {
	if log == nil {
		log = slog.Default()
	}
	return &Consumer{
		queue:     queue,
		markers:   markers,
		processor: processor,
		cfg:       cfg.withDefaults(),
		metrics:   m,
		logger:    log,
	}
}

// Run polls until ctx is cancelled. The returned error is always the
// context's.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("consumer started",
		"pollInterval", c.cfg.PollInterval, "submissionDelay", c.cfg.SubmissionDelay)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := c.connect(ctx); err != nil {
			return err
		}

		payload, err := c.queue.Pop(ctx)
		if errors.Is(err, ports.ErrEmptyQueue) {
			if !sleepCtx(ctx, c.cfg.PollInterval) {
				return ctx.Err()
			}
			continue
		}
		if err != nil {
			// Transport loss; the next iteration re-probes with backoff.
			c.logger.Warn("queue pop failed", "error", err)
			if !sleepCtx(ctx, c.cfg.PollInterval) {
				return ctx.Err()
			}
			continue
		}

		c.handlePayload(ctx, payload)

		if !sleepCtx(ctx, c.cfg.SubmissionDelay) {
			return ctx.Err()
		}
	}
}

// handlePayload runs the dedup guard plus pipeline for one popped
// payload and updates the consecutive-failure accounting.
func (c *Consumer) handlePayload(ctx context.Context, payload []byte) {
	msg, err := domain.DecodeQueueMessage(payload)
	if err != nil {
		// Malformed payloads are dropped, never retried.
		c.logger.Warn("dropping undecodable queue payload", "error", err)
		c.metrics.IncDecodeFailure()
		return
	}

	fresh, err := c.markers.Acquire(ctx, msg.MessageID, msg.Submission.ID)
	if err != nil {
		// Marker store unreachable: prefer at-least-once over skipping,
		// so the submission is processed anyway.
		c.logger.Warn("idempotency marker check failed, processing anyway",
			"submission", msg.Submission.ID, "error", err)
	} else if !fresh {
		c.logger.Info("skipping already-handled submission",
			"submission", msg.Submission.ID, "message", msg.MessageID)
		c.metrics.IncDedupSkip()
		return
	}

	if err := c.processor.Process(ctx, msg.Submission); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		c.consecutiveFailures++
		c.logger.Warn("submission failed",
			"submission", msg.Submission.ID,
			"consecutiveFailures", c.consecutiveFailures, "error", err)
		c.maybeCoolDown(ctx)
		return
	}

	c.consecutiveFailures = 0
}

// maybeCoolDown pauses the loop after too many failures in a row so a
// broken dependency cannot spin it at full speed. The counter resets
// afterwards; the next iteration re-probes the transport.
func (c *Consumer) maybeCoolDown(ctx context.Context) {
	if c.consecutiveFailures < c.cfg.FailureThreshold {
		return
	}

	c.logger.Error("failure threshold crossed, cooling down",
		"failures", c.consecutiveFailures, "cooldown", c.cfg.FailureCooldown)
	sleepCtx(ctx, c.cfg.FailureCooldown)
	c.consecutiveFailures = 0
}

// connect probes the transport and, when it is down, retries with
// bounded linear backoff. Exhausting the attempt budget triggers a long
// cooldown and a fresh round; the worker never terminates on transport
// loss. Returns only ctx.Err().
func (c *Consumer) connect(ctx context.Context) error {
	attempt := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := c.queue.Ping(ctx)
		if err == nil {
			if attempt > 0 {
				c.logger.Info("transport reconnected", "attempts", attempt)
				c.metrics.IncQueueReconnect()
			}
			return nil
		}

		attempt++
		if attempt > c.cfg.MaxConnectAttempts {
			c.logger.Error("connect attempts exhausted, entering cooldown",
				"attempts", attempt-1, "cooldown", c.cfg.ReconnectCooldown, "error", err)
			if !sleepCtx(ctx, c.cfg.ReconnectCooldown) {
				return ctx.Err()
			}
			attempt = 0
			continue
		}

		delay := backoffDelay(c.cfg.BackoffBase, c.cfg.BackoffCap, attempt)
		c.logger.Warn("transport unavailable, backing off",
			"attempt", attempt, "delay", delay, "error", err)
		if !sleepCtx(ctx, delay) {
			return ctx.Err()
		}
	}
}

// backoffDelay grows linearly with the attempt number and plateaus at limit.
func backoffDelay(base, limit time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := base * time.Duration(attempt)
	if delay > limit {
		return limit
	}
	return delay
}

// sleepCtx waits for d or until ctx is cancelled; it reports whether the
// full duration elapsed. Keeps every loop sleep interruptible so
// shutdown latency stays bounded.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
