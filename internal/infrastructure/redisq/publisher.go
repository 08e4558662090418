package redisq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"DealScreener/internal/domain"
	"DealScreener/internal/ports"
)

// Publisher emits outcome notifications and job-status updates over
// pub/sub. Job statuses are additionally mirrored into a per-job hash so
// late subscribers can still read the last known state.
type Publisher struct {
	client        *redis.Client
	notifyChannel string
	jobChannel    string
}

var _ ports.Publisher = (*Publisher)(nil)

// NewPublisher wires the two fixed channel names.
func NewPublisher(client *redis.Client, notifyChannel, jobChannel string) *Publisher {
	return &Publisher{
		client:        client,
		notifyChannel: notifyChannel,
		jobChannel:    jobChannel,
	}
}

// Notify publishes a submission outcome event.
func (p *Publisher) Notify(ctx context.Context, n domain.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := p.client.Publish(ctx, p.notifyChannel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", p.notifyChannel, err)
	}
	return nil
}

// PublishJobStatus publishes a status transition and mirrors it into the
// job hash in one round trip.
func (p *Publisher) PublishJobStatus(ctx context.Context, jobID string, status domain.JobStatus) error {
	payload, err := jobStatusPayload(jobID, status)
	if err != nil {
		return err
	}

	pipe := p.client.TxPipeline()
	pipe.Publish(ctx, p.jobChannel, payload)
	pipe.HSet(ctx, jobKey(jobID), "status", string(status))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish job status %s: %w", jobID, err)
	}
	return nil
}

func jobStatusPayload(jobID string, status domain.JobStatus) ([]byte, error) {
	payload, err := json.Marshal(map[string]string{
		"jobId":  jobID,
		"status": string(status),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal job status: %w", err)
	}
	return payload, nil
}

func jobKey(jobID string) string {
	return "job:" + jobID
}
