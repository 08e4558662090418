package redisq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"DealScreener/internal/domain"
	"DealScreener/internal/ports"
)

const deadLetterSuffix = ":deadletter"

// Queue is a FIFO work list: producers LPUSH, the worker RPOPs. Pop is
// non-blocking so the loop's sleeps stay under the consumer's control.
type Queue struct {
	client *redis.Client
	key    string
}

var _ ports.Queue = (*Queue)(nil)

// NewQueue wires a redis client to a named list.
func NewQueue(client *redis.Client, key string) *Queue {
	return &Queue{client: client, key: key}
}

// Push enqueues one submission envelope.
func (q *Queue) Push(ctx context.Context, msg domain.QueueMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal queue message: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("lpush %s: %w", q.key, err)
	}
	return nil
}

// Pop removes and returns the oldest payload, or ports.ErrEmptyQueue.
func (q *Queue) Pop(ctx context.Context) ([]byte, error) {
	val, err := q.client.RPop(ctx, q.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ports.ErrEmptyQueue
	}
	if err != nil {
		return nil, fmt.Errorf("rpop %s: %w", q.key, err)
	}
	return val, nil
}

// Ping probes the transport.
func (q *Queue) Ping(ctx context.Context) error {
	if err := q.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (q *Queue) Close() error {
	return q.client.Close()
}

// DeadLetters returns the companion sink list for verdicts that could
// not be persisted.
func (q *Queue) DeadLetters() *DeadLetterList {
	return &DeadLetterList{client: q.client, key: q.key + deadLetterSuffix}
}

// DeadLetterList receives serialized verdicts awaiting reconciliation.
type DeadLetterList struct {
	client *redis.Client
	key    string
}

var _ ports.DeadLetterSink = (*DeadLetterList)(nil)

// Push appends one dead letter.
func (d *DeadLetterList) Push(ctx context.Context, payload []byte) error {
	if err := d.client.LPush(ctx, d.key, payload).Err(); err != nil {
		return fmt.Errorf("lpush %s: %w", d.key, err)
	}
	return nil
}
