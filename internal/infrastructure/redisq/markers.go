package redisq

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"DealScreener/internal/ports"
)

// acquireScriptSrc checks both idempotency markers and, when neither
// exists, sets both with their TTLs in one atomic step, so two workers
// cannot both pass the check before either sets a marker.
const acquireScriptSrc = `
if redis.call('EXISTS', KEYS[1]) == 1 or redis.call('EXISTS', KEYS[2]) == 1 then
  return 0
end
redis.call('SET', KEYS[1], '1', 'EX', ARGV[1])
redis.call('SET', KEYS[2], '1', 'EX', ARGV[2])
return 1
`

var acquireScript = redis.NewScript(acquireScriptSrc)

// MarkerStore implements two-tier idempotency markers: a short-lived
// message-scoped marker and a longer submission-scoped one. The
// guarantee is best-effort at-least-once; a crash mid-processing bounds
// duplicate reprocessing to the marker lifetimes rather than preventing
// it outright.
type MarkerStore struct {
	client        *redis.Client
	prefix        string
	messageTTL    time.Duration
	submissionTTL time.Duration
}

var _ ports.MarkerStore = (*MarkerStore)(nil)

// NewMarkerStore wires the marker key namespace and TTLs.
func NewMarkerStore(client *redis.Client, prefix string, messageTTL, submissionTTL time.Duration) *MarkerStore {
	if messageTTL <= 0 {
		messageTTL = time.Hour
	}
	if submissionTTL <= 0 {
		submissionTTL = 24 * time.Hour
	}
	return &MarkerStore{
		client:        client,
		prefix:        prefix,
		messageTTL:    messageTTL,
		submissionTTL: submissionTTL,
	}
}

// Acquire reports true when the message is fresh and both markers were
// set; false when either marker already existed.
func (s *MarkerStore) Acquire(ctx context.Context, messageID, submissionID string) (bool, error) {
	keys := []string{s.messageKey(messageID), s.submissionKey(submissionID)}
	args := []any{int(s.messageTTL.Seconds()), int(s.submissionTTL.Seconds())}

	res, err := acquireScript.Run(ctx, s.client, keys, args...).Int()
	if err != nil {
		return false, fmt.Errorf("acquire markers: %w", err)
	}
	return res == 1, nil
}

func (s *MarkerStore) messageKey(id string) string {
	return s.prefix + ":msg:" + id
}

func (s *MarkerStore) submissionKey(id string) string {
	return s.prefix + ":sub:" + id
}
