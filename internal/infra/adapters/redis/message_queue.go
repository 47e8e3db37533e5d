package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/congsh/PeerHaiguitang/internal/domain/models"
)

func queueKey(ownerID string) string {
	return fmt.Sprintf("messages:%s", ownerID)
}

// appendScript enforces the queue cap and pushes in one atomic step, then
// refreshes the key TTL. Returns the new length, or -1 when the cap is hit.
var appendScript = goredis.NewScript(`
local key = KEYS[1]
local cap = tonumber(ARGV[2])
if redis.call('LLEN', key) >= cap then
	return -1
end
local len = redis.call('RPUSH', key, ARGV[1])
redis.call('PEXPIRE', key, ARGV[3])
return len
`)

// MessageQueueStore keeps one Redis list per queue owner. Single-key list
// commands are linearizable, which gives the append/drain atomicity the
// relay contract requires without any extra locking.
type MessageQueueStore struct {
	rdb *goredis.Client
	cap int
	ttl time.Duration
}

func NewMessageQueueStore(rdb *goredis.Client, maxLen int, ttl time.Duration) *MessageQueueStore {
	if maxLen <= 0 {
		maxLen = 1000
	}

	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &MessageQueueStore{rdb: rdb, cap: maxLen, ttl: ttl}
}

func (s *MessageQueueStore) Append(ctx context.Context, ownerID string, msg models.Message) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	length, err := appendScript.Run(
		ctx,
		s.rdb,
		[]string{queueKey(ownerID)},
		raw,
		s.cap,
		s.ttl.Milliseconds(),
	).Int64()
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}

	if length < 0 {
		return models.ErrQueueOverflow
	}

	return nil
}

func (s *MessageQueueStore) Peek(ctx context.Context, ownerID string) ([]models.Message, error) {
	items, err := s.rdb.LRange(ctx, queueKey(ownerID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("peek queue: %w", err)
	}

	msgs := make([]models.Message, 0, len(items))

	for _, item := range items {
		var msg models.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, fmt.Errorf("unmarshal queued message: %w", err)
		}

		msgs = append(msgs, msg)
	}

	return msgs, nil
}

func (s *MessageQueueStore) Drain(ctx context.Context, ownerID string) error {
	if err := s.rdb.Del(ctx, queueKey(ownerID)).Err(); err != nil {
		return fmt.Errorf("drain queue: %w", err)
	}

	return nil
}
