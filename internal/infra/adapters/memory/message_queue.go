package memory

import (
	"context"
	"sync"

	"github.com/congsh/PeerHaiguitang/internal/domain/models"
)

const DefaultQueueCap = 1000

// MessageQueueStore holds per-participant FIFO queues in memory. Append,
// Peek and Drain each run under one lock acquisition, which is what makes
// a drain atomic relative to concurrent appends.
type MessageQueueStore struct {
	queues map[string][]models.Message
	cap    int
	mu     sync.Mutex
}

// NewMessageQueueStore creates a store capping every queue at maxLen
// messages. maxLen <= 0 falls back to DefaultQueueCap.
func NewMessageQueueStore(maxLen int) *MessageQueueStore {
	if maxLen <= 0 {
		maxLen = DefaultQueueCap
	}

	return &MessageQueueStore{
		queues: make(map[string][]models.Message),
		cap:    maxLen,
	}
}

func (s *MessageQueueStore) Append(_ context.Context, ownerID string, msg models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queues[ownerID]) >= s.cap {
		return models.ErrQueueOverflow
	}

	s.queues[ownerID] = append(s.queues[ownerID], msg)

	return nil
}

// Peek returns the queue contents in append order without consuming them.
// An owner without a queue gets an empty slice, not an error.
func (s *MessageQueueStore) Peek(_ context.Context, ownerID string) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	queue := s.queues[ownerID]
	out := make([]models.Message, len(queue))
	copy(out, queue)

	return out, nil
}

func (s *MessageQueueStore) Drain(_ context.Context, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.queues, ownerID)

	return nil
}
