package queue

import (
	"context"
	"fmt"
	"sync"
)

// defaultMemoryCapacity bounds the messages kept per subject
const defaultMemoryCapacity = 10000

// MemoryQueue implements Publisher in memory.
// This is useful for testing and development without external dependencies.
type MemoryQueue struct {
	messages map[string][][]byte
	capacity int
	closed   bool
	mu       sync.RWMutex
}

// newMemoryQueue creates a new in-memory queue instance
func newMemoryQueue() *MemoryQueue {
	return &MemoryQueue{
		messages: make(map[string][][]byte),
		capacity: defaultMemoryCapacity,
	}
}

// Publish stores a copy of data under subject
func (q *MemoryQueue) Publish(ctx context.Context, subject string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return fmt.Errorf("queue closed")
	}
	if len(q.messages[subject]) >= q.capacity {
		return fmt.Errorf("channel full for subject: %s", subject)
	}

	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)
	q.messages[subject] = append(q.messages[subject], dataCopy)
	return nil
}

// PublishBatch publishes multiple messages
func (q *MemoryQueue) PublishBatch(ctx context.Context, messages []BatchMessage) (int, error) {
	successCount := 0
	for _, msg := range messages {
		if err := q.Publish(ctx, msg.Subject, msg.Data); err != nil {
			continue
		}
		successCount++
	}
	return successCount, nil
}

// Messages returns the messages published to subject, oldest first
func (q *MemoryQueue) Messages(subject string) [][]byte {
	q.mu.RLock()
	defer q.mu.RUnlock()

	out := make([][]byte, len(q.messages[subject]))
	copy(out, q.messages[subject])
	return out
}

// GetPendingCount returns the number of messages stored for a subject
func (q *MemoryQueue) GetPendingCount(subject string) int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.messages[subject])
}

// Close drops all stored messages
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	for subject := range q.messages {
		delete(q.messages, subject)
	}
	return nil
}
