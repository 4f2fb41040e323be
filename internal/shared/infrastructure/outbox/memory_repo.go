package outbox

import (
	"context"
	"sync"
	"time"
)

// InMemoryRepository is an in-memory implementation for tests and local mode.
type InMemoryRepository struct {
	mu       sync.Mutex
	messages []*Message
	nextID   int64
}

// NewInMemoryRepository creates a new in-memory outbox repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		messages: make([]*Message, 0),
		nextID:   1,
	}
}

func (r *InMemoryRepository) Save(ctx context.Context, msg *Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg.ID = r.nextID
	r.nextID++
	r.messages = append(r.messages, msg)
	return nil
}

func (r *InMemoryRepository) SaveBatch(ctx context.Context, msgs []*Message) error {
	for _, msg := range msgs {
		if err := r.Save(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

func (r *InMemoryRepository) GetUnpublished(ctx context.Context, limit int) ([]*Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*Message
	now := time.Now()
	for _, msg := range r.messages {
		if msg.PublishedAt != nil || msg.DeadLetteredAt != nil {
			continue
		}
		if msg.NextRetryAt != nil && msg.NextRetryAt.After(now) {
			continue
		}
		result = append(result, msg)
		if len(result) >= limit {
			break
		}
	}
	return result, nil
}

func (r *InMemoryRepository) MarkPublished(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, msg := range r.messages {
		if msg.ID == id {
			now := time.Now()
			msg.PublishedAt = &now
			msg.DeadLetteredAt = nil
			return nil
		}
	}
	return nil
}

func (r *InMemoryRepository) MarkFailed(ctx context.Context, id int64, errMsg string, nextRetryAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, msg := range r.messages {
		if msg.ID == id {
			msg.RetryCount++
			msg.LastError = &errMsg
			msg.NextRetryAt = &nextRetryAt
			return nil
		}
	}
	return nil
}

func (r *InMemoryRepository) MarkDead(ctx context.Context, id int64, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, msg := range r.messages {
		if msg.ID == id {
			now := time.Now()
			msg.DeadLetteredAt = &now
			msg.DeadLetterReason = &reason
			return nil
		}
	}
	return nil
}

func (r *InMemoryRepository) DeleteOld(ctx context.Context, olderThanDays int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := time.Now().AddDate(0, 0, -olderThanDays)
	var (
		kept    []*Message
		deleted int64
	)
	for _, msg := range r.messages {
		if msg.PublishedAt != nil && msg.PublishedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, msg)
	}
	r.messages = kept
	return deleted, nil
}
