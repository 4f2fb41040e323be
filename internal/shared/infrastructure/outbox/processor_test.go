package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturingPublisher struct {
	mu        sync.Mutex
	published []string
	failWith  error
}

func (p *capturingPublisher) Publish(ctx context.Context, routingKey string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failWith != nil {
		return p.failWith
	}
	p.published = append(p.published, routingKey)
	return nil
}

func (p *capturingPublisher) Close() error { return nil }

func (p *capturingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

func TestProcessor_ProcessOnce_PublishesPending(t *testing.T) {
	repo := NewInMemoryRepository()
	pub := &capturingPublisher{}
	proc := NewProcessor(repo, pub, DefaultProcessorConfig(), nil)

	ctx := context.Background()
	msg, err := NewMessage(newPaymentVerifiedStub())
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, msg))

	require.NoError(t, proc.ProcessOnce(ctx))

	assert.Equal(t, 1, pub.count())
	assert.True(t, msg.IsPublished())

	pending, err := repo.GetUnpublished(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	stats := proc.GetStats()
	assert.Equal(t, uint64(1), stats.PublishedCount)
}

func TestProcessor_ProcessOnce_SchedulesRetryOnFailure(t *testing.T) {
	repo := NewInMemoryRepository()
	pub := &capturingPublisher{failWith: errors.New("broker unavailable")}
	proc := NewProcessor(repo, pub, DefaultProcessorConfig(), nil)

	ctx := context.Background()
	msg, err := NewMessage(newPaymentVerifiedStub())
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, msg))

	require.NoError(t, proc.ProcessOnce(ctx))

	assert.False(t, msg.IsPublished())
	assert.Equal(t, 1, msg.RetryCount)
	require.NotNil(t, msg.NextRetryAt)
	assert.True(t, msg.NextRetryAt.After(time.Now()))

	stats := proc.GetStats()
	assert.Equal(t, uint64(1), stats.FailedCount)
}

func TestProcessor_ProcessOnce_DeadLettersAfterMaxRetries(t *testing.T) {
	repo := NewInMemoryRepository()
	pub := &capturingPublisher{failWith: errors.New("broker unavailable")}
	cfg := DefaultProcessorConfig()
	cfg.MaxRetries = 3
	proc := NewProcessor(repo, pub, cfg, nil)

	ctx := context.Background()
	msg, err := NewMessage(newPaymentVerifiedStub())
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, msg))
	msg.RetryCount = 2

	require.NoError(t, proc.ProcessOnce(ctx))

	assert.NotNil(t, msg.DeadLetteredAt)
	require.NotNil(t, msg.DeadLetterReason)
	assert.Equal(t, "broker unavailable", *msg.DeadLetterReason)

	stats := proc.GetStats()
	assert.Equal(t, uint64(1), stats.DeadCount)
}

func TestProcessor_RetryBackoff(t *testing.T) {
	proc := NewProcessor(NewInMemoryRepository(), &capturingPublisher{}, ProcessorConfig{
		RetryBackoffBase: time.Second,
		RetryBackoffMax:  30 * time.Second,
	}, nil)

	assert.Equal(t, time.Second, proc.retryBackoff(1))
	assert.Equal(t, 2*time.Second, proc.retryBackoff(2))
	assert.Equal(t, 4*time.Second, proc.retryBackoff(3))
	assert.Equal(t, 30*time.Second, proc.retryBackoff(10))
}

func TestProcessor_StartStop(t *testing.T) {
	repo := NewInMemoryRepository()
	pub := &capturingPublisher{}
	cfg := DefaultProcessorConfig()
	cfg.PollInterval = 10 * time.Millisecond
	proc := NewProcessor(repo, pub, cfg, nil)

	ctx := context.Background()
	msg, err := NewMessage(newPaymentVerifiedStub())
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, msg))

	require.NoError(t, proc.Start(ctx))
	assert.True(t, proc.IsRunning())

	assert.Eventually(t, func() bool {
		return pub.count() == 1
	}, time.Second, 10*time.Millisecond)

	proc.Stop()
	assert.False(t, proc.IsRunning())
}
