package retention

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/placeorder/internal/domain"
	"github.com/vladislavdragonenkov/placeorder/internal/storage/memory"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type stubPurger struct {
	mu      sync.Mutex
	pending int
	err     error
	calls   []int
	befores []time.Time
}

func (p *stubPurger) DeleteExpired(_ context.Context, before time.Time, limit int) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls = append(p.calls, limit)
	p.befores = append(p.befores, before)
	if p.err != nil {
		return 0, p.err
	}
	n := min(limit, p.pending)
	p.pending -= n
	return n, nil
}

func TestWorker_SweepOnceDrainsInBatches(t *testing.T) {
	t.Parallel()

	purger := &stubPurger{pending: 5}
	worker := NewWorker([]Sweep{{Name: "idempotency", Purger: purger}},
		WithBatchSize(2),
		WithClock(func() time.Time { return now }),
	)

	deleted, err := worker.SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"idempotency": 5}, deleted)
	assert.Equal(t, []int{2, 2, 2}, purger.calls, "last short batch ends the sweep")
	for _, before := range purger.befores {
		assert.True(t, before.Equal(now))
	}
}

func TestWorker_SweepOnceContinuesAfterFailure(t *testing.T) {
	t.Parallel()

	broken := &stubPurger{err: errors.New("connection reset")}
	healthy := &stubPurger{pending: 1}
	worker := NewWorker([]Sweep{
		{Name: "idempotency", Purger: broken},
		{Name: "print_tokens", Purger: healthy},
	})

	deleted, err := worker.SweepOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "idempotency: connection reset")
	assert.Equal(t, 1, deleted["print_tokens"])
}

func TestWorker_SkipsSweepsWithoutPurger(t *testing.T) {
	t.Parallel()

	worker := NewWorker([]Sweep{
		{Name: "idempotency"},
		{Name: "print_tokens", Purger: &stubPurger{}},
	})
	assert.Equal(t, []string{"print_tokens"}, worker.Names())
}

func TestWorker_SweepsMemoryRepositories(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	records := memory.NewIdempotencyRepository()
	tokens := memory.NewTokenRepository(time.Minute)

	_, err := records.Reserve(ctx, domain.IdempotencyRecord{
		Scope:       domain.IdempotencyScope{AgentID: "agent-1", Operation: domain.IdempotencyOperationStart, Key: "key-1"},
		RequestHash: "hash-1",
		ExpiresAt:   time.Now().Add(time.Minute),
	})
	require.NoError(t, err)
	_, err = tokens.CreatePrintToken(ctx, []string{"r-1"})
	require.NoError(t, err)

	worker := NewWorker([]Sweep{
		{Name: "idempotency", Purger: records},
		{Name: "print_tokens", Purger: tokens},
	}, WithClock(func() time.Time { return time.Now().Add(time.Hour) }))

	deleted, err := worker.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"idempotency": 1, "print_tokens": 1}, deleted)

	deleted, err = worker.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"idempotency": 0, "print_tokens": 0}, deleted)
}

func TestWorker_Run_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	worker := NewWorker([]Sweep{{Name: "print_tokens", Purger: &stubPurger{}}}, WithInterval(5*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(ctx)
	}()

	time.Sleep(15 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on context cancel")
	}
}
