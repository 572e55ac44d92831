package postgres

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/placeorder/internal/domain"
)

func TestIdempotencyRepository_PostgresReserveCompleteReplay(t *testing.T) {
	repo := NewIdempotencyRepository(openPostgresStoreForIntegrationTest(t))
	ctx := context.Background()
	scope := domain.IdempotencyScope{AgentID: "agent-1", Operation: domain.IdempotencyOperationConfirm, Key: "confirm-1"}
	expiresAt := time.Now().UTC().Add(2 * time.Hour).Round(time.Second)

	reserved, err := repo.Reserve(ctx, domain.IdempotencyRecord{
		Scope:         scope,
		RequestHash:   "hash-a",
		TransactionID: "tx-1",
		ExpiresAt:     expiresAt,
	})
	require.NoError(t, err)
	require.Equal(t, domain.IdempotencyStateProcessing, reserved.State)

	require.NoError(t, repo.Complete(ctx, scope, domain.IdempotencyOutcome{
		HTTPStatus:   http.StatusCreated,
		ResponseBody: []byte(`{"printToken":"p-1"}`),
	}))

	replayed, err := repo.Reserve(ctx, domain.IdempotencyRecord{Scope: scope, RequestHash: "hash-a"})
	require.ErrorIs(t, err, domain.ErrIdempotencyKeyAlreadyExists)
	require.Equal(t, domain.IdempotencyStateCompleted, replayed.State)
	require.Equal(t, "tx-1", replayed.TransactionID)
	require.Equal(t, http.StatusCreated, replayed.HTTPStatus)
	require.JSONEq(t, `{"printToken":"p-1"}`, string(replayed.ResponseBody))
	require.True(t, replayed.ExpiresAt.Equal(expiresAt), "expiry mismatch: %s vs %s", expiresAt, replayed.ExpiresAt)

	_, err = repo.Reserve(ctx, domain.IdempotencyRecord{Scope: scope, RequestHash: "hash-b"})
	require.ErrorIs(t, err, domain.ErrIdempotencyHashMismatch)

	require.ErrorIs(t, repo.Release(ctx, scope), domain.ErrIdempotencyRecordNotFound)
}

func TestIdempotencyRepository_PostgresScopesAndRelease(t *testing.T) {
	repo := NewIdempotencyRepository(openPostgresStoreForIntegrationTest(t))
	ctx := context.Background()

	first := domain.IdempotencyScope{AgentID: "agent-1", Operation: domain.IdempotencyOperationStart, Key: "shared"}
	second := domain.IdempotencyScope{AgentID: "agent-2", Operation: domain.IdempotencyOperationStart, Key: "shared"}

	_, err := repo.Reserve(ctx, domain.IdempotencyRecord{Scope: first, RequestHash: "hash"})
	require.NoError(t, err)
	_, err = repo.Reserve(ctx, domain.IdempotencyRecord{Scope: second, RequestHash: "hash"})
	require.NoError(t, err)

	require.NoError(t, repo.Release(ctx, first))
	_, err = repo.Reserve(ctx, domain.IdempotencyRecord{Scope: first, RequestHash: "other-hash"})
	require.NoError(t, err)
}

func TestIdempotencyRepository_PostgresDeleteExpired(t *testing.T) {
	repo := NewIdempotencyRepository(openPostgresStoreForIntegrationTest(t))
	ctx := context.Background()
	now := time.Now().UTC()

	for key, expiresAt := range map[string]time.Time{
		"expired-1": now.Add(-5 * time.Minute),
		"expired-2": now.Add(-4 * time.Minute),
		"expired-3": now.Add(-3 * time.Minute),
		"active-1":  now.Add(time.Hour),
	} {
		_, err := repo.Reserve(ctx, domain.IdempotencyRecord{
			Scope:       domain.IdempotencyScope{AgentID: "agent-1", Operation: domain.IdempotencyOperationStart, Key: key},
			RequestHash: "hash",
			ExpiresAt:   expiresAt,
		})
		require.NoError(t, err)
	}

	removed, err := repo.DeleteExpired(ctx, now, 2)
	require.NoError(t, err)
	require.Equal(t, 2, removed)

	removed, err = repo.DeleteExpired(ctx, now, 0)
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	_, err = repo.Reserve(ctx, domain.IdempotencyRecord{
		Scope:       domain.IdempotencyScope{AgentID: "agent-1", Operation: domain.IdempotencyOperationStart, Key: "active-1"},
		RequestHash: "hash",
	})
	require.ErrorIs(t, err, domain.ErrIdempotencyKeyAlreadyExists)
}
