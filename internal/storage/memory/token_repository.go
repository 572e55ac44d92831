package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/placeorder/internal/domain"
)

type printToken struct {
	reservationIDs []string
	expiresAt      time.Time
}

type tokenRepositoryInMemory struct {
	mu     sync.Mutex
	ttl    time.Duration
	tokens map[string]printToken
}

// NewTokenRepository создаёт in-memory хранилище токенов печати.
func NewTokenRepository(ttl time.Duration) domain.TokenRepository {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &tokenRepositoryInMemory{ttl: ttl, tokens: make(map[string]printToken)}
}

func (r *tokenRepositoryInMemory) CreatePrintToken(_ context.Context, reservationIDs []string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	token := uuid.NewString()
	r.tokens[token] = printToken{
		reservationIDs: append([]string(nil), reservationIDs...),
		expiresAt:      time.Now().Add(r.ttl),
	}
	return token, nil
}

func (r *tokenRepositoryInMemory) VerifyPrintToken(_ context.Context, token string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tokens[token]
	if !ok || time.Now().After(t.expiresAt) {
		delete(r.tokens, token)
		return nil, domain.NewNotFoundError("PrintToken", "token not found")
	}
	return append([]string(nil), t.reservationIDs...), nil
}

// DeleteExpired удаляет до limit токенов, истёкших к before, начиная с самых старых.
func (r *tokenRepositoryInMemory) DeleteExpired(_ context.Context, before time.Time, limit int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	expired := make([]string, 0)
	for token, t := range r.tokens {
		if !t.expiresAt.After(before) {
			expired = append(expired, token)
		}
	}
	sort.Slice(expired, func(i, j int) bool {
		return r.tokens[expired[i]].expiresAt.Before(r.tokens[expired[j]].expiresAt)
	})
	if limit > 0 && len(expired) > limit {
		expired = expired[:limit]
	}
	for _, token := range expired {
		delete(r.tokens, token)
	}
	return len(expired), nil
}

var _ domain.TokenRepository = (*tokenRepositoryInMemory)(nil)
