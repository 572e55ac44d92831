package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/vladislavdragonenkov/placeorder/internal/domain"
)

const printTokenKeyPrefix = "placeorder:printToken:"

// TokenRepository хранит токены печати билетов с TTL.
type TokenRepository struct {
	client goredis.Cmdable
	ttl    time.Duration
}

var _ domain.TokenRepository = (*TokenRepository)(nil)

// NewTokenRepository создаёт хранилище токенов печати.
func NewTokenRepository(client goredis.Cmdable, ttl time.Duration) *TokenRepository {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &TokenRepository{client: client, ttl: ttl}
}

// CreatePrintToken сохраняет идентификаторы резервирований под новым токеном.
func (r *TokenRepository) CreatePrintToken(ctx context.Context, reservationIDs []string) (string, error) {
	payload, err := json.Marshal(reservationIDs)
	if err != nil {
		return "", fmt.Errorf("marshal reservation ids: %w", err)
	}

	token := uuid.NewString()
	if err := r.client.Set(ctx, printTokenKeyPrefix+token, payload, r.ttl).Err(); err != nil {
		return "", fmt.Errorf("store print token: %w", err)
	}
	return token, nil
}

// VerifyPrintToken возвращает идентификаторы резервирований токена.
func (r *TokenRepository) VerifyPrintToken(ctx context.Context, token string) ([]string, error) {
	payload, err := r.client.Get(ctx, printTokenKeyPrefix+token).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, domain.NewNotFoundError("PrintToken", "token not found")
		}
		return nil, fmt.Errorf("load print token: %w", err)
	}

	var ids []string
	if err := json.Unmarshal(payload, &ids); err != nil {
		return nil, fmt.Errorf("decode print token: %w", err)
	}
	return ids, nil
}

// DeleteExpired ничего не делает: ключи токенов удаляет сам Redis по TTL.
func (r *TokenRepository) DeleteExpired(context.Context, time.Time, int) (int, error) {
	return 0, nil
}
