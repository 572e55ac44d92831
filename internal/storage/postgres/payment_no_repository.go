package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vladislavdragonenkov/placeorder/internal/domain"
)

type paymentNoRepository struct {
	db *sql.DB
}

// NewPaymentNoRepository создаёт счётчик номеров оплаты на таблице payment_numbers.
func NewPaymentNoRepository(store *Store) domain.PaymentNoRepository {
	return &paymentNoRepository{db: store.DB()}
}

// Publish увеличивает счётчик scope одной командой; конкурентные вызовы сериализуются блокировкой строки.
func (r *paymentNoRepository) Publish(ctx context.Context, scope string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var seq int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO payment_numbers (scope, value, updated_at)
		VALUES ($1, 1, NOW())
		ON CONFLICT (scope) DO UPDATE
		SET value = payment_numbers.value + 1, updated_at = NOW()
		RETURNING value
	`, scope).Scan(&seq)
	if err != nil {
		return "", fmt.Errorf("publish payment no: %w", err)
	}
	return domain.FormatPaymentNo(seq), nil
}

var _ domain.PaymentNoRepository = (*paymentNoRepository)(nil)
