package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/placeorder/internal/domain"
)

type sellerRepository struct {
	db *sql.DB
}

// NewSellerRepository создаёт PostgreSQL-справочник продавцов.
func NewSellerRepository(store *Store) domain.SellerRepository {
	return &sellerRepository{db: store.DB()}
}

func (r *sellerRepository) Save(ctx context.Context, seller domain.Seller) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	body, err := json.Marshal(seller)
	if err != nil {
		return fmt.Errorf("encode seller: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO sellers (identifier, id, body, updated_at)
		VALUES ($1,$2,$3::jsonb,NOW())
		ON CONFLICT (identifier) DO UPDATE
		SET id = EXCLUDED.id, body = EXCLUDED.body, updated_at = NOW()
	`, seller.Identifier, seller.ID, string(body)); err != nil {
		return fmt.Errorf("save seller: %w", err)
	}
	return nil
}

func (r *sellerRepository) FindByIdentifier(ctx context.Context, identifier string) (domain.Seller, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var body []byte
	err := r.db.QueryRowContext(ctx, `SELECT body FROM sellers WHERE identifier = $1`, identifier).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Seller{}, domain.NewNotFoundError("Seller", "seller not found")
		}
		return domain.Seller{}, fmt.Errorf("select seller: %w", err)
	}

	var seller domain.Seller
	if err := json.Unmarshal(body, &seller); err != nil {
		return domain.Seller{}, fmt.Errorf("decode seller: %w", err)
	}
	return seller, nil
}

var _ domain.SellerRepository = (*sellerRepository)(nil)
