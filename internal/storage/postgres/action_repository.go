package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/vladislavdragonenkov/placeorder/internal/domain"
)

type actionRepository struct {
	db *sql.DB
}

// NewActionRepository создаёт PostgreSQL-реализацию ActionRepository.
func NewActionRepository(store *Store) domain.ActionRepository {
	return &actionRepository{db: store.DB()}
}

func (r *actionRepository) Save(ctx context.Context, action domain.AuthorizeAction) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	body, err := json.Marshal(action)
	if err != nil {
		return fmt.Errorf("encode action %s: %w", action.ID, err)
	}

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO actions (id, purpose_type_of, purpose_id, start_date, body, updated_at)
		VALUES ($1,$2,$3,$4,$5::jsonb,NOW())
		ON CONFLICT (id) DO UPDATE
		SET purpose_type_of = EXCLUDED.purpose_type_of,
		    purpose_id = EXCLUDED.purpose_id,
		    start_date = EXCLUDED.start_date,
		    body = EXCLUDED.body,
		    updated_at = NOW()
	`, action.ID, string(action.Purpose.TypeOf), action.Purpose.ID, action.StartDate, string(body)); err != nil {
		return fmt.Errorf("save action: %w", err)
	}
	return nil
}

func (r *actionRepository) SearchByPurpose(ctx context.Context, purpose domain.Purpose) ([]domain.AuthorizeAction, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT body
		FROM actions
		WHERE purpose_type_of = $1 AND purpose_id = $2
		ORDER BY start_date ASC, id ASC
	`, string(purpose.TypeOf), purpose.ID)
	if err != nil {
		return nil, fmt.Errorf("search actions: %w", err)
	}
	defer rows.Close()

	actions := make([]domain.AuthorizeAction, 0)
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		var action domain.AuthorizeAction
		if err := json.Unmarshal(body, &action); err != nil {
			return nil, fmt.Errorf("decode action: %w", err)
		}
		actions = append(actions, action)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate actions: %w", err)
	}
	return actions, nil
}

var _ domain.ActionRepository = (*actionRepository)(nil)
