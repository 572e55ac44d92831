package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/placeorder/internal/domain"
)

const defaultIdempotencyTTL = 24 * time.Hour

type idempotencyRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewIdempotencyRepository создаёт PostgreSQL-реализацию IdempotencyRepository.
// Запись адресуется тройкой (agent_id, operation, key).
func NewIdempotencyRepository(store *Store) domain.IdempotencyRepository {
	return &idempotencyRepository{
		db:  store.DB(),
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (r *idempotencyRepository) Reserve(ctx context.Context, draft domain.IdempotencyRecord) (domain.IdempotencyRecord, error) {
	record, err := draft.Prepare(r.now(), defaultIdempotencyTTL)
	if err != nil {
		return domain.IdempotencyRecord{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	// ON CONFLICT DO NOTHING: занятый ключ не даёт строк, тогда читаем владельца.
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO idempotency_records (
			agent_id, operation, key, request_hash, state, transaction_id, expires_at, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$8)
		ON CONFLICT (agent_id, operation, key) DO NOTHING
	`,
		record.Scope.AgentID,
		string(record.Scope.Operation),
		record.Scope.Key,
		record.RequestHash,
		string(record.State),
		record.TransactionID,
		record.ExpiresAt,
		record.CreatedAt,
	)
	if err != nil {
		return domain.IdempotencyRecord{}, fmt.Errorf("reserve idempotency key %s: %w", record.Scope, err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return domain.IdempotencyRecord{}, fmt.Errorf("idempotency rows affected: %w", err)
	}
	if inserted == 1 {
		return record, nil
	}

	existing, err := r.find(ctx, record.Scope)
	if err != nil {
		if errors.Is(err, domain.ErrIdempotencyRecordNotFound) {
			// Владелец освободил ключ между INSERT и SELECT; клиент повторит запрос.
			return domain.IdempotencyRecord{}, domain.ErrIdempotencyKeyAlreadyExists
		}
		return domain.IdempotencyRecord{}, err
	}
	return existing, existing.Conflict(record.RequestHash)
}

func (r *idempotencyRepository) Complete(ctx context.Context, scope domain.IdempotencyScope, outcome domain.IdempotencyOutcome) error {
	scope = scope.Normalize()

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE idempotency_records
		SET state = $4,
		    http_status = $5,
		    response_body = $6,
		    transaction_id = CASE WHEN $7 = '' THEN transaction_id ELSE $7 END,
		    updated_at = $8
		WHERE agent_id = $1 AND operation = $2 AND key = $3 AND state = $9
	`,
		scope.AgentID,
		string(scope.Operation),
		scope.Key,
		string(outcome.State()),
		outcome.HTTPStatus,
		outcome.ResponseBody,
		outcome.TransactionID,
		r.now(),
		string(domain.IdempotencyStateProcessing),
	)
	if err != nil {
		return fmt.Errorf("complete idempotency key %s: %w", scope, err)
	}
	return expectOneRow(res)
}

func (r *idempotencyRepository) Release(ctx context.Context, scope domain.IdempotencyScope) error {
	scope = scope.Normalize()

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		DELETE FROM idempotency_records
		WHERE agent_id = $1 AND operation = $2 AND key = $3 AND state = $4
	`, scope.AgentID, string(scope.Operation), scope.Key, string(domain.IdempotencyStateProcessing))
	if err != nil {
		return fmt.Errorf("release idempotency key %s: %w", scope, err)
	}
	return expectOneRow(res)
}

// DeleteExpired удаляет до limit истёкших записей, начиная с самых старых; limit <= 0 снимает ограничение.
func (r *idempotencyRepository) DeleteExpired(ctx context.Context, before time.Time, limit int) (int, error) {
	if before.IsZero() {
		before = r.now()
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var batch sql.NullInt64
	if limit > 0 {
		batch = sql.NullInt64{Int64: int64(limit), Valid: true}
	}

	res, err := r.db.ExecContext(ctx, `
		DELETE FROM idempotency_records
		WHERE (agent_id, operation, key) IN (
			SELECT agent_id, operation, key
			FROM idempotency_records
			WHERE expires_at <= $1
			ORDER BY expires_at
			LIMIT $2
		)
	`, before, batch)
	if err != nil {
		return 0, fmt.Errorf("delete expired idempotency records: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("idempotency rows affected: %w", err)
	}
	return int(deleted), nil
}

func (r *idempotencyRepository) find(ctx context.Context, scope domain.IdempotencyScope) (domain.IdempotencyRecord, error) {
	record := domain.IdempotencyRecord{Scope: scope}
	var state string

	err := r.db.QueryRowContext(ctx, `
		SELECT request_hash, state, transaction_id, http_status, response_body, expires_at, created_at, updated_at
		FROM idempotency_records
		WHERE agent_id = $1 AND operation = $2 AND key = $3
	`, scope.AgentID, string(scope.Operation), scope.Key).Scan(
		&record.RequestHash,
		&state,
		&record.TransactionID,
		&record.HTTPStatus,
		&record.ResponseBody,
		&record.ExpiresAt,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.IdempotencyRecord{}, domain.ErrIdempotencyRecordNotFound
		}
		return domain.IdempotencyRecord{}, fmt.Errorf("find idempotency key %s: %w", scope, err)
	}

	record.State = domain.IdempotencyState(state)
	if !record.State.Valid() {
		return domain.IdempotencyRecord{}, fmt.Errorf("idempotency key %s has unknown state %q", scope, state)
	}
	return record, nil
}

func expectOneRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("idempotency rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrIdempotencyRecordNotFound
	}
	return nil
}

var _ domain.IdempotencyRepository = (*idempotencyRepository)(nil)
