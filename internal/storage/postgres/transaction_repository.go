package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/placeorder/internal/domain"
)

const (
	opTimeout = 5 * time.Second

	defaultExportBatch = 100
)

const transactionColumns = `
	id, type_of, status, project, agent, seller, object, result, potential_actions,
	expires, start_date, end_date, tasks_exportation_status, tasks_exported_at
`

type transactionRepository struct {
	db *sql.DB
}

// NewTransactionRepository создаёт PostgreSQL-реализацию TransactionRepository.
func NewTransactionRepository(store *Store) domain.TransactionRepository {
	return &transactionRepository{db: store.DB()}
}

func (r *transactionRepository) Start(ctx context.Context, tx domain.Transaction) (domain.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	project, agent, seller, object, err := encodeTransactionParts(tx)
	if err != nil {
		return domain.Transaction{}, err
	}
	if tx.TasksExportationStatus == "" {
		tx.TasksExportationStatus = domain.TasksExportationStatusUnexported
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO transactions (
			id, type_of, status, project, agent, seller, object, passport_token,
			expires, start_date, tasks_exportation_status, created_at, updated_at
		) VALUES ($1,$2,$3,$4::jsonb,$5::jsonb,$6::jsonb,$7::jsonb,$8,$9,$10,$11,NOW(),NOW())
	`,
		tx.ID, string(tx.TypeOf), string(tx.Status), project, agent, seller, object,
		tx.Object.PassportToken, tx.Expires, tx.StartDate, string(tx.TasksExportationStatus),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Transaction{}, fmt.Errorf("%w: %s", domain.ErrDuplicateKey, constraintName(err))
		}
		return domain.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	return tx, nil
}

func (r *transactionRepository) FindByID(ctx context.Context, typeOf domain.TransactionType, id string) (domain.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	tx, err := scanTransaction(r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1 AND type_of = $2`,
		id, string(typeOf),
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Transaction{}, domain.NewNotFoundError("Transaction", "transaction not found")
		}
		return domain.Transaction{}, fmt.Errorf("select transaction: %w", err)
	}
	return tx, nil
}

func (r *transactionRepository) FindInProgressByID(ctx context.Context, typeOf domain.TransactionType, id string) (domain.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	tx, err := scanTransaction(r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1 AND type_of = $2 AND status = $3`,
		id, string(typeOf), string(domain.TransactionStatusInProgress),
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Transaction{}, domain.NewNotFoundError("Transaction", "transaction in progress not found")
		}
		return domain.Transaction{}, fmt.Errorf("select transaction in progress: %w", err)
	}
	return tx, nil
}

func (r *transactionRepository) UpdateCustomerProfile(ctx context.Context, typeOf domain.TransactionType, id string, profile domain.CustomerProfile) (err error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var agentRaw []byte
	err = tx.QueryRowContext(ctx, `
		SELECT agent FROM transactions
		WHERE id = $1 AND type_of = $2 AND status = $3
		FOR UPDATE
	`, id, string(typeOf), string(domain.TransactionStatusInProgress)).Scan(&agentRaw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NewNotFoundError("Transaction", "transaction in progress not found")
		}
		return fmt.Errorf("lock transaction agent: %w", err)
	}

	var agent domain.Agent
	if err = json.Unmarshal(agentRaw, &agent); err != nil {
		return fmt.Errorf("decode agent: %w", err)
	}
	agent.CustomerProfile = profile

	encoded, err := json.Marshal(agent)
	if err != nil {
		return fmt.Errorf("encode agent: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `
		UPDATE transactions SET agent = $1::jsonb, updated_at = NOW() WHERE id = $2
	`, string(encoded), id); err != nil {
		return fmt.Errorf("update customer profile: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit customer profile: %w", err)
	}
	return nil
}

func (r *transactionRepository) Confirm(ctx context.Context, params domain.ConfirmTransactionParams) (domain.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	actions := params.AuthorizeActions
	if actions == nil {
		actions = []domain.AuthorizeAction{}
	}
	actionsRaw, err := json.Marshal(actions)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("encode authorize actions: %w", err)
	}
	resultRaw, err := json.Marshal(params.Result)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("encode result: %w", err)
	}
	potentialRaw, err := json.Marshal(params.PotentialActions)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("encode potential actions: %w", err)
	}

	// Условие по статусу гарантирует не более одного подтверждения.
	confirmed, err := scanTransaction(r.db.QueryRowContext(ctx, `
		UPDATE transactions
		SET status = $1,
		    end_date = $2,
		    object = jsonb_set(object, '{authorizeActions}', $3::jsonb),
		    result = $4::jsonb,
		    potential_actions = $5::jsonb,
		    order_number = $6,
		    updated_at = NOW()
		WHERE id = $7
		  AND type_of = $8
		  AND status = $9
		RETURNING `+transactionColumns,
		string(domain.TransactionStatusConfirmed),
		params.EndDate,
		string(actionsRaw),
		string(resultRaw),
		string(potentialRaw),
		params.Result.Order.OrderNumber,
		params.ID,
		string(params.TypeOf),
		string(domain.TransactionStatusInProgress),
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Transaction{}, domain.NewNotFoundError("Transaction", "transaction in progress not found")
		}
		if isUniqueViolation(err) {
			return domain.Transaction{}, fmt.Errorf("%w: result.order.orderNumber", domain.ErrDuplicateKey)
		}
		return domain.Transaction{}, fmt.Errorf("confirm transaction: %w", err)
	}
	return confirmed, nil
}

func (r *transactionRepository) MakeExpired(ctx context.Context, now time.Time) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		UPDATE transactions
		SET status = $1, end_date = $2, updated_at = NOW()
		WHERE status = $3 AND expires < $2
		RETURNING id
	`, string(domain.TransactionStatusExpired), now, string(domain.TransactionStatusInProgress))
	if err != nil {
		return nil, fmt.Errorf("expire transactions: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan expired transaction: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expired transactions: %w", err)
	}
	return ids, nil
}

func (r *transactionRepository) StartExportTasks(ctx context.Context, limit int) ([]domain.Transaction, error) {
	if limit <= 0 {
		limit = defaultExportBatch
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	// SKIP LOCKED позволяет нескольким экземплярам забирать разные транзакции.
	rows, err := r.db.QueryContext(ctx, `
		UPDATE transactions
		SET tasks_exportation_status = $1, updated_at = NOW()
		WHERE id IN (
			SELECT id
			FROM transactions
			WHERE status IN ($2, $3, $4)
			  AND tasks_exportation_status = $5
			ORDER BY updated_at ASC, id ASC
			LIMIT $6
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+transactionColumns,
		string(domain.TasksExportationStatusExporting),
		string(domain.TransactionStatusConfirmed),
		string(domain.TransactionStatusExpired),
		string(domain.TransactionStatusCanceled),
		string(domain.TasksExportationStatusUnexported),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("start export tasks: %w", err)
	}
	defer rows.Close()

	result := make([]domain.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan exporting transaction: %w", err)
		}
		result = append(result, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exporting transactions: %w", err)
	}
	return result, nil
}

func (r *transactionRepository) ReexportTasks(ctx context.Context, olderThan time.Time) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET tasks_exportation_status = $1, updated_at = NOW()
		WHERE tasks_exportation_status = $2
		  AND updated_at < $3
	`,
		string(domain.TasksExportationStatusUnexported),
		string(domain.TasksExportationStatusExporting),
		olderThan,
	)
	if err != nil {
		return 0, fmt.Errorf("reexport tasks: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reexport tasks rows affected: %w", err)
	}
	return int(affected), nil
}

func (r *transactionRepository) SetTasksExported(ctx context.Context, id string, exportedAt time.Time) error {
	return r.setExportationStatus(ctx, id, domain.TasksExportationStatusExported, &exportedAt)
}

func (r *transactionRepository) SetTasksExportationFailed(ctx context.Context, id string) error {
	return r.setExportationStatus(ctx, id, domain.TasksExportationStatusFailed, nil)
}

func (r *transactionRepository) TasksBacklog(ctx context.Context) (domain.TasksBacklog, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var (
		backlog domain.TasksBacklog
		oldest  sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE tasks_exportation_status = $5),
		       MIN(updated_at)
		FROM transactions
		WHERE status IN ($1, $2, $3)
		  AND tasks_exportation_status IN ($4, $5)
	`,
		string(domain.TransactionStatusConfirmed),
		string(domain.TransactionStatusExpired),
		string(domain.TransactionStatusCanceled),
		string(domain.TasksExportationStatusUnexported),
		string(domain.TasksExportationStatusExporting),
	).Scan(&backlog.PendingCount, &backlog.ExportingCount, &oldest)
	if err != nil {
		return domain.TasksBacklog{}, fmt.Errorf("query tasks backlog: %w", err)
	}
	if oldest.Valid {
		backlog.OldestPendingAt = oldest.Time.UTC()
	}
	return backlog, nil
}

func (r *transactionRepository) setExportationStatus(ctx context.Context, id string, status domain.TasksExportationStatus, exportedAt *time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var exported sql.NullTime
	if exportedAt != nil {
		exported = sql.NullTime{Time: *exportedAt, Valid: true}
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET tasks_exportation_status = $1, tasks_exported_at = $2, updated_at = NOW()
		WHERE id = $3
	`, string(status), exported, id)
	if err != nil {
		return fmt.Errorf("update tasks exportation status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.NewNotFoundError("Transaction", "transaction not found")
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (domain.Transaction, error) {
	var (
		tx                             domain.Transaction
		typeOf, status, exportStatus   string
		project, agent, seller, object []byte
		result, potentialActions       []byte
		endDate, tasksExportedAt       sql.NullTime
	)
	if err := row.Scan(
		&tx.ID, &typeOf, &status, &project, &agent, &seller, &object, &result, &potentialActions,
		&tx.Expires, &tx.StartDate, &endDate, &exportStatus, &tasksExportedAt,
	); err != nil {
		return domain.Transaction{}, err
	}

	tx.TypeOf = domain.TransactionType(typeOf)
	tx.Status = domain.TransactionStatus(status)
	tx.TasksExportationStatus = domain.TasksExportationStatus(exportStatus)

	parts := []struct {
		raw  []byte
		dest any
	}{
		{project, &tx.Project},
		{agent, &tx.Agent},
		{seller, &tx.Seller},
		{object, &tx.Object},
	}
	for _, part := range parts {
		if err := json.Unmarshal(part.raw, part.dest); err != nil {
			return domain.Transaction{}, fmt.Errorf("decode transaction %s: %w", tx.ID, err)
		}
	}
	if len(result) > 0 {
		tx.Result = &domain.TransactionResult{}
		if err := json.Unmarshal(result, tx.Result); err != nil {
			return domain.Transaction{}, fmt.Errorf("decode transaction result %s: %w", tx.ID, err)
		}
	}
	if len(potentialActions) > 0 {
		tx.PotentialActions = &domain.PotentialActions{}
		if err := json.Unmarshal(potentialActions, tx.PotentialActions); err != nil {
			return domain.Transaction{}, fmt.Errorf("decode potential actions %s: %w", tx.ID, err)
		}
	}
	if tx.Object.AuthorizeActions == nil {
		tx.Object.AuthorizeActions = []domain.AuthorizeAction{}
	}
	if endDate.Valid {
		t := endDate.Time
		tx.EndDate = &t
	}
	if tasksExportedAt.Valid {
		t := tasksExportedAt.Time
		tx.TasksExportedAt = &t
	}

	return tx, nil
}

func encodeTransactionParts(tx domain.Transaction) (project, agent, seller, object string, err error) {
	if tx.Object.AuthorizeActions == nil {
		tx.Object.AuthorizeActions = []domain.AuthorizeAction{}
	}
	values := []any{tx.Project, tx.Agent, tx.Seller, tx.Object}
	encoded := make([]string, len(values))
	for i, v := range values {
		raw, err := json.Marshal(v)
		if err != nil {
			return "", "", "", "", fmt.Errorf("encode transaction %s: %w", tx.ID, err)
		}
		encoded[i] = string(raw)
	}
	return encoded[0], encoded[1], encoded[2], encoded[3], nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func constraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}

var _ domain.TransactionRepository = (*transactionRepository)(nil)
