package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/placeorder/internal/domain"
)

// transactionRecord хранит транзакцию и служебные поля выгрузки задач.
type transactionRecord struct {
	tx        domain.Transaction
	updatedAt time.Time
}

// transactionRepositoryInMemory — in-memory хранилище транзакций с уникальными индексами
// по паспорту и номеру заказа.
type transactionRepositoryInMemory struct {
	mu            sync.RWMutex
	records       map[string]*transactionRecord
	passportIndex map[string]string
	orderIndex    map[string]string
}

// NewTransactionRepository создаёт in-memory реализацию TransactionRepository.
func NewTransactionRepository() domain.TransactionRepository {
	return &transactionRepositoryInMemory{
		records:       make(map[string]*transactionRecord),
		passportIndex: make(map[string]string),
		orderIndex:    make(map[string]string),
	}
}

func (r *transactionRepositoryInMemory) Start(_ context.Context, tx domain.Transaction) (domain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[tx.ID]; exists {
		return domain.Transaction{}, fmt.Errorf("%w: transaction id %s", domain.ErrDuplicateKey, tx.ID)
	}
	if tx.Object.PassportToken != "" {
		if _, used := r.passportIndex[tx.Object.PassportToken]; used {
			return domain.Transaction{}, fmt.Errorf("%w: object.passportToken", domain.ErrDuplicateKey)
		}
		r.passportIndex[tx.Object.PassportToken] = tx.ID
	}

	r.records[tx.ID] = &transactionRecord{tx: cloneTransaction(tx), updatedAt: time.Now().UTC()}
	return cloneTransaction(tx), nil
}

func (r *transactionRepositoryInMemory) FindByID(_ context.Context, typeOf domain.TransactionType, id string) (domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok || rec.tx.TypeOf != typeOf {
		return domain.Transaction{}, domain.NewNotFoundError("Transaction", "transaction not found")
	}
	return cloneTransaction(rec.tx), nil
}

func (r *transactionRepositoryInMemory) FindInProgressByID(_ context.Context, typeOf domain.TransactionType, id string) (domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.inProgress(typeOf, id)
	if !ok {
		return domain.Transaction{}, domain.NewNotFoundError("Transaction", "transaction in progress not found")
	}
	return cloneTransaction(rec.tx), nil
}

func (r *transactionRepositoryInMemory) UpdateCustomerProfile(_ context.Context, typeOf domain.TransactionType, id string, profile domain.CustomerProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.inProgress(typeOf, id)
	if !ok {
		return domain.NewNotFoundError("Transaction", "transaction in progress not found")
	}
	rec.tx.Agent.CustomerProfile = profile
	rec.updatedAt = time.Now().UTC()
	return nil
}

func (r *transactionRepositoryInMemory) Confirm(_ context.Context, params domain.ConfirmTransactionParams) (domain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.inProgress(params.TypeOf, params.ID)
	if !ok {
		return domain.Transaction{}, domain.NewNotFoundError("Transaction", "transaction in progress not found")
	}

	orderNumber := params.Result.Order.OrderNumber
	if owner, used := r.orderIndex[orderNumber]; used && owner != params.ID {
		return domain.Transaction{}, fmt.Errorf("%w: result.order.orderNumber", domain.ErrDuplicateKey)
	}
	r.orderIndex[orderNumber] = params.ID

	endDate := params.EndDate
	result := params.Result
	potentialActions := params.PotentialActions

	rec.tx.Status = domain.TransactionStatusConfirmed
	rec.tx.EndDate = &endDate
	rec.tx.Object.AuthorizeActions = append([]domain.AuthorizeAction(nil), params.AuthorizeActions...)
	rec.tx.Result = &result
	rec.tx.PotentialActions = &potentialActions
	rec.updatedAt = time.Now().UTC()

	return cloneTransaction(rec.tx), nil
}

func (r *transactionRepositoryInMemory) MakeExpired(_ context.Context, now time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	expired := make([]string, 0)
	for id, rec := range r.records {
		if rec.tx.Status != domain.TransactionStatusInProgress || !rec.tx.Expires.Before(now) {
			continue
		}
		endDate := now
		rec.tx.Status = domain.TransactionStatusExpired
		rec.tx.EndDate = &endDate
		rec.updatedAt = time.Now().UTC()
		expired = append(expired, id)
	}
	sort.Strings(expired)
	return expired, nil
}

func (r *transactionRepositoryInMemory) StartExportTasks(_ context.Context, limit int) ([]domain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if limit <= 0 {
		limit = 100
	}

	pending := r.pendingExport(domain.TasksExportationStatusUnexported)
	if len(pending) > limit {
		pending = pending[:limit]
	}

	result := make([]domain.Transaction, 0, len(pending))
	for _, rec := range pending {
		rec.tx.TasksExportationStatus = domain.TasksExportationStatusExporting
		rec.updatedAt = time.Now().UTC()
		result = append(result, cloneTransaction(rec.tx))
	}
	return result, nil
}

func (r *transactionRepositoryInMemory) ReexportTasks(_ context.Context, olderThan time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reexported := 0
	for _, rec := range r.pendingExport(domain.TasksExportationStatusExporting) {
		if !rec.updatedAt.Before(olderThan) {
			continue
		}
		rec.tx.TasksExportationStatus = domain.TasksExportationStatusUnexported
		rec.updatedAt = time.Now().UTC()
		reexported++
	}
	return reexported, nil
}

func (r *transactionRepositoryInMemory) SetTasksExported(_ context.Context, id string, exportedAt time.Time) error {
	return r.setExportationStatus(id, domain.TasksExportationStatusExported, &exportedAt)
}

func (r *transactionRepositoryInMemory) SetTasksExportationFailed(_ context.Context, id string) error {
	return r.setExportationStatus(id, domain.TasksExportationStatusFailed, nil)
}

func (r *transactionRepositoryInMemory) TasksBacklog(_ context.Context) (domain.TasksBacklog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pending := r.pendingExport(domain.TasksExportationStatusUnexported, domain.TasksExportationStatusExporting)
	backlog := domain.TasksBacklog{PendingCount: len(pending)}
	for _, rec := range pending {
		if rec.tx.TasksExportationStatus == domain.TasksExportationStatusExporting {
			backlog.ExportingCount++
		}
	}
	if len(pending) > 0 {
		backlog.OldestPendingAt = pending[0].updatedAt
	}
	return backlog, nil
}

func (r *transactionRepositoryInMemory) setExportationStatus(id string, status domain.TasksExportationStatus, exportedAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return domain.NewNotFoundError("Transaction", "transaction not found")
	}
	rec.tx.TasksExportationStatus = status
	rec.tx.TasksExportedAt = exportedAt
	rec.updatedAt = time.Now().UTC()
	return nil
}

// pendingExport возвращает завершённые транзакции в одном из statuses выгрузки, старые первыми.
// Вызывается под блокировкой.
func (r *transactionRepositoryInMemory) pendingExport(statuses ...domain.TasksExportationStatus) []*transactionRecord {
	pending := make([]*transactionRecord, 0)
	for _, rec := range r.records {
		if rec.tx.Status.Terminal() && slices.Contains(statuses, rec.tx.TasksExportationStatus) {
			pending = append(pending, rec)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		if pending[i].updatedAt.Equal(pending[j].updatedAt) {
			return pending[i].tx.ID < pending[j].tx.ID
		}
		return pending[i].updatedAt.Before(pending[j].updatedAt)
	})
	return pending
}

func (r *transactionRepositoryInMemory) inProgress(typeOf domain.TransactionType, id string) (*transactionRecord, bool) {
	rec, ok := r.records[id]
	if !ok || rec.tx.TypeOf != typeOf || rec.tx.Status != domain.TransactionStatusInProgress {
		return nil, false
	}
	return rec, true
}

// cloneTransaction копирует изменяемые срезы, чтобы вызывающая сторона не могла менять хранимое состояние.
func cloneTransaction(src domain.Transaction) domain.Transaction {
	dst := src
	dst.Agent.Identifier = append([]domain.PropertyValue(nil), src.Agent.Identifier...)
	dst.Object.AuthorizeActions = append([]domain.AuthorizeAction(nil), src.Object.AuthorizeActions...)
	if dst.Object.AuthorizeActions == nil {
		dst.Object.AuthorizeActions = []domain.AuthorizeAction{}
	}
	return dst
}

var _ domain.TransactionRepository = (*transactionRepositoryInMemory)(nil)
