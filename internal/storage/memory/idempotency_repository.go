package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/placeorder/internal/domain"
)

const defaultIdempotencyTTL = 24 * time.Hour

// idempotencyRepositoryInMemory хранит записи по IdempotencyScope: ключ одного агента
// не виден другому агенту и другой операции.
type idempotencyRepositoryInMemory struct {
	mu      sync.Mutex
	records map[domain.IdempotencyScope]domain.IdempotencyRecord
	now     func() time.Time
}

// NewIdempotencyRepository создаёт in-memory хранилище ключей идемпотентности HTTP API.
func NewIdempotencyRepository() domain.IdempotencyRepository {
	return &idempotencyRepositoryInMemory{
		records: make(map[domain.IdempotencyScope]domain.IdempotencyRecord),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (r *idempotencyRepositoryInMemory) Reserve(_ context.Context, draft domain.IdempotencyRecord) (domain.IdempotencyRecord, error) {
	record, err := draft.Prepare(r.now(), defaultIdempotencyTTL)
	if err != nil {
		return domain.IdempotencyRecord{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.records[record.Scope]; ok {
		return copyIdempotencyRecord(existing), existing.Conflict(record.RequestHash)
	}
	r.records[record.Scope] = copyIdempotencyRecord(record)
	return record, nil
}

func (r *idempotencyRepositoryInMemory) Complete(_ context.Context, scope domain.IdempotencyScope, outcome domain.IdempotencyOutcome) error {
	scope = scope.Normalize()

	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[scope]
	if !ok || record.State != domain.IdempotencyStateProcessing {
		return domain.ErrIdempotencyRecordNotFound
	}
	r.records[scope] = record.Apply(outcome, r.now())
	return nil
}

func (r *idempotencyRepositoryInMemory) Release(_ context.Context, scope domain.IdempotencyScope) error {
	scope = scope.Normalize()

	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[scope]
	if !ok || record.State != domain.IdempotencyStateProcessing {
		return domain.ErrIdempotencyRecordNotFound
	}
	delete(r.records, scope)
	return nil
}

// DeleteExpired удаляет до limit записей, истёкших к before, начиная с самых старых.
func (r *idempotencyRepositoryInMemory) DeleteExpired(_ context.Context, before time.Time, limit int) (int, error) {
	if before.IsZero() {
		before = r.now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	expired := make([]domain.IdempotencyRecord, 0)
	for _, record := range r.records {
		if !record.ExpiresAt.After(before) {
			expired = append(expired, record)
		}
	}
	sort.Slice(expired, func(i, j int) bool {
		return expired[i].ExpiresAt.Before(expired[j].ExpiresAt)
	})
	if limit > 0 && len(expired) > limit {
		expired = expired[:limit]
	}

	for _, record := range expired {
		delete(r.records, record.Scope)
	}
	return len(expired), nil
}

func copyIdempotencyRecord(src domain.IdempotencyRecord) domain.IdempotencyRecord {
	dst := src
	dst.ResponseBody = append([]byte(nil), src.ResponseBody...)
	return dst
}

var _ domain.IdempotencyRepository = (*idempotencyRepositoryInMemory)(nil)
