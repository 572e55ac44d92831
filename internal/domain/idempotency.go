package domain

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// IdempotencyOperation — операция API, повторы которой защищены Idempotency-Key.
type IdempotencyOperation string

const (
	IdempotencyOperationStart   IdempotencyOperation = "placeOrder.start"
	IdempotencyOperationConfirm IdempotencyOperation = "placeOrder.confirm"
)

// IdempotencyScope — ключ клиента в пределах агента и операции.
// Один и тот же ключ у разных агентов или разных операций означает разные запросы.
type IdempotencyScope struct {
	AgentID   string
	Operation IdempotencyOperation
	Key       string
}

// Normalize убирает пробелы по краям.
func (s IdempotencyScope) Normalize() IdempotencyScope {
	return IdempotencyScope{
		AgentID:   strings.TrimSpace(s.AgentID),
		Operation: IdempotencyOperation(strings.TrimSpace(string(s.Operation))),
		Key:       strings.TrimSpace(s.Key),
	}
}

// Validate проверяет, что все части заданы.
func (s IdempotencyScope) Validate() error {
	switch {
	case s.Key == "":
		return fmt.Errorf("%w: key is empty", ErrIdempotencyScopeInvalid)
	case s.AgentID == "":
		return fmt.Errorf("%w: agent is empty", ErrIdempotencyScopeInvalid)
	case s.Operation == "":
		return fmt.Errorf("%w: operation is empty", ErrIdempotencyScopeInvalid)
	}
	return nil
}

// String используется в логах.
func (s IdempotencyScope) String() string {
	return string(s.Operation) + "/" + s.AgentID + "/" + s.Key
}

// IdempotencyState — стадия обработки запроса с ключом.
type IdempotencyState string

const (
	// IdempotencyStateProcessing: запрос принят, итога ещё нет.
	IdempotencyStateProcessing IdempotencyState = "processing"
	// IdempotencyStateCompleted: операция выполнена, сохранён успешный ответ.
	IdempotencyStateCompleted IdempotencyState = "completed"
	// IdempotencyStateRejected: ядро отклонило запрос, сохранён ответ 4xx.
	IdempotencyStateRejected IdempotencyState = "rejected"
)

// Valid проверяет, что стадия известна.
func (s IdempotencyState) Valid() bool {
	switch s {
	case IdempotencyStateProcessing, IdempotencyStateCompleted, IdempotencyStateRejected:
		return true
	default:
		return false
	}
}

// IdempotencyOutcome — итог запроса, который отдаётся на повторы.
type IdempotencyOutcome struct {
	// TransactionID — транзакция, начатая или подтверждённая запросом.
	TransactionID string
	HTTPStatus    int
	ResponseBody  []byte
}

// State определяет стадию по HTTP-статусу ответа.
func (o IdempotencyOutcome) State() IdempotencyState {
	if o.HTTPStatus >= http.StatusBadRequest {
		return IdempotencyStateRejected
	}
	return IdempotencyStateCompleted
}

// IdempotencyRecord хранит запрос start/confirm и его итог.
type IdempotencyRecord struct {
	Scope         IdempotencyScope
	RequestHash   string
	State         IdempotencyState
	TransactionID string
	HTTPStatus    int
	ResponseBody  []byte
	ExpiresAt     time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Prepare нормализует черновик перед Reserve и проставляет стадию processing.
func (r IdempotencyRecord) Prepare(now time.Time, defaultTTL time.Duration) (IdempotencyRecord, error) {
	r.Scope = r.Scope.Normalize()
	if err := r.Scope.Validate(); err != nil {
		return IdempotencyRecord{}, err
	}
	r.RequestHash = strings.TrimSpace(r.RequestHash)
	if r.RequestHash == "" {
		return IdempotencyRecord{}, fmt.Errorf("%w: request hash is empty", ErrIdempotencyScopeInvalid)
	}
	if r.ExpiresAt.IsZero() {
		r.ExpiresAt = now.Add(defaultTTL)
	}
	r.State = IdempotencyStateProcessing
	r.HTTPStatus = 0
	r.ResponseBody = nil
	r.CreatedAt = now
	r.UpdatedAt = now
	return r, nil
}

// Replayable сообщает, что итог сохранён и его можно отдать повторно.
func (r IdempotencyRecord) Replayable() bool {
	return r.State != IdempotencyStateProcessing && r.HTTPStatus != 0 && len(r.ResponseBody) > 0
}

// Conflict объясняет, почему ключ нельзя занять запросом с хешем requestHash.
func (r IdempotencyRecord) Conflict(requestHash string) error {
	if r.RequestHash != requestHash {
		return ErrIdempotencyHashMismatch
	}
	return ErrIdempotencyKeyAlreadyExists
}

// Apply переносит итог в запись.
func (r IdempotencyRecord) Apply(outcome IdempotencyOutcome, now time.Time) IdempotencyRecord {
	r.State = outcome.State()
	r.HTTPStatus = outcome.HTTPStatus
	r.ResponseBody = append([]byte(nil), outcome.ResponseBody...)
	if outcome.TransactionID != "" {
		r.TransactionID = outcome.TransactionID
	}
	r.UpdatedAt = now
	return r
}
