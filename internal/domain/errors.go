package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrArgument означает, что входные или производные данные не прошли проверку.
	ErrArgument = errors.New("argument invalid")
	// ErrForbidden означает, что агент не владеет транзакцией.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound означает отсутствие сущности или её неожиданный статус.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyInUse означает нарушение уникальности; для вызывающей стороны это "уже сделано".
	ErrAlreadyInUse = errors.New("already in use")
	// ErrDuplicateKey возвращается хранилищем при нарушении уникального индекса.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrIdempotencyKeyAlreadyExists: ключ агента для операции уже занят тем же запросом.
	ErrIdempotencyKeyAlreadyExists = errors.New("idempotency key already exists")
	// ErrIdempotencyScopeInvalid: не задан ключ, агент, операция или хеш запроса.
	ErrIdempotencyScopeInvalid = errors.New("idempotency scope is invalid")
	// ErrIdempotencyRecordNotFound: записи нет или она уже не в обработке.
	ErrIdempotencyRecordNotFound = errors.New("idempotency record not found")
	// ErrIdempotencyHashMismatch: ключ переиспользован с другим телом запроса.
	ErrIdempotencyHashMismatch = errors.New("idempotency key reused with different request")
	// ErrTaskPublish — ошибка при публикации задачи.
	ErrTaskPublish = errors.New("task publish failed")
)

// Error несёт вид ошибки и поля, которые её вызвали.
type Error struct {
	Kind    error
	Entity  string
	Fields  []string
	Message string
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Entity != "" {
		b.WriteString(": ")
		b.WriteString(e.Entity)
	}
	if len(e.Fields) > 0 {
		fmt.Fprintf(&b, " [%s]", strings.Join(e.Fields, ","))
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

// Unwrap позволяет errors.Is сравнивать с sentinel-ошибками вида.
func (e *Error) Unwrap() error {
	return e.Kind
}

// NewArgumentError создаёт ошибку ArgumentInvalid для поля field.
func NewArgumentError(field, message string) error {
	return &Error{Kind: ErrArgument, Entity: field, Fields: []string{field}, Message: message}
}

// NewForbiddenError создаёт ошибку Forbidden.
func NewForbiddenError(message string) error {
	return &Error{Kind: ErrForbidden, Message: message}
}

// NewNotFoundError создаёт ошибку NotFound для сущности entity.
func NewNotFoundError(entity, message string) error {
	return &Error{Kind: ErrNotFound, Entity: entity, Message: message}
}

// NewAlreadyInUseError создаёт ошибку AlreadyInUse с перечнем конфликтующих полей.
func NewAlreadyInUseError(entity string, fields []string, message string) error {
	return &Error{Kind: ErrAlreadyInUse, Entity: entity, Fields: fields, Message: message}
}

// IsArgument проверяет, что ошибка относится к ArgumentInvalid.
func IsArgument(err error) bool {
	return errors.Is(err, ErrArgument)
}

// IsForbidden проверяет, что ошибка относится к Forbidden.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// IsNotFound проверяет, что ошибка относится к NotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyInUse проверяет, что ошибка относится к AlreadyInUse.
func IsAlreadyInUse(err error) bool {
	return errors.Is(err, ErrAlreadyInUse)
}

// IsDuplicateKey проверяет, что хранилище отклонило запись по уникальному индексу.
func IsDuplicateKey(err error) bool {
	return errors.Is(err, ErrDuplicateKey)
}

// IsIdempotencyConflict проверяет конфликт ключа идемпотентности.
func IsIdempotencyConflict(err error) bool {
	return errors.Is(err, ErrIdempotencyKeyAlreadyExists) || errors.Is(err, ErrIdempotencyHashMismatch)
}

// FieldsOf возвращает поля структурированной ошибки или nil.
func FieldsOf(err error) []string {
	var de *Error
	if errors.As(err, &de) {
		return de.Fields
	}
	return nil
}
