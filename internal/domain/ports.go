package domain

import (
	"context"
	"time"
)

// TransactionRepository — хранилище транзакций. Все изменения адресуют транзакцию по id и ожидаемому статусу.
type TransactionRepository interface {
	// Start сохраняет новую транзакцию InProgress. ErrDuplicateKey, если паспорт уже использован.
	Start(ctx context.Context, tx Transaction) (Transaction, error)
	// FindByID возвращает транзакцию в любом статусе или ErrNotFound.
	FindByID(ctx context.Context, typeOf TransactionType, id string) (Transaction, error)
	// FindInProgressByID возвращает транзакцию InProgress или ErrNotFound.
	FindInProgressByID(ctx context.Context, typeOf TransactionType, id string) (Transaction, error)
	// UpdateCustomerProfile меняет только профиль агента транзакции InProgress.
	UpdateCustomerProfile(ctx context.Context, typeOf TransactionType, id string, profile CustomerProfile) error
	// Confirm атомарно переводит InProgress в Confirmed. ErrDuplicateKey при повторе номера заказа.
	Confirm(ctx context.Context, params ConfirmTransactionParams) (Transaction, error)
	// MakeExpired переводит просроченные транзакции InProgress в Expired и возвращает их идентификаторы.
	MakeExpired(ctx context.Context, now time.Time) ([]string, error)
	// StartExportTasks захватывает завершённые транзакции с невыгруженными задачами.
	StartExportTasks(ctx context.Context, limit int) ([]Transaction, error)
	// ReexportTasks возвращает в очередь захваты, не завершённые до olderThan.
	ReexportTasks(ctx context.Context, olderThan time.Time) (int, error)
	// SetTasksExported отмечает успешную выгрузку задач.
	SetTasksExported(ctx context.Context, id string, exportedAt time.Time) error
	// SetTasksExportationFailed отмечает неудачную выгрузку.
	SetTasksExportationFailed(ctx context.Context, id string) error
	// TasksBacklog возвращает размер очереди на выгрузку вместе с захваченными транзакциями.
	TasksBacklog(ctx context.Context) (TasksBacklog, error)
}

// ActionRepository — хранилище авторизаций.
type ActionRepository interface {
	// Save создаёт или заменяет авторизацию.
	Save(ctx context.Context, action AuthorizeAction) error
	// SearchByPurpose возвращает авторизации транзакции в порядке начала.
	SearchByPurpose(ctx context.Context, purpose Purpose) ([]AuthorizeAction, error)
}

// SellerRepository — справочник продавцов.
type SellerRepository interface {
	Save(ctx context.Context, seller Seller) error
	FindByIdentifier(ctx context.Context, identifier string) (Seller, error)
}

// PaymentNoRepository выдаёт номера оплаты в пределах дня.
type PaymentNoRepository interface {
	// Publish атомарно выдаёт следующий номер для scope (YYYYMMDD).
	Publish(ctx context.Context, scope string) (string, error)
}

// TokenRepository выдаёт токены печати билетов.
type TokenRepository interface {
	CreatePrintToken(ctx context.Context, reservationIDs []string) (string, error)
	VerifyPrintToken(ctx context.Context, token string) ([]string, error)
	DeleteExpired(ctx context.Context, before time.Time, limit int) (int, error)
}

// PassportVerifier проверяет паспорт внешней очереди.
type PassportVerifier interface {
	Verify(ctx context.Context, token string) (Passport, error)
}

// TaskPublisher передаёт задачи внешнему исполнителю; должен быть идемпотентным по Task.ID.
type TaskPublisher interface {
	Publish(ctx context.Context, task Task) error
}

// TimelineRepository хранит события жизненного цикла транзакции.
type TimelineRepository interface {
	Append(ctx context.Context, event TimelineEvent) error
	List(ctx context.Context, transactionID string) ([]TimelineEvent, error)
}

// IdempotencyRepository хранит ответы start/confirm по ключу агента.
type IdempotencyRepository interface {
	// Reserve занимает ключ записью в стадии processing (Scope, RequestHash, ExpiresAt и
	// необязательный TransactionID берутся из draft). Если ключ занят, возвращает существующую
	// запись вместе с ErrIdempotencyKeyAlreadyExists или ErrIdempotencyHashMismatch.
	Reserve(ctx context.Context, draft IdempotencyRecord) (IdempotencyRecord, error)
	// Complete сохраняет итог запроса, занятого Reserve.
	Complete(ctx context.Context, scope IdempotencyScope, outcome IdempotencyOutcome) error
	// Release освобождает ключ, чей запрос не дошёл до итога, чтобы клиент мог повторить.
	Release(ctx context.Context, scope IdempotencyScope) error
	DeleteExpired(ctx context.Context, before time.Time, limit int) (int, error)
}
