package domain

import "time"

// Типы событий жизненного цикла транзакции.
const (
	TimelineTransactionStarted   = "TransactionStarted"
	TimelineCustomerContactSet   = "CustomerContactSet"
	TimelineTransactionConfirmed = "TransactionConfirmed"
	TimelineTransactionExpired   = "TransactionExpired"
	TimelineTasksExported        = "TasksExported"
)

// TimelineEvent описывает событие в жизненном цикле транзакции.
type TimelineEvent struct {
	TransactionID string    `json:"transactionId"`
	Type          string    `json:"type"`
	Reason        string    `json:"reason,omitempty"`
	Occurred      time.Time `json:"occurred"`
}
