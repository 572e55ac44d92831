package domain

import (
	"encoding/json"
	"time"
)

// TaskName — вид задачи для внешнего исполнителя.
type TaskName string

const (
	TaskPayCreditCard      TaskName = "payCreditCard"
	TaskConfirmReservation TaskName = "confirmReservation"
	TaskInformOrder        TaskName = "informOrder"
	TaskSendOrder          TaskName = "sendOrder"
	TaskVoidTransaction    TaskName = "voidTransaction"
)

// Task — сериализуемая команда для асинхронного исполнителя.
type Task struct {
	ID            string          `json:"id"`
	Name          TaskName        `json:"name"`
	TransactionID string          `json:"transactionId"`
	RunsAt        time.Time       `json:"runsAt"`
	Data          json.RawMessage `json:"data"`
}

// TasksBacklog описывает транзакции, ожидающие выгрузки задач.
// PendingCount включает ExportingCount.
type TasksBacklog struct {
	PendingCount    int
	ExportingCount  int
	OldestPendingAt time.Time
}
