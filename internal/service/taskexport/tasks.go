package taskexport

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/placeorder/internal/domain"
)

// taskNamespace — пространство имён UUIDv5 для идентификаторов задач.
var taskNamespace = uuid.MustParse("6f1c2a4e-93d7-5b8e-a2f4-0c7d5e9b1a36")

// TaskID детерминированно вычисляет идентификатор задачи, повторная выгрузка даёт те же id.
func TaskID(transactionID string, name domain.TaskName, index int) string {
	return uuid.NewSHA1(taskNamespace, []byte(transactionID+"/"+string(name)+"/"+strconv.Itoa(index))).String()
}

type voidTransactionData struct {
	TransactionID string                   `json:"transactionId"`
	Status        domain.TransactionStatus `json:"status"`
	Purpose       domain.Purpose           `json:"purpose"`
}

// BuildTasks превращает завершённую транзакцию в задачи для внешнего исполнителя.
func BuildTasks(tx domain.Transaction, runsAt time.Time) ([]domain.Task, error) {
	switch tx.Status {
	case domain.TransactionStatusConfirmed:
		return buildConfirmedTasks(tx, runsAt)
	case domain.TransactionStatusExpired, domain.TransactionStatusCanceled:
		data, err := json.Marshal(voidTransactionData{
			TransactionID: tx.ID,
			Status:        tx.Status,
			Purpose:       tx.Purpose(),
		})
		if err != nil {
			return nil, fmt.Errorf("encode void transaction task: %w", err)
		}
		return []domain.Task{newTask(tx.ID, domain.TaskVoidTransaction, 0, runsAt, data)}, nil
	default:
		return nil, fmt.Errorf("transaction %s is not terminal: %s", tx.ID, tx.Status)
	}
}

func buildConfirmedTasks(tx domain.Transaction, runsAt time.Time) ([]domain.Task, error) {
	if tx.PotentialActions == nil {
		return nil, fmt.Errorf("confirmed transaction %s has no potential actions", tx.ID)
	}
	actions := tx.PotentialActions.Order.PotentialActions

	tasks := make([]domain.Task, 0, len(actions.PayCreditCard)+len(actions.ConfirmReservation)+len(actions.InformOrder)+1)
	add := func(name domain.TaskName, index int, payload any) error {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode %s task: %w", name, err)
		}
		tasks = append(tasks, newTask(tx.ID, name, index, runsAt, data))
		return nil
	}

	for i, pay := range actions.PayCreditCard {
		if err := add(domain.TaskPayCreditCard, i, pay); err != nil {
			return nil, err
		}
	}
	for i, confirm := range actions.ConfirmReservation {
		if err := add(domain.TaskConfirmReservation, i, confirm); err != nil {
			return nil, err
		}
	}
	for i, inform := range actions.InformOrder {
		if err := add(domain.TaskInformOrder, i, inform); err != nil {
			return nil, err
		}
	}
	if err := add(domain.TaskSendOrder, 0, actions.SendOrder); err != nil {
		return nil, err
	}
	return tasks, nil
}

func newTask(transactionID string, name domain.TaskName, index int, runsAt time.Time, data json.RawMessage) domain.Task {
	return domain.Task{
		ID:            TaskID(transactionID, name, index),
		Name:          name,
		TransactionID: transactionID,
		RunsAt:        runsAt,
		Data:          data,
	}
}
