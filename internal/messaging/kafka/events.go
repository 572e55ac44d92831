package kafka

import (
	"encoding/json"
	"time"

	"github.com/vladislavdragonenkov/placeorder/internal/domain"
)

// Топики по умолчанию.
const (
	TopicTasks           = "placeorder.tasks"
	TopicDeadLetterQueue = "placeorder.tasks.dlq"
)

// Заголовки сообщений с задачами.
const (
	HeaderTaskID        = "x-task-id"
	HeaderTaskName      = "x-task-name"
	HeaderRetryCount    = "x-retry-count"
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
)

// TaskEnvelope — формат задачи в топике.
type TaskEnvelope struct {
	ID            string          `json:"id"`
	Name          domain.TaskName `json:"name"`
	TransactionID string          `json:"transaction_id"`
	RunsAt        time.Time       `json:"runs_at"`
	Data          json.RawMessage `json:"data"`
	PublishedAt   time.Time       `json:"published_at"`
}

// NewTaskEnvelope оборачивает задачу для публикации.
func NewTaskEnvelope(task domain.Task, publishedAt time.Time) TaskEnvelope {
	data := task.Data
	if len(data) == 0 {
		data = json.RawMessage(`{}`)
	}
	return TaskEnvelope{
		ID:            task.ID,
		Name:          task.Name,
		TransactionID: task.TransactionID,
		RunsAt:        task.RunsAt,
		Data:          data,
		PublishedAt:   publishedAt,
	}
}
