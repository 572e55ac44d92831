package kafka

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/vladislavdragonenkov/placeorder/internal/domain"
)

// TaskPublisher публикует задачи транзакций. Ключ сообщения равен идентификатору транзакции,
// задачи одной транзакции попадают в одну партицию.
type TaskPublisher struct {
	producer *Producer
	topic    string
	dlqTopic string
}

// NewTaskPublisher создаёт паблишер задач. Пустые топики заменяются значениями по умолчанию.
func NewTaskPublisher(producer *Producer, topic, dlqTopic string) *TaskPublisher {
	if topic == "" {
		topic = TopicTasks
	}
	if dlqTopic == "" {
		dlqTopic = TopicDeadLetterQueue
	}
	return &TaskPublisher{producer: producer, topic: topic, dlqTopic: dlqTopic}
}

// Publish отправляет задачу в основной топик.
func (p *TaskPublisher) Publish(ctx context.Context, task domain.Task) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("%w: kafka task publisher is not initialized", domain.ErrTaskPublish)
	}

	headers := map[string]string{
		HeaderTaskID:   task.ID,
		HeaderTaskName: string(task.Name),
	}
	if err := p.producer.Publish(ctx, p.topic, task.TransactionID, NewTaskEnvelope(task, time.Now().UTC()), headers); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTaskPublish, err)
	}
	return nil
}

// PublishDeadLetter отправляет задачу, исчерпавшую попытки, в DLQ с причиной отказа.
func (p *TaskPublisher) PublishDeadLetter(ctx context.Context, task domain.Task, attempts int, cause error) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("kafka task publisher is not initialized")
	}

	now := time.Now().UTC()
	headers := map[string]string{
		HeaderTaskID:        task.ID,
		HeaderTaskName:      string(task.Name),
		HeaderRetryCount:    strconv.Itoa(attempts),
		HeaderOriginalTopic: p.topic,
		HeaderFailedAt:      now.Format(time.RFC3339),
	}
	if cause != nil {
		headers[HeaderErrorMessage] = cause.Error()
	}
	return p.producer.Publish(ctx, p.dlqTopic, task.TransactionID, NewTaskEnvelope(task, now), headers)
}

var _ domain.TaskPublisher = (*TaskPublisher)(nil)
