// Package taskexport выгружает задачи завершённых транзакций во внешнюю очередь.
package taskexport

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/placeorder/internal/domain"
)

const (
	defaultPollInterval   = 1 * time.Second
	defaultBatchSize      = 100
	defaultMaxAttempts    = 3
	defaultRetryBaseDelay = 50 * time.Millisecond
	defaultReexportAfter  = 10 * time.Minute
)

var (
	taskPublishAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "placeorder_task_publish_attempts_total",
		Help: "Total number of task publish attempts grouped by result.",
	}, []string{"result"})
	transactionsExported = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "placeorder_transactions_exported_total",
		Help: "Total number of transactions whose tasks were exported, grouped by outcome.",
	}, []string{"outcome"})
	tasksPendingTransactions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "placeorder_tasks_pending_transactions",
		Help: "Current number of terminal transactions waiting for task export.",
	})
	tasksExportingTransactions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "placeorder_tasks_exporting_transactions",
		Help: "Current number of transactions claimed for task export and not yet marked.",
	})
	tasksReexported = promauto.NewCounter(prometheus.CounterOpts{
		Name: "placeorder_tasks_reexported_total",
		Help: "Total number of stale export claims returned to the queue.",
	})
	tasksOldestPendingAge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "placeorder_tasks_oldest_pending_age_seconds",
		Help: "Age in seconds of the oldest transaction waiting for task export.",
	})
)

// DeadLetterPublisher принимает задачи, которые не удалось опубликовать.
type DeadLetterPublisher interface {
	PublishDeadLetter(ctx context.Context, task domain.Task, attempts int, cause error) error
}

// WorkerOptions задаёт параметры воркера выгрузки.
type WorkerOptions struct {
	Logger         *log.Entry
	DLQPublisher   DeadLetterPublisher
	Timeline       domain.TimelineRepository
	Clock          func() time.Time
	PollInterval   time.Duration
	BatchSize      int
	MaxAttempts    int
	RetryBaseDelay time.Duration
	ReexportAfter  time.Duration
	Breaker        *CircuitBreaker
}

// Option настраивает Worker.
type Option func(*WorkerOptions)

// WithLogger задаёт logger для воркера.
func WithLogger(logger *log.Entry) Option {
	return func(opts *WorkerOptions) {
		opts.Logger = logger
	}
}

// WithDLQPublisher задаёт получателя задач после исчерпания retry.
func WithDLQPublisher(publisher DeadLetterPublisher) Option {
	return func(opts *WorkerOptions) {
		opts.DLQPublisher = publisher
	}
}

// WithTimeline включает запись события TasksExported.
func WithTimeline(timeline domain.TimelineRepository) Option {
	return func(opts *WorkerOptions) {
		opts.Timeline = timeline
	}
}

// WithClock подменяет источник времени.
func WithClock(clock func() time.Time) Option {
	return func(opts *WorkerOptions) {
		opts.Clock = clock
	}
}

// WithPollInterval задаёт частоту опроса.
func WithPollInterval(interval time.Duration) Option {
	return func(opts *WorkerOptions) {
		opts.PollInterval = interval
	}
}

// WithBatchSize задаёт число транзакций, захватываемых за цикл.
func WithBatchSize(batchSize int) Option {
	return func(opts *WorkerOptions) {
		opts.BatchSize = batchSize
	}
}

// WithMaxAttempts задаёт число попыток публикации задачи.
func WithMaxAttempts(maxAttempts int) Option {
	return func(opts *WorkerOptions) {
		opts.MaxAttempts = maxAttempts
	}
}

// WithRetryBaseDelay задаёт базовый delay для exponential backoff.
func WithRetryBaseDelay(delay time.Duration) Option {
	return func(opts *WorkerOptions) {
		opts.RetryBaseDelay = delay
	}
}

// WithReexportAfter задаёт, через сколько незавершённый захват возвращается в очередь.
func WithReexportAfter(after time.Duration) Option {
	return func(opts *WorkerOptions) {
		opts.ReexportAfter = after
	}
}

// WithCircuitBreaker приостанавливает захват транзакций при серии неудачных публикаций.
func WithCircuitBreaker(breaker *CircuitBreaker) Option {
	return func(opts *WorkerOptions) {
		opts.Breaker = breaker
	}
}

// Worker забирает завершённые транзакции и публикует их задачи.
type Worker struct {
	repo           domain.TransactionRepository
	publisher      domain.TaskPublisher
	dlqPublisher   DeadLetterPublisher
	timeline       domain.TimelineRepository
	logger         *log.Entry
	clock          func() time.Time
	pollInterval   time.Duration
	batchSize      int
	maxAttempts    int
	retryBaseDelay time.Duration
	reexportAfter  time.Duration
	breaker        *CircuitBreaker
}

// NewWorker создаёт воркер выгрузки задач.
func NewWorker(repo domain.TransactionRepository, publisher domain.TaskPublisher, options ...Option) *Worker {
	opts := WorkerOptions{
		PollInterval:   defaultPollInterval,
		BatchSize:      defaultBatchSize,
		MaxAttempts:    defaultMaxAttempts,
		RetryBaseDelay: defaultRetryBaseDelay,
		ReexportAfter:  defaultReexportAfter,
	}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "task-export-worker")
	}
	clock := opts.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}

	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.RetryBaseDelay < 0 {
		opts.RetryBaseDelay = 0
	}
	if opts.ReexportAfter <= 0 {
		opts.ReexportAfter = defaultReexportAfter
	}

	return &Worker{
		repo:           repo,
		publisher:      publisher,
		dlqPublisher:   opts.DLQPublisher,
		timeline:       opts.Timeline,
		logger:         logger,
		clock:          clock,
		pollInterval:   opts.PollInterval,
		batchSize:      opts.BatchSize,
		maxAttempts:    opts.MaxAttempts,
		retryBaseDelay: opts.RetryBaseDelay,
		reexportAfter:  opts.ReexportAfter,
		breaker:        opts.Breaker,
	}
}

// Run запускает периодическую выгрузку до отмены ctx.
func (w *Worker) Run(ctx context.Context) {
	if w.repo == nil || w.publisher == nil {
		w.logger.Warn("task export worker is disabled: repo or publisher is nil")
		return
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.ProcessOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.ProcessOnce(ctx)
		}
	}
}

// ProcessOnce выполняет один цикл: возврат зависших захватов, захват, публикация, отметка результата.
func (w *Worker) ProcessOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	w.reexportStale(ctx)
	w.refreshBacklogMetrics(ctx)

	if !w.breaker.Allow() {
		w.logger.Debug("task export paused: circuit breaker is open")
		return
	}

	transactions, err := w.repo.StartExportTasks(ctx, w.batchSize)
	if err != nil {
		w.logger.WithError(err).Warn("failed to claim transactions for task export")
		return
	}
	if len(transactions) == 0 {
		return
	}

	for _, tx := range transactions {
		// Захваченная транзакция доводится до Exported или Failed даже при остановке.
		w.exportTransaction(context.WithoutCancel(ctx), tx)
		if ctx.Err() != nil {
			return
		}
	}

	w.refreshBacklogMetrics(ctx)
}

func (w *Worker) exportTransaction(ctx context.Context, tx domain.Transaction) {
	logger := w.logger.WithFields(log.Fields{
		"transaction_id": tx.ID,
		"status":         tx.Status,
	})

	now := w.clock()
	tasks, err := BuildTasks(tx, now)
	if err != nil {
		logger.WithError(err).Error("failed to build tasks")
		w.markFailed(ctx, logger, tx.ID)
		return
	}

	for _, task := range tasks {
		if err := w.publishWithRetry(ctx, task); err != nil {
			logger.WithError(err).WithFields(log.Fields{
				"task_id":   task.ID,
				"task_name": task.Name,
			}).Error("task publish failed after retries")
			taskPublishAttempts.WithLabelValues("failed").Inc()

			if w.dlqPublisher != nil {
				if dlqErr := w.dlqPublisher.PublishDeadLetter(ctx, task, w.maxAttempts, err); dlqErr != nil {
					logger.WithError(dlqErr).WithField("task_id", task.ID).Warn("failed to publish to DLQ")
					taskPublishAttempts.WithLabelValues("dlq_failed").Inc()
				}
			}
			w.markFailed(ctx, logger, tx.ID)
			return
		}
	}

	if err := w.repo.SetTasksExported(ctx, tx.ID, now); err != nil {
		logger.WithError(err).Warn("failed to mark tasks as exported")
		return
	}
	transactionsExported.WithLabelValues("exported").Inc()

	if w.timeline != nil {
		if err := w.timeline.Append(ctx, domain.TimelineEvent{
			TransactionID: tx.ID,
			Type:          domain.TimelineTasksExported,
			Reason:        fmt.Sprintf("%d tasks", len(tasks)),
			Occurred:      now,
		}); err != nil {
			logger.WithError(err).Warn("failed to append timeline event")
		}
	}
	logger.WithField("tasks", len(tasks)).Info("transaction tasks exported")
}

func (w *Worker) markFailed(ctx context.Context, logger *log.Entry, id string) {
	transactionsExported.WithLabelValues("failed").Inc()
	if err := w.repo.SetTasksExportationFailed(ctx, id); err != nil {
		logger.WithError(err).Warn("failed to mark tasks exportation as failed")
	}
}

func (w *Worker) publishWithRetry(ctx context.Context, task domain.Task) error {
	var lastErr error

	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		err := w.publisher.Publish(ctx, task)
		w.breaker.Record(err)
		if err == nil {
			taskPublishAttempts.WithLabelValues("sent").Inc()
			return nil
		}
		lastErr = err
		taskPublishAttempts.WithLabelValues("retry_error").Inc()

		if attempt >= w.maxAttempts {
			break
		}

		delay := w.retryBackoff(attempt)
		if delay <= 0 {
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("publish failed after %d attempts: %w", w.maxAttempts, lastErr)
}

// reexportStale возвращает в очередь транзакции, захваченные экземпляром, который не отметил результат.
func (w *Worker) reexportStale(ctx context.Context) {
	n, err := w.repo.ReexportTasks(ctx, w.clock().Add(-w.reexportAfter))
	if err != nil {
		w.logger.WithError(err).Warn("failed to reexport stale task claims")
		return
	}
	if n > 0 {
		tasksReexported.Add(float64(n))
		w.logger.WithField("transactions", n).Warn("stale task export claims returned to queue")
	}
}

func (w *Worker) refreshBacklogMetrics(ctx context.Context) {
	backlog, err := w.repo.TasksBacklog(ctx)
	if err != nil {
		w.logger.WithError(err).Warn("failed to collect task export backlog")
		return
	}

	tasksPendingTransactions.Set(float64(backlog.PendingCount))
	tasksExportingTransactions.Set(float64(backlog.ExportingCount))
	if backlog.PendingCount == 0 || backlog.OldestPendingAt.IsZero() {
		tasksOldestPendingAge.Set(0)
		return
	}

	age := w.clock().Sub(backlog.OldestPendingAt).Seconds()
	if age < 0 {
		age = 0
	}
	tasksOldestPendingAge.Set(age)
}

func (w *Worker) retryBackoff(attempt int) time.Duration {
	if w.retryBaseDelay <= 0 {
		return 0
	}

	const maxDuration = time.Duration(1<<63 - 1)
	delay := w.retryBaseDelay
	for i := 1; i < attempt; i++ {
		if delay > maxDuration/2 {
			return maxDuration
		}
		delay *= 2
	}
	return delay
}
