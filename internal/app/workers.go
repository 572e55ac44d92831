package app

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/placeorder/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/placeorder/internal/service/expiration"
	"github.com/vladislavdragonenkov/placeorder/internal/service/retention"
	"github.com/vladislavdragonenkov/placeorder/internal/service/taskexport"
)

const (
	workersStopTimeout     = 10 * time.Second
	taskExportCircuitReset = 30 * time.Second
)

// workerGroup — фоновые воркеры сервиса с общей отменой.
type workerGroup struct {
	cancel context.CancelFunc
	wg     sync.WaitGroup
	names  []string
}

func (g *workerGroup) spawn(ctx context.Context, name string, run func(context.Context)) {
	g.names = append(g.names, name)
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		run(ctx)
	}()
}

// startWorkers запускает истечение транзакций, выгрузку задач и очистку устаревших записей.
// Выгрузка задач запускается только при настроенном publisher: без него транзакции
// остаются Unexported и будут выгружены, когда Kafka станет доступна.
func startWorkers(ctx context.Context, cfg Config, deps *runtimeDependencies, publisher *kafka.TaskPublisher, logger *log.Entry) *workerGroup {
	ctx, cancel := context.WithCancel(ctx)
	group := &workerGroup{cancel: cancel}

	expirer := expiration.NewWorker(deps.transactions,
		expiration.WithLogger(logger.WithField("component", "expiration-worker")),
		expiration.WithInterval(cfg.ExpirationInterval),
		expiration.WithTimeline(deps.timeline),
	)
	group.spawn(ctx, "expiration", expirer.Run)

	if publisher != nil {
		exporter := taskexport.NewWorker(deps.transactions, publisher,
			taskexport.WithLogger(logger.WithField("component", "task-export-worker")),
			taskexport.WithDLQPublisher(publisher),
			taskexport.WithTimeline(deps.timeline),
			taskexport.WithPollInterval(cfg.TaskExportInterval),
			taskexport.WithBatchSize(cfg.TaskExportBatchSize),
			taskexport.WithMaxAttempts(cfg.TaskExportMaxAttempts),
			taskexport.WithReexportAfter(cfg.TaskReexportAfter),
			taskexport.WithCircuitBreaker(taskexport.NewCircuitBreaker(
				cfg.TaskExportMaxAttempts,
				taskExportCircuitReset,
				logger.WithField("component", "task-export-breaker"),
			)),
		)
		group.spawn(ctx, "task-export", exporter.Run)
	} else {
		logger.Warn("kafka is not configured, task export worker is not started")
	}

	sweeper := retention.NewWorker([]retention.Sweep{
		{Name: "idempotency", Purger: deps.idempotency},
		{Name: "print_tokens", Purger: deps.tokens},
	},
		retention.WithLogger(logger.WithField("component", "retention-worker")),
		retention.WithInterval(cfg.CleanupInterval),
		retention.WithBatchSize(cfg.CleanupBatchSize),
	)
	group.spawn(ctx, "retention", sweeper.Run)

	logger.WithField("workers", group.names).Info("background workers started")
	return group
}

// stop отменяет воркеры и ждёт их завершения не дольше timeout.
func (g *workerGroup) stop(timeout time.Duration, logger *log.Entry) {
	if g == nil {
		return
	}
	if g.cancel != nil {
		g.cancel()
	}

	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("background workers stopped")
	case <-time.After(timeout):
		logger.WithField("timeout", timeout.String()).Warn("background workers did not stop in time")
	}
}
