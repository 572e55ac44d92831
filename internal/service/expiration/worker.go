// Package expiration переводит просроченные транзакции в статус Expired.
package expiration

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/placeorder/internal/domain"
)

const defaultInterval = 10 * time.Second

var transactionsExpired = promauto.NewCounter(prometheus.CounterOpts{
	Name: "placeorder_transactions_expired_total",
	Help: "Total number of in-progress transactions moved to Expired.",
})

// Option настраивает Worker.
type Option func(*Worker)

// WithLogger задаёт logger для воркера.
func WithLogger(logger *log.Entry) Option {
	return func(w *Worker) {
		w.logger = logger
	}
}

// WithInterval задаёт интервал между проверками.
func WithInterval(interval time.Duration) Option {
	return func(w *Worker) {
		if interval > 0 {
			w.interval = interval
		}
	}
}

// WithClock подменяет источник времени.
func WithClock(clock func() time.Time) Option {
	return func(w *Worker) {
		w.clock = clock
	}
}

// WithTimeline включает запись события TransactionExpired.
func WithTimeline(timeline domain.TimelineRepository) Option {
	return func(w *Worker) {
		w.timeline = timeline
	}
}

// Worker периодически вызывает MakeExpired.
type Worker struct {
	repo     domain.TransactionRepository
	timeline domain.TimelineRepository
	logger   *log.Entry
	clock    func() time.Time
	interval time.Duration
}

// NewWorker создаёт воркер истечения транзакций.
func NewWorker(repo domain.TransactionRepository, options ...Option) *Worker {
	w := &Worker{
		repo:     repo,
		logger:   log.WithField("component", "expiration-worker"),
		clock:    func() time.Time { return time.Now().UTC() },
		interval: defaultInterval,
	}
	for _, option := range options {
		option(w)
	}
	return w
}

// Run запускает проверки до отмены ctx.
func (w *Worker) Run(ctx context.Context) {
	if w.repo == nil {
		w.logger.Warn("expiration worker is disabled: repo is nil")
		return
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.ExpireOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.ExpireOnce(ctx)
		}
	}
}

// ExpireOnce переводит в Expired все транзакции, чей expires раньше текущего момента.
func (w *Worker) ExpireOnce(ctx context.Context) []string {
	if ctx.Err() != nil {
		return nil
	}

	now := w.clock()
	ids, err := w.repo.MakeExpired(ctx, now)
	if err != nil {
		w.logger.WithError(err).Warn("failed to expire transactions")
		return nil
	}
	if len(ids) == 0 {
		return nil
	}

	transactionsExpired.Add(float64(len(ids)))
	if w.timeline != nil {
		for _, id := range ids {
			if err := w.timeline.Append(ctx, domain.TimelineEvent{
				TransactionID: id,
				Type:          domain.TimelineTransactionExpired,
				Occurred:      now,
			}); err != nil {
				w.logger.WithError(err).WithField("transaction_id", id).Warn("failed to append timeline event")
			}
		}
	}
	w.logger.WithField("expired", len(ids)).Info("transactions expired")
	return ids
}
