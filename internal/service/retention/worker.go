// Package retention периодически удаляет устаревшие служебные записи: ключи идемпотентности
// HTTP API и просроченные токены печати.
package retention

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
)

const (
	defaultInterval  = time.Minute
	defaultBatchSize = 500
)

var (
	sweepRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "placeorder_retention_runs_total",
		Help: "Total number of retention sweeps grouped by sweep and result.",
	}, []string{"sweep", "result"})
	sweepDeletedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "placeorder_retention_deleted_total",
		Help: "Total number of expired records deleted by retention sweeps.",
	}, []string{"sweep"})
)

// Purger удаляет до limit записей, устаревших к before, и возвращает их число.
type Purger interface {
	DeleteExpired(ctx context.Context, before time.Time, limit int) (int, error)
}

// Sweep — категория записей под очисткой.
type Sweep struct {
	Name   string
	Purger Purger
}

// Option настраивает Worker.
type Option func(*Worker)

// WithLogger задаёт логгер.
func WithLogger(logger *log.Entry) Option {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithClock подменяет источник времени.
func WithClock(clock func() time.Time) Option {
	return func(w *Worker) {
		if clock != nil {
			w.clock = clock
		}
	}
}

// WithInterval задаёт паузу между проходами.
func WithInterval(interval time.Duration) Option {
	return func(w *Worker) {
		if interval > 0 {
			w.interval = interval
		}
	}
}

// WithBatchSize ограничивает число записей, удаляемых одним вызовом Purger.
func WithBatchSize(size int) Option {
	return func(w *Worker) {
		if size > 0 {
			w.batchSize = size
		}
	}
}

// Worker по таймеру проходит все Sweep.
type Worker struct {
	sweeps    []Sweep
	logger    *log.Entry
	clock     func() time.Time
	interval  time.Duration
	batchSize int
}

// NewWorker создаёт воркер. Sweep без Purger пропускаются.
func NewWorker(sweeps []Sweep, opts ...Option) *Worker {
	w := &Worker{
		logger:    log.WithField("component", "retention-worker"),
		clock:     func() time.Time { return time.Now().UTC() },
		interval:  defaultInterval,
		batchSize: defaultBatchSize,
	}
	for _, sweep := range sweeps {
		if sweep.Purger != nil {
			w.sweeps = append(w.sweeps, sweep)
		}
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Names возвращает имена активных Sweep.
func (w *Worker) Names() []string {
	names := make([]string, 0, len(w.sweeps))
	for _, sweep := range w.sweeps {
		names = append(names, sweep.Name)
	}
	return names
}

// Run проходит Sweep сразу и затем каждые interval до отмены ctx.
func (w *Worker) Run(ctx context.Context) {
	if len(w.sweeps) == 0 {
		w.logger.Warn("retention worker has nothing to sweep")
		return
	}

	w.logResult(w.SweepOnce(ctx))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.logResult(w.SweepOnce(ctx))
		}
	}
}

// SweepOnce очищает все категории на текущий момент. Ошибка одной категории не
// останавливает остальные; ошибки объединяются.
func (w *Worker) SweepOnce(ctx context.Context) (map[string]int, error) {
	before := w.clock()
	deleted := make(map[string]int, len(w.sweeps))
	var errs []error

	for _, sweep := range w.sweeps {
		n, err := w.drain(ctx, sweep, before)
		deleted[sweep.Name] = n
		if n > 0 {
			sweepDeletedTotal.WithLabelValues(sweep.Name).Add(float64(n))
		}
		if err != nil {
			if ctx.Err() != nil {
				return deleted, ctx.Err()
			}
			sweepRunsTotal.WithLabelValues(sweep.Name, "error").Inc()
			errs = append(errs, fmt.Errorf("%s: %w", sweep.Name, err))
			continue
		}
		sweepRunsTotal.WithLabelValues(sweep.Name, "ok").Inc()
	}

	return deleted, errors.Join(errs...)
}

// drain вызывает Purger, пока он возвращает полные порции.
func (w *Worker) drain(ctx context.Context, sweep Sweep, before time.Time) (int, error) {
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := sweep.Purger.DeleteExpired(ctx, before, w.batchSize)
		total += n
		if err != nil {
			return total, err
		}
		if n < w.batchSize {
			return total, nil
		}
	}
}

func (w *Worker) logResult(deleted map[string]int, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	if err != nil {
		w.logger.WithError(err).Warn("retention sweep failed")
	}
	for name, n := range deleted {
		if n > 0 {
			w.logger.WithFields(log.Fields{"sweep": name, "deleted": n}).Info("expired records deleted")
		}
	}
}
