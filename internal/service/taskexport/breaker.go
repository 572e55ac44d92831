package taskexport

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
)

// CircuitState — состояние circuit breaker.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

var circuitStateGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "placeorder_task_export_circuit_state",
	Help: "Task export circuit breaker state: 0 closed, 1 open, 2 half-open.",
})

// CircuitBreaker останавливает захват транзакций, пока брокер задач недоступен.
// После maxFailures подряд неудачных публикаций цикл выгрузки пропускается до
// истечения resetTimeout, затем одна пробная транзакция решает, закрыть ли цепь.
type CircuitBreaker struct {
	mu           sync.Mutex
	maxFailures  int
	resetTimeout time.Duration
	clock        func() time.Time
	logger       *log.Entry

	failures    int
	lastFailure time.Time
	state       CircuitState
}

// NewCircuitBreaker создаёт новый circuit breaker.
func NewCircuitBreaker(maxFailures int, resetTimeout time.Duration, logger *log.Entry) *CircuitBreaker {
	if logger == nil {
		logger = log.WithField("component", "task-export-breaker")
	}
	if maxFailures <= 0 {
		maxFailures = 1
	}

	return &CircuitBreaker{
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		clock:        time.Now,
		logger:       logger,
		state:        CircuitClosed,
	}
}

// Allow сообщает, можно ли начинать цикл выгрузки.
func (cb *CircuitBreaker) Allow() bool {
	if cb == nil {
		return true
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != CircuitOpen {
		return true
	}
	if cb.clock().Sub(cb.lastFailure) < cb.resetTimeout {
		return false
	}
	cb.setState(CircuitHalfOpen)
	cb.logger.Info("circuit breaker half-open")
	return true
}

// Record учитывает результат публикации.
func (cb *CircuitBreaker) Record(err error) {
	if cb == nil {
		return
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err == nil {
		if cb.state == CircuitHalfOpen {
			cb.logger.Info("circuit breaker closed")
		}
		cb.failures = 0
		cb.setState(CircuitClosed)
		return
	}

	cb.failures++
	cb.lastFailure = cb.clock()
	if cb.state == CircuitHalfOpen || cb.failures >= cb.maxFailures {
		if cb.state != CircuitOpen {
			cb.logger.WithField("failures", cb.failures).Warn("circuit breaker opened")
		}
		cb.setState(CircuitOpen)
	}
}

// State возвращает текущее состояние.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) setState(state CircuitState) {
	cb.state = state
	circuitStateGauge.Set(float64(state))
}
