package taskexport

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestBreaker(maxFailures int, reset time.Duration) (*CircuitBreaker, *time.Time) {
	now := testNow
	cb := NewCircuitBreaker(maxFailures, reset, nil)
	cb.clock = func() time.Time { return now }
	return cb, &now
}

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	cb, _ := newTestBreaker(2, time.Minute)
	boom := errors.New("broker down")

	cb.Record(boom)
	assert.Equal(t, CircuitClosed, cb.State())
	assert.True(t, cb.Allow())

	cb.Record(boom)
	assert.Equal(t, CircuitOpen, cb.State())
	assert.False(t, cb.Allow())
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb, _ := newTestBreaker(2, time.Minute)

	cb.Record(errors.New("timeout"))
	cb.Record(nil)
	cb.Record(errors.New("timeout"))

	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenAfterResetTimeout(t *testing.T) {
	cb, now := newTestBreaker(1, time.Minute)

	cb.Record(errors.New("broker down"))
	assert.False(t, cb.Allow())

	*now = now.Add(time.Minute)
	assert.True(t, cb.Allow())
	assert.Equal(t, CircuitHalfOpen, cb.State())

	// Ошибка в half-open сразу возвращает цепь в open.
	cb.Record(errors.New("still down"))
	assert.Equal(t, CircuitOpen, cb.State())
	assert.False(t, cb.Allow())

	*now = now.Add(time.Minute)
	assert.True(t, cb.Allow())
	cb.Record(nil)
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitBreaker_NilIsAlwaysClosed(t *testing.T) {
	var cb *CircuitBreaker
	assert.True(t, cb.Allow())
	cb.Record(errors.New("ignored"))
}

func TestCircuitState_String(t *testing.T) {
	assert.Equal(t, "closed", CircuitClosed.String())
	assert.Equal(t, "open", CircuitOpen.String())
	assert.Equal(t, "half-open", CircuitHalfOpen.String())
	assert.Equal(t, "unknown", CircuitState(7).String())
}
