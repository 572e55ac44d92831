package memory

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/placeorder/internal/domain"
)

type paymentNoRepositoryInMemory struct {
	mu       sync.Mutex
	counters map[string]int64
}

// NewPaymentNoRepository создаёт in-memory счётчик номеров оплаты (для одного процесса).
func NewPaymentNoRepository() domain.PaymentNoRepository {
	return &paymentNoRepositoryInMemory{counters: make(map[string]int64)}
}

func (r *paymentNoRepositoryInMemory) Publish(_ context.Context, scope string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.counters[scope]++
	return domain.FormatPaymentNo(r.counters[scope]), nil
}

var _ domain.PaymentNoRepository = (*paymentNoRepositoryInMemory)(nil)
