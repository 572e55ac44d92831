package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/placeorder/internal/domain"
)

type actionRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.AuthorizeAction
}

// NewActionRepository создаёт in-memory хранилище авторизаций.
func NewActionRepository() domain.ActionRepository {
	return &actionRepositoryInMemory{items: make(map[string]domain.AuthorizeAction)}
}

func (r *actionRepositoryInMemory) Save(_ context.Context, action domain.AuthorizeAction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[action.ID] = action
	return nil
}

func (r *actionRepositoryInMemory) SearchByPurpose(_ context.Context, purpose domain.Purpose) ([]domain.AuthorizeAction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.AuthorizeAction, 0)
	for _, action := range r.items {
		if action.Purpose == purpose {
			result = append(result, action)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].StartDate.Equal(result[j].StartDate) {
			return result[i].ID < result[j].ID
		}
		return result[i].StartDate.Before(result[j].StartDate)
	})
	return result, nil
}

var _ domain.ActionRepository = (*actionRepositoryInMemory)(nil)
