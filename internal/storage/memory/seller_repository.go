package memory

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/placeorder/internal/domain"
)

type sellerRepositoryInMemory struct {
	mu           sync.RWMutex
	byIdentifier map[string]domain.Seller
}

// NewSellerRepository создаёт in-memory справочник продавцов.
func NewSellerRepository(sellers ...domain.Seller) domain.SellerRepository {
	r := &sellerRepositoryInMemory{byIdentifier: make(map[string]domain.Seller)}
	for _, seller := range sellers {
		r.byIdentifier[seller.Identifier] = seller
	}
	return r
}

func (r *sellerRepositoryInMemory) Save(_ context.Context, seller domain.Seller) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byIdentifier[seller.Identifier] = seller
	return nil
}

func (r *sellerRepositoryInMemory) FindByIdentifier(_ context.Context, identifier string) (domain.Seller, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seller, ok := r.byIdentifier[identifier]
	if !ok {
		return domain.Seller{}, domain.NewNotFoundError("Seller", "seller not found")
	}
	return seller, nil
}

var _ domain.SellerRepository = (*sellerRepositoryInMemory)(nil)
