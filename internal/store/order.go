package store

import (
	"sync"

	"github.com/efreitasn/matchbook/internal/domain"
)

// OrderStore is a thread-safe in-memory store for every order ever
// submitted, terminal orders included. It backs order status queries;
// the book's own index of live resting orders lives in the engine.
type OrderStore struct {
	mu     sync.RWMutex
	orders map[uint64]*domain.Order
}

// NewOrderStore creates an empty OrderStore.
func NewOrderStore() *OrderStore {
	return &OrderStore{
		orders: make(map[uint64]*domain.Order),
	}
}

// Create adds an order to the store.
func (s *OrderStore) Create(o *domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.orders[o.ID] = o
}

// Get retrieves an order by ID. It returns
// domain.ErrOrderNotFound if the order does not exist.
func (s *OrderStore) Get(id uint64) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return o, nil
}
