package store

import (
	"sync"

	"github.com/efreitasn/matchbook/internal/domain"
)

// WebhookStore is a thread-safe in-memory store for trade webhook
// subscriptions, keyed by webhook_id.
type WebhookStore struct {
	mu       sync.RWMutex
	webhooks map[string]*domain.Webhook
}

// NewWebhookStore creates an empty WebhookStore.
func NewWebhookStore() *WebhookStore {
	return &WebhookStore{
		webhooks: make(map[string]*domain.Webhook),
	}
}

// Create adds a webhook subscription.
func (s *WebhookStore) Create(w *domain.Webhook) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.webhooks[w.WebhookID] = w
}

// List returns all subscriptions in unspecified order.
func (s *WebhookStore) List() []*domain.Webhook {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Webhook, 0, len(s.webhooks))
	for _, w := range s.webhooks {
		result = append(result, w)
	}
	return result
}

// Delete removes a subscription by ID. It returns
// domain.ErrWebhookNotFound if the subscription does not exist.
func (s *WebhookStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.webhooks[id]; !ok {
		return domain.ErrWebhookNotFound
	}
	delete(s.webhooks, id)
	return nil
}
