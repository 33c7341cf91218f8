package service

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/efreitasn/matchbook/internal/domain"
	"github.com/efreitasn/matchbook/internal/store"
)

// RegisterWebhookRequest represents the input for webhook registration.
type RegisterWebhookRequest struct {
	URL string
}

// WebhookService handles trade webhook subscriptions and event
// dispatch. Subscribers are read-only consumers of the trade event
// surface; delivery happens on its own goroutine, never under the book
// lock.
type WebhookService struct {
	store  *store.WebhookStore
	client *http.Client
}

// NewWebhookService creates a new WebhookService with the given timeout
// for outbound deliveries.
func NewWebhookService(webhookStore *store.WebhookStore, timeout time.Duration) *WebhookService {
	return &WebhookService{
		store: webhookStore,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Register validates the request and creates a subscription.
func (s *WebhookService) Register(req RegisterWebhookRequest) (*domain.Webhook, error) {
	if req.URL == "" {
		return nil, &domain.ValidationError{Message: "url is required"}
	}
	if len(req.URL) > 2048 {
		return nil, &domain.ValidationError{Message: "url must be at most 2048 characters"}
	}
	parsed, err := url.ParseRequestURI(req.URL)
	if err != nil || !parsed.IsAbs() {
		return nil, &domain.ValidationError{Message: "url must be a valid absolute URL"}
	}
	if parsed.Scheme != "https" {
		return nil, &domain.ValidationError{Message: "url must use https scheme"}
	}

	w := &domain.Webhook{
		WebhookID: uuid.New().String(),
		URL:       req.URL,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	s.store.Create(w)
	return w, nil
}

// List returns all webhook subscriptions.
func (s *WebhookService) List() []*domain.Webhook {
	return s.store.List()
}

// Delete removes a webhook subscription by ID.
func (s *WebhookService) Delete(webhookID string) error {
	return s.store.Delete(webhookID)
}

// tradeExecutedPayload is the JSON payload for trade.executed webhooks.
type tradeExecutedPayload struct {
	Event     string            `json:"event"`
	Timestamp string            `json:"timestamp"`
	Data      tradeExecutedData `json:"data"`
}

type tradeExecutedData struct {
	TradeID     string  `json:"trade_id"`
	Seq         uint64  `json:"seq"`
	BuyOrderID  uint64  `json:"buy_order_id"`
	SellOrderID uint64  `json:"sell_order_id"`
	Price       float64 `json:"price"`
	Quantity    int64   `json:"quantity"`
}

// DispatchTradeExecuted dispatches a trade.executed notification to
// every subscriber. Delivery is fire-and-forget and errors are
// silently ignored.
func (s *WebhookService) DispatchTradeExecuted(trade *domain.Trade) {
	subs := s.store.List()
	if len(subs) == 0 {
		return
	}

	payload := tradeExecutedPayload{
		Event:     "trade.executed",
		Timestamp: trade.ExecutedAt.UTC().Truncate(time.Second).Format(time.RFC3339),
		Data: tradeExecutedData{
			TradeID:     trade.TradeID,
			Seq:         trade.Seq,
			BuyOrderID:  trade.BuyOrderID,
			SellOrderID: trade.SellOrderID,
			Price:       domain.CentsToDollars(trade.Price),
			Quantity:    trade.Quantity,
		},
	}

	for _, wh := range subs {
		go s.deliver(wh, payload)
	}
}

// deliver sends the webhook payload via HTTP POST. Errors are silently
// ignored (fire-and-forget).
func (s *WebhookService) deliver(wh *domain.Webhook, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		return
	}

	req, err := http.NewRequest(http.MethodPost, wh.URL, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return
	}
	resp.Body.Close()
}
