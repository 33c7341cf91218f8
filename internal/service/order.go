package service

import (
	"time"

	"github.com/efreitasn/matchbook/internal/domain"
	"github.com/efreitasn/matchbook/internal/engine"
)

// SubmitOrderRequest represents the input for order submission.
type SubmitOrderRequest struct {
	Type      domain.OrderType
	Side      domain.OrderSide
	Price     *float64 // dollars; required for limit, must be nil for market
	Quantity  int64
	ExpiresAt *time.Time // optional for limit, must be nil for market
}

// OrderService handles order submission, retrieval, and cancellation.
// It sits between the HTTP surface and the book: request-level
// validation and unit conversion happen here, matching happens in the
// engine, and trade webhooks fire after the book lock is released.
//
// Every order the service hands out is a copy taken under the book
// lock. A resting order keeps matching concurrently, so callers must
// never be given the live instance the engine mutates.
type OrderService struct {
	book       *engine.Book
	sweeper    *engine.ExpirySweeper
	webhookSvc *WebhookService
}

// NewOrderService creates a new OrderService with the given dependencies.
func NewOrderService(
	book *engine.Book,
	sweeper *engine.ExpirySweeper,
	webhookSvc *WebhookService,
) *OrderService {
	return &OrderService{
		book:       book,
		sweeper:    sweeper,
		webhookSvc: webhookSvc,
	}
}

// SubmitOrder validates the request, runs the order through the book,
// and dispatches webhooks for any trades executed.
func (s *OrderService) SubmitOrder(req SubmitOrderRequest) (*domain.Order, error) {
	if req.Type != domain.OrderTypeLimit && req.Type != domain.OrderTypeMarket {
		return nil, &domain.ValidationError{
			Message: "type must be 'limit' or 'market'",
		}
	}
	if req.Side != domain.OrderSideBid && req.Side != domain.OrderSideAsk {
		return nil, &domain.ValidationError{
			Message: "side must be 'bid' or 'ask'",
		}
	}
	if req.Quantity <= 0 {
		return nil, &domain.ValidationError{
			Message: "quantity must be a positive integer",
		}
	}

	if req.Type == domain.OrderTypeLimit {
		return s.submitLimitOrder(req)
	}
	return s.submitMarketOrder(req)
}

func (s *OrderService) submitLimitOrder(req SubmitOrderRequest) (*domain.Order, error) {
	if req.Price == nil {
		return nil, &domain.ValidationError{
			Message: "price is required for limit orders",
		}
	}
	if *req.Price <= 0 {
		return nil, &domain.ValidationError{
			Message: "price must be greater than 0",
		}
	}
	priceCents, err := domain.DollarsToCents(*req.Price)
	if err != nil {
		return nil, &domain.ValidationError{
			Message: "price must have at most 2 decimal places",
		}
	}
	if req.ExpiresAt != nil && !req.ExpiresAt.After(time.Now()) {
		return nil, &domain.ValidationError{
			Message: "expires_at must be a future timestamp",
		}
	}

	order := &domain.Order{
		Side:      req.Side,
		Price:     priceCents,
		Quantity:  req.Quantity,
		ExpiresAt: req.ExpiresAt,
	}

	trades, err := s.book.SubmitLimit(order)
	if err != nil {
		return nil, err
	}

	// Re-read through the book so the response is a consistent copy;
	// the live order may already be matching against later arrivals.
	snap, err := s.book.Order(order.ID)
	if err != nil {
		return nil, err
	}

	// A remainder rested on the book; track it for expiration. The
	// sweeper only reads the order's immutable id and expiry fields.
	if !snap.Terminal() && s.sweeper != nil {
		s.sweeper.Track(order)
	}

	s.dispatchTradeWebhooks(trades)

	return snap, nil
}

func (s *OrderService) submitMarketOrder(req SubmitOrderRequest) (*domain.Order, error) {
	if req.Price != nil {
		return nil, &domain.ValidationError{
			Message: "market orders must not include price",
		}
	}
	if req.ExpiresAt != nil {
		return nil, &domain.ValidationError{
			Message: "market orders must not include expires_at",
		}
	}

	order := &domain.Order{
		Side:     req.Side,
		Quantity: req.Quantity,
	}

	trades, err := s.book.SubmitMarket(order)
	if err != nil {
		return nil, err
	}

	s.dispatchTradeWebhooks(trades)

	return order, nil
}

// GetOrder retrieves a copy of any submitted order by id, terminal or
// live. Going through the book keeps the read serialized with matching.
func (s *OrderService) GetOrder(id uint64) (*domain.Order, error) {
	return s.book.Order(id)
}

// CancelOrder cancels a live resting order. Returns
// domain.ErrOrderNotFound when the id is unknown or already terminal.
func (s *OrderService) CancelOrder(id uint64) (*domain.Order, error) {
	return s.book.Cancel(id)
}

// dispatchTradeWebhooks fires trade.executed notifications. Fire-and-
// forget, outside the book lock.
func (s *OrderService) dispatchTradeWebhooks(trades []*domain.Trade) {
	if s.webhookSvc == nil {
		return
	}
	for _, t := range trades {
		s.webhookSvc.DispatchTradeExecuted(t)
	}
}
