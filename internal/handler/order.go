package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/matchbook/internal/domain"
	"github.com/efreitasn/matchbook/internal/service"
)

// OrderHandler handles HTTP requests for order endpoints.
type OrderHandler struct {
	orderSvc *service.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orderSvc *service.OrderService) *OrderHandler {
	return &OrderHandler{orderSvc: orderSvc}
}

// submitOrderRequest is the JSON request body for POST /orders.
type submitOrderRequest struct {
	Type      string   `json:"type"`
	Side      string   `json:"side"`
	Price     *float64 `json:"price"`
	Quantity  int64    `json:"quantity"`
	ExpiresAt *string  `json:"expires_at"`
}

// limitOrderResponse is the JSON response for limit orders.
// All fields are always present; nullable fields use pointers.
type limitOrderResponse struct {
	OrderID           uint64          `json:"order_id"`
	Type              string          `json:"type"`
	Side              string          `json:"side"`
	Price             float64         `json:"price"`
	Quantity          int64           `json:"quantity"`
	FilledQuantity    int64           `json:"filled_quantity"`
	RemainingQuantity int64           `json:"remaining_quantity"`
	CancelledQuantity int64           `json:"cancelled_quantity"`
	Status            string          `json:"status"`
	ExpiresAt         *string         `json:"expires_at"`
	CreatedAt         string          `json:"created_at"`
	CancelledAt       *string         `json:"cancelled_at"`
	ExpiredAt         *string         `json:"expired_at"`
	AveragePrice      *float64        `json:"average_price"`
	Trades            []tradeResponse `json:"trades"`
}

// marketOrderResponse is the JSON response for market orders.
// Omits price, expires_at, cancelled_at, expired_at entirely.
type marketOrderResponse struct {
	OrderID           uint64          `json:"order_id"`
	Type              string          `json:"type"`
	Side              string          `json:"side"`
	Quantity          int64           `json:"quantity"`
	FilledQuantity    int64           `json:"filled_quantity"`
	RemainingQuantity int64           `json:"remaining_quantity"`
	CancelledQuantity int64           `json:"cancelled_quantity"`
	Status            string          `json:"status"`
	CreatedAt         string          `json:"created_at"`
	AveragePrice      *float64        `json:"average_price"`
	Trades            []tradeResponse `json:"trades"`
}

// tradeResponse is a single trade in order and tape responses.
type tradeResponse struct {
	TradeID     string  `json:"trade_id"`
	Seq         uint64  `json:"seq"`
	BuyOrderID  uint64  `json:"buy_order_id"`
	SellOrderID uint64  `json:"sell_order_id"`
	Price       float64 `json:"price"`
	Quantity    int64   `json:"quantity"`
	ExecutedAt  string  `json:"executed_at"`
}

// SubmitOrder handles POST /orders.
func (h *OrderHandler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req submitOrderRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	// Parse expires_at if provided.
	var expiresAt *time.Time
	if req.ExpiresAt != nil {
		t, err := time.Parse(time.RFC3339, *req.ExpiresAt)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "validation_error", "expires_at must be a valid RFC 3339 timestamp")
			return
		}
		expiresAt = &t
	}

	order, err := h.orderSvc.SubmitOrder(service.SubmitOrderRequest{
		Type:      domain.OrderType(req.Type),
		Side:      domain.OrderSide(req.Side),
		Price:     req.Price,
		Quantity:  req.Quantity,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		mapOrderError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, buildOrderResponse(order))
}

// GetOrder handles GET /orders/{order_id}.
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := parseOrderID(w, r)
	if !ok {
		return
	}

	order, err := h.orderSvc.GetOrder(id)
	if err != nil {
		mapOrderError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, buildOrderResponse(order))
}

// CancelOrder handles DELETE /orders/{order_id}.
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := parseOrderID(w, r)
	if !ok {
		return
	}

	order, err := h.orderSvc.CancelOrder(id)
	if err != nil {
		mapOrderError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, buildOrderResponse(order))
}

// parseOrderID extracts and parses the order_id URL parameter. On
// failure it writes the error response and returns false.
func parseOrderID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	raw := chi.URLParam(r, "order_id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "validation_error", "order_id must be a positive integer")
		return 0, false
	}
	return id, true
}

// buildOrderResponse constructs the appropriate response type based on
// order type. Market orders omit price, expires_at, cancelled_at, and
// expired_at. Limit orders always include them (null when not set).
func buildOrderResponse(o *domain.Order) any {
	trades := buildTradeResponses(o.Trades)

	var avgPrice *float64
	if avg, ok := o.AveragePrice(); ok {
		v := domain.CentsToDollars(avg)
		avgPrice = &v
	}

	if o.Type == domain.OrderTypeMarket {
		return marketOrderResponse{
			OrderID:           o.ID,
			Type:              string(o.Type),
			Side:              string(o.Side),
			Quantity:          o.Quantity,
			FilledQuantity:    o.FilledQuantity,
			RemainingQuantity: o.RemainingQuantity,
			CancelledQuantity: o.CancelledQuantity,
			Status:            string(o.Status),
			CreatedAt:         formatTime(o.CreatedAt),
			AveragePrice:      avgPrice,
			Trades:            trades,
		}
	}

	resp := limitOrderResponse{
		OrderID:           o.ID,
		Type:              string(o.Type),
		Side:              string(o.Side),
		Price:             domain.CentsToDollars(o.Price),
		Quantity:          o.Quantity,
		FilledQuantity:    o.FilledQuantity,
		RemainingQuantity: o.RemainingQuantity,
		CancelledQuantity: o.CancelledQuantity,
		Status:            string(o.Status),
		CreatedAt:         formatTime(o.CreatedAt),
		AveragePrice:      avgPrice,
		Trades:            trades,
	}

	if o.ExpiresAt != nil {
		s := formatTime(*o.ExpiresAt)
		resp.ExpiresAt = &s
	}
	if o.CancelledAt != nil {
		s := formatTime(*o.CancelledAt)
		resp.CancelledAt = &s
	}
	if o.ExpiredAt != nil {
		s := formatTime(*o.ExpiredAt)
		resp.ExpiredAt = &s
	}

	return resp
}

// buildTradeResponses converts domain trades to response trades.
func buildTradeResponses(trades []*domain.Trade) []tradeResponse {
	result := make([]tradeResponse, len(trades))
	for i, t := range trades {
		result[i] = tradeResponse{
			TradeID:     t.TradeID,
			Seq:         t.Seq,
			BuyOrderID:  t.BuyOrderID,
			SellOrderID: t.SellOrderID,
			Price:       domain.CentsToDollars(t.Price),
			Quantity:    t.Quantity,
			ExecutedAt:  formatTime(t.ExecutedAt),
		}
	}
	return result
}

func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}

// mapOrderError maps domain errors to HTTP responses for order endpoints.
func mapOrderError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		WriteError(w, http.StatusBadRequest, "validation_error", validationErr.Message)
		return
	}

	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		WriteError(w, http.StatusNotFound, "order_not_found", err.Error())
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}
