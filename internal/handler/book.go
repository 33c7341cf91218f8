package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/efreitasn/matchbook/internal/domain"
	"github.com/efreitasn/matchbook/internal/service"
)

// BookHandler handles HTTP requests for the market-data endpoints:
// depth, trade tape, quote, and reference price.
type BookHandler struct {
	marketSvc *service.MarketService
}

// NewBookHandler creates a new BookHandler.
func NewBookHandler(marketSvc *service.MarketService) *BookHandler {
	return &BookHandler{marketSvc: marketSvc}
}

// bookLevelResponse is a single price level in the book response.
type bookLevelResponse struct {
	Price         float64 `json:"price"`
	TotalQuantity int64   `json:"total_quantity"`
	OrderCount    int     `json:"order_count"`
}

// bookResponse is the JSON response for GET /book.
type bookResponse struct {
	Symbol     string              `json:"symbol"`
	BestBid    *float64            `json:"best_bid"`
	BestAsk    *float64            `json:"best_ask"`
	Bids       []bookLevelResponse `json:"bids"`
	Asks       []bookLevelResponse `json:"asks"`
	Spread     *float64            `json:"spread"`
	SnapshotAt string              `json:"snapshot_at"`
}

// tapeResponse is the JSON response for GET /trades.
type tapeResponse struct {
	Symbol     string          `json:"symbol"`
	TradeCount int             `json:"trade_count"`
	Trades     []tradeResponse `json:"trades"`
}

// priceResponse is the JSON response for GET /price.
type priceResponse struct {
	Symbol       string   `json:"symbol"`
	CurrentPrice *float64 `json:"current_price"`
	Window       string   `json:"window"`
	TradesInWin  int      `json:"trades_in_window"`
	LastTradeAt  *string  `json:"last_trade_at"`
}

// quoteLevelResponse is a single price level in the quote response.
type quoteLevelResponse struct {
	Price    float64 `json:"price"`
	Quantity int64   `json:"quantity"`
}

// quoteResponse is the JSON response for GET /quote.
type quoteResponse struct {
	Symbol            string               `json:"symbol"`
	Side              string               `json:"side"`
	QuantityRequested int64                `json:"quantity_requested"`
	QuantityAvailable int64                `json:"quantity_available"`
	FullyFillable     bool                 `json:"fully_fillable"`
	EstimatedAvgPrice *float64             `json:"estimated_average_price"`
	EstimatedTotal    *float64             `json:"estimated_total"`
	PriceLevels       []quoteLevelResponse `json:"price_levels"`
	QuotedAt          string               `json:"quoted_at"`
}

// GetBook handles GET /book.
func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	// Parse depth query param (default 10, max 50).
	depth := 10
	if d := r.URL.Query().Get("depth"); d != "" {
		var err error
		depth, err = strconv.Atoi(d)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "validation_error", "depth must be a valid integer")
			return
		}
	}

	book, err := h.marketSvc.GetBook(depth)
	if err != nil {
		mapMarketError(w, err)
		return
	}

	bids := make([]bookLevelResponse, len(book.Bids))
	for i, b := range book.Bids {
		bids[i] = bookLevelResponse{
			Price:         domain.CentsToDollars(b.Price),
			TotalQuantity: b.TotalQuantity,
			OrderCount:    b.OrderCount,
		}
	}
	asks := make([]bookLevelResponse, len(book.Asks))
	for i, a := range book.Asks {
		asks[i] = bookLevelResponse{
			Price:         domain.CentsToDollars(a.Price),
			TotalQuantity: a.TotalQuantity,
			OrderCount:    a.OrderCount,
		}
	}

	resp := bookResponse{
		Symbol:     book.Symbol,
		Bids:       bids,
		Asks:       asks,
		SnapshotAt: formatTime(book.SnapshotAt),
	}

	if book.BestBid != nil {
		v := domain.CentsToDollars(*book.BestBid)
		resp.BestBid = &v
	}
	if book.BestAsk != nil {
		v := domain.CentsToDollars(*book.BestAsk)
		resp.BestAsk = &v
	}
	if book.Spread != nil {
		v := domain.CentsToDollars(*book.Spread)
		resp.Spread = &v
	}

	WriteJSON(w, http.StatusOK, resp)
}

// GetTrades handles GET /trades.
func (h *BookHandler) GetTrades(w http.ResponseWriter, r *http.Request) {
	// Parse limit query param (default 20, max 200).
	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		var err error
		limit, err = strconv.Atoi(l)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "validation_error", "limit must be a valid integer")
			return
		}
	}

	trades, err := h.marketSvc.GetTape(limit)
	if err != nil {
		mapMarketError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, tapeResponse{
		Symbol:     h.marketSvc.Symbol(),
		TradeCount: h.marketSvc.TradeCount(),
		Trades:     buildTradeResponses(trades),
	})
}

// GetPrice handles GET /price.
func (h *BookHandler) GetPrice(w http.ResponseWriter, r *http.Request) {
	price := h.marketSvc.GetPrice()

	resp := priceResponse{
		Symbol:      price.Symbol,
		Window:      price.Window,
		TradesInWin: price.TradesInWindow,
	}
	if price.CurrentPrice != nil {
		v := domain.CentsToDollars(*price.CurrentPrice)
		resp.CurrentPrice = &v
	}
	if price.LastTradeAt != nil {
		s := formatTime(*price.LastTradeAt)
		resp.LastTradeAt = &s
	}

	WriteJSON(w, http.StatusOK, resp)
}

// GetQuote handles GET /quote.
func (h *BookHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	side := r.URL.Query().Get("side")
	quantityStr := r.URL.Query().Get("quantity")

	quantity, err := strconv.ParseInt(quantityStr, 10, 64)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "validation_error", "quantity must be a positive integer")
		return
	}

	quote, err := h.marketSvc.GetQuote(domain.OrderSide(side), quantity)
	if err != nil {
		mapMarketError(w, err)
		return
	}

	priceLevels := make([]quoteLevelResponse, len(quote.PriceLevels))
	for i, pl := range quote.PriceLevels {
		priceLevels[i] = quoteLevelResponse{
			Price:    domain.CentsToDollars(pl.Price),
			Quantity: pl.Quantity,
		}
	}

	resp := quoteResponse{
		Symbol:            quote.Symbol,
		Side:              string(quote.Side),
		QuantityRequested: quote.QuantityRequested,
		QuantityAvailable: quote.QuantityAvailable,
		FullyFillable:     quote.FullyFillable,
		PriceLevels:       priceLevels,
		QuotedAt:          formatTime(quote.QuotedAt),
	}
	if quote.EstimatedAvgPrice != nil {
		v := domain.CentsToDollars(*quote.EstimatedAvgPrice)
		resp.EstimatedAvgPrice = &v
	}
	if quote.EstimatedTotal != nil {
		v := domain.CentsToDollars(*quote.EstimatedTotal)
		resp.EstimatedTotal = &v
	}

	WriteJSON(w, http.StatusOK, resp)
}

// mapMarketError maps domain errors to HTTP responses for market-data
// endpoints.
func mapMarketError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		WriteError(w, http.StatusBadRequest, "validation_error", validationErr.Message)
		return
	}
	WriteError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
}
