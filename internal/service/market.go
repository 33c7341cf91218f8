package service

import (
	"fmt"
	"time"

	"github.com/efreitasn/matchbook/internal/domain"
	"github.com/efreitasn/matchbook/internal/engine"
	"github.com/efreitasn/matchbook/internal/store"
)

// PriceResponse represents the response for GET /price.
type PriceResponse struct {
	Symbol         string
	CurrentPrice   *int64 // nil when no trades ever
	Window         string // e.g. "5m"
	TradesInWindow int
	LastTradeAt    *time.Time // nil when no trades ever
}

// BookPriceLevel represents an aggregated price level in the book response.
type BookPriceLevel struct {
	Price         int64
	TotalQuantity int64
	OrderCount    int
}

// BookResponse represents the response for GET /book.
type BookResponse struct {
	Symbol     string
	BestBid    *int64 // nil when the side is empty
	BestAsk    *int64
	Bids       []BookPriceLevel
	Asks       []BookPriceLevel
	Spread     *int64 // nil if either side empty
	SnapshotAt time.Time
}

// QuotePriceLevel represents a single price level in the quote response.
type QuotePriceLevel struct {
	Price    int64
	Quantity int64
}

// QuoteResponse represents the response for GET /quote.
type QuoteResponse struct {
	Symbol            string
	Side              domain.OrderSide
	QuantityRequested int64
	QuantityAvailable int64
	FullyFillable     bool
	EstimatedAvgPrice *int64 // nil when no liquidity
	EstimatedTotal    *int64 // nil when no liquidity
	PriceLevels       []QuotePriceLevel
	QuotedAt          time.Time
}

// MarketService exposes the read-only views over the book and the trade
// log: depth, tape, quote simulation, and reference price. None of them
// mutate matching state.
type MarketService struct {
	book       *engine.Book
	trades     *store.TradeLog
	vwapWindow time.Duration
}

// NewMarketService creates a new MarketService with the given dependencies.
func NewMarketService(book *engine.Book, trades *store.TradeLog, vwapWindow time.Duration) *MarketService {
	return &MarketService{
		book:       book,
		trades:     trades,
		vwapWindow: vwapWindow,
	}
}

// Symbol returns the instrument label of the underlying book.
func (s *MarketService) Symbol() string {
	return s.book.Symbol()
}

// TradeCount returns the total number of trades ever executed.
func (s *MarketService) TradeCount() int {
	return s.trades.Count()
}

// GetBook returns the top N price levels of each side plus the best
// prices and the spread.
func (s *MarketService) GetBook(depth int) (*BookResponse, error) {
	if depth < 1 || depth > 50 {
		return nil, &domain.ValidationError{
			Message: "depth must be between 1 and 50",
		}
	}

	topBids := s.book.TopBids(depth)
	topAsks := s.book.TopAsks(depth)

	bids := make([]BookPriceLevel, len(topBids))
	for i, pl := range topBids {
		bids[i] = BookPriceLevel(pl)
	}
	asks := make([]BookPriceLevel, len(topAsks))
	for i, pl := range topAsks {
		asks[i] = BookPriceLevel(pl)
	}

	resp := &BookResponse{
		Symbol:     s.book.Symbol(),
		Bids:       bids,
		Asks:       asks,
		SnapshotAt: time.Now(),
	}

	if bid, ok := s.book.BestBid(); ok {
		resp.BestBid = &bid
	}
	if ask, ok := s.book.BestAsk(); ok {
		resp.BestAsk = &ask
	}
	if resp.BestBid != nil && resp.BestAsk != nil {
		spread := *resp.BestAsk - *resp.BestBid
		resp.Spread = &spread
	}

	return resp, nil
}

// GetTape returns the most recent trades in chronological order.
func (s *MarketService) GetTape(limit int) ([]*domain.Trade, error) {
	if limit < 1 || limit > 200 {
		return nil, &domain.ValidationError{
			Message: "limit must be between 1 and 200",
		}
	}
	return s.trades.Recent(limit), nil
}

// GetPrice returns the current reference price, computed as VWAP over
// the configured time window with a fallback to the last trade's price.
// CurrentPrice is nil when no trades have ever occurred.
func (s *MarketService) GetPrice() *PriceResponse {
	trades := s.trades.All()
	now := time.Now()
	windowStart := now.Add(-s.vwapWindow)

	resp := &PriceResponse{
		Symbol: s.book.Symbol(),
		Window: formatDuration(s.vwapWindow),
	}

	if len(trades) == 0 {
		return resp
	}

	lastTrade := trades[len(trades)-1]
	resp.LastTradeAt = &lastTrade.ExecutedAt

	var sumPriceQty int64
	var sumQty int64
	var tradesInWindow int

	for i := len(trades) - 1; i >= 0; i-- {
		t := trades[i]
		if t.ExecutedAt.Before(windowStart) {
			break
		}
		sumPriceQty += t.Price * t.Quantity
		sumQty += t.Quantity
		tradesInWindow++
	}

	resp.TradesInWindow = tradesInWindow

	if sumQty > 0 {
		vwap := sumPriceQty / sumQty
		resp.CurrentPrice = &vwap
	} else {
		resp.CurrentPrice = &lastTrade.Price
	}

	return resp
}

// GetQuote simulates a market order against the current book and
// returns the estimated result without placing an order.
func (s *MarketService) GetQuote(side domain.OrderSide, quantity int64) (*QuoteResponse, error) {
	if side != domain.OrderSideBid && side != domain.OrderSideAsk {
		return nil, &domain.ValidationError{
			Message: "side must be 'bid' or 'ask'",
		}
	}
	if quantity <= 0 {
		return nil, &domain.ValidationError{
			Message: "quantity must be a positive integer",
		}
	}

	result := s.book.Quote(side, quantity)

	priceLevels := make([]QuotePriceLevel, len(result.PriceLevels))
	for i, pl := range result.PriceLevels {
		priceLevels[i] = QuotePriceLevel(pl)
	}

	return &QuoteResponse{
		Symbol:            s.book.Symbol(),
		Side:              side,
		QuantityRequested: quantity,
		QuantityAvailable: result.QuantityAvailable,
		FullyFillable:     result.FullyFillable,
		EstimatedAvgPrice: result.EstimatedAvgPrice,
		EstimatedTotal:    result.EstimatedTotal,
		PriceLevels:       priceLevels,
		QuotedAt:          time.Now(),
	}, nil
}

// formatDuration converts a time.Duration to a human-readable string
// like "5m" for the window field.
func formatDuration(d time.Duration) string {
	if d == 0 {
		return "0s"
	}
	minutes := int(d.Minutes())
	if d == time.Duration(minutes)*time.Minute && minutes > 0 {
		return fmt.Sprintf("%dm", minutes)
	}
	return d.String()
}
