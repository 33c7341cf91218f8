package engine

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/efreitasn/matchbook/internal/domain"
	"github.com/efreitasn/matchbook/internal/store"
)

// PriceLevel represents an aggregated price level in the order book.
type PriceLevel struct {
	Price         int64
	TotalQuantity int64
	OrderCount    int
}

// QuotePriceLevel represents a single price level in a quote simulation.
type QuotePriceLevel struct {
	Price    int64
	Quantity int64
}

// QuoteResult holds the result of a market order simulation.
type QuoteResult struct {
	QuantityAvailable int64
	FullyFillable     bool
	EstimatedAvgPrice *int64 // nil when no liquidity
	EstimatedTotal    *int64 // nil when no liquidity
	PriceLevels       []QuotePriceLevel
}

// Book is the matching core for a single instrument. It owns the two
// side queues, the index of live resting orders, and the id and arrival
// sequence counters, and it appends every execution to the trade log.
//
// One mutex serializes every operation: a crossing sequence triggered by
// an incoming order is indivisible, and no caller observes a partially
// applied match. The side queues, index, and trade log carry no locks of
// their own beyond the stores' usual guards.
//
// A Book is an explicit, caller-owned instance. Multiple independent
// books can coexist; there is no shared global state.
type Book struct {
	symbol string
	mu     sync.RWMutex
	bids   *sideQueue
	asks   *sideQueue
	index  map[uint64]*domain.Order // live resting orders only

	orders *store.OrderStore
	trades *store.TradeLog

	nextID  uint64
	nextSeq uint64
}

// New creates an empty book for the given symbol. The order store and
// trade log are the book's system of record for submitted orders and
// executions.
func New(symbol string, orders *store.OrderStore, trades *store.TradeLog) *Book {
	return &Book{
		symbol: symbol,
		bids:   newSideQueue(bidLess),
		asks:   newSideQueue(askLess),
		index:  make(map[uint64]*domain.Order),
		orders: orders,
		trades: trades,
	}
}

// Symbol returns the instrument label this book was created for.
func (b *Book) Symbol() string {
	return b.symbol
}

// SubmitLimit processes an incoming limit order. It validates price and
// quantity before any mutation, assigns the order's id and arrival
// sequence, matches against the opposite side while prices cross, and
// rests any unfilled remainder on the order's own side.
//
// The caller provides an Order with Side, Price, Quantity, and
// optionally ExpiresAt set; the book manages everything else. Returns
// the trades executed, in order.
func (b *Book) SubmitLimit(o *domain.Order) ([]*domain.Trade, error) {
	if o.Price <= 0 {
		return nil, &domain.ValidationError{Message: "price must be a positive amount"}
	}
	if o.Quantity <= 0 {
		return nil, &domain.ValidationError{Message: "quantity must be a positive integer"}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.admit(o, domain.OrderTypeLimit)

	trades := b.match(o)

	if o.RemainingQuantity > 0 {
		b.rest(o)
	}

	return trades, nil
}

// SubmitMarket processes an incoming market order. Market orders carry
// no price, so they cross unconditionally against opposing liquidity in
// priority order until filled or the opposite side is exhausted.
//
// If opposing liquidity falls short of the requested quantity, the book
// fills what is available and discards the shortfall: the remainder
// becomes cancelled quantity and the order never rests, since a queue
// slot requires a defined price. An empty opposite side yields an empty
// trade slice, not an error.
func (b *Book) SubmitMarket(o *domain.Order) ([]*domain.Trade, error) {
	if o.Quantity <= 0 {
		return nil, &domain.ValidationError{Message: "quantity must be a positive integer"}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.admit(o, domain.OrderTypeMarket)

	trades := b.match(o)

	// Discard the shortfall: immediate-or-cancel, never queued.
	if o.RemainingQuantity > 0 {
		o.CancelledQuantity = o.RemainingQuantity
		o.RemainingQuantity = 0
		o.Status = domain.OrderStatusCancelled
	}

	return trades, nil
}

// Cancel cancels a live resting order: the remaining quantity drops to
// zero (the tombstone), the order leaves the live index, and its queue
// slot is purged lazily by a future best-price lookup. The trade log is
// untouched.
//
// Returns a copy of the cancelled order, or domain.ErrOrderNotFound
// for an id that never existed or is already terminal. Orders leave
// the index exactly once, so a second cancel of the same id reports
// not-found.
func (b *Book) Cancel(id uint64) (*domain.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	o, ok := b.index[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	delete(b.index, id)

	now := time.Now()
	o.CancelledQuantity = o.RemainingQuantity
	o.RemainingQuantity = 0
	o.Status = domain.OrderStatusCancelled
	o.CancelledAt = &now

	return o.Clone(), nil
}

// Expire transitions a live resting order to expired. Same tombstone
// mechanics as Cancel; only the terminal status differs. Used by the
// expiry sweeper.
func (b *Book) Expire(id uint64) (*domain.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	o, ok := b.index[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	delete(b.index, id)

	o.CancelledQuantity = o.RemainingQuantity
	o.RemainingQuantity = 0
	o.Status = domain.OrderStatusExpired
	o.ExpiredAt = o.ExpiresAt

	return o.Clone(), nil
}

// Order returns a point-in-time copy of any submitted order, live or
// terminal. The copy is taken under the book lock, so a reader can
// never observe a crossing sequence half-applied, and the caller may
// read the result without further synchronization. Resting orders keep
// matching concurrently; responses built from the copy reflect the
// state at the moment of the call.
func (b *Book) Order(id uint64) (*domain.Order, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	o, err := b.orders.Get(id)
	if err != nil {
		return nil, err
	}
	return o.Clone(), nil
}

// BestBid returns the price of the best live bid. The lookup purges
// tombstones from the front of the bid queue in place, so it takes the
// write lock. Returns false when the side holds no live orders rather
// than a numeric sentinel.
func (b *Book) BestBid() (int64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	o, ok := b.bids.peekBest()
	if !ok {
		return 0, false
	}
	return o.Price, true
}

// BestAsk returns the price of the best live ask, purging front
// tombstones. Returns false when the side holds no live orders.
func (b *Book) BestAsk() (int64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	o, ok := b.asks.peekBest()
	if !ok {
		return 0, false
	}
	return o.Price, true
}

// TopBids returns up to n aggregated price levels from the bid side,
// best price first. Tombstones are skipped, not evicted.
func (b *Book) TopBids(n int) []PriceLevel {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.bids.levels(n)
}

// TopAsks returns up to n aggregated price levels from the ask side,
// best price first.
func (b *Book) TopAsks(n int) []PriceLevel {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.asks.levels(n)
}

// TradeCount returns the total number of trades the book has executed.
func (b *Book) TradeCount() int {
	return b.trades.Count()
}

// LiveOrderCount returns the number of live resting orders across both
// sides.
func (b *Book) LiveOrderCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.index)
}

// Quote performs a read-only walk of the opposite side to estimate the
// result of a market order without placing one. For a bid quote it walks
// asks (lowest first); for an ask quote, bids (highest first).
func (b *Book) Quote(side domain.OrderSide, quantity int64) *QuoteResult {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := &QuoteResult{
		PriceLevels: make([]QuotePriceLevel, 0),
	}

	remaining := quantity
	var totalCost int64

	walkFn := func(o *domain.Order) bool {
		if remaining <= 0 {
			return false
		}
		fillQty := o.RemainingQuantity
		if fillQty > remaining {
			fillQty = remaining
		}
		totalCost += o.Price * fillQty
		result.QuantityAvailable += fillQty
		remaining -= fillQty

		if n := len(result.PriceLevels); n > 0 && result.PriceLevels[n-1].Price == o.Price {
			result.PriceLevels[n-1].Quantity += fillQty
		} else {
			result.PriceLevels = append(result.PriceLevels, QuotePriceLevel{
				Price:    o.Price,
				Quantity: fillQty,
			})
		}
		return true
	}

	if side == domain.OrderSideBid {
		b.asks.walk(walkFn)
	} else {
		b.bids.walk(walkFn)
	}

	if result.QuantityAvailable > 0 {
		avgPrice := totalCost / result.QuantityAvailable
		result.EstimatedAvgPrice = &avgPrice
		result.EstimatedTotal = &totalCost
	}
	result.FullyFillable = result.QuantityAvailable >= quantity

	return result
}

// admit assigns the order's identity and initial state and records it in
// the order store. Must be called with the book lock held.
func (b *Book) admit(o *domain.Order, typ domain.OrderType) {
	b.nextID++
	b.nextSeq++

	o.ID = b.nextID
	o.Seq = b.nextSeq
	o.Type = typ
	o.CreatedAt = time.Now()
	o.FilledQuantity = 0
	o.RemainingQuantity = o.Quantity
	o.CancelledQuantity = 0
	o.Status = domain.OrderStatusPending
	o.Trades = []*domain.Trade{}

	b.orders.Create(o)
}

// match runs the crossing loop for an incoming order against the
// opposite side: while the order has remaining quantity and a live best
// opposing order crosses, trade the smaller of the two remaining
// quantities at the resting order's price. Fully filled opposing orders leave the index; their
// queue slots stay behind as tombstones. Must be called with the book
// lock held.
func (b *Book) match(o *domain.Order) []*domain.Trade {
	opposite := b.asks
	if o.Side == domain.OrderSideAsk {
		opposite = b.bids
	}

	var trades []*domain.Trade

	for o.RemainingQuantity > 0 {
		resting, ok := opposite.peekBest()
		if !ok {
			break
		}

		// Limit orders stop when prices no longer cross; market orders
		// take any price.
		if o.Type == domain.OrderTypeLimit {
			if o.Side == domain.OrderSideBid && o.Price < resting.Price {
				break
			}
			if o.Side == domain.OrderSideAsk && o.Price > resting.Price {
				break
			}
		}

		fillQty := o.RemainingQuantity
		if resting.RemainingQuantity < fillQty {
			fillQty = resting.RemainingQuantity
		}

		// Maker-price rule: the side already on the book sets the price.
		executionPrice := resting.Price

		o.RemainingQuantity -= fillQty
		o.FilledQuantity += fillQty
		resting.RemainingQuantity -= fillQty
		resting.FilledQuantity += fillQty

		if o.RemainingQuantity == 0 {
			o.Status = domain.OrderStatusFilled
		} else {
			o.Status = domain.OrderStatusPartiallyFilled
		}
		if resting.RemainingQuantity == 0 {
			resting.Status = domain.OrderStatusFilled
		} else {
			resting.Status = domain.OrderStatusPartiallyFilled
		}

		buyID, sellID := o.ID, resting.ID
		if o.Side == domain.OrderSideAsk {
			buyID, sellID = resting.ID, o.ID
		}

		t := &domain.Trade{
			TradeID:     uuid.New().String(),
			BuyOrderID:  buyID,
			SellOrderID: sellID,
			Price:       executionPrice,
			Quantity:    fillQty,
			ExecutedAt:  time.Now(),
		}

		o.Trades = append(o.Trades, t)
		resting.Trades = append(resting.Trades, t)

		b.trades.Append(t)
		trades = append(trades, t)

		// The filled resting order leaves the index; its slot stays in
		// the queue until a best-price lookup walks past it.
		if resting.Terminal() {
			delete(b.index, resting.ID)
		}
	}

	return trades
}

// rest places an unfilled remainder on its own side queue and the live
// index. Must be called with the book lock held.
func (b *Book) rest(o *domain.Order) {
	entry := bookEntry{
		Price: o.Price,
		Seq:   o.Seq,
		Order: o,
	}
	if o.Side == domain.OrderSideBid {
		b.bids.insert(entry)
	} else {
		b.asks.insert(entry)
	}
	b.index[o.ID] = o
}
