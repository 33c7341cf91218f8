package domain

import "time"

// OrderType distinguishes limit orders from market orders.
type OrderType string

const (
	OrderTypeLimit  OrderType = "limit"
	OrderTypeMarket OrderType = "market"
)

// OrderSide indicates whether an order is a bid (buy) or ask (sell).
type OrderSide string

const (
	OrderSideBid OrderSide = "bid"
	OrderSideAsk OrderSide = "ask"
)

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusPartiallyFilled OrderStatus = "partially_filled"
	OrderStatusFilled          OrderStatus = "filled"
	OrderStatusCancelled       OrderStatus = "cancelled"
	OrderStatusExpired         OrderStatus = "expired"
)

// Order represents a bid or ask instruction submitted to the book.
//
// ID is assigned by the book from a monotonic counter. Seq is the arrival
// sequence, strictly increasing per book instance, and is the tie-break
// between resting orders at the same price.
type Order struct {
	ID                uint64
	Seq               uint64
	Type              OrderType
	Side              OrderSide
	Price             int64 // cents, 0 for market orders
	Quantity          int64
	FilledQuantity    int64
	RemainingQuantity int64
	CancelledQuantity int64
	Status            OrderStatus
	ExpiresAt         *time.Time // nil means good-till-cancelled
	CreatedAt         time.Time
	CancelledAt       *time.Time
	ExpiredAt         *time.Time
	Trades            []*Trade
}

// Terminal reports whether the order can no longer trade. A zero
// remaining quantity is terminal regardless of how it was reached
// (fully filled, cancelled, or expired), and is exactly the tombstone
// condition the side queues test for.
func (o *Order) Terminal() bool {
	return o.RemainingQuantity == 0
}

// Clone returns a point-in-time copy of the order that is safe to read
// after the book lock is released. The trades slice is copied; Trade
// values are immutable once created, so sharing the elements is safe.
func (o *Order) Clone() *Order {
	c := *o
	c.Trades = make([]*Trade, len(o.Trades))
	copy(c.Trades, o.Trades)
	return &c
}

// AveragePrice computes the volume-weighted average execution price
// as sum(trade.price × trade.quantity) / filled_quantity using integer
// arithmetic. Returns (price, true) when trades exist, or (0, false)
// when no trades have been executed.
func (o *Order) AveragePrice() (int64, bool) {
	if len(o.Trades) == 0 || o.FilledQuantity == 0 {
		return 0, false
	}
	var total int64
	for _, t := range o.Trades {
		total += t.Price * t.Quantity
	}
	return total / o.FilledQuantity, true
}
