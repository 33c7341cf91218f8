package domain

import "time"

// Trade represents a matched execution between a bid and an ask order.
// Trades are immutable once created. Seq is assigned by the trade log
// and is strictly increasing.
type Trade struct {
	TradeID     string
	Seq         uint64
	BuyOrderID  uint64
	SellOrderID uint64
	Price       int64 // cents, always the resting (maker) order's price
	Quantity    int64 // always > 0
	ExecutedAt  time.Time
}
