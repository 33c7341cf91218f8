package store

import (
	"sync"

	"github.com/efreitasn/matchbook/internal/domain"
)

// TradeLog is an append-only, chronological record of every trade the
// book executes. It assigns each trade its sequence number on append.
// Reads return copies so callers can never mutate the log.
type TradeLog struct {
	mu     sync.RWMutex
	trades []*domain.Trade
}

// NewTradeLog creates an empty TradeLog.
func NewTradeLog() *TradeLog {
	return &TradeLog{}
}

// Append adds a trade to the log and stamps its sequence number.
// Sequence numbers start at 1 and are strictly increasing.
func (l *TradeLog) Append(t *domain.Trade) {
	l.mu.Lock()
	defer l.mu.Unlock()

	t.Seq = uint64(len(l.trades) + 1)
	l.trades = append(l.trades, t)
}

// Count returns the total number of trades ever executed.
func (l *TradeLog) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.trades)
}

// All returns a snapshot of the full trade history in chronological order.
func (l *TradeLog) All() []*domain.Trade {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]*domain.Trade, len(l.trades))
	copy(result, l.trades)
	return result
}

// Recent returns a snapshot of the most recent n trades in chronological
// order. If fewer than n trades exist, all of them are returned.
func (l *TradeLog) Recent(n int) []*domain.Trade {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n <= 0 {
		return []*domain.Trade{}
	}
	start := len(l.trades) - n
	if start < 0 {
		start = 0
	}
	result := make([]*domain.Trade, len(l.trades)-start)
	copy(result, l.trades[start:])
	return result
}
