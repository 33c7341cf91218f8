package engine

import (
	"github.com/google/btree"

	"github.com/efreitasn/matchbook/internal/domain"
)

// bookEntry is one resting order's slot in a side queue. The Order
// pointer is shared with the book's live index, so cancelling an order
// tombstones its slot in place without touching the tree.
type bookEntry struct {
	Price int64
	Seq   uint64
	Order *domain.Order
}

// bidLess defines ordering for the bid side: price descending, then
// arrival sequence ascending. Min() returns the best bid (highest
// price, earliest arrival).
func bidLess(a, b bookEntry) bool {
	if a.Price != b.Price {
		return a.Price > b.Price
	}
	return a.Seq < b.Seq
}

// askLess defines ordering for the ask side: price ascending, then
// arrival sequence ascending. Min() returns the best ask (lowest
// price, earliest arrival).
func askLess(a, b bookEntry) bool {
	if a.Price != b.Price {
		return a.Price < b.Price
	}
	return a.Seq < b.Seq
}

// sideQueue holds one side's resting orders in price-time priority.
// Cancelled and fully filled orders stay in the tree as tombstones;
// they are physically evicted only when peekBest would otherwise
// surface them, which amortizes cancellation cost.
type sideQueue struct {
	tree *btree.BTreeG[bookEntry]
}

func newSideQueue(less btree.LessFunc[bookEntry]) *sideQueue {
	const degree = 32
	return &sideQueue{tree: btree.NewG[bookEntry](degree, less)}
}

// insert adds a resting order's slot. The arrival sequence makes the
// priority key unique, so a displaced duplicate means the sequence
// counter is broken.
func (q *sideQueue) insert(e bookEntry) {
	if _, dup := q.tree.ReplaceOrInsert(e); dup {
		panic("engine: duplicate priority key in side queue")
	}
}

// peekBest purges tombstones from the front of the queue and returns
// the best live order. Returns false when the side holds no live orders.
func (q *sideQueue) peekBest() (*domain.Order, bool) {
	for {
		e, ok := q.tree.Min()
		if !ok {
			return nil, false
		}
		if !e.Order.Terminal() {
			return e.Order, true
		}
		q.tree.DeleteMin()
	}
}

// walk iterates live orders in priority order, skipping tombstones
// without evicting them. The callback returns true to continue.
func (q *sideQueue) walk(fn func(*domain.Order) bool) {
	q.tree.Ascend(func(e bookEntry) bool {
		if e.Order.Terminal() {
			return true
		}
		return fn(e.Order)
	})
}

// levels aggregates live orders into at most n price levels in
// priority order.
func (q *sideQueue) levels(n int) []PriceLevel {
	if n <= 0 {
		return nil
	}
	levels := make([]PriceLevel, 0, n)
	q.walk(func(o *domain.Order) bool {
		if len(levels) > 0 && levels[len(levels)-1].Price == o.Price {
			levels[len(levels)-1].TotalQuantity += o.RemainingQuantity
			levels[len(levels)-1].OrderCount++
			return true
		}
		if len(levels) >= n {
			return false
		}
		levels = append(levels, PriceLevel{
			Price:         o.Price,
			TotalQuantity: o.RemainingQuantity,
			OrderCount:    1,
		})
		return true
	})
	return levels
}
