package engine

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/efreitasn/matchbook/internal/domain"
)

// ExpirySweeper tracks resting limit orders that carry an expires_at
// and periodically expires those whose time has passed. Expiration goes
// through the book's Expire path, so it inherits the same tombstone
// semantics as cancellation.
type ExpirySweeper struct {
	interval time.Duration
	book     *Book

	mu     sync.Mutex      // protects active
	active []*domain.Order // sorted by expires_at ASC
}

// NewExpirySweeper creates a sweeper ticking at the given interval.
func NewExpirySweeper(interval time.Duration, book *Book) *ExpirySweeper {
	return &ExpirySweeper{
		interval: interval,
		book:     book,
		active:   make([]*domain.Order, 0),
	}
}

// Track inserts an order into the sorted active slice, maintaining
// expires_at ASC order. Orders without an expiry are ignored.
func (e *ExpirySweeper) Track(order *domain.Order) {
	if order.ExpiresAt == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	expiresAt := *order.ExpiresAt
	idx := sort.Search(len(e.active), func(i int) bool {
		return e.active[i].ExpiresAt.After(expiresAt)
	})
	e.active = append(e.active, nil)
	copy(e.active[idx+1:], e.active[idx:])
	e.active[idx] = order
}

// Start launches a background goroutine that ticks at the configured
// interval and expires due orders. It stops when ctx is cancelled.
func (e *ExpirySweeper) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(e.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case t := <-ticker.C:
				e.tick(t)
			}
		}
	}()
}

// tick pops due orders from the front of the sorted slice and expires
// them through the book. An order that was filled or cancelled since it
// was tracked is no longer in the live index; the book reports
// not-found and the sweeper simply moves on.
func (e *ExpirySweeper) tick(now time.Time) {
	e.mu.Lock()
	var due []*domain.Order
	cutoff := 0
	for cutoff < len(e.active) {
		o := e.active[cutoff]
		if o.ExpiresAt == nil || o.ExpiresAt.After(now) {
			break
		}
		due = append(due, o)
		cutoff++
	}
	if cutoff > 0 {
		// Copy the survivors into a fresh slice; re-slicing in place
		// would keep the expired orders alive in the backing array.
		remaining := make([]*domain.Order, len(e.active)-cutoff)
		copy(remaining, e.active[cutoff:])
		e.active = remaining
	}
	e.mu.Unlock()

	for _, order := range due {
		_, _ = e.book.Expire(order.ID)
	}
}

// TrackedCount returns the number of orders currently tracked for
// expiration. Useful for testing.
func (e *ExpirySweeper) TrackedCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.active)
}
