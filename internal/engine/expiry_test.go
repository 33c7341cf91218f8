package engine

import (
	"testing"
	"time"

	"github.com/efreitasn/matchbook/internal/domain"
)

func TestExpirySweeper_TrackIgnoresOrdersWithoutExpiry(t *testing.T) {
	b := newTestBook()
	sweeper := NewExpirySweeper(time.Second, b)

	sweeper.Track(&domain.Order{ID: 1})
	if sweeper.TrackedCount() != 0 {
		t.Errorf("TrackedCount() = %d, want 0 for good-till-cancelled order", sweeper.TrackedCount())
	}
}

func TestExpirySweeper_TickExpiresDueOrders(t *testing.T) {
	b := newTestBook()
	sweeper := NewExpirySweeper(time.Second, b)

	past := time.Now().Add(-time.Minute)
	future := time.Now().Add(time.Hour)

	dueOrder := limit(domain.OrderSideBid, 10050, 100)
	dueOrder.ExpiresAt = &past
	if _, err := b.SubmitLimit(dueOrder); err != nil {
		t.Fatal(err)
	}
	sweeper.Track(dueOrder)

	laterOrder := limit(domain.OrderSideBid, 10025, 50)
	laterOrder.ExpiresAt = &future
	if _, err := b.SubmitLimit(laterOrder); err != nil {
		t.Fatal(err)
	}
	sweeper.Track(laterOrder)

	sweeper.tick(time.Now())

	if dueOrder.Status != domain.OrderStatusExpired {
		t.Errorf("due order status = %s, want expired", dueOrder.Status)
	}
	if dueOrder.RemainingQuantity != 0 || dueOrder.CancelledQuantity != 100 {
		t.Errorf("due order remaining=%d cancelled=%d, want 0/100",
			dueOrder.RemainingQuantity, dueOrder.CancelledQuantity)
	}
	if laterOrder.Status == domain.OrderStatusExpired {
		t.Error("order expiring in the future was expired")
	}
	if sweeper.TrackedCount() != 1 {
		t.Errorf("TrackedCount() = %d, want 1", sweeper.TrackedCount())
	}

	// The expired bid is a tombstone; best bid falls back to the live one.
	if bid, ok := b.BestBid(); !ok || bid != 10025 {
		t.Errorf("BestBid() = %d, %v, want 10025, true", bid, ok)
	}
}

func TestExpirySweeper_TrackAfterTick(t *testing.T) {
	b := newTestBook()
	sweeper := NewExpirySweeper(time.Second, b)

	// Expire a batch so the active slice has been rebuilt, then track
	// new orders into it and tick again.
	past := time.Now().Add(-time.Minute)
	for i := 0; i < 3; i++ {
		o := limit(domain.OrderSideBid, 10050, 10)
		o.ExpiresAt = &past
		if _, err := b.SubmitLimit(o); err != nil {
			t.Fatal(err)
		}
		sweeper.Track(o)
	}
	sweeper.tick(time.Now())
	if sweeper.TrackedCount() != 0 {
		t.Fatalf("TrackedCount() = %d after tick, want 0", sweeper.TrackedCount())
	}

	soon := time.Now().Add(10 * time.Millisecond)
	later := time.Now().Add(time.Hour)

	lateOrder := limit(domain.OrderSideBid, 10025, 20)
	lateOrder.ExpiresAt = &later
	if _, err := b.SubmitLimit(lateOrder); err != nil {
		t.Fatal(err)
	}
	sweeper.Track(lateOrder)

	soonOrder := limit(domain.OrderSideBid, 10030, 20)
	soonOrder.ExpiresAt = &soon
	if _, err := b.SubmitLimit(soonOrder); err != nil {
		t.Fatal(err)
	}
	sweeper.Track(soonOrder)

	if sweeper.TrackedCount() != 2 {
		t.Fatalf("TrackedCount() = %d, want 2", sweeper.TrackedCount())
	}

	sweeper.tick(time.Now().Add(time.Minute))

	if soonOrder.Status != domain.OrderStatusExpired {
		t.Errorf("soon order status = %s, want expired", soonOrder.Status)
	}
	if lateOrder.Status == domain.OrderStatusExpired {
		t.Error("order expiring in an hour was expired")
	}
	if sweeper.TrackedCount() != 1 {
		t.Errorf("TrackedCount() = %d, want 1", sweeper.TrackedCount())
	}
}

func TestExpirySweeper_FilledOrderIsNoOp(t *testing.T) {
	b := newTestBook()
	sweeper := NewExpirySweeper(time.Second, b)

	past := time.Now().Add(-time.Minute)
	o := limit(domain.OrderSideAsk, 10100, 50)
	o.ExpiresAt = &past
	if _, err := b.SubmitLimit(o); err != nil {
		t.Fatal(err)
	}
	sweeper.Track(o)

	// Fill it before the sweeper runs.
	if _, err := b.SubmitLimit(limit(domain.OrderSideBid, 10100, 50)); err != nil {
		t.Fatal(err)
	}

	sweeper.tick(time.Now())

	if o.Status != domain.OrderStatusFilled {
		t.Errorf("status = %s, want filled (expiry must not touch terminal orders)", o.Status)
	}
}
