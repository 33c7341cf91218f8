package engine

import (
	"errors"
	"testing"

	"github.com/efreitasn/matchbook/internal/domain"
	"github.com/efreitasn/matchbook/internal/store"
)

func newTestBook() *Book {
	return New("TEST", store.NewOrderStore(), store.NewTradeLog())
}

func limit(side domain.OrderSide, price, qty int64) *domain.Order {
	return &domain.Order{Side: side, Price: price, Quantity: qty}
}

func market(side domain.OrderSide, qty int64) *domain.Order {
	return &domain.Order{Side: side, Quantity: qty}
}

func TestBook_SubmitLimit_RejectsInvalidInput(t *testing.T) {
	b := newTestBook()

	cases := []struct {
		name  string
		order *domain.Order
	}{
		{"zero price", limit(domain.OrderSideBid, 0, 100)},
		{"negative price", limit(domain.OrderSideBid, -10050, 100)},
		{"zero quantity", limit(domain.OrderSideAsk, 10050, 0)},
		{"negative quantity", limit(domain.OrderSideAsk, 10050, -1)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := b.SubmitLimit(tc.order)
			var vErr *domain.ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("SubmitLimit() error = %v, want ValidationError", err)
			}
		})
	}

	// Atomic rejection: nothing rested, nothing traded, no id consumed.
	if b.LiveOrderCount() != 0 {
		t.Errorf("LiveOrderCount() = %d after rejections, want 0", b.LiveOrderCount())
	}
	if b.TradeCount() != 0 {
		t.Errorf("TradeCount() = %d after rejections, want 0", b.TradeCount())
	}
	o := limit(domain.OrderSideBid, 10050, 100)
	if _, err := b.SubmitLimit(o); err != nil {
		t.Fatalf("SubmitLimit() unexpected error: %v", err)
	}
	if o.ID != 1 {
		t.Errorf("first accepted order id = %d, want 1 (rejections must not consume ids)", o.ID)
	}
}

func TestBook_SubmitMarket_RejectsInvalidQuantity(t *testing.T) {
	b := newTestBook()
	_, err := b.SubmitMarket(market(domain.OrderSideAsk, 0))
	var vErr *domain.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("SubmitMarket() error = %v, want ValidationError", err)
	}
}

func TestBook_AssignsMonotonicIDs(t *testing.T) {
	b := newTestBook()
	o1 := limit(domain.OrderSideBid, 10000, 10)
	o2 := limit(domain.OrderSideAsk, 20000, 10)
	o3 := market(domain.OrderSideBid, 5)

	if _, err := b.SubmitLimit(o1); err != nil {
		t.Fatal(err)
	}
	if _, err := b.SubmitLimit(o2); err != nil {
		t.Fatal(err)
	}
	if _, err := b.SubmitMarket(o3); err != nil {
		t.Fatal(err)
	}

	if o1.ID != 1 || o2.ID != 2 || o3.ID != 3 {
		t.Errorf("ids = %d, %d, %d, want 1, 2, 3", o1.ID, o2.ID, o3.ID)
	}
	if !(o1.Seq < o2.Seq && o2.Seq < o3.Seq) {
		t.Errorf("arrival sequences not strictly increasing: %d, %d, %d", o1.Seq, o2.Seq, o3.Seq)
	}
}

// Scenario: non-crossing limit orders rest and set best bid/ask.
func TestBook_NonCrossingOrdersRest(t *testing.T) {
	b := newTestBook()

	submitLimitOK(t, b, domain.OrderSideBid, 10050, 100)
	submitLimitOK(t, b, domain.OrderSideBid, 10025, 200)
	trades := submitLimitOK(t, b, domain.OrderSideAsk, 10090, 75)

	if len(trades) != 0 {
		t.Fatalf("got %d trades, want 0 (book must not cross)", len(trades))
	}
	if bid, ok := b.BestBid(); !ok || bid != 10050 {
		t.Errorf("BestBid() = %d, %v, want 10050, true", bid, ok)
	}
	if ask, ok := b.BestAsk(); !ok || ask != 10090 {
		t.Errorf("BestAsk() = %d, %v, want 10090, true", ask, ok)
	}
}

// Scenario: an aggressive buy sweeps two ask levels at maker prices.
func TestBook_AggressiveBuySweepsAsks(t *testing.T) {
	b := newTestBook()

	submitLimitOK(t, b, domain.OrderSideBid, 10050, 100)
	submitLimitOK(t, b, domain.OrderSideBid, 10025, 200)
	submitLimitOK(t, b, domain.OrderSideAsk, 10090, 75)
	submitLimitOK(t, b, domain.OrderSideAsk, 10100, 150)

	incoming := limit(domain.OrderSideBid, 10110, 200)
	trades, err := b.SubmitLimit(incoming)
	if err != nil {
		t.Fatal(err)
	}

	if len(trades) != 2 {
		t.Fatalf("got %d trades, want 2", len(trades))
	}
	if trades[0].Quantity != 75 || trades[0].Price != 10090 {
		t.Errorf("trade[0] = %d @ %d, want 75 @ 10090", trades[0].Quantity, trades[0].Price)
	}
	if trades[1].Quantity != 125 || trades[1].Price != 10100 {
		t.Errorf("trade[1] = %d @ %d, want 125 @ 10100", trades[1].Quantity, trades[1].Price)
	}

	if incoming.RemainingQuantity != 0 {
		t.Errorf("incoming remaining = %d, want 0 (fully filled)", incoming.RemainingQuantity)
	}
	if incoming.Status != domain.OrderStatusFilled {
		t.Errorf("incoming status = %s, want filled", incoming.Status)
	}

	// The partially filled ask at 10100 has 25 left and is the new best.
	if ask, ok := b.BestAsk(); !ok || ask != 10100 {
		t.Errorf("BestAsk() = %d, %v, want 10100, true", ask, ok)
	}
}

// Scenario: a market sell consumes the highest bids first.
func TestBook_MarketSellConsumesBestBidsFirst(t *testing.T) {
	b := newTestBook()

	submitLimitOK(t, b, domain.OrderSideBid, 10050, 100)
	submitLimitOK(t, b, domain.OrderSideBid, 10025, 200)
	submitLimitOK(t, b, domain.OrderSideBid, 10075, 50)

	trades, err := b.SubmitMarket(market(domain.OrderSideAsk, 120))
	if err != nil {
		t.Fatal(err)
	}

	if len(trades) != 2 {
		t.Fatalf("got %d trades, want 2", len(trades))
	}
	if trades[0].Quantity != 50 || trades[0].Price != 10075 {
		t.Errorf("trade[0] = %d @ %d, want 50 @ 10075", trades[0].Quantity, trades[0].Price)
	}
	if trades[1].Quantity != 70 || trades[1].Price != 10050 {
		t.Errorf("trade[1] = %d @ %d, want 70 @ 10050", trades[1].Quantity, trades[1].Price)
	}

	// 30 remain on the 10050 bid.
	if bid, ok := b.BestBid(); !ok || bid != 10050 {
		t.Errorf("BestBid() = %d, %v, want 10050, true", bid, ok)
	}
}

func TestBook_MarketOrder_PartialFillDiscardsShortfall(t *testing.T) {
	b := newTestBook()

	submitLimitOK(t, b, domain.OrderSideAsk, 10100, 80)

	o := market(domain.OrderSideBid, 200)
	trades, err := b.SubmitMarket(o)
	if err != nil {
		t.Fatal(err)
	}

	if len(trades) != 1 || trades[0].Quantity != 80 {
		t.Fatalf("trades = %v, want one trade of 80", trades)
	}
	if o.FilledQuantity != 80 || o.CancelledQuantity != 120 || o.RemainingQuantity != 0 {
		t.Errorf("filled=%d cancelled=%d remaining=%d, want 80/120/0",
			o.FilledQuantity, o.CancelledQuantity, o.RemainingQuantity)
	}
	if o.Status != domain.OrderStatusCancelled {
		t.Errorf("status = %s, want cancelled (IOC shortfall)", o.Status)
	}
	// Market orders never rest.
	if _, ok := b.BestBid(); ok {
		t.Error("market order must not rest on the book")
	}
}

func TestBook_MarketOrder_EmptyOppositeSideYieldsNoTrades(t *testing.T) {
	b := newTestBook()

	trades, err := b.SubmitMarket(market(domain.OrderSideBid, 50))
	if err != nil {
		t.Fatalf("SubmitMarket() unexpected error: %v", err)
	}
	if len(trades) != 0 {
		t.Errorf("got %d trades against an empty book, want 0", len(trades))
	}
}

func TestBook_PriceTimePriority_SamePriceFIFO(t *testing.T) {
	b := newTestBook()

	first := limit(domain.OrderSideAsk, 10100, 60)
	second := limit(domain.OrderSideAsk, 10100, 60)
	if _, err := b.SubmitLimit(first); err != nil {
		t.Fatal(err)
	}
	if _, err := b.SubmitLimit(second); err != nil {
		t.Fatal(err)
	}

	trades, err := b.SubmitLimit(limit(domain.OrderSideBid, 10100, 60))
	if err != nil {
		t.Fatal(err)
	}
	if len(trades) != 1 {
		t.Fatalf("got %d trades, want 1", len(trades))
	}
	if trades[0].SellOrderID != first.ID {
		t.Errorf("matched seller = %d, want earlier order %d", trades[0].SellOrderID, first.ID)
	}
	if first.RemainingQuantity != 0 || second.RemainingQuantity != 60 {
		t.Errorf("remaining = %d/%d, want 0/60", first.RemainingQuantity, second.RemainingQuantity)
	}
}

func TestBook_Cancel(t *testing.T) {
	b := newTestBook()

	o := limit(domain.OrderSideBid, 10050, 100)
	if _, err := b.SubmitLimit(o); err != nil {
		t.Fatal(err)
	}

	cancelled, err := b.Cancel(o.ID)
	if err != nil {
		t.Fatalf("Cancel() unexpected error: %v", err)
	}
	if cancelled.Status != domain.OrderStatusCancelled {
		t.Errorf("status = %s, want cancelled", cancelled.Status)
	}
	if cancelled.RemainingQuantity != 0 || cancelled.CancelledQuantity != 100 {
		t.Errorf("remaining=%d cancelled=%d, want 0/100",
			cancelled.RemainingQuantity, cancelled.CancelledQuantity)
	}

	// The tombstone must not surface as best.
	if _, ok := b.BestBid(); ok {
		t.Error("BestBid() returned a price after the only bid was cancelled")
	}
}

func TestBook_Cancel_Idempotent(t *testing.T) {
	b := newTestBook()

	o := limit(domain.OrderSideAsk, 10100, 100)
	if _, err := b.SubmitLimit(o); err != nil {
		t.Fatal(err)
	}

	if _, err := b.Cancel(o.ID); err != nil {
		t.Fatalf("first Cancel() unexpected error: %v", err)
	}
	if _, err := b.Cancel(o.ID); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Errorf("second Cancel() error = %v, want ErrOrderNotFound", err)
	}
}

func TestBook_Cancel_UnknownID(t *testing.T) {
	b := newTestBook()
	if _, err := b.Cancel(42); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Errorf("Cancel(42) error = %v, want ErrOrderNotFound", err)
	}
}

func TestBook_Cancel_FilledOrderNotFound(t *testing.T) {
	b := newTestBook()

	resting := limit(domain.OrderSideAsk, 10100, 50)
	if _, err := b.SubmitLimit(resting); err != nil {
		t.Fatal(err)
	}
	if _, err := b.SubmitLimit(limit(domain.OrderSideBid, 10100, 50)); err != nil {
		t.Fatal(err)
	}

	if _, err := b.Cancel(resting.ID); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Errorf("Cancel() on a fully filled order = %v, want ErrOrderNotFound", err)
	}
}

func TestBook_CancelledOrderNeverMatches(t *testing.T) {
	b := newTestBook()

	best := limit(domain.OrderSideAsk, 10090, 75)
	if _, err := b.SubmitLimit(best); err != nil {
		t.Fatal(err)
	}
	submitLimitOK(t, b, domain.OrderSideAsk, 10100, 75)

	if _, err := b.Cancel(best.ID); err != nil {
		t.Fatal(err)
	}

	// The incoming buy must skip the tombstone and trade at 10100.
	trades, err := b.SubmitLimit(limit(domain.OrderSideBid, 10150, 75))
	if err != nil {
		t.Fatal(err)
	}
	if len(trades) != 1 || trades[0].Price != 10100 {
		t.Fatalf("trades = %v, want one trade @ 10100", trades)
	}
}

func TestBook_BestQueries_EmptyBook(t *testing.T) {
	b := newTestBook()
	if _, ok := b.BestBid(); ok {
		t.Error("BestBid() = ok on empty book, want absent")
	}
	if _, ok := b.BestAsk(); ok {
		t.Error("BestAsk() = ok on empty book, want absent")
	}
}

func TestBook_TradeCountAndLog(t *testing.T) {
	log := store.NewTradeLog()
	b := New("TEST", store.NewOrderStore(), log)

	submitLimitOK(t, b, domain.OrderSideAsk, 10090, 75)
	submitLimitOK(t, b, domain.OrderSideAsk, 10100, 150)
	submitLimitOK(t, b, domain.OrderSideBid, 10110, 200)

	if b.TradeCount() != 2 {
		t.Fatalf("TradeCount() = %d, want 2", b.TradeCount())
	}
	all := log.All()
	if len(all) != 2 {
		t.Fatalf("log holds %d trades, want 2", len(all))
	}
	if all[0].Seq != 1 || all[1].Seq != 2 {
		t.Errorf("trade seqs = %d, %d, want 1, 2", all[0].Seq, all[1].Seq)
	}
	for i, tr := range all {
		if tr.Quantity <= 0 {
			t.Errorf("trade[%d] quantity = %d, want > 0", i, tr.Quantity)
		}
	}
}

func TestBook_Quote_BidWalksAsks(t *testing.T) {
	b := newTestBook()

	submitLimitOK(t, b, domain.OrderSideAsk, 10090, 75)
	submitLimitOK(t, b, domain.OrderSideAsk, 10100, 150)

	q := b.Quote(domain.OrderSideBid, 100)
	if !q.FullyFillable {
		t.Error("quote for 100 against 225 available should be fully fillable")
	}
	if q.QuantityAvailable != 100 {
		t.Errorf("QuantityAvailable = %d, want 100", q.QuantityAvailable)
	}
	// 75 @ 10090 + 25 @ 10100 = 756750 + 252500 = 1009250; avg = 10092
	if q.EstimatedTotal == nil || *q.EstimatedTotal != 1009250 {
		t.Errorf("EstimatedTotal = %v, want 1009250", q.EstimatedTotal)
	}
	if q.EstimatedAvgPrice == nil || *q.EstimatedAvgPrice != 10092 {
		t.Errorf("EstimatedAvgPrice = %v, want 10092", q.EstimatedAvgPrice)
	}
	if len(q.PriceLevels) != 2 {
		t.Errorf("got %d price levels, want 2", len(q.PriceLevels))
	}
}

func TestBook_Quote_NoLiquidity(t *testing.T) {
	b := newTestBook()
	q := b.Quote(domain.OrderSideAsk, 10)
	if q.QuantityAvailable != 0 || q.FullyFillable {
		t.Errorf("quote = %+v, want zero availability, not fillable", q)
	}
	if q.EstimatedAvgPrice != nil || q.EstimatedTotal != nil {
		t.Error("estimates must be nil when there is no liquidity")
	}
}

func TestBook_TopLevels_SkipTombstones(t *testing.T) {
	b := newTestBook()

	submitLimitOK(t, b, domain.OrderSideBid, 10050, 100)
	o := limit(domain.OrderSideBid, 10075, 50)
	if _, err := b.SubmitLimit(o); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Cancel(o.ID); err != nil {
		t.Fatal(err)
	}

	levels := b.TopBids(10)
	if len(levels) != 1 {
		t.Fatalf("got %d levels, want 1 (cancelled level must not appear)", len(levels))
	}
	if levels[0].Price != 10050 || levels[0].TotalQuantity != 100 {
		t.Errorf("level = %+v, want 100 @ 10050", levels[0])
	}
}

func TestBook_Order_ReturnsIndependentCopy(t *testing.T) {
	b := newTestBook()

	o := limit(domain.OrderSideAsk, 10050, 100)
	if _, err := b.SubmitLimit(o); err != nil {
		t.Fatal(err)
	}
	submitLimitOK(t, b, domain.OrderSideBid, 10050, 40)

	got, err := b.Order(o.ID)
	if err != nil {
		t.Fatalf("Order() unexpected error: %v", err)
	}
	if got == o {
		t.Fatal("Order() returned the live instance, want a copy")
	}
	if got.RemainingQuantity != 60 || got.FilledQuantity != 40 || len(got.Trades) != 1 {
		t.Fatalf("copy = %d remaining, %d filled, %d trades; want 60/40/1",
			got.RemainingQuantity, got.FilledQuantity, len(got.Trades))
	}

	// Mutating the copy must not leak back into the book.
	got.RemainingQuantity = 0
	got.Trades = append(got.Trades, &domain.Trade{Quantity: 999})

	again, err := b.Order(o.ID)
	if err != nil {
		t.Fatal(err)
	}
	if again.RemainingQuantity != 60 || len(again.Trades) != 1 {
		t.Errorf("book state changed through the copy: %d remaining, %d trades",
			again.RemainingQuantity, len(again.Trades))
	}

	if _, err := b.Order(9999); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Errorf("Order(unknown) error = %v, want ErrOrderNotFound", err)
	}
}

// submitLimitOK submits a limit order and fails the test on error.
func submitLimitOK(t *testing.T, b *Book, side domain.OrderSide, price, qty int64) []*domain.Trade {
	t.Helper()
	trades, err := b.SubmitLimit(limit(side, price, qty))
	if err != nil {
		t.Fatalf("SubmitLimit(%s, %d, %d) unexpected error: %v", side, price, qty, err)
	}
	return trades
}
