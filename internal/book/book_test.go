package book

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestAddBuyAndLayersTaken(t *testing.T) {
	t.Parallel()

	b := New()
	b.AddBuy(&BuyOrder{ID: "o1", Price: d("99.98"), Qty: d("1"), Layer: 0})
	b.AddBuy(&BuyOrder{ID: "o2", Price: d("99.97"), Qty: d("1"), Layer: 1})

	if got := b.BuyCount(); got != 2 {
		t.Fatalf("BuyCount = %d, want 2", got)
	}
	taken := b.LayersTaken()
	if !taken[0] || !taken[1] {
		t.Errorf("LayersTaken = %+v, want {0,1}", taken)
	}

	b.RemoveBuy("o1")
	if got := b.BuyCount(); got != 1 {
		t.Fatalf("BuyCount after remove = %d, want 1", got)
	}
	if taken := b.LayersTaken(); taken[0] {
		t.Errorf("layer 0 still taken after removal")
	}
}

func TestUpdateBuyFilled(t *testing.T) {
	t.Parallel()

	b := New()
	b.AddBuy(&BuyOrder{ID: "o1", Price: d("99.98"), Qty: d("1")})
	b.UpdateBuyFilled("o1", d("0.5"))

	buys := b.Buys()
	if len(buys) != 1 || !buys[0].Filled.Equal(d("0.5")) {
		t.Fatalf("Filled not updated, got %+v", buys)
	}

	// Updating a nonexistent order is a no-op, not a panic.
	b.UpdateBuyFilled("missing", d("1"))
}

func TestHighestTPPicksMaxPrice(t *testing.T) {
	t.Parallel()

	b := New()
	now := time.Unix(1700000000, 0)
	b.AddTP(&TpOrder{ID: "tp1", SellPrice: d("100.01"), Qty: d("1"), PlacedAt: now})
	b.AddTP(&TpOrder{ID: "tp2", SellPrice: d("100.05"), Qty: d("1"), PlacedAt: now.Add(time.Second)})
	b.AddTP(&TpOrder{ID: "tp3", SellPrice: d("100.03"), Qty: d("1"), PlacedAt: now.Add(2 * time.Second)})

	top, ok := b.HighestTP()
	if !ok {
		t.Fatal("HighestTP returned ok=false on non-empty set")
	}
	if top.ID != "tp2" {
		t.Errorf("HighestTP = %s (%s), want tp2 (100.05)", top.ID, top.SellPrice)
	}
}

func TestHighestTPTiesBrokenByOldest(t *testing.T) {
	t.Parallel()

	b := New()
	now := time.Unix(1700000000, 0)
	b.AddTP(&TpOrder{ID: "newer", SellPrice: d("100.05"), Qty: d("1"), PlacedAt: now.Add(time.Minute)})
	b.AddTP(&TpOrder{ID: "older", SellPrice: d("100.05"), Qty: d("1"), PlacedAt: now})

	top, ok := b.HighestTP()
	if !ok {
		t.Fatal("HighestTP returned ok=false on non-empty set")
	}
	if top.ID != "older" {
		t.Errorf("HighestTP = %s, want older (tie broken by oldest placement)", top.ID)
	}
}

func TestHighestTPEmpty(t *testing.T) {
	t.Parallel()

	b := New()
	if _, ok := b.HighestTP(); ok {
		t.Error("HighestTP on empty book should return ok=false")
	}
}

func TestRemoveTPUpdatesHighest(t *testing.T) {
	t.Parallel()

	b := New()
	now := time.Unix(1700000000, 0)
	b.AddTP(&TpOrder{ID: "tp1", SellPrice: d("100.01"), PlacedAt: now})
	b.AddTP(&TpOrder{ID: "tp2", SellPrice: d("100.05"), PlacedAt: now})

	b.RemoveTP("tp2")

	top, ok := b.HighestTP()
	if !ok || top.ID != "tp1" {
		t.Fatalf("after removing tp2, HighestTP = %+v, want tp1", top)
	}
	if got := b.TPCount(); got != 1 {
		t.Errorf("TPCount = %d, want 1", got)
	}
}

func TestPendingMarketSellLifecycle(t *testing.T) {
	t.Parallel()

	b := New()
	if _, ok := b.PendingMarketSell(); ok {
		t.Fatal("expected no pending market sell initially")
	}

	b.SetPendingMarketSell(&PendingMarketSell{ID: "ms1", Qty: d("1")})
	p, ok := b.PendingMarketSell()
	if !ok || p.ID != "ms1" {
		t.Fatalf("PendingMarketSell = %+v, ok=%v", p, ok)
	}

	b.ClearPendingMarketSell()
	if _, ok := b.PendingMarketSell(); ok {
		t.Error("expected pending market sell cleared")
	}
}

func TestPendingNewTPLifecycle(t *testing.T) {
	t.Parallel()

	b := New()
	b.SetPendingNewTP(&PendingNewTP{BuyPrice: d("99.98"), Qty: d("1")})
	p, ok := b.PendingNewTP()
	if !ok || !p.BuyPrice.Equal(d("99.98")) {
		t.Fatalf("PendingNewTP = %+v, ok=%v", p, ok)
	}

	b.ClearPendingNewTP()
	if _, ok := b.PendingNewTP(); ok {
		t.Error("expected pending new TP cleared")
	}
}

func TestSetBuyLayerReassigns(t *testing.T) {
	t.Parallel()

	b := New()
	b.AddBuy(&BuyOrder{ID: "o1", Price: d("99.98"), Qty: d("1"), Layer: 0})
	b.SetBuyLayer("o1", 2)

	o, ok := b.BuyByID("o1")
	if !ok || o.Layer != 2 {
		t.Fatalf("BuyByID after SetBuyLayer = %+v, ok=%v", o, ok)
	}

	// Setting a nonexistent order's layer is a no-op, not a panic.
	b.SetBuyLayer("missing", 5)
}

func TestSnapshotsAreCopies(t *testing.T) {
	t.Parallel()

	b := New()
	b.AddBuy(&BuyOrder{ID: "o1", Price: d("99.98"), Qty: d("1")})

	buys := b.Buys()
	buys[0].Qty = d("999")

	fresh := b.Buys()
	if fresh[0].Qty.Equal(d("999")) {
		t.Error("Buys() snapshot mutation leaked into book state")
	}
}
