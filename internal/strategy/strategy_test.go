package strategy

import (
	"context"
	"testing"
)

func TestResetClearsBookAndStats(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	adapter := newFakeAdapter(d("100.00"), d("100.02"))
	s := New(cfg, adapter, testLogger())

	s.TopUpLadder(context.Background(), d("100.00"))
	if s.book.BuyCount() == 0 {
		t.Fatal("expected buys before reset")
	}

	s.Reset()

	if s.book.BuyCount() != 0 {
		t.Errorf("BuyCount after Reset = %d, want 0", s.book.BuyCount())
	}
	if s.stats.BuyCreated != 0 {
		t.Errorf("BuyCreated after Reset = %d, want 0", s.stats.BuyCreated)
	}
	if s.IsWaiting() {
		t.Error("expected waiting to clear on Reset")
	}
}

func TestEstimatedProfitIncludesUnrealizedTPs(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	adapter := newFakeAdapter(d("100.00"), d("100.02"))
	s := New(cfg, adapter, testLogger())

	s.handleBuyFill(context.Background(), d("100.00"), d("1"))

	got := s.EstimatedProfit()
	want := d("0.05") // tpTicks=5 * tickSize=0.01
	if !got.Equal(want) {
		t.Errorf("EstimatedProfit = %s, want %s", got, want)
	}
}

func TestStopPolicySellAllCancelsAndMarketSellsEveryTP(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	adapter := newFakeAdapter(d("100.00"), d("100.10"))
	s := New(cfg, adapter, testLogger())

	s.handleBuyFill(context.Background(), d("100.00"), d("1"))
	s.handleBuyFill(context.Background(), d("99.80"), d("1"))
	if s.book.TPCount() != 2 {
		t.Fatalf("TPCount before stop = %d, want 2", s.book.TPCount())
	}

	s.StopPolicy(context.Background(), true)

	if s.book.TPCount() != 0 {
		t.Fatalf("TPCount after stop = %d, want 0", s.book.TPCount())
	}
	if s.stats.SellCanceled != 2 {
		t.Errorf("SellCanceled = %d, want 2", s.stats.SellCanceled)
	}
	if !s.stats.RealizedPnL.GreaterThan(d("0")) {
		t.Errorf("RealizedPnL = %s, want > 0 (sellAllOnStop realizes at best ask)", s.stats.RealizedPnL)
	}
}

func TestStopPolicyCancelOnlyLeavesNoMarketSell(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	adapter := newFakeAdapter(d("100.00"), d("100.10"))
	s := New(cfg, adapter, testLogger())

	s.handleBuyFill(context.Background(), d("100.00"), d("1"))

	s.StopPolicy(context.Background(), false)

	if s.book.TPCount() != 0 {
		t.Fatalf("TPCount after cancel-only stop = %d, want 0", s.book.TPCount())
	}
	if !s.stats.RealizedPnL.IsZero() {
		t.Errorf("RealizedPnL = %s, want 0 (cancel-only never market sells)", s.stats.RealizedPnL)
	}
}
