package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"scalpmaker/internal/config"
	"scalpmaker/pkg/types"
)

// fakeAdapter is a minimal exchange.Adapter stand-in: market orders are
// reported Filled as soon as they are placed, and limit orders stay New
// until fillEverything marks them Filled, which is enough to drive the
// engine through a full BUY -> TP -> fill cycle without a real exchange.
type fakeAdapter struct {
	mu     sync.Mutex
	nextID int
	states map[string]types.OrderState
	top    types.OrderBookTop
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{
		states: make(map[string]types.OrderState),
		top:    types.OrderBookTop{BestBid: decimal.RequireFromString("100.00"), BestAsk: decimal.RequireFromString("100.02")},
	}
}

func (f *fakeAdapter) PlaceLimit(context.Context, types.Side, decimal.Decimal, decimal.Decimal, string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("o-%d", f.nextID)
	f.states[id] = types.StateNew
	return id, nil
}

func (f *fakeAdapter) PlaceMarket(context.Context, types.Side, decimal.Decimal, string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("m-%d", f.nextID)
	f.states[id] = types.StateFilled
	return id, nil
}

func (f *fakeAdapter) Cancel(_ context.Context, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.states, orderID)
	return nil
}

func (f *fakeAdapter) Status(_ context.Context, orderID string) (types.StatusResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	state := f.states[orderID]
	qty := decimal.Zero
	if state == types.StateFilled {
		qty = decimal.RequireFromString("1")
	}
	return types.StatusResult{State: state, CumExecQty: qty}, nil
}

func (f *fakeAdapter) OrderbookTop(context.Context) (types.OrderBookTop, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.top, nil
}

// fillEverything marks every currently-New order as Filled, simulating the
// exchange filling the whole resting book on the next status query.
func (f *fakeAdapter) fillEverything() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, st := range f.states {
		if st == types.StateNew {
			f.states[id] = types.StateFilled
		}
	}
}

func testCfg() config.StrategyConfig {
	return config.StrategyConfig{
		Symbol:          "BTCUSDT",
		Category:        "linear",
		TickSize:        decimal.RequireFromString("0.01"),
		OrderQty:        decimal.RequireFromString("1"),
		MaxBuyOrders:    2,
		OffsetTicks:     1,
		LayerStepTicks:  2,
		RepriceTicks:    50,
		TPTicks:         5,
		MaxSellTPOrders: 2,
		BuyTTL:          time.Hour,
		LoopInterval:    10 * time.Millisecond,
		SellAllOnStop:   true,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestStartPlacesLaddersAndStopDrains(t *testing.T) {
	adapter := newFakeAdapter()
	e := New(testCfg(), adapter, testLogger())

	if err := e.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if e.State() != StateRunning {
		t.Fatalf("State after Start = %s, want Running", e.State())
	}

	waitForCondition(t, func() bool {
		return len(e.Snapshot().OpenBuyOrders) == testCfg().MaxBuyOrders
	})

	if err := e.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if e.State() != StateStopped {
		t.Fatalf("State after Stop = %s, want Stopped", e.State())
	}
}

func TestPauseCancelsBuysAndResumeRestarts(t *testing.T) {
	adapter := newFakeAdapter()
	e := New(testCfg(), adapter, testLogger())

	if err := e.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitForCondition(t, func() bool {
		return len(e.Snapshot().OpenBuyOrders) == testCfg().MaxBuyOrders
	})

	if err := e.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	waitForCondition(t, func() bool {
		return e.State() == StatePaused && len(e.Snapshot().OpenBuyOrders) == 0
	})

	if err := e.Resume(); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	waitForCondition(t, func() bool {
		return e.State() == StateRunning && len(e.Snapshot().OpenBuyOrders) == testCfg().MaxBuyOrders
	})

	if err := e.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestInvalidTransitionsReturnError(t *testing.T) {
	adapter := newFakeAdapter()
	e := New(testCfg(), adapter, testLogger())

	if err := e.Pause(); err == nil {
		t.Error("Pause from Stopped should error")
	}
	if err := e.Resume(); err == nil {
		t.Error("Resume from Stopped should error")
	}
}

func waitForCondition(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
