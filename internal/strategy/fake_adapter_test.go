package strategy

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"scalpmaker/pkg/types"
)

// fakeOrder is one order tracked by fakeAdapter, a minimal in-memory stand-in
// for exchange.Adapter driven entirely by test-set state (no network, no
// time-based matching).
type fakeOrder struct {
	side       types.Side
	price      decimal.Decimal
	qty        decimal.Decimal
	cumExecQty decimal.Decimal
	state      types.OrderState
	canceled   bool
}

// fakeAdapter implements exchange.Adapter for strategy unit tests. Tests
// drive it by mutating fakeAdapter.orders directly or via the fill/ helpers.
type fakeAdapter struct {
	mu      sync.Mutex
	nextID  int
	orders  map[string]*fakeOrder
	top     types.OrderBookTop
	placeErr error
}

func newFakeAdapter(bestBid, bestAsk decimal.Decimal) *fakeAdapter {
	return &fakeAdapter{
		orders: make(map[string]*fakeOrder),
		top:    types.OrderBookTop{BestBid: bestBid, BestAsk: bestAsk},
	}
}

func (f *fakeAdapter) PlaceLimit(_ context.Context, side types.Side, price, qty decimal.Decimal, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.placeErr != nil {
		return "", f.placeErr
	}
	f.nextID++
	id := fmt.Sprintf("order-%d", f.nextID)
	f.orders[id] = &fakeOrder{side: side, price: price, qty: qty, state: types.StateNew}
	return id, nil
}

func (f *fakeAdapter) PlaceMarket(_ context.Context, side types.Side, qty decimal.Decimal, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.placeErr != nil {
		return "", f.placeErr
	}
	f.nextID++
	id := fmt.Sprintf("market-%d", f.nextID)
	f.orders[id] = &fakeOrder{side: side, qty: qty, state: types.StateNew}
	return id, nil
}

func (f *fakeAdapter) Cancel(_ context.Context, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return fmt.Errorf("unknown order %s", orderID)
	}
	o.canceled = true
	return nil
}

func (f *fakeAdapter) Status(_ context.Context, orderID string) (types.StatusResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return types.StatusResult{}, fmt.Errorf("unknown order %s", orderID)
	}
	return types.StatusResult{State: o.state, CumExecQty: o.cumExecQty}, nil
}

func (f *fakeAdapter) OrderbookTop(_ context.Context) (types.OrderBookTop, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.top, nil
}

func (f *fakeAdapter) fill(orderID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o := f.orders[orderID]
	o.state = types.StateFilled
	o.cumExecQty = o.qty
}

func (f *fakeAdapter) setTop(bestBid, bestAsk decimal.Decimal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.top = types.OrderBookTop{BestBid: bestBid, BestAsk: bestAsk}
}

func (f *fakeAdapter) onlyOrderID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id := range f.orders {
		return id
	}
	return ""
}
