package strategy

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"scalpmaker/internal/book"
	"scalpmaker/internal/pricing"
	"scalpmaker/pkg/types"
)

// handleBuyFill is invoked whenever the ladder manager reports a BUY fill
// (spec §4.4). Below the TP cap it places a normal paired TP; at the cap
// it runs the evict-highest-and-market-sell overflow policy.
func (s *Strategy) handleBuyFill(ctx context.Context, buyPrice, qty decimal.Decimal) {
	if s.book.TPCount() < s.cfg.MaxSellTPOrders {
		s.createTP(ctx, buyPrice, qty)
		return
	}
	s.evictHighestAndMarketSell(ctx, buyPrice, qty)
}

// createTP places a normal paired TP at tpPrice(buyPrice) and records it.
func (s *Strategy) createTP(ctx context.Context, buyPrice, qty decimal.Decimal) {
	sell := pricing.TPPrice(buyPrice, s.cfg.TPTicks, s.cfg.TickSize)
	id, err := s.client.PlaceLimit(ctx, types.Sell, sell, qty, "")
	if err != nil {
		s.logTickError("place tp", err)
		return
	}
	s.book.AddTP(&book.TpOrder{
		ID:        id,
		SellPrice: sell,
		Qty:       qty,
		BuyPrice:  buyPrice,
		PlacedAt:  time.Now(),
	})
	s.stats.SellCreated++
	s.stats.addPendingPosition(id, buyPrice, qty)
}

// evictHighestAndMarketSell implements spec §4.4's overflow policy: cancel
// the TP with the highest sell price (oldest on ties), market-sell its
// quantity, and enter waitingForMarketSell with the new fill parked as a
// pendingNewTP until the eviction settles or a slot frees.
func (s *Strategy) evictHighestAndMarketSell(ctx context.Context, fillBuyPrice, fillQty decimal.Decimal) {
	evicted, ok := s.book.HighestTP()
	if !ok {
		// The cap is reached yet no TP is on record: nothing to evict, so
		// fall through to a normal placement rather than getting stuck.
		s.createTP(ctx, fillBuyPrice, fillQty)
		return
	}

	if err := s.client.Cancel(ctx, evicted.ID); err != nil {
		s.logTickError("evict cancel tp", err)
		return
	}
	s.book.RemoveTP(evicted.ID)
	s.stats.removePendingPosition(evicted.ID)
	s.emitFill("tp_evicted", evicted.SellPrice, evicted.Qty, decimal.Zero)

	msID, err := s.client.PlaceMarket(ctx, types.Sell, evicted.Qty, "")
	if err != nil {
		// Spec §4.4 step 5: abort the wait state and fall back to a normal
		// placement for the triggering fill.
		s.logTickError("evict market sell", err)
		s.createTP(ctx, fillBuyPrice, fillQty)
		return
	}

	s.book.SetPendingMarketSell(&book.PendingMarketSell{
		ID:       msID,
		BuyPrice: evicted.BuyPrice,
		Qty:      evicted.Qty,
		PlacedAt: time.Now(),
	})
	s.book.SetPendingNewTP(&book.PendingNewTP{BuyPrice: fillBuyPrice, Qty: fillQty})
	s.waiting = true
}

// ReconcileTPs queries every open TP's status, accounts fills into
// realizedPnL, and then opportunistically materializes a pendingNewTP if a
// slot has freed (spec §4.4).
func (s *Strategy) ReconcileTPs(ctx context.Context) {
	for _, tp := range s.book.TPs() {
		status, err := s.client.Status(ctx, tp.ID)
		if err != nil {
			s.logTickError("tp status query", err)
			continue
		}
		if status.State != types.StateFilled {
			continue // PartiallyFilled is informational only.
		}
		pnl := tp.SellPrice.Sub(tp.BuyPrice).Mul(tp.Qty)
		s.stats.RealizedPnL = s.stats.RealizedPnL.Add(pnl)
		s.stats.SellFilled++
		s.book.RemoveTP(tp.ID)
		s.stats.removePendingPosition(tp.ID)
		s.emitFill("tp_fill", tp.SellPrice, tp.Qty, pnl)
	}

	s.resolvePendingNewTP(ctx)
}

// resolvePendingNewTP materializes a pendingNewTP the moment a TP slot
// frees, without itself exiting the wait sub-state (spec §4.4: "only the
// market-sell-status controller may exit it").
func (s *Strategy) resolvePendingNewTP(ctx context.Context) {
	if !s.waiting {
		return
	}
	pending, ok := s.book.PendingNewTP()
	if !ok {
		return
	}
	if s.book.TPCount() >= s.cfg.MaxSellTPOrders {
		return
	}
	s.createTP(ctx, pending.BuyPrice, pending.Qty)
	s.book.ClearPendingNewTP()
}
