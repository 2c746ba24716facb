package strategy

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"scalpmaker/internal/book"
	"scalpmaker/internal/pricing"
	"scalpmaker/pkg/types"
)

const (
	marketSellTimeout  = 30 * time.Second
	limitFallbackRetry = 10 * time.Second
)

// RunWaitingController drives the waitingForMarketSell sub-state (spec
// §4.5). It is a no-op unless the previous tick's TP overflow policy left
// a pendingMarketSell on record.
func (s *Strategy) RunWaitingController(ctx context.Context) {
	pms, ok := s.book.PendingMarketSell()
	if !ok {
		s.waiting = false
		return
	}

	status, err := s.client.Status(ctx, pms.ID)
	if err != nil {
		s.logTickError("waiting: status query", err)
		return
	}

	switch status.State {
	case types.StateFilled:
		s.settleMarketSell(ctx, pms)
	case types.StatePartiallyFilled:
		// Continue waiting; no structural change.
	default:
		s.advanceStillOpenMarketSell(ctx, pms)
	}
}

// settleMarketSell accounts a filled eviction sell at the most pessimistic
// book-side quote (spec §9(a)'s preserved asymmetry), materializes any
// pendingNewTP, and exits the wait sub-state.
func (s *Strategy) settleMarketSell(ctx context.Context, pms *book.PendingMarketSell) {
	top, err := s.client.OrderbookTop(ctx)
	if err != nil {
		s.logTickError("waiting: orderbook fetch on settle", err)
		return
	}

	pnl := top.BestBid.Sub(pms.BuyPrice).Mul(pms.Qty)
	s.stats.RealizedPnL = s.stats.RealizedPnL.Add(pnl)
	s.stats.SellFilled++
	s.emitFill("market_sell_fill", top.BestBid, pms.Qty, pnl)

	if pending, ok := s.book.PendingNewTP(); ok {
		s.createTP(ctx, pending.BuyPrice, pending.Qty)
	}
	s.book.ClearPendingMarketSell()
	s.book.ClearPendingNewTP()
	s.waiting = false
}

// advanceStillOpenMarketSell applies the timeout/reprice ladder of spec
// §4.5 to a pendingMarketSell that is neither filled nor partially filled.
func (s *Strategy) advanceStillOpenMarketSell(ctx context.Context, pms *book.PendingMarketSell) {
	elapsed := time.Since(pms.PlacedAt)

	if !pms.IsLimitFallback {
		if elapsed <= marketSellTimeout {
			return
		}
		s.fallBackToLimit(ctx, pms)
		return
	}

	if elapsed <= limitFallbackRetry {
		return
	}
	s.repriceLimitFallbackIfDrifted(ctx, pms)
}

// fallBackToLimit cancels a market sell stuck open past the timeout and
// replaces it with a SELL limit at the current best bid.
func (s *Strategy) fallBackToLimit(ctx context.Context, pms *book.PendingMarketSell) {
	_ = s.client.Cancel(ctx, pms.ID) // best effort

	top, err := s.client.OrderbookTop(ctx)
	if err != nil {
		s.logTickError("waiting: orderbook fetch for limit fallback", err)
		return
	}
	newPrice := pricing.RoundToTick(top.BestBid, s.cfg.TickSize)

	newID, err := s.client.PlaceLimit(ctx, types.Sell, newPrice, pms.Qty, "")
	if err != nil {
		s.logTickError("waiting: limit fallback place failed", err)
		s.giveUpOnEvictedPosition(ctx)
		return
	}

	s.book.SetPendingMarketSell(&book.PendingMarketSell{
		ID:              newID,
		BuyPrice:        pms.BuyPrice,
		Qty:             pms.Qty,
		PlacedAt:        time.Now(),
		IsLimitFallback: true,
		LimitPrice:      newPrice,
	})
}

// repriceLimitFallbackIfDrifted replaces the fallback limit once best bid
// has moved more than two ticks away from it.
func (s *Strategy) repriceLimitFallbackIfDrifted(ctx context.Context, pms *book.PendingMarketSell) {
	top, err := s.client.OrderbookTop(ctx)
	if err != nil {
		s.logTickError("waiting: orderbook fetch for reprice", err)
		return
	}

	drift := top.BestBid.Sub(pms.LimitPrice).Abs()
	threshold := s.cfg.TickSize.Mul(decimal.NewFromInt(2))
	if !drift.GreaterThan(threshold) {
		return
	}

	_ = s.client.Cancel(ctx, pms.ID) // best effort
	newPrice := pricing.RoundToTick(top.BestBid, s.cfg.TickSize)

	newID, err := s.client.PlaceLimit(ctx, types.Sell, newPrice, pms.Qty, "")
	if err != nil {
		s.logTickError("waiting: limit reprice failed", err)
		return
	}

	s.book.SetPendingMarketSell(&book.PendingMarketSell{
		ID:              newID,
		BuyPrice:        pms.BuyPrice,
		Qty:             pms.Qty,
		PlacedAt:        time.Now(),
		IsLimitFallback: true,
		LimitPrice:      newPrice,
	})
}

// giveUpOnEvictedPosition exits the wait sub-state without a sell fill to
// attribute P/L to, when even the limit fallback cannot be placed.
// pendingNewTP is still materialized if present.
func (s *Strategy) giveUpOnEvictedPosition(ctx context.Context) {
	if pending, ok := s.book.PendingNewTP(); ok {
		s.createTP(ctx, pending.BuyPrice, pending.Qty)
		s.book.ClearPendingNewTP()
	}
	s.book.ClearPendingMarketSell()
	s.waiting = false
}
