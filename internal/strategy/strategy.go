package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"scalpmaker/internal/book"
	"scalpmaker/internal/config"
	"scalpmaker/internal/exchange"
	"scalpmaker/pkg/types"
)

// Strategy is the ladder/TP/waiting controller for one instrument. It is a
// value type owning its own book and stats (spec §9: "permitting multiple
// instances per process"), driven one tick at a time by internal/engine.
type Strategy struct {
	cfg    config.StrategyConfig
	book   *book.Book
	client exchange.Adapter
	logger *slog.Logger

	stats Stats

	lastBuyFillTime time.Time
	waiting         bool

	onFill func(FillEvent)
}

// New creates a Strategy for one instrument.
func New(cfg config.StrategyConfig, client exchange.Adapter, logger *slog.Logger) *Strategy {
	return &Strategy{
		cfg:    cfg,
		book:   book.New(),
		client: client,
		logger: logger.With("component", "strategy", "symbol", cfg.Symbol),
		stats:  newStats(),
	}
}

// Reset clears all open orders and stats, the "reset stats" side effect of
// the Stopped->Running transition (spec §4.6). The caller is responsible
// for having already canceled any orders still open on the exchange.
func (s *Strategy) Reset() {
	s.book = book.New()
	s.stats = newStats()
	s.lastBuyFillTime = time.Time{}
	s.waiting = false
}

// Book exposes the order book of record, for the control-surface snapshot.
func (s *Strategy) Book() *book.Book {
	return s.book
}

// Stats returns a copy of the current counters and realized P/L.
func (s *Strategy) Stats() Stats {
	cp := s.stats
	cp.pendingPositions = make(map[string]pendingPosition, len(s.stats.pendingPositions))
	for k, v := range s.stats.pendingPositions {
		cp.pendingPositions[k] = v
	}
	return cp
}

// IsWaiting reports whether the cross-order waiting sub-state is active.
func (s *Strategy) IsWaiting() bool {
	return s.waiting
}

// EstimatedProfit is realizedPnL plus unrealized (sell-buy)*qty across
// every open TP (spec §4.6).
func (s *Strategy) EstimatedProfit() decimal.Decimal {
	total := s.stats.RealizedPnL
	for _, tp := range s.book.TPs() {
		total = total.Add(tp.SellPrice.Sub(tp.BuyPrice).Mul(tp.Qty))
	}
	return total
}

// CancelAllBuys cancels every open BUY order, accounting the cancels as
// user-caused (not fills). Used when entering Paused, when waiting for a
// market sell, and at Stop.
func (s *Strategy) CancelAllBuys(ctx context.Context) {
	for _, b := range s.book.Buys() {
		if err := s.client.Cancel(ctx, b.ID); err != nil {
			s.logger.Warn("cancel buy failed", "orderId", b.ID, "err", err)
			continue
		}
		s.book.RemoveBuy(b.ID)
		s.stats.BuyCanceled++
	}
}

// StopPolicy implements spec §4.6's stop-time handling of open TPs. If
// sellAllOnStop, every TP is canceled then market-sold with P/L estimated
// at bestAsk (spec §9(a)'s preserved asymmetry); otherwise TPs are simply
// canceled. pendingPositions is drained in both cases.
func (s *Strategy) StopPolicy(ctx context.Context, sellAllOnStop bool) {
	tps := s.book.TPs()
	if len(tps) == 0 {
		return
	}

	var bestAsk decimal.Decimal
	if sellAllOnStop {
		top, err := s.client.OrderbookTop(ctx)
		if err != nil {
			s.logger.Warn("stop policy: orderbook fetch failed, falling back to cancel-only", "err", err)
			sellAllOnStop = false
		} else {
			bestAsk = top.BestAsk
		}
	}

	for _, tp := range tps {
		if err := s.client.Cancel(ctx, tp.ID); err != nil {
			s.logger.Warn("stop policy: cancel tp failed", "orderId", tp.ID, "err", err)
			continue
		}
		s.stats.SellCanceled++
		s.book.RemoveTP(tp.ID)
		s.stats.removePendingPosition(tp.ID)

		if !sellAllOnStop {
			continue
		}

		if _, err := s.client.PlaceMarket(ctx, types.Sell, tp.Qty, ""); err != nil {
			s.logger.Warn("stop policy: market sell failed", "err", err)
			continue
		}
		pnl := bestAsk.Sub(tp.BuyPrice).Mul(tp.Qty)
		s.stats.RealizedPnL = s.stats.RealizedPnL.Add(pnl)
		s.emitFill("stop_market_sell", bestAsk, tp.Qty, pnl)
	}
}

// logTickError is the uniform "logged, don't abort the loop" policy of
// spec §7: every adapter error is wrapped with context and logged, never
// propagated.
func (s *Strategy) logTickError(step string, err error) {
	s.logger.Warn(fmt.Sprintf("%s failed", step), "err", err)
}
