package strategy

import (
	"time"

	"github.com/shopspring/decimal"
)

// FillEvent is emitted whenever the strategy core observes a fill-shaped
// event worth recording outside the tick loop: a BUY fill, a TP fill, a TP
// eviction, or either flavor of market-sell settlement (spec §4.3–§4.6).
// It carries no strategy internals — only what a trade blotter needs.
type FillEvent struct {
	Kind  string // "buy_fill", "buy_fill_ttl", "buy_fill_reprice", "tp_evicted", "tp_fill", "market_sell_fill", "stop_market_sell"
	Price decimal.Decimal
	Qty   decimal.Decimal
	PnL   decimal.Decimal
	At    time.Time
}

// OnFill installs the observer invoked by emitFill. Passing nil disables
// observation. Not required for correctness — the tick loop never depends
// on whether an observer is set — it exists so an embedding engine can
// mirror fills into a trade blotter without the strategy core depending on
// one.
func (s *Strategy) OnFill(fn func(FillEvent)) {
	s.onFill = fn
}

func (s *Strategy) emitFill(kind string, price, qty, pnl decimal.Decimal) {
	if s.onFill == nil {
		return
	}
	s.onFill(FillEvent{Kind: kind, Price: price, Qty: qty, PnL: pnl, At: time.Now()})
}
