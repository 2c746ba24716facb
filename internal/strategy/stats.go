// Package strategy implements the ladder/TP/waiting order-lifecycle
// controller: the core of the engine (spec §4.3–§4.5). It owns no
// transport of its own — it drives an exchange.Adapter and mutates a
// book.Book, one tick at a time, single-threaded per spec §5's "cooperative
// suspension" scheduling model.
package strategy

import "github.com/shopspring/decimal"

// pendingPosition shadows one open TP order for average-cost reporting
// (spec §3's Stats.pendingPositions).
type pendingPosition struct {
	TpID     string
	BuyPrice decimal.Decimal
	Qty      decimal.Decimal
}

// Stats holds the monotonic counters and realized P/L of spec §3.
// pendingPositions is the exception: it shrinks on TP fill/cancel.
type Stats struct {
	BuyCreated  int
	BuyFilled   int
	BuyCanceled int

	SellCreated  int
	SellFilled   int
	SellCanceled int

	RealizedPnL decimal.Decimal

	pendingPositions map[string]pendingPosition // tpID -> position
}

// newStats returns a zeroed Stats, matching the "reset stats" side effect
// of the Stopped->Running transition (spec §4.6).
func newStats() Stats {
	return Stats{
		RealizedPnL:      decimal.Zero,
		pendingPositions: make(map[string]pendingPosition),
	}
}

// addPendingPosition records a new open TP for average-cost reporting.
func (s *Stats) addPendingPosition(tpID string, buyPrice, qty decimal.Decimal) {
	s.pendingPositions[tpID] = pendingPosition{TpID: tpID, BuyPrice: buyPrice, Qty: qty}
}

// removePendingPosition drops a TP's shadow entry on fill or cancel.
func (s *Stats) removePendingPosition(tpID string) {
	delete(s.pendingPositions, tpID)
}

// AverageBuyPrice reports Σ buyPrice*qty / Σ qty over pending positions, or
// zero if there are none (spec §4.6).
func (s *Stats) AverageBuyPrice() decimal.Decimal {
	if len(s.pendingPositions) == 0 {
		return decimal.Zero
	}
	totalCost := decimal.Zero
	totalQty := decimal.Zero
	for _, p := range s.pendingPositions {
		totalCost = totalCost.Add(p.BuyPrice.Mul(p.Qty))
		totalQty = totalQty.Add(p.Qty)
	}
	if totalQty.IsZero() {
		return decimal.Zero
	}
	return totalCost.Div(totalQty)
}

// PendingPositionCount reports how many TPs are currently shadowed.
func (s *Stats) PendingPositionCount() int {
	return len(s.pendingPositions)
}
