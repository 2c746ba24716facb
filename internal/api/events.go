package api

import (
	"time"

	"scalpmaker/internal/strategy"
)

// DashboardEvent is the wrapper broadcast to every connected WebSocket
// client: either a full snapshot after a tick, or a single fill as the
// strategy core reports it (spec §6).
type DashboardEvent struct {
	Type      string      `json:"type"` // "snapshot" or "fill"
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// FillEventView is the wire view of strategy.FillEvent.
type FillEventView struct {
	Kind  string  `json:"kind"`
	Price float64 `json:"price"`
	Qty   float64 `json:"qty"`
	PnL   float64 `json:"pnl"`
}

// NewFillEventView converts a strategy.FillEvent to its wire shape.
func NewFillEventView(ev strategy.FillEvent) FillEventView {
	return FillEventView{
		Kind:  ev.Kind,
		Price: toFloat(ev.Price),
		Qty:   toFloat(ev.Qty),
		PnL:   toFloat(ev.PnL),
	}
}
