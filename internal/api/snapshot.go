package api

import (
	"time"

	"scalpmaker/internal/config"
	"scalpmaker/internal/engine"
)

// SnapshotProvider is the engine surface the dashboard needs: a point-in-
// time snapshot, plus the event stream BuildSnapshot's caller fans out to
// connected WebSocket clients.
type SnapshotProvider interface {
	Snapshot() engine.Snapshot
	Events() <-chan engine.Event
}

// BuildSnapshot converts one engine.Snapshot plus the running config into
// the dashboard's wire shape (spec §6).
func BuildSnapshot(provider SnapshotProvider, cfg config.Config) DashboardSnapshot {
	snap := provider.Snapshot()

	buys := make([]BuyOrderView, 0, len(snap.OpenBuyOrders))
	for _, b := range snap.OpenBuyOrders {
		buys = append(buys, BuyOrderView{
			ID:       b.ID,
			Price:    toFloat(b.Price),
			Qty:      toFloat(b.Qty),
			Filled:   toFloat(b.Filled),
			Layer:    b.Layer,
			PlacedAt: b.PlacedAt,
		})
	}

	tps := make([]TpOrderView, 0, len(snap.OpenTpOrders))
	for _, tp := range snap.OpenTpOrders {
		tps = append(tps, TpOrderView{
			ID:        tp.ID,
			SellPrice: toFloat(tp.SellPrice),
			Qty:       toFloat(tp.Qty),
			BuyPrice:  toFloat(tp.BuyPrice),
			PlacedAt:  tp.PlacedAt,
		})
	}

	var pms *PendingMarketSellView
	if snap.PendingMarketSell != nil {
		p := snap.PendingMarketSell
		pms = &PendingMarketSellView{
			ID:              p.ID,
			BuyPrice:        toFloat(p.BuyPrice),
			Qty:             toFloat(p.Qty),
			PlacedAt:        p.PlacedAt,
			IsLimitFallback: p.IsLimitFallback,
			LimitPrice:      toFloat(p.LimitPrice),
		}
	}

	var pnt *PendingNewTPView
	if snap.PendingNewTP != nil {
		p := snap.PendingNewTP
		pnt = &PendingNewTPView{BuyPrice: toFloat(p.BuyPrice), Qty: toFloat(p.Qty)}
	}

	return DashboardSnapshot{
		Timestamp:            time.Now(),
		State:                snap.State.String(),
		WaitingForMarketSell: snap.WaitingForMarketSell,
		Stats: StatsSummary{
			BuyCreated:   snap.Stats.BuyCreated,
			BuyFilled:    snap.Stats.BuyFilled,
			BuyCanceled:  snap.Stats.BuyCanceled,
			SellCreated:  snap.Stats.SellCreated,
			SellFilled:   snap.Stats.SellFilled,
			SellCanceled: snap.Stats.SellCanceled,
			RealizedPnL:  toFloat(snap.Stats.RealizedPnL),
		},
		EstimatedProfit:   toFloat(snap.EstimatedProfit),
		AverageBuyPrice:   toFloat(snap.AverageBuyPrice),
		OpenBuyOrders:     buys,
		OpenTpOrders:      tps,
		PendingMarketSell: pms,
		PendingNewTP:      pnt,
		Config:            NewConfigSummary(cfg),
	}
}
