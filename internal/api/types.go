package api

import (
	"time"

	"github.com/shopspring/decimal"

	"scalpmaker/internal/config"
)

// DashboardSnapshot is the JSON shape of spec §6's control-surface
// snapshot: engine state, stats, open orders, and the two waiting-state
// pending records, plus a read-only view of the running configuration.
type DashboardSnapshot struct {
	Timestamp time.Time `json:"timestamp"`

	State                string `json:"state"`
	WaitingForMarketSell bool   `json:"waiting_for_market_sell"`

	Stats           StatsSummary `json:"stats"`
	EstimatedProfit float64      `json:"estimated_profit"`
	AverageBuyPrice float64      `json:"average_buy_price"`

	OpenBuyOrders []BuyOrderView `json:"open_buy_orders"`
	OpenTpOrders  []TpOrderView  `json:"open_tp_orders"`

	PendingMarketSell *PendingMarketSellView `json:"pending_market_sell,omitempty"`
	PendingNewTP      *PendingNewTPView      `json:"pending_new_tp,omitempty"`

	Config ConfigSummary `json:"config"`
}

// StatsSummary is the float64 wire view of strategy.Stats: spec §3's
// counters render as plain JSON numbers on the dashboard, while
// decimal.Decimal stays internal to the engine.
type StatsSummary struct {
	BuyCreated  int `json:"buy_created"`
	BuyFilled   int `json:"buy_filled"`
	BuyCanceled int `json:"buy_canceled"`

	SellCreated  int `json:"sell_created"`
	SellFilled   int `json:"sell_filled"`
	SellCanceled int `json:"sell_canceled"`

	RealizedPnL float64 `json:"realized_pnl"`
}

// BuyOrderView is the wire view of book.BuyOrder.
type BuyOrderView struct {
	ID       string    `json:"id"`
	Price    float64   `json:"price"`
	Qty      float64   `json:"qty"`
	Filled   float64   `json:"filled"`
	Layer    int       `json:"layer"`
	PlacedAt time.Time `json:"placed_at"`
}

// TpOrderView is the wire view of book.TpOrder.
type TpOrderView struct {
	ID        string    `json:"id"`
	SellPrice float64   `json:"sell_price"`
	Qty       float64   `json:"qty"`
	BuyPrice  float64   `json:"buy_price"`
	PlacedAt  time.Time `json:"placed_at"`
}

// PendingMarketSellView is the wire view of book.PendingMarketSell.
type PendingMarketSellView struct {
	ID              string    `json:"id"`
	BuyPrice        float64   `json:"buy_price"`
	Qty             float64   `json:"qty"`
	PlacedAt        time.Time `json:"placed_at"`
	IsLimitFallback bool      `json:"is_limit_fallback"`
	LimitPrice      float64   `json:"limit_price,omitempty"`
}

// PendingNewTPView is the wire view of book.PendingNewTP.
type PendingNewTPView struct {
	BuyPrice float64 `json:"buy_price"`
	Qty      float64 `json:"qty"`
}

// ConfigSummary is the read-only view of the instrument configuration
// (spec §3), exposed so the dashboard can render the parameters the
// engine is running with.
type ConfigSummary struct {
	Symbol   string  `json:"symbol"`
	Category string  `json:"category"`
	TickSize float64 `json:"tick_size"`
	OrderQty float64 `json:"order_qty"`

	MaxBuyOrders    int    `json:"max_buy_orders"`
	OffsetTicks     int    `json:"offset_ticks"`
	LayerStepTicks  int    `json:"layer_step_ticks"`
	BuyTTL          string `json:"buy_ttl"`
	RepriceTicks    int    `json:"reprice_ticks"`
	TPTicks         int    `json:"tp_ticks"`
	MaxSellTPOrders int    `json:"max_sell_tp_orders"`

	LoopInterval     string `json:"loop_interval"`
	WaitAfterBuyFill string `json:"wait_after_buy_fill"`
	SellAllOnStop    bool   `json:"sell_all_on_stop"`

	DryRun bool `json:"dry_run"`
}

// NewConfigSummary builds a ConfigSummary from the running config.
func NewConfigSummary(cfg config.Config) ConfigSummary {
	return ConfigSummary{
		Symbol:   cfg.Strategy.Symbol,
		Category: cfg.Strategy.Category,
		TickSize: toFloat(cfg.Strategy.TickSize),
		OrderQty: toFloat(cfg.Strategy.OrderQty),

		MaxBuyOrders:    cfg.Strategy.MaxBuyOrders,
		OffsetTicks:     cfg.Strategy.OffsetTicks,
		LayerStepTicks:  cfg.Strategy.LayerStepTicks,
		BuyTTL:          cfg.Strategy.BuyTTL.String(),
		RepriceTicks:    cfg.Strategy.RepriceTicks,
		TPTicks:         cfg.Strategy.TPTicks,
		MaxSellTPOrders: cfg.Strategy.MaxSellTPOrders,

		LoopInterval:     cfg.Strategy.LoopInterval.String(),
		WaitAfterBuyFill: cfg.Strategy.WaitAfterBuyFill.String(),
		SellAllOnStop:    cfg.Strategy.SellAllOnStop,

		DryRun: cfg.Exchange.DryRun,
	}
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
