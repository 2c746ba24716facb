// Package metrics mirrors spec §3's Stats counters and realized P/L into
// Prometheus series, grounded on chidi150c-coinbase's metrics.go (one
// Counter/Gauge per observable, registered once at construction).
//
// Each Recorder owns a private prometheus.Registry rather than the global
// default one, because spec §9 requires the engine to be "a value type...
// permitting multiple instances per process" — a package-level var would
// collide the moment a second instrument's engine registered the same
// metric name.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"scalpmaker/internal/strategy"
)

// Recorder mirrors one instrument's Stats into Prometheus series.
type Recorder struct {
	registry *prometheus.Registry

	buyCreated  prometheus.Counter
	buyFilled   prometheus.Counter
	buyCanceled prometheus.Counter

	sellCreated  prometheus.Counter
	sellFilled   prometheus.Counter
	sellCanceled prometheus.Counter

	realizedPnL     prometheus.Gauge
	estimatedProfit prometheus.Gauge
	openBuyOrders   prometheus.Gauge
	openTPOrders    prometheus.Gauge
	waiting         prometheus.Gauge

	prev strategy.Stats
}

// New creates a Recorder for one instrument symbol, labeling every series
// with the symbol so multiple instruments can share a scrape endpoint.
func New(symbol string) *Recorder {
	registry := prometheus.NewRegistry()

	counter := func(name, help string) prometheus.Counter {
		c := prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "scalpmaker",
			Name:        name,
			Help:        help,
			ConstLabels: prometheus.Labels{"symbol": symbol},
		})
		registry.MustRegister(c)
		return c
	}
	gauge := func(name, help string) prometheus.Gauge {
		g := prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "scalpmaker",
			Name:        name,
			Help:        help,
			ConstLabels: prometheus.Labels{"symbol": symbol},
		})
		registry.MustRegister(g)
		return g
	}

	return &Recorder{
		registry: registry,

		buyCreated:  counter("buy_created_total", "BUY limit orders placed"),
		buyFilled:   counter("buy_filled_total", "BUY orders filled in full"),
		buyCanceled: counter("buy_canceled_total", "BUY orders canceled (TTL, reprice, or user action)"),

		sellCreated:  counter("sell_created_total", "TP SELL limit orders placed"),
		sellFilled:   counter("sell_filled_total", "TP/market SELL orders filled"),
		sellCanceled: counter("sell_canceled_total", "TP SELL orders canceled by the stop policy (evicted TPs are not counted)"),

		realizedPnL:     gauge("realized_pnl", "Realized profit and loss"),
		estimatedProfit: gauge("estimated_profit", "Realized PnL plus unrealized PnL on open TPs"),
		openBuyOrders:   gauge("open_buy_orders", "Currently open BUY ladder orders"),
		openTPOrders:    gauge("open_tp_orders", "Currently open take-profit orders"),
		waiting:         gauge("waiting_for_market_sell", "1 if the waiting-for-market-sell sub-state is active"),

		prev: strategy.Stats{},
	}
}

// Observe records one tick's worth of state. Monotonic counters advance by
// the delta since the previous call; gauges are set to the current value.
func (r *Recorder) Observe(stats strategy.Stats, openBuys, openTPs int, estimatedProfit decimal.Decimal, waiting bool) {
	addDelta(r.buyCreated, stats.BuyCreated-r.prev.BuyCreated)
	addDelta(r.buyFilled, stats.BuyFilled-r.prev.BuyFilled)
	addDelta(r.buyCanceled, stats.BuyCanceled-r.prev.BuyCanceled)
	addDelta(r.sellCreated, stats.SellCreated-r.prev.SellCreated)
	addDelta(r.sellFilled, stats.SellFilled-r.prev.SellFilled)
	addDelta(r.sellCanceled, stats.SellCanceled-r.prev.SellCanceled)
	r.prev = stats

	r.realizedPnL.Set(toFloat(stats.RealizedPnL))
	r.estimatedProfit.Set(toFloat(estimatedProfit))
	r.openBuyOrders.Set(float64(openBuys))
	r.openTPOrders.Set(float64(openTPs))
	if waiting {
		r.waiting.Set(1)
	} else {
		r.waiting.Set(0)
	}
}

// Handler serves this Recorder's registry in Prometheus text exposition
// format, mounted at /metrics by the control-surface server.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func addDelta(c prometheus.Counter, delta int) {
	if delta > 0 {
		c.Add(float64(delta))
	}
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
