// scalpmaker is an automated maker-based scalping bot for a single
// derivatives instrument: it ladders passive BUY limit orders below best
// bid, takes profit on fills with passive SELL limit orders, and falls
// back to a market sell when a take-profit gets evicted for a better one.
//
// Architecture:
//
//	main.go                  — entry point: loads config, starts engine, waits for SIGINT/SIGTERM
//	engine/engine.go         — Stopped/Running/Paused/Stopping state machine and tick loop
//	strategy/ladder.go       — BUY ladder placement, TTL cancellation, drift repricing
//	strategy/takeprofit.go   — TP placement, eviction-on-new-highest, reconciliation
//	strategy/waiting.go      — waitingForMarketSell sub-state: market sell with limit fallback
//	exchange/client.go       — REST client for the exchange's order/orderbook endpoints
//	exchange/auth.go         — HMAC request signing
//	exchange/ratelimit.go    — per-endpoint-family token buckets
//	metrics/metrics.go       — Prometheus mirror of Stats and realized P/L
//	blotter/blotter.go       — ephemeral in-memory trade ledger
//	api/server.go            — HTTP+WebSocket control surface (start/pause/resume/stop, snapshot, /metrics)
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"scalpmaker/internal/api"
	"scalpmaker/internal/blotter"
	"scalpmaker/internal/config"
	"scalpmaker/internal/engine"
	"scalpmaker/internal/exchange"
	"scalpmaker/internal/metrics"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using environment variables as-is")
	}

	cfgPath := "configs/config.yaml"
	if p := os.Getenv("SCALP_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Logging.Level)}
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)

	auth := exchange.NewAuth(cfg.Exchange.APIKey, cfg.Exchange.APISecret, cfg.Exchange.RecvWindow)
	client := exchange.NewClient(*cfg, auth, logger)

	eng := engine.New(cfg.Strategy, client, logger)

	trades, err := blotter.Open(cfg.Strategy.Symbol)
	if err != nil {
		logger.Error("failed to open trade blotter", "error", err)
		os.Exit(1)
	}
	defer trades.Close()
	eng.Strategy().OnFill(trades.Observer())

	rec := metrics.New(cfg.Strategy.Symbol)
	eng.SetMetrics(rec)

	var apiServer *api.Server
	if cfg.Dashboard.Enabled {
		apiServer = api.NewServer(cfg.Dashboard, eng, eng, *cfg, rec.Handler(), logger)
		go func() {
			if err := apiServer.Start(); err != nil {
				logger.Error("dashboard server failed", "error", err)
			}
		}()
		logger.Info("dashboard started", "addr", fmt.Sprintf("http://%s", cfg.Dashboard.Addr))
	}

	if err := eng.Start(); err != nil {
		logger.Error("failed to start engine", "error", err)
		os.Exit(1)
	}

	if cfg.Exchange.DryRun {
		logger.Warn("DRY-RUN MODE — no real orders will be placed")
	}

	logger.Info("scalpmaker started",
		"symbol", cfg.Strategy.Symbol,
		"order_qty", cfg.Strategy.OrderQty,
		"max_buy_orders", cfg.Strategy.MaxBuyOrders,
		"dry_run", cfg.Exchange.DryRun,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig.String())

	if apiServer != nil {
		if err := apiServer.Stop(); err != nil {
			logger.Error("failed to stop dashboard", "error", err)
		}
	}

	if err := eng.Stop(); err != nil {
		logger.Error("failed to stop engine cleanly", "error", err)
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
