// Package config defines all configuration for the scalping engine. Config
// is loaded from a YAML file (default: configs/config.yaml) with sensitive
// fields overridable via SCALP_* environment variables, and a local .env
// file loaded first if present.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config is the top-level configuration. Maps directly to the YAML file structure.
type Config struct {
	Exchange  ExchangeConfig  `mapstructure:"exchange"`
	Strategy  StrategyConfig  `mapstructure:"strategy"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
}

// ExchangeConfig holds the credentials and transport settings for the
// exchange adapter (spec §6).
type ExchangeConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	APIKey     string        `mapstructure:"api_key"`
	APISecret  string        `mapstructure:"api_secret"`
	RecvWindow string        `mapstructure:"recv_window"`
	Timeout    time.Duration `mapstructure:"timeout"`
	RetryCount int           `mapstructure:"retry_count"`
	DryRun     bool          `mapstructure:"dry_run"`
}

// StrategyConfig is the instrument configuration of spec §3: immutable for
// the life of a session, validated before the engine may enter Running.
//
// TickSize and OrderQty are YAML decimal strings ("0.01") decoded straight
// into decimal.Decimal by Load's DecodeHook, since viper has no native
// decimal kind.
type StrategyConfig struct {
	Symbol           string          `mapstructure:"symbol"`
	Category         string          `mapstructure:"category"`
	TickSize         decimal.Decimal `mapstructure:"tick_size"`
	OrderQty         decimal.Decimal `mapstructure:"order_qty"`
	MaxBuyOrders     int             `mapstructure:"max_buy_orders"`
	OffsetTicks      int             `mapstructure:"offset_ticks"`
	LayerStepTicks   int             `mapstructure:"layer_step_ticks"`
	BuyTTL           time.Duration   `mapstructure:"buy_ttl"`
	RepriceTicks     int             `mapstructure:"reprice_ticks"`
	TPTicks          int             `mapstructure:"tp_ticks"`
	MaxSellTPOrders  int             `mapstructure:"max_sell_tp_orders"`
	LoopInterval     time.Duration   `mapstructure:"loop_interval"`
	WaitAfterBuyFill time.Duration   `mapstructure:"wait_after_buy_fill"`
	SellAllOnStop    bool            `mapstructure:"sell_all_on_stop"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DashboardConfig controls the optional control-surface HTTP+WS server.
type DashboardConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	Addr           string   `mapstructure:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

var decimalType = reflect.TypeOf(decimal.Decimal{})

// decimalDecodeHook lets viper/mapstructure unmarshal a YAML string like
// "0.01" straight into a decimal.Decimal field.
func decimalDecodeHook() mapstructure.DecodeHookFuncType {
	return func(_ reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != decimalType {
			return data, nil
		}
		s, ok := data.(string)
		if !ok {
			return data, nil
		}
		return decimal.NewFromString(s)
	}
}

// Load reads config from a YAML file with env var overrides. A local .env
// file (if present) is loaded by the caller before Load runs, per the
// godotenv convention.
//
// Sensitive fields use env vars: SCALP_API_KEY, SCALP_API_SECRET.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("SCALP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		decimalDecodeHook(),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if key := os.Getenv("SCALP_API_KEY"); key != "" {
		cfg.Exchange.APIKey = key
	}
	if secret := os.Getenv("SCALP_API_SECRET"); secret != "" {
		cfg.Exchange.APISecret = secret
	}
	if os.Getenv("SCALP_DRY_RUN") == "true" || os.Getenv("SCALP_DRY_RUN") == "1" {
		cfg.Exchange.DryRun = true
	}

	return &cfg, nil
}

// Validate checks all required fields and value ranges, per spec §6's
// configuration schema and §7's "Fatal configuration error" kind.
func (c *Config) Validate() error {
	if c.Exchange.APIKey == "" {
		return fmt.Errorf("exchange.api_key is required (set SCALP_API_KEY)")
	}
	if c.Exchange.APISecret == "" {
		return fmt.Errorf("exchange.api_secret is required (set SCALP_API_SECRET)")
	}
	if c.Exchange.BaseURL == "" {
		return fmt.Errorf("exchange.base_url is required")
	}
	if c.Strategy.Symbol == "" {
		return fmt.Errorf("strategy.symbol is required")
	}
	if c.Strategy.Category == "" {
		return fmt.Errorf("strategy.category is required")
	}
	if c.Strategy.TickSize.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("strategy.tick_size must be > 0")
	}
	if c.Strategy.OrderQty.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("strategy.order_qty must be > 0")
	}
	if c.Strategy.MaxBuyOrders < 1 {
		return fmt.Errorf("strategy.max_buy_orders must be >= 1")
	}
	if c.Strategy.OffsetTicks < 0 {
		return fmt.Errorf("strategy.offset_ticks must be >= 0")
	}
	if c.Strategy.LayerStepTicks < 1 {
		return fmt.Errorf("strategy.layer_step_ticks must be >= 1")
	}
	if c.Strategy.BuyTTL <= 0 {
		return fmt.Errorf("strategy.buy_ttl must be > 0")
	}
	if c.Strategy.RepriceTicks < 1 {
		return fmt.Errorf("strategy.reprice_ticks must be >= 1")
	}
	if c.Strategy.TPTicks < 1 {
		return fmt.Errorf("strategy.tp_ticks must be >= 1")
	}
	if c.Strategy.MaxSellTPOrders < 1 {
		return fmt.Errorf("strategy.max_sell_tp_orders must be >= 1")
	}
	if c.Strategy.LoopInterval <= 0 {
		return fmt.Errorf("strategy.loop_interval must be > 0")
	}
	if c.Strategy.WaitAfterBuyFill < 0 {
		return fmt.Errorf("strategy.wait_after_buy_fill must be >= 0")
	}
	return nil
}
