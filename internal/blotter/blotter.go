// Package blotter is an ephemeral, in-process trade ledger: every BUY
// fill, TP fill, TP eviction, and market-sell settlement the strategy core
// reports through its FillEvent observer is appended here, and Recent reads
// the latest rows back while the process is alive. The control-surface
// server does not expose the ledger.
//
// Grounded on web3guy0-polybot's internal/database/database.go (gorm model
// + thin CRUD wrapper), but deliberately backed only by SQLite's ":memory:"
// DSN: spec §6 states "Persisted state: None", and this ledger must never
// survive a restart or be read back at init, so there is no file path to
// configure and no migration path to worry about.
package blotter

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"scalpmaker/internal/strategy"
)

// Record is one row of the trade ledger.
type Record struct {
	ID         uint            `gorm:"primaryKey;autoIncrement"`
	Symbol     string          `gorm:"index"`
	Kind       string          `gorm:"index"`
	Price      decimal.Decimal `gorm:"type:decimal(20,8)"`
	Qty        decimal.Decimal `gorm:"type:decimal(20,8)"`
	PnL        decimal.Decimal `gorm:"type:decimal(20,8)"`
	RecordedAt time.Time       `gorm:"index"`
}

// Blotter is a single instrument's ephemeral trade ledger.
type Blotter struct {
	db     *gorm.DB
	symbol string
}

// Open creates an in-memory SQLite-backed blotter for one symbol. The DSN
// uses a shared cache because gorm pools connections and a bare ":memory:"
// DSN hands each pooled connection its own empty database.
func Open(symbol string) (*Blotter, error) {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, err
	}
	return &Blotter{db: db, symbol: symbol}, nil
}

// Observer returns a strategy.FillEvent callback that appends one row per
// event, suitable for strategy.Strategy.OnFill.
func (b *Blotter) Observer() func(strategy.FillEvent) {
	return func(ev strategy.FillEvent) {
		b.Record(ev.Kind, ev.Price, ev.Qty, ev.PnL, ev.At)
	}
}

// Record appends one trade ledger row. Errors are swallowed into a no-op
// the same way spec §7 treats every other non-fatal adapter failure: the
// blotter is observability, never a dependency of the tick loop's
// correctness.
func (b *Blotter) Record(kind string, price, qty, pnl decimal.Decimal, at time.Time) {
	b.db.Create(&Record{
		Symbol:     b.symbol,
		Kind:       kind,
		Price:      price,
		Qty:        qty,
		PnL:        pnl,
		RecordedAt: at,
	})
}

// Recent returns the most recent trade rows, newest first.
func (b *Blotter) Recent(limit int) ([]Record, error) {
	var rows []Record
	err := b.db.Order("recorded_at DESC, id DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

// Close releases the underlying database connection.
func (b *Blotter) Close() error {
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
