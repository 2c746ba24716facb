package blotter

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"scalpmaker/internal/strategy"
)

func TestRecordAndRecent(t *testing.T) {
	b, err := Open("BTCUSDT")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer b.Close()

	now := time.Unix(1700000000, 0)
	b.Record("buy_fill", decimal.RequireFromString("99.98"), decimal.RequireFromString("1"), decimal.Zero, now)
	b.Record("tp_fill", decimal.RequireFromString("100.03"), decimal.RequireFromString("1"), decimal.RequireFromString("0.05"), now.Add(time.Minute))

	rows, err := b.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Recent returned %d rows, want 2", len(rows))
	}
	if rows[0].Kind != "tp_fill" {
		t.Errorf("Recent[0].Kind = %q, want tp_fill (newest first)", rows[0].Kind)
	}
}

func TestObserverWiresFillEvents(t *testing.T) {
	b, err := Open("BTCUSDT")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer b.Close()

	observe := b.Observer()
	observe(strategy.FillEvent{
		Kind:  "buy_fill",
		Price: decimal.RequireFromString("99.98"),
		Qty:   decimal.RequireFromString("1"),
		PnL:   decimal.Zero,
		At:    time.Now(),
	})

	rows, err := b.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(rows) != 1 || rows[0].Kind != "buy_fill" {
		t.Fatalf("expected one buy_fill row, got %+v", rows)
	}
}
