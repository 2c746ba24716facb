package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestRoundToTick(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		p    string
		tick string
		want string
	}{
		{"exact multiple unchanged", "100.00", "0.01", "100.00"},
		{"rounds down", "100.004", "0.01", "100.00"},
		{"rounds up", "100.006", "0.01", "100.01"},
		{"three decimal tick", "99.9847", "0.001", "99.985"},
		{"half rounds up", "100.005", "0.01", "100.01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := RoundToTick(d(tt.p), d(tt.tick))
			if !got.Equal(d(tt.want)) {
				t.Errorf("RoundToTick(%s, %s) = %s, want %s", tt.p, tt.tick, got, tt.want)
			}
		})
	}
}

func TestRoundToTickIdempotent(t *testing.T) {
	t.Parallel()

	tick := d("0.01")
	for _, p := range []string{"99.987", "100.004", "0.005", "123.456"} {
		once := RoundToTick(d(p), tick)
		twice := RoundToTick(once, tick)
		if !once.Equal(twice) {
			t.Errorf("RoundToTick not idempotent for %s: once=%s twice=%s", p, once, twice)
		}
	}
}

func TestLayerPrice(t *testing.T) {
	t.Parallel()

	tick := d("0.01")
	bestBid := d("100.00")

	// offsetTicks=2, layerStepTicks=1, layer 0 -> 2 ticks below bid
	got := LayerPrice(bestBid, 0, 2, 1, tick)
	if want := d("99.98"); !got.Equal(want) {
		t.Errorf("layer 0 = %s, want %s", got, want)
	}

	// layer 1 -> 3 ticks below bid
	got = LayerPrice(bestBid, 1, 2, 1, tick)
	if want := d("99.97"); !got.Equal(want) {
		t.Errorf("layer 1 = %s, want %s", got, want)
	}
}

func TestTPPrice(t *testing.T) {
	t.Parallel()

	tick := d("0.01")
	buy := d("99.98")

	got := TPPrice(buy, 5, tick)
	if want := d("100.03"); !got.Equal(want) {
		t.Errorf("TPPrice = %s, want %s", got, want)
	}

	// Invariant: sell - buy >= tpTicks*tick (within one tick of rounding).
	diff := got.Sub(buy)
	minDiff := tick.Mul(decimal.NewFromInt(5))
	if diff.LessThan(minDiff.Sub(tick)) {
		t.Errorf("TPPrice diff %s below tpTicks*tick-tick tolerance %s", diff, minDiff)
	}
}

func TestTickDistance(t *testing.T) {
	t.Parallel()

	tick := d("0.01")
	got := TickDistance(d("99.95"), d("100.00"), tick)
	if want := d("5"); !got.Equal(want) {
		t.Errorf("TickDistance = %s, want %s", got, want)
	}
}

func TestSamePrice(t *testing.T) {
	t.Parallel()

	tick := d("0.01")
	if !SamePrice(d("100.00"), d("100.004"), tick) {
		t.Error("expected prices within half a tick to be equal")
	}
	if SamePrice(d("100.00"), d("100.01"), tick) {
		t.Error("expected a full tick apart to not be equal")
	}
}
