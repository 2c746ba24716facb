// Package pricing implements the tick-aligned decimal arithmetic the ladder
// and TP managers build on: rounding to the instrument's tick size, laying
// out BUY-ladder layers below best bid, and deriving TP targets above a
// fill price. Every price and quantity is a decimal.Decimal, never a raw
// float64, so rounding and equality stay exact (spec §9).
package pricing

import "github.com/shopspring/decimal"

// RoundToTick rounds p to the nearest multiple of tick, keeping exactly the
// number of decimal places tick itself carries so the serialized price never
// picks up floating-point noise (e.g. tick 0.001 -> 3 decimals).
func RoundToTick(p, tick decimal.Decimal) decimal.Decimal {
	if tick.IsZero() {
		return p
	}
	quotient := p.DivRound(tick, 0)
	return quotient.Mul(tick).Truncate(tickDecimals(tick))
}

// tickDecimals returns the number of decimal places implied by tick, e.g.
// 0.001 -> 3, 0.01 -> 2, 1 -> 0.
func tickDecimals(tick decimal.Decimal) int32 {
	exp := tick.Exponent()
	if exp >= 0 {
		return 0
	}
	return -exp
}

// LayerPrice computes the limit price for a BUY-ladder layer: bestBid minus
// (offsetTicks + layer*layerStepTicks) ticks, rounded to the instrument tick.
func LayerPrice(bestBid decimal.Decimal, layer, offsetTicks, layerStepTicks int, tick decimal.Decimal) decimal.Decimal {
	distanceTicks := offsetTicks + layer*layerStepTicks
	offset := tick.Mul(decimal.NewFromInt(int64(distanceTicks)))
	return RoundToTick(bestBid.Sub(offset), tick)
}

// TPPrice computes the take-profit SELL price for a BUY fill at buyPrice:
// buyPrice plus tpTicks ticks, rounded to the instrument tick.
func TPPrice(buyPrice decimal.Decimal, tpTicks int, tick decimal.Decimal) decimal.Decimal {
	offset := tick.Mul(decimal.NewFromInt(int64(tpTicks)))
	return RoundToTick(buyPrice.Add(offset), tick)
}

// TickDistance returns |p - ref| / tick, the number of ticks p has drifted
// from ref. Used for the ladder's drift-reprice check; layer collisions are
// tested with SamePrice instead.
func TickDistance(p, ref, tick decimal.Decimal) decimal.Decimal {
	if tick.IsZero() {
		return decimal.Zero
	}
	return p.Sub(ref).Abs().Div(tick)
}

// SamePrice reports whether two prices are equal within half a tick, per
// spec §3's BuyOrder invariant ("distinct modulo half a tick").
func SamePrice(a, b, tick decimal.Decimal) bool {
	half := tick.Div(decimal.NewFromInt(2))
	return a.Sub(b).Abs().LessThan(half)
}
