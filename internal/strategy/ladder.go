package strategy

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"scalpmaker/internal/book"
	"scalpmaker/internal/pricing"
	"scalpmaker/pkg/types"
)

// ReconcileBuys implements spec §4.3's per-tick reconciliation of every
// open BUY order: query status, account fills, enforce TTL, and reprice on
// drift. Every adapter error is logged and the order is left untouched for
// the next tick's retry (spec §7).
func (s *Strategy) ReconcileBuys(ctx context.Context, bestBid decimal.Decimal) {
	for _, b := range s.book.Buys() {
		s.reconcileOneBuy(ctx, b, bestBid)
	}
}

func (s *Strategy) reconcileOneBuy(ctx context.Context, b *book.BuyOrder, bestBid decimal.Decimal) {
	status, err := s.client.Status(ctx, b.ID)
	if err != nil {
		s.logTickError("buy status query", err)
		return
	}

	switch status.State {
	case types.StateFilled:
		s.stats.BuyFilled++
		s.lastBuyFillTime = time.Now()
		s.book.RemoveBuy(b.ID)
		s.emitFill("buy_fill", b.Price, b.Qty, decimal.Zero)
		s.handleBuyFill(ctx, b.Price, b.Qty)
		return
	case types.StatePartiallyFilled:
		s.book.UpdateBuyFilled(b.ID, status.CumExecQty)
	}

	age := time.Since(b.PlacedAt)
	if age >= s.cfg.BuyTTL {
		s.cancelAgedBuy(ctx, b, status.CumExecQty)
		return
	}

	tickDiff := pricing.TickDistance(b.Price, bestBid, s.cfg.TickSize)
	repriceThreshold := decimal.NewFromInt(int64(s.cfg.RepriceTicks))
	if tickDiff.GreaterThanOrEqual(repriceThreshold) {
		s.repriceDriftedBuy(ctx, b, status.CumExecQty)
	}
}

// cancelAgedBuy cancels a BUY whose TTL has elapsed (spec §4.3 step 2).
func (s *Strategy) cancelAgedBuy(ctx context.Context, b *book.BuyOrder, cumExecQty decimal.Decimal) {
	if err := s.client.Cancel(ctx, b.ID); err != nil {
		s.logTickError("ttl cancel", err)
		return
	}
	s.book.RemoveBuy(b.ID)
	if cumExecQty.GreaterThan(decimal.Zero) {
		s.lastBuyFillTime = time.Now()
		s.emitFill("buy_fill_ttl", b.Price, cumExecQty, decimal.Zero)
		s.handleBuyFill(ctx, b.Price, cumExecQty)
		return
	}
	s.stats.BuyCanceled++
}

// repriceDriftedBuy cancels a BUY that has drifted too far from best bid
// (spec §4.3 step 3). A fresh layer-0 order is recreated by the next
// top-up pass.
func (s *Strategy) repriceDriftedBuy(ctx context.Context, b *book.BuyOrder, cumExecQty decimal.Decimal) {
	if cumExecQty.GreaterThan(decimal.Zero) {
		s.emitFill("buy_fill_reprice", b.Price, cumExecQty, decimal.Zero)
		s.handleBuyFill(ctx, b.Price, cumExecQty)
	}
	if err := s.client.Cancel(ctx, b.ID); err != nil {
		s.logTickError("reprice cancel", err)
		return
	}
	s.book.RemoveBuy(b.ID)
	s.stats.BuyCanceled++
}

// TopUpLadder fills any missing layer below maxBuyOrders, subject to the
// post-fill cooldown and layer-collision reshuffle of spec §4.3. The
// caller is responsible for only invoking this when Running and not
// paused; waitingForMarketSell is enforced here directly since a TP
// overflow eviction can flip it mid-tick, after the caller already
// checked.
func (s *Strategy) TopUpLadder(ctx context.Context, bestBid decimal.Decimal) {
	if s.waiting {
		return
	}
	if s.cfg.WaitAfterBuyFill > 0 && !s.lastBuyFillTime.IsZero() {
		if time.Since(s.lastBuyFillTime) < s.cfg.WaitAfterBuyFill {
			return
		}
	}

	layersTaken := s.book.LayersTaken()
	for layer := 0; layer < s.cfg.MaxBuyOrders; layer++ {
		if layersTaken[layer] {
			continue
		}

		price := pricing.LayerPrice(bestBid, layer, s.cfg.OffsetTicks, s.cfg.LayerStepTicks, s.cfg.TickSize)
		finalLayer, finalPrice, ok := s.resolveLayerCollision(layer, price)
		if !ok {
			continue
		}
		price = finalPrice

		id, err := s.client.PlaceLimit(ctx, types.Buy, price, s.cfg.OrderQty, "")
		if err != nil {
			s.logTickError("place buy", err)
			continue
		}
		s.book.AddBuy(&book.BuyOrder{
			ID:       id,
			Price:    price,
			Qty:      s.cfg.OrderQty,
			PlacedAt: time.Now(),
			Layer:    finalLayer,
		})
		s.stats.BuyCreated++
		layersTaken[finalLayer] = true
	}
}

// resolveLayerCollision implements spec §4.3's layer-collision reshuffle.
// It returns the layer and price the new order should ultimately use, and
// false if the layer must be skipped this tick.
func (s *Strategy) resolveLayerCollision(layer int, price decimal.Decimal) (int, decimal.Decimal, bool) {
	colliding, found := s.findBuyAtPrice(price)
	if !found {
		return layer, price, true
	}

	bumped := price.Add(s.cfg.TickSize.Mul(decimal.NewFromInt(int64(s.cfg.LayerStepTicks))))
	if _, stillColliding := s.findBuyAtPriceExcept(bumped, colliding.ID); stillColliding {
		return 0, decimal.Zero, false
	}

	lowerIdx, higherIdx := layer, colliding.Layer
	if colliding.Layer < layer {
		lowerIdx, higherIdx = colliding.Layer, layer
	}
	s.book.SetBuyLayer(colliding.ID, higherIdx)
	return lowerIdx, bumped, true
}

func (s *Strategy) findBuyAtPrice(price decimal.Decimal) (*book.BuyOrder, bool) {
	for _, b := range s.book.Buys() {
		if pricing.SamePrice(b.Price, price, s.cfg.TickSize) {
			return b, true
		}
	}
	return nil, false
}

func (s *Strategy) findBuyAtPriceExcept(price decimal.Decimal, exceptID string) (*book.BuyOrder, bool) {
	for _, b := range s.book.Buys() {
		if b.ID == exceptID {
			continue
		}
		if pricing.SamePrice(b.Price, price, s.cfg.TickSize) {
			return b, true
		}
	}
	return nil, false
}
