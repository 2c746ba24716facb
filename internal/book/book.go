// Package book is the in-memory mirror of this strategy's own open orders:
// the BUY ladder and the TP set, plus the two transient records that exist
// only during the cross-order waiting sub-state (spec §3, §4.5).
//
// Book never talks to the exchange. It is a cache the tick loop reconciles
// every cycle against exchange status (spec §9: "the exchange is
// authoritative on every tick"); mutations only happen through its methods,
// called from the single-threaded tick loop, guarded by a mutex so the
// control-surface snapshot() can read it concurrently.
package book

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/btree"
)

// BuyOrder is one resting BUY in the ladder. Invariant (spec §3): among open
// BUY orders, Layer values are unique and prices are distinct modulo half a
// tick — enforced by the ladder manager, not by Book itself.
type BuyOrder struct {
	ID        string
	Price     decimal.Decimal
	Qty       decimal.Decimal
	Filled    decimal.Decimal
	PlacedAt  time.Time
	Layer     int
}

// TpOrder is one resting take-profit SELL, paired to the BUY price at which
// the underlying position was acquired.
type TpOrder struct {
	ID        string
	SellPrice decimal.Decimal
	Qty       decimal.Decimal
	BuyPrice  decimal.Decimal
	PlacedAt  time.Time
}

// PendingMarketSell exists only in the waiting-for-market-sell sub-state: the
// outstanding sell evicted from the TP set, initially a market order and
// possibly later replaced by a limit fallback (spec §4.5).
type PendingMarketSell struct {
	ID              string
	BuyPrice        decimal.Decimal // the evicted TP's paired buy price, for P/L attribution
	Qty             decimal.Decimal
	PlacedAt        time.Time
	IsLimitFallback bool
	LimitPrice      decimal.Decimal // valid only if IsLimitFallback
}

// PendingNewTP exists only in the waiting-for-market-sell sub-state: a BUY
// fill whose TP could not be placed because the TP cap was reached, to be
// materialized once capacity frees (spec §4.4).
type PendingNewTP struct {
	BuyPrice decimal.Decimal
	Qty      decimal.Decimal
}

// tpLess orders TpOrders by sell price ascending, then by placement time
// descending (so that among equal prices the OLDEST order sorts greatest),
// then by ID as a final tiebreaker for a strict total order. Max() on a tree
// built with this comparator therefore returns exactly the eviction target
// of spec §4.4: "the single TP with the highest sell price, ties broken by
// oldest timestamp."
func tpLess(a, b *TpOrder) bool {
	if !a.SellPrice.Equal(b.SellPrice) {
		return a.SellPrice.LessThan(b.SellPrice)
	}
	if !a.PlacedAt.Equal(b.PlacedAt) {
		return a.PlacedAt.After(b.PlacedAt)
	}
	return a.ID < b.ID
}

// Book is the strategy's own order-book-of-record for a single instrument.
type Book struct {
	mu sync.RWMutex

	buys map[string]*BuyOrder // orderID -> BUY

	tpByID map[string]*TpOrder
	tpTree *btree.BTreeG[*TpOrder]

	pendingMarketSell *PendingMarketSell
	pendingNewTP      *PendingNewTP
}

// New creates an empty book of record.
func New() *Book {
	return &Book{
		buys:   make(map[string]*BuyOrder),
		tpByID: make(map[string]*TpOrder),
		tpTree: btree.NewBTreeG(tpLess),
	}
}

// ———————————————————————————————————————— BUY ladder ————————————————————————————————————————

// AddBuy registers a newly-placed BUY order.
func (b *Book) AddBuy(o *BuyOrder) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buys[o.ID] = o
}

// RemoveBuy drops a BUY order (filled, canceled, or repriced away).
func (b *Book) RemoveBuy(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.buys, id)
}

// Buys returns a snapshot (copies) of all open BUY orders. The order of the
// returned slice is not defined.
func (b *Book) Buys() []*BuyOrder {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*BuyOrder, 0, len(b.buys))
	for _, o := range b.buys {
		cp := *o
		out = append(out, &cp)
	}
	return out
}

// BuyCount returns the number of open BUY orders.
func (b *Book) BuyCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.buys)
}

// LayersTaken returns the set of layer indices currently occupied by an open
// BUY order.
func (b *Book) LayersTaken() map[int]bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	taken := make(map[int]bool, len(b.buys))
	for _, o := range b.buys {
		taken[o.Layer] = true
	}
	return taken
}

// UpdateBuyFilled records a new cumulative executed quantity for an open BUY.
func (b *Book) UpdateBuyFilled(id string, cumExecQty decimal.Decimal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if o, ok := b.buys[id]; ok {
		o.Filled = cumExecQty
	}
}

// SetBuyLayer reassigns the layer index of an open BUY, used by the
// ladder manager's layer-collision reshuffle (spec §4.3).
func (b *Book) SetBuyLayer(id string, layer int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if o, ok := b.buys[id]; ok {
		o.Layer = layer
	}
}

// BuyByID returns a copy of one open BUY order, if present.
func (b *Book) BuyByID(id string) (*BuyOrder, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	o, ok := b.buys[id]
	if !ok {
		return nil, false
	}
	cp := *o
	return &cp, true
}

// ———————————————————————————————————————— TP set ————————————————————————————————————————

// AddTP registers a newly-placed TP order.
func (b *Book) AddTP(o *TpOrder) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tpByID[o.ID] = o
	b.tpTree.Set(o)
}

// RemoveTP drops a TP order (filled, canceled, or evicted).
func (b *Book) RemoveTP(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.tpByID[id]
	if !ok {
		return
	}
	delete(b.tpByID, id)
	b.tpTree.Delete(o)
}

// TPs returns a snapshot (copies) of all open TP orders. The order of the
// returned slice is not defined.
func (b *Book) TPs() []*TpOrder {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*TpOrder, 0, len(b.tpByID))
	for _, o := range b.tpByID {
		cp := *o
		out = append(out, &cp)
	}
	return out
}

// TPCount returns the number of open TP orders.
func (b *Book) TPCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.tpByID)
}

// HighestTP returns the eviction candidate: the TP with the highest sell
// price, ties broken by oldest placement time (spec §4.4 step 1).
func (b *Book) HighestTP() (*TpOrder, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	o, ok := b.tpTree.Max()
	if !ok {
		return nil, false
	}
	cp := *o
	return &cp, true
}

// ———————————————————————————————————————— waiting sub-state ————————————————————————————————————————

// SetPendingMarketSell installs or replaces the pending market-sell record.
func (b *Book) SetPendingMarketSell(p *PendingMarketSell) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pendingMarketSell = p
}

// PendingMarketSell returns a copy of the pending market-sell record, if any.
func (b *Book) PendingMarketSell() (*PendingMarketSell, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.pendingMarketSell == nil {
		return nil, false
	}
	cp := *b.pendingMarketSell
	return &cp, true
}

// ClearPendingMarketSell removes the pending market-sell record.
func (b *Book) ClearPendingMarketSell() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pendingMarketSell = nil
}

// SetPendingNewTP installs the TP materialization placeholder.
func (b *Book) SetPendingNewTP(p *PendingNewTP) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pendingNewTP = p
}

// PendingNewTP returns a copy of the pending-new-TP record, if any.
func (b *Book) PendingNewTP() (*PendingNewTP, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.pendingNewTP == nil {
		return nil, false
	}
	cp := *b.pendingNewTP
	return &cp, true
}

// ClearPendingNewTP removes the TP materialization placeholder.
func (b *Book) ClearPendingNewTP() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pendingNewTP = nil
}
