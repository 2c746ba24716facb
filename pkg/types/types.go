// Package types defines the shared vocabulary used across all packages: the
// BUY/SELL side enum, exchange order status, and the wire-level payloads the
// exchange adapter exchanges with the venue. It has no dependency on any
// other internal package, so any layer may import it.
package types

import "github.com/shopspring/decimal"

// Side is the direction of an order.
type Side string

const (
	Buy  Side = "Buy"
	Sell Side = "Sell"
)

// OrderKind distinguishes a resting limit order from an immediate market order.
type OrderKind string

const (
	Limit  OrderKind = "Limit"
	Market OrderKind = "Market"
)

// OrderState is the exchange-reported lifecycle state of a single order, per
// the adapter contract of spec §4.2: New/PartiallyFilled/Filled/Other, plus
// Unknown for a status query that returned no matching order (spec §7).
type OrderState string

const (
	StateNew             OrderState = "New"
	StatePartiallyFilled OrderState = "PartiallyFilled"
	StateFilled          OrderState = "Filled"
	StateOther           OrderState = "Other"
	StateUnknown         OrderState = "Unknown"
)

// OrderBookTop is a best-bid/best-ask snapshot. BestAsk must be >= BestBid.
type OrderBookTop struct {
	BestBid decimal.Decimal
	BestAsk decimal.Decimal
}

// PlaceRequest groups the fields of a limit or market order request. The
// exchange.Adapter methods take these fields as separate arguments rather
// than this struct.
type PlaceRequest struct {
	Side        Side
	Kind        OrderKind
	Price       decimal.Decimal // zero for Market orders
	Qty         decimal.Decimal
	ClientOrdID string // idempotency key, see internal/exchange
}

// PlaceResult holds the order id of a successful placement. The
// exchange.Adapter PlaceLimit/PlaceMarket methods return the id as a plain
// string rather than this struct.
type PlaceResult struct {
	OrderID string
}

// StatusResult is what a successful status call returns.
type StatusResult struct {
	State      OrderState
	CumExecQty decimal.Decimal
}
