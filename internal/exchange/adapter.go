package exchange

import (
	"context"

	"github.com/shopspring/decimal"

	"scalpmaker/pkg/types"
)

// Adapter is the exchange contract consumed by the strategy core (spec
// §4.2). The core never assumes atomicity between two adapter calls and
// treats every response as the sole source of truth for the next tick.
type Adapter interface {
	PlaceLimit(ctx context.Context, side types.Side, price, qty decimal.Decimal, clientOrdID string) (string, error)
	PlaceMarket(ctx context.Context, side types.Side, qty decimal.Decimal, clientOrdID string) (string, error)
	Cancel(ctx context.Context, orderID string) error
	Status(ctx context.Context, orderID string) (types.StatusResult, error)
	OrderbookTop(ctx context.Context) (types.OrderBookTop, error)
}

var _ Adapter = (*Client)(nil)
