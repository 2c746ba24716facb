package types

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestOrderBookTopZeroValue(t *testing.T) {
	t.Parallel()

	var top OrderBookTop
	if !top.BestBid.IsZero() || !top.BestAsk.IsZero() {
		t.Errorf("zero-value OrderBookTop should have zero prices, got %+v", top)
	}
}

func TestPlaceRequestCarriesClientOrdID(t *testing.T) {
	t.Parallel()

	req := PlaceRequest{
		Side:        Buy,
		Kind:        Limit,
		Price:       decimal.RequireFromString("99.98"),
		Qty:         decimal.RequireFromString("1"),
		ClientOrdID: "abc-123",
	}
	if req.ClientOrdID != "abc-123" {
		t.Errorf("ClientOrdID = %q, want abc-123", req.ClientOrdID)
	}
}
