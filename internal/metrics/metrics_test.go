package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"scalpmaker/internal/strategy"
)

func TestObserveAdvancesCountersByDelta(t *testing.T) {
	t.Parallel()

	r := New("BTCUSDT")
	r.Observe(strategy.Stats{BuyCreated: 1, BuyFilled: 0}, 1, 0, decimal.Zero, false)
	r.Observe(strategy.Stats{BuyCreated: 3, BuyFilled: 1}, 0, 1, decimal.RequireFromString("0.05"), true)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	r.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, `scalpmaker_buy_created_total{symbol="BTCUSDT"} 3`) {
		t.Errorf("expected buy_created_total to have advanced to 3, got:\n%s", body)
	}
	if !strings.Contains(body, `scalpmaker_waiting_for_market_sell{symbol="BTCUSDT"} 1`) {
		t.Errorf("expected waiting gauge to be 1, got:\n%s", body)
	}
}
