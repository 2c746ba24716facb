// Package exchange implements the HMAC-authenticated REST client the
// strategy core drives through the Adapter interface (spec §4.2, §6).
//
// Client talks to four endpoints of a Bybit-style derivatives API:
//   - PlaceLimit/PlaceMarket: POST /v5/order/create
//   - Cancel:                 POST /v5/order/cancel
//   - Status:                 GET  /v5/order/realtime
//   - OrderbookTop:            GET  /v5/market/orderbook
//
// Every order-create request carries an orderLinkId: the caller's
// clientOrdID, or a fresh google/uuid when the caller passes "". The id
// stays the same across resty's retries of that one request; it is not
// stored or returned, so nothing later matches it against exchange state.
// Every request is rate-limited and authenticated via Auth. In dry-run mode, mutating calls return synthetic
// success without an HTTP round-trip, mirroring the teacher's dryRun branch.
package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"scalpmaker/internal/config"
	"scalpmaker/pkg/types"
)

// bybitResponse is the common envelope every /v5 endpoint returns.
type bybitResponse struct {
	RetCode int             `json:"retCode"`
	RetMsg  string          `json:"retMsg"`
	Result  json.RawMessage `json:"result"`
}

type createOrderResult struct {
	OrderID string `json:"orderId"`
}

type realtimeResult struct {
	List []struct {
		OrderStatus string `json:"orderStatus"`
		CumExecQty  string `json:"cumExecQty"`
	} `json:"list"`
}

type orderbookResult struct {
	B [][2]string `json:"b"`
	A [][2]string `json:"a"`
}

// Client is the REST adapter for a single (category, symbol) pair.
type Client struct {
	http     *resty.Client
	auth     *Auth
	rl       *RateLimiter
	category string
	symbol   string
	dryRun   bool
	logger   *slog.Logger
}

// NewClient creates a REST client with rate limiting, retry, and HMAC auth.
func NewClient(cfg config.Config, auth *Auth, logger *slog.Logger) *Client {
	timeout := cfg.Exchange.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	retryCount := cfg.Exchange.RetryCount
	if retryCount <= 0 {
		retryCount = 3
	}

	httpClient := resty.New().
		SetBaseURL(cfg.Exchange.BaseURL).
		SetTimeout(timeout).
		SetRetryCount(retryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= 500
		}).
		SetHeader("Content-Type", "application/json")

	return &Client{
		http:     httpClient,
		auth:     auth,
		rl:       NewRateLimiter(),
		category: cfg.Strategy.Category,
		symbol:   cfg.Strategy.Symbol,
		dryRun:   cfg.Exchange.DryRun,
		logger:   logger.With("component", "exchange"),
	}
}

// PlaceLimit places a resting limit order.
func (c *Client) PlaceLimit(ctx context.Context, side types.Side, price, qty decimal.Decimal, clientOrdID string) (string, error) {
	return c.placeOrder(ctx, side, types.Limit, price, qty, clientOrdID)
}

// PlaceMarket places an immediate market order.
func (c *Client) PlaceMarket(ctx context.Context, side types.Side, qty decimal.Decimal, clientOrdID string) (string, error) {
	return c.placeOrder(ctx, side, types.Market, decimal.Zero, qty, clientOrdID)
}

func (c *Client) placeOrder(ctx context.Context, side types.Side, kind types.OrderKind, price, qty decimal.Decimal, clientOrdID string) (string, error) {
	if clientOrdID == "" {
		clientOrdID = uuid.NewString()
	}
	if c.dryRun {
		c.logger.Info("dry-run place order", "side", side, "kind", kind, "price", price, "qty", qty, "clientOrdID", clientOrdID)
		return "dry-run-" + clientOrdID, nil
	}
	if err := c.rl.Order.Wait(ctx); err != nil {
		return "", err
	}

	body := map[string]any{
		"category":    c.category,
		"symbol":      c.symbol,
		"side":        string(side),
		"orderType":   string(kind),
		"qty":         qty.String(),
		"orderLinkId": clientOrdID,
	}
	if kind == types.Limit {
		body["price"] = price.String()
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal order: %w", err)
	}

	var result createOrderResult
	if err := c.post(ctx, "/v5/order/create", payload, &result); err != nil {
		return "", fmt.Errorf("place order: %w", err)
	}
	return result.OrderID, nil
}

// Cancel cancels an order. Idempotent from the core's view: canceling an
// already-filled or unknown order is not treated as fatal (spec §4.2, §7).
func (c *Client) Cancel(ctx context.Context, orderID string) error {
	if c.dryRun {
		c.logger.Info("dry-run cancel", "orderId", orderID)
		return nil
	}
	if err := c.rl.Cancel.Wait(ctx); err != nil {
		return err
	}

	body := map[string]any{
		"category": c.category,
		"symbol":   c.symbol,
		"orderId":  orderID,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal cancel: %w", err)
	}

	var result json.RawMessage
	if err := c.post(ctx, "/v5/order/cancel", payload, &result); err != nil {
		return fmt.Errorf("cancel order: %w", err)
	}
	return nil
}

// Status queries the current lifecycle state of an order.
func (c *Client) Status(ctx context.Context, orderID string) (types.StatusResult, error) {
	if c.dryRun {
		return types.StatusResult{State: types.StateFilled, CumExecQty: decimal.Zero}, nil
	}
	if err := c.rl.Status.Wait(ctx); err != nil {
		return types.StatusResult{}, err
	}

	query := url.Values{}
	query.Set("category", c.category)
	query.Set("symbol", c.symbol)
	query.Set("orderId", orderID)

	var result realtimeResult
	if err := c.get(ctx, "/v5/order/realtime", query, &result); err != nil {
		return types.StatusResult{}, fmt.Errorf("status: %w", err)
	}
	if len(result.List) == 0 {
		// Unknown order (spec §7): treated as "not filled" for this tick.
		return types.StatusResult{State: types.StateUnknown}, nil
	}

	entry := result.List[0]
	cum, err := decimal.NewFromString(entry.CumExecQty)
	if err != nil {
		return types.StatusResult{}, fmt.Errorf("parse cumExecQty %q: %w", entry.CumExecQty, err)
	}
	return types.StatusResult{State: mapOrderStatus(entry.OrderStatus), CumExecQty: cum}, nil
}

func mapOrderStatus(s string) types.OrderState {
	switch s {
	case "New", "Created":
		return types.StateNew
	case "PartiallyFilled":
		return types.StatePartiallyFilled
	case "Filled":
		return types.StateFilled
	default:
		return types.StateOther
	}
}

// OrderbookTop fetches the best bid/ask for the configured symbol.
func (c *Client) OrderbookTop(ctx context.Context) (types.OrderBookTop, error) {
	if err := c.rl.Book.Wait(ctx); err != nil {
		return types.OrderBookTop{}, err
	}

	query := url.Values{}
	query.Set("category", c.category)
	query.Set("symbol", c.symbol)
	query.Set("limit", "1")

	var result orderbookResult
	if err := c.get(ctx, "/v5/market/orderbook", query, &result); err != nil {
		return types.OrderBookTop{}, fmt.Errorf("orderbook: %w", err)
	}
	if len(result.B) == 0 || len(result.A) == 0 {
		return types.OrderBookTop{}, fmt.Errorf("orderbook: empty book for %s", c.symbol)
	}

	bid, err := decimal.NewFromString(result.B[0][0])
	if err != nil {
		return types.OrderBookTop{}, fmt.Errorf("parse bestBid %q: %w", result.B[0][0], err)
	}
	ask, err := decimal.NewFromString(result.A[0][0])
	if err != nil {
		return types.OrderBookTop{}, fmt.Errorf("parse bestAsk %q: %w", result.A[0][0], err)
	}
	return types.OrderBookTop{BestBid: bid, BestAsk: ask}, nil
}

// post issues an authenticated POST and decodes the Bybit envelope's Result
// field into out. An adapter rejection (retCode != 0) is returned as an
// error, never a partial success.
func (c *Client) post(ctx context.Context, path string, payload []byte, out any) error {
	headers := c.auth.Headers(string(payload))
	var envelope bybitResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetBody(payload).
		SetResult(&envelope).
		Post(path)
	if err != nil {
		return fmt.Errorf("transport error: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("status %d: %s", resp.StatusCode(), resp.String())
	}
	if envelope.RetCode != 0 {
		return fmt.Errorf("adapter rejection: retCode=%d retMsg=%s", envelope.RetCode, envelope.RetMsg)
	}
	if out != nil && len(envelope.Result) > 0 {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("decode result: %w", err)
		}
	}
	return nil
}

// get issues an authenticated GET, signing over the raw query string
// (without the leading "?"), per spec §6.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	rawQuery := query.Encode()
	headers := c.auth.Headers(rawQuery)

	var envelope bybitResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetQueryString(rawQuery).
		SetResult(&envelope).
		Get(path)
	if err != nil {
		return fmt.Errorf("transport error: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("status %d: %s", resp.StatusCode(), resp.String())
	}
	if envelope.RetCode != 0 {
		return fmt.Errorf("adapter rejection: retCode=%d retMsg=%s", envelope.RetCode, envelope.RetMsg)
	}
	if out != nil && len(envelope.Result) > 0 {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("decode result: %w", err)
		}
	}
	return nil
}
