package binance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Endpoint paths of the public Spot market-data API.
const (
	EndpointTicker24h    = "/api/v3/ticker/24hr"
	EndpointTickerPrice  = "/api/v3/ticker/price"
	EndpointBookTicker   = "/api/v3/ticker/bookTicker"
	EndpointDepth        = "/api/v3/depth"
	EndpointKlines       = "/api/v3/klines"
	EndpointTrades       = "/api/v3/trades"
	EndpointExchangeInfo = "/api/v3/exchangeInfo"
)

// DefaultBaseURL serves market data only and requires no API key.
const DefaultBaseURL = "https://data-api.binance.vision"

// Observer receives one callback per finished upstream request.
// status is zero when no HTTP response was received.
type Observer interface {
	ObserveUpstream(endpoint string, status int, elapsed time.Duration)
}

// Client issues read-only GET requests against the Binance REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	observer   Observer
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default pooled http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithObserver attaches a request observer (metrics).
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// NewClient creates a client for baseURL with the given request timeout.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger.With("component", "binance_client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ticker24h fetches rolling 24h statistics. tickerType is FULL or MINI.
func (c *Client) Ticker24h(ctx context.Context, symbols []string, tickerType string) ([]Ticker24h, error) {
	params := url.Values{}
	params.Set("symbols", EncodeSymbols(symbols))
	params.Set("type", tickerType)

	var tickers []Ticker24h
	if err := c.getList(ctx, EndpointTicker24h, params, &tickers); err != nil {
		return nil, err
	}
	return tickers, nil
}

// Prices fetches the latest price for each symbol.
func (c *Client) Prices(ctx context.Context, symbols []string) ([]PriceTicker, error) {
	params := url.Values{}
	params.Set("symbols", EncodeSymbols(symbols))

	var prices []PriceTicker
	if err := c.getList(ctx, EndpointTickerPrice, params, &prices); err != nil {
		return nil, err
	}
	return prices, nil
}

// BookTickers fetches best bid/ask for each symbol.
func (c *Client) BookTickers(ctx context.Context, symbols []string) ([]BookTicker, error) {
	params := url.Values{}
	params.Set("symbols", EncodeSymbols(symbols))

	var tickers []BookTicker
	if err := c.getList(ctx, EndpointBookTicker, params, &tickers); err != nil {
		return nil, err
	}
	return tickers, nil
}

// OrderBook fetches limit levels per side for symbol.
func (c *Client) OrderBook(ctx context.Context, symbol string, limit int) (*OrderBook, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("limit", strconv.Itoa(limit))

	var book OrderBook
	if err := c.get(ctx, EndpointDepth, params, &book); err != nil {
		return nil, err
	}
	return &book, nil
}

// KlinesQuery holds the parameters of a klines request.
type KlinesQuery struct {
	Symbol    string
	Interval  string
	Limit     int
	StartTime *int64
	EndTime   *int64
}

// Klines fetches candlesticks.
func (c *Client) Klines(ctx context.Context, q KlinesQuery) ([]Kline, error) {
	params := url.Values{}
	params.Set("symbol", q.Symbol)
	params.Set("interval", q.Interval)
	params.Set("limit", strconv.Itoa(q.Limit))
	if q.StartTime != nil {
		params.Set("startTime", strconv.FormatInt(*q.StartTime, 10))
	}
	if q.EndTime != nil {
		params.Set("endTime", strconv.FormatInt(*q.EndTime, 10))
	}

	var klines []Kline
	if err := c.get(ctx, EndpointKlines, params, &klines); err != nil {
		return nil, err
	}
	return klines, nil
}

// RecentTrades fetches the most recent trades for symbol.
func (c *Client) RecentTrades(ctx context.Context, symbol string, limit int) ([]Trade, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("limit", strconv.Itoa(limit))

	var trades []Trade
	if err := c.get(ctx, EndpointTrades, params, &trades); err != nil {
		return nil, err
	}
	return trades, nil
}

// ExchangeInfo fetches trading rules. An empty symbols slice returns all pairs.
func (c *Client) ExchangeInfo(ctx context.Context, symbols []string) (*ExchangeInfo, error) {
	params := url.Values{}
	if len(symbols) > 0 {
		params.Set("symbols", EncodeSymbols(symbols))
	}

	var info ExchangeInfo
	if err := c.get(ctx, EndpointExchangeInfo, params, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// EncodeSymbols renders the compact JSON array Binance expects:
// ["BTCUSDT","ETHUSDT"] with no spaces.
func EncodeSymbols(symbols []string) string {
	return `["` + strings.Join(symbols, `","`) + `"]`
}

// getList decodes a response that is either a JSON array or, for a single
// symbol, a bare object.
func (c *Client) getList(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	var raw json.RawMessage
	if err := c.get(ctx, endpoint, params, &raw); err != nil {
		return err
	}

	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "{") {
		trimmed = "[" + trimmed + "]"
	}
	if err := json.Unmarshal([]byte(trimmed), out); err != nil {
		return &APIError{Kind: KindDecode, Endpoint: endpoint, Message: err.Error(), Err: err}
	}
	return nil
}

// get performs one GET and decodes a 200 response into out.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	start := time.Now()

	reqURL := c.baseURL + endpoint
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "binance-mcp/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(endpoint, 0, start)
		return c.transportError(endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	c.observe(endpoint, resp.StatusCode, start)
	if err != nil {
		return c.transportError(endpoint, err)
	}

	c.logger.Debug("upstream_request",
		"endpoint", endpoint,
		"status", resp.StatusCode,
		"size_bytes", len(body),
		"latency_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode != http.StatusOK {
		return statusError(endpoint, resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &APIError{Kind: KindDecode, Endpoint: endpoint, StatusCode: resp.StatusCode, Message: err.Error(), Err: err}
	}
	return nil
}

func (c *Client) observe(endpoint string, status int, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveUpstream(endpoint, status, time.Since(start))
	}
}

func (c *Client) transportError(endpoint string, err error) *APIError {
	kind := KindNetwork
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		kind = KindTimeout
	}
	c.logger.Warn("upstream_failed", "endpoint", endpoint, "kind", kind, "error", err)
	return &APIError{Kind: kind, Endpoint: endpoint, Message: err.Error(), Err: err}
}

// statusError builds an APIError from a non-200 response.
func statusError(endpoint string, status int, body []byte) *APIError {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil || eb.Msg == "" {
		eb.Msg = strings.TrimSpace(string(body))
		if eb.Msg == "" {
			eb.Msg = http.StatusText(status)
		}
	}
	return &APIError{
		Kind:       classifyStatus(status, eb),
		Endpoint:   endpoint,
		StatusCode: status,
		Code:       eb.Code,
		Message:    eb.Msg,
	}
}
