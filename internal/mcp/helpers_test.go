package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"binance-mcp/internal/binance"
	"binance-mcp/internal/catalog"
	"binance-mcp/internal/format"
	"binance-mcp/internal/instrumentation"
)

var mockSymbols = map[string][2]string{
	"BTCUSDT":  {"BTC", "USDT"},
	"BTCUSDC":  {"BTC", "USDC"},
	"ETHUSDT":  {"ETH", "USDT"},
	"ETHBTC":   {"ETH", "BTC"},
	"DOGEUSDT": {"DOGE", "USDT"},
	"RATEUSDT": {"RATE", "USDT"},
	"FAILUSDT": {"FAIL", "USDT"},
}

var mockPrices = map[string]string{
	"BTCUSDT":  "67123.45000000",
	"BTCUSDC":  "67120.00000000",
	"ETHUSDT":  "3456.78000000",
	"ETHBTC":   "0.05150000",
	"DOGEUSDT": "0.12345000",
}

// mockBinance is an httptest stand-in for the public market data API.
type mockBinance struct {
	*httptest.Server

	mu    sync.Mutex
	calls map[string]int
}

func newMockBinance(t *testing.T) *mockBinance {
	t.Helper()
	m := &mockBinance{calls: make(map[string]int)}
	m.Server = httptest.NewServer(http.HandlerFunc(m.serve))
	t.Cleanup(m.Close)
	return m
}

func (m *mockBinance) count(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[path]
}

func (m *mockBinance) total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		n += c
	}
	return n
}

func requestedSymbols(r *http.Request) []string {
	q := r.URL.Query()
	if s := q.Get("symbol"); s != "" {
		return []string{s}
	}
	var list []string
	if raw := q.Get("symbols"); raw != "" {
		_ = json.Unmarshal([]byte(raw), &list)
	}
	return list
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func (m *mockBinance) serve(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.calls[r.URL.Path]++
	m.mu.Unlock()

	symbols := requestedSymbols(r)
	for _, s := range symbols {
		switch s {
		case "RATEUSDT":
			writeJSON(w, http.StatusTooManyRequests, `{"code":-1003,"msg":"Too many requests; current limit is 6000 request weight per 1 MINUTE."}`)
			return
		case "FAILUSDT":
			writeJSON(w, http.StatusInternalServerError, `{"code":-1000,"msg":"An unknown error occurred while processing the request."}`)
			return
		}
		if _, ok := mockSymbols[s]; !ok {
			writeJSON(w, http.StatusBadRequest, `{"code":-1121,"msg":"Invalid symbol."}`)
			return
		}
	}

	switch r.URL.Path {
	case binance.EndpointTickerPrice:
		items := make([]string, 0, len(symbols))
		for _, s := range symbols {
			items = append(items, fmt.Sprintf(`{"symbol":%q,"price":%q}`, s, mockPrices[s]))
		}
		writeJSON(w, http.StatusOK, "["+strings.Join(items, ",")+"]")

	case binance.EndpointBookTicker:
		items := make([]string, 0, len(symbols))
		for _, s := range symbols {
			items = append(items, fmt.Sprintf(`{"symbol":%q,"bidPrice":"100.00","bidQty":"2.5","askPrice":"100.10","askQty":"1.5"}`, s))
		}
		writeJSON(w, http.StatusOK, "["+strings.Join(items, ",")+"]")

	case binance.EndpointTicker24h:
		items := make([]string, 0, len(symbols))
		for _, s := range symbols {
			items = append(items, fmt.Sprintf(`{"symbol":%q,"priceChange":"1500.00","priceChangePercent":"2.285",
				"weightedAvgPrice":"66800.00","prevClosePrice":"65623.45","lastPrice":%q,"lastQty":"0.01",
				"bidPrice":"67123.44","bidQty":"0.5","askPrice":"67123.45","askQty":"0.7",
				"openPrice":"65623.45","highPrice":"68000.00","lowPrice":"65000.00","volume":"1234.5",
				"quoteVolume":"82000000","openTime":1704000000000,"closeTime":1704067200000,
				"firstId":1,"lastId":100,"count":100}`, s, mockPrices[s]))
		}
		writeJSON(w, http.StatusOK, "["+strings.Join(items, ",")+"]")

	case binance.EndpointDepth:
		writeJSON(w, http.StatusOK, `{"lastUpdateId":1027024,
			"bids":[["100.00","2"],["99.50","1"],["99.00","3"]],
			"asks":[["100.50","1"],["101.00","3"],["101.50","2"]]}`)

	case binance.EndpointKlines:
		writeJSON(w, http.StatusOK, `[
			[1704067200000,"100.0","110.0","95.0","105.0","10",1704070799999,"1000.0",42,"6.0","630.0","0"],
			[1704070800000,"105.0","120.0","90.0","100.0","12",1704074399999,"1200.0",30,"5.0","500.0","0"]
		]`)

	case binance.EndpointTrades:
		writeJSON(w, http.StatusOK, `[
			{"id":1,"price":"100.00","qty":"3","quoteQty":"300","time":1704067200000,"isBuyerMaker":false,"isBestMatch":true},
			{"id":2,"price":"100.00","qty":"1","quoteQty":"100","time":1704067201000,"isBuyerMaker":true,"isBestMatch":true}
		]`)

	case binance.EndpointExchangeInfo:
		names := symbols
		if len(names) == 0 {
			for s := range mockSymbols {
				names = append(names, s)
			}
		}
		items := make([]string, 0, len(names))
		for _, s := range names {
			assets := mockSymbols[s]
			items = append(items, fmt.Sprintf(`{"symbol":%q,"status":"TRADING","baseAsset":%q,"baseAssetPrecision":8,
				"quoteAsset":%q,"quoteAssetPrecision":8,"orderTypes":["LIMIT","MARKET"],
				"icebergAllowed":true,"ocoAllowed":true,"otoAllowed":false,
				"isSpotTradingAllowed":true,"isMarginTradingAllowed":false,
				"filters":[{"filterType":"PRICE_FILTER","minPrice":"0.01","maxPrice":"1000000.00","tickSize":"0.01"},
				{"filterType":"LOT_SIZE","minQty":"0.00001","maxQty":"9000.00","stepSize":"0.00001"}]}`, s, assets[0], assets[1]))
		}
		writeJSON(w, http.StatusOK, `{"timezone":"UTC","serverTime":1704067200000,
			"rateLimits":[{"rateLimitType":"REQUEST_WEIGHT","interval":"MINUTE","intervalNum":1,"limit":6000}],
			"symbols":[`+strings.Join(items, ",")+`]}`)

	default:
		http.NotFound(w, r)
	}
}

type testEnv struct {
	mock    *mockBinance
	metrics *instrumentation.Metrics
	invoker *ToolInvoker
	server  *Server
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithLimit(t, format.DefaultCharacterLimit)
}

func newTestEnvWithLimit(t *testing.T, characterLimit int) *testEnv {
	t.Helper()

	mock := newMockBinance(t)
	logger := discardLogger()
	m := instrumentation.NewMetrics(prometheus.NewRegistry())

	client := binance.NewClient(mock.URL, 2*time.Second, logger, binance.WithObserver(m))
	symbols := catalog.New(client, nil, time.Minute, logger)
	executor := NewToolExecutor(client, symbols, characterLimit, logger)

	invoker, err := NewToolInvoker(executor, m, logger)
	require.NoError(t, err)

	return &testEnv{
		mock:    mock,
		metrics: m,
		invoker: invoker,
		server:  NewServer(invoker, "test", logger),
	}
}

// args decodes a JSON object the way a JSON-RPC request would deliver it.
func args(t *testing.T, raw string) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	return out
}

func (e *testEnv) call(t *testing.T, tool, raw string) *CallToolResult {
	t.Helper()
	result, err := e.invoker.InvokeTool(context.Background(), tool, args(t, raw))
	require.NoError(t, err)
	require.Len(t, result.Content, 1)
	return result
}
