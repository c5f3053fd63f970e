package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"binance-mcp/internal/binance"
	"binance-mcp/internal/format"
	"binance-mcp/internal/models"
)

func decodeText(t *testing.T, result *CallToolResult, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].Text), v))
}

func TestToolsListed(t *testing.T) {
	env := newTestEnv(t)

	tools := env.invoker.Tools()
	require.Len(t, tools, 8)

	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.Name)
		require.NotNil(t, tool.Annotations)
		assert.True(t, tool.Annotations.ReadOnlyHint, tool.Name)
		assert.True(t, tool.Annotations.OpenWorldHint, tool.Name)
		assert.Equal(t, "object", tool.InputSchema["type"])
	}
	assert.Equal(t, []string{
		ToolGetTicker, ToolSearchSymbols, ToolGetOrderBook, ToolGetKlines,
		ToolGetRecentTrades, ToolGetExchangeInfo, ToolGetPrice, ToolGetBestPrice,
	}, names)
}

func TestUnknownToolIsProtocolError(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.invoker.InvokeTool(context.Background(), "binance_place_order", nil)
	require.Error(t, err)

	rpcErr, ok := err.(*RPCError)
	require.True(t, ok)
	assert.Equal(t, InvalidParams, rpcErr.Code)
}

func TestPriceMatchesUpstreamExactly(t *testing.T) {
	env := newTestEnv(t)

	result := env.call(t, ToolGetPrice, `{"symbols":["btcusdt"],"response_format":"json"}`)
	require.False(t, result.IsError, result.Content[0].Text)

	var payload models.PricePayload
	decodeText(t, result, &payload)
	require.Len(t, payload.Prices, 1)
	assert.Equal(t, "BTCUSDT", payload.Prices[0].Symbol)
	assert.True(t, payload.Prices[0].Price.Equal(decimal.RequireFromString(mockPrices["BTCUSDT"])))
	assert.Equal(t, 1, payload.Count)
	assert.False(t, payload.Truncated)

	md := env.call(t, ToolGetPrice, `{"symbols":["BTCUSDT"]}`)
	assert.Contains(t, md.Content[0].Text, "- **BTCUSDT**: $67,123.45")

	assert.Equal(t, 2.0, testutil.ToFloat64(env.metrics.ToolCalls.WithLabelValues(ToolGetPrice, "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(env.metrics.UpstreamRequests.WithLabelValues(binance.EndpointTickerPrice, "200")))
}

func TestJSONAndMarkdownCarrySameNumbers(t *testing.T) {
	env := newTestEnv(t)

	jsonResult := env.call(t, ToolGetTicker, `{"symbols":["ETHUSDT"],"response_format":"json"}`)
	mdResult := env.call(t, ToolGetTicker, `{"symbols":["ETHUSDT"]}`)

	var payload models.TickerPayload
	decodeText(t, jsonResult, &payload)
	require.Len(t, payload.Data, 1)

	tk := payload.Data[0]
	md := mdResult.Content[0].Text
	assert.Contains(t, md, format.Money(tk.LastPrice))
	assert.Contains(t, md, format.Money(tk.HighPrice))
	assert.Contains(t, md, format.Money(tk.LowPrice))
	assert.Contains(t, md, format.CompactMoney(tk.QuoteVolume))
	require.NotNil(t, tk.PriceChange)
	assert.Contains(t, md, format.Money(*tk.PriceChange))
	assert.Equal(t, TickerFull, payload.Type)
}

func TestKlinesEveryIntervalAccepted(t *testing.T) {
	env := newTestEnv(t)

	for _, interval := range Intervals {
		result := env.call(t, ToolGetKlines, fmt.Sprintf(`{"symbol":"BTCUSDT","interval":%q}`, interval))
		assert.False(t, result.IsError, "%s: %s", interval, result.Content[0].Text)
	}
	assert.Equal(t, len(Intervals), env.mock.count(binance.EndpointKlines))
}

func TestInvalidParametersRejectedBeforeNetwork(t *testing.T) {
	tests := []struct {
		name  string
		tool  string
		args  string
		field string
	}{
		{"interval", ToolGetKlines, `{"symbol":"BTCUSDT","interval":"2m"}`, "interval"},
		{"klines limit", ToolGetKlines, `{"symbol":"BTCUSDT","interval":"1h","limit":1001}`, "limit"},
		{"klines time range", ToolGetKlines, `{"symbol":"BTCUSDT","interval":"1h","start_time":2000,"end_time":1000}`, "start_time"},
		{"depth", ToolGetOrderBook, `{"symbol":"BTCUSDT","limit":7}`, "limit"},
		{"trades limit", ToolGetRecentTrades, `{"symbol":"BTCUSDT","limit":0}`, "limit"},
		{"missing symbols", ToolGetPrice, `{}`, "symbols"},
		{"too many symbols", ToolGetBestPrice, `{"symbols":[` + strings.TrimSuffix(strings.Repeat(`"BTCUSDT",`, 101), ",") + `]}`, "symbols"},
		{"ticker type", ToolGetTicker, `{"symbols":["BTCUSDT"],"type":"TINY"}`, "type"},
		{"unknown argument", ToolGetPrice, `{"symbols":["BTCUSDT"],"foo":1}`, "foo"},
		{"format", ToolGetPrice, `{"symbols":["BTCUSDT"],"response_format":"xml"}`, "response_format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			result := env.call(t, tt.tool, tt.args)
			require.True(t, result.IsError)

			md := result.Content[0].Text
			assert.Contains(t, md, "Invalid parameter")
			assert.Contains(t, md, tt.field)
			assert.Equal(t, 0, env.mock.total())
			assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.ErrorsTotal.WithLabelValues("tool", string(KindInvalidParameter))))
		})
	}
}

func TestInvalidParameterJSONListsAllowedValues(t *testing.T) {
	env := newTestEnv(t)

	result := env.call(t, ToolGetOrderBook, `{"symbol":"BTCUSDT","limit":7,"response_format":"json"}`)
	require.True(t, result.IsError)

	var payload models.ToolErrorPayload
	decodeText(t, result, &payload)
	assert.Equal(t, string(KindInvalidParameter), payload.Error)
	assert.Equal(t, "limit", payload.Field)
	assert.Equal(t, []string{"5", "10", "20", "50", "100", "500", "1000", "5000"}, payload.Allowed)
}

func TestUnknownSymbolSuggestsSameBase(t *testing.T) {
	env := newTestEnv(t)

	result := env.call(t, ToolGetPrice, `{"symbols":["BTCUSD"],"response_format":"json"}`)
	require.True(t, result.IsError)

	var payload models.ToolErrorPayload
	decodeText(t, result, &payload)
	assert.Equal(t, string(KindUnknownSymbol), payload.Error)
	assert.Equal(t, []string{"BTCUSD"}, payload.UnknownSymbols)
	require.NotEmpty(t, payload.Suggestions)
	for _, s := range payload.Suggestions {
		assert.Contains(t, s, "BTC")
	}
	assert.Equal(t, -1121, payload.Code)
	assert.Contains(t, payload.Hint, "binance_search_symbols")

	md := env.call(t, ToolGetPrice, `{"symbols":["BTCUSD"]}`)
	require.True(t, md.IsError)
	assert.Contains(t, md.Content[0].Text, "Unknown symbol: BTCUSD")
	assert.Contains(t, md.Content[0].Text, "Did you mean: BTCUSDC, BTCUSDT?")
	assert.Contains(t, md.Content[0].Text, "binance_search_symbols")

	// The catalog is fetched once and reused.
	assert.Equal(t, 1, env.mock.count(binance.EndpointExchangeInfo))
}

func TestUnknownSymbolAmongKnown(t *testing.T) {
	env := newTestEnv(t)

	result := env.call(t, ToolGetTicker, `{"symbols":["ETHUSDT","DOGUSDT"],"response_format":"json"}`)
	require.True(t, result.IsError)

	var payload models.ToolErrorPayload
	decodeText(t, result, &payload)
	assert.Equal(t, []string{"DOGUSDT"}, payload.UnknownSymbols)
	require.NotEmpty(t, payload.Suggestions)
	assert.Equal(t, "DOGEUSDT", payload.Suggestions[0])
}

func TestRateLimited(t *testing.T) {
	env := newTestEnv(t)

	result := env.call(t, ToolGetPrice, `{"symbols":["RATEUSDT"]}`)
	require.True(t, result.IsError)
	assert.Contains(t, result.Content[0].Text, "Rate limit exceeded (HTTP 429)")
	assert.Contains(t, result.Content[0].Text, "Wait 60 seconds")

	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.ToolCalls.WithLabelValues(ToolGetPrice, "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.ErrorsTotal.WithLabelValues("tool", string(KindRateLimited))))
}

func TestUpstreamErrorReportedVerbatim(t *testing.T) {
	env := newTestEnv(t)

	result := env.call(t, ToolGetOrderBook, `{"symbol":"FAILUSDT","response_format":"json"}`)
	require.True(t, result.IsError)

	var payload models.ToolErrorPayload
	decodeText(t, result, &payload)
	assert.Equal(t, string(KindUpstream), payload.Error)
	assert.Equal(t, 500, payload.StatusCode)
	assert.Equal(t, -1000, payload.Code)
	assert.Equal(t, "An unknown error occurred while processing the request.", payload.Message)
}

func TestOrderBookSummary(t *testing.T) {
	env := newTestEnv(t)

	result := env.call(t, ToolGetOrderBook, `{"symbol":"BTCUSDT","limit":5,"response_format":"json"}`)
	require.False(t, result.IsError, result.Content[0].Text)

	var payload models.OrderBookPayload
	decodeText(t, result, &payload)
	assert.Equal(t, int64(1027024), payload.LastUpdateID)
	assert.Equal(t, 3, payload.BidLevels)
	require.NotNil(t, payload.Summary)
	assert.InDelta(t, 50.0, payload.Summary.SpreadBps, 1e-9)
	assert.InDelta(t, 100.25, payload.Summary.MidPrice, 1e-9)
	assert.InDelta(t, 0.0, payload.Summary.Imbalance, 1e-9)
	assert.True(t, payload.Summary.BestBid.Equal(decimal.RequireFromString("100")))
	assert.InDelta(t, 596.5, payload.Summary.TotalBidNotional, 1e-9)
	assert.InDelta(t, 606.5, payload.Summary.TotalAskNotional, 1e-9)

	md := env.call(t, ToolGetOrderBook, `{"symbol":"BTCUSDT"}`)
	assert.Contains(t, md.Content[0].Text, "## Spread Analysis")
	assert.Contains(t, md.Content[0].Text, "50.00 bps")
	assert.Contains(t, md.Content[0].Text, "- **Notional**: bids $596.50 / asks $606.50")
}

func TestTruncatedExchangeInfoKeepsTotal(t *testing.T) {
	const limit = 1000
	env := newTestEnvWithLimit(t, limit)

	result := env.call(t, ToolGetExchangeInfo, `{"symbols":["BTCUSDT","BTCUSDC","ETHUSDT","ETHBTC","DOGEUSDT"]}`)
	require.False(t, result.IsError)

	text := result.Content[0].Text
	assert.LessOrEqual(t, format.Len(text), limit)
	assert.Contains(t, text, "## Trading Pairs (5 total)")
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.Truncations.WithLabelValues(ToolGetExchangeInfo)))
}

func TestRecentTradesVolumes(t *testing.T) {
	env := newTestEnv(t)

	result := env.call(t, ToolGetRecentTrades, `{"symbol":"BTCUSDT","limit":2,"response_format":"json"}`)
	require.False(t, result.IsError)

	var payload models.TradesPayload
	decodeText(t, result, &payload)
	assert.Equal(t, 2, payload.Count)
	assert.True(t, payload.BuyVolume.Equal(decimal.NewFromInt(3)))
	assert.True(t, payload.SellVolume.Equal(decimal.NewFromInt(1)))
}

func TestKlinesJSONUsesObjects(t *testing.T) {
	env := newTestEnv(t)

	result := env.call(t, ToolGetKlines, `{"symbol":"BTCUSDT","interval":"1h","response_format":"json"}`)
	require.False(t, result.IsError)

	var raw struct {
		Klines []map[string]interface{} `json:"klines"`
		Count  int                      `json:"count"`
	}
	decodeText(t, result, &raw)
	require.Len(t, raw.Klines, 2)
	assert.Equal(t, "105", raw.Klines[0]["close"])
	assert.Equal(t, float64(1704067200000), raw.Klines[0]["openTime"])
	assert.Equal(t, 2, raw.Count)
}

func TestSearchSymbols(t *testing.T) {
	env := newTestEnv(t)

	result := env.call(t, ToolSearchSymbols, `{"base_asset":"btc","response_format":"json"}`)
	require.False(t, result.IsError, result.Content[0].Text)

	var payload models.SearchPayload
	decodeText(t, result, &payload)
	assert.Equal(t, 2, payload.Count)
	require.NotNil(t, payload.Filters.BaseAsset)
	assert.Equal(t, "BTC", *payload.Filters.BaseAsset)
	assert.Nil(t, payload.Filters.QuoteAsset)
	for _, s := range payload.Symbols {
		assert.Equal(t, "BTC", s.BaseAsset)
	}

	md := env.call(t, ToolSearchSymbols, `{"search_term":"doge"}`)
	assert.Contains(t, md.Content[0].Text, "# Found 1 Trading Pairs")
	assert.Contains(t, md.Content[0].Text, "## DOGEUSDT ✅")
}

func TestExchangeInfoDetailed(t *testing.T) {
	env := newTestEnv(t)

	result := env.call(t, ToolGetExchangeInfo, `{"symbols":["BTCUSDT"]}`)
	require.False(t, result.IsError, result.Content[0].Text)
	assert.Contains(t, result.Content[0].Text, "**Price Filter**: min 0.01")
	assert.Contains(t, result.Content[0].Text, "REQUEST_WEIGHT")
}

func TestBestPriceSpread(t *testing.T) {
	env := newTestEnv(t)

	result := env.call(t, ToolGetBestPrice, `{"symbols":["BTCUSDT"],"response_format":"json"}`)
	require.False(t, result.IsError)

	var payload models.BookTickerPayload
	decodeText(t, result, &payload)
	require.Len(t, payload.Tickers, 1)
	assert.True(t, payload.Tickers[0].Spread.Equal(decimal.RequireFromString("0.1")))
	assert.InDelta(t, 0.1, payload.Tickers[0].SpreadPct, 1e-9)
}

func TestOutputTruncatedAtLimit(t *testing.T) {
	const limit = 600
	env := newTestEnvWithLimit(t, limit)

	md := env.call(t, ToolGetExchangeInfo, `{}`)
	require.False(t, md.IsError)
	assert.LessOrEqual(t, format.Len(md.Content[0].Text), limit)
	assert.Contains(t, md.Content[0].Text, format.NarrowingHint)

	js := env.call(t, ToolGetExchangeInfo, `{"response_format":"json"}`)
	require.False(t, js.IsError)
	assert.LessOrEqual(t, format.Len(js.Content[0].Text), limit)

	var info models.TruncationInfo
	decodeText(t, js, &info)
	assert.True(t, info.Truncated)
	assert.Equal(t, len(mockSymbols), info.TotalCount)
	assert.Contains(t, info.Message, format.NarrowingHint)

	assert.Equal(t, 2.0, testutil.ToFloat64(env.metrics.Truncations.WithLabelValues(ToolGetExchangeInfo)))
}
