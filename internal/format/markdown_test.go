package format

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"binance-mcp/internal/binance"
	"binance-mcp/internal/metrics"
	"binance-mcp/internal/models"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func TestTickerMarkdownFull(t *testing.T) {
	out := TickerMarkdown([]binance.Ticker24h{{
		Symbol:             "BTCUSDT",
		LastPrice:          dec("67123.45"),
		HighPrice:          dec("68000"),
		LowPrice:           dec("66000"),
		Volume:             dec("1234.5"),
		QuoteVolume:        dec("82000000"),
		CloseTime:          1704067200000,
		PriceChange:        decPtr("1500"),
		PriceChangePercent: decPtr("2.285"),
		BidPrice:           decPtr("67123.44"),
		BidQty:             decPtr("0.5"),
	}}, "FULL")

	assert.Contains(t, out, "## BTCUSDT")
	assert.Contains(t, out, "$67,123.45")
	assert.Contains(t, out, "📈")
	assert.Contains(t, out, "$82.00M")
	assert.Contains(t, out, "1,234.50 BTC")
	assert.Contains(t, out, "**Best Bid**")
	assert.Contains(t, out, "2024-01-01 00:00:00 UTC")
}

func TestTickerMarkdownMini(t *testing.T) {
	out := TickerMarkdown([]binance.Ticker24h{{Symbol: "ETHUSDT", LastPrice: dec("3500")}}, "MINI")
	assert.Contains(t, out, "$3,500.00")
	assert.NotContains(t, out, "24h High")
}

func TestTickerMarkdownEmpty(t *testing.T) {
	assert.Equal(t, "No ticker data found.", TickerMarkdown(nil, "FULL"))
}

func TestSymbolsMarkdown(t *testing.T) {
	out := SymbolsMarkdown([]models.SymbolSummary{
		{Symbol: "BTCUSDT", Status: "TRADING", BaseAsset: "BTC", QuoteAsset: "USDT", IsSpotTradingAllowed: true, OcoAllowed: true},
		{Symbol: "OLDUSDT", Status: "BREAK", BaseAsset: "OLD", QuoteAsset: "USDT"},
	}, 2)

	assert.Contains(t, out, "# Found 2 Trading Pairs")
	assert.Contains(t, out, "## BTCUSDT ✅")
	assert.Contains(t, out, "## OLDUSDT ⏸️")
	assert.Contains(t, out, "Spot, OCO")
}

func TestSymbolsMarkdownEmptySuggestsBroaderSearch(t *testing.T) {
	out := SymbolsMarkdown(nil, 0)
	assert.Contains(t, out, "No symbols found")
	assert.Contains(t, out, "status=\"ALL\"")
}

func TestOrderBookMarkdown(t *testing.T) {
	var book binance.OrderBook
	require.NoError(t, json.Unmarshal([]byte(`{"lastUpdateId":42,
		"bids":[["100.0","2"],["99.5","1"]],
		"asks":[["100.5","1"],["101","3"]]}`), &book))

	depth, err := metrics.CalculateDepth(book.Bids, book.Asks, 10)
	require.NoError(t, err)
	spread, err := metrics.CalculateSpread(100, 2, 100.5, 1)
	require.NoError(t, err)

	out := OrderBookMarkdown("BTCUSDT", &book, depth, spread)

	assert.Contains(t, out, "# Order Book for BTCUSDT")
	assert.Contains(t, out, "**Last Update ID**: 42")
	assert.Contains(t, out, "| $100.00 | 2.000000 | $200.00 |")
	assert.Contains(t, out, "## Spread Analysis")
	assert.Contains(t, out, "**Spread**: $0.5 (0.500%, 50.00 bps)")
	assert.Contains(t, out, "**Mid Price**: $100.25")
	assert.Contains(t, out, "Total bids: 2, Total asks: 2")
}

func TestOrderBookMarkdownCapsRows(t *testing.T) {
	book := binance.OrderBook{}
	for i := 0; i < 30; i++ {
		book.Bids = append(book.Bids, binance.Level{Price: decimal.NewFromInt(int64(1000 - i)), Qty: decimal.NewFromInt(1)})
	}

	out := OrderBookMarkdown("BTCUSDT", &book, nil, nil)
	assert.Equal(t, MaxBookRows, strings.Count(out, "| 1.000000 |"))
	assert.NotContains(t, out, "Spread Analysis")
}

func TestKlinesMarkdown(t *testing.T) {
	klines := []binance.Kline{
		{OpenTime: 1704067200000, Open: dec("100"), High: dec("110"), Low: dec("95"), Close: dec("105"), Volume: dec("10")},
		{OpenTime: 1704070800000, Open: dec("105"), High: dec("120"), Low: dec("90"), Close: dec("100"), Volume: dec("12")},
	}

	out := KlinesMarkdown("BTCUSDT", "1h", klines)

	assert.Contains(t, out, "# Candlestick Data for BTCUSDT (1h interval)")
	assert.Contains(t, out, "📈 +5.00%")
	assert.Contains(t, out, "📉 -4.76%")
	assert.Contains(t, out, "**Period High**: $120.00")
	assert.Contains(t, out, "**Period Low**: $90.00")
	assert.Contains(t, out, "**Overall Change**: -4.76%")
	assert.Contains(t, out, "**Candles Shown**: 2 of 2")
}

func TestKlinesMarkdownCapsRows(t *testing.T) {
	klines := make([]binance.Kline, 80)
	for i := range klines {
		klines[i] = binance.Kline{OpenTime: int64(i) * 60000, Open: dec("1"), High: dec("1"), Low: dec("1"), Close: dec("1")}
	}

	out := KlinesMarkdown("BTCUSDT", "1m", klines)
	assert.Contains(t, out, fmt.Sprintf("**Candles Shown**: %d of 80", MaxKlineRows))
	assert.Contains(t, out, "Use start_time/end_time")
}

func TestKlinesMarkdownEmpty(t *testing.T) {
	assert.Equal(t, "No kline data found for BTCUSDT with interval 1h.", KlinesMarkdown("BTCUSDT", "1h", nil))
}

func TestTradesMarkdown(t *testing.T) {
	trades := []binance.Trade{
		{ID: 1, Price: dec("100"), Qty: dec("3"), Time: 1704067200000},
		{ID: 2, Price: dec("100"), Qty: dec("1"), Time: 1704067201000, IsBuyerMaker: true},
	}

	buy, sell := TradeVolumes(trades)
	assert.Equal(t, "3", buy.String())
	assert.Equal(t, "1", sell.String())

	out := TradesMarkdown("BTCUSDT", trades)
	assert.Contains(t, out, "🟢 Buy")
	assert.Contains(t, out, "🔴 Sell")
	assert.Contains(t, out, "**Total Trades**: 2")
	assert.Contains(t, out, "(75.0%)")
	assert.Contains(t, out, "(25.0%)")
}

func TestExchangeInfoMarkdown(t *testing.T) {
	info := &binance.ExchangeInfo{
		Timezone:   "UTC",
		ServerTime: 1704067200000,
		RateLimits: []binance.RateLimit{{RateLimitType: "REQUEST_WEIGHT", Interval: "MINUTE", IntervalNum: 1, Limit: 6000}},
		Symbols: []binance.SymbolInfo{{
			Symbol: "BTCUSDT", Status: "TRADING", BaseAsset: "BTC", QuoteAsset: "USDT",
			BaseAssetPrecision: 8, QuoteAssetPrecision: 8,
			OrderTypes: []string{"LIMIT", "MARKET"},
			Filters: []binance.Filter{
				{FilterType: "PRICE_FILTER", MinPrice: "0.01", MaxPrice: "1000000", TickSize: "0.01"},
				{FilterType: "LOT_SIZE", MinQty: "0.00001", MaxQty: "9000", StepSize: "0.00001"},
			},
		}},
	}

	detailed := ExchangeInfoMarkdown(info, 1, true)
	assert.Contains(t, detailed, "**REQUEST_WEIGHT**: 6000 per 1 MINUTE")
	assert.Contains(t, detailed, "## Trading Pairs (1 total)")
	assert.Contains(t, detailed, "**Price Filter**: min 0.01, max 1000000, tick 0.01")
	assert.Contains(t, detailed, "**Order Types**: LIMIT, MARKET")

	brief := ExchangeInfoMarkdown(info, 1, false)
	assert.Contains(t, brief, "## BTCUSDT ✅")
	assert.NotContains(t, brief, "Price Filter")
}

func TestExchangeInfoMarkdownManySymbols(t *testing.T) {
	info := &binance.ExchangeInfo{Timezone: "UTC"}
	for i := 0; i < 150; i++ {
		info.Symbols = append(info.Symbols, binance.SymbolInfo{Symbol: fmt.Sprintf("S%dUSDT", i), Status: "TRADING"})
	}

	out := ExchangeInfoMarkdown(info, 150, false)
	assert.Contains(t, out, "Too many symbols to display (150 total)")
	assert.NotContains(t, out, "## S0USDT")
}

func TestExchangeInfoMarkdownPartialView(t *testing.T) {
	info := &binance.ExchangeInfo{Timezone: "UTC", Symbols: []binance.SymbolInfo{
		{Symbol: "BTCUSDT", Status: "TRADING", BaseAsset: "BTC", QuoteAsset: "USDT"},
	}}

	out := ExchangeInfoMarkdown(info, 5, true)
	assert.Contains(t, out, "## Trading Pairs (5 total)")
	assert.Contains(t, out, "## BTCUSDT")
}

func TestPriceAndBookTickerMarkdown(t *testing.T) {
	out := PriceMarkdown([]binance.PriceTicker{{Symbol: "BTCUSDT", Price: dec("67000")}})
	assert.Contains(t, out, "- **BTCUSDT**: $67,000.00")

	book := BookTickerMarkdown([]models.BookTickerEntry{{
		BookTicker: binance.BookTicker{Symbol: "BTCUSDT", BidPrice: dec("100"), BidQty: dec("1"), AskPrice: dec("100.1"), AskQty: dec("2")},
		Spread:     dec("0.1"),
		SpreadPct:  0.1,
	}})
	assert.Contains(t, book, "## BTCUSDT")
	assert.Contains(t, book, "**Spread**: $0.1 (0.100%)")

	assert.Equal(t, "No price data found.", PriceMarkdown(nil))
	assert.Equal(t, "No order book data found.", BookTickerMarkdown(nil))
}
