package format

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"binance-mcp/internal/binance"
	"binance-mcp/internal/metrics"
	"binance-mcp/internal/models"
)

// Row caps for tables that would otherwise grow with the request limit.
const (
	MaxBookRows   = 10
	MaxKlineRows  = 50
	MaxTradeRows  = 50
	MaxSymbolRows = 50
)

// TickerMarkdown renders 24h statistics, one section per symbol.
func TickerMarkdown(tickers []binance.Ticker24h, tickerType string) string {
	if len(tickers) == 0 {
		return "No ticker data found."
	}

	var b strings.Builder
	b.WriteString("# Binance Ticker Information\n\n")

	for _, t := range tickers {
		fmt.Fprintf(&b, "## %s\n\n", t.Symbol)
		fmt.Fprintf(&b, "- **Current Price**: %s\n", Money(t.LastPrice))

		if tickerType == "FULL" {
			if t.PriceChange != nil && t.PriceChangePercent != nil {
				change := t.PriceChange.InexactFloat64()
				fmt.Fprintf(&b, "- **24h Change**: %s %s (%s)\n",
					Direction(change), Percent(t.PriceChangePercent.InexactFloat64()), Money(*t.PriceChange))
			}
			fmt.Fprintf(&b, "- **24h High**: %s\n", Money(t.HighPrice))
			fmt.Fprintf(&b, "- **24h Low**: %s\n", Money(t.LowPrice))
			fmt.Fprintf(&b, "- **24h Volume**: %s %s\n", Quantity(t.Volume, 2), BaseAsset(t.Symbol))
			fmt.Fprintf(&b, "- **24h Quote Volume**: %s\n", CompactMoney(t.QuoteVolume))
			if t.WeightedAvgPrice != nil {
				fmt.Fprintf(&b, "- **Weighted Avg Price**: %s\n", Money(*t.WeightedAvgPrice))
			}
			if t.BidPrice != nil {
				fmt.Fprintf(&b, "- **Best Bid**: %s (Qty: %s)\n", Money(*t.BidPrice), Quantity(orZero(t.BidQty), 4))
			}
			if t.AskPrice != nil {
				fmt.Fprintf(&b, "- **Best Ask**: %s (Qty: %s)\n", Money(*t.AskPrice), Quantity(orZero(t.AskQty), 4))
			}
		}

		if t.CloseTime > 0 {
			fmt.Fprintf(&b, "- **Last Updated**: %s\n", Timestamp(t.CloseTime))
		}
		b.WriteString("\n")
	}

	return b.String()
}

func orZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}

// SymbolsMarkdown renders catalog entries found by a symbol search.
func SymbolsMarkdown(symbols []models.SymbolSummary, total int) string {
	if len(symbols) == 0 {
		return "No symbols found matching your criteria.\n\n" +
			"Try a broader search: drop the quote_asset filter, use status=\"ALL\", or search a shorter term."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Found %d Trading Pairs\n\n", total)

	for _, s := range symbols {
		writeSymbolHeader(&b, s)
		b.WriteString("\n")
	}

	return b.String()
}

func writeSymbolHeader(b *strings.Builder, s models.SymbolSummary) {
	marker := "⏸️"
	if s.Status == "TRADING" {
		marker = "✅"
	}
	fmt.Fprintf(b, "## %s %s\n", s.Symbol, marker)
	fmt.Fprintf(b, "- **Base Asset**: %s\n", s.BaseAsset)
	fmt.Fprintf(b, "- **Quote Asset**: %s\n", s.QuoteAsset)
	fmt.Fprintf(b, "- **Status**: %s\n", s.Status)

	var features []string
	if s.IsSpotTradingAllowed {
		features = append(features, "Spot")
	}
	if s.IsMarginTradingAllowed {
		features = append(features, "Margin")
	}
	if s.OcoAllowed {
		features = append(features, "OCO")
	}
	if s.OtoAllowed {
		features = append(features, "OTO")
	}
	if len(features) > 0 {
		fmt.Fprintf(b, "- **Supported**: %s\n", strings.Join(features, ", "))
	}
}

// OrderBookMarkdown renders the top levels of a depth snapshot with a spread
// analysis. depth and spread may be nil for an empty or one-sided book.
func OrderBookMarkdown(symbol string, book *binance.OrderBook, depth *metrics.DepthMetrics, spread *metrics.SpreadMetrics) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Order Book for %s\n\n", symbol)
	fmt.Fprintf(&b, "**Last Update ID**: %d\n\n", book.LastUpdateID)

	b.WriteString("## Top Bids (Buy Orders)\n")
	writeLevels(&b, book.Bids)

	b.WriteString("\n## Top Asks (Sell Orders)\n")
	writeLevels(&b, book.Asks)

	if len(book.Bids) > 0 && len(book.Asks) > 0 {
		bestBid, bestAsk := book.Bids[0].Price, book.Asks[0].Price
		b.WriteString("\n## Spread Analysis\n")
		fmt.Fprintf(&b, "- **Best Bid**: %s\n", Money(bestBid))
		fmt.Fprintf(&b, "- **Best Ask**: %s\n", Money(bestAsk))
		if spread != nil {
			fmt.Fprintf(&b, "- **Spread**: %s (%.3f%%, %.2f bps)\n", Money(bestAsk.Sub(bestBid)), spread.SpreadPct, spread.SpreadBps)
			fmt.Fprintf(&b, "- **Mid Price**: %s\n", MoneyFloat(spread.MidPrice))
			fmt.Fprintf(&b, "- **Micro Price**: %s\n", MoneyFloat(spread.MicroPrice))
		}
		if depth != nil {
			fmt.Fprintf(&b, "- **Imbalance**: %+.4f (bid qty %s / ask qty %s)\n",
				depth.Imbalance,
				printer().Sprintf("%.4f", depth.TotalBidQty),
				printer().Sprintf("%.4f", depth.TotalAskQty))
			fmt.Fprintf(&b, "- **Notional**: bids %s / asks %s\n",
				MoneyFloat(depth.TotalBidNotional), MoneyFloat(depth.TotalAskNotional))
		}
	}

	fmt.Fprintf(&b, "\n*Showing top %d levels. Total bids: %d, Total asks: %d*\n",
		MaxBookRows, len(book.Bids), len(book.Asks))

	return b.String()
}

func writeLevels(b *strings.Builder, levels []binance.Level) {
	b.WriteString("| Price | Quantity | Total |\n")
	b.WriteString("|-------|----------|-------|\n")
	for i, l := range levels {
		if i == MaxBookRows {
			break
		}
		fmt.Fprintf(b, "| %s | %s | %s |\n", Money(l.Price), Quantity(l.Qty, 6), Money(l.Notional()))
	}
}

// KlinesMarkdown renders up to MaxKlineRows candles and a period summary
// computed over all candles.
func KlinesMarkdown(symbol, interval string, klines []binance.Kline) string {
	if len(klines) == 0 {
		return fmt.Sprintf("No kline data found for %s with interval %s.", symbol, interval)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Candlestick Data for %s (%s interval)\n\n", symbol, interval)
	b.WriteString("| Time | Open | High | Low | Close | Volume | Change % |\n")
	b.WriteString("|------|------|------|-----|-------|--------|----------|\n")

	for i, k := range klines {
		if i == MaxKlineRows {
			break
		}
		change := k.ChangePercent().InexactFloat64()
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s %s |\n",
			Timestamp(k.OpenTime), Money(k.Open), Money(k.High), Money(k.Low), Money(k.Close),
			Quantity(k.Volume, 2), Direction(change), SignedPercent(change))
	}

	first, last := klines[0], klines[len(klines)-1]
	high, low := first.High, first.Low
	for _, k := range klines[1:] {
		if k.High.GreaterThan(high) {
			high = k.High
		}
		if k.Low.LessThan(low) {
			low = k.Low
		}
	}

	overall := 0.0
	if !first.Close.IsZero() {
		overall = last.Close.Sub(first.Close).Div(first.Close).InexactFloat64() * 100
	}

	shown := len(klines)
	if shown > MaxKlineRows {
		shown = MaxKlineRows
	}

	b.WriteString("\n## Period Summary\n")
	fmt.Fprintf(&b, "- **First Close**: %s\n", Money(first.Close))
	fmt.Fprintf(&b, "- **Last Close**: %s\n", Money(last.Close))
	fmt.Fprintf(&b, "- **Overall Change**: %s\n", SignedPercent(overall))
	fmt.Fprintf(&b, "- **Period High**: %s\n", Money(high))
	fmt.Fprintf(&b, "- **Period Low**: %s\n", Money(low))
	fmt.Fprintf(&b, "- **Candles Shown**: %d of %d\n", shown, len(klines))

	if len(klines) > MaxKlineRows {
		fmt.Fprintf(&b, "\n*Showing first %d of %d candles. Use start_time/end_time to get specific ranges.*\n",
			MaxKlineRows, len(klines))
	}

	return b.String()
}

// TradeVolumes splits trade quantity into taker-buy and taker-sell volume.
func TradeVolumes(trades []binance.Trade) (buy, sell decimal.Decimal) {
	for _, t := range trades {
		if t.IsBuyerMaker {
			sell = sell.Add(t.Qty)
		} else {
			buy = buy.Add(t.Qty)
		}
	}
	return buy, sell
}

// TradesMarkdown renders up to MaxTradeRows trades and a buy/sell summary.
func TradesMarkdown(symbol string, trades []binance.Trade) string {
	if len(trades) == 0 {
		return fmt.Sprintf("No recent trades found for %s.", symbol)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Recent Trades for %s\n\n", symbol)
	b.WriteString("| Time | Price | Quantity | Total | Side |\n")
	b.WriteString("|------|-------|----------|-------|------|\n")

	for i, t := range trades {
		if i == MaxTradeRows {
			break
		}
		marker := "🟢"
		if t.IsBuyerMaker {
			marker = "🔴"
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s %s |\n",
			Timestamp(t.Time), Money(t.Price), Quantity(t.Qty, 6), Money(t.Price.Mul(t.Qty)), marker, t.Side())
	}

	buy, sell := TradeVolumes(trades)
	total := buy.Add(sell)

	b.WriteString("\n## Trading Summary\n")
	fmt.Fprintf(&b, "- **Total Trades**: %d\n", len(trades))
	if total.IsPositive() {
		buyPct := buy.Div(total).InexactFloat64() * 100
		fmt.Fprintf(&b, "- **Buy Volume**: %s (%.1f%%)\n", Quantity(buy, 6), buyPct)
		fmt.Fprintf(&b, "- **Sell Volume**: %s (%.1f%%)\n", Quantity(sell, 6), 100-buyPct)
	} else {
		b.WriteString("- **Buy Volume**: 0\n")
		b.WriteString("- **Sell Volume**: 0\n")
	}

	if len(trades) > MaxTradeRows {
		fmt.Fprintf(&b, "\n*Showing %d most recent of %d trades.*\n", MaxTradeRows, len(trades))
	}

	return b.String()
}

// ExchangeInfoMarkdown renders exchange rules. info may hold only the first
// symbols of a larger reply; total is the full count. When detailed is set
// (specific symbols were requested) every symbol is shown with its key filters.
func ExchangeInfoMarkdown(info *binance.ExchangeInfo, total int, detailed bool) string {
	var b strings.Builder
	b.WriteString("# Binance Exchange Information\n\n")

	b.WriteString("## General Information\n")
	fmt.Fprintf(&b, "- **Timezone**: %s\n", info.Timezone)
	fmt.Fprintf(&b, "- **Server Time**: %s\n\n", Timestamp(info.ServerTime))

	if len(info.RateLimits) > 0 {
		b.WriteString("## Rate Limits\n")
		for _, rl := range info.RateLimits {
			fmt.Fprintf(&b, "- **%s**: %d per %d %s\n", rl.RateLimitType, rl.Limit, rl.IntervalNum, rl.Interval)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "## Trading Pairs (%d total)\n\n", total)

	switch {
	case detailed:
		for _, s := range info.Symbols {
			writeSymbolDetails(&b, s)
			b.WriteString("\n")
		}
	case total > 100:
		fmt.Fprintf(&b, "*Too many symbols to display (%d total).*\n", total)
		b.WriteString("*Use 'symbols' parameter to get details for specific pairs.*\n")
		b.WriteString("\nExample: binance_get_exchange_info(symbols=['BTCUSDT', 'ETHUSDT'])\n")
	default:
		for i, s := range info.Symbols {
			if i == MaxSymbolRows {
				break
			}
			writeSymbolHeader(&b, models.SummaryFromSymbolInfo(s))
			b.WriteString("\n")
		}
		if total > MaxSymbolRows {
			fmt.Fprintf(&b, "*Showing first %d of %d symbols.*\n", MaxSymbolRows, total)
		}
	}

	return b.String()
}

func writeSymbolDetails(b *strings.Builder, s binance.SymbolInfo) {
	writeSymbolHeader(b, models.SummaryFromSymbolInfo(s))
	fmt.Fprintf(b, "- **Precision**: base %d, quote %d\n", s.BaseAssetPrecision, s.QuoteAssetPrecision)
	if len(s.OrderTypes) > 0 {
		fmt.Fprintf(b, "- **Order Types**: %s\n", strings.Join(s.OrderTypes, ", "))
	}
	if f, ok := s.Filter("PRICE_FILTER"); ok {
		fmt.Fprintf(b, "- **Price Filter**: min %s, max %s, tick %s\n", f.MinPrice, f.MaxPrice, f.TickSize)
	}
	if f, ok := s.Filter("LOT_SIZE"); ok {
		fmt.Fprintf(b, "- **Lot Size**: min %s, max %s, step %s\n", f.MinQty, f.MaxQty, f.StepSize)
	}
	if f, ok := s.Filter("NOTIONAL"); ok {
		fmt.Fprintf(b, "- **Notional**: min %s, max %s\n", f.MinNotional, f.MaxNotional)
	} else if f, ok := s.Filter("MIN_NOTIONAL"); ok {
		fmt.Fprintf(b, "- **Min Notional**: %s\n", f.MinNotional)
	}
}

// PriceMarkdown renders latest prices as a bullet list.
func PriceMarkdown(prices []binance.PriceTicker) string {
	if len(prices) == 0 {
		return "No price data found."
	}

	var b strings.Builder
	b.WriteString("# Current Prices\n\n")
	for _, p := range prices {
		fmt.Fprintf(&b, "- **%s**: %s\n", p.Symbol, Money(p.Price))
	}
	return b.String()
}

// BookTickerMarkdown renders best bid/ask per symbol with the spread.
func BookTickerMarkdown(entries []models.BookTickerEntry) string {
	if len(entries) == 0 {
		return "No order book data found."
	}

	var b strings.Builder
	b.WriteString("# Best Bid/Ask Prices\n\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "## %s\n", e.Symbol)
		fmt.Fprintf(&b, "- **Best Bid**: %s (Qty: %s)\n", Money(e.BidPrice), Quantity(e.BidQty, 6))
		fmt.Fprintf(&b, "- **Best Ask**: %s (Qty: %s)\n", Money(e.AskPrice), Quantity(e.AskQty, 6))
		fmt.Fprintf(&b, "- **Spread**: %s (%.3f%%)\n\n", Money(e.Spread), e.SpreadPct)
	}
	return b.String()
}
