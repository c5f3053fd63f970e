package mcp

import (
	"context"
	"log/slog"

	"binance-mcp/internal/binance"
	"binance-mcp/internal/catalog"
	"binance-mcp/internal/format"
	"binance-mcp/internal/metrics"
	"binance-mcp/internal/models"
)

// MaxSuggestions caps the alternatives offered per unknown symbol.
const MaxSuggestions = 5

// MarketData is the upstream API used by the tools.
type MarketData interface {
	Ticker24h(ctx context.Context, symbols []string, tickerType string) ([]binance.Ticker24h, error)
	Prices(ctx context.Context, symbols []string) ([]binance.PriceTicker, error)
	BookTickers(ctx context.Context, symbols []string) ([]binance.BookTicker, error)
	OrderBook(ctx context.Context, symbol string, limit int) (*binance.OrderBook, error)
	Klines(ctx context.Context, q binance.KlinesQuery) ([]binance.Kline, error)
	RecentTrades(ctx context.Context, symbol string, limit int) ([]binance.Trade, error)
	ExchangeInfo(ctx context.Context, symbols []string) (*binance.ExchangeInfo, error)
}

// SymbolCatalog serves symbol search and suggestions.
type SymbolCatalog interface {
	Search(ctx context.Context, f catalog.Filters) ([]models.SymbolSummary, error)
	Unknown(ctx context.Context, requested []string) ([]string, error)
	Suggest(ctx context.Context, symbol string, n int) ([]string, error)
}

// ToolExecutor runs validated tool calls against Binance and renders the
// result. Each method returns the rendered text and whether it was
// truncated.
type ToolExecutor struct {
	market  MarketData
	catalog SymbolCatalog
	guard   format.Guard
	logger  *slog.Logger
}

// NewToolExecutor creates an executor that truncates output at
// characterLimit characters.
func NewToolExecutor(market MarketData, symbols SymbolCatalog, characterLimit int, logger *slog.Logger) *ToolExecutor {
	return &ToolExecutor{
		market:  market,
		catalog: symbols,
		guard:   format.NewGuard(characterLimit),
		logger:  logger.With("component", "tool_executor"),
	}
}

// GetTicker runs binance_get_ticker.
func (te *ToolExecutor) GetTicker(ctx context.Context, p *TickerParams) (string, bool, error) {
	tickers, err := te.market.Ticker24h(ctx, p.Symbols, p.Type)
	if err != nil {
		return "", false, te.upstreamError(ctx, err, p.Symbols)
	}

	if p.ResponseFormat == FormatJSON {
		return te.guard.JSON(len(tickers), func(n int, info models.TruncationInfo) interface{} {
			return models.TickerPayload{Data: tickers[:n], Count: n, Type: p.Type, TruncationInfo: info}
		})
	}

	out, truncated := te.guard.Items(len(tickers), func(n int) string {
		return format.TickerMarkdown(tickers[:n], p.Type)
	})
	return out, truncated, nil
}

// SearchSymbols runs binance_search_symbols.
func (te *ToolExecutor) SearchSymbols(ctx context.Context, p *SearchParams) (string, bool, error) {
	matches, err := te.catalog.Search(ctx, catalog.Filters{
		BaseAsset:  p.BaseAsset,
		QuoteAsset: p.QuoteAsset,
		SearchTerm: p.SearchTerm,
		Status:     p.Status,
	})
	if err != nil {
		return "", false, te.upstreamError(ctx, err, nil)
	}

	if p.ResponseFormat == FormatJSON {
		filters := models.SearchFilters{
			BaseAsset:  optional(p.BaseAsset),
			QuoteAsset: optional(p.QuoteAsset),
			SearchTerm: optional(p.SearchTerm),
			Status:     p.Status,
		}
		return te.guard.JSON(len(matches), func(n int, info models.TruncationInfo) interface{} {
			return models.SearchPayload{Symbols: matches[:n], Count: n, Filters: filters, TruncationInfo: info}
		})
	}

	out, truncated := te.guard.Items(len(matches), func(n int) string {
		return format.SymbolsMarkdown(matches[:n], len(matches))
	})
	return out, truncated, nil
}

// GetOrderBook runs binance_get_order_book.
func (te *ToolExecutor) GetOrderBook(ctx context.Context, p *OrderBookParams) (string, bool, error) {
	book, err := te.market.OrderBook(ctx, p.Symbol, p.Limit)
	if err != nil {
		return "", false, te.upstreamError(ctx, err, []string{p.Symbol})
	}

	depth, spread := te.analyseBook(p.Symbol, book)

	if p.ResponseFormat == FormatJSON {
		summary := bookSummary(book, depth, spread)
		total := len(book.Bids)
		if len(book.Asks) > total {
			total = len(book.Asks)
		}
		return te.guard.JSON(total, func(n int, info models.TruncationInfo) interface{} {
			return models.OrderBookPayload{
				Symbol:         p.Symbol,
				LastUpdateID:   book.LastUpdateID,
				Bids:           head(book.Bids, n),
				Asks:           head(book.Asks, n),
				BidLevels:      len(book.Bids),
				AskLevels:      len(book.Asks),
				Summary:        summary,
				TruncationInfo: info,
			}
		})
	}

	out, truncated := te.guard.Text(format.OrderBookMarkdown(p.Symbol, book, depth, spread))
	return out, truncated, nil
}

// analyseBook computes depth and spread figures. Either result is nil when
// the book is empty, one-sided, crossed or out of price order.
func (te *ToolExecutor) analyseBook(symbol string, book *binance.OrderBook) (*metrics.DepthMetrics, *metrics.SpreadMetrics) {
	if len(book.Bids) == 0 || len(book.Asks) == 0 {
		return nil, nil
	}

	depth, err := metrics.CalculateDepth(book.Bids, book.Asks, format.MaxBookRows)
	if err == nil {
		err = metrics.DepthInvariant(depth)
	}
	if err != nil {
		te.logger.Debug("depth_metrics_skipped", "symbol", symbol, "error", err)
		depth = nil
	}

	bidPrice, askPrice := book.Bids[0].Price.InexactFloat64(), book.Asks[0].Price.InexactFloat64()
	spread, err := metrics.CalculateSpread(
		bidPrice, book.Bids[0].Qty.InexactFloat64(),
		askPrice, book.Asks[0].Qty.InexactFloat64(),
	)
	if err == nil {
		err = metrics.SpreadInvariant(spread, bidPrice, askPrice)
	}
	if err != nil {
		te.logger.Debug("spread_metrics_skipped", "symbol", symbol, "error", err)
		spread = nil
	}

	return depth, spread
}

func bookSummary(book *binance.OrderBook, depth *metrics.DepthMetrics, spread *metrics.SpreadMetrics) *models.BookSummary {
	if spread == nil {
		return nil
	}

	s := &models.BookSummary{
		BestBid:    book.Bids[0].Price,
		BestAsk:    book.Asks[0].Price,
		Spread:     spread.Spread,
		SpreadPct:  spread.SpreadPct,
		SpreadBps:  spread.SpreadBps,
		MidPrice:   spread.MidPrice,
		MicroPrice: spread.MicroPrice,
	}
	if depth != nil {
		s.Imbalance = depth.Imbalance
		s.TotalBidQty = depth.TotalBidQty
		s.TotalAskQty = depth.TotalAskQty
		s.TotalBidNotional = depth.TotalBidNotional
		s.TotalAskNotional = depth.TotalAskNotional
	}
	return s
}

// GetKlines runs binance_get_klines.
func (te *ToolExecutor) GetKlines(ctx context.Context, p *KlinesParams) (string, bool, error) {
	klines, err := te.market.Klines(ctx, binance.KlinesQuery{
		Symbol:    p.Symbol,
		Interval:  p.Interval,
		Limit:     p.Limit,
		StartTime: p.StartTime,
		EndTime:   p.EndTime,
	})
	if err != nil {
		return "", false, te.upstreamError(ctx, err, []string{p.Symbol})
	}

	if p.ResponseFormat == FormatJSON {
		return te.guard.JSON(len(klines), func(n int, info models.TruncationInfo) interface{} {
			return models.KlinesPayload{Symbol: p.Symbol, Interval: p.Interval, Klines: klines[:n], Count: n, TruncationInfo: info}
		})
	}

	out, truncated := te.guard.Text(format.KlinesMarkdown(p.Symbol, p.Interval, klines))
	return out, truncated, nil
}

// GetRecentTrades runs binance_get_recent_trades.
func (te *ToolExecutor) GetRecentTrades(ctx context.Context, p *TradesParams) (string, bool, error) {
	trades, err := te.market.RecentTrades(ctx, p.Symbol, p.Limit)
	if err != nil {
		return "", false, te.upstreamError(ctx, err, []string{p.Symbol})
	}

	if p.ResponseFormat == FormatJSON {
		buy, sell := format.TradeVolumes(trades)
		return te.guard.JSON(len(trades), func(n int, info models.TruncationInfo) interface{} {
			return models.TradesPayload{
				Symbol:         p.Symbol,
				Trades:         trades[:n],
				Count:          n,
				BuyVolume:      buy,
				SellVolume:     sell,
				TruncationInfo: info,
			}
		})
	}

	out, truncated := te.guard.Text(format.TradesMarkdown(p.Symbol, trades))
	return out, truncated, nil
}

// GetExchangeInfo runs binance_get_exchange_info.
func (te *ToolExecutor) GetExchangeInfo(ctx context.Context, p *ExchangeInfoParams) (string, bool, error) {
	info, err := te.market.ExchangeInfo(ctx, p.Symbols)
	if err != nil {
		return "", false, te.upstreamError(ctx, err, p.Symbols)
	}

	if p.ResponseFormat == FormatJSON {
		return te.guard.JSON(len(info.Symbols), func(n int, trunc models.TruncationInfo) interface{} {
			return models.ExchangeInfoPayload{
				Timezone:       info.Timezone,
				ServerTime:     info.ServerTime,
				RateLimits:     info.RateLimits,
				Symbols:        info.Symbols[:n],
				Count:          n,
				TruncationInfo: trunc,
			}
		})
	}

	detailed := len(p.Symbols) > 0
	out, truncated := te.guard.Items(len(info.Symbols), func(n int) string {
		view := *info
		view.Symbols = info.Symbols[:n]
		return format.ExchangeInfoMarkdown(&view, len(info.Symbols), detailed)
	})
	return out, truncated, nil
}

// GetPrice runs binance_get_price.
func (te *ToolExecutor) GetPrice(ctx context.Context, p *SymbolsParams) (string, bool, error) {
	prices, err := te.market.Prices(ctx, p.Symbols)
	if err != nil {
		return "", false, te.upstreamError(ctx, err, p.Symbols)
	}

	if p.ResponseFormat == FormatJSON {
		return te.guard.JSON(len(prices), func(n int, info models.TruncationInfo) interface{} {
			return models.PricePayload{Prices: prices[:n], Count: n, TruncationInfo: info}
		})
	}

	out, truncated := te.guard.Items(len(prices), func(n int) string {
		return format.PriceMarkdown(prices[:n])
	})
	return out, truncated, nil
}

// GetBestPrice runs binance_get_best_price.
func (te *ToolExecutor) GetBestPrice(ctx context.Context, p *SymbolsParams) (string, bool, error) {
	tickers, err := te.market.BookTickers(ctx, p.Symbols)
	if err != nil {
		return "", false, te.upstreamError(ctx, err, p.Symbols)
	}

	entries := make([]models.BookTickerEntry, len(tickers))
	for i, t := range tickers {
		entries[i] = bookTickerEntry(t)
	}

	if p.ResponseFormat == FormatJSON {
		return te.guard.JSON(len(entries), func(n int, info models.TruncationInfo) interface{} {
			return models.BookTickerPayload{Tickers: entries[:n], Count: n, TruncationInfo: info}
		})
	}

	out, truncated := te.guard.Items(len(entries), func(n int) string {
		return format.BookTickerMarkdown(entries[:n])
	})
	return out, truncated, nil
}

func bookTickerEntry(t binance.BookTicker) models.BookTickerEntry {
	entry := models.BookTickerEntry{BookTicker: t, Spread: t.AskPrice.Sub(t.BidPrice)}
	spread, err := metrics.CalculateSpread(
		t.BidPrice.InexactFloat64(), t.BidQty.InexactFloat64(),
		t.AskPrice.InexactFloat64(), t.AskQty.InexactFloat64(),
	)
	if err == nil {
		entry.SpreadPct = spread.SpreadPct
	}
	return entry
}

// upstreamError maps a failed upstream call to a tool error. An unknown
// symbol costs one catalog lookup to find the offending symbols and
// suggestions; a catalog failure only drops the suggestions.
func (te *ToolExecutor) upstreamError(ctx context.Context, err error, requested []string) error {
	apiErr, ok := binance.AsAPIError(err)
	if !ok {
		return Upstream(err)
	}

	switch apiErr.Kind {
	case binance.KindRateLimited:
		return RateLimited(apiErr)
	case binance.KindInvalidSymbol:
		if len(requested) == 0 {
			return Upstream(err)
		}
		unknown, suggestions := te.suggest(ctx, requested)
		return UnknownSymbol(apiErr, unknown, suggestions)
	default:
		return Upstream(err)
	}
}

func (te *ToolExecutor) suggest(ctx context.Context, requested []string) ([]string, []string) {
	unknown, err := te.catalog.Unknown(ctx, requested)
	if err != nil {
		te.logger.Warn("catalog_unavailable", "error", err)
		return requested, nil
	}
	if len(unknown) == 0 {
		// Listed but rejected upstream; report what was asked for.
		unknown = requested
	}

	seen := make(map[string]bool)
	var suggestions []string
	for _, symbol := range unknown {
		matches, err := te.catalog.Suggest(ctx, symbol, MaxSuggestions)
		if err != nil {
			te.logger.Warn("catalog_unavailable", "error", err)
			break
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				suggestions = append(suggestions, m)
			}
		}
	}
	return unknown, suggestions
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func head[T any](s []T, n int) []T {
	if n < len(s) {
		return s[:n]
	}
	return s
}
