package models

import (
	"github.com/shopspring/decimal"

	"binance-mcp/internal/binance"
)

// TruncationInfo is embedded in every list payload and set only when the
// character limit forced items to be dropped.
type TruncationInfo struct {
	Truncated  bool   `json:"truncated,omitempty"`
	TotalCount int    `json:"total_count,omitempty"`
	Message    string `json:"message,omitempty"`
}

// TickerPayload is the JSON output of binance_get_ticker.
type TickerPayload struct {
	Data  []binance.Ticker24h `json:"data"`
	Count int                 `json:"count"`
	Type  string              `json:"type"`
	TruncationInfo
}

// SymbolSummary is the projection of an exchangeInfo symbol kept in the
// symbol catalog.
type SymbolSummary struct {
	Symbol                 string `json:"symbol"`
	Status                 string `json:"status"`
	BaseAsset              string `json:"baseAsset"`
	QuoteAsset             string `json:"quoteAsset"`
	IsSpotTradingAllowed   bool   `json:"isSpotTradingAllowed"`
	IsMarginTradingAllowed bool   `json:"isMarginTradingAllowed"`
	OcoAllowed             bool   `json:"ocoAllowed"`
	OtoAllowed             bool   `json:"otoAllowed"`
}

// SummaryFromSymbolInfo projects a full exchangeInfo entry.
func SummaryFromSymbolInfo(s binance.SymbolInfo) SymbolSummary {
	return SymbolSummary{
		Symbol:                 s.Symbol,
		Status:                 s.Status,
		BaseAsset:              s.BaseAsset,
		QuoteAsset:             s.QuoteAsset,
		IsSpotTradingAllowed:   s.IsSpotTradingAllowed,
		IsMarginTradingAllowed: s.IsMarginTradingAllowed,
		OcoAllowed:             s.OcoAllowed,
		OtoAllowed:             s.OtoAllowed,
	}
}

// SearchFilters echoes the filters of a symbol search.
type SearchFilters struct {
	BaseAsset  *string `json:"base_asset"`
	QuoteAsset *string `json:"quote_asset"`
	SearchTerm *string `json:"search_term"`
	Status     string  `json:"status"`
}

// SearchPayload is the JSON output of binance_search_symbols.
type SearchPayload struct {
	Symbols []SymbolSummary `json:"symbols"`
	Count   int             `json:"count"`
	Filters SearchFilters   `json:"filters"`
	TruncationInfo
}

// BookSummary holds derived top-of-book and depth figures.
type BookSummary struct {
	BestBid          decimal.Decimal `json:"bestBid"`
	BestAsk          decimal.Decimal `json:"bestAsk"`
	Spread           float64         `json:"spread"`
	SpreadPct        float64         `json:"spreadPct"`
	SpreadBps        float64         `json:"spreadBps"`
	MidPrice         float64         `json:"midPrice"`
	MicroPrice       float64         `json:"microPrice"`
	Imbalance        float64         `json:"imbalance"`
	TotalBidQty      float64         `json:"totalBidQty"`
	TotalAskQty      float64         `json:"totalAskQty"`
	TotalBidNotional float64         `json:"totalBidNotional"`
	TotalAskNotional float64         `json:"totalAskNotional"`
}

// OrderBookPayload is the JSON output of binance_get_order_book.
type OrderBookPayload struct {
	Symbol       string          `json:"symbol"`
	LastUpdateID int64           `json:"lastUpdateId"`
	Bids         []binance.Level `json:"bids"`
	Asks         []binance.Level `json:"asks"`
	BidLevels    int             `json:"bidLevels"`
	AskLevels    int             `json:"askLevels"`
	Summary      *BookSummary    `json:"summary,omitempty"`
	TruncationInfo
}

// KlinesPayload is the JSON output of binance_get_klines.
type KlinesPayload struct {
	Symbol   string          `json:"symbol"`
	Interval string          `json:"interval"`
	Klines   []binance.Kline `json:"klines"`
	Count    int             `json:"count"`
	TruncationInfo
}

// TradesPayload is the JSON output of binance_get_recent_trades.
type TradesPayload struct {
	Symbol     string          `json:"symbol"`
	Trades     []binance.Trade `json:"trades"`
	Count      int             `json:"count"`
	BuyVolume  decimal.Decimal `json:"buyVolume"`
	SellVolume decimal.Decimal `json:"sellVolume"`
	TruncationInfo
}

// ExchangeInfoPayload is the JSON output of binance_get_exchange_info.
type ExchangeInfoPayload struct {
	Timezone   string               `json:"timezone"`
	ServerTime int64                `json:"serverTime"`
	RateLimits []binance.RateLimit  `json:"rateLimits"`
	Symbols    []binance.SymbolInfo `json:"symbols"`
	Count      int                  `json:"count"`
	TruncationInfo
}

// PricePayload is the JSON output of binance_get_price.
type PricePayload struct {
	Prices []binance.PriceTicker `json:"prices"`
	Count  int                   `json:"count"`
	TruncationInfo
}

// BookTickerEntry is a top-of-book record with its spread.
type BookTickerEntry struct {
	binance.BookTicker
	Spread    decimal.Decimal `json:"spread"`
	SpreadPct float64         `json:"spreadPct"`
}

// BookTickerPayload is the JSON output of binance_get_best_price.
type BookTickerPayload struct {
	Tickers []BookTickerEntry `json:"tickers"`
	Count   int               `json:"count"`
	TruncationInfo
}

// ToolErrorPayload is the JSON form of a failed tool call.
type ToolErrorPayload struct {
	Error          string   `json:"error"`
	Message        string   `json:"message"`
	Field          string   `json:"field,omitempty"`
	Allowed        []string `json:"allowed,omitempty"`
	UnknownSymbols []string `json:"unknown_symbols,omitempty"`
	Suggestions    []string `json:"suggestions,omitempty"`
	StatusCode     int      `json:"status_code,omitempty"`
	Code           int      `json:"code,omitempty"`
	Hint           string   `json:"hint,omitempty"`
}

// ErrorResponse is the standard error response format of the HTTP handlers.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
