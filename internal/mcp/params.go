package mcp

import (
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// Output formats.
const (
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// Ticker response types.
const (
	TickerFull = "FULL"
	TickerMini = "MINI"
)

// Symbol search statuses.
const (
	StatusTrading = "TRADING"
	StatusAll     = "ALL"
)

// Request limits.
const (
	MaxSymbols   = 100
	MaxListLimit = 1000
	DefaultLimit = 100
)

var (
	// Intervals lists every accepted kline interval.
	Intervals = []string{"1s", "1m", "3m", "5m", "15m", "30m", "1h", "2h", "4h", "6h", "8h", "12h", "1d", "3d", "1w", "1M"}

	// DepthLimits lists every accepted order book depth.
	DepthLimits = []int{5, 10, 20, 50, 100, 500, 1000, 5000}

	Formats        = []string{FormatMarkdown, FormatJSON}
	TickerTypes    = []string{TickerFull, TickerMini}
	SearchStatuses = []string{StatusTrading, StatusAll}
)

var symbolPattern = regexp.MustCompile(`^[A-Z0-9_.-]{1,20}$`)

// Params is implemented by every tool parameter struct. Validate normalises
// the values in place and fills defaults.
type Params interface {
	Validate() error
}

// DecodeParams converts schema-checked arguments into p and validates it.
func DecodeParams(args map[string]interface{}, p Params) error {
	if args == nil {
		args = map[string]interface{}{}
	}

	data, err := json.Marshal(args)
	if err != nil {
		return &ValidationError{Message: fmt.Sprintf("arguments are not serialisable: %v", err)}
	}
	if err := json.Unmarshal(data, p); err != nil {
		return &ValidationError{Message: fmt.Sprintf("arguments do not match the tool parameters: %v", err)}
	}

	return p.Validate()
}

// TickerParams are the arguments of binance_get_ticker.
type TickerParams struct {
	Symbols        []string `json:"symbols"`
	Type           string   `json:"type"`
	ResponseFormat string   `json:"response_format"`
}

func (p *TickerParams) Validate() error {
	symbols, err := normalizeSymbols("symbols", p.Symbols, true)
	if err != nil {
		return err
	}
	p.Symbols = symbols

	if p.Type, err = oneOf("type", p.Type, TickerFull, TickerTypes); err != nil {
		return err
	}

	p.ResponseFormat, err = normalizeFormat(p.ResponseFormat)
	return err
}

// SearchParams are the arguments of binance_search_symbols.
type SearchParams struct {
	BaseAsset      string `json:"base_asset"`
	QuoteAsset     string `json:"quote_asset"`
	SearchTerm     string `json:"search_term"`
	Status         string `json:"status"`
	ResponseFormat string `json:"response_format"`
}

func (p *SearchParams) Validate() error {
	p.BaseAsset = normalizeSymbol(p.BaseAsset)
	p.QuoteAsset = normalizeSymbol(p.QuoteAsset)
	p.SearchTerm = normalizeSymbol(p.SearchTerm)

	var err error
	if p.Status, err = oneOf("status", p.Status, StatusTrading, SearchStatuses); err != nil {
		return err
	}

	p.ResponseFormat, err = normalizeFormat(p.ResponseFormat)
	return err
}

// OrderBookParams are the arguments of binance_get_order_book.
type OrderBookParams struct {
	Symbol         string `json:"symbol"`
	Limit          int    `json:"limit"`
	ResponseFormat string `json:"response_format"`
}

func (p *OrderBookParams) Validate() error {
	symbol, err := requireSymbol("symbol", p.Symbol)
	if err != nil {
		return err
	}
	p.Symbol = symbol

	if p.Limit == 0 {
		p.Limit = DefaultLimit
	}
	if !slices.Contains(DepthLimits, p.Limit) {
		return &ValidationError{
			Field:   "limit",
			Message: fmt.Sprintf("limit %d is not a supported depth", p.Limit),
			Value:   p.Limit,
			Allowed: intStrings(DepthLimits),
		}
	}

	p.ResponseFormat, err = normalizeFormat(p.ResponseFormat)
	return err
}

// KlinesParams are the arguments of binance_get_klines.
type KlinesParams struct {
	Symbol         string `json:"symbol"`
	Interval       string `json:"interval"`
	Limit          int    `json:"limit"`
	StartTime      *int64 `json:"start_time"`
	EndTime        *int64 `json:"end_time"`
	ResponseFormat string `json:"response_format"`
}

func (p *KlinesParams) Validate() error {
	symbol, err := requireSymbol("symbol", p.Symbol)
	if err != nil {
		return err
	}
	p.Symbol = symbol

	// Intervals are case sensitive: 1m is a minute, 1M a month.
	p.Interval = strings.TrimSpace(p.Interval)
	if !slices.Contains(Intervals, p.Interval) {
		return &ValidationError{
			Field:   "interval",
			Message: fmt.Sprintf("unsupported interval %q", p.Interval),
			Value:   p.Interval,
			Allowed: Intervals,
		}
	}

	if p.Limit, err = listLimit(p.Limit); err != nil {
		return err
	}

	if err := nonNegative("start_time", p.StartTime); err != nil {
		return err
	}
	if err := nonNegative("end_time", p.EndTime); err != nil {
		return err
	}
	if p.StartTime != nil && p.EndTime != nil && *p.StartTime > *p.EndTime {
		return &ValidationError{
			Field:   "start_time",
			Message: fmt.Sprintf("start_time %d is after end_time %d", *p.StartTime, *p.EndTime),
			Value:   *p.StartTime,
		}
	}

	p.ResponseFormat, err = normalizeFormat(p.ResponseFormat)
	return err
}

// TradesParams are the arguments of binance_get_recent_trades.
type TradesParams struct {
	Symbol         string `json:"symbol"`
	Limit          int    `json:"limit"`
	ResponseFormat string `json:"response_format"`
}

func (p *TradesParams) Validate() error {
	symbol, err := requireSymbol("symbol", p.Symbol)
	if err != nil {
		return err
	}
	p.Symbol = symbol

	if p.Limit, err = listLimit(p.Limit); err != nil {
		return err
	}

	p.ResponseFormat, err = normalizeFormat(p.ResponseFormat)
	return err
}

// ExchangeInfoParams are the arguments of binance_get_exchange_info.
// Symbols is optional.
type ExchangeInfoParams struct {
	Symbols        []string `json:"symbols"`
	ResponseFormat string   `json:"response_format"`
}

func (p *ExchangeInfoParams) Validate() error {
	symbols, err := normalizeSymbols("symbols", p.Symbols, false)
	if err != nil {
		return err
	}
	p.Symbols = symbols

	p.ResponseFormat, err = normalizeFormat(p.ResponseFormat)
	return err
}

// SymbolsParams are the arguments of binance_get_price and
// binance_get_best_price.
type SymbolsParams struct {
	Symbols        []string `json:"symbols"`
	ResponseFormat string   `json:"response_format"`
}

func (p *SymbolsParams) Validate() error {
	symbols, err := normalizeSymbols("symbols", p.Symbols, true)
	if err != nil {
		return err
	}
	p.Symbols = symbols

	p.ResponseFormat, err = normalizeFormat(p.ResponseFormat)
	return err
}

func normalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func requireSymbol(field, s string) (string, error) {
	s = normalizeSymbol(s)
	if s == "" {
		return "", &ValidationError{Field: field, Message: "symbol is required"}
	}
	if !symbolPattern.MatchString(s) {
		return "", &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("%q is not a valid symbol (letters, digits, '-', '_' or '.', at most 20)", s),
			Value:   s,
		}
	}
	return s, nil
}

func normalizeSymbols(field string, symbols []string, required bool) ([]string, error) {
	if len(symbols) == 0 {
		if required {
			return nil, &ValidationError{Field: field, Message: "at least one symbol is required"}
		}
		return nil, nil
	}
	if len(symbols) > MaxSymbols {
		return nil, &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("at most %d symbols per request, got %d", MaxSymbols, len(symbols)),
			Value:   len(symbols),
		}
	}

	out := make([]string, len(symbols))
	for i, s := range symbols {
		n, err := requireSymbol(fmt.Sprintf("%s/%d", field, i), s)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func listLimit(limit int) (int, error) {
	if limit == 0 {
		return DefaultLimit, nil
	}
	if limit < 1 || limit > MaxListLimit {
		return 0, &ValidationError{
			Field:   "limit",
			Message: fmt.Sprintf("limit must be between 1 and %d, got %d", MaxListLimit, limit),
			Value:   limit,
		}
	}
	return limit, nil
}

func nonNegative(field string, v *int64) error {
	if v != nil && *v < 0 {
		return &ValidationError{Field: field, Message: "must be a non-negative millisecond timestamp", Value: *v}
	}
	return nil
}

func oneOf(field, value, def string, allowed []string) (string, error) {
	value = strings.ToUpper(strings.TrimSpace(value))
	if value == "" {
		return def, nil
	}
	if !slices.Contains(allowed, value) {
		return "", &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("unsupported value %q", value),
			Value:   value,
			Allowed: allowed,
		}
	}
	return value, nil
}

func normalizeFormat(format string) (string, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		return FormatMarkdown, nil
	}
	if !slices.Contains(Formats, format) {
		return "", &ValidationError{
			Field:   "response_format",
			Message: fmt.Sprintf("unsupported format %q", format),
			Value:   format,
			Allowed: Formats,
		}
	}
	return format, nil
}

func intStrings(list []int) []string {
	out := make([]string, len(list))
	for i, n := range list {
		out[i] = strconv.Itoa(n)
	}
	return out
}
