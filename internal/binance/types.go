package binance

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Ticker24h is a rolling 24h statistics record from /api/v3/ticker/24hr.
// FULL-only fields are pointers so that MINI responses re-encode without them.
type Ticker24h struct {
	Symbol      string          `json:"symbol"`
	OpenPrice   decimal.Decimal `json:"openPrice"`
	HighPrice   decimal.Decimal `json:"highPrice"`
	LowPrice    decimal.Decimal `json:"lowPrice"`
	LastPrice   decimal.Decimal `json:"lastPrice"`
	Volume      decimal.Decimal `json:"volume"`
	QuoteVolume decimal.Decimal `json:"quoteVolume"`
	OpenTime    int64           `json:"openTime"`
	CloseTime   int64           `json:"closeTime"`
	FirstID     int64           `json:"firstId"`
	LastID      int64           `json:"lastId"`
	Count       int64           `json:"count"`

	// FULL only
	PriceChange        *decimal.Decimal `json:"priceChange,omitempty"`
	PriceChangePercent *decimal.Decimal `json:"priceChangePercent,omitempty"`
	WeightedAvgPrice   *decimal.Decimal `json:"weightedAvgPrice,omitempty"`
	PrevClosePrice     *decimal.Decimal `json:"prevClosePrice,omitempty"`
	LastQty            *decimal.Decimal `json:"lastQty,omitempty"`
	BidPrice           *decimal.Decimal `json:"bidPrice,omitempty"`
	BidQty             *decimal.Decimal `json:"bidQty,omitempty"`
	AskPrice           *decimal.Decimal `json:"askPrice,omitempty"`
	AskQty             *decimal.Decimal `json:"askQty,omitempty"`
}

// PriceTicker is a latest-price record from /api/v3/ticker/price.
type PriceTicker struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
}

// BookTicker is a top-of-book record from /api/v3/ticker/bookTicker.
type BookTicker struct {
	Symbol   string          `json:"symbol"`
	BidPrice decimal.Decimal `json:"bidPrice"`
	BidQty   decimal.Decimal `json:"bidQty"`
	AskPrice decimal.Decimal `json:"askPrice"`
	AskQty   decimal.Decimal `json:"askQty"`
}

// Level is one order book price level, encoded upstream as ["price","qty"].
type Level struct {
	Price decimal.Decimal
	Qty   decimal.Decimal
}

// UnmarshalJSON decodes the two-element array form.
func (l *Level) UnmarshalJSON(data []byte) error {
	var raw []decimal.Decimal
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("order book level: %w", err)
	}
	if len(raw) < 2 {
		return fmt.Errorf("order book level: expected [price, qty], got %d elements", len(raw))
	}
	l.Price, l.Qty = raw[0], raw[1]
	return nil
}

// MarshalJSON encodes the level back to the upstream array form.
func (l Level) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{l.Price.String(), l.Qty.String()})
}

// Notional returns price × quantity.
func (l Level) Notional() decimal.Decimal {
	return l.Price.Mul(l.Qty)
}

// OrderBook is a depth snapshot from /api/v3/depth.
type OrderBook struct {
	LastUpdateID int64   `json:"lastUpdateId"`
	Bids         []Level `json:"bids"`
	Asks         []Level `json:"asks"`
}

// Kline is one candlestick from /api/v3/klines. Upstream sends it as a
// positional array; the struct tags describe the object form used on output.
type Kline struct {
	OpenTime            int64           `json:"openTime"`
	Open                decimal.Decimal `json:"open"`
	High                decimal.Decimal `json:"high"`
	Low                 decimal.Decimal `json:"low"`
	Close               decimal.Decimal `json:"close"`
	Volume              decimal.Decimal `json:"volume"`
	CloseTime           int64           `json:"closeTime"`
	QuoteVolume         decimal.Decimal `json:"quoteVolume"`
	Trades              int64           `json:"trades"`
	TakerBuyBaseVolume  decimal.Decimal `json:"takerBuyBaseVolume"`
	TakerBuyQuoteVolume decimal.Decimal `json:"takerBuyQuoteVolume"`
}

// UnmarshalJSON decodes the positional array form
// [openTime, open, high, low, close, volume, closeTime, quoteVolume, trades,
// takerBuyBase, takerBuyQuote, ignore].
func (k *Kline) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("kline: %w", err)
	}
	if len(raw) < 11 {
		return fmt.Errorf("kline: expected at least 11 elements, got %d", len(raw))
	}

	targets := []interface{}{
		&k.OpenTime, &k.Open, &k.High, &k.Low, &k.Close, &k.Volume,
		&k.CloseTime, &k.QuoteVolume, &k.Trades, &k.TakerBuyBaseVolume, &k.TakerBuyQuoteVolume,
	}
	for i, target := range targets {
		if err := json.Unmarshal(raw[i], target); err != nil {
			return fmt.Errorf("kline field %d: %w", i, err)
		}
	}
	return nil
}

// ChangePercent returns (close-open)/open × 100, or zero for a zero open.
func (k Kline) ChangePercent() decimal.Decimal {
	if k.Open.IsZero() {
		return decimal.Zero
	}
	return k.Close.Sub(k.Open).Div(k.Open).Mul(decimal.NewFromInt(100))
}

// Trade is one executed trade from /api/v3/trades.
type Trade struct {
	ID           int64           `json:"id"`
	Price        decimal.Decimal `json:"price"`
	Qty          decimal.Decimal `json:"qty"`
	QuoteQty     decimal.Decimal `json:"quoteQty"`
	Time         int64           `json:"time"`
	IsBuyerMaker bool            `json:"isBuyerMaker"`
	IsBestMatch  bool            `json:"isBestMatch"`
}

// Side returns the taker side: a buyer-maker trade was a taker sell.
func (t Trade) Side() string {
	if t.IsBuyerMaker {
		return "Sell"
	}
	return "Buy"
}

// RateLimit describes one exchange rate limit rule.
type RateLimit struct {
	RateLimitType string `json:"rateLimitType"`
	Interval      string `json:"interval"`
	IntervalNum   int    `json:"intervalNum"`
	Limit         int    `json:"limit"`
}

// Filter is a symbol trading rule. Only the commonly used fields are typed.
type Filter struct {
	FilterType       string `json:"filterType"`
	MinPrice         string `json:"minPrice,omitempty"`
	MaxPrice         string `json:"maxPrice,omitempty"`
	TickSize         string `json:"tickSize,omitempty"`
	MinQty           string `json:"minQty,omitempty"`
	MaxQty           string `json:"maxQty,omitempty"`
	StepSize         string `json:"stepSize,omitempty"`
	MinNotional      string `json:"minNotional,omitempty"`
	MaxNotional      string `json:"maxNotional,omitempty"`
	MaxNumOrders     int    `json:"maxNumOrders,omitempty"`
	MaxNumAlgoOrders int    `json:"maxNumAlgoOrders,omitempty"`
	Limit            int    `json:"limit,omitempty"`
}

// SymbolInfo is one trading pair entry of /api/v3/exchangeInfo.
type SymbolInfo struct {
	Symbol                 string   `json:"symbol"`
	Status                 string   `json:"status"`
	BaseAsset              string   `json:"baseAsset"`
	BaseAssetPrecision     int      `json:"baseAssetPrecision"`
	QuoteAsset             string   `json:"quoteAsset"`
	QuoteAssetPrecision    int      `json:"quoteAssetPrecision"`
	OrderTypes             []string `json:"orderTypes,omitempty"`
	IcebergAllowed         bool     `json:"icebergAllowed"`
	OcoAllowed             bool     `json:"ocoAllowed"`
	OtoAllowed             bool     `json:"otoAllowed"`
	IsSpotTradingAllowed   bool     `json:"isSpotTradingAllowed"`
	IsMarginTradingAllowed bool     `json:"isMarginTradingAllowed"`
	Filters                []Filter `json:"filters,omitempty"`
	Permissions            []string `json:"permissions,omitempty"`
}

// Filter returns the filter of the given type, if present.
func (s SymbolInfo) Filter(filterType string) (Filter, bool) {
	for _, f := range s.Filters {
		if f.FilterType == filterType {
			return f, true
		}
	}
	return Filter{}, false
}

// ExchangeInfo is the /api/v3/exchangeInfo response.
type ExchangeInfo struct {
	Timezone   string       `json:"timezone"`
	ServerTime int64        `json:"serverTime"`
	RateLimits []RateLimit  `json:"rateLimits"`
	Symbols    []SymbolInfo `json:"symbols"`
}
