package mcp

// Tool names.
const (
	ToolGetTicker       = "binance_get_ticker"
	ToolSearchSymbols   = "binance_search_symbols"
	ToolGetOrderBook    = "binance_get_order_book"
	ToolGetKlines       = "binance_get_klines"
	ToolGetRecentTrades = "binance_get_recent_trades"
	ToolGetExchangeInfo = "binance_get_exchange_info"
	ToolGetPrice        = "binance_get_price"
	ToolGetBestPrice    = "binance_get_best_price"
)

func responseFormatProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"enum":        []string{FormatMarkdown, FormatJSON},
		"default":     FormatMarkdown,
		"description": "Output format: 'markdown' for human-readable text or 'json' for structured data",
	}
}

func symbolProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"minLength":   1,
		"maxLength":   20,
		"description": "Trading pair symbol (e.g., 'BTCUSDT', 'ETHUSDT')",
	}
}

func symbolsProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "array",
		"items":       map[string]interface{}{"type": "string", "minLength": 1, "maxLength": 20},
		"minItems":    1,
		"maxItems":    MaxSymbols,
		"description": "Trading pair symbols (e.g., ['BTCUSDT', 'ETHUSDT'])",
	}
}

func limitProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"minimum":     1,
		"maximum":     MaxListLimit,
		"default":     DefaultLimit,
		"description": description,
	}
}

func objectSchema(properties map[string]interface{}, required ...string) map[string]interface{} {
	schema := map[string]interface{}{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func readOnly(title string) *ToolAnnotations {
	return &ToolAnnotations{
		Title:          title,
		ReadOnlyHint:   true,
		IdempotentHint: true,
		OpenWorldHint:  true,
	}
}

// TickerTool returns the binance_get_ticker definition.
func TickerTool() Tool {
	return Tool{
		Name: ToolGetTicker,
		Description: "Get 24-hour rolling window price change statistics for one or more trading pairs. " +
			"Returns last price, price change, high/low, volume and best bid/ask. " +
			"Use type 'MINI' for a lighter response without bid/ask and change fields.",
		InputSchema: objectSchema(map[string]interface{}{
			"symbols": symbolsProperty(),
			"type": map[string]interface{}{
				"type":        "string",
				"enum":        TickerTypes,
				"default":     TickerFull,
				"description": "FULL for complete statistics, MINI for essential fields only",
			},
			"response_format": responseFormatProperty(),
		}, "symbols"),
		Annotations: readOnly("Binance 24h Ticker"),
	}
}

// SearchSymbolsTool returns the binance_search_symbols definition.
func SearchSymbolsTool() Tool {
	return Tool{
		Name: ToolSearchSymbols,
		Description: "Search and discover trading pairs on Binance. Filter by base asset, quote asset " +
			"or a keyword contained in the symbol name. Use this to find valid symbols for the other tools.",
		InputSchema: objectSchema(map[string]interface{}{
			"base_asset": map[string]interface{}{
				"type":        "string",
				"maxLength":   20,
				"description": "Filter by base currency (e.g., 'BTC', 'ETH')",
			},
			"quote_asset": map[string]interface{}{
				"type":        "string",
				"maxLength":   20,
				"description": "Filter by quote currency (e.g., 'USDT', 'FDUSD')",
			},
			"search_term": map[string]interface{}{
				"type":        "string",
				"maxLength":   20,
				"description": "Keyword contained in the symbol name (e.g., 'DOGE')",
			},
			"status": map[string]interface{}{
				"type":        "string",
				"enum":        SearchStatuses,
				"default":     StatusTrading,
				"description": "TRADING for active pairs only, ALL to include halted pairs",
			},
			"response_format": responseFormatProperty(),
		}),
		Annotations: readOnly("Binance Symbol Search"),
	}
}

// OrderBookTool returns the binance_get_order_book definition.
func OrderBookTool() Tool {
	return Tool{
		Name: ToolGetOrderBook,
		Description: "Get the current order book (bids and asks) for a trading pair, with spread, " +
			"mid price, micro price and bid/ask imbalance.",
		InputSchema: objectSchema(map[string]interface{}{
			"symbol": symbolProperty(),
			"limit": map[string]interface{}{
				"type":        "integer",
				"enum":        DepthLimits,
				"default":     DefaultLimit,
				"description": "Number of price levels per side",
			},
			"response_format": responseFormatProperty(),
		}, "symbol"),
		Annotations: readOnly("Binance Order Book"),
	}
}

// KlinesTool returns the binance_get_klines definition.
func KlinesTool() Tool {
	return Tool{
		Name: ToolGetKlines,
		Description: "Get candlestick (OHLCV) data for a trading pair. Supports intervals from 1 second " +
			"to 1 month and an optional time range in milliseconds since epoch.",
		InputSchema: objectSchema(map[string]interface{}{
			"symbol": symbolProperty(),
			"interval": map[string]interface{}{
				"type":        "string",
				"enum":        Intervals,
				"description": "Candle interval",
			},
			"limit": limitProperty("Number of candles to return (1-1000)"),
			"start_time": map[string]interface{}{
				"type":        "integer",
				"minimum":     0,
				"description": "Start time in milliseconds since epoch",
			},
			"end_time": map[string]interface{}{
				"type":        "integer",
				"minimum":     0,
				"description": "End time in milliseconds since epoch",
			},
			"response_format": responseFormatProperty(),
		}, "symbol", "interval"),
		Annotations: readOnly("Binance Candlesticks"),
	}
}

// RecentTradesTool returns the binance_get_recent_trades definition.
func RecentTradesTool() Tool {
	return Tool{
		Name:        ToolGetRecentTrades,
		Description: "Get the most recent trades for a trading pair with a buy/sell volume breakdown.",
		InputSchema: objectSchema(map[string]interface{}{
			"symbol":          symbolProperty(),
			"limit":           limitProperty("Number of trades to return (1-1000)"),
			"response_format": responseFormatProperty(),
		}, "symbol"),
		Annotations: readOnly("Binance Recent Trades"),
	}
}

// ExchangeInfoTool returns the binance_get_exchange_info definition.
func ExchangeInfoTool() Tool {
	return Tool{
		Name: ToolGetExchangeInfo,
		Description: "Get exchange trading rules, rate limits and symbol information. Pass symbols to get " +
			"detailed filters (price, lot size, notional) for specific pairs.",
		InputSchema: objectSchema(map[string]interface{}{
			"symbols":         symbolsProperty(),
			"response_format": responseFormatProperty(),
		}),
		Annotations: readOnly("Binance Exchange Info"),
	}
}

// PriceTool returns the binance_get_price definition.
func PriceTool() Tool {
	return Tool{
		Name:        ToolGetPrice,
		Description: "Get the latest price for one or more trading pairs. The lightest way to check prices.",
		InputSchema: objectSchema(map[string]interface{}{
			"symbols":         symbolsProperty(),
			"response_format": responseFormatProperty(),
		}, "symbols"),
		Annotations: readOnly("Binance Latest Price"),
	}
}

// BestPriceTool returns the binance_get_best_price definition.
func BestPriceTool() Tool {
	return Tool{
		Name:        ToolGetBestPrice,
		Description: "Get the best bid and ask price and quantity for one or more trading pairs, with the spread.",
		InputSchema: objectSchema(map[string]interface{}{
			"symbols":         symbolsProperty(),
			"response_format": responseFormatProperty(),
		}, "symbols"),
		Annotations: readOnly("Binance Best Bid/Ask"),
	}
}

// Tools returns every tool definition in listing order.
func Tools() []Tool {
	return []Tool{
		TickerTool(),
		SearchSymbolsTool(),
		OrderBookTool(),
		KlinesTool(),
		RecentTradesTool(),
		ExchangeInfoTool(),
		PriceTool(),
		BestPriceTool(),
	}
}
