package format

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// TimeLayout is used for every rendered timestamp.
const TimeLayout = "2006-01-02 15:04:05 UTC"

func printer() *message.Printer {
	return message.NewPrinter(language.English)
}

// Money renders a price with thousands grouping: $67,123.45. Values below 1
// keep up to 8 decimals so that low-priced assets do not collapse to $0.00.
func Money(d decimal.Decimal) string {
	if d.Abs().LessThan(decimal.NewFromInt(1)) && !d.IsZero() {
		s := "$" + d.Abs().Round(8).String()
		if d.IsNegative() {
			return "-" + s
		}
		return s
	}
	return MoneyFloat(d.InexactFloat64())
}

// MoneyFloat renders a float with two decimals and grouping.
func MoneyFloat(v float64) string {
	if v < 0 {
		return "-$" + printer().Sprintf("%.2f", -v)
	}
	return "$" + printer().Sprintf("%.2f", v)
}

// CompactMoney renders large amounts as $1.23B, $4.56M, $7.89K.
func CompactMoney(d decimal.Decimal) string {
	v := d.InexactFloat64()
	switch {
	case v >= 1_000_000_000:
		return printer().Sprintf("$%.2fB", v/1_000_000_000)
	case v >= 1_000_000:
		return printer().Sprintf("$%.2fM", v/1_000_000)
	case v >= 1_000:
		return printer().Sprintf("$%.2fK", v/1_000)
	default:
		return MoneyFloat(v)
	}
}

// Quantity renders an amount with grouping and a fixed number of decimals.
func Quantity(d decimal.Decimal, decimals int) string {
	return printer().Sprintf(fmt.Sprintf("%%.%df", decimals), d.InexactFloat64())
}

// Percent renders 1.234 as "1.23%".
func Percent(v float64) string {
	return printer().Sprintf("%.2f%%", v)
}

// SignedPercent renders 1.234 as "+1.23%".
func SignedPercent(v float64) string {
	if v > 0 {
		return "+" + Percent(v)
	}
	return Percent(v)
}

// Direction returns a marker for the sign of v.
func Direction(v float64) string {
	switch {
	case v > 0:
		return "📈"
	case v < 0:
		return "📉"
	default:
		return "➡️"
	}
}

// Timestamp renders a millisecond Unix timestamp in UTC.
func Timestamp(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(TimeLayout)
}

var quoteSuffixes = []string{"FDUSD", "USDT", "USDC", "BUSD", "TUSD", "BTC", "ETH", "BNB", "EUR", "TRY", "USD"}

// BaseAsset guesses the base asset of symbol by stripping a known quote
// suffix. It returns symbol unchanged when no suffix matches.
func BaseAsset(symbol string) string {
	for _, q := range quoteSuffixes {
		if strings.HasSuffix(symbol, q) && len(symbol) > len(q) {
			return strings.TrimSuffix(symbol, q)
		}
	}
	return symbol
}
