package metrics

import (
	"fmt"
	"math"
)

// SpreadMetrics contains calculated top-of-book spread metrics.
type SpreadMetrics struct {
	Spread     float64 `json:"spread"`      // ask - bid
	SpreadPct  float64 `json:"spread_pct"`  // spread / bid * 100
	SpreadBps  float64 `json:"spread_bps"`  // spread / bid * 10000
	MidPrice   float64 `json:"mid_price"`   // (bid + ask) / 2
	MicroPrice float64 `json:"micro_price"` // quantity-weighted mid
}

// CalculateSpread computes spread metrics from the best bid and ask.
//
// micro_price = (ask × bid_qty + bid × ask_qty) / (bid_qty + ask_qty), which
// leans toward the side with less resting quantity. When both quantities are
// zero it falls back to the mid price.
func CalculateSpread(bidPrice, bidQty, askPrice, askQty float64) (*SpreadMetrics, error) {
	if bidPrice <= 0 || askPrice <= 0 {
		return nil, fmt.Errorf("invalid prices: bid=%f ask=%f (must be > 0)", bidPrice, askPrice)
	}

	if bidQty < 0 || askQty < 0 {
		return nil, fmt.Errorf("invalid quantities: bidQty=%f askQty=%f (must be >= 0)", bidQty, askQty)
	}

	if askPrice < bidPrice {
		return nil, fmt.Errorf("crossed book: bid=%f > ask=%f", bidPrice, askPrice)
	}

	spread := askPrice - bidPrice
	midPrice := (bidPrice + askPrice) / 2.0

	microPrice := midPrice
	if bidQty+askQty > 0 {
		microPrice = (askPrice*bidQty + bidPrice*askQty) / (bidQty + askQty)
	}

	return &SpreadMetrics{
		Spread:     roundToDecimal(spread, 8),
		SpreadPct:  roundToDecimal(spread/bidPrice*100.0, 6),
		SpreadBps:  roundToDecimal(spread/bidPrice*10000.0, 4),
		MidPrice:   roundToDecimal(midPrice, 8),
		MicroPrice: roundToDecimal(microPrice, 8),
	}, nil
}

// roundToDecimal rounds a float64 to a specified number of decimal places.
func roundToDecimal(value float64, decimals int) float64 {
	multiplier := math.Pow(10, float64(decimals))
	return math.Round(value*multiplier) / multiplier
}

// SpreadInvariant validates spread metrics invariants.
func SpreadInvariant(s *SpreadMetrics, bidPrice, askPrice float64) error {
	if s.SpreadBps < 0 {
		return fmt.Errorf("spread_bps must be non-negative, got %f", s.SpreadBps)
	}

	if s.MidPrice < bidPrice || s.MidPrice > askPrice {
		return fmt.Errorf("mid_price %f not in range [%f, %f]", s.MidPrice, bidPrice, askPrice)
	}

	if s.MicroPrice < bidPrice || s.MicroPrice > askPrice {
		return fmt.Errorf("micro_price %f not in range [%f, %f]", s.MicroPrice, bidPrice, askPrice)
	}

	return nil
}
