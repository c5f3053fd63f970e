package metrics

import (
	"fmt"

	"binance-mcp/internal/binance"
)

// DepthLevel represents a single price level in the order book.
type DepthLevel struct {
	Price float64 `json:"price"`
	Qty   float64 `json:"qty"`
}

// DepthMetrics contains calculated order book depth metrics.
type DepthMetrics struct {
	Bids             []DepthLevel `json:"bids"`               // Top N bid levels
	Asks             []DepthLevel `json:"asks"`               // Top N ask levels
	TotalBidQty      float64      `json:"total_bid_qty"`      // Sum over all returned bid levels
	TotalAskQty      float64      `json:"total_ask_qty"`      // Sum over all returned ask levels
	TotalBidNotional float64      `json:"total_bid_notional"` // Σ price × qty, bids
	TotalAskNotional float64      `json:"total_ask_notional"` // Σ price × qty, asks
	Imbalance        float64      `json:"imbalance"`          // [-1, 1], positive = more bid quantity
	BestBid          DepthLevel   `json:"best_bid"`
	BestAsk          DepthLevel   `json:"best_ask"`
}

// CalculateDepth computes order book depth metrics.
//
// Bids are expected sorted descending and asks ascending by price, as
// returned by /api/v3/depth.
// imbalance = (ΣQ_bid − ΣQ_ask) / (ΣQ_bid + ΣQ_ask)
func CalculateDepth(bids, asks []binance.Level, topN int) (*DepthMetrics, error) {
	if len(bids) == 0 || len(asks) == 0 {
		return nil, fmt.Errorf("empty order book: bids=%d asks=%d", len(bids), len(asks))
	}

	if topN <= 0 {
		return nil, fmt.Errorf("topN must be positive, got %d", topN)
	}

	topBids := extractTopLevels(bids, topN)
	topAsks := extractTopLevels(asks, topN)

	bestBid := topBids[0]
	bestAsk := topAsks[0]

	if bestBid.Price > bestAsk.Price {
		return nil, fmt.Errorf("crossed book: best_bid=%f > best_ask=%f", bestBid.Price, bestAsk.Price)
	}

	totalBidQty, totalBidNotional := sumLevels(bids)
	totalAskQty, totalAskNotional := sumLevels(asks)

	imbalance, err := CalculateImbalance(totalBidQty, totalAskQty)
	if err != nil {
		imbalance = 0
	}

	return &DepthMetrics{
		Bids:             topBids,
		Asks:             topAsks,
		TotalBidQty:      roundToDecimal(totalBidQty, 8),
		TotalAskQty:      roundToDecimal(totalAskQty, 8),
		TotalBidNotional: roundToDecimal(totalBidNotional, 8),
		TotalAskNotional: roundToDecimal(totalAskNotional, 8),
		Imbalance:        roundToDecimal(imbalance, 6),
		BestBid:          bestBid,
		BestAsk:          bestAsk,
	}, nil
}

// extractTopLevels extracts top N levels from order book side.
func extractTopLevels(levels []binance.Level, topN int) []DepthLevel {
	n := topN
	if n > len(levels) {
		n = len(levels)
	}

	result := make([]DepthLevel, n)
	for i := 0; i < n; i++ {
		result[i] = DepthLevel{
			Price: levels[i].Price.InexactFloat64(),
			Qty:   levels[i].Qty.InexactFloat64(),
		}
	}

	return result
}

// sumLevels returns the total quantity and notional across all levels.
func sumLevels(levels []binance.Level) (qty, notional float64) {
	for _, level := range levels {
		qty += level.Qty.InexactFloat64()
		notional += level.Notional().InexactFloat64()
	}
	return qty, notional
}

// DepthInvariant validates depth metrics invariants.
func DepthInvariant(d *DepthMetrics) error {
	if d.Imbalance < -1.0 || d.Imbalance > 1.0 {
		return fmt.Errorf("imbalance %f not in range [-1, 1]", d.Imbalance)
	}

	if d.TotalBidQty < 0 || d.TotalAskQty < 0 {
		return fmt.Errorf("total quantities must be non-negative: bid=%f ask=%f", d.TotalBidQty, d.TotalAskQty)
	}

	if d.BestBid.Price > d.BestAsk.Price {
		return fmt.Errorf("crossed book: best_bid=%f > best_ask=%f", d.BestBid.Price, d.BestAsk.Price)
	}

	if err := validateBidSorting(d.Bids); err != nil {
		return err
	}
	return validateAskSorting(d.Asks)
}

// validateBidSorting checks that bids are sorted descending by price.
func validateBidSorting(bids []DepthLevel) error {
	for i := 1; i < len(bids); i++ {
		if bids[i].Price > bids[i-1].Price {
			return fmt.Errorf("bids not sorted descending: bid[%d].price=%f > bid[%d].price=%f",
				i, bids[i].Price, i-1, bids[i-1].Price)
		}
	}
	return nil
}

// validateAskSorting checks that asks are sorted ascending by price.
func validateAskSorting(asks []DepthLevel) error {
	for i := 1; i < len(asks); i++ {
		if asks[i].Price < asks[i-1].Price {
			return fmt.Errorf("asks not sorted ascending: ask[%d].price=%f < ask[%d].price=%f",
				i, asks[i].Price, i-1, asks[i-1].Price)
		}
	}
	return nil
}

// CalculateImbalance is a standalone function to calculate imbalance.
func CalculateImbalance(totalBidQty, totalAskQty float64) (float64, error) {
	if totalBidQty < 0 || totalAskQty < 0 {
		return 0, fmt.Errorf("negative quantities: bid=%f ask=%f", totalBidQty, totalAskQty)
	}

	if totalBidQty == 0 && totalAskQty == 0 {
		return 0, fmt.Errorf("both quantities are zero")
	}

	return (totalBidQty - totalAskQty) / (totalBidQty + totalAskQty), nil
}
