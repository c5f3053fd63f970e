package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/agnivade/levenshtein"

	"binance-mcp/internal/binance"
	"binance-mcp/internal/models"
)

// StatusTrading is the status of pairs open for trading.
const StatusTrading = "TRADING"

// Fetcher loads exchange information from the upstream API.
type Fetcher interface {
	ExchangeInfo(ctx context.Context, symbols []string) (*binance.ExchangeInfo, error)
}

// Store is an optional shared cache for the projected catalog.
type Store interface {
	Get(ctx context.Context) ([]models.SymbolSummary, bool, error)
	Put(ctx context.Context, symbols []models.SymbolSummary) error
}

// Filters narrows a catalog search. Empty fields match everything; Status
// "ALL" includes pairs that are not trading.
type Filters struct {
	BaseAsset  string
	QuoteAsset string
	SearchTerm string
	Status     string
}

// Catalog serves the projected exchangeInfo symbol list. The list is kept
// in memory for ttl and, when a Store is configured, shared through it.
type Catalog struct {
	fetcher Fetcher
	store   Store
	ttl     time.Duration
	logger  *slog.Logger

	mu        sync.Mutex
	symbols   []models.SymbolSummary
	fetchedAt time.Time
	now       func() time.Time
}

// New creates a catalog. store may be nil.
func New(fetcher Fetcher, store Store, ttl time.Duration, logger *slog.Logger) *Catalog {
	return &Catalog{
		fetcher: fetcher,
		store:   store,
		ttl:     ttl,
		logger:  logger.With("component", "catalog"),
		now:     time.Now,
	}
}

// Symbols returns the full catalog.
func (c *Catalog) Symbols(ctx context.Context) ([]models.SymbolSummary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.symbols != nil && c.now().Sub(c.fetchedAt) < c.ttl {
		return c.symbols, nil
	}

	if c.store != nil {
		cached, ok, err := c.store.Get(ctx)
		switch {
		case err != nil:
			c.logger.Warn("catalog_cache_read_failed", "error", err)
		case ok:
			c.remember(cached)
			return cached, nil
		}
	}

	info, err := c.fetcher.ExchangeInfo(ctx, nil)
	if err != nil {
		return nil, err
	}

	symbols := make([]models.SymbolSummary, 0, len(info.Symbols))
	for _, s := range info.Symbols {
		symbols = append(symbols, models.SummaryFromSymbolInfo(s))
	}

	if c.store != nil {
		if err := c.store.Put(ctx, symbols); err != nil {
			c.logger.Warn("catalog_cache_write_failed", "error", err)
		}
	}

	c.logger.Debug("catalog_loaded", "symbols", len(symbols))
	c.remember(symbols)
	return symbols, nil
}

func (c *Catalog) remember(symbols []models.SymbolSummary) {
	c.symbols = symbols
	c.fetchedAt = c.now()
}

// Search returns catalog entries matching every non-empty filter.
func (c *Catalog) Search(ctx context.Context, f Filters) ([]models.SymbolSummary, error) {
	symbols, err := c.Symbols(ctx)
	if err != nil {
		return nil, err
	}
	return Filter(symbols, f), nil
}

// Filter applies f to symbols. Filter values are expected upper case.
func Filter(symbols []models.SymbolSummary, f Filters) []models.SymbolSummary {
	matched := make([]models.SymbolSummary, 0)
	for _, s := range symbols {
		if f.Status == StatusTrading && s.Status != StatusTrading {
			continue
		}
		if f.BaseAsset != "" && s.BaseAsset != f.BaseAsset {
			continue
		}
		if f.QuoteAsset != "" && s.QuoteAsset != f.QuoteAsset {
			continue
		}
		if f.SearchTerm != "" && !strings.Contains(s.Symbol, f.SearchTerm) {
			continue
		}
		matched = append(matched, s)
	}
	return matched
}

// Unknown returns the requested symbols that are not in the catalog.
func (c *Catalog) Unknown(ctx context.Context, requested []string) ([]string, error) {
	symbols, err := c.Symbols(ctx)
	if err != nil {
		return nil, err
	}

	known := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		known[s.Symbol] = struct{}{}
	}

	var unknown []string
	for _, r := range requested {
		if _, ok := known[r]; !ok {
			unknown = append(unknown, r)
		}
	}
	return unknown, nil
}

// Suggest returns up to n catalog symbols close to symbol.
func (c *Catalog) Suggest(ctx context.Context, symbol string, n int) ([]string, error) {
	symbols, err := c.Symbols(ctx)
	if err != nil {
		return nil, fmt.Errorf("load symbol catalog: %w", err)
	}
	return Suggest(symbols, symbol, n), nil
}

// Suggest ranks symbols against target. Pairs whose base asset is the
// longest base-asset prefix of target are preferred; without such a base,
// the whole catalog is ranked. Ties are broken by trading status, then name.
func Suggest(symbols []models.SymbolSummary, target string, n int) []string {
	if n <= 0 || len(symbols) == 0 {
		return nil
	}

	base := ""
	for _, s := range symbols {
		if len(s.BaseAsset) > len(base) && strings.HasPrefix(target, s.BaseAsset) {
			base = s.BaseAsset
		}
	}

	candidates := symbols
	if base != "" {
		candidates = make([]models.SymbolSummary, 0)
		for _, s := range symbols {
			if s.BaseAsset == base {
				candidates = append(candidates, s)
			}
		}
	}

	type ranked struct {
		symbol   string
		distance int
		trading  bool
	}

	rs := make([]ranked, 0, len(candidates))
	for _, s := range candidates {
		if s.Symbol == target {
			continue
		}
		rs = append(rs, ranked{
			symbol:   s.Symbol,
			distance: levenshtein.ComputeDistance(target, s.Symbol),
			trading:  s.Status == StatusTrading,
		})
	}

	sort.Slice(rs, func(i, j int) bool {
		if rs[i].distance != rs[j].distance {
			return rs[i].distance < rs[j].distance
		}
		if rs[i].trading != rs[j].trading {
			return rs[i].trading
		}
		return rs[i].symbol < rs[j].symbol
	})

	if len(rs) > n {
		rs = rs[:n]
	}

	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.symbol
	}
	return out
}
