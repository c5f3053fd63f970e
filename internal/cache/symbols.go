package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"binance-mcp/internal/models"
)

// SymbolsKey holds the JSON encoded symbol catalog.
const SymbolsKey = "binance:symbols"

// SymbolStore keeps the symbol catalog in Redis with an expiry.
type SymbolStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// New connects to Redis and verifies the connection with a PING.
func New(redisURL, redisPassword string, ttl time.Duration, logger *slog.Logger) (*SymbolStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	if redisPassword != "" {
		opt.Password = redisPassword
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewWithClient(client, ttl, logger), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, ttl time.Duration, logger *slog.Logger) *SymbolStore {
	return &SymbolStore{
		client: client,
		ttl:    ttl,
		logger: logger.With("component", "symbol_store"),
	}
}

// Get returns the cached catalog. A missing key is reported as ok=false
// with no error.
func (s *SymbolStore) Get(ctx context.Context) ([]models.SymbolSummary, bool, error) {
	startTime := time.Now()

	data, err := s.client.Get(ctx, SymbolsKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			s.logger.Debug("catalog_cache_miss", "cache_key", SymbolsKey)
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis GET failed: %w", err)
	}

	var symbols []models.SymbolSummary
	if err := json.Unmarshal(data, &symbols); err != nil {
		return nil, false, fmt.Errorf("json unmarshal failed: %w", err)
	}

	s.logger.Debug("catalog_cache_hit",
		"cache_key", SymbolsKey,
		"symbols", len(symbols),
		"latency_ms", time.Since(startTime).Milliseconds(),
	)

	return symbols, true, nil
}

// Put stores the catalog under SymbolsKey with the configured TTL.
func (s *SymbolStore) Put(ctx context.Context, symbols []models.SymbolSummary) error {
	data, err := json.Marshal(symbols)
	if err != nil {
		return fmt.Errorf("json marshal failed: %w", err)
	}

	if err := s.client.Set(ctx, SymbolsKey, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis SET failed: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *SymbolStore) Close() error {
	return s.client.Close()
}
