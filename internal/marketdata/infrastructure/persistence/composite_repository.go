// Package persistence combines the MySQL write model with the Redis read
// model behind the domain repository interface.
package persistence

import (
	"context"
	"log/slog"

	"github.com/wyfcoding/marketdata/internal/marketdata/domain"
	redisrepo "github.com/wyfcoding/marketdata/internal/marketdata/infrastructure/persistence/redis"
	"github.com/wyfcoding/marketdata/pkg/metrics"
)

// CompositeQuoteRepository writes through MySQL and Redis and serves
// latest-value reads from Redis first.
type CompositeQuoteRepository struct {
	store   domain.QuoteRepository
	cache   *redisrepo.QuoteRedisRepository
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewCompositeQuoteRepository wires the write model and read model together.
func NewCompositeQuoteRepository(store domain.QuoteRepository, cache *redisrepo.QuoteRedisRepository, logger *slog.Logger, m *metrics.Metrics) *CompositeQuoteRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &CompositeQuoteRepository{store: store, cache: cache, logger: logger, metrics: m}
}

// Save persists the quote and refreshes the cache. A cache failure does not
// fail the write; the next read falls back to MySQL.
func (r *CompositeQuoteRepository) Save(ctx context.Context, quote *domain.Quote) error {
	if err := r.store.Save(ctx, quote); err != nil {
		return err
	}
	if err := r.cache.Save(ctx, quote); err != nil {
		r.logger.Warn("quote cache refresh failed", "symbol", quote.Symbol, "error", err)
	}
	return nil
}

// GetLatest serves from Redis and falls back to MySQL, backfilling the
// cache on the way out.
func (r *CompositeQuoteRepository) GetLatest(ctx context.Context, symbol string) (*domain.Quote, error) {
	quote, err := r.cache.GetLatest(ctx, symbol)
	if err != nil {
		r.logger.Warn("quote cache read failed", "symbol", symbol, "error", err)
	}
	if quote != nil {
		r.recordCache(true)
		return quote, nil
	}
	r.recordCache(false)

	quote, err = r.store.GetLatest(ctx, symbol)
	if err != nil || quote == nil {
		return quote, err
	}
	if err := r.cache.Save(ctx, quote); err != nil {
		r.logger.Warn("quote cache backfill failed", "symbol", symbol, "error", err)
	}
	return quote, nil
}

// GetHistory always reads the write model; history is not cached.
func (r *CompositeQuoteRepository) GetHistory(ctx context.Context, symbol string, startTime, endTime int64, limit int) ([]*domain.Quote, error) {
	return r.store.GetHistory(ctx, symbol, startTime, endTime, limit)
}

func (r *CompositeQuoteRepository) recordCache(hit bool) {
	if r.metrics == nil {
		return
	}
	if hit {
		r.metrics.CacheHitsTotal.Inc()
	} else {
		r.metrics.CacheMissesTotal.Inc()
	}
}
