// Package redis implements the latest-value read models on Redis.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wyfcoding/marketdata/internal/marketdata/domain"
)

// QuoteRedisRepository caches the most recent quote per symbol.
type QuoteRedisRepository struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewQuoteRedisRepository creates the Redis-backed quote read model.
func NewQuoteRedisRepository(client redis.UniversalClient) *QuoteRedisRepository {
	return &QuoteRedisRepository{
		client: client,
		prefix: "marketdata:quote:",
		ttl:    24 * time.Hour,
	}
}

// Save overwrites the cached latest quote for the symbol.
func (r *QuoteRedisRepository) Save(ctx context.Context, quote *domain.Quote) error {
	if quote == nil {
		return nil
	}
	data, err := json.Marshal(quote)
	if err != nil {
		return fmt.Errorf("failed to marshal quote: %w", err)
	}
	return r.client.Set(ctx, r.prefix+quote.Symbol, data, r.ttl).Err()
}

// GetLatest returns the cached quote, or nil on a miss.
func (r *QuoteRedisRepository) GetLatest(ctx context.Context, symbol string) (*domain.Quote, error) {
	data, err := r.client.Get(ctx, r.prefix+symbol).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get quote from redis: %w", err)
	}

	var quote domain.Quote
	if err := json.Unmarshal(data, &quote); err != nil {
		return nil, fmt.Errorf("failed to unmarshal quote: %w", err)
	}
	return &quote, nil
}
