// Package application exposes the market data use cases over the domain
// repositories.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/marketdata/internal/marketdata/domain"
	"github.com/wyfcoding/marketdata/pkg/metrics"
)

// SaveQuoteCommand carries one ingested quote.
type SaveQuoteCommand struct {
	Symbol    string
	BidPrice  decimal.Decimal
	BidSize   decimal.Decimal
	AskPrice  decimal.Decimal
	AskSize   decimal.Decimal
	LastPrice decimal.Decimal
	LastSize  decimal.Decimal
	Timestamp int64
	Source    string
}

// SaveCandleCommand carries one ingested OHLCV bar.
type SaveCandleCommand struct {
	Symbol    string
	Interval  string
	OpenTime  int64
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.Decimal
	CloseTime int64
}

// SaveArticleCommand carries one ingested news article.
type SaveArticleCommand struct {
	ExternalID  string
	Headline    string
	Summary     string
	Author      string
	URL         string
	Symbols     string
	Source      string
	PublishedAt int64
}

// MarketDataService is the application facade over quotes, candles and
// articles.
type MarketDataService struct {
	quotes   domain.QuoteRepository
	candles  domain.CandleRepository
	articles domain.ArticleRepository
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewMarketDataService wires the facade over the repositories.
func NewMarketDataService(quotes domain.QuoteRepository, candles domain.CandleRepository, articles domain.ArticleRepository, logger *slog.Logger, m *metrics.Metrics) *MarketDataService {
	if logger == nil {
		logger = slog.Default()
	}
	return &MarketDataService{
		quotes:   quotes,
		candles:  candles,
		articles: articles,
		logger:   logger,
		metrics:  m,
	}
}

// SaveQuote validates and persists one quote.
func (s *MarketDataService) SaveQuote(ctx context.Context, cmd SaveQuoteCommand) error {
	if cmd.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if cmd.Timestamp == 0 {
		cmd.Timestamp = time.Now().UnixMilli()
	}

	quote := &domain.Quote{
		Symbol:    cmd.Symbol,
		BidPrice:  cmd.BidPrice,
		BidSize:   cmd.BidSize,
		AskPrice:  cmd.AskPrice,
		AskSize:   cmd.AskSize,
		LastPrice: cmd.LastPrice,
		LastSize:  cmd.LastSize,
		Timestamp: cmd.Timestamp,
		Source:    cmd.Source,
	}
	if err := s.quotes.Save(ctx, quote); err != nil {
		return fmt.Errorf("failed to save quote: %w", err)
	}

	if s.metrics != nil {
		s.metrics.QuotesIngestedTotal.Inc()
	}
	return nil
}

// GetLatestQuote returns the most recent quote, or nil when the symbol has
// never been seen.
func (s *MarketDataService) GetLatestQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	return s.quotes.GetLatest(ctx, symbol)
}

// GetQuoteHistory returns quotes within [startTime, endTime).
func (s *MarketDataService) GetQuoteHistory(ctx context.Context, symbol string, startTime, endTime int64, limit int) ([]*domain.Quote, error) {
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	if startTime >= endTime {
		return nil, fmt.Errorf("start_time must be before end_time")
	}
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}
	return s.quotes.GetHistory(ctx, symbol, startTime, endTime, limit)
}

// SaveCandle validates and persists one bar.
func (s *MarketDataService) SaveCandle(ctx context.Context, cmd SaveCandleCommand) error {
	if cmd.Symbol == "" || cmd.Interval == "" {
		return fmt.Errorf("symbol and interval are required")
	}

	candle := &domain.Candle{
		Symbol:    cmd.Symbol,
		Interval:  cmd.Interval,
		OpenTime:  cmd.OpenTime,
		Open:      cmd.Open,
		High:      cmd.High,
		Low:       cmd.Low,
		Close:     cmd.Close,
		Volume:    cmd.Volume,
		CloseTime: cmd.CloseTime,
	}
	if err := s.candles.Save(ctx, candle); err != nil {
		return fmt.Errorf("failed to save candle: %w", err)
	}
	return nil
}

// GetCandles returns the most recent bars for a symbol and interval.
func (s *MarketDataService) GetCandles(ctx context.Context, symbol, interval string, limit int) ([]*domain.Candle, error) {
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	if interval == "" {
		interval = "1d"
	}
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	return s.candles.GetCandles(ctx, symbol, interval, limit)
}

// SaveArticle validates and persists one news article.
func (s *MarketDataService) SaveArticle(ctx context.Context, cmd SaveArticleCommand) error {
	if cmd.ExternalID == "" {
		return fmt.Errorf("article id is required")
	}
	if cmd.PublishedAt == 0 {
		cmd.PublishedAt = time.Now().UnixMilli()
	}

	article := &domain.Article{
		ExternalID:  cmd.ExternalID,
		Headline:    cmd.Headline,
		Summary:     cmd.Summary,
		Author:      cmd.Author,
		URL:         cmd.URL,
		Symbols:     cmd.Symbols,
		Source:      cmd.Source,
		PublishedAt: cmd.PublishedAt,
	}
	if err := s.articles.Save(ctx, article); err != nil {
		return fmt.Errorf("failed to save article: %w", err)
	}
	return nil
}

// ListArticles returns recent articles, optionally filtered by symbol.
func (s *MarketDataService) ListArticles(ctx context.Context, symbol string, limit int) ([]*domain.Article, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if symbol != "" {
		return s.articles.GetBySymbol(ctx, symbol, limit)
	}
	return s.articles.GetLatest(ctx, limit)
}
