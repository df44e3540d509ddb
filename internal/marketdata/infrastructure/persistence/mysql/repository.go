// Package mysql implements the domain repositories on GORM.
package mysql

import (
	"context"
	"errors"

	"github.com/wyfcoding/marketdata/internal/marketdata/domain"
	"gorm.io/gorm"
)

type quoteRepository struct {
	db *gorm.DB
}

// NewQuoteRepository creates the MySQL-backed quote repository.
func NewQuoteRepository(db *gorm.DB) domain.QuoteRepository {
	return &quoteRepository{db: db}
}

func (r *quoteRepository) Save(ctx context.Context, quote *domain.Quote) error {
	return r.db.WithContext(ctx).Create(quote).Error
}

func (r *quoteRepository) GetLatest(ctx context.Context, symbol string) (*domain.Quote, error) {
	var quote domain.Quote
	err := r.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("timestamp desc").
		First(&quote).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &quote, nil
}

func (r *quoteRepository) GetHistory(ctx context.Context, symbol string, startTime, endTime int64, limit int) ([]*domain.Quote, error) {
	var quotes []*domain.Quote
	err := r.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Where("timestamp >= ? AND timestamp < ?", startTime, endTime).
		Order("timestamp desc").
		Limit(limit).
		Find(&quotes).Error
	if err != nil {
		return nil, err
	}
	return quotes, nil
}

type candleRepository struct {
	db *gorm.DB
}

// NewCandleRepository creates the MySQL-backed candle repository.
func NewCandleRepository(db *gorm.DB) domain.CandleRepository {
	return &candleRepository{db: db}
}

func (r *candleRepository) Save(ctx context.Context, candle *domain.Candle) error {
	return r.db.WithContext(ctx).Create(candle).Error
}

func (r *candleRepository) GetCandles(ctx context.Context, symbol, interval string, limit int) ([]*domain.Candle, error) {
	var candles []*domain.Candle
	err := r.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Where("interval_str = ?", interval).
		Order("open_time desc").
		Limit(limit).
		Find(&candles).Error
	if err != nil {
		return nil, err
	}
	return candles, nil
}

type articleRepository struct {
	db *gorm.DB
}

// NewArticleRepository creates the MySQL-backed article repository.
func NewArticleRepository(db *gorm.DB) domain.ArticleRepository {
	return &articleRepository{db: db}
}

func (r *articleRepository) Save(ctx context.Context, article *domain.Article) error {
	return r.db.WithContext(ctx).Create(article).Error
}

func (r *articleRepository) GetLatest(ctx context.Context, limit int) ([]*domain.Article, error) {
	var articles []*domain.Article
	err := r.db.WithContext(ctx).
		Order("published_at desc").
		Limit(limit).
		Find(&articles).Error
	if err != nil {
		return nil, err
	}
	return articles, nil
}

func (r *articleRepository) GetBySymbol(ctx context.Context, symbol string, limit int) ([]*domain.Article, error) {
	var articles []*domain.Article
	err := r.db.WithContext(ctx).
		Where("symbols LIKE ?", "%"+symbol+"%").
		Order("published_at desc").
		Limit(limit).
		Find(&articles).Error
	if err != nil {
		return nil, err
	}
	return articles, nil
}
