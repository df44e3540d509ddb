package domain

import "context"

// QuoteRepository stores and serves quotes.
type QuoteRepository interface {
	Save(ctx context.Context, quote *Quote) error
	GetLatest(ctx context.Context, symbol string) (*Quote, error)
	GetHistory(ctx context.Context, symbol string, startTime, endTime int64, limit int) ([]*Quote, error)
}

// CandleRepository stores and serves OHLCV bars.
type CandleRepository interface {
	Save(ctx context.Context, candle *Candle) error
	GetCandles(ctx context.Context, symbol, interval string, limit int) ([]*Candle, error)
}

// ArticleRepository stores and serves news articles.
type ArticleRepository interface {
	Save(ctx context.Context, article *Article) error
	GetLatest(ctx context.Context, limit int) ([]*Article, error)
	GetBySymbol(ctx context.Context, symbol string, limit int) ([]*Article, error)
}
