package application

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/marketdata/internal/marketdata/domain"
)

type memQuoteRepo struct {
	quotes []*domain.Quote
}

func (m *memQuoteRepo) Save(_ context.Context, q *domain.Quote) error {
	m.quotes = append(m.quotes, q)
	return nil
}

func (m *memQuoteRepo) GetLatest(_ context.Context, symbol string) (*domain.Quote, error) {
	var latest *domain.Quote
	for _, q := range m.quotes {
		if q.Symbol != symbol {
			continue
		}
		if latest == nil || q.Timestamp > latest.Timestamp {
			latest = q
		}
	}
	return latest, nil
}

func (m *memQuoteRepo) GetHistory(_ context.Context, symbol string, startTime, endTime int64, limit int) ([]*domain.Quote, error) {
	var out []*domain.Quote
	for _, q := range m.quotes {
		if q.Symbol == symbol && q.Timestamp >= startTime && q.Timestamp < endTime {
			out = append(out, q)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type memCandleRepo struct {
	candles []*domain.Candle
}

func (m *memCandleRepo) Save(_ context.Context, c *domain.Candle) error {
	m.candles = append(m.candles, c)
	return nil
}

func (m *memCandleRepo) GetCandles(_ context.Context, symbol, interval string, limit int) ([]*domain.Candle, error) {
	var out []*domain.Candle
	for _, c := range m.candles {
		if c.Symbol == symbol && c.Interval == interval {
			out = append(out, c)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type memArticleRepo struct {
	articles []*domain.Article
}

func (m *memArticleRepo) Save(_ context.Context, a *domain.Article) error {
	m.articles = append(m.articles, a)
	return nil
}

func (m *memArticleRepo) GetLatest(_ context.Context, limit int) ([]*domain.Article, error) {
	if len(m.articles) > limit {
		return m.articles[:limit], nil
	}
	return m.articles, nil
}

func (m *memArticleRepo) GetBySymbol(_ context.Context, symbol string, limit int) ([]*domain.Article, error) {
	var out []*domain.Article
	for _, a := range m.articles {
		if strings.Contains(a.Symbols, symbol) {
			out = append(out, a)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func newTestService() (*MarketDataService, *memQuoteRepo, *memCandleRepo, *memArticleRepo) {
	quotes := &memQuoteRepo{}
	candles := &memCandleRepo{}
	articles := &memArticleRepo{}
	svc := NewMarketDataService(quotes, candles, articles, nil, nil)
	return svc, quotes, candles, articles
}

func TestSaveQuote(t *testing.T) {
	svc, quotes, _, _ := newTestService()
	ctx := context.Background()

	cmd := SaveQuoteCommand{
		Symbol:    "AAPL",
		BidPrice:  decimal.NewFromFloat(189.97),
		AskPrice:  decimal.NewFromFloat(190.03),
		LastPrice: decimal.NewFromFloat(190.00),
		Timestamp: 1700000000000,
		Source:    "iex",
	}
	require.NoError(t, svc.SaveQuote(ctx, cmd))
	require.Len(t, quotes.quotes, 1)
	assert.Equal(t, "AAPL", quotes.quotes[0].Symbol)
	assert.Equal(t, int64(1700000000000), quotes.quotes[0].Timestamp)
}

func TestSaveQuoteRequiresSymbol(t *testing.T) {
	svc, quotes, _, _ := newTestService()
	err := svc.SaveQuote(context.Background(), SaveQuoteCommand{})
	require.Error(t, err)
	assert.Empty(t, quotes.quotes)
}

func TestSaveQuoteDefaultsTimestamp(t *testing.T) {
	svc, quotes, _, _ := newTestService()
	require.NoError(t, svc.SaveQuote(context.Background(), SaveQuoteCommand{Symbol: "SPY"}))
	require.Len(t, quotes.quotes, 1)
	assert.NotZero(t, quotes.quotes[0].Timestamp)
}

func TestGetLatestQuote(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.SaveQuote(ctx, SaveQuoteCommand{Symbol: "AAPL", Timestamp: 100}))
	require.NoError(t, svc.SaveQuote(ctx, SaveQuoteCommand{Symbol: "AAPL", Timestamp: 200}))

	quote, err := svc.GetLatestQuote(ctx, "AAPL")
	require.NoError(t, err)
	require.NotNil(t, quote)
	assert.Equal(t, int64(200), quote.Timestamp)

	missing, err := svc.GetLatestQuote(ctx, "TSLA")
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = svc.GetLatestQuote(ctx, "")
	assert.Error(t, err)
}

func TestGetQuoteHistoryValidatesRange(t *testing.T) {
	svc, _, _, _ := newTestService()
	_, err := svc.GetQuoteHistory(context.Background(), "AAPL", 200, 100, 10)
	assert.Error(t, err)
}

func TestSaveAndGetCandles(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.SaveCandle(ctx, SaveCandleCommand{
		Symbol:   "AAPL",
		Interval: "1d",
		Open:     decimal.NewFromInt(100),
		Close:    decimal.NewFromInt(110),
	}))

	candles, err := svc.GetCandles(ctx, "AAPL", "1d", 10)
	require.NoError(t, err)
	require.Len(t, candles, 1)
	assert.True(t, candles[0].Change().Equal(decimal.NewFromInt(10)))

	require.Error(t, svc.SaveCandle(ctx, SaveCandleCommand{Symbol: "AAPL"}))
}

func TestArticles(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.SaveArticle(ctx, SaveArticleCommand{
		ExternalID: "n-1",
		Headline:   "Apple ships results",
		Symbols:    "AAPL,MSFT",
	}))
	require.NoError(t, svc.SaveArticle(ctx, SaveArticleCommand{
		ExternalID: "n-2",
		Headline:   "Broad market update",
		Symbols:    "SPY",
	}))

	all, err := svc.ListArticles(ctx, "", 50)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	apple, err := svc.ListArticles(ctx, "AAPL", 50)
	require.NoError(t, err)
	require.Len(t, apple, 1)
	assert.Equal(t, "n-1", apple[0].ExternalID)

	require.Error(t, svc.SaveArticle(ctx, SaveArticleCommand{Headline: "missing id"}))
}
