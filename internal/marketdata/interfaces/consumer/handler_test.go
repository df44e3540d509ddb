package consumer

import (
	"context"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/marketdata/internal/marketdata/application"
	"github.com/wyfcoding/marketdata/internal/marketdata/domain"
)

type capturingQuoteRepo struct {
	saved []*domain.Quote
}

func (r *capturingQuoteRepo) Save(_ context.Context, q *domain.Quote) error {
	r.saved = append(r.saved, q)
	return nil
}

func (r *capturingQuoteRepo) GetLatest(context.Context, string) (*domain.Quote, error) {
	return nil, nil
}

func (r *capturingQuoteRepo) GetHistory(context.Context, string, int64, int64, int) ([]*domain.Quote, error) {
	return nil, nil
}

type capturingArticleRepo struct {
	saved []*domain.Article
}

func (r *capturingArticleRepo) Save(_ context.Context, a *domain.Article) error {
	r.saved = append(r.saved, a)
	return nil
}

func (r *capturingArticleRepo) GetLatest(context.Context, int) ([]*domain.Article, error) {
	return nil, nil
}

func (r *capturingArticleRepo) GetBySymbol(context.Context, string, int) ([]*domain.Article, error) {
	return nil, nil
}

type nopCandleRepo struct{}

func (nopCandleRepo) Save(context.Context, *domain.Candle) error { return nil }
func (nopCandleRepo) GetCandles(context.Context, string, string, int) ([]*domain.Candle, error) {
	return nil, nil
}

func TestHandleMarketPrice(t *testing.T) {
	quotes := &capturingQuoteRepo{}
	svc := application.NewMarketDataService(quotes, nopCandleRepo{}, &capturingArticleRepo{}, nil, nil)
	h := NewMarketPriceHandler(svc, nil, nil)

	msg := kafkago.Message{
		Topic: "market.price",
		Value: []byte(`{"symbol":"AAPL","bid_price":"189.97","ask_price":"190.03","price":"190.00","timestamp":1700000000000,"source":"iex"}`),
	}
	require.NoError(t, h.HandleMarketPrice(context.Background(), msg))

	require.Len(t, quotes.saved, 1)
	q := quotes.saved[0]
	assert.Equal(t, "AAPL", q.Symbol)
	assert.Equal(t, "190.03", q.AskPrice.String())
	assert.Equal(t, "iex", q.Source)
	assert.Equal(t, int64(1700000000000), q.Timestamp)
}

func TestHandleMarketPriceBadPayload(t *testing.T) {
	quotes := &capturingQuoteRepo{}
	svc := application.NewMarketDataService(quotes, nopCandleRepo{}, &capturingArticleRepo{}, nil, nil)
	h := NewMarketPriceHandler(svc, nil, nil)

	msg := kafkago.Message{Topic: "market.price", Value: []byte("not json")}
	// Without a DLQ the message is dropped, never retried forever.
	require.NoError(t, h.HandleMarketPrice(context.Background(), msg))
	assert.Empty(t, quotes.saved)
}

func TestHandleNews(t *testing.T) {
	articles := &capturingArticleRepo{}
	svc := application.NewMarketDataService(&capturingQuoteRepo{}, nopCandleRepo{}, articles, nil, nil)
	h := NewNewsHandler(svc, nil, nil)

	msg := kafkago.Message{
		Topic: "market.news",
		Value: []byte(`{"id":"n-42","headline":"Chip rally continues","symbols":["NVDA","AMD"],"source":"benzinga","published_at":1700000000000}`),
	}
	require.NoError(t, h.HandleNews(context.Background(), msg))

	require.Len(t, articles.saved, 1)
	a := articles.saved[0]
	assert.Equal(t, "n-42", a.ExternalID)
	assert.Equal(t, "NVDA,AMD", a.Symbols)
}
