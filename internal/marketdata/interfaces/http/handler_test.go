package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/marketdata/internal/marketdata/application"
	"github.com/wyfcoding/marketdata/internal/marketdata/domain"
)

type stubQuoteRepo struct {
	latest map[string]*domain.Quote
}

func (r *stubQuoteRepo) Save(ctx context.Context, quote *domain.Quote) error { return nil }

func (r *stubQuoteRepo) GetLatest(ctx context.Context, symbol string) (*domain.Quote, error) {
	return r.latest[symbol], nil
}

func (r *stubQuoteRepo) GetHistory(ctx context.Context, symbol string, start, end int64, limit int) ([]*domain.Quote, error) {
	if q := r.latest[symbol]; q != nil {
		return []*domain.Quote{q}, nil
	}
	return nil, nil
}

type stubCandleRepo struct{}

func (r *stubCandleRepo) Save(ctx context.Context, candle *domain.Candle) error { return nil }

func (r *stubCandleRepo) GetCandles(ctx context.Context, symbol, interval string, limit int) ([]*domain.Candle, error) {
	return nil, nil
}

type stubArticleRepo struct{}

func (r *stubArticleRepo) Save(ctx context.Context, article *domain.Article) error { return nil }

func (r *stubArticleRepo) GetLatest(ctx context.Context, limit int) ([]*domain.Article, error) {
	return nil, nil
}

func (r *stubArticleRepo) GetBySymbol(ctx context.Context, symbol string, limit int) ([]*domain.Article, error) {
	return nil, nil
}

func newAPIRouter(quotes domain.QuoteRepository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	service := application.NewMarketDataService(quotes, &stubCandleRepo{}, &stubArticleRepo{}, nil, nil)
	router := gin.New()
	NewMarketDataHandler(service).RegisterRoutes(router)
	return router
}

func TestGetLatestQuote(t *testing.T) {
	repo := &stubQuoteRepo{latest: map[string]*domain.Quote{
		"AAPL": {
			Symbol:    "AAPL",
			BidPrice:  decimal.NewFromFloat(189.50),
			AskPrice:  decimal.NewFromFloat(189.55),
			Timestamp: 1700000000000,
		},
	}}
	router := newAPIRouter(repo)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/marketdata/quote?symbol=AAPL", nil))
	require.Equal(t, 200, w.Code)

	var body struct {
		Data domain.Quote `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "AAPL", body.Data.Symbol)
	assert.True(t, body.Data.BidPrice.Equal(decimal.NewFromFloat(189.50)))
}

func TestGetLatestQuoteMissingSymbol(t *testing.T) {
	router := newAPIRouter(&stubQuoteRepo{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/marketdata/quote", nil))
	assert.Equal(t, 400, w.Code)
}

func TestGetLatestQuoteNotFound(t *testing.T) {
	router := newAPIRouter(&stubQuoteRepo{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/marketdata/quote?symbol=MSFT", nil))
	assert.Equal(t, 404, w.Code)
}

func TestGetQuoteHistoryValidatesWindow(t *testing.T) {
	router := newAPIRouter(&stubQuoteRepo{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/marketdata/quotes?symbol=AAPL&start_time=2000&end_time=1000", nil))
	assert.Equal(t, 400, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/marketdata/quotes?symbol=AAPL&start_time=abc&end_time=1000", nil))
	assert.Equal(t, 400, w.Code)
}

func TestGetQuoteHistory(t *testing.T) {
	repo := &stubQuoteRepo{latest: map[string]*domain.Quote{
		"AAPL": {Symbol: "AAPL", Timestamp: 1500},
	}}
	router := newAPIRouter(repo)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/marketdata/quotes?symbol=AAPL&start_time=1000&end_time=2000", nil))
	require.Equal(t, 200, w.Code)

	var body struct {
		Data []domain.Quote `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "AAPL", body.Data[0].Symbol)
}
