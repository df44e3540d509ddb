// Package http exposes the market data REST API and the health probes.
package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/marketdata/internal/marketdata/application"
	"github.com/wyfcoding/marketdata/pkg/logger"
)

// MarketDataHandler serves the quote, candle and article endpoints.
type MarketDataHandler struct {
	service *application.MarketDataService
}

// NewMarketDataHandler creates the REST handler.
func NewMarketDataHandler(service *application.MarketDataService) *MarketDataHandler {
	return &MarketDataHandler{service: service}
}

// GetLatestQuote serves GET /api/v1/marketdata/quote.
func (h *MarketDataHandler) GetLatestQuote(c *gin.Context) {
	ctx := c.Request.Context()
	symbol := c.Query("symbol")
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}

	quote, err := h.service.GetLatestQuote(ctx, symbol)
	if err != nil {
		logger.Error(ctx, "Failed to get latest quote", "symbol", symbol, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if quote == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no quote for symbol"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": quote})
}

// GetQuoteHistory serves GET /api/v1/marketdata/quotes.
func (h *MarketDataHandler) GetQuoteHistory(c *gin.Context) {
	ctx := c.Request.Context()
	symbol := c.Query("symbol")
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}

	startTime, err := strconv.ParseInt(c.Query("start_time"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_time must be an epoch millisecond timestamp"})
		return
	}
	endTime, err := strconv.ParseInt(c.Query("end_time"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end_time must be an epoch millisecond timestamp"})
		return
	}
	if startTime >= endTime {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_time must be before end_time"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	quotes, err := h.service.GetQuoteHistory(ctx, symbol, startTime, endTime, limit)
	if err != nil {
		logger.Error(ctx, "Failed to get quote history", "symbol", symbol, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": quotes})
}

// GetCandles serves GET /api/v1/marketdata/candles.
func (h *MarketDataHandler) GetCandles(c *gin.Context) {
	ctx := c.Request.Context()
	symbol := c.Query("symbol")
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}
	interval := c.DefaultQuery("interval", "1d")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	candles, err := h.service.GetCandles(ctx, symbol, interval, limit)
	if err != nil {
		logger.Error(ctx, "Failed to get candles", "symbol", symbol, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": candles})
}

// ListArticles serves GET /api/v1/marketdata/articles.
func (h *MarketDataHandler) ListArticles(c *gin.Context) {
	ctx := c.Request.Context()
	symbol := c.Query("symbol")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	articles, err := h.service.ListArticles(ctx, symbol, limit)
	if err != nil {
		logger.Error(ctx, "Failed to list articles", "symbol", symbol, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": articles})
}

// RegisterRoutes mounts the API under /api/v1/marketdata.
func (h *MarketDataHandler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1/marketdata")
	{
		v1.GET("/quote", h.GetLatestQuote)
		v1.GET("/quotes", h.GetQuoteHistory)
		v1.GET("/candles", h.GetCandles)
		v1.GET("/articles", h.ListArticles)
	}
}
