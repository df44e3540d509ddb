// Package consumer adapts Kafka messages into application commands.
package consumer

import (
	"context"
	"encoding/json"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/marketdata/internal/marketdata/application"
	"github.com/wyfcoding/marketdata/pkg/mq"
)

// MarketPriceHandler consumes market.price events into the quote store.
type MarketPriceHandler struct {
	service *application.MarketDataService
	dlq     *mq.DeadLetterQueue
	logger  *slog.Logger
}

// NewMarketPriceHandler creates the price event handler. dlq may be nil.
func NewMarketPriceHandler(service *application.MarketDataService, dlq *mq.DeadLetterQueue, logger *slog.Logger) *MarketPriceHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &MarketPriceHandler{service: service, dlq: dlq, logger: logger}
}

// marketPriceEvent is the wire format on the market.price topic. Prices
// travel as strings to avoid float drift across producers.
type marketPriceEvent struct {
	Symbol    string `json:"symbol"`
	BidPrice  string `json:"bid_price"`
	BidSize   string `json:"bid_size"`
	AskPrice  string `json:"ask_price"`
	AskSize   string `json:"ask_size"`
	LastPrice string `json:"price"`
	LastSize  string `json:"size"`
	Timestamp int64  `json:"timestamp"`
	Source    string `json:"source"`
}

// HandleMarketPrice decodes one price event and saves it. Undecodable
// messages go to the dead letter topic rather than wedging the partition.
func (h *MarketPriceHandler) HandleMarketPrice(ctx context.Context, msg kafkago.Message) error {
	var event marketPriceEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		h.logger.Warn("undecodable price event",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"error", err,
		)
		if h.dlq != nil {
			return h.dlq.Send(ctx, msg, "undecodable price event", err)
		}
		return nil
	}

	cmd := application.SaveQuoteCommand{
		Symbol:    event.Symbol,
		BidPrice:  parsePrice(event.BidPrice),
		BidSize:   parsePrice(event.BidSize),
		AskPrice:  parsePrice(event.AskPrice),
		AskSize:   parsePrice(event.AskSize),
		LastPrice: parsePrice(event.LastPrice),
		LastSize:  parsePrice(event.LastSize),
		Timestamp: event.Timestamp,
		Source:    event.Source,
	}
	if cmd.Source == "" {
		cmd.Source = "stream"
	}

	return h.service.SaveQuote(ctx, cmd)
}

// Subscribe attaches the handler to the consumer's worker loop.
func (h *MarketPriceHandler) Subscribe(ctx context.Context, consumer *mq.Consumer) {
	consumer.Start(ctx, 1, h.HandleMarketPrice)
}

func parsePrice(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
