package consumer

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/wyfcoding/marketdata/internal/marketdata/application"
	"github.com/wyfcoding/marketdata/pkg/mq"
)

// NewsHandler consumes market.news events into the article store.
type NewsHandler struct {
	service *application.MarketDataService
	dlq     *mq.DeadLetterQueue
	logger  *slog.Logger
}

// NewNewsHandler creates the news event handler. dlq may be nil.
func NewNewsHandler(service *application.MarketDataService, dlq *mq.DeadLetterQueue, logger *slog.Logger) *NewsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &NewsHandler{service: service, dlq: dlq, logger: logger}
}

// newsEvent is the wire format on the market.news topic.
type newsEvent struct {
	ID          string   `json:"id"`
	Headline    string   `json:"headline"`
	Summary     string   `json:"summary"`
	Author      string   `json:"author"`
	URL         string   `json:"url"`
	Symbols     []string `json:"symbols"`
	Source      string   `json:"source"`
	PublishedAt int64    `json:"published_at"`
}

// HandleNews decodes one news event and saves it.
func (h *NewsHandler) HandleNews(ctx context.Context, msg kafkago.Message) error {
	var event newsEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		h.logger.Warn("undecodable news event",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"error", err,
		)
		if h.dlq != nil {
			return h.dlq.Send(ctx, msg, "undecodable news event", err)
		}
		return nil
	}

	return h.service.SaveArticle(ctx, application.SaveArticleCommand{
		ExternalID:  event.ID,
		Headline:    event.Headline,
		Summary:     event.Summary,
		Author:      event.Author,
		URL:         event.URL,
		Symbols:     strings.Join(event.Symbols, ","),
		Source:      event.Source,
		PublishedAt: event.PublishedAt,
	})
}

// Subscribe attaches the handler to the consumer's worker loop.
func (h *NewsHandler) Subscribe(ctx context.Context, consumer *mq.Consumer) {
	consumer.Start(ctx, 1, h.HandleNews)
}
