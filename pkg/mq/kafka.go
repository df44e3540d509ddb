// Package mq provides Kafka producer/consumer wrappers with a worker-pool
// consume loop and a dead letter queue.
package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/wyfcoding/marketdata/pkg/logger"
	"github.com/wyfcoding/marketdata/pkg/metrics"
)

// Config holds broker and consumer group settings.
type Config struct {
	Brokers        []string
	GroupID        string
	SessionTimeout int
	// Optional SASL/PLAIN credentials. Empty username disables SASL.
	SASLUsername string
	SASLPassword string
}

// SASLMechanism returns the configured SASL mechanism, or nil when disabled.
func (c Config) SASLMechanism() sasl.Mechanism {
	if c.SASLUsername == "" {
		return nil
	}
	return plain.Mechanism{Username: c.SASLUsername, Password: c.SASLPassword}
}

// Producer publishes JSON messages.
type Producer struct {
	writer *kafka.Writer
}

// NewProducer creates a Kafka producer for the given brokers.
func NewProducer(cfg Config) *Producer {
	transport := &kafka.Transport{SASL: cfg.SASLMechanism()}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Transport:              transport,
		AllowAutoTopicCreation: true,
		Compression:            kafka.Gzip,
		RequiredAcks:           kafka.RequireAll,
	}

	logger.Info(context.Background(), "Kafka producer created", "brokers", cfg.Brokers)
	return &Producer{writer: writer}
}

// Send marshals value as JSON and publishes it to topic.
func (p *Producer) Send(ctx context.Context, topic, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		logger.Error(ctx, "Failed to send Kafka message", "topic", topic, "key", key, "error", err)
		return err
	}
	return nil
}

// Close releases the underlying writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}

// Handler processes one consumed message.
type Handler func(ctx context.Context, msg kafka.Message) error

// Consumer reads a single topic within a consumer group and dispatches
// messages to a handler across a fixed pool of workers.
type Consumer struct {
	reader  *kafka.Reader
	topic   string
	metrics *metrics.Metrics

	// Invoked once when the read loop dies on a broker error; nil is fine.
	onDisconnect func(error)
	disconnected sync.Once

	wg sync.WaitGroup
}

// NewConsumer creates a group consumer for topic. m may be nil.
func NewConsumer(cfg Config, topic string, m *metrics.Metrics) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          topic,
		GroupID:        cfg.GroupID,
		SessionTimeout: time.Duration(cfg.SessionTimeout) * time.Second,
		CommitInterval: time.Second,
		StartOffset:    kafka.LastOffset,
		MaxBytes:       10e6, // 10MB
		Dialer: &kafka.Dialer{
			Timeout:       10 * time.Second,
			DualStack:     true,
			SASLMechanism: cfg.SASLMechanism(),
		},
	})

	logger.Info(context.Background(), "Kafka consumer created",
		"brokers", cfg.Brokers,
		"topic", topic,
		"group_id", cfg.GroupID,
	)
	return &Consumer{reader: reader, topic: topic, metrics: m}
}

// Topic returns the consumed topic.
func (c *Consumer) Topic() string {
	return c.topic
}

// OnDisconnect registers a callback fired when the consume loop stops on a
// broker error. Called at most once per Start.
func (c *Consumer) OnDisconnect(fn func(error)) {
	c.onDisconnect = fn
}

// Start launches workers goroutines that read messages and invoke handler.
// It returns immediately; the loop runs until ctx is cancelled or the
// reader fails. Handler errors are logged and the message is skipped - the
// caller routes poison messages to a DeadLetterQueue inside the handler if
// it needs them preserved.
func (c *Consumer) Start(ctx context.Context, workers int, handler Handler) {
	if workers <= 0 {
		workers = 1
	}

	for i := 0; i < workers; i++ {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.run(ctx, handler)
		}()
	}
}

func (c *Consumer) run(ctx context.Context, handler Handler) {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			// io.EOF means the reader was deliberately closed.
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) || ctx.Err() != nil {
				return
			}
			logger.Error(ctx, "Kafka read failed", "topic", c.topic, "error", err)
			c.notifyDisconnect(err)
			return
		}

		c.handle(ctx, msg, handler)
	}
}

// handle dispatches one message and records consumer throughput metrics.
func (c *Consumer) handle(ctx context.Context, msg kafka.Message, handler Handler) {
	start := time.Now()
	if c.metrics != nil {
		c.metrics.ConsumerMessagesTotal.WithLabelValues(c.topic).Inc()
	}

	err := handler(ctx, msg)

	if c.metrics != nil {
		c.metrics.ConsumerHandleTime.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		if c.metrics != nil {
			c.metrics.ConsumerErrorsTotal.Inc()
		}
		logger.Error(ctx, "Message handler failed",
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"error", err,
		)
	}
}

// notifyDisconnect fires the disconnect callback at most once, on its own
// goroutine. Callbacks tear the session down via Close, whose wg.Wait would
// block forever if the callback ran on the worker reporting the failure.
func (c *Consumer) notifyDisconnect(err error) {
	c.disconnected.Do(func() {
		if c.onDisconnect != nil {
			go c.onDisconnect(err)
		}
	})
}

// Close drains the workers and releases the reader.
func (c *Consumer) Close() error {
	err := c.reader.Close()
	c.wg.Wait()
	return err
}

// DeadLetterQueue forwards poison messages to a side topic with failure
// context attached.
type DeadLetterQueue struct {
	producer *Producer
	topic    string
}

// NewDeadLetterQueue creates a DLQ publishing to topic.
func NewDeadLetterQueue(producer *Producer, topic string) *DeadLetterQueue {
	return &DeadLetterQueue{producer: producer, topic: topic}
}

// Send records the original message alongside the failure reason.
func (dlq *DeadLetterQueue) Send(ctx context.Context, original kafka.Message, reason string, cause error) error {
	payload := map[string]any{
		"original_topic":  original.Topic,
		"original_key":    string(original.Key),
		"original_value":  string(original.Value),
		"original_offset": original.Offset,
		"original_time":   original.Time,
		"failure_reason":  reason,
		"failure_time":    time.Now(),
	}
	if cause != nil {
		payload["failure_error"] = cause.Error()
	}
	return dlq.producer.Send(ctx, dlq.topic, string(original.Key), payload)
}
