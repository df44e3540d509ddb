package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
)

// ErrKind classifies a failed connect attempt.
type ErrKind int

const (
	// KindUnreachable covers network and DNS failures.
	KindUnreachable ErrKind = iota
	// KindTimeout covers attempts with no broker response within the deadline.
	KindTimeout
	// KindUnauthorized covers credential rejection. Not retryable.
	KindUnauthorized
)

// String returns the kind label used in logs and metrics.
func (k ErrKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "unreachable"
	}
}

// ConnectError is the connector's failure taxonomy.
type ConnectError struct {
	Kind ErrKind
	Addr string
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("broker connect %s: %s: %v", e.Addr, e.Kind, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the orchestrator may try again.
func (e *ConnectError) Retryable() bool {
	return e.Kind != KindUnauthorized
}

// Handle is a verified broker connection. Close is idempotent. Ownership
// moves to the consumer collaborator once the orchestrator hands it off.
type Handle interface {
	// Broker returns the address the connection was established against.
	Broker() string
	Close() error
}

// Connector performs a single connection attempt against the broker.
// Implementations never retry internally; retry policy belongs to the
// orchestrator.
type Connector interface {
	Connect(ctx context.Context) (Handle, error)
}

// KafkaConnector dials one of the configured brokers and verifies the
// connection with a topic metadata round-trip.
type KafkaConnector struct {
	brokers []string
	topic   string
	timeout time.Duration
	dialer  *kafka.Dialer
}

// KafkaConnectorConfig holds the connector settings.
type KafkaConnectorConfig struct {
	Brokers []string
	// Topic whose partition metadata is fetched as the verification
	// round-trip.
	Topic   string
	Timeout time.Duration
	// Optional SASL/PLAIN credentials. Empty username disables SASL.
	SASLUsername string
	SASLPassword string
}

// NewKafkaConnector builds a connector for the given brokers.
func NewKafkaConnector(cfg KafkaConnectorConfig) *KafkaConnector {
	var mech sasl.Mechanism
	if cfg.SASLUsername != "" {
		mech = plain.Mechanism{Username: cfg.SASLUsername, Password: cfg.SASLPassword}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &KafkaConnector{
		brokers: cfg.Brokers,
		topic:   cfg.Topic,
		timeout: timeout,
		dialer: &kafka.Dialer{
			Timeout:       timeout,
			DualStack:     true,
			SASLMechanism: mech,
		},
	}
}

// Connect tries each configured broker once and returns the first verified
// connection. An unauthorized rejection short-circuits the remaining
// brokers since credentials will not improve across addresses.
func (c *KafkaConnector) Connect(ctx context.Context) (Handle, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var lastErr *ConnectError
	for _, addr := range c.brokers {
		conn, err := c.dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			lastErr = classify(addr, err)
			if !lastErr.Retryable() {
				return nil, lastErr
			}
			continue
		}

		// Metadata fetch proves the broker speaks Kafka and, under SASL,
		// that the credentials were accepted.
		if _, err := conn.ReadPartitions(c.topic); err != nil {
			_ = conn.Close()
			lastErr = classify(addr, err)
			if !lastErr.Retryable() {
				return nil, lastErr
			}
			continue
		}

		return newHandle(addr, conn), nil
	}

	if lastErr == nil {
		lastErr = &ConnectError{
			Kind: KindUnreachable,
			Err:  errors.New("no brokers configured"),
		}
	}
	return nil, lastErr
}

// classify maps a raw dial or metadata error onto the connector taxonomy.
func classify(addr string, err error) *ConnectError {
	kind := KindUnreachable

	var kerr kafka.Error
	var nerr net.Error
	switch {
	case errors.As(err, &kerr) && isAuthError(kerr):
		kind = KindUnauthorized
	case errors.Is(err, context.DeadlineExceeded):
		kind = KindTimeout
	case errors.As(err, &nerr) && nerr.Timeout():
		kind = KindTimeout
	}

	return &ConnectError{Kind: kind, Addr: addr, Err: err}
}

func isAuthError(err kafka.Error) bool {
	switch err {
	case kafka.SASLAuthenticationFailed,
		kafka.TopicAuthorizationFailed,
		kafka.ClusterAuthorizationFailed:
		return true
	}
	return false
}

type closer interface {
	Close() error
}

// kafkaHandle wraps the verified connection with an idempotent Close.
type kafkaHandle struct {
	addr string
	conn closer
	once sync.Once
	err  error
}

func newHandle(addr string, conn closer) *kafkaHandle {
	return &kafkaHandle{addr: addr, conn: conn}
}

func (h *kafkaHandle) Broker() string {
	return h.addr
}

func (h *kafkaHandle) Close() error {
	h.once.Do(func() {
		h.err = h.conn.Close()
	})
	return h.err
}
