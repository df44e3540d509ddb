package mq

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/marketdata/pkg/metrics"
)

func TestDisconnectCallbackFiredOnce(t *testing.T) {
	c := &Consumer{topic: "market.price"}

	var calls atomic.Int32
	fired := make(chan struct{}, 2)
	c.OnDisconnect(func(err error) {
		calls.Add(1)
		fired <- struct{}{}
	})

	c.notifyDisconnect(errors.New("broken pipe"))
	c.notifyDisconnect(errors.New("broken pipe"))

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("disconnect callback never fired")
	}
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

// The callback must be able to Close the consumer it was fired from even
// though Close waits for the worker pool to drain.
func TestDisconnectCallbackCanCloseConsumer(t *testing.T) {
	c := &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: []string{"localhost:9092"},
			Topic:   "market.price",
		}),
		topic: "market.price",
	}

	done := make(chan struct{})
	c.OnDisconnect(func(err error) {
		assert.NoError(t, c.Close())
		close(done)
	})

	// Report the failure from a pool worker, the way run does.
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.notifyDisconnect(errors.New("broken pipe"))
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("teardown blocked on the worker that reported the failure")
	}
}

func TestHandleRecordsConsumerMetrics(t *testing.T) {
	m := metrics.New("test")
	c := &Consumer{topic: "market.price", metrics: m}

	ok := func(ctx context.Context, msg kafka.Message) error { return nil }
	boom := func(ctx context.Context, msg kafka.Message) error { return errors.New("boom") }

	c.handle(context.Background(), kafka.Message{Topic: "market.price"}, ok)
	c.handle(context.Background(), kafka.Message{Topic: "market.price"}, boom)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ConsumerMessagesTotal.WithLabelValues("market.price")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ConsumerErrorsTotal))

	var pb dto.Metric
	require.NoError(t, m.ConsumerHandleTime.Write(&pb))
	assert.Equal(t, uint64(2), pb.GetHistogram().GetSampleCount())
}
