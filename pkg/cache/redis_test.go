package cache

import (
	"context"
	"errors"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/marketdata/pkg/metrics"
)

func histogramSamples(t *testing.T, m *metrics.Metrics) uint64 {
	t.Helper()
	var pb dto.Metric
	require.NoError(t, m.RedisOpDuration.Write(&pb))
	return pb.GetHistogram().GetSampleCount()
}

func TestMetricsHookObservesCommands(t *testing.T) {
	m := metrics.New("test")
	h := metricsHook{metrics: m}

	process := h.ProcessHook(func(ctx context.Context, cmd redis.Cmder) error { return nil })
	require.NoError(t, process(context.Background(), redis.NewStatusCmd(context.Background(), "ping")))
	assert.Equal(t, uint64(1), histogramSamples(t, m))
}

func TestMetricsHookObservesFailedCommands(t *testing.T) {
	m := metrics.New("test")
	h := metricsHook{metrics: m}

	wantErr := errors.New("connection refused")
	process := h.ProcessHook(func(ctx context.Context, cmd redis.Cmder) error { return wantErr })
	err := process(context.Background(), redis.NewStatusCmd(context.Background(), "get", "k"))
	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, uint64(1), histogramSamples(t, m))
}

func TestMetricsHookObservesPipelines(t *testing.T) {
	m := metrics.New("test")
	h := metricsHook{metrics: m}

	pipeline := h.ProcessPipelineHook(func(ctx context.Context, cmds []redis.Cmder) error { return nil })
	require.NoError(t, pipeline(context.Background(), []redis.Cmder{
		redis.NewStatusCmd(context.Background(), "set", "k", "v"),
		redis.NewStatusCmd(context.Background(), "set", "k2", "v2"),
	}))
	assert.Equal(t, uint64(1), histogramSamples(t, m))
}
