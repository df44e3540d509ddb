// Package bootstrap gates service readiness on a verified broker
// connection. It runs a staged startup sequence: a stabilization wait, then
// bounded connect attempts with exponential backoff, flipping the shared
// readiness probe on success or exhaustion.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/wyfcoding/marketdata/pkg/metrics"
)

// State is the orchestrator's position in the startup state machine.
type State int32

const (
	// StateStabilizing is the fixed wait before the first connect attempt.
	StateStabilizing State = iota
	// StateConnecting covers the retry loop.
	StateConnecting
	// StateReady means the broker connection was verified and handed off.
	StateReady
	// StateDegraded means retries were exhausted; the process stays live
	// but never becomes ready without a restart.
	StateDegraded
	// StateAborted means a non-retryable error stopped the bootstrap.
	StateAborted
)

// String returns the state label used in logs and health payloads.
func (s State) String() string {
	switch s {
	case StateStabilizing:
		return "stabilizing"
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateDegraded:
		return "degraded"
	case StateAborted:
		return "aborted"
	}
	return "unknown"
}

// ErrRetriesExhausted is returned by Run after the configured number of
// retryable failures.
var ErrRetriesExhausted = errors.New("broker connect retries exhausted")

// ErrNonRetryableAbort is returned by Run when the connector reports an
// error that retrying cannot fix.
var ErrNonRetryableAbort = errors.New("broker bootstrap aborted")

// Config holds the bootstrap sequence parameters.
type Config struct {
	// StabilizationWait is slept before the first connect attempt so the
	// surrounding infrastructure settles before probing begins.
	StabilizationWait time.Duration
	// MaxAttempts bounds the connect attempts.
	MaxAttempts int
	// BackoffBase and BackoffCap parameterize the delay between retries.
	BackoffBase time.Duration
	BackoffCap  time.Duration
}

// Orchestrator drives the startup sequence. It is the single writer of the
// readiness probe; connector errors never escape it, they only move the
// state machine.
type Orchestrator struct {
	cfg       Config
	connector Connector
	probe     *Probe
	logger    *slog.Logger
	metrics   *metrics.Metrics

	onConnected func(Handle)
	lost        chan struct{}
	state       atomic.Int32

	// sleep is swapped for a fake clock in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// New builds an orchestrator around the given connector and probe.
func New(cfg Config, connector Connector, probe *Probe, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		cfg:       cfg,
		connector: connector,
		probe:     probe,
		logger:    logger,
		lost:      make(chan struct{}, 1),
		sleep:     sleepCtx,
	}
}

// OnConnected registers the consumer hand-off, invoked exactly once per
// successful connect. The handle's ownership moves to the callback.
func (o *Orchestrator) OnConnected(fn func(Handle)) {
	o.onConnected = fn
}

// WithMetrics attaches the service metrics. Optional.
func (o *Orchestrator) WithMetrics(m *metrics.Metrics) {
	o.metrics = m
}

// State returns the current state machine position.
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

// ConnectionLost asks the orchestrator to drop readiness and re-enter the
// connect loop with a fresh attempt counter. Safe to call from any
// goroutine; calls while a reconnect is already pending coalesce.
func (o *Orchestrator) ConnectionLost() {
	select {
	case o.lost <- struct{}{}:
	default:
	}
}

// Run executes the bootstrap sequence until a terminal state or ctx
// cancellation. It returns nil on shutdown and on the Ready path;
// ErrRetriesExhausted or ErrNonRetryableAbort mark the degraded terminals.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.probe.SetLive(true)
	o.probe.SetReady(false)
	o.setState(StateStabilizing)

	o.logger.Info("bootstrap stabilizing", "wait", o.cfg.StabilizationWait)
	if err := o.sleep(ctx, o.cfg.StabilizationWait); err != nil {
		return nil
	}

	for {
		handle, err := o.connect(ctx)
		if err != nil {
			return err
		}
		if handle == nil {
			// Shutdown interrupted the connect loop.
			return nil
		}

		o.probe.SetReady(true)
		o.setState(StateReady)
		o.logger.Info("broker connected", "broker", handle.Broker())
		if o.onConnected != nil {
			o.onConnected(handle)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-o.lost:
			o.probe.SetReady(false)
			o.logger.Warn("broker connection lost, reconnecting")
		}
	}
}

// connect runs the bounded attempt loop. It returns (nil, nil) when ctx is
// cancelled, and a terminal error for the Degraded and Aborted states.
func (o *Orchestrator) connect(ctx context.Context) (Handle, error) {
	o.setState(StateConnecting)

	for attempt := 1; ; attempt++ {
		if ctx.Err() != nil {
			return nil, nil
		}

		handle, err := o.connector.Connect(ctx)
		if err == nil {
			if ctx.Err() != nil {
				// Shutdown raced the dial; the handle must not be handed off.
				_ = handle.Close()
				return nil, nil
			}
			o.recordAttempt("success")
			return handle, nil
		}

		kind := "error"
		retryable := true
		var cerr *ConnectError
		if errors.As(err, &cerr) {
			kind = cerr.Kind.String()
			retryable = cerr.Retryable()
		}
		o.recordAttempt(kind)

		if !retryable {
			o.setState(StateAborted)
			o.logger.Error("broker bootstrap aborted",
				"attempt", attempt,
				"kind", kind,
				"error", err,
			)
			return nil, fmt.Errorf("%w: %w", ErrNonRetryableAbort, err)
		}

		if attempt >= o.cfg.MaxAttempts {
			o.setState(StateDegraded)
			o.logger.Error("broker bootstrap degraded, retries exhausted",
				"attempts", attempt,
				"error", err,
			)
			return nil, ErrRetriesExhausted
		}

		delay := DelayForAttempt(attempt, o.cfg.BackoffBase, o.cfg.BackoffCap)
		o.logger.Warn("broker connect failed",
			"attempt", attempt,
			"kind", kind,
			"next_delay", delay,
			"error", err,
		)
		if err := o.sleep(ctx, delay); err != nil {
			return nil, nil
		}
	}
}

func (o *Orchestrator) setState(s State) {
	o.state.Store(int32(s))
	if o.metrics != nil {
		o.metrics.BootstrapState.Set(float64(s))
	}
}

func (o *Orchestrator) recordAttempt(outcome string) {
	if o.metrics != nil {
		o.metrics.BootstrapAttemptsTotal.WithLabelValues(outcome).Inc()
	}
}

// sleepCtx is a cancelable timed sleep so shutdown is never delayed by a
// pending backoff.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
