package bootstrap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDelayForAttempt(t *testing.T) {
	base := time.Second
	ceiling := 30 * time.Second

	tests := []struct {
		name    string
		attempt int
		want    time.Duration
	}{
		{"first retry", 1, time.Second},
		{"second retry", 2, 2 * time.Second},
		{"third retry", 3, 4 * time.Second},
		{"fifth retry", 5, 16 * time.Second},
		{"capped", 6, 30 * time.Second},
		{"far past cap", 20, 30 * time.Second},
		{"zero clamps to first", 0, time.Second},
		{"negative clamps to first", -3, time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DelayForAttempt(tt.attempt, base, ceiling))
		})
	}
}

func TestDelayForAttemptMonotonic(t *testing.T) {
	base := 250 * time.Millisecond
	ceiling := 10 * time.Second

	prev := time.Duration(0)
	for attempt := 1; attempt <= 64; attempt++ {
		d := DelayForAttempt(attempt, base, ceiling)
		assert.GreaterOrEqual(t, d, prev, "attempt %d", attempt)
		assert.LessOrEqual(t, d, ceiling, "attempt %d", attempt)
		prev = d
	}
	assert.Equal(t, ceiling, prev)
}

func TestDelayForAttemptDocumentedSequence(t *testing.T) {
	// base=1s cap=8s yields 1s, 2s, 4s before attempts 2, 3 and 4.
	var got []time.Duration
	for attempt := 1; attempt <= 3; attempt++ {
		got = append(got, DelayForAttempt(attempt, time.Second, 8*time.Second))
	}
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, got)
}

func TestDelayForAttemptOverflow(t *testing.T) {
	// A huge attempt index must clamp to the cap, never wrap negative.
	d := DelayForAttempt(1 << 20, time.Hour, 24*time.Hour)
	assert.Equal(t, 24*time.Hour, d)
}
