package bootstrap

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProbeInitialState(t *testing.T) {
	p := NewProbe()
	assert.False(t, p.Live())
	assert.False(t, p.Ready())
	assert.False(t, p.Healthy())
}

func TestProbeFlags(t *testing.T) {
	p := NewProbe()

	p.SetLive(true)
	assert.True(t, p.Live())
	assert.False(t, p.Ready())
	assert.False(t, p.Healthy())

	p.SetReady(true)
	assert.True(t, p.Healthy())

	p.SetReady(false)
	assert.True(t, p.Live())
	assert.False(t, p.Healthy())
}

// Probe reads sit on the health-check latency path; they must not block on
// a writer. Exercised under the race detector.
func TestProbeConcurrentReaders(t *testing.T) {
	p := NewProbe()
	p.SetLive(true)

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			p.SetReady(i%2 == 0)
		}
		close(stop)
	}()

	for r := 0; r < 8; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					_ = p.Ready()
					_ = p.Healthy()
				}
			}
		}()
	}

	wg.Wait()
	assert.True(t, p.Live())
}
