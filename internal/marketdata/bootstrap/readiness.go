package bootstrap

import "sync/atomic"

// Probe holds the process liveness and readiness flags. The orchestrator is
// the single writer; probe handlers read concurrently. Reads are wait-free,
// they sit on the latency path of kubelet health checks.
type Probe struct {
	live  atomic.Bool
	ready atomic.Bool
}

// NewProbe returns a probe with both flags false. The composition root owns
// the instance and passes it to the orchestrator and the health handlers.
func NewProbe() *Probe {
	return &Probe{}
}

// SetLive records process liveness.
func (p *Probe) SetLive(v bool) {
	p.live.Store(v)
}

// SetReady records broker readiness.
func (p *Probe) SetReady(v bool) {
	p.ready.Store(v)
}

// Live reports whether the process is running.
func (p *Probe) Live() bool {
	return p.live.Load()
}

// Ready reports whether the broker connection has been verified.
func (p *Probe) Ready() bool {
	return p.ready.Load()
}

// Healthy reports the combined check: live and ready.
func (p *Probe) Healthy() bool {
	return p.live.Load() && p.ready.Load()
}
