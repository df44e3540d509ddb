package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/marketdata/internal/marketdata/bootstrap"
)

// StateReporter reports the current startup state.
type StateReporter interface {
	State() bootstrap.State
}

// Pinger checks connectivity of a backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the liveness and readiness probes.
//
// The probe endpoints read two atomic flags and never touch the network,
// so they stay responsive while the service is connecting or backing off.
// Only the combined /health endpoint performs dependency checks.
type HealthHandler struct {
	probe   *bootstrap.Probe
	state   StateReporter
	redis   Pinger
	service string
	version string
}

// NewHealthHandler creates the probe handler.
func NewHealthHandler(probe *bootstrap.Probe, state StateReporter, redis Pinger, service, version string) *HealthHandler {
	return &HealthHandler{
		probe:   probe,
		state:   state,
		redis:   redis,
		service: service,
		version: version,
	}
}

// Live serves GET /health/live. It returns 200 as long as the process
// is running, regardless of broker connectivity.
func (h *HealthHandler) Live(c *gin.Context) {
	if !h.probe.Live() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "down"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "up"})
}

// Ready serves GET /health/ready. It returns 200 only after the broker
// connection has been established and 503 while connecting, degraded
// or after a connection loss.
func (h *HealthHandler) Ready(c *gin.Context) {
	if !h.probe.Ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// Health serves GET /health with a per-dependency breakdown. The overall
// status is healthy only when both probe flags are set and every
// dependency check passes.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	healthy := h.probe.Healthy()
	services := gin.H{
		"broker": h.state.State().String(),
	}

	if h.redis != nil {
		if err := h.redis.Ping(ctx); err != nil {
			healthy = false
			services["redis"] = "error: " + err.Error()
		} else {
			services["redis"] = "ok"
		}
	}

	status := "healthy"
	code := http.StatusOK
	if !healthy {
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"service":  h.service,
		"version":  h.version,
		"status":   status,
		"services": services,
	})
}

// RegisterRoutes mounts the probe endpoints.
func (h *HealthHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", h.Health)
	router.GET("/health/live", h.Live)
	router.GET("/health/ready", h.Ready)
}
