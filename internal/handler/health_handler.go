package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Probe reports whether one dependency is usable.
type Probe func(ctx context.Context) error

// HealthHandler serves liveness and readiness.
type HealthHandler struct {
	probes  map[string]Probe
	timeout time.Duration
}

// NewHealthHandler constructs the handler. Nil probes are skipped.
func NewHealthHandler(probes map[string]Probe) *HealthHandler {
	active := make(map[string]Probe, len(probes))
	for name, p := range probes {
		if p != nil {
			active[name] = p
		}
	}
	return &HealthHandler{probes: active, timeout: 2 * time.Second}
}

// Health godoc
// @Summary Liveness probe
// @Tags Health
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready godoc
// @Summary Readiness probe checking every configured backend
// @Tags Health
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	checks := make(map[string]string, len(h.probes))
	status := http.StatusOK
	for name, probe := range h.probes {
		if err := probe(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	state := "ready"
	if status != http.StatusOK {
		state = "degraded"
	}
	c.JSON(status, gin.H{"status": state, "checks": checks})
}
