package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/snapdish/backend/internal/middleware"
	"github.com/snapdish/backend/internal/service"
)

// AdminHandler serves the operator-facing stats endpoint.
type AdminHandler struct {
	rateGate *middleware.RateGate
	costGate *service.CostGate
	locks    *service.SingleFlight
}

// NewAdminHandler creates an AdminHandler instance
func NewAdminHandler(rateGate *middleware.RateGate, costGate *service.CostGate, locks *service.SingleFlight) *AdminHandler {
	return &AdminHandler{rateGate: rateGate, costGate: costGate, locks: locks}
}

// Stats returns a point-in-time view of the rate gate windows, the
// durable cost counters and the single-flight registry.
func (h *AdminHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"rate_gate":        h.rateGate.Snapshot(),
		"cost_gate":        h.costGate.Snapshot(c.Request.Context()),
		"analyses_running": h.locks.InFlight(),
	})
}
