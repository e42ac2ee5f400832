package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/snapdish/backend/internal/database"
)

// HealthHandler serves the liveness endpoint.
type HealthHandler struct {
	db      *gorm.DB
	started time.Time
}

// NewHealthHandler creates a HealthHandler instance
func NewHealthHandler(db *gorm.DB) *HealthHandler {
	return &HealthHandler{db: db, started: time.Now()}
}

// Health reports process liveness and store reachability.
func (h *HealthHandler) Health(c *gin.Context) {
	status := "ok"
	dbStatus := "ok"
	if h.db != nil {
		if err := database.HealthCheck(c.Request.Context(), h.db); err != nil {
			status = "degraded"
			dbStatus = err.Error()
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   status,
		"database": dbStatus,
		"uptime":   time.Since(h.started).Round(time.Second).String(),
	})
}
