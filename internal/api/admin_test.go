package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snapdish/backend/internal/middleware"
	"github.com/snapdish/backend/internal/service"
	"github.com/snapdish/backend/internal/testdb"
)

func TestAdminStats(t *testing.T) {
	db := testdb.Open(t)
	rateGate := middleware.NewRateGate(db)
	costGate := service.NewCostGate(db, nil, service.CostLimits{DailyGlobal: 500, HourlyGlobal: 100, DailyUser: 50})
	locks := service.NewSingleFlight()
	_, ok := locks.TryAcquire("user-1", "https://youtu.be/abc")
	require.True(t, ok)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/admin/stats", NewAdminHandler(rateGate, costGate, locks).Stats)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/stats", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.EqualValues(t, 1, body["analyses_running"])
	assert.Contains(t, body, "rate_gate")
	assert.Contains(t, body, "cost_gate")
}
