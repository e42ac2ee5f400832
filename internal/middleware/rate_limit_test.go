package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snapdish/backend/internal/models"
	"github.com/snapdish/backend/internal/testdb"
)

// testProfile keeps the windows tiny so tests drive them deterministically.
var testProfile = RateProfile{
	Name:   "test",
	Global: ScopeConfig{MaxRequests: 100, Window: time.Minute},
	IP:     ScopeConfig{MaxRequests: 50, Window: time.Minute, BlockDuration: 10 * time.Minute},
	User:   ScopeConfig{MaxRequests: 3, Window: time.Minute, BlockDuration: 5 * time.Minute},
}

func rateTestRouter(gate *RateGate, profile RateProfile, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/limited",
		func(c *gin.Context) { c.Set("user_id", userID) },
		gate.Middleware(profile),
		func(c *gin.Context) { c.Status(http.StatusOK) },
	)
	return r
}

func hitOnce(r *gin.Engine) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/limited", nil)
	req.RemoteAddr = "203.0.113.7:1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateGateAllowsWithinWindow(t *testing.T) {
	gate := NewRateGate(testdb.Open(t))
	r := rateTestRouter(gate, testProfile, "user-1")

	for i := 0; i < 3; i++ {
		w := hitOnce(r)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit"))
	}
}

func TestRateGateBlocksUserOverLimit(t *testing.T) {
	db := testdb.Open(t)
	gate := NewRateGate(db)
	r := rateTestRouter(gate, testProfile, "user-1")

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, hitOnce(r).Code)
	}

	w := hitOnce(r)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "RATE_LIMITED")

	// The overflow persisted a durable block.
	var stat models.RateLimitStat
	err := db.Where("type = ? AND identifier = ?", models.ScopeUserMinute, "user-1").First(&stat).Error
	require.NoError(t, err)
	require.NotNil(t, stat.BlockedUntil)
	assert.True(t, stat.BlockedUntil.After(time.Now()))

	// Subsequent hits are denied by the block, not the window.
	w = hitOnce(r)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "USER_BLOCKED")
}

func TestRateGateBlockSurvivesRestart(t *testing.T) {
	db := testdb.Open(t)
	until := time.Now().Add(10 * time.Minute)
	require.NoError(t, db.Create(&models.RateLimitStat{
		Type:         models.ScopeUserMinute,
		Identifier:   "user-1",
		PeriodStart:  time.Now().Add(-time.Minute),
		Count:        99,
		BlockedUntil: &until,
	}).Error)

	// A fresh gate with empty in-memory state finds the durable block.
	gate := NewRateGate(db)
	r := rateTestRouter(gate, testProfile, "user-1")
	w := hitOnce(r)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "USER_BLOCKED")
}

func TestDurableBlockMirrorsCurrentEntry(t *testing.T) {
	gate := NewRateGate(testdb.Open(t))
	now := time.Now()
	until := now.Add(10 * time.Minute)
	key := "test:" + models.ScopeUserMinute + ":user-1"

	// No entry yet: the mirror creates one.
	gate.mirrorBlock(key, testProfile.User, now, until)
	gate.mu.Lock()
	created := gate.entries[key]
	gate.mu.Unlock()
	require.NotNil(t, created)
	assert.Equal(t, until, created.blockedUntil)

	// The entry observed before the store lookup can be swept away and
	// replaced by a concurrent request while the lock is released. The
	// mirror must land on whatever entry is current, not a stale pointer.
	stale := created
	replacement := &rateEntry{windowStart: now, window: time.Minute}
	gate.mu.Lock()
	gate.entries[key] = replacement
	gate.mu.Unlock()

	later := until.Add(time.Minute)
	gate.mirrorBlock(key, testProfile.User, now, later)
	assert.Equal(t, later, replacement.blockedUntil)
	assert.Equal(t, until, stale.blockedUntil)
}

func TestRateGateFailsOpenOnStoreError(t *testing.T) {
	db := testdb.Open(t)
	gate := NewRateGate(db)
	r := rateTestRouter(gate, testProfile, "user-1")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	// The durable lookup fails but the in-memory window still admits.
	w := hitOnce(r)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateGateGlobalOverload(t *testing.T) {
	gate := NewRateGate(testdb.Open(t))
	profile := testProfile
	profile.Global = ScopeConfig{MaxRequests: 2, Window: time.Minute}
	r := rateTestRouter(gate, profile, "user-1")

	require.Equal(t, http.StatusOK, hitOnce(r).Code)
	require.Equal(t, http.StatusOK, hitOnce(r).Code)

	w := hitOnce(r)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "SERVER_OVERLOADED")
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestRateGateWindowReset(t *testing.T) {
	gate := NewRateGate(testdb.Open(t))
	base := time.Now()
	gate.now = func() time.Time { return base }

	profile := testProfile
	profile.User = ScopeConfig{MaxRequests: 1, Window: time.Minute, BlockDuration: time.Minute}
	r := rateTestRouter(gate, profile, "user-1")

	require.Equal(t, http.StatusOK, hitOnce(r).Code)
	require.Equal(t, http.StatusTooManyRequests, hitOnce(r).Code)

	// After the block and window elapse, the slate is clean.
	gate.now = func() time.Time { return base.Add(2 * time.Minute) }
	assert.Equal(t, http.StatusOK, hitOnce(r).Code)
}

func TestRateGateSweepEvictsExpired(t *testing.T) {
	gate := NewRateGate(testdb.Open(t))
	base := time.Now()
	gate.now = func() time.Time { return base }

	r := rateTestRouter(gate, testProfile, "user-1")
	require.Equal(t, http.StatusOK, hitOnce(r).Code)
	require.NotEmpty(t, gate.Snapshot())

	gate.sweep(base.Add(2 * time.Minute))
	assert.Empty(t, gate.Snapshot())
}
