package middleware

import (
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/snapdish/backend/internal/models"
)

// ScopeConfig defines one rate-limit scope: a sliding window with a
// maximum request count and, for user/IP scopes, a sticky block duration.
type ScopeConfig struct {
	MaxRequests   int
	Window        time.Duration
	BlockDuration time.Duration
}

// RateProfile groups the three scopes applied to an endpoint, evaluated in
// order global -> IP -> user.
type RateProfile struct {
	Name   string
	Global ScopeConfig
	IP     ScopeConfig
	User   ScopeConfig
}

// StandardProfile is the rate profile for the analysis endpoint.
var StandardProfile = RateProfile{
	Name:   "standard",
	Global: ScopeConfig{MaxRequests: 100, Window: time.Minute},
	IP:     ScopeConfig{MaxRequests: 20, Window: time.Minute, BlockDuration: 10 * time.Minute},
	User:   ScopeConfig{MaxRequests: 10, Window: time.Minute, BlockDuration: 5 * time.Minute},
}

// StrictProfile is the rate profile for the generation endpoint.
var StrictProfile = RateProfile{
	Name:   "strict",
	Global: ScopeConfig{MaxRequests: 50, Window: time.Minute},
	IP:     ScopeConfig{MaxRequests: 10, Window: time.Minute, BlockDuration: 15 * time.Minute},
	User:   ScopeConfig{MaxRequests: 5, Window: time.Minute, BlockDuration: 15 * time.Minute},
}

// rateEntry is the in-process window state for one (profile, scope,
// identifier) triple.
type rateEntry struct {
	count        int
	windowStart  time.Time
	window       time.Duration
	blockedUntil time.Time
}

// RateGate enforces sliding-minute limits across three scopes. Window
// counting is in-process; sticky blocks for the user and IP scopes are
// mirrored into the durable store so they survive a restart.
type RateGate struct {
	db  *gorm.DB
	now func() time.Time

	mu      sync.Mutex
	entries map[string]*rateEntry

	stopOnce sync.Once
	stop     chan struct{}
}

// NewRateGate creates a rate gate backed by the given store.
func NewRateGate(db *gorm.DB) *RateGate {
	return &RateGate{
		db:      db,
		now:     time.Now,
		entries: make(map[string]*rateEntry),
		stop:    make(chan struct{}),
	}
}

// Middleware returns a gin middleware applying the given profile.
func (g *RateGate) Middleware(p RateProfile) gin.HandlerFunc {
	return func(c *gin.Context) {
		now := g.now()

		// Global scope: in-process only, overload yields 503.
		if retry, ok := g.checkGlobal(p, now); !ok {
			c.Header("Retry-After", strconv.Itoa(retry))
			abortWithError(c, http.StatusServiceUnavailable, "SERVER_OVERLOADED", "server is overloaded, try again shortly")
			return
		}

		// IP scope.
		ip := c.ClientIP()
		res := g.checkScope(p.Name, models.ScopeIPMinute, ip, p.IP, now)
		if !res.allowed {
			c.Header("Retry-After", strconv.Itoa(res.retryAfter))
			code := "IP_RATE_LIMITED"
			if res.wasBlocked {
				code = "IP_BLOCKED"
			}
			abortWithError(c, http.StatusTooManyRequests, code, "too many requests from this address")
			return
		}

		// User scope. Runs after Authenticate, so user_id is present.
		userID := c.GetString("user_id")
		res = g.checkScope(p.Name, models.ScopeUserMinute, userID, p.User, now)
		c.Header("X-RateLimit-Limit", strconv.Itoa(p.User.MaxRequests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.remaining))
		c.Header("X-RateLimit-Reset", strconv.Itoa(res.reset))
		if !res.allowed {
			c.Header("Retry-After", strconv.Itoa(res.retryAfter))
			code := "RATE_LIMITED"
			if res.wasBlocked {
				code = "USER_BLOCKED"
			}
			abortWithError(c, http.StatusTooManyRequests, code, "too many requests, slow down")
			return
		}

		c.Next()
	}
}

type scopeResult struct {
	allowed    bool
	wasBlocked bool // denied by a pre-existing block rather than this window
	remaining  int
	reset      int // seconds until the window resets
	retryAfter int // seconds the caller should wait
}

// checkGlobal counts requests against the in-process global window.
// Returns (secondsUntilReset, allowed).
func (g *RateGate) checkGlobal(p RateProfile, now time.Time) (int, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	key := p.Name + ":global"
	e, ok := g.entries[key]
	if !ok || now.Sub(e.windowStart) >= p.Global.Window {
		g.entries[key] = &rateEntry{count: 1, windowStart: now, window: p.Global.Window}
		return 0, true
	}
	e.count++
	if e.count > p.Global.MaxRequests {
		return secondsUntil(e.windowStart.Add(p.Global.Window), now), false
	}
	return 0, true
}

// checkScope runs the full per-scope algorithm: fast in-memory block,
// durable block lookup, window count, block persistence on overflow.
func (g *RateGate) checkScope(profile, scopeType, identifier string, cfg ScopeConfig, now time.Time) scopeResult {
	key := profile + ":" + scopeType + ":" + identifier

	g.mu.Lock()
	e, ok := g.entries[key]
	if ok && e.blockedUntil.After(now) {
		retry := secondsUntil(e.blockedUntil, now)
		g.mu.Unlock()
		return scopeResult{wasBlocked: true, retryAfter: retry}
	}
	g.mu.Unlock()

	// Durable block record left by a previous process. Store errors fail
	// open: the in-memory window still enforces the short-term cap.
	if until, found := g.findBlock(scopeType, identifier, now); found {
		g.mirrorBlock(key, cfg, now, until)
		return scopeResult{wasBlocked: true, retryAfter: secondsUntil(until, now)}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	e, ok = g.entries[key]
	if !ok || now.Sub(e.windowStart) >= cfg.Window {
		e = &rateEntry{count: 1, windowStart: now, window: cfg.Window}
		g.entries[key] = e
	} else {
		e.count++
	}

	reset := secondsUntil(e.windowStart.Add(cfg.Window), now)
	if e.count > cfg.MaxRequests {
		e.blockedUntil = now.Add(cfg.BlockDuration)
		g.persistBlock(scopeType, identifier, e.windowStart, e.count, e.blockedUntil)
		return scopeResult{retryAfter: secondsUntil(e.blockedUntil, now), reset: reset}
	}

	return scopeResult{allowed: true, remaining: cfg.MaxRequests - e.count, reset: reset}
}

// mirrorBlock copies a durable block onto the in-memory entry. The entry
// observed before the store lookup may have been evicted or replaced while
// the lock was released, so the current one is re-fetched here.
func (g *RateGate) mirrorBlock(key string, cfg ScopeConfig, now, until time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, ok := g.entries[key]
	if !ok {
		e = &rateEntry{windowStart: now, window: cfg.Window}
		g.entries[key] = e
	}
	e.blockedUntil = until
}

// findBlock looks up an active durable block for the scope.
func (g *RateGate) findBlock(scopeType, identifier string, now time.Time) (time.Time, bool) {
	var stat models.RateLimitStat
	err := g.db.
		Where("type = ? AND identifier = ? AND blocked_until > ?", scopeType, identifier, now).
		Order("blocked_until DESC").
		First(&stat).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			log.Printf("[RateGate] block lookup failed for %s/%s: %v", scopeType, identifier, err)
		}
		return time.Time{}, false
	}
	return *stat.BlockedUntil, true
}

// persistBlock upserts the block record so it survives a restart.
func (g *RateGate) persistBlock(scopeType, identifier string, periodStart time.Time, count int, until time.Time) {
	stat := models.RateLimitStat{
		Type:         scopeType,
		Identifier:   identifier,
		PeriodStart:  periodStart,
		Count:        count,
		BlockedUntil: &until,
	}
	err := g.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "type"}, {Name: "identifier"}, {Name: "period_start"}},
		DoUpdates: clause.AssignmentColumns([]string{"count", "blocked_until", "updated_at"}),
	}).Create(&stat).Error
	if err != nil {
		log.Printf("[RateGate] failed to persist block for %s/%s: %v", scopeType, identifier, err)
	}
}

// StartSweep evicts expired in-memory entries on the given interval until
// Stop is called.
func (g *RateGate) StartSweep(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				g.sweep(g.now())
			case <-g.stop:
				return
			}
		}
	}()
}

// Stop terminates the sweep goroutine.
func (g *RateGate) Stop() {
	g.stopOnce.Do(func() { close(g.stop) })
}

func (g *RateGate) sweep(now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for key, e := range g.entries {
		if e.blockedUntil.After(now) {
			continue
		}
		if now.Sub(e.windowStart) >= e.window {
			delete(g.entries, key)
		}
	}
}

// ScopeSnapshot describes one live in-memory entry for the admin view.
type ScopeSnapshot struct {
	Key          string     `json:"key"`
	Count        int        `json:"count"`
	WindowStart  time.Time  `json:"window_start"`
	BlockedUntil *time.Time `json:"blocked_until,omitempty"`
}

// Snapshot returns the current in-memory state, for /admin/stats.
func (g *RateGate) Snapshot() []ScopeSnapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]ScopeSnapshot, 0, len(g.entries))
	for key, e := range g.entries {
		s := ScopeSnapshot{Key: key, Count: e.count, WindowStart: e.windowStart}
		if !e.blockedUntil.IsZero() {
			until := e.blockedUntil
			s.BlockedUntil = &until
		}
		out = append(out, s)
	}
	return out
}

func secondsUntil(t, now time.Time) int {
	s := int(t.Sub(now).Seconds() + 0.999)
	if s < 0 {
		return 0
	}
	return s
}
