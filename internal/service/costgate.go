package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/snapdish/backend/internal/models"
)

const (
	costCacheTTL       = 5 * time.Second
	costAlertThreshold = 0.8
)

// CostLimits holds the configured ceilings for the three cost counters.
type CostLimits struct {
	DailyGlobal  int
	HourlyGlobal int
	DailyUser    int
}

// CostDecision is the outcome of a cost-gate admission.
type CostDecision struct {
	Allowed   bool
	Code      string // denial code when not allowed
	Scope     string // counter type that triggered the denial
	Remaining int    // headroom in the triggering scope
}

// CostGate bounds daily and hourly spend with durable counters. Reads go
// through a short-TTL redis cache; increments hit the store atomically.
// On any store error the gate fails open: availability is preferred over
// blocking on a counter outage, and the rate gate plus quota ledger still
// bound the damage.
type CostGate struct {
	db     *gorm.DB
	cache  *redis.Client
	limits CostLimits
	now    func() time.Time
}

// NewCostGate creates a cost gate with the given limits.
func NewCostGate(db *gorm.DB, cache *redis.Client, limits CostLimits) *CostGate {
	return &CostGate{db: db, cache: cache, limits: limits, now: time.Now}
}

// Admit checks the three counters and, when all are under their limits,
// increments them atomically. Denials report the most specific scope:
// hourly global first, then daily global, then daily user.
func (g *CostGate) Admit(ctx context.Context, userID string) CostDecision {
	now := g.now()
	hourStart := now.Truncate(time.Hour)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	hourly, err := g.readCounter(ctx, models.ScopeHourlyGlobal, "", hourStart)
	if err != nil {
		log.Printf("[CostGate] store error reading hourly counter, failing open: %v", err)
		return CostDecision{Allowed: true}
	}
	daily, err := g.readCounter(ctx, models.ScopeDailyGlobal, "", dayStart)
	if err != nil {
		log.Printf("[CostGate] store error reading daily counter, failing open: %v", err)
		return CostDecision{Allowed: true}
	}
	user, err := g.readCounter(ctx, models.ScopeDailyUser, userID, dayStart)
	if err != nil {
		log.Printf("[CostGate] store error reading user counter, failing open: %v", err)
		return CostDecision{Allowed: true}
	}

	if hourly >= g.limits.HourlyGlobal {
		return CostDecision{Code: "HOURLY_LIMIT_REACHED", Scope: models.ScopeHourlyGlobal}
	}
	if daily >= g.limits.DailyGlobal {
		return CostDecision{Code: "DAILY_LIMIT_REACHED", Scope: models.ScopeDailyGlobal}
	}
	if user >= g.limits.DailyUser {
		return CostDecision{Code: "USER_DAILY_LIMIT_REACHED", Scope: models.ScopeDailyUser}
	}

	if err := g.increment(ctx, userID, hourStart, dayStart); err != nil {
		log.Printf("[CostGate] store error incrementing counters, failing open: %v", err)
		return CostDecision{Allowed: true}
	}

	alertAt := int(float64(g.limits.DailyGlobal) * costAlertThreshold)
	if daily < alertAt && daily+1 >= alertAt {
		log.Printf("[CostGate] warning: daily global count %d approaching limit %d", daily+1, g.limits.DailyGlobal)
	}

	g.invalidate(ctx, hourStart, dayStart, userID)

	return CostDecision{Allowed: true, Remaining: g.limits.DailyUser - user - 1}
}

// Snapshot returns the current counter values for the admin view. Reads
// bypass the cache.
func (g *CostGate) Snapshot(ctx context.Context) map[string]int {
	now := g.now()
	hourStart := now.Truncate(time.Hour)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	out := map[string]int{}
	if n, err := g.readStore(ctx, models.ScopeHourlyGlobal, "", hourStart); err == nil {
		out[models.ScopeHourlyGlobal] = n
	}
	if n, err := g.readStore(ctx, models.ScopeDailyGlobal, "", dayStart); err == nil {
		out[models.ScopeDailyGlobal] = n
	}
	return out
}

// readCounter consults the cache first, then the store, creating the row
// at zero if absent.
func (g *CostGate) readCounter(ctx context.Context, scopeType, identifier string, periodStart time.Time) (int, error) {
	key := costCacheKey(scopeType, identifier, periodStart)
	if g.cache != nil {
		if n, err := g.cache.Get(ctx, key).Int(); err == nil {
			return n, nil
		}
	}

	count, err := g.readStore(ctx, scopeType, identifier, periodStart)
	if err != nil {
		return 0, err
	}

	if g.cache != nil {
		if err := g.cache.Set(ctx, key, count, costCacheTTL).Err(); err != nil {
			log.Printf("[CostGate] cache set failed for %s: %v", key, err)
		}
	}
	return count, nil
}

func (g *CostGate) readStore(ctx context.Context, scopeType, identifier string, periodStart time.Time) (int, error) {
	stat := models.RateLimitStat{
		Type:        scopeType,
		Identifier:  identifier,
		PeriodStart: periodStart,
	}
	err := g.db.WithContext(ctx).
		Where("type = ? AND identifier = ? AND period_start = ?", scopeType, identifier, periodStart).
		FirstOrCreate(&stat).Error
	if err != nil {
		return 0, err
	}
	return stat.Count, nil
}

// increment bumps all three counters in one transaction, upserting rows
// keyed by (type, identifier, period_start).
func (g *CostGate) increment(ctx context.Context, userID string, hourStart, dayStart time.Time) error {
	rows := []models.RateLimitStat{
		{Type: models.ScopeHourlyGlobal, Identifier: "", PeriodStart: hourStart, Count: 1},
		{Type: models.ScopeDailyGlobal, Identifier: "", PeriodStart: dayStart, Count: 1},
		{Type: models.ScopeDailyUser, Identifier: userID, PeriodStart: dayStart, Count: 1},
	}
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range rows {
			err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "type"}, {Name: "identifier"}, {Name: "period_start"}},
				DoUpdates: clause.Assignments(map[string]interface{}{
					"count":      gorm.Expr("rate_limit_stats.count + 1"),
					"updated_at": g.now(),
				}),
			}).Create(&rows[i]).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (g *CostGate) invalidate(ctx context.Context, hourStart, dayStart time.Time, userID string) {
	if g.cache == nil {
		return
	}
	keys := []string{
		costCacheKey(models.ScopeHourlyGlobal, "", hourStart),
		costCacheKey(models.ScopeDailyGlobal, "", dayStart),
		costCacheKey(models.ScopeDailyUser, userID, dayStart),
	}
	if err := g.cache.Del(ctx, keys...).Err(); err != nil {
		log.Printf("[CostGate] cache invalidation failed: %v", err)
	}
}

func costCacheKey(scopeType, identifier string, periodStart time.Time) string {
	return fmt.Sprintf("costgate:%s:%s:%d", scopeType, identifier, periodStart.Unix())
}
