package service

import (
	"log"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/snapdish/backend/internal/models"
)

// Janitor deletes rate-limit counter rows older than the retention
// window. Rows with an active block are kept until the block elapses.
type Janitor struct {
	db        *gorm.DB
	interval  time.Duration
	retention time.Duration
	now       func() time.Time

	stopOnce sync.Once
	stop     chan struct{}
}

// NewJanitor creates a retention job over rate_limit_stats.
func NewJanitor(db *gorm.DB, interval, retention time.Duration) *Janitor {
	return &Janitor{
		db:        db,
		interval:  interval,
		retention: retention,
		now:       time.Now,
		stop:      make(chan struct{}),
	}
}

// Start runs the cleanup loop until Stop is called.
func (j *Janitor) Start() {
	go func() {
		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				j.RunOnce()
			case <-j.stop:
				return
			}
		}
	}()
}

// Stop terminates the cleanup loop.
func (j *Janitor) Stop() {
	j.stopOnce.Do(func() { close(j.stop) })
}

// RunOnce performs a single cleanup pass.
func (j *Janitor) RunOnce() {
	now := j.now()
	cutoff := now.Add(-j.retention)
	result := j.db.
		Where("period_start < ? AND (blocked_until IS NULL OR blocked_until < ?)", cutoff, now).
		Delete(&models.RateLimitStat{})
	if result.Error != nil {
		log.Printf("[Janitor] cleanup failed: %v", result.Error)
		return
	}
	if result.RowsAffected > 0 {
		log.Printf("[Janitor] deleted %d expired rate-limit rows", result.RowsAffected)
	}
}
