package models

import "time"

// Counter scope types persisted in rate_limit_stats.
const (
	ScopeDailyGlobal  = "daily_global"
	ScopeHourlyGlobal = "hourly_global"
	ScopeDailyUser    = "daily_user"
	ScopeIPMinute     = "ip_minute"
	ScopeUserMinute   = "user_minute"
)

// RateLimitStat is a durable counter row. Identifier is "" for global
// scopes, the user id for user scopes and the IP literal for IP scopes.
// Rows are append-only within their period; a retention job deletes old
// ones.
type RateLimitStat struct {
	ID           uint       `gorm:"primarykey" json:"id"`
	Type         string     `gorm:"size:32;not null;uniqueIndex:idx_rate_limit_scope" json:"type"`
	Identifier   string     `gorm:"size:64;not null;uniqueIndex:idx_rate_limit_scope" json:"identifier"`
	PeriodStart  time.Time  `gorm:"not null;uniqueIndex:idx_rate_limit_scope" json:"period_start"`
	Count        int        `gorm:"not null;default:0" json:"count"`
	BlockedUntil *time.Time `json:"blocked_until"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TableName pins the name referenced by the raw increment expression.
func (RateLimitStat) TableName() string {
	return "rate_limit_stats"
}
