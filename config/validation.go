package config

import "fmt"

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateConfig checks that the loaded configuration is usable. Provider
// keys are validated lazily by the services that need them; here we only
// enforce what every deployment requires to boot safely.
func ValidateConfig(cfg *Config) error {
	if cfg.Port == "" {
		return ValidationError{Field: "PORT", Message: "must not be empty"}
	}
	if cfg.SupabaseJWTSecret == "" {
		return ValidationError{Field: "SUPABASE_JWT_SECRET", Message: "is required"}
	}
	switch cfg.AIProvider {
	case "openai", "gemini":
	default:
		return ValidationError{Field: "AI_PROVIDER", Message: "must be 'openai' or 'gemini'"}
	}
	if cfg.DailyGlobalLimit <= 0 {
		return ValidationError{Field: "DAILY_GLOBAL_LIMIT", Message: "must be positive"}
	}
	if cfg.DailyUserLimit <= 0 {
		return ValidationError{Field: "DAILY_USER_LIMIT", Message: "must be positive"}
	}
	if cfg.HourlyGlobalLimit <= 0 {
		return ValidationError{Field: "HOURLY_GLOBAL_LIMIT", Message: "must be positive"}
	}
	return nil
}
