package models

import (
	"time"

	"github.com/google/uuid"
)

// Profile mirrors the identity provider's per-user row. The ID matches the
// "sub" claim of the user's token. Premium status and the free-generation
// counter live here; everything else is owned by the provider.
type Profile struct {
	ID                       uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Email                    string    `gorm:"size:255" json:"email"`
	IsPremium                bool      `gorm:"not null;default:false" json:"is_premium"`
	FreeGenerationsRemaining int       `gorm:"not null;default:3" json:"free_generations_remaining"`
	CreatedAt                time.Time `json:"created_at"`
	UpdatedAt                time.Time `json:"updated_at"`
}
