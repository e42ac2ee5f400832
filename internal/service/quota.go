package service

import (
	"context"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/snapdish/backend/internal/models"
)

// QuotaService reads premium status and the free-generation counter, and
// debits the counter on new billable work.
type QuotaService struct {
	db *gorm.DB
}

// QuotaStatus is the result of a quota check.
type QuotaStatus struct {
	Allowed       bool `json:"allowed"`
	IsPremium     bool `json:"is_premium"`
	FreeRemaining int  `json:"free_remaining"`
}

// NewQuotaService creates a quota ledger backed by the profiles table.
func NewQuotaService(db *gorm.DB) *QuotaService {
	return &QuotaService{db: db}
}

// CanGenerate reports whether the user may perform billable work: premium
// users always may, free users while their counter is positive.
func (s *QuotaService) CanGenerate(ctx context.Context, userID string) (QuotaStatus, error) {
	profile, err := s.profile(ctx, userID)
	if err != nil {
		return QuotaStatus{}, err
	}
	return QuotaStatus{
		Allowed:       profile.IsPremium || profile.FreeGenerationsRemaining > 0,
		IsPremium:     profile.IsPremium,
		FreeRemaining: profile.FreeGenerationsRemaining,
	}, nil
}

// Debit decrements the free-generation counter for non-premium users.
// Never raises: losing a debit degrades revenue protection, not the
// correctness of the returned recipe.
func (s *QuotaService) Debit(ctx context.Context, userID string) {
	id, err := uuid.Parse(userID)
	if err != nil {
		log.Printf("[Quota] debit skipped, bad user id %q: %v", userID, err)
		return
	}
	result := s.db.WithContext(ctx).Model(&models.Profile{}).
		Where("id = ? AND is_premium = ? AND free_generations_remaining > 0", id, false).
		UpdateColumn("free_generations_remaining", gorm.Expr("free_generations_remaining - 1"))
	if result.Error != nil {
		log.Printf("[Quota] debit failed for user %s: %v", userID, result.Error)
	}
}

func (s *QuotaService) profile(ctx context.Context, userID string) (*models.Profile, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, err
	}
	var profile models.Profile
	err = s.db.WithContext(ctx).
		Where(models.Profile{ID: id}).
		Attrs(models.Profile{FreeGenerationsRemaining: 3}).
		FirstOrCreate(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}
