package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/snapdish/backend/internal/models"
	"github.com/snapdish/backend/internal/types"
)

// respondError renders a typed domain error, or a generic 500 for
// anything untyped.
func respondError(c *gin.Context, err error) {
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.Status, gin.H{
			"success": false,
			"error":   appErr.Code,
			"message": appErr.Message,
		})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"error":   "INTERNAL_ERROR",
		"message": "an unexpected error occurred",
	})
}

func respondCode(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error":   code,
		"message": message,
	})
}

// userID returns the authenticated user's id set by the auth middleware.
func userID(c *gin.Context) string {
	return c.GetString("user_id")
}

func generationMode(isPremium bool) string {
	if isPremium {
		return models.GenerationModePremium
	}
	return models.GenerationModeFree
}

// localized picks the fr/en variant based on the request language.
func localized(language, fr, en string) string {
	if language == "fr" {
		return fr
	}
	return en
}

func premiumRequiredMessage(language string) string {
	return localized(language,
		"Vous avez utilisé toutes vos analyses gratuites. Passez à l'offre premium pour continuer.",
		"You have used all your free analyses. Upgrade to premium to continue.")
}

func analysisInProgressMessage(language string) string {
	return localized(language,
		"Une analyse est déjà en cours pour votre compte. Attendez qu'elle se termine.",
		"An analysis is already running for your account. Wait for it to finish.")
}

func costLimitMessage(language string) string {
	return localized(language,
		"Le service a atteint sa limite d'analyses pour le moment. Réessayez plus tard.",
		"The service has reached its analysis limit for now. Try again later.")
}
