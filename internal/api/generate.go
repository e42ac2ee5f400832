package api

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/snapdish/backend/internal/service/platform"
	"github.com/snapdish/backend/internal/types"
)

const maxGenerateIngredients = 30

// Generate handles POST /generate: build a recipe from preferences, no
// video involved. Same admission sequence as analyze minus the duplicate
// lookups.
func (h *RecipeHandler) Generate(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)
	ownerID, err := uuid.Parse(uid)
	if err != nil {
		respondCode(c, http.StatusUnauthorized, "AUTH_INVALID", "token subject is not a valid id")
		return
	}

	var req types.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondCode(c, http.StatusBadRequest, "INVALID_LANGUAGE", "request body must be JSON")
		return
	}
	req.Normalize()

	if decision := h.costGate.Admit(ctx, uid); !decision.Allowed {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"success": false,
			"error":   decision.Code,
			"message": costLimitMessage(req.Language),
			"scope":   decision.Scope,
		})
		return
	}

	if code, msg := validateGenerateRequest(&req); code != "" {
		respondCode(c, http.StatusBadRequest, code, msg)
		return
	}

	if _, ok := h.locks.TryAcquire(uid, "generate"); !ok {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"success": false,
			"error":   "ANALYSIS_IN_PROGRESS",
			"message": analysisInProgressMessage(req.Language),
		})
		return
	}
	defer h.locks.Release(uid)

	status, err := h.quota.CanGenerate(ctx, uid)
	if err != nil {
		respondError(c, err)
		return
	}
	if !status.Allowed {
		respondCode(c, http.StatusForbidden, "PREMIUM_REQUIRED", premiumRequiredMessage(req.Language))
		return
	}

	result, err := h.pipeline.GenerateFromPreferences(ctx, &req)
	if err != nil {
		log.Printf("[Generate] pipeline failed: %v", err)
		respondError(c, err)
		return
	}

	recipe, err := h.recipes.CreateFromDraft(ctx, ownerID, result.Draft, nil, platform.Generated, nil, result.ImageData, generationMode(status.IsPremium))
	if err != nil {
		respondError(c, err)
		return
	}

	if !status.IsPremium {
		h.quota.Debit(ctx, uid)
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"recipe":    recipe,
		"user_id":   uid,
		"generated": true,
	})
}

// validateGenerateRequest checks the preferences against the closed
// vocabularies for the requested language. Returns an empty code when
// the request is valid.
func validateGenerateRequest(req *types.GenerateRequest) (code, message string) {
	if !types.IsSupportedLanguage(req.Language) {
		return "INVALID_LANGUAGE", "language must be fr or en"
	}
	if req.MealType != "" && !types.InVocabulary(types.MealTypes[req.Language], req.MealType) {
		return "INVALID_MEAL_TYPE", "unknown meal type: " + req.MealType
	}
	for _, d := range req.DietTypes {
		if !types.InVocabulary(types.DietTypes[req.Language], d) {
			return "INVALID_DIET_TYPES", "unknown diet type: " + d
		}
	}
	for _, e := range req.Equipment {
		if !types.InVocabulary(types.EquipmentSets[req.Language], e) {
			return "INVALID_EQUIPMENT", "unknown equipment: " + e
		}
	}
	if len(req.Ingredients) > maxGenerateIngredients {
		return "INVALID_INGREDIENTS", "too many ingredients"
	}
	for _, ing := range req.Ingredients {
		if strings.TrimSpace(ing) == "" {
			return "INVALID_INGREDIENTS", "ingredients must be non-empty strings"
		}
	}
	return "", ""
}
