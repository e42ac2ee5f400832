package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/snapdish/backend/internal/service"
	"github.com/snapdish/backend/internal/service/platform"
	"github.com/snapdish/backend/internal/types"
)

// RecipeHandler owns the two billable endpoints. Both run the same
// admission sequence; the analyze path adds the duplicate lookups and the
// video pipeline.
type RecipeHandler struct {
	registry *platform.Registry
	recipes  *service.RecipeService
	quota    *service.QuotaService
	costGate *service.CostGate
	locks    *service.SingleFlight
	pipeline *service.Pipeline
}

// NewRecipeHandler creates a RecipeHandler instance
func NewRecipeHandler(
	registry *platform.Registry,
	recipes *service.RecipeService,
	quota *service.QuotaService,
	costGate *service.CostGate,
	locks *service.SingleFlight,
	pipeline *service.Pipeline,
) *RecipeHandler {
	return &RecipeHandler{
		registry: registry,
		recipes:  recipes,
		quota:    quota,
		costGate: costGate,
		locks:    locks,
		pipeline: pipeline,
	}
}

// Analyze handles POST /analyze: turn a video URL into a persisted
// recipe. Ordering matters here; every gate runs before any provider is
// paid.
func (h *RecipeHandler) Analyze(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)
	ownerID, err := uuid.Parse(uid)
	if err != nil {
		respondCode(c, http.StatusUnauthorized, "AUTH_INVALID", "token subject is not a valid id")
		return
	}

	var req types.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondCode(c, http.StatusBadRequest, "URL_MISSING", "request body must be JSON with a url field")
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

	if req.URL == "" {
		respondCode(c, http.StatusBadRequest, "URL_MISSING", "url is required")
		return
	}
	if !types.IsSupportedLanguage(req.Language) {
		respondCode(c, http.StatusBadRequest, "INVALID_LANGUAGE", "language must be fr or en")
		return
	}

	handler, err := h.registry.Detect(req.URL)
	if err != nil {
		respondCode(c, http.StatusBadRequest, "PLATFORM_UNSUPPORTED",
			localized(req.Language,
				"Cette plateforme vidéo n'est pas prise en charge.",
				"This video platform is not supported."))
		return
	}
	normalizedURL := platform.NormalizeURL(req.URL)

	// Owner duplicate: free, no lock, no quota.
	if existing, err := h.recipes.FindByOwnerAndURL(ctx, ownerID, normalizedURL); err != nil {
		respondError(c, err)
		return
	} else if existing != nil {
		c.JSON(http.StatusOK, gin.H{
			"success":       true,
			"recipe":        existing,
			"user_id":       uid,
			"alreadyExists": true,
		})
		return
	}

	if current, ok := h.locks.TryAcquire(uid, normalizedURL); !ok {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"success":     false,
			"error":       "ANALYSIS_IN_PROGRESS",
			"message":     analysisInProgressMessage(req.Language),
			"current_url": current,
		})
		return
	}
	defer h.locks.Release(uid)

	// Global duplicate: clone instead of re-running the pipeline. Clones
	// are billable like a fresh analysis.
	if source, err := h.recipes.FindByURL(ctx, normalizedURL); err != nil {
		respondError(c, err)
		return
	} else if source != nil {
		status, err := h.quota.CanGenerate(ctx, uid)
		if err != nil {
			respondError(c, err)
			return
		}
		if !status.Allowed {
			respondCode(c, http.StatusForbidden, "PREMIUM_REQUIRED", premiumRequiredMessage(req.Language))
			return
		}
		clone, err := h.recipes.Clone(ctx, ownerID, source, generationMode(status.IsPremium))
		if err != nil {
			respondError(c, err)
			return
		}
		if !status.IsPremium {
			h.quota.Debit(ctx, uid)
		}
		c.JSON(http.StatusOK, gin.H{
			"success":       true,
			"recipe":        clone,
			"user_id":       uid,
			"alreadyExists": true,
			"duplicated":    true,
		})
		return
	}

	status, err := h.quota.CanGenerate(ctx, uid)
	if err != nil {
		respondError(c, err)
		return
	}
	if !status.Allowed {
		respondCode(c, http.StatusForbidden, "PREMIUM_REQUIRED", premiumRequiredMessage(req.Language))
		return
	}

	result, err := h.pipeline.AnalyzeVideo(ctx, handler, req.URL, req.Language)
	if err != nil {
		log.Printf("[Analyze] pipeline failed for %s: %v", normalizedURL, err)
		respondError(c, err)
		return
	}

	recipe, err := h.recipes.CreateFromDraft(ctx, ownerID, result.Draft, &req.URL, handler.Name(), result.Metadata, nil, generationMode(status.IsPremium))
	if err != nil {
		respondError(c, err)
		return
	}

	if !status.IsPremium {
		h.quota.Debit(ctx, uid)
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"recipe":  recipe,
		"user_id": uid,
	})
}
