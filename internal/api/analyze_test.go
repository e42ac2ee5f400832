package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/snapdish/backend/internal/models"
	"github.com/snapdish/backend/internal/service"
	"github.com/snapdish/backend/internal/service/platform"
	"github.com/snapdish/backend/internal/testdb"
)

type testEnv struct {
	db      *gorm.DB
	recipes *service.RecipeService
	locks   *service.SingleFlight
	handler *RecipeHandler
	userID  uuid.UUID
}

// newTestEnv builds a handler over an in-memory store. The pipeline is
// wired with the given provider endpoint; paths that stop before the
// pipeline work with the zero stub.
func newTestEnv(t *testing.T, pipeline *service.Pipeline) *testEnv {
	t.Helper()
	db := testdb.Open(t)
	recipes := service.NewRecipeService(db, nil)
	locks := service.NewSingleFlight()
	costGate := service.NewCostGate(db, nil, service.CostLimits{
		DailyGlobal:  500,
		HourlyGlobal: 100,
		DailyUser:    50,
	})
	handler := NewRecipeHandler(
		platform.NewRegistry(nil),
		recipes,
		service.NewQuotaService(db),
		costGate,
		locks,
		pipeline,
	)
	return &testEnv{
		db:      db,
		recipes: recipes,
		locks:   locks,
		handler: handler,
		userID:  uuid.New(),
	}
}

func (e *testEnv) router(route string, h gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST(route, func(c *gin.Context) { c.Set("user_id", e.userID.String()) }, h)
	return r
}

func postJSON(t *testing.T, r *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func seedRecipe(t *testing.T, env *testEnv, owner uuid.UUID, sourceURL string) *models.Recipe {
	t.Helper()
	draft := &service.RecipeDraft{
		Title: "Poulet rôti",
		Ingredients: []service.DraftIngredient{
			{Name: "poulet"},
		},
		Steps: []service.DraftStep{
			{Order: 1, Text: "Cuire"},
		},
	}
	recipe, err := env.recipes.CreateFromDraft(
		context.Background(), owner, draft, &sourceURL, platform.TikTok, nil, nil, models.GenerationModeFree)
	require.NoError(t, err)
	return recipe
}

func TestAnalyzeValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	r := env.router("/analyze", env.handler.Analyze)

	w := postJSON(t, r, "/analyze", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "URL_MISSING", decodeBody(t, w)["error"])

	w = postJSON(t, r, "/analyze", map[string]string{"url": "https://youtu.be/a", "language": "de"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_LANGUAGE", decodeBody(t, w)["error"])

	w = postJSON(t, r, "/analyze", map[string]string{"url": "https://vimeo.com/123"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "PLATFORM_UNSUPPORTED", decodeBody(t, w)["error"])
}

func TestAnalyzeOwnerDuplicate(t *testing.T) {
	env := newTestEnv(t, nil)
	r := env.router("/analyze", env.handler.Analyze)

	sourceURL := "https://www.tiktok.com/@chef/video/42"
	seedRecipe(t, env, env.userID, sourceURL)

	w := postJSON(t, r, "/analyze", map[string]string{"url": sourceURL + "?lang=fr"})
	assert.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, true, body["alreadyExists"])
	assert.Nil(t, body["duplicated"])

	// The duplicate hit is free: the profile was never created, let alone
	// debited.
	var count int64
	require.NoError(t, env.db.Model(&models.Profile{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestAnalyzeGlobalDuplicateClonesAndDebits(t *testing.T) {
	env := newTestEnv(t, nil)
	r := env.router("/analyze", env.handler.Analyze)

	sourceURL := "https://www.tiktok.com/@chef/video/42"
	other := uuid.New()
	src := seedRecipe(t, env, other, sourceURL)
	require.NoError(t, env.db.Model(&models.Recipe{}).
		Where("id = ?", src.ID).
		UpdateColumn("generation_mode", models.GenerationModePremium).Error)

	w := postJSON(t, r, "/analyze", map[string]string{"url": sourceURL})
	assert.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, true, body["alreadyExists"])
	assert.Equal(t, true, body["duplicated"])

	recipe := body["recipe"].(map[string]interface{})
	assert.NotEqual(t, src.ID.String(), recipe["id"])
	assert.Equal(t, env.userID.String(), recipe["user_id"])
	// The free caller's clone is marked free even though the source owner
	// generated it on a premium plan.
	assert.Equal(t, models.GenerationModeFree, recipe["generation_mode"])

	// The clone consumed one free generation.
	var profile models.Profile
	require.NoError(t, env.db.First(&profile, "id = ?", env.userID).Error)
	assert.Equal(t, 2, profile.FreeGenerationsRemaining)

	// The lock was released.
	assert.Equal(t, 0, env.locks.InFlight())
}

func TestAnalyzeQuotaExhausted(t *testing.T) {
	env := newTestEnv(t, nil)
	r := env.router("/analyze", env.handler.Analyze)

	require.NoError(t, env.db.Create(&models.Profile{ID: env.userID}).Error)
	require.NoError(t, env.db.Model(&models.Profile{}).
		Where("id = ?", env.userID).
		UpdateColumn("free_generations_remaining", 0).Error)

	// A fresh URL reaches the quota check and stops there.
	w := postJSON(t, r, "/analyze", map[string]string{"url": "https://youtu.be/fresh"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "PREMIUM_REQUIRED", decodeBody(t, w)["error"])
	assert.Equal(t, 0, env.locks.InFlight())
}

func TestAnalyzeSingleFlightConflict(t *testing.T) {
	env := newTestEnv(t, nil)
	r := env.router("/analyze", env.handler.Analyze)

	_, ok := env.locks.TryAcquire(env.userID.String(), "https://youtu.be/busy")
	require.True(t, ok)

	w := postJSON(t, r, "/analyze", map[string]string{"url": "https://youtu.be/other"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "ANALYSIS_IN_PROGRESS", body["error"])
	assert.Equal(t, "https://youtu.be/busy", body["current_url"])

	// The conflicting request must not release the holder's lock.
	assert.Equal(t, 1, env.locks.InFlight())
}

func TestAnalyzeCostGateDenial(t *testing.T) {
	db := testdb.Open(t)
	recipes := service.NewRecipeService(db, nil)
	locks := service.NewSingleFlight()
	handler := NewRecipeHandler(
		platform.NewRegistry(nil),
		recipes,
		service.NewQuotaService(db),
		service.NewCostGate(db, nil, service.CostLimits{DailyGlobal: 500, HourlyGlobal: 0, DailyUser: 50}),
		locks,
		nil,
	)
	env := &testEnv{db: db, recipes: recipes, locks: locks, handler: handler, userID: uuid.New()}
	r := env.router("/analyze", env.handler.Analyze)

	w := postJSON(t, r, "/analyze", map[string]string{"url": "https://youtu.be/abc"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "HOURLY_LIMIT_REACHED", decodeBody(t, w)["error"])
}
