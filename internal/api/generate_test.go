package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snapdish/backend/internal/models"
	"github.com/snapdish/backend/internal/service"
)

// fakeChatServer mimics the chat completions API, always answering with
// the given content.
func fakeChatServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NotEmpty(t, r.Header.Get("Authorization"))

		resp := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": content}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func generationDraftJSON(t *testing.T) string {
	t.Helper()
	draft := map[string]interface{}{
		"title":     "Gratin dauphinois",
		"servings":  4,
		"meal_type": "dîner",
		"diet_type": []string{"végétarien"},
		"equipment": []string{"four"},
		"ingredients": []map[string]interface{}{
			{"name": "pommes de terre", "quantity": 1, "unit": "kg"},
			{"name": "crème", "quantity": 40, "unit": "cl"},
		},
		"steps": []map[string]interface{}{
			{"order": 1, "text": "Émincer les pommes de terre"},
			{"order": 2, "text": "Enfourner", "duration": 50, "temperature": 180},
		},
	}
	data, err := json.Marshal(draft)
	require.NoError(t, err)
	return string(data)
}

func newGenerateEnv(t *testing.T, chatContent string) *testEnv {
	t.Helper()
	srv := fakeChatServer(t, chatContent)
	t.Cleanup(srv.Close)
	t.Setenv("OPENAI_CHAT_API_URL", srv.URL)

	provider, err := service.NewOpenAIProvider("test-key", "gpt-4o-mini")
	require.NoError(t, err)
	pipeline := service.NewPipeline(nil, service.NewRecipeExtractor(provider), nil)
	return newTestEnv(t, pipeline)
}

func TestGenerateValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	r := env.router("/generate", env.handler.Generate)

	cases := []struct {
		body map[string]interface{}
		code string
	}{
		{map[string]interface{}{"language": "es"}, "INVALID_LANGUAGE"},
		{map[string]interface{}{"mealType": "brunch"}, "INVALID_MEAL_TYPE"},
		{map[string]interface{}{"dietTypes": []string{"crudivore"}}, "INVALID_DIET_TYPES"},
		{map[string]interface{}{"equipment": []string{"lance-flammes"}}, "INVALID_EQUIPMENT"},
		{map[string]interface{}{"ingredients": []string{"  "}}, "INVALID_INGREDIENTS"},
		{map[string]interface{}{"language": "en", "mealType": "dîner"}, "INVALID_MEAL_TYPE"},
	}
	for _, tc := range cases {
		w := postJSON(t, r, "/generate", tc.body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, tc.code, decodeBody(t, w)["error"], tc.code)
	}
}

func TestGenerateSuccess(t *testing.T) {
	env := newGenerateEnv(t, generationDraftJSON(t))
	r := env.router("/generate", env.handler.Generate)

	w := postJSON(t, r, "/generate", map[string]interface{}{
		"mealType":    "dîner",
		"dietTypes":   []string{"végétarien"},
		"equipment":   []string{"four"},
		"ingredients": []string{"pommes de terre"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, true, body["generated"])

	recipe := body["recipe"].(map[string]interface{})
	assert.Equal(t, "Gratin dauphinois", recipe["title"])
	assert.Equal(t, "generated", recipe["platform"])
	assert.Nil(t, recipe["source_url"])
	assert.Len(t, recipe["ingredients"], 2)
	assert.Len(t, recipe["steps"], 2)

	// One free generation was debited and the lock released.
	var profile models.Profile
	require.NoError(t, env.db.First(&profile, "id = ?", env.userID).Error)
	assert.Equal(t, 2, profile.FreeGenerationsRemaining)
	assert.Equal(t, 0, env.locks.InFlight())
}

func TestGenerateQuotaExhausted(t *testing.T) {
	env := newGenerateEnv(t, generationDraftJSON(t))
	r := env.router("/generate", env.handler.Generate)

	require.NoError(t, env.db.Create(&models.Profile{ID: env.userID}).Error)
	require.NoError(t, env.db.Model(&models.Profile{}).
		Where("id = ?", env.userID).
		UpdateColumn("free_generations_remaining", 0).Error)

	w := postJSON(t, r, "/generate", map[string]interface{}{"language": "fr"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "PREMIUM_REQUIRED", decodeBody(t, w)["error"])
}

func TestGeneratePremiumNotDebited(t *testing.T) {
	env := newGenerateEnv(t, generationDraftJSON(t))
	r := env.router("/generate", env.handler.Generate)

	require.NoError(t, env.db.Create(&models.Profile{
		ID:                       env.userID,
		IsPremium:                true,
		FreeGenerationsRemaining: 3,
	}).Error)

	w := postJSON(t, r, "/generate", map[string]interface{}{"language": "fr"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var profile models.Profile
	require.NoError(t, env.db.First(&profile, "id = ?", env.userID).Error)
	assert.Equal(t, 3, profile.FreeGenerationsRemaining)
}

func TestGenerateNotRecipeLeavesQuotaUntouched(t *testing.T) {
	env := newGenerateEnv(t, `{"error": "NOT_RECIPE", "message": "Je ne peux pas proposer cela."}`)
	r := env.router("/generate", env.handler.Generate)

	w := postJSON(t, r, "/generate", map[string]interface{}{"language": "fr"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "NOT_RECIPE", body["error"])
	assert.Equal(t, "Je ne peux pas proposer cela.", body["message"])

	var profile models.Profile
	require.NoError(t, env.db.First(&profile, "id = ?", env.userID).Error)
	assert.Equal(t, 3, profile.FreeGenerationsRemaining)
	assert.Equal(t, 0, env.locks.InFlight())
}
