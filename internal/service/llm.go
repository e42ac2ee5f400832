package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/snapdish/backend/internal/types"
)

const (
	extractTemperature  = 0.3
	generateTemperature = 0.7
)

// DraftIngredient is an ingredient as returned by the LLM.
type DraftIngredient struct {
	Name     string   `json:"name"`
	Quantity *float64 `json:"quantity"`
	Unit     *string  `json:"unit"`
}

// DraftStep is a step as returned by the LLM.
type DraftStep struct {
	Order           int      `json:"order"`
	Text            string   `json:"text"`
	Duration        *int     `json:"duration"`
	Temperature     *int     `json:"temperature"`
	IngredientsUsed []string `json:"ingredients_used"`
}

// FlexibleStringList accepts a string, a list or null; it always decodes
// to a list. The LLM occasionally returns a bare string for single-value
// fields.
type FlexibleStringList []string

func (l *FlexibleStringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*l = list
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if single == "" {
			*l = FlexibleStringList{}
		} else {
			*l = FlexibleStringList{single}
		}
		return nil
	}

	if string(data) == "null" {
		*l = FlexibleStringList{}
		return nil
	}

	return fmt.Errorf("invalid string list: %s", string(data))
}

// RecipeDraft is the structured recipe the LLM returns. Keys are English;
// textual values are in the caller's requested language.
type RecipeDraft struct {
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`

	Title         string             `json:"title"`
	PrepTime      *int               `json:"prep_time"`
	CookTime      *int               `json:"cook_time"`
	TotalTime     *int               `json:"total_time"`
	Servings      *int               `json:"servings"`
	CuisineOrigin *string            `json:"cuisine_origin"`
	MealType      *string            `json:"meal_type"`
	DietType      FlexibleStringList `json:"diet_type"`
	Calories      *float64           `json:"calories"`
	Proteins      *float64           `json:"proteins"`
	Carbs         *float64           `json:"carbs"`
	Fats          *float64           `json:"fats"`
	Equipment     []string           `json:"equipment"`
	Ingredients   []DraftIngredient  `json:"ingredients"`
	Steps         []DraftStep        `json:"steps"`
}

// RecipeExtractor turns transcripts or user preferences into structured
// recipe drafts through the configured text provider.
type RecipeExtractor struct {
	provider TextProvider
}

// NewRecipeExtractor creates a RecipeExtractor instance
func NewRecipeExtractor(provider TextProvider) *RecipeExtractor {
	return &RecipeExtractor{provider: provider}
}

// ExtractRecipe builds a recipe from a video transcript and the cleaned
// video description.
func (e *RecipeExtractor) ExtractRecipe(ctx context.Context, transcript, description, language string) (*RecipeDraft, error) {
	system := extractionSystemPrompt(language)

	var user strings.Builder
	if description != "" {
		user.WriteString("Video description: ")
		user.WriteString(description)
		user.WriteString("\n\n")
	}
	user.WriteString("Transcript:\n")
	user.WriteString(transcript)

	content, err := e.provider.Complete(ctx, system, user.String(), extractTemperature)
	if err != nil {
		return nil, fmt.Errorf("extraction request failed: %w", err)
	}

	return parseDraft(content, language)
}

// GenerateRecipe builds a recipe from user preferences, with no video
// involved.
func (e *RecipeExtractor) GenerateRecipe(ctx context.Context, req *types.GenerateRequest) (*RecipeDraft, error) {
	system := generationSystemPrompt(req.Language)

	var user strings.Builder
	user.WriteString("Create a recipe matching these preferences.\n")
	if req.MealType != "" {
		fmt.Fprintf(&user, "Meal type: %s\n", req.MealType)
	}
	if len(req.DietTypes) > 0 {
		fmt.Fprintf(&user, "Diet types: %s\n", strings.Join(req.DietTypes, ", "))
	}
	if len(req.Equipment) > 0 {
		fmt.Fprintf(&user, "Available equipment: %s\n", strings.Join(req.Equipment, ", "))
	}
	if len(req.Ingredients) > 0 {
		fmt.Fprintf(&user, "Ingredients to use: %s\n", strings.Join(req.Ingredients, ", "))
	}

	content, err := e.provider.Complete(ctx, system, user.String(), generateTemperature)
	if err != nil {
		return nil, fmt.Errorf("generation request failed: %w", err)
	}

	return parseDraft(content, req.Language)
}

// parseDraft decodes the provider output, unwrapping code fences and
// translating the NOT_RECIPE verdict into a typed domain error.
func parseDraft(content, language string) (*RecipeDraft, error) {
	content = StripCodeFences(content)

	var draft RecipeDraft
	if err := json.Unmarshal([]byte(content), &draft); err != nil {
		return nil, fmt.Errorf("failed to parse recipe JSON: %w", err)
	}

	if draft.Error == "NOT_RECIPE" {
		message := draft.Message
		if message == "" {
			message = notRecipeMessage(language)
		}
		return nil, types.NewAppError(http.StatusBadRequest, "NOT_RECIPE", message)
	}
	if draft.Title == "" {
		return nil, fmt.Errorf("recipe draft has no title")
	}

	normalizeDraft(&draft, language)
	return &draft, nil
}

// normalizeDraft coerces the draft into the closed vocabularies: diet
// types become a list, unknown cuisine/meal values become null, equipment
// is restricted to the per-language set, step order is made dense from 1.
func normalizeDraft(draft *RecipeDraft, language string) {
	if draft.DietType == nil {
		draft.DietType = FlexibleStringList{}
	}
	draft.DietType = types.FilterVocabulary(types.DietTypes[language], draft.DietType)

	if draft.CuisineOrigin != nil && !types.InVocabulary(types.CuisineOrigins[language], *draft.CuisineOrigin) {
		draft.CuisineOrigin = nil
	}
	if draft.MealType != nil && !types.InVocabulary(types.MealTypes[language], *draft.MealType) {
		draft.MealType = nil
	}

	draft.Equipment = types.FilterVocabulary(types.EquipmentSets[language], draft.Equipment)

	for i := range draft.Steps {
		draft.Steps[i].Order = i + 1
		if draft.Steps[i].IngredientsUsed == nil {
			draft.Steps[i].IngredientsUsed = []string{}
		}
	}
}

// StripCodeFences removes a markdown code fence wrapper when the provider
// ignores the JSON-only instruction.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func notRecipeMessage(language string) string {
	if language == "fr" {
		return "Ce lien ne semble pas contenir de recette de cuisine."
	}
	return "This link does not appear to contain a cooking recipe."
}

// extractionSystemPrompt constrains the model to the recipe JSON schema,
// with textual values in the requested language.
func extractionSystemPrompt(language string) string {
	return fmt.Sprintf(`You are a professional chef assistant. You receive the transcript of a short cooking video, possibly with its description. Decide whether it describes a real cooking recipe.

If the content is NOT about cooking a recipe, respond with exactly:
{"error": "NOT_RECIPE", "message": "<short explanation in %[1]s>"}

Otherwise respond with a JSON object using these English keys, with all textual values written in %[1]s:
{
    "title": "Recipe name",
    "prep_time": 15,
    "cook_time": 30,
    "total_time": 45,
    "servings": 4,
    "cuisine_origin": "One of: %[2]s, or null",
    "meal_type": "One of: %[3]s, or null",
    "diet_type": ["Zero or more of: %[4]s"],
    "calories": 350,
    "proteins": 15,
    "carbs": 45,
    "fats": 12,
    "equipment": ["Zero or more of: %[5]s"],
    "ingredients": [
        {"name": "flour", "quantity": 250, "unit": "g"}
    ],
    "steps": [
        {"order": 1, "text": "Mix the dry ingredients", "duration": 5, "temperature": null, "ingredients_used": ["flour"]}
    ]
}

Notes: times are minutes, temperature is degrees Celsius, quantity must be a number or null, nutrition fields may be null. Only use ingredient names from the same recipe in ingredients_used. Respond with JSON only.`,
		languageName(language),
		strings.Join(types.CuisineOrigins[language], ", "),
		strings.Join(types.MealTypes[language], ", "),
		strings.Join(types.DietTypes[language], ", "),
		strings.Join(types.EquipmentSets[language], ", "))
}

// generationSystemPrompt adds the "real, existing recipe" discipline used
// when no video is involved.
func generationSystemPrompt(language string) string {
	return fmt.Sprintf(`You are a professional chef assistant. Propose one real, existing recipe matching the user's preferences. Never invent fantasy dishes; pick something a cookbook would contain. Ignore preference values that are inconsistent with each other.

Respond with a JSON object using these English keys, with all textual values written in %[1]s:
{
    "title": "Recipe name",
    "prep_time": 15,
    "cook_time": 30,
    "total_time": 45,
    "servings": 4,
    "cuisine_origin": "One of: %[2]s, or null",
    "meal_type": "One of: %[3]s, or null",
    "diet_type": ["Zero or more of: %[4]s"],
    "calories": 350,
    "proteins": 15,
    "carbs": 45,
    "fats": 12,
    "equipment": ["Zero or more of: %[5]s"],
    "ingredients": [
        {"name": "flour", "quantity": 250, "unit": "g"}
    ],
    "steps": [
        {"order": 1, "text": "Mix the dry ingredients", "duration": 5, "temperature": null, "ingredients_used": ["flour"]}
    ]
}

Notes: times are minutes, temperature is degrees Celsius, quantity must be a number or null, nutrition fields may be null. Respond with JSON only.`,
		languageName(language),
		strings.Join(types.CuisineOrigins[language], ", "),
		strings.Join(types.MealTypes[language], ", "),
		strings.Join(types.DietTypes[language], ", "),
		strings.Join(types.EquipmentSets[language], ", "))
}

func languageName(code string) string {
	if code == "fr" {
		return "French"
	}
	return "English"
}
