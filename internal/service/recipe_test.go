package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snapdish/backend/internal/models"
	"github.com/snapdish/backend/internal/service/platform"
	"github.com/snapdish/backend/internal/testdb"
)

func intPtr(n int) *int { return &n }

func floatPtr(f float64) *float64 { return &f }

func strPtr(s string) *string { return &s }

func testDraft() *RecipeDraft {
	return &RecipeDraft{
		Title:         "Poulet rôti",
		PrepTime:      intPtr(15),
		CookTime:      intPtr(60),
		TotalTime:     intPtr(75),
		Servings:      intPtr(4),
		CuisineOrigin: strPtr("française"),
		MealType:      strPtr("dîner"),
		DietType:      FlexibleStringList{},
		Equipment:     []string{"four"},
		Ingredients: []DraftIngredient{
			{Name: "poulet fermier", Quantity: floatPtr(1), Unit: strPtr("pièce")},
			{Name: "beurre", Quantity: floatPtr(50), Unit: strPtr("g")},
		},
		Steps: []DraftStep{
			{Order: 1, Text: "Préchauffer le four", Duration: intPtr(10), Temperature: intPtr(200)},
			{Order: 2, Text: "Enfourner le poulet", Duration: intPtr(60), IngredientsUsed: []string{"poulet fermier"}},
		},
	}
}

func TestCreateFromDraftLinksFoodItems(t *testing.T) {
	db := testdb.Open(t)
	svc := NewRecipeService(db, nil)
	ctx := context.Background()

	poulet := models.FoodItem{Name: "poulet"}
	require.NoError(t, db.Create(&poulet).Error)

	owner := uuid.New()
	sourceURL := "https://www.tiktok.com/@chef/video/42"
	recipe, err := svc.CreateFromDraft(ctx, owner, testDraft(), &sourceURL, platform.TikTok, nil, nil, models.GenerationModeFree)
	require.NoError(t, err)

	assert.Equal(t, owner, recipe.UserID)
	assert.Equal(t, "tiktok", recipe.Platform)
	require.NotNil(t, recipe.SourceURL)
	assert.Equal(t, sourceURL, *recipe.SourceURL)
	assert.Nil(t, recipe.ImageURL)

	require.Len(t, recipe.Ingredients, 2)
	byName := map[string]models.Ingredient{}
	for _, ing := range recipe.Ingredients {
		byName[ing.Name] = ing
	}
	require.NotNil(t, byName["poulet fermier"].FoodItemID)
	assert.Equal(t, poulet.ID, *byName["poulet fermier"].FoodItemID)
	assert.Nil(t, byName["beurre"].FoodItemID)
}

func TestHydrationOrdering(t *testing.T) {
	db := testdb.Open(t)
	svc := NewRecipeService(db, nil)
	ctx := context.Background()

	owner := uuid.New()
	recipe, err := svc.CreateFromDraft(ctx, owner, testDraft(), nil, platform.Generated, nil, nil, "")
	require.NoError(t, err)

	loaded, err := svc.Get(ctx, recipe.ID)
	require.NoError(t, err)

	// Ingredients come back by name, steps by order.
	require.Len(t, loaded.Ingredients, 2)
	assert.Equal(t, "beurre", loaded.Ingredients[0].Name)
	assert.Equal(t, "poulet fermier", loaded.Ingredients[1].Name)
	require.Len(t, loaded.Steps, 2)
	assert.Equal(t, 1, loaded.Steps[0].Order)
	assert.Equal(t, 2, loaded.Steps[1].Order)
}

func TestFindByURLPrefixMatch(t *testing.T) {
	db := testdb.Open(t)
	svc := NewRecipeService(db, nil)
	ctx := context.Background()

	owner := uuid.New()
	stored := "https://www.tiktok.com/@chef/video/42?is_copy_url=1"
	_, err := svc.CreateFromDraft(ctx, owner, testDraft(), &stored, platform.TikTok, nil, nil, models.GenerationModeFree)
	require.NoError(t, err)

	normalized := platform.NormalizeURL("https://www.tiktok.com/@chef/video/42?lang=fr")

	found, err := svc.FindByOwnerAndURL(ctx, owner, normalized)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Len(t, found.Ingredients, 2)

	// A different owner does not match the owner-scoped lookup, but the
	// global one does.
	other, err := svc.FindByOwnerAndURL(ctx, uuid.New(), normalized)
	require.NoError(t, err)
	assert.Nil(t, other)

	global, err := svc.FindByURL(ctx, normalized)
	require.NoError(t, err)
	require.NotNil(t, global)

	missing, err := svc.FindByURL(ctx, "https://www.tiktok.com/@chef/video/43")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCloneCopiesChildren(t *testing.T) {
	db := testdb.Open(t)
	svc := NewRecipeService(db, nil)
	ctx := context.Background()

	owner := uuid.New()
	stored := "https://youtu.be/abc123"
	src, err := svc.CreateFromDraft(ctx, owner, testDraft(), &stored, platform.YouTube, nil, nil, models.GenerationModePremium)
	require.NoError(t, err)

	// A free user cloning a premium user's recipe gets a free row.
	newOwner := uuid.New()
	clone, err := svc.Clone(ctx, newOwner, src, models.GenerationModeFree)
	require.NoError(t, err)

	assert.NotEqual(t, src.ID, clone.ID)
	assert.Equal(t, newOwner, clone.UserID)
	assert.Equal(t, src.Title, clone.Title)
	assert.Equal(t, models.GenerationModeFree, clone.GenerationMode)
	require.NotNil(t, clone.SourceURL)
	assert.Equal(t, stored, *clone.SourceURL)
	require.Len(t, clone.Ingredients, 2)
	require.Len(t, clone.Steps, 2)
	for _, ing := range clone.Ingredients {
		assert.Equal(t, clone.ID, ing.RecipeID)
	}

	// The source row set is untouched, mode included.
	reloaded, err := svc.Get(ctx, src.ID)
	require.NoError(t, err)
	assert.Equal(t, owner, reloaded.UserID)
	assert.Equal(t, models.GenerationModePremium, reloaded.GenerationMode)
	assert.Len(t, reloaded.Ingredients, 2)
}
