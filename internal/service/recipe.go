package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/snapdish/backend/config"
	"github.com/snapdish/backend/internal/models"
	"github.com/snapdish/backend/internal/service/platform"
)

// RecipeService persists recipe drafts and answers the duplicate lookups
// that run before any pipeline work starts.
type RecipeService struct {
	db     *gorm.DB
	s3     *config.S3Config
	client *http.Client
}

// NewRecipeService creates a new RecipeService instance
func NewRecipeService(db *gorm.DB, s3cfg *config.S3Config) *RecipeService {
	return &RecipeService{
		db:     db,
		s3:     s3cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// FindByOwnerAndURL returns the caller's most recent recipe whose source
// URL starts with the normalized URL, or nil when none exists.
func (s *RecipeService) FindByOwnerAndURL(ctx context.Context, userID uuid.UUID, normalizedURL string) (*models.Recipe, error) {
	return s.findByURL(ctx, normalizedURL, &userID)
}

// FindByURL returns the most recent recipe from any user whose source URL
// starts with the normalized URL, or nil when none exists.
func (s *RecipeService) FindByURL(ctx context.Context, normalizedURL string) (*models.Recipe, error) {
	return s.findByURL(ctx, normalizedURL, nil)
}

func (s *RecipeService) findByURL(ctx context.Context, normalizedURL string, userID *uuid.UUID) (*models.Recipe, error) {
	var recipe models.Recipe
	query := s.db.WithContext(ctx).
		Where("source_url LIKE ?", normalizedURL+"%").
		Order("created_at DESC")
	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	}
	if err := query.First(&recipe).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up recipe by URL: %w", err)
	}
	if err := s.hydrate(ctx, &recipe); err != nil {
		return nil, err
	}
	return &recipe, nil
}

// Get returns one recipe with its ingredients and steps.
func (s *RecipeService) Get(ctx context.Context, id uuid.UUID) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := s.db.WithContext(ctx).First(&recipe, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to load recipe: %w", err)
	}
	if err := s.hydrate(ctx, &recipe); err != nil {
		return nil, err
	}
	return &recipe, nil
}

func (s *RecipeService) hydrate(ctx context.Context, recipe *models.Recipe) error {
	if err := s.db.WithContext(ctx).
		Where("recipe_id = ?", recipe.ID).
		Order("name ASC").
		Find(&recipe.Ingredients).Error; err != nil {
		return fmt.Errorf("failed to load ingredients: %w", err)
	}
	if err := s.db.WithContext(ctx).
		Where("recipe_id = ?", recipe.ID).
		Order("step_number ASC").
		Find(&recipe.Steps).Error; err != nil {
		return fmt.Errorf("failed to load steps: %w", err)
	}
	return nil
}

// CreateFromDraft persists a draft for the user. meta and sourceURL are
// nil for generated recipes; imageData is nil for analyzed ones. Child
// row failures and thumbnail failures never fail the save.
func (s *RecipeService) CreateFromDraft(ctx context.Context, userID uuid.UUID, draft *RecipeDraft, sourceURL *string, plat platform.Platform, meta *platform.Metadata, imageData []byte, mode string) (*models.Recipe, error) {
	var imageURL *string
	if meta != nil && meta.ThumbnailURL != "" {
		if url, err := s.uploadThumbnailFromURL(ctx, plat, meta.ThumbnailURL); err != nil {
			log.Printf("[RecipeService] Thumbnail upload failed, saving without image: %v", err)
		} else {
			imageURL = &url
		}
	} else if len(imageData) > 0 {
		if url, err := s.uploadImage(ctx, plat, imageData, "image/png"); err != nil {
			log.Printf("[RecipeService] Image upload failed, saving without image: %v", err)
		} else {
			imageURL = &url
		}
	}

	if mode == "" {
		mode = models.GenerationModeFree
	}
	recipe := &models.Recipe{
		UserID:         userID,
		Title:          draft.Title,
		SourceURL:      sourceURL,
		Platform:       string(plat),
		PrepTime:       draft.PrepTime,
		CookTime:       draft.CookTime,
		TotalTime:      draft.TotalTime,
		Servings:       draft.Servings,
		CuisineOrigin:  draft.CuisineOrigin,
		MealType:       draft.MealType,
		DietType:       models.JSONBStringArray(draft.DietType),
		Equipment:      models.JSONBStringArray(draft.Equipment),
		Calories:       draft.Calories,
		Proteins:       draft.Proteins,
		Carbs:          draft.Carbs,
		Fats:           draft.Fats,
		ImageURL:       imageURL,
		GenerationMode: mode,
	}
	if err := s.db.WithContext(ctx).Create(recipe).Error; err != nil {
		return nil, fmt.Errorf("failed to create recipe: %w", err)
	}

	s.insertIngredients(ctx, recipe, draft.Ingredients)
	s.insertSteps(ctx, recipe, draft.Steps)
	return recipe, nil
}

// insertIngredients writes the ingredient rows, linking each to the food
// catalog when a close enough match exists.
func (s *RecipeService) insertIngredients(ctx context.Context, recipe *models.Recipe, drafts []DraftIngredient) {
	if len(drafts) == 0 {
		return
	}

	matcher, err := s.loadFoodMatcher(ctx)
	if err != nil {
		log.Printf("[RecipeService] Food catalog unavailable, skipping linkage: %v", err)
		matcher = NewFoodMatcher(nil)
	}

	rows := make([]models.Ingredient, 0, len(drafts))
	for _, d := range drafts {
		if d.Name == "" {
			continue
		}
		rows = append(rows, models.Ingredient{
			RecipeID:   recipe.ID,
			Name:       d.Name,
			Quantity:   d.Quantity,
			Unit:       d.Unit,
			FoodItemID: matcher.Match(d.Name),
		})
	}
	if len(rows) == 0 {
		return
	}
	if err := s.db.WithContext(ctx).Create(&rows).Error; err != nil {
		log.Printf("[RecipeService] Failed to save ingredients for recipe %s: %v", recipe.ID, err)
		return
	}
	recipe.Ingredients = rows
}

func (s *RecipeService) insertSteps(ctx context.Context, recipe *models.Recipe, drafts []DraftStep) {
	if len(drafts) == 0 {
		return
	}
	rows := make([]models.Step, 0, len(drafts))
	for _, d := range drafts {
		if d.Text == "" {
			continue
		}
		used := d.IngredientsUsed
		if used == nil {
			used = []string{}
		}
		rows = append(rows, models.Step{
			RecipeID:        recipe.ID,
			Order:           d.Order,
			Text:            d.Text,
			Duration:        d.Duration,
			Temperature:     d.Temperature,
			IngredientsUsed: models.JSONBStringArray(used),
		})
	}
	if len(rows) == 0 {
		return
	}
	if err := s.db.WithContext(ctx).Create(&rows).Error; err != nil {
		log.Printf("[RecipeService] Failed to save steps for recipe %s: %v", recipe.ID, err)
		return
	}
	recipe.Steps = rows
}

func (s *RecipeService) loadFoodMatcher(ctx context.Context) (*FoodMatcher, error) {
	var items []models.FoodItem
	if err := s.db.WithContext(ctx).Find(&items).Error; err != nil {
		return nil, err
	}
	return NewFoodMatcher(items), nil
}

// Clone copies another user's recipe, children included, under the
// caller's account. The clone keeps the source URL and image but carries
// the caller's generation mode, not the source owner's.
func (s *RecipeService) Clone(ctx context.Context, userID uuid.UUID, src *models.Recipe, mode string) (*models.Recipe, error) {
	if mode == "" {
		mode = models.GenerationModeFree
	}
	clone := *src
	clone.ID = uuid.Nil
	clone.UserID = userID
	clone.GenerationMode = mode
	clone.Ingredients = nil
	clone.Steps = nil
	clone.CreatedAt = time.Time{}

	if err := s.db.WithContext(ctx).Create(&clone).Error; err != nil {
		return nil, fmt.Errorf("failed to clone recipe: %w", err)
	}

	if len(src.Ingredients) > 0 {
		rows := make([]models.Ingredient, 0, len(src.Ingredients))
		for _, ing := range src.Ingredients {
			rows = append(rows, models.Ingredient{
				RecipeID:   clone.ID,
				Name:       ing.Name,
				Quantity:   ing.Quantity,
				Unit:       ing.Unit,
				FoodItemID: ing.FoodItemID,
			})
		}
		if err := s.db.WithContext(ctx).Create(&rows).Error; err != nil {
			log.Printf("[RecipeService] Failed to clone ingredients for recipe %s: %v", clone.ID, err)
		} else {
			clone.Ingredients = rows
		}
	}
	if len(src.Steps) > 0 {
		rows := make([]models.Step, 0, len(src.Steps))
		for _, st := range src.Steps {
			rows = append(rows, models.Step{
				RecipeID:        clone.ID,
				Order:           st.Order,
				Text:            st.Text,
				Duration:        st.Duration,
				Temperature:     st.Temperature,
				IngredientsUsed: st.IngredientsUsed,
			})
		}
		if err := s.db.WithContext(ctx).Create(&rows).Error; err != nil {
			log.Printf("[RecipeService] Failed to clone steps for recipe %s: %v", clone.ID, err)
		} else {
			clone.Steps = rows
		}
	}

	return &clone, nil
}

// uploadThumbnailFromURL downloads the platform thumbnail and re-hosts it
// in the bucket so it survives the platform's CDN expiry.
func (s *RecipeService) uploadThumbnailFromURL(ctx context.Context, plat platform.Platform, thumbnailURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, thumbnailURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create thumbnail request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download thumbnail: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("thumbnail download failed with status %d", resp.StatusCode)
	}
	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("thumbnail is not an image: %s", contentType)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read thumbnail: %w", err)
	}
	return s.uploadImage(ctx, plat, data, contentType)
}

func (s *RecipeService) uploadImage(ctx context.Context, plat platform.Platform, data []byte, contentType string) (string, error) {
	if s.s3 == nil {
		return "", fmt.Errorf("no storage configured")
	}

	key := fmt.Sprintf("%[1]s/%[1]s-%d-%d.%s", plat, time.Now().UnixMilli(), rand.Intn(1_000_000), imageExtension(contentType))
	_, err := s.s3.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.s3.BucketName),
		Key:          aws.String(key),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("max-age=3600"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}
	return s.s3.PublicURL(key), nil
}

func imageExtension(contentType string) string {
	ext := strings.TrimPrefix(contentType, "image/")
	if i := strings.IndexByte(ext, ';'); i >= 0 {
		ext = ext[:i]
	}
	switch ext {
	case "jpeg":
		return "jpg"
	case "":
		return "jpg"
	default:
		return ext
	}
}
