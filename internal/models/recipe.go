package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// JSONBStringArray is a custom type for handling string arrays in JSONB
type JSONBStringArray []string

// Value implements the driver.Valuer interface
func (a JSONBStringArray) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "[]", nil
	}
	return json.Marshal(a)
}

// Scan implements the sql.Scanner interface
func (a *JSONBStringArray) Scan(value interface{}) error {
	if value == nil {
		*a = JSONBStringArray{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}

	return json.Unmarshal(bytes, a)
}

// Generation modes for a recipe. A recipe produced against a user's free
// quota is "free"; one produced by a premium subscriber is "premium".
const (
	GenerationModeFree    = "free"
	GenerationModePremium = "premium"
)

// Recipe is a persisted recipe owned by exactly one user.
type Recipe struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`

	Title     string  `gorm:"size:255;not null" json:"title"`
	SourceURL *string `gorm:"size:2048;index" json:"source_url"`
	Platform  string  `gorm:"size:32" json:"platform"`

	PrepTime  *int `json:"prep_time"`
	CookTime  *int `json:"cook_time"`
	TotalTime *int `json:"total_time"`
	Servings  *int `json:"servings"`

	CuisineOrigin *string          `gorm:"size:64" json:"cuisine_origin"`
	MealType      *string          `gorm:"size:64" json:"meal_type"`
	DietType      JSONBStringArray `gorm:"type:jsonb;default:'[]'" json:"diet_type"`

	Calories *float64 `json:"calories"`
	Proteins *float64 `json:"proteins"`
	Carbs    *float64 `json:"carbs"`
	Fats     *float64 `json:"fats"`

	Equipment JSONBStringArray `gorm:"type:jsonb;default:'[]'" json:"equipment"`

	ImageURL       *string `gorm:"size:1024" json:"image_url"`
	GenerationMode string  `gorm:"size:16" json:"generation_mode"`

	Ingredients []Ingredient `gorm:"foreignKey:RecipeID" json:"ingredients"`
	Steps       []Step       `gorm:"foreignKey:RecipeID" json:"steps"`
}

// Ingredient is a child row of a recipe. FoodItemID links to the master
// food table when the fuzzy matcher accepted a candidate.
type Ingredient struct {
	ID         uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	RecipeID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"recipe_id"`
	Name       string     `gorm:"size:255;not null" json:"name"`
	Quantity   *float64   `json:"quantity"`
	Unit       *string    `gorm:"size:64" json:"unit"`
	FoodItemID *uuid.UUID `gorm:"type:uuid" json:"food_item_id"`
}

// Step is a child row of a recipe. Order is dense and starts at 1.
type Step struct {
	ID              uuid.UUID        `gorm:"type:uuid;primary_key" json:"id"`
	RecipeID        uuid.UUID        `gorm:"type:uuid;not null;index" json:"recipe_id"`
	Order           int              `gorm:"column:step_number;not null" json:"order"`
	Text            string           `gorm:"type:text;not null" json:"text"`
	Duration        *int             `json:"duration"`
	Temperature     *int             `json:"temperature"`
	IngredientsUsed JSONBStringArray `gorm:"type:jsonb;default:'[]'" json:"ingredients_used"`
}

// BeforeCreate assigns the id; there is no database-side default.
func (r *Recipe) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

func (i *Ingredient) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

func (s *Step) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// FoodItem is a row of the master food table, unique by normalized name.
// It is read-only to this service.
type FoodItem struct {
	ID   uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Name string    `gorm:"size:255;not null;uniqueIndex" json:"name"`
}

func (f *FoodItem) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}
