package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"

	"gorm.io/gorm/clause"

	"github.com/snapdish/backend/config"
	"github.com/snapdish/backend/internal/database"
	"github.com/snapdish/backend/internal/models"
)

// Seeds the food_items catalog from a JSON file: ["farine", "tomate", ...].
// Existing names are left untouched.
func main() {
	path := flag.String("file", "seeds/food_items.json", "path to the food names JSON file")
	flag.Parse()

	data, err := os.ReadFile(*path)
	if err != nil {
		log.Fatalf("Failed to read %s: %v", *path, err)
	}
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		log.Fatalf("Failed to parse %s: %v", *path, err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	db, err := database.New(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	inserted := 0
	for _, name := range names {
		if name == "" {
			continue
		}
		item := models.FoodItem{Name: name}
		result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&item)
		if result.Error != nil {
			log.Printf("Failed to insert %q: %v", name, result.Error)
			continue
		}
		inserted += int(result.RowsAffected)
	}
	log.Printf("Seeded %d new food items (%d provided)", inserted, len(names))
}
