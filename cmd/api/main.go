package main

import (
	"context"
	"log"
	"time"

	"github.com/snapdish/backend/config"
	"github.com/snapdish/backend/internal/api"
	"github.com/snapdish/backend/internal/database"
	"github.com/snapdish/backend/internal/middleware"
	"github.com/snapdish/backend/internal/router"
	"github.com/snapdish/backend/internal/server"
	"github.com/snapdish/backend/internal/service"
	"github.com/snapdish/backend/internal/service/platform"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	db, err := database.New(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// The cache is an optimization; the service runs without it.
	cache, err := database.NewRedisClient(cfg)
	if err != nil {
		log.Printf("Redis unavailable, cost-gate reads go straight to the store: %v", err)
		cache = nil
	}

	s3cfg, err := config.NewS3Config(ctx, cfg)
	if err != nil {
		log.Printf("Object storage unavailable, recipes will be saved without images: %v", err)
		s3cfg = nil
	} else if err := s3cfg.SetupBucketPolicy(ctx); err != nil {
		log.Printf("Could not apply public-read bucket policy: %v", err)
	}

	transcriber, err := service.NewTranscriptionService(cfg.OpenAIAPIKey)
	if err != nil {
		log.Fatalf("Failed to initialize transcription: %v", err)
	}

	var provider service.TextProvider
	var geminiProvider *service.GeminiProvider
	switch cfg.AIProvider {
	case "gemini":
		geminiProvider, err = service.NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.AIModel)
		if err != nil {
			log.Fatalf("Failed to initialize Gemini provider: %v", err)
		}
		provider = geminiProvider
	default:
		provider, err = service.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.AIModel)
		if err != nil {
			log.Fatalf("Failed to initialize OpenAI provider: %v", err)
		}
	}

	var images *service.ImageService
	if cfg.ImageProvider == "openai" && cfg.OpenAIAPIKey != "" {
		images, err = service.NewImageService(cfg.OpenAIAPIKey, cfg.ImageModel)
		if err != nil {
			log.Printf("Image generation disabled: %v", err)
		}
	}

	extractor := service.NewRecipeExtractor(provider)
	pipeline := service.NewPipeline(transcriber, extractor, images)
	registry := platform.NewRegistry(nil)
	recipes := service.NewRecipeService(db, s3cfg)
	quota := service.NewQuotaService(db)
	locks := service.NewSingleFlight()
	costGate := service.NewCostGate(db, cache, service.CostLimits{
		DailyGlobal:  cfg.DailyGlobalLimit,
		HourlyGlobal: cfg.HourlyGlobalLimit,
		DailyUser:    cfg.DailyUserLimit,
	})

	rateGate := middleware.NewRateGate(db)
	rateGate.StartSweep(5 * time.Minute)
	defer rateGate.Stop()

	janitor := service.NewJanitor(db, time.Hour, 7*24*time.Hour)
	janitor.Start()
	defer janitor.Stop()

	if geminiProvider != nil {
		defer func() { _ = geminiProvider.Close() }()
	}

	engine := router.New(router.Deps{
		Config:   cfg,
		RateGate: rateGate,
		Recipes:  api.NewRecipeHandler(registry, recipes, quota, costGate, locks, pipeline),
		Admin:    api.NewAdminHandler(rateGate, costGate, locks),
		Health:   api.NewHealthHandler(db),
	})

	srv := server.New(engine)
	if err := srv.Start(cfg.Port); err != nil {
		log.Fatalf("Server error: %v", err)
	}
	log.Println("Server stopped")
}
