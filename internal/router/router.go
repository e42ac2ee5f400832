package router

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/snapdish/backend/config"
	"github.com/snapdish/backend/internal/api"
	"github.com/snapdish/backend/internal/middleware"
)

// Deps bundles everything the route table needs.
type Deps struct {
	Config   *config.Config
	RateGate *middleware.RateGate
	Recipes  *api.RecipeHandler
	Admin    *api.AdminHandler
	Health   *api.HealthHandler
}

// New builds the gin engine with CORS, authentication and the rate
// profiles attached per route.
func New(d Deps) *gin.Engine {
	r := gin.Default()

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization", "x-admin-key")
	r.Use(cors.New(corsCfg))

	auth := middleware.Authenticate(d.Config.SupabaseJWTSecret, tokenIssuer(d.Config.SupabaseURL))

	r.GET("/health", d.Health.Health)

	r.POST("/analyze", auth, d.RateGate.Middleware(middleware.StandardProfile), d.Recipes.Analyze)
	r.POST("/generate", auth, d.RateGate.Middleware(middleware.StrictProfile), d.Recipes.Generate)

	r.DELETE("/account", auth, api.DeleteAccount)
	r.GET("/user/stats", auth, api.UserStats)

	r.GET("/admin/stats", middleware.AdminKey(d.Config.AdminAPIKey), d.Admin.Stats)

	return r
}

// tokenIssuer derives the expected iss claim from the project URL.
func tokenIssuer(supabaseURL string) string {
	if supabaseURL == "" {
		return ""
	}
	return strings.TrimSuffix(supabaseURL, "/") + "/auth/v1"
}
