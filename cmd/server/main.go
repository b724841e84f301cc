package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/reem20050/workforce-intel/pkg/auth"
	"github.com/reem20050/workforce-intel/pkg/config"
	"github.com/reem20050/workforce-intel/pkg/database"
	"github.com/reem20050/workforce-intel/pkg/engine"
	"github.com/reem20050/workforce-intel/pkg/handlers"
	"github.com/reem20050/workforce-intel/pkg/signals"
)

func main() {
	// Load .env if it exists
	// Try root and parent directories for flexibility
	envPaths := []string{".env", "../.env", "../../.env"}
	for _, p := range envPaths {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			break
		}
	}

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid engine configuration: %v", err)
	}

	db := database.InitDB()
	_ = auth.EnsureAdminExists(db)

	svc := engine.NewService(signals.NewGormReader(db), cfg)
	gen := engine.NewGenerator(svc, database.NewInsightStore(db))
	h := &handlers.Handler{DB: db, Engine: svc, Insights: gen}

	go runInsightSchedule(gen)

	r := gin.Default()

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message":        "Workforce Assignment Intelligence API",
			"version":        "1.0.0",
			"config_version": cfg.Version,
		})
	})

	r.POST("/admin/login", h.Login)

	// Admin Endpoints
	admin := r.Group("/admin")
	admin.Use(h.AuthMiddleware())
	{
		admin.POST("/insights/generate", h.GenerateInsight)
		admin.POST("/keys", h.GenerateKey)
		admin.GET("/keys", h.ListKeys)
		admin.DELETE("/keys/:id", h.RevokeKey)
	}

	// Engine Endpoints
	api := r.Group("/api")
	api.Use(h.APIKeyMiddleware())
	{
		api.GET("/suggestions", h.Suggest)
		api.GET("/heatmap", h.Heatmap)
		api.GET("/fatigue", h.FatigueRisks)
		api.GET("/staffing", h.StaffingSuggestions)
		api.GET("/insights/latest", h.LatestInsight)
		api.GET("/usage", h.GetMyUsage)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}

	log.Printf("Server starting on port %s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("could not run server: %v", err)
	}
}

// runInsightSchedule triggers a snapshot on an interval (weekly unless
// overridden). The generator's own lock keeps scheduled and manual runs from
// interleaving; a rejected tick is simply skipped.
func runInsightSchedule(gen *engine.Generator) {
	hours := 24 * 7
	if raw := os.Getenv("INSIGHT_INTERVAL_HOURS"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			hours = n
		}
	}

	ticker := time.NewTicker(time.Duration(hours) * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		insight, err := gen.Generate(context.Background(), engine.TriggerScheduled)
		if errors.Is(err, engine.ErrRunInProgress) {
			log.Printf("scheduled insight skipped: run already in progress")
			continue
		}
		if err != nil {
			log.Printf("scheduled insight failed: %v", err)
			continue
		}
		log.Printf("scheduled insight %s written (severity=%s)", insight.RunID, insight.Severity)
	}
}
