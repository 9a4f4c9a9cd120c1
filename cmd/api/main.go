package main

import (
	"context"
	"fmt"
	"log"

	"delay-risk-api/config"
	"delay-risk-api/features"
	"delay-risk-api/handlers"
	"delay-risk-api/middleware"
	"delay-risk-api/retrain"
	"delay-risk-api/services"
	"delay-risk-api/store"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	// Load config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.Database.GetDSN()), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get sql db handle: %v", err)
	}
	if err := sqlDB.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	// Redis cache (optional; the API serves uncached without it)
	cache, err := services.NewCacheService(cfg.Redis)
	if err != nil {
		log.Printf("Redis unavailable, caching disabled: %v", err)
	}

	// Production model
	slot := retrain.NewSlot(cfg.Model.Dir)
	modelSvc := services.NewModelService(slot)
	if err := modelSvc.Load(); err != nil {
		log.Fatalf("Failed to load production model: %v", err)
	}
	go modelSvc.WatchPromotions(context.Background(), cache)

	// Serving feature computer reads facts through the shared store
	computer := features.NewComputer(store.New(db))

	// Initialize Gin router
	router := gin.Default()
	router.Use(middleware.SetupCORS(cfg.CORS))
	router.Use(middleware.Metrics())

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "UP",
			"message": "Delay Risk API is running",
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	predictHandler := handlers.NewPredictHandler(computer, modelSvc, cache)
	factsHandler := handlers.NewFactsHandler(db, cache)
	decisionsHandler := handlers.NewDecisionsHandler(db)
	driftHandler := handlers.NewDriftHandler(cfg.Drift.ReportsDir)

	router.POST("/predict", predictHandler.Predict)
	router.GET("/facts", factsHandler.List)
	router.GET("/retrain/decisions", decisionsHandler.List)
	router.GET("/drift/latest", driftHandler.Latest)

	// Start server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Starting server on %s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
