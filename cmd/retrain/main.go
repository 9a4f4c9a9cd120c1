package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"delay-risk-api/config"
	"delay-risk-api/dataset"
	"delay-risk-api/retrain"
	"delay-risk-api/services"
	"delay-risk-api/store"
	"delay-risk-api/training"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var (
	promotions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "delayrisk_retrain_promotions_total",
		Help: "Total number of candidate models promoted to production.",
	})
	rejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "delayrisk_retrain_rejections_total",
		Help: "Total number of candidate models rejected.",
	})
	runsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "delayrisk_retrain_runs_failed_total",
		Help: "Total number of retraining runs that aborted.",
	})
	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "delayrisk_retrain_run_duration_seconds",
		Help:    "Duration of a full retraining run.",
		Buckets: []float64{1, 5, 15, 60, 300, 900},
	})
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	intervalHours := getEnvInt("RETRAIN_INTERVAL_HOURS", 0)
	metricsAddr := getEnv("METRICS_ADDR", ":8082")

	db, err := gorm.Open(postgres.Open(cfg.Database.GetDSN()), &gorm.Config{})
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("db handle failed: %v", err)
	}
	if err := sqlDB.Ping(); err != nil {
		log.Fatalf("db ping failed: %v", err)
	}

	trainer, err := training.NewTrainer(cfg.Model.Trainer)
	if err != nil {
		log.Fatalf("trainer init failed: %v", err)
	}

	st := store.New(db)
	orchestrator := retrain.NewOrchestrator(
		dataset.NewBuilder(st),
		trainer,
		retrain.NewSlot(cfg.Model.Dir),
		st,
		cfg.Pipeline.DatasetWindowMin,
	).WithDatasetDir(cfg.Pipeline.DatasetDir)

	// Promotion events are best-effort; retraining proceeds without Redis.
	if cache, err := services.NewCacheService(cfg.Redis); err != nil {
		log.Printf("redis unavailable, promotion events disabled: %v", err)
	} else {
		orchestrator.WithPublisher(cache)
	}

	// One-shot by default; set RETRAIN_INTERVAL_HOURS for a scheduled loop.
	// The loop runs cycles sequentially, which is what serializes promotions.
	if intervalHours <= 0 {
		if err := runCycle(ctx, orchestrator); err != nil {
			os.Exit(1)
		}
		return
	}

	go serveHTTP(metricsAddr)
	log.Printf("retrain worker running: interval=%dh trainer=%s window=%dmin",
		intervalHours, trainer.Name(), cfg.Pipeline.DatasetWindowMin)

	runCycle(ctx, orchestrator)

	ticker := time.NewTicker(time.Duration(intervalHours) * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			runCycle(ctx, orchestrator)
		case <-ctx.Done():
			log.Printf("retrain worker shutting down")
			return
		}
	}
}

func runCycle(ctx context.Context, orchestrator *retrain.Orchestrator) error {
	start := time.Now()
	defer func() {
		runDuration.Observe(time.Since(start).Seconds())
	}()

	decision, err := orchestrator.Run(ctx, time.Now().UTC().Truncate(time.Minute))
	if err != nil {
		runsFailed.Inc()
		log.Printf("retraining run failed: %v", err)
		return err
	}

	if decision.Promoted {
		promotions.Inc()
	} else {
		rejections.Inc()
	}
	return nil
}

func serveHTTP(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Printf("metrics server listening on %s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("metrics server failed: %v", err)
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
