package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"delay-risk-api/config"
	"delay-risk-api/drift"
	"delay-risk-api/store"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	intervalHours := getEnvInt("DRIFT_INTERVAL_HOURS", 0)

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

	detector := drift.NewDetector(store.New(db), cfg.Drift.ReportsDir)

	// One-shot by default; set DRIFT_INTERVAL_HOURS for a scheduled loop.
	if intervalHours <= 0 {
		if err := runOnce(ctx, detector, cfg); err != nil {
			log.Fatalf("drift report failed: %v", err)
		}
		return
	}

	log.Printf("drift detector running: interval=%dh features=%v", intervalHours, cfg.Drift.Features)
	if err := runOnce(ctx, detector, cfg); err != nil {
		log.Printf("drift report failed: %v", err)
	}

	ticker := time.NewTicker(time.Duration(intervalHours) * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := runOnce(ctx, detector, cfg); err != nil {
				log.Printf("drift report failed: %v", err)
			}
		case <-ctx.Done():
			log.Printf("drift detector shutting down")
			return
		}
	}
}

func runOnce(ctx context.Context, detector *drift.Detector, cfg *config.Config) error {
	asOf := time.Now().UTC().Truncate(time.Minute)
	recent := time.Duration(cfg.Drift.RecentHours) * time.Hour
	baseline := time.Duration(cfg.Drift.BaselineDays) * 24 * time.Hour

	report, err := detector.Report(ctx, asOf, cfg.Drift.Features, recent, baseline)
	if err != nil {
		return err
	}

	path, err := detector.WriteSnapshot(report)
	if err != nil {
		return err
	}

	for name, psi := range report.PerFeature {
		log.Printf("drift %s: PSI=%.4f (%s)", name, psi, drift.Band(psi))
	}
	log.Printf("drift report written: %s", path)
	return nil
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
