package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"delay-risk-api/aggregation"
	"delay-risk-api/config"
	"delay-risk-api/store"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var (
	factsWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "delayrisk_aggregator_facts_written_total",
		Help: "Total number of fact rows upserted.",
	})
	cyclesFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "delayrisk_aggregator_cycles_failed_total",
		Help: "Total number of aggregation cycles that failed.",
	})
	cycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "delayrisk_aggregator_cycle_duration_seconds",
		Help:    "Duration of a full aggregation cycle.",
		Buckets: []float64{0.1, 0.5, 1.0, 2.5, 5.0, 10.0},
	})
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	metricsAddr := getEnv("METRICS_ADDR", ":8081")

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
	log.Printf("db connected")

	st := store.New(db)
	aggregator := aggregation.New(st, st)

	go serveHTTP(metricsAddr)

	interval := time.Duration(cfg.Pipeline.AggregateIntervalSec) * time.Second
	lookback := time.Duration(cfg.Pipeline.AggregateLookbackMin) * time.Minute

	log.Printf("aggregator running: interval=%s lookback=%s buckets=%v",
		interval, lookback, aggregation.BucketSizes)

	// Run first cycle immediately
	runCycle(ctx, aggregator, lookback)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			runCycle(ctx, aggregator, lookback)
		case <-ctx.Done():
			log.Printf("aggregator shutting down")
			return
		}
	}
}

func runCycle(ctx context.Context, aggregator *aggregation.Aggregator, lookback time.Duration) {
	start := time.Now()
	defer func() {
		cycleDuration.Observe(time.Since(start).Seconds())
	}()

	now := time.Now().UTC().Truncate(time.Second)
	written, err := aggregator.Run(ctx, now.Add(-lookback), now)
	if err != nil {
		cyclesFailed.Inc()
		log.Printf("aggregation cycle failed: %v", err)
		return
	}

	factsWritten.Add(float64(written))
	log.Printf("aggregation cycle completed: %d facts written (%.2fs)",
		written, time.Since(start).Seconds())
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
