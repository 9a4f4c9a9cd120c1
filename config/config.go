package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	CORS     CORSConfig
	Pipeline PipelineConfig
	Model    ModelConfig
	Drift    DriftConfig
}

type ServerConfig struct {
	Port int
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

func (d DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins string
}

type PipelineConfig struct {
	// AggregateIntervalSec is the cadence of the aggregator loop.
	AggregateIntervalSec int
	// AggregateLookbackMin is how far back each aggregation pass re-reads
	// raw events. Must exceed the interval so boundary buckets excluded by
	// one pass are recomputed by the next.
	AggregateLookbackMin int
	// DatasetWindowMin is the training horizon for the feature builder.
	DatasetWindowMin int
	// DatasetDir receives the exported train/val/test tables.
	DatasetDir string
}

type ModelConfig struct {
	// Dir holds the production artifact, its backup, and the metrics file.
	Dir string
	// Trainer selects the training variant: "logistic" or "gbt".
	Trainer string
}

type DriftConfig struct {
	// Features are the feature names scored per drift report.
	Features []string
	// RecentHours is the width of the recent sample window.
	RecentHours int
	// BaselineDays is the width of the baseline window ending where the
	// recent window begins.
	BaselineDays int
	// ReportsDir receives timestamped report snapshots.
	ReportsDir string
}

func LoadConfig() (*Config, error) {
	serverPort, err := getIntEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	dbPort, err := getIntEnv("DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	redisPort, err := getIntEnv("REDIS_PORT", 6379)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_PORT: %w", err)
	}

	redisDB, err := getIntEnv("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	aggInterval, err := getIntEnv("AGGREGATE_INTERVAL_SEC", 60)
	if err != nil {
		return nil, fmt.Errorf("invalid AGGREGATE_INTERVAL_SEC: %w", err)
	}

	aggLookback, err := getIntEnv("AGGREGATE_LOOKBACK_MIN", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid AGGREGATE_LOOKBACK_MIN: %w", err)
	}

	datasetWindow, err := getIntEnv("DATASET_WINDOW_MIN", 7*24*60)
	if err != nil {
		return nil, fmt.Errorf("invalid DATASET_WINDOW_MIN: %w", err)
	}

	driftRecent, err := getIntEnv("DRIFT_RECENT_HOURS", 24)
	if err != nil {
		return nil, fmt.Errorf("invalid DRIFT_RECENT_HOURS: %w", err)
	}

	driftBaseline, err := getIntEnv("DRIFT_BASELINE_DAYS", 7)
	if err != nil {
		return nil, fmt.Errorf("invalid DRIFT_BASELINE_DAYS: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: serverPort,
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "delayrisk"),
			Password: getEnv("DB_PASSWORD", "delayrisk_dev_password"),
			Name:     getEnv("DB_NAME", "delayrisk"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     redisPort,
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		},
		Pipeline: PipelineConfig{
			AggregateIntervalSec: aggInterval,
			AggregateLookbackMin: aggLookback,
			DatasetWindowMin:     datasetWindow,
			DatasetDir:           getEnv("DATASET_DIR", "data/dataset"),
		},
		Model: ModelConfig{
			Dir:     getEnv("MODELS_DIR", "models"),
			Trainer: getEnv("MODEL_TRAINER", "logistic"),
		},
		Drift: DriftConfig{
			Features:     getListEnv("DRIFT_FEATURES", []string{"alerts_sum_15m", "trip_updates_sum_15m", "vehicle_positions_sum_15m"}),
			RecentHours:  driftRecent,
			BaselineDays: driftBaseline,
			ReportsDir:   getEnv("DRIFT_REPORTS_DIR", "reports"),
		},
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getIntEnv(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func getListEnv(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
