// Package retrain sequences dataset building, candidate training, and the
// guarded promotion of the production model artifact.
package retrain

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"delay-risk-api/training"
)

// Artifact file names inside the models directory. Exactly one backup
// generation is retained.
const (
	ArtifactFile      = "best_model.json"
	BackupFile        = "best_model.json.backup"
	MetricsFile       = "last_metrics.json"
	MetricsBackupFile = "last_metrics.json.backup"
)

// StoredMetrics is the metrics snapshot persisted next to the artifact.
type StoredMetrics struct {
	ModelName   string           `json:"model_name"`
	TestMetrics training.Metrics `json:"test_metrics"`
	TrainedAt   time.Time        `json:"trained_at"`
}

// Slot is the single-writer production model location. All replacement goes
// through Promote: backup the prior generation by pure copy, then swap the
// new artifact in with an atomic rename, so an interruption at any point
// leaves either the old artifact or the new one in place, never a partial
// file.
type Slot struct {
	dir string
}

func NewSlot(dir string) *Slot {
	return &Slot{dir: dir}
}

// ArtifactPath is where the current production artifact lives.
func (s *Slot) ArtifactPath() string { return filepath.Join(s.dir, ArtifactFile) }

// BackupPath holds the prior production artifact after a promotion.
func (s *Slot) BackupPath() string { return filepath.Join(s.dir, BackupFile) }

// Current loads the production artifact and its metrics. Returns
// (nil, nil, nil) when no model has ever been promoted.
func (s *Slot) Current() (*training.Model, *StoredMetrics, error) {
	data, err := os.ReadFile(s.ArtifactPath())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read production artifact: %w", err)
	}

	model, err := training.UnmarshalModel(data)
	if err != nil {
		return nil, nil, err
	}

	metrics, err := s.readMetrics()
	if err != nil {
		return nil, nil, err
	}
	return model, metrics, nil
}

func (s *Slot) readMetrics() (*StoredMetrics, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, MetricsFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read metrics snapshot: %w", err)
	}
	var m StoredMetrics
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse metrics snapshot: %w", err)
	}
	return &m, nil
}

// Promote replaces the production artifact with the candidate. The prior
// artifact and metrics are copied to the backup files first; the originals
// survive until the rename lands.
func (s *Slot) Promote(candidate *training.Model, metrics *StoredMetrics) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create models dir: %w", err)
	}

	if _, err := os.Stat(s.ArtifactPath()); err == nil {
		if err := copyFile(s.ArtifactPath(), s.BackupPath()); err != nil {
			return fmt.Errorf("backup artifact: %w", err)
		}
		if _, err := os.Stat(filepath.Join(s.dir, MetricsFile)); err == nil {
			if err := copyFile(filepath.Join(s.dir, MetricsFile), filepath.Join(s.dir, MetricsBackupFile)); err != nil {
				return fmt.Errorf("backup metrics: %w", err)
			}
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat production artifact: %w", err)
	}

	artifactBytes, err := candidate.Marshal()
	if err != nil {
		return fmt.Errorf("marshal candidate: %w", err)
	}
	if err := replaceFile(s.ArtifactPath(), artifactBytes); err != nil {
		return fmt.Errorf("swap artifact: %w", err)
	}

	metricsBytes, err := json.MarshalIndent(metrics, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}
	if err := replaceFile(filepath.Join(s.dir, MetricsFile), metricsBytes); err != nil {
		return fmt.Errorf("swap metrics: %w", err)
	}
	return nil
}

// replaceFile writes to a temp file in the same directory and renames it
// into place. Rename within one filesystem is atomic, so readers never see
// a partial artifact.
func replaceFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}
