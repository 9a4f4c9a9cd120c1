package services

import (
	"context"
	"log"
	"sync"

	"delay-risk-api/retrain"
	"delay-risk-api/training"
)

// ModelService holds the in-memory production model for the serving path.
// The retraining job swaps the artifact on disk; this service reloads it on
// demand or when a promotion event arrives on the model channel.
type ModelService struct {
	slot *retrain.Slot

	mu      sync.RWMutex
	model   *training.Model
	metrics *retrain.StoredMetrics
}

func NewModelService(slot *retrain.Slot) *ModelService {
	return &ModelService{slot: slot}
}

// Load reads the production artifact from the slot. An absent artifact is
// not an error: the service stays empty and predictions report unavailable.
func (s *ModelService) Load() error {
	model, metrics, err := s.slot.Current()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.model = model
	s.metrics = metrics
	s.mu.Unlock()

	if model == nil {
		log.Printf("no production model artifact at %s", s.slot.ArtifactPath())
	} else {
		log.Printf("production model loaded: %s (test F1 %.6f)", model.Name, metricsF1(metrics))
	}
	return nil
}

// Current returns the production model, or false when none is loaded.
func (s *ModelService) Current() (*training.Model, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model, s.model != nil
}

// WatchPromotions reloads the model whenever a promotion event is published.
// Blocks until ctx is done; run it in its own goroutine.
func (s *ModelService) WatchPromotions(ctx context.Context, cache *CacheService) {
	sub := cache.Subscribe(ctx, retrain.ModelEventChannel)
	if sub == nil {
		log.Printf("model promotion watch disabled: redis unavailable")
		return
	}
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			log.Printf("model promotion event received: %s", msg.Payload)
			if err := s.Load(); err != nil {
				log.Printf("model reload failed: %v", err)
			}
		}
	}
}

func metricsF1(m *retrain.StoredMetrics) float64 {
	if m == nil {
		return 0
	}
	return m.TestMetrics.F1
}
