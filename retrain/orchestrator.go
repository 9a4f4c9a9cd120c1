package retrain

import (
	"context"
	"fmt"
	"log"
	"time"

	"delay-risk-api/dataset"
	"delay-risk-api/models"
	"delay-risk-api/training"
)

// PromotionMargin is the fixed F1 improvement a candidate must clear so a
// noisy metric bump cannot displace the production model.
const PromotionMargin = 0.01

// ModelEventChannel carries promotion notifications so serving processes
// can hot-reload the artifact.
const ModelEventChannel = "delayrisk:model"

// DatasetBuilder is the feature-building stage.
type DatasetBuilder interface {
	Build(ctx context.Context, asOf time.Time, windowMinutes int) (*dataset.Dataset, error)
}

// DecisionSink appends retrain decisions to the append-only log.
type DecisionSink interface {
	AppendDecision(ctx context.Context, decision *models.RetrainDecision) error
}

// EventPublisher publishes promotion events. Optional.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) error
}

// Orchestrator drives one retraining run:
// BUILD_DATASET -> TRAIN_CANDIDATE -> COMPARE -> PROMOTE|REJECT -> LOG.
// A failure before the promote step aborts with production state untouched.
type Orchestrator struct {
	builder       DatasetBuilder
	trainer       training.Trainer
	slot          *Slot
	sink          DecisionSink
	publisher     EventPublisher
	windowMinutes int
	datasetDir    string
}

func NewOrchestrator(builder DatasetBuilder, trainer training.Trainer, slot *Slot, sink DecisionSink, windowMinutes int) *Orchestrator {
	return &Orchestrator{
		builder:       builder,
		trainer:       trainer,
		slot:          slot,
		sink:          sink,
		windowMinutes: windowMinutes,
	}
}

// WithPublisher enables promotion event publishing.
func (o *Orchestrator) WithPublisher(p EventPublisher) *Orchestrator {
	o.publisher = p
	return o
}

// WithDatasetDir enables CSV export of the built dataset.
func (o *Orchestrator) WithDatasetDir(dir string) *Orchestrator {
	o.datasetDir = dir
	return o
}

// Run executes one retraining pass anchored at asOf and returns the logged
// decision. The returned error is non-nil when any stage failed; the
// attempt is still recorded.
func (o *Orchestrator) Run(ctx context.Context, asOf time.Time) (*models.RetrainDecision, error) {
	ds, err := o.builder.Build(ctx, asOf, o.windowMinutes)
	if err != nil {
		return o.abort(ctx, asOf, fmt.Errorf("build dataset: %w", err))
	}
	for split, stats := range ds.Stats() {
		log.Printf("dataset %s: %d rows, positive rate %.4f", split, stats.Rows, stats.PositiveRate)
	}

	if o.datasetDir != "" {
		if err := dataset.Export(ds, o.datasetDir); err != nil {
			return o.abort(ctx, asOf, fmt.Errorf("export dataset: %w", err))
		}
	}

	candidate, err := o.trainer.Fit(ds.Train, ds.Val)
	if err != nil {
		return o.abort(ctx, asOf, fmt.Errorf("train candidate: %w", err))
	}
	candidateMetrics := training.Evaluate(candidate, ds.Test)
	log.Printf("candidate %s: test F1 %.6f", o.trainer.Name(), candidateMetrics.F1)

	_, currentMetrics, err := o.slot.Current()
	if err != nil {
		return o.abort(ctx, asOf, fmt.Errorf("load current model: %w", err))
	}

	decision := &models.RetrainDecision{
		DecidedAt:   asOf,
		ModelName:   o.trainer.Name(),
		CandidateF1: candidateMetrics.F1,
	}

	var currentF1 *float64
	if currentMetrics != nil {
		f1 := currentMetrics.TestMetrics.F1
		currentF1 = &f1
		decision.CurrentF1 = &f1
	}
	decision.Promoted, decision.Reason = Decide(candidateMetrics.F1, currentF1)

	if decision.Promoted {
		stored := &StoredMetrics{
			ModelName:   o.trainer.Name(),
			TestMetrics: candidateMetrics,
			TrainedAt:   candidate.TrainedAt,
		}
		if err := o.slot.Promote(candidate, stored); err != nil {
			decision.Promoted = false
			decision.Reason = fmt.Sprintf("promotion failed, production unchanged: %v", err)
			o.appendDecision(ctx, decision)
			return decision, fmt.Errorf("promote candidate: %w", err)
		}
		o.publishPromotion(ctx, decision)
	}

	o.appendDecision(ctx, decision)
	log.Printf("retrain decision: promoted=%v reason=%q", decision.Promoted, decision.Reason)
	return decision, nil
}

// Decide applies the promotion gate: promote when no production model
// exists, or when the candidate clears the current F1 by more than the
// fixed margin.
func Decide(candidateF1 float64, currentF1 *float64) (bool, string) {
	if currentF1 == nil {
		return true, "no current model, promoting unconditionally"
	}
	if candidateF1 > *currentF1+PromotionMargin {
		return true, fmt.Sprintf("candidate F1 %.6f beats current %.6f by more than %.2f",
			candidateF1, *currentF1, PromotionMargin)
	}
	return false, fmt.Sprintf("candidate F1 %.6f within margin of current %.6f, keeping current",
		candidateF1, *currentF1)
}

// abort records a failed attempt without touching production state.
func (o *Orchestrator) abort(ctx context.Context, asOf time.Time, err error) (*models.RetrainDecision, error) {
	decision := &models.RetrainDecision{
		DecidedAt: asOf,
		ModelName: o.trainer.Name(),
		Promoted:  false,
		Reason:    fmt.Sprintf("aborted: %v", err),
	}
	o.appendDecision(ctx, decision)
	return decision, err
}

func (o *Orchestrator) appendDecision(ctx context.Context, decision *models.RetrainDecision) {
	if o.sink == nil {
		return
	}
	if err := o.sink.AppendDecision(ctx, decision); err != nil {
		log.Printf("append retrain decision failed: %v", err)
	}
}

func (o *Orchestrator) publishPromotion(ctx context.Context, decision *models.RetrainDecision) {
	if o.publisher == nil {
		return
	}
	if err := o.publisher.Publish(ctx, ModelEventChannel, decision); err != nil {
		log.Printf("publish promotion event failed: %v", err)
	}
}
