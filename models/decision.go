package models

import "time"

// RetrainDecision is the append-only log of retraining outcomes. One row is
// written per orchestrator run, promoted or not.
type RetrainDecision struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	DecidedAt   time.Time `gorm:"column:decided_at;index" json:"decided_at"`
	ModelName   string    `gorm:"column:model_name" json:"model_name"`
	CandidateF1 float64   `gorm:"column:candidate_f1" json:"candidate_f1"`
	CurrentF1   *float64  `gorm:"column:current_f1" json:"current_f1"`
	Promoted    bool      `gorm:"column:promoted" json:"promoted"`
	Reason      string    `gorm:"column:reason" json:"reason"`
}

func (RetrainDecision) TableName() string { return "retrain_decisions" }
