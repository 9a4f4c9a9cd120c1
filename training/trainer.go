package training

import (
	"errors"
	"fmt"

	"delay-risk-api/dataset"
	"delay-risk-api/features"
)

// Trainer variant names, selectable via MODEL_TRAINER.
const (
	TrainerLogistic = "logistic"
	TrainerGBT      = "gbt"
)

// ErrSingleClass means the training labels contain only one class, which no
// variant can fit meaningfully.
var ErrSingleClass = errors.New("training labels are single-class")

// Trainer fits a candidate model on a freshly built dataset. Implementations
// are interchangeable; the validation split is used only by variants that
// early-stop on it.
type Trainer interface {
	Name() string
	Fit(train, val []dataset.Row) (*Model, error)
}

// NewTrainer selects a training variant by name.
func NewTrainer(name string) (Trainer, error) {
	switch name {
	case TrainerLogistic:
		return NewLogisticTrainer(), nil
	case TrainerGBT:
		return NewGBTTrainer(), nil
	default:
		return nil, fmt.Errorf("unknown trainer %q", name)
	}
}

// matrix flattens rows into feature vectors (canonical order) and labels.
func matrix(rows []dataset.Row) ([][]float64, []float64) {
	X := make([][]float64, len(rows))
	y := make([]float64, len(rows))
	for i, row := range rows {
		X[i] = features.Ordered(row.Features)
		y[i] = float64(row.Label)
	}
	return X, y
}

func countClasses(y []float64) (neg, pos int) {
	for _, v := range y {
		if v > 0.5 {
			pos++
		} else {
			neg++
		}
	}
	return neg, pos
}
