// Package automl is the in-process AutoML backend: it owns experiment
// state (train/holdout split), fits and tunes the catalog estimators and
// computes holdout metrics. The orchestrator in internal/trainer drives it
// through a narrow interface and treats the fitted models as opaque.
package automl

import (
	"encoding/gob"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"maximus/internal/models"
)

// Model is a fitted (or fittable) estimator. Fitted state is held in plain
// exported fields so a model can be gob-serialized for export.
type Model interface {
	Fit(X *mat.Dense, y []float64) error
	Predict(X *mat.Dense) ([]float64, error)
	// Params exposes the hyperparameters for the dashboard panel and for
	// tuning. SetParams must be called before Fit.
	Params() map[string]float64
	SetParams(params map[string]float64) error
}

func init() {
	// Export serializes concrete estimators through the Model interface.
	gob.Register(&DecisionTree{})
	gob.Register(&RandomForest{})
	gob.Register(&AdaBoost{})
	gob.Register(&GradientBoosting{})
	gob.Register(&LinearSVM{})
	gob.Register(&MLP{})
}

// newModel builds an unfitted estimator with catalog defaults for the task.
func newModel(id string, task models.TaskType, seed int64) (Model, error) {
	switch id {
	case models.ModelDecisionTree:
		return NewDecisionTree(task), nil
	case models.ModelRandomForest:
		return NewRandomForest(task, seed), nil
	case models.ModelAdaBoost:
		return NewAdaBoost(task, seed), nil
	case models.ModelGradBoost:
		return NewGradientBoosting(task), nil
	case models.ModelSVM:
		return NewLinearSVM(task, seed), nil
	case models.ModelMLP:
		return NewMLP(task, seed), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, id)
	}
}

// setFloat applies one entry of a params map to a float field.
func setFloat(dst *float64, params map[string]float64, key string) {
	if v, ok := params[key]; ok {
		*dst = v
	}
}

// setInt applies one entry of a params map to an int field.
func setInt(dst *int, params map[string]float64, key string) {
	if v, ok := params[key]; ok {
		*dst = int(v)
	}
}
