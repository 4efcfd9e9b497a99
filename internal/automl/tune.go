package automl

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"maximus/internal/models"
)

// tuning grids per catalog model, searched exhaustively. Values are kept
// small on purpose: this is a dashboard, not a research rig.
var tuningGrid = map[string]map[string][]float64{
	models.ModelDecisionTree: {
		"max_depth":        {3, 5, 8, 12},
		"min_samples_leaf": {1, 2, 5},
	},
	models.ModelRandomForest: {
		"n_estimators": {30, 60},
		"max_depth":    {6, 10, 14},
	},
	models.ModelAdaBoost: {
		"n_estimators":  {30, 60, 100},
		"learning_rate": {0.5, 1.0},
	},
	models.ModelGradBoost: {
		"n_estimators":  {50, 100, 200},
		"learning_rate": {0.05, 0.1},
		"max_depth":     {2, 3},
	},
	models.ModelSVM: {
		"alpha":         {1e-5, 1e-4, 1e-3},
		"learning_rate": {0.003, 0.01, 0.03},
	},
	models.ModelMLP: {
		"hidden_units":  {16, 32, 64},
		"learning_rate": {0.003, 0.01, 0.03},
	},
}

// gridCombinations expands a parameter grid into every combination.
func gridCombinations(grid map[string][]float64) []map[string]float64 {
	keys := make([]string, 0, len(grid))
	for k := range grid {
		keys = append(keys, k)
	}
	combos := []map[string]float64{{}}
	for _, key := range keys {
		var next []map[string]float64
		for _, combo := range combos {
			for _, v := range grid[key] {
				c := make(map[string]float64, len(combo)+1)
				for k2, v2 := range combo {
					c[k2] = v2
				}
				c[key] = v
				next = append(next, c)
			}
		}
		combos = next
	}
	return combos
}

// Tune searches the model's hyperparameter grid by k-fold cross-validation
// on the train split, scored by the experiment's sort metric, and returns
// a fresh model refit on the whole train split with the winning
// parameters. Cancellation stops the search and keeps the best candidate
// found so far; if nothing was evaluated the already-fitted input model is
// returned unchanged.
func (e *Experiment) Tune(ctx context.Context, id string, m Model) (Model, error) {
	grid, ok := tuningGrid[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, id)
	}

	higherBetter := e.task.HigherIsBetter()
	bestScore := math.Inf(1)
	if higherBetter {
		bestScore = math.Inf(-1)
	}
	var bestParams map[string]float64

	for _, params := range gridCombinations(grid) {
		if ctx.Err() != nil {
			e.log.Warn("Tuning interrupted", zap.String("model", id), zap.Error(ctx.Err()))
			break
		}
		score, err := e.crossValidate(id, params)
		if err != nil {
			e.log.Debug("Tuning candidate failed", zap.String("model", id), zap.Any("params", params), zap.Error(err))
			continue
		}
		if (higherBetter && score > bestScore) || (!higherBetter && score < bestScore) {
			bestScore = score
			bestParams = params
		}
	}

	if bestParams == nil {
		e.log.Warn("Tuning found no usable candidate, keeping defaults", zap.String("model", id))
		return m, nil
	}

	tuned, err := newModel(id, e.task, e.seed)
	if err != nil {
		return nil, err
	}
	if err := tuned.SetParams(bestParams); err != nil {
		return nil, fmt.Errorf("failed to apply tuned parameters: %w", err)
	}
	if err := tuned.Fit(e.XTrain, e.yTrain); err != nil {
		return nil, fmt.Errorf("failed to refit %s with tuned parameters: %w", id, err)
	}
	e.log.Debug("Tuned model",
		zap.String("model", id),
		zap.Any("params", bestParams),
		zap.Float64("cv_"+e.task.SortMetric(), bestScore))
	return tuned, nil
}

// crossValidate scores one parameter combination by k-fold CV on the train
// split, returning the mean sort-metric value across folds.
func (e *Experiment) crossValidate(id string, params map[string]float64) (float64, error) {
	n, p := e.XTrain.Dims()
	folds := e.tuneFolds
	if folds > n {
		folds = n
	}
	if folds < 2 {
		return 0, fmt.Errorf("not enough rows for cross-validation")
	}

	var total float64
	for f := 0; f < folds; f++ {
		lo := f * n / folds
		hi := (f + 1) * n / folds

		trainRows := n - (hi - lo)
		XFit := mat.NewDense(trainRows, p, nil)
		yFit := make([]float64, trainRows)
		XVal := mat.NewDense(hi-lo, p, nil)
		yVal := make([]float64, hi-lo)
		fi, vi := 0, 0
		for i := 0; i < n; i++ {
			if i >= lo && i < hi {
				copyRow(XVal, vi, e.XTrain, i)
				yVal[vi] = e.yTrain[i]
				vi++
			} else {
				copyRow(XFit, fi, e.XTrain, i)
				yFit[fi] = e.yTrain[i]
				fi++
			}
		}

		model, err := newModel(id, e.task, e.seed)
		if err != nil {
			return 0, err
		}
		if err := model.SetParams(params); err != nil {
			return 0, err
		}
		if err := model.Fit(XFit, yFit); err != nil {
			return 0, err
		}
		pred, err := model.Predict(XVal)
		if err != nil {
			return 0, err
		}

		var score float64
		if e.task == models.TaskClassification {
			score, err = Accuracy(yVal, pred)
		} else {
			score, err = RMSE(yVal, pred)
		}
		if err != nil {
			return 0, err
		}
		total += score
	}
	return total / float64(folds), nil
}
