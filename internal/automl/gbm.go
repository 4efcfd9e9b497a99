package automl

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"maximus/internal/models"
)

// GradientBoosting builds an additive model of regression trees. Regression
// fits trees to least-squares residuals; classification runs one-vs-rest
// logistic boosting and predicts the class with the largest score.
type GradientBoosting struct {
	Task         models.TaskType
	NEstimators  int
	LearningRate float64
	MaxDepth     int
	Classes      []float64
	Init         []float64        // initial score, one per class (one entry for regression)
	Ensembles    [][]DecisionTree // one ensemble per class (one for regression)
}

// NewGradientBoosting returns an unfitted booster with catalog defaults.
func NewGradientBoosting(task models.TaskType) *GradientBoosting {
	return &GradientBoosting{Task: task, NEstimators: 100, LearningRate: 0.1, MaxDepth: 3}
}

func (g *GradientBoosting) Params() map[string]float64 {
	return map[string]float64{
		"n_estimators":  float64(g.NEstimators),
		"learning_rate": g.LearningRate,
		"max_depth":     float64(g.MaxDepth),
	}
}

func (g *GradientBoosting) SetParams(params map[string]float64) error {
	setInt(&g.NEstimators, params, "n_estimators")
	setFloat(&g.LearningRate, params, "learning_rate")
	setInt(&g.MaxDepth, params, "max_depth")
	if g.NEstimators < 1 || g.LearningRate <= 0 || g.MaxDepth < 1 {
		return fmt.Errorf("invalid gradient boosting parameters: n_estimators=%d learning_rate=%g max_depth=%d",
			g.NEstimators, g.LearningRate, g.MaxDepth)
	}
	return nil
}

func (g *GradientBoosting) Fit(X *mat.Dense, y []float64) error {
	n, _ := X.Dims()
	if n == 0 {
		return fmt.Errorf("cannot fit gradient boosting on empty data")
	}
	if n != len(y) {
		return fmt.Errorf("X has %d rows but y has %d values", n, len(y))
	}

	if g.Task == models.TaskClassification {
		g.Classes = uniqueSorted(y)
		if len(g.Classes) < 2 {
			return fmt.Errorf("classification needs at least 2 classes, got %d", len(g.Classes))
		}
		g.Init = make([]float64, len(g.Classes))
		g.Ensembles = make([][]DecisionTree, len(g.Classes))
		for k, class := range g.Classes {
			binary := make([]float64, n)
			for i, v := range y {
				if v == class {
					binary[i] = 1
				}
			}
			init, ensemble, err := g.fitLogistic(X, binary)
			if err != nil {
				return fmt.Errorf("class %g: %w", class, err)
			}
			g.Init[k] = init
			g.Ensembles[k] = ensemble
		}
		return nil
	}

	var mean float64
	for _, v := range y {
		mean += v
	}
	mean /= float64(n)

	score := make([]float64, n)
	for i := range score {
		score[i] = mean
	}
	ensemble := make([]DecisionTree, 0, g.NEstimators)
	residual := make([]float64, n)
	for m := 0; m < g.NEstimators; m++ {
		for i := range residual {
			residual[i] = y[i] - score[i]
		}
		tree := DecisionTree{Task: models.TaskRegression, MaxDepth: g.MaxDepth, MinLeaf: 2}
		if err := tree.Fit(X, residual); err != nil {
			return fmt.Errorf("failed to fit stage %d: %w", m, err)
		}
		pred, err := tree.Predict(X)
		if err != nil {
			return err
		}
		for i := range score {
			score[i] += g.LearningRate * pred[i]
		}
		ensemble = append(ensemble, tree)
	}
	g.Init = []float64{mean}
	g.Ensembles = [][]DecisionTree{ensemble}
	return nil
}

// fitLogistic boosts one binary log-loss objective: trees are fit to the
// gradient y - sigmoid(score).
func (g *GradientBoosting) fitLogistic(X *mat.Dense, y []float64) (float64, []DecisionTree, error) {
	n, _ := X.Dims()
	var pos float64
	for _, v := range y {
		pos += v
	}
	prior := pos / float64(n)
	if prior <= 0 {
		prior = 1e-6
	}
	if prior >= 1 {
		prior = 1 - 1e-6
	}
	init := math.Log(prior / (1 - prior))

	score := make([]float64, n)
	for i := range score {
		score[i] = init
	}
	ensemble := make([]DecisionTree, 0, g.NEstimators)
	gradient := make([]float64, n)
	for m := 0; m < g.NEstimators; m++ {
		for i := range gradient {
			gradient[i] = y[i] - sigmoid(score[i])
		}
		tree := DecisionTree{Task: models.TaskRegression, MaxDepth: g.MaxDepth, MinLeaf: 2}
		if err := tree.Fit(X, gradient); err != nil {
			return 0, nil, fmt.Errorf("failed to fit stage %d: %w", m, err)
		}
		pred, err := tree.Predict(X)
		if err != nil {
			return 0, nil, err
		}
		for i := range score {
			score[i] += g.LearningRate * pred[i]
		}
		ensemble = append(ensemble, tree)
	}
	return init, ensemble, nil
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func (g *GradientBoosting) Predict(X *mat.Dense) ([]float64, error) {
	if len(g.Ensembles) == 0 {
		return nil, fmt.Errorf("gradient boosting is not fitted")
	}
	n, _ := X.Dims()

	scores := make([][]float64, len(g.Ensembles))
	for k := range g.Ensembles {
		score := make([]float64, n)
		for i := range score {
			score[i] = g.Init[k]
		}
		for _, tree := range g.Ensembles[k] {
			pred, err := tree.Predict(X)
			if err != nil {
				return nil, err
			}
			for i := range score {
				score[i] += g.LearningRate * pred[i]
			}
		}
		scores[k] = score
	}

	out := make([]float64, n)
	if g.Task == models.TaskClassification {
		for i := 0; i < n; i++ {
			best, bestScore := g.Classes[0], math.Inf(-1)
			for k, class := range g.Classes {
				if scores[k][i] > bestScore {
					best, bestScore = class, scores[k][i]
				}
			}
			out[i] = best
		}
	} else {
		copy(out, scores[0])
	}
	return out, nil
}
