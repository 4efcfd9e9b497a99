package automl

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"

	"maximus/internal/models"
)

// AdaBoost boosts shallow decision trees: AdaBoost.R2 with a linear loss
// for regression, SAMME for classification. Base learners are trained on
// weighted bootstrap resamples so the tree itself stays weight-free.
type AdaBoost struct {
	Task         models.TaskType
	NEstimators  int
	LearningRate float64
	MaxDepth     int
	Seed         int64
	Trees        []DecisionTree
	Alphas       []float64
	Classes      []float64
}

// NewAdaBoost returns an unfitted booster with catalog defaults.
func NewAdaBoost(task models.TaskType, seed int64) *AdaBoost {
	return &AdaBoost{Task: task, NEstimators: 50, LearningRate: 1.0, MaxDepth: 3, Seed: seed}
}

func (a *AdaBoost) Params() map[string]float64 {
	return map[string]float64{
		"n_estimators":  float64(a.NEstimators),
		"learning_rate": a.LearningRate,
		"max_depth":     float64(a.MaxDepth),
	}
}

func (a *AdaBoost) SetParams(params map[string]float64) error {
	setInt(&a.NEstimators, params, "n_estimators")
	setFloat(&a.LearningRate, params, "learning_rate")
	setInt(&a.MaxDepth, params, "max_depth")
	if a.NEstimators < 1 || a.LearningRate <= 0 || a.MaxDepth < 1 {
		return fmt.Errorf("invalid adaboost parameters: n_estimators=%d learning_rate=%g max_depth=%d",
			a.NEstimators, a.LearningRate, a.MaxDepth)
	}
	return nil
}

func (a *AdaBoost) Fit(X *mat.Dense, y []float64) error {
	n, _ := X.Dims()
	if n == 0 {
		return fmt.Errorf("cannot fit adaboost on empty data")
	}
	if n != len(y) {
		return fmt.Errorf("X has %d rows but y has %d values", n, len(y))
	}

	a.Trees = a.Trees[:0]
	a.Alphas = a.Alphas[:0]
	if a.Task == models.TaskClassification {
		a.Classes = uniqueSorted(y)
		return a.fitSAMME(X, y)
	}
	return a.fitR2(X, y)
}

// fitR2 implements AdaBoost.R2 with the linear loss.
func (a *AdaBoost) fitR2(X *mat.Dense, y []float64) error {
	n, p := X.Dims()
	rng := rand.New(rand.NewSource(a.Seed))
	weights := uniformWeights(n)

	for m := 0; m < a.NEstimators; m++ {
		sampleX, sampleY := weightedResample(X, y, weights, rng, n, p)
		tree := DecisionTree{Task: a.Task, MaxDepth: a.MaxDepth, MinLeaf: 2}
		if err := tree.Fit(sampleX, sampleY); err != nil {
			return fmt.Errorf("failed to fit stage %d: %w", m, err)
		}

		pred, err := tree.Predict(X)
		if err != nil {
			return err
		}
		maxErr := 0.0
		for i := range y {
			if e := math.Abs(y[i] - pred[i]); e > maxErr {
				maxErr = e
			}
		}
		if maxErr == 0 {
			// Perfect stage; keep it with full confidence and stop.
			a.Trees = append(a.Trees, tree)
			a.Alphas = append(a.Alphas, 1)
			break
		}

		var avgLoss float64
		losses := make([]float64, n)
		for i := range y {
			losses[i] = math.Abs(y[i]-pred[i]) / maxErr
			avgLoss += weights[i] * losses[i]
		}
		if avgLoss >= 0.5 {
			break
		}

		beta := avgLoss / (1 - avgLoss)
		for i := range weights {
			weights[i] *= math.Pow(beta, a.LearningRate*(1-losses[i]))
		}
		normalize(weights)

		a.Trees = append(a.Trees, tree)
		a.Alphas = append(a.Alphas, a.LearningRate*math.Log(1/beta))
	}

	if len(a.Trees) == 0 {
		return fmt.Errorf("adaboost produced no usable stage")
	}
	return nil
}

// fitSAMME implements multi-class AdaBoost (SAMME).
func (a *AdaBoost) fitSAMME(X *mat.Dense, y []float64) error {
	n, p := X.Dims()
	k := float64(len(a.Classes))
	if k < 2 {
		return fmt.Errorf("classification needs at least 2 classes, got %d", len(a.Classes))
	}
	rng := rand.New(rand.NewSource(a.Seed))
	weights := uniformWeights(n)

	for m := 0; m < a.NEstimators; m++ {
		sampleX, sampleY := weightedResample(X, y, weights, rng, n, p)
		tree := DecisionTree{Task: a.Task, MaxDepth: a.MaxDepth, MinLeaf: 1}
		if err := tree.Fit(sampleX, sampleY); err != nil {
			return fmt.Errorf("failed to fit stage %d: %w", m, err)
		}

		pred, err := tree.Predict(X)
		if err != nil {
			return err
		}
		var werr float64
		for i := range y {
			if pred[i] != y[i] {
				werr += weights[i]
			}
		}
		if werr >= 1-1/k {
			// Worse than random guessing; discard the stage.
			if len(a.Trees) == 0 {
				a.Trees = append(a.Trees, tree)
				a.Alphas = append(a.Alphas, 1)
			}
			break
		}
		if werr < 1e-10 {
			werr = 1e-10
		}

		alpha := a.LearningRate * (math.Log((1-werr)/werr) + math.Log(k-1))
		for i := range weights {
			if pred[i] != y[i] {
				weights[i] *= math.Exp(alpha)
			}
		}
		normalize(weights)

		a.Trees = append(a.Trees, tree)
		a.Alphas = append(a.Alphas, alpha)
	}

	if len(a.Trees) == 0 {
		return fmt.Errorf("adaboost produced no usable stage")
	}
	return nil
}

func (a *AdaBoost) Predict(X *mat.Dense) ([]float64, error) {
	if len(a.Trees) == 0 {
		return nil, fmt.Errorf("adaboost is not fitted")
	}
	n, _ := X.Dims()

	stagePreds := make([][]float64, len(a.Trees))
	for m := range a.Trees {
		pred, err := a.Trees[m].Predict(X)
		if err != nil {
			return nil, err
		}
		stagePreds[m] = pred
	}

	out := make([]float64, n)
	for i := 0; i < n; i++ {
		if a.Task == models.TaskClassification {
			scores := make(map[float64]float64)
			for m := range a.Trees {
				scores[stagePreds[m][i]] += a.Alphas[m]
			}
			best, bestScore := a.Classes[0], math.Inf(-1)
			for _, class := range a.Classes {
				if scores[class] > bestScore {
					best, bestScore = class, scores[class]
				}
			}
			out[i] = best
		} else {
			out[i] = weightedMedian(stagePreds, a.Alphas, i)
		}
	}
	return out, nil
}

// weightedMedian returns the alpha-weighted median of the stage predictions
// for one sample, the AdaBoost.R2 combination rule.
func weightedMedian(stagePreds [][]float64, alphas []float64, i int) float64 {
	type pair struct {
		pred  float64
		alpha float64
	}
	pairs := make([]pair, len(alphas))
	var total float64
	for m := range alphas {
		pairs[m] = pair{stagePreds[m][i], alphas[m]}
		total += alphas[m]
	}
	sort.Slice(pairs, func(a, b int) bool { return pairs[a].pred < pairs[b].pred })

	var cum float64
	for _, p := range pairs {
		cum += p.alpha
		if cum >= total/2 {
			return p.pred
		}
	}
	return pairs[len(pairs)-1].pred
}

func uniformWeights(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1 / float64(n)
	}
	return w
}

func normalize(w []float64) {
	var sum float64
	for _, v := range w {
		sum += v
	}
	if sum == 0 {
		for i := range w {
			w[i] = 1 / float64(len(w))
		}
		return
	}
	for i := range w {
		w[i] /= sum
	}
}

// weightedResample draws n rows with replacement according to weights.
func weightedResample(X *mat.Dense, y, weights []float64, rng *rand.Rand, n, p int) (*mat.Dense, []float64) {
	cum := make([]float64, n)
	var sum float64
	for i, w := range weights {
		sum += w
		cum[i] = sum
	}

	out := mat.NewDense(n, p, nil)
	yOut := make([]float64, n)
	for i := 0; i < n; i++ {
		r := rng.Float64() * sum
		row := sort.SearchFloat64s(cum, r)
		if row >= n {
			row = n - 1
		}
		yOut[i] = y[row]
		for j := 0; j < p; j++ {
			out.Set(i, j, X.At(row, j))
		}
	}
	return out, yOut
}
