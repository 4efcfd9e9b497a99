package automl

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"maximus/internal/models"
)

// RandomForest bags decision trees over bootstrap samples with per-tree
// feature subsampling. Predictions are averaged for regression and
// majority-voted for classification.
type RandomForest struct {
	Task        models.TaskType
	NEstimators int
	MaxDepth    int
	MinLeaf     int
	Seed        int64
	Trees       []DecisionTree
	Features    [][]int // feature subset per tree, indices into the full matrix
}

// NewRandomForest returns an unfitted forest with catalog defaults.
func NewRandomForest(task models.TaskType, seed int64) *RandomForest {
	return &RandomForest{Task: task, NEstimators: 50, MaxDepth: 10, MinLeaf: 1, Seed: seed}
}

func (f *RandomForest) Params() map[string]float64 {
	return map[string]float64{
		"n_estimators":     float64(f.NEstimators),
		"max_depth":        float64(f.MaxDepth),
		"min_samples_leaf": float64(f.MinLeaf),
	}
}

func (f *RandomForest) SetParams(params map[string]float64) error {
	setInt(&f.NEstimators, params, "n_estimators")
	setInt(&f.MaxDepth, params, "max_depth")
	setInt(&f.MinLeaf, params, "min_samples_leaf")
	if f.NEstimators < 1 || f.MaxDepth < 1 || f.MinLeaf < 1 {
		return fmt.Errorf("invalid forest parameters: n_estimators=%d max_depth=%d min_samples_leaf=%d",
			f.NEstimators, f.MaxDepth, f.MinLeaf)
	}
	return nil
}

func (f *RandomForest) Fit(X *mat.Dense, y []float64) error {
	n, p := X.Dims()
	if n == 0 {
		return fmt.Errorf("cannot fit random forest on empty data")
	}
	if n != len(y) {
		return fmt.Errorf("X has %d rows but y has %d values", n, len(y))
	}

	// sqrt(p) features per tree for classification, p/3 for regression.
	nFeatures := p / 3
	if f.Task == models.TaskClassification {
		nFeatures = int(math.Sqrt(float64(p)))
	}
	if nFeatures < 1 {
		nFeatures = 1
	}

	rng := rand.New(rand.NewSource(f.Seed))
	f.Trees = make([]DecisionTree, 0, f.NEstimators)
	f.Features = make([][]int, 0, f.NEstimators)

	for t := 0; t < f.NEstimators; t++ {
		features := rng.Perm(p)[:nFeatures]

		sub := mat.NewDense(n, nFeatures, nil)
		ySub := make([]float64, n)
		for i := 0; i < n; i++ {
			row := rng.Intn(n)
			ySub[i] = y[row]
			for j, fj := range features {
				sub.Set(i, j, X.At(row, fj))
			}
		}

		tree := DecisionTree{Task: f.Task, MaxDepth: f.MaxDepth, MinLeaf: f.MinLeaf}
		if err := tree.Fit(sub, ySub); err != nil {
			return fmt.Errorf("failed to fit tree %d: %w", t, err)
		}
		f.Trees = append(f.Trees, tree)
		f.Features = append(f.Features, features)
	}
	return nil
}

func (f *RandomForest) Predict(X *mat.Dense) ([]float64, error) {
	if len(f.Trees) == 0 {
		return nil, fmt.Errorf("random forest is not fitted")
	}
	n, _ := X.Dims()
	out := make([]float64, n)

	for i := 0; i < n; i++ {
		if f.Task == models.TaskClassification {
			votes := make(map[float64]int)
			for t := range f.Trees {
				pred := f.treePredictRow(t, X, i)
				votes[pred]++
			}
			best, bestCount := 0.0, -1
			for class, count := range votes {
				if count > bestCount || (count == bestCount && class < best) {
					best, bestCount = class, count
				}
			}
			out[i] = best
		} else {
			var sum float64
			for t := range f.Trees {
				sum += f.treePredictRow(t, X, i)
			}
			out[i] = sum / float64(len(f.Trees))
		}
	}
	return out, nil
}

// treePredictRow projects row i onto the tree's feature subset and walks it.
func (f *RandomForest) treePredictRow(t int, X *mat.Dense, row int) float64 {
	tree := &f.Trees[t]
	node := 0
	for tree.Nodes[node].Left >= 0 {
		fj := f.Features[t][tree.Nodes[node].Feature]
		if X.At(row, fj) <= tree.Nodes[node].Threshold {
			node = tree.Nodes[node].Left
		} else {
			node = tree.Nodes[node].Right
		}
	}
	return tree.Nodes[node].Value
}
