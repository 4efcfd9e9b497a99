package automl

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"maximus/internal/models"
)

// TreeNode is one node of a fitted CART tree. Leaves have Left == -1.
type TreeNode struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Value     float64
}

// DecisionTree is a CART tree supporting both tasks: variance reduction
// splits with mean leaves for regression, gini splits with majority leaves
// for classification.
type DecisionTree struct {
	Task     models.TaskType
	MaxDepth int
	MinLeaf  int
	Nodes    []TreeNode
	Classes  []float64
}

// NewDecisionTree returns an unfitted tree with catalog defaults.
func NewDecisionTree(task models.TaskType) *DecisionTree {
	return &DecisionTree{Task: task, MaxDepth: 8, MinLeaf: 2}
}

func (t *DecisionTree) Params() map[string]float64 {
	return map[string]float64{
		"max_depth":        float64(t.MaxDepth),
		"min_samples_leaf": float64(t.MinLeaf),
	}
}

func (t *DecisionTree) SetParams(params map[string]float64) error {
	setInt(&t.MaxDepth, params, "max_depth")
	setInt(&t.MinLeaf, params, "min_samples_leaf")
	if t.MaxDepth < 1 || t.MinLeaf < 1 {
		return fmt.Errorf("invalid tree parameters: max_depth=%d min_samples_leaf=%d", t.MaxDepth, t.MinLeaf)
	}
	return nil
}

func (t *DecisionTree) Fit(X *mat.Dense, y []float64) error {
	n, _ := X.Dims()
	if n == 0 {
		return fmt.Errorf("cannot fit decision tree on empty data")
	}
	if n != len(y) {
		return fmt.Errorf("X has %d rows but y has %d values", n, len(y))
	}
	if t.Task == models.TaskClassification {
		t.Classes = uniqueSorted(y)
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	t.Nodes = t.Nodes[:0]
	t.grow(X, y, idx, 0)
	return nil
}

func (t *DecisionTree) grow(X *mat.Dense, y []float64, idx []int, depth int) int {
	self := len(t.Nodes)
	t.Nodes = append(t.Nodes, TreeNode{Left: -1, Right: -1, Value: t.leafValue(y, idx)})

	if depth >= t.MaxDepth || len(idx) < 2*t.MinLeaf || isPure(y, idx) {
		return self
	}
	feature, threshold, ok := t.bestSplit(X, y, idx)
	if !ok {
		return self
	}

	var left, right []int
	for _, i := range idx {
		if X.At(i, feature) <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) < t.MinLeaf || len(right) < t.MinLeaf {
		return self
	}

	t.Nodes[self].Feature = feature
	t.Nodes[self].Threshold = threshold
	l := t.grow(X, y, left, depth+1)
	r := t.grow(X, y, right, depth+1)
	t.Nodes[self].Left = l
	t.Nodes[self].Right = r
	return self
}

func (t *DecisionTree) leafValue(y []float64, idx []int) float64 {
	if t.Task == models.TaskClassification {
		counts := make(map[float64]int)
		best, bestCount := y[idx[0]], 0
		for _, i := range idx {
			counts[y[i]]++
			if counts[y[i]] > bestCount {
				best, bestCount = y[i], counts[y[i]]
			}
		}
		return best
	}
	var sum float64
	for _, i := range idx {
		sum += y[i]
	}
	return sum / float64(len(idx))
}

func isPure(y []float64, idx []int) bool {
	first := y[idx[0]]
	for _, i := range idx[1:] {
		if y[i] != first {
			return false
		}
	}
	return true
}

// bestSplit scans every feature for the threshold that minimizes the
// weighted child impurity, respecting MinLeaf on both sides.
func (t *DecisionTree) bestSplit(X *mat.Dense, y []float64, idx []int) (int, float64, bool) {
	_, p := X.Dims()
	bestScore := math.Inf(1)
	bestFeature, bestThreshold := -1, 0.0

	order := make([]int, len(idx))
	for j := 0; j < p; j++ {
		copy(order, idx)
		sort.Slice(order, func(a, b int) bool { return X.At(order[a], j) < X.At(order[b], j) })

		var score, threshold float64
		var ok bool
		if t.Task == models.TaskClassification {
			score, threshold, ok = t.bestGiniSplit(X, y, order, j)
		} else {
			score, threshold, ok = t.bestVarianceSplit(X, y, order, j)
		}
		if ok && score < bestScore {
			bestScore = score
			bestFeature = j
			bestThreshold = threshold
		}
	}
	return bestFeature, bestThreshold, bestFeature >= 0
}

func (t *DecisionTree) bestVarianceSplit(X *mat.Dense, y []float64, order []int, j int) (float64, float64, bool) {
	n := len(order)
	var totalSum, totalSq float64
	for _, i := range order {
		totalSum += y[i]
		totalSq += y[i] * y[i]
	}

	bestScore := math.Inf(1)
	bestThreshold := 0.0
	found := false
	var leftSum, leftSq float64
	for k := 0; k < n-1; k++ {
		v := y[order[k]]
		leftSum += v
		leftSq += v * v

		cur, next := X.At(order[k], j), X.At(order[k+1], j)
		if cur == next {
			continue
		}
		nl, nr := k+1, n-k-1
		if nl < t.MinLeaf || nr < t.MinLeaf {
			continue
		}
		sseLeft := leftSq - leftSum*leftSum/float64(nl)
		rightSum := totalSum - leftSum
		sseRight := (totalSq - leftSq) - rightSum*rightSum/float64(nr)
		score := sseLeft + sseRight
		if score < bestScore {
			bestScore = score
			bestThreshold = (cur + next) / 2
			found = true
		}
	}
	return bestScore, bestThreshold, found
}

func (t *DecisionTree) bestGiniSplit(X *mat.Dense, y []float64, order []int, j int) (float64, float64, bool) {
	n := len(order)
	total := make(map[float64]int)
	for _, i := range order {
		total[y[i]]++
	}

	bestScore := math.Inf(1)
	bestThreshold := 0.0
	found := false
	left := make(map[float64]int)
	for k := 0; k < n-1; k++ {
		left[y[order[k]]]++

		cur, next := X.At(order[k], j), X.At(order[k+1], j)
		if cur == next {
			continue
		}
		nl, nr := k+1, n-k-1
		if nl < t.MinLeaf || nr < t.MinLeaf {
			continue
		}
		score := weightedGini(left, total, nl, nr)
		if score < bestScore {
			bestScore = score
			bestThreshold = (cur + next) / 2
			found = true
		}
	}
	return bestScore, bestThreshold, found
}

func weightedGini(left, total map[float64]int, nl, nr int) float64 {
	var giniL, giniR float64 = 1, 1
	for class, count := range total {
		lc := left[class]
		rc := count - lc
		pl := float64(lc) / float64(nl)
		pr := float64(rc) / float64(nr)
		giniL -= pl * pl
		giniR -= pr * pr
	}
	n := float64(nl + nr)
	return float64(nl)/n*giniL + float64(nr)/n*giniR
}

func (t *DecisionTree) Predict(X *mat.Dense) ([]float64, error) {
	if len(t.Nodes) == 0 {
		return nil, fmt.Errorf("decision tree is not fitted")
	}
	n, _ := X.Dims()
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = t.predictRow(X, i)
	}
	return out, nil
}

func (t *DecisionTree) predictRow(X *mat.Dense, row int) float64 {
	node := 0
	for t.Nodes[node].Left >= 0 {
		if X.At(row, t.Nodes[node].Feature) <= t.Nodes[node].Threshold {
			node = t.Nodes[node].Left
		} else {
			node = t.Nodes[node].Right
		}
	}
	return t.Nodes[node].Value
}

func uniqueSorted(y []float64) []float64 {
	uniq := make(map[float64]struct{})
	for _, v := range y {
		uniq[v] = struct{}{}
	}
	out := make([]float64, 0, len(uniq))
	for v := range uniq {
		out = append(out, v)
	}
	sort.Float64s(out)
	return out
}
