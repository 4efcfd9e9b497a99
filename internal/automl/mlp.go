package automl

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"maximus/internal/models"
)

// MLP is a feedforward network with one tanh hidden layer trained by SGD:
// a linear output with squared loss for regression, softmax with
// cross-entropy for classification. Inputs are standardized internally.
type MLP struct {
	Task        models.TaskType
	HiddenUnits int
	LR          float64
	MaxIter     int // epochs
	Seed        int64

	FeatureMean []float64
	FeatureStd  []float64
	TargetMean  float64 // regression output centering
	TargetStd   float64
	Classes     []float64

	W1 [][]float64 // hidden x input
	B1 []float64
	W2 [][]float64 // output x hidden
	B2 []float64
}

// NewMLP returns an unfitted network with catalog defaults.
func NewMLP(task models.TaskType, seed int64) *MLP {
	return &MLP{Task: task, HiddenUnits: 32, LR: 0.01, MaxIter: 300, Seed: seed}
}

func (m *MLP) Params() map[string]float64 {
	return map[string]float64{
		"hidden_units":  float64(m.HiddenUnits),
		"learning_rate": m.LR,
		"max_iter":      float64(m.MaxIter),
	}
}

func (m *MLP) SetParams(params map[string]float64) error {
	setInt(&m.HiddenUnits, params, "hidden_units")
	setFloat(&m.LR, params, "learning_rate")
	setInt(&m.MaxIter, params, "max_iter")
	if m.HiddenUnits < 1 || m.LR <= 0 || m.MaxIter < 1 {
		return fmt.Errorf("invalid mlp parameters: hidden_units=%d learning_rate=%g max_iter=%d",
			m.HiddenUnits, m.LR, m.MaxIter)
	}
	return nil
}

func (m *MLP) Fit(X *mat.Dense, y []float64) error {
	n, p := X.Dims()
	if n == 0 {
		return fmt.Errorf("cannot fit mlp on empty data")
	}
	if n != len(y) {
		return fmt.Errorf("X has %d rows but y has %d values", n, len(y))
	}

	m.fitScaler(X)
	scaled := m.scaleRows(X)

	outputs := 1
	var targets [][]float64
	if m.Task == models.TaskClassification {
		m.Classes = uniqueSorted(y)
		if len(m.Classes) < 2 {
			return fmt.Errorf("classification needs at least 2 classes, got %d", len(m.Classes))
		}
		outputs = len(m.Classes)
		classIndex := make(map[float64]int, outputs)
		for k, class := range m.Classes {
			classIndex[class] = k
		}
		targets = make([][]float64, n)
		for i, v := range y {
			onehot := make([]float64, outputs)
			onehot[classIndex[v]] = 1
			targets[i] = onehot
		}
	} else {
		var mean, sq float64
		for _, v := range y {
			mean += v
		}
		mean /= float64(n)
		for _, v := range y {
			d := v - mean
			sq += d * d
		}
		std := math.Sqrt(sq / float64(n))
		if std == 0 {
			std = 1
		}
		m.TargetMean, m.TargetStd = mean, std
		targets = make([][]float64, n)
		for i, v := range y {
			targets[i] = []float64{(v - mean) / std}
		}
	}

	rng := rand.New(rand.NewSource(m.Seed))
	m.initWeights(p, outputs, rng)

	hidden := make([]float64, m.HiddenUnits)
	out := make([]float64, outputs)
	deltaOut := make([]float64, outputs)
	deltaHidden := make([]float64, m.HiddenUnits)

	for epoch := 0; epoch < m.MaxIter; epoch++ {
		lr := m.LR / (1 + 0.005*float64(epoch))
		for _, i := range rng.Perm(n) {
			m.forward(scaled[i], hidden, out)

			if m.Task == models.TaskClassification {
				softmaxInPlace(out)
			}
			for k := range out {
				deltaOut[k] = out[k] - targets[i][k]
			}

			for h := 0; h < m.HiddenUnits; h++ {
				var sum float64
				for k := range deltaOut {
					sum += deltaOut[k] * m.W2[k][h]
				}
				deltaHidden[h] = sum * (1 - hidden[h]*hidden[h]) // tanh'
			}

			for k := range deltaOut {
				for h := 0; h < m.HiddenUnits; h++ {
					m.W2[k][h] -= lr * deltaOut[k] * hidden[h]
				}
				m.B2[k] -= lr * deltaOut[k]
			}
			for h := 0; h < m.HiddenUnits; h++ {
				for j := 0; j < p; j++ {
					m.W1[h][j] -= lr * deltaHidden[h] * scaled[i][j]
				}
				m.B1[h] -= lr * deltaHidden[h]
			}
		}
	}
	return nil
}

func (m *MLP) fitScaler(X *mat.Dense) {
	n, p := X.Dims()
	m.FeatureMean = make([]float64, p)
	m.FeatureStd = make([]float64, p)
	for j := 0; j < p; j++ {
		var sum float64
		for i := 0; i < n; i++ {
			sum += X.At(i, j)
		}
		mean := sum / float64(n)
		var sq float64
		for i := 0; i < n; i++ {
			d := X.At(i, j) - mean
			sq += d * d
		}
		std := math.Sqrt(sq / float64(n))
		if std == 0 {
			std = 1
		}
		m.FeatureMean[j] = mean
		m.FeatureStd[j] = std
	}
}

func (m *MLP) scaleRows(X *mat.Dense) [][]float64 {
	n, p := X.Dims()
	rows := make([][]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, p)
		for j := 0; j < p; j++ {
			row[j] = (X.At(i, j) - m.FeatureMean[j]) / m.FeatureStd[j]
		}
		rows[i] = row
	}
	return rows
}

func (m *MLP) initWeights(inputs, outputs int, rng *rand.Rand) {
	scale1 := math.Sqrt(2 / float64(inputs))
	m.W1 = make([][]float64, m.HiddenUnits)
	m.B1 = make([]float64, m.HiddenUnits)
	for h := range m.W1 {
		m.W1[h] = make([]float64, inputs)
		for j := range m.W1[h] {
			m.W1[h][j] = rng.NormFloat64() * scale1
		}
	}
	scale2 := math.Sqrt(2 / float64(m.HiddenUnits))
	m.W2 = make([][]float64, outputs)
	m.B2 = make([]float64, outputs)
	for k := range m.W2 {
		m.W2[k] = make([]float64, m.HiddenUnits)
		for h := range m.W2[k] {
			m.W2[k][h] = rng.NormFloat64() * scale2
		}
	}
}

func (m *MLP) forward(row []float64, hidden, out []float64) {
	for h := 0; h < m.HiddenUnits; h++ {
		sum := m.B1[h]
		for j := range row {
			sum += m.W1[h][j] * row[j]
		}
		hidden[h] = math.Tanh(sum)
	}
	for k := range out {
		sum := m.B2[k]
		for h := 0; h < m.HiddenUnits; h++ {
			sum += m.W2[k][h] * hidden[h]
		}
		out[k] = sum
	}
}

func softmaxInPlace(scores []float64) {
	max := scores[0]
	for _, v := range scores[1:] {
		if v > max {
			max = v
		}
	}
	var sum float64
	for k, v := range scores {
		scores[k] = math.Exp(v - max)
		sum += scores[k]
	}
	for k := range scores {
		scores[k] /= sum
	}
}

func (m *MLP) Predict(X *mat.Dense) ([]float64, error) {
	if len(m.W1) == 0 {
		return nil, fmt.Errorf("mlp is not fitted")
	}
	rows := m.scaleRows(X)
	outputs := 1
	if m.Task == models.TaskClassification {
		outputs = len(m.Classes)
	}
	hidden := make([]float64, m.HiddenUnits)
	scores := make([]float64, outputs)

	out := make([]float64, len(rows))
	for i, row := range rows {
		m.forward(row, hidden, scores)
		if m.Task == models.TaskClassification {
			best, bestScore := m.Classes[0], math.Inf(-1)
			for k, class := range m.Classes {
				if scores[k] > bestScore {
					best, bestScore = class, scores[k]
				}
			}
			out[i] = best
		} else {
			out[i] = scores[0]*m.TargetStd + m.TargetMean
		}
	}
	return out, nil
}
