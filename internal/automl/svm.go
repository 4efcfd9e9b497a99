package automl

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"maximus/internal/models"
)

// LinearSVM is a linear support vector machine trained by stochastic
// subgradient descent: epsilon-insensitive regression (SVR) or one-vs-rest
// hinge loss classification (SVC). Inputs are standardized internally, so
// the model tolerates unscaled features.
type LinearSVM struct {
	Task    models.TaskType
	Alpha   float64 // L2 regularization strength
	Epsilon float64 // insensitive tube width (regression only)
	MaxIter int     // epochs
	LR      float64
	Seed    int64

	FeatureMean []float64
	FeatureStd  []float64
	Classes     []float64
	Weights     [][]float64 // one weight vector per class (one for regression)
	Bias        []float64
}

// NewLinearSVM returns an unfitted model with catalog defaults.
func NewLinearSVM(task models.TaskType, seed int64) *LinearSVM {
	return &LinearSVM{Task: task, Alpha: 1e-4, Epsilon: 0.1, MaxIter: 200, LR: 0.01, Seed: seed}
}

func (s *LinearSVM) Params() map[string]float64 {
	return map[string]float64{
		"alpha":         s.Alpha,
		"epsilon":       s.Epsilon,
		"max_iter":      float64(s.MaxIter),
		"learning_rate": s.LR,
	}
}

func (s *LinearSVM) SetParams(params map[string]float64) error {
	setFloat(&s.Alpha, params, "alpha")
	setFloat(&s.Epsilon, params, "epsilon")
	setInt(&s.MaxIter, params, "max_iter")
	setFloat(&s.LR, params, "learning_rate")
	if s.Alpha < 0 || s.Epsilon < 0 || s.MaxIter < 1 || s.LR <= 0 {
		return fmt.Errorf("invalid svm parameters: alpha=%g epsilon=%g max_iter=%d learning_rate=%g",
			s.Alpha, s.Epsilon, s.MaxIter, s.LR)
	}
	return nil
}

func (s *LinearSVM) Fit(X *mat.Dense, y []float64) error {
	n, p := X.Dims()
	if n == 0 {
		return fmt.Errorf("cannot fit svm on empty data")
	}
	if n != len(y) {
		return fmt.Errorf("X has %d rows but y has %d values", n, len(y))
	}

	s.fitScaler(X)
	scaled := s.scale(X)
	rng := rand.New(rand.NewSource(s.Seed))

	if s.Task == models.TaskClassification {
		s.Classes = uniqueSorted(y)
		if len(s.Classes) < 2 {
			return fmt.Errorf("classification needs at least 2 classes, got %d", len(s.Classes))
		}
		s.Weights = make([][]float64, len(s.Classes))
		s.Bias = make([]float64, len(s.Classes))
		for k, class := range s.Classes {
			signed := make([]float64, n)
			for i, v := range y {
				if v == class {
					signed[i] = 1
				} else {
					signed[i] = -1
				}
			}
			w, b := s.fitHinge(scaled, signed, p, rng)
			s.Weights[k] = w
			s.Bias[k] = b
		}
		return nil
	}

	w, b := s.fitEpsilon(scaled, y, p, rng)
	s.Weights = [][]float64{w}
	s.Bias = []float64{b}
	return nil
}

func (s *LinearSVM) fitScaler(X *mat.Dense) {
	n, p := X.Dims()
	s.FeatureMean = make([]float64, p)
	s.FeatureStd = make([]float64, p)
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
		s.FeatureMean[j] = mean
		s.FeatureStd[j] = std
	}
}

func (s *LinearSVM) scale(X *mat.Dense) *mat.Dense {
	n, p := X.Dims()
	out := mat.NewDense(n, p, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < p; j++ {
			out.Set(i, j, (X.At(i, j)-s.FeatureMean[j])/s.FeatureStd[j])
		}
	}
	return out
}

func (s *LinearSVM) fitHinge(X *mat.Dense, y []float64, p int, rng *rand.Rand) ([]float64, float64) {
	n, _ := X.Dims()
	w := make([]float64, p)
	var b float64
	for epoch := 0; epoch < s.MaxIter; epoch++ {
		lr := s.LR / (1 + 0.01*float64(epoch))
		for _, i := range rng.Perm(n) {
			margin := y[i] * (dotRow(X, i, w) + b)
			for j := 0; j < p; j++ {
				grad := s.Alpha * w[j]
				if margin < 1 {
					grad -= y[i] * X.At(i, j)
				}
				w[j] -= lr * grad
			}
			if margin < 1 {
				b += lr * y[i]
			}
		}
	}
	return w, b
}

func (s *LinearSVM) fitEpsilon(X *mat.Dense, y []float64, p int, rng *rand.Rand) ([]float64, float64) {
	n, _ := X.Dims()
	w := make([]float64, p)
	// Start the bias at the target mean so the tube is centered sensibly.
	var b float64
	for _, v := range y {
		b += v
	}
	b /= float64(n)

	for epoch := 0; epoch < s.MaxIter; epoch++ {
		lr := s.LR / (1 + 0.01*float64(epoch))
		for _, i := range rng.Perm(n) {
			err := dotRow(X, i, w) + b - y[i]
			var sign float64
			if err > s.Epsilon {
				sign = 1
			} else if err < -s.Epsilon {
				sign = -1
			}
			for j := 0; j < p; j++ {
				w[j] -= lr * (s.Alpha*w[j] + sign*X.At(i, j))
			}
			b -= lr * sign
		}
	}
	return w, b
}

func dotRow(X *mat.Dense, i int, w []float64) float64 {
	var sum float64
	for j := range w {
		sum += X.At(i, j) * w[j]
	}
	return sum
}

func (s *LinearSVM) Predict(X *mat.Dense) ([]float64, error) {
	if len(s.Weights) == 0 {
		return nil, fmt.Errorf("svm is not fitted")
	}
	scaled := s.scale(X)
	n, _ := X.Dims()
	out := make([]float64, n)

	for i := 0; i < n; i++ {
		if s.Task == models.TaskClassification {
			best, bestScore := s.Classes[0], math.Inf(-1)
			for k := range s.Classes {
				score := dotRow(scaled, i, s.Weights[k]) + s.Bias[k]
				if score > bestScore {
					best, bestScore = s.Classes[k], score
				}
			}
			out[i] = best
		} else {
			out[i] = dotRow(scaled, i, s.Weights[0]) + s.Bias[0]
		}
	}
	return out, nil
}
