package automl

import (
	"fmt"
	"math"

	"maximus/internal/models"
)

// Metric functions validate their inputs the same way for every metric:
// equal, non-zero lengths. Predictions and truth are plain float slices;
// classification labels are the encoded class values.

func validateVectors(yTrue, yPred []float64) error {
	if len(yTrue) == 0 {
		return fmt.Errorf("empty evaluation vectors")
	}
	if len(yTrue) != len(yPred) {
		return fmt.Errorf("length mismatch: %d true values, %d predictions", len(yTrue), len(yPred))
	}
	return nil
}

// MAE computes the mean absolute error.
func MAE(yTrue, yPred []float64) (float64, error) {
	if err := validateVectors(yTrue, yPred); err != nil {
		return 0, err
	}
	var sum float64
	for i := range yTrue {
		sum += math.Abs(yTrue[i] - yPred[i])
	}
	return sum / float64(len(yTrue)), nil
}

// MSE computes the mean squared error.
func MSE(yTrue, yPred []float64) (float64, error) {
	if err := validateVectors(yTrue, yPred); err != nil {
		return 0, err
	}
	var sum float64
	for i := range yTrue {
		diff := yTrue[i] - yPred[i]
		sum += diff * diff
	}
	return sum / float64(len(yTrue)), nil
}

// RMSE computes the root mean squared error.
func RMSE(yTrue, yPred []float64) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// R2 computes the coefficient of determination.
func R2(yTrue, yPred []float64) (float64, error) {
	if err := validateVectors(yTrue, yPred); err != nil {
		return 0, err
	}
	var mean float64
	for _, v := range yTrue {
		mean += v
	}
	mean /= float64(len(yTrue))

	var ssRes, ssTot float64
	for i := range yTrue {
		r := yTrue[i] - yPred[i]
		t := yTrue[i] - mean
		ssRes += r * r
		ssTot += t * t
	}
	if ssTot == 0 {
		return 0, fmt.Errorf("R2 undefined for constant target")
	}
	return 1 - ssRes/ssTot, nil
}

// Accuracy computes the fraction of exactly matching labels.
func Accuracy(yTrue, yPred []float64) (float64, error) {
	if err := validateVectors(yTrue, yPred); err != nil {
		return 0, err
	}
	correct := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(yTrue)), nil
}

// PrecisionRecallF1 computes macro-averaged precision, recall and F1 over
// the classes present in yTrue.
func PrecisionRecallF1(yTrue, yPred []float64) (precision, recall, f1 float64, err error) {
	if err := validateVectors(yTrue, yPred); err != nil {
		return 0, 0, 0, err
	}
	classes := make(map[float64]struct{})
	for _, v := range yTrue {
		classes[v] = struct{}{}
	}

	var pSum, rSum, fSum float64
	for class := range classes {
		var tp, fp, fn float64
		for i := range yTrue {
			switch {
			case yPred[i] == class && yTrue[i] == class:
				tp++
			case yPred[i] == class && yTrue[i] != class:
				fp++
			case yPred[i] != class && yTrue[i] == class:
				fn++
			}
		}
		var p, r float64
		if tp+fp > 0 {
			p = tp / (tp + fp)
		}
		if tp+fn > 0 {
			r = tp / (tp + fn)
		}
		var f float64
		if p+r > 0 {
			f = 2 * p * r / (p + r)
		}
		pSum += p
		rSum += r
		fSum += f
	}
	n := float64(len(classes))
	return pSum / n, rSum / n, fSum / n, nil
}

// metricRow computes the full metric table for a task from holdout truth
// and predictions.
func metricRow(task models.TaskType, yTrue, yPred []float64) (models.MetricRow, error) {
	if task == models.TaskClassification {
		acc, err := Accuracy(yTrue, yPred)
		if err != nil {
			return nil, err
		}
		p, r, f1, err := PrecisionRecallF1(yTrue, yPred)
		if err != nil {
			return nil, err
		}
		return models.MetricRow{
			models.MetricAccuracy:  acc,
			models.MetricPrecision: p,
			models.MetricRecall:    r,
			models.MetricF1:        f1,
		}, nil
	}

	mae, err := MAE(yTrue, yPred)
	if err != nil {
		return nil, err
	}
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return nil, err
	}
	r2, err := R2(yTrue, yPred)
	if err != nil {
		return nil, err
	}
	return models.MetricRow{
		models.MetricMAE:  mae,
		models.MetricMSE:  mse,
		models.MetricRMSE: math.Sqrt(mse),
		models.MetricR2:   r2,
	}, nil
}
