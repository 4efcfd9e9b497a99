package automl

import (
	"math"
	"testing"
)

const tol = 1e-9

func closeEnough(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func TestRegressionMetrics(t *testing.T) {
	yTrue := []float64{1, 2, 3, 4}
	yPred := []float64{1.5, 2, 2.5, 4}

	tests := []struct {
		name string
		fn   func(yTrue, yPred []float64) (float64, error)
		want float64
	}{
		{"MAE", MAE, 0.25},
		{"MSE", MSE, 0.125},
		{"RMSE", RMSE, math.Sqrt(0.125)},
		{"R2", R2, 1 - 0.5/5.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.fn(yTrue, yPred)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !closeEnough(got, tt.want, tol) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestPerfectPredictions(t *testing.T) {
	y := []float64{2, 4, 6, 8}

	if rmse, _ := RMSE(y, y); rmse != 0 {
		t.Errorf("expected RMSE 0 for perfect predictions, got %v", rmse)
	}
	r2, err := R2(y, y)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !closeEnough(r2, 1, tol) {
		t.Errorf("expected R2 1 for perfect predictions, got %v", r2)
	}
}

func TestR2ConstantTarget(t *testing.T) {
	if _, err := R2([]float64{3, 3, 3}, []float64{3, 3, 3}); err == nil {
		t.Fatal("expected error for constant target")
	}
}

func TestVectorValidation(t *testing.T) {
	if _, err := MAE(nil, nil); err == nil {
		t.Error("expected error for empty vectors")
	}
	if _, err := MSE([]float64{1, 2}, []float64{1}); err == nil {
		t.Error("expected error for mismatched lengths")
	}
}

func TestAccuracy(t *testing.T) {
	yTrue := []float64{0, 0, 1, 1, 2}
	yPred := []float64{0, 1, 1, 1, 2}

	acc, err := Accuracy(yTrue, yPred)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !closeEnough(acc, 0.8, tol) {
		t.Errorf("expected accuracy 0.8, got %v", acc)
	}
}

func TestPrecisionRecallF1(t *testing.T) {
	// Binary case: class 1 has tp=2 fp=1 fn=0, class 0 has tp=2 fp=0 fn=1.
	yTrue := []float64{0, 0, 0, 1, 1}
	yPred := []float64{0, 0, 1, 1, 1}

	p, r, f1, err := PrecisionRecallF1(yTrue, yPred)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantP := (1.0 + 2.0/3.0) / 2
	wantR := (2.0/3.0 + 1.0) / 2
	if !closeEnough(p, wantP, tol) {
		t.Errorf("expected macro precision %v, got %v", wantP, p)
	}
	if !closeEnough(r, wantR, tol) {
		t.Errorf("expected macro recall %v, got %v", wantR, r)
	}
	if f1 <= 0 || f1 > 1 {
		t.Errorf("macro F1 out of range: %v", f1)
	}
}

func TestMetricRowRegression(t *testing.T) {
	row, err := metricRow("regression", []float64{1, 2, 3, 4}, []float64{1.1, 2.1, 2.9, 4.2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, name := range []string{"MAE", "MSE", "RMSE", "R2"} {
		if _, ok := row[name]; !ok {
			t.Errorf("missing %s in regression metric row", name)
		}
	}
	if !closeEnough(row["RMSE"]*row["RMSE"], row["MSE"], 1e-9) {
		t.Errorf("RMSE^2 should equal MSE, got %v vs %v", row["RMSE"]*row["RMSE"], row["MSE"])
	}
}

func TestMetricRowClassification(t *testing.T) {
	row, err := metricRow("classification", []float64{0, 1, 0, 1}, []float64{0, 1, 1, 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, name := range []string{"Accuracy", "Precision", "Recall", "F1"} {
		if _, ok := row[name]; !ok {
			t.Errorf("missing %s in classification metric row", name)
		}
	}
	if !closeEnough(row["Accuracy"], 0.75, tol) {
		t.Errorf("expected accuracy 0.75, got %v", row["Accuracy"])
	}
}
