package handler

import (
	"bytes"
	"encoding/gob"
	"testing"
	"time"

	"gonum.org/v1/gonum/mat"

	"maximus/internal/automl"
	"maximus/internal/models"
)

func fittedTree(t *testing.T) automl.Model {
	t.Helper()
	m := automl.NewDecisionTree(models.TaskRegression)
	X := mat.NewDense(6, 1, []float64{1, 2, 3, 4, 5, 6})
	y := []float64{1, 2, 3, 4, 5, 6}
	if err := m.Fit(X, y); err != nil {
		t.Fatalf("fit failed: %v", err)
	}
	return m
}

func TestModelStore(t *testing.T) {
	store := NewModelStore()
	tree := fittedTree(t)

	store.Put("run-1", map[string]automl.Model{"dt": tree})

	if _, ok := store.Get("run-1", "dt"); !ok {
		t.Error("expected stored model to be found")
	}
	if _, ok := store.Get("run-1", "rf"); ok {
		t.Error("expected miss for a model not in the run")
	}
	if _, ok := store.Get("run-2", "dt"); ok {
		t.Error("expected miss for an unknown run")
	}
}

func TestExportEnvelopeRoundTrip(t *testing.T) {
	tree := fittedTree(t)

	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(exportedModel{
		RunID:       "run-1",
		ModelID:     "dt",
		DisplayName: "DecisionTreeRegressor",
		TaskType:    models.TaskRegression,
		Hyperparams: tree.Params(),
		Model:       tree,
		ExportedAt:  time.Now(),
	})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	var out exportedModel
	if err := gob.NewDecoder(&buf).Decode(&out); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if out.ModelID != "dt" || out.Model == nil {
		t.Fatalf("unexpected envelope: %+v", out)
	}

	X := mat.NewDense(2, 1, []float64{2, 5})
	pred, err := out.Model.Predict(X)
	if err != nil {
		t.Fatalf("decoded model cannot predict: %v", err)
	}
	if len(pred) != 2 {
		t.Fatalf("expected 2 predictions, got %d", len(pred))
	}
}
