package models

import "testing"

func TestCatalog(t *testing.T) {
	if len(Catalog) != 6 {
		t.Fatalf("expected 6 catalog entries, got %d", len(Catalog))
	}
	heavy := 0
	for _, s := range Catalog {
		if s.ID == "" || s.Regressor == "" || s.Classifier == "" || s.Description == "" {
			t.Errorf("incomplete catalog entry: %+v", s)
		}
		if s.Heavy {
			heavy++
		}
	}
	if heavy != 2 {
		t.Errorf("expected 2 heavy models (rf, mlp), got %d", heavy)
	}
}

func TestSpecFor(t *testing.T) {
	spec, ok := SpecFor(ModelGradBoost)
	if !ok {
		t.Fatal("gbr must be in the catalog")
	}
	if got := spec.DisplayName(TaskRegression); got != "GradientBoostingRegressor" {
		t.Errorf("unexpected regression name: %s", got)
	}
	if got := spec.DisplayName(TaskClassification); got != "GradientBoostingClassifier" {
		t.Errorf("unexpected classification name: %s", got)
	}
	if _, ok := SpecFor("xgboost"); ok {
		t.Error("unknown model must not resolve")
	}
}

func TestParseTaskType(t *testing.T) {
	if _, err := ParseTaskType("regression"); err != nil {
		t.Errorf("regression must parse: %v", err)
	}
	if _, err := ParseTaskType("clustering"); err == nil {
		t.Error("expected error for an unsupported task type")
	}
}

func TestSortMetric(t *testing.T) {
	if TaskRegression.SortMetric() != MetricRMSE || TaskRegression.HigherIsBetter() {
		t.Error("regression sorts by RMSE ascending")
	}
	if TaskClassification.SortMetric() != MetricAccuracy || !TaskClassification.HigherIsBetter() {
		t.Error("classification sorts by Accuracy descending")
	}
}
