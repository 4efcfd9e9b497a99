package automl

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"go.uber.org/zap"

	"maximus/internal/dataset"
	"maximus/internal/models"
)

func regressionCSV(n int, seed int64) *dataset.Dataset {
	rng := rand.New(rand.NewSource(seed))
	var sb strings.Builder
	sb.WriteString("area,rooms,price\n")
	for i := 0; i < n; i++ {
		area := 40 + 80*rng.Float64()
		rooms := float64(1 + rng.Intn(4))
		price := 1500*area + 20000*rooms + 1000*rng.NormFloat64()
		fmt.Fprintf(&sb, "%.2f,%.0f,%.2f\n", area, rooms, price)
	}
	ds, err := dataset.FromCSV(strings.NewReader(sb.String()))
	if err != nil {
		panic(err)
	}
	return ds
}

func classificationCSV(n int, seed int64) *dataset.Dataset {
	rng := rand.New(rand.NewSource(seed))
	var sb strings.Builder
	sb.WriteString("x1,x2,label\n")
	for i := 0; i < n; i++ {
		center, label := 0.0, "no"
		if i%2 == 1 {
			center, label = 4.0, "yes"
		}
		fmt.Fprintf(&sb, "%.4f,%.4f,%s\n", center+0.3*rng.NormFloat64(), center+0.3*rng.NormFloat64(), label)
	}
	ds, err := dataset.FromCSV(strings.NewReader(sb.String()))
	if err != nil {
		panic(err)
	}
	return ds
}

func testRunner() *Runner {
	return NewRunner(Options{Seed: 42}, zap.NewNop())
}

func TestSetupValidation(t *testing.T) {
	ds := regressionCSV(40, 1)

	tests := []struct {
		name    string
		ds      *dataset.Dataset
		target  string
		task    models.TaskType
		wantErr error
	}{
		{"nil dataset", nil, "price", models.TaskRegression, ErrEmptyDataset},
		{"missing target", ds, "salary", models.TaskRegression, ErrTargetNotFound},
		{"string target for regression", classificationCSV(40, 1), "label", models.TaskRegression, ErrDegenerateTarget},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := testRunner().Setup(tt.ds, tt.target, tt.task)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSetupConstantTarget(t *testing.T) {
	csv := "x,y\n1,5\n2,5\n3,5\n4,5\n5,5\n"
	ds, err := dataset.FromCSV(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := testRunner().Setup(ds, "y", models.TaskRegression); !errors.Is(err, ErrDegenerateTarget) {
		t.Fatalf("expected ErrDegenerateTarget, got %v", err)
	}
}

func TestSetupSplit(t *testing.T) {
	ds := regressionCSV(100, 2)
	exp, err := testRunner().Setup(ds, "price", models.TaskRegression)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	nTrain, _ := exp.XTrain.Dims()
	nTest, _ := exp.XTest.Dims()
	if nTrain+nTest != 100 {
		t.Errorf("split loses rows: %d train + %d test", nTrain, nTest)
	}
	if nTrain != 70 {
		t.Errorf("expected 70 training rows with the default holdout fraction, got %d", nTrain)
	}
	want := []string{"area", "rooms"}
	got := exp.Features()
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("expected features %v, got %v", want, got)
	}
}

func TestSetupEncodesCategoricalTarget(t *testing.T) {
	ds := classificationCSV(60, 3)
	exp, err := testRunner().Setup(ds, "label", models.TaskClassification)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, v := range exp.yTrain {
		if v != 0 && v != 1 {
			t.Fatalf("expected encoded labels 0/1, got %v", v)
		}
	}
	// The original dataset must keep its string labels.
	col, _ := ds.Column("label")
	if col.Numeric {
		t.Error("setup must not mutate the caller's dataset")
	}
}

func TestCompareRanksByHoldoutScore(t *testing.T) {
	ds := regressionCSV(80, 4)
	exp, err := testRunner().Setup(ds, "price", models.TaskRegression)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	include := []string{models.ModelDecisionTree, models.ModelGradBoost, models.ModelSVM}
	ranked, err := exp.Compare(context.Background(), include, 0, 9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ranked) == 0 || len(ranked) > len(include) {
		t.Fatalf("expected 1..%d ranked models, got %d", len(include), len(ranked))
	}
	allowed := map[string]bool{}
	for _, id := range include {
		allowed[id] = true
	}
	for _, id := range ranked {
		if !allowed[id] {
			t.Errorf("ranked model %s was not in the include list", id)
		}
	}

	// Ranking must be ordered by holdout RMSE, best first.
	var prev float64
	for i, id := range ranked {
		m, err := exp.Create(id)
		if err != nil {
			t.Fatalf("create %s failed: %v", id, err)
		}
		score, err := exp.sortMetricValue(m)
		if err != nil {
			t.Fatalf("score %s failed: %v", id, err)
		}
		if i > 0 && score < prev-1e-9 {
			t.Errorf("ranking not sorted: %s at %d scores %v, previous %v", id, i, score, prev)
		}
		prev = score
	}
}

func TestCompareSkipsUnknownModels(t *testing.T) {
	ds := regressionCSV(40, 5)
	exp, err := testRunner().Setup(ds, "price", models.TaskRegression)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ranked, err := exp.Compare(context.Background(), []string{"dt", "xgboost"}, 0, 9)
	if err != nil {
		t.Fatalf("unknown models must be skipped, not fail the comparison: %v", err)
	}
	if len(ranked) != 1 || ranked[0] != "dt" {
		t.Errorf("expected [dt], got %v", ranked)
	}
}

func TestCompareCancelledContext(t *testing.T) {
	ds := regressionCSV(40, 6)
	exp, err := testRunner().Setup(ds, "price", models.TaskRegression)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ranked, err := exp.Compare(ctx, []string{"dt", "gbr"}, 0, 9)
	if err != nil {
		t.Fatalf("cancellation must not surface as an error: %v", err)
	}
	if len(ranked) != 0 {
		t.Errorf("expected empty ranking for a cancelled context, got %v", ranked)
	}
}

func TestCompareNSelectCap(t *testing.T) {
	ds := regressionCSV(60, 7)
	exp, err := testRunner().Setup(ds, "price", models.TaskRegression)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ranked, err := exp.Compare(context.Background(), []string{"dt", "gbr", "ada"}, 0, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ranked) > 2 {
		t.Errorf("expected at most 2 models, got %d", len(ranked))
	}
}

func TestCreateAndEvaluate(t *testing.T) {
	ds := regressionCSV(80, 8)
	exp, err := testRunner().Setup(ds, "price", models.TaskRegression)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m, err := exp.Create(models.ModelGradBoost)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	row, err := exp.Evaluate(m)
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	for _, name := range models.MetricOrder(models.TaskRegression) {
		if _, ok := row[name]; !ok {
			t.Errorf("missing metric %s", name)
		}
	}

	// Evaluate is pure: calling it again yields the same row.
	again, err := exp.Evaluate(m)
	if err != nil {
		t.Fatalf("second evaluate failed: %v", err)
	}
	for name, v := range row {
		if again[name] != v {
			t.Errorf("metric %s changed between evaluations: %v vs %v", name, v, again[name])
		}
	}
}

func TestTuneImprovesOrKeepsModel(t *testing.T) {
	ds := regressionCSV(90, 9)
	exp, err := testRunner().Setup(ds, "price", models.TaskRegression)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m, err := exp.Create(models.ModelDecisionTree)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	tuned, err := exp.Tune(context.Background(), models.ModelDecisionTree, m)
	if err != nil {
		t.Fatalf("tune failed: %v", err)
	}

	params := tuned.Params()
	grid := tuningGrid[models.ModelDecisionTree]
	found := false
	for _, v := range grid["max_depth"] {
		if params["max_depth"] == v {
			found = true
		}
	}
	if !found {
		t.Errorf("tuned max_depth %v is not a grid value", params["max_depth"])
	}
	if _, err := exp.Evaluate(tuned); err != nil {
		t.Errorf("tuned model must be fitted and evaluable: %v", err)
	}
}

func TestTuneUnknownModel(t *testing.T) {
	ds := regressionCSV(40, 10)
	exp, err := testRunner().Setup(ds, "price", models.TaskRegression)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := exp.Tune(context.Background(), "xgboost", nil); !errors.Is(err, ErrUnknownModel) {
		t.Fatalf("expected ErrUnknownModel, got %v", err)
	}
}

func TestClassificationEndToEnd(t *testing.T) {
	ds := classificationCSV(80, 12)
	exp, err := testRunner().Setup(ds, "label", models.TaskClassification)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ranked, err := exp.Compare(context.Background(), []string{"dt", "svm"}, 0, 9)
	if err != nil {
		t.Fatalf("compare failed: %v", err)
	}
	if len(ranked) == 0 {
		t.Fatal("expected at least one ranked classifier")
	}

	m, err := exp.Create(ranked[0])
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	row, err := exp.Evaluate(m)
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if row[models.MetricAccuracy] < 0.8 {
		t.Errorf("expected holdout accuracy >= 0.8 on separable clusters, got %v", row[models.MetricAccuracy])
	}
}
