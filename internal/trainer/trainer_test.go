package trainer

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"maximus/internal/automl"
	"maximus/internal/dataset"
	"maximus/internal/models"
)

// fakeModel satisfies automl.Model without doing any learning.
type fakeModel struct {
	id     string
	params map[string]float64
}

func (m *fakeModel) Fit(_ *mat.Dense, _ []float64) error     { return nil }
func (m *fakeModel) Predict(_ *mat.Dense) ([]float64, error) { return nil, nil }
func (m *fakeModel) Params() map[string]float64              { return m.params }
func (m *fakeModel) SetParams(_ map[string]float64) error    { return nil }

// fakeExperiment scripts the backend session: a fixed ranking plus
// per-model errors for each refinement stage.
type fakeExperiment struct {
	ranking    []string
	compareErr error
	createErr  map[string]error
	tuneErr    map[string]error
	evalErr    map[string]error

	gotInclude []string
	gotBudget  time.Duration
	tuneCalls  int
	evalCalls  int
}

func (e *fakeExperiment) Compare(_ context.Context, include []string, budget time.Duration, nSelect int) ([]string, error) {
	e.gotInclude = include
	e.gotBudget = budget
	if e.compareErr != nil {
		return nil, e.compareErr
	}
	ranked := e.ranking
	if len(ranked) > nSelect {
		ranked = ranked[:nSelect]
	}
	return ranked, nil
}

func (e *fakeExperiment) Create(id string) (automl.Model, error) {
	if err := e.createErr[id]; err != nil {
		return nil, err
	}
	return &fakeModel{id: id, params: map[string]float64{"n_estimators": 50}}, nil
}

func (e *fakeExperiment) Tune(_ context.Context, id string, m automl.Model) (automl.Model, error) {
	e.tuneCalls++
	if err := e.tuneErr[id]; err != nil {
		return nil, err
	}
	return m, nil
}

func (e *fakeExperiment) Evaluate(m automl.Model) (models.MetricRow, error) {
	e.evalCalls++
	fm := m.(*fakeModel)
	if err := e.evalErr[fm.id]; err != nil {
		return nil, err
	}
	return models.MetricRow{models.MetricRMSE: 1.0, models.MetricR2: 0.9}, nil
}

// fakeBackend hands out a scripted experiment.
type fakeBackend struct {
	exp        *fakeExperiment
	setupErr   error
	setupCalls int
}

func (b *fakeBackend) Setup(_ *dataset.Dataset, _ string, _ models.TaskType) (Experiment, error) {
	b.setupCalls++
	if b.setupErr != nil {
		return nil, b.setupErr
	}
	return b.exp, nil
}

func newTestTrainer(b Backend) *Trainer {
	return New(b, 2*time.Minute, zap.NewNop())
}

func regressionRequest(ids []string, lightning bool) Request {
	return Request{
		TaskType:      models.TaskRegression,
		TargetColumn:  "price",
		Models:        ids,
		LightningMode: lightning,
	}
}

func TestRunEmptyModelList(t *testing.T) {
	backend := &fakeBackend{exp: &fakeExperiment{}}
	tr := newTestTrainer(backend)

	_, err := tr.Run(context.Background(), nil, regressionRequest(nil, false))
	if !errors.Is(err, ErrNoModelsSelected) {
		t.Fatalf("expected ErrNoModelsSelected, got %v", err)
	}
	if backend.setupCalls != 0 {
		t.Errorf("setup must not run for an empty model list, got %d calls", backend.setupCalls)
	}
}

func TestRunSetupFailureIsFatal(t *testing.T) {
	setupErr := errors.New("target column not found")
	backend := &fakeBackend{setupErr: setupErr}
	tr := newTestTrainer(backend)

	res, err := tr.Run(context.Background(), nil, regressionRequest([]string{"dt"}, false))
	if res != nil {
		t.Fatalf("expected nil result, got %+v", res)
	}
	if !errors.Is(err, setupErr) {
		t.Fatalf("expected wrapped setup error, got %v", err)
	}
}

func TestRunPreservesRankingOrder(t *testing.T) {
	exp := &fakeExperiment{ranking: []string{"gbr", "dt", "rf"}}
	tr := newTestTrainer(&fakeBackend{exp: exp})

	res, err := tr.Run(context.Background(), nil, regressionRequest([]string{"dt", "rf", "gbr"}, false))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := make([]string, 0, len(res.Results.Entries))
	for _, e := range res.Results.Entries {
		got = append(got, e.ModelID)
	}
	want := []string{"gbr", "dt", "rf"}
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d: expected %s, got %s", i, want[i], got[i])
		}
	}
	if res.Results.SortMetric != models.MetricRMSE {
		t.Errorf("expected sort metric %s, got %s", models.MetricRMSE, res.Results.SortMetric)
	}
}

func TestRunTuneFailureDropsOnlyThatModel(t *testing.T) {
	exp := &fakeExperiment{
		ranking: []string{"gbr", "dt", "rf"},
		tuneErr: map[string]error{"dt": errors.New("grid search exploded")},
	}
	tr := newTestTrainer(&fakeBackend{exp: exp})

	res, err := tr.Run(context.Background(), nil, regressionRequest([]string{"gbr", "dt", "rf"}, false))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Results.Entries) != 2 {
		t.Fatalf("expected 2 surviving entries, got %d", len(res.Results.Entries))
	}
	for _, e := range res.Results.Entries {
		if e.ModelID == "dt" {
			t.Errorf("failed model dt must not appear in entries")
		}
	}
	if _, ok := res.Models["dt"]; ok {
		t.Errorf("failed model dt must not be kept for export")
	}
	if len(res.Results.Failures) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(res.Results.Failures))
	}
	f := res.Results.Failures[0]
	if f.ModelID != "dt" || f.Stage != StageTune {
		t.Errorf("expected dt failure at stage %s, got %+v", StageTune, f)
	}
}

func TestRunLightningSkipsTuning(t *testing.T) {
	exp := &fakeExperiment{ranking: []string{"svm", "gbr"}}
	tr := newTestTrainer(&fakeBackend{exp: exp})

	_, err := tr.Run(context.Background(), nil, regressionRequest([]string{"svm", "gbr"}, true))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exp.tuneCalls != 0 {
		t.Errorf("lightning mode must never tune, got %d tune calls", exp.tuneCalls)
	}
	if exp.gotBudget != 2*time.Minute {
		t.Errorf("expected comparison budget of 2m in lightning mode, got %v", exp.gotBudget)
	}
}

func TestRunFullPathTunesEveryModel(t *testing.T) {
	exp := &fakeExperiment{ranking: []string{"svm", "gbr", "ada"}}
	tr := newTestTrainer(&fakeBackend{exp: exp})

	_, err := tr.Run(context.Background(), nil, regressionRequest([]string{"svm", "gbr", "ada"}, false))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exp.tuneCalls != 3 {
		t.Errorf("expected 3 tune calls on the full path, got %d", exp.tuneCalls)
	}
	if exp.gotBudget != 0 {
		t.Errorf("full path must run without a comparison budget, got %v", exp.gotBudget)
	}
}

func TestRunEmptyComparison(t *testing.T) {
	exp := &fakeExperiment{ranking: nil}
	tr := newTestTrainer(&fakeBackend{exp: exp})

	_, err := tr.Run(context.Background(), nil, regressionRequest([]string{"dt"}, false))
	if !errors.Is(err, ErrNoModels) {
		t.Fatalf("expected ErrNoModels for an empty comparison, got %v", err)
	}
}

func TestRunAllRefinementsFail(t *testing.T) {
	exp := &fakeExperiment{
		ranking:   []string{"dt", "rf"},
		createErr: map[string]error{"dt": errors.New("bad split"), "rf": errors.New("bad forest")},
	}
	tr := newTestTrainer(&fakeBackend{exp: exp})

	_, err := tr.Run(context.Background(), nil, regressionRequest([]string{"dt", "rf"}, false))
	if !errors.Is(err, ErrNoModels) {
		t.Fatalf("expected ErrNoModels when every refinement fails, got %v", err)
	}
}

func TestRunCompareErrorIsFatal(t *testing.T) {
	compareErr := errors.New("backend went away")
	exp := &fakeExperiment{compareErr: compareErr}
	tr := newTestTrainer(&fakeBackend{exp: exp})

	_, err := tr.Run(context.Background(), nil, regressionRequest([]string{"dt"}, false))
	if !errors.Is(err, compareErr) {
		t.Fatalf("expected wrapped compare error, got %v", err)
	}
}

func TestRunShortlistCap(t *testing.T) {
	ids := []string{"svm", "ada", "rf", "gbr", "dt", "mlp", "a", "b", "c", "d"}
	exp := &fakeExperiment{ranking: ids}
	tr := newTestTrainer(&fakeBackend{exp: exp})

	res, err := tr.Run(context.Background(), nil, regressionRequest(ids, true))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Results.Entries) > 9 {
		t.Errorf("expected at most 9 entries, got %d", len(res.Results.Entries))
	}
}

func TestDisplayNamesFollowTask(t *testing.T) {
	exp := &fakeExperiment{ranking: []string{"gbr"}}
	tr := newTestTrainer(&fakeBackend{exp: exp})

	res, err := tr.Run(context.Background(), nil, regressionRequest([]string{"gbr"}, true))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := res.Results.Entries[0].DisplayName; got != "GradientBoostingRegressor" {
		t.Errorf("expected GradientBoostingRegressor, got %s", got)
	}
}
