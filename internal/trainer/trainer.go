// Package trainer orchestrates a model comparison run: it prepares an
// AutoML experiment, asks the backend for a ranked shortlist, refines each
// shortlisted model (with or without tuning) and assembles the result set
// shown in the dashboard. Per-model failures are isolated; a single bad
// model never aborts the batch.
package trainer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"maximus/internal/automl"
	"maximus/internal/dataset"
	"maximus/internal/models"
)

var (
	// ErrNoModelsSelected means the request contained an empty model list.
	// This is a precondition failure, validated before any backend call.
	ErrNoModelsSelected = errors.New("no models selected for training")
	// ErrNoModels means the run completed but produced nothing to show:
	// either no candidate could be fit during comparison or every
	// shortlisted model failed during refinement.
	ErrNoModels = errors.New("no models trained")
)

// Refinement stages recorded with per-model failures.
const (
	StageCreate   = "create"
	StageTune     = "tune"
	StageEvaluate = "evaluate"
)

// Experiment is the backend session the orchestrator drives. The concrete
// implementation lives in internal/automl; tests substitute a fake.
type Experiment interface {
	// Compare returns candidate model IDs ranked best first.
	Compare(ctx context.Context, include []string, budget time.Duration, nSelect int) ([]string, error)
	// Create fits a fresh model with default hyperparameters.
	Create(id string) (automl.Model, error)
	// Tune searches hyperparameters and returns a refit model.
	Tune(ctx context.Context, id string, m automl.Model) (automl.Model, error)
	// Evaluate returns the holdout metric table for a fitted model.
	Evaluate(m automl.Model) (models.MetricRow, error)
}

// Backend prepares experiments.
type Backend interface {
	Setup(ds *dataset.Dataset, target string, task models.TaskType) (Experiment, error)
}

// Request describes one training run.
type Request struct {
	TaskType      models.TaskType
	TargetColumn  string
	Models        []string
	LightningMode bool
}

// Outcome is the tagged result of refining one shortlisted model. Exactly
// one of (Model, Metrics) and Err is set.
type Outcome struct {
	ModelID string
	Model   automl.Model
	Metrics models.MetricRow
	Stage   string
	Err     error
}

// Failed reports whether the model was dropped.
func (o Outcome) Failed() bool { return o.Err != nil }

// RunResult is everything a completed run produces: the presentation
// ResultSet plus the fitted models kept for export.
type RunResult struct {
	Results *models.ResultSet
	Models  map[string]automl.Model
}

// Trainer runs the compare-refine-aggregate sequence against a backend.
type Trainer struct {
	backend         Backend
	lightningBudget time.Duration
	nSelect         int
	log             *zap.Logger
}

// New creates a trainer. lightningBudget caps the comparison step's
// wall-clock time when lightning mode is on; the full path runs without a
// budget.
func New(backend Backend, lightningBudget time.Duration, log *zap.Logger) *Trainer {
	return &Trainer{
		backend:         backend,
		lightningBudget: lightningBudget,
		nSelect:         9,
		log:             log,
	}
}

// Run executes one training run. Setup failures and an empty comparison
// result are fatal; anything that goes wrong with an individual model is
// absorbed into its Outcome and only affects which models appear in the
// result set.
func (t *Trainer) Run(ctx context.Context, ds *dataset.Dataset, req Request) (*RunResult, error) {
	if len(req.Models) == 0 {
		return nil, ErrNoModelsSelected
	}

	exp, err := t.backend.Setup(ds, req.TargetColumn, req.TaskType)
	if err != nil {
		return nil, fmt.Errorf("experiment setup failed: %w", err)
	}

	var budget time.Duration
	if req.LightningMode {
		budget = t.lightningBudget
	}
	ranked, err := exp.Compare(ctx, req.Models, budget, t.nSelect)
	if err != nil {
		return nil, fmt.Errorf("model comparison failed: %w", err)
	}
	if len(ranked) == 0 {
		return nil, ErrNoModels
	}
	t.log.Info("Comparison finished",
		zap.Strings("ranking", ranked),
		zap.Bool("lightning_mode", req.LightningMode))

	outcomes := make([]Outcome, 0, len(ranked))
	for _, id := range ranked {
		outcomes = append(outcomes, t.refine(ctx, exp, id, req.LightningMode))
	}

	result := t.aggregate(req.TaskType, outcomes)
	if len(result.Results.Entries) == 0 {
		return nil, ErrNoModels
	}
	return result, nil
}

// refine runs one model through the fast path (create, evaluate) or the
// full path (create, tune, evaluate). Every failure is captured in the
// outcome instead of propagating, so iteration over the batch continues.
func (t *Trainer) refine(ctx context.Context, exp Experiment, id string, lightning bool) Outcome {
	out := Outcome{ModelID: id}

	model, err := exp.Create(id)
	if err != nil {
		t.log.Warn("Model creation failed, dropping model",
			zap.String("model", id), zap.Error(err))
		out.Stage, out.Err = StageCreate, err
		return out
	}

	if !lightning {
		tuned, err := exp.Tune(ctx, id, model)
		if err != nil {
			t.log.Warn("Model tuning failed, dropping model",
				zap.String("model", id), zap.Error(err))
			out.Stage, out.Err = StageTune, err
			return out
		}
		model = tuned
	}

	metrics, err := exp.Evaluate(model)
	if err != nil {
		t.log.Warn("Holdout evaluation failed, dropping model",
			zap.String("model", id), zap.Error(err))
		out.Stage, out.Err = StageEvaluate, err
		return out
	}

	out.Model = model
	out.Metrics = metrics
	return out
}

// aggregate separates successes from failures, preserving the comparison
// ranking order for the entries that survived.
func (t *Trainer) aggregate(task models.TaskType, outcomes []Outcome) *RunResult {
	result := &RunResult{
		Results: &models.ResultSet{
			Task:       task,
			SortMetric: task.SortMetric(),
		},
		Models: make(map[string]automl.Model),
	}

	for _, out := range outcomes {
		if out.Failed() {
			result.Results.Failures = append(result.Results.Failures, models.ModelFailure{
				ModelID: out.ModelID,
				Stage:   out.Stage,
				Reason:  out.Err.Error(),
			})
			continue
		}
		entry := models.ResultEntry{
			ModelID:     out.ModelID,
			DisplayName: displayName(out.ModelID, task),
			Hyperparams: out.Model.Params(),
			Metrics:     out.Metrics,
		}
		result.Results.Entries = append(result.Results.Entries, entry)
		result.Models[out.ModelID] = out.Model
	}
	return result
}

// displayName derives the panel title for a model, e.g.
// "GradientBoostingRegressor" for gbr on a regression run.
func displayName(id string, task models.TaskType) string {
	spec, ok := models.SpecFor(id)
	if !ok {
		return id
	}
	return spec.DisplayName(task)
}

// automlBackend adapts *automl.Runner to the Backend interface.
type automlBackend struct {
	runner *automl.Runner
}

// NewAutoMLBackend wraps the in-process AutoML runner as a trainer backend.
func NewAutoMLBackend(runner *automl.Runner) Backend {
	return automlBackend{runner: runner}
}

func (b automlBackend) Setup(ds *dataset.Dataset, target string, task models.TaskType) (Experiment, error) {
	exp, err := b.runner.Setup(ds, target, task)
	if err != nil {
		return nil, err
	}
	return exp, nil
}
