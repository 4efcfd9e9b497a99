package automl

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"maximus/internal/dataset"
	"maximus/internal/models"
)

// Options configures experiment preparation.
type Options struct {
	HoldoutFraction float64 // fraction of rows used for training (default 0.7)
	TuneFolds       int     // cross-validation folds during tuning (default 3)
	Seed            int64
}

func (o Options) withDefaults() Options {
	if o.HoldoutFraction <= 0 || o.HoldoutFraction >= 1 {
		o.HoldoutFraction = 0.7
	}
	if o.TuneFolds < 2 {
		o.TuneFolds = 3
	}
	return o
}

// Runner prepares experiments. One Runner is shared by all training runs;
// each run gets its own Experiment, so there is no hidden global session
// state.
type Runner struct {
	opts Options
	log  *zap.Logger
}

// NewRunner creates an experiment factory.
func NewRunner(opts Options, log *zap.Logger) *Runner {
	return &Runner{opts: opts.withDefaults(), log: log}
}

// Experiment is one prepared AutoML session: a train/holdout split for a
// fixed dataset, target and task. All subsequent backend calls go through
// the experiment, never through shared state.
type Experiment struct {
	task      models.TaskType
	tuneFolds int
	seed      int64
	log       *zap.Logger

	XTrain *mat.Dense
	yTrain []float64
	XTest  *mat.Dense
	yTest  []float64

	features []string
}

// Setup validates the dataset and prepares the train/holdout split.
// Failures here are fatal to the whole run: a missing target column,
// an empty dataset or a degenerate target is not something per-model
// isolation can recover from.
func (r *Runner) Setup(ds *dataset.Dataset, target string, task models.TaskType) (*Experiment, error) {
	if ds == nil || ds.Rows() == 0 {
		return nil, ErrEmptyDataset
	}
	col, ok := ds.Column(target)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTargetNotFound, target)
	}

	// A categorical target is label-encoded on the fly for classification;
	// for regression it is unusable.
	if !col.Numeric {
		if task != models.TaskClassification {
			return nil, fmt.Errorf("%w: %q is not numeric", ErrDegenerateTarget, target)
		}
		ds = ds.Clone()
		if err := ds.LabelEncode(target); err != nil {
			return nil, fmt.Errorf("failed to encode target %q: %w", target, err)
		}
	}

	X, y, features, err := ds.Matrix(target)
	if err != nil {
		return nil, err
	}

	distinct := uniqueSorted(y)
	if len(distinct) < 2 {
		return nil, fmt.Errorf("%w: %q has a single distinct value", ErrDegenerateTarget, target)
	}

	n, p := X.Dims()
	if n < 4 {
		return nil, fmt.Errorf("%w: only %d usable rows", ErrEmptyDataset, n)
	}

	nTrain := int(float64(n) * r.opts.HoldoutFraction)
	if nTrain < 2 {
		nTrain = 2
	}
	if nTrain > n-1 {
		nTrain = n - 1
	}

	perm := rand.New(rand.NewSource(r.opts.Seed)).Perm(n)
	exp := &Experiment{
		task:      task,
		tuneFolds: r.opts.TuneFolds,
		seed:      r.opts.Seed,
		log:       r.log,
		XTrain:    mat.NewDense(nTrain, p, nil),
		yTrain:    make([]float64, nTrain),
		XTest:     mat.NewDense(n-nTrain, p, nil),
		yTest:     make([]float64, n-nTrain),
		features:  features,
	}
	for i, src := range perm {
		if i < nTrain {
			copyRow(exp.XTrain, i, X, src)
			exp.yTrain[i] = y[src]
		} else {
			copyRow(exp.XTest, i-nTrain, X, src)
			exp.yTest[i-nTrain] = y[src]
		}
	}
	return exp, nil
}

func copyRow(dst *mat.Dense, di int, src *mat.Dense, si int) {
	_, p := src.Dims()
	for j := 0; j < p; j++ {
		dst.Set(di, j, src.At(si, j))
	}
}

// Task returns the experiment's task type.
func (e *Experiment) Task() models.TaskType { return e.task }

// Features returns the feature column names in matrix order.
func (e *Experiment) Features() []string { return e.features }

// Compare fits every included catalog model with default hyperparameters
// and ranks them by the task's sort metric on the holdout split, best
// first. budget > 0 is a soft deadline: it is checked between model fits,
// an in-flight fit always completes, and the ranking accumulated so far
// is returned once it expires. A model that fails to fit is skipped; if
// nothing fits, the result is empty without an error.
func (e *Experiment) Compare(ctx context.Context, include []string, budget time.Duration, nSelect int) ([]string, error) {
	candidates := include
	if len(candidates) == 0 {
		candidates = models.CatalogIDs()
	}

	var deadline time.Time
	if budget > 0 {
		deadline = time.Now().Add(budget)
	}

	type scored struct {
		id    string
		score float64
	}
	var ranking []scored

	for i, id := range candidates {
		if ctx.Err() != nil {
			e.log.Warn("Comparison interrupted, returning partial ranking",
				zap.Int("compared", i), zap.Error(ctx.Err()))
			break
		}
		if !deadline.IsZero() && i > 0 && time.Now().After(deadline) {
			e.log.Info("Comparison budget expired, returning partial ranking",
				zap.Int("compared", i), zap.Int("requested", len(candidates)))
			break
		}

		if _, ok := models.SpecFor(id); !ok {
			e.log.Warn("Skipping unknown model in comparison", zap.String("model", id))
			continue
		}

		model, err := newModel(id, e.task, e.seed)
		if err != nil {
			e.log.Warn("Skipping model in comparison", zap.String("model", id), zap.Error(err))
			continue
		}
		start := time.Now()
		if err := model.Fit(e.XTrain, e.yTrain); err != nil {
			e.log.Warn("Model failed to fit during comparison", zap.String("model", id), zap.Error(err))
			continue
		}
		score, err := e.sortMetricValue(model)
		if err != nil {
			e.log.Warn("Model failed to score during comparison", zap.String("model", id), zap.Error(err))
			continue
		}
		e.log.Debug("Compared model",
			zap.String("model", id),
			zap.Float64(e.task.SortMetric(), score),
			zap.Duration("elapsed", time.Since(start)))
		ranking = append(ranking, scored{id: id, score: score})
	}

	higherBetter := e.task.HigherIsBetter()
	sort.SliceStable(ranking, func(a, b int) bool {
		if higherBetter {
			return ranking[a].score > ranking[b].score
		}
		return ranking[a].score < ranking[b].score
	})

	if nSelect > 0 && len(ranking) > nSelect {
		ranking = ranking[:nSelect]
	}
	out := make([]string, len(ranking))
	for i, s := range ranking {
		out[i] = s.id
	}
	return out, nil
}

func (e *Experiment) sortMetricValue(m Model) (float64, error) {
	pred, err := m.Predict(e.XTest)
	if err != nil {
		return 0, err
	}
	if e.task == models.TaskClassification {
		return Accuracy(e.yTest, pred)
	}
	return RMSE(e.yTest, pred)
}

// Create fits a fresh estimator with catalog defaults on the train split.
func (e *Experiment) Create(id string) (Model, error) {
	model, err := newModel(id, e.task, e.seed)
	if err != nil {
		return nil, err
	}
	if err := model.Fit(e.XTrain, e.yTrain); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", id, err)
	}
	return model, nil
}

// Evaluate computes the holdout metric table for a fitted model. The row
// is a direct return value; there is no "pull last result" side channel.
func (e *Experiment) Evaluate(m Model) (models.MetricRow, error) {
	pred, err := m.Predict(e.XTest)
	if err != nil {
		return nil, fmt.Errorf("holdout prediction failed: %w", err)
	}
	return metricRow(e.task, e.yTest, pred)
}
