package models

import "time"

// Run statuses persisted with each training run.
const (
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// TrainRequest is what the dashboard submits to start a training run.
type TrainRequest struct {
	DatasetID     string   `json:"dataset_id"`
	TaskType      TaskType `json:"task_type"`
	TargetColumn  string   `json:"target_column"`
	Models        []string `json:"models"`
	LightningMode bool     `json:"lightning_mode"`
}

// ResultEntry pairs one trained model with its holdout metrics for the
// results panel. Entries appear in backend ranking order.
type ResultEntry struct {
	ModelID     string             `json:"model_id"`
	DisplayName string             `json:"display_name"`
	Hyperparams map[string]float64 `json:"hyperparams"`
	Metrics     MetricRow          `json:"metrics"`
}

// ModelFailure records a model dropped from the results because one of its
// refinement steps failed. Failures never abort the batch.
type ModelFailure struct {
	ModelID string `json:"model_id"`
	Stage   string `json:"stage"` // create, tune or evaluate
	Reason  string `json:"reason"`
}

// ResultSet is the final output of a training run: one entry per
// successfully refined model, ordered by the comparison ranking.
type ResultSet struct {
	Task       TaskType       `json:"task_type"`
	SortMetric string         `json:"sort_metric"`
	Entries    []ResultEntry  `json:"entries"`
	Failures   []ModelFailure `json:"failures,omitempty"`
}

// TrainingRun is the persisted record of one run.
type TrainingRun struct {
	ID            string     `db:"id" json:"id"`
	DatasetID     string     `db:"dataset_id" json:"dataset_id"`
	TaskType      TaskType   `db:"task_type" json:"task_type"`
	TargetColumn  string     `db:"target_column" json:"target_column"`
	Models        []byte     `db:"models" json:"-"`             // requested model IDs, JSON
	LightningMode bool       `db:"lightning_mode" json:"lightning_mode"`
	Status        string     `db:"status" json:"status"`
	Result        []byte     `db:"result" json:"-"`             // ResultSet, JSON
	ErrorMessage  string     `db:"error_message" json:"error_message,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	FinishedAt    *time.Time `db:"finished_at" json:"finished_at,omitempty"`
}
