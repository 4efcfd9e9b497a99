package repository

import (
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"maximus/internal/models"
)

// RunRepository handles database operations for training run history.
type RunRepository interface {
	Save(run *models.TrainingRun) error
	GetByID(id string) (*models.TrainingRun, error)
	List() ([]*models.TrainingRun, error)
}

type runRepository struct {
	db  *sqlx.DB
	log *zap.Logger
}

// NewRunRepository creates a new training run repository.
func NewRunRepository(db *sqlx.DB, log *zap.Logger) RunRepository {
	return &runRepository{db: db, log: log}
}

func (r *runRepository) Save(run *models.TrainingRun) error {
	query := `
		INSERT INTO training_runs
			(id, dataset_id, task_type, target_column, models, lightning_mode, status, result, error_message, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`
	// JSONB parameters go as text; pq would send raw []byte as bytea.
	requested := "[]"
	if len(run.Models) > 0 {
		requested = string(run.Models)
	}
	var result any
	if len(run.Result) > 0 {
		result = string(run.Result)
	}
	return r.db.QueryRowx(
		query,
		run.ID,
		run.DatasetID,
		run.TaskType,
		run.TargetColumn,
		requested,
		run.LightningMode,
		run.Status,
		result,
		run.ErrorMessage,
		run.FinishedAt,
	).Scan(&run.CreatedAt)
}

func (r *runRepository) GetByID(id string) (*models.TrainingRun, error) {
	var run models.TrainingRun
	query := `
		SELECT id, dataset_id, task_type, target_column, models, lightning_mode, status, result, error_message, created_at, finished_at
		FROM training_runs WHERE id = $1
	`
	if err := r.db.Get(&run, query, id); err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *runRepository) List() ([]*models.TrainingRun, error) {
	var runs []*models.TrainingRun
	query := `
		SELECT id, dataset_id, task_type, target_column, models, lightning_mode, status, error_message, created_at, finished_at
		FROM training_runs ORDER BY created_at DESC
	`
	if err := r.db.Select(&runs, query); err != nil {
		return nil, err
	}
	return runs, nil
}
