package repository

import (
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"maximus/internal/models"
)

// DatasetRepository handles database operations for uploaded datasets.
// Each row holds the metadata profile plus the latest CSV snapshot;
// transformations overwrite the snapshot in place.
type DatasetRepository interface {
	Save(record *models.DatasetRecord) error
	ReplaceContent(id string, content []byte, rows, columns int, missing bool, memoryBytes int64) error
	GetByID(id string) (*models.DatasetRecord, error)
	List() ([]*models.DatasetRecord, error)
}

type datasetRepository struct {
	db  *sqlx.DB
	log *zap.Logger
}

// NewDatasetRepository creates a new dataset repository.
func NewDatasetRepository(db *sqlx.DB, log *zap.Logger) DatasetRepository {
	return &datasetRepository{db: db, log: log}
}

func (r *datasetRepository) Save(record *models.DatasetRecord) error {
	query := `
		INSERT INTO datasets (id, name, file_format, rows, columns, missing_values, memory_bytes, content, uploaded_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`
	return r.db.QueryRowx(
		query,
		record.ID,
		record.Name,
		record.FileFormat,
		record.Rows,
		record.Columns,
		record.MissingValues,
		record.MemoryBytes,
		record.Content,
		record.UploadedBy,
	).Scan(&record.CreatedAt, &record.UpdatedAt)
}

func (r *datasetRepository) ReplaceContent(id string, content []byte, rows, columns int, missing bool, memoryBytes int64) error {
	query := `
		UPDATE datasets
		SET content = $2, rows = $3, columns = $4, missing_values = $5, memory_bytes = $6, updated_at = $7
		WHERE id = $1
	`
	_, err := r.db.Exec(query, id, content, rows, columns, missing, memoryBytes, time.Now())
	return err
}

func (r *datasetRepository) GetByID(id string) (*models.DatasetRecord, error) {
	var record models.DatasetRecord
	query := `
		SELECT id, name, file_format, rows, columns, missing_values, memory_bytes, content, uploaded_by, created_at, updated_at
		FROM datasets WHERE id = $1
	`
	if err := r.db.Get(&record, query, id); err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *datasetRepository) List() ([]*models.DatasetRecord, error) {
	var records []*models.DatasetRecord
	query := `
		SELECT id, name, file_format, rows, columns, missing_values, memory_bytes, uploaded_by, created_at, updated_at
		FROM datasets ORDER BY created_at DESC
	`
	if err := r.db.Select(&records, query); err != nil {
		return nil, err
	}
	return records, nil
}
