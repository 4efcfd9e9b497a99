package models

import "time"

// DatasetRecord is the persisted metadata of an uploaded dataset. The raw
// CSV snapshot lives in the same row; transformations replace it in place
// (no versioning, the latest snapshot wins).
type DatasetRecord struct {
	ID            string    `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	FileFormat    string    `db:"file_format" json:"file_format"`
	Rows          int       `db:"rows" json:"rows"`
	Columns       int       `db:"columns" json:"columns"`
	MissingValues bool      `db:"missing_values" json:"missing_values"`
	MemoryBytes   int64     `db:"memory_bytes" json:"memory_bytes"`
	Content       []byte    `db:"content" json:"-"`
	UploadedBy    string    `db:"uploaded_by" json:"uploaded_by"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}
