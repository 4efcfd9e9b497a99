package handler

import (
	"bytes"
	"database/sql"
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"maximus/internal/dataset"
	"maximus/internal/models"
	"maximus/internal/repository"
)

// DatasetHandler handles dataset upload, inspection and transformation.
type DatasetHandler struct {
	repo           repository.DatasetRepository
	maxUploadBytes int64
	logger         *zap.Logger
}

// NewDatasetHandler creates a new dataset handler.
func NewDatasetHandler(repo repository.DatasetRepository, maxUploadMB int64, logger *zap.Logger) *DatasetHandler {
	return &DatasetHandler{
		repo:           repo,
		maxUploadBytes: maxUploadMB * 1024 * 1024,
		logger:         logger,
	}
}

// Upload ingests a CSV file as a new dataset.
// POST /api/datasets
func (h *DatasetHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing file upload"})
		return
	}
	defer file.Close()

	if header.Size > h.maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File exceeds the upload size limit"})
		return
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(header.Filename)), ".")
	if ext != "csv" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only CSV uploads are supported"})
		return
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(file); err != nil {
		h.logger.Error("Failed to read uploaded file", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read upload"})
		return
	}

	ds, err := dataset.FromCSV(bytes.NewReader(buf.Bytes()))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record := &models.DatasetRecord{
		ID:            uuid.NewString(),
		Name:          header.Filename,
		FileFormat:    ext,
		Rows:          ds.Rows(),
		Columns:       len(ds.ColumnNames()),
		MissingValues: ds.HasMissing(),
		MemoryBytes:   ds.MemoryBytes(),
		Content:       buf.Bytes(),
		UploadedBy:    c.GetString("username"),
	}
	if err := h.repo.Save(record); err != nil {
		h.logger.Error("Failed to save dataset", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save dataset"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Dataset uploaded successfully",
		"dataset": record,
		"columns": ds.ColumnNames(),
		"preview": ds.Preview(10),
	})
}

// List returns every dataset's metadata.
// GET /api/datasets
func (h *DatasetHandler) List(c *gin.Context) {
	records, err := h.repo.List()
	if err != nil {
		h.logger.Error("Failed to list datasets", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch datasets"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"datasets": records,
		"count":    len(records),
	})
}

// Get returns one dataset's metadata plus a preview of its latest snapshot.
// GET /api/datasets/:id
func (h *DatasetHandler) Get(c *gin.Context) {
	record, ds, ok := h.loadDataset(c)
	if !ok {
		return
	}

	previewRows := 10
	if n, err := strconv.Atoi(c.Query("preview")); err == nil && n > 0 {
		previewRows = n
	}

	c.JSON(http.StatusOK, gin.H{
		"dataset": record,
		"columns": ds.ColumnNames(),
		"preview": ds.Preview(previewRows),
	})
}

// TransformRequest is an ordered list of transformation actions.
type TransformRequest struct {
	Actions []dataset.Action `json:"actions" binding:"required"`
}

// Transform applies transformation actions to the latest snapshot and
// replaces it. Each action names its target columns explicitly; a failing
// action rejects the whole request and leaves the stored snapshot intact.
// POST /api/datasets/:id/transform
func (h *DatasetHandler) Transform(c *gin.Context) {
	record, ds, ok := h.loadDataset(c)
	if !ok {
		return
	}

	var req TransformRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Actions) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No transformation actions supplied"})
		return
	}

	transformed := ds.Clone()
	if err := transformed.Apply(req.Actions); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var buf bytes.Buffer
	if err := transformed.ToCSV(&buf); err != nil {
		h.logger.Error("Failed to serialize transformed dataset", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store transformed dataset"})
		return
	}

	err := h.repo.ReplaceContent(record.ID, buf.Bytes(),
		transformed.Rows(), len(transformed.ColumnNames()), transformed.HasMissing(), transformed.MemoryBytes())
	if err != nil {
		h.logger.Error("Failed to replace dataset content", zap.Error(err), zap.String("dataset_id", record.ID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store transformed dataset"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Dataset transformed successfully",
		"rows":    transformed.Rows(),
		"columns": transformed.ColumnNames(),
		"preview": transformed.Preview(10),
	})
}

// loadDataset fetches the record by the :id param and parses its snapshot.
func (h *DatasetHandler) loadDataset(c *gin.Context) (*models.DatasetRecord, *dataset.Dataset, bool) {
	id := c.Param("id")
	record, err := h.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Dataset not found"})
			return nil, nil, false
		}
		h.logger.Error("Failed to fetch dataset", zap.Error(err), zap.String("dataset_id", id))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch dataset"})
		return nil, nil, false
	}

	ds, err := dataset.FromCSV(bytes.NewReader(record.Content))
	if err != nil {
		h.logger.Error("Stored dataset snapshot is unreadable", zap.Error(err), zap.String("dataset_id", id))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Stored dataset is unreadable"})
		return nil, nil, false
	}
	return record, ds, true
}
