package handler

import (
	"bytes"
	"database/sql"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"maximus/internal/automl"
	"maximus/internal/dataset"
	"maximus/internal/models"
	"maximus/internal/repository"
	"maximus/internal/trainer"
)

// TrainingHandler drives training runs and exposes run history and
// trained-model export.
type TrainingHandler struct {
	datasets repository.DatasetRepository
	runs     repository.RunRepository
	trainer  *trainer.Trainer
	store    *ModelStore
	logger   *zap.Logger
}

// NewTrainingHandler creates a new training handler.
func NewTrainingHandler(
	datasets repository.DatasetRepository,
	runs repository.RunRepository,
	tr *trainer.Trainer,
	store *ModelStore,
	logger *zap.Logger,
) *TrainingHandler {
	return &TrainingHandler{
		datasets: datasets,
		runs:     runs,
		trainer:  tr,
		store:    store,
		logger:   logger,
	}
}

// trainRequest is the JSON body of POST /api/train.
type trainRequest struct {
	DatasetID     string   `json:"dataset_id" binding:"required"`
	TaskType      string   `json:"task_type" binding:"required"`
	TargetColumn  string   `json:"target_column" binding:"required"`
	Models        []string `json:"models"`
	LightningMode bool     `json:"lightning_mode"`
}

// Train runs the full comparison-and-refinement sequence synchronously and
// persists the outcome. Per-model failures are reported inside the result;
// only runs where nothing could be trained fail as a whole.
// POST /api/train
func (h *TrainingHandler) Train(c *gin.Context) {
	var req trainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := models.ParseTaskType(req.TaskType)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Models) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Select at least one model to train"})
		return
	}
	for _, id := range req.Models {
		if _, ok := models.SpecFor(id); !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Unknown model %q", id)})
			return
		}
	}

	record, err := h.datasets.GetByID(req.DatasetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Dataset not found"})
			return
		}
		h.logger.Error("Failed to fetch dataset", zap.Error(err), zap.String("dataset_id", req.DatasetID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch dataset"})
		return
	}
	ds, err := dataset.FromCSV(bytes.NewReader(record.Content))
	if err != nil {
		h.logger.Error("Stored dataset snapshot is unreadable", zap.Error(err), zap.String("dataset_id", record.ID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Stored dataset is unreadable"})
		return
	}

	run := &models.TrainingRun{
		ID:            uuid.NewString(),
		DatasetID:     record.ID,
		TaskType:      task,
		TargetColumn:  req.TargetColumn,
		LightningMode: req.LightningMode,
	}
	run.Models, _ = json.Marshal(req.Models)

	started := time.Now()
	result, err := h.trainer.Run(c.Request.Context(), ds, trainer.Request{
		TaskType:      task,
		TargetColumn:  req.TargetColumn,
		Models:        req.Models,
		LightningMode: req.LightningMode,
	})
	if err != nil {
		h.finishFailed(c, run, err)
		return
	}

	run.Status = models.RunStatusCompleted
	run.Result, err = json.Marshal(result.Results)
	if err != nil {
		h.logger.Error("Failed to encode run result", zap.Error(err), zap.String("run_id", run.ID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to encode run result"})
		return
	}
	finished := time.Now()
	run.FinishedAt = &finished
	if err := h.runs.Save(run); err != nil {
		h.logger.Error("Failed to save training run", zap.Error(err), zap.String("run_id", run.ID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save training run"})
		return
	}
	h.store.Put(run.ID, result.Models)

	h.logger.Info("Training run completed",
		zap.String("run_id", run.ID),
		zap.Int("trained", len(result.Results.Entries)),
		zap.Int("failed", len(result.Results.Failures)),
		zap.Duration("elapsed", finished.Sub(started)))

	c.JSON(http.StatusOK, gin.H{
		"run_id":  run.ID,
		"status":  run.Status,
		"results": result.Results,
	})
}

// finishFailed persists a failed run and maps the error to a status code.
// Validation problems with the dataset or target are the caller's fault;
// a run where nothing could be trained is reported as unprocessable.
func (h *TrainingHandler) finishFailed(c *gin.Context, run *models.TrainingRun, runErr error) {
	run.Status = models.RunStatusFailed
	run.ErrorMessage = runErr.Error()
	finished := time.Now()
	run.FinishedAt = &finished
	if err := h.runs.Save(run); err != nil {
		h.logger.Error("Failed to save failed training run", zap.Error(err), zap.String("run_id", run.ID))
	}

	switch {
	case errors.Is(runErr, trainer.ErrNoModelsSelected):
		c.JSON(http.StatusBadRequest, gin.H{"error": runErr.Error()})
	case errors.Is(runErr, automl.ErrEmptyDataset),
		errors.Is(runErr, automl.ErrTargetNotFound),
		errors.Is(runErr, automl.ErrDegenerateTarget):
		c.JSON(http.StatusBadRequest, gin.H{"error": runErr.Error(), "run_id": run.ID})
	case errors.Is(runErr, trainer.ErrNoModels):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": runErr.Error(), "run_id": run.ID})
	default:
		h.logger.Error("Training run failed", zap.Error(runErr), zap.String("run_id", run.ID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Training run failed", "run_id": run.ID})
	}
}

// ListRuns returns run history without result payloads.
// GET /api/runs
func (h *TrainingHandler) ListRuns(c *gin.Context) {
	runs, err := h.runs.List()
	if err != nil {
		h.logger.Error("Failed to list training runs", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch training runs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"runs":  runs,
		"count": len(runs),
	})
}

// GetRun returns one run including its full result set.
// GET /api/runs/:id
func (h *TrainingHandler) GetRun(c *gin.Context) {
	id := c.Param("id")
	run, err := h.runs.GetByID(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Training run not found"})
			return
		}
		h.logger.Error("Failed to fetch training run", zap.Error(err), zap.String("run_id", id))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch training run"})
		return
	}

	resp := gin.H{"run": run}
	if len(run.Result) > 0 {
		var results models.ResultSet
		if err := json.Unmarshal(run.Result, &results); err == nil {
			resp["results"] = results
		}
	}
	c.JSON(http.StatusOK, resp)
}

// exportedModel is the envelope written to gob exports.
type exportedModel struct {
	RunID       string
	ModelID     string
	DisplayName string
	TaskType    models.TaskType
	Hyperparams map[string]float64
	Model       automl.Model
	ExportedAt  time.Time
}

// ExportModel streams a fitted model from a completed run as a gob blob.
// Only models from runs since the last restart are available.
// GET /api/runs/:id/models/:model_id/export
func (h *TrainingHandler) ExportModel(c *gin.Context) {
	runID := c.Param("id")
	modelID := c.Param("model_id")

	run, err := h.runs.GetByID(runID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Training run not found"})
			return
		}
		h.logger.Error("Failed to fetch training run", zap.Error(err), zap.String("run_id", runID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch training run"})
		return
	}

	m, ok := h.store.Get(runID, modelID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Model is no longer available for export; re-run training"})
		return
	}

	spec, _ := models.SpecFor(modelID)
	var buf bytes.Buffer
	err = gob.NewEncoder(&buf).Encode(exportedModel{
		RunID:       runID,
		ModelID:     modelID,
		DisplayName: spec.DisplayName(run.TaskType),
		TaskType:    run.TaskType,
		Hyperparams: m.Params(),
		Model:       m,
		ExportedAt:  time.Now(),
	})
	if err != nil {
		h.logger.Error("Failed to encode model export", zap.Error(err),
			zap.String("run_id", runID), zap.String("model_id", modelID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to encode model export"})
		return
	}

	filename := fmt.Sprintf("%s_%s.gob", modelID, runID[:8])
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/octet-stream", buf.Bytes())
}
