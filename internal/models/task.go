package models

import "fmt"

// TaskType selects which family of estimators and metrics a training run uses.
type TaskType string

const (
	TaskRegression     TaskType = "regression"
	TaskClassification TaskType = "classification"
)

// ParseTaskType validates a task type received from the API.
func ParseTaskType(s string) (TaskType, error) {
	switch TaskType(s) {
	case TaskRegression, TaskClassification:
		return TaskType(s), nil
	default:
		return "", fmt.Errorf("unknown task type %q", s)
	}
}

// SortMetric returns the metric the comparison ranking is sorted by:
// RMSE (lower is better) for regression, Accuracy (higher is better)
// for classification.
func (t TaskType) SortMetric() string {
	if t == TaskClassification {
		return MetricAccuracy
	}
	return MetricRMSE
}

// HigherIsBetter reports whether a larger value of the task's sort metric
// means a better model.
func (t TaskType) HigherIsBetter() bool {
	return t == TaskClassification
}
