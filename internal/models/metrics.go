package models

// Metric names shared between the AutoML backend and the presentation layer.
const (
	MetricMAE  = "MAE"
	MetricMSE  = "MSE"
	MetricRMSE = "RMSE"
	MetricR2   = "R2"

	MetricAccuracy  = "Accuracy"
	MetricPrecision = "Precision"
	MetricRecall    = "Recall"
	MetricF1        = "F1"
)

// MetricRow holds the holdout evaluation metrics for a single trained model.
type MetricRow map[string]float64

// MetricOrder returns the display order of metric columns for a task.
func MetricOrder(task TaskType) []string {
	if task == TaskClassification {
		return []string{MetricAccuracy, MetricPrecision, MetricRecall, MetricF1}
	}
	return []string{MetricMAE, MetricMSE, MetricRMSE, MetricR2}
}
