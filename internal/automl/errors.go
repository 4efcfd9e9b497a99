package automl

import "errors"

// Setup errors. All of them are fatal to a training run and are surfaced
// to the user as-is; nothing in this family is retried.
var (
	ErrEmptyDataset     = errors.New("dataset is empty")
	ErrTargetNotFound   = errors.New("target column not found in dataset")
	ErrDegenerateTarget = errors.New("target column is constant or unusable")
	ErrUnknownModel     = errors.New("unknown model identifier")
)
