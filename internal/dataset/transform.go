package dataset

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Transformation action names accepted by Apply.
const (
	OpDrop              = "drop"
	OpLabelEncode       = "label_encode"
	OpOneHotEncode      = "one_hot_encode"
	OpImputeNumeric     = "impute_numeric"
	OpImputeCategorical = "impute_categorical"
	OpDropDuplicates    = "drop_duplicates"
	OpRemoveOutliers    = "remove_outliers"
	OpNormalize         = "normalize"
)

// Action is one user-requested transformation. Actions are applied in the
// order they were submitted; every action names its target columns
// explicitly and fails loudly on an unknown column.
type Action struct {
	Op        string   `json:"op" binding:"required"`
	Column    string   `json:"column,omitempty"`
	Columns   []string `json:"columns,omitempty"`
	Strategy  string   `json:"strategy,omitempty"`
	Method    string   `json:"method,omitempty"`
	Threshold float64  `json:"threshold,omitempty"`
}

// Apply runs the actions against the dataset in order. The first failing
// action aborts with an error and leaves the dataset partially transformed;
// callers are expected to apply to a clone and swap on success.
func (d *Dataset) Apply(actions []Action) error {
	for i, a := range actions {
		if err := d.apply(a); err != nil {
			return fmt.Errorf("action %d (%s): %w", i, a.Op, err)
		}
	}
	return nil
}

func (d *Dataset) apply(a Action) error {
	switch a.Op {
	case OpDrop:
		return d.DropColumns(a.Columns...)
	case OpLabelEncode:
		return d.LabelEncode(a.Column)
	case OpOneHotEncode:
		return d.OneHotEncode(a.Column)
	case OpImputeNumeric:
		return d.ImputeNumeric(a.Strategy)
	case OpImputeCategorical:
		return d.ImputeCategorical(a.Strategy)
	case OpDropDuplicates:
		d.DropDuplicates()
		return nil
	case OpRemoveOutliers:
		threshold := a.Threshold
		if threshold == 0 {
			threshold = 3
		}
		d.RemoveOutliers(threshold)
		return nil
	case OpNormalize:
		return d.Normalize(a.Method)
	default:
		return fmt.Errorf("unknown transformation %q", a.Op)
	}
}

// Numeric imputation strategies.
const (
	ImputeMean   = "mean"
	ImputeMedian = "median"
	ImputeMode   = "mode"
	ImputeDrop   = "drop"
)

// ImputeNumeric fills missing cells of every numeric column with the
// column's mean, median or mode.
func (d *Dataset) ImputeNumeric(strategy string) error {
	if strategy != ImputeMean && strategy != ImputeMedian && strategy != ImputeMode {
		return fmt.Errorf("unknown numeric imputation strategy %q", strategy)
	}
	for ci := range d.cols {
		c := &d.cols[ci]
		if !c.Numeric {
			continue
		}
		present := make([]float64, 0, len(c.Nums))
		for _, v := range c.Nums {
			if !math.IsNaN(v) {
				present = append(present, v)
			}
		}
		if len(present) == 0 || len(present) == len(c.Nums) {
			continue
		}
		fill := fillValue(present, strategy)
		for i, v := range c.Nums {
			if math.IsNaN(v) {
				c.Nums[i] = fill
			}
		}
	}
	return nil
}

func fillValue(present []float64, strategy string) float64 {
	switch strategy {
	case ImputeMedian:
		sorted := append([]float64(nil), present...)
		sort.Float64s(sorted)
		mid := len(sorted) / 2
		if len(sorted)%2 == 0 {
			return (sorted[mid-1] + sorted[mid]) / 2
		}
		return sorted[mid]
	case ImputeMode:
		counts := make(map[float64]int)
		best, bestCount := present[0], 0
		for _, v := range present {
			counts[v]++
			if counts[v] > bestCount {
				best, bestCount = v, counts[v]
			}
		}
		return best
	default:
		return stat.Mean(present, nil)
	}
}

// ImputeCategorical fills missing categorical cells with the column mode,
// or drops the rows containing them.
func (d *Dataset) ImputeCategorical(strategy string) error {
	switch strategy {
	case ImputeMode:
		for ci := range d.cols {
			c := &d.cols[ci]
			if c.Numeric {
				continue
			}
			mode := stringMode(c.Strs)
			if mode == "" {
				continue
			}
			for i, s := range c.Strs {
				if s == "" {
					c.Strs[i] = mode
				}
			}
		}
		return nil
	case ImputeDrop:
		drop := make([]bool, d.rows)
		any := false
		for _, c := range d.cols {
			if c.Numeric {
				continue
			}
			for i, s := range c.Strs {
				if s == "" {
					drop[i] = true
					any = true
				}
			}
		}
		if any {
			d.dropRows(drop)
		}
		return nil
	default:
		return fmt.Errorf("unknown categorical imputation strategy %q", strategy)
	}
}

func stringMode(values []string) string {
	counts := make(map[string]int)
	best, bestCount := "", 0
	for _, s := range values {
		if s == "" {
			continue
		}
		counts[s]++
		if counts[s] > bestCount {
			best, bestCount = s, counts[s]
		}
	}
	return best
}

// RemoveOutliers drops every row where any numeric cell lies more than
// threshold standard deviations from its column mean. Returns the number
// of rows removed.
func (d *Dataset) RemoveOutliers(threshold float64) int {
	drop := make([]bool, d.rows)
	any := false
	for _, c := range d.cols {
		if !c.Numeric {
			continue
		}
		mean, std := stat.MeanStdDev(withoutNaN(c.Nums), nil)
		if std == 0 || math.IsNaN(std) {
			continue
		}
		for i, v := range c.Nums {
			if math.IsNaN(v) {
				continue
			}
			if math.Abs(v-mean)/std > threshold {
				drop[i] = true
				any = true
			}
		}
	}
	if !any {
		return 0
	}
	before := d.rows
	d.dropRows(drop)
	return before - d.rows
}

func withoutNaN(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// Normalization methods.
const (
	NormalizeMinMax = "minmax"
	NormalizeZScore = "zscore"
)

// Normalize rescales every numeric column in place, either to [0,1]
// (minmax) or to zero mean and unit variance (zscore).
func (d *Dataset) Normalize(method string) error {
	if method != NormalizeMinMax && method != NormalizeZScore {
		return fmt.Errorf("unknown normalization method %q", method)
	}
	for ci := range d.cols {
		c := &d.cols[ci]
		if !c.Numeric {
			continue
		}
		present := withoutNaN(c.Nums)
		if len(present) == 0 {
			continue
		}
		switch method {
		case NormalizeMinMax:
			lo, hi := present[0], present[0]
			for _, v := range present {
				if v < lo {
					lo = v
				}
				if v > hi {
					hi = v
				}
			}
			if hi == lo {
				continue
			}
			for i, v := range c.Nums {
				if !math.IsNaN(v) {
					c.Nums[i] = (v - lo) / (hi - lo)
				}
			}
		case NormalizeZScore:
			mean, std := stat.MeanStdDev(present, nil)
			if std == 0 || math.IsNaN(std) {
				continue
			}
			for i, v := range c.Nums {
				if !math.IsNaN(v) {
					c.Nums[i] = (v - mean) / std
				}
			}
		}
	}
	return nil
}
