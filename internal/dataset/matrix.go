package dataset

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Matrix renders the dataset as a feature matrix and target vector for the
// AutoML backend. Every column must be numeric by this point (categorical
// columns must be encoded first) and no cell may be missing.
func (d *Dataset) Matrix(target string) (*mat.Dense, []float64, []string, error) {
	if d.rows == 0 || len(d.cols) == 0 {
		return nil, nil, nil, fmt.Errorf("dataset is empty")
	}
	targetIdx := d.columnIndex(target)
	if targetIdx < 0 {
		return nil, nil, nil, fmt.Errorf("target column %q not found", target)
	}

	features := make([]int, 0, len(d.cols)-1)
	names := make([]string, 0, len(d.cols)-1)
	for i, c := range d.cols {
		if i == targetIdx {
			continue
		}
		if !c.Numeric {
			return nil, nil, nil, fmt.Errorf("column %q is not numeric; encode it before training", c.Name)
		}
		features = append(features, i)
		names = append(names, c.Name)
	}
	if len(features) == 0 {
		return nil, nil, nil, fmt.Errorf("no feature columns besides target %q", target)
	}

	tc := d.cols[targetIdx]
	if !tc.Numeric {
		return nil, nil, nil, fmt.Errorf("target column %q is not numeric; encode it before training", target)
	}

	X := mat.NewDense(d.rows, len(features), nil)
	y := make([]float64, d.rows)
	for i := 0; i < d.rows; i++ {
		if math.IsNaN(tc.Nums[i]) {
			return nil, nil, nil, fmt.Errorf("target column %q has a missing value at row %d", target, i)
		}
		y[i] = tc.Nums[i]
		for j, ci := range features {
			v := d.cols[ci].Nums[i]
			if math.IsNaN(v) {
				return nil, nil, nil, fmt.Errorf("column %q has a missing value at row %d; impute before training", d.cols[ci].Name, i)
			}
			X.Set(i, j, v)
		}
	}
	return X, y, names, nil
}
