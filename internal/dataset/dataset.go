// Package dataset implements the tabular frame the dashboard operates on:
// CSV ingestion, column transformations and the matrix view handed to the
// AutoML backend. A dataset is mutated only by explicit transformation
// actions; the transformed snapshot replaces the previous one.
package dataset

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Column is one named column. A column is either numeric (Nums, with NaN
// marking missing cells) or categorical (Strs, with "" marking missing).
type Column struct {
	Name    string
	Numeric bool
	Nums    []float64
	Strs    []string
}

// Dataset holds named columns of equal length.
type Dataset struct {
	cols []Column
	rows int
}

// New builds a dataset from prepared columns. All columns must have the
// same length.
func New(cols []Column) (*Dataset, error) {
	if len(cols) == 0 {
		return &Dataset{}, nil
	}
	rows := colLen(cols[0])
	for _, c := range cols {
		if colLen(c) != rows {
			return nil, fmt.Errorf("column %q has %d rows, expected %d", c.Name, colLen(c), rows)
		}
	}
	return &Dataset{cols: cols, rows: rows}, nil
}

func colLen(c Column) int {
	if c.Numeric {
		return len(c.Nums)
	}
	return len(c.Strs)
}

// Rows returns the number of rows.
func (d *Dataset) Rows() int { return d.rows }

// ColumnNames returns the column names in order.
func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.cols))
	for i, c := range d.cols {
		names[i] = c.Name
	}
	return names
}

// Column returns the named column, or false if it does not exist.
func (d *Dataset) Column(name string) (*Column, bool) {
	for i := range d.cols {
		if d.cols[i].Name == name {
			return &d.cols[i], true
		}
	}
	return nil, false
}

func (d *Dataset) columnIndex(name string) int {
	for i := range d.cols {
		if d.cols[i].Name == name {
			return i
		}
	}
	return -1
}

// HasMissing reports whether any cell is missing.
func (d *Dataset) HasMissing() bool {
	for _, c := range d.cols {
		if c.Numeric {
			for _, v := range c.Nums {
				if math.IsNaN(v) {
					return true
				}
			}
		} else {
			for _, s := range c.Strs {
				if s == "" {
					return true
				}
			}
		}
	}
	return false
}

// MemoryBytes estimates the in-memory size of the dataset, shown in the
// dataset profile panel.
func (d *Dataset) MemoryBytes() int64 {
	var total int64
	for _, c := range d.cols {
		total += int64(len(c.Name))
		if c.Numeric {
			total += int64(8 * len(c.Nums))
		} else {
			for _, s := range c.Strs {
				total += int64(16 + len(s))
			}
		}
	}
	return total
}

// Preview returns up to n rows rendered as strings for the dataset preview.
func (d *Dataset) Preview(n int) [][]string {
	if n > d.rows {
		n = d.rows
	}
	out := make([][]string, 0, n)
	for i := 0; i < n; i++ {
		row := make([]string, len(d.cols))
		for j, c := range d.cols {
			row[j] = d.cellString(c, i)
		}
		out = append(out, row)
	}
	return out
}

func (d *Dataset) cellString(c Column, i int) string {
	if !c.Numeric {
		return c.Strs[i]
	}
	v := c.Nums[i]
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Clone returns a deep copy of the dataset.
func (d *Dataset) Clone() *Dataset {
	cols := make([]Column, len(d.cols))
	for i, c := range d.cols {
		nc := Column{Name: c.Name, Numeric: c.Numeric}
		if c.Numeric {
			nc.Nums = append([]float64(nil), c.Nums...)
		} else {
			nc.Strs = append([]string(nil), c.Strs...)
		}
		cols[i] = nc
	}
	return &Dataset{cols: cols, rows: d.rows}
}

// DropColumns removes the named columns.
func (d *Dataset) DropColumns(names ...string) error {
	for _, name := range names {
		idx := d.columnIndex(name)
		if idx < 0 {
			return fmt.Errorf("column %q not found", name)
		}
		d.cols = append(d.cols[:idx], d.cols[idx+1:]...)
	}
	if len(d.cols) == 0 {
		d.rows = 0
	}
	return nil
}

// LabelEncode replaces a categorical column with integer codes assigned to
// its sorted distinct values. Missing cells stay missing.
func (d *Dataset) LabelEncode(name string) error {
	idx := d.columnIndex(name)
	if idx < 0 {
		return fmt.Errorf("column %q not found", name)
	}
	c := d.cols[idx]
	if c.Numeric {
		return fmt.Errorf("column %q is already numeric", name)
	}
	codes := labelCodes(c.Strs)
	nums := make([]float64, len(c.Strs))
	for i, s := range c.Strs {
		if s == "" {
			nums[i] = math.NaN()
			continue
		}
		nums[i] = float64(codes[s])
	}
	d.cols[idx] = Column{Name: name, Numeric: true, Nums: nums}
	return nil
}

func labelCodes(values []string) map[string]int {
	uniq := make(map[string]struct{})
	for _, s := range values {
		if s != "" {
			uniq[s] = struct{}{}
		}
	}
	sorted := make([]string, 0, len(uniq))
	for s := range uniq {
		sorted = append(sorted, s)
	}
	sort.Strings(sorted)
	codes := make(map[string]int, len(sorted))
	for i, s := range sorted {
		codes[s] = i
	}
	return codes
}

// OneHotEncode replaces a categorical column with one 0/1 indicator column
// per distinct value, named "<column>_<value>".
func (d *Dataset) OneHotEncode(name string) error {
	idx := d.columnIndex(name)
	if idx < 0 {
		return fmt.Errorf("column %q not found", name)
	}
	c := d.cols[idx]
	if c.Numeric {
		return fmt.Errorf("column %q is already numeric", name)
	}
	codes := labelCodes(c.Strs)
	categories := make([]string, 0, len(codes))
	for s := range codes {
		categories = append(categories, s)
	}
	sort.Strings(categories)

	encoded := make([]Column, 0, len(categories))
	for _, cat := range categories {
		nums := make([]float64, len(c.Strs))
		for i, s := range c.Strs {
			if s == cat {
				nums[i] = 1
			}
		}
		encoded = append(encoded, Column{
			Name:    fmt.Sprintf("%s_%s", name, cat),
			Numeric: true,
			Nums:    nums,
		})
	}

	rest := append([]Column{}, d.cols[:idx]...)
	rest = append(rest, d.cols[idx+1:]...)
	d.cols = append(rest, encoded...)
	return nil
}

// dropRows removes the rows whose indices are marked in drop.
func (d *Dataset) dropRows(drop []bool) {
	kept := 0
	for i := range drop {
		if !drop[i] {
			kept++
		}
	}
	for ci := range d.cols {
		c := &d.cols[ci]
		if c.Numeric {
			nums := make([]float64, 0, kept)
			for i, v := range c.Nums {
				if !drop[i] {
					nums = append(nums, v)
				}
			}
			c.Nums = nums
		} else {
			strs := make([]string, 0, kept)
			for i, s := range c.Strs {
				if !drop[i] {
					strs = append(strs, s)
				}
			}
			c.Strs = strs
		}
	}
	d.rows = kept
}

// DropDuplicates removes rows identical to an earlier row across every
// column.
func (d *Dataset) DropDuplicates() int {
	seen := make(map[string]struct{}, d.rows)
	drop := make([]bool, d.rows)
	dropped := 0
	for i := 0; i < d.rows; i++ {
		var b strings.Builder
		for _, c := range d.cols {
			b.WriteString(d.cellString(c, i))
			b.WriteByte('\x1f')
		}
		key := b.String()
		if _, ok := seen[key]; ok {
			drop[i] = true
			dropped++
			continue
		}
		seen[key] = struct{}{}
	}
	if dropped > 0 {
		d.dropRows(drop)
	}
	return dropped
}
