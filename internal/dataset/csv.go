package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// missingCell reports whether a raw CSV cell counts as missing.
func missingCell(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "na", "n/a", "nan", "null":
		return true
	}
	return false
}

// FromCSV parses a CSV document with a header row into a dataset. A column
// is numeric when every non-missing cell parses as a float.
func FromCSV(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty CSV document")
	}

	header := records[0]
	body := records[1:]

	cols := make([]Column, len(header))
	for j, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			name = fmt.Sprintf("column_%d", j)
		}

		numeric := len(body) > 0
		anyPresent := false
		for _, rec := range body {
			cell := rec[j]
			if missingCell(cell) {
				continue
			}
			anyPresent = true
			if _, err := strconv.ParseFloat(strings.TrimSpace(cell), 64); err != nil {
				numeric = false
				break
			}
		}
		if !anyPresent {
			numeric = false
		}

		if numeric {
			nums := make([]float64, len(body))
			for i, rec := range body {
				if missingCell(rec[j]) {
					nums[i] = math.NaN()
					continue
				}
				nums[i], _ = strconv.ParseFloat(strings.TrimSpace(rec[j]), 64)
			}
			cols[j] = Column{Name: name, Numeric: true, Nums: nums}
		} else {
			strs := make([]string, len(body))
			for i, rec := range body {
				if missingCell(rec[j]) {
					continue
				}
				strs[i] = strings.TrimSpace(rec[j])
			}
			cols[j] = Column{Name: name, Strs: strs}
		}
	}

	return New(cols)
}

// ToCSV writes the dataset back out as CSV, header first. Used to persist
// the transformed snapshot.
func (d *Dataset) ToCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(d.ColumnNames()); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for i := 0; i < d.rows; i++ {
		row := make([]string, len(d.cols))
		for j, c := range d.cols {
			row[j] = d.cellString(c, i)
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}
