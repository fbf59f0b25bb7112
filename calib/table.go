package calib

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// Table is a 2-D calibration lookup loaded from a delimited file: one column
// is the row index (e.g. a frequency), every other column header is a raw
// setting parsed as float, and each cell is the calibrated correction at
// that (index, setting) pair.
type Table struct {
	indexName string
	index     []float64
	settings  []float64
	cells     [][]float64
}

// LoadTable parses the file at path. indexColumn names the row-index column;
// comma is the field delimiter (0 means ',').
func LoadTable(path, indexColumn string, comma rune) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("calib: open table %q: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	if comma != 0 {
		reader.Comma = comma
	}
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("calib: parse table %q: %w", path, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("calib: table %q has no data rows", path)
	}

	header := rows[0]
	indexCol := -1
	for i, name := range header {
		if name == indexColumn {
			indexCol = i
			break
		}
	}
	if indexCol < 0 {
		return nil, fmt.Errorf("calib: table %q has no column %q", path, indexColumn)
	}

	t := &Table{indexName: indexColumn}
	for i, name := range header {
		if i == indexCol {
			continue
		}
		setting, err := strconv.ParseFloat(name, 64)
		if err != nil {
			return nil, fmt.Errorf("calib: table %q column %q is not numeric", path, name)
		}
		t.settings = append(t.settings, setting)
	}

	for rowNum, row := range rows[1:] {
		if len(row) != len(header) {
			return nil, fmt.Errorf("calib: table %q row %d has %d fields, want %d",
				path, rowNum+2, len(row), len(header))
		}
		cells := make([]float64, 0, len(row)-1)
		for i, field := range row {
			value, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("calib: table %q row %d field %q is not numeric",
					path, rowNum+2, field)
			}
			if i == indexCol {
				t.index = append(t.index, value)
			} else {
				cells = append(cells, value)
			}
		}
		t.cells = append(t.cells, cells)
	}
	return t, nil
}

// IndexName returns the configured row-index column name.
func (t *Table) IndexName() string { return t.indexName }

// Rows returns the number of data rows.
func (t *Table) Rows() int { return len(t.index) }

// NearestRow selects the row whose index value is closest to index and
// returns it as a setting→correction series along with the matched index
// value.
func (t *Table) NearestRow(index float64) (*Series, float64, error) {
	if len(t.index) == 0 {
		return nil, 0, fmt.Errorf("calib: table has no rows")
	}
	row := nearestIndex(t.index, index)
	series, err := newSeriesFromColumns(t.settings, t.cells[row])
	if err != nil {
		return nil, 0, err
	}
	return series, t.index[row], nil
}
