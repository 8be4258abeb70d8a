package audit

import "dqaudit/internal/tabular"

// ColumnMissing is the missing-value count of one column
type ColumnMissing struct {
	Column  string
	Missing int
}

// DatasetStats summarises missing values in one dataset
type DatasetStats struct {
	Filename     string
	Format       tabular.Format
	TotalRows    int
	TotalColumns int
	// MissingPerColumn lists every column in table order, including
	// columns with no missing values
	MissingPerColumn  []ColumnMissing
	TotalMissing      int
	MissingPercentage float64
}

// ComputeStats counts missing cells per column of t
func ComputeStats(filename string, format tabular.Format, t *tabular.Table) DatasetStats {
	columns := t.Columns()
	perColumn := make([]ColumnMissing, len(columns))
	total := 0
	for i, col := range columns {
		n := t.NullCount(i)
		perColumn[i] = ColumnMissing{Column: col, Missing: n}
		total += n
	}

	return DatasetStats{
		Filename:          filename,
		Format:            format,
		TotalRows:         t.NumRows(),
		TotalColumns:      len(columns),
		MissingPerColumn:  perColumn,
		TotalMissing:      total,
		MissingPercentage: MissingPercentage(total, t.NumRows(), len(columns)),
	}
}

// MissingPercentage returns missing / (rows*columns) * 100, or 0 when the
// table has no cells.
func MissingPercentage(missing, rows, columns int) float64 {
	cells := rows * columns
	if cells == 0 {
		return 0
	}
	return float64(missing) / float64(cells) * 100
}

// HasMissing reports whether any cell is missing
func (s DatasetStats) HasMissing() bool {
	return s.TotalMissing > 0
}

// MissingByColumn returns the per-column counts as a map
func (s DatasetStats) MissingByColumn() map[string]int {
	out := make(map[string]int, len(s.MissingPerColumn))
	for _, c := range s.MissingPerColumn {
		out[c.Column] = c.Missing
	}
	return out
}

// ColumnsWithMissing returns only the columns with at least one missing
// value, in table order
func (s DatasetStats) ColumnsWithMissing() []ColumnMissing {
	var out []ColumnMissing
	for _, c := range s.MissingPerColumn {
		if c.Missing > 0 {
			out = append(out, c)
		}
	}
	return out
}
