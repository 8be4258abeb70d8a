package tabular

import "fmt"

// Table is the format-independent view of a decoded dataset: ordered
// column names and, per column, which rows hold no value.
type Table struct {
	columns []string
	rows    int
	// nulls is column-major: nulls[c][r] is true when row r of column c is missing
	nulls [][]bool
}

// NewTable creates an empty table with the given columns
func NewTable(columns []string) *Table {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{
		columns: cols,
		nulls:   make([][]bool, len(cols)),
	}
}

// AppendRow adds one row. nulls[i] reports whether column i is missing.
func (t *Table) AppendRow(nulls []bool) error {
	if len(nulls) != len(t.columns) {
		return fmt.Errorf("row has %d cells, table has %d columns", len(nulls), len(t.columns))
	}
	for c, isNull := range nulls {
		t.nulls[c] = append(t.nulls[c], isNull)
	}
	t.rows++
	return nil
}

// Columns returns a copy of the column names in order
func (t *Table) Columns() []string {
	cols := make([]string, len(t.columns))
	copy(cols, t.columns)
	return cols
}

// NumRows returns the number of rows
func (t *Table) NumRows() int { return t.rows }

// NumColumns returns the number of columns
func (t *Table) NumColumns() int { return len(t.columns) }

// IsNull reports whether the cell at (col, row) is missing
func (t *Table) IsNull(col, row int) bool {
	return t.nulls[col][row]
}

// NullCount returns the number of missing cells in column col
func (t *Table) NullCount(col int) int {
	n := 0
	for _, isNull := range t.nulls[col] {
		if isNull {
			n++
		}
	}
	return n
}
