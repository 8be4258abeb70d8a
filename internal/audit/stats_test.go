package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dqaudit/internal/tabular"
)

func buildTable(t *testing.T, columns []string, rows ...[]bool) *tabular.Table {
	t.Helper()
	tbl := tabular.NewTable(columns)
	for _, r := range rows {
		require.NoError(t, tbl.AppendRow(r))
	}
	return tbl
}

func TestComputeStats(t *testing.T) {
	tbl := buildTable(t, []string{"a", "b"},
		[]bool{false, true},
		[]bool{true, false},
	)

	stats := ComputeStats("x.csv", tabular.FormatCSV, tbl)

	assert.Equal(t, "x.csv", stats.Filename)
	assert.Equal(t, tabular.FormatCSV, stats.Format)
	assert.Equal(t, 2, stats.TotalRows)
	assert.Equal(t, 2, stats.TotalColumns)
	assert.Equal(t, 2, stats.TotalMissing)
	assert.InDelta(t, 50.0, stats.MissingPercentage, 1e-9)
	assert.Equal(t, []ColumnMissing{{"a", 1}, {"b", 1}}, stats.MissingPerColumn)
	assert.Equal(t, map[string]int{"a": 1, "b": 1}, stats.MissingByColumn())
	assert.True(t, stats.HasMissing())
}

func TestComputeStats_TotalIsSumOfColumns(t *testing.T) {
	tbl := buildTable(t, []string{"x", "y", "z"},
		[]bool{true, true, false},
		[]bool{true, false, false},
		[]bool{false, false, false},
	)

	stats := ComputeStats("t.csv", tabular.FormatCSV, tbl)

	sum := 0
	for _, c := range stats.MissingPerColumn {
		sum += c.Missing
	}
	assert.Equal(t, sum, stats.TotalMissing)
	assert.Equal(t, []ColumnMissing{{"x", 2}, {"y", 1}}, stats.ColumnsWithMissing())
	assert.GreaterOrEqual(t, stats.MissingPercentage, 0.0)
	assert.LessOrEqual(t, stats.MissingPercentage, 100.0)
}

func TestMissingPercentage(t *testing.T) {
	tests := []struct {
		name    string
		missing int
		rows    int
		columns int
		want    float64
	}{
		{"half missing", 2, 2, 2, 50},
		{"none missing", 0, 3, 4, 0},
		{"all missing", 6, 2, 3, 100},
		{"zero rows", 0, 0, 3, 0},
		{"zero columns", 0, 5, 0, 0},
		{"empty table", 0, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, MissingPercentage(tt.missing, tt.rows, tt.columns), 1e-9)
		})
	}
}

func TestComputeStats_Degenerate(t *testing.T) {
	stats := ComputeStats("empty.csv", tabular.FormatCSV, buildTable(t, []string{"a", "b"}))

	assert.Equal(t, 0, stats.TotalRows)
	assert.Equal(t, 2, stats.TotalColumns)
	assert.Equal(t, 0, stats.TotalMissing)
	assert.Equal(t, 0.0, stats.MissingPercentage)
	assert.False(t, stats.HasMissing())
	assert.Empty(t, stats.ColumnsWithMissing())
}
