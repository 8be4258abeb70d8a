package tabular

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// DecodeXLSX reads the first worksheet of a workbook. The first row holds
// the headers; cells follow the same missing-value rules as CSV.
func DecodeXLSX(ctx context.Context, data []byte) (*Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("no columns to parse: sheet %q has no header row", sheets[0])
	}

	t := NewTable(normalizeHeader(rows[0]))
	for i, row := range rows[1:] {
		// spreadsheet rows are 1-based and the header is row 1
		if err := appendTextRecord(t, row, i+2); err != nil {
			return nil, fmt.Errorf("sheet %q: %w", sheets[0], err)
		}
	}
	return t, nil
}
