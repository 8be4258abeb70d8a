package tabular

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// naTokens are the cell values read as missing, in addition to an absent cell
var naTokens = map[string]struct{}{
	"":         {},
	"#N/A":     {},
	"#N/A N/A": {},
	"#NA":      {},
	"-1.#IND":  {},
	"-1.#QNAN": {},
	"-NaN":     {},
	"-nan":     {},
	"1.#IND":   {},
	"1.#QNAN":  {},
	"<NA>":     {},
	"N/A":      {},
	"NA":       {},
	"NULL":     {},
	"NaN":      {},
	"None":     {},
	"n/a":      {},
	"nan":      {},
	"null":     {},
}

const utf8BOM = "\ufeff"

// IsNAToken reports whether a text cell is treated as missing
func IsNAToken(cell string) bool {
	_, ok := naTokens[cell]
	return ok
}

// DecodeCSV reads delimited text with a required header row. Cells that
// are empty, absent from a short record, or an NA token are missing.
func DecodeCSV(ctx context.Context, data []byte) (*Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	// a quote inside an unquoted field is part of the value
	r.LazyQuotes = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("no columns to parse: file has no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	header[0] = strings.TrimPrefix(header[0], utf8BOM)

	t := NewTable(normalizeHeader(header))

	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		line, _ := r.FieldPos(0)
		if err := appendTextRecord(t, rec, line); err != nil {
			return nil, err
		}
	}

	return t, nil
}

// appendTextRecord adds one text record, skipping blank ones
func appendTextRecord(t *Table, rec []string, line int) error {
	if isBlankRecord(rec) {
		return nil
	}
	if len(rec) > t.NumColumns() {
		return fmt.Errorf("line %d: expected %d fields, saw %d", line, t.NumColumns(), len(rec))
	}

	nulls := make([]bool, t.NumColumns())
	for i := range nulls {
		nulls[i] = i >= len(rec) || IsNAToken(rec[i])
	}
	return t.AppendRow(nulls)
}

func isBlankRecord(rec []string) bool {
	for _, cell := range rec {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return len(rec) <= 1
}

// normalizeHeader names empty headers "Unnamed: <i>" and renames repeated
// headers name.1, name.2, ... so every column is distinct.
func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	counts := make(map[string]int, len(header))

	for i, name := range header {
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		cur := counts[name]
		for cur > 0 {
			counts[name] = cur + 1
			name = fmt.Sprintf("%s.%d", name, cur)
			cur = counts[name]
		}
		out[i] = name
		counts[name] = cur + 1
	}
	return out
}
