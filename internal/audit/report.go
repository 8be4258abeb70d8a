package audit

import (
	"fmt"
	"io"
	"strings"
)

const ruleWidth = 50

// Reporter renders audit results as human-readable text
type Reporter struct {
	w   io.Writer
	err error
}

// NewReporter creates a reporter writing to w
func NewReporter(w io.Writer) *Reporter {
	return &Reporter{w: w}
}

func (r *Reporter) printf(format string, args ...interface{}) {
	if r.err != nil {
		return
	}
	_, r.err = fmt.Fprintf(r.w, format, args...)
}

// Render writes the banner, one block per entry in scan order, and the summary
func (r *Reporter) Render(results *Results) error {
	r.Header()
	for _, e := range results.Entries() {
		switch {
		case e.Stats != nil:
			r.Dataset(*e.Stats)
		case e.Failure != nil:
			r.Failure(*e.Failure)
		}
	}
	r.Summary(results)
	return r.Err()
}

// Err returns the first write error
func (r *Reporter) Err() error {
	return r.err
}

// Header writes the opening banner
func (r *Reporter) Header() {
	r.printf("🔍 Checking for missing data in all datasets...\n\n")
}

// Dataset writes the block for one dataset
func (r *Reporter) Dataset(s DatasetStats) {
	r.printf("\n📊 %s:\n", s.Filename)
	r.printf("   Rows: %d, Columns: %d\n", s.TotalRows, s.TotalColumns)
	r.printf("   Total missing values: %d\n", s.TotalMissing)
	r.printf("   Missing percentage: %.2f%%\n", s.MissingPercentage)

	if cols := s.ColumnsWithMissing(); len(cols) > 0 {
		r.printf("   Columns with missing data: %s\n", formatColumns(cols))
	} else {
		r.printf("   ✅ No missing data found\n")
	}
}

// Failure writes the one-line warning for a dataset that could not be read
func (r *Reporter) Failure(f FileError) {
	r.printf("\n⚠️  %s: could not be read: %v\n", f.Filename, f.Err)
}

// Summary writes the closing section listing datasets with missing values
func (r *Reporter) Summary(results *Results) {
	rule := strings.Repeat("=", ruleWidth)
	r.printf("\n%s\n📋 SUMMARY\n%s\n", rule, rule)

	if withMissing := results.WithMissing(); len(withMissing) > 0 {
		r.printf("⚠️  Files with missing data:\n")
		for _, s := range withMissing {
			r.printf("   - %s (%d missing values)\n", s.Filename, s.TotalMissing)
		}
	} else {
		r.printf("✅ No missing data found in any dataset!\n")
	}

	if failures := results.Failures(); len(failures) > 0 {
		r.printf("❌ Files that could not be read:\n")
		for _, f := range failures {
			r.printf("   - %s: %v\n", f.Filename, f.Err)
		}
	}
}

func formatColumns(cols []ColumnMissing) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = fmt.Sprintf("'%s': %d", c.Column, c.Missing)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
