// Package audit scores datasets for missing values and renders the report.
//
// An Auditor resolves each Dataset under its data directory, decodes it
// with the tabular decoder for its format and computes DatasetStats.
// Files that do not exist are skipped. Files that exist but cannot be
// decoded are collected in Results.Failures, or abort the run when
// fail-fast is enabled.
//
// Reporter writes the per-file blocks followed by a summary of the files
// that contain missing values.
package audit
