// Package shared holds code used across packages that belongs to no single
// domain.
//
// # Structure
//
//   - testutil: dataset fixture writers (CSV, JSON, Parquet, XLSX) and a
//     capturing slog handler for asserting on log output
//
// Nothing here may import the audit or tabular packages, so any package's
// tests can depend on testutil.
package shared
