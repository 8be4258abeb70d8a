// Package tabular decodes dataset files into a uniform Table of named
// columns and per-cell missing markers.
//
// Each supported Format has a Decoder:
//
//	csv      header row plus records; empty, absent and NA-token cells are missing
//	parquet  read through Arrow; null validity bits and float NaN are missing
//	json     array of objects (one row each) or a single object flattened
//	         into dotted-path columns (exactly one row)
//	xlsx     first worksheet, same cell rules as csv
//
// Only whether a cell holds a value matters; cell types are not inferred.
package tabular
