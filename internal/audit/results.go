package audit

import "fmt"

// FileError is a dataset that exists but could not be read or decoded
type FileError struct {
	Filename string
	Err      error
}

// Error implements the error interface
func (e FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Filename, e.Err)
}

// Unwrap returns the underlying error
func (e FileError) Unwrap() error {
	return e.Err
}

// Entry is one audited dataset in scan order. Exactly one of Stats and
// Failure is set.
type Entry struct {
	Stats   *DatasetStats
	Failure *FileError
}

// Results maps filenames to their statistics in scan order. Absent files
// have no entry. Results is not modified after Audit returns it.
type Results struct {
	entries []Entry
	stats   map[string]DatasetStats
}

func newResults(entries []Entry) *Results {
	r := &Results{
		entries: entries,
		stats:   make(map[string]DatasetStats, len(entries)),
	}
	for _, e := range entries {
		if e.Stats != nil {
			r.stats[e.Stats.Filename] = *e.Stats
		}
	}
	return r
}

// Len returns the number of datasets with statistics
func (r *Results) Len() int {
	return len(r.stats)
}

// Get returns the statistics for filename
func (r *Results) Get(filename string) (DatasetStats, bool) {
	s, ok := r.stats[filename]
	return s, ok
}

// Filenames returns the names of datasets with statistics, in scan order
func (r *Results) Filenames() []string {
	names := make([]string, 0, len(r.stats))
	for _, e := range r.entries {
		if e.Stats != nil {
			names = append(names, e.Stats.Filename)
		}
	}
	return names
}

// Stats returns all statistics in scan order
func (r *Results) Stats() []DatasetStats {
	out := make([]DatasetStats, 0, len(r.stats))
	for _, e := range r.entries {
		if e.Stats != nil {
			out = append(out, *e.Stats)
		}
	}
	return out
}

// WithMissing returns the statistics of datasets that have missing values
func (r *Results) WithMissing() []DatasetStats {
	var out []DatasetStats
	for _, s := range r.Stats() {
		if s.HasMissing() {
			out = append(out, s)
		}
	}
	return out
}

// Failures returns the datasets that could not be read, in scan order
func (r *Results) Failures() []FileError {
	var out []FileError
	for _, e := range r.entries {
		if e.Failure != nil {
			out = append(out, *e.Failure)
		}
	}
	return out
}

// Entries returns every audited dataset, successes and failures, in scan order
func (r *Results) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}
