package domain

import "time"

// RunKind names a pipeline stage.
type RunKind string

// Pipeline stages that record run summaries.
const (
	RunKindCatalog     RunKind = "catalog"
	RunKindDownload    RunKind = "download"
	RunKindExtract     RunKind = "extract"
	RunKindConsolidate RunKind = "consolidate"
)

// String returns the string representation.
func (k RunKind) String() string {
	return string(k)
}

// RunSummary counts what a pipeline stage did. Failures are reported
// here rather than aborting the run.
type RunSummary struct {
	ID         string
	Kind       RunKind
	StartedAt  time.Time
	FinishedAt time.Time

	// Total is the number of items the run considered.
	Total int

	// Processed items were newly written.
	Processed int

	// Skipped items already existed and were left untouched.
	Skipped int

	// Failed items raised an error and were logged.
	Failed int

	// Dropped counts the images within Failed that were healthy but lost
	// because another image failed their batch.
	Dropped int

	// Error holds the fatal error message if the run aborted.
	Error string
}

// Duration returns the wall time of the run.
func (r RunSummary) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Succeeded reports whether the run finished without a fatal error.
func (r RunSummary) Succeeded() bool {
	return r.Error == ""
}

// Progress is a snapshot of a running stage.
type Progress struct {
	Total     int
	Processed int
	Skipped   int
	Failed    int
}

// Done returns how many items have been handled in any way.
func (p Progress) Done() int {
	return p.Processed + p.Skipped + p.Failed
}
