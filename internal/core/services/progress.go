package services

import (
	"sync/atomic"

	"github.com/custodia-labs/clipsearch/internal/core/domain"
)

// progress holds live counters for a running stage. Workers update it
// concurrently; readers take snapshots.
type progress struct {
	total     atomic.Int64
	processed atomic.Int64
	skipped   atomic.Int64
	failed    atomic.Int64
}

func (p *progress) reset(total int) {
	p.total.Store(int64(total))
	p.processed.Store(0)
	p.skipped.Store(0)
	p.failed.Store(0)
}

func (p *progress) snapshot() domain.Progress {
	return domain.Progress{
		Total:     int(p.total.Load()),
		Processed: int(p.processed.Load()),
		Skipped:   int(p.skipped.Load()),
		Failed:    int(p.failed.Load()),
	}
}

// fill copies the counters into a run summary.
func (p *progress) fill(run *domain.RunSummary) {
	s := p.snapshot()
	run.Total = s.Total
	run.Processed = s.Processed
	run.Skipped = s.Skipped
	run.Failed = s.Failed
}
