package governor

import (
	"log/slog"
	"sync"
	"time"

	"github.com/landlorddocs/smartreview/internal/config"
	"github.com/landlorddocs/smartreview/internal/entity"
)

// Governor enforces the per-run budgets and the inter-run throttle, and owns
// the extraction cache. Budgets apply in a fixed order: file count first,
// per-file page truncation second, total pages third, per-file timeout
// fourth; the throttle sits in front of all of them.
type Governor struct {
	limits config.Limits
	cache  *Cache
	logger *slog.Logger

	mu     sync.Mutex
	recent map[string]recentRun // caseID -> last completed run
}

type recentRun struct {
	record     *entity.RunRecord
	finishedAt time.Time
}

func New(limits config.Limits, cache *Cache, logger *slog.Logger) *Governor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Governor{
		limits: limits,
		cache:  cache,
		logger: logger,
		recent: map[string]recentRun{},
	}
}

func (g *Governor) Limits() config.Limits { return g.limits }
func (g *Governor) Cache() *Cache        { return g.cache }

// ThrottledRecord returns the most recent RunRecord for a case when the case
// re-triggered the pipeline inside the throttle window. The caller reuses it
// instead of starting a new run.
func (g *Governor) ThrottledRecord(caseID string, now time.Time) (*entity.RunRecord, bool) {
	if g.limits.ThrottleWindow <= 0 {
		return nil, false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	last, ok := g.recent[caseID]
	if !ok || now.Sub(last.finishedAt) > g.limits.ThrottleWindow {
		return nil, false
	}
	g.logger.Info("governor.throttled", "case_id", caseID, "run_id", last.record.ID)
	return last.record, true
}

// RememberRun records a completed run for throttling.
func (g *Governor) RememberRun(caseID string, rec *entity.RunRecord) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.recent[caseID] = recentRun{record: rec, finishedAt: rec.FinishedAt}
}

// Budget is the mutable accounting for one run. It is shared across the
// run's file workers, so all methods are safe for concurrent use.
type Budget struct {
	mu         sync.Mutex
	limits     config.Limits
	filesBegun int
	pagesUsed  int
	exceeded   bool
}

// NewBudget starts accounting for one run.
func (g *Governor) NewBudget() *Budget {
	return &Budget{limits: g.limits}
}

// AdmitFile decides whether another file may start and reserves its page
// allowance up front so parallel workers can never spend past the total
// budget. Files beyond the per-run file budget, or starting after the total
// page budget is spent, are skipped; already-started files always run to
// completion or timeout. The reason names the limit that refused admission.
func (b *Budget) AdmitFile() (allowance int, ok bool, reason string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.filesBegun >= b.limits.MaxFilesPerRun {
		b.exceeded = true
		return 0, false, entity.WarnFilesSkipped
	}
	remaining := b.limits.MaxTotalPages - b.pagesUsed
	if remaining <= 0 {
		b.exceeded = true
		return 0, false, entity.WarnTotalPages
	}
	allowance = b.limits.MaxPagesPerFile
	if allowance > remaining {
		// A clipped allowance is not yet an exceeded limit: the file may fit
		// inside what is left. Truncation is what marks the budget exceeded.
		allowance = remaining
	}
	b.filesBegun++
	b.pagesUsed += allowance
	return allowance, true, ""
}

// MarkExceeded records that a limit clipped actual work: a truncated file or
// a per-file timeout.
func (b *Budget) MarkExceeded() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.exceeded = true
}

// Refund returns a file's unused reserved pages once its true page count is
// known.
func (b *Budget) Refund(allowance, used int) {
	if used > allowance {
		used = allowance
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pagesUsed -= allowance - used
}

// PagesUsed returns the pages charged so far.
func (b *Budget) PagesUsed() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pagesUsed
}

// Exceeded reports whether any limit was hit during the run.
func (b *Budget) Exceeded() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.exceeded
}

// MaxPagesPerFile is the per-file truncation cap handed to the content
// extractor.
func (b *Budget) MaxPagesPerFile() int { return b.limits.MaxPagesPerFile }

// FileTimeout is the per-file wall clock allowance.
func (b *Budget) FileTimeout() time.Duration { return b.limits.FileTimeout }
