package ingest

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/landlorddocs/smartreview/constants"
	"github.com/landlorddocs/smartreview/internal/review"
)

// Intake turns a watched directory tree into evidence submissions. The
// expected layout is <root>/<case-uuid>/<declared-category>/<file>; anything
// that does not fit is logged and skipped, never fatal.
type Intake struct {
	queue        review.Queue
	roots        []string
	debounce     time.Duration
	jurisdiction constants.Jurisdiction
	logger       *slog.Logger
}

func NewIntake(queue review.Queue, roots []string, debounce time.Duration, jurisdiction constants.Jurisdiction, logger *slog.Logger) *Intake {
	if logger == nil {
		logger = slog.Default()
	}
	if jurisdiction == "" {
		jurisdiction = constants.JurisdictionEngland
	}
	return &Intake{
		queue:        queue,
		roots:        roots,
		debounce:     debounce,
		jurisdiction: jurisdiction,
		logger:       logger,
	}
}

// Run watches the roots until the context is cancelled, enqueueing a review
// job for every evidence file that appears.
func (in *Intake) Run(ctx context.Context) error {
	evCh, errCh, err := StartWatcher(ctx, WatchConfig{
		Roots:       in.roots,
		InitialScan: true,
		Debounce:    in.debounce,
	})
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case path, ok := <-evCh:
			if !ok {
				return nil
			}
			req, ok := in.resolve(path)
			if !ok {
				continue
			}
			if err := in.queue.Enqueue(ctx, review.Job{Request: req, SubmittedAt: time.Now().UTC()}); err != nil {
				in.logger.Error("enqueue failed", "path", path, "error", err)
			}
		case werr, ok := <-errCh:
			if ok && werr != nil {
				in.logger.Warn("watch error", "error", werr)
			}
		}
	}
}

// resolve maps a watched path onto a case and declared category.
func (in *Intake) resolve(path string) (review.SubmitRequest, bool) {
	if IsHidden(path) || !allowed(path) {
		return review.SubmitRequest{}, false
	}

	var rel string
	for _, root := range in.roots {
		if r, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(r, "..") {
			rel = r
			break
		}
	}
	if rel == "" {
		return review.SubmitRequest{}, false
	}

	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) < 3 {
		in.logger.Warn("intake path outside case/category layout, skipping", "path", path)
		return review.SubmitRequest{}, false
	}
	caseID, err := uuid.Parse(parts[0])
	if err != nil {
		in.logger.Warn("intake directory is not a case id, skipping", "dir", parts[0], "path", path)
		return review.SubmitRequest{}, false
	}
	category, ok := constants.Canonicalize(parts[1])
	if !ok {
		in.logger.Warn("intake directory is not a known category, skipping", "dir", parts[1], "path", path)
		return review.SubmitRequest{}, false
	}

	return review.SubmitRequest{
		CaseID:           caseID,
		SourcePath:       path,
		DeclaredCategory: string(category),
		Jurisdiction:     in.jurisdiction,
	}, true
}
