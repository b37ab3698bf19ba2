package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/landlorddocs/smartreview/constants"
	"github.com/landlorddocs/smartreview/internal/entity"
	"github.com/landlorddocs/smartreview/internal/facts"
	"github.com/landlorddocs/smartreview/internal/governor"
	"github.com/landlorddocs/smartreview/internal/rules"
)

// Request describes one pipeline invocation for a case.
type Request struct {
	CaseID       uuid.UUID
	Jurisdiction constants.Jurisdiction
	Files        []*entity.EvidenceFile

	// DeclaredFacts are case facts the landlord entered by hand. They always
	// win over extracted values during validation.
	DeclaredFacts map[string]string

	// KnownDocuments marks document types already on file for the case from
	// earlier runs, so completeness checks see the whole picture.
	KnownDocuments map[constants.DocumentType]bool
}

// ValidationOutcome pairs a routed validator's verdict with the document type
// it examined.
type ValidationOutcome struct {
	Jurisdiction constants.Jurisdiction `json:"jurisdiction"`
	DocumentType constants.DocumentType `json:"document_type"`
	Result       rules.Result           `json:"result"`
}

// Report is everything one run produced. Merged values that never cleared
// the promotion gate stay inside Results for audit; they are not a separate
// suggestion surface.
type Report struct {
	Record      *entity.RunRecord
	Results     map[string]*entity.ExtractionResult // by file hash
	Facts       []entity.CaseFact                   // promoted this run
	Warnings    []entity.Warning                    // run-level limit warnings
	Validations []ValidationOutcome
	Throttled   bool
}

// Runner drives whole runs: budgets, fan-out, promotion, validation.
type Runner struct {
	proc   *Processor
	gate   *facts.Gate
	router *rules.Router
	gov    *governor.Governor
	logger *slog.Logger
}

func NewRunner(proc *Processor, gate *facts.Gate, router *rules.Router, gov *governor.Governor, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{proc: proc, gate: gate, router: router, gov: gov, logger: logger}
}

// Run processes the request's files under the configured budgets, promotes
// qualifying facts, and routes legal validation for every document type seen.
// A case that re-triggers inside the throttle window gets its previous record
// back instead of a fresh run.
func (r *Runner) Run(ctx context.Context, req Request) (*Report, error) {
	start := time.Now().UTC()

	if prev, ok := r.gov.ThrottledRecord(req.CaseID.String(), start); ok {
		return &Report{
			Record:    prev,
			Throttled: true,
			Warnings: []entity.Warning{{
				Code:     entity.WarnThrottled,
				Severity: constants.SeverityInfo,
				Category: "limits",
				Message:  "evidence was reviewed moments ago; showing the existing result",
			}},
		}, nil
	}

	budget := r.gov.NewBudget()
	outcomes := make([]entity.FileOutcome, len(req.Files))
	results := make([]*entity.ExtractionResult, len(req.Files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.gov.Limits().Fanout)

	seenReason := map[string]bool{}
	var runWarnings []entity.Warning

	for i, file := range req.Files {
		outcomes[i] = entity.FileOutcome{FileID: file.ID, FileHash: file.HashHex()}

		if cached, ok := r.proc.Cached(file.HashHex()); ok {
			outcomes[i].Status = constants.FileCached
			outcomes[i].Pages = cached.Pages
			results[i] = cached
			r.logger.Info("run.file.cached", "file_id", file.ID, "file_hash", file.HashHex())
			continue
		}

		allowance, ok, reason := budget.AdmitFile()
		if !ok {
			outcomes[i].Status = constants.FileSkipped
			outcomes[i].SkipReason = reason
			if !seenReason[reason] {
				seenReason[reason] = true
				runWarnings = append(runWarnings, limitWarning(reason))
			}
			r.logger.Warn("run.file.skipped", "file_id", file.ID, "reason", reason)
			continue
		}

		i, file, allowance := i, file, allowance
		g.Go(func() error {
			fctx, cancel := context.WithTimeout(gctx, budget.FileTimeout())
			defer cancel()

			res, err := r.proc.ProcessFile(fctx, file, allowance)
			switch {
			case err == nil:
				budget.Refund(allowance, res.Pages)
				if res.Truncated {
					budget.MarkExceeded()
				}
				outcomes[i].Status = constants.FileProcessed
				outcomes[i].Pages = res.Pages
				results[i] = res
			case errors.Is(err, context.DeadlineExceeded) && gctx.Err() == nil:
				budget.Refund(allowance, 0)
				budget.MarkExceeded()
				outcomes[i].Status = constants.FileTimedOut
				outcomes[i].SkipReason = entity.WarnFileTimeout
				r.logger.Warn("run.file.timeout", "file_id", file.ID)
			case gctx.Err() != nil:
				return gctx.Err()
			default:
				budget.Refund(allowance, 0)
				outcomes[i].Status = constants.FileFailed
				r.logger.Error("run.file.failed", "file_id", file.ID, "error", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := range outcomes {
		if outcomes[i].Status == constants.FileTimedOut {
			runWarnings = append(runWarnings, entity.Warning{
				Code:     entity.WarnFileTimeout,
				Severity: constants.SeverityWarning,
				Category: "limits",
				Message:  fmt.Sprintf("%s did not finish within the per-file time limit", req.Files[i].Filename),
			})
		}
	}

	fromCache := len(outcomes) > 0
	for _, o := range outcomes {
		if o.Status != constants.FileCached {
			fromCache = false
			break
		}
	}

	finished := time.Now().UTC()
	record := &entity.RunRecord{
		ID:            ulid.Make().String(),
		CaseID:        req.CaseID,
		Files:         outcomes,
		TotalPages:    budget.PagesUsed(),
		Duration:      finished.Sub(start),
		LimitExceeded: budget.Exceeded(),
		FromCache:     fromCache,
		StartedAt:     start,
		FinishedAt:    finished,
	}

	report := &Report{
		Record:   record,
		Results:  map[string]*entity.ExtractionResult{},
		Warnings: runWarnings,
	}

	for _, res := range results {
		if res == nil {
			continue
		}
		report.Results[res.FileHash] = res

		dt := res.Classification.DocumentType
		if dt == constants.DocTypeUnsupported {
			continue
		}
		promoted := r.gate.Promote(req.CaseID.String(), dt, res.FileHash, record.ID, res.Merged, finished)
		report.Facts = append(report.Facts, promoted...)
	}

	report.Validations = r.validate(req, report)

	r.gov.RememberRun(req.CaseID.String(), record)
	r.logger.Info("run.finished",
		"run_id", record.ID,
		"case_id", req.CaseID,
		"files", len(req.Files),
		"total_pages", record.TotalPages,
		"limit_exceeded", record.LimitExceeded,
		"duration", record.Duration,
	)
	return report, nil
}

// validate routes every document type seen this run (plus the caller's known
// documents for completeness checks) through the rule table.
func (r *Runner) validate(req Request, report *Report) []ValidationOutcome {
	docs := map[constants.DocumentType]bool{}
	for dt, present := range req.KnownDocuments {
		if present {
			docs[dt] = true
		}
	}
	for _, res := range report.Results {
		if dt := res.Classification.DocumentType; dt != constants.DocTypeUnsupported {
			docs[dt] = true
		}
	}

	var runDocs []constants.DocumentType
	for _, res := range report.Results {
		if dt := res.Classification.DocumentType; dt != constants.DocTypeUnsupported {
			runDocs = append(runDocs, dt)
		}
	}
	sort.Slice(runDocs, func(i, j int) bool { return runDocs[i] < runDocs[j] })

	factSet := rules.NewFactSet(req.DeclaredFacts, report.Facts, docs)

	var out []ValidationOutcome
	seen := map[constants.DocumentType]bool{}
	for _, dt := range runDocs {
		if seen[dt] {
			continue
		}
		seen[dt] = true
		res := r.router.Route(req.Jurisdiction, dt, factSet)
		out = append(out, ValidationOutcome{
			Jurisdiction: req.Jurisdiction,
			DocumentType: dt,
			Result:       res,
		})
		r.logger.Info("run.validate",
			"jurisdiction", req.Jurisdiction,
			"document_type", dt,
			"status", res.Status,
			"blockers", len(res.Blockers),
			"warnings", len(res.Warnings),
		)
	}
	return out
}

func limitWarning(reason string) entity.Warning {
	msg := map[string]string{
		entity.WarnFilesSkipped: "the run's file budget was reached; remaining files were skipped",
		entity.WarnTotalPages:   "the run's total page budget was spent; remaining files were skipped",
	}[reason]
	if msg == "" {
		msg = "a resource limit interrupted this run"
	}
	return entity.Warning{
		Code:     reason,
		Severity: constants.SeverityWarning,
		Category: "limits",
		Message:  msg,
	}
}
