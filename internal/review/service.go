package review

import (
	"context"
	"crypto/sha256"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/landlorddocs/smartreview/constants"
	"github.com/landlorddocs/smartreview/internal/common"
	"github.com/landlorddocs/smartreview/internal/entity"
	"github.com/landlorddocs/smartreview/internal/pipeline"
	"github.com/landlorddocs/smartreview/internal/repository"
)

// Service is the case-facing surface: accept evidence, run the pipeline,
// report warnings and suggested facts.
type Service struct {
	files  repository.EvidenceFileRepository
	runs   repository.RunRepository
	facts  repository.CaseFactRepository
	warns  repository.WarningRepository
	runner *pipeline.Runner
	logger *slog.Logger
}

func NewService(
	files repository.EvidenceFileRepository,
	runs repository.RunRepository,
	facts repository.CaseFactRepository,
	warns repository.WarningRepository,
	runner *pipeline.Runner,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		files:  files,
		runs:   runs,
		facts:  facts,
		warns:  warns,
		runner: runner,
		logger: logger,
	}
}

// SubmitRequest is one evidence upload.
type SubmitRequest struct {
	CaseID           uuid.UUID
	SourcePath       string
	DeclaredCategory string
	Jurisdiction     constants.Jurisdiction
	DeclaredFacts    map[string]string
}

// SubmitEvidence stores the file (deduplicating by content hash within the
// case), runs the pipeline, and persists the run record, promoted facts, and
// warnings. A duplicate upload still reruns so its warnings stay current, but
// the cache makes that rerun cheap.
func (s *Service) SubmitEvidence(ctx context.Context, req SubmitRequest) (*pipeline.Report, error) {
	category, ok := constants.Canonicalize(req.DeclaredCategory)
	if !ok {
		return nil, common.NewAppError("INVALID_CATEGORY", "unknown declared category: "+req.DeclaredCategory, common.ErrInvalidInput)
	}
	if req.Jurisdiction == "" {
		req.Jurisdiction = constants.JurisdictionEngland
	}

	file, err := s.register(ctx, req.CaseID, req.SourcePath, category)
	if err != nil {
		return nil, err
	}

	known, err := s.knownDocuments(ctx, req.CaseID)
	if err != nil {
		return nil, err
	}

	report, err := s.runner.Run(ctx, pipeline.Request{
		CaseID:         req.CaseID,
		Jurisdiction:   req.Jurisdiction,
		Files:          []*entity.EvidenceFile{file},
		DeclaredFacts:  req.DeclaredFacts,
		KnownDocuments: known,
	})
	if err != nil {
		return nil, err
	}
	if report.Throttled {
		return report, nil
	}
	if err := s.persist(ctx, req.CaseID, []*entity.EvidenceFile{file}, report); err != nil {
		return nil, err
	}
	return report, nil
}

// ReviewCase reruns the pipeline over every file the case has on record.
// Unchanged files are answered from the cache.
func (s *Service) ReviewCase(ctx context.Context, caseID uuid.UUID, jurisdiction constants.Jurisdiction, declared map[string]string) (*pipeline.Report, error) {
	if jurisdiction == "" {
		jurisdiction = constants.JurisdictionEngland
	}
	files, err := s.files.ListByCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, common.ErrNotFound
	}

	report, err := s.runner.Run(ctx, pipeline.Request{
		CaseID:        caseID,
		Jurisdiction:  jurisdiction,
		Files:         files,
		DeclaredFacts: declared,
	})
	if err != nil {
		return nil, err
	}
	if report.Throttled {
		return report, nil
	}
	if err := s.persist(ctx, caseID, files, report); err != nil {
		return nil, err
	}
	return report, nil
}

// GetWarnings returns the current warnings for a case: per file, the newest
// run's findings.
func (s *Service) GetWarnings(ctx context.Context, caseID uuid.UUID) ([]entity.Warning, error) {
	return s.warns.Current(ctx, caseID)
}

// GetFacts returns the current promoted fact per field.
func (s *Service) GetFacts(ctx context.Context, caseID uuid.UUID) ([]entity.CaseFact, error) {
	return s.facts.Current(ctx, caseID)
}

// GetSuggestedFacts returns the promoted facts the latest run produced: the
// values the consumer offers the user for confirmation against their declared
// answers. Merged values that never cleared the promotion gate stay in the
// run's extraction results for audit and are never surfaced here.
func (s *Service) GetSuggestedFacts(ctx context.Context, caseID uuid.UUID) ([]entity.CaseFact, error) {
	rec, err := s.runs.Latest(ctx, caseID)
	if errors.Is(err, common.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	current, err := s.facts.Current(ctx, caseID)
	if err != nil {
		return nil, err
	}
	out := make([]entity.CaseFact, 0, len(current))
	for _, f := range current {
		if f.RunID == rec.ID {
			out = append(out, f)
		}
	}
	return out, nil
}

// GetRuns lists a case's run history.
func (s *Service) GetRuns(ctx context.Context, caseID uuid.UUID) ([]*entity.RunRecord, error) {
	return s.runs.ListByCase(ctx, caseID)
}

func (s *Service) register(ctx context.Context, caseID uuid.UUID, path string, category constants.DeclaredCategory) (*entity.EvidenceFile, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	ext := constants.NormalizeExt(filepath.Ext(abs))
	if _, ok := constants.AllowedExtensions[ext]; !ok {
		return nil, common.NewAppError("UNSUPPORTED_FILE", "unsupported or missing extension: "+ext, common.ErrInvalidInput)
	}

	f, err := os.Open(abs)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			s.logger.Warn("close file failed", "path", abs, "error", cerr)
		}
	}()

	h := sha256.New()
	size, err := io.Copy(h, f)
	if err != nil {
		return nil, err
	}

	file := &entity.EvidenceFile{
		ID:               uuid.New(),
		CaseID:           caseID,
		SourcePath:       abs,
		ContentHash:      h.Sum(nil),
		Filename:         filepath.Base(abs),
		FileExt:          ext,
		FileSize:         int(size),
		MimeClass:        constants.MapExtToClass(ext),
		DeclaredCategory: category,
		UploadedAt:       time.Now().UTC(),
	}
	stored, dedup, err := s.files.UpsertByHash(ctx, file)
	if err != nil {
		return nil, err
	}
	if dedup {
		s.logger.Info("review.file.deduplicated", "case_id", caseID, "file_hash", stored.HashHex())
	}
	return stored, nil
}

func (s *Service) knownDocuments(ctx context.Context, caseID uuid.UUID) (map[constants.DocumentType]bool, error) {
	files, err := s.files.ListByCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	docs := map[constants.DocumentType]bool{}
	for _, f := range files {
		if dt := constants.DocTypeForCategory(f.DeclaredCategory); dt != constants.DocTypeUnsupported {
			docs[dt] = true
		}
	}
	return docs, nil
}

func (s *Service) persist(ctx context.Context, caseID uuid.UUID, files []*entity.EvidenceFile, report *pipeline.Report) error {
	if err := s.runs.Save(ctx, report.Record); err != nil {
		return err
	}
	if err := s.facts.Append(ctx, report.Facts); err != nil {
		return err
	}
	if err := s.warns.SaveForRun(ctx, caseID, report.Record.ID, "", report.Warnings); err != nil {
		return err
	}
	for hash, res := range report.Results {
		if err := s.warns.SaveForRun(ctx, caseID, report.Record.ID, hash, res.Warnings); err != nil {
			return err
		}
	}
	for _, v := range report.Validations {
		all := append(append([]entity.Warning{}, v.Result.Blockers...), v.Result.Warnings...)
		if err := s.warns.SaveForRun(ctx, caseID, report.Record.ID, "", all); err != nil {
			return err
		}
	}
	for _, f := range files {
		if res, ok := report.Results[f.HashHex()]; ok && res.Pages > 0 {
			if err := s.files.SetPageCount(ctx, f.ID, res.Pages); err != nil {
				s.logger.Warn("failed to record page count", "file_id", f.ID, "error", err)
			}
		}
	}
	return nil
}
