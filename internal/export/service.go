package export

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/landlorddocs/smartreview/internal/repository"
)

// Service produces XLSX bytes summarizing a case's review state: current
// facts, outstanding warnings, and run history.
type Service struct {
	facts  repository.CaseFactRepository
	warns  repository.WarningRepository
	runs   repository.RunRepository
	logger *slog.Logger
}

func NewService(facts repository.CaseFactRepository, warns repository.WarningRepository, runs repository.RunRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{facts: facts, warns: warns, runs: runs, logger: logger}
}

// ExportCaseXLSX returns a workbook with Facts, Warnings, and Runs sheets.
func (s *Service) ExportCaseXLSX(ctx context.Context, caseID uuid.UUID) ([]byte, error) {
	facts, err := s.facts.Current(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("query facts: %w", err)
	}
	warnings, err := s.warns.Current(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("query warnings: %w", err)
	}
	runs, err := s.runs.ListByCase(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}

	f := excelize.NewFile()

	factRows := make([][]any, 0, len(facts))
	for _, fact := range facts {
		factRows = append(factRows, []any{
			fact.FieldName,
			fact.Value,
			fmt.Sprintf("%.2f", fact.Confidence),
			string(fact.Source),
			fact.FileHash,
			fact.PromotedAt.Format("2006-01-02 15:04"),
		})
	}
	if err := writeSheet(f, "Facts",
		[]string{"Field", "Value", "Confidence", "Source", "Evidence Hash", "Promoted"},
		factRows,
	); err != nil {
		return nil, err
	}

	warnRows := make([][]any, 0, len(warnings))
	for _, w := range warnings {
		warnRows = append(warnRows, []any{
			w.Code,
			string(w.Severity),
			w.Category,
			truncate(w.Message, 140),
			w.RelatedField,
		})
	}
	if err := writeSheet(f, "Warnings",
		[]string{"Code", "Severity", "Category", "Message", "Related Field"},
		warnRows,
	); err != nil {
		return nil, err
	}

	runRows := make([][]any, 0, len(runs))
	for _, r := range runs {
		runRows = append(runRows, []any{
			r.ID,
			r.FinishedAt.Format("2006-01-02 15:04"),
			len(r.Files),
			r.TotalPages,
			r.Duration.String(),
			r.LimitExceeded,
		})
	}
	if err := writeSheet(f, "Runs",
		[]string{"Run", "Finished", "Files", "Pages", "Duration", "Limit Hit"},
		runRows,
	); err != nil {
		return nil, err
	}

	_ = f.DeleteSheet("Sheet1")

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	s.logger.Info("export.case.ok", "case_id", caseID, "facts", len(facts), "warnings", len(warnings), "runs", len(runs))
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sheet string, headers []string, rows [][]any) error {
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return err
		}
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
