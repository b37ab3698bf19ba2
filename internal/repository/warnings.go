package repository

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/landlorddocs/smartreview/constants"
	"github.com/landlorddocs/smartreview/internal/entity"
)

// WarningRepository stores the findings of each run. Rows are immutable; a
// later run supersedes rather than edits earlier warnings for the same file.
type WarningRepository interface {
	SaveForRun(ctx context.Context, caseID uuid.UUID, runID string, fileHash string, warnings []entity.Warning) error
	// Current returns, per file, the warnings of the newest run that touched
	// that file, plus run-level warnings from the newest run overall.
	Current(ctx context.Context, caseID uuid.UUID) ([]entity.Warning, error)
}

type warningRepo struct {
	db     *sqlx.DB
	logger *slog.Logger
}

func NewWarningRepository(db *sqlx.DB, logger *slog.Logger) WarningRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &warningRepo{db: db, logger: logger}
}

type warningRow struct {
	CaseID          string `db:"case_id"`
	RunID           string `db:"run_id"`
	FileHash        string `db:"file_hash"`
	Code            string `db:"code"`
	Severity        string `db:"severity"`
	Category        string `db:"category"`
	Message         string `db:"message"`
	RelatedField    string `db:"related_field"`
	RelatedCategory string `db:"related_category"`
}

func (r *warningRepo) SaveForRun(ctx context.Context, caseID uuid.UUID, runID string, fileHash string, warnings []entity.Warning) error {
	if len(warnings) == 0 {
		return nil
	}
	q := r.db.Rebind(`INSERT INTO warnings
		(case_id, run_id, file_hash, code, severity, category, message, related_field, related_category)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	for _, w := range warnings {
		if _, err := r.db.ExecContext(ctx, q,
			caseID.String(), runID, fileHash, w.Code, string(w.Severity), w.Category,
			w.Message, w.RelatedField, w.RelatedCategory,
		); err != nil {
			r.logger.Error("failed to save warning", "case_id", caseID, "run_id", runID, "code", w.Code, "error", err)
			return err
		}
	}
	return nil
}

func (r *warningRepo) Current(ctx context.Context, caseID uuid.UUID) ([]entity.Warning, error) {
	// ULID run IDs make MAX(run_id) the newest run.
	q := r.db.Rebind(`SELECT w.* FROM warnings w
		JOIN (
			SELECT file_hash, MAX(run_id) AS run_id
			FROM warnings WHERE case_id = ? GROUP BY file_hash
		) latest ON w.file_hash = latest.file_hash AND w.run_id = latest.run_id
		WHERE w.case_id = ?
		ORDER BY w.file_hash, w.code`)
	var rows []warningRow
	if err := r.db.SelectContext(ctx, &rows, q, caseID.String(), caseID.String()); err != nil {
		return nil, err
	}
	out := make([]entity.Warning, 0, len(rows))
	for _, row := range rows {
		out = append(out, entity.Warning{
			Code:            row.Code,
			Severity:        constants.Severity(row.Severity),
			Category:        row.Category,
			Message:         row.Message,
			RelatedField:    row.RelatedField,
			RelatedCategory: row.RelatedCategory,
		})
	}
	return out, nil
}
