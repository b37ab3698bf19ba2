package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/landlorddocs/smartreview/constants"
	"github.com/landlorddocs/smartreview/internal/entity"
)

// CaseFactRepository is append-only. Promotion never edits or deletes a row;
// the current value of a field is simply its most recently promoted row.
type CaseFactRepository interface {
	Append(ctx context.Context, facts []entity.CaseFact) error
	// Current returns the latest promoted value per field for a case.
	Current(ctx context.Context, caseID uuid.UUID) ([]entity.CaseFact, error)
	// History returns every promoted row for a case in promotion order.
	History(ctx context.Context, caseID uuid.UUID) ([]entity.CaseFact, error)
}

type caseFactRepo struct {
	db     *sqlx.DB
	logger *slog.Logger
}

func NewCaseFactRepository(db *sqlx.DB, logger *slog.Logger) CaseFactRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &caseFactRepo{db: db, logger: logger}
}

type caseFactRow struct {
	CaseID     string  `db:"case_id"`
	FieldName  string  `db:"field_name"`
	Value      string  `db:"value"`
	Confidence float64 `db:"confidence"`
	Source     string  `db:"source"`
	FileHash   string  `db:"file_hash"`
	RunID      string  `db:"run_id"`
	PromotedAt string  `db:"promoted_at"`
}

func (r caseFactRow) toEntity() (entity.CaseFact, error) {
	promotedAt, err := time.Parse(time.RFC3339Nano, r.PromotedAt)
	if err != nil {
		return entity.CaseFact{}, err
	}
	return entity.CaseFact{
		CaseID:     r.CaseID,
		FieldName:  r.FieldName,
		Value:      r.Value,
		Confidence: r.Confidence,
		Source:     constants.ExtractionSource(r.Source),
		FileHash:   r.FileHash,
		RunID:      r.RunID,
		PromotedAt: promotedAt,
	}, nil
}

func (r *caseFactRepo) Append(ctx context.Context, facts []entity.CaseFact) error {
	if len(facts) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	q := tx.Rebind(`INSERT INTO case_facts
		(case_id, field_name, value, confidence, source, file_hash, run_id, promoted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	for _, f := range facts {
		if _, err := tx.ExecContext(ctx, q,
			f.CaseID, f.FieldName, f.Value, f.Confidence, string(f.Source),
			f.FileHash, f.RunID, f.PromotedAt.UTC().Format(time.RFC3339Nano),
		); err != nil {
			r.logger.Error("failed to append case fact", "case_id", f.CaseID, "field", f.FieldName, "error", err)
			return err
		}
	}
	return tx.Commit()
}

func (r *caseFactRepo) Current(ctx context.Context, caseID uuid.UUID) ([]entity.CaseFact, error) {
	// Run IDs are ULIDs, so MAX(run_id) per field is the newest promotion.
	q := r.db.Rebind(`SELECT cf.* FROM case_facts cf
		JOIN (
			SELECT field_name, MAX(run_id) AS run_id
			FROM case_facts WHERE case_id = ? GROUP BY field_name
		) latest ON cf.field_name = latest.field_name AND cf.run_id = latest.run_id
		WHERE cf.case_id = ?
		ORDER BY cf.field_name`)
	var rows []caseFactRow
	if err := r.db.SelectContext(ctx, &rows, q, caseID.String(), caseID.String()); err != nil {
		return nil, err
	}
	return toEntities(rows)
}

func (r *caseFactRepo) History(ctx context.Context, caseID uuid.UUID) ([]entity.CaseFact, error) {
	q := r.db.Rebind(`SELECT * FROM case_facts WHERE case_id = ? ORDER BY run_id, field_name`)
	var rows []caseFactRow
	if err := r.db.SelectContext(ctx, &rows, q, caseID.String()); err != nil {
		return nil, err
	}
	return toEntities(rows)
}

func toEntities(rows []caseFactRow) ([]entity.CaseFact, error) {
	out := make([]entity.CaseFact, 0, len(rows))
	for _, row := range rows {
		f, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}
