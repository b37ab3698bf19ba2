package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/landlorddocs/smartreview/constants"
	"github.com/landlorddocs/smartreview/internal/common"
	"github.com/landlorddocs/smartreview/internal/entity"
)

type RunRepository interface {
	Save(ctx context.Context, rec *entity.RunRecord) error
	GetByID(ctx context.Context, id string) (*entity.RunRecord, error)
	// Latest returns the most recent run for a case. Run IDs are ULIDs, so
	// the lexically greatest ID is the newest.
	Latest(ctx context.Context, caseID uuid.UUID) (*entity.RunRecord, error)
	ListByCase(ctx context.Context, caseID uuid.UUID) ([]*entity.RunRecord, error)
}

type runRepo struct {
	db     *sqlx.DB
	logger *slog.Logger
}

func NewRunRepository(db *sqlx.DB, logger *slog.Logger) RunRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &runRepo{db: db, logger: logger}
}

type runRow struct {
	ID            string `db:"id"`
	CaseID        string `db:"case_id"`
	TotalPages    int    `db:"total_pages"`
	DurationMS    int64  `db:"duration_ms"`
	LimitExceeded int    `db:"limit_exceeded"`
	FromCache     int    `db:"from_cache"`
	StartedAt     string `db:"started_at"`
	FinishedAt    string `db:"finished_at"`
}

type runFileRow struct {
	RunID      string `db:"run_id"`
	FileID     string `db:"file_id"`
	FileHash   string `db:"file_hash"`
	Status     string `db:"status"`
	SkipReason string `db:"skip_reason"`
	Pages      int    `db:"pages"`
}

func (r *runRepo) Save(ctx context.Context, rec *entity.RunRecord) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	limitExceeded := 0
	if rec.LimitExceeded {
		limitExceeded = 1
	}
	fromCache := 0
	if rec.FromCache {
		fromCache = 1
	}
	q := tx.Rebind(`INSERT INTO runs (id, case_id, total_pages, duration_ms, limit_exceeded, from_cache, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if _, err := tx.ExecContext(ctx, q,
		rec.ID, rec.CaseID.String(), rec.TotalPages, rec.Duration.Milliseconds(), limitExceeded, fromCache,
		rec.StartedAt.UTC().Format(time.RFC3339Nano), rec.FinishedAt.UTC().Format(time.RFC3339Nano),
	); err != nil {
		r.logger.Error("failed to save run", "run_id", rec.ID, "error", err)
		return err
	}

	fq := tx.Rebind(`INSERT INTO run_files (run_id, file_id, file_hash, status, skip_reason, pages)
		VALUES (?, ?, ?, ?, ?, ?)`)
	for _, f := range rec.Files {
		if _, err := tx.ExecContext(ctx, fq,
			rec.ID, f.FileID.String(), f.FileHash, string(f.Status), f.SkipReason, f.Pages,
		); err != nil {
			r.logger.Error("failed to save run file", "run_id", rec.ID, "file_id", f.FileID, "error", err)
			return err
		}
	}
	return tx.Commit()
}

func (r *runRepo) GetByID(ctx context.Context, id string) (*entity.RunRecord, error) {
	var row runRow
	q := r.db.Rebind(`SELECT * FROM runs WHERE id = ?`)
	if err := r.db.GetContext(ctx, &row, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, err
	}
	return r.hydrate(ctx, row)
}

func (r *runRepo) Latest(ctx context.Context, caseID uuid.UUID) (*entity.RunRecord, error) {
	var row runRow
	q := r.db.Rebind(`SELECT * FROM runs WHERE case_id = ? ORDER BY id DESC LIMIT 1`)
	if err := r.db.GetContext(ctx, &row, q, caseID.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, err
	}
	return r.hydrate(ctx, row)
}

func (r *runRepo) ListByCase(ctx context.Context, caseID uuid.UUID) ([]*entity.RunRecord, error) {
	var rows []runRow
	q := r.db.Rebind(`SELECT * FROM runs WHERE case_id = ? ORDER BY id`)
	if err := r.db.SelectContext(ctx, &rows, q, caseID.String()); err != nil {
		return nil, err
	}
	out := make([]*entity.RunRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := r.hydrate(ctx, row)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *runRepo) hydrate(ctx context.Context, row runRow) (*entity.RunRecord, error) {
	caseID, err := uuid.Parse(row.CaseID)
	if err != nil {
		return nil, err
	}
	startedAt, err := time.Parse(time.RFC3339Nano, row.StartedAt)
	if err != nil {
		return nil, err
	}
	finishedAt, err := time.Parse(time.RFC3339Nano, row.FinishedAt)
	if err != nil {
		return nil, err
	}

	var fileRows []runFileRow
	q := r.db.Rebind(`SELECT * FROM run_files WHERE run_id = ?`)
	if err := r.db.SelectContext(ctx, &fileRows, q, row.ID); err != nil {
		return nil, err
	}
	files := make([]entity.FileOutcome, 0, len(fileRows))
	for _, fr := range fileRows {
		fileID, err := uuid.Parse(fr.FileID)
		if err != nil {
			return nil, err
		}
		files = append(files, entity.FileOutcome{
			FileID:     fileID,
			FileHash:   fr.FileHash,
			Status:     constants.FileStatus(fr.Status),
			SkipReason: fr.SkipReason,
			Pages:      fr.Pages,
		})
	}

	return &entity.RunRecord{
		ID:            row.ID,
		CaseID:        caseID,
		Files:         files,
		TotalPages:    row.TotalPages,
		Duration:      time.Duration(row.DurationMS) * time.Millisecond,
		LimitExceeded: row.LimitExceeded != 0,
		FromCache:     row.FromCache != 0,
		StartedAt:     startedAt,
		FinishedAt:    finishedAt,
	}, nil
}
