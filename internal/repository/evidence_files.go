package repository

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/landlorddocs/smartreview/constants"
	"github.com/landlorddocs/smartreview/internal/common"
	"github.com/landlorddocs/smartreview/internal/entity"
)

type EvidenceFileRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entity.EvidenceFile, error)
	GetByCaseAndHash(ctx context.Context, caseID uuid.UUID, hash []byte) (*entity.EvidenceFile, error)
	// UpsertByHash stores the file unless the case already has the same
	// content hash; the bool reports deduplication.
	UpsertByHash(ctx context.Context, f *entity.EvidenceFile) (*entity.EvidenceFile, bool, error)
	ListByCase(ctx context.Context, caseID uuid.UUID) ([]*entity.EvidenceFile, error)
	SetPageCount(ctx context.Context, id uuid.UUID, pages int) error
}

type evidenceFileRepo struct {
	db     *sqlx.DB
	logger *slog.Logger
}

func NewEvidenceFileRepository(db *sqlx.DB, logger *slog.Logger) EvidenceFileRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &evidenceFileRepo{db: db, logger: logger}
}

type evidenceFileRow struct {
	ID               string `db:"id"`
	CaseID           string `db:"case_id"`
	SourcePath       string `db:"source_path"`
	Filename         string `db:"filename"`
	FileExt          string `db:"file_ext"`
	FileSize         int    `db:"file_size"`
	ContentHash      string `db:"content_hash"`
	MimeClass        string `db:"mime_class"`
	DeclaredCategory string `db:"declared_category"`
	PageCount        int    `db:"page_count"`
	UploadedAt       string `db:"uploaded_at"`
}

func (r evidenceFileRow) toEntity() (*entity.EvidenceFile, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, err
	}
	caseID, err := uuid.Parse(r.CaseID)
	if err != nil {
		return nil, err
	}
	hash, err := hex.DecodeString(r.ContentHash)
	if err != nil {
		return nil, err
	}
	uploadedAt, err := time.Parse(time.RFC3339Nano, r.UploadedAt)
	if err != nil {
		return nil, err
	}
	return &entity.EvidenceFile{
		ID:               id,
		CaseID:           caseID,
		SourcePath:       r.SourcePath,
		ContentHash:      hash,
		Filename:         r.Filename,
		FileExt:          r.FileExt,
		FileSize:         r.FileSize,
		MimeClass:        constants.MimeClass(r.MimeClass),
		DeclaredCategory: constants.DeclaredCategory(r.DeclaredCategory),
		PageCount:        r.PageCount,
		UploadedAt:       uploadedAt,
	}, nil
}

func (r *evidenceFileRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.EvidenceFile, error) {
	var row evidenceFileRow
	q := r.db.Rebind(`SELECT * FROM evidence_files WHERE id = ?`)
	if err := r.db.GetContext(ctx, &row, q, id.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, err
	}
	return row.toEntity()
}

func (r *evidenceFileRepo) GetByCaseAndHash(ctx context.Context, caseID uuid.UUID, hash []byte) (*entity.EvidenceFile, error) {
	var row evidenceFileRow
	q := r.db.Rebind(`SELECT * FROM evidence_files WHERE case_id = ? AND content_hash = ?`)
	if err := r.db.GetContext(ctx, &row, q, caseID.String(), hex.EncodeToString(hash)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		r.logger.Error("failed to get evidence file by case and hash", "case_id", caseID, "error", err)
		return nil, err
	}
	return row.toEntity()
}

func (r *evidenceFileRepo) UpsertByHash(ctx context.Context, f *entity.EvidenceFile) (*entity.EvidenceFile, bool, error) {
	if existing, err := r.GetByCaseAndHash(ctx, f.CaseID, f.ContentHash); err == nil {
		return existing, true, nil
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, false, err
	}

	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	q := r.db.Rebind(`INSERT INTO evidence_files
		(id, case_id, source_path, filename, file_ext, file_size, content_hash, mime_class, declared_category, page_count, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, q,
		f.ID.String(), f.CaseID.String(), f.SourcePath, f.Filename, f.FileExt, f.FileSize,
		f.HashHex(), string(f.MimeClass), string(f.DeclaredCategory), f.PageCount,
		f.UploadedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		r.logger.Error("failed to insert evidence file", "case_id", f.CaseID, "filename", f.Filename, "error", err)
		return nil, false, err
	}
	return f, false, nil
}

func (r *evidenceFileRepo) ListByCase(ctx context.Context, caseID uuid.UUID) ([]*entity.EvidenceFile, error) {
	var rows []evidenceFileRow
	q := r.db.Rebind(`SELECT * FROM evidence_files WHERE case_id = ? ORDER BY uploaded_at, id`)
	if err := r.db.SelectContext(ctx, &rows, q, caseID.String()); err != nil {
		return nil, err
	}
	out := make([]*entity.EvidenceFile, 0, len(rows))
	for _, row := range rows {
		f, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func (r *evidenceFileRepo) SetPageCount(ctx context.Context, id uuid.UUID, pages int) error {
	q := r.db.Rebind(`UPDATE evidence_files SET page_count = ? WHERE id = ?`)
	_, err := r.db.ExecContext(ctx, q, pages, id.String())
	return err
}
