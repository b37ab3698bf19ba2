package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/landlorddocs/smartreview/constants"
	"github.com/landlorddocs/smartreview/internal/common"
	"github.com/landlorddocs/smartreview/internal/entity"
)

func testDB(t *testing.T) *sqlx.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "smartreview.db")
	db, err := Open(context.Background(), Config{Driver: "sqlite", DSN: dsn}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func storedFile(caseID uuid.UUID, hash byte, filename string) *entity.EvidenceFile {
	return &entity.EvidenceFile{
		CaseID:           caseID,
		SourcePath:       "/intake/" + filename,
		ContentHash:      []byte{hash, 0x11, 0x22, 0x33},
		Filename:         filename,
		FileExt:          "pdf",
		FileSize:         2048,
		MimeClass:        constants.MimeTextPDF,
		DeclaredCategory: constants.CategorySection8Notice,
		UploadedAt:       time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}
}

func TestEvidenceFileUpsertDeduplicatesByHash(t *testing.T) {
	db := testDB(t)
	repo := NewEvidenceFileRepository(db, nil)
	ctx := context.Background()
	caseID := uuid.New()

	first, dup, err := repo.UpsertByHash(ctx, storedFile(caseID, 0x01, "notice.pdf"))
	require.NoError(t, err)
	assert.False(t, dup)
	assert.NotEqual(t, uuid.Nil, first.ID)

	// Same bytes under a different name resolve to the stored file.
	again, dup, err := repo.UpsertByHash(ctx, storedFile(caseID, 0x01, "notice-copy.pdf"))
	require.NoError(t, err)
	assert.True(t, dup)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "notice.pdf", again.Filename)

	// The same bytes in another case are a distinct upload.
	_, dup, err = repo.UpsertByHash(ctx, storedFile(uuid.New(), 0x01, "notice.pdf"))
	require.NoError(t, err)
	assert.False(t, dup)

	files, err := repo.ListByCase(ctx, caseID)
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestEvidenceFileRoundTrip(t *testing.T) {
	db := testDB(t)
	repo := NewEvidenceFileRepository(db, nil)
	ctx := context.Background()

	in := storedFile(uuid.New(), 0x02, "cert.pdf")
	stored, _, err := repo.UpsertByHash(ctx, in)
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, in.ContentHash, got.ContentHash)
	assert.Equal(t, in.DeclaredCategory, got.DeclaredCategory)
	assert.Equal(t, in.UploadedAt, got.UploadedAt.UTC())

	require.NoError(t, repo.SetPageCount(ctx, stored.ID, 7))
	got, err = repo.GetByID(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, got.PageCount)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, common.ErrNotFound)
}

// runIDAt mints a ULID at a fixed wall clock so test run IDs order the way
// real completion-ordered IDs do.
func runIDAt(at time.Time) string {
	return ulid.MustNew(ulid.Timestamp(at), ulid.DefaultEntropy()).String()
}

func sampleRun(caseID uuid.UUID, at time.Time) *entity.RunRecord {
	start := at
	return &entity.RunRecord{
		ID:     runIDAt(at),
		CaseID: caseID,
		Files: []entity.FileOutcome{
			{FileID: uuid.New(), FileHash: "aa11", Status: constants.FileProcessed, Pages: 3},
			{FileID: uuid.New(), FileHash: "bb22", Status: constants.FileSkipped, SkipReason: entity.WarnFilesSkipped},
		},
		TotalPages:    3,
		Duration:      1500 * time.Millisecond,
		LimitExceeded: true,
		FromCache:     true,
		StartedAt:     start,
		FinishedAt:    start.Add(1500 * time.Millisecond),
	}
}

func TestRunSaveAndLatest(t *testing.T) {
	db := testDB(t)
	repo := NewRunRepository(db, nil)
	ctx := context.Background()
	caseID := uuid.New()

	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	first := sampleRun(caseID, base)
	require.NoError(t, repo.Save(ctx, first))
	second := sampleRun(caseID, base.Add(time.Minute))
	require.NoError(t, repo.Save(ctx, second))

	got, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.TotalPages, got.TotalPages)
	assert.True(t, got.LimitExceeded)
	assert.True(t, got.FromCache)
	assert.Equal(t, first.Duration, got.Duration)
	require.Len(t, got.Files, 2)
	assert.Equal(t, constants.FileProcessed, got.Files[0].Status)
	assert.Equal(t, entity.WarnFilesSkipped, got.Files[1].SkipReason)

	latest, err := repo.Latest(ctx, caseID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID, "ULID order picks the newest run")

	all, err := repo.ListByCase(ctx, caseID)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, first.ID, all[0].ID)

	_, err = repo.Latest(ctx, uuid.New())
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func promotedFact(caseID uuid.UUID, runID, field, value string) entity.CaseFact {
	return entity.CaseFact{
		CaseID:     caseID.String(),
		FieldName:  field,
		Value:      value,
		Confidence: 0.8,
		Source:     constants.SourceDeterministic,
		FileHash:   "aa11",
		RunID:      runID,
		PromotedAt: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}
}

func TestCaseFactsCurrentFollowsLatestRun(t *testing.T) {
	db := testDB(t)
	repo := NewCaseFactRepository(db, nil)
	ctx := context.Background()
	caseID := uuid.New()

	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	runA := runIDAt(base)
	require.NoError(t, repo.Append(ctx, []entity.CaseFact{
		promotedFact(caseID, runA, "rent_amount", "950.00"),
		promotedFact(caseID, runA, "date_served", "2026-03-14"),
	}))

	runB := runIDAt(base.Add(time.Minute))
	require.NoError(t, repo.Append(ctx, []entity.CaseFact{
		promotedFact(caseID, runB, "rent_amount", "975.00"),
	}))

	current, err := repo.Current(ctx, caseID)
	require.NoError(t, err)
	require.Len(t, current, 2)
	byField := map[string]entity.CaseFact{}
	for _, f := range current {
		byField[f.FieldName] = f
	}
	assert.Equal(t, "975.00", byField["rent_amount"].Value, "later promotion supersedes")
	assert.Equal(t, runB, byField["rent_amount"].RunID)
	assert.Equal(t, "2026-03-14", byField["date_served"].Value, "untouched fields keep their last value")

	history, err := repo.History(ctx, caseID)
	require.NoError(t, err)
	assert.Len(t, history, 3, "promotion is append-only")

	none, err := repo.Current(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestWarningsCurrentSupersedesPerFile(t *testing.T) {
	db := testDB(t)
	repo := NewWarningRepository(db, nil)
	ctx := context.Background()
	caseID := uuid.New()

	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	runA := runIDAt(base)
	require.NoError(t, repo.SaveForRun(ctx, caseID, runA, "aa11", []entity.Warning{
		{Code: "classify:unrecognized", Severity: constants.SeverityWarning, Category: "classification", Message: "m"},
	}))
	require.NoError(t, repo.SaveForRun(ctx, caseID, runA, "bb22", []entity.Warning{
		{Code: entity.WarnPagesTruncated, Severity: constants.SeverityWarning, Category: "limits", Message: "m"},
	}))

	// A later run resolves aa11's warning set down to a different finding.
	runB := runIDAt(base.Add(time.Minute))
	require.NoError(t, repo.SaveForRun(ctx, caseID, runB, "aa11", []entity.Warning{
		{Code: "s8:service-date-unknown", Severity: constants.SeverityWarning, Category: "notice", Message: "m", RelatedField: "date_served"},
	}))

	current, err := repo.Current(ctx, caseID)
	require.NoError(t, err)

	codes := make([]string, 0, len(current))
	for _, w := range current {
		codes = append(codes, w.Code)
	}
	assert.Contains(t, codes, "s8:service-date-unknown")
	assert.Contains(t, codes, entity.WarnPagesTruncated, "files untouched by the later run keep their warnings")
	assert.NotContains(t, codes, "classify:unrecognized", "superseded by the later run")
}
