package governor

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/landlorddocs/smartreview/constants"
	"github.com/landlorddocs/smartreview/internal/config"
	"github.com/landlorddocs/smartreview/internal/entity"
)

func testLimits() config.Limits {
	return config.Limits{
		MaxFilesPerRun:  10,
		MaxPagesPerFile: 12,
		MaxTotalPages:   60,
		FileTimeout:     90 * time.Second,
		ThrottleWindow:  30 * time.Second,
		Fanout:          4,
	}
}

func TestBudgetAdmitReservesPerFileAllowance(t *testing.T) {
	g := New(testLimits(), nil, nil)
	b := g.NewBudget()

	allowance, ok, reason := b.AdmitFile()
	require.True(t, ok)
	assert.Empty(t, reason)
	assert.Equal(t, 12, allowance)
	assert.Equal(t, 12, b.PagesUsed())

	b.Refund(allowance, 3)
	assert.Equal(t, 3, b.PagesUsed())
	assert.False(t, b.Exceeded())
}

func TestBudgetSkipsBeyondFileCount(t *testing.T) {
	limits := testLimits()
	limits.MaxFilesPerRun = 2
	limits.MaxTotalPages = 1000
	b := (&Governor{limits: limits}).NewBudget()

	for i := 0; i < 2; i++ {
		allowance, ok, _ := b.AdmitFile()
		require.True(t, ok)
		b.Refund(allowance, 1)
	}
	_, ok, reason := b.AdmitFile()
	assert.False(t, ok)
	assert.Equal(t, entity.WarnFilesSkipped, reason)
	assert.True(t, b.Exceeded())
}

func TestBudgetClipsLastAllowanceToRemainingPages(t *testing.T) {
	limits := testLimits()
	limits.MaxTotalPages = 20
	b := (&Governor{limits: limits}).NewBudget()

	a1, ok, _ := b.AdmitFile()
	require.True(t, ok)
	assert.Equal(t, 12, a1)
	b.Refund(a1, 12)

	a2, ok, _ := b.AdmitFile()
	require.True(t, ok)
	assert.Equal(t, 8, a2, "second admission gets only what is left")
	assert.False(t, b.Exceeded(), "a clipped allowance alone does not mean work was cut")
	b.Refund(a2, 8)

	_, ok, reason := b.AdmitFile()
	assert.False(t, ok)
	assert.Equal(t, entity.WarnTotalPages, reason)
	assert.True(t, b.Exceeded(), "a refused admission does mean work was cut")
}

func TestBudgetMarkExceeded(t *testing.T) {
	b := (&Governor{limits: testLimits()}).NewBudget()

	allowance, ok, _ := b.AdmitFile()
	require.True(t, ok)
	b.Refund(allowance, 5)
	assert.False(t, b.Exceeded())

	// Truncation and per-file timeouts are reported by the worker, not the
	// admission path.
	b.MarkExceeded()
	assert.True(t, b.Exceeded())
}

func TestBudgetNeverExceedsTotalPagesConcurrently(t *testing.T) {
	limits := testLimits()
	limits.MaxFilesPerRun = 100
	b := (&Governor{limits: limits}).NewBudget()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			allowance, ok, _ := b.AdmitFile()
			if !ok {
				return
			}
			used := b.PagesUsed()
			if used > limits.MaxTotalPages {
				t.Errorf("reserved pages %d exceed total budget %d", used, limits.MaxTotalPages)
			}
			b.Refund(allowance, allowance)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, b.PagesUsed(), limits.MaxTotalPages)
	assert.Equal(t, limits.MaxTotalPages, b.PagesUsed())
}

func TestBudgetRefundCapsAtAllowance(t *testing.T) {
	b := (&Governor{limits: testLimits()}).NewBudget()
	allowance, ok, _ := b.AdmitFile()
	require.True(t, ok)

	// A miscounted usage above the reservation must not credit pages back.
	b.Refund(allowance, allowance+5)
	assert.Equal(t, allowance, b.PagesUsed())
}

func TestThrottleReusesRecentRun(t *testing.T) {
	g := New(testLimits(), nil, nil)
	caseID := uuid.New()
	now := time.Now()

	rec := &entity.RunRecord{
		ID:         "01J8Z0000000000000000000A1",
		CaseID:     caseID,
		FinishedAt: now,
	}
	g.RememberRun(caseID.String(), rec)

	got, throttled := g.ThrottledRecord(caseID.String(), now.Add(10*time.Second))
	require.True(t, throttled)
	assert.Equal(t, rec.ID, got.ID)

	_, throttled = g.ThrottledRecord(caseID.String(), now.Add(31*time.Second))
	assert.False(t, throttled, "window elapsed, a fresh run should start")

	_, throttled = g.ThrottledRecord(uuid.NewString(), now)
	assert.False(t, throttled, "unknown case is never throttled")
}

func TestThrottleDisabledWhenWindowZero(t *testing.T) {
	limits := testLimits()
	limits.ThrottleWindow = 0
	g := New(limits, nil, nil)
	caseID := uuid.NewString()

	g.RememberRun(caseID, &entity.RunRecord{ID: "x", FinishedAt: time.Now()})
	_, throttled := g.ThrottledRecord(caseID, time.Now())
	assert.False(t, throttled)
}

func TestCacheRoundTrip(t *testing.T) {
	cache, err := OpenCache(CacheConfig{InMemory: true}, nil)
	require.NoError(t, err)
	defer cache.Close()

	_, ok := cache.Get("deadbeef")
	assert.False(t, ok)

	res := &entity.ExtractionResult{
		FileHash: "deadbeef",
		Classification: entity.Classification{
			DocumentType: constants.DocTypeSection8Notice,
			Confidence:   0.95,
			StrongMatch:  true,
		},
		Merged: []entity.MergedFact{
			{FieldName: "rent_amount", Value: "950.00", Confidence: 0.8, Source: constants.SourceDeterministic},
		},
		Pages:       3,
		ExtractedAt: time.Now().UTC(),
	}
	cache.Put(res)

	got, ok := cache.Get("deadbeef")
	require.True(t, ok)
	assert.Equal(t, res.Classification.DocumentType, got.Classification.DocumentType)
	assert.Equal(t, res.Merged, got.Merged)
	assert.Equal(t, 3, got.Pages)

	_, ok = cache.Get("deadbeee")
	assert.False(t, ok, "distinct hash must miss")
}
