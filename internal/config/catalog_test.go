package config

import (
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/landlorddocs/smartreview/constants"
	"github.com/landlorddocs/smartreview/internal/common"
)

func TestLoadEmbeddedCatalog(t *testing.T) {
	cat, err := LoadCatalog("")
	require.NoError(t, err)

	assert.Equal(t, 1, cat.Version)
	assert.Equal(t, 10, cat.Limits.MaxFilesPerRun)
	assert.Equal(t, 12, cat.Limits.MaxPagesPerFile)
	assert.Equal(t, 60, cat.Limits.MaxTotalPages)

	// Every supported type except UNSUPPORTED has markers and fields.
	for _, dt := range constants.AllDocumentTypes {
		if dt == constants.DocTypeUnsupported {
			continue
		}
		assert.Contains(t, cat.Classifier.Types, dt)
		assert.NotEmpty(t, cat.FieldSpecs(dt), "no field schema for %s", dt)
	}
	assert.Nil(t, cat.FieldSpecs(constants.DocTypeUnsupported))
}

func TestGround8MultipliersMatchStatute(t *testing.T) {
	cat, err := LoadCatalog("")
	require.NoError(t, err)

	m := cat.Rules.England.Section8.Ground8Multipliers
	assert.InDelta(t, 8, m[constants.RentWeekly], 1e-9)
	assert.InDelta(t, 4, m[constants.RentFortnightly], 1e-9)
	assert.InDelta(t, 2, m[constants.RentMonthly], 1e-9)
	assert.InDelta(t, 1, m[constants.RentQuarterly], 1e-9)
	assert.InDelta(t, 0.25, m[constants.RentYearly], 1e-9)
}

func TestLoadCatalogMissingFile(t *testing.T) {
	_, err := LoadCatalog("/no/such/catalog.yaml")
	require.Error(t, err)
	assert.True(t, common.IsConfigError(err))
}

func writeCatalog(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const minimalCatalog = `
version: 1
limits:
  max_files_per_run: 2
  max_pages_per_file: 3
  max_total_pages: 6
  file_timeout: 10s
  throttle_window: 0s
  fanout: 1
classifier:
  min_confidence: 0.05
  strong_confidence: 0.95
  types:
    EPC:
      markers:
        - { name: epc-title, pattern: 'energy\s+performance', weight: 0.5 }
fields:
  EPC:
    - name: rating
      kind: identifier
      thresholds: { merge: 0.55, promote: %s }
rules:
  england:
    section8:
      notice_period_days: 14
      ground8_multipliers: { MONTHLY: 2 }
    section21:
      notice_period_months: 2
      min_tenancy_months_before_service: 4
    gas_safety:
      inspection_interval_months: 12
      expiry_warning_days: 30
    deposit:
      protection_deadline_days: 30
      cap_weeks_rent: 5
`

func TestPromoteAboveMergeIsConfigError(t *testing.T) {
	path := writeCatalog(t, replacePromote(minimalCatalog, "0.70"))
	_, err := LoadCatalog(path)
	require.Error(t, err)
	assert.True(t, common.IsConfigError(err))
	assert.Contains(t, err.Error(), "promote threshold")
}

func TestPromoteAtMergeIsAccepted(t *testing.T) {
	path := writeCatalog(t, replacePromote(minimalCatalog, "0.55"))
	_, err := LoadCatalog(path)
	require.NoError(t, err)
}

func TestPromoteAboveProbabilisticOverrideIsConfigError(t *testing.T) {
	body := replacePromote(minimalCatalog, "0.50")
	body = replaceFirst(body, "{ merge: 0.55, promote: 0.50 }",
		"{ merge: 0.55, merge_probabilistic: 0.45, promote: 0.50 }")
	path := writeCatalog(t, body)
	_, err := LoadCatalog(path)
	require.Error(t, err)
	assert.True(t, common.IsConfigError(err))
}

func TestStrongComboMustReferenceKnownMarkers(t *testing.T) {
	body := replacePromote(minimalCatalog, "0.50")
	body = replaceFirst(body, "        - { name: epc-title, pattern: 'energy\\s+performance', weight: 0.5 }",
		"        - { name: epc-title, pattern: 'energy\\s+performance', weight: 0.5 }\n      strong:\n        - [epc-title, no-such-marker]")
	path := writeCatalog(t, body)
	_, err := LoadCatalog(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown marker")
}

func TestTotalPagesBelowPerFileIsConfigError(t *testing.T) {
	body := replacePromote(minimalCatalog, "0.50")
	body = replaceFirst(body, "max_total_pages: 6", "max_total_pages: 2")
	path := writeCatalog(t, body)
	_, err := LoadCatalog(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_total_pages")
}

func TestThresholdCheckRandomizedSweep(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 500; i++ {
		th := Thresholds{
			Merge:   rng.Float64(),
			Promote: rng.Float64(),
		}
		if rng.Intn(2) == 0 {
			prob := rng.Float64()
			th.MergeProbabilistic = &prob
		}

		wantErr := th.Promote > th.Merge ||
			(th.MergeProbabilistic != nil && th.Promote > *th.MergeProbabilistic)

		err := checkThresholds("EPC", "rating", th)
		if wantErr {
			require.Error(t, err, "merge=%v promote=%v prob=%v", th.Merge, th.Promote, th.MergeProbabilistic)
			assert.True(t, common.IsConfigError(err))
		} else {
			require.NoError(t, err, "merge=%v promote=%v prob=%v", th.Merge, th.Promote, th.MergeProbabilistic)
		}
	}
}

func TestProbabilisticFloorDefaultsToMerge(t *testing.T) {
	th := Thresholds{Merge: 0.6, Promote: 0.5}
	assert.InDelta(t, 0.6, th.ProbabilisticFloor(), 1e-9)

	override := 0.7
	th.MergeProbabilistic = &override
	assert.InDelta(t, 0.7, th.ProbabilisticFloor(), 1e-9)
	assert.InDelta(t, 0.6, th.DeterministicFloor(), 1e-9)
}

func replacePromote(body, promote string) string {
	return strings.Replace(body, "%s", promote, 1)
}

func replaceFirst(body, old, new string) string {
	return strings.Replace(body, old, new, 1)
}
