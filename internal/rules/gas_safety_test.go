package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/landlorddocs/smartreview/constants"
	"github.com/landlorddocs/smartreview/internal/config"
)

func gasValidatorAt(now string) *GasSafetyValidator {
	fixed, _ := time.Parse("2006-01-02", now)
	return &GasSafetyValidator{
		Rules: config.GasSafetyRules{InspectionIntervalMonths: 12, ExpiryWarningDays: 30},
		Now:   func() time.Time { return fixed },
	}
}

func TestGasSafetyCurrentCertificate(t *testing.T) {
	v := gasValidatorAt("2026-08-31")
	r := v.Validate(factSet(map[string]string{"inspection_date": "2025-10-15"}))

	assert.Equal(t, constants.StatusPass, r.Status)
	assert.Empty(t, r.Warnings)
}

func TestGasSafetyExpiringSoon(t *testing.T) {
	v := gasValidatorAt("2026-08-31")
	r := v.Validate(factSet(map[string]string{"inspection_date": "2025-09-10"}))

	assert.Equal(t, constants.StatusWarning, r.Status)
	assert.Contains(t, warningCodes(r.Warnings), "gas:certificate-expiring")
}

func TestGasSafetyExpired(t *testing.T) {
	v := gasValidatorAt("2026-08-31")
	r := v.Validate(factSet(map[string]string{"inspection_date": "2025-08-01"}))

	assert.Equal(t, constants.StatusBlocked, r.Status)
	assert.Contains(t, warningCodes(r.Blockers), "gas:certificate-expired")
	assert.Equal(t, ActionRenewCertificate, r.RecommendedAction)
}

func TestGasSafetyPrintedExpiryMayShortenCycle(t *testing.T) {
	v := gasValidatorAt("2026-08-31")
	r := v.Validate(factSet(map[string]string{
		"inspection_date": "2025-10-15",
		"expiry_date":     "2026-08-15",
	}))

	assert.Equal(t, constants.StatusBlocked, r.Status)
	assert.Contains(t, warningCodes(r.Blockers), "gas:certificate-expired")
}

func TestGasSafetyUnknownInspectionDate(t *testing.T) {
	v := gasValidatorAt("2026-08-31")
	r := v.Validate(factSet(map[string]string{}))

	assert.Equal(t, constants.StatusWarning, r.Status)
	assert.Contains(t, warningCodes(r.Warnings), "gas:inspection-date-unknown")
}
