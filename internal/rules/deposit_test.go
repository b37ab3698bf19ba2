package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/landlorddocs/smartreview/constants"
	"github.com/landlorddocs/smartreview/internal/config"
)

func depositValidator() *DepositValidator {
	return &DepositValidator{Rules: config.DepositRules{
		ProtectionDeadlineDays: 30,
		CapWeeksRent:           5,
	}}
}

func TestDepositProtectedInTimeAndWithinCap(t *testing.T) {
	r := depositValidator().Validate(factSet(map[string]string{
		"tenancy_start_date": "2026-01-01",
		"protection_date":    "2026-01-20",
		"deposit_amount":     "1100.00",
		"rent_amount":        "1000.00",
		"rent_frequency":     "MONTHLY",
	}))

	assert.Equal(t, constants.StatusPass, r.Status)
	assert.Empty(t, r.Blockers)
	assert.Empty(t, r.Warnings)
}

func TestDepositProtectedLate(t *testing.T) {
	r := depositValidator().Validate(factSet(map[string]string{
		"tenancy_start_date": "2026-01-01",
		"protection_date":    "2026-02-15",
	}))

	assert.Equal(t, constants.StatusBlocked, r.Status)
	assert.Contains(t, warningCodes(r.Blockers), "deposit:protected-late")
}

func TestDepositOverCap(t *testing.T) {
	tests := []struct {
		name      string
		frequency string
		rent      string
		deposit   string
		overCap   bool
	}{
		// weekly rent of 120 caps the deposit at 600
		{"weekly over", "WEEKLY", "120.00", "650.00", true},
		{"weekly at cap", "WEEKLY", "120.00", "600.00", false},
		// monthly 1000 is 230.77 a week, cap 1153.85
		{"monthly over", "MONTHLY", "1000.00", "1200.00", true},
		{"monthly within", "MONTHLY", "1000.00", "1100.00", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := depositValidator().Validate(factSet(map[string]string{
				"tenancy_start_date": "2026-01-01",
				"protection_date":    "2026-01-10",
				"deposit_amount":     tt.deposit,
				"rent_amount":        tt.rent,
				"rent_frequency":     tt.frequency,
			}))
			if tt.overCap {
				assert.Contains(t, warningCodes(r.Warnings), "deposit:over-cap")
			} else {
				assert.NotContains(t, warningCodes(r.Warnings), "deposit:over-cap")
			}
		})
	}
}

func TestDepositUnknownProtectionDate(t *testing.T) {
	r := depositValidator().Validate(factSet(map[string]string{
		"tenancy_start_date": "2026-01-01",
	}))

	assert.Equal(t, constants.StatusWarning, r.Status)
	assert.Contains(t, warningCodes(r.Warnings), "deposit:protection-date-unknown")
	assert.Empty(t, r.Blockers, "a missing date is advisory, not a blocker")
}

func TestDepositCapNeedsAllThreeFacts(t *testing.T) {
	r := depositValidator().Validate(factSet(map[string]string{
		"tenancy_start_date": "2026-01-01",
		"protection_date":    "2026-01-10",
		"deposit_amount":     "9999.00",
		"rent_amount":        "120.00",
	}))

	assert.NotContains(t, warningCodes(r.Warnings), "deposit:over-cap")
}
