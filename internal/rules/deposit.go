package rules

import (
	"fmt"

	"github.com/landlorddocs/smartreview/constants"
	"github.com/landlorddocs/smartreview/internal/config"
)

// weeksPerYear converts periodic rent into a weekly figure for the deposit
// cap (Tenant Fees Act 2019: five weeks' rent for annual rent under £50k).
const weeksPerYear = 52

// DepositValidator checks a deposit protection certificate against the
// tenancy facts: protected in time, and not over the statutory cap.
type DepositValidator struct {
	Rules config.DepositRules
}

func (v *DepositValidator) Validate(facts FactSet) Result {
	var r Result

	protected, okProtected := facts.Date("protection_date")
	if !okProtected {
		r.Warnings = append(r.Warnings, warning("deposit:protection-date-unknown", "deposit",
			"Could not read the date the deposit was protected; check it manually.", "protection_date"))
	}

	if start, ok := facts.Date("tenancy_start_date"); ok && okProtected {
		deadline := start.AddDate(0, 0, v.Rules.ProtectionDeadlineDays)
		if protected.After(deadline) {
			r.Blockers = append(r.Blockers, blocker("deposit:protected-late", "deposit",
				fmt.Sprintf("The deposit was protected after the %d-day deadline; this exposes the landlord to penalties and blocks section 21.",
					v.Rules.ProtectionDeadlineDays), "protection_date"))
		}
	}

	r = v.checkCap(facts, r)
	return finalize(r)
}

func (v *DepositValidator) checkCap(facts FactSet, r Result) Result {
	deposit, okDeposit := facts.Money("deposit_amount")
	rent, okRent := facts.Money("rent_amount")
	freq, okFreq := facts.Frequency("rent_frequency")
	if !okDeposit || !okRent || !okFreq {
		return r
	}

	periodsPerYear := map[constants.RentFrequency]float64{
		constants.RentWeekly:      52,
		constants.RentFortnightly: 26,
		constants.RentMonthly:     12,
		constants.RentQuarterly:   4,
		constants.RentYearly:      1,
	}[freq]
	if periodsPerYear == 0 {
		return r
	}

	weeklyRent := rent * periodsPerYear / weeksPerYear
	cap := weeklyRent * v.Rules.CapWeeksRent
	if deposit > cap {
		r.Warnings = append(r.Warnings, warning("deposit:over-cap", "deposit",
			fmt.Sprintf("The deposit of %.2f exceeds the cap of %.2f (%.0f weeks' rent); the excess must be returned.",
				deposit, cap, v.Rules.CapWeeksRent), "deposit_amount"))
	}
	return r
}
