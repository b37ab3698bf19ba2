package rules

import (
	"fmt"
	"time"

	"github.com/landlorddocs/smartreview/internal/config"
)

// GasSafetyValidator checks a CP12 landlord gas safety record for currency.
// Checks run against the inspection cycle, not the printed expiry alone: a
// certificate is due again N months after the recorded check.
type GasSafetyValidator struct {
	Rules config.GasSafetyRules

	// Now is overridable for tests; zero means time.Now.
	Now func() time.Time
}

func (v *GasSafetyValidator) Validate(facts FactSet) Result {
	var r Result
	now := time.Now()
	if v.Now != nil {
		now = v.Now()
	}

	inspected, okInspected := facts.Date("inspection_date")
	if !okInspected {
		r.Warnings = append(r.Warnings, warning("gas:inspection-date-unknown", "certificate",
			"Could not read the inspection date from the certificate; check it manually.", "inspection_date"))
		return finalize(r)
	}

	due := inspected.AddDate(0, v.Rules.InspectionIntervalMonths, 0)
	if expiry, ok := facts.Date("expiry_date"); ok && expiry.Before(due) {
		due = expiry
	}

	switch {
	case !now.Before(due):
		r.Blockers = append(r.Blockers, blocker("gas:certificate-expired", "certificate",
			fmt.Sprintf("The gas safety certificate expired on %s; a new check is required.",
				due.Format("2 January 2006")), "inspection_date"))
		r.RecommendedAction = ActionRenewCertificate
	case now.AddDate(0, 0, v.Rules.ExpiryWarningDays).After(due):
		r.Warnings = append(r.Warnings, warning("gas:certificate-expiring", "certificate",
			fmt.Sprintf("The gas safety certificate expires on %s; book the next check now.",
				due.Format("2 January 2006")), "inspection_date"))
	}

	return finalize(r)
}
