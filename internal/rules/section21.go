package rules

import (
	"fmt"
	"strings"

	"github.com/landlorddocs/smartreview/constants"
	"github.com/landlorddocs/smartreview/internal/config"
)

// Section21Validator checks a Form 6A no-fault notice for England. Unlike
// section 8 this route has no grounds to weigh; it lives or dies on the
// prerequisites: notice length, timing within the tenancy, and the documents
// the landlord must have given the tenant.
type Section21Validator struct {
	Rules config.Section21Rules
}

func (v *Section21Validator) Validate(facts FactSet) Result {
	var r Result

	service, okService := facts.Date("service_date")
	expiry, okExpiry := facts.Date("expiry_date")

	switch {
	case !okService:
		r.Warnings = append(r.Warnings, warning("s21:service-date-unknown", "notice",
			"Could not confirm the date the notice was given; check it manually.", "service_date"))
	case !okExpiry:
		r.Warnings = append(r.Warnings, warning("s21:expiry-date-unknown", "notice",
			"Could not confirm the date possession is required; check it manually.", "expiry_date"))
	default:
		minExpiry := service.AddDate(0, v.Rules.NoticePeriodMonths, 0)
		if expiry.Before(minExpiry) {
			r.Blockers = append(r.Blockers, blocker("s21:notice-period-short", "notice",
				fmt.Sprintf("A section 21 notice must give at least %d months' notice; possession cannot be required before %s.",
					v.Rules.NoticePeriodMonths, minExpiry.Format("2 January 2006")),
				"expiry_date"))
		}
	}

	if start, ok := facts.Date("tenancy_start_date"); ok && okService {
		earliestService := start.AddDate(0, v.Rules.MinTenancyMonthsServed, 0)
		if service.Before(earliestService) {
			r.Blockers = append(r.Blockers, blocker("s21:served-too-early", "notice",
				fmt.Sprintf("A section 21 notice cannot be served in the first %d months of the tenancy.",
					v.Rules.MinTenancyMonthsServed),
				"service_date"))
		}
	}

	var missing []string
	for _, dt := range v.Rules.RequiredDocuments {
		if !facts.Documents[dt] {
			missing = append(missing, string(dt))
			w := blocker("s21:document-missing", "documents",
				fmt.Sprintf("A section 21 notice is invalid unless the tenant was given the %s.", documentLabel(dt)), "")
			w.RelatedCategory = string(dt)
			r.Blockers = append(r.Blockers, w)
		}
	}
	if len(missing) > 0 {
		r.RecommendedAction = ActionCollectDocuments
	}

	return finalize(r)
}

var documentLabels = map[constants.DocumentType]string{
	constants.DocTypeGasSafetyCert:     "gas safety certificate",
	constants.DocTypeEPC:               "energy performance certificate",
	constants.DocTypeDepositProtection: "deposit protection certificate",
}

func documentLabel(dt constants.DocumentType) string {
	if label, ok := documentLabels[dt]; ok {
		return label
	}
	return strings.ToLower(strings.ReplaceAll(string(dt), "_", " "))
}
