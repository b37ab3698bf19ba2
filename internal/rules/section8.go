package rules

import (
	"fmt"
	"strings"

	"github.com/landlorddocs/smartreview/constants"
	"github.com/landlorddocs/smartreview/internal/config"
	"github.com/landlorddocs/smartreview/internal/entity"
)

// Section8Validator checks a Housing Act 1988 s.8 notice (Form 3) for
// England. Ground 8 is the mandatory rent-arrears ground: it is satisfied
// when arrears reach rent x a frequency-dependent multiplier. Below that
// threshold the same facts support the discretionary Grounds 10/11 instead,
// a weaker route rather than a dead end.
type Section8Validator struct {
	Rules config.Section8Rules
}

func (v *Section8Validator) Validate(facts FactSet) Result {
	var r Result

	if _, ok := facts.Get("tenant_name"); !ok {
		r.Blockers = append(r.Blockers, blocker("s8:tenant-name-missing", "notice",
			"The notice must name every tenant.", "tenant_name"))
	}
	if _, ok := facts.Get("property_address"); !ok {
		r.Blockers = append(r.Blockers, blocker("s8:address-missing", "notice",
			"The notice must state the full address of the property.", "property_address"))
	}

	r = v.checkNoticeDates(facts, r)
	r = v.assessGrounds(facts, r)

	return finalize(r)
}

func (v *Section8Validator) checkNoticeDates(facts FactSet, r Result) Result {
	served, okServed := facts.Date("date_served")
	earliest, okEarliest := facts.Date("earliest_proceedings_date")
	if !okServed {
		r.Warnings = append(r.Warnings, warning("s8:service-date-unknown", "notice",
			"Could not confirm the date of service; check it manually.", "date_served"))
		return r
	}
	if !okEarliest {
		r.Warnings = append(r.Warnings, warning("s8:proceedings-date-unknown", "notice",
			"Could not confirm the earliest proceedings date; check it manually.", "earliest_proceedings_date"))
		return r
	}
	minEarliest := served.AddDate(0, 0, v.Rules.NoticePeriodDays)
	if earliest.Before(minEarliest) {
		r.Blockers = append(r.Blockers, blocker("s8:notice-period-short", "notice",
			fmt.Sprintf("Proceedings cannot begin before %s: the notice period for the cited grounds is %d days from service.",
				minEarliest.Format("2 January 2006"), v.Rules.NoticePeriodDays),
			"earliest_proceedings_date"))
	}
	return r
}

func (v *Section8Validator) assessGrounds(facts FactSet, r Result) Result {
	groundsRaw, ok := facts.Get("grounds_cited")
	if !ok {
		r.Blockers = append(r.Blockers, blocker("s8:grounds-missing", "grounds",
			"A section 8 notice must cite at least one ground for possession.", "grounds_cited"))
		return r
	}
	cited := parseGrounds(groundsRaw)
	if len(cited) == 0 {
		r.Blockers = append(r.Blockers, blocker("s8:grounds-unreadable", "grounds",
			"The cited grounds could not be read.", "grounds_cited"))
		return r
	}

	for _, g := range cited {
		switch g {
		case 8:
			assessment, findings := v.assessGround8(facts)
			r.Grounds = append(r.Grounds, assessment)
			r.Warnings = append(r.Warnings, findings...)
			if assessment.Outcome == constants.GroundDiscretionary {
				r.RecommendedAction = ActionDiscretionary
			}
		case 10, 11:
			// Discretionary arrears grounds: available whenever any rent is
			// or has been lawfully due and unpaid.
			outcome := constants.GroundDiscretionary
			if arrears, ok := facts.Money("arrears_amount"); ok && arrears == 0 {
				outcome = constants.GroundUnavailable
			}
			r.Grounds = append(r.Grounds, GroundAssessment{Ground: g, Outcome: outcome})
		default:
			r.Grounds = append(r.Grounds, GroundAssessment{Ground: g, Outcome: constants.GroundDiscretionary})
		}
	}
	return r
}

// assessGround8 computes the mandatory-arrears threshold for the tenancy's
// rent frequency and places the arrears relative to it.
func (v *Section8Validator) assessGround8(facts FactSet) (GroundAssessment, []entity.Warning) {
	rent, okRent := facts.Money("rent_amount")
	freq, okFreq := facts.Frequency("rent_frequency")
	arrears, okArrears := facts.Money("arrears_amount")

	if !okRent || !okFreq {
		return GroundAssessment{Ground: 8, Outcome: constants.GroundUnavailable},
			[]entity.Warning{warning("s8:ground8-facts-missing", "arrears",
				"Ground 8 cannot be assessed without the rent amount and payment frequency.", "rent_amount")}
	}
	if !okArrears {
		return GroundAssessment{Ground: 8, Outcome: constants.GroundUnavailable},
			[]entity.Warning{warning("s8:arrears-unknown", "arrears",
				"Ground 8 cannot be assessed without the current arrears figure.", "arrears_amount")}
	}

	multiplier, ok := v.Rules.Ground8Multipliers[freq]
	if !ok {
		return GroundAssessment{Ground: 8, Outcome: constants.GroundUnavailable},
			[]entity.Warning{warning("s8:frequency-unsupported", "arrears",
				fmt.Sprintf("No Ground 8 threshold is defined for rent paid %s.", strings.ToLower(string(freq))), "rent_frequency")}
	}

	threshold := rent * multiplier
	assessment := GroundAssessment{Ground: 8, Threshold: threshold, Arrears: arrears}

	switch {
	case arrears <= 0:
		assessment.Outcome = constants.GroundUnavailable
		return assessment, []entity.Warning{warning("s8:no-arrears", "arrears",
			"No arrears are recorded; the rent-arrears grounds are unavailable.", "arrears_amount")}
	case arrears >= threshold:
		assessment.Outcome = constants.GroundMandatory
		return assessment, nil
	default:
		assessment.Outcome = constants.GroundDiscretionary
		return assessment, []entity.Warning{warning("s8:arrears-below-mandatory-threshold", "arrears",
			fmt.Sprintf("Arrears of %.2f are below the Ground 8 threshold of %.2f; rely on the discretionary grounds instead.",
				arrears, threshold), "arrears_amount")}
	}
}

func parseGrounds(raw string) []int {
	var out []int
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == ';'
	}) {
		n := 0
		for _, c := range part {
			if c < '0' || c > '9' {
				n = -1
				break
			}
			n = n*10 + int(c-'0')
		}
		if n > 0 && n <= 17 {
			out = append(out, n)
		}
	}
	return out
}
