package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/landlorddocs/smartreview/constants"
	"github.com/landlorddocs/smartreview/internal/config"
	"github.com/landlorddocs/smartreview/internal/entity"
)

func section8Rules() config.Section8Rules {
	return config.Section8Rules{
		NoticePeriodDays: 14,
		Ground8Multipliers: map[constants.RentFrequency]float64{
			constants.RentWeekly:      8,
			constants.RentFortnightly: 4,
			constants.RentMonthly:     2,
			constants.RentQuarterly:   1,
			constants.RentYearly:      0.25,
		},
	}
}

func factSet(values map[string]string) FactSet {
	return NewFactSet(values, nil, nil)
}

func warningCodes(ws []entity.Warning) []string {
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.Code)
	}
	return out
}

func validSection8Facts() map[string]string {
	return map[string]string{
		"tenant_name":               "Jordan Smith",
		"property_address":          "Flat 2, 14 Harbour Road, Bristol, BS5 9JJ",
		"date_served":               "2026-03-14",
		"earliest_proceedings_date": "2026-03-30",
		"grounds_cited":             "8, 10, 11",
		"rent_amount":               "1000.00",
		"rent_frequency":            "MONTHLY",
		"arrears_amount":            "2000.00",
	}
}

func groundByNumber(t *testing.T, r Result, n int) GroundAssessment {
	t.Helper()
	for _, g := range r.Grounds {
		if g.Ground == n {
			return g
		}
	}
	t.Fatalf("ground %d not assessed", n)
	return GroundAssessment{}
}

func TestSection8MandatoryArrears(t *testing.T) {
	v := &Section8Validator{Rules: section8Rules()}

	r := v.Validate(factSet(validSection8Facts()))

	assert.Equal(t, constants.StatusPass, r.Status)
	assert.Empty(t, r.Blockers)
	assert.Equal(t, ActionProceed, r.RecommendedAction)

	g8 := groundByNumber(t, r, 8)
	assert.Equal(t, constants.GroundMandatory, g8.Outcome)
	assert.InDelta(t, 2000.0, g8.Threshold, 1e-9)
	assert.InDelta(t, 2000.0, g8.Arrears, 1e-9)
	assert.Equal(t, constants.GroundDiscretionary, groundByNumber(t, r, 10).Outcome)
	assert.Equal(t, constants.GroundDiscretionary, groundByNumber(t, r, 11).Outcome)
}

func TestSection8ArrearsBelowThresholdIsDiscretionary(t *testing.T) {
	v := &Section8Validator{Rules: section8Rules()}
	facts := validSection8Facts()
	facts["arrears_amount"] = "1900.00"

	r := v.Validate(factSet(facts))

	assert.Equal(t, constants.StatusWarning, r.Status)
	assert.Equal(t, ActionDiscretionary, r.RecommendedAction)
	assert.Equal(t, constants.GroundDiscretionary, groundByNumber(t, r, 8).Outcome)

	codes := warningCodes(r.Warnings)
	assert.Contains(t, codes, "s8:arrears-below-mandatory-threshold")
}

func TestSection8FrequencyMultipliers(t *testing.T) {
	tests := []struct {
		name      string
		frequency string
		rent      string
		arrears   string
		outcome   constants.GroundOutcome
		threshold float64
	}{
		{"weekly eight weeks", "WEEKLY", "120.00", "960.00", constants.GroundMandatory, 960},
		{"weekly below", "WEEKLY", "120.00", "959.99", constants.GroundDiscretionary, 960},
		{"fortnightly four periods", "FORTNIGHTLY", "400.00", "1600.00", constants.GroundMandatory, 1600},
		{"quarterly one period", "QUARTERLY", "3000.00", "3000.00", constants.GroundMandatory, 3000},
		{"yearly one quarter", "YEARLY", "12000.00", "3000.00", constants.GroundMandatory, 3000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &Section8Validator{Rules: section8Rules()}
			facts := validSection8Facts()
			facts["grounds_cited"] = "8"
			facts["rent_frequency"] = tt.frequency
			facts["rent_amount"] = tt.rent
			facts["arrears_amount"] = tt.arrears

			r := v.Validate(factSet(facts))
			g8 := groundByNumber(t, r, 8)
			assert.Equal(t, tt.outcome, g8.Outcome)
			assert.InDelta(t, tt.threshold, g8.Threshold, 1e-9)
		})
	}
}

func TestSection8IdentityBlockers(t *testing.T) {
	v := &Section8Validator{Rules: section8Rules()}
	facts := validSection8Facts()
	delete(facts, "tenant_name")
	delete(facts, "property_address")

	r := v.Validate(factSet(facts))

	require.Equal(t, constants.StatusBlocked, r.Status)
	codes := warningCodes(r.Blockers)
	assert.Contains(t, codes, "s8:tenant-name-missing")
	assert.Contains(t, codes, "s8:address-missing")
	assert.Equal(t, ActionFixBlockers, r.RecommendedAction)
}

func TestSection8NoticePeriodTooShort(t *testing.T) {
	v := &Section8Validator{Rules: section8Rules()}
	facts := validSection8Facts()
	facts["earliest_proceedings_date"] = "2026-03-20"

	r := v.Validate(factSet(facts))

	assert.Equal(t, constants.StatusBlocked, r.Status)
	assert.Contains(t, warningCodes(r.Blockers), "s8:notice-period-short")
}

func TestSection8UnknownDatesAreAdvisory(t *testing.T) {
	v := &Section8Validator{Rules: section8Rules()}

	facts := validSection8Facts()
	delete(facts, "date_served")
	r := v.Validate(factSet(facts))
	assert.Contains(t, warningCodes(r.Warnings), "s8:service-date-unknown")
	assert.Empty(t, r.Blockers)

	facts = validSection8Facts()
	delete(facts, "earliest_proceedings_date")
	r = v.Validate(factSet(facts))
	assert.Contains(t, warningCodes(r.Warnings), "s8:proceedings-date-unknown")
}

func TestSection8GroundsMissingOrUnreadable(t *testing.T) {
	v := &Section8Validator{Rules: section8Rules()}

	facts := validSection8Facts()
	delete(facts, "grounds_cited")
	r := v.Validate(factSet(facts))
	assert.Contains(t, warningCodes(r.Blockers), "s8:grounds-missing")

	facts = validSection8Facts()
	facts["grounds_cited"] = "none stated"
	r = v.Validate(factSet(facts))
	assert.Contains(t, warningCodes(r.Blockers), "s8:grounds-unreadable")
}

func TestSection8Ground8MissingFacts(t *testing.T) {
	tests := []struct {
		name string
		drop string
		code string
	}{
		{"no rent amount", "rent_amount", "s8:ground8-facts-missing"},
		{"no frequency", "rent_frequency", "s8:ground8-facts-missing"},
		{"no arrears", "arrears_amount", "s8:arrears-unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &Section8Validator{Rules: section8Rules()}
			facts := validSection8Facts()
			facts["grounds_cited"] = "8"
			delete(facts, tt.drop)

			r := v.Validate(factSet(facts))
			assert.Equal(t, constants.GroundUnavailable, groundByNumber(t, r, 8).Outcome)
			assert.Contains(t, warningCodes(r.Warnings), tt.code)
		})
	}
}

func TestSection8ZeroArrearsMakesArrearsGroundsUnavailable(t *testing.T) {
	v := &Section8Validator{Rules: section8Rules()}
	facts := validSection8Facts()
	facts["arrears_amount"] = "0"

	r := v.Validate(factSet(facts))

	assert.Equal(t, constants.GroundUnavailable, groundByNumber(t, r, 8).Outcome)
	assert.Equal(t, constants.GroundUnavailable, groundByNumber(t, r, 10).Outcome)
	assert.Equal(t, constants.GroundUnavailable, groundByNumber(t, r, 11).Outcome)
	assert.Contains(t, warningCodes(r.Warnings), "s8:no-arrears")
}

func TestSection8FrequencyWithoutMultiplier(t *testing.T) {
	rules := section8Rules()
	delete(rules.Ground8Multipliers, constants.RentYearly)
	v := &Section8Validator{Rules: rules}
	facts := validSection8Facts()
	facts["grounds_cited"] = "8"
	facts["rent_frequency"] = "YEARLY"

	r := v.Validate(factSet(facts))

	assert.Equal(t, constants.GroundUnavailable, groundByNumber(t, r, 8).Outcome)
	assert.Contains(t, warningCodes(r.Warnings), "s8:frequency-unsupported")
}

func TestParseGrounds(t *testing.T) {
	assert.Equal(t, []int{8, 10, 11}, parseGrounds("8, 10, 11"))
	assert.Equal(t, []int{8}, parseGrounds("8"))
	assert.Equal(t, []int{1, 17}, parseGrounds("1; 17"))
	assert.Nil(t, parseGrounds("ground eight"))
	assert.Nil(t, parseGrounds("18 99"), "grounds above 17 do not exist")
}
