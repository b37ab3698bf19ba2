package rules

import (
	"strconv"
	"time"

	"github.com/landlorddocs/smartreview/constants"
	"github.com/landlorddocs/smartreview/internal/entity"
)

// FactSet is the full fact view a validator sees: user-declared answers
// unioned with promoted case facts, with the user's answers taking precedence
// on conflict (the user is asserting ground truth). Documents records which
// evidence categories the case actually holds.
type FactSet struct {
	values    map[string]string
	Documents map[constants.DocumentType]bool
}

// NewFactSet builds the merged view. declared wins over extracted.
func NewFactSet(declared map[string]string, extracted []entity.CaseFact, docs map[constants.DocumentType]bool) FactSet {
	values := make(map[string]string, len(declared)+len(extracted))
	for _, cf := range extracted {
		values[cf.FieldName] = cf.Value
	}
	for k, v := range declared {
		if v != "" {
			values[k] = v
		}
	}
	if docs == nil {
		docs = map[constants.DocumentType]bool{}
	}
	return FactSet{values: values, Documents: docs}
}

// Get returns the raw value for a field.
func (fs FactSet) Get(name string) (string, bool) {
	v, ok := fs.values[name]
	return v, ok && v != ""
}

// Date parses a field as an ISO date.
func (fs FactSet) Date(name string) (time.Time, bool) {
	v, ok := fs.Get(name)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Money parses a field as a decimal amount.
func (fs FactSet) Money(name string) (float64, bool) {
	v, ok := fs.Get(name)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return 0, false
	}
	return f, true
}

// Frequency parses a field as a rent frequency.
func (fs FactSet) Frequency(name string) (constants.RentFrequency, bool) {
	v, ok := fs.Get(name)
	if !ok {
		return "", false
	}
	switch constants.RentFrequency(v) {
	case constants.RentWeekly, constants.RentFortnightly, constants.RentMonthly,
		constants.RentQuarterly, constants.RentYearly:
		return constants.RentFrequency(v), true
	}
	return "", false
}

// GroundAssessment is the per-ground outcome for possession notices. The
// three outcomes are distinct: a ground below its mandatory threshold but
// with arrears present is weaker, not unavailable.
type GroundAssessment struct {
	Ground    int                     `json:"ground"`
	Outcome   constants.GroundOutcome `json:"outcome"`
	Threshold float64                 `json:"threshold,omitempty"`
	Arrears   float64                 `json:"arrears,omitempty"`
}

// Result is what one validator routing produces. Status PASS still carries
// any advisory warnings; it never implies zero findings.
type Result struct {
	Status            constants.ValidationStatus `json:"status"`
	Blockers          []entity.Warning           `json:"blockers"`
	Warnings          []entity.Warning           `json:"warnings"`
	Grounds           []GroundAssessment         `json:"grounds,omitempty"`
	RecommendedAction string                     `json:"recommended_action"`
}

// Recommended actions.
const (
	ActionProceed          = "proceed"
	ActionFixBlockers      = "fix-blockers"
	ActionDiscretionary    = "rely-on-discretionary-grounds"
	ActionCollectDocuments = "collect-missing-documents"
	ActionRenewCertificate = "renew-certificate"
	ActionManualReview     = "manual-review"
)

// finalize derives the terminal status from accumulated findings and fills a
// default recommended action when the validator did not choose one.
func finalize(r Result) Result {
	switch {
	case len(r.Blockers) > 0:
		r.Status = constants.StatusBlocked
		if r.RecommendedAction == "" {
			r.RecommendedAction = ActionFixBlockers
		}
	case len(r.Warnings) > 0:
		r.Status = constants.StatusWarning
		if r.RecommendedAction == "" {
			r.RecommendedAction = ActionProceed
		}
	default:
		r.Status = constants.StatusPass
		if r.RecommendedAction == "" {
			r.RecommendedAction = ActionProceed
		}
	}
	return r
}

func blocker(code, category, message, relatedField string) entity.Warning {
	return entity.Warning{
		Code:         code,
		Severity:     constants.SeverityBlocker,
		Category:     category,
		Message:      message,
		RelatedField: relatedField,
	}
}

func warning(code, category, message, relatedField string) entity.Warning {
	return entity.Warning{
		Code:         code,
		Severity:     constants.SeverityWarning,
		Category:     category,
		Message:      message,
		RelatedField: relatedField,
	}
}
