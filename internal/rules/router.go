package rules

import (
	"log/slog"

	"github.com/landlorddocs/smartreview/constants"
	"github.com/landlorddocs/smartreview/internal/config"
)

// Validator is a pure function over its rule table: no network, no
// extraction calls. All inference has already happened upstream.
type Validator interface {
	Validate(facts FactSet) Result
}

// RouteKey identifies one validator.
type RouteKey struct {
	Jurisdiction constants.Jurisdiction
	DocumentType constants.DocumentType
}

// Router holds the closed routing table. Unknown (jurisdiction, type) pairs
// return a distinct UNSUPPORTED result so callers cannot mistake "we didn't
// check" for "it's fine".
type Router struct {
	table  map[RouteKey]Validator
	logger *slog.Logger
}

// NewRouter wires the routing table from the catalog's rule tables.
func NewRouter(tables config.RuleTables, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{table: map[RouteKey]Validator{}, logger: logger}

	eng := tables.England
	r.register(constants.JurisdictionEngland, constants.DocTypeSection8Notice, &Section8Validator{Rules: eng.Section8})
	r.register(constants.JurisdictionEngland, constants.DocTypeSection21Notice, &Section21Validator{Rules: eng.Section21})
	r.register(constants.JurisdictionEngland, constants.DocTypeGasSafetyCert, &GasSafetyValidator{Rules: eng.GasSafety})
	r.register(constants.JurisdictionEngland, constants.DocTypeDepositProtection, &DepositValidator{Rules: eng.Deposit})
	return r
}

func (r *Router) register(j constants.Jurisdiction, dt constants.DocumentType, v Validator) {
	r.table[RouteKey{Jurisdiction: j, DocumentType: dt}] = v
}

// Supports reports whether a validator exists for the pair.
func (r *Router) Supports(j constants.Jurisdiction, dt constants.DocumentType) bool {
	_, ok := r.table[RouteKey{Jurisdiction: j, DocumentType: dt}]
	return ok
}

// Routes lists every registered pair, for coverage checks and diagnostics.
func (r *Router) Routes() []RouteKey {
	out := make([]RouteKey, 0, len(r.table))
	for k := range r.table {
		out = append(out, k)
	}
	return out
}

// Route executes the matching validator.
func (r *Router) Route(j constants.Jurisdiction, dt constants.DocumentType, facts FactSet) Result {
	v, ok := r.table[RouteKey{Jurisdiction: j, DocumentType: dt}]
	if !ok {
		r.logger.Info("rules.route.unsupported", "jurisdiction", j, "document_type", dt)
		return Result{
			Status:            constants.StatusUnsupported,
			RecommendedAction: ActionManualReview,
		}
	}
	res := v.Validate(facts)
	r.logger.Info("rules.route.done",
		"jurisdiction", j,
		"document_type", dt,
		"status", res.Status,
		"blockers", len(res.Blockers),
		"warnings", len(res.Warnings),
	)
	return res
}
