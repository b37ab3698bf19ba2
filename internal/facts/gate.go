package facts

import (
	"log/slog"
	"time"

	"github.com/landlorddocs/smartreview/constants"
	"github.com/landlorddocs/smartreview/internal/config"
	"github.com/landlorddocs/smartreview/internal/entity"
)

// Gate decides which merged facts are promoted into the case's working fact
// set. Promotion uses a second, independently configured threshold per field;
// the catalog validator guarantees at startup that it never sits above the
// merge threshold (a stricter gate here would silently drop facts the merger
// already accepted).
type Gate struct {
	catalog *config.Catalog
	logger  *slog.Logger
}

func NewGate(catalog *config.Catalog, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{catalog: catalog, logger: logger}
}

// Promote returns the CaseFacts cleared for the working set. Facts that do
// not clear the gate are retained upstream for audit only, never surfaced.
func (g *Gate) Promote(caseID string, docType constants.DocumentType, fileHash, runID string, merged []entity.MergedFact, now time.Time) []entity.CaseFact {
	var out []entity.CaseFact
	for _, mf := range merged {
		spec, ok := g.catalog.FieldSpec(docType, mf.FieldName)
		if !ok {
			g.logger.Warn("facts.gate.unknown_field", "field", mf.FieldName, "document_type", docType)
			continue
		}
		if mf.Confidence < spec.Thresholds.Promote {
			g.logger.Debug("facts.gate.held_back",
				"field", mf.FieldName,
				"confidence", mf.Confidence,
				"promote_threshold", spec.Thresholds.Promote,
			)
			continue
		}
		out = append(out, entity.CaseFact{
			CaseID:     caseID,
			FieldName:  mf.FieldName,
			Value:      mf.Value,
			Confidence: mf.Confidence,
			Source:     mf.Source,
			FileHash:   fileHash,
			RunID:      runID,
			PromotedAt: now,
		})
	}
	return out
}
