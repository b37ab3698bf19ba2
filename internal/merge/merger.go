package merge

import (
	"log/slog"

	"github.com/landlorddocs/smartreview/constants"
	"github.com/landlorddocs/smartreview/internal/config"
	"github.com/landlorddocs/smartreview/internal/entity"
)

// Merger reconciles the deterministic and probabilistic candidate sets for
// one file into a single MergedFact set. The ordering is a correctness rule,
// not an optimization: a low-confidence model guess must never silently
// override a present-but-weak deterministic anchor, and no value is invented
// when both strategies are unconfident.
type Merger struct {
	catalog *config.Catalog
	logger  *slog.Logger
}

func NewMerger(catalog *config.Catalog, logger *slog.Logger) *Merger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Merger{catalog: catalog, logger: logger}
}

// Merge resolves candidates field by field:
//  1. deterministic candidate at or above its floor wins, anchor retained;
//  2. otherwise a probabilistic candidate at or above its floor;
//  3. otherwise the field is explicitly absent (no zero, no false).
//
// A merged fact's confidence is always the chosen candidate's own, so it can
// never exceed the higher of the two source confidences.
func (m *Merger) Merge(docType constants.DocumentType, det, prob []entity.ExtractedField) []entity.MergedFact {
	specs := m.catalog.FieldSpecs(docType)
	if len(specs) == 0 {
		return nil
	}

	detByField := indexByField(det)
	probByField := indexByField(prob)

	var out []entity.MergedFact
	for _, spec := range specs {
		d, hasDet := detByField[spec.Name]
		p, hasProb := probByField[spec.Name]

		switch {
		case hasDet && d.Confidence >= spec.Thresholds.DeterministicFloor():
			out = append(out, entity.MergedFact{
				FieldName:  spec.Name,
				Value:      d.Value,
				Confidence: d.Confidence,
				Source:     constants.SourceDeterministic,
				Anchor:     d.Anchor,
			})
		case hasProb && p.Confidence >= spec.Thresholds.ProbabilisticFloor():
			out = append(out, entity.MergedFact{
				FieldName:  spec.Name,
				Value:      p.Value,
				Confidence: p.Confidence,
				Source:     constants.SourceProbabilistic,
			})
		default:
			if hasDet || hasProb {
				m.logger.Debug("merge.field.rejected",
					"field", spec.Name,
					"det", hasDet, "prob", hasProb,
				)
			}
		}
	}
	return out
}

func indexByField(fs []entity.ExtractedField) map[string]entity.ExtractedField {
	idx := make(map[string]entity.ExtractedField, len(fs))
	for _, f := range fs {
		prev, seen := idx[f.FieldName]
		if !seen || f.Confidence > prev.Confidence {
			idx[f.FieldName] = f
		}
	}
	return idx
}
