package fields

import (
	"log/slog"
	"strings"

	"github.com/landlorddocs/smartreview/constants"
	"github.com/landlorddocs/smartreview/internal/config"
	"github.com/landlorddocs/smartreview/internal/entity"
)

// labelWindow is how far back from a pattern match a label phrase may sit and
// still count as context ("date of service: 01/01/2026").
const labelWindow = 100

// labelBoost is added when a field label appears near the match. Pattern base
// confidences are chosen so that most kinds need the label to clear their
// merge threshold.
const labelBoost = 0.25

// Extractor applies type-specific pattern rules to extracted text. It is
// preferred over the model path wherever it fires: a pattern match is
// reproducible and carries an anchor span a human can re-check.
type Extractor struct {
	catalog *config.Catalog
	logger  *slog.Logger
}

func NewExtractor(catalog *config.Catalog, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{catalog: catalog, logger: logger}
}

// ExtractFields returns zero or more deterministic candidates for the given
// document type, at most one per field.
func (e *Extractor) ExtractFields(text string, docType constants.DocumentType) []entity.ExtractedField {
	specs := e.catalog.FieldSpecs(docType)
	if len(specs) == 0 || strings.TrimSpace(text) == "" {
		return nil
	}
	lower := strings.ToLower(text)

	var out []entity.ExtractedField
	for _, spec := range specs {
		if f, ok := e.extractField(text, lower, spec); ok {
			out = append(out, f)
		}
	}
	e.logger.Debug("fields.deterministic.done",
		"document_type", docType, "fields", len(out), "schema", len(specs))
	return out
}

func (e *Extractor) extractField(text, lower string, spec config.FieldSpec) (entity.ExtractedField, bool) {
	var best entity.ExtractedField
	found := false

	for _, kp := range patternsForKind(spec.Kind) {
		for _, loc := range kp.re.FindAllStringSubmatchIndex(text, -1) {
			m := submatches(text, loc)
			value, ok := kp.normalize(m)
			if !ok {
				continue
			}
			conf := kp.base
			labeled := nearLabel(lower, loc[0], loc[1], spec.Labels)
			if labeled {
				conf += labelBoost
			}
			if spec.Kind == config.KindText && !labeled {
				// Free text without its label is noise, not a candidate.
				continue
			}
			if conf > 1 {
				conf = 1
			}
			if !found || conf > best.Confidence {
				anchorText := text[loc[0]:loc[1]]
				best = entity.ExtractedField{
					FieldName:  spec.Name,
					Value:      valueForSpec(text, spec, value, loc),
					Confidence: conf,
					Source:     constants.SourceDeterministic,
					Anchor:     &entity.Anchor{Text: anchorText, Start: loc[0], End: loc[1]},
				}
				found = true
			}
		}
	}
	return best, found
}

// valueForSpec widens postcode matches to the whole address line; the anchor
// stays on the postcode itself.
func valueForSpec(text string, spec config.FieldSpec, value string, loc []int) string {
	if spec.Kind != config.KindPostcode {
		return value
	}
	start := strings.LastIndexByte(text[:loc[0]], '\n') + 1
	end := loc[1]
	if i := strings.IndexByte(text[loc[1]:], '\n'); i >= 0 {
		end = loc[1] + i
	} else {
		end = len(text)
	}
	line := strings.TrimSpace(text[start:end])
	if line == "" {
		return value
	}
	return line
}

// nearLabel reports whether any label phrase occurs shortly before or
// overlapping the match ("energy rating: C" labels the match that starts at
// "rating").
func nearLabel(lower string, matchStart, matchEnd int, labels []string) bool {
	if len(labels) == 0 {
		return false
	}
	winStart := matchStart - labelWindow
	if winStart < 0 {
		winStart = 0
	}
	window := lower[winStart:matchEnd]
	for _, label := range labels {
		if strings.Contains(window, strings.ToLower(label)) {
			return true
		}
	}
	return false
}

func submatches(text string, loc []int) []string {
	out := make([]string, 0, len(loc)/2)
	for i := 0; i+1 < len(loc); i += 2 {
		if loc[i] < 0 {
			out = append(out, "")
			continue
		}
		out = append(out, text[loc[i]:loc[i+1]])
	}
	return out
}
