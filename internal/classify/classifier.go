package classify

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/landlorddocs/smartreview/constants"
	"github.com/landlorddocs/smartreview/internal/common"
	"github.com/landlorddocs/smartreview/internal/config"
	"github.com/landlorddocs/smartreview/internal/entity"
)

type compiledMarker struct {
	name   string
	re     *regexp.Regexp
	weight float64
}

type typeMarkers struct {
	docType     constants.DocumentType
	markers     []compiledMarker
	strong      [][]string
	totalWeight float64
}

// Classifier assigns a document type from weighted keyword/pattern markers.
// Base confidence is the normalized sum of matched marker weights; certain
// marker combinations short-circuit to a fixed high confidence because they
// are unambiguous even when each marker alone is weak.
type Classifier struct {
	cfg    config.ClassifierConfig
	types  []typeMarkers
	logger *slog.Logger
}

// NewClassifier compiles all marker patterns up front. A malformed pattern is
// a configuration error and aborts startup, not a request-time failure.
func NewClassifier(cfg config.ClassifierConfig, logger *slog.Logger) (*Classifier, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Classifier{cfg: cfg, logger: logger}
	for docType, ms := range cfg.Types {
		tm := typeMarkers{docType: docType, strong: ms.Strong}
		for _, m := range ms.Markers {
			re, err := regexp.Compile("(?is)" + m.Pattern)
			if err != nil {
				return nil, common.NewAppError("CONFIG_ERROR",
					"classifier marker "+m.Name+" for "+string(docType), err)
			}
			tm.markers = append(tm.markers, compiledMarker{name: m.Name, re: re, weight: m.Weight})
			tm.totalWeight += m.Weight
		}
		c.types = append(c.types, tm)
	}
	// Deterministic iteration order for reproducible tie-breaking.
	sort.Slice(c.types, func(i, j int) bool { return c.types[i].docType < c.types[j].docType })
	return c, nil
}

// Classify never fails: empty or unreadable text yields the lowest-confidence
// UNSUPPORTED classification. On an exact confidence tie the type matching
// the user's declared category wins.
func (c *Classifier) Classify(text string, declared constants.DeclaredCategory) entity.Classification {
	text = strings.TrimSpace(text)
	if text == "" {
		return entity.Classification{
			DocumentType: constants.DocTypeUnsupported,
			Confidence:   c.cfg.MinConfidence,
		}
	}

	declaredType := constants.DocTypeForCategory(declared)
	best := entity.Classification{
		DocumentType: constants.DocTypeUnsupported,
		Confidence:   c.cfg.MinConfidence,
	}

	for _, tm := range c.types {
		cl := c.score(tm, text)
		if cl.Confidence > best.Confidence {
			best = cl
			continue
		}
		if cl.Confidence == best.Confidence && cl.DocumentType == declaredType &&
			best.DocumentType != declaredType {
			best = cl
		}
	}

	c.logger.Debug("classify.result",
		"document_type", best.DocumentType,
		"confidence", best.Confidence,
		"strong", best.StrongMatch,
		"markers", len(best.MatchedMarkers),
	)
	return best
}

func (c *Classifier) score(tm typeMarkers, text string) entity.Classification {
	matched := make(map[string]struct{}, len(tm.markers))
	var names []string
	var sum float64
	for _, m := range tm.markers {
		if m.re.MatchString(text) {
			matched[m.name] = struct{}{}
			names = append(names, m.name)
			sum += m.weight
		}
	}
	if len(names) == 0 {
		return entity.Classification{DocumentType: tm.docType, Confidence: 0}
	}

	// Strong-marker rule: some combinations are decisive on their own.
	for _, combo := range tm.strong {
		all := true
		for _, name := range combo {
			if _, ok := matched[name]; !ok {
				all = false
				break
			}
		}
		if all {
			return entity.Classification{
				DocumentType:   tm.docType,
				Confidence:     c.cfg.StrongConfidence,
				MatchedMarkers: names,
				StrongMatch:    true,
			}
		}
	}

	conf := sum / tm.totalWeight
	if conf > 1 {
		conf = 1
	}
	if conf < c.cfg.MinConfidence {
		conf = c.cfg.MinConfidence
	}
	return entity.Classification{
		DocumentType:   tm.docType,
		Confidence:     conf,
		MatchedMarkers: names,
	}
}
