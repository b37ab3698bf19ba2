package config

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"

	"github.com/landlorddocs/smartreview/constants"
	"github.com/landlorddocs/smartreview/internal/common"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// Catalog is the versioned rule-and-threshold configuration the pipeline runs
// against. It is loaded once at startup, validated, and passed into each
// component at construction; nothing reads it through package state.
type Catalog struct {
	Version    int                                       `yaml:"version" validate:"required,gte=1"`
	Limits     Limits                                    `yaml:"limits"`
	Classifier ClassifierConfig                          `yaml:"classifier"`
	Fields     map[constants.DocumentType][]FieldSpec    `yaml:"fields" validate:"required,min=1"`
	Rules      RuleTables                                `yaml:"rules"`
}

// Limits are the resource governor budgets.
type Limits struct {
	MaxFilesPerRun  int           `yaml:"max_files_per_run" validate:"gte=1"`
	MaxPagesPerFile int           `yaml:"max_pages_per_file" validate:"gte=1"`
	MaxTotalPages   int           `yaml:"max_total_pages" validate:"gte=1"`
	FileTimeout     time.Duration `yaml:"file_timeout" validate:"gt=0"`
	ThrottleWindow  time.Duration `yaml:"throttle_window" validate:"gte=0"`
	Fanout          int           `yaml:"fanout" validate:"gte=1"`
}

// ClassifierConfig holds the weighted marker sets.
type ClassifierConfig struct {
	// MinConfidence is the floor assigned to unreadable/unmatched content.
	MinConfidence float64 `yaml:"min_confidence" validate:"gte=0,lte=1"`
	// StrongConfidence is the fixed score for a strong marker combination.
	StrongConfidence float64 `yaml:"strong_confidence" validate:"gte=0,lte=1"`

	Types map[constants.DocumentType]MarkerSet `yaml:"types" validate:"required,min=1"`
}

// MarkerSet is one document type's markers plus its strong combinations.
type MarkerSet struct {
	Markers []Marker   `yaml:"markers" validate:"required,min=1,dive"`
	Strong  [][]string `yaml:"strong"` // each entry lists marker names that together short-circuit scoring
}

// Marker is a weighted keyword/pattern.
type Marker struct {
	Name    string  `yaml:"name" validate:"required"`
	Pattern string  `yaml:"pattern" validate:"required"`
	Weight  float64 `yaml:"weight" validate:"gt=0,lte=1"`
}

// FieldKind selects the deterministic pattern family for a field.
type FieldKind string

const (
	KindDate       FieldKind = "date"
	KindMoney      FieldKind = "money"
	KindPostcode   FieldKind = "postcode"
	KindIdentifier FieldKind = "identifier"
	KindFrequency  FieldKind = "frequency"
	KindText       FieldKind = "text"
)

// Thresholds are the two named acceptance stages for one field. Merge gates a
// candidate into a MergedFact; Promote gates a MergedFact into a CaseFact.
// MergeProbabilistic, when set, overrides Merge for model-sourced candidates.
type Thresholds struct {
	Merge              float64  `yaml:"merge" validate:"gte=0,lte=1"`
	MergeProbabilistic *float64 `yaml:"merge_probabilistic,omitempty"`
	Promote            float64  `yaml:"promote" validate:"gte=0,lte=1"`
}

// DeterministicFloor returns the merge bar for deterministic candidates.
func (t Thresholds) DeterministicFloor() float64 { return t.Merge }

// ProbabilisticFloor returns the merge bar for model candidates.
func (t Thresholds) ProbabilisticFloor() float64 {
	if t.MergeProbabilistic != nil {
		return *t.MergeProbabilistic
	}
	return t.Merge
}

// FieldSpec describes one extractable field of a document type.
type FieldSpec struct {
	Name string    `yaml:"name" validate:"required"`
	Kind FieldKind `yaml:"kind" validate:"required,oneof=date money postcode identifier frequency text"`
	// Labels are context phrases whose proximity to a kind-pattern match
	// raises deterministic confidence (e.g. "date of service" near a date).
	Labels     []string   `yaml:"labels"`
	Required   bool       `yaml:"required"`
	Thresholds Thresholds `yaml:"thresholds"`
	// Prompt is the one-line description handed to the model schema.
	Prompt string `yaml:"prompt"`
}

// RuleTables parameterize the legal validators. The legal logic itself is
// code; the numbers regulators change live here.
type RuleTables struct {
	England EnglandRules `yaml:"england"`
}

// EnglandRules covers the England routes.
type EnglandRules struct {
	Section8  Section8Rules  `yaml:"section8"`
	Section21 Section21Rules `yaml:"section21"`
	GasSafety GasSafetyRules `yaml:"gas_safety"`
	Deposit   DepositRules   `yaml:"deposit"`
}

// Section8Rules: Ground 8 is mandatory once arrears reach rent x the
// frequency multiplier; Grounds 10/11 are discretionary.
type Section8Rules struct {
	NoticePeriodDays   int                                  `yaml:"notice_period_days" validate:"gte=0"`
	Ground8Multipliers map[constants.RentFrequency]float64  `yaml:"ground8_multipliers" validate:"required,min=1"`
}

// Section21Rules: Form 6A prerequisites.
type Section21Rules struct {
	NoticePeriodMonths     int                      `yaml:"notice_period_months" validate:"gte=1"`
	MinTenancyMonthsServed int                      `yaml:"min_tenancy_months_before_service" validate:"gte=0"`
	RequiredDocuments      []constants.DocumentType `yaml:"required_documents"`
}

// GasSafetyRules: CP12 currency.
type GasSafetyRules struct {
	InspectionIntervalMonths int `yaml:"inspection_interval_months" validate:"gte=1"`
	ExpiryWarningDays        int `yaml:"expiry_warning_days" validate:"gte=0"`
}

// DepositRules: protection window and deposit cap.
type DepositRules struct {
	ProtectionDeadlineDays int     `yaml:"protection_deadline_days" validate:"gte=1"`
	CapWeeksRent           float64 `yaml:"cap_weeks_rent" validate:"gt=0"`
}

// LoadCatalog reads and validates a catalog from path, or the embedded
// default when path is empty. Any validation failure is a CONFIG_ERROR and
// must abort startup.
func LoadCatalog(path string) (*Catalog, error) {
	raw := defaultCatalogYAML
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, common.NewAppError("CONFIG_ERROR", fmt.Sprintf("read catalog %s", path), err)
		}
		raw = b
	}

	var cat Catalog
	if err := yaml.Unmarshal(raw, &cat); err != nil {
		return nil, common.NewAppError("CONFIG_ERROR", "parse catalog yaml", err)
	}
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	return &cat, nil
}

// Validate runs struct-tag validation plus the cross-field invariants that
// tags cannot express. The promotion/merge ordering check exists to turn a
// known silent-drop bug class into a loud startup failure.
func (c *Catalog) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return common.NewAppError("CONFIG_ERROR", "catalog failed validation", err)
	}

	for docType, ms := range c.Classifier.Types {
		names := make(map[string]struct{}, len(ms.Markers))
		for _, m := range ms.Markers {
			if _, dup := names[m.Name]; dup {
				return common.NewConfigErrorf("classifier %s: duplicate marker name %q", docType, m.Name)
			}
			names[m.Name] = struct{}{}
		}
		for _, combo := range ms.Strong {
			if len(combo) < 2 {
				return common.NewConfigErrorf("classifier %s: strong combination needs at least two markers", docType)
			}
			for _, name := range combo {
				if _, ok := names[name]; !ok {
					return common.NewConfigErrorf("classifier %s: strong combination references unknown marker %q", docType, name)
				}
			}
		}
	}

	for docType, specs := range c.Fields {
		seen := make(map[string]struct{}, len(specs))
		for _, fs := range specs {
			if _, dup := seen[fs.Name]; dup {
				return common.NewConfigErrorf("fields %s: duplicate field %q", docType, fs.Name)
			}
			seen[fs.Name] = struct{}{}
			if err := checkThresholds(string(docType), fs.Name, fs.Thresholds); err != nil {
				return err
			}
		}
	}

	if c.Limits.MaxTotalPages < c.Limits.MaxPagesPerFile {
		return common.NewConfigErrorf("limits: max_total_pages %d below max_pages_per_file %d",
			c.Limits.MaxTotalPages, c.Limits.MaxPagesPerFile)
	}
	return nil
}

// checkThresholds enforces promote <= merge for every acceptance path. A
// promotion bar above a merge bar silently drops facts the merger already
// accepted, which is a correctness defect, not a stricter gate.
func checkThresholds(docType, field string, t Thresholds) error {
	if t.Promote > t.Merge {
		return common.NewConfigErrorf(
			"field %s.%s: promote threshold %.2f exceeds merge threshold %.2f",
			docType, field, t.Promote, t.Merge)
	}
	if t.MergeProbabilistic != nil && t.Promote > *t.MergeProbabilistic {
		return common.NewConfigErrorf(
			"field %s.%s: promote threshold %.2f exceeds probabilistic merge threshold %.2f",
			docType, field, t.Promote, *t.MergeProbabilistic)
	}
	return nil
}

// FieldSpecs returns the schema for a document type, or nil when the type has
// no extractable fields (e.g. UNSUPPORTED).
func (c *Catalog) FieldSpecs(dt constants.DocumentType) []FieldSpec {
	return c.Fields[dt]
}

// FieldSpec returns one field's spec by name.
func (c *Catalog) FieldSpec(dt constants.DocumentType, name string) (FieldSpec, bool) {
	for _, fs := range c.Fields[dt] {
		if fs.Name == name {
			return fs, true
		}
	}
	return FieldSpec{}, false
}
