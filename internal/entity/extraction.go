package entity

import (
	"time"

	"github.com/landlorddocs/smartreview/constants"
)

// Classification is the per-file document-type decision. One-to-one with a
// content hash; recomputed only on cache miss.
type Classification struct {
	DocumentType   constants.DocumentType `json:"document_type"`
	Confidence     float64                `json:"confidence"`
	MatchedMarkers []string               `json:"matched_markers"`
	StrongMatch    bool                   `json:"strong_match"`
}

// Anchor is the exact text span a deterministic extraction matched. Its
// absence on a field is itself meaningful: probabilistic values carry no
// provenance a human can re-check.
type Anchor struct {
	Text  string `json:"text"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// ExtractedField is one candidate value produced by a single strategy.
type ExtractedField struct {
	FieldName  string                     `json:"field_name"`
	Value      string                     `json:"value"`
	Confidence float64                    `json:"confidence"`
	Source     constants.ExtractionSource `json:"source"`
	Anchor     *Anchor                    `json:"anchor,omitempty"`
}

// MergedFact is the single reconciled value per field for one file.
// Invariant: Confidence never exceeds the higher of the two source
// confidences, and ties prefer the deterministic source.
type MergedFact struct {
	FieldName  string                     `json:"field_name"`
	Value      string                     `json:"value"`
	Confidence float64                    `json:"confidence"`
	Source     constants.ExtractionSource `json:"source"`
	Anchor     *Anchor                    `json:"anchor,omitempty"`
}

// CaseFact is a merged fact that cleared the promotion gate and is now part
// of the case's working fact set. Promotion is one-way: a MergedFact that
// never clears the gate is retained for audit only.
type CaseFact struct {
	CaseID     string                     `json:"case_id"`
	FieldName  string                     `json:"field_name"`
	Value      string                     `json:"value"`
	Confidence float64                    `json:"confidence"`
	Source     constants.ExtractionSource `json:"source"`
	FileHash   string                     `json:"file_hash"`
	RunID      string                     `json:"run_id"`
	PromotedAt time.Time                  `json:"promoted_at"`
}

// ExtractionResult is everything the pipeline derives from one file. It is
// the cache value for the file's content hash and is safe to recompute or
// discard; nothing in it is a system of record.
type ExtractionResult struct {
	FileHash       string          `json:"file_hash"`
	Classification Classification  `json:"classification"`
	Merged         []MergedFact    `json:"merged"`
	Warnings       []Warning       `json:"warnings"`
	Pages          int             `json:"pages"`
	Truncated      bool            `json:"truncated"`
	ExtractedAt    time.Time       `json:"extracted_at"`
}
