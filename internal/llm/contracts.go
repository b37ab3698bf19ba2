package llm

import (
	"context"

	"github.com/landlorddocs/smartreview/constants"
	"github.com/landlorddocs/smartreview/internal/config"
	"github.com/landlorddocs/smartreview/internal/entity"
)

// Request carries everything the model needs to extract one file's fields.
type Request struct {
	DocumentType constants.DocumentType
	Specs        []config.FieldSpec

	// Text is set for the text path.
	Text string
	// ImagePath is set for the vision path (photo or scanned page).
	ImagePath string

	DeclaredCategory constants.DeclaredCategory
	FilenameHint     string
}

// Provider is the raw inference capability. Implementations may fail; the
// Extractor wrapper is what guarantees degradation to empty results.
type Provider interface {
	ExtractText(ctx context.Context, req Request) ([]entity.ExtractedField, error)
	ExtractVision(ctx context.Context, req Request) ([]entity.ExtractedField, error)
}
