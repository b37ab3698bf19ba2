package llm

import (
	"context"
	"log/slog"

	"github.com/landlorddocs/smartreview/constants"
	"github.com/landlorddocs/smartreview/internal/entity"
)

// Extractor is the pipeline-facing wrapper around a Provider. Inference
// errors and timeouts degrade to an empty candidate set: downstream stages
// must treat "no probabilistic candidate" identically to "field not asked",
// so no error crosses this boundary except context cancellation.
type Extractor struct {
	provider Provider
	logger   *slog.Logger
}

func NewExtractor(provider Provider, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{provider: provider, logger: logger}
}

// Extract selects text-mode vs image-mode from the file's mime class and
// returns whatever candidates the model produced, or none.
func (e *Extractor) Extract(ctx context.Context, mime constants.MimeClass, req Request) []entity.ExtractedField {
	if len(req.Specs) == 0 {
		return nil
	}

	var (
		out []entity.ExtractedField
		err error
	)
	switch mime {
	case constants.MimeTextPDF:
		out, err = e.provider.ExtractText(ctx, req)
	case constants.MimeImage, constants.MimeScannedPDF:
		if req.ImagePath == "" {
			e.logger.Warn("llm.extract.no_page_image", "document_type", req.DocumentType)
			return nil
		}
		out, err = e.provider.ExtractVision(ctx, req)
	default:
		return nil
	}

	if err != nil {
		if ctx.Err() != nil {
			// Let the governor account for the timeout; still no partial data.
			e.logger.Warn("llm.extract.cancelled", "document_type", req.DocumentType, "error", err)
			return nil
		}
		e.logger.Error("llm.extract.degraded_to_empty",
			"document_type", req.DocumentType, "error", err)
		return nil
	}
	return out
}
