package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/landlorddocs/smartreview/constants"
	"github.com/landlorddocs/smartreview/internal/classify"
	"github.com/landlorddocs/smartreview/internal/config"
	"github.com/landlorddocs/smartreview/internal/content"
	"github.com/landlorddocs/smartreview/internal/entity"
	"github.com/landlorddocs/smartreview/internal/fields"
	"github.com/landlorddocs/smartreview/internal/governor"
	"github.com/landlorddocs/smartreview/internal/llm"
	"github.com/landlorddocs/smartreview/internal/merge"
)

// Processor runs the per-file stages in order: content extract, classify,
// deterministic fields, probabilistic fields, merge. Results are keyed by
// content hash and cached, so reprocessing an unchanged file is free.
type Processor struct {
	catalog *config.Catalog
	content content.Extractor
	class   *classify.Classifier
	det     *fields.Extractor
	prob    *llm.Extractor
	merger  *merge.Merger
	cache   *governor.Cache
	logger  *slog.Logger
}

func NewProcessor(
	catalog *config.Catalog,
	contentEx content.Extractor,
	class *classify.Classifier,
	det *fields.Extractor,
	prob *llm.Extractor,
	merger *merge.Merger,
	cache *governor.Cache,
	logger *slog.Logger,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		catalog: catalog,
		content: contentEx,
		class:   class,
		det:     det,
		prob:    prob,
		merger:  merger,
		cache:   cache,
		logger:  logger,
	}
}

// Cached returns the cached result for a content hash, if present.
func (p *Processor) Cached(hashHex string) (*entity.ExtractionResult, bool) {
	if p.cache == nil {
		return nil, false
	}
	return p.cache.Get(hashHex)
}

// ProcessFile runs all stages for one file and caches the result under the
// file's content hash. maxPages caps how many pages the content stage reads.
// The only errors are context cancellation and deadline; every degraded input
// still yields a result.
func (p *Processor) ProcessFile(ctx context.Context, file *entity.EvidenceFile, maxPages int) (*entity.ExtractionResult, error) {
	start := time.Now()
	hash := file.HashHex()

	cres, err := p.content.Extract(ctx, file.SourcePath, maxPages)
	if err != nil {
		return nil, err
	}
	p.logger.Info("pipeline.content.ok",
		"file_id", file.ID,
		"mime_class", cres.MimeClass,
		"pages", cres.Pages,
		"truncated", cres.Truncated,
		"method", cres.Method,
	)

	result := &entity.ExtractionResult{
		FileHash:    hash,
		Pages:       cres.Pages,
		Truncated:   cres.Truncated,
		ExtractedAt: time.Now().UTC(),
	}
	if cres.Truncated {
		result.Warnings = append(result.Warnings, entity.Warning{
			Code:     entity.WarnPagesTruncated,
			Severity: constants.SeverityWarning,
			Category: "limits",
			Message:  fmt.Sprintf("only the first %d pages of %s were read", cres.Pages, file.Filename),
		})
	}

	cls := p.class.Classify(cres.Text, file.DeclaredCategory)
	if cls.DocumentType == constants.DocTypeUnsupported && visualInput(cres.MimeClass) {
		// OCR gave the classifier nothing to work with. The declared category
		// still routes the file through the vision inference path rather than
		// discarding it unread.
		if declared := constants.DocTypeForCategory(file.DeclaredCategory); declared != constants.DocTypeUnsupported {
			cls.DocumentType = declared
			result.Warnings = append(result.Warnings, entity.Warning{
				Code:     "classify:declared-fallback",
				Severity: constants.SeverityInfo,
				Category: "classification",
				Message:  fmt.Sprintf("%s was unreadable as text; treating it as the declared %s", file.Filename, declared),
			})
		}
	}
	result.Classification = cls
	p.logger.Info("pipeline.classify.ok",
		"file_id", file.ID,
		"document_type", cls.DocumentType,
		"confidence", cls.Confidence,
		"strong_match", cls.StrongMatch,
	)

	if cls.DocumentType == constants.DocTypeUnsupported {
		result.Warnings = append(result.Warnings, entity.Warning{
			Code:     "classify:unrecognized",
			Severity: constants.SeverityWarning,
			Category: "classification",
			Message:  fmt.Sprintf("%s could not be recognized as a supported document type", file.Filename),
		})
		p.put(result)
		return result, nil
	}

	det := p.det.ExtractFields(cres.Text, cls.DocumentType)
	prob := p.probabilistic(ctx, file, cres, cls.DocumentType, det)
	// A timeout mid-inference must surface as a timed-out file, not get cached
	// as a permanently degraded extraction.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result.Merged = p.merger.Merge(cls.DocumentType, det, prob)

	p.logger.Info("pipeline.merge.ok",
		"file_id", file.ID,
		"deterministic", len(det),
		"probabilistic", len(prob),
		"merged", len(result.Merged),
		"duration", time.Since(start),
	)

	p.put(result)
	return result, nil
}

// probabilistic asks the model only for the fields the deterministic pass
// could not settle. A file whose deterministic candidates all clear their
// floors never costs an inference call.
func (p *Processor) probabilistic(ctx context.Context, file *entity.EvidenceFile, cres content.Result, dt constants.DocumentType, det []entity.ExtractedField) []entity.ExtractedField {
	if p.prob == nil {
		return nil
	}
	specs := p.catalog.FieldSpecs(dt)
	settled := map[string]bool{}
	for _, f := range det {
		spec, ok := p.catalog.FieldSpec(dt, f.FieldName)
		if ok && f.Confidence >= spec.Thresholds.DeterministicFloor() {
			settled[f.FieldName] = true
		}
	}
	var needed []config.FieldSpec
	for _, s := range specs {
		if !settled[s.Name] {
			needed = append(needed, s)
		}
	}
	if len(needed) == 0 {
		return nil
	}
	imagePath := cres.PageImage
	if imagePath == "" {
		imagePath = file.SourcePath
	}
	return p.prob.Extract(ctx, cres.MimeClass, llm.Request{
		DocumentType:     dt,
		Specs:            needed,
		Text:             cres.Text,
		ImagePath:        imagePath,
		DeclaredCategory: file.DeclaredCategory,
		FilenameHint:     file.Filename,
	})
}

func visualInput(m constants.MimeClass) bool {
	return m == constants.MimeImage || m == constants.MimeScannedPDF
}

func (p *Processor) put(result *entity.ExtractionResult) {
	if p.cache != nil {
		p.cache.Put(result)
	}
}
