package content

import (
	"context"
	"time"

	"github.com/landlorddocs/smartreview/constants"
)

// Result is what the content extractor learns about one file: a mime
// classification and whatever raw text could be pulled out. Unreadable input
// is a valid Result (MimeUnsupported, empty text), never an error.
type Result struct {
	Text      string
	Pages     int
	MimeClass constants.MimeClass
	Method    string // "pdf-text" | "pdf-ocr" | "image-ocr" | "none"
	Truncated bool
	Duration  time.Duration
	Warnings  []string

	// PageImage is a rendered image of the first page, set for scanned PDFs so
	// the vision inference path has something to look at. Images are their own
	// page image.
	PageImage string
}

// Extractor is Stage 1: file -> mime class + text.
type Extractor interface {
	// Extract reads the file at path, truncating to maxPages when maxPages > 0.
	// The only errors returned are context cancellation/deadline; everything
	// else degrades to an UNSUPPORTED or text-less Result.
	Extract(ctx context.Context, path string, maxPages int) (Result, error)
}
