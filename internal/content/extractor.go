package content

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/landlorddocs/smartreview/constants"
)

// minTextLayerRunes is the text-layer size below which a PDF is treated as a
// scan. Stamped scanner metadata alone often yields a handful of characters.
const minTextLayerRunes = 64

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // renders scanned-PDF pages for OCR; if empty -> "pdftoppm"
	Tesseract string // if empty -> "tesseract"
	DPI       int    // render resolution for scanned pages; if 0 -> 300
	Lang      string // tesseract language pack; if empty -> "eng"
}

type FileExtractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewFileExtractor(cfg Config, logger *slog.Logger) *FileExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.Lang == "" {
		cfg.Lang = "eng"
	}
	return &FileExtractor{cfg: cfg, runner: execRunner{}, logger: logger}
}

// NewFileExtractorWithRunner is for tests.
func NewFileExtractorWithRunner(cfg Config, r Runner, logger *slog.Logger) *FileExtractor {
	e := NewFileExtractor(cfg, logger)
	e.runner = r
	return e
}

// Extract picks a strategy based on file extension. Images and scanned PDFs go
// through tesseract; a PDF with a usable text layer never pays for OCR.
func (e *FileExtractor) Extract(ctx context.Context, path string, maxPages int) (Result, error) {
	start := time.Now()
	ext := constants.NormalizeExt(filepath.Ext(path))
	e.logger.Debug("content.extract.start", "path", path, "ext", ext)

	switch constants.MapExtToClass(ext) {
	case constants.MimeTextPDF:
		res, err := e.extractPDF(ctx, path, maxPages)
		res.Duration = time.Since(start)
		return res, err
	case constants.MimeImage:
		res, err := e.extractImage(ctx, path)
		res.Duration = time.Since(start)
		return res, err
	default:
		e.logger.Warn("content.extract.unsupported", "path", path, "ext", ext)
		return Result{
			MimeClass: constants.MimeUnsupported,
			Method:    "none",
			Duration:  time.Since(start),
			Warnings:  []string{fmt.Sprintf("unsupported extension: %q", ext)},
		}, nil
	}
}

// extractImage reads a single photo or scan page through tesseract. An OCR
// failure is not an error: the vision inference path downstream can still
// read the image itself.
func (e *FileExtractor) extractImage(ctx context.Context, path string) (Result, error) {
	text, warn, err := e.tesseract(ctx, path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{MimeClass: constants.MimeImage}, ctxErr
		}
		e.logger.Warn("content.extract.image_ocr_failed", "path", path, "error", err)
		return Result{
			MimeClass: constants.MimeImage,
			Pages:     1,
			Method:    "none",
			PageImage: path,
			Warnings:  warn,
		}, nil
	}
	return Result{
		Text:      text,
		Pages:     1,
		MimeClass: constants.MimeImage,
		Method:    "image-ocr",
		PageImage: path,
		Warnings:  warn,
	}, nil
}

func (e *FileExtractor) extractPDF(ctx context.Context, path string, maxPages int) (Result, error) {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{MimeClass: constants.MimeScannedPDF}, ctxErr
		}
		// Corrupt or unreadable PDF: still classifiable, just as unsupported.
		e.logger.Warn("content.extract.pdftotext_failed", "path", path, "error", err)
		return Result{
			MimeClass: constants.MimeUnsupported,
			Method:    "none",
			Warnings:  []string{string(errb)},
		}, nil
	}

	text := string(out)
	// A form-feed \f is used as page separator by default
	pages := 1 + strings.Count(text, "\f")
	truncated := false
	if maxPages > 0 && pages > maxPages {
		text = firstPages(text, maxPages)
		pages = maxPages
		truncated = true
	}

	if len(strings.TrimSpace(text)) < minTextLayerRunes {
		// No usable text layer: render the pages and OCR them instead.
		res, err := e.ocrPDF(ctx, path, maxPages)
		if res.Pages == 0 {
			res.Pages = pages
		}
		res.Truncated = res.Truncated || truncated
		return res, err
	}

	return Result{
		Text:      text,
		Pages:     pages,
		MimeClass: constants.MimeTextPDF,
		Method:    "pdf-text",
		Truncated: truncated,
	}, nil
}

// ocrPDF renders a scanned PDF to page images with pdftoppm and runs
// tesseract over each. The first rendered page is kept on disk for the vision
// inference path.
func (e *FileExtractor) ocrPDF(ctx context.Context, path string, maxPages int) (Result, error) {
	tmpDir, err := os.MkdirTemp("", "smartreview-ocr-*")
	if err != nil {
		return Result{MimeClass: constants.MimeScannedPDF, Method: "none", Warnings: []string{err.Error()}}, nil
	}
	defer func() {
		if rerr := os.RemoveAll(tmpDir); rerr != nil {
			e.logger.Warn("content.extract.tmpdir_cleanup_failed", "dir", tmpDir, "error", rerr)
		}
	}()

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r <dpi> -png <in.pdf> <tmp/page>
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, "-r", strconv.Itoa(e.cfg.DPI), "-png", path, prefix)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{MimeClass: constants.MimeScannedPDF}, ctxErr
		}
		e.logger.Warn("content.extract.pdftoppm_failed", "path", path, "error", err)
		return Result{
			MimeClass: constants.MimeScannedPDF,
			Method:    "none",
			Warnings:  []string{string(errb)},
		}, nil
	}

	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	truncated := false
	if maxPages > 0 && len(matches) > maxPages {
		matches = matches[:maxPages]
		truncated = true
	}
	if len(matches) == 0 {
		return Result{
			MimeClass: constants.MimeScannedPDF,
			Method:    "none",
			Warnings:  []string{"no page images rendered"},
		}, nil
	}

	pageImage, warns := e.keepFirstPage(matches[0])

	var b strings.Builder
	for _, img := range matches {
		txt, w, err := e.tesseract(ctx, img)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Result{MimeClass: constants.MimeScannedPDF}, ctxErr
			}
			warns = append(warns, err.Error())
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\f")
		}
		b.WriteString(txt)
		warns = append(warns, w...)
	}

	return Result{
		Text:      b.String(),
		Pages:     len(matches),
		MimeClass: constants.MimeScannedPDF,
		Method:    "pdf-ocr",
		Truncated: truncated,
		PageImage: pageImage,
		Warnings:  warns,
	}, nil
}

// keepFirstPage copies the first rendered page out of the temp dir so it
// survives cleanup.
func (e *FileExtractor) keepFirstPage(src string) (string, []string) {
	data, err := os.ReadFile(src)
	if err != nil {
		return "", []string{err.Error()}
	}
	f, err := os.CreateTemp("", "smartreview-page-*.png")
	if err != nil {
		return "", []string{err.Error()}
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return "", []string{err.Error()}
	}
	if err := f.Close(); err != nil {
		return "", []string{err.Error()}
	}
	return f.Name(), nil
}

// tesseract <file> stdout -l <lang>
func (e *FileExtractor) tesseract(ctx context.Context, path string) (string, []string, error) {
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, path, "stdout", "-l", e.cfg.Lang)
	if err != nil {
		return "", []string{string(errb)}, fmt.Errorf("tesseract: %w", err)
	}
	return strings.TrimSpace(string(out)), nil, nil
}

// firstPages keeps the first n form-feed-separated pages of text.
func firstPages(text string, n int) string {
	parts := strings.SplitN(text, "\f", n+1)
	if len(parts) <= n {
		return text
	}
	return strings.Join(parts[:n], "\f")
}
