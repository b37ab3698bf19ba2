package constants

import "strings"

// MimeClass is the coarse content classification the pipeline routes on.
type MimeClass string

const (
	MimeImage       MimeClass = "IMAGE"       // photo or scan image (jpg/png/heic)
	MimeTextPDF     MimeClass = "TEXT_PDF"    // PDF with an extractable text layer
	MimeScannedPDF  MimeClass = "SCANNED_PDF" // PDF without a usable text layer
	MimeUnsupported MimeClass = "UNSUPPORTED"
)

// AllowedExtensions holds the default allowed file extensions for evidence intake.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"heic": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToClass returns the mime class implied by a file extension alone.
// PDFs start as TEXT_PDF; the content extractor downgrades to SCANNED_PDF
// when no text layer is found.
func MapExtToClass(ext string) MimeClass {
	switch NormalizeExt(ext) {
	case "pdf":
		return MimeTextPDF
	case "jpg", "jpeg", "png", "heic":
		return MimeImage
	default:
		return MimeUnsupported
	}
}
