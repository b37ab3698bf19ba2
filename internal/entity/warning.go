package entity

import (
	"github.com/landlorddocs/smartreview/constants"
)

// Warning codes emitted by the resource governor. Validators emit their own
// rule-specific codes.
const (
	WarnFilesSkipped   = "limit:files-skipped"
	WarnPagesTruncated = "limit:pages-truncated"
	WarnTotalPages     = "limit:total-pages"
	WarnFileTimeout    = "limit:file-timeout"
	WarnThrottled      = "limit:throttled"
)

// Warning is one finding surfaced to the consumer. Immutable once emitted for
// a run; a later run supersedes, never edits, prior warnings for the same file.
type Warning struct {
	Code            string             `json:"code"`
	Severity        constants.Severity `json:"severity"`
	Category        string             `json:"category"`
	Message         string             `json:"message"`
	RelatedField    string             `json:"related_field,omitempty"`
	RelatedCategory string             `json:"related_category,omitempty"`
}
