package entity

import (
	"encoding/hex"
	"time"

	"github.com/google/uuid"

	"github.com/landlorddocs/smartreview/constants"
)

// EvidenceFile represents one uploaded artifact. It is immutable once stored;
// extraction results live separately and are keyed by ContentHash.
type EvidenceFile struct {
	ID               uuid.UUID                  `json:"id"`
	CaseID           uuid.UUID                  `json:"case_id"`
	SourcePath       string                     `json:"source_path"`
	ContentHash      []byte                     `json:"content_hash"`
	Filename         string                     `json:"filename"`
	FileExt          string                     `json:"file_ext"`
	FileSize         int                        `json:"file_size"`
	MimeClass        constants.MimeClass        `json:"mime_class"`
	DeclaredCategory constants.DeclaredCategory `json:"declared_category"`
	PageCount        int                        `json:"page_count"`
	UploadedAt       time.Time                  `json:"uploaded_at"`
}

// HashHex returns the content hash as lowercase hex, the cache key form.
func (f *EvidenceFile) HashHex() string {
	return hex.EncodeToString(f.ContentHash)
}
