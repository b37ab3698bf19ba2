package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/landlorddocs/smartreview/constants"
)

// FileOutcome records what happened to one file within a run.
type FileOutcome struct {
	FileID     uuid.UUID            `json:"file_id"`
	FileHash   string               `json:"file_hash"`
	Status     constants.FileStatus `json:"status"`
	SkipReason string               `json:"skip_reason,omitempty"`
	Pages      int                  `json:"pages"`
}

// RunRecord is the bookkeeping for one pipeline invocation. Created at run
// start, finalized at run end, never retried automatically. Run IDs are ULIDs
// so that lexical order is completion-time order.
type RunRecord struct {
	ID            string        `json:"id"`
	CaseID        uuid.UUID     `json:"case_id"`
	Files         []FileOutcome `json:"files"`
	TotalPages    int           `json:"total_pages"`
	Duration      time.Duration `json:"duration"`
	LimitExceeded bool          `json:"limit_exceeded"`
	FromCache     bool          `json:"from_cache"`
	StartedAt     time.Time     `json:"started_at"`
	FinishedAt    time.Time     `json:"finished_at"`
}

// CountByStatus tallies file outcomes with the given status.
func (r *RunRecord) CountByStatus(st constants.FileStatus) int {
	n := 0
	for _, f := range r.Files {
		if f.Status == st {
			n++
		}
	}
	return n
}
