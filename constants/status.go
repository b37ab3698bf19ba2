package constants

// ValidationStatus is the terminal status of one validator routing.
type ValidationStatus string

// Stable values (store these exact strings in DB).
const (
	StatusPass        ValidationStatus = "PASS"        // no blockers; warnings may still be present
	StatusWarning     ValidationStatus = "WARNING"     // advisory findings only
	StatusBlocked     ValidationStatus = "BLOCKED"     // at least one blocker
	StatusUnsupported ValidationStatus = "UNSUPPORTED" // no validator for jurisdiction x type
)

// Severity ranks a single finding.
type Severity string

const (
	SeverityBlocker Severity = "BLOCKER"
	SeverityWarning Severity = "WARNING"
	SeverityInfo    Severity = "INFO"
)

// ExtractionSource tells which strategy produced a field value.
type ExtractionSource string

const (
	SourceDeterministic ExtractionSource = "DETERMINISTIC"
	SourceProbabilistic ExtractionSource = "PROBABILISTIC"
	SourceMerged        ExtractionSource = "MERGED"
)

// FileStatus is the per-file outcome recorded on a run.
type FileStatus string

const (
	FileProcessed FileStatus = "PROCESSED"
	FileCached    FileStatus = "CACHED"
	FileSkipped   FileStatus = "SKIPPED"
	FileTimedOut  FileStatus = "TIMED_OUT"
	FileFailed    FileStatus = "FAILED"
)

// GroundOutcome distinguishes how strongly a possession ground is made out.
// "ground weaker" (discretionary) and "ground unavailable" are different
// outcomes and must never collapse into each other.
type GroundOutcome string

const (
	GroundMandatory     GroundOutcome = "MANDATORY"
	GroundDiscretionary GroundOutcome = "DISCRETIONARY"
	GroundUnavailable   GroundOutcome = "UNAVAILABLE"
)
