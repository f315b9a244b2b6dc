package extract

import (
	"errors"

	"github.com/plc-diagram/backend/internal/l5x"
)

// Pipeline-level failure classes. Stage-local failures (one bad rung, one
// missing bit description) are absorbed where they occur and never surface
// as errors; these sentinels cover the conditions that halt the whole run.
var (
	// ErrInputNotFound: the input file/handle does not exist.
	ErrInputNotFound = errors.New("input file not found")

	// ErrInvalidDocument: the input exists but is not a parseable L5X export.
	ErrInvalidDocument = l5x.ErrInvalidDocument

	// ErrSectionNotFound: no routine contains a state logic section.
	ErrSectionNotFound = errors.New("no state logic section found")

	// ErrTagNotResolved: no explicit tag was given and auto-detection failed.
	ErrTagNotResolved = errors.New("could not determine state tag")
)

// ErrorCode maps a pipeline error to a stable machine-readable code, so the
// API layer can distinguish "fix your input path" from "fix your input
// content" without string matching.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInputNotFound):
		return "INPUT_NOT_FOUND"
	case errors.Is(err, ErrInvalidDocument):
		return "INVALID_DOCUMENT"
	case errors.Is(err, ErrSectionNotFound):
		return "SECTION_NOT_FOUND"
	case errors.Is(err, ErrTagNotResolved):
		return "TAG_NOT_RESOLVED"
	default:
		return "GENERATION_FAILED"
	}
}
