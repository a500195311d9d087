package domain

import "errors"

// Generation and parse failures. Extraction recovers from all of these by
// falling back to the rule-based path; they never reach the caller.
var (
	ErrGenerationTimeout   = errors.New("generation timed out")
	ErrGenerationEmpty     = errors.New("generation returned empty text")
	ErrGenerationTransport = errors.New("generation transport error")
	ErrMalformedGeneration = errors.New("malformed generation")
	ErrNoSectionsFound     = errors.New("no sections found")
	ErrQualityRejected     = errors.New("generated sections rejected by quality gate")
)

// ErrInvalidInput is the only extraction error reported to callers.
var ErrInvalidInput = errors.New("accomplishments must not be empty")

// FailureReason maps an extraction failure to a short label for logs and
// metrics.
func FailureReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrGenerationTimeout):
		return "timeout"
	case errors.Is(err, ErrGenerationEmpty):
		return "empty"
	case errors.Is(err, ErrGenerationTransport):
		return "transport"
	case errors.Is(err, ErrMalformedGeneration):
		return "malformed"
	case errors.Is(err, ErrNoSectionsFound):
		return "no_sections"
	case errors.Is(err, ErrQualityRejected):
		return "red_flag"
	default:
		return "other"
	}
}

// ErrReportNotFound is returned by report lookups for an unknown id.
var ErrReportNotFound = errors.New("report not found")
