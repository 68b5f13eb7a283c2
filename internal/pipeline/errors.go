package pipeline

import (
	"errors"
	"fmt"
)

// Sentinel errors for expected failure modes. AI being unconfigured is an
// operating mode, not an exception; the jobs short-circuit with these as
// structured failures.
var (
	ErrAIUnavailable = errors.New("AI service is not configured")
	ErrAIResultEmpty = errors.New("AI analysis returned no usable data")
)

// ValidationError marks a source URL as malformed or permanently
// unreachable. It is never retried and flips the source cache to invalid.
type ValidationError struct {
	URL    string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid source %s: %s", e.URL, e.Reason)
}
