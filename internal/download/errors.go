package download

import (
	"errors"
	"fmt"
)

// maxErrorLen caps error text embedded in responses and status records.
const maxErrorLen = 1 << 10

var (
	// ErrToolMissing means the PDF to Markdown executable is not on the search path.
	ErrToolMissing = errors.New("conversion tool not found on PATH")
	// ErrNoOutput means the converter exited cleanly but wrote nothing usable.
	ErrNoOutput = errors.New("converter produced no output")
	// ErrPaperNotFound means the arXiv API returned no record for the identifier.
	ErrPaperNotFound = errors.New("paper not found on arXiv")
	// ErrNotStored means the paper has no Markdown file in the store.
	ErrNotStored = errors.New("paper not stored")
)

// HTTPStatusError is returned when a fetch receives a non-2xx response.
type HTTPStatusError struct {
	Code int
	URL  string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("HTTP %d fetching %s", e.Code, e.URL)
}

// ToolFailedError is returned when the converter exits with a non-zero status.
type ToolFailedError struct {
	Tool     string
	ExitCode int
	Stderr   string
}

func (e *ToolFailedError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s exited %d", e.Tool, e.ExitCode)
	}
	return fmt.Sprintf("%s exited %d: %s", e.Tool, e.ExitCode, e.Stderr)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
