package validation

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

var (
	ErrMissing = errors.New("file does not exist")
	ErrEmpty   = errors.New("file is empty")
)

// ValidateMarkdownFile checks that path is a regular, non-empty file.
// Returns nil if valid, or an error describing the problem.
func ValidateMarkdownFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrMissing
		}
		return fmt.Errorf("cannot stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("not a regular file: %s", path)
	}
	if info.Size() == 0 {
		return ErrEmpty
	}
	return nil
}

// ValidatePaperID rejects identifiers that cannot name a file in the paper
// store: empty values, whitespace, absolute paths and parent references.
// Old-style identifiers such as "hep-th/9901001" are accepted.
func ValidatePaperID(id string) error {
	if id == "" {
		return fmt.Errorf("paper id cannot be empty")
	}
	if strings.ContainsAny(id, " \t\r\n\\") {
		return fmt.Errorf("paper id %q contains invalid characters", id)
	}
	if strings.HasPrefix(id, "/") {
		return fmt.Errorf("paper id %q cannot be an absolute path", id)
	}
	for _, part := range strings.Split(id, "/") {
		if part == ".." || part == "." || part == "" {
			return fmt.Errorf("paper id %q contains an invalid path segment", id)
		}
	}
	return nil
}
