package fileops

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrOutsideRoot is returned when a path, after following symlinks, leaves the root.
	ErrOutsideRoot = errors.New("path resolves outside the storage root")
	// ErrNotRegular is returned for directories, devices and other non-regular files.
	ErrNotRegular = errors.New("not a regular file")
	// ErrTooLarge is returned when a file is bigger than the allowed size.
	ErrTooLarge = errors.New("file too large")
)

// CheckStoredFile verifies that path names a regular file inside root that is at
// most maxSize bytes, and returns its FileInfo. Symlinks are followed and their
// target must also be inside root. A maxSize of zero or less disables the size check.
//
//	fi, err := fileops.CheckStoredFile("/storage/2401.00001.md", "/storage", 50<<20)
//	if errors.Is(err, fileops.ErrTooLarge) {
//	    ...
//	}
func CheckStoredFile(path, root string, maxSize int64) (fs.FileInfo, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}
	if !within(absRoot, absPath) {
		return nil, fmt.Errorf("%w: %s", ErrOutsideRoot, filepath.Base(path))
	}

	// Both sides are resolved so a symlinked root (e.g. /tmp on macOS) still matches.
	realRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	realPath, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		return nil, err
	}
	if !within(realRoot, realPath) {
		return nil, fmt.Errorf("%w: %s", ErrOutsideRoot, filepath.Base(path))
	}

	fi, err := os.Stat(realPath)
	if err != nil {
		return nil, err
	}
	if !fi.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s", ErrNotRegular, filepath.Base(path))
	}
	if maxSize > 0 && fi.Size() > maxSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit %d bytes", ErrTooLarge, fi.Size(), maxSize)
	}
	return fi, nil
}

func within(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
