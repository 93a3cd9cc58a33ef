// Package fileops provides the small set of file operations the paper store relies on.
//
// Writes are atomic: content goes to a temporary file in the destination directory,
// is synced, and is then renamed over the target. Readers therefore never observe a
// half-written Markdown artifact, which matters because the presence of a paper's
// .md file is itself the completion signal for a download.
//
// # Validation
//
// CheckStoredFile is the single gate before a stored file is read back. It
// follows symlinks, requires the target to stay inside the storage root, and
// enforces a size limit. Failures wrap ErrOutsideRoot, ErrNotRegular or
// ErrTooLarge, or the underlying fs error:
//
//	if _, err := fileops.CheckStoredFile(path, root, maxSize); err != nil {
//	    return fmt.Errorf("invalid paper file: %w", err)
//	}
//
// # Directory Operations
//
// EnsureDirectoryExists() creates directories with 0755 permissions and is safe to
// call concurrently.
package fileops
