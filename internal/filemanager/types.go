package filemanager

import "time"

// Suffixes of the artifacts kept in the storage root.
const (
	SuffixMarkdown = ".md"
	SuffixPDF      = ".pdf"
)

// PaperFile is a Markdown artifact found in the storage root.
type PaperFile struct {
	PaperID string
	Path    string
	Size    int64
	ModTime time.Time
}
