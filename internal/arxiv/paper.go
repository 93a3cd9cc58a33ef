package arxiv

import (
	"strings"
	"time"
)

// Paper represents an arXiv paper's metadata.
type Paper struct {
	// ID is the arXiv identifier without version (e.g., "2301.00001" or "hep-th/9901001")
	ID string `json:"id"`

	// VersionedID is the identifier as returned by the API (e.g., "2301.00001v2")
	VersionedID string `json:"-"`

	// Title of the paper
	Title string `json:"title"`

	// Abstract of the paper
	Abstract string `json:"abstract"`

	Authors    []string `json:"authors"`
	Categories []string `json:"categories"`

	// Published is when the first version was submitted
	Published time.Time `json:"published"`

	// Updated is when the latest version was submitted
	Updated time.Time `json:"updated"`

	// Comment from the submitter (e.g., "10 pages, 3 figures")
	Comment string `json:"comment,omitempty"`

	JournalRef string `json:"journal_ref,omitempty"`
	DOI        string `json:"doi,omitempty"`

	// PDFLink is the PDF location advertised by the API, if any.
	PDFLink string `json:"pdf_url"`
}

// PrimaryCategory returns the primary (first) category.
func (p *Paper) PrimaryCategory() string {
	if len(p.Categories) == 0 {
		return ""
	}
	return p.Categories[0]
}

// PDFURL returns the PDF download URL.
func (p *Paper) PDFURL() string {
	if p.PDFLink != "" {
		return p.PDFLink
	}
	return "https://arxiv.org/pdf/" + p.ID
}

// AbstractURL returns the arXiv abstract page URL.
func (p *Paper) AbstractURL() string {
	return "https://arxiv.org/abs/" + p.ID
}

// Matches reports whether id names this paper, with or without a version suffix.
func (p *Paper) Matches(id string) bool {
	id = strings.TrimSpace(id)
	return id != "" && (id == p.ID || id == p.VersionedID)
}
