package arxiv

import (
	"encoding/xml"
	"regexp"
	"strings"
	"time"
)

// Atom feed structures for the arXiv API

type atomFeed struct {
	XMLName      xml.Name    `xml:"feed"`
	TotalResults int         `xml:"totalResults"`
	Entries      []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID         string         `xml:"id"`
	Title      string         `xml:"title"`
	Summary    string         `xml:"summary"`
	Authors    []atomAuthor   `xml:"author"`
	Categories []atomCategory `xml:"category"`
	Links      []atomLink     `xml:"link"`
	Published  string         `xml:"published"`
	Updated    string         `xml:"updated"`
	Comment    string         `xml:"comment"`
	JournalRef string         `xml:"journal_ref"`
	DOI        string         `xml:"doi"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}

type atomCategory struct {
	Term string `xml:"term,attr"`
}

type atomLink struct {
	Href  string `xml:"href,attr"`
	Title string `xml:"title,attr"`
	Type  string `xml:"type,attr"`
}

var (
	versionSuffix = regexp.MustCompile(`v\d+$`)
	whitespace    = regexp.MustCompile(`\s+`)
)

// isErrorEntry reports whether the entry is the API's in-band error report
// (e.g. for a malformed id_list value).
func (e atomEntry) isErrorEntry() bool {
	return strings.Contains(e.ID, "/api/errors")
}

// parseAtomEntry converts an atom entry to a Paper.
func parseAtomEntry(entry atomEntry) Paper {
	// Extract ID from the URL (e.g., http://arxiv.org/abs/2301.00001v1 -> 2301.00001)
	versioned := ""
	if idx := strings.LastIndex(entry.ID, "/abs/"); idx >= 0 {
		versioned = strings.TrimSpace(entry.ID[idx+5:])
	}

	var authors []string
	for _, a := range entry.Authors {
		authors = append(authors, strings.TrimSpace(a.Name))
	}

	var categories []string
	for _, c := range entry.Categories {
		categories = append(categories, c.Term)
	}

	var pdfLink string
	for _, l := range entry.Links {
		if l.Title == "pdf" || l.Type == "application/pdf" {
			pdfLink = l.Href
			break
		}
	}

	paper := Paper{
		ID:          versionSuffix.ReplaceAllString(versioned, ""),
		VersionedID: versioned,
		Title:       collapse(entry.Title),
		Abstract:    collapse(entry.Summary),
		Authors:     authors,
		Categories:  categories,
		Comment:     collapse(entry.Comment),
		JournalRef:  collapse(entry.JournalRef),
		DOI:         strings.TrimSpace(entry.DOI),
		PDFLink:     pdfLink,
	}

	paper.Published, _ = time.Parse(time.RFC3339, strings.TrimSpace(entry.Published))
	paper.Updated, _ = time.Parse(time.RFC3339, strings.TrimSpace(entry.Updated))

	return paper
}

// collapse trims s and folds the line breaks arXiv puts into titles and abstracts.
func collapse(s string) string {
	return whitespace.ReplaceAllString(strings.TrimSpace(s), " ")
}
