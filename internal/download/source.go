package download

import (
	"context"

	"arxivmcp/internal/arxiv"
)

//go:generate mockgen -destination=mock_download/mock_download.go . PaperSource

// PaperSource looks papers up and downloads their PDFs. *arxiv.Client
// implements it.
type PaperSource interface {
	LookupIDs(ctx context.Context, ids []string) ([]arxiv.Paper, error)
	DownloadPDF(ctx context.Context, paper arxiv.Paper, dir, filename string) (string, error)
}

var _ PaperSource = (*arxiv.Client)(nil)

// findPaper returns the record that paperID names exactly.
func findPaper(papers []arxiv.Paper, paperID string) (arxiv.Paper, bool) {
	for _, p := range papers {
		if p.Matches(paperID) {
			return p, true
		}
	}
	return arxiv.Paper{}, false
}
