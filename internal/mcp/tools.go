package mcp

// In this file: MCP tool definitions and handler implementations.

import (
	"context"
	"errors"
	"fmt"
	"time"

	"arxivmcp/internal/arxiv"
	"arxivmcp/internal/download"
	"arxivmcp/internal/validation"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpsrv "github.com/mark3labs/mcp-go/server"
)

// ─── download_paper ───────────────────────────────────────────────────────────

func (s *Server) toolDownloadPaper() mcpsrv.ServerTool {
	tool := mcplib.NewTool("download_paper",
		mcplib.WithDescription(`Download a paper and create a resource for it.

The HTML rendering is tried first; if arXiv has none the PDF is downloaded and
converted to Markdown in the background. While a conversion runs, call again
with check_status=true to poll it.`),
		mcplib.WithString("paper_id",
			mcplib.Description("The arXiv ID of the paper to download"),
			mcplib.Required(),
		),
		mcplib.WithBoolean("check_status",
			mcplib.Description("If true, only check conversion status without downloading"),
			mcplib.DefaultBool(false),
		),
		mcplib.WithString("format",
			mcplib.Description("Download format: 'auto' tries HTML first then PDF fallback, 'html' for HTML only, 'pdf' for PDF only"),
			mcplib.Enum(string(download.FormatAuto), string(download.FormatPDF), string(download.FormatHTML)),
			mcplib.DefaultString(string(download.FormatAuto)),
		),
		mcplib.WithOpenWorldHintAnnotation(true),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleDownloadPaper}
}

func (s *Server) handleDownloadPaper(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	paperID, ok := stringArg(req, "paper_id")
	if !ok || paperID == "" {
		return resultErr(errors.New("download_paper: paper_id is required")), nil
	}
	format, _ := stringArg(req, "format")

	request := download.Request{
		PaperID:     paperID,
		CheckStatus: boolArg(req, "check_status", false),
		Format:      download.Format(format),
	}
	s.logger.Debug("download_paper", "paper_id", paperID, "check_status", request.CheckStatus, "format", format)

	return resultJSON(s.downloader.Handle(ctx, request)), nil
}

// ─── search_papers ────────────────────────────────────────────────────────────

func (s *Server) toolSearchPapers() mcpsrv.ServerTool {
	tool := mcplib.NewTool("search_papers",
		mcplib.WithDescription(`Search arXiv for papers.

Plain words must all match; arXiv field syntax such as "au:hinton AND ti:capsule"
is passed through. Results include identifiers usable with download_paper.`),
		mcplib.WithString("query",
			mcplib.Description("Search query"),
			mcplib.Required(),
		),
		mcplib.WithNumber("max_results",
			mcplib.Description(fmt.Sprintf("Maximum number of results to return (1-%d, default %d)", s.maxResults, min(defaultMaxResults, s.maxResults))),
		),
		mcplib.WithArray("categories",
			mcplib.Description("arXiv categories to filter by, e.g. cs.AI, cs.LG"),
			mcplib.WithStringItems(),
		),
		mcplib.WithString("date_from",
			mcplib.Description("Earliest submission date, YYYY-MM-DD"),
		),
		mcplib.WithString("date_to",
			mcplib.Description("Latest submission date, YYYY-MM-DD"),
		),
		mcplib.WithString("sort_by",
			mcplib.Description("Result ordering"),
			mcplib.Enum(string(arxiv.SortRelevance), string(arxiv.SortLastUpdated), string(arxiv.SortSubmitted)),
			mcplib.DefaultString(string(arxiv.SortRelevance)),
		),
		mcplib.WithReadOnlyHintAnnotation(true),
		mcplib.WithOpenWorldHintAnnotation(true),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleSearchPapers}
}

// paperSummary is a JSON-serialisable summary of an arXiv record.
type paperSummary struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Authors    []string `json:"authors"`
	Abstract   string   `json:"abstract"`
	Categories []string `json:"categories"`
	Published  string   `json:"published"`
	URL        string   `json:"url"`
	PDFURL     string   `json:"pdf_url"`
}

type searchResult struct {
	TotalResults int            `json:"total_results"`
	Papers       []paperSummary `json:"papers"`
}

func (s *Server) handleSearchPapers(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	query, ok := stringArg(req, "query")
	if !ok || query == "" {
		return resultErr(errors.New("search_papers: query is required")), nil
	}

	limit := intArg(req, "max_results", min(defaultMaxResults, s.maxResults))
	limit = max(min(limit, s.maxResults), 1)

	q := arxiv.Query{
		Text:       query,
		Categories: stringSliceArg(req, "categories"),
		MaxResults: limit,
	}
	q.DateFrom, _ = stringArg(req, "date_from")
	q.DateTo, _ = stringArg(req, "date_to")
	if sortBy, ok := stringArg(req, "sort_by"); ok {
		q.SortBy = arxiv.SortBy(sortBy)
	}

	res, err := s.searcher.Search(ctx, q)
	if err != nil {
		s.logger.Error("Search failed", "query", query, "error", err)
		return resultErr(fmt.Errorf("search_papers: %w", err)), nil
	}

	out := searchResult{TotalResults: res.TotalResults, Papers: make([]paperSummary, 0, len(res.Papers))}
	for _, p := range res.Papers {
		out.Papers = append(out.Papers, paperSummary{
			ID:         p.ID,
			Title:      p.Title,
			Authors:    p.Authors,
			Abstract:   p.Abstract,
			Categories: p.Categories,
			Published:  p.Published.Format(time.RFC3339),
			URL:        p.AbstractURL(),
			PDFURL:     p.PDFURL(),
		})
	}
	return resultJSON(out), nil
}

// ─── list_papers ──────────────────────────────────────────────────────────────

func (s *Server) toolListPapers() mcpsrv.ServerTool {
	tool := mcplib.NewTool("list_papers",
		mcplib.WithDescription("List all papers stored locally. Returns paper IDs, titles and where each was converted from."),
		mcplib.WithReadOnlyHintAnnotation(true),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleListPapers}
}

type listResult struct {
	TotalPapers int                    `json:"total_papers"`
	Papers      []download.StoredPaper `json:"papers"`
}

func (s *Server) handleListPapers(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	papers, err := s.store.List()
	if err != nil {
		return resultErr(fmt.Errorf("list_papers: %w", err)), nil
	}
	return resultJSON(listResult{TotalPapers: len(papers), Papers: papers}), nil
}

// ─── read_paper ───────────────────────────────────────────────────────────────

func (s *Server) toolReadPaper() mcpsrv.ServerTool {
	tool := mcplib.NewTool("read_paper",
		mcplib.WithDescription("Read the full Markdown content of a stored paper. The paper must have been downloaded with download_paper first."),
		mcplib.WithString("paper_id",
			mcplib.Description("The arXiv ID of the paper to read"),
			mcplib.Required(),
		),
		mcplib.WithReadOnlyHintAnnotation(true),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleReadPaper}
}

type readResult struct {
	Status  string `json:"status"`
	PaperID string `json:"paper_id"`
	Title   string `json:"title,omitempty"`
	Source  string `json:"source,omitempty"`
	Content string `json:"content,omitempty"`
	Message string `json:"message,omitempty"`
}

func (s *Server) handleReadPaper(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	paperID, ok := stringArg(req, "paper_id")
	if !ok || paperID == "" {
		return resultErr(errors.New("read_paper: paper_id is required")), nil
	}
	if err := validation.ValidatePaperID(paperID); err != nil {
		return resultErr(fmt.Errorf("read_paper: %w", err)), nil
	}

	doc, err := s.store.Read(paperID)
	if err != nil {
		if errors.Is(err, download.ErrNotStored) {
			return resultJSON(readResult{
				Status:  string(download.StatusError),
				PaperID: paperID,
				Message: fmt.Sprintf("Paper %s not found in storage. You may need to download it first using download_paper.", paperID),
			}), nil
		}
		return resultErr(fmt.Errorf("read_paper: %w", err)), nil
	}

	return resultJSON(readResult{
		Status:  string(download.StatusSuccess),
		PaperID: paperID,
		Title:   doc.Title,
		Source:  doc.Source,
		Content: doc.Content,
	}), nil
}
