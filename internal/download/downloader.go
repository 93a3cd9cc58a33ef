package download

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"arxivmcp/internal/filemanager"
	"arxivmcp/internal/logging"

	"golang.org/x/sync/singleflight"
)

// Format selects which renderings of a paper a download may use.
type Format string

const (
	// FormatAuto tries HTML first and falls back to the PDF.
	FormatAuto Format = "auto"
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
)

// ParseFormat validates s. The empty string means FormatAuto.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case "":
		return FormatAuto, nil
	case FormatAuto, FormatHTML, FormatPDF:
		return f, nil
	default:
		return "", fmt.Errorf("invalid format %q: must be auto, html or pdf", s)
	}
}

// Request is a download or status request for one paper.
type Request struct {
	PaperID     string
	CheckStatus bool
	Format      Format
}

// Response is the outcome reported to the caller. Every request produces one;
// failures are reported with StatusError rather than as Go errors.
type Response struct {
	Status      Status `json:"status"`
	Message     string `json:"message"`
	ResourceURI string `json:"resource_uri,omitempty"`
	StartedAt   string `json:"started_at,omitempty"`
	CompletedAt string `json:"completed_at,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Downloader decides, for each request, between a stored paper, a conversion
// in flight and a new download.
type Downloader struct {
	resolver  *filemanager.Resolver
	registry  *Registry
	html      *HTMLFetcher
	converter *Converter
	source    PaperSource
	logger    *logging.AppLogger

	flight singleflight.Group
	wg     sync.WaitGroup
}

func NewDownloader(resolver *filemanager.Resolver, registry *Registry, html *HTMLFetcher, converter *Converter, source PaperSource, logger *logging.AppLogger) *Downloader {
	if logger == nil {
		logger = logging.GetDefault()
	}
	return &Downloader{
		resolver:  resolver,
		registry:  registry,
		html:      html,
		converter: converter,
		source:    source,
		logger:    logger,
	}
}

// Registry returns the registry the downloader reports progress to.
func (d *Downloader) Registry() *Registry {
	return d.registry
}

// Wait blocks until every background conversion started so far has finished.
func (d *Downloader) Wait() {
	d.wg.Wait()
}

// Handle serves one request. It never blocks on a conversion: PDF conversions
// run in the background and are observed with a later CheckStatus request.
func (d *Downloader) Handle(ctx context.Context, req Request) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Download handler panicked", "paper_id", req.PaperID, "panic", r)
			resp = errorResponse(fmt.Sprintf("Error: %v", r))
		}
	}()

	if req.CheckStatus {
		return d.checkStatus(req.PaperID)
	}

	format, err := ParseFormat(string(req.Format))
	if err != nil {
		return errorResponse("Error: " + err.Error())
	}

	// Concurrent first requests for the same paper share one attempt. The attempt
	// does not inherit cancellation from whichever caller started it; it is bounded
	// by the fetch timeouts instead, and a cancelled caller only stops waiting.
	attempt := context.WithoutCancel(ctx)
	ch := d.flight.DoChan(req.PaperID, func() (any, error) {
		return d.start(attempt, req.PaperID, format), nil
	})
	select {
	case res := <-ch:
		if res.Shared {
			d.logger.Debug("Joined in-flight download", "paper_id", req.PaperID)
		}
		return res.Val.(Response)
	case <-ctx.Done():
		d.logger.Info("Caller gave up waiting, download continues", "paper_id", req.PaperID, "error", ctx.Err())
		return errorResponse("Error: " + ctx.Err().Error())
	}
}

func (d *Downloader) checkStatus(paperID string) Response {
	if st, ok := d.registry.Get(paperID); ok {
		return statusResponse(st, true)
	}
	mdPath, err := d.resolver.Path(paperID, filemanager.SuffixMarkdown)
	if err != nil {
		return errorResponse("Error: " + err.Error())
	}
	if fileExists(mdPath) {
		return Response{Status: StatusSuccess, Message: "Paper is ready", ResourceURI: resourceURI(mdPath)}
	}
	return Response{Status: StatusUnknown, Message: "No download or conversion in progress"}
}

func (d *Downloader) start(ctx context.Context, paperID string, format Format) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Download attempt panicked", "paper_id", paperID, "panic", r)
			resp = errorResponse(fmt.Sprintf("Error: %v", r))
		}
	}()

	mdPath, err := d.resolver.Path(paperID, filemanager.SuffixMarkdown)
	if err != nil {
		return errorResponse("Error: " + err.Error())
	}
	if fileExists(mdPath) {
		return Response{Status: StatusSuccess, Message: "Paper already available", ResourceURI: resourceURI(mdPath)}
	}
	if st, ok := d.registry.Get(paperID); ok {
		return statusResponse(st, false)
	}

	if format != FormatPDF {
		d.logger.Info("Fetching HTML", "paper_id", paperID)
		path, err := d.html.Fetch(ctx, paperID)
		if err == nil {
			return Response{Status: StatusSuccess, Message: "Paper downloaded from HTML", ResourceURI: resourceURI(path)}
		}

		var statusErr *HTTPStatusError
		switch {
		case errors.As(err, &statusErr) && format == FormatHTML:
			return errorResponse(fmt.Sprintf("HTML version not available (HTTP %d)", statusErr.Code))
		case errors.As(err, &statusErr):
			d.logger.Info("HTML not available, falling back to PDF", "paper_id", paperID, "http_status", statusErr.Code)
		case format == FormatHTML:
			return errorResponse("HTML download failed: " + err.Error())
		default:
			d.logger.Info("HTML fetch failed, falling back to PDF", "paper_id", paperID, "error", err)
		}
	}

	return d.startPDF(ctx, paperID)
}

// startPDF downloads the PDF and hands it to the converter in the background.
func (d *Downloader) startPDF(ctx context.Context, paperID string) Response {
	st, created := d.registry.Begin(paperID)
	if !created {
		return statusResponse(st, false)
	}
	log := d.logger.With("paper_id", paperID, "job_id", st.JobID)

	handedOff := false
	defer func() {
		if !handedOff {
			d.registry.Remove(paperID)
		}
	}()

	pdfPath, err := d.downloadPDF(ctx, paperID)
	if err != nil {
		if errors.Is(err, ErrPaperNotFound) {
			log.Warn("Paper not found on arXiv")
			return errorResponse(fmt.Sprintf("Paper %s not found on arXiv", paperID))
		}
		log.Error("PDF download failed", "error", err)
		return errorResponse("Error: " + err.Error())
	}

	d.registry.Advance(paperID, StatusConverting)

	// The conversion outlives the request; it is bounded by the converter's own timeout.
	bg := context.WithoutCancel(ctx)
	handedOff = true
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.converter.Convert(bg, paperID, pdfPath)
	}()

	return Response{
		Status:    StatusConverting,
		Message:   "Paper downloaded, conversion started",
		StartedAt: formatTime(st.StartedAt),
	}
}

func (d *Downloader) downloadPDF(ctx context.Context, paperID string) (string, error) {
	pdfPath, err := d.resolver.Path(paperID, filemanager.SuffixPDF)
	if err != nil {
		return "", err
	}

	papers, err := d.source.LookupIDs(ctx, []string{paperID})
	if err != nil {
		return "", fmt.Errorf("lookup %s: %w", paperID, err)
	}
	paper, ok := findPaper(papers, paperID)
	if !ok {
		return "", ErrPaperNotFound
	}
	d.registry.SetTitle(paperID, paper.Title)

	start := time.Now()
	path, err := d.source.DownloadPDF(ctx, paper, filepath.Dir(pdfPath), filepath.Base(pdfPath))
	if err != nil {
		return "", err
	}
	d.logger.LogPerformance("pdf.download", start)
	return path, nil
}

// statusResponse reports an in-flight entry. Status checks include the
// completion fields; repeated download requests only the start time.
func statusResponse(st ConversionStatus, detailed bool) Response {
	resp := Response{
		Status:    st.Status,
		Message:   fmt.Sprintf("Paper conversion %s", st.Status),
		StartedAt: formatTime(st.StartedAt),
	}
	if detailed {
		if !st.CompletedAt.IsZero() {
			resp.CompletedAt = formatTime(st.CompletedAt)
		}
		resp.Error = st.Error
	}
	return resp
}

func errorResponse(msg string) Response {
	return Response{Status: StatusError, Message: truncate(msg, maxErrorLen)}
}

func resourceURI(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return "file://" + filepath.ToSlash(path)
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
