package download

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"arxivmcp/internal/filemanager"
	"arxivmcp/internal/logging"
	"arxivmcp/pkg/fileops"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

// DefaultHTMLBaseURL is arXiv's HTML rendering of papers.
const DefaultHTMLBaseURL = "https://arxiv.org/html"

const htmlFetchTimeout = 60 * time.Second

// HTMLFetcher downloads the HTML rendering of a paper and stores it as Markdown.
type HTMLFetcher struct {
	client   *http.Client
	baseURL  string
	resolver *filemanager.Resolver
	conv     *md.Converter
	logger   *logging.AppLogger
	now      func() time.Time
}

// NewHTMLFetcher creates a fetcher for baseURL. An empty baseURL selects
// DefaultHTMLBaseURL.
func NewHTMLFetcher(baseURL string, resolver *filemanager.Resolver, logger *logging.AppLogger) *HTMLFetcher {
	if baseURL == "" {
		baseURL = DefaultHTMLBaseURL
	}
	if logger == nil {
		logger = logging.GetDefault()
	}
	conv := md.NewConverter("", true, &md.Options{HeadingStyle: "atx"})
	conv.Remove("img", "script", "style")

	return &HTMLFetcher{
		client:   &http.Client{Timeout: htmlFetchTimeout},
		baseURL:  strings.TrimRight(baseURL, "/"),
		resolver: resolver,
		conv:     conv,
		logger:   logger,
		now:      time.Now,
	}
}

// Fetch downloads the HTML rendering of paperID, converts it to Markdown and
// writes it to the paper's Markdown path, replacing any existing file. It
// returns the path written. Non-2xx responses are reported as *HTTPStatusError.
func (f *HTMLFetcher) Fetch(ctx context.Context, paperID string) (string, error) {
	start := time.Now()
	defer f.logger.LogPerformance("html.fetch", start)

	url := f.baseURL + "/" + paperID
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &HTTPStatusError{Code: resp.StatusCode, URL: url}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	title := documentTitle(doc)
	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}
	markdown := f.conv.Convert(body)

	meta := Metadata{PaperID: paperID, Source: SourceHTML, Title: title, RetrievedAt: f.now()}
	header, err := meta.FrontMatter()
	if err != nil {
		return "", err
	}

	mdPath, err := f.resolver.Path(paperID, filemanager.SuffixMarkdown)
	if err != nil {
		return "", err
	}
	content := append(header, markdown...)
	if !strings.HasSuffix(markdown, "\n") {
		content = append(content, '\n')
	}
	if err := fileops.AtomicWrite(mdPath, content); err != nil {
		return "", fmt.Errorf("write markdown: %w", err)
	}

	f.logger.Debug("Stored HTML rendering", "paper_id", paperID, "path", mdPath, "bytes", len(content))
	return mdPath, nil
}

// documentTitle prefers the paper's rendered title heading over the page title.
func documentTitle(doc *goquery.Document) string {
	for _, sel := range []string{"h1.ltx_title_document", "h1", "title"} {
		if t := strings.Join(strings.Fields(doc.Find(sel).First().Text()), " "); t != "" {
			return t
		}
	}
	return ""
}
