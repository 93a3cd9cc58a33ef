package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"arxivmcp/internal/logging"

	"github.com/dustin/go-humanize"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the arXiv export API query endpoint.
const DefaultBaseURL = "https://export.arxiv.org/api/query"

// DefaultRequestInterval is the spacing arXiv asks API clients to keep between calls.
const DefaultRequestInterval = 3 * time.Second

// DefaultHTTPTimeout bounds a whole request, including reading a PDF body.
const DefaultHTTPTimeout = 5 * time.Minute

const userAgent = "arxivmcp/1.0 (+https://arxiv.org/help/api)"

// Client talks to the arXiv export API.
type Client struct {
	http    *http.Client
	baseURL string
	limiter *rate.Limiter
	logger  *logging.AppLogger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for API calls and PDF downloads.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithRequestInterval sets the minimum spacing between API requests.
// Zero disables rate limiting.
func WithRequestInterval(d time.Duration) Option {
	return func(c *Client) {
		if d <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.AppLogger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a client for the API at baseURL. An empty baseURL selects DefaultBaseURL.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		http:    &http.Client{Timeout: DefaultHTTPTimeout},
		baseURL: baseURL,
		limiter: rate.NewLimiter(rate.Every(DefaultRequestInterval), 1),
		logger:  logging.GetDefault(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LookupIDs fetches the records for the given identifiers in a single id_list
// request. Unknown or malformed identifiers are simply absent from the result.
func (c *Client) LookupIDs(ctx context.Context, ids []string) ([]Paper, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	v := url.Values{}
	v.Set("id_list", strings.Join(ids, ","))
	v.Set("max_results", fmt.Sprint(len(ids)))

	feed, err := c.query(ctx, v)
	if err != nil {
		return nil, err
	}
	return feed.papers(), nil
}

// SearchResult is one page of search results.
type SearchResult struct {
	TotalResults int
	Papers       []Paper
}

// Search runs a search_query request built from q.
func (c *Client) Search(ctx context.Context, q Query) (*SearchResult, error) {
	v, err := q.Values()
	if err != nil {
		return nil, err
	}
	feed, err := c.query(ctx, v)
	if err != nil {
		return nil, err
	}
	return &SearchResult{TotalResults: feed.TotalResults, Papers: feed.papers()}, nil
}

func (c *Client) query(ctx context.Context, v url.Values) (*atomFeed, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	start := time.Now()
	defer c.logger.LogPerformance("arxiv.query", start)

	u := c.baseURL + "?" + v.Encode()
	c.logger.Debug("arXiv API request", "url", u)

	resp, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv api: http %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("arxiv api: read response: %w", err)
	}

	var feed atomFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("parse xml: %w", err)
	}
	return &feed, nil
}

func (f *atomFeed) papers() []Paper {
	papers := make([]Paper, 0, len(f.Entries))
	for _, entry := range f.Entries {
		if entry.isErrorEntry() {
			continue
		}
		paper := parseAtomEntry(entry)
		if paper.ID == "" {
			continue
		}
		papers = append(papers, paper)
	}
	return papers
}

// DownloadPDF downloads the paper's PDF to dir/filename and returns the path.
// An existing file at that path is replaced. A partial download is removed.
func (c *Client) DownloadPDF(ctx context.Context, paper Paper, dir, filename string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, filename)

	resp, err := c.get(ctx, paper.PDFURL())
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download pdf: http %s", resp.Status)
	}

	f, err := os.CreateTemp(dir, "."+filename+".*.part")
	if err != nil {
		return "", err
	}
	tmp := f.Name()

	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmp, path)
	}
	if err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("download pdf: %w", err)
	}

	c.logger.Debug("Downloaded PDF", "paper_id", paper.ID, "path", path, "size", humanize.Bytes(uint64(n)))
	return path, nil
}

func (c *Client) get(ctx context.Context, u string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	return c.http.Do(req)
}
