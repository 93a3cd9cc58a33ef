package download

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"arxivmcp/internal/arxiv"
	"arxivmcp/internal/download/mock_download"
	"arxivmcp/internal/filemanager"
	"arxivmcp/internal/logging"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const samplePaperHTML = `<!DOCTYPE html>
<html>
<head><title>[2401.00001] Attention Revisited</title><style>body { color: red; }</style></head>
<body>
<h1 class="ltx_title ltx_title_document">Attention Revisited</h1>
<style>.ltx_note { display: none; }</style>
<h2>Introduction</h2>
<p>Hello <em>attention</em>.</p>
<img src="figure1.png" alt="figure">
<script>trackVisitor();</script>
</body>
</html>`

// fakeRunner stands in for the external converter. It writes output to the
// path following "-o" unless skipWrite is set.
type fakeRunner struct {
	mu    sync.Mutex
	calls [][]string

	output    string
	skipWrite bool
	stderr    string
	err       error
	panics    bool
	waitCtx   bool

	// When set, started is closed once output is written and the run then
	// blocks until release is closed.
	started chan struct{}
	release chan struct{}
}

func (r *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	r.mu.Lock()
	r.calls = append(r.calls, append([]string{name}, args...))
	r.mu.Unlock()

	if r.panics {
		panic("converter exploded")
	}
	if r.waitCtx {
		<-ctx.Done()
		return nil, nil, ctx.Err()
	}
	if out := outputPath(args); out != "" && !r.skipWrite {
		if err := os.WriteFile(out, []byte(r.output), 0644); err != nil {
			return nil, nil, err
		}
	}
	if r.started != nil {
		close(r.started)
		<-r.release
	}
	return nil, []byte(r.stderr), r.err
}

func (r *fakeRunner) Calls() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string(nil), r.calls...)
}

func outputPath(args []string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == "-o" {
			return args[i+1]
		}
	}
	return ""
}

// exitError mimics *exec.ExitError.
type exitError int

func (e exitError) Error() string { return fmt.Sprintf("exit status %d", int(e)) }
func (e exitError) ExitCode() int { return int(e) }

func foundTool(name string) (string, error) { return "/usr/local/bin/" + name, nil }

func missingTool(name string) (string, error) {
	return "", fmt.Errorf("exec: %q: executable file not found in $PATH", name)
}

type testEnv struct {
	root       string
	resolver   *filemanager.Resolver
	registry   *Registry
	source     *mock_download.MockPaperSource
	runner     *fakeRunner
	downloader *Downloader
	logs       *logging.SyncBuffer
	htmlHits   *atomic.Int32
}

type envOptions struct {
	html     http.HandlerFunc
	htmlURL  string
	runner   *fakeRunner
	lookPath func(string) (string, error)
}

func newTestEnv(t *testing.T, opts envOptions) *testEnv {
	t.Helper()

	logger, logs := logging.NewTestLogger()
	resolver, err := filemanager.NewResolver(t.TempDir())
	require.NoError(t, err)

	hits := &atomic.Int32{}
	htmlURL := opts.htmlURL
	if htmlURL == "" {
		handler := opts.html
		if handler == nil {
			handler = func(w http.ResponseWriter, r *http.Request) { http.NotFound(w, r) }
		}
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			handler(w, r)
		}))
		t.Cleanup(srv.Close)
		htmlURL = srv.URL + "/html"
	}

	runner := opts.runner
	if runner == nil {
		runner = &fakeRunner{output: "# Converted\n\nBody text.\n"}
	}
	lookPath := opts.lookPath
	if lookPath == nil {
		lookPath = foundTool
	}

	registry := NewRegistry(logger)
	converter := NewConverter("unpdf", resolver, registry, logger, WithRunner(runner), WithLookPath(lookPath))
	source := mock_download.NewMockPaperSource(gomock.NewController(t))
	html := NewHTMLFetcher(htmlURL, resolver, logger)

	return &testEnv{
		root:       resolver.Root(),
		resolver:   resolver,
		registry:   registry,
		source:     source,
		runner:     runner,
		downloader: NewDownloader(resolver, registry, html, converter, source, logger),
		logs:       logs,
		htmlHits:   hits,
	}
}

// expectPDF sets up a successful lookup and PDF download for paperID.
func (e *testEnv) expectPDF(paperID, title string) {
	e.source.EXPECT().
		LookupIDs(gomock.Any(), []string{paperID}).
		Return([]arxiv.Paper{{ID: paperID, VersionedID: paperID + "v1", Title: title}}, nil)
	e.source.EXPECT().
		DownloadPDF(gomock.Any(), gomock.Any(), e.root, paperID+".pdf").
		DoAndReturn(func(_ context.Context, _ arxiv.Paper, dir, filename string) (string, error) {
			path := filepath.Join(dir, filename)
			return path, os.WriteFile(path, []byte("%PDF-1.4 test"), 0644)
		})
}

func (e *testEnv) mdPath(paperID string) string {
	return filepath.Join(e.root, paperID+filemanager.SuffixMarkdown)
}

// stagingFiles lists hidden converter output left in the storage root.
func (e *testEnv) stagingFiles(t *testing.T) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(e.root, ".*.part"))
	require.NoError(t, err)
	return matches
}

func (e *testEnv) pdfPath(paperID string) string {
	return filepath.Join(e.root, paperID+filemanager.SuffixPDF)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func fileContent(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func statSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func removeFile(path string) error {
	return os.Remove(path)
}
