package download

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"arxivmcp/internal/arxiv"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func serveHTML(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(samplePaperHTML))
}

func TestHandle_HTMLSuccess(t *testing.T) {
	var gotPath string
	env := newTestEnv(t, envOptions{html: func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		serveHTML(w, r)
	}})

	resp := env.downloader.Handle(context.Background(), Request{PaperID: "2401.00001"})

	assert.Equal(t, StatusSuccess, resp.Status)
	assert.Contains(t, resp.Message, "HTML")
	assert.Equal(t, "file://"+env.mdPath("2401.00001"), resp.ResourceURI)
	assert.True(t, strings.HasSuffix(resp.ResourceURI, "2401.00001.md"))
	assert.Equal(t, "/html/2401.00001", gotPath)
	assert.Zero(t, env.registry.Len(), "HTML path never creates a registry entry")

	content := fileContent(t, env.mdPath("2401.00001"))
	assert.True(t, strings.HasPrefix(content, "---\n"))
	assert.Contains(t, content, "source: html")
	assert.Contains(t, content, "title: Attention Revisited")
	assert.Contains(t, content, "# Attention Revisited")
	assert.Contains(t, content, "## Introduction")
	assert.Contains(t, content, "Hello")
	assert.NotContains(t, content, "trackVisitor")
	assert.NotContains(t, content, "figure1.png")
	assert.NotContains(t, content, "color: red")
	assert.NotContains(t, content, "ltx_note")
}

func TestHandle_OldStyleIDIsStoredUnderArchive(t *testing.T) {
	var gotPath string
	env := newTestEnv(t, envOptions{html: func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		serveHTML(w, r)
	}})

	resp := env.downloader.Handle(context.Background(), Request{PaperID: "hep-th/9901001"})
	require.Equal(t, StatusSuccess, resp.Status, resp.Message)
	assert.Equal(t, "/html/hep-th/9901001", gotPath)
	assert.Equal(t, filepath.Join(env.root, "hep-th", "9901001.md"), env.mdPath("hep-th/9901001"))
	assert.Equal(t, "file://"+env.mdPath("hep-th/9901001"), resp.ResourceURI)

	status := env.downloader.Handle(context.Background(), Request{PaperID: "hep-th/9901001", CheckStatus: true})
	assert.Equal(t, StatusSuccess, status.Status)

	papers, err := NewStore(env.resolver, 0).List()
	require.NoError(t, err)
	require.Len(t, papers, 1)
	assert.Equal(t, "hep-th/9901001", papers[0].PaperID)
}

func TestHandle_AlreadyAvailableIsIdempotent(t *testing.T) {
	env := newTestEnv(t, envOptions{html: serveHTML})
	writeFile(t, env.mdPath("2401.00001"), "# Stored\n")

	for i := 0; i < 2; i++ {
		resp := env.downloader.Handle(context.Background(), Request{PaperID: "2401.00001"})
		assert.Equal(t, StatusSuccess, resp.Status)
		assert.Equal(t, "Paper already available", resp.Message)
		assert.Equal(t, "file://"+env.mdPath("2401.00001"), resp.ResourceURI)
	}

	assert.Zero(t, env.htmlHits.Load(), "no network activity for stored papers")
	assert.Empty(t, env.runner.Calls(), "no subprocess for stored papers")
	assert.Equal(t, "# Stored\n", fileContent(t, env.mdPath("2401.00001")))
}

func TestHandle_InFlightRequestStartsNothing(t *testing.T) {
	env := newTestEnv(t, envOptions{html: serveHTML})
	st, created := env.registry.Begin("2401.00001")
	require.True(t, created)

	resp := env.downloader.Handle(context.Background(), Request{PaperID: "2401.00001", Format: FormatAuto})

	assert.Equal(t, StatusDownloading, resp.Status)
	assert.Equal(t, "Paper conversion downloading", resp.Message)
	assert.Equal(t, st.StartedAt.Format(time.RFC3339Nano), resp.StartedAt)
	assert.Empty(t, resp.CompletedAt)
	assert.Zero(t, env.htmlHits.Load())
	assert.Equal(t, 1, env.registry.Len())
}

func TestHandle_CheckStatus(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	ctx := context.Background()

	t.Run("unknown", func(t *testing.T) {
		resp := env.downloader.Handle(ctx, Request{PaperID: "2401.00001", CheckStatus: true})
		assert.Equal(t, StatusUnknown, resp.Status)
		assert.Equal(t, "No download or conversion in progress", resp.Message)
		assert.Empty(t, resp.ResourceURI)
	})

	t.Run("in flight", func(t *testing.T) {
		env.registry.Begin("2401.00002")
		env.registry.Advance("2401.00002", StatusConverting)
		defer env.registry.Remove("2401.00002")

		resp := env.downloader.Handle(ctx, Request{PaperID: "2401.00002", CheckStatus: true})
		assert.Equal(t, StatusConverting, resp.Status)
		assert.Equal(t, "Paper conversion converting", resp.Message)
		assert.NotEmpty(t, resp.StartedAt)
		assert.Empty(t, resp.CompletedAt)
		assert.Empty(t, resp.Error)
	})

	t.Run("terminal entry still reported", func(t *testing.T) {
		env.registry.Begin("2401.00003")
		env.registry.Complete("2401.00003", errors.New("boom"))
		defer env.registry.Remove("2401.00003")

		resp := env.downloader.Handle(ctx, Request{PaperID: "2401.00003", CheckStatus: true})
		assert.Equal(t, StatusError, resp.Status)
		assert.Equal(t, "Paper conversion error", resp.Message)
		assert.Equal(t, "boom", resp.Error)
		assert.NotEmpty(t, resp.CompletedAt)
	})

	t.Run("ready on disk", func(t *testing.T) {
		writeFile(t, env.mdPath("2401.00004"), "# Ready\n")
		resp := env.downloader.Handle(ctx, Request{PaperID: "2401.00004", CheckStatus: true})
		assert.Equal(t, StatusSuccess, resp.Status)
		assert.Equal(t, "Paper is ready", resp.Message)
		assert.Equal(t, "file://"+env.mdPath("2401.00004"), resp.ResourceURI)
	})

	assert.Zero(t, env.htmlHits.Load(), "status checks never fetch")
}

func TestHandle_HTMLFormatNeverFallsBack(t *testing.T) {
	t.Run("http status", func(t *testing.T) {
		env := newTestEnv(t, envOptions{})

		resp := env.downloader.Handle(context.Background(), Request{PaperID: "2401.00001", Format: FormatHTML})

		assert.Equal(t, StatusError, resp.Status)
		assert.Equal(t, "HTML version not available (HTTP 404)", resp.Message)
		assert.Equal(t, int32(1), env.htmlHits.Load())
		assert.Zero(t, env.registry.Len())
		assert.NoFileExists(t, env.pdfPath("2401.00001"))
	})

	t.Run("network error", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()
		env := newTestEnv(t, envOptions{htmlURL: url})

		resp := env.downloader.Handle(context.Background(), Request{PaperID: "2401.00001", Format: FormatHTML})

		assert.Equal(t, StatusError, resp.Status)
		assert.True(t, strings.HasPrefix(resp.Message, "HTML download failed: "), resp.Message)
		assert.Zero(t, env.registry.Len())
	})
}

func TestHandle_PDFFormatSkipsHTML(t *testing.T) {
	env := newTestEnv(t, envOptions{html: serveHTML})
	env.expectPDF("2401.00001", "A PDF Only Paper")

	resp := env.downloader.Handle(context.Background(), Request{PaperID: "2401.00001", Format: FormatPDF})
	require.Equal(t, StatusConverting, resp.Status, resp.Message)
	env.downloader.Wait()

	assert.Zero(t, env.htmlHits.Load())
	content := fileContent(t, env.mdPath("2401.00001"))
	assert.Contains(t, content, "source: pdf")
	assert.Contains(t, content, "title: A PDF Only Paper")
	assert.Contains(t, content, "# Converted")
	assert.NoFileExists(t, env.pdfPath("2401.00001"))
}

func TestHandle_AutoFallsBackToPDF(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	env.expectPDF("1501.10001", "Fallback")
	ctx := context.Background()

	before := time.Now()
	resp := env.downloader.Handle(ctx, Request{PaperID: "1501.10001", Format: FormatAuto})

	assert.Equal(t, StatusConverting, resp.Status)
	assert.Equal(t, "Paper downloaded, conversion started", resp.Message)
	started, err := time.Parse(time.RFC3339Nano, resp.StartedAt)
	require.NoError(t, err)
	assert.False(t, started.Before(before.Truncate(time.Second)))
	assert.Equal(t, int32(1), env.htmlHits.Load())

	env.downloader.Wait()

	// Cleanup invariant: the registry forgets finished conversions.
	_, inFlight := env.registry.Get("1501.10001")
	assert.False(t, inFlight)

	check := env.downloader.Handle(ctx, Request{PaperID: "1501.10001", CheckStatus: true})
	assert.Equal(t, StatusSuccess, check.Status)
	assert.Equal(t, "Paper is ready", check.Message)

	info, err := statSize(env.mdPath("1501.10001"))
	require.NoError(t, err)
	assert.Positive(t, info)
	assert.NoFileExists(t, env.pdfPath("1501.10001"))

	calls := env.runner.Calls()
	require.Len(t, calls, 1)
	require.Len(t, calls[0], 7)
	assert.Equal(t, []string{
		"/usr/local/bin/unpdf", "markdown", "--cleanup", "aggressive",
		env.pdfPath("1501.10001"), "-o",
	}, calls[0][:6])
	staging := calls[0][6]
	assert.Equal(t, env.root, filepath.Dir(staging))
	assert.True(t, strings.HasPrefix(filepath.Base(staging), ".1501.10001.md."), staging)
	assert.True(t, strings.HasSuffix(staging, ".part"), staging)
	assert.Empty(t, env.stagingFiles(t))
}

func TestHandle_PartialConversionIsNeverServed(t *testing.T) {
	runner := &fakeRunner{
		output:  "# Partial",
		err:     exitError(1),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	env := newTestEnv(t, envOptions{runner: runner})
	env.expectPDF("2401.00001", "Slow")
	ctx := context.Background()

	resp := env.downloader.Handle(ctx, Request{PaperID: "2401.00001", Format: FormatPDF})
	require.Equal(t, StatusConverting, resp.Status)
	<-runner.started

	again := env.downloader.Handle(ctx, Request{PaperID: "2401.00001"})
	assert.Equal(t, StatusConverting, again.Status)
	assert.Equal(t, "Paper conversion converting", again.Message)
	assert.Empty(t, again.ResourceURI)

	check := env.downloader.Handle(ctx, Request{PaperID: "2401.00001", CheckStatus: true})
	assert.Equal(t, StatusConverting, check.Status)

	store := NewStore(env.resolver, 0)
	_, err := store.Read("2401.00001")
	assert.True(t, errors.Is(err, ErrNotStored), "got %v", err)
	papers, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, papers)
	assert.NoFileExists(t, env.mdPath("2401.00001"))

	close(runner.release)
	env.downloader.Wait()

	assert.NoFileExists(t, env.mdPath("2401.00001"))
	assert.Empty(t, env.stagingFiles(t))
	final := env.downloader.Handle(ctx, Request{PaperID: "2401.00001", CheckStatus: true})
	assert.Equal(t, StatusUnknown, final.Status)
}

func TestHandle_AutoFallsBackOnNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	env := newTestEnv(t, envOptions{htmlURL: url})
	env.expectPDF("2401.00001", "")

	resp := env.downloader.Handle(context.Background(), Request{PaperID: "2401.00001"})
	assert.Equal(t, StatusConverting, resp.Status)
	env.downloader.Wait()
	assert.FileExists(t, env.mdPath("2401.00001"))
}

func TestHandle_PaperNotFound(t *testing.T) {
	tests := []struct {
		name   string
		papers []arxiv.Paper
	}{
		{name: "no records", papers: nil},
		{name: "no exact match", papers: []arxiv.Paper{{ID: "2401.99999", VersionedID: "2401.99999v1"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, envOptions{})
			env.source.EXPECT().LookupIDs(gomock.Any(), []string{"invalid.12345"}).Return(tt.papers, nil)

			resp := env.downloader.Handle(context.Background(), Request{PaperID: "invalid.12345"})

			assert.Equal(t, StatusError, resp.Status)
			assert.Contains(t, resp.Message, "not found")
			assert.Equal(t, "Paper invalid.12345 not found on arXiv", resp.Message)
			assert.Zero(t, env.registry.Len(), "failed attempts leave no registry entry")
			assert.Empty(t, env.runner.Calls())
		})
	}
}

func TestHandle_PDFPathFailuresClearRegistry(t *testing.T) {
	t.Run("lookup error", func(t *testing.T) {
		env := newTestEnv(t, envOptions{})
		env.source.EXPECT().LookupIDs(gomock.Any(), gomock.Any()).Return(nil, errors.New("arxiv api: http 503 Service Unavailable"))

		resp := env.downloader.Handle(context.Background(), Request{PaperID: "2401.00001", Format: FormatPDF})

		assert.Equal(t, StatusError, resp.Status)
		assert.True(t, strings.HasPrefix(resp.Message, "Error: "), resp.Message)
		assert.Contains(t, resp.Message, "503")
		assert.Zero(t, env.registry.Len())
	})

	t.Run("download error", func(t *testing.T) {
		env := newTestEnv(t, envOptions{})
		env.source.EXPECT().LookupIDs(gomock.Any(), gomock.Any()).Return([]arxiv.Paper{{ID: "2401.00001"}}, nil)
		env.source.EXPECT().DownloadPDF(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return("", errors.New("download pdf: http 404 Not Found"))

		resp := env.downloader.Handle(context.Background(), Request{PaperID: "2401.00001", Format: FormatPDF})

		assert.Equal(t, StatusError, resp.Status)
		assert.Equal(t, "Error: download pdf: http 404 Not Found", resp.Message)
		assert.Zero(t, env.registry.Len())
		assert.Empty(t, env.runner.Calls())
	})

	t.Run("panic", func(t *testing.T) {
		env := newTestEnv(t, envOptions{})
		env.source.EXPECT().LookupIDs(gomock.Any(), gomock.Any()).DoAndReturn(func(context.Context, []string) ([]arxiv.Paper, error) {
			panic("lookup exploded")
		})

		resp := env.downloader.Handle(context.Background(), Request{PaperID: "2401.00001", Format: FormatPDF})

		assert.Equal(t, StatusError, resp.Status)
		assert.Equal(t, "Error: lookup exploded", resp.Message)
		assert.Zero(t, env.registry.Len())
	})
}

func TestHandle_InvalidFormat(t *testing.T) {
	env := newTestEnv(t, envOptions{html: serveHTML})

	resp := env.downloader.Handle(context.Background(), Request{PaperID: "2401.00001", Format: "epub"})

	assert.Equal(t, StatusError, resp.Status)
	assert.Contains(t, resp.Message, "invalid format")
	assert.Zero(t, env.htmlHits.Load())
}

func TestHandle_ConcurrentFirstRequestsShareOneAttempt(t *testing.T) {
	release := make(chan struct{})
	env := newTestEnv(t, envOptions{html: func(w http.ResponseWriter, r *http.Request) {
		<-release
		serveHTML(w, r)
	}})

	const callers = 8
	responses := make([]Response, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			responses[i] = env.downloader.Handle(context.Background(), Request{PaperID: "2401.00001"})
		}(i)
	}

	require.Eventually(t, func() bool { return env.htmlHits.Load() >= 1 }, 5*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), env.htmlHits.Load(), "only one HTML fetch for concurrent first requests")
	for _, resp := range responses {
		assert.Equal(t, StatusSuccess, resp.Status)
		assert.Equal(t, "file://"+env.mdPath("2401.00001"), resp.ResourceURI)
	}
}

func TestHandle_CancelledCallerDoesNotFailSharedAttempt(t *testing.T) {
	release := make(chan struct{})
	env := newTestEnv(t, envOptions{html: func(w http.ResponseWriter, r *http.Request) {
		<-release
		serveHTML(w, r)
	}})

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan Response, 1)
	go func() { first <- env.downloader.Handle(ctx, Request{PaperID: "2401.00001"}) }()
	require.Eventually(t, func() bool { return env.htmlHits.Load() == 1 }, 5*time.Second, 5*time.Millisecond)

	second := make(chan Response, 1)
	go func() { second <- env.downloader.Handle(context.Background(), Request{PaperID: "2401.00001"}) }()
	time.Sleep(50 * time.Millisecond)

	cancel()
	select {
	case resp := <-first:
		assert.Equal(t, StatusError, resp.Status)
		assert.Contains(t, resp.Message, "context canceled")
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled caller kept waiting")
	}

	close(release)
	select {
	case resp := <-second:
		assert.Equal(t, StatusSuccess, resp.Status)
		assert.Equal(t, "file://"+env.mdPath("2401.00001"), resp.ResourceURI)
	case <-time.After(5 * time.Second):
		t.Fatal("shared attempt never finished")
	}
	assert.Equal(t, int32(1), env.htmlHits.Load())
	assert.FileExists(t, env.mdPath("2401.00001"))
}

func TestHandle_ConversionFailureIsObservableOnlyThroughStatus(t *testing.T) {
	env := newTestEnv(t, envOptions{lookPath: missingTool})
	env.expectPDF("2401.00001", "")
	ctx := context.Background()

	resp := env.downloader.Handle(ctx, Request{PaperID: "2401.00001", Format: FormatPDF})
	assert.Equal(t, StatusConverting, resp.Status)
	env.downloader.Wait()

	check := env.downloader.Handle(ctx, Request{PaperID: "2401.00001", CheckStatus: true})
	assert.Equal(t, StatusUnknown, check.Status)
	assert.NoFileExists(t, env.mdPath("2401.00001"))
	assert.FileExists(t, env.pdfPath("2401.00001"), "the PDF is kept when conversion fails")
	assert.Contains(t, env.logs.String(), "conversion tool not found")
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatAuto, "auto": FormatAuto, "html": FormatHTML, "pdf": FormatPDF} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("PDF")
	assert.Error(t, err)
}
