package download

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"arxivmcp/internal/filemanager"
	"arxivmcp/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newConverterFixture prepares a storage root holding a PDF for paperID and a
// converting registry entry for it.
func newConverterFixture(t *testing.T, runner *fakeRunner, lookPath func(string) (string, error), opts ...ConverterOption) (*Converter, *Registry, *filemanager.Resolver, *logging.SyncBuffer) {
	t.Helper()

	logger, logs := logging.NewTestLogger()
	resolver, err := filemanager.NewResolver(t.TempDir())
	require.NoError(t, err)
	registry := NewRegistry(logger)

	opts = append([]ConverterOption{WithRunner(runner), WithLookPath(lookPath)}, opts...)
	c := NewConverter("unpdf", resolver, registry, logger, opts...)

	pdf, err := resolver.Path("2401.00001", filemanager.SuffixPDF)
	require.NoError(t, err)
	writeFile(t, pdf, "%PDF-1.4")

	registry.Begin("2401.00001")
	registry.SetTitle("2401.00001", "Converted Paper")
	registry.Advance("2401.00001", StatusConverting)
	return c, registry, resolver, logs
}

func paths(t *testing.T, r *filemanager.Resolver) (pdf, md string) {
	t.Helper()
	pdf, err := r.Path("2401.00001", filemanager.SuffixPDF)
	require.NoError(t, err)
	md, err = r.Path("2401.00001", filemanager.SuffixMarkdown)
	require.NoError(t, err)
	return pdf, md
}

func TestConvert_Success(t *testing.T) {
	runner := &fakeRunner{output: "# Converted\n\nBody.\n"}
	c, registry, resolver, _ := newConverterFixture(t, runner, foundTool)
	pdf, md := paths(t, resolver)

	c.Convert(context.Background(), "2401.00001", pdf)

	assert.Zero(t, registry.Len())
	assert.NoFileExists(t, pdf)

	content := fileContent(t, md)
	assert.True(t, strings.HasPrefix(content, "---\n"), content)
	assert.Contains(t, content, "paper_id: \"2401.00001\"")
	assert.Contains(t, content, "source: pdf")
	assert.Contains(t, content, "title: Converted Paper")
	assert.True(t, strings.HasSuffix(content, "# Converted\n\nBody.\n"))
}

func TestConvert_MissingTool(t *testing.T) {
	runner := &fakeRunner{output: "never"}
	c, registry, resolver, logs := newConverterFixture(t, runner, missingTool)
	pdf, md := paths(t, resolver)

	c.Convert(context.Background(), "2401.00001", pdf)

	assert.Zero(t, registry.Len())
	assert.NoFileExists(t, md)
	assert.FileExists(t, pdf)
	assert.Empty(t, runner.Calls())
	assert.Contains(t, logs.String(), ErrToolMissing.Error())
}

func TestConvert_ToolFailure(t *testing.T) {
	runner := &fakeRunner{output: "partial", stderr: "  error: broken xref table\n", err: exitError(3)}
	c, registry, resolver, logs := newConverterFixture(t, runner, foundTool)
	pdf, md := paths(t, resolver)

	c.Convert(context.Background(), "2401.00001", pdf)

	assert.Zero(t, registry.Len())
	assert.NoFileExists(t, md, "partial output is discarded")
	assert.FileExists(t, pdf)
	assert.Contains(t, logs.String(), "unpdf exited 3: error: broken xref table")
}

func TestConvert_NoOutput(t *testing.T) {
	tests := []struct {
		name   string
		runner *fakeRunner
	}{
		{name: "nothing written", runner: &fakeRunner{skipWrite: true}},
		{name: "zero bytes", runner: &fakeRunner{output: ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, registry, resolver, logs := newConverterFixture(t, tt.runner, foundTool)
			pdf, md := paths(t, resolver)

			c.Convert(context.Background(), "2401.00001", pdf)

			assert.Zero(t, registry.Len())
			assert.NoFileExists(t, md)
			assert.FileExists(t, pdf)
			assert.Contains(t, logs.String(), ErrNoOutput.Error())
		})
	}
}

func TestConvert_Timeout(t *testing.T) {
	runner := &fakeRunner{waitCtx: true}
	c, registry, resolver, logs := newConverterFixture(t, runner, foundTool, WithTimeout(20*time.Millisecond))
	pdf, md := paths(t, resolver)

	c.Convert(context.Background(), "2401.00001", pdf)

	assert.Zero(t, registry.Len())
	assert.NoFileExists(t, md)
	assert.Contains(t, logs.String(), "timed out")
}

func TestConvert_PanicIsRecovered(t *testing.T) {
	runner := &fakeRunner{panics: true}
	c, registry, resolver, logs := newConverterFixture(t, runner, foundTool)
	pdf, md := paths(t, resolver)

	require.NotPanics(t, func() {
		c.Convert(context.Background(), "2401.00001", pdf)
	})

	assert.Zero(t, registry.Len())
	assert.NoFileExists(t, md)
	assert.Contains(t, logs.String(), "converter exploded")
}

func TestConvert_MissingPDFIsIgnoredOnSuccess(t *testing.T) {
	runner := &fakeRunner{output: "text"}
	c, registry, resolver, _ := newConverterFixture(t, runner, foundTool)
	pdf, md := paths(t, resolver)
	require.NoError(t, removeFile(pdf))

	c.Convert(context.Background(), "2401.00001", pdf)

	assert.Zero(t, registry.Len())
	assert.FileExists(t, md)
}

func TestConvert_WithoutRegistryEntry(t *testing.T) {
	runner := &fakeRunner{output: "text"}
	c, registry, resolver, _ := newConverterFixture(t, runner, foundTool)
	registry.Remove("2401.00001")
	pdf, md := paths(t, resolver)

	c.Convert(context.Background(), "2401.00001", pdf)

	assert.Zero(t, registry.Len())
	assert.FileExists(t, md)
}

func TestToolFailedError(t *testing.T) {
	var err error = &ToolFailedError{Tool: "unpdf", ExitCode: 2}
	assert.Equal(t, "unpdf exited 2", err.Error())

	wrapped := errors.Join(errors.New("context"), err)
	var tf *ToolFailedError
	require.ErrorAs(t, wrapped, &tf)
	assert.Equal(t, 2, tf.ExitCode)
}

func TestConvert_PublishesOnlyCompleteOutput(t *testing.T) {
	runner := &fakeRunner{
		output:  "# Converted\n\nBody.\n",
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	c, registry, resolver, _ := newConverterFixture(t, runner, foundTool)
	pdf, md := paths(t, resolver)

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Convert(context.Background(), "2401.00001", pdf)
	}()

	<-runner.started
	assert.NoFileExists(t, md, "output must stay hidden while the tool runs")
	st, ok := registry.Get("2401.00001")
	require.True(t, ok)
	assert.Equal(t, StatusConverting, st.Status)

	close(runner.release)
	<-done

	content := fileContent(t, md)
	assert.True(t, strings.HasPrefix(content, "---\n"), content)
	assert.True(t, strings.HasSuffix(content, "# Converted\n\nBody.\n"))
	leftovers, err := filepath.Glob(filepath.Join(resolver.Root(), ".*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}
