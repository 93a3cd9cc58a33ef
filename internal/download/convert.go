package download

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"arxivmcp/internal/filemanager"
	"arxivmcp/internal/logging"
	"arxivmcp/internal/validation"
	"arxivmcp/pkg/fileops"

	"github.com/dustin/go-humanize"
)

// DefaultConverterBinary is the PDF to Markdown executable looked up on PATH.
const DefaultConverterBinary = "unpdf"

const conversionTimeout = 120 * time.Second

// Converter turns a downloaded PDF into the paper's Markdown file by running an
// external tool. Outcomes are reported only through the Registry and the
// filesystem.
type Converter struct {
	binary   string
	runner   Runner
	lookPath func(string) (string, error)
	timeout  time.Duration
	resolver *filemanager.Resolver
	registry *Registry
	logger   *logging.AppLogger
	now      func() time.Time
}

// ConverterOption configures a Converter.
type ConverterOption func(*Converter)

// WithRunner replaces the command runner.
func WithRunner(r Runner) ConverterOption {
	return func(c *Converter) { c.runner = r }
}

// WithLookPath replaces the executable lookup, exec.LookPath by default.
func WithLookPath(fn func(string) (string, error)) ConverterOption {
	return func(c *Converter) { c.lookPath = fn }
}

// WithTimeout overrides the conversion timeout.
func WithTimeout(d time.Duration) ConverterOption {
	return func(c *Converter) { c.timeout = d }
}

func NewConverter(binary string, resolver *filemanager.Resolver, registry *Registry, logger *logging.AppLogger, opts ...ConverterOption) *Converter {
	if binary == "" {
		binary = DefaultConverterBinary
	}
	if logger == nil {
		logger = logging.GetDefault()
	}
	c := &Converter{
		binary:   binary,
		runner:   execRunner{logger: logger},
		lookPath: exec.LookPath,
		timeout:  conversionTimeout,
		resolver: resolver,
		registry: registry,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Convert converts pdfPath into the Markdown file for paperID. On success the
// PDF is removed. Whatever happens, the registry entry for paperID is completed
// and then removed before Convert returns.
//
// The tool writes to a hidden staging file next to the final path; the paper
// only appears under its own name once the output is validated and carries its
// front matter.
func (c *Converter) Convert(ctx context.Context, paperID, pdfPath string) {
	st, _ := c.registry.Get(paperID)
	log := c.logger.With("paper_id", paperID, "job_id", st.JobID)
	start := time.Now()

	defer c.registry.Remove(paperID)
	defer func() {
		if r := recover(); r != nil {
			log.Error("Conversion panicked", "panic", r)
			c.registry.Complete(paperID, fmt.Errorf("conversion panicked: %v", r))
		}
	}()

	log.Info("Starting conversion", "pdf", pdfPath)
	meta := Metadata{PaperID: paperID, Source: SourcePDF, Title: st.Title}
	mdPath, err := c.convert(ctx, meta, pdfPath)
	if err != nil {
		log.Error("Conversion failed", "error", err)
		c.registry.Complete(paperID, err)
		return
	}
	c.registry.Complete(paperID, nil)

	if err := fileops.RemoveIfExists(pdfPath); err != nil {
		log.Warn("Failed to remove PDF", "path", pdfPath, "error", err)
	}
	log.Info("Conversion completed", "path", mdPath, "duration", time.Since(start).Round(time.Millisecond))
}

func (c *Converter) convert(ctx context.Context, meta Metadata, pdfPath string) (string, error) {
	exe, err := c.lookPath(c.binary)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrToolMissing, c.binary)
	}

	mdPath, err := c.resolver.Path(meta.PaperID, filemanager.SuffixMarkdown)
	if err != nil {
		return "", err
	}
	staging, err := stagingPath(mdPath)
	if err != nil {
		return "", err
	}
	// After a successful rename there is nothing left to remove.
	defer c.discard(staging)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, stderr, err := c.runner.Run(ctx, exe, "markdown", "--cleanup", "aggressive", pdfPath, "-o", staging)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%s timed out after %s", c.binary, c.timeout)
		}
		var ec exitCoder
		if errors.As(err, &ec) {
			return "", &ToolFailedError{
				Tool:     c.binary,
				ExitCode: ec.ExitCode(),
				Stderr:   truncate(strings.TrimSpace(string(stderr)), maxErrorLen),
			}
		}
		return "", fmt.Errorf("run %s: %w", c.binary, err)
	}

	if err := validation.ValidateMarkdownFile(staging); err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoOutput, err)
	}
	if info, err := os.Stat(staging); err == nil {
		c.logger.Debug("Converted paper", "paper_id", meta.PaperID, "size", humanize.Bytes(uint64(info.Size())))
	}

	meta.RetrievedAt = c.now()
	if header, err := meta.FrontMatter(); err != nil {
		c.logger.Warn("Skipping front matter", "paper_id", meta.PaperID, "error", err)
	} else if err := fileops.AtomicPrepend(staging, header); err != nil {
		c.logger.Warn("Failed to add front matter", "paper_id", meta.PaperID, "error", err)
	}

	if err := os.Rename(staging, mdPath); err != nil {
		return "", fmt.Errorf("publish %s: %w", filepath.Base(mdPath), err)
	}
	return mdPath, nil
}

// stagingPath reserves a unique hidden name beside mdPath. The placeholder is
// removed again so the tool creates the file itself.
func stagingPath(mdPath string) (string, error) {
	dir := filepath.Dir(mdPath)
	if err := fileops.EnsureDirectoryExists(dir); err != nil {
		return "", err
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(mdPath)+".*.part")
	if err != nil {
		return "", fmt.Errorf("create staging file: %w", err)
	}
	name := f.Name()
	f.Close()
	if err := os.Remove(name); err != nil {
		return "", fmt.Errorf("create staging file: %w", err)
	}
	return name, nil
}

// discard removes partial output so a failed run never leaves files behind.
func (c *Converter) discard(path string) {
	if err := fileops.RemoveIfExists(path); err != nil {
		c.logger.Warn("Failed to remove partial output", "path", path, "error", err)
	}
}
