// Package mcp implements a Model Context Protocol (MCP) server for arxivmcp using the mcp-go library.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"arxivmcp/internal/arxiv"
	"arxivmcp/internal/download"
	"arxivmcp/internal/logging"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpsrv "github.com/mark3labs/mcp-go/server"
)

const (
	serverName    = "arxivmcp"
	serverVersion = "1.0.0"

	// EndpointPath is where the Streamable HTTP transport is mounted.
	EndpointPath = "/mcp"

	defaultMaxResults = 10
)

// Transport selects how the MCP server communicates with its client.
type Transport string

const (
	// TransportStdio uses stdin/stdout (default, for local agent integrations).
	TransportStdio Transport = "stdio"
	// TransportHTTP uses the Streamable HTTP transport.
	TransportHTTP Transport = "http"
)

// Searcher runs catalogue searches. *arxiv.Client implements it.
type Searcher interface {
	Search(ctx context.Context, q arxiv.Query) (*arxiv.SearchResult, error)
}

// Server represents an MCP server instance using mcp-go
type Server struct {
	mcp        *mcpsrv.MCPServer
	downloader *download.Downloader
	store      *download.Store
	searcher   Searcher
	maxResults int
	logger     *logging.AppLogger
}

// Option configures a Server.
type Option func(*Server)

func WithDownloader(d *download.Downloader) Option {
	return func(s *Server) { s.downloader = d }
}

func WithStore(st *download.Store) Option {
	return func(s *Server) { s.store = st }
}

// WithSearcher sets the search backend and the cap applied to max_results.
func WithSearcher(sr Searcher, maxResults int) Option {
	return func(s *Server) {
		s.searcher = sr
		if maxResults > 0 {
			s.maxResults = maxResults
		}
	}
}

func WithLogger(l *logging.AppLogger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a new MCP server. Tools are registered for every configured
// backend; the server does not listen until one of the Serve methods is called.
func New(opts ...Option) *Server {
	s := &Server{
		maxResults: 50,
		logger:     logging.GetDefault(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mcp = mcpsrv.NewMCPServer(
		serverName,
		serverVersion,
		mcpsrv.WithToolCapabilities(false),
		mcpsrv.WithPromptCapabilities(false),
		mcpsrv.WithRecovery(),
		mcpsrv.WithInstructions(instructions),
	)
	for _, t := range s.tools() {
		s.mcp.AddTool(t.Tool, t.Handler)
	}
	for _, p := range s.prompts() {
		s.mcp.AddPrompt(p.Prompt, p.Handler)
	}
	return s
}

const instructions = `You are connected to an arXiv paper server.

Use search_papers to find papers, download_paper to fetch one into the local
paper store and read_paper to read it as Markdown. Downloads that fall back to
the PDF are converted in the background: call download_paper again with
check_status=true until the status is "success". list_papers shows what is
already stored.`

// tools returns the MCP tools this server exposes.
func (s *Server) tools() []mcpsrv.ServerTool {
	var tools []mcpsrv.ServerTool
	if s.downloader != nil {
		tools = append(tools, s.toolDownloadPaper())
	}
	if s.searcher != nil {
		tools = append(tools, s.toolSearchPapers())
	}
	if s.store != nil {
		tools = append(tools, s.toolListPapers(), s.toolReadPaper())
	}
	return tools
}

// ServeStdio runs the MCP server over stdin/stdout until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	return s.serveStdio(ctx, os.Stdin, os.Stdout)
}

func (s *Server) serveStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	srv := mcpsrv.NewStdioServer(s.mcp)
	s.logger.Info("MCP server listening on stdio")
	if err := srv.Listen(ctx, in, out); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("mcp stdio server error: %w", err)
	}
	return nil
}

// Handler returns the HTTP handler serving the Streamable HTTP transport at
// EndpointPath and a liveness check at /healthz.
func (s *Server) Handler() http.Handler {
	stream := mcpsrv.NewStreamableHTTPServer(s.mcp, mcpsrv.WithEndpointPath(EndpointPath))

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, "ok\n")
	})
	r.Handle(EndpointPath, stream)
	return r
}

// ServeHTTP runs the MCP server as a Streamable HTTP server on addr until ctx
// is cancelled. addr is a host:port string such as "127.0.0.1:8484".
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("MCP server listening on http", "addr", addr, "endpoint", EndpointPath)

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("mcp http server error: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("MCP server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("mcp http server shutdown error: %w", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}

// resultErr wraps an error in a CallToolResult with IsError=true.
func resultErr(err error) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.NewTextContent(err.Error())},
		IsError: true,
	}
}

// resultJSON serialises v into a single text content item.
func resultJSON(v any) *mcplib.CallToolResult {
	data, err := json.Marshal(v)
	if err != nil {
		return resultErr(fmt.Errorf("serialise result: %w", err))
	}
	return mcplib.NewToolResultText(string(data))
}

// stringArg extracts a named string argument from a tool call request.
// Returns ("", false) if the argument is absent or not a string.
func stringArg(req mcplib.CallToolRequest, name string) (string, bool) {
	args := req.GetArguments()
	if args == nil {
		return "", false
	}
	v, ok := args[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// intArg extracts a named numeric argument from a tool call request.
func intArg(req mcplib.CallToolRequest, name string, defaultVal int) int {
	args := req.GetArguments()
	if args == nil {
		return defaultVal
	}
	switch n := args[name].(type) {
	case float64:
		return int(n)
	case int:
		return n
	}
	return defaultVal
}

// boolArg extracts a named bool argument from a tool call request.
func boolArg(req mcplib.CallToolRequest, name string, defaultVal bool) bool {
	args := req.GetArguments()
	if args == nil {
		return defaultVal
	}
	b, ok := args[name].(bool)
	if !ok {
		return defaultVal
	}
	return b
}

// stringSliceArg extracts a named array of strings. Non-string items are skipped.
func stringSliceArg(req mcplib.CallToolRequest, name string) []string {
	args := req.GetArguments()
	if args == nil {
		return nil
	}
	switch v := args[name].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
