// Package mcp provides the Model Context Protocol (MCP) server for arxivmcp using mcp-go.
//
// The server exposes arXiv as tools for AI assistants: searching the catalogue,
// downloading a paper into the local paper store, listing stored papers and
// reading one back as Markdown.
//
// # Implementation
//
// The package uses the mcp-go library (github.com/mark3labs/mcp-go). Tool
// handlers are thin adapters over the download and arxiv packages; every tool
// answers with a single text item holding a JSON document.
//
// # Tools
//
//   - download_paper: fetch a paper (HTML first, PDF fallback) or poll a
//     conversion started earlier with check_status
//   - search_papers: free-text search with category and date filters
//   - list_papers: papers already in the store
//   - read_paper: Markdown content of a stored paper
//
// # Prompts
//
//   - deep-paper-analysis: a guided, structured analysis of one paper that
//     drives the tools above
//
// # Transports
//
// The server speaks JSON-RPC over stdin/stdout by default:
//
//	arxivmcp serve
//
// or Streamable HTTP, mounted at /mcp next to a /healthz health check:
//
//	arxivmcp serve --transport http --listen 127.0.0.1:8484
//
// # Security
//
// read_paper only opens files inside the configured storage directory; paper
// identifiers are validated and symlinks leaving the directory are refused.
//
// # References
//
// - MCP Specification: https://modelcontextprotocol.io/specification
// - mcp-go Library: https://github.com/mark3labs/mcp-go
// - arXiv API: https://info.arxiv.org/help/api/index.html
package mcp
