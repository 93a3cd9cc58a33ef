// Package download fetches arXiv papers and turns them into Markdown files in the
// paper store.
//
// A Downloader answers download requests. It prefers a Markdown file already on
// disk, then any conversion in flight, and otherwise starts a new attempt: the
// arXiv HTML rendering first and, failing that, the PDF converted by an external
// tool in the background. Progress of background conversions is kept in a
// Registry that callers poll through the same Downloader.
//
// The presence of {storage}/{paper_id}.md is the completion signal; the Registry
// only ever describes work that has not finished yet.
package download
