package filemanager

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"arxivmcp/internal/logging"
)

// ListPapers scans the storage root for Markdown artifacts and returns them sorted
// by paper id. Old-style identifiers such as hep-th/9901001 live one directory
// down, so archive directories directly under the root are scanned too. Hidden
// files and directories, temporary files and deeper levels are skipped.
func (r *Resolver) ListPapers() ([]PaperFile, error) {
	if err := os.MkdirAll(r.root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	var papers []PaperFile
	err := filepath.WalkDir(r.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == r.root {
				return err
			}
			logging.Debug("Skipping unreadable entry", "path", p, "error", err)
			return nil
		}
		if p == r.root {
			return nil
		}

		rel, err := filepath.Rel(r.root, p)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		depth := strings.Count(rel, "/")
		name := d.Name()

		if d.IsDir() {
			if depth > 0 || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || !isMarkdownFile(name) || !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			logging.Debug("Skipping unreadable entry", "path", p, "error", err)
			return nil
		}
		papers = append(papers, PaperFile{
			PaperID: strings.TrimSuffix(path.Clean(rel), SuffixMarkdown),
			Path:    p,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read storage directory: %w", err)
	}

	sort.Slice(papers, func(i, j int) bool { return papers[i].PaperID < papers[j].PaperID })

	logging.Debug("Scanned storage directory for papers", "fileCount", len(papers))
	return papers, nil
}

// isMarkdownFile checks if a filename carries the Markdown artifact suffix.
func isMarkdownFile(filename string) bool {
	return strings.HasSuffix(filename, SuffixMarkdown)
}
