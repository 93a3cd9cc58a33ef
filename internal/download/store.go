package download

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"arxivmcp/internal/filemanager"
	"arxivmcp/internal/validation"
	"arxivmcp/pkg/fileops"
)

// DefaultMaxReadSize limits the size of a paper returned by Read.
const DefaultMaxReadSize = 50 << 20

// frontMatterScanLimit bounds how much of each file List reads for metadata.
const frontMatterScanLimit = 64 << 10

// StoredPaper describes a Markdown paper in the store.
type StoredPaper struct {
	PaperID     string    `json:"paper_id"`
	Title       string    `json:"title,omitempty"`
	Source      string    `json:"source,omitempty"`
	Size        int64     `json:"size"`
	ModTime     time.Time `json:"modified"`
	RetrievedAt time.Time `json:"retrieved_at,omitzero"`
	Path        string    `json:"-"`
}

// Document is a stored paper read back in full.
type Document struct {
	Metadata
	Path    string
	Content string
}

// Store reads papers back from the storage root.
type Store struct {
	resolver *filemanager.Resolver
	maxSize  int64
}

// NewStore returns a Store over resolver. A maxSize <= 0 selects DefaultMaxReadSize.
func NewStore(resolver *filemanager.Resolver, maxSize int64) *Store {
	if maxSize <= 0 {
		maxSize = DefaultMaxReadSize
	}
	return &Store{resolver: resolver, maxSize: maxSize}
}

// List returns the stored papers sorted by id.
func (s *Store) List() ([]StoredPaper, error) {
	files, err := s.resolver.ListPapers()
	if err != nil {
		return nil, err
	}

	papers := make([]StoredPaper, 0, len(files))
	for _, f := range files {
		p := StoredPaper{PaperID: f.PaperID, Size: f.Size, ModTime: f.ModTime, Path: f.Path}
		if meta, err := readMetadata(f.Path); err == nil {
			p.Title = meta.Title
			p.Source = meta.Source
			p.RetrievedAt = meta.RetrievedAt
		}
		papers = append(papers, p)
	}
	return papers, nil
}

// Read returns the stored paper with its front matter split off. It returns
// ErrNotStored if the paper has not been downloaded.
func (s *Store) Read(paperID string) (*Document, error) {
	if err := validation.ValidatePaperID(paperID); err != nil {
		return nil, err
	}
	path, err := s.resolver.Path(paperID, filemanager.SuffixMarkdown)
	if err != nil {
		return nil, err
	}
	if _, err := os.Lstat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotStored, paperID)
	}
	if _, err := fileops.CheckStoredFile(path, s.resolver.Root(), s.maxSize); err != nil {
		return nil, fmt.Errorf("invalid paper file: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	meta, body, err := parseDocument(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", paperID, err)
	}
	if meta.PaperID == "" {
		meta.PaperID = paperID
	}
	return &Document{Metadata: meta, Path: path, Content: string(body)}, nil
}

func readMetadata(path string) (Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return Metadata{}, err
	}
	defer f.Close()

	meta, _, err := parseDocument(io.LimitReader(f, frontMatterScanLimit))
	return meta, err
}
