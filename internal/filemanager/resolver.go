package filemanager

import (
	"fmt"
	"os"
	"path/filepath"

	"arxivmcp/pkg/fileops"
)

// Resolver maps a paper identifier and suffix to a location in the storage root.
//
// The layout is flat: {root}/{paperID}{suffix}. Identifiers are not validated;
// callers pass arXiv-style ids and an unusual id only yields an unusual filename.
type Resolver struct {
	root string
}

// NewResolver returns a Resolver for root. "~/" is expanded and the path is made
// absolute; the directory itself is created lazily by Path.
func NewResolver(root string) (*Resolver, error) {
	if root == "" {
		return nil, fmt.Errorf("storage directory cannot be empty")
	}
	abs, err := filepath.Abs(ExpandPath(root))
	if err != nil {
		return nil, fmt.Errorf("cannot resolve storage directory: %w", err)
	}
	return &Resolver{root: abs}, nil
}

// Root returns the absolute storage root.
func (r *Resolver) Root() string {
	return r.root
}

// Path returns the artifact path for paperID and suffix, creating the directory
// that will hold it if it does not exist yet. That is the storage root, or the
// archive directory below it for old-style ids like hep-th/9901001.
func (r *Resolver) Path(paperID, suffix string) (string, error) {
	p := filepath.Join(r.root, paperID+suffix)
	if err := fileops.EnsureDirectoryExists(filepath.Dir(p)); err != nil {
		return "", err
	}
	return p, nil
}

// Exists reports whether the artifact for paperID and suffix is present.
func (r *Resolver) Exists(paperID, suffix string) bool {
	path, err := r.Path(paperID, suffix)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}
