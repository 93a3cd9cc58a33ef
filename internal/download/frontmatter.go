package download

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/adrg/frontmatter"
	"gopkg.in/yaml.v3"
)

// Source values recorded in the front matter of stored papers.
const (
	SourceHTML = "html"
	SourcePDF  = "pdf"
)

// Metadata is the YAML front matter written at the top of stored papers.
type Metadata struct {
	PaperID     string    `yaml:"paper_id"`
	Source      string    `yaml:"source,omitempty"`
	Title       string    `yaml:"title,omitempty"`
	RetrievedAt time.Time `yaml:"retrieved_at,omitempty"`
}

// FrontMatter renders m as a front matter block followed by a blank line.
func (m Metadata) FrontMatter() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("---\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf("encode front matter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode front matter: %w", err)
	}
	buf.WriteString("---\n\n")
	return buf.Bytes(), nil
}

// parseDocument splits a stored paper into metadata and body. Files without
// front matter, or with front matter that does not parse, are returned whole
// with empty metadata.
func parseDocument(r io.Reader) (Metadata, []byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Metadata{}, nil, err
	}

	var meta Metadata
	body, err := frontmatter.Parse(bytes.NewReader(data), &meta)
	if err != nil {
		return Metadata{}, data, nil
	}
	return meta, bytes.TrimLeft(body, "\n"), nil
}
