// Package importer turns bank export files into ledger transactions.
//
// A Source yields raw rows. Pipeline parses them into a preview, then
// writes the confirmed rows to the ledger in one batch, skipping
// duplicates and resolving merchants on the way. Coordinator keeps at
// most one pipeline importing at a time.
package importer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Parser converts an export stream into raw rows.
type Parser interface {
	Parse(r io.Reader) ([]RawRow, error)
	Format() string
}

// Registry holds named parsers.
type Registry struct {
	parsers map[string]Parser
}

// FileInfo describes an export file waiting in the inbox.
type FileInfo struct {
	Name   string
	Path   string
	Size   int64
	Format string
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// Register adds a parser. Panics on duplicate format.
func (r *Registry) Register(p Parser) {
	key := strings.ToLower(p.Format())
	if _, ok := r.parsers[key]; ok {
		panic("duplicate parser format: " + key)
	}
	r.parsers[key] = p
}

// Get returns the parser for format, or nil.
func (r *Registry) Get(format string) Parser {
	return r.parsers[strings.ToLower(format)]
}

// ForFile picks a parser by file extension.
func (r *Registry) ForFile(path string) (Parser, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	p := r.Get(ext)
	if p == nil {
		return nil, fmt.Errorf("no parser for %q files", filepath.Ext(path))
	}
	return p, nil
}

// Open returns a FileSource for path using the parser its extension selects.
func (r *Registry) Open(path string) (FileSource, error) {
	p, err := r.ForFile(path)
	if err != nil {
		return FileSource{}, err
	}
	return FileSource{Path: path, Parser: p}, nil
}

// NewCSVParser reads comma separated exports.
func NewCSVParser() *DelimitedParser { return &DelimitedParser{format: "csv", comma: ','} }

// NewTSVParser reads tab separated exports.
func NewTSVParser() *DelimitedParser { return &DelimitedParser{format: "tsv", comma: '\t'} }

// DefaultRegistry returns a registry with all built-in parsers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewCSVParser())
	r.Register(NewTSVParser())
	return r
}

// processedDir is the inbox subdirectory imported files are moved to.
const processedDir = "processed"

// Scan returns the files in inbox that some registered parser can read.
// A missing inbox is not an error.
func (r *Registry) Scan(inbox string) ([]FileInfo, error) {
	entries, err := os.ReadDir(inbox)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading inbox: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		p, err := r.ForFile(e.Name())
		if err != nil {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name:   e.Name(),
			Path:   filepath.Join(inbox, e.Name()),
			Size:   info.Size(),
			Format: p.Format(),
		})
	}
	return files, nil
}

// MarkProcessed moves a file from the inbox to inbox/processed/.
func MarkProcessed(inbox, fileName string) error {
	src := filepath.Join(inbox, fileName)
	dstDir := filepath.Join(inbox, processedDir)

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}

	dst := filepath.Join(dstDir, fileName)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("moving %s to processed: %w", fileName, err)
	}
	return nil
}
