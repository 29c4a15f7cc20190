package statement

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Parser converts a statement file into draft rows.
type Parser interface {
	Parse(r io.Reader) ([]Result, error)
	Format() string
}

// Registry holds named parsers.
type Registry struct {
	parsers map[string]Parser
}

// FileInfo describes a statement file waiting in the import directory.
type FileInfo struct {
	Name string
	Path string
	Size int64
}

// Format guesses the parser for the file from its extension: CSV exports
// go to the chase parser, PDFs to the pdf one, anything else to the
// heuristic one.
func (f FileInfo) Format() string {
	switch strings.ToLower(filepath.Ext(f.Name)) {
	case ".csv":
		return "chase"
	case ".pdf":
		return "pdf"
	}
	return "heuristic"
}

// statementFile reports whether name looks like a statement export.
func statementFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt", ".pdf":
		return true
	}
	return false
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

// DefaultRegistry returns a registry with the built-in parsers. A nil
// heuristic parser is replaced by the zero value.
func DefaultRegistry(h *HeuristicParser) *Registry {
	if h == nil {
		h = &HeuristicParser{}
	}
	r := NewRegistry()
	r.Register(h)
	r.Register(&ChaseParser{Money: h.Money})
	r.Register(&PDFParser{Heuristic: h})
	return r
}

const (
	importDir    = "import"
	processedDir = "import/processed"
)

// Scan returns the .csv, .txt and .pdf files in <repoRoot>/import/.
func Scan(repoRoot string) ([]FileInfo, error) {
	dir := filepath.Join(repoRoot, importDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading import dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !statementFile(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name: e.Name(),
			Path: filepath.Join(dir, e.Name()),
			Size: info.Size(),
		})
	}
	return files, nil
}

// MarkProcessed moves a file from import/ to import/processed/.
func MarkProcessed(repoRoot, fileName string) error {
	src := filepath.Join(repoRoot, importDir, fileName)
	dstDir := filepath.Join(repoRoot, processedDir)

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}

	if err := os.Rename(src, filepath.Join(dstDir, fileName)); err != nil {
		return fmt.Errorf("moving %s to processed: %w", fileName, err)
	}
	return nil
}
