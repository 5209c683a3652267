package parser

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/kurochkinivan/table_import/internal/domain"
)

// Registry resolves filenames to parsers by case-insensitive extension.
type Registry struct {
	byExtension map[string]Parser
}

func NewRegistry(parsers ...Parser) *Registry {
	r := &Registry{byExtension: make(map[string]Parser)}
	for _, p := range parsers {
		for _, ext := range p.Extensions() {
			r.byExtension[strings.ToLower(ext)] = p
		}
	}

	return r
}

// DefaultRegistry registers the delimited-text and workbook parsers.
func DefaultRegistry() *Registry {
	return NewRegistry(NewDelimited(), NewWorkbook())
}

// Resolve picks a parser for the filename or fails with an
// UnsupportedFormatError naming the accepted extensions.
func (r *Registry) Resolve(filename string) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	p, ok := r.byExtension[ext]
	if !ok {
		return nil, &domain.UnsupportedFormatError{
			Extension: ext,
			Supported: r.Extensions(),
		}
	}

	return p, nil
}

func hasExtension(filename, ext string) bool {
	return strings.EqualFold(filepath.Ext(filename), ext)
}

// Extensions enumerates every supported extension, sorted.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.byExtension))
	for ext := range r.byExtension {
		exts = append(exts, ext)
	}
	slices.Sort(exts)

	return exts
}
