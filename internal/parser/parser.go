// Package parser turns tabular file bytes into lazy row streams with
// automatically detected schemas.
package parser

import (
	"context"
	"io"
	"iter"

	"github.com/kurochkinivan/table_import/internal/domain"
)

// Detection is the result of schema detection: the column set plus the row
// count observed while exhausting the source.
type Detection struct {
	Columns       []domain.Column
	EstimatedRows int64
}

// Parser is the per-format capability set. Implementations stream rows
// lazily and emit ParsedRow{OK:false} for malformed rows instead of aborting.
type Parser interface {
	// Extensions lists the lowercased filename extensions this parser accepts.
	Extensions() []string

	// CanHandle reports whether the parser accepts the filename's extension.
	CanHandle(filename string) bool

	// DetectSchema samples the source to infer column types and exhausts it
	// to count rows. Callers rewind the source afterwards.
	DetectSchema(ctx context.Context, src io.ReadSeeker, opts domain.ParserOptions) (*Detection, error)

	// Preview returns up to n parsed rows without persisting anything.
	Preview(ctx context.Context, src io.ReadSeeker, opts domain.ParserOptions, n int) ([]map[string]domain.Scalar, error)

	// ParseStream yields rows in file order with 1-based row numbers over
	// yielded rows. The sequence stops on context cancellation.
	ParseStream(ctx context.Context, src io.Reader, opts domain.ParserOptions) iter.Seq[domain.ParsedRow]
}
