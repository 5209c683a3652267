package parser

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"iter"

	"github.com/kurochkinivan/table_import/internal/domain"
	"github.com/kurochkinivan/table_import/internal/inference"
)

// Delimited parses character-separated text files. Rows may have ragged
// widths; the widest sampled row defines the column count.
type Delimited struct{}

func NewDelimited() *Delimited { return &Delimited{} }

func (*Delimited) Extensions() []string {
	return []string{".csv", ".tsv", ".txt"}
}

func (p *Delimited) CanHandle(filename string) bool {
	return canHandle(p, filename)
}

func (p *Delimited) DetectSchema(
	ctx context.Context,
	src io.ReadSeeker,
	opts domain.ParserOptions,
) (*Detection, error) {
	opts = opts.Normalized()

	r := p.newReader(src, opts)

	names, err := p.begin(r, opts)
	if err != nil {
		return nil, err
	}

	var (
		total   int64
		width   = len(names)
		samples [][]string
	)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		total++

		if err != nil {
			continue
		}

		if len(samples) < inference.SampleLimit {
			samples = append(samples, rec)
			if len(rec) > width {
				width = len(rec)
			}
		}
	}

	columns := make([]domain.Column, width)
	for i := range width {
		var cells []string
		for _, rec := range samples {
			if i < len(rec) {
				cells = append(cells, rec[i])
			}
		}

		columns[i] = domain.Column{
			Name:         columnName(names, i),
			Index:        i,
			DetectedType: inference.Aggregate(cells),
		}
	}

	return &Detection{Columns: columns, EstimatedRows: total}, nil
}

func (p *Delimited) Preview(
	ctx context.Context,
	src io.ReadSeeker,
	opts domain.ParserOptions,
	n int,
) ([]map[string]domain.Scalar, error) {
	opts = opts.Normalized()

	r := p.newReader(src, opts)

	names, err := p.begin(r, opts)
	if err != nil {
		return nil, err
	}

	rows := make([]map[string]domain.Scalar, 0, n)
	for len(rows) < n {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			continue
		}

		row := make(map[string]domain.Scalar, len(rec))
		for i, raw := range rec {
			row[columnName(names, i)] = looseScalar(raw)
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func (p *Delimited) ParseStream(
	ctx context.Context,
	src io.Reader,
	opts domain.ParserOptions,
) iter.Seq[domain.ParsedRow] {
	opts = opts.Normalized()

	return func(yield func(domain.ParsedRow) bool) {
		r := p.newReader(src, opts)

		names, err := p.begin(r, opts)
		if err != nil {
			return
		}
		if len(names) == 0 {
			names = detectedNames(opts.Columns)
		}

		var rowNumber int64
		for {
			if ctx.Err() != nil {
				return
			}

			rec, err := r.Read()
			if errors.Is(err, io.EOF) {
				return
			}

			rowNumber++

			if err != nil {
				if !yield(domain.ParsedRow{RowNumber: rowNumber, ErrorMessage: err.Error()}) {
					return
				}
				continue
			}

			data := make(map[string]domain.Scalar, len(rec))
			for i, raw := range rec {
				data[columnName(names, i)] = coerce(raw, typeAt(opts.Columns, i))
			}

			if !yield(domain.ParsedRow{Data: data, RowNumber: rowNumber, OK: true}) {
				return
			}
		}
	}
}

func (p *Delimited) newReader(src io.Reader, opts domain.ParserOptions) *csv.Reader {
	r := csv.NewReader(src)
	r.Comma = opts.Delimiter
	r.FieldsPerRecord = -1

	return r
}

// begin consumes skipped rows and, when configured, the header row. An EOF
// here means the stream has no data rows; begin reports that as empty names
// and leaves the reader drained.
func (p *Delimited) begin(r *csv.Reader, opts domain.ParserOptions) ([]string, error) {
	for range opts.SkipRows {
		if _, err := r.Read(); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, nil
			}
			return nil, err
		}
	}

	if !opts.HasHeader {
		return nil, nil
	}

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}

	names := make([]string, len(header))
	for i := range header {
		names[i] = columnName(header, i)
	}

	return names, nil
}

func canHandle(p Parser, filename string) bool {
	for _, ext := range p.Extensions() {
		if hasExtension(filename, ext) {
			return true
		}
	}

	return false
}

func detectedNames(columns []domain.Column) []string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}

	return names
}

func typeAt(columns []domain.Column, i int) domain.ColumnType {
	if i < len(columns) {
		return columns[i].DetectedType
	}

	return domain.TypeString
}
