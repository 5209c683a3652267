package parser

import (
	"context"
	"fmt"
	"io"
	"iter"
	"strconv"
	"strings"

	"github.com/kurochkinivan/table_import/internal/domain"
	"github.com/kurochkinivan/table_import/internal/inference"
	"github.com/xuri/excelize/v2"
)

// Workbook parses spreadsheet workbooks over the selected sheet's used range.
// Cell values are typed from their formatted text, not from the cell's stored
// type: TRUE/FALSE become booleans, numeric text becomes floats, and text
// matching the timestamp layouts becomes timestamps; anything else stays a
// string. Only OOXML workbooks open; a legacy binary .xls file is accepted by
// extension but fails to open.
type Workbook struct{}

func NewWorkbook() *Workbook { return &Workbook{} }

func (*Workbook) Extensions() []string {
	return []string{".xlsx", ".xls"}
}

func (p *Workbook) CanHandle(filename string) bool {
	return canHandle(p, filename)
}

func (p *Workbook) DetectSchema(
	ctx context.Context,
	src io.ReadSeeker,
	opts domain.ParserOptions,
) (*Detection, error) {
	opts = opts.Normalized()

	file, rows, err := p.openRows(src, opts)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	defer rows.Close()

	names, ok, err := p.begin(rows, opts)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &Detection{}, nil
	}

	var (
		total   int64
		width   = len(names)
		samples [][]string
	)

	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cells, err := rows.Columns()

		total++

		if err != nil {
			continue
		}

		if len(samples) < inference.SampleLimit {
			samples = append(samples, cells)
			if len(cells) > width {
				width = len(cells)
			}
		}
	}

	columns := make([]domain.Column, width)
	for i := range width {
		var kinds []domain.ColumnType
		for _, cells := range samples {
			if i >= len(cells) || strings.TrimSpace(cells[i]) == "" {
				continue
			}
			kinds = append(kinds, cellType(cells[i]))
		}

		columns[i] = domain.Column{
			Name:         columnName(names, i),
			Index:        i,
			DetectedType: inference.Modal(kinds),
		}
	}

	return &Detection{Columns: columns, EstimatedRows: total}, nil
}

func (p *Workbook) Preview(
	ctx context.Context,
	src io.ReadSeeker,
	opts domain.ParserOptions,
	n int,
) ([]map[string]domain.Scalar, error) {
	opts = opts.Normalized()

	file, rows, err := p.openRows(src, opts)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	defer rows.Close()

	names, ok, err := p.begin(rows, opts)
	if err != nil || !ok {
		return nil, err
	}

	previews := make([]map[string]domain.Scalar, 0, n)
	for len(previews) < n && rows.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cells, err := rows.Columns()
		if err != nil {
			continue
		}

		previews = append(previews, cellsToRow(cells, names))
	}

	return previews, nil
}

func (p *Workbook) ParseStream(
	ctx context.Context,
	src io.Reader,
	opts domain.ParserOptions,
) iter.Seq[domain.ParsedRow] {
	opts = opts.Normalized()

	return func(yield func(domain.ParsedRow) bool) {
		file, rows, err := p.openRows(src, opts)
		if err != nil {
			return
		}
		defer file.Close()
		defer rows.Close()

		names, ok, err := p.begin(rows, opts)
		if err != nil || !ok {
			return
		}
		if len(names) == 0 {
			names = detectedNames(opts.Columns)
		}

		var rowNumber int64
		for rows.Next() {
			if ctx.Err() != nil {
				return
			}

			cells, err := rows.Columns()

			rowNumber++

			if err != nil {
				if !yield(domain.ParsedRow{RowNumber: rowNumber, ErrorMessage: err.Error()}) {
					return
				}
				continue
			}

			data := cellsToRow(cells, names)

			if !yield(domain.ParsedRow{Data: data, RowNumber: rowNumber, OK: true}) {
				return
			}
		}
	}
}

func (p *Workbook) openRows(src io.Reader, opts domain.ParserOptions) (*excelize.File, *excelize.Rows, error) {
	file, err := excelize.OpenReader(src)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open workbook: %w", err)
	}

	sheet := opts.SheetName
	if sheet == "" {
		sheets := file.GetSheetList()
		if len(sheets) == 0 {
			file.Close()
			return nil, nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := file.Rows(sheet)
	if err != nil {
		file.Close()
		return nil, nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}

	return file, rows, nil
}

// begin advances past skipped rows and the header. ok is false when the sheet
// runs out before any data row can follow.
func (p *Workbook) begin(rows *excelize.Rows, opts domain.ParserOptions) (names []string, ok bool, err error) {
	for range opts.SkipRows {
		if !rows.Next() {
			return nil, false, rows.Error()
		}
	}

	if !opts.HasHeader {
		return nil, true, nil
	}

	if !rows.Next() {
		return nil, false, rows.Error()
	}

	header, err := rows.Columns()
	if err != nil {
		return nil, false, fmt.Errorf("failed to read header: %w", err)
	}

	names = make([]string, len(header))
	for i := range header {
		names[i] = columnName(header, i)
	}

	return names, true, nil
}

// cellsToRow maps cells onto column names, padding rows that stop short of
// the header width with nulls.
func cellsToRow(cells []string, names []string) map[string]domain.Scalar {
	width := len(cells)
	if len(names) > width {
		width = len(names)
	}

	row := make(map[string]domain.Scalar, width)
	for i := range width {
		if i < len(cells) {
			row[columnName(names, i)] = cellScalar(cells[i])
		} else {
			row[columnName(names, i)] = domain.Null()
		}
	}

	return row
}

// cellScalar types a workbook cell by its content. Numbers become floats,
// matching how spreadsheet engines store them.
func cellScalar(cell string) domain.Scalar {
	trimmed := strings.TrimSpace(cell)
	if trimmed == "" {
		return domain.Null()
	}

	if strings.EqualFold(trimmed, "true") {
		return domain.Bool(true)
	}
	if strings.EqualFold(trimmed, "false") {
		return domain.Bool(false)
	}

	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return domain.Float(f)
	}

	if t, ok := inference.ParseDatetime(trimmed); ok {
		return domain.Timestamp(t)
	}
	if t, ok := inference.ParseDate(trimmed); ok {
		return domain.Timestamp(t)
	}

	return domain.String(trimmed)
}

// cellType classifies a cell for schema sampling. All numeric content maps to
// decimal because the sheet stores a single floating numeric type.
func cellType(cell string) domain.ColumnType {
	switch cellScalar(cell).Kind() {
	case domain.KindBool:
		return domain.TypeBoolean
	case domain.KindFloat:
		return domain.TypeDecimal
	case domain.KindTimestamp:
		return domain.TypeDatetime
	default:
		return domain.TypeString
	}
}
