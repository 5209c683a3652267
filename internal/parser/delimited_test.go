package parser_test

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/kurochkinivan/table_import/internal/domain"
	"github.com/kurochkinivan/table_import/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func commaOptions() domain.ParserOptions {
	opts := domain.DefaultParserOptions()
	opts.Delimiter = ','
	opts.HasHeader = true

	return opts
}

func collectRows(t *testing.T, p parser.Parser, src io.Reader, opts domain.ParserOptions) []domain.ParsedRow {
	t.Helper()

	var rows []domain.ParsedRow
	for row := range p.ParseStream(context.Background(), src, opts) {
		rows = append(rows, row)
	}

	return rows
}

func TestDelimited_DetectSchema_IntegerColumns(t *testing.T) {
	t.Parallel()

	src := bytes.NewReader([]byte("a,b,c\n1,2,3\n4,5,6\n"))

	detection, err := parser.NewDelimited().DetectSchema(context.Background(), src, commaOptions())
	require.NoError(t, err)

	assert.Equal(t, int64(2), detection.EstimatedRows)
	require.Len(t, detection.Columns, 3)

	for i, name := range []string{"a", "b", "c"} {
		assert.Equal(t, name, detection.Columns[i].Name)
		assert.Equal(t, i, detection.Columns[i].Index)
		assert.Equal(t, domain.TypeInteger, detection.Columns[i].DetectedType)
	}
}

func TestDelimited_ParseStream_TypedValues(t *testing.T) {
	t.Parallel()

	p := parser.NewDelimited()
	opts := commaOptions()
	src := bytes.NewReader([]byte("a,b,c\n1,2,3\n4,5,6\n"))

	detection, err := p.DetectSchema(context.Background(), src, opts)
	require.NoError(t, err)

	_, err = src.Seek(0, io.SeekStart)
	require.NoError(t, err)

	opts.Columns = detection.Columns
	rows := collectRows(t, p, src, opts)

	require.Len(t, rows, 2)
	assert.Equal(t, domain.ParsedRow{
		Data:      map[string]domain.Scalar{"a": domain.Int(1), "b": domain.Int(2), "c": domain.Int(3)},
		RowNumber: 1,
		OK:        true,
	}, rows[0])
	assert.Equal(t, domain.ParsedRow{
		Data:      map[string]domain.Scalar{"a": domain.Int(4), "b": domain.Int(5), "c": domain.Int(6)},
		RowNumber: 2,
		OK:        true,
	}, rows[1])
}

func TestDelimited_MixedColumnFallsBackToString(t *testing.T) {
	t.Parallel()

	p := parser.NewDelimited()
	opts := commaOptions()
	content := []byte("x\n1\ntwo\n3\n")

	src := bytes.NewReader(content)
	detection, err := p.DetectSchema(context.Background(), src, opts)
	require.NoError(t, err)

	require.Len(t, detection.Columns, 1)
	assert.Equal(t, domain.TypeString, detection.Columns[0].DetectedType)

	opts.Columns = detection.Columns
	rows := collectRows(t, p, bytes.NewReader(content), opts)

	require.Len(t, rows, 3)
	for i, want := range []string{"1", "two", "3"} {
		require.True(t, rows[i].OK)
		assert.Equal(t, domain.String(want), rows[i].Data["x"])
	}
}

func TestDelimited_DefaultDelimiterIsSemicolon(t *testing.T) {
	t.Parallel()

	opts := domain.DefaultParserOptions()
	opts.HasHeader = true

	rows := collectRows(t, parser.NewDelimited(), strings.NewReader("a;b\n1;2\n"), opts)

	require.Len(t, rows, 1)
	assert.Equal(t, domain.String("1"), rows[0].Data["a"])
	assert.Equal(t, domain.String("2"), rows[0].Data["b"])
}

func TestDelimited_SkipRowsBeforeHeader(t *testing.T) {
	t.Parallel()

	opts := commaOptions()
	opts.SkipRows = 2
	content := "junk line one\njunk line two\na,b\n1,2\n"

	detection, err := parser.NewDelimited().DetectSchema(context.Background(), strings.NewReader(content), opts)
	require.NoError(t, err)

	require.Len(t, detection.Columns, 2)
	assert.Equal(t, "a", detection.Columns[0].Name)
	assert.Equal(t, int64(1), detection.EstimatedRows)
}

func TestDelimited_BlankHeaderCellsAreFabricated(t *testing.T) {
	t.Parallel()

	opts := commaOptions()

	detection, err := parser.NewDelimited().DetectSchema(context.Background(), strings.NewReader("a,,c\n1,2,3\n"), opts)
	require.NoError(t, err)

	require.Len(t, detection.Columns, 3)
	assert.Equal(t, "a", detection.Columns[0].Name)
	assert.Equal(t, "Column2", detection.Columns[1].Name)
	assert.Equal(t, "c", detection.Columns[2].Name)
}

func TestDelimited_NoHeaderFabricatesAllNames(t *testing.T) {
	t.Parallel()

	opts := domain.DefaultParserOptions()
	opts.Delimiter = ','

	detection, err := parser.NewDelimited().DetectSchema(context.Background(), strings.NewReader("1,2\n3,4\n"), opts)
	require.NoError(t, err)

	require.Len(t, detection.Columns, 2)
	assert.Equal(t, "Column1", detection.Columns[0].Name)
	assert.Equal(t, "Column2", detection.Columns[1].Name)
	assert.Equal(t, domain.TypeInteger, detection.Columns[0].DetectedType)
}

func TestDelimited_MalformedRowDoesNotAbortStream(t *testing.T) {
	t.Parallel()

	opts := commaOptions()
	content := "a,b\n1,2\n3,\"4\"x\n5,6\n"

	rows := collectRows(t, parser.NewDelimited(), strings.NewReader(content), opts)

	require.Len(t, rows, 3)
	assert.True(t, rows[0].OK)
	assert.False(t, rows[1].OK)
	assert.NotEmpty(t, rows[1].ErrorMessage)
	assert.True(t, rows[2].OK)
	assert.Equal(t, int64(3), rows[2].RowNumber)
}

func TestDelimited_EmptyCellsAreNull(t *testing.T) {
	t.Parallel()

	opts := commaOptions()

	rows := collectRows(t, parser.NewDelimited(), strings.NewReader("a,b\n1,\n"), opts)

	require.Len(t, rows, 1)
	assert.True(t, rows[0].Data["b"].IsNull())
}

func TestDelimited_Preview(t *testing.T) {
	t.Parallel()

	opts := commaOptions()
	src := bytes.NewReader([]byte("a,b\n1,x\n2,y\n3,z\n"))

	rows, err := parser.NewDelimited().Preview(context.Background(), src, opts, 2)
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, domain.Int(1), rows[0]["a"])
	assert.Equal(t, domain.String("x"), rows[0]["b"])
}

func TestDetector_RewindsSource(t *testing.T) {
	t.Parallel()

	detector := parser.NewDetector(parser.DefaultRegistry())
	src := bytes.NewReader([]byte("a,b\n1,2\n3,4\n"))

	detection, err := detector.Detect(context.Background(), "data.csv", src, commaOptions())
	require.NoError(t, err)
	assert.Equal(t, int64(2), detection.EstimatedRows)

	pos, err := src.Seek(0, io.SeekCurrent)
	require.NoError(t, err)
	assert.Zero(t, pos)
}

func TestDetector_UnsupportedFormat(t *testing.T) {
	t.Parallel()

	detector := parser.NewDetector(parser.DefaultRegistry())

	_, err := detector.Detect(context.Background(), "report.pdf", bytes.NewReader(nil), domain.DefaultParserOptions())

	var unsupported *domain.UnsupportedFormatError
	require.ErrorAs(t, err, &unsupported)
}
