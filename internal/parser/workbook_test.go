package parser_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/kurochkinivan/table_import/internal/domain"
	"github.com/kurochkinivan/table_import/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T, sheet string, cells map[string]any) *bytes.Reader {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	if sheet != "Sheet1" {
		_, err := f.NewSheet(sheet)
		require.NoError(t, err)
	}

	for ref, value := range cells {
		require.NoError(t, f.SetCellValue(sheet, ref, value))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	return bytes.NewReader(buf.Bytes())
}

func TestWorkbook_DetectSchema_NativeTypes(t *testing.T) {
	t.Parallel()

	src := buildWorkbook(t, "Sheet1", map[string]any{
		"A1": true,
		"B1": 42,
		"A2": false,
		"B2": 3.14,
	})

	detection, err := parser.NewWorkbook().DetectSchema(context.Background(), src, domain.DefaultParserOptions())
	require.NoError(t, err)

	assert.Equal(t, int64(2), detection.EstimatedRows)
	require.Len(t, detection.Columns, 2)
	assert.Equal(t, "Column1", detection.Columns[0].Name)
	assert.Equal(t, domain.TypeBoolean, detection.Columns[0].DetectedType)
	assert.Equal(t, "Column2", detection.Columns[1].Name)
	assert.Equal(t, domain.TypeDecimal, detection.Columns[1].DetectedType)
}

func TestWorkbook_ParseStream_TypedCells(t *testing.T) {
	t.Parallel()

	src := buildWorkbook(t, "Sheet1", map[string]any{
		"A1": true,
		"B1": 42,
		"A2": false,
		"B2": 3.14,
	})

	rows := collectRows(t, parser.NewWorkbook(), src, domain.DefaultParserOptions())

	require.Len(t, rows, 2)
	assert.Equal(t, domain.Bool(true), rows[0].Data["Column1"])
	assert.Equal(t, domain.Float(42), rows[0].Data["Column2"])
	assert.Equal(t, domain.Bool(false), rows[1].Data["Column1"])
	assert.Equal(t, domain.Float(3.14), rows[1].Data["Column2"])
	assert.Equal(t, int64(2), rows[1].RowNumber)
}

func TestWorkbook_HeaderRow(t *testing.T) {
	t.Parallel()

	src := buildWorkbook(t, "Sheet1", map[string]any{
		"A1": "name",
		"B1": "price",
		"A2": "widget",
		"B2": 19.99,
	})

	opts := domain.DefaultParserOptions()
	opts.HasHeader = true

	rows := collectRows(t, parser.NewWorkbook(), src, opts)

	require.Len(t, rows, 1)
	assert.Equal(t, domain.String("widget"), rows[0].Data["name"])
	assert.Equal(t, domain.Float(19.99), rows[0].Data["price"])
}

func TestWorkbook_SheetSelection(t *testing.T) {
	t.Parallel()

	src := buildWorkbook(t, "Data", map[string]any{"A1": 7})

	opts := domain.DefaultParserOptions()
	opts.SheetName = "Data"

	rows := collectRows(t, parser.NewWorkbook(), src, opts)

	require.Len(t, rows, 1)
	assert.Equal(t, domain.Float(7), rows[0].Data["Column1"])
}

func TestWorkbook_MissingSheet(t *testing.T) {
	t.Parallel()

	src := buildWorkbook(t, "Sheet1", map[string]any{"A1": 1})

	opts := domain.DefaultParserOptions()
	opts.SheetName = "Nope"

	_, err := parser.NewWorkbook().DetectSchema(context.Background(), src, opts)
	require.Error(t, err)
}

func TestWorkbook_EmptyCellsAreNull(t *testing.T) {
	t.Parallel()

	src := buildWorkbook(t, "Sheet1", map[string]any{
		"A1": "a",
		"B1": "b",
		"A2": "only-first",
	})

	opts := domain.DefaultParserOptions()
	opts.HasHeader = true

	rows := collectRows(t, parser.NewWorkbook(), src, opts)

	require.Len(t, rows, 1)
	assert.Equal(t, domain.String("only-first"), rows[0].Data["a"])
	assert.True(t, rows[0].Data["b"].IsNull())
}

func TestWorkbook_Preview(t *testing.T) {
	t.Parallel()

	src := buildWorkbook(t, "Sheet1", map[string]any{
		"A1": 1,
		"A2": 2,
		"A3": 3,
	})

	rows, err := parser.NewWorkbook().Preview(context.Background(), src, domain.DefaultParserOptions(), 2)
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, domain.Float(1), rows[0]["Column1"])
}
