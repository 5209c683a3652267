package parser_test

import (
	"errors"
	"testing"

	"github.com/kurochkinivan/table_import/internal/domain"
	"github.com/kurochkinivan/table_import/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Resolve(t *testing.T) {
	t.Parallel()

	registry := parser.DefaultRegistry()

	for _, filename := range []string{"data.csv", "data.TSV", "report.txt", "book.xlsx", "legacy.XLS"} {
		p, err := registry.Resolve(filename)
		require.NoError(t, err, filename)
		assert.True(t, p.CanHandle(filename), filename)
	}
}

func TestRegistry_Resolve_UnsupportedFormat(t *testing.T) {
	t.Parallel()

	registry := parser.DefaultRegistry()

	_, err := registry.Resolve("report.pdf")
	require.Error(t, err)

	var unsupported *domain.UnsupportedFormatError
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, ".pdf", unsupported.Extension)
	assert.ErrorContains(t, err, ".csv")
	assert.ErrorContains(t, err, ".xlsx")
}

func TestRegistry_Extensions(t *testing.T) {
	t.Parallel()

	registry := parser.DefaultRegistry()

	assert.Equal(t, []string{".csv", ".tsv", ".txt", ".xls", ".xlsx"}, registry.Extensions())
}
