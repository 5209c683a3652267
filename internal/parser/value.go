package parser

import (
	"strconv"
	"strings"

	"github.com/kurochkinivan/table_import/internal/domain"
	"github.com/kurochkinivan/table_import/internal/inference"
	"github.com/shopspring/decimal"
)

// coerce converts a raw cell into a scalar of the detected column type. A
// value outside the sampled type keeps its raw string form; typing a late
// nonconforming row must not fail the row.
func coerce(raw string, columnType domain.ColumnType) domain.Scalar {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return domain.Null()
	}

	switch columnType {
	case domain.TypeInteger:
		if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			return domain.Int(i)
		}
	case domain.TypeDecimal:
		if d, err := decimal.NewFromString(trimmed); err == nil {
			return domain.Decimal(d)
		}
	case domain.TypeBoolean:
		if strings.EqualFold(trimmed, "true") {
			return domain.Bool(true)
		}
		if strings.EqualFold(trimmed, "false") {
			return domain.Bool(false)
		}
	case domain.TypeDatetime:
		if t, ok := inference.ParseDatetime(trimmed); ok {
			return domain.Timestamp(t)
		}
	case domain.TypeDate:
		if t, ok := inference.ParseDate(trimmed); ok {
			return domain.Timestamp(t)
		}
	}

	return domain.String(raw)
}

// looseScalar types a raw cell by its own content, used for previews where no
// detected schema exists yet.
func looseScalar(raw string) domain.Scalar {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return domain.Null()
	}

	return coerce(raw, inference.Classify(trimmed))
}

// columnName returns the header name for index i, fabricating Column{n} for
// absent or blank header cells.
func columnName(names []string, i int) string {
	if i < len(names) && strings.TrimSpace(names[i]) != "" {
		return strings.TrimSpace(names[i])
	}

	return "Column" + strconv.Itoa(i+1)
}
