// Package inference classifies string samples into column types.
package inference

import (
	"strconv"
	"strings"
	"time"

	"github.com/kurochkinivan/table_import/internal/domain"
	"github.com/shopspring/decimal"
)

// SampleLimit caps how many samples a column aggregation considers.
const SampleLimit = 100

// modalShare is the minimum share the modal type needs before it is accepted.
const modalShare = 0.8

var datetimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"01/02/2006 15:04:05",
	"02.01.2006 15:04:05",
}

var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"02.01.2006",
}

// classification priority, also the tie-break order for Modal.
var priority = []domain.ColumnType{
	domain.TypeInteger,
	domain.TypeDecimal,
	domain.TypeBoolean,
	domain.TypeDatetime,
	domain.TypeDate,
	domain.TypeString,
}

// Classify maps a single sample onto the closed type set. An empty or
// whitespace-only sample carries no evidence and classifies as string.
func Classify(sample string) domain.ColumnType {
	s := strings.TrimSpace(sample)
	if s == "" {
		return domain.TypeString
	}

	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		return domain.TypeInteger
	}

	if _, err := decimal.NewFromString(s); err == nil {
		return domain.TypeDecimal
	}

	if strings.EqualFold(s, "true") || strings.EqualFold(s, "false") {
		return domain.TypeBoolean
	}

	if _, ok := ParseDatetime(s); ok {
		return domain.TypeDatetime
	}

	if _, ok := ParseDate(s); ok {
		return domain.TypeDate
	}

	return domain.TypeString
}

// Aggregate classifies up to SampleLimit non-empty samples and returns the
// modal type, falling back to string when no type reaches the acceptance
// share. Zero samples resolve to string.
func Aggregate(samples []string) domain.ColumnType {
	types := make([]domain.ColumnType, 0, len(samples))
	for _, sample := range samples {
		if strings.TrimSpace(sample) == "" {
			continue
		}
		if len(types) == SampleLimit {
			break
		}
		types = append(types, Classify(sample))
	}

	return Modal(types)
}

// Modal picks the most frequent type out of pre-classified samples, accepting
// it only at a share of modalShare or above. Ties resolve in classification
// priority order.
func Modal(types []domain.ColumnType) domain.ColumnType {
	if len(types) == 0 {
		return domain.TypeString
	}

	counts := make(map[domain.ColumnType]int, len(types))
	for _, t := range types {
		counts[t]++
	}

	best := domain.TypeString
	bestCount := 0
	for _, t := range priority {
		if counts[t] > bestCount {
			best = t
			bestCount = counts[t]
		}
	}

	if float64(bestCount) < modalShare*float64(len(types)) {
		return domain.TypeString
	}

	return best
}

// ParseDatetime parses a timestamp with a time component.
func ParseDatetime(s string) (time.Time, bool) {
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

// ParseDate parses a date-only value.
func ParseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}
