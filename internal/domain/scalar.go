package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Kind discriminates the scalar union stored in record data.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindDecimal
	KindString
	KindTimestamp
)

// Scalar is a nullable cell value. The zero value is the null scalar.
type Scalar struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	d    decimal.Decimal
	s    string
	t    time.Time
}

func Null() Scalar                     { return Scalar{} }
func Bool(v bool) Scalar               { return Scalar{kind: KindBool, b: v} }
func Int(v int64) Scalar               { return Scalar{kind: KindInt, i: v} }
func Float(v float64) Scalar           { return Scalar{kind: KindFloat, f: v} }
func Decimal(v decimal.Decimal) Scalar { return Scalar{kind: KindDecimal, d: v} }
func String(v string) Scalar           { return Scalar{kind: KindString, s: v} }
func Timestamp(v time.Time) Scalar     { return Scalar{kind: KindTimestamp, t: v} }

func (s Scalar) Kind() Kind   { return s.kind }
func (s Scalar) IsNull() bool { return s.kind == KindNull }

func (s Scalar) BoolValue() bool               { return s.b }
func (s Scalar) IntValue() int64               { return s.i }
func (s Scalar) FloatValue() float64           { return s.f }
func (s Scalar) DecimalValue() decimal.Decimal { return s.d }
func (s Scalar) StringValue() string           { return s.s }
func (s Scalar) TimeValue() time.Time          { return s.t }

func (s Scalar) MarshalJSON() ([]byte, error) {
	switch s.kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return strconv.AppendBool(nil, s.b), nil
	case KindInt:
		return strconv.AppendInt(nil, s.i, 10), nil
	case KindFloat:
		return json.Marshal(s.f)
	case KindDecimal:
		return []byte(s.d.String()), nil
	case KindString:
		return json.Marshal(s.s)
	case KindTimestamp:
		return json.Marshal(s.t.Format(time.RFC3339Nano))
	default:
		return nil, fmt.Errorf("unknown scalar kind %d", s.kind)
	}
}

// UnmarshalJSON reconstructs a scalar from its serialized form. Numbers come
// back as ints when they have no fractional part and as floats otherwise, so
// decimals return as one of those; timestamps come back as strings. The
// persisted payload does not carry the original tag.
func (s *Scalar) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}

	switch val := v.(type) {
	case nil:
		*s = Null()
	case bool:
		*s = Bool(val)
	case json.Number:
		if i, err := strconv.ParseInt(val.String(), 10, 64); err == nil {
			*s = Int(i)
			return nil
		}
		f, err := val.Float64()
		if err != nil {
			return err
		}
		*s = Float(f)
	case string:
		*s = String(val)
	default:
		return fmt.Errorf("unexpected scalar payload %T", v)
	}

	return nil
}

// Format renders the scalar for display and substring search.
func (s Scalar) Format() string {
	switch s.kind {
	case KindNull:
		return ""
	case KindBool:
		return strconv.FormatBool(s.b)
	case KindInt:
		return strconv.FormatInt(s.i, 10)
	case KindFloat:
		return strconv.FormatFloat(s.f, 'g', -1, 64)
	case KindDecimal:
		return s.d.String()
	case KindString:
		return s.s
	case KindTimestamp:
		return s.t.Format(time.RFC3339Nano)
	default:
		return ""
	}
}
