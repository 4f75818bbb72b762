package types

import (
	"fmt"
	"math/big"

	"github.com/nrktql/fileql/date"
)

// Value is a tagged union over the ten data types. The zero
// Value is a typed null (Type == Null).
type Value struct {
	Type DataType

	b    bool
	i    int64
	f    float64
	dec  *big.Rat
	s    string // also backs JSON (raw text) and String
	when date.Time
}

func NullValue() Value { return Value{Type: Null} }

func BoolValue(b bool) Value { return Value{Type: Boolean, b: b} }

func IntValue(i int64) Value { return Value{Type: Integer, i: i} }

func FloatValue(f float64) Value { return Value{Type: Float, f: f} }

func DecimalValue(r *big.Rat) Value { return Value{Type: Decimal, dec: r} }

func StringValue(s string) Value { return Value{Type: String, s: s} }

func JSONValue(raw string) Value { return Value{Type: JSON, s: raw} }

func DateValue(t date.Time) Value { return Value{Type: Date, when: t} }

func TimeValue(t date.Time) Value { return Value{Type: Time, when: t} }

func DatetimeValue(t date.Time) Value { return Value{Type: Datetime, when: t} }

func (v Value) IsNull() bool { return v.Type == Null }

func (v Value) Bool() bool { return v.b }

func (v Value) Int() int64 { return v.i }

func (v Value) Float() float64 {
	switch v.Type {
	case Float:
		return v.f
	case Integer:
		return float64(v.i)
	case Decimal:
		f, _ := v.dec.Float64()
		return f
	default:
		return 0
	}
}

func (v Value) Decimal() *big.Rat { return v.dec }

func (v Value) String() string {
	switch v.Type {
	case Null:
		return ""
	case Boolean:
		if v.b {
			return "true"
		}
		return "false"
	case Integer:
		return fmt.Sprintf("%d", v.i)
	case Float:
		return fmt.Sprintf("%g", v.f)
	case Decimal:
		return v.dec.RatString()
	case String, JSON:
		return v.s
	case Date, Time, Datetime:
		return v.when.String()
	default:
		return ""
	}
}

func (v Value) Time() date.Time { return v.when }

// AsFloat64 produces a float64 representation of any numeric
// value, for use in arithmetic promotion; ok is false for
// non-numeric types.
func (v Value) AsFloat64() (float64, bool) {
	switch v.Type {
	case Integer, Float, Decimal:
		return v.Float(), true
	default:
		return 0, false
	}
}

// Compare orders two values of comparable types (per
// Comparable(a.Type, b.Type)). The result follows the usual
// -1/0/1 convention. null is ordered after every non-null value,
// and two nulls compare equal — this is the "sorts last" rule;
// callers implementing three-valued filter semantics should
// special-case null themselves rather than rely on Compare.
func Compare(a, b Value) int {
	if a.IsNull() && b.IsNull() {
		return 0
	}
	if a.IsNull() {
		return 1
	}
	if b.IsNull() {
		return -1
	}
	if isTemporal(a.Type) || isTemporal(b.Type) {
		switch {
		case a.when.Before(b.when):
			return -1
		case a.when.After(b.when):
			return 1
		default:
			return 0
		}
	}
	if _, ok := numericRank(a.Type); ok {
		if _, ok := numericRank(b.Type); ok {
			if a.Type == Decimal || b.Type == Decimal {
				ar := toRat(a)
				br := toRat(b)
				return ar.Cmp(br)
			}
			af, _ := a.AsFloat64()
			bf, _ := b.AsFloat64()
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
	}
	as, bs := a.String(), b.String()
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	default:
		return 0
	}
}

func toRat(v Value) *big.Rat {
	switch v.Type {
	case Decimal:
		return v.dec
	case Integer:
		return new(big.Rat).SetInt64(v.i)
	default:
		r := new(big.Rat)
		r.SetFloat64(v.Float())
		return r
	}
}

// Equal reports whether a and b carry the same type and value.
// Numeric values of different types are equal when their values
// compare equal (3 equals 3.0); null never equals a non-null.
func Equal(a, b Value) bool {
	if a.Type != b.Type {
		if a.IsNull() || b.IsNull() {
			return false
		}
		if _, ok := numericRank(a.Type); !ok {
			return false
		}
		if _, ok := numericRank(b.Type); !ok {
			return false
		}
	}
	return Compare(a, b) == 0 && a.IsNull() == b.IsNull()
}
