// Package types implements the engine's value type system: the
// ten-member DataType enumeration, the Value tagged union, the
// promotion lattice used to reconcile mixed-typed columns, and
// the comparability rules the executor consults before running a
// predicate.
package types

// DataType identifies the type of a Value.
type DataType int

const (
	Null DataType = iota
	Boolean
	Integer
	Float
	Decimal
	String
	JSON
	Date
	Time
	Datetime
)

func (d DataType) String() string {
	switch d {
	case Null:
		return "null"
	case Boolean:
		return "boolean"
	case Integer:
		return "integer"
	case Float:
		return "float"
	case Decimal:
		return "decimal"
	case String:
		return "string"
	case JSON:
		return "json"
	case Date:
		return "date"
	case Time:
		return "time"
	case Datetime:
		return "datetime"
	default:
		return "<unknown type>"
	}
}

// numericRank orders the numeric types along the promotion
// lattice: integer ≺ float ≺ decimal.
func numericRank(d DataType) (int, bool) {
	switch d {
	case Integer:
		return 0, true
	case Float:
		return 1, true
	case Decimal:
		return 2, true
	default:
		return 0, false
	}
}

func isTemporal(d DataType) bool {
	return d == Date || d == Time || d == Datetime
}

// Promote resolves the output type of mixing two column types
// per the lattice in the engine's data model:
//
//   - numeric mixes promote to the highest-ranked numeric type
//   - date/datetime and time/datetime promote to datetime
//   - null unifies with anything, resolving to the other type
//   - json only unifies with json
//   - any other mismatch resolves to string
func Promote(a, b DataType) DataType {
	if a == b {
		return a
	}
	if a == Null {
		return b
	}
	if b == Null {
		return a
	}
	if ra, ok := numericRank(a); ok {
		if rb, ok := numericRank(b); ok {
			if ra >= rb {
				return a
			}
			return b
		}
	}
	if isTemporal(a) && isTemporal(b) {
		if a == Datetime || b == Datetime {
			return Datetime
		}
		// date vs time with no common non-datetime type
		return Datetime
	}
	if a == JSON || b == JSON {
		return String
	}
	return String
}

// Comparable reports whether two values of types a and b may be
// compared with a relational operator. Identical types are
// always comparable; any two numeric types are comparable via
// promotion; any two of date, time and datetime are comparable;
// null compares with anything. Anything else
// (including any pairing that touches json except json/json, or
// mismatched non-numeric non-temporal types) is not comparable.
func Comparable(a, b DataType) bool {
	if a == Null || b == Null {
		return true
	}
	if a == b {
		return true
	}
	if _, ok := numericRank(a); ok {
		if _, ok := numericRank(b); ok {
			return true
		}
	}
	if isTemporal(a) && isTemporal(b) {
		return true
	}
	return false
}
