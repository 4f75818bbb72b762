// Package predicate evaluates the restricted "simple predicate"
// algebra the optimizer's pushdown passes hand down to readers and
// to partition pruning: column-op-literal comparisons and IS
// [NOT] NULL, combined only by conjunction (AND). It is shared by
// the reader package (post-parse row filtering) and the executor's
// Scan operator (partition descriptor filtering) so both enforce
// the same fail-closed semantics a pushed-down filter promises the
// optimizer it honors.
package predicate

import (
	"math/big"

	"github.com/nrktql/fileql/expr"
	"github.com/nrktql/fileql/types"
)

// Lookup resolves a column's current value; ok is false if the
// column has no value in the current context (row or partition
// descriptor).
type Lookup func(name string) (types.Value, bool)

// Match reports whether every filter in filters — a conjunction of
// simple predicates, as produced by plan/optimize.go — holds
// against get. A predicate whose column is missing, or whose
// operand types are not comparable, fails closed (Match returns
// false) rather than risk emitting a row a pushed-down filter
// claimed to exclude.
func Match(get Lookup, filters []expr.Node) bool {
	for _, f := range filters {
		if !matchOne(get, f) {
			return false
		}
	}
	return true
}

func matchOne(get Lookup, e expr.Node) bool {
	switch v := e.(type) {
	case *expr.Comparison:
		col, lit, flipped, ok := splitSimple(v.Left, v.Right)
		if !ok {
			return true
		}
		val, found := get(col.Name)
		if !found || val.IsNull() {
			return false
		}
		litVal := literalValue(lit)
		if !types.Comparable(val.Type, litVal.Type) {
			return false
		}
		op := v.Op
		if flipped {
			op = op.Flip()
		}
		cmp := types.Compare(val, litVal)
		switch op {
		case expr.Equals:
			return cmp == 0
		case expr.NotEquals:
			return cmp != 0
		case expr.Less:
			return cmp < 0
		case expr.LessEquals:
			return cmp <= 0
		case expr.Greater:
			return cmp > 0
		case expr.GreaterEquals:
			return cmp >= 0
		default:
			return true
		}
	case *expr.IsNull:
		col, ok := v.Expr.(*expr.Column)
		if !ok {
			return true
		}
		val, found := get(col.Name)
		isNull := !found || val.IsNull()
		return isNull == !v.Not
	default:
		// Not a simple predicate; the optimizer never hands one
		// of these down, but a non-matching shape must not cause
		// rows to be dropped incorrectly.
		return true
	}
}

// splitSimple recognizes "column op literal" or "literal op
// column" and reports whether the operands were flipped from the
// former to the latter (the caller must flip the comparison
// operator accordingly).
func splitSimple(left, right expr.Node) (col *expr.Column, lit expr.Node, flipped, ok bool) {
	if c, isCol := left.(*expr.Column); isCol && expr.IsConstant(right) {
		return c, right, false, true
	}
	if c, isCol := right.(*expr.Column); isCol && expr.IsConstant(left) {
		return c, left, true, true
	}
	return nil, nil, false, false
}

// literalValue converts a literal expression node to its Value,
// mirroring exec.Eval's literal cases without importing exec (the
// executor package depends on this one, not the reverse).
func literalValue(e expr.Node) types.Value {
	switch v := e.(type) {
	case expr.Integer:
		return types.IntValue(int64(v))
	case expr.Float:
		return types.FloatValue(float64(v))
	case *expr.Decimal:
		r := new(big.Rat).Set((*big.Rat)(v))
		return types.DecimalValue(r)
	case expr.String:
		return types.StringValue(string(v))
	case expr.Bool:
		return types.BoolValue(bool(v))
	case expr.Null:
		return types.NullValue()
	case *expr.Timestamp:
		return types.DatetimeValue(v.Value)
	default:
		return types.NullValue()
	}
}

// Simple decomposes a single "column op literal" (or "literal op
// column") comparison into its column, operator, and literal
// value, normalizing the operator so the column always reads as
// the left operand (e.g. "10 < amount" reports (amount, >, 10)).
// ok is false for anything else — AND/OR, IS NULL, or a
// comparison between two columns — which callers that need
// structured access to a predicate's shape (Parquet row-group
// statistics pruning; partition pruning) use to skip what Match
// would otherwise just evaluate row by row.
func Simple(e expr.Node) (col *expr.Column, op expr.CmpOp, lit types.Value, ok bool) {
	cmp, isCmp := e.(*expr.Comparison)
	if !isCmp {
		return nil, 0, types.Value{}, false
	}
	c, l, flipped, split := splitSimple(cmp.Left, cmp.Right)
	if !split {
		return nil, 0, types.Value{}, false
	}
	op = cmp.Op
	if flipped {
		op = op.Flip()
	}
	return c, op, literalValue(l), true
}

// MapLookup adapts a plain map of column values to a Lookup, for
// callers (partition descriptors) that already hold their values
// in a map rather than a types.Row.
func MapLookup(m map[string]types.Value) Lookup {
	return func(name string) (types.Value, bool) {
		v, ok := m[name]
		return v, ok
	}
}

// RowLookup adapts a types.Row to a Lookup.
func RowLookup(row types.Row) Lookup {
	return func(name string) (types.Value, bool) {
		return row.Get(name)
	}
}
