package exec

import (
	"fmt"
	"math/big"

	"github.com/nrktql/fileql/expr"
	"github.com/nrktql/fileql/types"
)

// TypeError reports a comparison or arithmetic operation over
// runtime values whose types cannot be combined, e.g. comparing a
// date to a boolean or adding a string to an integer. It is
// terminal for the query.
type TypeError struct {
	Op          string
	Left, Right types.DataType
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("exec: cannot apply %s to %s and %s", e.Op, e.Left, e.Right)
}

// Eval computes the value of a scalar expression against row. It
// implements SQL three-valued logic for IsNull/Not/Logical and
// null-propagation for Arith/Comparison, the same rules the
// predicate-pushdown optimizer pass assumes a reader enforces when
// it evaluates a pushed filter itself.
func Eval(e expr.Node, row types.Row) (types.Value, error) {
	switch v := e.(type) {
	case *expr.Column:
		val, ok := row.Get(v.Name)
		if !ok {
			return types.NullValue(), nil
		}
		return val, nil
	case expr.Integer:
		return types.IntValue(int64(v)), nil
	case expr.Float:
		return types.FloatValue(float64(v)), nil
	case *expr.Decimal:
		r := new(big.Rat).Set((*big.Rat)(v))
		return types.DecimalValue(r), nil
	case expr.String:
		return types.StringValue(string(v)), nil
	case expr.Bool:
		return types.BoolValue(bool(v)), nil
	case expr.Null:
		return types.NullValue(), nil
	case *expr.Timestamp:
		return types.DatetimeValue(v.Value), nil
	case *expr.Arith:
		return evalArith(v, row)
	case *expr.Comparison:
		return evalComparison(v, row)
	case *expr.Logical:
		return evalLogical(v, row)
	case *expr.Not:
		inner, err := Eval(v.Expr, row)
		if err != nil {
			return types.Value{}, err
		}
		if inner.IsNull() {
			return types.NullValue(), nil
		}
		return types.BoolValue(!inner.Bool()), nil
	case *expr.IsNull:
		inner, err := Eval(v.Expr, row)
		if err != nil {
			return types.Value{}, err
		}
		return types.BoolValue(inner.IsNull() == !v.Not), nil
	default:
		return types.Value{}, fmt.Errorf("exec: cannot evaluate %s", expr.ToString(e))
	}
}

func evalArith(a *expr.Arith, row types.Row) (types.Value, error) {
	l, err := Eval(a.Left, row)
	if err != nil {
		return types.Value{}, err
	}
	r, err := Eval(a.Right, row)
	if err != nil {
		return types.Value{}, err
	}
	if l.IsNull() || r.IsNull() {
		return types.NullValue(), nil
	}
	if _, ok := l.AsFloat64(); !ok {
		return types.Value{}, &TypeError{Op: a.Op.String(), Left: l.Type, Right: r.Type}
	}
	if _, ok := r.AsFloat64(); !ok {
		return types.Value{}, &TypeError{Op: a.Op.String(), Left: l.Type, Right: r.Type}
	}
	if l.Type == types.Decimal || r.Type == types.Decimal {
		lr, rr := ratOf(l), ratOf(r)
		var out big.Rat
		switch a.Op {
		case expr.OpAdd:
			out.Add(lr, rr)
		case expr.OpSub:
			out.Sub(lr, rr)
		case expr.OpMul:
			out.Mul(lr, rr)
		case expr.OpDiv:
			if rr.Sign() == 0 {
				return types.Value{}, fmt.Errorf("exec: division by zero")
			}
			out.Quo(lr, rr)
		}
		return types.DecimalValue(&out), nil
	}
	if l.Type == types.Integer && r.Type == types.Integer && a.Op != expr.OpDiv {
		li, ri := l.Int(), r.Int()
		switch a.Op {
		case expr.OpAdd:
			return types.IntValue(li + ri), nil
		case expr.OpSub:
			return types.IntValue(li - ri), nil
		case expr.OpMul:
			return types.IntValue(li * ri), nil
		}
	}
	lf, rf := l.Float(), r.Float()
	switch a.Op {
	case expr.OpAdd:
		return types.FloatValue(lf + rf), nil
	case expr.OpSub:
		return types.FloatValue(lf - rf), nil
	case expr.OpMul:
		return types.FloatValue(lf * rf), nil
	case expr.OpDiv:
		if rf == 0 {
			return types.Value{}, fmt.Errorf("exec: division by zero")
		}
		return types.FloatValue(lf / rf), nil
	}
	return types.Value{}, fmt.Errorf("exec: unknown arithmetic operator %v", a.Op)
}

func ratOf(v types.Value) *big.Rat {
	switch v.Type {
	case types.Decimal:
		return v.Decimal()
	case types.Integer:
		return new(big.Rat).SetInt64(v.Int())
	default:
		r := new(big.Rat)
		r.SetFloat64(v.Float())
		return r
	}
}

func evalComparison(c *expr.Comparison, row types.Row) (types.Value, error) {
	l, err := Eval(c.Left, row)
	if err != nil {
		return types.Value{}, err
	}
	r, err := Eval(c.Right, row)
	if err != nil {
		return types.Value{}, err
	}
	if l.IsNull() || r.IsNull() {
		return types.NullValue(), nil
	}
	if !types.Comparable(l.Type, r.Type) {
		return types.Value{}, &TypeError{Op: c.Op.String(), Left: l.Type, Right: r.Type}
	}
	cmp := types.Compare(l, r)
	var result bool
	switch c.Op {
	case expr.Equals:
		result = cmp == 0
	case expr.NotEquals:
		result = cmp != 0
	case expr.Less:
		result = cmp < 0
	case expr.LessEquals:
		result = cmp <= 0
	case expr.Greater:
		result = cmp > 0
	case expr.GreaterEquals:
		result = cmp >= 0
	default:
		return types.Value{}, fmt.Errorf("exec: unknown comparison operator %v", c.Op)
	}
	return types.BoolValue(result), nil
}

func evalLogical(l *expr.Logical, row types.Row) (types.Value, error) {
	left, err := Eval(l.Left, row)
	if err != nil {
		return types.Value{}, err
	}
	if l.Op == expr.OpAnd && !left.IsNull() && !left.Bool() {
		return types.BoolValue(false), nil
	}
	if l.Op == expr.OpOr && !left.IsNull() && left.Bool() {
		return types.BoolValue(true), nil
	}
	right, err := Eval(l.Right, row)
	if err != nil {
		return types.Value{}, err
	}
	if l.Op == expr.OpAnd {
		if !right.IsNull() && !right.Bool() {
			return types.BoolValue(false), nil
		}
		if left.IsNull() || right.IsNull() {
			return types.NullValue(), nil
		}
		return types.BoolValue(true), nil
	}
	// OpOr
	if !right.IsNull() && right.Bool() {
		return types.BoolValue(true), nil
	}
	if left.IsNull() || right.IsNull() {
		return types.NullValue(), nil
	}
	return types.BoolValue(false), nil
}

// Truthy reports whether v is the SQL boolean TRUE, treating NULL
// and any non-boolean value as not satisfying a WHERE/ON/HAVING
// predicate (SQL's "unknown is not true" rule).
func Truthy(v types.Value) bool {
	return v.Type == types.Boolean && v.Bool()
}
