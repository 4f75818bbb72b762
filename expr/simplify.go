// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package expr

import "math/big"

// simplifier folds constant subexpressions bottom-up. Rewrite
// visits children before the parent calls rewrite, so by the
// time Rewrite reaches an Arith/Logical/Comparison/Not node its
// operands have already been folded as far as possible.
type simplifier struct{}

// Simplify returns a tree equivalent to e with constant
// subexpressions folded: arithmetic on two literals, AND/OR with
// a literal boolean operand, NOT of a literal, and IS [NOT] NULL
// applied to a literal.
func Simplify(e Node) Node { return Rewrite(simplifier{}, e) }

func (simplifier) Rewrite(n Node) Node {
	switch e := n.(type) {
	case *Not:
		if b, ok := e.Expr.(Bool); ok {
			return Bool(!bool(b))
		}
		return e
	case *IsNull:
		if _, ok := e.Expr.(Null); ok {
			return Bool(!e.Not)
		}
		if IsConstant(e.Expr) {
			return Bool(e.Not)
		}
		return e
	case *Logical:
		return simplifyLogical(e)
	case *Arith:
		return simplifyArith(e)
	case *Comparison:
		return simplifyCompare(e)
	default:
		return n
	}
}

func (simplifier) Walk(n Node) Rewriter { return simplifier{} }

func simplifyLogical(l *Logical) Node {
	lb, lok := l.Left.(Bool)
	rb, rok := l.Right.(Bool)
	switch l.Op {
	case OpAnd:
		if lok && !bool(lb) || rok && !bool(rb) {
			return Bool(false)
		}
		if lok && bool(lb) {
			return l.Right
		}
		if rok && bool(rb) {
			return l.Left
		}
	case OpOr:
		if lok && bool(lb) || rok && bool(rb) {
			return Bool(true)
		}
		if lok && !bool(lb) {
			return l.Right
		}
		if rok && !bool(rb) {
			return l.Left
		}
	}
	return l
}

func simplifyArith(a *Arith) Node {
	lr, lok := asRat(a.Left)
	rr, rok := asRat(a.Right)
	if !lok || !rok {
		return a
	}
	var res big.Rat
	switch a.Op {
	case OpAdd:
		res.Add(lr, rr)
	case OpSub:
		res.Sub(lr, rr)
	case OpMul:
		res.Mul(lr, rr)
	case OpDiv:
		if rr.Sign() == 0 {
			return a
		}
		res.Quo(lr, rr)
	default:
		return a
	}
	if _, lf := a.Left.(Float); lf {
		f, _ := res.Float64()
		return Float(f)
	}
	if _, rf := a.Right.(Float); rf {
		f, _ := res.Float64()
		return Float(f)
	}
	if res.IsInt() && res.Num().IsInt64() {
		return Integer(res.Num().Int64())
	}
	return NewDecimal(&res)
}

func simplifyCompare(c *Comparison) Node {
	if !IsConstant(c.Left) || !IsConstant(c.Right) {
		return c
	}
	lr, lok := asRat(c.Left)
	rr, rok := asRat(c.Right)
	if lok && rok {
		cmp := lr.Cmp(rr)
		return Bool(evalCmp(c.Op, cmp))
	}
	ls, lok := c.Left.(String)
	rs, rok := c.Right.(String)
	if lok && rok {
		var cmp int
		switch {
		case ls < rs:
			cmp = -1
		case ls > rs:
			cmp = 1
		}
		return Bool(evalCmp(c.Op, cmp))
	}
	return c
}

func evalCmp(op CmpOp, cmp int) bool {
	switch op {
	case Equals:
		return cmp == 0
	case NotEquals:
		return cmp != 0
	case Less:
		return cmp < 0
	case LessEquals:
		return cmp <= 0
	case Greater:
		return cmp > 0
	case GreaterEquals:
		return cmp >= 0
	default:
		return false
	}
}

// asRat extracts a rational value from a numeric literal.
func asRat(n Node) (*big.Rat, bool) {
	switch v := n.(type) {
	case Integer:
		return new(big.Rat).SetInt64(int64(v)), true
	case Float:
		r := new(big.Rat)
		if r.SetFloat64(float64(v)) == nil {
			return nil, false
		}
		return r, true
	case *Decimal:
		return (*big.Rat)(v), true
	default:
		return nil, false
	}
}
