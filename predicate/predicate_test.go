package predicate

import (
	"testing"

	"github.com/nrktql/fileql/expr"
	"github.com/nrktql/fileql/types"
)

func rowOf(cols map[string]types.Value) Lookup {
	return MapLookup(cols)
}

func TestMatchSimpleComparison(t *testing.T) {
	get := rowOf(map[string]types.Value{"age": types.IntValue(30)})
	pred := &expr.Comparison{
		Op:    expr.GreaterEquals,
		Left:  &expr.Column{Name: "age"},
		Right: expr.Integer(25),
	}
	if !Match(get, []expr.Node{pred}) {
		t.Fatal("expected age>=25 to match age=30")
	}
}

func TestMatchFlippedOperands(t *testing.T) {
	get := rowOf(map[string]types.Value{"age": types.IntValue(30)})
	pred := &expr.Comparison{
		Op:    expr.Less,
		Left:  expr.Integer(25),
		Right: &expr.Column{Name: "age"},
	}
	// "25 < age" flips to "age > 25"
	if !Match(get, []expr.Node{pred}) {
		t.Fatal("expected 25<age to match age=30")
	}
}

func TestMatchNullColumnFailsClosed(t *testing.T) {
	get := rowOf(map[string]types.Value{"age": types.NullValue()})
	pred := &expr.Comparison{
		Op:    expr.Equals,
		Left:  &expr.Column{Name: "age"},
		Right: expr.Integer(25),
	}
	if Match(get, []expr.Node{pred}) {
		t.Fatal("a null column must never satisfy a comparison predicate")
	}
}

func TestMatchMissingColumnFailsClosed(t *testing.T) {
	get := rowOf(map[string]types.Value{})
	pred := &expr.Comparison{
		Op:    expr.Equals,
		Left:  &expr.Column{Name: "age"},
		Right: expr.Integer(25),
	}
	if Match(get, []expr.Node{pred}) {
		t.Fatal("a missing column must fail closed")
	}
}

func TestMatchConjunction(t *testing.T) {
	get := rowOf(map[string]types.Value{"age": types.IntValue(30), "name": types.StringValue("Alice")})
	p1 := &expr.Comparison{Op: expr.GreaterEquals, Left: &expr.Column{Name: "age"}, Right: expr.Integer(18)}
	p2 := &expr.Comparison{Op: expr.Equals, Left: &expr.Column{Name: "name"}, Right: expr.String("Alice")}
	if !Match(get, []expr.Node{p1, p2}) {
		t.Fatal("conjunction of two true predicates should match")
	}
	p3 := &expr.Comparison{Op: expr.Equals, Left: &expr.Column{Name: "name"}, Right: expr.String("Bob")}
	if Match(get, []expr.Node{p1, p3}) {
		t.Fatal("conjunction with one false predicate should not match")
	}
}

func TestMatchIsNull(t *testing.T) {
	getNull := rowOf(map[string]types.Value{"x": types.NullValue()})
	getVal := rowOf(map[string]types.Value{"x": types.IntValue(1)})

	isNull := &expr.IsNull{Expr: &expr.Column{Name: "x"}, Not: false}
	if !Match(getNull, []expr.Node{isNull}) {
		t.Fatal("IS NULL should match a null column")
	}
	if Match(getVal, []expr.Node{isNull}) {
		t.Fatal("IS NULL should not match a non-null column")
	}

	isNotNull := &expr.IsNull{Expr: &expr.Column{Name: "x"}, Not: true}
	if !Match(getVal, []expr.Node{isNotNull}) {
		t.Fatal("IS NOT NULL should match a non-null column")
	}
	if Match(getNull, []expr.Node{isNotNull}) {
		t.Fatal("IS NOT NULL should not match a null column")
	}
}

func TestSimpleDecomposesAndNormalizes(t *testing.T) {
	cmp := &expr.Comparison{Op: expr.Greater, Left: expr.Integer(10), Right: &expr.Column{Name: "amount"}}
	col, op, lit, ok := Simple(cmp)
	if !ok {
		t.Fatal("expected Simple to decompose a column/literal comparison")
	}
	if col.Name != "amount" {
		t.Fatalf("expected column amount, got %s", col.Name)
	}
	if op != expr.Less {
		t.Fatalf("expected flipped op Less, got %v", op)
	}
	if lit.Int() != 10 {
		t.Fatalf("expected literal 10, got %v", lit)
	}
}

func TestSimpleRejectsNonSimpleShapes(t *testing.T) {
	cmp := &expr.Comparison{Op: expr.Equals, Left: &expr.Column{Name: "a"}, Right: &expr.Column{Name: "b"}}
	if _, _, _, ok := Simple(cmp); ok {
		t.Fatal("column-to-column comparison is not a simple predicate")
	}
}
