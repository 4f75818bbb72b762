package expr

import "testing"

func TestSimplifyArithFoldsLiterals(t *testing.T) {
	e := &Arith{Op: OpAdd, Left: Integer(2), Right: Integer(3)}
	got := Simplify(e)
	if i, ok := got.(Integer); !ok || i != 5 {
		t.Fatalf("Simplify(2+3) = %v, want Integer(5)", got)
	}
}

func TestSimplifyArithFloatWidens(t *testing.T) {
	e := &Arith{Op: OpMul, Left: Float(2.5), Right: Integer(2)}
	got := Simplify(e)
	if f, ok := got.(Float); !ok || f != 5.0 {
		t.Fatalf("Simplify(2.5*2) = %v, want Float(5.0)", got)
	}
}

func TestSimplifyLogicalShortCircuitsAnd(t *testing.T) {
	e := &Logical{Op: OpAnd, Left: Bool(false), Right: &Column{Name: "x"}}
	got := Simplify(e)
	if b, ok := got.(Bool); !ok || bool(b) {
		t.Fatalf("Simplify(FALSE AND x) = %v, want Bool(false)", got)
	}
}

func TestSimplifyLogicalDropsTrueOperand(t *testing.T) {
	col := &Column{Name: "x"}
	e := &Logical{Op: OpAnd, Left: Bool(true), Right: col}
	got := Simplify(e)
	if got != Node(col) {
		t.Fatalf("Simplify(TRUE AND x) should reduce to x, got %v", got)
	}
}

func TestSimplifyNot(t *testing.T) {
	got := Simplify(&Not{Expr: Bool(true)})
	if b, ok := got.(Bool); !ok || bool(b) {
		t.Fatalf("Simplify(NOT TRUE) = %v, want Bool(false)", got)
	}
}

func TestSimplifyIsNullOnLiteralNull(t *testing.T) {
	got := Simplify(&IsNull{Expr: Null{}, Not: false})
	if b, ok := got.(Bool); !ok || !bool(b) {
		t.Fatalf("Simplify(NULL IS NULL) = %v, want Bool(true)", got)
	}
}

func TestSimplifyCompareLiterals(t *testing.T) {
	got := Simplify(&Comparison{Op: Less, Left: Integer(1), Right: Integer(2)})
	if b, ok := got.(Bool); !ok || !bool(b) {
		t.Fatalf("Simplify(1<2) = %v, want Bool(true)", got)
	}
}

func TestSimplifyLeavesNonConstant(t *testing.T) {
	col := &Column{Name: "age"}
	e := &Comparison{Op: Greater, Left: col, Right: Integer(25)}
	got := Simplify(e)
	cmp, ok := got.(*Comparison)
	if !ok || cmp.Left != Node(col) {
		t.Fatalf("Simplify should leave a column comparison alone, got %v", got)
	}
}
