package parser

import (
	"testing"

	"github.com/nrktql/fileql/expr"
)

func TestParseSimpleSelect(t *testing.T) {
	sel, err := Parse(`SELECT name, age FROM 'people.csv' WHERE age >= 21 ORDER BY name LIMIT 10`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if sel.Star {
		t.Fatal("expected explicit projection, not *")
	}
	if len(sel.Columns) != 2 {
		t.Fatalf("expected 2 projected columns, got %d", len(sel.Columns))
	}
	if sel.From.Source != "people.csv" {
		t.Fatalf("unexpected FROM source %q", sel.From.Source)
	}
	if sel.Where == nil {
		t.Fatal("expected WHERE clause")
	}
	if len(sel.OrderBy) != 1 || sel.OrderBy[0].Column.Name != "name" {
		t.Fatal("unexpected ORDER BY")
	}
	if sel.Limit == nil || *sel.Limit != 10 {
		t.Fatal("unexpected LIMIT")
	}
}

func TestParseStar(t *testing.T) {
	sel, err := Parse(`SELECT * FROM orders`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !sel.Star {
		t.Fatal("expected SELECT * to set Star")
	}
}

func TestParseJoin(t *testing.T) {
	sel, err := Parse(`SELECT o.id, c.name FROM orders o LEFT JOIN customers c ON o.cust_id = c.id`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(sel.Joins) != 1 {
		t.Fatalf("expected 1 join, got %d", len(sel.Joins))
	}
	j := sel.Joins[0]
	if j.Kind != expr.LeftJoin {
		t.Fatalf("expected LEFT JOIN, got %v", j.Kind)
	}
	if j.Table.Alias != "c" {
		t.Fatalf("unexpected join alias %q", j.Table.Alias)
	}
	if j.On == nil {
		t.Fatal("expected ON condition")
	}
}

func TestParseCrossJoinComma(t *testing.T) {
	sel, err := Parse(`SELECT * FROM a, b`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(sel.Joins) != 1 || sel.Joins[0].Kind != expr.CrossJoin {
		t.Fatal("expected one CROSS JOIN from comma form")
	}
}

func TestParseAggregateAndGroupBy(t *testing.T) {
	sel, err := Parse(`SELECT dept, COUNT(*), AVG(salary) AS avg_salary FROM emp GROUP BY dept`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	aggs := sel.Aggregates()
	if len(aggs) != 2 {
		t.Fatalf("expected 2 aggregates, got %d", len(aggs))
	}
	if !aggs[0].Star {
		t.Fatal("expected COUNT(*) to be a star aggregate")
	}
	if sel.Columns[2].Result() != "avg_salary" {
		t.Fatalf("expected aliased result name, got %q", sel.Columns[2].Result())
	}
	if len(sel.GroupBy) != 1 || sel.GroupBy[0].Name != "dept" {
		t.Fatal("unexpected GROUP BY")
	}
}

func TestParseWhereBooleanPrecedence(t *testing.T) {
	sel, err := Parse(`SELECT * FROM t WHERE a = 1 AND b = 2 OR NOT c IS NULL`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	top, ok := sel.Where.(*expr.Logical)
	if !ok || top.Op != expr.OpOr {
		t.Fatalf("expected top-level OR, got %T", sel.Where)
	}
	left, ok := top.Left.(*expr.Logical)
	if !ok || left.Op != expr.OpAnd {
		t.Fatalf("expected AND on the left of OR, got %T", top.Left)
	}
}

func TestParseErrorHasPosition(t *testing.T) {
	_, err := Parse(`SELECT FROM t`)
	if err == nil {
		t.Fatal("expected parse error")
	}
	perr, ok := err.(*ParseError)
	if !ok {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if perr.Offset == 0 {
		t.Fatal("expected a non-zero error offset")
	}
}

func TestSourcesCollectsQuotedPaths(t *testing.T) {
	got, err := Sources(`SELECT u.name, o.amt FROM 'u.csv' u LEFT JOIN 'o.csv' o ON u.id = o.uid WHERE o.amt > 'x'`)
	if err != nil {
		t.Fatalf("sources: %v", err)
	}
	if len(got) != 2 || got[0] != "u.csv" || got[1] != "o.csv" {
		t.Fatalf("got %v, want [u.csv o.csv]", got)
	}
}

func TestSourcesCommaListMixed(t *testing.T) {
	got, err := Sources(`SELECT * FROM t, 'b.csv' b, 'c.json'`)
	if err != nil {
		t.Fatalf("sources: %v", err)
	}
	if len(got) != 2 || got[0] != "b.csv" || got[1] != "c.json" {
		t.Fatalf("got %v, want [b.csv c.json]", got)
	}
}

func TestParseArithmetic(t *testing.T) {
	sel, err := Parse(`SELECT price * qty - 1 AS total FROM orders`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, ok := sel.Columns[0].Expr.(*expr.Arith); !ok {
		t.Fatalf("expected arithmetic expression, got %T", sel.Columns[0].Expr)
	}
}
