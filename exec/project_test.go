package exec

import (
	"testing"

	"github.com/nrktql/fileql/expr"
	"github.com/nrktql/fileql/types"
)

func TestProjectAliasesAndArithmetic(t *testing.T) {
	schema := types.NewSchema([]types.Column{{Name: "a", Type: types.Integer}, {Name: "b", Type: types.Integer}})
	src := newSliceIterator(schema, []Row{row(schema, types.IntValue(2), types.IntValue(3))})

	sum := &expr.Arith{Op: expr.OpAdd, Left: &expr.Column{Name: "a"}, Right: &expr.Column{Name: "b"}}
	bindings := []expr.Binding{expr.Bind(sum, "total")}
	outSchema := types.NewSchema([]types.Column{{Name: "total", Type: types.Integer}})
	p := newProject(src, bindings, outSchema)

	rows, err := drainAll(p)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	v, ok := rows[0].Get("total")
	if !ok || v.Int() != 5 {
		t.Fatalf("total = %v,%v, want 5,true", v, ok)
	}
}
