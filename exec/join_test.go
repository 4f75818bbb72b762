package exec

import (
	"testing"

	"github.com/nrktql/fileql/expr"
	"github.com/nrktql/fileql/types"
)

func usersSchema() *types.Schema {
	return types.NewSchema([]types.Column{{Name: "id", Type: types.Integer}, {Name: "name", Type: types.String}})
}

func ordersSchema() *types.Schema {
	return types.NewSchema([]types.Column{{Name: "uid", Type: types.Integer}, {Name: "amt", Type: types.Integer}})
}

func joinedSchema() *types.Schema {
	return types.NewSchema([]types.Column{
		{Name: "name", Type: types.String},
		{Name: "amt", Type: types.Integer},
	})
}

func TestJoinLeftEmitsNullForUnmatched(t *testing.T) {
	us := usersSchema()
	os := ordersSchema()
	left := newSliceIterator(us, []Row{
		row(us, types.IntValue(1), types.StringValue("Alice")),
		row(us, types.IntValue(2), types.StringValue("Bob")),
	})
	right := newSliceIterator(os, []Row{
		row(os, types.IntValue(1), types.IntValue(100)),
		row(os, types.IntValue(1), types.IntValue(50)),
		row(os, types.IntValue(3), types.IntValue(999)),
	})
	cond := &expr.Comparison{Op: expr.Equals, Left: &expr.Column{Name: "id"}, Right: &expr.Column{Name: "uid"}}
	schema := types.NewSchema([]types.Column{
		{Name: "id", Type: types.Integer}, {Name: "name", Type: types.String},
		{Name: "uid", Type: types.Integer}, {Name: "amt", Type: types.Integer},
	})
	j, err := newJoin(left, right, cond, expr.LeftJoin, schema)
	if err != nil {
		t.Fatalf("newJoin: %v", err)
	}
	rows, err := drainAll(j)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows (2 matches for Alice + 1 unmatched Bob), got %d: %+v", len(rows), rows)
	}
	var bobFound bool
	for _, r := range rows {
		name, _ := r.Get("name")
		if name.String() == "Bob" {
			bobFound = true
			amt, _ := r.Get("amt")
			if !amt.IsNull() {
				t.Fatalf("unmatched left row should pad right side with null, got amt=%v", amt)
			}
		}
	}
	if !bobFound {
		t.Fatal("expected Bob to appear with a null right side")
	}
}

func TestJoinInnerOnlyEmitsMatches(t *testing.T) {
	us := usersSchema()
	os := ordersSchema()
	left := newSliceIterator(us, []Row{
		row(us, types.IntValue(1), types.StringValue("Alice")),
		row(us, types.IntValue(2), types.StringValue("Bob")),
	})
	right := newSliceIterator(os, []Row{
		row(os, types.IntValue(1), types.IntValue(100)),
	})
	cond := &expr.Comparison{Op: expr.Equals, Left: &expr.Column{Name: "id"}, Right: &expr.Column{Name: "uid"}}
	schema := types.NewSchema([]types.Column{
		{Name: "id", Type: types.Integer}, {Name: "name", Type: types.String},
		{Name: "uid", Type: types.Integer}, {Name: "amt", Type: types.Integer},
	})
	j, err := newJoin(left, right, cond, expr.InnerJoin, schema)
	if err != nil {
		t.Fatalf("newJoin: %v", err)
	}
	rows, err := drainAll(j)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("INNER JOIN should only emit matches, got %d rows", len(rows))
	}
}

func TestJoinRejectsNonEquiCondition(t *testing.T) {
	us := usersSchema()
	os := ordersSchema()
	left := newSliceIterator(us, nil)
	right := newSliceIterator(os, nil)
	cond := &expr.Comparison{Op: expr.Less, Left: &expr.Column{Name: "id"}, Right: &expr.Column{Name: "uid"}}
	_, err := newJoin(left, right, cond, expr.InnerJoin, joinedSchema())
	if err == nil {
		t.Fatal("expected UnsupportedJoinCondition for a non-equi join")
	}
	if _, ok := err.(*UnsupportedJoinCondition); !ok {
		t.Fatalf("expected *UnsupportedJoinCondition, got %T", err)
	}
}

func TestJoinFullOuterEmitsUnmatchedBothSides(t *testing.T) {
	us := usersSchema()
	os := ordersSchema()
	left := newSliceIterator(us, []Row{
		row(us, types.IntValue(1), types.StringValue("Alice")),
	})
	right := newSliceIterator(os, []Row{
		row(os, types.IntValue(1), types.IntValue(100)),
		row(os, types.IntValue(9), types.IntValue(999)),
	})
	cond := &expr.Comparison{Op: expr.Equals, Left: &expr.Column{Name: "id"}, Right: &expr.Column{Name: "uid"}}
	schema := types.NewSchema([]types.Column{
		{Name: "id", Type: types.Integer}, {Name: "name", Type: types.String},
		{Name: "uid", Type: types.Integer}, {Name: "amt", Type: types.Integer},
	})
	j, err := newJoin(left, right, cond, expr.FullJoin, schema)
	if err != nil {
		t.Fatalf("newJoin: %v", err)
	}
	rows, err := drainAll(j)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows (1 match + 1 unmatched right), got %d: %+v", len(rows), rows)
	}
	var sawUnmatchedRight bool
	for _, r := range rows {
		name, _ := r.Get("name")
		amt, _ := r.Get("amt")
		if name.IsNull() && amt.Int() == 999 {
			sawUnmatchedRight = true
		}
	}
	if !sawUnmatchedRight {
		t.Fatal("expected the unmatched right row (uid=9) padded with a null left side")
	}
}
