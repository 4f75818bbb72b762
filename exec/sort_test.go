package exec

import (
	"testing"

	"github.com/nrktql/fileql/expr"
	"github.com/nrktql/fileql/types"
)

func TestSortOrdersByKeyNullsLast(t *testing.T) {
	schema := types.NewSchema([]types.Column{{Name: "name", Type: types.String}})
	src := newSliceIterator(schema, []Row{
		row(schema, types.StringValue("Bob")),
		row(schema, types.NullValue()),
		row(schema, types.StringValue("Alice")),
	})
	keys := []expr.SortKey{{Column: &expr.Column{Name: "name"}}}
	s := newSort(src, keys)
	rows, err := drainAll(s)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	want := []string{"Alice", "Bob", ""}
	for i, w := range want {
		v := rows[i].Values[0]
		if i < 2 && v.String() != w {
			t.Fatalf("row %d = %v, want %v", i, v, w)
		}
	}
	if !rows[2].Values[0].IsNull() {
		t.Fatalf("last row should be null regardless of ASC, got %v", rows[2].Values[0])
	}
}

func TestSortDescStillSortsNullsLast(t *testing.T) {
	schema := ageSchema()
	src := newSliceIterator(schema, []Row{
		row(schema, types.IntValue(10)),
		row(schema, types.NullValue()),
		row(schema, types.IntValue(30)),
	})
	keys := []expr.SortKey{{Column: &expr.Column{Name: "age"}, Desc: true}}
	s := newSort(src, keys)
	rows, err := drainAll(s)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if rows[0].Values[0].Int() != 30 || rows[1].Values[0].Int() != 10 {
		t.Fatalf("expected descending non-null order 30,10, got %v,%v", rows[0].Values[0], rows[1].Values[0])
	}
	if !rows[2].Values[0].IsNull() {
		t.Fatal("null should sort last even under DESC")
	}
}

func TestSortStableForTies(t *testing.T) {
	schema := types.NewSchema([]types.Column{
		{Name: "k", Type: types.String},
		{Name: "seq", Type: types.Integer},
	})
	src := newSliceIterator(schema, []Row{
		row(schema, types.StringValue("A"), types.IntValue(1)),
		row(schema, types.StringValue("A"), types.IntValue(2)),
		row(schema, types.StringValue("A"), types.IntValue(3)),
	})
	keys := []expr.SortKey{{Column: &expr.Column{Name: "k"}}}
	s := newSort(src, keys)
	rows, err := drainAll(s)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	for i, want := range []int64{1, 2, 3} {
		if rows[i].Values[1].Int() != want {
			t.Fatalf("tie-break order not stable: %+v", rows)
		}
	}
}
