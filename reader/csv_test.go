package reader

import (
	"context"
	"testing"

	"github.com/nrktql/fileql/types"
	"github.com/nrktql/fileql/xsv"
)

func TestCSVReaderSchemaInference(t *testing.T) {
	src := newMemSource("id,name,age\n1,Alice,30\n2,Bob,20\n")
	r := &delimitedReader{src: src, newChopper: func() lineChopper { return &xsv.CsvChopper{} }}
	ctx := context.Background()
	schema, err := r.Schema(ctx)
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	typ, ok := schema.Lookup("age")
	if !ok || typ != types.Integer {
		t.Fatalf("age column = %v,%v, want Integer,true", typ, ok)
	}
	typ, ok = schema.Lookup("name")
	if !ok || typ != types.String {
		t.Fatalf("name column = %v,%v, want String,true", typ, ok)
	}
}

func TestCSVReaderRowsInFileOrder(t *testing.T) {
	src := newMemSource("id,name,age\n1,Alice,30\n2,Bob,20\n3,Cara,25\n")
	r := &delimitedReader{src: src, newChopper: func() lineChopper { return &xsv.CsvChopper{} }}
	ctx := context.Background()
	if err := r.Open(ctx, Hints{}); err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()
	var names []string
	for {
		row, ok, err := r.Next()
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if !ok {
			break
		}
		v, _ := row.Get("name")
		names = append(names, v.String())
	}
	want := []string{"Alice", "Bob", "Cara"}
	if len(names) != len(want) {
		t.Fatalf("got %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("got %v, want %v", names, want)
		}
	}
}

func TestCSVReaderRowCap(t *testing.T) {
	src := newMemSource("id\n1\n2\n3\n4\n5\n")
	r := &delimitedReader{src: src, newChopper: func() lineChopper { return &xsv.CsvChopper{} }}
	ctx := context.Background()
	cap := int64(2)
	if err := r.Open(ctx, Hints{RowCap: &cap}); err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()
	n := 0
	for {
		_, ok, err := r.Next()
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if !ok {
			break
		}
		n++
	}
	if n != 2 {
		t.Fatalf("expected 2 rows under row cap, got %d", n)
	}
}

func TestCSVReaderMalformedRowDegradesNotFails(t *testing.T) {
	src := newMemSource("id,name\n1,Alice\n2\n3,Cara\n")
	warnings := []string{}
	r := &delimitedReader{src: src, newChopper: func() lineChopper { return &xsv.CsvChopper{} }}
	ctx := context.Background()
	if err := r.Open(ctx, Hints{Warnings: &warnings}); err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()
	n := 0
	for {
		_, ok, err := r.Next()
		if err != nil {
			t.Fatalf("next should not error on a short row: %v", err)
		}
		if !ok {
			break
		}
		n++
	}
	if n != 3 {
		t.Fatalf("expected 3 rows (short row degraded, not dropped), got %d", n)
	}
	if len(warnings) == 0 {
		t.Fatal("expected a warning for the short row")
	}
}
