package reader

import (
	"context"
	"testing"
)

func TestXMLReaderAutoDetectsRepeatedElement(t *testing.T) {
	ctx := context.Background()
	doc := `<orders>
<order id="1"><customer>Alice</customer><amount>10.5</amount></order>
<order id="2"><customer>Bob</customer><amount>20</amount></order>
</orders>`
	r, err := newXMLReader(ctx, newMemSource(doc), "")
	if err != nil {
		t.Fatalf("newXMLReader: %v", err)
	}
	schema, err := r.Schema(ctx)
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	names := map[string]bool{}
	for _, c := range schema.Columns {
		names[c.Name] = true
	}
	for _, want := range []string{"@id", "customer", "amount"} {
		if !names[want] {
			t.Fatalf("expected column %q in schema, got %+v", want, schema.Columns)
		}
	}
	rows := drain(t, r, ctx, Hints{})
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d: %+v", len(rows), rows)
	}
	if rows[0]["customer"] != "Alice" || rows[0]["@id"] != "1" {
		t.Fatalf("unexpected first row: %+v", rows[0])
	}
}

func TestXMLReaderExplicitSelector(t *testing.T) {
	ctx := context.Background()
	doc := `<catalog><item><sku>A1</sku></item><item><sku>A2</sku></item></catalog>`
	r, err := newXMLReader(ctx, newMemSource(doc), "item")
	if err != nil {
		t.Fatalf("newXMLReader: %v", err)
	}
	rows := drain(t, r, ctx, Hints{})
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d: %+v", len(rows), rows)
	}
	if rows[0]["sku"] != "A1" || rows[1]["sku"] != "A2" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestXMLReaderNestedElementFlattensWithDottedName(t *testing.T) {
	ctx := context.Background()
	doc := `<people>
<person><name><first>Ann</first><last>Lee</last></name></person>
<person><name><first>Sam</first><last>Roe</last></name></person>
</people>`
	r, err := newXMLReader(ctx, newMemSource(doc), "person")
	if err != nil {
		t.Fatalf("newXMLReader: %v", err)
	}
	schema, err := r.Schema(ctx)
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	names := map[string]bool{}
	for _, c := range schema.Columns {
		names[c.Name] = true
	}
	if !names["name.first"] || !names["name.last"] {
		t.Fatalf("expected dot-joined nested column names, got %+v", schema.Columns)
	}
	rows := drain(t, r, ctx, Hints{})
	if rows[0]["name.first"] != "Ann" {
		t.Fatalf("unexpected first row: %+v", rows[0])
	}
}

func TestXMLReaderRowCap(t *testing.T) {
	ctx := context.Background()
	doc := `<rows><row><n>1</n></row><row><n>2</n></row><row><n>3</n></row></rows>`
	r, err := newXMLReader(ctx, newMemSource(doc), "row")
	if err != nil {
		t.Fatalf("newXMLReader: %v", err)
	}
	cap := int64(2)
	rows := drain(t, r, ctx, Hints{RowCap: &cap})
	if len(rows) != 2 {
		t.Fatalf("expected row cap to limit output to 2 rows, got %d", len(rows))
	}
}

func TestXMLReaderNoRepeatedElementIsAnError(t *testing.T) {
	ctx := context.Background()
	doc := `<root><a>1</a><b>2</b></root>`
	r, err := newXMLReader(ctx, newMemSource(doc), "")
	if err != nil {
		t.Fatalf("newXMLReader: %v", err)
	}
	if _, err := r.Schema(ctx); err == nil {
		t.Fatal("expected an error when no element repeats and no selector is given")
	}
}
