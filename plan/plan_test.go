package plan

import (
	"strings"
	"testing"

	"github.com/nrktql/fileql/parser"
	"github.com/nrktql/fileql/types"
)

func schemaFor(name string) (*types.Schema, error) {
	switch name {
	case "orders.csv", "orders", "o":
		return types.NewSchema([]types.Column{
			{Name: "id", Type: types.Integer},
			{Name: "cust_id", Type: types.Integer},
			{Name: "amount", Type: types.Float},
			{Name: "region", Type: types.String},
		}), nil
	case "customers", "c":
		return types.NewSchema([]types.Column{
			{Name: "id", Type: types.Integer},
			{Name: "name", Type: types.String},
		}), nil
	default:
		return types.NewSchema([]types.Column{{Name: "x", Type: types.Integer}}), nil
	}
}

func TestBuildAndOptimizeSimple(t *testing.T) {
	sel, err := parser.Parse(`SELECT id, amount FROM 'orders.csv' WHERE region = 'west' AND amount > 10 LIMIT 5`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	p, err := Build(sel, schemaFor)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	Optimize(p)

	scan := findScan(t, p.Root)
	if len(scan.Hints.PushableFilters) != 2 {
		t.Fatalf("expected 2 pushed filters, got %d", len(scan.Hints.PushableFilters))
	}
	if scan.Hints.RowCap == nil || *scan.Hints.RowCap != 5 {
		t.Fatal("expected row cap pushed to scan")
	}
	want := map[string]bool{"id": true, "amount": true, "region": true}
	if len(scan.Hints.RequiredColumns) != len(want) {
		t.Fatalf("unexpected required columns: %v", scan.Hints.RequiredColumns)
	}
	for _, c := range scan.Hints.RequiredColumns {
		if !want[c] {
			t.Fatalf("unexpected required column %q", c)
		}
	}
}

func TestPartitionPruningConsumesPredicate(t *testing.T) {
	sel, err := parser.Parse(`SELECT x FROM parted WHERE region = 'west'`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	p, err := Build(sel, func(name string) (*types.Schema, error) {
		return types.NewSchema([]types.Column{
			{Name: "x", Type: types.Integer},
			{Name: "region", Type: types.String},
		}), nil
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	scan := findScan(t, p.Root)
	scan.PartitionColumns = []string{"region"}

	Optimize(p)
	if len(scan.Hints.PartitionFilters) != 1 {
		t.Fatalf("expected 1 partition filter, got %d", len(scan.Hints.PartitionFilters))
	}
	if len(scan.Hints.PushableFilters) != 0 {
		t.Fatal("partition-consumed predicate should not also be pushed as a scan filter")
	}
}

func TestLimitNotPushedBelowSort(t *testing.T) {
	sel, err := parser.Parse(`SELECT id FROM orders ORDER BY id LIMIT 3`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	p, err := Build(sel, schemaFor)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	Optimize(p)
	scan := findScan(t, p.Root)
	if scan.Hints.RowCap != nil {
		t.Fatal("row cap must not be pushed below a Sort")
	}
}

func TestExplainRendersAuditTrail(t *testing.T) {
	sel, err := parser.Parse(`SELECT id FROM orders WHERE amount > 1`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	p, err := Build(sel, schemaFor)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	Optimize(p)
	out := p.Explain()
	if !strings.Contains(out, "optimizer:") {
		t.Fatal("expected audit trail section in Explain output")
	}
	for _, name := range []string{"partition_pruning", "predicate_pushdown", "column_pruning", "limit_pushdown"} {
		if !strings.Contains(out, name) {
			t.Fatalf("expected %s in audit trail:\n%s", name, out)
		}
	}
}

func findScan(t *testing.T, n Node) *Scan {
	t.Helper()
	var found *Scan
	forEachScan(n, func(s *Scan) {
		if found == nil {
			found = s
		}
	})
	if found == nil {
		t.Fatal("no scan found in plan")
	}
	return found
}
