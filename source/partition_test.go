package source

import (
	"testing"

	"github.com/nrktql/fileql/types"
)

func TestDiscoverPartitionsHiveStyle(t *testing.T) {
	parts := DiscoverPartitions("data/year=2024/region=west/part.parquet")
	if len(parts) != 2 {
		t.Fatalf("expected 2 partitions, got %d: %+v", len(parts), parts)
	}
	if parts[0].Key != "year" || parts[0].Value.Int() != 2024 {
		t.Fatalf("unexpected first partition: %+v", parts[0])
	}
	if parts[1].Key != "region" || parts[1].Value.String() != "west" {
		t.Fatalf("unexpected second partition: %+v", parts[1])
	}
}

func TestDiscoverPartitionsNoneFound(t *testing.T) {
	parts := DiscoverPartitions("data/plain/file.csv")
	if len(parts) != 0 {
		t.Fatalf("expected no partitions, got %+v", parts)
	}
}

func TestDiscoverPartitionsTypeInference(t *testing.T) {
	parts := DiscoverPartitions("x/active=true/count=5/f.csv")
	for _, p := range parts {
		switch p.Key {
		case "active":
			if p.Value.Type != types.Boolean {
				t.Fatalf("active should infer Boolean, got %v", p.Value.Type)
			}
		case "count":
			if p.Value.Type != types.Integer {
				t.Fatalf("count should infer Integer, got %v", p.Value.Type)
			}
		}
	}
}

func TestPartitionColumns(t *testing.T) {
	parts := DiscoverPartitions("a/year=2024/b/region=west/f.csv")
	names := PartitionColumns(parts)
	if len(names) != 2 || names[0] != "year" || names[1] != "region" {
		t.Fatalf("unexpected partition column names: %v", names)
	}
}
