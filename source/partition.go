package source

import (
	"strconv"
	"strings"

	"github.com/nrktql/fileql/types"
)

// Partition is one Hive-style key=value path segment discovered
// while resolving a source path, carrying its inferred value.
type Partition struct {
	Key   string
	Value types.Value
}

// DiscoverPartitions scans path for "key=value" segments (as in
// .../region=west/year=2024/orders.csv) and returns them in
// left-to-right order, with each value's type inferred from its
// string form the same way a reader would infer a field's type.
//
// Every "segment=value" path component is a partition key by
// construction; no declared path template is needed.
func DiscoverPartitions(path string) []Partition {
	var out []Partition
	for _, seg := range strings.Split(path, "/") {
		eq := strings.IndexByte(seg, '=')
		if eq <= 0 || eq == len(seg)-1 {
			continue
		}
		key, raw := seg[:eq], seg[eq+1:]
		typ := types.InferTypeFromString(raw)
		out = append(out, Partition{Key: key, Value: literalValue(typ, raw)})
	}
	return out
}

func literalValue(typ types.DataType, raw string) types.Value {
	switch typ {
	case types.Integer:
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return types.IntValue(n)
		}
	case types.Float:
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return types.FloatValue(f)
		}
	case types.Boolean:
		if b, err := strconv.ParseBool(raw); err == nil {
			return types.BoolValue(b)
		}
	}
	return types.StringValue(raw)
}

// PartitionColumns returns just the key names, in order, for
// attaching to a plan.Scan's PartitionColumns field.
func PartitionColumns(parts []Partition) []string {
	names := make([]string, len(parts))
	for i, p := range parts {
		names[i] = p.Key
	}
	return names
}
