package exec

import (
	"context"

	"github.com/nrktql/fileql/aws"
	"github.com/nrktql/fileql/expr"
	"github.com/nrktql/fileql/plan"
	"github.com/nrktql/fileql/predicate"
	"github.com/nrktql/fileql/reader"
	"github.com/nrktql/fileql/source"
	"github.com/nrktql/fileql/types"
)

// scanFile is one concrete file a Scan node resolves to, with the
// partition values discovered from its path.
type scanFile struct {
	loc        source.Locator
	partitions []source.Partition
}

// scanOperator expands a plan.Scan's source locator into the
// concrete files it reads, applying partition pruning (files whose
// partition values fail Hints.PartitionFilters are skipped before
// any bytes are read) the same way the optimizer's partition
// pruning pass assumed a Scan operator would.
type scanOperator struct {
	ctx   context.Context
	node  *plan.Scan
	key   *aws.SigningKey
	files []scanFile
	idx   int

	cur       reader.Reader
	curPart   []source.Partition
	remaining *int64 // shared row cap across every file this scan opens, nil if uncapped
	warnings  *[]string
}

// NewScan builds the Iterator for a plan.Scan node. key, when
// non-nil, signs requests for s3:// locators; when nil, a key is
// built from ambient credentials.
// warnings, when non-nil, is shared across every Scan in a query
// and accumulates recoverable data-quality notices from every file
// this scan reads.
func NewScan(ctx context.Context, node *plan.Scan, key *aws.SigningKey, warnings *[]string) (Iterator, error) {
	loc, err := source.Parse(node.Source)
	if err != nil {
		return nil, err
	}
	locs, err := source.ExpandWithKey(loc, key)
	if err != nil {
		return nil, err
	}
	files := make([]scanFile, 0, len(locs))
	for _, l := range locs {
		parts := source.DiscoverPartitions(l.Path)
		if !partitionMatch(parts, node.Hints.PartitionFilters) {
			continue
		}
		files = append(files, scanFile{loc: l, partitions: parts})
	}
	op := &scanOperator{ctx: ctx, node: node, key: key, files: files, warnings: warnings}
	if node.Hints.RowCap != nil {
		n := *node.Hints.RowCap
		op.remaining = &n
	}
	return op, nil
}

func partitionMatch(parts []source.Partition, filters []expr.Node) bool {
	if len(filters) == 0 {
		return true
	}
	m := make(map[string]types.Value, len(parts))
	for _, p := range parts {
		m[p.Key] = p.Value
	}
	return predicate.Match(predicate.MapLookup(m), filters)
}

func (s *scanOperator) Schema() *types.Schema { return s.node.Schema() }

func (s *scanOperator) Open() error {
	return nil
}

// openNextFile advances past exhausted files until one opens
// successfully or the file list is exhausted.
func (s *scanOperator) openNextFile() error {
	for s.cur == nil && s.idx < len(s.files) {
		f := s.files[s.idx]
		s.idx++
		src, err := source.Open(f.loc, s.key)
		if err != nil {
			return err
		}
		rd, err := source.OpenReader(s.ctx, f.loc, src)
		if err != nil {
			return err
		}
		hints := reader.Hints{
			RequiredColumns: s.node.Hints.RequiredColumns,
			PushableFilters: s.node.Hints.PushableFilters,
			Warnings:        s.warnings,
		}
		if s.remaining != nil {
			n := *s.remaining
			hints.RowCap = &n
		}
		if err := rd.Open(s.ctx, hints); err != nil {
			return err
		}
		s.cur = rd
		s.curPart = f.partitions
	}
	return nil
}

func (s *scanOperator) Next() (Row, bool, error) {
	for {
		if s.remaining != nil && *s.remaining <= 0 {
			return Row{}, false, nil
		}
		if s.cur == nil {
			if err := s.openNextFile(); err != nil {
				return Row{}, false, err
			}
			if s.cur == nil {
				return Row{}, false, nil
			}
		}
		row, ok, err := s.cur.Next()
		if err != nil {
			return Row{}, false, err
		}
		if !ok {
			s.cur.Close()
			s.cur = nil
			continue
		}
		out := withPartitions(s.node.Schema(), row, s.curPart)
		if s.remaining != nil {
			n := *s.remaining - 1
			s.remaining = &n
		}
		return out, true, nil
	}
}

// withPartitions rebuilds row against the scan's full output
// schema (base columns plus any Hive-partition columns), filling
// partition columns from the file's discovered values — they never
// appear in the file's own content, so the underlying reader's row
// never carries them.
func withPartitions(schema *types.Schema, row Row, parts []source.Partition) Row {
	if len(parts) == 0 {
		return Row{Schema: schema, Values: row.Values}
	}
	partVal := make(map[string]types.Value, len(parts))
	for _, p := range parts {
		partVal[p.Key] = p.Value
	}
	values := make([]types.Value, len(schema.Columns))
	for i, col := range schema.Columns {
		if v, ok := partVal[col.Name]; ok {
			values[i] = v
			continue
		}
		if v, ok := row.Get(col.Name); ok {
			values[i] = v
			continue
		}
		values[i] = types.NullValue()
	}
	return Row{Schema: schema, Values: values}
}

func (s *scanOperator) Close() error {
	if s.cur != nil {
		err := s.cur.Close()
		s.cur = nil
		return err
	}
	return nil
}
