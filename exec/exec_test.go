package exec

import "github.com/nrktql/fileql/types"

// sliceIterator is a minimal Iterator over an in-memory slice of
// rows, for exercising individual operators without a real reader
// or plan behind them.
type sliceIterator struct {
	schema *types.Schema
	rows   []Row
	pos    int
	opened bool
	closed bool
}

func newSliceIterator(schema *types.Schema, rows []Row) *sliceIterator {
	return &sliceIterator{schema: schema, rows: rows}
}

func (s *sliceIterator) Schema() *types.Schema { return s.schema }
func (s *sliceIterator) Open() error           { s.opened = true; return nil }
func (s *sliceIterator) Close() error          { s.closed = true; return nil }

func (s *sliceIterator) Next() (Row, bool, error) {
	if s.pos >= len(s.rows) {
		return Row{}, false, nil
	}
	row := s.rows[s.pos]
	s.pos++
	return row, true, nil
}

func row(schema *types.Schema, values ...types.Value) Row {
	return Row{Schema: schema, Values: values}
}

func drainAll(it Iterator) ([]Row, error) {
	if err := it.Open(); err != nil {
		return nil, err
	}
	var out []Row
	for {
		r, ok, err := it.Next()
		if err != nil {
			return out, err
		}
		if !ok {
			break
		}
		out = append(out, r.Clone())
	}
	return out, it.Close()
}
