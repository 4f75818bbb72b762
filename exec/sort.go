package exec

import (
	"sort"

	"github.com/nrktql/fileql/expr"
	"github.com/nrktql/fileql/types"
)

// sortOperator is a blocking operator: it drains its child fully
// on Open, orders the buffered rows by Keys with a stable sort (so
// ties preserve input order), then serves them one at a time.
// NULLs sort after every non-null value regardless of sort
// direction, matching the ordering types.Compare already applies
// for a single key; Sort only needs to add direction and
// multi-key tie-breaking on top of it.
type sortOperator struct {
	child Iterator
	keys  []expr.SortKey

	rows []Row
	pos  int
}

func newSort(child Iterator, keys []expr.SortKey) Iterator {
	return &sortOperator{child: child, keys: keys}
}

func (s *sortOperator) Schema() *types.Schema { return s.child.Schema() }

func (s *sortOperator) Open() error {
	if err := s.child.Open(); err != nil {
		return err
	}
	for {
		row, ok, err := s.child.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		s.rows = append(s.rows, row.Clone())
	}
	sort.SliceStable(s.rows, func(i, j int) bool {
		return s.less(s.rows[i], s.rows[j])
	})
	return nil
}

func (s *sortOperator) less(a, b Row) bool {
	for _, k := range s.keys {
		av, _ := a.Get(k.Column.Name)
		bv, _ := b.Get(k.Column.Name)
		if av.IsNull() || bv.IsNull() {
			if c := compareNullsLast(av, bv); c != 0 {
				return c < 0
			}
			continue
		}
		c := types.Compare(av, bv)
		if k.Desc {
			c = -c
		}
		if c != 0 {
			return c < 0
		}
	}
	return false
}

func compareNullsLast(a, b types.Value) int {
	if a.IsNull() && b.IsNull() {
		return 0
	}
	if a.IsNull() {
		return 1
	}
	if b.IsNull() {
		return -1
	}
	return types.Compare(a, b)
}

func (s *sortOperator) Next() (Row, bool, error) {
	if s.pos >= len(s.rows) {
		return Row{}, false, nil
	}
	row := s.rows[s.pos]
	s.pos++
	return row, true, nil
}

func (s *sortOperator) Close() error {
	s.rows = nil
	return s.child.Close()
}
