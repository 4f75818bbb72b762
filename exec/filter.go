package exec

import (
	"github.com/nrktql/fileql/expr"
	"github.com/nrktql/fileql/types"
)

// filterOperator keeps only rows for which Predicate evaluates
// true, applying SQL's "unknown is not true" rule to NULL results.
type filterOperator struct {
	child     Iterator
	predicate expr.Node
}

func newFilter(child Iterator, predicate expr.Node) Iterator {
	return &filterOperator{child: child, predicate: predicate}
}

func (f *filterOperator) Schema() *types.Schema { return f.child.Schema() }
func (f *filterOperator) Open() error           { return f.child.Open() }
func (f *filterOperator) Close() error          { return f.child.Close() }

func (f *filterOperator) Next() (Row, bool, error) {
	for {
		row, ok, err := f.child.Next()
		if err != nil || !ok {
			return Row{}, ok, err
		}
		v, err := Eval(f.predicate, row)
		if err != nil {
			return Row{}, false, err
		}
		if Truthy(v) {
			return row, true, nil
		}
	}
}
