package exec

import (
	"github.com/nrktql/fileql/expr"
	"github.com/nrktql/fileql/types"
)

// projectOperator computes a fixed list of output expressions
// against each input row.
type projectOperator struct {
	child   Iterator
	columns []expr.Binding
	schema  *types.Schema
}

func newProject(child Iterator, columns []expr.Binding, schema *types.Schema) Iterator {
	return &projectOperator{child: child, columns: columns, schema: schema}
}

func (p *projectOperator) Schema() *types.Schema { return p.schema }
func (p *projectOperator) Open() error           { return p.child.Open() }
func (p *projectOperator) Close() error          { return p.child.Close() }

func (p *projectOperator) Next() (Row, bool, error) {
	row, ok, err := p.child.Next()
	if err != nil || !ok {
		return Row{}, ok, err
	}
	values := make([]types.Value, len(p.columns))
	for i, b := range p.columns {
		v, err := Eval(b.Expr, row)
		if err != nil {
			return Row{}, false, err
		}
		values[i] = v
	}
	return Row{Schema: p.schema, Values: values}, true, nil
}
