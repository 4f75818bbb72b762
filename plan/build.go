package plan

import (
	"fmt"

	"github.com/nrktql/fileql/expr"
	"github.com/nrktql/fileql/types"
)

// SchemaError reports a reference to an unknown column, or a
// construct whose type cannot be determined, at plan-build time —
// before any row is read.
type SchemaError struct {
	Detail string
}

func (e *SchemaError) Error() string { return fmt.Sprintf("plan: %s", e.Detail) }

// SchemaResolver answers the output schema of a FROM source,
// typically by opening the reader the source locator resolves to
// and sampling or decoding its metadata.
type SchemaResolver func(source string) (*types.Schema, error)

// Build constructs an unoptimized logical plan from a parsed
// Select statement. Every node's schema is computed eagerly so
// later optimizer passes never need to re-derive it.
func Build(sel *expr.Select, resolve SchemaResolver) (*Plan, error) {
	root, err := buildFrom(sel, resolve)
	if err != nil {
		return nil, err
	}
	if sel.Where != nil {
		root = &Filter{Child: root, Predicate: sel.Where}
	}
	if len(sel.GroupBy) > 0 || len(sel.Aggregates()) > 0 {
		agg, err := buildAggregate(root, sel)
		if err != nil {
			return nil, err
		}
		root = agg
	} else if !sel.Star {
		proj, err := buildProject(root, sel.Columns)
		if err != nil {
			return nil, err
		}
		root = proj
	}
	if len(sel.OrderBy) > 0 {
		root = &Sort{Child: root, Keys: sel.OrderBy}
	}
	if sel.Limit != nil {
		root = &Limit{Child: root, N: *sel.Limit}
	}
	return &Plan{Root: root}, nil
}

func buildFrom(sel *expr.Select, resolve SchemaResolver) (Node, error) {
	base, err := buildScan(sel.From, resolve)
	if err != nil {
		return nil, err
	}
	var root Node = base
	for _, j := range sel.Joins {
		right, err := buildScan(j.Table, resolve)
		if err != nil {
			return nil, err
		}
		schema := root.Schema().Merge(right.Schema())
		root = &Join{Left: root, Right: right, Condition: j.On, Kind: j.Kind, schema: schema}
	}
	return root, nil
}

func buildScan(ref expr.TableRef, resolve SchemaResolver) (*Scan, error) {
	schema, err := resolve(ref.Source)
	if err != nil {
		return nil, fmt.Errorf("resolving schema for %s: %w", ref.Source, err)
	}
	return NewScan(ref.Source, ref.Name(), schema), nil
}

func buildProject(child Node, cols []expr.Binding) (*Project, error) {
	fields := make([]types.Column, len(cols))
	for i, b := range cols {
		name := b.Result()
		typ, err := inferExprType(child.Schema(), b.Expr)
		if err != nil {
			return nil, err
		}
		fields[i] = types.Column{Name: name, Type: typ}
	}
	return &Project{Child: child, Columns: cols, schema: types.NewSchema(fields)}, nil
}

func buildAggregate(child Node, sel *expr.Select) (*Aggregate, error) {
	for _, g := range sel.GroupBy {
		if !child.Schema().Has(g.Name) {
			return nil, &SchemaError{Detail: fmt.Sprintf("unknown GROUP BY column %q", g.Name)}
		}
	}
	// the aggregate node doubles as the projection: its output
	// columns are exactly the SELECT list, with group-key columns
	// named there carried through per group
	aggs := sel.Columns
	if aggs == nil {
		for _, g := range sel.GroupBy {
			aggs = append(aggs, expr.Bind(g, ""))
		}
		for _, a := range sel.Aggregates() {
			aggs = append(aggs, expr.Bind(a, ""))
		}
	}
	fields := make([]types.Column, len(aggs))
	for i, b := range aggs {
		typ, err := aggregateResultType(child.Schema(), b.Expr)
		if err != nil {
			return nil, err
		}
		fields[i] = types.Column{Name: b.Result(), Type: typ}
	}
	return &Aggregate{
		Child:     child,
		GroupKeys: sel.GroupBy,
		Aggs:      aggs,
		schema:    types.NewSchema(fields),
	}, nil
}

func aggregateResultType(schema *types.Schema, e expr.Node) (types.DataType, error) {
	a, ok := e.(*expr.Aggregate)
	if !ok {
		return inferExprType(schema, e)
	}
	switch a.Op {
	case expr.OpCount:
		return types.Integer, nil
	case expr.OpAvg:
		return types.Float, nil
	default:
		if a.Star {
			return types.Integer, nil
		}
		return inferExprType(schema, a.Inner)
	}
}

// inferExprType derives the static result type of an expression
// against a schema, for use in computing a Project/Aggregate
// node's output schema. Unresolvable cases (unknown functions)
// never arise here because the parser only ever builds the node
// kinds this function switches on.
func inferExprType(schema *types.Schema, e expr.Node) (types.DataType, error) {
	switch v := e.(type) {
	case *expr.Column:
		t, ok := schema.Lookup(v.Name)
		if !ok {
			return types.Null, &SchemaError{Detail: fmt.Sprintf("unknown column %q", v.Name)}
		}
		return t, nil
	case expr.Star:
		return types.JSON, nil
	case expr.Integer:
		return types.Integer, nil
	case expr.Float:
		return types.Float, nil
	case *expr.Decimal:
		return types.Decimal, nil
	case expr.String:
		return types.String, nil
	case expr.Bool:
		return types.Boolean, nil
	case expr.Null:
		return types.Null, nil
	case *expr.Timestamp:
		return types.Datetime, nil
	case *expr.Arith:
		l, err := inferExprType(schema, v.Left)
		if err != nil {
			return types.Null, err
		}
		r, err := inferExprType(schema, v.Right)
		if err != nil {
			return types.Null, err
		}
		return types.Promote(l, r), nil
	case *expr.Comparison, *expr.Logical, *expr.Not, *expr.IsNull:
		return types.Boolean, nil
	case *expr.Aggregate:
		return aggregateResultType(schema, v)
	default:
		return types.Null, fmt.Errorf("cannot infer type of %s", expr.ToString(e))
	}
}
