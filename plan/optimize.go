package plan

import (
	"fmt"

	"github.com/nrktql/fileql/expr"
	"github.com/nrktql/fileql/predicate"
	"github.com/nrktql/fileql/types"
)

// pass is one named, idempotent optimizer rule. It mutates p.Root
// in place and returns the audit note to append. Optimize records
// the note of every pass, a no-op run included, so Explain always
// shows every pass that ran.
type pass struct {
	name string
	run  func(p *Plan) string
}

// passes runs in this fixed order, matching the mandated pipeline:
// partition pruning, predicate pushdown, column pruning, limit
// pushdown. Every pass is idempotent: running the full pipeline
// twice produces the same plan the second time.
var passes = []pass{
	{"partition_pruning", partitionPruning},
	{"predicate_pushdown", predicatePushdown},
	{"column_pruning", columnPruning},
	{"limit_pushdown", limitPushdown},
}

// Optimize runs all optimizer passes over p in fixed order,
// appending one Audit entry per pass.
func Optimize(p *Plan) {
	for _, ps := range passes {
		note := ps.run(p)
		p.Audit = append(p.Audit, Audit{Pass: ps.name, Note: note})
	}
}

// conjuncts splits a WHERE expression into its top-level AND
// operands; a non-AND expression is a single conjunct.
func conjuncts(e expr.Node) []expr.Node {
	if e == nil {
		return nil
	}
	if l, ok := e.(*expr.Logical); ok && l.Op == expr.OpAnd {
		return append(conjuncts(l.Left), conjuncts(l.Right)...)
	}
	return []expr.Node{e}
}

// rejoin reassembles conjuncts with AND, or returns nil for an
// empty list.
func rejoin(cs []expr.Node) expr.Node {
	if len(cs) == 0 {
		return nil
	}
	out := cs[0]
	for _, c := range cs[1:] {
		out = expr.And(out, c)
	}
	return out
}

// simplePredicateColumn returns the single column a conjunct
// constrains, if the conjunct has the shape `col op literal` (or
// `literal op col`), and whether it qualifies.
func simplePredicateColumn(e expr.Node) (*expr.Column, bool) {
	switch v := e.(type) {
	case *expr.Comparison:
		if c, ok := v.Left.(*expr.Column); ok && expr.IsConstant(v.Right) {
			return c, true
		}
		if c, ok := v.Right.(*expr.Column); ok && expr.IsConstant(v.Left) {
			return c, true
		}
	case *expr.IsNull:
		if c, ok := v.Expr.(*expr.Column); ok {
			return c, true
		}
	}
	return nil, false
}

// ForEachScan applies f to every Scan reachable in the plan,
// exported for callers (the top-level query API) that need to
// attach discovered partition columns to a built plan's scans
// before Optimize runs.
func ForEachScan(n Node, f func(*Scan)) {
	forEachScan(n, f)
}

// forEachScan applies f to every Scan reachable in the plan.
func forEachScan(n Node, f func(*Scan)) {
	if s, ok := n.(*Scan); ok {
		f(s)
		return
	}
	for _, c := range n.Children() {
		forEachScan(c, f)
	}
}

// onlyScanBelowFilter reports the single Scan a Filter sits
// directly above, skipping Filter/Project passthrough nodes,
// or nil if the filter sits above any other node (a Join, an
// Aggregate, a Sort or a Limit).
func onlyScanBelowFilter(n Node) *Scan {
	for {
		switch v := n.(type) {
		case *Scan:
			return v
		case *Filter:
			n = v.Child
		case *Project:
			n = v.Child
		default:
			return nil
		}
	}
}

// rewriteTree rebuilds the plan tree bottom-up, replacing each
// node's children with f's result before calling f on the node
// itself. Node implementations have no generic "set child i"
// method, so this switches explicitly on the small, fixed set of
// node kinds rather than going through Children().
func rewriteTree(n Node, f func(Node) Node) Node {
	switch v := n.(type) {
	case *Filter:
		v.Child = rewriteTree(v.Child, f)
		return f(v)
	case *Project:
		v.Child = rewriteTree(v.Child, f)
		return f(v)
	case *Aggregate:
		v.Child = rewriteTree(v.Child, f)
		return f(v)
	case *Sort:
		v.Child = rewriteTree(v.Child, f)
		return f(v)
	case *Limit:
		v.Child = rewriteTree(v.Child, f)
		return f(v)
	case *Join:
		v.Left = rewriteTree(v.Left, f)
		v.Right = rewriteTree(v.Right, f)
		return f(v)
	default: // *Scan
		return f(n)
	}
}

func partitionPruning(p *Plan) string {
	pruned := 0
	p.Root = rewriteTree(p.Root, func(n Node) Node {
		f, ok := n.(*Filter)
		if !ok {
			return n
		}
		scan := onlyScanBelowFilter(f)
		if scan == nil || len(scan.PartitionColumns) == 0 {
			return f
		}
		partCols := make(map[string]bool, len(scan.PartitionColumns))
		for _, c := range scan.PartitionColumns {
			partCols[c] = true
		}
		var remaining []expr.Node
		for _, c := range conjuncts(f.Predicate) {
			col, ok := simplePredicateColumn(c)
			if ok && partCols[col.Name] {
				scan.Hints.PartitionFilters = append(scan.Hints.PartitionFilters, c)
				pruned++
				continue
			}
			remaining = append(remaining, c)
		}
		f.Predicate = rejoin(remaining)
		if f.Predicate == nil {
			return f.Child
		}
		return f
	})
	return fmt.Sprintf("consumed %d partition predicate(s)", pruned)
}

func predicatePushdown(p *Plan) string {
	pushed := 0
	p.Root = rewriteTree(p.Root, func(n Node) Node {
		f, ok := n.(*Filter)
		if !ok {
			return n
		}
		scan := onlyScanBelowFilter(f)
		if scan == nil {
			return f
		}
		var remaining []expr.Node
		for _, c := range conjuncts(f.Predicate) {
			col, ok := simplePredicateColumn(c)
			if ok && scan.Schema().Has(col.Name) && (col.Table == "" || col.Table == scan.Alias) && pushableType(scan.Schema(), c) {
				scan.Hints.PushableFilters = append(scan.Hints.PushableFilters, c)
				pushed++
				continue
			}
			remaining = append(remaining, c)
		}
		f.Predicate = rejoin(remaining)
		if f.Predicate == nil {
			return scan
		}
		return f
	})
	return fmt.Sprintf("pushed %d predicate(s) to scans", pushed)
}

// pushableType reports whether a simple predicate's literal can be
// evaluated against its column's declared type. An incomparable
// pair stays in the residual filter so the executor surfaces it as
// a runtime type error instead of a reader silently mis-filtering.
func pushableType(schema *types.Schema, e expr.Node) bool {
	col, _, lit, ok := predicate.Simple(e)
	if !ok {
		return true // IS [NOT] NULL is type-independent
	}
	colType, _ := schema.Lookup(col.Name)
	if lit.IsNull() || colType == types.Null {
		return true
	}
	return types.Comparable(colType, lit.Type)
}

func columnPruning(p *Plan) string {
	required := make(map[Node]map[string]bool)
	var collect func(n Node, need map[string]bool)
	collect = func(n Node, need map[string]bool) {
		if required[n] == nil {
			required[n] = map[string]bool{}
		}
		for k := range need {
			required[n][k] = true
		}
		switch v := n.(type) {
		case *Scan:
			// predicate pushdown already ran, so a predicate
			// consumed into Hints.PushableFilters no longer
			// appears as a Filter node above this scan; its
			// columns must still be counted as required.
			for _, pf := range v.Hints.PushableFilters {
				addColumns(required[n], pf)
			}
		case *Filter:
			down := cloneSet(need)
			addColumns(down, v.Predicate)
			collect(v.Child, down)
		case *Project:
			down := map[string]bool{}
			for _, b := range v.Columns {
				addColumns(down, b.Expr)
			}
			collect(v.Child, down)
		case *Aggregate:
			down := map[string]bool{}
			for _, g := range v.GroupKeys {
				down[g.Name] = true
			}
			for _, b := range v.Aggs {
				addColumns(down, b.Expr)
			}
			collect(v.Child, down)
		case *Sort:
			down := cloneSet(need)
			for _, k := range v.Keys {
				down[k.Column.Name] = true
			}
			collect(v.Child, down)
		case *Limit:
			collect(v.Child, cloneSet(need))
		case *Join:
			down := cloneSet(need)
			addColumns(down, v.Condition)
			collect(v.Left, down)
			collect(v.Right, down)
		}
	}
	// the query's consumer reads every column of the root schema
	rootNeed := map[string]bool{}
	for _, name := range p.Root.Schema().Names() {
		rootNeed[name] = true
	}
	collect(p.Root, rootNeed)
	total := 0
	forEachScan(p.Root, func(s *Scan) {
		need := required[s]
		cols := make([]string, 0, len(need))
		for _, c := range s.Schema().Columns {
			if need[c.Name] {
				cols = append(cols, c.Name)
			}
		}
		s.Hints.RequiredColumns = cols
		total += len(cols)
	})
	return fmt.Sprintf("computed required columns for scans (%d total column refs)", total)
}

func cloneSet(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func addColumns(dst map[string]bool, e expr.Node) {
	expr.Walk(collectorVisitor{dst}, e)
}

type collectorVisitor struct{ dst map[string]bool }

func (c collectorVisitor) Visit(n expr.Node) expr.Visitor {
	if n == nil {
		return nil
	}
	if col, ok := n.(*expr.Column); ok {
		c.dst[col.Name] = true
	}
	return c
}

func limitPushdown(p *Plan) string {
	lim, ok := p.Root.(*Limit)
	if !ok {
		return "no top-level LIMIT"
	}
	pushedTo := 0
	var walk func(n Node) bool
	walk = func(n Node) bool {
		switch v := n.(type) {
		case *Scan:
			cap := lim.N
			if v.Hints.RowCap == nil || *v.Hints.RowCap > cap {
				v.Hints.RowCap = &cap
			}
			pushedTo++
			return true
		case *Sort, *Aggregate, *Join:
			// a cap above a Sort/Aggregate/Join would change
			// results, since those operators must see every
			// input row; stop descending.
			return false
		case *Filter:
			// any predicate still here survived predicate pushdown,
			// so the scan's emitted rows are not yet filtered by it;
			// capping the scan would undercount matching rows.
			return false
		default:
			for _, c := range n.Children() {
				if !walk(c) {
					return true
				}
			}
			return true
		}
	}
	walk(lim.Child)
	return fmt.Sprintf("pushed row cap to %d scan(s)", pushedTo)
}
