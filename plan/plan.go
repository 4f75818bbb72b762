// Package plan builds and optimizes logical query plans: an
// immutable-shaped tree of Scan/Filter/Project/Aggregate/Sort/
// Limit/Join nodes with a stable, computable output schema at
// every node.
//
// Plans are constructed by the parser-facing Build function,
// rewritten in place by the four ordered optimizer passes in
// optimize.go, and consumed once by the executor.
package plan

import (
	"fmt"
	"strings"

	"github.com/nrktql/fileql/expr"
	"github.com/nrktql/fileql/types"
)

// Node is one logical plan operator.
type Node interface {
	// Schema is this node's output schema.
	Schema() *types.Schema
	// Children returns the node's direct inputs, in evaluation
	// order (empty for Scan).
	Children() []Node
	// describe renders one line (no trailing newline, no
	// indentation) identifying this node for Explain.
	describe() string
}

// Hints is the pushdown bundle attached to a Scan.
type Hints struct {
	RequiredColumns  []string
	PushableFilters  []expr.Node
	RowCap           *int64
	PartitionFilters []expr.Node
}

// Scan reads rows from a single source.
type Scan struct {
	Source string // resolved locator text, as it appeared in FROM
	Alias  string
	schema *types.Schema
	Hints  Hints
	// PartitionColumns names the virtual Hive-partition columns
	// discovered for this source, if any; partition pruning only
	// considers predicates over these columns.
	PartitionColumns []string
}

func NewScan(source, alias string, schema *types.Schema) *Scan {
	return &Scan{Source: source, Alias: alias, schema: schema}
}

func (s *Scan) Schema() *types.Schema { return s.schema }
func (s *Scan) Children() []Node      { return nil }
func (s *Scan) describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Scan(%s", s.Source)
	if s.Alias != "" && s.Alias != s.Source {
		fmt.Fprintf(&b, " AS %s", s.Alias)
	}
	b.WriteByte(')')
	if len(s.Hints.RequiredColumns) > 0 {
		fmt.Fprintf(&b, " columns=%s", strings.Join(s.Hints.RequiredColumns, ","))
	}
	if len(s.Hints.PushableFilters) > 0 {
		fmt.Fprintf(&b, " pushed=%d", len(s.Hints.PushableFilters))
	}
	if len(s.Hints.PartitionFilters) > 0 {
		fmt.Fprintf(&b, " partition_pruned=%d", len(s.Hints.PartitionFilters))
	}
	if s.Hints.RowCap != nil {
		fmt.Fprintf(&b, " cap=%d", *s.Hints.RowCap)
	}
	return b.String()
}

// Filter keeps rows for which Predicate evaluates true.
type Filter struct {
	Child     Node
	Predicate expr.Node
}

func (f *Filter) Schema() *types.Schema { return f.Child.Schema() }
func (f *Filter) Children() []Node      { return []Node{f.Child} }
func (f *Filter) describe() string {
	return fmt.Sprintf("Filter(%s)", expr.ToString(f.Predicate))
}

// Project computes the output columns of its child, either a set
// of named passthrough columns or general expressions.
type Project struct {
	Child   Node
	Columns []expr.Binding
	schema  *types.Schema
}

func (p *Project) Schema() *types.Schema { return p.schema }
func (p *Project) Children() []Node      { return []Node{p.Child} }
func (p *Project) describe() string {
	parts := make([]string, len(p.Columns))
	for i, c := range p.Columns {
		parts[i] = expr.ToString(c.Expr)
	}
	return fmt.Sprintf("Project(%s)", strings.Join(parts, ", "))
}

// Aggregate computes grouped aggregate expressions.
type Aggregate struct {
	Child     Node
	GroupKeys []*expr.Column
	Aggs      []expr.Binding
	schema    *types.Schema
}

func (a *Aggregate) Schema() *types.Schema { return a.schema }
func (a *Aggregate) Children() []Node      { return []Node{a.Child} }
func (a *Aggregate) describe() string {
	groups := make([]string, len(a.GroupKeys))
	for i, g := range a.GroupKeys {
		groups[i] = expr.ToString(g)
	}
	aggs := make([]string, len(a.Aggs))
	for i, b := range a.Aggs {
		aggs[i] = expr.ToString(b.Expr)
	}
	return fmt.Sprintf("Aggregate(group=[%s], agg=[%s])", strings.Join(groups, ","), strings.Join(aggs, ","))
}

// Sort orders rows by a sequence of sort keys.
type Sort struct {
	Child Node
	Keys  []expr.SortKey
}

func (s *Sort) Schema() *types.Schema { return s.Child.Schema() }
func (s *Sort) Children() []Node      { return []Node{s.Child} }
func (s *Sort) describe() string {
	parts := make([]string, len(s.Keys))
	for i, k := range s.Keys {
		dir := "ASC"
		if k.Desc {
			dir = "DESC"
		}
		parts[i] = fmt.Sprintf("%s %s", expr.ToString(k.Column), dir)
	}
	return fmt.Sprintf("Sort(%s)", strings.Join(parts, ", "))
}

// Limit caps the number of rows passed through.
type Limit struct {
	Child Node
	N     int64
}

func (l *Limit) Schema() *types.Schema { return l.Child.Schema() }
func (l *Limit) Children() []Node      { return []Node{l.Child} }
func (l *Limit) describe() string      { return fmt.Sprintf("Limit(%d)", l.N) }

// Join combines rows from Left and Right matching Condition,
// according to Kind's outer-join semantics.
type Join struct {
	Left, Right Node
	Condition   expr.Node
	Kind        expr.JoinKind
	schema      *types.Schema
}

func (j *Join) Schema() *types.Schema { return j.schema }
func (j *Join) Children() []Node      { return []Node{j.Left, j.Right} }
func (j *Join) describe() string {
	cond := "CROSS"
	if j.Condition != nil {
		cond = expr.ToString(j.Condition)
	}
	return fmt.Sprintf("%s(%s)", j.Kind.String(), cond)
}

// Audit is one line of the optimizer's audit trail: which pass
// ran and what it did.
type Audit struct {
	Pass string
	Note string
}

// Plan is a built, possibly optimized query plan.
type Plan struct {
	Root  Node
	Audit []Audit
}

// Explain renders the plan tree as indented text, one operator
// per line, followed by the audit trail in pass order. This
// matches the rendering the external query API exposes via
// QueryResult.Explain().
func (p *Plan) Explain() string {
	var b strings.Builder
	explainNode(&b, p.Root, 0)
	if len(p.Audit) > 0 {
		b.WriteString("\noptimizer:\n")
		for _, a := range p.Audit {
			fmt.Fprintf(&b, "  %s: %s\n", a.Pass, a.Note)
		}
	}
	return b.String()
}

func explainNode(b *strings.Builder, n Node, depth int) {
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString(n.describe())
	b.WriteByte('\n')
	for _, c := range n.Children() {
		explainNode(b, c, depth+1)
	}
}
