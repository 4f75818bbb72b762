// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package expr

import "strings"

// Binding associates a projection expression with its output
// column name.
type Binding struct {
	Expr Node
	as   string
}

// Bind creates a binding of e to the output name as. An empty
// as defers to the expression's implied name (see Result).
func Bind(e Node, as string) Binding { return Binding{Expr: e, as: as} }

// As sets the explicit output name for the binding.
func (b *Binding) As(name string) { b.as = name }

// Explicit reports whether the binding has an explicit AS alias.
func (b *Binding) Explicit() bool { return b.as != "" }

// Result is the output column name: the explicit alias if one was
// given, otherwise the name implied by the expression — a bare
// column reference's name, or the rendered text of anything else
// (so "AVG(v)" names an unaliased AVG(v), and two different
// unaliased aggregates never collide).
func (b *Binding) Result() string {
	if b.as != "" {
		return b.as
	}
	if c, ok := b.Expr.(*Column); ok {
		return c.Name
	}
	return ToString(b.Expr)
}

func (b *Binding) text(dst *strings.Builder) {
	b.Expr.text(dst)
	if b.as != "" {
		dst.WriteString(" AS ")
		dst.WriteString(QuoteID(b.as))
	}
}

// JoinKind is the kind of a table join.
type JoinKind int

const (
	CrossJoin JoinKind = iota
	InnerJoin
	LeftJoin
	RightJoin
	FullJoin
)

func (j JoinKind) String() string {
	switch j {
	case InnerJoin:
		return "JOIN"
	case LeftJoin:
		return "LEFT JOIN"
	case RightJoin:
		return "RIGHT JOIN"
	case FullJoin:
		return "FULL JOIN"
	default:
		return "CROSS JOIN"
	}
}

// TableRef is one element of the FROM clause: either a bare
// identifier (resolved against an already-open source) or a
// single-quoted locator string, plus an optional alias.
type TableRef struct {
	// Source is the raw identifier or quoted-path text as it
	// appeared in the query; the source locator rewriter
	// resolves it to a concrete reader before planning.
	Source string
	// Alias is the binding name other clauses use to qualify
	// columns from this table; defaults to Source.
	Alias string
}

func (t *TableRef) Name() string {
	if t.Alias != "" {
		return t.Alias
	}
	return t.Source
}

// Join is one JOIN clause following the first FROM source.
type Join struct {
	Kind  JoinKind
	Table TableRef
	On    Node // nil for CrossJoin
}

// SortKey is one ORDER BY term.
type SortKey struct {
	Column *Column
	Desc   bool
}

func (s *SortKey) text(dst *strings.Builder) {
	s.Column.text(dst)
	if s.Desc {
		dst.WriteString(" DESC")
	}
}

// Select is the top-level parsed query: a single SELECT
// statement with no sub-queries, UNIONs, or CTEs. The supported
// grammar is deliberately that small.
type Select struct {
	Columns []Binding // projection list; nil+Star means SELECT *
	Star    bool
	From    TableRef
	Joins   []Join
	Where   Node // nil if no WHERE clause
	GroupBy []*Column
	OrderBy []SortKey
	Limit   *int64 // nil if no LIMIT clause
}

// Aggregates returns the aggregate calls appearing in the
// projection list, in projection order.
func (s *Select) Aggregates() []*Aggregate {
	var out []*Aggregate
	for i := range s.Columns {
		Walk(visitFn(func(n Node) bool {
			if a, ok := n.(*Aggregate); ok {
				out = append(out, a)
				return false
			}
			return true
		}), s.Columns[i].Expr)
	}
	return out
}

// visitFn adapts a func(Node) bool to a Visitor; returning false
// stops descent into that node's children.
type visitFn func(Node) bool

func (f visitFn) Visit(n Node) Visitor {
	if n == nil {
		return nil
	}
	if f(n) {
		return f
	}
	return nil
}
