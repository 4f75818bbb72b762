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

// Printable is satisfied by anything that can render
// itself back to SQL text.
type Printable interface {
	text(dst *strings.Builder)
}

// Node is an expression AST node.
type Node interface {
	Printable
	// Equals reports whether this node is syntactically
	// equivalent to another node.
	Equals(Node) bool

	walk(Visitor)
}

// nonleaf is implemented by every Node that has children;
// leaves (literals, Star, Column) do not need a rewrite method.
type nonleaf interface {
	rewrite(r Rewriter) Node
}

// Visitor is called once per node encountered by Walk. If the
// returned Visitor is non-nil, Walk descends into the node's
// children using it.
type Visitor interface {
	Visit(Node) Visitor
}

// Rewriter rewrites nodes in depth-first order.
type Rewriter interface {
	// Rewrite is applied to a node after its children
	// (if any) have already been rewritten.
	Rewrite(Node) Node
	// Walk returns the Rewriter to use for a node's children.
	// A nil result skips rewriting the children entirely.
	Walk(Node) Rewriter
}

// Walk traverses n in depth-first order, calling v.Visit for
// every node reached.
func Walk(v Visitor, n Node) {
	if n == nil {
		return
	}
	w := v.Visit(n)
	if w != nil {
		n.walk(w)
		w.Visit(nil)
	}
}

// Rewrite recursively applies r to n in depth-first order and
// returns the (possibly new) node.
func Rewrite(r Rewriter, n Node) Node {
	if n == nil {
		return nil
	}
	if nl, ok := n.(nonleaf); ok {
		if rc := r.Walk(n); rc != nil {
			n = nl.rewrite(rc)
		}
	}
	return r.Rewrite(n)
}

// ToString renders the textual representation of a node.
func ToString(p Printable) string {
	if p == nil {
		return "<nil>"
	}
	var buf strings.Builder
	p.text(&buf)
	return buf.String()
}

// Equal reports whether a and b are equivalent, treating nil as
// a distinct value from any non-nil node.
func Equal(a, b Node) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equals(b)
}

// Constant is implemented by literal (constant-valued) nodes.
type Constant interface {
	Node
	// constant is an unexported marker so that only the
	// literal types declared in this package can satisfy
	// the interface.
	constant()
}

// IsConstant reports whether e is a literal value.
func IsConstant(e Node) bool {
	_, ok := e.(Constant)
	return ok
}
