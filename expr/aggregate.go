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

// AggregateOp is one of the aggregation operations.
type AggregateOp int

const (
	OpCount AggregateOp = iota
	OpSum
	OpAvg
	OpMin
	OpMax
)

func (a AggregateOp) String() string {
	switch a {
	case OpCount:
		return "COUNT"
	case OpSum:
		return "SUM"
	case OpAvg:
		return "AVG"
	case OpMin:
		return "MIN"
	case OpMax:
		return "MAX"
	default:
		return "<unknown agg>"
	}
}

// Aggregate is an aggregate function call: COUNT(*), COUNT(x),
// SUM(x), AVG(x), MIN(x), or MAX(x).
type Aggregate struct {
	Op AggregateOp
	// Star is set for COUNT(*); Inner is nil in that case.
	Star  bool
	Inner Node
}

func (a *Aggregate) text(dst *strings.Builder) {
	dst.WriteString(a.Op.String())
	dst.WriteByte('(')
	if a.Star {
		dst.WriteByte('*')
	} else {
		a.Inner.text(dst)
	}
	dst.WriteByte(')')
}
func (a *Aggregate) walk(v Visitor) {
	if !a.Star {
		Walk(v, a.Inner)
	}
}
func (a *Aggregate) rewrite(r Rewriter) Node {
	if !a.Star {
		a.Inner = Rewrite(r, a.Inner)
	}
	return a
}
func (a *Aggregate) Equals(e Node) bool {
	o, ok := e.(*Aggregate)
	if !ok || o.Op != a.Op || o.Star != a.Star {
		return false
	}
	if a.Star {
		return true
	}
	return a.Inner.Equals(o.Inner)
}

// Count produces COUNT(e).
func Count(e Node) *Aggregate { return &Aggregate{Op: OpCount, Inner: e} }

// CountStar produces COUNT(*).
func CountStar() *Aggregate { return &Aggregate{Op: OpCount, Star: true} }

// Sum produces SUM(e).
func Sum(e Node) *Aggregate { return &Aggregate{Op: OpSum, Inner: e} }

// Avg produces AVG(e).
func Avg(e Node) *Aggregate { return &Aggregate{Op: OpAvg, Inner: e} }

// Min produces MIN(e).
func Min(e Node) *Aggregate { return &Aggregate{Op: OpMin, Inner: e} }

// Max produces MAX(e).
func Max(e Node) *Aggregate { return &Aggregate{Op: OpMax, Inner: e} }

// IsAggregate reports whether e is an aggregate call.
func IsAggregate(e Node) bool {
	_, ok := e.(*Aggregate)
	return ok
}
