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

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/nrktql/fileql/date"
)

// Integer is a literal integer.
type Integer int64

func (i Integer) text(dst *strings.Builder) {
	var buf [32]byte
	dst.Write(strconv.AppendInt(buf[:0], int64(i), 10))
}
func (i Integer) walk(Visitor) {}
func (i Integer) constant()    {}
func (i Integer) Equals(e Node) bool {
	switch o := e.(type) {
	case Integer:
		return o == i
	case Float:
		return float64(i) == float64(o)
	case *Decimal:
		return (*big.Rat)(o).Cmp(new(big.Rat).SetInt64(int64(i))) == 0
	}
	return false
}

// Float is a literal floating-point number.
type Float float64

func (f Float) text(dst *strings.Builder) {
	var buf [32]byte
	dst.Write(strconv.AppendFloat(buf[:0], float64(f), 'g', -1, 64))
}
func (f Float) walk(Visitor) {}
func (f Float) constant()    {}
func (f Float) Equals(e Node) bool {
	switch o := e.(type) {
	case Float:
		return o == f
	case Integer:
		return float64(f) == float64(o)
	case *Decimal:
		v, ok := (*big.Rat)(o).Float64()
		return ok && v == float64(f)
	}
	return false
}

// Decimal is a literal high-precision decimal number, represented
// as an exact rational. Parsed from string forms with a decimal
// point and five or more significant digits (see DataType
// promotion rules in package types).
type Decimal big.Rat

func NewDecimal(r *big.Rat) *Decimal { return (*Decimal)(r) }

func (d *Decimal) rat() *big.Rat { return (*big.Rat)(d) }

func (d *Decimal) text(dst *strings.Builder) {
	r := (*big.Rat)(d)
	if r.IsInt() {
		dst.WriteString(r.Num().String())
		return
	}
	if f, ok := r.Float64(); ok {
		dst.WriteString(strconv.FormatFloat(f, 'f', -1, 64))
		return
	}
	dst.WriteString(r.String())
}
func (d *Decimal) walk(Visitor) {}
func (d *Decimal) constant()    {}
func (d *Decimal) Equals(e Node) bool {
	switch o := e.(type) {
	case *Decimal:
		return (*big.Rat)(d).Cmp((*big.Rat)(o)) == 0
	case Integer:
		return o.Equals(d)
	case Float:
		return o.Equals(d)
	}
	return false
}

// String is a literal quoted string.
type String string

func (s String) text(dst *strings.Builder) { quote(dst, string(s)) }
func (s String) walk(Visitor)              {}
func (s String) constant()                 {}
func (s String) Equals(e Node) bool {
	o, ok := e.(String)
	return ok && o == s
}

// Bool is a literal TRUE/FALSE.
type Bool bool

func (b Bool) text(dst *strings.Builder) {
	if b {
		dst.WriteString("TRUE")
	} else {
		dst.WriteString("FALSE")
	}
}
func (b Bool) walk(Visitor) {}
func (b Bool) constant()    {}
func (b Bool) Equals(e Node) bool {
	o, ok := e.(Bool)
	return ok && o == b
}

// Null is the literal NULL.
type Null struct{}

func (n Null) text(dst *strings.Builder) { dst.WriteString("NULL") }
func (n Null) walk(Visitor)              {}
func (n Null) constant()                 {}
func (n Null) Equals(e Node) bool {
	_, ok := e.(Null)
	return ok
}

// Timestamp is a literal DATE/TIME/DATETIME value.
type Timestamp struct {
	Value date.Time
}

func (t *Timestamp) text(dst *strings.Builder) {
	dst.WriteByte('\'')
	dst.WriteString(t.Value.String())
	dst.WriteByte('\'')
}
func (t *Timestamp) walk(Visitor) {}
func (t *Timestamp) constant()    {}
func (t *Timestamp) Equals(e Node) bool {
	o, ok := e.(*Timestamp)
	return ok && o.Value.Equal(t.Value)
}

var (
	_ Constant = Integer(0)
	_ Constant = Float(0)
	_ Constant = (*Decimal)(nil)
	_ Constant = String("")
	_ Constant = Bool(false)
	_ Constant = Null{}
	_ Constant = (*Timestamp)(nil)
)
