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

// Column is a (possibly table-qualified) column reference, such
// as AGE or U.NAME.
type Column struct {
	Table string // FROM-clause alias, or "" if unqualified
	Name  string
}

func (c *Column) text(dst *strings.Builder) {
	if c.Table != "" {
		dst.WriteString(QuoteID(c.Table))
		dst.WriteByte('.')
	}
	dst.WriteString(QuoteID(c.Name))
}
func (c *Column) walk(Visitor) {}
func (c *Column) Equals(e Node) bool {
	o, ok := e.(*Column)
	return ok && o.Table == c.Table && o.Name == c.Name
}

// Star represents the unqualified '*' projection item.
type Star struct{}

func (s Star) text(dst *strings.Builder) { dst.WriteByte('*') }
func (s Star) walk(Visitor)              {}
func (s Star) Equals(e Node) bool {
	_, ok := e.(Star)
	return ok
}

// QuoteID renders s as a SQL identifier, double-quoting it when
// it isn't a plain lower/upper-case word (matching the grammar's
// unquoted-identifier production).
func QuoteID(s string) string {
	if s == "" {
		return `""`
	}
	plain := true
	for i, r := range s {
		isLetter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_'
		isDigit := r >= '0' && r <= '9'
		if !(isLetter || (i > 0 && isDigit)) {
			plain = false
			break
		}
	}
	if plain {
		return s
	}
	var buf strings.Builder
	buf.WriteByte('"')
	buf.WriteString(strings.ReplaceAll(s, `"`, `""`))
	buf.WriteByte('"')
	return buf.String()
}
