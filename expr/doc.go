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

// Package expr defines the abstract syntax tree produced by the
// SQL parser and consumed by the planner and executor.
//
// Every node implements Node, and the tree can be traversed with
// Walk (read-only) or Rewrite (in-place substitution). Both are
// depth-first: Walk visits a node before its children, while
// Rewrite applies to a node after its children have been rewritten.
package expr
