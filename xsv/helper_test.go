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

package xsv

import (
	"strings"
	"testing"

	"github.com/nrktql/fileql/types"
)

// collectRows runs Convert over src and returns every decoded row,
// failing the test on any conversion error.
func collectRows(t *testing.T, src string, ch RowChopper, h *Hint) []types.Row {
	t.Helper()
	var rows []types.Row
	err := Convert(strings.NewReader(src), ch, h, func(r types.Row) error {
		rows = append(rows, r)
		return nil
	})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	return rows
}
