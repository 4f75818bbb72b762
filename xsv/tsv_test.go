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
	"bytes"
	"strings"
	"testing"

	"github.com/nrktql/fileql/types"
)

const benchTSV = "id\tname\tactive\n1\talice\ttrue\n2\tbob\tfalse\n"

// BenchmarkConvertTSV measures raw TSV-to-Row conversion throughput.
func BenchmarkConvertTSV(b *testing.B) {
	h, err := ParseHint([]byte(benchHintJSON))
	if err != nil {
		b.Fatalf("cannot parse hints: %s", err)
	}
	data := []byte(benchTSV)
	b.SetBytes(int64(len(data)))
	for n := 0; n < b.N; n++ {
		ch := &TsvChopper{SkipRecords: h.SkipRecords}
		r := bytes.NewReader(data)
		if err := Convert(r, ch, h, func(types.Row) error { return nil }); err != nil {
			b.Fatalf("cannot convert: %s", err)
		}
	}
}

func TestConvertTSV(t *testing.T) {
	h, err := ParseHint([]byte(benchHintJSON))
	if err != nil {
		t.Fatalf("cannot parse hints: %s", err)
	}
	ch := &TsvChopper{SkipRecords: h.SkipRecords}
	rows := collectRows(t, benchTSV, ch, h)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Values[0].Int() != 1 || rows[0].Values[1].String() != "alice" || !rows[0].Values[2].Bool() {
		t.Fatalf("unexpected row 0: %+v", rows[0].Values)
	}
}

func TestConvertTSVDatetimeFormats(t *testing.T) {
	h, err := ParseHint([]byte(`{
		"skipRecords": 1,
		"fields": [
			{"name": "t", "type": "datetime", "format": "unix_seconds"}
		]
	}`))
	if err != nil {
		t.Fatalf("cannot parse hints: %s", err)
	}
	ch := &TsvChopper{SkipRecords: h.SkipRecords}
	rows := collectRows(t, "t\n1700000000\n", ch, h)
	if len(rows) != 1 || rows[0].Values[0].Type != types.Datetime {
		t.Fatalf("expected one decoded datetime row, got %+v", rows)
	}
}

func FuzzTSV(f *testing.F) {
	hint, err := ParseHint([]byte(`{
		"fields": [
			{"name": "a", "type": "string", "allowEmpty": true},
			{"name": "b", "type": "string", "allowEmpty": true}
		]
	}`))
	if err != nil {
		f.Fatalf("cannot parse hints: %s", err)
	}
	f.Add("2022-06-01 21:04:04\tdev-generated-netflow")
	f.Fuzz(func(t *testing.T, input string) {
		ch := &TsvChopper{}
		_ = Convert(strings.NewReader(input), ch, hint, func(types.Row) error { return nil })
	})
}
