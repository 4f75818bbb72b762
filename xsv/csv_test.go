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
	"testing"

	"github.com/nrktql/fileql/types"
)

const benchCSV = `id,name,active
1,alice,true
2,bob,false
3,carol,true
`

const benchHintJSON = `{
  "skipRecords": 1,
  "fields": [
    {"name": "id", "type": "int"},
    {"name": "name", "type": "string"},
    {"name": "active", "type": "bool"}
  ]
}`

// BenchmarkConvertCSV measures raw CSV-to-Row conversion throughput.
func BenchmarkConvertCSV(b *testing.B) {
	h, err := ParseHint([]byte(benchHintJSON))
	if err != nil {
		b.Fatalf("cannot parse hints: %s", err)
	}
	data := []byte(benchCSV)
	b.SetBytes(int64(len(data)))
	for n := 0; n < b.N; n++ {
		ch := &CsvChopper{SkipRecords: h.SkipRecords}
		r := bytes.NewReader(data)
		if err := Convert(r, ch, h, func(types.Row) error { return nil }); err != nil {
			b.Fatalf("cannot convert: %s", err)
		}
	}
}

func TestConvertCSV(t *testing.T) {
	h, err := ParseHint([]byte(benchHintJSON))
	if err != nil {
		t.Fatalf("cannot parse hints: %s", err)
	}
	ch := &CsvChopper{SkipRecords: h.SkipRecords}
	rows := collectRows(t, benchCSV, ch, h)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0].Values[0].Int() != 1 || rows[0].Values[1].String() != "alice" || !rows[0].Values[2].Bool() {
		t.Fatalf("unexpected row 0: %+v", rows[0].Values)
	}
	if rows[2].Values[1].String() != "carol" {
		t.Fatalf("unexpected row 2: %+v", rows[2].Values)
	}
}

func TestConvertCSVCustomSeparator(t *testing.T) {
	h, err := ParseHint([]byte(`{
		"separator": 59,
		"skipRecords": 1,
		"fields": [
			{"name": "id", "type": "int"},
			{"name": "name", "type": "string"}
		]
	}`))
	if err != nil {
		t.Fatalf("cannot parse hints: %s", err)
	}
	ch := &CsvChopper{SkipRecords: h.SkipRecords, Separator: Delim(h.Separator)}
	rows := collectRows(t, "id;name\n1;alice\n2;bob\n", ch, h)
	if len(rows) != 2 || rows[1].Values[1].String() != "bob" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestConvertCSVDefaultsAndIgnore(t *testing.T) {
	h, err := ParseHint([]byte(`{
		"skipRecords": 1,
		"fields": [
			{"name": "id", "type": "int"},
			{"type": "ignore"},
			{"name": "note", "type": "string", "default": "n/a", "allowEmpty": true}
		]
	}`))
	if err != nil {
		t.Fatalf("cannot parse hints: %s", err)
	}
	ch := &CsvChopper{SkipRecords: h.SkipRecords}
	rows := collectRows(t, "id,skip,note\n1,x,\n2,y,hi\n", ch, h)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Values[1].String() != "n/a" {
		t.Fatalf("expected default value, got %q", rows[0].Values[1].String())
	}
	if rows[1].Values[1].String() != "hi" {
		t.Fatalf("expected explicit value, got %q", rows[1].Values[1].String())
	}
}
