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

// Package xsv implements parsing CSV (RFC 4180) and TSV (tab
// separated values) files into typed rows, optionally guided by a
// per-column Hint that overrides sampled type inference.
package xsv

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/nrktql/fileql/date"
	"github.com/nrktql/fileql/types"
)

var ErrNoHints = errors.New("hints are mandatory")

// RowChopper fetches records row-by-row, splitting each record
// into individual fields, until the reader is exhausted.
type RowChopper interface {
	GetNext(r io.Reader) ([]string, error)
}

// Schema builds the output Schema implied by a Hint, in field
// order, skipping ignored fields.
func (h *Hint) Schema() *types.Schema {
	cols := make([]types.Column, 0, len(h.Fields))
	for _, f := range h.Fields {
		if f.Type == TypeIgnore || f.Name == "" {
			continue
		}
		cols = append(cols, types.Column{Name: f.Name, Type: f.resolvedType})
	}
	return types.NewSchema(cols)
}

// Convert reads every record from r using ch to split raw lines
// into fields and hint to both name and decode each column,
// calling emit once per decoded row. The callback form lets any
// caller (the CSV/TSV readers, tests, or a future bulk loader)
// consume rows without depending on a specific sink type.
func Convert(r io.Reader, ch RowChopper, hint *Hint, emit func(types.Row) error) error {
	if hint == nil || len(hint.Fields) == 0 {
		return ErrNoHints
	}
	schema := hint.Schema()
	for {
		fields, err := ch.GetNext(r)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		row, err := DecodeRow(fields, hint, schema)
		if err != nil {
			return err
		}
		if err := emit(row); err != nil {
			return err
		}
	}
}

// DecodeRow decodes one record's raw fields into a typed Row per
// hint, aligning schema (as built by Hint.Schema) to the
// non-ignored fields of hint in order.
func DecodeRow(fields []string, hint *Hint, schema *types.Schema) (types.Row, error) {
	values := make([]types.Value, 0, len(schema.Columns))
	for i, f := range hint.Fields {
		if f.Type == TypeIgnore || f.Name == "" {
			continue
		}
		var text string
		if i < len(fields) {
			text = fields[i]
		}
		if text == "" {
			text = f.Default
		}
		if text == "" && !f.AllowEmpty {
			values = append(values, types.NullValue())
			continue
		}
		v, err := f.decode(text)
		if err != nil {
			return types.Row{}, fmt.Errorf("field %q: %w", f.Name, err)
		}
		values = append(values, v)
	}
	return types.Row{Schema: schema, Values: values}, nil
}

func decodeString(text string) (types.Value, error) {
	return types.StringValue(text), nil
}

func decodeFloat(text string) (types.Value, error) {
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return types.Value{}, err
	}
	return types.FloatValue(f), nil
}

func decodeInt(text string) (types.Value, error) {
	i, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return types.Value{}, err
	}
	return types.IntValue(i), nil
}

func decodeCustomBool(text string, trueValues, falseValues []string) (types.Value, error) {
	for _, v := range trueValues {
		if v == text {
			return types.BoolValue(true), nil
		}
	}
	for _, v := range falseValues {
		if v == text {
			return types.BoolValue(false), nil
		}
	}
	return types.Value{}, fmt.Errorf("invalid boolean format %q (no match with custom values)", text)
}

func decodeBool(text string) (types.Value, error) {
	b, err := strconv.ParseBool(text)
	if err != nil {
		return types.Value{}, fmt.Errorf("invalid bool format %q (try using custom values)", text)
	}
	return types.BoolValue(b), nil
}

func decodeDateText(text string) (types.Value, error) {
	t, ok := date.Parse([]byte(text))
	if !ok {
		return types.Value{}, fmt.Errorf("invalid date/time format %q", text)
	}
	return types.DatetimeValue(t), nil
}

func decodeEpochSec(text string) (types.Value, error) {
	e, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return types.Value{}, err
	}
	return types.DatetimeValue(date.Unix(e, 0)), nil
}

func decodeEpochMilli(text string) (types.Value, error) {
	e, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return types.Value{}, err
	}
	return types.DatetimeValue(date.Unix(e/1e3, 1e6*(e%1e3))), nil
}

func decodeEpochMicro(text string) (types.Value, error) {
	e, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return types.Value{}, err
	}
	return types.DatetimeValue(date.Unix(e/1e6, 1e3*(e%1e6))), nil
}

func decodeEpochNano(text string) (types.Value, error) {
	e, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return types.Value{}, err
	}
	return types.DatetimeValue(date.Unix(e/1e9, e%1e9)), nil
}
