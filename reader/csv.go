package reader

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/nrktql/fileql/date"
	"github.com/nrktql/fileql/predicate"
	"github.com/nrktql/fileql/types"
	"github.com/nrktql/fileql/xsv"
)

func init() {
	Register("csv", newCSVReader)
	Register("tsv", newTSVReader)
}

func newCSVReader(ctx context.Context, src ByteSource, fragment string) (Reader, error) {
	return &delimitedReader{src: src, newChopper: func() lineChopper { return &xsv.CsvChopper{} }}, nil
}

func newTSVReader(ctx context.Context, src ByteSource, fragment string) (Reader, error) {
	return &delimitedReader{src: src, newChopper: func() lineChopper { return &xsv.TsvChopper{} }}, nil
}

// lineChopper is the common shape of xsv.CsvChopper and
// xsv.TsvChopper: both split one raw-text record into fields.
type lineChopper interface {
	GetNext(r io.Reader) ([]string, error)
}

// delimitedReader implements the CSV/TSV readers, both backed by
// an xsv chopper. The first row is always treated as a header;
// column types are inferred from the next few sample rows
// (sampleRows), then enforced loosely (a field that doesn't match
// the inferred type for its column decodes as a string, per the
// reader contract that a null is the only other allowed
// deviation).
type delimitedReader struct {
	src        ByteSource
	newChopper func() lineChopper

	schema  *types.Schema
	body    ReadCloser
	chopper lineChopper
	hints   Hints
}

const sampleRows = 50

func (d *delimitedReader) Schema(ctx context.Context) (*types.Schema, error) {
	if d.schema != nil {
		return d.schema, nil
	}
	rc, err := d.src.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	chop := d.newChopper()
	first, err := chop.GetNext(rc)
	if err != nil {
		return nil, fmt.Errorf("reader: csv header: %w", err)
	}
	// the chopper reuses its record slice across GetNext calls, so
	// the header must be copied out before sampling reads clobber it
	header := append([]string(nil), first...)
	samples := make([][]types.DataType, len(header))
	for i := 0; i < sampleRows; i++ {
		fields, err := chop.GetNext(rc)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		for j, f := range fields {
			if j >= len(samples) {
				break
			}
			samples[j] = append(samples[j], types.InferTypeFromString(f))
		}
	}
	cols := make([]types.Column, len(header))
	for i, name := range header {
		cols[i] = types.Column{Name: name, Type: types.InferCommonType(samples[i])}
	}
	d.schema = types.NewSchema(cols)
	return d.schema, nil
}

func (d *delimitedReader) Capabilities() Capabilities {
	return Capabilities{
		ColumnPruning: true,
		RowCap:        true,
		FilterableTypes: []types.DataType{
			types.Integer, types.Float, types.Decimal, types.String,
			types.Boolean, types.Date, types.Time, types.Datetime,
		},
	}
}

func (d *delimitedReader) Open(ctx context.Context, hints Hints) error {
	if _, err := d.Schema(ctx); err != nil {
		return err
	}
	rc, err := d.src.Open(ctx)
	if err != nil {
		return err
	}
	d.body = rc
	d.chopper = d.newChopper()
	// consume the header row
	if _, err := d.chopper.GetNext(d.body); err != nil {
		d.body.Close()
		return err
	}
	d.hints = hints
	return nil
}

func (d *delimitedReader) Next() (types.Row, bool, error) {
	for {
		if d.hints.RowCap != nil && *d.hints.RowCap <= 0 {
			return types.Row{}, false, nil
		}
		fields, err := d.chopper.GetNext(d.body)
		if err == io.EOF {
			return types.Row{}, false, nil
		}
		if err != nil {
			return types.Row{}, false, err
		}
		values := make([]types.Value, len(d.schema.Columns))
		if len(fields) < len(d.schema.Columns) && d.hints.Warnings != nil {
			*d.hints.Warnings = append(*d.hints.Warnings, fmt.Sprintf(
				"row has %d field(s), expected %d; missing field(s) set to null",
				len(fields), len(d.schema.Columns)))
		}
		for i, col := range d.schema.Columns {
			if i >= len(fields) {
				values[i] = types.NullValue()
				continue
			}
			values[i] = decodeField(col.Type, fields[i])
		}
		row := types.Row{Schema: d.schema, Values: values}
		if !predicate.Match(predicate.RowLookup(row), d.hints.PushableFilters) {
			continue
		}
		if d.hints.RowCap != nil {
			n := *d.hints.RowCap - 1
			d.hints.RowCap = &n
		}
		return row, true, nil
	}
}

func (d *delimitedReader) Close() error {
	if d.body == nil {
		return nil
	}
	err := d.body.Close()
	d.body = nil
	return err
}

// decodeField converts a raw CSV field to a typed Value given its
// column's inferred type; a field that doesn't actually parse as
// that type (heterogeneous data) degrades to a string rather than
// failing the whole scan, matching the schema invariant that a
// reader's declared column type is a promise about the *common*
// case, with null the only guaranteed exception.
func decodeField(t types.DataType, raw string) types.Value {
	if types.InferTypeFromString(raw) == types.Null {
		return types.NullValue()
	}
	switch t {
	case types.Boolean:
		if b, err := strconv.ParseBool(raw); err == nil {
			return types.BoolValue(b)
		}
	case types.Integer:
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return types.IntValue(n)
		}
	case types.Float:
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return types.FloatValue(f)
		}
	case types.Decimal:
		if r, ok := new(big.Rat).SetString(raw); ok {
			return types.DecimalValue(r)
		}
	case types.Date:
		if dt, ok := parseDateField(raw); ok {
			return types.DateValue(dt)
		}
	case types.Time:
		if dt, ok := parseTimeField(raw); ok {
			return types.TimeValue(dt)
		}
	case types.Datetime:
		if dt, ok := date.Parse([]byte(raw)); ok {
			return types.DatetimeValue(dt)
		}
	case types.JSON:
		if json.Valid([]byte(strings.TrimSpace(raw))) {
			return types.JSONValue(raw)
		}
	}
	return types.StringValue(raw)
}

// dateLayouts are the two date-only formats InferTypeFromString's
// dateISO/dateUS regexes recognize; parseDateField tries each in
// the same order.
var dateLayouts = []string{"2006-01-02", "01/02/2006"}

func parseDateField(raw string) (date.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return date.FromTime(t), true
		}
	}
	return date.Time{}, false
}

// timeLayouts are the time-only formats InferTypeFromString's
// timeOnly regex recognizes (HH:MM[:SS]); parseTimeField anchors
// the resulting date.Time to year zero, since only the clock
// components are meaningful for a Time-typed column.
var timeLayouts = []string{"15:04:05", "15:04"}

func parseTimeField(raw string) (date.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return date.FromTime(t), true
		}
	}
	return date.Time{}, false
}
