package reader

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/nrktql/fileql/predicate"
	"github.com/nrktql/fileql/types"
)

func init() {
	Register("json", newJSONReader)
	Register("jsonl", newJSONReader)
	Register("ndjson", newJSONReader)
}

// jsonReader handles both JSONL (one JSON object per line, the
// common case) and a single top-level JSON array of objects,
// auto-detecting by peeking the first non-space byte. The selector
// half of a #json:path fragment (e.g. "#json:data.users" or
// "#json:data.0.items") names a dotted path of object keys and
// array indices to navigate from the document root down to the row
// array; a path segment of "[]" flattens one level of nested
// arrays found at that point (e.g. "#json:pages.[].rows" for a
// document shaped as a list of pages, each holding a rows array).
type jsonReader struct {
	src      ByteSource
	selector string

	schema *types.Schema
	body   ReadCloser
	dec    *json.Decoder  // streaming path: bare top-level array, no selector
	scan   *bufio.Scanner // streaming path: JSONL, no selector
	rows   []json.RawMessage
	pos    int
	hints  Hints
}

func newJSONReader(ctx context.Context, src ByteSource, fragment string) (Reader, error) {
	// fragment is already the selector half of "#json:<selector>"
	// (source.Locator.Format splits off the format name before
	// dispatching to this factory).
	return &jsonReader{src: src, selector: fragment}, nil
}

func (j *jsonReader) Schema(ctx context.Context) (*types.Schema, error) {
	if j.schema != nil {
		return j.schema, nil
	}
	rc, err := j.src.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	sample := func(obj map[string]any, merged *types.Schema) *types.Schema {
		return merged.Merge(schemaOfObject(obj))
	}
	merged := types.NewSchema(nil)
	n := 0
	if j.selector != "" {
		rows, err := j.openRows(rc)
		if err != nil {
			return nil, err
		}
		for _, raw := range rows {
			if n >= sampleRows {
				break
			}
			var obj map[string]any
			if err := json.Unmarshal(raw, &obj); err != nil {
				return nil, fmt.Errorf("reader: json: %w", err)
			}
			merged = sample(obj, merged)
			n++
		}
	} else {
		dec, scan, err := j.openStream(rc)
		if err != nil {
			return nil, err
		}
		for n < sampleRows {
			obj, ok, err := decodeStream(dec, scan, nil)
			if err != nil {
				return nil, err
			}
			if !ok {
				break
			}
			merged = sample(obj, merged)
			n++
		}
	}
	j.schema = merged
	return j.schema, nil
}

func schemaOfObject(obj map[string]any) *types.Schema {
	names := make([]string, 0, len(obj))
	for k := range obj {
		names = append(names, k)
	}
	sort.Strings(names)
	cols := make([]types.Column, len(names))
	for i, k := range names {
		cols[i] = types.Column{Name: k, Type: types.InferType(obj[k])}
	}
	return types.NewSchema(cols)
}

// maxJSONLLine bounds a single JSONL record; a longer line fails
// the bufio.Scanner rather than exhausting memory.
const maxJSONLLine = 16 << 20

// openStream positions the row producer for the no-selector cases:
// a bare top-level array gets a json.Decoder with the opening '['
// consumed so Decode reads one element at a time; anything else is
// treated as JSONL and read line by line, so one malformed line can
// be skipped with a warning instead of poisoning the whole stream.
// A selector is handled separately by openRows, since path
// navigation needs the whole document materialized.
func (j *jsonReader) openStream(r io.Reader) (*json.Decoder, *bufio.Scanner, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if err != nil && err != io.EOF {
		return nil, nil, err
	}
	if first == '[' {
		dec := json.NewDecoder(br)
		if _, err := dec.Token(); err != nil { // consume '['
			return nil, nil, &DataError{Format: "json", Detail: err.Error()}
		}
		return dec, nil, nil
	}
	scan := bufio.NewScanner(br)
	scan.Buffer(make([]byte, 0, 64<<10), maxJSONLLine)
	return nil, scan, nil
}

// decodeStream produces the next object from whichever of dec or
// scan openStream returned. Malformed JSONL lines are skipped; the
// notice lands in warnings when a sink is attached (Next) and is
// dropped during schema sampling (Schema), where no sink exists yet.
func decodeStream(dec *json.Decoder, scan *bufio.Scanner, warnings *[]string) (map[string]any, bool, error) {
	if dec != nil {
		if !dec.More() {
			return nil, false, nil
		}
		var obj map[string]any
		if err := dec.Decode(&obj); err != nil {
			return nil, false, &DataError{Format: "json", Detail: err.Error()}
		}
		return obj, true, nil
	}
	for scan.Scan() {
		line := bytes.TrimSpace(scan.Bytes())
		if len(line) == 0 {
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal(line, &obj); err != nil {
			if warnings != nil {
				*warnings = append(*warnings, fmt.Sprintf("skipping malformed JSON line: %v", err))
			}
			continue
		}
		return obj, true, nil
	}
	return nil, false, scan.Err()
}

// openRows materializes the document and navigates j.selector to
// the row array, returning each element as a raw, not-yet-decoded
// JSON value.
func (j *jsonReader) openRows(r io.Reader) ([]json.RawMessage, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &DataError{Format: "json", Detail: err.Error()}
	}
	cur, err := navigateJSONSelector(doc, j.selector)
	if err != nil {
		return nil, err
	}
	arr, ok := cur.([]any)
	if !ok {
		return nil, &DataError{Format: "json", Detail: fmt.Sprintf("selector %q does not resolve to an array", j.selector)}
	}
	out := make([]json.RawMessage, len(arr))
	for i, el := range arr {
		raw, err := json.Marshal(el)
		if err != nil {
			return nil, err
		}
		out[i] = raw
	}
	return out, nil
}

// navigateJSONSelector walks a dotted path of object keys, array
// indices, and "[]" flatten markers from doc down to the row array
// the selector names.
func navigateJSONSelector(doc any, selector string) (any, error) {
	cur := doc
	for _, seg := range strings.Split(selector, ".") {
		if seg == "[]" {
			arr, ok := cur.([]any)
			if !ok {
				return nil, fmt.Errorf("reader: json selector: %q: not an array to flatten", seg)
			}
			flat := make([]any, 0, len(arr))
			for _, el := range arr {
				if sub, ok := el.([]any); ok {
					flat = append(flat, sub...)
				} else {
					flat = append(flat, el)
				}
			}
			cur = flat
			continue
		}
		if idx, err := strconv.Atoi(seg); err == nil {
			arr, ok := cur.([]any)
			if !ok || idx < 0 || idx >= len(arr) {
				return nil, fmt.Errorf("reader: json selector: index %d out of range", idx)
			}
			cur = arr[idx]
			continue
		}
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("reader: json selector: %q: not an object", seg)
		}
		v, ok := obj[seg]
		if !ok {
			return nil, fmt.Errorf("reader: json selector %q not found", seg)
		}
		cur = v
	}
	return cur, nil
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.Peek(1)
		if err != nil {
			return 0, err
		}
		if b[0] == ' ' || b[0] == '\t' || b[0] == '\n' || b[0] == '\r' {
			br.Discard(1)
			continue
		}
		return b[0], nil
	}
}

func (j *jsonReader) Capabilities() Capabilities {
	return Capabilities{
		ColumnPruning: true,
		RowCap:        true,
		FilterableTypes: []types.DataType{
			types.Integer, types.Float, types.String, types.Boolean,
		},
	}
}

func (j *jsonReader) Open(ctx context.Context, hints Hints) error {
	if _, err := j.Schema(ctx); err != nil {
		return err
	}
	rc, err := j.src.Open(ctx)
	if err != nil {
		return err
	}
	if j.selector != "" {
		rows, err := j.openRows(rc)
		rc.Close()
		if err != nil {
			return err
		}
		j.rows, j.pos, j.hints = rows, 0, hints
		return nil
	}
	dec, scan, err := j.openStream(rc)
	if err != nil {
		rc.Close()
		return err
	}
	j.body, j.dec, j.scan, j.hints = rc, dec, scan, hints
	return nil
}

func (j *jsonReader) decodeNext() (map[string]any, bool, error) {
	if j.selector != "" {
		if j.pos >= len(j.rows) {
			return nil, false, nil
		}
		var obj map[string]any
		if err := json.Unmarshal(j.rows[j.pos], &obj); err != nil {
			return nil, false, err
		}
		j.pos++
		return obj, true, nil
	}
	return decodeStream(j.dec, j.scan, j.hints.Warnings)
}

func (j *jsonReader) Next() (types.Row, bool, error) {
	for {
		if j.hints.RowCap != nil && *j.hints.RowCap <= 0 {
			return types.Row{}, false, nil
		}
		obj, ok, err := j.decodeNext()
		if err != nil {
			return types.Row{}, false, err
		}
		if !ok {
			return types.Row{}, false, nil
		}
		values := make([]types.Value, len(j.schema.Columns))
		for i, col := range j.schema.Columns {
			values[i] = valueFromJSON(col.Type, obj[col.Name])
		}
		row := types.Row{Schema: j.schema, Values: values}
		if !predicate.Match(predicate.RowLookup(row), j.hints.PushableFilters) {
			continue
		}
		if j.hints.RowCap != nil {
			n := *j.hints.RowCap - 1
			j.hints.RowCap = &n
		}
		return row, true, nil
	}
}

func valueFromJSON(declared types.DataType, v any) types.Value {
	switch x := v.(type) {
	case nil:
		return types.NullValue()
	case bool:
		return types.BoolValue(x)
	case float64:
		if declared == types.Integer && x == float64(int64(x)) {
			return types.IntValue(int64(x))
		}
		return types.FloatValue(x)
	case string:
		return types.StringValue(x)
	default:
		raw, _ := json.Marshal(x)
		return types.JSONValue(string(raw))
	}
}

func (j *jsonReader) Close() error {
	if j.body == nil {
		return nil
	}
	err := j.body.Close()
	j.body = nil
	return err
}
