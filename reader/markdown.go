package reader

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nrktql/fileql/predicate"
	"github.com/nrktql/fileql/types"
)

func init() {
	Register("markdown", newMarkdownReader)
	Register("md", newMarkdownReader)
}

// markdownReader extracts a GitHub-flavored-Markdown pipe table.
// No library in the corpus parses Markdown tables (the pack's
// Markdown-adjacent dependencies, e.g. yuin/goldmark, are full
// document-to-HTML renderers with no row-table extraction API), so
// this is hand-rolled: a pipe table is a header row, a separator
// row of dashes/colons, and data rows, each line split on
// unescaped '|' delimiters.
type markdownReader struct {
	src      ByteSource
	selector int

	schema *types.Schema
	rows   [][]string
	pos    int
	hints  Hints
}

func newMarkdownReader(ctx context.Context, src ByteSource, fragment string) (Reader, error) {
	idx := 0
	if fragment != "" {
		n, err := strconv.Atoi(fragment)
		if err != nil {
			return nil, fmt.Errorf("reader: markdown: bad table selector %q: %w", fragment, err)
		}
		idx = n
	}
	return &markdownReader{src: src, selector: idx}, nil
}

func (m *markdownReader) load(ctx context.Context) error {
	if m.schema != nil {
		return nil
	}
	rc, err := m.src.Open(ctx)
	if err != nil {
		return err
	}
	defer rc.Close()
	tables := scanMarkdownTables(rc)
	idx := m.selector
	if idx < 0 {
		idx += len(tables) // negative selects from the end
	}
	if idx < 0 || idx >= len(tables) {
		return &DataError{Format: "markdown", Detail: fmt.Sprintf("table index %d out of range (found %d)", m.selector, len(tables))}
	}
	records := tables[idx]
	if len(records) == 0 {
		return &DataError{Format: "markdown", Detail: "table has no rows"}
	}
	header := records[0]
	body := records[1:]
	samples := make([][]types.DataType, len(header))
	for i, rec := range body {
		if i >= sampleRows {
			break
		}
		for j, f := range rec {
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
	m.schema = types.NewSchema(cols)
	m.rows = body
	return nil
}

// scanMarkdownTables walks the document line by line and collects
// every contiguous run of pipe-delimited lines immediately
// following a valid header-separator line (e.g. "|---|:--:|---|").
func scanMarkdownTables(r io.Reader) [][][]string {
	sc := bufio.NewScanner(r)
	var tables [][][]string
	var pending []string
	flush := func() {
		if len(pending) >= 2 && isSeparatorLine(pending[1]) {
			rows := make([][]string, 0, len(pending)-1)
			rows = append(rows, splitPipeRow(pending[0]))
			for _, line := range pending[2:] {
				rows = append(rows, splitPipeRow(line))
			}
			tables = append(tables, rows)
		}
		pending = nil
	}
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), " \t")
		if strings.Contains(line, "|") {
			pending = append(pending, line)
			continue
		}
		flush()
	}
	flush()
	return tables
}

func isSeparatorLine(line string) bool {
	cells := splitPipeRow(line)
	if len(cells) == 0 {
		return false
	}
	for _, c := range cells {
		c = strings.TrimSpace(c)
		c = strings.Trim(c, ":")
		if c == "" || strings.Trim(c, "-") != "" {
			return false
		}
	}
	return true
}

// splitPipeRow splits a pipe table row on unescaped '|' delimiters,
// leaving a literal '|' in a cell wherever the source escaped it as
// '\|'.
func splitPipeRow(line string) []string {
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "|")
	line = strings.TrimSuffix(line, "|")
	var parts []string
	var cur strings.Builder
	for i := 0; i < len(line); i++ {
		if line[i] == '\\' && i+1 < len(line) && line[i+1] == '|' {
			cur.WriteByte('|')
			i++
			continue
		}
		if line[i] == '|' {
			parts = append(parts, cur.String())
			cur.Reset()
			continue
		}
		cur.WriteByte(line[i])
	}
	parts = append(parts, cur.String())
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = strings.TrimSpace(p)
	}
	return out
}

func (m *markdownReader) Schema(ctx context.Context) (*types.Schema, error) {
	if err := m.load(ctx); err != nil {
		return nil, err
	}
	return m.schema, nil
}

func (m *markdownReader) Capabilities() Capabilities {
	return Capabilities{
		ColumnPruning: true,
		RowCap:        true,
		FilterableTypes: []types.DataType{
			types.Integer, types.Float, types.Decimal, types.String, types.Boolean,
		},
	}
}

func (m *markdownReader) Open(ctx context.Context, hints Hints) error {
	if err := m.load(ctx); err != nil {
		return err
	}
	m.hints = hints
	m.pos = 0
	return nil
}

func (m *markdownReader) Next() (types.Row, bool, error) {
	for {
		if m.hints.RowCap != nil && *m.hints.RowCap <= 0 {
			return types.Row{}, false, nil
		}
		if m.pos >= len(m.rows) {
			return types.Row{}, false, nil
		}
		rec := m.rows[m.pos]
		m.pos++
		values := make([]types.Value, len(m.schema.Columns))
		for i, col := range m.schema.Columns {
			if i >= len(rec) {
				values[i] = types.NullValue()
				continue
			}
			values[i] = decodeField(col.Type, rec[i])
		}
		row := types.Row{Schema: m.schema, Values: values}
		if !predicate.Match(predicate.RowLookup(row), m.hints.PushableFilters) {
			continue
		}
		if m.hints.RowCap != nil {
			n := *m.hints.RowCap - 1
			m.hints.RowCap = &n
		}
		return row, true, nil
	}
}

func (m *markdownReader) Close() error {
	m.rows = nil
	return nil
}
