package reader

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/nrktql/fileql/predicate"
	"github.com/nrktql/fileql/types"
)

func init() {
	Register("html", newHTMLReader)
}

// htmlReader extracts one <table> from an HTML document using
// golang.org/x/net/html's tokenizing DOM builder, selecting the
// table by its zero-based document order (the selector half of a
// "#html:1" fragment), defaulting to the first table found. The
// first <tr> (whether inside <thead> or not) supplies column
// names; remaining rows are decoded against inferred types the
// same way the CSV reader infers them.
type htmlReader struct {
	src      ByteSource
	selector int

	schema *types.Schema
	rows   [][]string // decoded once at Open, since DOM parsing isn't naturally row-streamed
	pos    int
	hints  Hints
}

func newHTMLReader(ctx context.Context, src ByteSource, fragment string) (Reader, error) {
	idx := 0
	if fragment != "" {
		n, err := strconv.Atoi(fragment)
		if err != nil {
			return nil, fmt.Errorf("reader: html: bad table selector %q: %w", fragment, err)
		}
		idx = n
	}
	return &htmlReader{src: src, selector: idx}, nil
}

func (h *htmlReader) load(ctx context.Context) error {
	if h.schema != nil {
		return nil
	}
	rc, err := h.src.Open(ctx)
	if err != nil {
		return err
	}
	defer rc.Close()
	doc, err := html.Parse(rc)
	if err != nil {
		return fmt.Errorf("reader: html: %w", err)
	}
	tables := findTables(doc)
	idx := h.selector
	if idx < 0 {
		idx += len(tables) // negative selects from the end
	}
	if idx < 0 || idx >= len(tables) {
		return &DataError{Format: "html", Detail: fmt.Sprintf("table index %d out of range (found %d)", h.selector, len(tables))}
	}
	records := extractRows(tables[idx])
	if len(records) == 0 {
		return &DataError{Format: "html", Detail: "table has no rows"}
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
	h.schema = types.NewSchema(cols)
	h.rows = body
	return nil
}

func findTables(n *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "table" {
			out = append(out, n)
			return // nested tables are treated as cell content, not separate tables
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func extractRows(table *html.Node) [][]string {
	var rows [][]string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "tr" {
			rows = append(rows, extractCells(n))
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(table)
	return rows
}

func extractCells(tr *html.Node) []string {
	var cells []string
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
			cells = append(cells, strings.TrimSpace(textContent(c)))
		}
	}
	return cells
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func (h *htmlReader) Schema(ctx context.Context) (*types.Schema, error) {
	if err := h.load(ctx); err != nil {
		return nil, err
	}
	return h.schema, nil
}

func (h *htmlReader) Capabilities() Capabilities {
	return Capabilities{
		ColumnPruning: true,
		RowCap:        true,
		FilterableTypes: []types.DataType{
			types.Integer, types.Float, types.Decimal, types.String, types.Boolean,
		},
	}
}

func (h *htmlReader) Open(ctx context.Context, hints Hints) error {
	if err := h.load(ctx); err != nil {
		return err
	}
	h.hints = hints
	h.pos = 0
	return nil
}

func (h *htmlReader) Next() (types.Row, bool, error) {
	for {
		if h.hints.RowCap != nil && *h.hints.RowCap <= 0 {
			return types.Row{}, false, nil
		}
		if h.pos >= len(h.rows) {
			return types.Row{}, false, nil
		}
		rec := h.rows[h.pos]
		h.pos++
		values := make([]types.Value, len(h.schema.Columns))
		for i, col := range h.schema.Columns {
			if i >= len(rec) {
				values[i] = types.NullValue()
				continue
			}
			values[i] = decodeField(col.Type, rec[i])
		}
		row := types.Row{Schema: h.schema, Values: values}
		if !predicate.Match(predicate.RowLookup(row), h.hints.PushableFilters) {
			continue
		}
		if h.hints.RowCap != nil {
			n := *h.hints.RowCap - 1
			h.hints.RowCap = &n
		}
		return row, true, nil
	}
}

func (h *htmlReader) Close() error {
	h.rows = nil
	return nil
}
