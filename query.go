// Package fileql is the embeddable query engine: parse a SQL
// SELECT statement, plan and optimize it against one or more file
// sources, and pull rows from the resulting executor tree.
//
// Execute and InferSchema (with their ExecuteWithKey and
// InferSchemaWithKey variants) are the whole of the programmatic
// surface; packaging, a CLI, an interactive shell, result-set
// formatting, and history persistence are the concern of callers
// built on top of this package, not of the package itself.
package fileql

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/nrktql/fileql/aws"
	"github.com/nrktql/fileql/exec"
	"github.com/nrktql/fileql/expr"
	"github.com/nrktql/fileql/parser"
	"github.com/nrktql/fileql/plan"
	"github.com/nrktql/fileql/source"
	"github.com/nrktql/fileql/types"
)

// QueryResult is a lazy row iterator over one executed query, plus
// the collaborators (schema, explain text, warnings) an external
// caller needs to consume and describe it.
type QueryResult struct {
	it       exec.Iterator
	plan     *plan.Plan
	warnings *[]string
	closed   bool

	// queryID identifies this execution for logging and tracing,
	// assigned per Execute call.
	queryID uuid.UUID
}

// QueryID returns the correlation ID assigned to this execution,
// suitable for tying log lines or metrics from the same query
// together.
func (r *QueryResult) QueryID() string { return r.queryID.String() }

// Schema is the result's output schema, matching the optimized
// plan's root node schema.
func (r *QueryResult) Schema() *types.Schema { return r.it.Schema() }

// Next returns the next row, or ok=false once the result is
// exhausted. Callers that do not drain Next to completion must
// still call Close.
func (r *QueryResult) Next() (types.Row, bool, error) { return r.it.Next() }

// ToList drains the result into a slice, closing the underlying
// iterator whether or not an error is returned.
func (r *QueryResult) ToList() ([]types.Row, error) {
	defer r.Close()
	var out []types.Row
	for {
		row, ok, err := r.it.Next()
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, row.Clone())
	}
}

// Explain renders the optimized plan and the optimizer's audit
// trail as deterministic text (see plan.Plan.Explain).
func (r *QueryResult) Explain() string { return r.plan.Explain() }

// Warnings returns the recoverable data-quality notices
// accumulated so far by every reader this query opened (malformed
// rows padded with null, truncated lines, unparsable JSON
// entries). The slice is a live view; call it again after
// draining Next for the final count.
func (r *QueryResult) Warnings() []string {
	if r.warnings == nil {
		return nil
	}
	return *r.warnings
}

// Close releases every resource the query's operator tree holds
// (reader file handles, HTTP sessions, decoder state). It is safe
// to call more than once and is always safe to call before the
// result has been fully drained.
func (r *QueryResult) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.it.Close()
}

// Execute parses, plans, optimizes, and begins executing sql.
// defaultSource, when non-empty, binds a query whose FROM clause
// (and any JOINs) names exactly one source to that locator,
// letting a caller run `SELECT * FROM t ...` against one
// externally supplied file without embedding its path in the SQL
// text; it is ignored for queries naming more than one source.
//
// The returned QueryResult has already begun execution (its root
// iterator's Open has been called); the caller is responsible for
// draining or Close-ing it.
func Execute(ctx context.Context, sql string, defaultSource string) (*QueryResult, error) {
	return ExecuteWithKey(ctx, sql, defaultSource, nil)
}

// ExecuteWithKey is Execute with an explicit S3 signing key,
// for callers that already hold one instead of relying on
// ambient environment credentials (see aws.AmbientKey).
func ExecuteWithKey(ctx context.Context, sql, defaultSource string, key *aws.SigningKey) (*QueryResult, error) {
	sel, err := parser.Parse(sql)
	if err != nil {
		return nil, err
	}
	bindDefaultSource(sel, defaultSource)

	partitionCols := map[string][]string{}
	resolver := func(src string) (*types.Schema, error) {
		schema, names, err := resolveSchema(ctx, key, src)
		if err != nil {
			return nil, err
		}
		if len(names) > 0 {
			partitionCols[src] = names
		}
		return schema, nil
	}

	p, err := plan.Build(sel, resolver)
	if err != nil {
		return nil, err
	}
	if len(partitionCols) > 0 {
		plan.ForEachScan(p.Root, func(s *plan.Scan) {
			if names, ok := partitionCols[s.Source]; ok {
				s.PartitionColumns = names
			}
		})
	}
	plan.Optimize(p)

	warnings := make([]string, 0)
	it, err := exec.Build(ctx, p.Root, key, &warnings)
	if err != nil {
		return nil, err
	}
	if err := it.Open(); err != nil {
		return nil, err
	}
	return &QueryResult{it: it, plan: p, warnings: &warnings, queryID: uuid.New()}, nil
}

// InferSchema resolves locator to a reader and returns its schema,
// including any Hive-style partition columns discovered from the
// locator's path. Calling InferSchema twice for the same source
// returns equal schemas (readers cache their sampled schema after
// the first call; partition discovery is a pure function of the
// path).
func InferSchema(ctx context.Context, locator string) (*types.Schema, error) {
	return InferSchemaWithKey(ctx, locator, nil)
}

// InferSchemaWithKey is InferSchema with an explicit S3 signing
// key; see ExecuteWithKey.
func InferSchemaWithKey(ctx context.Context, locator string, key *aws.SigningKey) (*types.Schema, error) {
	schema, _, err := resolveSchema(ctx, key, locator)
	return schema, err
}

// bindDefaultSource implements Execute's defaultSource argument:
// see Execute's doc comment for the rule.
func bindDefaultSource(sel *expr.Select, defaultSource string) {
	if defaultSource == "" || len(sel.Joins) > 0 {
		return
	}
	sel.From.Source = defaultSource
}

// resolveSchema opens the first file a source locator expands to
// (a directory or glob source may name many; every matched file
// under one source is assumed to share one schema, per the
// partitioned-dataset convention the reader and optimizer both
// rely on), discovers any Hive partition columns from its path,
// and merges them ahead of the reader's own columns so partition
// columns behave as the virtual, always-present columns the
// executor's Scan operator synthesizes into every row.
func resolveSchema(ctx context.Context, key *aws.SigningKey, src string) (schema *types.Schema, partitionNames []string, err error) {
	loc, err := source.Parse(src)
	if err != nil {
		return nil, nil, err
	}
	locs, err := source.ExpandWithKey(loc, key)
	if err != nil {
		return nil, nil, err
	}
	if len(locs) == 0 {
		return nil, nil, &source.IoError{Locator: src, Err: fmt.Errorf("no files matched")}
	}
	first := locs[0]
	parts := source.DiscoverPartitions(first.Path)

	bs, err := source.Open(first, key)
	if err != nil {
		return nil, nil, err
	}
	rdr, err := source.OpenReader(ctx, first, bs)
	if err != nil {
		return nil, nil, err
	}
	defer rdr.Close()
	fileSchema, err := rdr.Schema(ctx)
	if err != nil {
		return nil, nil, err
	}
	if len(parts) == 0 {
		return fileSchema, nil, nil
	}

	cols := make([]types.Column, 0, len(parts)+len(fileSchema.Columns))
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if fileSchema.Has(p.Key) {
			continue // the file itself already declares this column; the partition value is redundant
		}
		cols = append(cols, types.Column{Name: p.Key, Type: p.Value.Type})
		names = append(names, p.Key)
	}
	cols = append(cols, fileSchema.Columns...)
	return types.NewSchema(cols), names, nil
}
