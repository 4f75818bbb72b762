// Package reader defines the common reader contract every file
// format decoder implements, and the registry that resolves a
// source locator to a concrete Reader.
//
// Readers are lazy, finite row producers: Open declares the
// pushdown hints the caller intends to rely on, and Next decodes
// just enough of the underlying source to produce the next row.
// A reader that cannot honor a hint (e.g. it has no column-level
// skip support) still returns correct results — the hint is an
// optimization, never a correctness requirement. Each reader
// reports via Capabilities() which hints it exercises; the
// optimizer's pushdown passes do not consult it, and every reader
// re-checks pushed filters against each row it decodes.
package reader

import (
	"context"
	"fmt"
	"io"

	"github.com/nrktql/fileql/expr"
	"github.com/nrktql/fileql/types"
)

// DataError reports a malformed document a reader cannot recover
// from by degrading cells to null: a JSON document whose selected
// target is not an array of objects, an HTML page with no table at
// the selected index, a Parquet footer that fails to decode. Most
// malformed input degrades to null cells plus a warning instead;
// DataError is the rare terminal case.
type DataError struct {
	Format string
	Detail string
}

func (e *DataError) Error() string {
	return fmt.Sprintf("reader: %s: %s", e.Format, e.Detail)
}

// Hints mirrors the optimizer's pushdown bundle (plan.Hints),
// restated here so this package has no dependency on plan.
type Hints struct {
	RequiredColumns  []string
	PushableFilters  []expr.Node
	RowCap           *int64
	PartitionFilters []expr.Node
	// Warnings, when non-nil, collects human-readable notices about
	// recoverable data problems (a truncated row padded with nulls,
	// a cell that didn't match its inferred type) that a reader
	// chooses to surface rather than fail the scan over.
	Warnings *[]string
}

// Capabilities reports which pushdown hints a reader can exercise
// for a given column type. The planner's predicate pushdown pass
// does not consult it when attaching a filter to a scan.
type Capabilities struct {
	ColumnPruning bool
	RowCap        bool
	// FilterableTypes lists the column types this reader can
	// evaluate pushed filters over; nil means no filter pushdown.
	FilterableTypes []types.DataType
}

// Reader is the per-format lazy row producer.
type Reader interface {
	// Schema returns the reader's output schema, sampling the
	// source or decoding format metadata as needed. It may be
	// called before Open.
	Schema(ctx context.Context) (*types.Schema, error)
	// Capabilities reports this reader's pushdown support.
	Capabilities() Capabilities
	// Open begins producing rows honoring hints on a best-effort
	// basis; see the package doc for the non-requirement of exact
	// hint support.
	Open(ctx context.Context, hints Hints) error
	// Next produces the next row, or ok=false at end of input.
	Next() (row types.Row, ok bool, err error)
	// Close releases the reader's file handles, HTTP sessions, or
	// decoder state. Close is idempotent.
	Close() error
}

// Factory constructs a Reader for a byte source addressed by a
// resolved locator and format fragment (see source.Locator).
type Factory func(ctx context.Context, src ByteSource, fragment string) (Reader, error)

// ByteSource is the minimal contract a reader needs from the
// locator/transport layer: a readable, seekable-or-not byte
// stream plus its logical size when known.
type ByteSource interface {
	Open(ctx context.Context) (ReadCloser, error)
	// Size returns the byte length if known up front (local files,
	// HTTP responses with Content-Length, S3 HEAD requests), or
	// -1 if it must be discovered by reading to EOF.
	Size(ctx context.Context) (int64, error)
}

// ReadCloser is a plain io.ReadCloser, restated to avoid pulling
// in the io package just for this one contract point in the
// public API surface.
type ReadCloser interface {
	Read(p []byte) (int, error)
	Close() error
}

// RangeByteSource is an optional capability a ByteSource may also
// implement: a source that can serve an arbitrary byte range
// without transferring everything before it — a local file's
// io.ReaderAt, an HTTP(S) server honoring Range requests, or an S3
// object's ranged GET (see aws/s3.Reader.ReadAt). The Parquet
// reader uses this to decode the footer and read only the
// row groups that survive statistics pruning instead of buffering
// an entire file into memory; readers that only need a single
// forward pass (CSV, JSON, HTML, Markdown, XML) have no use for it
// and never type-assert for it.
type RangeByteSource interface {
	ByteSource
	// ReaderAt returns a handle good for arbitrary-offset reads,
	// the source's total size, and a Closer to release it when
	// done. Implementations that cannot serve true ranges (a
	// generic HTTP origin with no Range support) may still satisfy
	// this by transparently falling back to one full transfer the
	// first time ReadAt is called.
	ReaderAt(ctx context.Context) (io.ReaderAt, int64, io.Closer, error)
}

// registry maps a format name (as named by a URL fragment hint or
// inferred from a file extension) to the Factory that builds its
// Reader.
var registry = map[string]Factory{}

// Register adds a Factory under the given format name. Called
// from each format file's init.
func Register(format string, f Factory) {
	registry[format] = f
}

// Lookup returns the Factory registered for a format name.
func Lookup(format string) (Factory, bool) {
	f, ok := registry[format]
	return f, ok
}
