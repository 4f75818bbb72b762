// Package exec implements the pull-based ("Volcano") iterator
// executor: a tree of Scan/Filter/Project/Aggregate/Sort/Join/
// Limit operators built from an optimized plan, each exposing the
// same small Open/Next/Close lifecycle.
//
// Rows are ephemeral: each is produced, observed by at most one
// parent operator, and dropped. Operators that transform a row
// build a new Row rather than mutating the one they received.
package exec

import "github.com/nrktql/fileql/types"

// Row is the unit of data flowing through the operator tree.
type Row = types.Row

// Iterator is the pull interface every operator implements.
// Open must be called exactly once before Next, and Close exactly
// once when the caller is done, whether or not it drained Next to
// completion.
type Iterator interface {
	// Open acquires any resources needed to start producing rows
	// (file handles, HTTP sessions, hash tables).
	Open() error
	// Next returns the next row, or ok=false when the iterator is
	// exhausted. Once ok is false, further calls must also return
	// ok=false.
	Next() (row Row, ok bool, err error)
	// Close releases resources acquired by Open. Close is
	// idempotent.
	Close() error
	// Schema is this iterator's output schema.
	Schema() *types.Schema
}
