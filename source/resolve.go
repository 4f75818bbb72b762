package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/nrktql/fileql/reader"
)

// UnknownFormat reports that a locator's format could not be
// determined by fragment, extension, or content sniffing.
type UnknownFormat struct {
	Locator string
}

func (e *UnknownFormat) Error() string {
	return fmt.Sprintf("source: cannot determine format of %q", e.Locator)
}

// IoError wraps a failure to reach or read a source's bytes
// (network failure, 404, missing local file, truncated body).
type IoError struct {
	Locator string
	Err     error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("source: reading %s: %v", e.Locator, e.Err)
}
func (e *IoError) Unwrap() error { return e.Err }

// AuthError is the IoError variant raised when a source rejects
// the request for lack of (or invalid) credentials, distinguished
// from a generic IoError since the caller's remedy differs
// (supply credentials, not retry).
type AuthError struct {
	Locator string
	Err     error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("source: %s: authentication failed: %v", e.Locator, e.Err)
}
func (e *AuthError) Unwrap() error { return e.Err }

var extFormats = map[string]string{
	".csv":      "csv",
	".tsv":      "tsv",
	".json":     "json",
	".jsonl":    "jsonl",
	".ndjson":   "ndjson",
	".html":     "html",
	".htm":      "html",
	".md":       "md",
	".markdown": "md",
	".xml":      "xml",
	".parquet":  "parquet",
}

const sniffBytes = 4096

// ResolveFormat determines a locator's format name and selector,
// trying, in order: an explicit "#format[:selector]" fragment; the
// path's file extension; and, only if neither resolves to a known
// format, sniffing the first sniffBytes of its content. src is
// opened, lazily, only if sniffing is needed.
func ResolveFormat(ctx context.Context, loc Locator, src reader.ByteSource) (format, selector string, err error) {
	if format, selector = loc.Format(); format != "" {
		return format, selector, nil
	}
	if ext := loc.Ext(); ext != "" {
		if f, ok := extFormats[ext]; ok {
			return f, "", nil
		}
	}
	rc, err := src.Open(ctx)
	if err != nil {
		return "", "", &IoError{Locator: loc.Path, Err: err}
	}
	defer rc.Close()
	buf := make([]byte, sniffBytes)
	n, err := io.ReadFull(rc, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", "", &IoError{Locator: loc.Path, Err: err}
	}
	buf = buf[:n]
	format, ok := sniffFormat(buf)
	if !ok {
		return "", "", &UnknownFormat{Locator: loc.Path}
	}
	return format, "", nil
}

// sniffFormat classifies a content prefix by the resolution order
// the format's own magic or leading syntax implies: Parquet's
// 4-byte "PAR1" magic, an HTML document's opening tag, a Markdown
// pipe-table's header-separator line, then a leading '{' or '['
// for JSON, before falling back to CSV as the format every other
// delimited-text source defaults to.
func sniffFormat(buf []byte) (string, bool) {
	if bytes.HasPrefix(buf, []byte("PAR1")) {
		return "parquet", true
	}
	trimmed := bytes.TrimLeft(buf, " \t\r\n")
	lower := bytes.ToLower(trimmed)
	if bytes.HasPrefix(lower, []byte("<!doctype html")) || bytes.HasPrefix(lower, []byte("<html")) {
		return "html", true
	}
	if bytes.Contains(lower, []byte("<table")) {
		return "html", true
	}
	for _, line := range strings.Split(string(buf), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "|") && isMarkdownSeparator(line) {
			return "md", true
		}
	}
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return "json", true
	}
	if len(trimmed) == 0 {
		return "", false
	}
	return "csv", true
}

func isMarkdownSeparator(line string) bool {
	line = strings.Trim(line, "|")
	cells := strings.Split(line, "|")
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

// OpenReader resolves loc's format and opens the matching Reader
// against src, the single point where the locator, the transport
// layer, and the format registry meet.
func OpenReader(ctx context.Context, loc Locator, src reader.ByteSource) (reader.Reader, error) {
	format, selector, err := ResolveFormat(ctx, loc, src)
	if err != nil {
		return nil, err
	}
	factory, ok := reader.Lookup(format)
	if !ok {
		return nil, &UnknownFormat{Locator: loc.Path}
	}
	return factory(ctx, src, selector)
}
