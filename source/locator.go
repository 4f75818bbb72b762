// Package source resolves a source locator — a local path, an
// http(s) URL, or an s3 URL, with an optional format fragment —
// into a reader.ByteSource, and discovers Hive-style partition
// descriptors along the way.
package source

import (
	"fmt"
	"net/url"
	"strings"
)

// Scheme identifies where a Locator's bytes live.
type Scheme int

const (
	SchemeFile Scheme = iota
	SchemeHTTP
	SchemeS3
)

func (s Scheme) String() string {
	switch s {
	case SchemeHTTP:
		return "http(s)"
	case SchemeS3:
		return "s3"
	default:
		return "file"
	}
}

// Locator is the normalized (scheme, path, fragment) tuple named
// in the data model: fragment carries the optional
// #format[:selector] hint, e.g. "#csv", "#html:1", "#json:data.rows".
type Locator struct {
	Scheme   Scheme
	Path     string // bucket+key for s3, the full URL for http(s), filesystem path for file
	Fragment string
}

// Parse normalizes a raw FROM-clause source string (a bare path,
// a file:// / http(s):// / s3:// URL, possibly with a #format
// fragment) into a Locator.
func Parse(raw string) (Locator, error) {
	frag := ""
	body := raw
	if i := strings.IndexByte(raw, '#'); i >= 0 {
		body, frag = raw[:i], raw[i+1:]
	}
	if !strings.Contains(body, "://") {
		return Locator{Scheme: SchemeFile, Path: body, Fragment: frag}, nil
	}
	u, err := url.Parse(body)
	if err != nil {
		return Locator{}, fmt.Errorf("source: invalid locator %q: %w", raw, err)
	}
	switch u.Scheme {
	case "file":
		return Locator{Scheme: SchemeFile, Path: u.Path, Fragment: frag}, nil
	case "http", "https":
		return Locator{Scheme: SchemeHTTP, Path: body, Fragment: frag}, nil
	case "s3":
		return Locator{Scheme: SchemeS3, Path: u.Host + u.Path, Fragment: frag}, nil
	default:
		return Locator{}, fmt.Errorf("source: unsupported scheme %q", u.Scheme)
	}
}

// Format splits the fragment into a format name and an optional
// selector (table index, JSON path, etc.), e.g. "html:1" ->
// ("html", "1").
func (l Locator) Format() (format, selector string) {
	if l.Fragment == "" {
		return "", ""
	}
	if i := strings.IndexByte(l.Fragment, ':'); i >= 0 {
		return l.Fragment[:i], l.Fragment[i+1:]
	}
	return l.Fragment, ""
}

// Ext returns the lowercase file extension of the locator's path,
// including the leading dot, or "" if there is none. Used as the
// fallback format hint when no fragment is present.
func (l Locator) Ext() string {
	p := l.Path
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		p = p[i+1:]
	}
	if i := strings.LastIndexByte(p, '.'); i >= 0 {
		return strings.ToLower(p[i:])
	}
	return ""
}
