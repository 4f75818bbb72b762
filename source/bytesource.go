package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/nrktql/fileql/aws"
	"github.com/nrktql/fileql/aws/s3"
	"github.com/nrktql/fileql/reader"
)

// noopCloser satisfies io.Closer for byte sources (the plain HTTP
// and S3 adapters) whose range reads hold no per-call resource to
// release; the only thing worth closing is the one-shot file
// handle a local source opens.
type noopCloser struct{}

func (noopCloser) Close() error { return nil }

// Open resolves a Locator to a reader.ByteSource. s3Key is used
// only for SchemeS3 locators and may be nil, in which case a key is
// built from ambient credentials via aws.AmbientKey; Open returns an
// AuthError when none are found.
func Open(loc Locator, s3Key *aws.SigningKey) (reader.ByteSource, error) {
	switch loc.Scheme {
	case SchemeFile:
		return localSource{path: loc.Path}, nil
	case SchemeHTTP:
		return httpSource{url: loc.Path}, nil
	case SchemeS3:
		bucket, key, err := splitBucketKey(loc.Path)
		if err != nil {
			return nil, err
		}
		if s3Key == nil {
			var err error
			s3Key, err = aws.AmbientKey("s3", s3.DeriveForBucket(bucket))
			if err != nil {
				return nil, &AuthError{Locator: "s3://" + loc.Path, Err: err}
			}
		}
		return s3Source{key: s3Key, bucket: bucket, object: key}, nil
	default:
		return nil, fmt.Errorf("source: unknown scheme %v", loc.Scheme)
	}
}

func splitBucketKey(path string) (bucket, key string, err error) {
	for i := 0; i < len(path); i++ {
		if path[i] == '/' {
			return path[:i], path[i+1:], nil
		}
	}
	return "", "", fmt.Errorf("source: s3 locator %q missing object key", path)
}

type localSource struct{ path string }

func (l localSource) Open(ctx context.Context) (reader.ReadCloser, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsPermission(err) {
			return nil, &AuthError{Locator: l.path, Err: err}
		}
		return nil, &IoError{Locator: l.path, Err: err}
	}
	return f, nil
}

func (l localSource) Size(ctx context.Context) (int64, error) {
	fi, err := os.Stat(l.path)
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

// ReaderAt opens the file once and hands back the *os.File
// itself: it is already both an io.ReaderAt and an io.Closer, so
// there is nothing to adapt.
func (l localSource) ReaderAt(ctx context.Context) (io.ReaderAt, int64, io.Closer, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsPermission(err) {
			return nil, 0, nil, &AuthError{Locator: l.path, Err: err}
		}
		return nil, 0, nil, &IoError{Locator: l.path, Err: err}
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, nil, &IoError{Locator: l.path, Err: err}
	}
	return f, fi.Size(), f, nil
}

type httpSource struct{ url string }

func (h httpSource) Open(ctx context.Context) (reader.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return nil, &IoError{Locator: h.url, Err: err}
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, &IoError{Locator: h.url, Err: err}
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		resp.Body.Close()
		return nil, &AuthError{Locator: h.url, Err: fmt.Errorf("status %s", resp.Status)}
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &IoError{Locator: h.url, Err: fmt.Errorf("status %s", resp.Status)}
	}
	return resp.Body, nil
}

func (h httpSource) Size(ctx context.Context) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, h.url, nil)
	if err != nil {
		return -1, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return -1, err
	}
	defer resp.Body.Close()
	if resp.ContentLength < 0 {
		return -1, nil
	}
	return resp.ContentLength, nil
}

// ReaderAt reports the size up front via HEAD and serves reads
// through httpRangeReaderAt, which issues true ranged GETs and
// falls back to one full download only if the origin ignores the
// Range header.
func (h httpSource) ReaderAt(ctx context.Context) (io.ReaderAt, int64, io.Closer, error) {
	size, err := h.Size(ctx)
	if err != nil {
		return nil, 0, nil, &IoError{Locator: h.url, Err: err}
	}
	if size < 0 {
		return nil, 0, nil, &IoError{Locator: h.url, Err: fmt.Errorf("server did not report a content length")}
	}
	return &httpRangeReaderAt{ctx: ctx, url: h.url, size: size}, size, noopCloser{}, nil
}

// httpRangeReaderAt implements io.ReaderAt over one HTTP(S) URL. It
// prefers a true ranged GET (status 206); an origin that ignores
// the Range header and answers 200 instead gets logged once and the
// whole body is buffered so subsequent ReadAt calls can still be
// served without re-requesting it.
type httpRangeReaderAt struct {
	ctx  context.Context
	url  string
	size int64

	mu   sync.Mutex
	full []byte
}

func (h *httpRangeReaderAt) ReadAt(p []byte, off int64) (int, error) {
	h.mu.Lock()
	if h.full != nil {
		defer h.mu.Unlock()
		if off >= int64(len(h.full)) {
			return 0, io.EOF
		}
		n := copy(p, h.full[off:])
		if n < len(p) {
			return n, io.EOF
		}
		return n, nil
	}
	h.mu.Unlock()

	req, err := http.NewRequestWithContext(h.ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", off, off+int64(len(p))-1))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusPartialContent:
		return io.ReadFull(resp.Body, p)
	case http.StatusOK:
		log.Printf("source: %s ignored Range request, falling back to full download", h.url)
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return 0, err
		}
		h.mu.Lock()
		h.full = body
		h.mu.Unlock()
		if off >= int64(len(body)) {
			return 0, io.EOF
		}
		n := copy(p, body[off:])
		if n < len(p) {
			return n, io.EOF
		}
		return n, nil
	default:
		return 0, fmt.Errorf("source: %s: unexpected status %s", h.url, resp.Status)
	}
}

type s3Source struct {
	key            *aws.SigningKey
	bucket, object string
}

func (s s3Source) Open(ctx context.Context) (reader.ReadCloser, error) {
	rc, err := s3.Open(s.key, s.bucket, s.object, true)
	if err != nil {
		loc := fmt.Sprintf("s3://%s/%s", s.bucket, s.object)
		if errors.Is(err, fs.ErrPermission) || strings.Contains(err.Error(), "403") {
			return nil, &AuthError{Locator: loc, Err: err}
		}
		return nil, &IoError{Locator: loc, Err: err}
	}
	return rc, nil
}

func (s s3Source) Size(ctx context.Context) (int64, error) {
	r, err := s3.Stat(s.key, s.bucket, s.object)
	if err != nil {
		return -1, err
	}
	return r.Size, nil
}

// ReaderAt hands back the *s3.Reader itself: it already implements
// io.ReaderAt via ranged GETs against the object.
func (s s3Source) ReaderAt(ctx context.Context) (io.ReaderAt, int64, io.Closer, error) {
	r, err := s3.Stat(s.key, s.bucket, s.object)
	if err != nil {
		loc := fmt.Sprintf("s3://%s/%s", s.bucket, s.object)
		if errors.Is(err, fs.ErrPermission) || strings.Contains(err.Error(), "403") {
			return nil, 0, nil, &AuthError{Locator: loc, Err: err}
		}
		return nil, 0, nil, &IoError{Locator: loc, Err: err}
	}
	return r, r.Size, noopCloser{}, nil
}
