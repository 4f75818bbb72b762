package reader

import (
	"bytes"
	"context"
	"io"
)

// memSource is an in-memory ByteSource for exercising readers
// without touching the filesystem or network.
type memSource struct {
	data []byte
}

func newMemSource(s string) *memSource { return &memSource{data: []byte(s)} }

func (m *memSource) Open(ctx context.Context) (ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(m.data)), nil
}

func (m *memSource) Size(ctx context.Context) (int64, error) {
	return int64(len(m.data)), nil
}

func drain(t interface {
	Fatalf(string, ...any)
}, r Reader, ctx context.Context, hints Hints) []map[string]any {
	if err := r.Open(ctx, hints); err != nil {
		t.Fatalf("open: %v", err)
	}
	var out []map[string]any
	for {
		row, ok, err := r.Next()
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if !ok {
			break
		}
		m := map[string]any{}
		for i, c := range row.Schema.Columns {
			m[c.Name] = row.Values[i].String()
		}
		out = append(out, m)
	}
	return out
}
