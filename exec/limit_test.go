package exec

import (
	"testing"

	"github.com/nrktql/fileql/types"
)

func TestLimitCapsOutput(t *testing.T) {
	schema := ageSchema()
	rows := make([]Row, 10)
	for i := range rows {
		rows[i] = row(schema, types.IntValue(int64(i)))
	}
	src := newSliceIterator(schema, rows)
	l := newLimit(src, 3)
	out, err := drainAll(l)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(out))
	}
}

func TestLimitIdempotentPastCap(t *testing.T) {
	schema := ageSchema()
	src := newSliceIterator(schema, []Row{row(schema, types.IntValue(1))})
	l := newLimit(src, 5)
	if err := l.Open(); err != nil {
		t.Fatalf("open: %v", err)
	}
	_, ok, err := l.Next()
	if err != nil || !ok {
		t.Fatalf("expected one row, got ok=%v err=%v", ok, err)
	}
	for i := 0; i < 3; i++ {
		_, ok, err := l.Next()
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if ok {
			t.Fatal("expected end of input to stay false on repeated Next calls")
		}
	}
}
