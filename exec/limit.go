package exec

import "github.com/nrktql/fileql/types"

// limitOperator passes through at most N rows, then closes its
// child and reports end-of-input without consuming anything
// further. Repeated Next calls past the cap keep returning end.
type limitOperator struct {
	child   Iterator
	n, left int64
	closed  bool
}

func newLimit(child Iterator, n int64) Iterator {
	return &limitOperator{child: child, n: n, left: n}
}

func (l *limitOperator) Schema() *types.Schema { return l.child.Schema() }
func (l *limitOperator) Open() error           { return l.child.Open() }

func (l *limitOperator) Close() error {
	if l.closed {
		return nil
	}
	l.closed = true
	return l.child.Close()
}

func (l *limitOperator) Next() (Row, bool, error) {
	if l.left <= 0 {
		// the cap releases the child's resources as soon as it is
		// reached; Close stays safe to call afterwards
		return Row{}, false, l.Close()
	}
	row, ok, err := l.child.Next()
	if err != nil || !ok {
		return Row{}, ok, err
	}
	l.left--
	return row, true, nil
}
