package exec

import (
	"fmt"

	"github.com/nrktql/fileql/expr"
	"github.com/nrktql/fileql/types"
)

// UnsupportedJoinCondition reports a JOIN ON clause this engine
// cannot execute: every join must reduce to one or more equalities
// between a left-side column and a right-side column, ANDed
// together; anything else (an OR, a non-equality comparison, a
// condition that mixes columns from only one side) is rejected
// before any row is read.
type UnsupportedJoinCondition struct {
	Condition string
}

func (e *UnsupportedJoinCondition) Error() string {
	return fmt.Sprintf("exec: unsupported join condition: %s", e.Condition)
}

// rightEntry is one right-hand row sitting in the hash table,
// along with whether any left row has matched it yet; RIGHT/FULL
// joins need that flag to know which right rows to emit, padded
// with NULLs, once the left side is drained.
type rightEntry struct {
	row     Row
	matched bool
}

// joinOperator is a hash join: it builds an in-memory hash table
// over the right child, keyed by the equi-join columns and hashed
// with the same siphash scheme groupFor uses for GROUP BY keys,
// then probes it once per left row. LEFT/FULL joins emit an
// unmatched left row padded with NULLs on the right; RIGHT/FULL
// joins emit any right row no left row matched, padded with NULLs
// on the left, once the left side is fully drained.
type joinOperator struct {
	left, right Iterator
	leftKeys    []*expr.Column
	rightKeys   []*expr.Column
	residual    expr.Node // non-equi leftovers, evaluated after the equi-probe; nil if none
	kind        expr.JoinKind
	schema      *types.Schema

	buckets map[uint64][]*rightEntry

	curLeft    Row
	curMatched bool          // curLeft has produced at least one output row
	pending    []*rightEntry // right rows in curLeft's bucket, still to probe
	pendPos    int
	leftDone   bool

	rightOverflow []Row // unmatched right rows, served after the left side is exhausted
	overflowPos   int
}

// newJoin validates that condition is a conjunction of equalities
// between a left-schema column and a right-schema column (or nil
// for CROSS JOIN, where every right row lands in one bucket that
// every left row probes) and builds the corresponding hash-join
// operator.
func newJoin(left, right Iterator, condition expr.Node, kind expr.JoinKind, schema *types.Schema) (Iterator, error) {
	leftKeys, rightKeys, residual, err := splitEquiJoin(condition, left.Schema(), right.Schema())
	if err != nil {
		return nil, err
	}
	return &joinOperator{
		left: left, right: right,
		leftKeys: leftKeys, rightKeys: rightKeys, residual: residual,
		kind: kind, schema: schema,
		curMatched: true, // no left row pulled yet, so nothing to pad
	}, nil
}

// splitEquiJoin walks condition's AND-conjuncts, classifying each
// as an equi-join term (left-column = right-column, in either
// operand order) or failing the whole condition as unsupported. A
// conjunct that isn't an equality, or whose operands don't resolve
// one-each to leftSchema and rightSchema, makes the whole condition
// unsupported: this engine does not attempt a nested-loop fallback.
func splitEquiJoin(condition expr.Node, leftSchema, rightSchema *types.Schema) (leftKeys, rightKeys []*expr.Column, residual expr.Node, err error) {
	if condition == nil {
		// CROSS JOIN: every left row matches every right row, so
		// there is no key to hash on.
		return nil, nil, nil, nil
	}
	for _, c := range joinConjuncts(condition) {
		cmp, ok := c.(*expr.Comparison)
		if !ok || cmp.Op != expr.Equals {
			return nil, nil, nil, &UnsupportedJoinCondition{Condition: expr.ToString(condition)}
		}
		lc, lok := cmp.Left.(*expr.Column)
		rc, rok := cmp.Right.(*expr.Column)
		if !lok || !rok {
			return nil, nil, nil, &UnsupportedJoinCondition{Condition: expr.ToString(condition)}
		}
		switch {
		case leftSchema.Has(lc.Name) && rightSchema.Has(rc.Name):
			leftKeys = append(leftKeys, lc)
			rightKeys = append(rightKeys, rc)
		case leftSchema.Has(rc.Name) && rightSchema.Has(lc.Name):
			leftKeys = append(leftKeys, rc)
			rightKeys = append(rightKeys, lc)
		default:
			return nil, nil, nil, &UnsupportedJoinCondition{Condition: expr.ToString(condition)}
		}
	}
	if len(leftKeys) == 0 {
		return nil, nil, nil, &UnsupportedJoinCondition{Condition: expr.ToString(condition)}
	}
	return leftKeys, rightKeys, residual, nil
}

func joinConjuncts(e expr.Node) []expr.Node {
	if l, ok := e.(*expr.Logical); ok && l.Op == expr.OpAnd {
		return append(joinConjuncts(l.Left), joinConjuncts(l.Right)...)
	}
	return []expr.Node{e}
}

func (j *joinOperator) Schema() *types.Schema { return j.schema }

func (j *joinOperator) Open() error {
	if err := j.left.Open(); err != nil {
		return err
	}
	if err := j.right.Open(); err != nil {
		return err
	}
	j.buckets = make(map[uint64][]*rightEntry)
	for {
		row, ok, err := j.right.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		h := hashGroupKey(keyValues(row, j.rightKeys))
		j.buckets[h] = append(j.buckets[h], &rightEntry{row: row.Clone()})
	}
	return nil
}

func keyValues(row Row, cols []*expr.Column) []types.Value {
	out := make([]types.Value, len(cols))
	for i, c := range cols {
		out[i], _ = row.Get(c.Name)
	}
	return out
}

func (j *joinOperator) needsRightPadding() bool {
	return j.kind == expr.RightJoin || j.kind == expr.FullJoin
}

func (j *joinOperator) needsLeftPadding() bool {
	return j.kind == expr.LeftJoin || j.kind == expr.FullJoin
}

func (j *joinOperator) Next() (Row, bool, error) {
	for {
		if j.pendPos < len(j.pending) {
			entry := j.pending[j.pendPos]
			j.pendPos++
			ok, row, err := j.tryMatch(j.curLeft, entry)
			if err != nil {
				return Row{}, false, err
			}
			if ok {
				j.curMatched = true
				return row, true, nil
			}
			continue
		}
		// curLeft's bucket is exhausted; a LEFT/FULL join owes an
		// unmatched left row one NULL-padded output before moving on.
		if !j.curMatched && j.needsLeftPadding() {
			j.curMatched = true
			return padRight(j.schema, j.curLeft), true, nil
		}
		if !j.leftDone {
			if err := j.advanceLeft(); err != nil {
				return Row{}, false, err
			}
			continue
		}
		if j.overflowPos < len(j.rightOverflow) {
			row := j.rightOverflow[j.overflowPos]
			j.overflowPos++
			return padLeft(j.schema, row), true, nil
		}
		return Row{}, false, nil
	}
}

// advanceLeft pulls the next left row and loads its matching right
// bucket as the pending queue.
func (j *joinOperator) advanceLeft() error {
	row, ok, err := j.left.Next()
	if err != nil {
		return err
	}
	if !ok {
		j.leftDone = true
		j.curMatched = true
		if j.needsRightPadding() {
			j.collectRightOverflow()
		}
		return nil
	}
	j.curLeft = row
	j.curMatched = false
	h := hashGroupKey(keyValues(row, j.leftKeys))
	j.pending = j.buckets[h]
	j.pendPos = 0
	return nil
}

func (j *joinOperator) collectRightOverflow() {
	for _, bucket := range j.buckets {
		for _, e := range bucket {
			if !e.matched {
				j.rightOverflow = append(j.rightOverflow, e.row)
			}
		}
	}
}

// tryMatch checks row-level equality (a siphash collision between
// distinct keys is possible, so the bucket match needs a real
// comparison) and the optional residual predicate, marking entry
// matched on success so a later RIGHT/FULL pass knows to skip it.
func (j *joinOperator) tryMatch(left Row, entry *rightEntry) (bool, Row, error) {
	right := entry.row
	if len(j.leftKeys) > 0 {
		lk := keyValues(left, j.leftKeys)
		rk := keyValues(right, j.rightKeys)
		// a NULL key never equals anything, itself included, so a
		// row with a NULL join key can only surface via outer-join
		// padding, never as a match
		for _, v := range lk {
			if v.IsNull() {
				return false, Row{}, nil
			}
		}
		for _, v := range rk {
			if v.IsNull() {
				return false, Row{}, nil
			}
		}
		if !sameGroup(lk, rk) {
			return false, Row{}, nil
		}
	}
	combined := combineRow(j.schema, left, right)
	if j.residual != nil {
		v, err := Eval(j.residual, combined)
		if err != nil {
			return false, Row{}, err
		}
		if !Truthy(v) {
			return false, Row{}, nil
		}
	}
	entry.matched = true
	return true, combined, nil
}

// combineRow merges a matched left/right pair into one output row.
// Columns unique to either side carry straight through; a column
// name shared by both sides (the join schema's Merge already
// unioned it into a single output column) prefers the left value
// and falls back to the right, the natural choice since an
// unmatched LEFT/FULL row has a real left value and a padded NULL
// right value, and vice versa for an unmatched RIGHT/FULL row.
func combineRow(schema *types.Schema, left, right Row) Row {
	values := make([]types.Value, len(schema.Columns))
	for i, col := range schema.Columns {
		if v, ok := left.Get(col.Name); ok && !v.IsNull() {
			values[i] = v
			continue
		}
		if v, ok := right.Get(col.Name); ok {
			values[i] = v
			continue
		}
		if v, ok := left.Get(col.Name); ok {
			values[i] = v
			continue
		}
		values[i] = types.NullValue()
	}
	return Row{Schema: schema, Values: values}
}

func padRight(schema *types.Schema, left Row) Row {
	values := make([]types.Value, len(schema.Columns))
	for i, col := range schema.Columns {
		if v, ok := left.Get(col.Name); ok {
			values[i] = v
			continue
		}
		values[i] = types.NullValue()
	}
	return Row{Schema: schema, Values: values}
}

func padLeft(schema *types.Schema, right Row) Row {
	values := make([]types.Value, len(schema.Columns))
	for i, col := range schema.Columns {
		if v, ok := right.Get(col.Name); ok {
			values[i] = v
			continue
		}
		values[i] = types.NullValue()
	}
	return Row{Schema: schema, Values: values}
}

func (j *joinOperator) Close() error {
	j.buckets = nil
	err1 := j.left.Close()
	err2 := j.right.Close()
	if err1 != nil {
		return err1
	}
	return err2
}
