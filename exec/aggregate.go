package exec

import (
	"math/big"

	"github.com/dchest/siphash"

	"github.com/nrktql/fileql/expr"
	"github.com/nrktql/fileql/types"
)

// groupSeed keys the siphash-64 hash used to bucket group-by keys;
// grouping needs no cryptographic property from the hash, just a
// cheap, well-distributed one, so any fixed seed will do.
const groupSeed uint64 = 0x9e3779b97f4a7c15

// aggregateOperator computes grouped aggregate expressions in one
// pass: it drains its child fully on Open, hashing each row's
// group-by values with siphash to bucket it into a group, then
// streams one output row per group (or a single row of empty-input
// defaults when there is no GROUP BY and the child produced no
// rows at all).
type aggregateOperator struct {
	child     Iterator
	groupKeys []*expr.Column
	aggs      []expr.Binding
	schema    *types.Schema

	buckets map[uint64][]*groupState
	order   []*groupState
	pos     int
}

type groupState struct {
	keyValues []types.Value
	accs      []accumulator
}

func newAggregate(child Iterator, groupKeys []*expr.Column, aggs []expr.Binding, schema *types.Schema) Iterator {
	return &aggregateOperator{child: child, groupKeys: groupKeys, aggs: aggs, schema: schema}
}

func (a *aggregateOperator) Schema() *types.Schema { return a.schema }

func (a *aggregateOperator) Open() error {
	if err := a.child.Open(); err != nil {
		return err
	}
	a.buckets = make(map[uint64][]*groupState)
	sawRow := false
	for {
		row, ok, err := a.child.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		sawRow = true
		keyValues := make([]types.Value, len(a.groupKeys))
		for i, g := range a.groupKeys {
			v, _ := row.Get(g.Name)
			keyValues[i] = v
		}
		state, err := a.groupFor(keyValues)
		if err != nil {
			return err
		}
		for i, b := range a.aggs {
			v, err := aggInput(b.Expr, row)
			if err != nil {
				return err
			}
			state.accs[i].add(v)
		}
	}
	if len(a.groupKeys) == 0 && !sawRow {
		state := a.newGroupState(nil)
		a.order = append(a.order, state)
	}
	return nil
}

// aggInput evaluates the aggregate's argument expression, or
// produces a non-null sentinel for COUNT(*), whose accumulator
// only needs to know a row arrived, not any particular value.
func aggInput(e expr.Node, row Row) (types.Value, error) {
	agg, ok := e.(*expr.Aggregate)
	if !ok {
		return Eval(e, row)
	}
	if agg.Star {
		return types.BoolValue(true), nil
	}
	return Eval(agg.Inner, row)
}

func (a *aggregateOperator) groupFor(keyValues []types.Value) (*groupState, error) {
	h := hashGroupKey(keyValues)
	for _, s := range a.buckets[h] {
		if sameGroup(s.keyValues, keyValues) {
			return s, nil
		}
	}
	state := a.newGroupState(keyValues)
	a.buckets[h] = append(a.buckets[h], state)
	a.order = append(a.order, state)
	return state, nil
}

func (a *aggregateOperator) newGroupState(keyValues []types.Value) *groupState {
	accs := make([]accumulator, len(a.aggs))
	for i, b := range a.aggs {
		accs[i] = newAccumulator(b.Expr)
	}
	return &groupState{keyValues: keyValues, accs: accs}
}

func sameGroup(a, b []types.Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !types.Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

func hashGroupKey(values []types.Value) uint64 {
	var buf []byte
	for _, v := range values {
		buf = append(buf, byte(v.Type))
		if v.IsNull() {
			buf = append(buf, 0)
			continue
		}
		buf = append(buf, v.String()...)
		buf = append(buf, 0)
	}
	return siphash.Hash(0, groupSeed, buf)
}

func (a *aggregateOperator) Next() (Row, bool, error) {
	if a.pos >= len(a.order) {
		return Row{}, false, nil
	}
	state := a.order[a.pos]
	a.pos++
	values := make([]types.Value, len(state.accs))
	for i, acc := range state.accs {
		values[i] = acc.result()
	}
	return Row{Schema: a.schema, Values: values}, true, nil
}

func (a *aggregateOperator) Close() error {
	a.buckets = nil
	a.order = nil
	return a.child.Close()
}

// accumulator folds a stream of per-row values into one aggregate
// result.
type accumulator interface {
	add(v types.Value)
	result() types.Value
}

func newAccumulator(e expr.Node) accumulator {
	agg, ok := e.(*expr.Aggregate)
	if !ok {
		return &firstAcc{}
	}
	switch agg.Op {
	case expr.OpCount:
		return &countAcc{}
	case expr.OpSum:
		return &sumAcc{}
	case expr.OpAvg:
		return &avgAcc{}
	case expr.OpMin:
		return &minMaxAcc{max: false}
	case expr.OpMax:
		return &minMaxAcc{max: true}
	default:
		return &firstAcc{}
	}
}

// firstAcc backs a plain (non-aggregate) expression in the
// projection list of a grouped query, e.g. a GROUP BY column
// repeated in SELECT without wrapping it in an aggregate: every row
// in the group shares its value, so the first one observed suffices.
type firstAcc struct {
	v  types.Value
	ok bool
}

func (f *firstAcc) add(v types.Value) {
	if !f.ok {
		f.v, f.ok = v, true
	}
}
func (f *firstAcc) result() types.Value {
	if !f.ok {
		return types.NullValue()
	}
	return f.v
}

// countAcc implements COUNT(*) and COUNT(expr): COUNT(*) counts
// every row (add is always called with a non-null sentinel for
// Star aggregates, see aggInput), COUNT(expr) counts only the rows
// where expr is non-null.
type countAcc struct{ n int64 }

func (c *countAcc) add(v types.Value) {
	if !v.IsNull() {
		c.n++
	}
}
func (c *countAcc) result() types.Value { return types.IntValue(c.n) }

// sumAcc accumulates SUM(expr), ignoring nulls, switching to exact
// big.Rat arithmetic the moment any input is a Decimal so a mixed
// integer/decimal column never loses precision; an all-null group
// (or an empty one) sums to NULL, not zero, per SQL's SUM semantics.
type sumAcc struct {
	seen     bool
	intSum   int64
	floatOk  bool
	floatSum float64
	dec      *big.Rat
}

func (s *sumAcc) add(v types.Value) {
	if v.IsNull() {
		return
	}
	s.seen = true
	switch v.Type {
	case types.Decimal:
		if s.dec == nil {
			s.dec = new(big.Rat)
			if s.floatOk {
				s.dec.SetFloat64(s.floatSum)
			} else {
				s.dec.SetInt64(s.intSum)
			}
		}
		s.dec.Add(s.dec, v.Decimal())
	case types.Float:
		if s.dec != nil {
			r := new(big.Rat).SetFloat64(v.Float())
			s.dec.Add(s.dec, r)
			return
		}
		if !s.floatOk {
			s.floatSum = float64(s.intSum)
			s.floatOk = true
		}
		s.floatSum += v.Float()
	default: // Integer
		if s.dec != nil {
			r := new(big.Rat).SetInt64(v.Int())
			s.dec.Add(s.dec, r)
			return
		}
		if s.floatOk {
			s.floatSum += v.Float()
			return
		}
		s.intSum += v.Int()
	}
}

func (s *sumAcc) result() types.Value {
	if !s.seen {
		return types.NullValue()
	}
	if s.dec != nil {
		return types.DecimalValue(s.dec)
	}
	if s.floatOk {
		return types.FloatValue(s.floatSum)
	}
	return types.IntValue(s.intSum)
}

// avgAcc computes AVG(expr) as float64(sum)/count over non-null
// inputs; an all-null or empty group averages to NULL.
type avgAcc struct {
	sum sumAcc
	n   int64
}

func (a *avgAcc) add(v types.Value) {
	if v.IsNull() {
		return
	}
	a.sum.add(v)
	a.n++
}
func (a *avgAcc) result() types.Value {
	if a.n == 0 {
		return types.NullValue()
	}
	total, _ := a.sum.result().AsFloat64()
	return types.FloatValue(total / float64(a.n))
}

// minMaxAcc implements MIN/MAX(expr) via types.Compare, ignoring
// nulls; an all-null or empty group resolves to NULL.
type minMaxAcc struct {
	v   types.Value
	ok  bool
	max bool
}

func (m *minMaxAcc) add(v types.Value) {
	if v.IsNull() {
		return
	}
	if !m.ok {
		m.v, m.ok = v, true
		return
	}
	c := types.Compare(v, m.v)
	if (m.max && c > 0) || (!m.max && c < 0) {
		m.v = v
	}
}
func (m *minMaxAcc) result() types.Value {
	if !m.ok {
		return types.NullValue()
	}
	return m.v
}
