package catalog

import (
	"cmp"
	"fmt"
	"slices"
)

// Operand selects documents of a ScalarIndex by value: either one exact value
// or a range bounded on one or both sides.
type Operand[V cmp.Ordered] struct {
	Min, Max               V
	HasMin, HasMax         bool
	ExcludeMin, ExcludeMax bool
}

// Eq selects documents whose value equals v.
func Eq[V cmp.Ordered](v V) Operand[V] {
	return Operand[V]{Min: v, Max: v, HasMin: true, HasMax: true}
}

// Between selects documents with min <= value <= max.
func Between[V cmp.Ordered](min, max V) Operand[V] {
	return Operand[V]{Min: min, Max: max, HasMin: true, HasMax: true}
}

// Range selects documents between min and max, optionally excluding either bound.
func Range[V cmp.Ordered](min, max V, excludeMin, excludeMax bool) Operand[V] {
	return Operand[V]{Min: min, Max: max, HasMin: true, HasMax: true, ExcludeMin: excludeMin, ExcludeMax: excludeMax}
}

// Gt selects documents with value > v.
func Gt[V cmp.Ordered](v V) Operand[V] {
	return Operand[V]{Min: v, HasMin: true, ExcludeMin: true}
}

// Ge selects documents with value >= v.
func Ge[V cmp.Ordered](v V) Operand[V] {
	return Operand[V]{Min: v, HasMin: true}
}

// Lt selects documents with value < v.
func Lt[V cmp.Ordered](v V) Operand[V] {
	return Operand[V]{Max: v, HasMax: true, ExcludeMax: true}
}

// Le selects documents with value <= v.
func Le[V cmp.Ordered](v V) Operand[V] {
	return Operand[V]{Max: v, HasMax: true}
}

func (o Operand[V]) exact() bool {
	return o.HasMin && o.HasMax && !o.ExcludeMin && !o.ExcludeMax && o.Min == o.Max
}

// ScalarQuery is the structured query form accepted by ScalarIndex.Apply.
type ScalarQuery[V cmp.Ordered] struct {
	Operands []Operand[V]
	Operator Operator // defaults to Or
}

// Search returns the documents matching operands combined with op.
//
// Returns:
//   - *DocSet: matching documents (empty, never nil, when nothing matches)
//   - error: ErrUnsupportedOperator for operators other than And and Or
func (idx *ScalarIndex[V]) Search(operands []Operand[V], op Operator) (*DocSet, error) {
	if op != And && op != Or {
		return nil, fmt.Errorf("%w: only %q and %q are supported, not %q", ErrUnsupportedOperator, And, Or, op)
	}
	return idx.search(operands, op), nil
}

func (idx *ScalarIndex[V]) search(operands []Operand[V], op Operator) *DocSet {
	sets := make([]*DocSet, len(operands))
	for i, o := range operands {
		sets[i] = idx.resolve(o)
	}
	if op == Or {
		return Union(sets...)
	}
	return intersectAll(idx.config.TreeThreshold, sets)
}

// resolve returns the documents matching one operand. Exact operands return
// the forward entry itself, which callers must not modify.
func (idx *ScalarIndex[V]) resolve(o Operand[V]) *DocSet {
	if o.exact() {
		return idx.fwd[o.Min]
	}
	lo, hi := idx.bounds(o)
	if lo >= hi {
		return nil
	}
	sets := make([]*DocSet, 0, hi-lo)
	for _, v := range idx.values[lo:hi] {
		sets = append(sets, idx.fwd[v])
	}
	return Union(sets...)
}

// bounds returns the half-open span of idx.values covered by o.
func (idx *ScalarIndex[V]) bounds(o Operand[V]) (lo, hi int) {
	lo, hi = 0, len(idx.values)
	if o.HasMin {
		pos, found := slices.BinarySearch(idx.values, o.Min)
		if found && o.ExcludeMin {
			pos++
		}
		lo = pos
	}
	if o.HasMax {
		pos, found := slices.BinarySearch(idx.values, o.Max)
		if found && !o.ExcludeMax {
			pos++
		}
		hi = pos
	}
	return lo, hi
}

// Apply runs a query given in any of the accepted forms:
//   - ScalarQuery[V] or *ScalarQuery[V]
//   - map[string]any with a "query" key and an optional "operator" key
//   - a V, []V, Operand[V], []Operand[V] or []any mixing values and operands
//
// The operator defaults to Or.
//
// Example:
//
//	idx.Apply([]any{1, Between(1, 2)})                              // value 1 or in [1, 2]
//	idx.Apply(map[string]any{"query": []int{1, 2}, "operator": "and"}) // nothing: one value per doc
func (idx *ScalarIndex[V]) Apply(query any) (*DocSet, error) {
	switch q := query.(type) {
	case ScalarQuery[V]:
		op, err := parseOperator(q.Operator, Or)
		if err != nil {
			return nil, err
		}
		return idx.search(q.Operands, op), nil
	case *ScalarQuery[V]:
		if q == nil {
			return nil, fmt.Errorf("%w: nil query", ErrUnsupportedQuery)
		}
		return idx.Apply(*q)
	case map[string]any:
		raw, ok := q["query"]
		if !ok {
			return nil, fmt.Errorf("%w: missing \"query\" key", ErrUnsupportedQuery)
		}
		op, err := parseOperator(q["operator"], Or)
		if err != nil {
			return nil, err
		}
		operands, err := queryOperands[V](raw)
		if err != nil {
			return nil, err
		}
		return idx.search(operands, op), nil
	}

	operands, err := queryOperands[V](query)
	if err != nil {
		return nil, err
	}
	return idx.search(operands, Or), nil
}

// queryOperands converts a query value into operands.
func queryOperands[V cmp.Ordered](raw any) ([]Operand[V], error) {
	switch q := raw.(type) {
	case Operand[V]:
		return []Operand[V]{q}, nil
	case []Operand[V]:
		return q, nil
	case []V:
		operands := make([]Operand[V], len(q))
		for i, v := range q {
			operands[i] = Eq(v)
		}
		return operands, nil
	case []any:
		operands := make([]Operand[V], 0, len(q))
		for _, item := range q {
			o, err := queryOperand[V](item)
			if err != nil {
				return nil, err
			}
			operands = append(operands, o)
		}
		return operands, nil
	}
	o, err := queryOperand[V](raw)
	if err != nil {
		return nil, err
	}
	return []Operand[V]{o}, nil
}

func queryOperand[V cmp.Ordered](item any) (Operand[V], error) {
	if o, ok := item.(Operand[V]); ok {
		return o, nil
	}
	v, err := toScalar[V](item)
	if err != nil {
		return Operand[V]{}, fmt.Errorf("%w: %w", ErrUnsupportedQuery, err)
	}
	return Eq(v), nil
}

// ApplyEq returns documents whose value equals v.
func (idx *ScalarIndex[V]) ApplyEq(v V) *DocSet {
	return idx.search([]Operand[V]{Eq(v)}, Or)
}

// ApplyNotEq returns every known document (including not-indexed ones) whose
// value is not v.
func (idx *ScalarIndex[V]) ApplyNotEq(v V) *DocSet {
	return Difference(idx.Docids(), idx.ApplyEq(v))
}

// ApplyIn returns documents whose value is one of values.
func (idx *ScalarIndex[V]) ApplyIn(values []V) *DocSet {
	operands := make([]Operand[V], len(values))
	for i, v := range values {
		operands[i] = Eq(v)
	}
	return idx.search(operands, Or)
}

// ApplyNotIn returns every known document whose value is none of values.
func (idx *ScalarIndex[V]) ApplyNotIn(values []V) *DocSet {
	return Difference(idx.Docids(), idx.ApplyIn(values))
}

// ApplyGt returns documents with value > v.
func (idx *ScalarIndex[V]) ApplyGt(v V) *DocSet {
	return idx.search([]Operand[V]{Gt(v)}, Or)
}

// ApplyGe returns documents with value >= v.
func (idx *ScalarIndex[V]) ApplyGe(v V) *DocSet {
	return idx.search([]Operand[V]{Ge(v)}, Or)
}

// ApplyLt returns documents with value < v.
func (idx *ScalarIndex[V]) ApplyLt(v V) *DocSet {
	return idx.search([]Operand[V]{Lt(v)}, Or)
}

// ApplyLe returns documents with value <= v.
func (idx *ScalarIndex[V]) ApplyLe(v V) *DocSet {
	return idx.search([]Operand[V]{Le(v)}, Or)
}

// ApplyInRange returns documents with min <= value <= max.
func (idx *ScalarIndex[V]) ApplyInRange(min, max V) *DocSet {
	return idx.search([]Operand[V]{Between(min, max)}, Or)
}

// ApplyNotInRange returns every known document whose value is outside [min, max].
func (idx *ScalarIndex[V]) ApplyNotInRange(min, max V) *DocSet {
	return Difference(idx.Docids(), idx.ApplyInRange(min, max))
}
