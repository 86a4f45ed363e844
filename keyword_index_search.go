package catalog

import (
	"fmt"
	"slices"
)

// Operator combines the result sets of several query operands.
type Operator string

const (
	// And keeps documents matching every operand.
	And Operator = "and"
	// Or keeps documents matching at least one operand.
	Or Operator = "or"
)

// parseOperator accepts an Operator or its string form. Empty means def.
func parseOperator(op any, def Operator) (Operator, error) {
	var o Operator
	switch v := op.(type) {
	case nil:
		return def, nil
	case Operator:
		o = v
	case string:
		o = Operator(v)
	default:
		return "", fmt.Errorf("%w: %v", ErrUnsupportedOperator, op)
	}
	switch o {
	case "":
		return def, nil
	case And, Or:
		return o, nil
	}
	return "", fmt.Errorf("%w: only %q and %q are supported, not %q", ErrUnsupportedOperator, And, Or, o)
}

// KeywordQuery is the structured query form accepted by KeywordIndex.Apply.
type KeywordQuery struct {
	Terms    []string
	Operator Operator // defaults to And
}

// Search returns the documents matching terms combined with op.
//
// For Or the forward sets of all terms are merged. For And the sets are
// intersected smallest first, stopping as soon as the running result is empty.
// Terms are normalized the same way stored terms are.
//
// Returns:
//   - *DocSet: matching documents (empty, never nil, when nothing matches)
//   - error: ErrUnsupportedOperator for operators other than And and Or
func (idx *KeywordIndex) Search(terms []string, op Operator) (*DocSet, error) {
	if op != And && op != Or {
		return nil, fmt.Errorf("%w: only %q and %q are supported, not %q", ErrUnsupportedOperator, And, Or, op)
	}
	return idx.search(terms, op), nil
}

// search assumes op has been validated.
func (idx *KeywordIndex) search(terms []string, op Operator) *DocSet {
	terms = idx.normalize(slices.Clone(terms))

	sets := make([]*DocSet, len(terms))
	for i, t := range terms {
		sets[i] = idx.fwd[t]
	}

	if op == Or {
		return Union(sets...)
	}
	return intersectAll(idx.config.TreeThreshold, sets)
}

// intersectAll folds Intersect over sets ordered by ascending cardinality.
// A missing (nil) operand empties the result.
func intersectAll(threshold int, sets []*DocSet) *DocSet {
	if len(sets) == 0 {
		return newDocSet(threshold)
	}
	slices.SortStableFunc(sets, func(a, b *DocSet) int { return a.Len() - b.Len() })

	result := sets[0].Clone()
	for _, s := range sets[1:] {
		if result.IsEmpty() {
			break
		}
		result = Intersect(result, s)
	}
	if result.IsEmpty() {
		return newDocSet(threshold)
	}
	return result
}

// Apply runs a query given in any of the accepted forms:
//   - KeywordQuery or *KeywordQuery
//   - map[string]any with a "query" key and an optional "operator" key
//   - a bare term sequence ([]string, []any) or a single string, searched with And
//
// Example:
//
//	idx.Apply(map[string]any{"query": []string{"a", "b"}, "operator": "or"})
//	idx.Apply([]string{"a", "b"}) // documents holding both terms
func (idx *KeywordIndex) Apply(query any) (*DocSet, error) {
	switch q := query.(type) {
	case KeywordQuery:
		op, err := parseOperator(q.Operator, And)
		if err != nil {
			return nil, err
		}
		return idx.search(q.Terms, op), nil
	case *KeywordQuery:
		if q == nil {
			return nil, fmt.Errorf("%w: nil query", ErrUnsupportedQuery)
		}
		return idx.Apply(*q)
	case map[string]any:
		raw, ok := q["query"]
		if !ok {
			return nil, fmt.Errorf("%w: missing \"query\" key", ErrUnsupportedQuery)
		}
		op, err := parseOperator(q["operator"], And)
		if err != nil {
			return nil, err
		}
		terms, err := queryTerms(raw)
		if err != nil {
			return nil, err
		}
		return idx.search(terms, op), nil
	}

	terms, err := queryTerms(query)
	if err != nil {
		return nil, err
	}
	return idx.search(terms, And), nil
}

// queryTerms converts a query value into terms. Unlike indexed values, a
// single string is accepted and treated as one term.
func queryTerms(raw any) ([]string, error) {
	if s, ok := raw.(string); ok {
		return []string{s}, nil
	}
	terms, err := toTerms(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedQuery, err)
	}
	return terms, nil
}

// ApplyAny returns documents holding at least one of terms.
func (idx *KeywordIndex) ApplyAny(terms []string) *DocSet {
	return idx.search(terms, Or)
}

// ApplyIn is an alias of ApplyAny.
func (idx *KeywordIndex) ApplyIn(terms []string) *DocSet {
	return idx.ApplyAny(terms)
}

// ApplyAll returns documents holding every one of terms.
func (idx *KeywordIndex) ApplyAll(terms []string) *DocSet {
	return idx.search(terms, And)
}

// ApplyEq returns documents holding term.
func (idx *KeywordIndex) ApplyEq(term string) *DocSet {
	return idx.search([]string{term}, And)
}

// ApplyNotEq returns every known document (including not-indexed ones) that
// does not hold term.
func (idx *KeywordIndex) ApplyNotEq(term string) *DocSet {
	return Difference(idx.Docids(), idx.ApplyEq(term))
}

// ApplyNotAny returns every known document holding none of terms.
func (idx *KeywordIndex) ApplyNotAny(terms []string) *DocSet {
	return Difference(idx.Docids(), idx.ApplyAny(terms))
}

// ApplyNotIn is an alias of ApplyNotAny.
func (idx *KeywordIndex) ApplyNotIn(terms []string) *DocSet {
	return idx.ApplyNotAny(terms)
}

// ApplyNotAll returns every known document missing at least one of terms.
func (idx *KeywordIndex) ApplyNotAll(terms []string) *DocSet {
	return Difference(idx.Docids(), idx.ApplyAll(terms))
}
