package catalog

import (
	"errors"
	"slices"
	"testing"
)

// TestScalarIndexSearchOperands tests exact and range operands
func TestScalarIndexSearchOperands(t *testing.T) {
	idx := populateScalar(t)

	tests := []struct {
		name    string
		operand Operand[int]
		want    []uint32
	}{
		{"Eq", Eq(1), []uint32{5}},
		{"Eq missing", Eq(100), []uint32{}},
		{"Gt", Gt(9), []uint32{10, 11}},
		{"Ge", Ge(9), []uint32{6, 10, 11}},
		{"Lt", Lt(3), []uint32{2, 5}},
		{"Le", Le(3), []uint32{1, 2, 5}},
		{"Between", Between(4, 6), []uint32{3, 4, 8}},
		{"Range exclusive", Range(4, 6, true, true), []uint32{4}},
		{"Range exclude min", Range(4, 6, true, false), []uint32{4, 8}},
		{"Range exclude max", Range(4, 6, false, true), []uint32{3, 4}},
		{"Range between missing bounds", Between(0, 2), []uint32{2, 5}},
		{"Range outside", Between(100, 200), []uint32{}},
		{"Range inverted", Between(6, 4), []uint32{}},
		{"Unbounded", Operand[int]{}, []uint32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := idx.Search([]Operand[int]{tt.operand}, Or)
			if err != nil {
				t.Fatalf("Search() error = %v", err)
			}
			if arr := got.ToArray(); !slices.Equal(arr, tt.want) {
				t.Errorf("Search(%+v) = %v, want %v", tt.operand, arr, tt.want)
			}
		})
	}
}

// TestScalarIndexSearchOperator tests combining operands
func TestScalarIndexSearchOperator(t *testing.T) {
	idx := populateScalar(t)
	idx.Index(50, item{Value: 1})

	tests := []struct {
		name     string
		operands []Operand[int]
		op       Operator
		want     []uint32
	}{
		{"and ranges", []Operand[int]{Between(1, 1), Between(1, 2)}, And, []uint32{5, 50}},
		{"and exact values", []Operand[int]{Eq(1), Eq(2)}, And, []uint32{}},
		{"or exact values", []Operand[int]{Eq(1), Eq(2)}, Or, []uint32{2, 5, 50}},
		{"or overlapping ranges", []Operand[int]{Le(2), Between(2, 3)}, Or, []uint32{1, 2, 5, 50}},
		{"no operands", nil, Or, []uint32{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := idx.Search(tt.operands, tt.op)
			if err != nil {
				t.Fatalf("Search() error = %v", err)
			}
			if arr := got.ToArray(); !slices.Equal(arr, tt.want) {
				t.Errorf("Search() = %v, want %v", arr, tt.want)
			}
		})
	}

	if _, err := idx.Search([]Operand[int]{Eq(1)}, "xor"); !errors.Is(err, ErrUnsupportedOperator) {
		t.Errorf("Search(xor) error = %v, want ErrUnsupportedOperator", err)
	}
}

// TestScalarIndexSearchDoesNotAlias tests that exact results are copies
func TestScalarIndexSearchDoesNotAlias(t *testing.T) {
	idx := populateScalar(t)

	for _, op := range []Operator{And, Or} {
		got, _ := idx.Search([]Operand[int]{Eq(1)}, op)
		got.Insert(99)
		if idx.fwd[1].Contains(99) {
			t.Errorf("mutating a %s result changed the forward index", op)
		}
	}
}

// TestScalarIndexApply tests every accepted query form
func TestScalarIndexApply(t *testing.T) {
	idx := populateScalar(t)
	idx.Index(50, item{Value: 1})

	tests := []struct {
		name  string
		query any
		want  []uint32
	}{
		{"value", 1, []uint32{5, 50}},
		{"converted value", int64(2), []uint32{2}},
		{"values", []int{1, 2}, []uint32{2, 5, 50}},
		{"operand", Between(1, 2), []uint32{2, 5, 50}},
		{"operands", []Operand[int]{Eq(3), Eq(4)}, []uint32{1, 3}},
		{"mixed", []any{1, Between(3, 4)}, []uint32{1, 3, 5, 50}},
		{"struct default or", ScalarQuery[int]{Operands: []Operand[int]{Eq(1), Eq(2)}}, []uint32{2, 5, 50}},
		{"pointer and", &ScalarQuery[int]{Operands: []Operand[int]{Ge(1), Le(1)}, Operator: And}, []uint32{5, 50}},
		{"config and ranges", map[string]any{
			"query":    []Operand[int]{Between(1, 1), Between(1, 2)},
			"operator": "and",
		}, []uint32{5, 50}},
		{"config and values", map[string]any{"query": []int{1, 2}, "operator": "and"}, []uint32{}},
		{"config default or", map[string]any{"query": []int{1, 2}}, []uint32{2, 5, 50}},
		{"config single value", map[string]any{"query": 3}, []uint32{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := idx.Apply(tt.query)
			if err != nil {
				t.Fatalf("Apply() error = %v", err)
			}
			if arr := got.ToArray(); !slices.Equal(arr, tt.want) {
				t.Errorf("Apply(%v) = %v, want %v", tt.query, arr, tt.want)
			}
		})
	}
}

// TestScalarIndexApplyInvalid tests rejected query forms
func TestScalarIndexApplyInvalid(t *testing.T) {
	idx := populateScalar(t)

	tests := []struct {
		name  string
		query any
		err   error
	}{
		{"wrong value type", "1", ErrUnsupportedQuery},
		{"wrong element type", []any{1, "2"}, ErrUnsupportedQuery},
		{"missing query key", map[string]any{"operator": "or"}, ErrUnsupportedQuery},
		{"nil pointer", (*ScalarQuery[int])(nil), ErrUnsupportedQuery},
		{"bad operator", map[string]any{"query": 1, "operator": "xor"}, ErrUnsupportedOperator},
		{"bad struct operator", ScalarQuery[int]{Operator: "nor"}, ErrUnsupportedOperator},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := idx.Apply(tt.query); !errors.Is(err, tt.err) {
				t.Errorf("Apply() error = %v, want %v", err, tt.err)
			}
		})
	}
}

// TestScalarIndexConvenience tests the positive and negated helpers
func TestScalarIndexConvenience(t *testing.T) {
	idx := populateScalar(t)
	idx.Index(20, map[string]any{}) // not indexed

	tests := []struct {
		name string
		got  *DocSet
		want []uint32
	}{
		{"ApplyEq", idx.ApplyEq(4), []uint32{3}},
		{"ApplyIn", idx.ApplyIn([]int{4, 5, 99}), []uint32{3, 4}},
		{"ApplyGt", idx.ApplyGt(10), []uint32{10}},
		{"ApplyGe", idx.ApplyGe(10), []uint32{10, 11}},
		{"ApplyLt", idx.ApplyLt(2), []uint32{5}},
		{"ApplyLe", idx.ApplyLe(2), []uint32{2, 5}},
		{"ApplyInRange", idx.ApplyInRange(2, 4), []uint32{1, 2, 3}},
		// negations include the not-indexed document 20
		{"ApplyNotEq", idx.ApplyNotEq(1), []uint32{1, 2, 3, 4, 6, 7, 8, 9, 10, 11, 20}},
		{"ApplyNotIn", idx.ApplyNotIn([]int{1, 2, 3, 4, 5, 6, 7, 8}), []uint32{6, 10, 11, 20}},
		{"ApplyNotInRange", idx.ApplyNotInRange(2, 10), []uint32{5, 10, 20}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.got.ToArray(); !slices.Equal(got, tt.want) {
				t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

// TestScalarIndexStringRanges tests ranges over string values
func TestScalarIndexStringRanges(t *testing.T) {
	idx, err := NewScalarIndex[string]("Value", quietConfig())
	if err != nil {
		t.Fatal(err)
	}
	for doc, name := range map[uint32]string{1: "apple", 2: "banana", 3: "cherry", 4: "date"} {
		idx.Index(doc, item{Value: name})
	}

	got := idx.ApplyInRange("b", "c").ToArray()
	if !slices.Equal(got, []uint32{2}) {
		t.Errorf("ApplyInRange(b, c) = %v, want [2]", got)
	}
	got = idx.ApplyGe("cherry").ToArray()
	if !slices.Equal(got, []uint32{3, 4}) {
		t.Errorf("ApplyGe(cherry) = %v, want [3 4]", got)
	}
}
