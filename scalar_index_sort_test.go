package catalog

import (
	"errors"
	"math/rand/v2"
	"slices"
	"testing"
)

var allStrategies = []SortStrategy{SortForwardScan, SortStable, SortTopK, SortAuto}

func runSort[V int | string](t *testing.T, s *ScalarSort[V]) []uint32 {
	t.Helper()
	seq, err := s.Execute()
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	out := []uint32{}
	for doc := range seq {
		out = append(out, doc)
	}
	return out
}

// TestScalarSort tests ordering, reversal and limits for every strategy
func TestScalarSort(t *testing.T) {
	idx := populateScalar(t)
	candidates := NewDocSet(1, 2, 3, 4, 5)

	tests := []struct {
		name    string
		reverse bool
		limit   int
		want    []uint32
	}{
		{"ascending", false, 0, []uint32{5, 2, 1, 3, 4}},
		{"descending", true, 0, []uint32{4, 3, 1, 2, 5}},
		{"ascending limit", false, 3, []uint32{5, 2, 1}},
		{"descending limit", true, 3, []uint32{4, 3, 1}},
		{"limit above size", false, 10, []uint32{5, 2, 1, 3, 4}},
	}

	for _, tt := range tests {
		for _, strategy := range allStrategies {
			t.Run(tt.name+"/"+strategy.String(), func(t *testing.T) {
				s := idx.NewSort(candidates).WithReverse(tt.reverse).WithStrategy(strategy)
				if tt.limit > 0 {
					s.WithLimit(tt.limit)
				}
				if got := runSort(t, s); !slices.Equal(got, tt.want) {
					t.Errorf("sort = %v, want %v", got, tt.want)
				}
			})
		}
	}
}

// TestScalarSortMissingDocuments tests that candidates without a value are skipped
func TestScalarSortMissingDocuments(t *testing.T) {
	idx := populateScalar(t)
	idx.Index(12, map[string]any{}) // not indexed

	for _, strategy := range allStrategies {
		t.Run(strategy.String(), func(t *testing.T) {
			got := runSort(t, idx.NewSort(NewDocSet(99, 12, 2, 5)).WithStrategy(strategy))
			if !slices.Equal(got, []uint32{5, 2}) {
				t.Errorf("sort = %v, want [5 2]", got)
			}

			got = runSort(t, idx.NewSort(NewDocSet(99, 98)).WithStrategy(strategy).WithLimit(1))
			if len(got) != 0 {
				t.Errorf("sort of unknown docs = %v, want []", got)
			}

			got = runSort(t, idx.NewSort(nil).WithStrategy(strategy))
			if len(got) != 0 {
				t.Errorf("sort of nil candidates = %v, want []", got)
			}
		})
	}
}

// TestScalarSortInvalidLimit tests rejection of non-positive limits
func TestScalarSortInvalidLimit(t *testing.T) {
	idx := populateScalar(t)

	for _, limit := range []int{0, -1} {
		for _, strategy := range allStrategies {
			_, err := idx.NewSort(NewDocSet(1, 2, 3)).WithLimit(limit).WithStrategy(strategy).Execute()
			if !errors.Is(err, ErrInvalidLimit) {
				t.Errorf("limit %d, %s: error = %v, want ErrInvalidLimit", limit, strategy, err)
			}
		}
	}

	if _, err := idx.NewSort(NewDocSet(1)).WithStrategy(SortStrategy(42)).Execute(); !errors.Is(err, ErrInvalidStrategy) {
		t.Errorf("unknown strategy error = %v, want ErrInvalidStrategy", err)
	}
}

// TestScalarSortTies tests that equal values come out in ascending document order
func TestScalarSortTies(t *testing.T) {
	idx := newTestScalarIndex(t)
	for doc, v := range map[uint32]int{30: 7, 10: 7, 20: 7, 5: 9, 40: 1} {
		idx.Index(doc, item{Value: v})
	}
	candidates := NewDocSet(5, 10, 20, 30, 40)

	for _, strategy := range allStrategies {
		t.Run(strategy.String(), func(t *testing.T) {
			got := runSort(t, idx.NewSort(candidates).WithStrategy(strategy))
			if !slices.Equal(got, []uint32{40, 10, 20, 30, 5}) {
				t.Errorf("ascending = %v, want [40 10 20 30 5]", got)
			}
			got = runSort(t, idx.NewSort(candidates).WithStrategy(strategy).WithReverse(true))
			if !slices.Equal(got, []uint32{5, 10, 20, 30, 40}) {
				t.Errorf("descending = %v, want [5 10 20 30 40]", got)
			}
			got = runSort(t, idx.NewSort(candidates).WithStrategy(strategy).WithLimit(2).WithReverse(true))
			if !slices.Equal(got, []uint32{5, 10}) {
				t.Errorf("descending limit 2 = %v, want [5 10]", got)
			}
		})
	}
}

// TestScalarSortPlan tests strategy selection
func TestScalarSortPlan(t *testing.T) {
	idx := populateScalar(t) // 11 indexed documents

	tests := []struct {
		name       string
		candidates *DocSet
		limit      int
		strategy   SortStrategy
		want       SortStrategy
	}{
		{"empty candidates", NewDocSet(), 0, SortAuto, SortStable},
		{"most documents", NewDocSet(1, 2, 3, 4, 5, 6), 0, SortAuto, SortForwardScan},
		{"most documents with limit", NewDocSet(1, 2, 3, 4, 5, 6), 1, SortAuto, SortForwardScan},
		{"small limit", NewDocSet(1, 2, 3, 4), 1, SortAuto, SortTopK},
		{"large limit", NewDocSet(1, 2, 3, 4), 2, SortAuto, SortStable},
		{"no limit", NewDocSet(1, 2, 3, 4), 0, SortAuto, SortStable},
		{"top-k without limit", NewDocSet(1), 0, SortTopK, SortStable},
		{"forced scan", NewDocSet(1), 0, SortForwardScan, SortForwardScan},
		{"forced top-k", NewDocSet(1), 5, SortTopK, SortTopK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := idx.NewSort(tt.candidates).WithStrategy(tt.strategy)
			if tt.limit > 0 {
				s.WithLimit(tt.limit)
			}
			got, err := s.Plan()
			if err != nil {
				t.Fatalf("Plan() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Plan() = %s, want %s", got, tt.want)
			}
		})
	}

	t.Run("empty index", func(t *testing.T) {
		empty := newTestScalarIndex(t)
		got, _ := empty.NewSort(NewDocSet(1, 2)).Plan()
		if got != SortStable {
			t.Errorf("Plan() = %s, want stable", got)
		}
	})
}

// TestScalarSortAbandon tests that a partially consumed sequence does not
// affect later runs
func TestScalarSortAbandon(t *testing.T) {
	idx := populateScalar(t)
	candidates := NewDocSet(1, 2, 3, 4, 5, 6, 7)

	for _, strategy := range allStrategies {
		t.Run(strategy.String(), func(t *testing.T) {
			full := runSort(t, idx.NewSort(candidates).WithStrategy(strategy))

			seq, err := idx.NewSort(candidates).WithStrategy(strategy).Execute()
			if err != nil {
				t.Fatal(err)
			}
			for range seq {
				break
			}
			var again []uint32
			for doc := range seq {
				again = append(again, doc)
			}
			if !slices.Equal(again, full) {
				t.Errorf("rerun after abandoning = %v, want %v", again, full)
			}
			if repeat := runSort(t, idx.NewSort(candidates).WithStrategy(strategy)); !slices.Equal(repeat, full) {
				t.Errorf("second Execute() = %v, want %v", repeat, full)
			}
		})
	}
}

// TestScalarSortEquivalence tests that all strategies agree on random inputs
func TestScalarSortEquivalence(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))

	cfg := quietConfig()
	cfg.TreeThreshold = 8
	idx, err := NewScalarIndex[int]("Value", cfg)
	if err != nil {
		t.Fatal(err)
	}
	for doc := uint32(0); doc < 300; doc++ {
		if rng.IntN(10) == 0 {
			continue
		}
		idx.Index(doc, item{Value: rng.IntN(40)})
	}

	for round := 0; round < 100; round++ {
		candidates := newDocSet(cfg.TreeThreshold)
		n := rng.IntN(320)
		for i := 0; i < n; i++ {
			candidates.Insert(uint32(rng.IntN(320)))
		}
		reverse := rng.IntN(2) == 0
		limit := rng.IntN(30)

		var want []uint32
		for i, strategy := range allStrategies {
			s := idx.NewSort(candidates).WithStrategy(strategy).WithReverse(reverse)
			if limit > 0 {
				s.WithLimit(limit)
			}
			got := runSort(t, s)
			if i == 0 {
				want = got
				continue
			}
			if !slices.Equal(got, want) {
				t.Fatalf("round %d (reverse=%v, limit=%d): %s = %v, %s = %v",
					round, reverse, limit, strategy, got, allStrategies[0], want)
			}
		}
	}
}

// TestScalarSortStrings tests sorting a string index
func TestScalarSortStrings(t *testing.T) {
	idx, err := NewScalarIndex[string]("Value", quietConfig())
	if err != nil {
		t.Fatal(err)
	}
	for doc, name := range map[uint32]string{1: "pear", 2: "apple", 3: "fig"} {
		idx.Index(doc, item{Value: name})
	}

	got := runSort(t, idx.NewSort(idx.Indexed()))
	if !slices.Equal(got, []uint32{2, 3, 1}) {
		t.Errorf("sort = %v, want [2 3 1]", got)
	}
}

// TestSortStrategyString tests strategy names
func TestSortStrategyString(t *testing.T) {
	for strategy, want := range map[SortStrategy]string{
		SortAuto:         "auto",
		SortForwardScan:  "forward_scan",
		SortStable:       "stable",
		SortTopK:         "top_k",
		SortStrategy(42): "SortStrategy(42)",
	} {
		if got := strategy.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}
