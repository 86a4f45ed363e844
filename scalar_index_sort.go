package catalog

import (
	"cmp"
	"container/heap"
	"fmt"
	"iter"
	"slices"
)

// SortStrategy selects the algorithm ScalarSort uses. All strategies produce
// the same sequence for the same input; they differ only in cost.
type SortStrategy int

const (
	// SortAuto picks a strategy from the candidate, index and limit sizes.
	SortAuto SortStrategy = iota

	// SortForwardScan walks the sorted values and keeps candidates.
	// Cost grows with the part of the index scanned before the limit is hit.
	SortForwardScan

	// SortStable collects (value, doc) pairs of the candidates and stable-sorts them.
	// Cost is O(c log c) for c candidates.
	SortStable

	// SortTopK keeps the best `limit` pairs in a bounded heap.
	// Cost is O(c log k). Without a limit it behaves as SortStable.
	SortTopK
)

// String returns the strategy name used in logs and metrics.
func (s SortStrategy) String() string {
	switch s {
	case SortAuto:
		return "auto"
	case SortForwardScan:
		return "forward_scan"
	case SortStable:
		return "stable"
	case SortTopK:
		return "top_k"
	}
	return fmt.Sprintf("SortStrategy(%d)", int(s))
}

// ScalarSort orders a candidate set by the values of a ScalarIndex.
//
// Candidates without a value in the index are dropped silently. Documents with
// equal values come out in ascending document order, both for ascending and
// reverse sorts.
type ScalarSort[V cmp.Ordered] struct {
	index      *ScalarIndex[V]
	candidates *DocSet
	reverse    bool
	limit      int
	hasLimit   bool
	strategy   SortStrategy
}

// NewSort creates a sort builder over candidates.
//
// Example:
//
//	seq, err := idx.NewSort(candidates).
//		WithReverse(true).
//		WithLimit(10).
//		Execute()
//	for doc := range seq {
//		fmt.Println(doc)
//	}
func (idx *ScalarIndex[V]) NewSort(candidates *DocSet) *ScalarSort[V] {
	return &ScalarSort[V]{
		index:      idx,
		candidates: candidates,
		strategy:   SortAuto,
	}
}

// WithReverse sorts in descending value order when reverse is true.
func (s *ScalarSort[V]) WithReverse(reverse bool) *ScalarSort[V] {
	s.reverse = reverse
	return s
}

// WithLimit caps the number of documents produced. Execute rejects limits
// below 1 with ErrInvalidLimit.
func (s *ScalarSort[V]) WithLimit(limit int) *ScalarSort[V] {
	s.limit = limit
	s.hasLimit = true
	return s
}

// WithStrategy forces a sort strategy instead of SortAuto.
func (s *ScalarSort[V]) WithStrategy(strategy SortStrategy) *ScalarSort[V] {
	s.strategy = strategy
	return s
}

// Plan validates the sort and returns the strategy Execute will use.
func (s *ScalarSort[V]) Plan() (SortStrategy, error) {
	if s.hasLimit && s.limit <= 0 {
		return SortAuto, fmt.Errorf("%w: got %d", ErrInvalidLimit, s.limit)
	}

	switch s.strategy {
	case SortForwardScan, SortStable:
		return s.strategy, nil
	case SortTopK:
		if !s.hasLimit {
			return SortStable, nil
		}
		return SortTopK, nil
	case SortAuto:
		return s.choose(), nil
	}
	return SortAuto, fmt.Errorf("%w: %v", ErrInvalidStrategy, s.strategy)
}

// choose picks a strategy: forward scan when the candidates cover a large
// share of the indexed documents, top-K when the limit is small compared to
// the candidates, a stable sort otherwise.
func (s *ScalarSort[V]) choose() SortStrategy {
	numCandidates := s.candidates.Len()
	numIndexed := len(s.index.rev)
	if numCandidates == 0 || numIndexed == 0 {
		return SortStable
	}

	cfg := s.index.config
	if float64(numCandidates)/float64(numIndexed) >= cfg.ScanRatio {
		return SortForwardScan
	}
	if s.hasLimit && float64(s.limit) <= float64(numCandidates)*cfg.TopKRatio {
		return SortTopK
	}
	return SortStable
}

// Execute returns the sorted documents as a lazy sequence. Stopping the
// iteration early is always safe. The sequence reads the index as it is when
// iterated, so the index must not be modified while it is being consumed.
//
// Returns:
//   - iter.Seq[uint32]: candidate documents ordered by value
//   - error: ErrInvalidLimit or ErrInvalidStrategy
func (s *ScalarSort[V]) Execute() (iter.Seq[uint32], error) {
	strategy, err := s.Plan()
	if err != nil {
		return nil, err
	}

	s.index.config.Metrics.observeSort(strategy)
	s.index.logger.Debug("sorting candidates",
		"strategy", strategy,
		"candidates", s.candidates.Len(),
		"limit", s.limit,
		"reverse", s.reverse,
	)

	limit := -1
	if s.hasLimit {
		limit = s.limit
	}

	switch strategy {
	case SortForwardScan:
		return s.forwardScan(limit), nil
	case SortTopK:
		return s.topK(limit), nil
	default:
		return s.stableSort(limit), nil
	}
}

// forwardScan walks the distinct values in (reverse) order and yields the
// candidates listed under each one.
func (s *ScalarSort[V]) forwardScan(limit int) iter.Seq[uint32] {
	idx, candidates, reverse := s.index, s.candidates, s.reverse
	return func(yield func(uint32) bool) {
		remaining := candidates.Len()
		if limit > 0 && limit < remaining {
			remaining = limit
		}
		if remaining == 0 {
			return
		}

		values := idx.values
		for i := range values {
			v := values[i]
			if reverse {
				v = values[len(values)-1-i]
			}
			for doc := range idx.fwd[v].All() {
				if !candidates.Contains(doc) {
					continue
				}
				if !yield(doc) {
					return
				}
				remaining--
				if remaining == 0 {
					return
				}
			}
		}
	}
}

// sortEntry pairs a candidate with its value.
type sortEntry[V cmp.Ordered] struct {
	value V
	doc   uint32
}

// collect returns the (value, doc) pairs of all candidates that hold a value,
// in ascending document order.
func collect[V cmp.Ordered](idx *ScalarIndex[V], candidates *DocSet) []sortEntry[V] {
	entries := make([]sortEntry[V], 0, min(candidates.Len(), len(idx.rev)))
	for doc := range candidates.All() {
		if v, ok := idx.rev[doc]; ok {
			entries = append(entries, sortEntry[V]{value: v, doc: doc})
		}
	}
	return entries
}

// stableSort sorts all candidate pairs by value, keeping document order among
// equal values, and yields up to limit of them.
func (s *ScalarSort[V]) stableSort(limit int) iter.Seq[uint32] {
	idx, candidates, reverse := s.index, s.candidates, s.reverse
	return func(yield func(uint32) bool) {
		entries := collect(idx, candidates)
		slices.SortStableFunc(entries, func(a, b sortEntry[V]) int {
			if reverse {
				return cmp.Compare(b.value, a.value)
			}
			return cmp.Compare(a.value, b.value)
		})
		if limit > 0 && limit < len(entries) {
			entries = entries[:limit]
		}
		for _, e := range entries {
			if !yield(e.doc) {
				return
			}
		}
	}
}

// topK keeps the best limit pairs in a heap whose root is the worst one kept.
func (s *ScalarSort[V]) topK(limit int) iter.Seq[uint32] {
	idx, candidates, reverse := s.index, s.candidates, s.reverse
	return func(yield func(uint32) bool) {
		h := &entryHeap[V]{reverse: reverse}
		for doc := range candidates.All() {
			v, ok := idx.rev[doc]
			if !ok {
				continue
			}
			e := sortEntry[V]{value: v, doc: doc}
			if h.Len() < limit {
				heap.Push(h, e)
				continue
			}
			if h.better(e, h.entries[0]) {
				h.entries[0] = e
				heap.Fix(h, 0)
			}
		}

		best := make([]sortEntry[V], h.Len())
		for i := len(best) - 1; i >= 0; i-- {
			best[i] = heap.Pop(h).(sortEntry[V])
		}
		for _, e := range best {
			if !yield(e.doc) {
				return
			}
		}
	}
}

// entryHeap is a heap of sort entries ordered worst first.
type entryHeap[V cmp.Ordered] struct {
	entries []sortEntry[V]
	reverse bool
}

// better reports whether a sorts before b: by value (descending when
// reverse), then by ascending document.
func (h *entryHeap[V]) better(a, b sortEntry[V]) bool {
	if c := cmp.Compare(a.value, b.value); c != 0 {
		if h.reverse {
			return c > 0
		}
		return c < 0
	}
	return a.doc < b.doc
}

func (h *entryHeap[V]) Len() int           { return len(h.entries) }
func (h *entryHeap[V]) Less(i, j int) bool { return h.better(h.entries[j], h.entries[i]) }
func (h *entryHeap[V]) Swap(i, j int)      { h.entries[i], h.entries[j] = h.entries[j], h.entries[i] }

func (h *entryHeap[V]) Push(x any) {
	h.entries = append(h.entries, x.(sortEntry[V]))
}

func (h *entryHeap[V]) Pop() any {
	old := h.entries
	n := len(old)
	x := old[n-1]
	h.entries = old[:n-1]
	return x
}
