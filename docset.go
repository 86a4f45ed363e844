package catalog

import (
	"iter"
	"slices"

	"github.com/RoaringBitmap/roaring"
)

// DefaultTreeThreshold is the cardinality at which a DocSet switches from the
// compact sorted-slice representation to a roaring bitmap.
const DefaultTreeThreshold = 64

// DocSet is an ordered set of document IDs.
//
// Small sets are kept as a sorted slice; once a set reaches its threshold it is
// converted to a roaring bitmap. Both representations iterate in ascending
// order and are interchangeable for every operation, so callers never need to
// know which one is in use.
//
// A nil *DocSet behaves as an empty set for all read operations.
//
// Thread-safety: DocSet is not safe for concurrent mutation. Concurrent reads
// of a set nobody is mutating are fine.
type DocSet struct {
	// ids holds the compact representation (sorted, no duplicates)
	ids []uint32

	// bitmap holds the indexed representation; non-nil means ids is unused
	bitmap *roaring.Bitmap

	// threshold is the cardinality at which ids is converted to bitmap (0 = default)
	threshold int
}

// NewDocSet creates a set holding the given IDs, using the default threshold.
//
// Example:
//
//	s := NewDocSet(5, 1, 3)
//	s.ToArray() // [1 3 5]
func NewDocSet(ids ...uint32) *DocSet {
	return newDocSet(DefaultTreeThreshold, ids...)
}

func newDocSet(threshold int, ids ...uint32) *DocSet {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	return docSetFromSorted(threshold, slices.Compact(sorted))
}

// docSetFromSorted takes ownership of ids, which must be sorted and unique.
func docSetFromSorted(threshold int, ids []uint32) *DocSet {
	s := &DocSet{ids: ids, threshold: threshold}
	if len(ids) >= s.limit() {
		s.promote()
	}
	return s
}

// docSetFromBitmap takes ownership of bm.
func docSetFromBitmap(threshold int, bm *roaring.Bitmap) *DocSet {
	s := &DocSet{bitmap: bm, threshold: threshold}
	if s.Len() < s.limit() {
		s.demote()
	}
	return s
}

func (s *DocSet) limit() int {
	if s.threshold <= 0 {
		return DefaultTreeThreshold
	}
	return s.threshold
}

func (s *DocSet) promote() {
	s.bitmap = roaring.BitmapOf(s.ids...)
	s.ids = nil
}

func (s *DocSet) demote() {
	s.ids = s.bitmap.ToArray()
	s.bitmap = nil
}

// Insert adds id to the set. It returns false if id was already present.
func (s *DocSet) Insert(id uint32) bool {
	if s.bitmap != nil {
		return s.bitmap.CheckedAdd(id)
	}
	pos, found := slices.BinarySearch(s.ids, id)
	if found {
		return false
	}
	s.ids = slices.Insert(s.ids, pos, id)
	if len(s.ids) >= s.limit() {
		s.promote()
	}
	return true
}

// Remove deletes id from the set. It returns false if id was not present.
// Shrinking never changes the representation; use Optimize for that.
func (s *DocSet) Remove(id uint32) bool {
	if s == nil {
		return false
	}
	if s.bitmap != nil {
		return s.bitmap.CheckedRemove(id)
	}
	pos, found := slices.BinarySearch(s.ids, id)
	if !found {
		return false
	}
	s.ids = slices.Delete(s.ids, pos, pos+1)
	return true
}

// Contains reports whether id is in the set.
func (s *DocSet) Contains(id uint32) bool {
	if s == nil {
		return false
	}
	if s.bitmap != nil {
		return s.bitmap.Contains(id)
	}
	_, found := slices.BinarySearch(s.ids, id)
	return found
}

// Len returns the number of IDs in the set.
func (s *DocSet) Len() int {
	if s == nil {
		return 0
	}
	if s.bitmap != nil {
		return int(s.bitmap.GetCardinality())
	}
	return len(s.ids)
}

// IsEmpty reports whether the set has no IDs.
func (s *DocSet) IsEmpty() bool {
	return s.Len() == 0
}

// Indexed reports whether the set currently uses the bitmap representation.
func (s *DocSet) Indexed() bool {
	return s != nil && s.bitmap != nil
}

// All returns an iterator over the IDs in ascending order.
func (s *DocSet) All() iter.Seq[uint32] {
	return func(yield func(uint32) bool) {
		if s == nil {
			return
		}
		if s.bitmap != nil {
			it := s.bitmap.Iterator()
			for it.HasNext() {
				if !yield(it.Next()) {
					return
				}
			}
			return
		}
		for _, id := range s.ids {
			if !yield(id) {
				return
			}
		}
	}
}

// Backward returns an iterator over the IDs in descending order.
func (s *DocSet) Backward() iter.Seq[uint32] {
	return func(yield func(uint32) bool) {
		if s == nil {
			return
		}
		if s.bitmap != nil {
			it := s.bitmap.ReverseIterator()
			for it.HasNext() {
				if !yield(it.Next()) {
					return
				}
			}
			return
		}
		for i := len(s.ids) - 1; i >= 0; i-- {
			if !yield(s.ids[i]) {
				return
			}
		}
	}
}

// ToArray returns the IDs in ascending order as a new slice.
func (s *DocSet) ToArray() []uint32 {
	if s == nil {
		return []uint32{}
	}
	if s.bitmap != nil {
		return s.bitmap.ToArray()
	}
	return append([]uint32{}, s.ids...)
}

// Clone returns a deep copy of the set.
func (s *DocSet) Clone() *DocSet {
	if s == nil {
		return NewDocSet()
	}
	c := &DocSet{threshold: s.threshold}
	if s.bitmap != nil {
		c.bitmap = s.bitmap.Clone()
	} else {
		c.ids = slices.Clone(s.ids)
	}
	return c
}

// Equal reports whether both sets hold the same IDs, regardless of representation.
func (s *DocSet) Equal(other *DocSet) bool {
	if s.Len() != other.Len() {
		return false
	}
	next, stop := iter.Pull(other.All())
	defer stop()
	for id := range s.All() {
		v, ok := next()
		if !ok || v != id {
			return false
		}
	}
	return true
}

// Optimize sets the conversion threshold and converts the set to the
// representation that threshold calls for. Calling it twice with the same
// threshold is a no-op.
func (s *DocSet) Optimize(threshold int) {
	s.threshold = threshold
	n := s.Len()
	switch {
	case s.bitmap == nil && n >= s.limit():
		s.promote()
	case s.bitmap != nil && n < s.limit():
		s.demote()
	}
}

// asBitmap returns the set as a bitmap. Indexed sets return their own bitmap,
// which the caller must not modify.
func (s *DocSet) asBitmap() *roaring.Bitmap {
	if s == nil {
		return roaring.New()
	}
	if s.bitmap != nil {
		return s.bitmap
	}
	return roaring.BitmapOf(s.ids...)
}

// Union returns the sorted union of all sets.
//
// Compact inputs are merged pairwise, smallest first; as soon as an indexed
// input is involved or the running result grows past the threshold the
// remaining inputs are combined with roaring's FastOr.
func Union(sets ...*DocSet) *DocSet {
	threshold := thresholdOf(sets)
	operands := make([]*DocSet, 0, len(sets))
	for _, s := range sets {
		if !s.IsEmpty() {
			operands = append(operands, s)
		}
	}
	switch len(operands) {
	case 0:
		return newDocSet(threshold)
	case 1:
		return operands[0].Clone()
	}
	slices.SortFunc(operands, func(a, b *DocSet) int { return a.Len() - b.Len() })

	merged := []uint32{}
	for i, s := range operands {
		if s.bitmap != nil || len(merged)+s.Len() >= threshold {
			bitmaps := make([]*roaring.Bitmap, 0, len(operands)-i+1)
			bitmaps = append(bitmaps, roaring.BitmapOf(merged...))
			for _, rest := range operands[i:] {
				bitmaps = append(bitmaps, rest.asBitmap())
			}
			return docSetFromBitmap(threshold, roaring.FastOr(bitmaps...))
		}
		merged = mergeSorted(merged, s.ids)
	}
	return docSetFromSorted(threshold, merged)
}

// Intersect returns the sorted intersection of a and b.
func Intersect(a, b *DocSet) *DocSet {
	threshold := thresholdOf([]*DocSet{a, b})
	if a.IsEmpty() || b.IsEmpty() {
		return newDocSet(threshold)
	}
	if a.Indexed() && b.Indexed() {
		return docSetFromBitmap(threshold, roaring.And(a.bitmap, b.bitmap))
	}
	small, large := a, b
	if small.Len() > large.Len() {
		small, large = large, small
	}
	var ids []uint32
	for id := range small.All() {
		if large.Contains(id) {
			ids = append(ids, id)
		}
	}
	return docSetFromSorted(threshold, ids)
}

// Difference returns the IDs of a that are not in b.
func Difference(a, b *DocSet) *DocSet {
	threshold := thresholdOf([]*DocSet{a, b})
	if a.IsEmpty() {
		return newDocSet(threshold)
	}
	if b.IsEmpty() {
		return a.Clone()
	}
	if a.Indexed() {
		return docSetFromBitmap(threshold, roaring.AndNot(a.bitmap, b.asBitmap()))
	}
	var ids []uint32
	for _, id := range a.ids {
		if !b.Contains(id) {
			ids = append(ids, id)
		}
	}
	return docSetFromSorted(threshold, ids)
}

// mergeSorted merges two sorted, duplicate-free slices into a new one.
func mergeSorted(a, b []uint32) []uint32 {
	out := make([]uint32, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			out = append(out, a[i])
			i++
		case a[i] > b[j]:
			out = append(out, b[j])
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	return append(out, b[j:]...)
}

func thresholdOf(sets []*DocSet) int {
	for _, s := range sets {
		if s != nil && s.threshold > 0 {
			return s.threshold
		}
	}
	return DefaultTreeThreshold
}
