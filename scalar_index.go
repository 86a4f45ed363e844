// Package catalog implements the scalar (field) index of a document catalog.
//
// WHAT IS A SCALAR INDEX?
// A scalar index stores exactly one orderable value per document (a price, a
// date, a title) and answers equality, range and sort queries over it.
//
// HOW IT WORKS:
//  1. Forward index: value -> DocSet, plus a sorted slice of the distinct
//     values so ranges can be located with binary search
//  2. Reverse index: document -> value
//
// SORTING:
// Given a candidate DocSet, the index orders candidates by their value using
// one of three strategies with identical output (see ScalarSort):
//   - Forward scan: walk the sorted values, keep candidates (best when most
//     indexed documents are candidates)
//   - Stable sort: collect (value, doc) pairs and sort them (best for few candidates)
//   - Top-K: keep only the best `limit` pairs in a bounded heap (best for small limits)
//
// TIME COMPLEXITY:
//   - Index / Unindex: O(log v + log n) plus O(v) when a distinct value appears
//     or disappears, where v is the number of distinct values
//   - Exact search: O(1) map lookup
//   - Range search: O(log v + matches)
package catalog

import (
	"cmp"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"maps"
	"math"
	"reflect"
	"slices"

	"github.com/RoaringBitmap/roaring"
)

var scalarMagic = [4]byte{'S', 'C', 'I', 'X'}

// ScalarIndex maps each document to a single orderable value.
type ScalarIndex[V cmp.Ordered] struct {
	discriminator Discriminator
	config        IndexConfig
	logger        *slog.Logger

	// fwd maps a value to the documents holding it; entries are never empty
	fwd map[V]*DocSet

	// values holds the keys of fwd in ascending order
	values []V

	// rev maps a document to its value
	rev map[uint32]V

	// notIndexed holds documents whose last discriminated value was absent
	notIndexed *roaring.Bitmap

	// numDocs always equals len(rev)
	numDocs int
}

// NewScalarIndex creates an empty scalar index for values of type V.
//
// Parameters:
//   - discriminator: a Discriminator, func(any) (any, bool), func(obj, def any) any,
//     or the name of the field holding the value
//   - config: index configuration; nil uses DefaultIndexConfig()
//
// Example:
//
//	idx, err := NewScalarIndex[int]("Price", nil)
//	idx.Index(1, Product{Price: 999})
//	cheap := idx.ApplyLe(1000)
func NewScalarIndex[V cmp.Ordered](discriminator any, config *IndexConfig) (*ScalarIndex[V], error) {
	d, err := resolveDiscriminator(discriminator)
	if err != nil {
		return nil, err
	}
	cfg, err := resolveConfig(config)
	if err != nil {
		return nil, err
	}

	idx := &ScalarIndex[V]{
		discriminator: d,
		config:        cfg,
		logger:        cfg.Logger.With("component", "scalar_index"),
	}
	idx.Clear()
	return idx, nil
}

// Clear drops every document.
func (idx *ScalarIndex[V]) Clear() {
	idx.fwd = make(map[V]*DocSet)
	idx.values = nil
	idx.rev = make(map[uint32]V)
	idx.notIndexed = roaring.New()
	idx.numDocs = 0
	idx.config.Metrics.setDocuments(ScalarIndexKind, 0)
}

// DocumentCount returns the number of documents holding a value.
func (idx *ScalarIndex[V]) DocumentCount() int {
	return idx.numDocs
}

// ValueCount returns the number of distinct indexed values.
func (idx *ScalarIndex[V]) ValueCount() int {
	return len(idx.values)
}

// HasDoc reports whether doc holds a value.
func (idx *ScalarIndex[V]) HasDoc(doc uint32) bool {
	_, ok := idx.rev[doc]
	return ok
}

// ValueOf returns the value doc is indexed with.
func (idx *ScalarIndex[V]) ValueOf(doc uint32) (V, bool) {
	v, ok := idx.rev[doc]
	return v, ok
}

// Values returns an iterator over the distinct indexed values in ascending order.
func (idx *ScalarIndex[V]) Values() iter.Seq[V] {
	return slices.Values(slices.Clone(idx.values))
}

// Index extracts a value from obj and stores it for doc, replacing whatever
// doc was indexed with before.
//
// Returns:
//   - error: ErrValueShape if the value is not a V (or is NaN)
func (idx *ScalarIndex[V]) Index(doc uint32, obj any) error {
	raw, ok := idx.discriminator(obj)
	if !ok {
		if err := idx.Unindex(doc); err != nil {
			return err
		}
		idx.notIndexed.Add(doc)
		return nil
	}

	value, err := toScalar[V](raw)
	if err != nil {
		return err
	}
	idx.notIndexed.Remove(doc)

	old, had := idx.rev[doc]
	if had && old == value {
		return nil
	}

	idx.config.Metrics.observeOp(ScalarIndexKind, "index")

	if had && !idx.removeForward(doc, old) {
		idx.reportInconsistency(doc, old)
	}
	idx.insertForward(doc, value)
	idx.rev[doc] = value
	if !had {
		idx.numDocs++
		idx.config.Metrics.setDocuments(ScalarIndexKind, idx.numDocs)
	}
	return nil
}

// Reindex is an alias of Index.
func (idx *ScalarIndex[V]) Reindex(doc uint32, obj any) error {
	return idx.Index(doc, obj)
}

// Unindex removes doc from the index. Unknown documents are ignored.
//
// A reverse entry whose value does not list doc in the forward index is
// logged and the reverse entry is still dropped. With StrictConsistency
// ErrInconsistentIndex is returned after the same cleanup.
func (idx *ScalarIndex[V]) Unindex(doc uint32) error {
	idx.notIndexed.Remove(doc)

	value, ok := idx.rev[doc]
	if !ok {
		return nil
	}

	idx.config.Metrics.observeOp(ScalarIndexKind, "unindex")

	consistent := idx.removeForward(doc, value)
	if !consistent {
		idx.reportInconsistency(doc, value)
	}

	delete(idx.rev, doc)
	idx.numDocs--
	idx.config.Metrics.setDocuments(ScalarIndexKind, idx.numDocs)

	if !consistent && idx.config.StrictConsistency {
		return fmt.Errorf("%w: document %d missing from forward entry %v", ErrInconsistentIndex, doc, value)
	}
	return nil
}

func (idx *ScalarIndex[V]) reportInconsistency(doc uint32, value V) {
	idx.config.Metrics.observeInconsistency(ScalarIndexKind)
	idx.logger.Warn("forward index disagrees with reverse index",
		"doc", doc,
		"value", value,
		"error", ErrInconsistentIndex,
	)
}

func (idx *ScalarIndex[V]) insertForward(doc uint32, value V) {
	set, ok := idx.fwd[value]
	if !ok {
		set = newDocSet(idx.config.TreeThreshold)
		idx.fwd[value] = set
		pos, _ := slices.BinarySearch(idx.values, value)
		idx.values = slices.Insert(idx.values, pos, value)
	}
	set.Insert(doc)
}

// removeForward reports false if doc was not listed under value.
func (idx *ScalarIndex[V]) removeForward(doc uint32, value V) bool {
	set, ok := idx.fwd[value]
	if !ok || !set.Remove(doc) {
		return false
	}
	if set.IsEmpty() {
		delete(idx.fwd, value)
		if pos, found := slices.BinarySearch(idx.values, value); found {
			idx.values = slices.Delete(idx.values, pos, pos+1)
		}
	}
	return true
}

// TreeThreshold returns the current set conversion threshold.
func (idx *ScalarIndex[V]) TreeThreshold() int {
	return idx.config.TreeThreshold
}

// SetTreeThreshold changes the set conversion threshold and re-applies it.
func (idx *ScalarIndex[V]) SetTreeThreshold(threshold int) error {
	if threshold < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidThreshold, threshold)
	}
	idx.config.TreeThreshold = threshold
	idx.Optimize()
	return nil
}

// Optimize converts every forward entry to the representation the current
// tree threshold calls for.
func (idx *ScalarIndex[V]) Optimize() {
	for _, set := range idx.fwd {
		set.Optimize(idx.config.TreeThreshold)
	}
	idx.logger.Debug("optimized forward index",
		"threshold", idx.config.TreeThreshold,
		"values", len(idx.values),
	)
}

// Indexed returns the documents holding a value.
func (idx *ScalarIndex[V]) Indexed() *DocSet {
	return docSetFromKeys(idx.config.TreeThreshold, idx.rev)
}

// NotIndexed returns the documents whose last value was absent.
func (idx *ScalarIndex[V]) NotIndexed() *DocSet {
	return docSetFromBitmap(idx.config.TreeThreshold, idx.notIndexed.Clone())
}

// IndexedCount returns the number of documents holding a value.
func (idx *ScalarIndex[V]) IndexedCount() int {
	return len(idx.rev)
}

// NotIndexedCount returns the number of documents whose last value was absent.
func (idx *ScalarIndex[V]) NotIndexedCount() int {
	return int(idx.notIndexed.GetCardinality())
}

// Docids returns every document the index knows about, indexed or not.
func (idx *ScalarIndex[V]) Docids() *DocSet {
	return Union(idx.Indexed(), idx.NotIndexed())
}

// WriteTo serializes the forward index, reverse index, not-indexed set,
// document count and tree threshold.
//
// The payload after the common snapshot header is:
//  1. Tree threshold (4 bytes) and document count (4 bytes)
//  2. Not-indexed bitmap size (4 bytes) + bitmap bytes
//  3. Number of values (4 bytes), then per value in ascending order:
//     encoded value, bitmap size (4 bytes) + bitmap bytes
//  4. Number of documents (4 bytes), then per document in ascending order:
//     doc ID (4 bytes), encoded value
//
// Values are encoded as a kind byte followed by 8 bytes (integers, floats)
// or a length-prefixed string.
func (idx *ScalarIndex[V]) WriteTo(w io.Writer) (int64, error) {
	n, err := writeSnapshot(w, scalarMagic, idx.config.CompressSnapshots, func(sw *snapshotWriter) {
		sw.u32(uint32(idx.config.TreeThreshold))
		sw.u32(uint32(idx.numDocs))
		sw.bitmap(idx.notIndexed)

		sw.u32(uint32(len(idx.values)))
		for _, v := range idx.values {
			writeValue(sw, v)
			sw.docSet(idx.fwd[v])
		}

		docs := slices.Sorted(maps.Keys(idx.rev))
		sw.u32(uint32(len(docs)))
		for _, doc := range docs {
			sw.u32(doc)
			writeValue(sw, idx.rev[doc])
		}
	})
	if err != nil {
		return n, err
	}
	idx.logger.Debug("snapshot written", "bytes", n, "values", len(idx.values), "documents", idx.numDocs)
	return n, nil
}

// ReadFrom replaces the index state with a snapshot produced by WriteTo for
// the same value type. The index is left untouched if decoding fails.
func (idx *ScalarIndex[V]) ReadFrom(r io.Reader) (int64, error) {
	return readSnapshot(r, scalarMagic, func(sr *snapshotReader) error {
		threshold := int(sr.u32())
		numDocs := int(sr.u32())
		notIndexed := sr.bitmap()

		fwd := make(map[V]*DocSet)
		var values []V
		valueCount := sr.u32()
		for i := uint32(0); i < valueCount && sr.err == nil; i++ {
			v := readValue[V](sr)
			bm := sr.bitmap()
			if sr.err == nil {
				fwd[v] = docSetFromBitmap(threshold, bm)
				values = append(values, v)
			}
		}

		rev := make(map[uint32]V)
		docCount := sr.u32()
		for i := uint32(0); i < docCount && sr.err == nil; i++ {
			doc := sr.u32()
			rev[doc] = readValue[V](sr)
		}

		if sr.err != nil {
			return fmt.Errorf("failed to read scalar snapshot: %w", sr.err)
		}
		if threshold < 1 || numDocs != len(rev) || !slices.IsSorted(values) {
			return fmt.Errorf("%w: threshold %d, %d documents counted but %d stored",
				ErrInvalidSnapshot, threshold, numDocs, len(rev))
		}

		idx.fwd = fwd
		idx.values = values
		idx.rev = rev
		idx.notIndexed = notIndexed
		idx.numDocs = numDocs
		idx.config.TreeThreshold = threshold
		idx.config.Metrics.setDocuments(ScalarIndexKind, numDocs)
		idx.logger.Debug("snapshot restored", "values", len(values), "documents", numDocs)
		return nil
	})
}

func writeValue[V cmp.Ordered](sw *snapshotWriter, v V) {
	rv := reflect.ValueOf(v)
	kind := kindFamily(rv.Kind())
	sw.u8(uint8(kind))
	switch kind {
	case kindInt:
		sw.u64(uint64(rv.Int()))
	case kindUint:
		sw.u64(rv.Uint())
	case kindFloat:
		sw.u64(math.Float64bits(rv.Float()))
	case kindString:
		sw.str(rv.String())
	}
}

func readValue[V cmp.Ordered](sr *snapshotReader) V {
	var v V
	rv := reflect.ValueOf(&v).Elem()
	kind := valueKind(sr.u8())
	if sr.err != nil {
		return v
	}
	if kind != kindFamily(rv.Kind()) {
		sr.err = fmt.Errorf("%w: value kind %d does not match %T", ErrInvalidSnapshot, kind, v)
		return v
	}
	switch kind {
	case kindInt:
		rv.SetInt(int64(sr.u64()))
	case kindUint:
		rv.SetUint(sr.u64())
	case kindFloat:
		rv.SetFloat(math.Float64frombits(sr.u64()))
	case kindString:
		rv.SetString(sr.str())
	}
	return v
}

// toScalar converts a discriminated value to V. Values of another type with
// the same underlying kind family (an int for an int64 index) are converted.
func toScalar[V cmp.Ordered](raw any) (V, error) {
	var zero V
	v, ok := raw.(V)
	if !ok {
		rv := reflect.ValueOf(raw)
		target := reflect.TypeOf(zero)
		if !rv.IsValid() || kindFamily(rv.Kind()) != kindFamily(target.Kind()) || !rv.CanConvert(target) {
			return zero, fmt.Errorf("%w: expected %T, got %T", ErrValueShape, zero, raw)
		}
		probe := reflect.New(target).Elem()
		overflow := false
		switch kindFamily(target.Kind()) {
		case kindInt:
			overflow = probe.OverflowInt(rv.Int())
		case kindUint:
			overflow = probe.OverflowUint(rv.Uint())
		case kindFloat:
			overflow = probe.OverflowFloat(rv.Float())
		}
		if overflow {
			return zero, fmt.Errorf("%w: %v overflows %T", ErrValueShape, raw, zero)
		}
		v = rv.Convert(target).Interface().(V)
	}
	if v != v {
		return zero, fmt.Errorf("%w: NaN cannot be ordered", ErrValueShape)
	}
	return v, nil
}

type valueKind uint8

const (
	kindInvalid valueKind = iota
	kindInt
	kindUint
	kindFloat
	kindString
)

func kindFamily(k reflect.Kind) valueKind {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return kindInt
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return kindUint
	case reflect.Float32, reflect.Float64:
		return kindFloat
	case reflect.String:
		return kindString
	}
	return kindInvalid
}
