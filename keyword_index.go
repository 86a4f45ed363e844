// Package catalog implements the keyword index of a document catalog.
//
// WHAT IS A KEYWORD INDEX?
// A keyword index maps each document to an unordered collection of terms (tags,
// categories, words) and answers set queries over them: which documents carry
// any of these terms, which carry all of them.
//
// HOW IT WORKS:
// The index keeps two mappings that always mirror each other:
//  1. Forward index: term -> DocSet of the documents holding that term
//  2. Reverse index: document -> sorted distinct terms it was indexed with
//
// Re-indexing a document diffs its new terms against the reverse entry and
// touches only the forward sets of terms that were added or removed. Documents
// whose discriminator yields no value are remembered in a separate not-indexed
// set so negated queries can include them.
//
// TIME COMPLEXITY:
//   - Index: O(t log t + t log n) where t is the number of terms of the document
//   - Unindex: O(t log n)
//   - Search "or": O(total matches) merge of the operand sets
//   - Search "and": O(s log n) where s is the smallest operand set
//
// Thread-safety: the index is not internally synchronized. Writers must be
// serialized by the caller; readers may run concurrently with each other while
// no writer is active.
package catalog

import (
	"fmt"
	"io"
	"iter"
	"log/slog"
	"maps"
	"reflect"
	"slices"

	"github.com/RoaringBitmap/roaring"
)

var keywordMagic = [4]byte{'K', 'W', 'I', 'X'}

// KeywordIndex maps documents to sets of terms.
type KeywordIndex struct {
	discriminator Discriminator
	normalize     Normalizer
	config        IndexConfig
	logger        *slog.Logger

	// fwd maps a term to the documents holding it; entries are never empty
	fwd map[string]*DocSet

	// rev maps a document to its sorted, distinct terms; entries are never empty
	rev map[uint32][]string

	// notIndexed holds documents whose last discriminated value was absent
	notIndexed *roaring.Bitmap

	// numDocs always equals len(rev)
	numDocs int
}

// NewKeywordIndex creates an empty keyword index.
//
// Parameters:
//   - discriminator: a Discriminator, func(any) (any, bool), func(obj, def any) any,
//     or the name of the field holding the terms
//   - config: index configuration; nil uses DefaultIndexConfig()
//
// Returns:
//   - *KeywordIndex: A new empty index
//   - error: ErrInvalidDiscriminator or a configuration validation error
//
// Example:
//
//	idx, err := NewKeywordIndex("Tags", nil)
//	idx.Index(1, Doc{Tags: []string{"go", "search"}})
//	docs := idx.ApplyAny([]string{"go", "rust"})
func NewKeywordIndex(discriminator any, config *IndexConfig) (*KeywordIndex, error) {
	d, err := resolveDiscriminator(discriminator)
	if err != nil {
		return nil, err
	}
	cfg, err := resolveConfig(config)
	if err != nil {
		return nil, err
	}

	idx := &KeywordIndex{
		discriminator: d,
		normalize:     identityNormalizer,
		config:        cfg,
		logger:        cfg.Logger.With("component", "keyword_index"),
	}
	idx.Clear()
	return idx, nil
}

// SetNormalizer installs the normalization hook applied to stored and queried
// terms. It must be set before any document is indexed; nil restores identity.
func (idx *KeywordIndex) SetNormalizer(n Normalizer) {
	if n == nil {
		n = identityNormalizer
	}
	idx.normalize = n
}

// Clear drops every document and resets the forward and reverse mappings.
func (idx *KeywordIndex) Clear() {
	idx.fwd = make(map[string]*DocSet)
	idx.rev = make(map[uint32][]string)
	idx.notIndexed = roaring.New()
	idx.numDocs = 0
	idx.config.Metrics.setDocuments(KeywordIndexKind, 0)
}

// DocumentCount returns the number of documents that have terms in the index.
func (idx *KeywordIndex) DocumentCount() int {
	return idx.numDocs
}

// WordCount returns the number of distinct indexed terms.
func (idx *KeywordIndex) WordCount() int {
	return len(idx.fwd)
}

// HasDoc reports whether doc has terms in the index.
func (idx *KeywordIndex) HasDoc(doc uint32) bool {
	_, ok := idx.rev[doc]
	return ok
}

// TermsFor returns the terms doc is indexed with, sorted.
func (idx *KeywordIndex) TermsFor(doc uint32) []string {
	return slices.Clone(idx.rev[doc])
}

// Terms returns an iterator over all indexed terms in sorted order.
func (idx *KeywordIndex) Terms() iter.Seq[string] {
	return slices.Values(slices.Sorted(maps.Keys(idx.fwd)))
}

// Index extracts terms from obj and stores them for doc, replacing whatever
// doc was indexed with before.
//
// Returns:
//   - error: ErrValueShape if the value is a bare string or not a sequence
func (idx *KeywordIndex) Index(doc uint32, obj any) error {
	value, ok := idx.discriminator(obj)
	if !ok {
		if err := idx.Unindex(doc); err != nil {
			return err
		}
		idx.notIndexed.Add(doc)
		return nil
	}

	terms, err := toTerms(value)
	if err != nil {
		return err
	}
	idx.notIndexed.Remove(doc)

	old, had := idx.rev[doc]
	if len(terms) > 0 {
		terms = distinctSorted(idx.normalize(terms))
	}
	if len(terms) == 0 {
		if had {
			return idx.Unindex(doc)
		}
		return nil
	}

	idx.config.Metrics.observeOp(KeywordIndexKind, "index")

	if !had {
		idx.insertForward(doc, terms)
		idx.rev[doc] = terms
		idx.numDocs++
		idx.config.Metrics.setDocuments(KeywordIndexKind, idx.numDocs)
		return nil
	}

	added, removed := diffSorted(terms, old)
	for _, t := range removed {
		set, ok := idx.fwd[t]
		if !ok {
			idx.reportInconsistency(doc, t)
			continue
		}
		set.Remove(doc)
		if set.IsEmpty() {
			delete(idx.fwd, t)
		}
	}
	idx.insertForward(doc, added)
	idx.rev[doc] = terms
	return nil
}

// Reindex is an alias of Index.
func (idx *KeywordIndex) Reindex(doc uint32, obj any) error {
	return idx.Index(doc, obj)
}

// Unindex removes doc from the index. Unknown documents are ignored.
//
// If the forward index does not agree with doc's reverse entry the mismatch is
// logged and the removal continues with the remaining terms, so the document
// still ends up fully removed. With StrictConsistency the same cleanup happens
// but ErrInconsistentIndex is returned.
func (idx *KeywordIndex) Unindex(doc uint32) error {
	idx.notIndexed.Remove(doc)

	terms, ok := idx.rev[doc]
	if !ok {
		return nil
	}

	idx.config.Metrics.observeOp(KeywordIndexKind, "unindex")

	var missing []string
	for _, t := range terms {
		set, ok := idx.fwd[t]
		if !ok || !set.Remove(doc) {
			missing = append(missing, t)
			idx.reportInconsistency(doc, t)
			continue
		}
		if set.IsEmpty() {
			delete(idx.fwd, t)
		}
	}

	delete(idx.rev, doc)
	idx.numDocs--
	idx.config.Metrics.setDocuments(KeywordIndexKind, idx.numDocs)

	if len(missing) > 0 && idx.config.StrictConsistency {
		return fmt.Errorf("%w: document %d missing from forward entries %q", ErrInconsistentIndex, doc, missing)
	}
	return nil
}

func (idx *KeywordIndex) reportInconsistency(doc uint32, term string) {
	idx.config.Metrics.observeInconsistency(KeywordIndexKind)
	idx.logger.Warn("forward index disagrees with reverse index",
		"doc", doc,
		"term", term,
		"error", ErrInconsistentIndex,
	)
}

// insertForward adds doc to the forward set of every term, creating sets as
// needed. DocSet.Insert performs the switch to the bitmap representation.
func (idx *KeywordIndex) insertForward(doc uint32, terms []string) {
	for _, t := range terms {
		set, ok := idx.fwd[t]
		if !ok {
			set = newDocSet(idx.config.TreeThreshold)
			idx.fwd[t] = set
		}
		set.Insert(doc)
	}
}

// TreeThreshold returns the current set conversion threshold.
func (idx *KeywordIndex) TreeThreshold() int {
	return idx.config.TreeThreshold
}

// SetTreeThreshold changes the set conversion threshold and re-applies it to
// every forward entry.
func (idx *KeywordIndex) SetTreeThreshold(threshold int) error {
	if threshold < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidThreshold, threshold)
	}
	idx.config.TreeThreshold = threshold
	idx.Optimize()
	return nil
}

// Optimize converts every forward entry to the representation the current
// tree threshold calls for. It is idempotent.
func (idx *KeywordIndex) Optimize() {
	converted := 0
	for _, set := range idx.fwd {
		before := set.Indexed()
		set.Optimize(idx.config.TreeThreshold)
		if set.Indexed() != before {
			converted++
		}
	}
	idx.logger.Debug("optimized forward index",
		"threshold", idx.config.TreeThreshold,
		"terms", len(idx.fwd),
		"converted", converted,
	)
}

// Indexed returns the documents that have terms in the index.
func (idx *KeywordIndex) Indexed() *DocSet {
	return docSetFromKeys(idx.config.TreeThreshold, idx.rev)
}

// NotIndexed returns the documents whose last value was absent.
func (idx *KeywordIndex) NotIndexed() *DocSet {
	return docSetFromBitmap(idx.config.TreeThreshold, idx.notIndexed.Clone())
}

// IndexedCount returns the number of documents with terms.
func (idx *KeywordIndex) IndexedCount() int {
	return len(idx.rev)
}

// NotIndexedCount returns the number of documents whose last value was absent.
func (idx *KeywordIndex) NotIndexedCount() int {
	return int(idx.notIndexed.GetCardinality())
}

// Docids returns every document the index knows about, indexed or not.
func (idx *KeywordIndex) Docids() *DocSet {
	return Union(idx.Indexed(), idx.NotIndexed())
}

// WriteTo serializes the forward index, reverse index, not-indexed set,
// document count and tree threshold.
//
// The payload after the common snapshot header is:
//  1. Tree threshold (4 bytes) and document count (4 bytes)
//  2. Not-indexed bitmap size (4 bytes) + bitmap bytes
//  3. Number of terms (4 bytes), then per term in sorted order:
//     term length (4 bytes) + term, bitmap size (4 bytes) + bitmap bytes
//  4. Number of documents (4 bytes), then per document in ascending order:
//     doc ID (4 bytes), term count (4 bytes), each term length-prefixed
//
// Returns:
//   - int64: Number of bytes written
//   - error: Returns error if writing fails
func (idx *KeywordIndex) WriteTo(w io.Writer) (int64, error) {
	n, err := writeSnapshot(w, keywordMagic, idx.config.CompressSnapshots, func(sw *snapshotWriter) {
		sw.u32(uint32(idx.config.TreeThreshold))
		sw.u32(uint32(idx.numDocs))
		sw.bitmap(idx.notIndexed)

		terms := slices.Sorted(maps.Keys(idx.fwd))
		sw.u32(uint32(len(terms)))
		for _, t := range terms {
			sw.str(t)
			sw.docSet(idx.fwd[t])
		}

		docs := slices.Sorted(maps.Keys(idx.rev))
		sw.u32(uint32(len(docs)))
		for _, doc := range docs {
			docTerms := idx.rev[doc]
			sw.u32(doc)
			sw.u32(uint32(len(docTerms)))
			for _, t := range docTerms {
				sw.str(t)
			}
		}
	})
	if err != nil {
		return n, err
	}
	idx.logger.Debug("snapshot written", "bytes", n, "terms", len(idx.fwd), "documents", idx.numDocs)
	return n, nil
}

// ReadFrom replaces the index state with a snapshot produced by WriteTo.
// The index is left untouched if the snapshot cannot be decoded.
//
// Returns:
//   - int64: Number of bytes read
//   - error: ErrInvalidSnapshot or the underlying read error
func (idx *KeywordIndex) ReadFrom(r io.Reader) (int64, error) {
	return readSnapshot(r, keywordMagic, func(sr *snapshotReader) error {
		threshold := int(sr.u32())
		numDocs := int(sr.u32())
		notIndexed := sr.bitmap()

		fwd := make(map[string]*DocSet)
		termCount := sr.u32()
		for i := uint32(0); i < termCount && sr.err == nil; i++ {
			term := sr.str()
			bm := sr.bitmap()
			if sr.err == nil {
				fwd[term] = docSetFromBitmap(threshold, bm)
			}
		}

		rev := make(map[uint32][]string)
		docCount := sr.u32()
		for i := uint32(0); i < docCount && sr.err == nil; i++ {
			doc := sr.u32()
			n := sr.u32()
			var docTerms []string
			for j := uint32(0); j < n && sr.err == nil; j++ {
				docTerms = append(docTerms, sr.str())
			}
			rev[doc] = docTerms
		}

		if sr.err != nil {
			return fmt.Errorf("failed to read keyword snapshot: %w", sr.err)
		}
		if threshold < 1 || numDocs != len(rev) {
			return fmt.Errorf("%w: threshold %d, %d documents counted but %d stored",
				ErrInvalidSnapshot, threshold, numDocs, len(rev))
		}

		idx.fwd = fwd
		idx.rev = rev
		idx.notIndexed = notIndexed
		idx.numDocs = numDocs
		idx.config.TreeThreshold = threshold
		idx.config.Metrics.setDocuments(KeywordIndexKind, numDocs)
		idx.logger.Debug("snapshot restored", "terms", len(fwd), "documents", numDocs)
		return nil
	})
}

// toTerms converts a discriminated value into a term slice.
// A bare string is rejected: it is a single token, not a sequence of terms.
func toTerms(value any) ([]string, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		return nil, fmt.Errorf("%w: value must be a sequence of terms, got string %q", ErrValueShape, v)
	case []string:
		return slices.Clone(v), nil
	case map[string]struct{}:
		terms := make([]string, 0, len(v))
		for t := range v {
			terms = append(terms, t)
		}
		return terms, nil
	case map[string]bool:
		terms := make([]string, 0, len(v))
		for t, present := range v {
			if present {
				terms = append(terms, t)
			}
		}
		return terms, nil
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("%w: value must be a sequence of terms, got %T", ErrValueShape, value)
	}
	terms := make([]string, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		t, err := termOf(rv.Index(i).Interface())
		if err != nil {
			return nil, err
		}
		terms = append(terms, t)
	}
	return terms, nil
}

// termOf converts one sequence element into a term.
func termOf(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case fmt.Stringer:
		return t.String(), nil
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return fmt.Sprint(v), nil
	}
	return "", fmt.Errorf("%w: unsupported term type %T", ErrValueShape, v)
}

// distinctSorted sorts terms in place and drops duplicates.
func distinctSorted(terms []string) []string {
	slices.Sort(terms)
	return slices.Clip(slices.Compact(terms))
}

// diffSorted returns the terms only in next (added) and only in prev (removed).
// Both inputs must be sorted and distinct.
func diffSorted(next, prev []string) (added, removed []string) {
	i, j := 0, 0
	for i < len(next) && j < len(prev) {
		switch {
		case next[i] < prev[j]:
			added = append(added, next[i])
			i++
		case next[i] > prev[j]:
			removed = append(removed, prev[j])
			j++
		default:
			i++
			j++
		}
	}
	added = append(added, next[i:]...)
	removed = append(removed, prev[j:]...)
	return added, removed
}

// docSetFromKeys collects the keys of a document-keyed map into a DocSet.
func docSetFromKeys[V any](threshold int, m map[uint32]V) *DocSet {
	ids := make([]uint32, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return docSetFromSorted(threshold, ids)
}
