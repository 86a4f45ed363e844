package catalog

import "io"

// IndexKind identifies the kind of an index. It is also the "index" label of
// the index metrics.
type IndexKind string

var (
	// KeywordIndexKind maps documents to sets of terms.
	// Queries combine terms with "and" / "or".
	KeywordIndexKind IndexKind = "keyword"

	// ScalarIndexKind maps documents to one orderable value.
	// Queries select exact values and ranges; results can be sorted by value.
	ScalarIndexKind IndexKind = "scalar"
)

// Index is the contract a catalog relies on to keep an index in step with its
// documents. Both KeywordIndex and every ScalarIndex instantiation implement it.
type Index interface {
	// Index extracts the indexed value from obj and stores it for doc
	Index(doc uint32, obj any) error

	// Reindex is an alias of Index
	Reindex(doc uint32, obj any) error

	// Unindex removes doc; unknown documents are ignored
	Unindex(doc uint32) error

	// Clear drops every document
	Clear()

	// DocumentCount returns the number of documents holding a value
	DocumentCount() int

	// HasDoc reports whether doc holds a value
	HasDoc(doc uint32) bool

	// Docids returns every known document, indexed or not
	Docids() *DocSet

	// Apply runs a query in any form the index accepts
	Apply(query any) (*DocSet, error)

	// Optimize re-applies the tree threshold to every forward entry
	Optimize()

	// Kind returns the type of index
	Kind() IndexKind

	io.WriterTo
	io.ReaderFrom
}

var (
	_ Index = (*KeywordIndex)(nil)
	_ Index = (*ScalarIndex[int])(nil)
	_ Index = (*ScalarIndex[string])(nil)
)

// Kind returns KeywordIndexKind.
func (idx *KeywordIndex) Kind() IndexKind {
	return KeywordIndexKind
}

// Kind returns ScalarIndexKind.
func (idx *ScalarIndex[V]) Kind() IndexKind {
	return ScalarIndexKind
}
