/*
Package catalog provides the in-memory index cores of a document catalog.

A catalog hands every document to a set of indexes. Each index extracts one
value from the document, keeps a forward mapping (value to documents) and a
reverse mapping (document to value) in step, and answers queries with ordered
sets of document IDs. This package implements two such indexes:

  - KeywordIndex: documents carry an unordered collection of terms (tags,
    categories, words); queries combine terms with "and" / "or".
  - ScalarIndex: documents carry a single orderable value (a price, a date);
    queries select exact values and ranges, and a sort engine orders an
    arbitrary candidate set by value.

# Quick Start

Index a few documents and query them:

	package main

	import (
	    "fmt"
	    "log"

	    "github.com/wizenheimer/catalog"
	)

	type Product struct {
	    Tags  []string
	    Price int
	}

	func main() {
	    tags, err := catalog.NewKeywordIndex("Tags", nil)
	    if err != nil {
	        log.Fatal(err)
	    }
	    prices, err := catalog.NewScalarIndex[int]("Price", nil)
	    if err != nil {
	        log.Fatal(err)
	    }

	    products := map[uint32]Product{
	        1: {Tags: []string{"red", "shoe"}, Price: 80},
	        2: {Tags: []string{"blue", "shoe"}, Price: 40},
	        3: {Tags: []string{"red", "hat"}, Price: 25},
	    }
	    for id, p := range products {
	        tags.Index(id, p)
	        prices.Index(id, p)
	    }

	    // Red items, cheapest first
	    red := tags.ApplyEq("red")
	    seq, err := prices.NewSort(red).Execute()
	    if err != nil {
	        log.Fatal(err)
	    }
	    for id := range seq {
	        fmt.Println(id) // 3, then 1
	    }
	}

# Document Sets

Every query returns a *DocSet, an ascending set of uint32 document IDs. Small
sets are stored as a sorted slice; once a set reaches the tree threshold
(default 64) it switches to a roaring bitmap. The switch is invisible to
callers. Union, Intersect and Difference combine sets:

	both := catalog.Intersect(tags.ApplyEq("shoe"), prices.ApplyLt(50))

# Discriminators

An index gets its value from a discriminator fixed at construction:

	catalog.NewKeywordIndex("Tags", nil)                          // field or map key
	catalog.NewKeywordIndex(catalog.TextDiscriminator("Title"), nil) // words of a text field
	catalog.NewScalarIndex[int](func(obj any) (any, bool) {      // any function
	    p, ok := obj.(Product)
	    return p.Price, ok
	}, nil)

A discriminator that reports no value marks the document as not indexed.
Negated queries (ApplyNotEq, ApplyNotIn, ...) return every known document,
not-indexed ones included, minus the positive result.

# Sorting

ScalarIndex.NewSort orders a candidate set by value using one of three
strategies with identical output: a forward scan over the sorted values, a
stable sort of the candidates, or a bounded top-K heap. SortAuto picks one
from the candidate, index and limit sizes:

	seq, err := prices.NewSort(candidates).
	    WithReverse(true).
	    WithLimit(10).
	    Execute()

Documents with equal values come out in ascending ID order. Candidates
without a value are skipped.

# Configuration

IndexConfig carries the tree threshold, the sort heuristic ratios, the
inconsistency policy, snapshot compression, a *slog.Logger and optional
Prometheus metrics. LoadIndexConfig reads the same settings from YAML.

# Persistence

Both indexes implement io.WriterTo and io.ReaderFrom. A snapshot holds the
forward and reverse mappings, the not-indexed set, the document count and the
threshold, optionally zstd-compressed.

# Thread Safety

Indexes are not internally synchronized. Mutations (Index, Unindex, Clear,
Optimize, ReadFrom) must be serialized by the caller. Queries may run
concurrently with each other while no mutation is in progress.
*/
package catalog
