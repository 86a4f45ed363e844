package catalog

import "errors"

var (
	// ErrInvalidDiscriminator is returned when an index is constructed with a
	// discriminator that is neither a function nor a field name.
	ErrInvalidDiscriminator = errors.New("discriminator value must be a function or a field name")

	// ErrValueShape is returned when a discriminated value does not have the
	// shape the index stores (a bare string for a keyword index, a value of the
	// wrong type for a scalar index).
	ErrValueShape = errors.New("value has unsupported shape")

	// ErrUnsupportedOperator is returned for boolean operators other than "and" and "or".
	ErrUnsupportedOperator = errors.New("unsupported operator")

	// ErrInvalidLimit is returned when a sort limit is not a positive integer.
	ErrInvalidLimit = errors.New("limit must be positive")

	// ErrInvalidStrategy is returned for an unknown sort strategy.
	ErrInvalidStrategy = errors.New("unknown sort strategy")

	// ErrInvalidThreshold is returned when a tree threshold is below 1.
	ErrInvalidThreshold = errors.New("tree threshold must be at least 1")

	// ErrUnsupportedQuery is returned when Apply receives a query form it cannot interpret.
	ErrUnsupportedQuery = errors.New("unsupported query")

	// ErrInconsistentIndex reports forward and reverse mappings that disagree.
	ErrInconsistentIndex = errors.New("inconsistent index")

	// ErrInvalidSnapshot is returned when a snapshot cannot be decoded.
	ErrInvalidSnapshot = errors.New("invalid snapshot")
)
