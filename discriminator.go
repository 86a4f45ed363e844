package catalog

import (
	"fmt"
	"reflect"
)

// Discriminator extracts the value to index from an application object.
// It returns false when the object has no value for the index, in which case
// the document is recorded as not indexed.
type Discriminator func(obj any) (any, bool)

// Fielder is implemented by objects that expose named fields themselves.
// Field discriminators prefer it over reflection.
type Fielder interface {
	Field(name string) (any, bool)
}

// absentMarker is handed to (obj, default) style discriminators as the default.
type absentMarker struct{ _ byte }

var absent = &absentMarker{}

// resolveDiscriminator turns any accepted discriminator form into a
// Discriminator once, at index construction.
//
// Accepted forms:
//   - Discriminator or func(any) (any, bool)
//   - func(obj, def any) any, which signals "no value" by returning def
//   - string, naming a field (see FieldDiscriminator)
func resolveDiscriminator(d any) (Discriminator, error) {
	switch fn := d.(type) {
	case Discriminator:
		if fn != nil {
			return fn, nil
		}
	case func(any) (any, bool):
		if fn != nil {
			return Discriminator(fn), nil
		}
	case func(any, any) any:
		if fn != nil {
			return func(obj any) (any, bool) {
				v := fn(obj, absent)
				if m, ok := v.(*absentMarker); ok && m == absent {
					return nil, false
				}
				return v, true
			}, nil
		}
	case string:
		if fn != "" {
			return FieldDiscriminator(fn), nil
		}
	}
	return nil, fmt.Errorf("%w: got %T", ErrInvalidDiscriminator, d)
}

// FieldDiscriminator returns a Discriminator reading the named field.
//
// Objects implementing Fielder are asked directly. Otherwise maps with string
// keys are indexed by name and structs (or pointers to structs) have their
// exported field of that name read. A missing field means "no value".
func FieldDiscriminator(name string) Discriminator {
	return func(obj any) (any, bool) {
		return lookupField(obj, name)
	}
}

func lookupField(obj any, name string) (any, bool) {
	switch o := obj.(type) {
	case nil:
		return nil, false
	case Fielder:
		return o.Field(name)
	case map[string]any:
		v, ok := o[name]
		return v, ok
	}

	rv := reflect.ValueOf(obj)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		keyType := rv.Type().Key()
		if keyType.Kind() != reflect.String {
			return nil, false
		}
		v := rv.MapIndex(reflect.ValueOf(name).Convert(keyType))
		if !v.IsValid() {
			return nil, false
		}
		return v.Interface(), true
	case reflect.Struct:
		f := rv.FieldByName(name)
		if !f.IsValid() || !f.CanInterface() {
			return nil, false
		}
		return f.Interface(), true
	}
	return nil, false
}

// TextDiscriminator reads the named field and, when it holds a string, splits
// it into word terms (see Tokenize). Other values pass through unchanged.
//
// Example:
//
//	idx, _ := NewKeywordIndex(TextDiscriminator("Title"), nil)
//	idx.Index(1, Article{Title: "The quick brown fox"}) // terms: The quick brown fox
func TextDiscriminator(name string) Discriminator {
	return func(obj any) (any, bool) {
		v, ok := lookupField(obj, name)
		if !ok {
			return nil, false
		}
		if s, isText := v.(string); isText {
			return Tokenize(s), true
		}
		return v, true
	}
}
