package catalog

import (
	"errors"
	"slices"
	"testing"
)

type fielded struct {
	fields map[string]any
}

func (f fielded) Field(name string) (any, bool) {
	v, ok := f.fields[name]
	return v, ok
}

type article struct {
	Title string
	Tags  []string
	note  string
}

// TestFieldDiscriminator tests field lookup on the supported object kinds
func TestFieldDiscriminator(t *testing.T) {
	type labels map[string]string

	tests := []struct {
		name   string
		field  string
		obj    any
		want   any
		wantOK bool
	}{
		{"any map hit", "a", map[string]any{"a": 1}, 1, true},
		{"any map miss", "b", map[string]any{"a": 1}, nil, false},
		{"typed map", "k", labels{"k": "v"}, "v", true},
		{"int keyed map", "1", map[int]string{1: "x"}, nil, false},
		{"struct", "Title", article{Title: "go"}, "go", true},
		{"struct pointer", "Title", &article{Title: "go"}, "go", true},
		{"unexported field", "note", article{note: "n"}, nil, false},
		{"missing field", "Body", article{}, nil, false},
		{"nil pointer", "Title", (*article)(nil), nil, false},
		{"nil object", "Title", nil, nil, false},
		{"scalar object", "Title", 42, nil, false},
		{"fielder", "x", fielded{fields: map[string]any{"x": 3}}, 3, true},
		{"fielder miss", "y", fielded{}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FieldDiscriminator(tt.field)(tt.obj)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("value = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestResolveDiscriminator tests the accepted discriminator forms
func TestResolveDiscriminator(t *testing.T) {
	obj := map[string]any{"n": 5}

	byDefault, err := resolveDiscriminator(func(o, def any) any {
		if m, ok := o.(map[string]any); ok {
			if v, ok := m["n"]; ok {
				return v
			}
		}
		return def
	})
	if err != nil {
		t.Fatalf("resolveDiscriminator() error = %v", err)
	}
	if v, ok := byDefault(obj); !ok || v != 5 {
		t.Errorf("default-style discriminator = %v, %v, want 5, true", v, ok)
	}
	if _, ok := byDefault(map[string]any{}); ok {
		t.Error("returning the default should mean no value")
	}

	// nil is a value, not the absent marker
	returnsNil, _ := resolveDiscriminator(func(o, def any) any { return nil })
	if _, ok := returnsNil(obj); !ok {
		t.Error("nil result should count as a value")
	}

	plain, err := resolveDiscriminator(func(o any) (any, bool) { return "x", true })
	if err != nil {
		t.Fatalf("resolveDiscriminator() error = %v", err)
	}
	if v, ok := plain(nil); !ok || v != "x" {
		t.Errorf("plain discriminator = %v, %v", v, ok)
	}

	for _, bad := range []any{nil, 1, "", []string{"a"}, (func(any) (any, bool))(nil)} {
		if _, err := resolveDiscriminator(bad); !errors.Is(err, ErrInvalidDiscriminator) {
			t.Errorf("resolveDiscriminator(%T) error = %v, want ErrInvalidDiscriminator", bad, err)
		}
	}
}

// TestTextDiscriminator tests feeding text fields into a keyword index
func TestTextDiscriminator(t *testing.T) {
	idx, err := NewKeywordIndex(TextDiscriminator("Title"), quietConfig())
	if err != nil {
		t.Fatal(err)
	}
	idx.SetNormalizer(FoldNormalizer)

	idx.Index(1, article{Title: "The Quick, brown fox."})
	idx.Index(2, map[string]any{"Title": []string{"Fox", "Hound"}})
	idx.Index(3, map[string]any{})

	if got := idx.TermsFor(1); !slices.Equal(got, []string{"brown", "fox", "quick", "the"}) {
		t.Errorf("TermsFor(1) = %v", got)
	}
	if got := idx.ApplyEq("FOX").ToArray(); !slices.Equal(got, []uint32{1, 2}) {
		t.Errorf("ApplyEq(FOX) = %v, want [1 2]", got)
	}
	if got := idx.NotIndexed().ToArray(); !slices.Equal(got, []uint32{3}) {
		t.Errorf("NotIndexed() = %v, want [3]", got)
	}
}
