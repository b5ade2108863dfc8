package encoder

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/crimson-sun/screener/internal/model"
)

// FallbackCode is the code assigned to a category the encoders never saw
// during training.
const FallbackCode = 0

// Set holds one fitted string->code mapping per categorical field.
// A Set is never mutated after construction and is safe for concurrent use.
type Set struct {
	codes map[string]map[string]int
}

// New builds a Set from per-field class lists. The code of a value is its
// index in the list, matching how label encoders number their fitted
// classes. Every field in model.CategoricalFields must be present; any
// other fields are ignored.
func New(classes map[string][]string) (*Set, error) {
	s := &Set{codes: make(map[string]map[string]int, len(model.CategoricalFields))}
	for _, field := range model.CategoricalFields {
		list, ok := classes[field]
		if !ok {
			return nil, fmt.Errorf("encoder: missing mapping for field %q", field)
		}
		if len(list) == 0 {
			return nil, fmt.Errorf("encoder: field %q has no classes", field)
		}
		m := make(map[string]int, len(list))
		for i, v := range list {
			if prev, dup := m[v]; dup {
				return nil, fmt.Errorf("encoder: field %q: class %q appears at %d and %d", field, v, prev, i)
			}
			m[v] = i
		}
		s.codes[field] = m
	}
	return s, nil
}

// Lookup returns the fitted code for raw, and whether it was known.
// Matching is exact and byte-for-byte, as at training time: a canonically
// equivalent but differently encoded spelling is an unseen value.
func (s *Set) Lookup(field, raw string) (int, bool) {
	m, ok := s.codes[field]
	if !ok {
		return FallbackCode, false
	}
	code, ok := m[raw]
	if !ok {
		return FallbackCode, false
	}
	return code, true
}

// Encode returns the fitted code for raw. Unseen values never fail: they
// resolve to FallbackCode and a warning naming the field is logged.
// The raw value itself is not logged.
func (s *Set) Encode(field, raw string) int {
	code, ok := s.Lookup(field, raw)
	if !ok {
		slog.Warn("unknown category, using fallback code",
			"field", field, "fallback", FallbackCode)
	}
	return code
}

// Fields returns the encoded field names in sorted order.
func (s *Set) Fields() []string {
	out := make([]string, 0, len(s.codes))
	for f := range s.codes {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Size returns the number of fitted classes for field, or 0 if unknown.
func (s *Set) Size(field string) int {
	return len(s.codes[field])
}
