package model

import (
	"sort"
	"strings"
)

// Identifier names one trackable artifact. It is opaque to every component
// except DisplayName and the certificate filename encoding.
type Identifier string

// String returns the identifier text.
func (id Identifier) String() string {
	return string(id)
}

// DisplayName returns the short human label for the identifier: the text
// after the last '#' (or after the last '/' when there is none), with a
// trailing "()" removed.
func (id Identifier) DisplayName() string {
	s := string(id)
	if i := strings.LastIndexByte(s, '#'); i >= 0 {
		s = s[i+1:]
	} else if i := strings.LastIndexByte(s, '/'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSuffix(s, "()")
}

// Set is an unordered collection of identifiers.
type Set map[Identifier]struct{}

// NewSet builds a set from the given identifiers.
func NewSet(ids ...Identifier) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Add inserts id.
func (s Set) Add(id Identifier) {
	s[id] = struct{}{}
}

// Has reports whether id is in the set.
func (s Set) Has(id Identifier) bool {
	_, ok := s[id]
	return ok
}

// Intersect returns s ∩ other.
func (s Set) Intersect(other Set) Set {
	out := make(Set)
	for id := range s {
		if other.Has(id) {
			out.Add(id)
		}
	}
	return out
}

// Minus returns s \ other.
func (s Set) Minus(other Set) Set {
	out := make(Set)
	for id := range s {
		if !other.Has(id) {
			out.Add(id)
		}
	}
	return out
}

// Union returns s ∪ other.
func (s Set) Union(other Set) Set {
	out := make(Set, len(s)+len(other))
	for id := range s {
		out.Add(id)
	}
	for id := range other {
		out.Add(id)
	}
	return out
}

// Sorted returns the members in ascending order.
func (s Set) Sorted() []Identifier {
	out := make([]Identifier, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	SortIdentifiers(out)
	return out
}

// SortIdentifiers sorts ids in place.
func SortIdentifiers(ids []Identifier) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}

// InModule reports whether module falls under filter. A module matches when
// it equals the filter, when its last '/' or '::' separated segment equals the
// filter, or when it is nested below the filter. An empty module never
// matches.
func InModule(module, filter string) bool {
	if module == "" {
		return false
	}
	if module == filter {
		return true
	}
	if strings.HasPrefix(module, filter+"/") || strings.HasPrefix(module, filter+"::") {
		return true
	}
	segments := strings.FieldsFunc(strings.ReplaceAll(module, "::", "/"), func(r rune) bool {
		return r == '/'
	})
	return len(segments) > 0 && segments[len(segments)-1] == filter
}
