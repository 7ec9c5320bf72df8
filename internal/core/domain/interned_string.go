package domain

import "unique"

// InternedString canonicalizes strings that recur across the build model.
// Task names and project paths repeat on every work node and in every state
// file; interning them collapses the copies and makes equality a handle
// comparison.
type InternedString struct {
	h unique.Handle[string]
}

// NewInternedString interns s and returns its handle.
func NewInternedString(s string) InternedString {
	return InternedString{h: unique.Make(s)}
}

// String returns the interned value. The zero InternedString reads as "".
func (is InternedString) String() string {
	var zero unique.Handle[string]
	if is.h == zero {
		return ""
	}
	return is.h.Value()
}
