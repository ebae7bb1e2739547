// Package entry implements the in-memory directory data model: attribute
// descriptions, byte-buffer attribute values, entries and modifications,
// plus the DN-splitting helpers the rename logic in internal/diff needs.
package entry

import (
	"bytes"
	"strings"
)

// AttrDesc is an attribute description: a type name plus optional
// semicolon-separated options, compared as a whole, case-insensitively.
type AttrDesc string

func (d AttrDesc) normalized() string { return strings.ToLower(string(d)) }

// Equal compares two descriptions case-insensitively.
func (d AttrDesc) Equal(o AttrDesc) bool { return d.normalized() == o.normalized() }

// Attribute pairs a description with an ordered list of opaque byte-buffer
// values. Value order is preserved but does not participate in equality.
type Attribute struct {
	Desc   AttrDesc
	Values [][]byte
}

// NewAttribute builds an attribute from a description and initial values.
func NewAttribute(desc AttrDesc, values ...[]byte) *Attribute {
	return &Attribute{Desc: desc, Values: values}
}

// AddValue appends a value to the attribute.
func (a *Attribute) AddValue(v []byte) {
	a.Values = append(a.Values, v)
}

// RemoveValue removes the first value that is byte-for-byte equal to v.
// ok reports whether a matching value was found and removed.
func (a *Attribute) RemoveValue(v []byte) (ok bool) {
	for i, existing := range a.Values {
		if bytes.Equal(existing, v) {
			a.Values = append(a.Values[:i], a.Values[i+1:]...)
			return true
		}
	}
	return false
}

// HasValue reports whether v is present, by exact byte equality.
func (a *Attribute) HasValue(v []byte) bool {
	for _, existing := range a.Values {
		if bytes.Equal(existing, v) {
			return true
		}
	}
	return false
}

// Equal reports whether a and o share a description (case-insensitively)
// and the same value multiset (exact byte equality, order irrelevant).
func (a *Attribute) Equal(o *Attribute) bool {
	if a == nil || o == nil {
		return a == o
	}
	return a.Desc.Equal(o.Desc) && multisetEqual(a.Values, o.Values)
}

func multisetEqual(a, b [][]byte) bool {
	if len(a) != len(b) {
		return false
	}
	used := make([]bool, len(b))
	for _, av := range a {
		found := false
		for i, bv := range b {
			if used[i] {
				continue
			}
			if bytes.Equal(av, bv) {
				used[i] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Entry is a DN paired with an ordered list of attributes, each
// description occurring at most once; repeated descriptions encountered
// while parsing are merged into the existing attribute's value list.
type Entry struct {
	DN         string
	Attributes []*Attribute
}

// NewEntry creates an entry with no attributes.
func NewEntry(dn string) *Entry {
	return &Entry{DN: dn}
}

// FindAttribute locates an attribute by description, case-insensitively.
func (e *Entry) FindAttribute(desc AttrDesc) (*Attribute, bool) {
	for _, a := range e.Attributes {
		if a.Desc.Equal(desc) {
			return a, true
		}
	}
	return nil, false
}

// GetOrCreateAttribute returns the existing attribute matching desc, or
// appends and returns a new empty one in document order.
func (e *Entry) GetOrCreateAttribute(desc AttrDesc) *Attribute {
	if a, ok := e.FindAttribute(desc); ok {
		return a
	}
	a := &Attribute{Desc: desc}
	e.Attributes = append(e.Attributes, a)
	return a
}

// AddValue appends v to the attribute named desc, merging into an
// existing attribute of the same description if the parser has already
// seen it earlier in this record.
func (e *Entry) AddValue(desc AttrDesc, v []byte) {
	e.GetOrCreateAttribute(desc).AddValue(v)
}

// Equal reports whether two entries have the same DN and the same set of
// attributes (order of attributes and of values within each is
// irrelevant).
func (e *Entry) Equal(o *Entry) bool {
	if e == nil || o == nil {
		return e == o
	}
	if e.DN != o.DN || len(e.Attributes) != len(o.Attributes) {
		return false
	}
	used := make([]bool, len(o.Attributes))
	for _, a := range e.Attributes {
		found := false
		for i, b := range o.Attributes {
			if used[i] {
				continue
			}
			if a.Equal(b) {
				used[i] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
