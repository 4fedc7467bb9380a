package mltypes

import (
	"maps"
	"slices"
)

// Standard semantic tags.
const (
	TagNumeric    = "numeric"
	TagCategory   = "category"
	TagIndex      = "index"
	TagTimeIndex  = "time_index"
	TagPrimaryKey = "primary_key"
	TagForeignKey = "foreign_key"
)

// TagSet is a set of semantic tags.
type TagSet map[string]struct{}

// NewTagSet builds a set from the given tags.
func NewTagSet(tags ...string) TagSet {
	s := make(TagSet, len(tags))
	for _, t := range tags {
		s[t] = struct{}{}
	}
	return s
}

// Contains reports whether tag is in the set.
func (s TagSet) Contains(tag string) bool {
	_, ok := s[tag]
	return ok
}

// Union returns a new set holding the tags of both sets.
func (s TagSet) Union(o TagSet) TagSet {
	out := maps.Clone(s)
	if out == nil {
		out = make(TagSet, len(o))
	}
	for t := range o {
		out[t] = struct{}{}
	}
	return out
}

// Intersects reports whether the two sets share at least one tag.
func (s TagSet) Intersects(o TagSet) bool {
	for t := range s {
		if o.Contains(t) {
			return true
		}
	}
	return false
}

// Without returns a new set without the given tags.
func (s TagSet) Without(tags ...string) TagSet {
	out := maps.Clone(s)
	if out == nil {
		return TagSet{}
	}
	for _, t := range tags {
		delete(out, t)
	}
	return out
}

// Equal reports whether both sets hold the same tags.
func (s TagSet) Equal(o TagSet) bool {
	if len(s) != len(o) {
		return false
	}
	for t := range s {
		if !o.Contains(t) {
			return false
		}
	}
	return true
}

// Sorted returns the tags in ascending order.
func (s TagSet) Sorted() []string {
	return slices.Sorted(maps.Keys(s))
}
