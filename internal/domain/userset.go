package domain

import "strings"

// UserSet is an insertion-ordered set of user ids.
// The zero value is an empty set ready to use.
type UserSet []string

// NewUserSet builds a set from ids, dropping blanks and duplicates.
func NewUserSet(ids ...string) UserSet {
	var s UserSet
	for _, id := range ids {
		s = s.Add(id)
	}
	return s
}

// Add returns the set with id appended when it is non-blank and not yet present.
func (s UserSet) Add(id string) UserSet {
	id = strings.TrimSpace(id)
	if id == "" || s.Contains(id) {
		return s
	}
	return append(s, id)
}

// Contains reports whether id is a member.
func (s UserSet) Contains(id string) bool {
	for _, v := range s {
		if v == id {
			return true
		}
	}
	return false
}

// Union returns a new set holding members of s followed by new members of other.
func (s UserSet) Union(other UserSet) UserSet {
	out := make(UserSet, 0, len(s)+len(other))
	for _, id := range s {
		out = out.Add(id)
	}
	for _, id := range other {
		out = out.Add(id)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Len returns the number of members.
func (s UserSet) Len() int { return len(s) }

// Slice returns the members as a plain slice.
func (s UserSet) Slice() []string {
	if len(s) == 0 {
		return nil
	}
	return append([]string(nil), s...)
}

// Clone returns an independent copy.
func (s UserSet) Clone() UserSet {
	if s == nil {
		return nil
	}
	return append(UserSet(nil), s...)
}
