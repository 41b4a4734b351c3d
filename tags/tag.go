// Package tags implements a hierarchical dictionary of interned,
// dot-separated tag names ("Damage.Physical.Slash"), the containers that
// hold them and the parent-aware matching rules between the two.
//
// A Registry owns the tag tree. Tags are only ever minted by a Registry,
// so a Tag value always knows where its ancestors live and equality is a
// plain integer and pointer compare.
package tags

import "fmt"

// MatchType selects whether a tag is compared on its own or together
// with its ancestors.
type MatchType uint8

const (
	// Explicit compares the tag exactly.
	Explicit MatchType = iota
	// IncludeParentTags compares the tag and every ancestor of it.
	IncludeParentTags
)

// String returns a human-readable name for MatchType.
func (m MatchType) String() string {
	switch m {
	case Explicit:
		return "Explicit"
	case IncludeParentTags:
		return "IncludeParentTags"
	default:
		return fmt.Sprintf("MatchType(%d)", m)
	}
}

// Tag is an interned handle for a complete dotted tag name. The zero
// value is the invalid tag, which never matches anything.
type Tag struct {
	id  NameID
	reg *Registry
}

// IsValid reports whether the tag names something.
func (t Tag) IsValid() bool {
	return t.id != NoneName && t.reg != nil
}

// ID returns the interned name handle.
func (t Tag) ID() NameID {
	return t.id
}

// Name returns the complete dotted name, or "" for the invalid tag.
func (t Tag) Name() string {
	if t.reg == nil {
		return ""
	}
	return t.reg.names.Name(t.id)
}

// String returns the complete name, or "None" for the invalid tag.
func (t Tag) String() string {
	if !t.IsValid() {
		return "None"
	}
	return t.Name()
}

// Registry returns the registry that minted the tag.
func (t Tag) Registry() *Registry {
	return t.reg
}

// Matches compares t against other, each side expanded per its MatchType.
func (t Tag) Matches(match MatchType, other Tag, otherMatch MatchType) bool {
	if t.reg == nil {
		return false
	}
	return t.reg.TagsMatch(t, match, other, otherMatch)
}

// MatchesAny reports whether t or one of its ancestors is in c.
func (t Tag) MatchesAny(c Container) bool {
	if !t.IsValid() {
		return false
	}
	for _, other := range c.tags {
		if t.reg.TagsMatch(t, IncludeParentTags, other, Explicit) {
			return true
		}
	}
	return false
}

// DirectParent returns the tag one level up, or the invalid tag.
func (t Tag) DirectParent() Tag {
	if t.reg == nil {
		return Tag{}
	}
	return t.reg.DirectParent(t)
}
