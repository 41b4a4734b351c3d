package tags

import (
	"strings"
)

// Container is a duplicate-free set of tags. Insertion order is kept but
// carries no meaning. The zero value is an empty container. Containers
// are values: mutating methods never write into storage that a plain copy
// may still share.
type Container struct {
	tags []Tag
}

// NewContainer returns a container holding the given tags, duplicates and
// invalid tags dropped.
func NewContainer(tags ...Tag) Container {
	var c Container
	for _, t := range tags {
		c.AddTag(t)
	}
	return c
}

// Num returns the number of tags.
func (c Container) Num() int {
	return len(c.tags)
}

// IsEmpty reports whether the container holds no tags.
func (c Container) IsEmpty() bool {
	return len(c.tags) == 0
}

// IsValid reports whether the container holds at least one tag.
func (c Container) IsValid() bool {
	return len(c.tags) > 0
}

// Tags returns a copy of the tags in insertion order.
func (c Container) Tags() []Tag {
	return append([]Tag(nil), c.tags...)
}

// At returns the i'th tag.
func (c Container) At(i int) Tag {
	return c.tags[i]
}

// Each calls fn for every tag until fn returns false.
func (c Container) Each(fn func(Tag) bool) {
	for _, t := range c.tags {
		if !fn(t) {
			return
		}
	}
}

// Clone returns an independent copy.
func (c Container) Clone() Container {
	return Container{tags: c.Tags()}
}

// AddTag adds t unless it is invalid or already present.
func (c *Container) AddTag(t Tag) {
	if !t.IsValid() || containsTag(c.tags, t) {
		return
	}
	c.tags = appendOwned(c.tags, t)
}

// appendOwned appends to a fresh backing array so copies sharing the old
// one are left alone.
func appendOwned(list []Tag, more ...Tag) []Tag {
	out := make([]Tag, len(list), len(list)+len(more))
	copy(out, list)
	return append(out, more...)
}

// AddTagFast adds t without the duplicate check. The caller guarantees t
// is not present.
func (c *Container) AddTagFast(t Tag) {
	c.tags = appendOwned(c.tags, t)
}

// AppendTags adds every tag of other not already present.
func (c *Container) AppendTags(other Container) {
	var added []Tag
	for _, t := range other.tags {
		if t.IsValid() && !containsTag(c.tags, t) && !containsTag(added, t) {
			added = append(added, t)
		}
	}
	if len(added) > 0 {
		c.tags = appendOwned(c.tags, added...)
	}
}

// RemoveTag removes t and reports whether it was present.
func (c *Container) RemoveTag(t Tag) bool {
	for i, x := range c.tags {
		if x == t {
			c.tags = append(c.tags[:i:i], c.tags[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveTags removes every tag of other.
func (c *Container) RemoveTags(other Container) {
	for _, t := range other.tags {
		c.RemoveTag(t)
	}
}

// RemoveAllTags empties the container.
func (c *Container) RemoveAllTags() {
	c.tags = nil
}

// HasTag reports whether the container holds tag. With both match types
// Explicit this is a plain membership test. Otherwise every member is
// compared through TagsMatch: tagMatch set to IncludeParentTags lets tag
// match members descending from it, containerMatch set to
// IncludeParentTags lets members match when they are ancestors of tag.
func (c Container) HasTag(tag Tag, containerMatch, tagMatch MatchType) bool {
	if !tag.IsValid() {
		return false
	}
	// Explicit/Explicit skips the ancestor caches entirely.
	if containerMatch == Explicit && tagMatch == Explicit {
		return containsTag(c.tags, tag)
	}
	for _, member := range c.tags {
		if tag.reg.TagsMatch(member, tagMatch, tag, containerMatch) {
			return true
		}
	}
	return false
}

// hasTagOrDescendant is HasTag(tag, Explicit, IncludeParentTags) without
// the dispatch: tag matches a member equal to it or one descending from
// it, using only the members' precomputed ancestor sets.
func (c Container) hasTagOrDescendant(tag Tag) bool {
	if !tag.IsValid() {
		return false
	}
	if containsTag(c.tags, tag) {
		return true
	}
	for _, member := range c.tags {
		if containsTag(tag.reg.parentsOf(member), tag) {
			return true
		}
	}
	return false
}

// MatchesAny reports whether any tag of other is in this container, a
// member descending from it counting as a match. An empty other yields
// countEmptyAsMatch.
func (c Container) MatchesAny(other Container, countEmptyAsMatch bool) bool {
	if other.IsEmpty() {
		return countEmptyAsMatch
	}
	for _, t := range other.tags {
		if c.hasTagOrDescendant(t) {
			return true
		}
	}
	return false
}

// MatchesAll reports whether every tag of other is in this container, a
// member descending from it counting as a match. An empty other yields
// countEmptyAsMatch.
func (c Container) MatchesAll(other Container, countEmptyAsMatch bool) bool {
	if other.IsEmpty() {
		return countEmptyAsMatch
	}
	for _, t := range other.tags {
		if !c.hasTagOrDescendant(t) {
			return false
		}
	}
	return true
}

// HasAnyTag reports whether any tag of other is a member, exactly.
func (c Container) HasAnyTag(other Container) bool {
	for _, t := range other.tags {
		if containsTag(c.tags, t) {
			return true
		}
	}
	return false
}

// HasAllTags reports whether every tag of other is a member, exactly. An
// empty other is always satisfied.
func (c Container) HasAllTags(other Container) bool {
	for _, t := range other.tags {
		if !containsTag(c.tags, t) {
			return false
		}
	}
	return true
}

// Filter returns the members that other has, compared with HasTag and the
// given match types.
func (c Container) Filter(other Container, containerMatch, tagMatch MatchType) Container {
	var out []Tag
	for _, t := range c.tags {
		if other.HasTag(t, containerMatch, tagMatch) {
			out = append(out, t)
		}
	}
	return Container{tags: out}
}

// Equal reports whether both containers hold the same tags in any order.
func (c Container) Equal(other Container) bool {
	return len(c.tags) == len(other.tags) && c.HasAllTags(other)
}

// Names returns the complete names in insertion order.
func (c Container) Names() []string {
	names := make([]string, len(c.tags))
	for i, t := range c.tags {
		names[i] = t.Name()
	}
	return names
}

// String returns the names quoted and comma separated.
func (c Container) String() string {
	var sb strings.Builder
	for i, t := range c.tags {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('"')
		sb.WriteString(t.Name())
		sb.WriteByte('"')
	}
	return sb.String()
}

// StringSimple returns the names comma separated without quotes.
func (c Container) StringSimple() string {
	return strings.Join(c.Names(), ", ")
}
