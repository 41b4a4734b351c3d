package tags

// Requirements gates something on the tags of a subject: every Require
// tag must be present and no Ignore tag may be.
type Requirements struct {
	Require Container
	Ignore  Container
}

// Met reports whether c satisfies the requirements.
func (rq Requirements) Met(c Container) bool {
	return c.MatchesAll(rq.Require, true) && !c.MatchesAny(rq.Ignore, false)
}

// IsEmpty reports whether there is nothing to check.
func (rq Requirements) IsEmpty() bool {
	return rq.Require.IsEmpty() && rq.Ignore.IsEmpty()
}

// InheritedContainer layers tags over a parent definition. Combined is the
// parent's combined tags minus Removed, plus Added.
type InheritedContainer struct {
	Combined Container
	Added    Container
	Removed  Container
}

// UpdateInherited recomputes Combined from parent, which may be nil.
func (ic *InheritedContainer) UpdateInherited(parent *InheritedContainer) {
	ic.Combined.RemoveAllTags()

	if parent != nil {
		for _, t := range parent.Combined.tags {
			// Removing Foo strips every inherited Foo.* tag.
			if !ic.Removed.HasTag(t, IncludeParentTags, Explicit) {
				ic.Combined.AddTag(t)
			}
		}
	}

	for _, t := range ic.Added.tags {
		// Only an exact removal beats an add, so Foo.Bar can be re-added
		// under a removed Foo.
		if !ic.Removed.HasTag(t, Explicit, Explicit) {
			ic.Combined.AddTag(t)
		}
	}
}

// AddTag adds t to the combined tags.
func (ic *InheritedContainer) AddTag(t Tag) {
	ic.Combined.AddTag(t)
}

// RemoveTag removes t from the combined tags.
func (ic *InheritedContainer) RemoveTag(t Tag) {
	ic.Combined.RemoveTag(t)
}
