package tags

// EventType selects when a tag count callback fires.
type EventType uint8

const (
	// EventNewOrRemoved fires when a count moves off or back to zero.
	EventNewOrRemoved EventType = iota
	// EventAnyCountChange fires on every count change.
	EventAnyCountChange
)

// CountCallback receives the tag whose count changed and its new count.
type CountCallback func(t Tag, newCount int)

type countListener struct {
	id   int
	kind EventType
	fn   CountCallback
}

// CountContainer tracks how many times each tag has been granted. Every
// grant also counts toward each ancestor, so a query for "Status" sees a
// granted "Status.Stunned".
type CountContainer struct {
	counts         map[Tag]int // parent inclusive
	explicitCounts map[Tag]int
	explicit       Container

	listeners map[Tag][]countListener
	nextID    int
}

// NewCountContainer creates an empty CountContainer.
func NewCountContainer() *CountContainer {
	return &CountContainer{
		counts:         make(map[Tag]int),
		explicitCounts: make(map[Tag]int),
		listeners:      make(map[Tag][]countListener),
	}
}

// ExplicitTags returns the tags granted directly, without ancestors.
func (cc *CountContainer) ExplicitTags() Container {
	return cc.explicit.Clone()
}

// TagCount returns the parent inclusive count of t.
func (cc *CountContainer) TagCount(t Tag) int {
	return cc.counts[t]
}

// ExplicitTagCount returns how many times t itself was granted.
func (cc *CountContainer) ExplicitTagCount(t Tag) int {
	return cc.explicitCounts[t]
}

// HasMatchingTag reports whether t or a descendant of it is granted.
func (cc *CountContainer) HasMatchingTag(t Tag) bool {
	return cc.counts[t] > 0
}

// HasAllMatchingTags reports whether every tag of c is granted, counting
// descendants. An empty c is satisfied.
func (cc *CountContainer) HasAllMatchingTags(c Container) bool {
	for _, t := range c.tags {
		if cc.counts[t] <= 0 {
			return false
		}
	}
	return true
}

// HasAnyMatchingTags reports whether any tag of c is granted, counting
// descendants.
func (cc *CountContainer) HasAnyMatchingTags(c Container) bool {
	for _, t := range c.tags {
		if cc.counts[t] > 0 {
			return true
		}
	}
	return false
}

// UpdateContainerCount applies delta to every tag of c.
func (cc *CountContainer) UpdateContainerCount(c Container, delta int) {
	for _, t := range c.tags {
		cc.UpdateTagCount(t, delta)
	}
}

// UpdateTagCount applies delta to t and its ancestors. It returns true
// when any of those counts crossed zero. Removing a tag that was never
// granted is ignored.
func (cc *CountContainer) UpdateTagCount(t Tag, delta int) bool {
	if delta == 0 || !t.IsValid() {
		return false
	}

	if cc.explicitCounts[t] == 0 {
		if delta < 0 {
			log.Warningf("attempted to remove tag %s which was never granted", t)
			return false
		}
		cc.explicit.AddTagFast(t)
	}
	// A removal never takes away more than t itself contributed.
	if delta < -cc.explicitCounts[t] {
		delta = -cc.explicitCounts[t]
	}
	explicit := cc.explicitCounts[t] + delta
	if explicit <= 0 {
		delete(cc.explicitCounts, t)
		cc.explicit.RemoveTag(t)
	} else {
		cc.explicitCounts[t] = explicit
	}

	type change struct {
		tag         Tag
		count       int
		significant bool
	}
	affected := t.reg.TagParents(t)
	changes := make([]change, 0, affected.Num())
	significant := false
	for _, cur := range affected.tags {
		old := cc.counts[cur]
		count := old + delta
		if count < 0 {
			count = 0
		}
		if count == 0 {
			delete(cc.counts, cur)
		} else {
			cc.counts[cur] = count
		}
		crossed := (old == 0) != (count == 0)
		significant = significant || crossed
		changes = append(changes, change{tag: cur, count: count, significant: crossed})
	}

	// Callbacks run once every count is consistent.
	for _, ch := range changes {
		for _, l := range cc.listeners[ch.tag] {
			if l.kind == EventAnyCountChange || ch.significant {
				l.fn(ch.tag, ch.count)
			}
		}
	}
	return significant
}

// RegisterTagEvent calls fn when the count of t changes per kind. The
// returned func unregisters it.
func (cc *CountContainer) RegisterTagEvent(t Tag, kind EventType, fn CountCallback) func() {
	id := cc.nextID
	cc.nextID++
	cc.listeners[t] = append(cc.listeners[t], countListener{id: id, kind: kind, fn: fn})
	return func() {
		ls := cc.listeners[t]
		for i, l := range ls {
			if l.id == id {
				cc.listeners[t] = append(ls[:i:i], ls[i+1:]...)
				break
			}
		}
		if len(cc.listeners[t]) == 0 {
			delete(cc.listeners, t)
		}
	}
}
