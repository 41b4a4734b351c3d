package query

import "github.com/chazu/gametags/tags"

// Matches evaluates q against c. Leaf tags match subject tags equal to
// them or descending from them. Sub-expressions after a decided result
// are walked in skip mode, which advances the cursor without touching
// the container. An empty or malformed query never matches.
func (q Query) Matches(c tags.Container) bool {
	if q.IsEmpty() {
		return false
	}
	ev := evaluator{decoder: decoder{q: &q, pos: 2}, subject: c}
	result := ev.eval(false)
	if ev.err == nil && ev.pos != len(q.tokens) {
		ev.err = ErrMalformedQuery
	}
	if ev.err != nil {
		log.Errorf("evaluating query %q: %v", q.desc, ev.err)
		return false
	}
	return result
}

type evaluator struct {
	decoder
	subject tags.Container
}

func (ev *evaluator) eval(skip bool) bool {
	typ := ExprType(ev.next())
	if ev.err != nil {
		return false
	}
	switch typ {
	case AnyTagsMatch:
		return ev.anyTags(skip)
	case AllTagsMatch:
		return ev.allTags(skip)
	case NoTagsMatch:
		return ev.noTags(skip)
	case AnyExprMatch:
		return ev.anyExpr(skip)
	case AllExprMatch:
		return ev.allExpr(skip)
	case NoExprMatch:
		return ev.noExpr(skip)
	}
	ev.err = ErrMalformedQuery
	return false
}

func (ev *evaluator) has(idx byte) bool {
	t := ev.tag(idx)
	return ev.subject.HasTag(t, tags.Explicit, tags.IncludeParentTags)
}

func (ev *evaluator) anyTags(skip bool) bool {
	result := false
	done := skip
	n := int(ev.next())
	for i := 0; i < n; i++ {
		idx := ev.next()
		if ev.err != nil {
			return false
		}
		if !done && ev.has(idx) {
			result = true
			done = true
		}
	}
	return result
}

func (ev *evaluator) allTags(skip bool) bool {
	result := true
	done := skip
	n := int(ev.next())
	for i := 0; i < n; i++ {
		idx := ev.next()
		if ev.err != nil {
			return false
		}
		if !done && !ev.has(idx) {
			result = false
			done = true
		}
	}
	return result
}

func (ev *evaluator) noTags(skip bool) bool {
	result := true
	done := skip
	n := int(ev.next())
	for i := 0; i < n; i++ {
		idx := ev.next()
		if ev.err != nil {
			return false
		}
		if !done && ev.has(idx) {
			result = false
			done = true
		}
	}
	return result
}

func (ev *evaluator) anyExpr(skip bool) bool {
	result := false
	done := skip
	n := int(ev.next())
	for i := 0; i < n; i++ {
		matched := ev.eval(done)
		if ev.err != nil {
			return false
		}
		if !done && matched {
			result = true
			done = true
		}
	}
	return result
}

func (ev *evaluator) allExpr(skip bool) bool {
	result := true
	done := skip
	n := int(ev.next())
	for i := 0; i < n; i++ {
		matched := ev.eval(done)
		if ev.err != nil {
			return false
		}
		if !done && !matched {
			result = false
			done = true
		}
	}
	return result
}

func (ev *evaluator) noExpr(skip bool) bool {
	result := true
	done := skip
	n := int(ev.next())
	for i := 0; i < n; i++ {
		matched := ev.eval(done)
		if ev.err != nil {
			return false
		}
		if !done && matched {
			result = false
			done = true
		}
	}
	return result
}
