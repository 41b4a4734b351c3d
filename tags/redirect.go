package tags

import "strings"

// Redirect renames a tag. An empty New (or "None") removes the tag
// wherever it is found.
type Redirect struct {
	Old string `toml:"old"`
	New string `toml:"new"`
}

// maxRedirectHops bounds chain following so a cycle cannot hang a load.
const maxRedirectHops = 10

// SetRedirects replaces the rename table. When the same old name appears
// twice with different targets the first mapping wins and the later one
// is dropped with a warning.
func (r *Registry) SetRedirects(redirects []Redirect) {
	r.redirects = make(map[string]string, len(redirects))
	for _, rd := range redirects {
		old := strings.TrimSpace(rd.Old)
		target := strings.TrimSpace(rd.New)
		if old == "" {
			continue
		}
		if prev, ok := r.redirects[old]; ok {
			if prev != target {
				log.Warningf("tag %q is redirected to both %q and %q; keeping %q", old, prev, target, prev)
			}
			continue
		}
		if old == target {
			log.Warningf("tag %q is redirected to itself; ignoring", old)
			continue
		}
		r.redirects[old] = target
	}
}

// RedirectName follows the rename table from name. It reports false when
// name is not redirected. The result is "" when the chain ends in a
// removal or a cycle.
func (r *Registry) RedirectName(name string) (string, bool) {
	target, ok := r.redirects[name]
	if !ok {
		return name, false
	}
	seen := map[string]struct{}{name: {}}
	for hop := 1; ; hop++ {
		if isNoneName(target) {
			return "", true
		}
		next, chained := r.redirects[target]
		if !chained {
			return target, true
		}
		if _, loop := seen[target]; loop || hop >= maxRedirectHops {
			r.warnOnce("redirect-loop:"+name, func() {
				log.Errorf("redirect chain from %q does not terminate; dropping tag", name)
			})
			return "", true
		}
		seen[target] = struct{}{}
		target = next
	}
}

func isNoneName(name string) bool {
	return name == "" || strings.EqualFold(name, "None")
}

// RedirectTag resolves a stored name to a tag, following redirects. Names
// that resolve to nothing are reported once when WarnOnInvalid is set.
func (r *Registry) RedirectTag(name string) Tag {
	resolved, redirected := r.RedirectName(name)
	if redirected && resolved == "" {
		return Tag{}
	}
	t := r.RequestTag(resolved, false)
	if !t.IsValid() && r.settings.WarnOnInvalid {
		r.warnOnce("invalid:"+name, func() {
			if redirected {
				log.Warningf("tag %q redirects to %q, which is not in the dictionary", name, resolved)
			} else {
				log.Warningf("stored tag %q is not in the dictionary and has no redirect", name)
			}
		})
	}
	return t
}

// RedirectTags resolves a list of stored names into a container,
// swapping redirected names and dropping removed or unknown ones.
func (r *Registry) RedirectTags(names []string) Container {
	var c Container
	for _, name := range names {
		if isNoneName(name) {
			continue
		}
		c.AddTag(r.RedirectTag(name))
	}
	return c
}
