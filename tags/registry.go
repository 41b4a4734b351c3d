package tags

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/tliron/commonlog"

	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("gametags.registry")

// TableRow is one row of a tag table.
type TableRow struct {
	Tag        string `toml:"tag" cbor:"1,keyasint"`
	Category   string `toml:"category" cbor:"2,keyasint,omitempty"`
	DevComment string `toml:"dev-comment" cbor:"3,keyasint,omitempty"`
}

// Source supplies tag table rows. Sources are read in the order they
// were added to the registry.
type Source interface {
	Name() string
	Rows(ctx context.Context) ([]TableRow, error)
}

// Settings carries the dictionary flags normally read from gametags.toml.
type Settings struct {
	// ImportFromConfig inserts the config and developer tag lists after
	// all table sources.
	ImportFromConfig bool
	// WarnOnInvalid logs unresolvable names found while redirecting.
	WarnOnInvalid bool
	// FastReplication enables index based replication and builds the
	// net index table with the tree.
	FastReplication bool
	// FirstBitSegment is the width of the first packed index segment.
	FirstBitSegment int
	// ContainerSizeBits is the width of the packed container count.
	ContainerSizeBits int
	// CommonlyReplicated lists tags moved to the front of the net index
	// table, in priority order.
	CommonlyReplicated []string
}

// DefaultSettings returns the settings used when none are configured.
func DefaultSettings() Settings {
	return Settings{
		ImportFromConfig:  true,
		WarnOnInvalid:     true,
		FastReplication:   true,
		FirstBitSegment:   16,
		ContainerSizeBits: 6,
	}
}

// ---------------------------------------------------------------------------
// Node arena
// ---------------------------------------------------------------------------

type nodeIndex int32

const (
	noNode   nodeIndex = -1
	rootNode nodeIndex = 0
)

// node is one path segment of the tree.
type node struct {
	simple   NameID
	tag      Tag
	category string
	children []nodeIndex
	parent   nodeIndex
	parents  []Tag // every ancestor, nearest first
	netIndex NetIndex
}

// ---------------------------------------------------------------------------
// Registry
// ---------------------------------------------------------------------------

// Registry owns the tag tree and answers identity, ancestry and net index
// queries. Building and rebuilding the tree must happen on one goroutine
// with no concurrent readers, except RequestTag which may be called while
// tables are still loading.
type Registry struct {
	names    *NameTable
	settings Settings

	sources    []Source
	configTags []TableRow
	devTags    []TableRow

	// mu guards tagsByName only.
	mu         sync.RWMutex
	tagsByName map[string]Tag

	nodes      []node
	nodesByTag map[NameID]nodeIndex
	built      bool

	netTable   []nodeIndex
	maxNetTags int

	redirects map[string]string

	warnMu sync.Mutex
	warned map[string]struct{}

	listeners    map[int]func(*Registry)
	nextListener int
}

// Option configures a Registry.
type Option func(*Registry)

// WithSettings replaces the default settings.
func WithSettings(s Settings) Option {
	return func(r *Registry) { r.settings = s }
}

// WithSources appends tag table sources.
func WithSources(sources ...Source) Option {
	return func(r *Registry) { r.sources = append(r.sources, sources...) }
}

// WithConfigTags sets the tag list imported from configuration.
func WithConfigTags(rows []TableRow) Option {
	return func(r *Registry) { r.configTags = append([]TableRow(nil), rows...) }
}

// WithDeveloperTags sets the per-developer list merged after the config
// list.
func WithDeveloperTags(rows []TableRow) Option {
	return func(r *Registry) { r.devTags = append([]TableRow(nil), rows...) }
}

// WithRedirects installs the old->new rename table.
func WithRedirects(redirects []Redirect) Option {
	return func(r *Registry) { r.SetRedirects(redirects) }
}

// WithMaxNetTags caps the number of tags given a net index.
func WithMaxNetTags(n int) Option {
	return func(r *Registry) { r.maxNetTags = n }
}

// NewRegistry creates a registry with an empty tree. Call ConstructTree
// to load it.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		names:      NewNameTable(),
		settings:   DefaultSettings(),
		maxNetTags: MaxNetTags,
		redirects:  make(map[string]string),
		warned:     make(map[string]struct{}),
		listeners:  make(map[int]func(*Registry)),
	}
	r.resetTree()
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns a process-wide registry with default settings. Code
// that owns its configuration should create its own with NewRegistry.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// Settings returns the active settings.
func (r *Registry) Settings() Settings {
	return r.settings
}

// Names returns the registry's name table.
func (r *Registry) Names() *NameTable {
	return r.names
}

// AddSource appends a tag table source. It takes effect on the next
// (re)build.
func (r *Registry) AddSource(src Source) {
	r.sources = append(r.sources, src)
}

// AddConfigTag appends a tag to the config list. It takes effect on the
// next (re)build.
func (r *Registry) AddConfigTag(row TableRow) {
	r.configTags = append(r.configTags, row)
}

// IsBuilt reports whether ConstructTree has completed.
func (r *Registry) IsBuilt() bool {
	return r.built
}

func (r *Registry) resetTree() {
	r.mu.Lock()
	r.tagsByName = make(map[string]Tag)
	r.mu.Unlock()

	r.nodes = []node{{parent: noNode, netIndex: UnassignedNetIndex}}
	r.nodesByTag = make(map[NameID]nodeIndex)
	r.netTable = nil
	r.built = false
}

// ConstructTree loads every source, then the config and developer lists,
// then the net index table. It does nothing if the tree already exists.
func (r *Registry) ConstructTree(ctx context.Context) error {
	if r.built {
		return nil
	}

	for _, src := range r.sources {
		if err := ctx.Err(); err != nil {
			r.resetTree()
			return err
		}
		rows, err := src.Rows(ctx)
		if err != nil {
			r.resetTree()
			return fmt.Errorf("loading tag table %s: %w", src.Name(), err)
		}
		r.insertRows(rows)
		log.Debugf("loaded %d rows from %s", len(rows), src.Name())
	}

	if r.settings.ImportFromConfig {
		r.insertRows(r.configTags)
		r.insertRows(r.devTags)
	}

	if r.settings.FastReplication {
		r.ConstructNetIndex()
	}

	r.built = true
	log.Infof("tag tree built: %d tags", r.NumTags())
	r.broadcastTreeChanged()
	return nil
}

// DestroyTree discards every node. Interned names survive, so tags held
// elsewhere stay comparable with tags minted after the rebuild.
func (r *Registry) DestroyTree() {
	r.resetTree()
}

// RebuildTree destroys and reconstructs the tree from its sources.
func (r *Registry) RebuildTree(ctx context.Context) error {
	r.DestroyTree()
	return r.ConstructTree(ctx)
}

func (r *Registry) insertRows(rows []TableRow) {
	for _, row := range rows {
		if !r.InsertTag(row.Tag, row.Category).IsValid() {
			log.Warningf("skipping empty tag row (category %q)", row.Category)
		}
	}
}

// splitTagPath splits a dotted name, dropping empty segments and
// surrounding whitespace.
func splitTagPath(path string) []string {
	parts := strings.Split(path, ".")
	segments := parts[:0]
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			segments = append(segments, p)
		}
	}
	return segments
}

// InsertTag adds a dotted path to the tree, creating any missing
// intermediate nodes, and returns the leaf's tag. The category is
// attached to the leaf only.
func (r *Registry) InsertTag(path, category string) Tag {
	segments := splitTagPath(path)
	if len(segments) == 0 {
		return Tag{}
	}

	parent := rootNode
	for i, seg := range segments {
		cat := ""
		if i == len(segments)-1 {
			cat = category
		}
		parent = r.insertTagIntoNodeArray(seg, parent, cat)
	}
	return r.nodes[parent].tag
}

// insertTagIntoNodeArray finds or creates the child of parent named
// simple. The same path inserted twice resolves to the same node.
func (r *Registry) insertTagIntoNodeArray(simple string, parent nodeIndex, category string) nodeIndex {
	simpleID := r.names.Intern(simple)

	for _, child := range r.nodes[parent].children {
		n := &r.nodes[child]
		if n.simple == simpleID {
			if n.category == "" && category != "" {
				n.category = category
			}
			return child
		}
	}

	complete := simple
	if parent != rootNode {
		complete = r.nodes[parent].tag.Name() + "." + simple
	}
	tag := Tag{id: r.names.Intern(complete), reg: r}

	var parents []Tag
	for p := parent; p != rootNode; p = r.nodes[p].parent {
		parents = append(parents, r.nodes[p].tag)
	}

	idx := nodeIndex(len(r.nodes))
	r.nodes = append(r.nodes, node{
		simple:   simpleID,
		tag:      tag,
		category: category,
		parent:   parent,
		parents:  parents,
		netIndex: UnassignedNetIndex,
	})
	r.nodes[parent].children = append(r.nodes[parent].children, idx)

	r.mu.Lock()
	r.tagsByName[complete] = tag
	r.mu.Unlock()
	r.nodesByTag[tag.id] = idx

	return idx
}

// ---------------------------------------------------------------------------
// Lookup
// ---------------------------------------------------------------------------

// RequestTag returns the tag with the given complete name, or the invalid
// tag. With errorIfNotFound set, the first miss for each name is logged.
func (r *Registry) RequestTag(name string, errorIfNotFound bool) Tag {
	r.mu.RLock()
	t, ok := r.tagsByName[name]
	r.mu.RUnlock()
	if ok {
		return t
	}
	if errorIfNotFound {
		r.warnOnce(name, func() { log.Errorf("requested tag %q was not found", name) })
	}
	return Tag{}
}

// FindTag is RequestTag without logging.
func (r *Registry) FindTag(name string) (Tag, bool) {
	t := r.RequestTag(name, false)
	return t, t.IsValid()
}

// MustTag returns the named tag or panics. Meant for tests and static
// initialization against a known dictionary.
func (r *Registry) MustTag(name string) Tag {
	t, ok := r.FindTag(name)
	if !ok {
		panic(fmt.Sprintf("tags: unknown tag %q", name))
	}
	return t
}

// warnOnce runs emit the first time key is seen.
func (r *Registry) warnOnce(key string, emit func()) {
	r.warnMu.Lock()
	_, seen := r.warned[key]
	if !seen {
		r.warned[key] = struct{}{}
	}
	r.warnMu.Unlock()
	if !seen {
		emit()
	}
}

func (r *Registry) lookupNode(t Tag) (nodeIndex, bool) {
	if !t.IsValid() || t.reg != r {
		return noNode, false
	}
	idx, ok := r.nodesByTag[t.id]
	return idx, ok
}

func (r *Registry) parentsOf(t Tag) []Tag {
	idx, ok := r.lookupNode(t)
	if !ok {
		return nil
	}
	return r.nodes[idx].parents
}

// IsRegistered reports whether t is a node of the current tree.
func (r *Registry) IsRegistered(t Tag) bool {
	_, ok := r.lookupNode(t)
	return ok
}

// NumTags returns the number of nodes, intermediate ones included.
func (r *Registry) NumTags() int {
	return len(r.nodes) - 1
}

// SimpleName returns the last path segment of t.
func (r *Registry) SimpleName(t Tag) string {
	idx, ok := r.lookupNode(t)
	if !ok {
		return ""
	}
	return r.names.Name(r.nodes[idx].simple)
}

// Category returns the category description attached to t.
func (r *Registry) Category(t Tag) string {
	idx, ok := r.lookupNode(t)
	if !ok {
		return ""
	}
	return r.nodes[idx].category
}

// TagParents returns t together with every ancestor of it.
func (r *Registry) TagParents(t Tag) Container {
	idx, ok := r.lookupNode(t)
	if !ok {
		return Container{}
	}
	parents := r.nodes[idx].parents
	out := make([]Tag, 0, len(parents)+1)
	out = append(out, t)
	return Container{tags: append(out, parents...)}
}

// TagChildren returns every transitive descendant of t, depth first.
func (r *Registry) TagChildren(t Tag) Container {
	idx, ok := r.lookupNode(t)
	if !ok {
		return Container{}
	}
	return Container{tags: r.collectChildren(idx, nil)}
}

func (r *Registry) collectChildren(idx nodeIndex, out []Tag) []Tag {
	for _, child := range r.nodes[idx].children {
		out = append(out, r.nodes[child].tag)
		out = r.collectChildren(child, out)
	}
	return out
}

// DirectParent returns the tag one level above t, or the invalid tag for
// top-level tags.
func (r *Registry) DirectParent(t Tag) Tag {
	idx, ok := r.lookupNode(t)
	if !ok {
		return Tag{}
	}
	parent := r.nodes[idx].parent
	if parent == rootNode || parent == noNode {
		return Tag{}
	}
	return r.nodes[parent].tag
}

// AllTags returns every tag in the tree sorted by complete name.
func (r *Registry) AllTags() Container {
	all := make([]Tag, 0, r.NumTags())
	for _, n := range r.nodes[1:] {
		all = append(all, n.tag)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name() < all[j].Name() })
	return Container{tags: all}
}

// Walk visits the tree depth first in insertion order. Returning false
// from fn skips the children of that tag.
func (r *Registry) Walk(fn func(t Tag, depth int) bool) {
	r.walk(rootNode, 0, fn)
}

func (r *Registry) walk(idx nodeIndex, depth int, fn func(Tag, int) bool) {
	for _, child := range r.nodes[idx].children {
		if fn(r.nodes[child].tag, depth) {
			r.walk(child, depth+1, fn)
		}
	}
}

// ---------------------------------------------------------------------------
// Matching
// ---------------------------------------------------------------------------

// TagsMatch compares two tags. A side matched with IncludeParentTags
// stands for itself plus its ancestors; the tags match when the two
// sides share a member.
func (r *Registry) TagsMatch(one Tag, matchOne MatchType, two Tag, matchTwo MatchType) bool {
	if !one.IsValid() || !two.IsValid() || one.reg != two.reg {
		return false
	}

	// Explicit/Explicit is by far the common case and must not touch the
	// ancestor caches.
	if matchOne == Explicit && matchTwo == Explicit {
		return one == two
	}

	if one == two {
		return true
	}
	var parentsOne, parentsTwo []Tag
	if matchOne == IncludeParentTags {
		parentsOne = r.parentsOf(one)
		if containsTag(parentsOne, two) {
			return true
		}
	}
	if matchTwo == IncludeParentTags {
		parentsTwo = r.parentsOf(two)
		if containsTag(parentsTwo, one) {
			return true
		}
	}
	for _, p := range parentsOne {
		if containsTag(parentsTwo, p) {
			return true
		}
	}
	return false
}

func containsTag(list []Tag, t Tag) bool {
	for _, x := range list {
		if x == t {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Change notification
// ---------------------------------------------------------------------------

// OnTreeChanged registers fn to run after every successful tree build.
// The returned func unregisters it.
func (r *Registry) OnTreeChanged(fn func(*Registry)) func() {
	id := r.nextListener
	r.nextListener++
	r.listeners[id] = fn
	return func() { delete(r.listeners, id) }
}

func (r *Registry) broadcastTreeChanged() {
	ids := make([]int, 0, len(r.listeners))
	for id := range r.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		r.listeners[id](r)
	}
}
