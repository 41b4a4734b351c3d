package tags

import (
	"crypto/sha256"
	"math/bits"
	"sort"
)

// NetIndex is the compact replication handle of a tag.
type NetIndex uint16

const (
	// UnassignedNetIndex marks a node that has no net index yet.
	UnassignedNetIndex NetIndex = 1<<16 - 1

	// MaxNetTags is the largest table whose sentinel still fits a NetIndex.
	MaxNetTags = 1<<16 - 2
)

// ConstructNetIndex assigns net indices. Nodes are ordered by complete
// name so independently built registries agree, then the commonly
// replicated tags are moved to the front in their configured order.
// Tags past the configured maximum get no index and always replicate as
// the sentinel.
func (r *Registry) ConstructNetIndex() {
	for i := range r.nodes {
		r.nodes[i].netIndex = UnassignedNetIndex
	}

	table := make([]nodeIndex, 0, r.NumTags())
	for i := 1; i < len(r.nodes); i++ {
		table = append(table, nodeIndex(i))
	}
	sort.Slice(table, func(i, j int) bool {
		return r.nodes[table[i]].tag.Name() < r.nodes[table[j]].tag.Name()
	})

	front := 0
	for _, name := range r.settings.CommonlyReplicated {
		t, ok := r.FindTag(name)
		if !ok {
			log.Warningf("commonly replicated tag %q is not in the dictionary", name)
			continue
		}
		idx := r.nodesByTag[t.id]
		pos := -1
		for i := front; i < len(table); i++ {
			if table[i] == idx {
				pos = i
				break
			}
		}
		if pos < 0 {
			// listed twice
			continue
		}
		// Shift [front, pos) right by one so the remainder keeps its
		// alphabetical order.
		copy(table[front+1:pos+1], table[front:pos])
		table[front] = idx
		front++
	}

	limit := r.maxNetTags
	if limit <= 0 || limit > MaxNetTags {
		limit = MaxNetTags
	}
	if len(table) > limit {
		log.Errorf("%d tags exceed the net index space of %d; %d tags will not replicate",
			len(table), limit, len(table)-limit)
		table = table[:limit]
	}

	for i, idx := range table {
		r.nodes[idx].netIndex = NetIndex(i)
	}
	r.netTable = table
}

// InvalidNetIndex returns the sentinel sent for "no tag": the table size
// plus one.
func (r *Registry) InvalidNetIndex() NetIndex {
	return NetIndex(len(r.netTable) + 1)
}

// NetIndexTrueBitNum returns the bit width needed to send every valid
// index and the sentinel.
func (r *Registry) NetIndexTrueBitNum() int {
	return bits.Len(uint(r.InvalidNetIndex()))
}

// FirstBitSegment returns the configured first segment width clamped to
// the true width.
func (r *Registry) FirstBitSegment() int {
	first := r.settings.FirstBitSegment
	if first <= 0 {
		first = DefaultSettings().FirstBitSegment
	}
	if trueBits := r.NetIndexTrueBitNum(); first > trueBits {
		return trueBits
	}
	return first
}

// NetIndexFromTag returns the net index of t, or the sentinel for the
// invalid tag and for tags outside the table.
func (r *Registry) NetIndexFromTag(t Tag) NetIndex {
	idx, ok := r.lookupNode(t)
	if !ok || r.nodes[idx].netIndex == UnassignedNetIndex {
		return r.InvalidNetIndex()
	}
	return r.nodes[idx].netIndex
}

// TagFromNetIndex decodes a received index. The sentinel decodes to the
// invalid tag; any other index outside the table means the peers'
// dictionaries disagree and is logged.
func (r *Registry) TagFromNetIndex(i NetIndex) Tag {
	if int(i) < len(r.netTable) {
		return r.nodes[r.netTable[i]].tag
	}
	if i != r.InvalidNetIndex() {
		log.Warningf("received net index %d outside table of %d tags; peer dictionaries differ", i, len(r.netTable))
	}
	return Tag{}
}

// TagNameFromNetIndex returns the name for a received index, "" for None.
func (r *Registry) TagNameFromNetIndex(i NetIndex) string {
	return r.TagFromNetIndex(i).Name()
}

// NetIndexTable returns the complete names in net index order.
func (r *Registry) NetIndexTable() []string {
	names := make([]string, len(r.netTable))
	for i, idx := range r.netTable {
		names[i] = r.nodes[idx].tag.Name()
	}
	return names
}

// NetIndexDigest hashes the ordered net index table. Peers with equal
// digests decode each other's indices identically.
func (r *Registry) NetIndexDigest() [32]byte {
	h := sha256.New()
	for _, name := range r.NetIndexTable() {
		h.Write([]byte(name))
		h.Write([]byte{0})
	}
	var sum [32]byte
	copy(sum[:], h.Sum(nil))
	return sum
}

// NetIndexReport estimates how the commonly replicated list pays off.
type NetIndexReport struct {
	TableSize       int
	TrueBits        int
	FirstSegment    int
	CommonlyInFront int
	// CommonBits is the packed width of a commonly replicated tag.
	CommonBits int
	// WorstBits is the packed width of an index past the first segment.
	WorstBits int
	// SavedBitsPerTag is TrueBits minus CommonBits (never negative).
	SavedBitsPerTag int
}

// NetIndexReport summarizes the current table.
func (r *Registry) NetIndexReport() NetIndexReport {
	trueBits := r.NetIndexTrueBitNum()
	first := r.FirstBitSegment()

	common := 0
	for _, name := range r.settings.CommonlyReplicated {
		if t, ok := r.FindTag(name); ok && int(r.NetIndexFromTag(t)) < len(r.netTable) {
			common++
		}
	}

	rep := NetIndexReport{
		TableSize:       len(r.netTable),
		TrueBits:        trueBits,
		FirstSegment:    first,
		CommonlyInFront: common,
		CommonBits:      PackedIndexBits(0, first, trueBits),
		WorstBits:       PackedIndexBits(int(r.InvalidNetIndex()), first, trueBits),
	}
	if saved := trueBits - rep.CommonBits; saved > 0 {
		rep.SavedBitsPerTag = saved
	}
	return rep
}

// PackedIndexBits returns how many bits the two-segment format spends on
// index, given the segment and true widths.
func PackedIndexBits(index, first, trueBits int) int {
	if trueBits <= first {
		return trueBits
	}
	if index < 1<<first {
		return first + 1
	}
	return trueBits + 1
}
