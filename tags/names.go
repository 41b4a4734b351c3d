package tags

import "sync"

// NameID is the interned handle of a complete or simple tag name.
type NameID uint32

// NoneName is the handle of "", the name of the invalid tag.
const NoneName NameID = 0

// NameTable maps tag names to NameIDs. Slot 0 always holds "" so the zero
// Tag reads as None. Names are never released: a rebuilt tree re-interns
// the same strings and gets the same handles back, which keeps tags held
// across a rebuild comparable.
//
// Readers and the loading goroutine may use the table concurrently.
type NameTable struct {
	mu    sync.RWMutex
	ids   map[string]NameID
	names []string
}

// NewNameTable returns a table holding only the None slot.
func NewNameTable() *NameTable {
	return &NameTable{
		ids:   map[string]NameID{"": NoneName},
		names: []string{""},
	}
}

// Lookup returns the handle of name if it was interned before.
func (nt *NameTable) Lookup(name string) (NameID, bool) {
	nt.mu.RLock()
	id, ok := nt.ids[name]
	nt.mu.RUnlock()
	return id, ok
}

// Intern returns the handle of name, adding it on first sight.
func (nt *NameTable) Intern(name string) NameID {
	if id, ok := nt.Lookup(name); ok {
		return id
	}

	nt.mu.Lock()
	defer nt.mu.Unlock()
	// another goroutine may have added it between the two locks
	if id, ok := nt.ids[name]; ok {
		return id
	}
	id := NameID(len(nt.names))
	nt.ids[name] = id
	nt.names = append(nt.names, name)
	return id
}

// Name returns the string behind id. Unknown handles read as "".
func (nt *NameTable) Name(id NameID) string {
	nt.mu.RLock()
	defer nt.mu.RUnlock()
	if int(id) < len(nt.names) {
		return nt.names[id]
	}
	return ""
}

// Len counts the interned names, the None slot included.
func (nt *NameTable) Len() int {
	nt.mu.RLock()
	defer nt.mu.RUnlock()
	return len(nt.names)
}
