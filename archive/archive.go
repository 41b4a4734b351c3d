// Package archive persists containers, queries and tag tables as
// canonical CBOR. Tags are stored by complete name, so an archive
// outlives the process that wrote it; names are passed through the
// loading registry's redirects.
package archive

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/gametags/query"
	"github.com/chazu/gametags/tags"
)

// cborEncMode uses canonical options so equal values encode to equal
// bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("archive: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// ContainerRecord is the stored form of a tag container.
type ContainerRecord struct {
	Tags []string `cbor:"1,keyasint"`
}

// QueryRecord is the stored form of a query. The dictionary keeps one
// name per slot, so the token stream stays valid after loading even when
// a name no longer resolves.
type QueryRecord struct {
	Version     uint8    `cbor:"1,keyasint"`
	Dictionary  []string `cbor:"2,keyasint"`
	Tokens      []byte   `cbor:"3,keyasint"`
	Description string   `cbor:"4,keyasint,omitempty"`
}

// TableRecord is a snapshot of a registry's tag table.
type TableRecord struct {
	Rows []tags.TableRow `cbor:"1,keyasint"`
}

// MarshalContainer serializes c to CBOR bytes.
func MarshalContainer(c tags.Container) ([]byte, error) {
	return cborEncMode.Marshal(&ContainerRecord{Tags: c.Names()})
}

// UnmarshalContainer deserializes a container, resolving names against
// reg. Removed and unknown names are dropped.
func UnmarshalContainer(reg *tags.Registry, data []byte) (tags.Container, error) {
	var rec ContainerRecord
	if err := cbor.Unmarshal(data, &rec); err != nil {
		return tags.Container{}, fmt.Errorf("archive: unmarshal container: %w", err)
	}
	return reg.RedirectTags(rec.Tags), nil
}

// MarshalQuery serializes q to CBOR bytes.
func MarshalQuery(q query.Query) ([]byte, error) {
	dict := q.Dictionary()
	rec := QueryRecord{
		Version:     q.Version(),
		Dictionary:  make([]string, len(dict)),
		Tokens:      q.Tokens(),
		Description: q.Description(),
	}
	for i, t := range dict {
		rec.Dictionary[i] = t.Name()
	}
	return cborEncMode.Marshal(&rec)
}

// UnmarshalQuery deserializes a query, resolving its dictionary against
// reg. A slot whose name no longer resolves holds the invalid tag, which
// matches nothing.
func UnmarshalQuery(reg *tags.Registry, data []byte) (query.Query, error) {
	var rec QueryRecord
	if err := cbor.Unmarshal(data, &rec); err != nil {
		return query.Query{}, fmt.Errorf("archive: unmarshal query: %w", err)
	}
	dict := make([]tags.Tag, len(rec.Dictionary))
	for i, name := range rec.Dictionary {
		dict[i] = reg.RedirectTag(name)
	}
	q, err := query.FromStream(rec.Version, dict, rec.Tokens, rec.Description)
	if err != nil {
		return query.Query{}, fmt.Errorf("archive: %w", err)
	}
	return q, nil
}

// MarshalTable snapshots every tag of reg with its category.
func MarshalTable(reg *tags.Registry) ([]byte, error) {
	all := reg.AllTags()
	rec := TableRecord{Rows: make([]tags.TableRow, 0, all.Num())}
	all.Each(func(t tags.Tag) bool {
		rec.Rows = append(rec.Rows, tags.TableRow{Tag: t.Name(), Category: reg.Category(t)})
		return true
	})
	return cborEncMode.Marshal(&rec)
}

// UnmarshalTable deserializes a table snapshot.
func UnmarshalTable(data []byte) ([]tags.TableRow, error) {
	var rec TableRecord
	if err := cbor.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("archive: unmarshal table: %w", err)
	}
	return rec.Rows, nil
}
