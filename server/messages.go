package server

// ServiceName is the fully qualified service name.
const ServiceName = "gametags.v1.TagService"

// Procedure paths.
const (
	RequestTagProcedure    = "/" + ServiceName + "/RequestTag"
	TagParentsProcedure    = "/" + ServiceName + "/TagParents"
	TagChildrenProcedure   = "/" + ServiceName + "/TagChildren"
	MatchQueryProcedure    = "/" + ServiceName + "/MatchQuery"
	NetIndexTableProcedure = "/" + ServiceName + "/NetIndexTable"
	RebuildProcedure       = "/" + ServiceName + "/Rebuild"
)

// TagRequest names one tag.
type TagRequest struct {
	Name string `cbor:"1,keyasint"`
}

// TagInfo describes one dictionary entry.
type TagInfo struct {
	Name     string `cbor:"1,keyasint"`
	Valid    bool   `cbor:"2,keyasint"`
	Category string `cbor:"3,keyasint,omitempty"`
	NetIndex uint16 `cbor:"4,keyasint"`
}

// TagListResponse is a list of complete names.
type TagListResponse struct {
	Tags []string `cbor:"1,keyasint"`
}

// MatchQueryRequest evaluates an archived query against a set of tag
// names.
type MatchQueryRequest struct {
	// Query is the query in archive form.
	Query []byte   `cbor:"1,keyasint"`
	Tags  []string `cbor:"2,keyasint"`
}

// MatchQueryResponse carries the result of MatchQuery.
type MatchQueryResponse struct {
	Matches     bool   `cbor:"1,keyasint"`
	Description string `cbor:"2,keyasint,omitempty"`
}

// NetIndexTableRequest is empty.
type NetIndexTableRequest struct{}

// NetIndexTableResponse is the replication table of the serving registry.
type NetIndexTableResponse struct {
	Names        []string `cbor:"1,keyasint"`
	Digest       []byte   `cbor:"2,keyasint"`
	TrueBits     int      `cbor:"3,keyasint"`
	FirstSegment int      `cbor:"4,keyasint"`
}

// RebuildRequest is empty.
type RebuildRequest struct{}

// RebuildResponse reports the size of the rebuilt dictionary.
type RebuildResponse struct {
	NumTags int `cbor:"1,keyasint"`
}
