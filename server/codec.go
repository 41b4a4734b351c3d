package server

import (
	"fmt"

	"connectrpc.com/connect"
	"github.com/fxamacker/cbor/v2"
)

// cborCodec carries service messages as canonical CBOR.
type cborCodec struct {
	em cbor.EncMode
}

var _ connect.Codec = (*cborCodec)(nil)

func newCBORCodec() *cborCodec {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("server: failed to create CBOR enc mode: %v", err))
	}
	return &cborCodec{em: em}
}

// Name is the codec name negotiated in the content type.
func (c *cborCodec) Name() string { return "cbor" }

func (c *cborCodec) Marshal(msg any) ([]byte, error) {
	return c.em.Marshal(msg)
}

func (c *cborCodec) Unmarshal(data []byte, msg any) error {
	return cbor.Unmarshal(data, msg)
}

// Codec returns the option that selects the CBOR codec on a client or
// handler.
func Codec() connect.Option {
	return connect.WithCodec(newCBORCodec())
}
