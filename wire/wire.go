// Package wire is the bit-packed replication codec for tags and tag
// containers.
//
// With fast replication enabled a tag travels as its net index in the
// two-segment format: FirstBitSegment low bits, then, when the table needs
// more bits than that, a continuation flag and the remaining high bits.
// A container is a count in ContainerSizeBits bits followed by that many
// indices. With fast replication disabled tags travel by name.
package wire

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/icza/bitio"
	"github.com/tliron/commonlog"

	"github.com/chazu/gametags/tags"
)

var log = commonlog.GetLogger("gametags.wire")

// maxNameLen bounds a slow-path name so a corrupt length cannot make the
// reader allocate unbounded memory.
const maxNameLen = 1<<16 - 1

// ErrNameTooLong is returned when a tag name does not fit the slow path.
var ErrNameTooLong = errors.New("tag name exceeds 65535 bytes")

// Writer packs tags for one registry into an underlying io.Writer.
// Close must be called to flush the final partial byte.
type Writer struct {
	bw  *bitio.Writer
	reg *tags.Registry
}

// NewWriter returns a Writer encoding against reg.
func NewWriter(w io.Writer, reg *tags.Registry) *Writer {
	return &Writer{bw: bitio.NewWriter(w), reg: reg}
}

// Close flushes pending bits. It does not close the underlying writer.
func (w *Writer) Close() error {
	return w.bw.Close()
}

// WriteNetIndex writes one index in the two-segment format.
func (w *Writer) WriteNetIndex(i tags.NetIndex) error {
	first := w.reg.FirstBitSegment()
	trueBits := w.reg.NetIndexTrueBitNum()
	v := uint64(i)

	if trueBits <= first {
		return w.bw.WriteBits(v, uint8(trueBits))
	}
	if err := w.bw.WriteBits(v&(1<<first-1), uint8(first)); err != nil {
		return err
	}
	more := v >= 1<<first
	if err := w.bw.WriteBool(more); err != nil {
		return err
	}
	if !more {
		return nil
	}
	return w.bw.WriteBits(v>>first, uint8(trueBits-first))
}

// WriteTag writes t by net index, or by name when fast replication is off.
// The invalid tag travels as the sentinel index or the empty name.
func (w *Writer) WriteTag(t tags.Tag) error {
	if !w.reg.Settings().FastReplication {
		return w.writeName(t.Name())
	}
	return w.WriteNetIndex(w.reg.NetIndexFromTag(t))
}

// WriteContainer writes c. On the fast path a container larger than the
// count field can express is truncated and logged.
func (w *Writer) WriteContainer(c tags.Container) error {
	if !w.reg.Settings().FastReplication {
		if err := w.bw.WriteBits(uint64(c.Num()), 32); err != nil {
			return err
		}
		for i := 0; i < c.Num(); i++ {
			if err := w.writeName(c.At(i).Name()); err != nil {
				return err
			}
		}
		return nil
	}

	sizeBits := containerSizeBits(w.reg)
	n := c.Num()
	if limit := 1<<sizeBits - 1; n > limit {
		log.Errorf("container of %d tags exceeds the %d-bit count field; sending the first %d", n, sizeBits, limit)
		n = limit
	}
	if err := w.bw.WriteBits(uint64(n), uint8(sizeBits)); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := w.WriteNetIndex(w.reg.NetIndexFromTag(c.At(i))); err != nil {
			return err
		}
	}
	return nil
}

func containerSizeBits(reg *tags.Registry) int {
	n := reg.Settings().ContainerSizeBits
	if n <= 0 || n > 32 {
		return tags.DefaultSettings().ContainerSizeBits
	}
	return n
}

func (w *Writer) writeName(name string) error {
	if len(name) > maxNameLen {
		return fmt.Errorf("%w: %d bytes", ErrNameTooLong, len(name))
	}
	if err := w.bw.WriteBits(uint64(len(name)), 16); err != nil {
		return err
	}
	_, err := w.bw.Write([]byte(name))
	return err
}

// Reader unpacks tags written by a Writer over the same dictionary.
type Reader struct {
	br  *bitio.Reader
	reg *tags.Registry
}

// NewReader returns a Reader decoding against reg.
func NewReader(r io.Reader, reg *tags.Registry) *Reader {
	return &Reader{br: bitio.NewReader(r), reg: reg}
}

// ReadNetIndex reads one two-segment index.
func (r *Reader) ReadNetIndex() (tags.NetIndex, error) {
	first := r.reg.FirstBitSegment()
	trueBits := r.reg.NetIndexTrueBitNum()

	if trueBits <= first {
		v, err := r.br.ReadBits(uint8(trueBits))
		return tags.NetIndex(v), err
	}
	low, err := r.br.ReadBits(uint8(first))
	if err != nil {
		return 0, err
	}
	more, err := r.br.ReadBool()
	if err != nil {
		return 0, err
	}
	if !more {
		return tags.NetIndex(low), nil
	}
	high, err := r.br.ReadBits(uint8(trueBits - first))
	if err != nil {
		return 0, err
	}
	return tags.NetIndex(high<<first | low), nil
}

// ReadTag reads one tag. Names on the slow path go through the
// registry's redirects. An unknown name or a stale index decodes to the
// invalid tag.
func (r *Reader) ReadTag() (tags.Tag, error) {
	if !r.reg.Settings().FastReplication {
		name, err := r.readName()
		if err != nil {
			return tags.Tag{}, err
		}
		return r.reg.RedirectTag(name), nil
	}
	i, err := r.ReadNetIndex()
	if err != nil {
		return tags.Tag{}, err
	}
	return r.reg.TagFromNetIndex(i), nil
}

// ReadContainer reads one container. Entries that decode to the invalid
// tag are dropped.
func (r *Reader) ReadContainer() (tags.Container, error) {
	var c tags.Container
	var n uint64
	var err error
	if r.reg.Settings().FastReplication {
		n, err = r.br.ReadBits(uint8(containerSizeBits(r.reg)))
	} else {
		n, err = r.br.ReadBits(32)
	}
	if err != nil {
		return c, err
	}
	for i := uint64(0); i < n; i++ {
		t, err := r.ReadTag()
		if err != nil {
			return tags.Container{}, fmt.Errorf("reading tag %d of %d: %w", i, n, err)
		}
		c.AddTag(t)
	}
	return c, nil
}

func (r *Reader) readName() (string, error) {
	n, err := r.br.ReadBits(16)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.br, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// MarshalContainer packs c into a standalone byte slice.
func MarshalContainer(reg *tags.Registry, c tags.Container) ([]byte, error) {
	var buf bytes.Buffer
	w := NewWriter(&buf, reg)
	if err := w.WriteContainer(c); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalContainer unpacks a container written by MarshalContainer.
func UnmarshalContainer(reg *tags.Registry, data []byte) (tags.Container, error) {
	return NewReader(bytes.NewReader(data), reg).ReadContainer()
}
