package codec

import (
	"bufio"
	"encoding/binary"
	"io"

	"go.trai.ch/keel/internal/core/domain"
	"go.trai.ch/zerr"
)

// Decoder reads the binary state wire format. Every read must mirror the
// corresponding write in the same order; a divergence corrupts the stream
// with no recovery beyond full failure.
type Decoder struct {
	r        *bufio.Reader
	table    *Table
	frames   []string
	isolates []*decodeIsolate
}

// decodeIsolate is the read-side identity scope: an arena of decoded shared
// values indexed in discovery order.
type decodeIsolate struct {
	values []any
}

// NewDecoder creates a decoder reading from r with the given codec table.
// The table must be built identically to the one used for writing.
func NewDecoder(r io.Reader, table *Table) *Decoder {
	return &Decoder{r: bufio.NewReader(r), table: table}
}

// ReadBool reads a single boolean byte.
func (d *Decoder) ReadBool() (bool, error) {
	b, err := d.r.ReadByte()
	if err != nil {
		return false, d.readError(err)
	}
	return b != 0, nil
}

// ReadUint reads a uvarint.
func (d *Decoder) ReadUint() (uint64, error) {
	v, err := binary.ReadUvarint(d.r)
	if err != nil {
		return 0, d.readError(err)
	}
	return v, nil
}

// ReadInt reads a zig-zag encoded signed integer.
func (d *Decoder) ReadInt() (int64, error) {
	v, err := binary.ReadVarint(d.r)
	if err != nil {
		return 0, d.readError(err)
	}
	return v, nil
}

// ReadFixed32 reads exactly four big-endian bytes.
func (d *Decoder) ReadFixed32() (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(d.r, buf[:]); err != nil {
		return 0, d.readError(err)
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

// ReadString reads a length-prefixed string.
func (d *Decoder) ReadString() (string, error) {
	b, err := d.ReadBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadBytes reads a length-prefixed byte slice.
func (d *Decoder) ReadBytes() ([]byte, error) {
	n, err := d.ReadUint()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return nil, d.readError(err)
	}
	return buf, nil
}

// ReadFile reads a file path.
func (d *Decoder) ReadFile() (string, error) {
	return d.ReadString()
}

// ReadStrings reads a length-prefixed string collection, preserving order.
func (d *Decoder) ReadStrings() ([]string, error) {
	var ss []string
	err := d.ReadCollection(func(int) error {
		s, err := d.ReadString()
		if err != nil {
			return err
		}
		ss = append(ss, s)
		return nil
	})
	return ss, err
}

// ReadCollection reads the count then decodes exactly that many elements.
func (d *Decoder) ReadCollection(fn func(i int) error) error {
	n, err := d.ReadUint()
	if err != nil {
		return err
	}
	for i := 0; i < int(n); i++ {
		if err := fn(i); err != nil {
			return err
		}
	}
	return nil
}

// ReadValue reads a nullable polymorphic value written by WriteValue.
func (d *Decoder) ReadValue() (any, error) {
	tag, err := d.r.ReadByte()
	if err != nil {
		return nil, d.readError(err)
	}

	switch tag {
	case tagNil:
		return nil, nil
	case tagRef:
		return d.readBackref()
	}

	entry, ok := d.table.entryForTag(tag)
	if !ok {
		return nil, d.attributeFrame(zerr.With(domain.ErrEncoding, "tag", int(tag)))
	}
	v, err := entry.codec.Decode(d)
	if err != nil {
		return nil, d.attributeFrame(err)
	}
	if iso := d.currentIsolate(); iso != nil && referencable(v) {
		iso.values = append(iso.values, v)
	}
	return v, nil
}

func (d *Decoder) readBackref() (any, error) {
	idx, err := d.ReadUint()
	if err != nil {
		return nil, err
	}
	iso := d.currentIsolate()
	if iso == nil || idx >= uint64(len(iso.values)) {
		return nil, d.attributeFrame(zerr.With(domain.ErrEncoding, "backref", idx))
	}
	return iso.values[idx], nil
}

// WithIsolate runs fn inside a fresh identity scope, mirroring the write side.
func (d *Decoder) WithIsolate(fn func() error) error {
	d.isolates = append(d.isolates, &decodeIsolate{})
	defer func() { d.isolates = d.isolates[:len(d.isolates)-1] }()
	return fn()
}

// WithFrame runs fn inside a named diagnostic frame.
func (d *Decoder) WithFrame(label string, fn func() error) error {
	d.frames = append(d.frames, label)
	defer func() { d.frames = d.frames[:len(d.frames)-1] }()
	return d.attributeFrame(fn())
}

func (d *Decoder) currentIsolate() *decodeIsolate {
	if len(d.isolates) == 0 {
		return nil
	}
	return d.isolates[len(d.isolates)-1]
}

func (d *Decoder) readError(err error) error {
	if err == nil {
		return nil
	}
	return d.attributeFrame(zerr.Wrap(err, "failed to read state stream"))
}

func (d *Decoder) attributeFrame(err error) error {
	return attributeFrame(err, d.frames)
}
