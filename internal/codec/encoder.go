package codec

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"reflect"

	"go.trai.ch/keel/internal/core/domain"
	"go.trai.ch/zerr"
)

// Encoder writes the binary state wire format to an underlying stream.
// Encoders are single-threaded; one encoder maps to one state-file stream.
type Encoder struct {
	w        *bufio.Writer
	table    *Table
	frames   []string
	isolates []*encodeIsolate
	varbuf   [binary.MaxVarintLen64]byte
}

// encodeIsolate scopes the object-identity table used for shared-reference
// dedup. Identities never leak to parent or sibling scopes.
type encodeIsolate struct {
	ids map[any]uint64
}

// NewEncoder creates an encoder writing to w with the given codec table.
func NewEncoder(w io.Writer, table *Table) *Encoder {
	return &Encoder{w: bufio.NewWriter(w), table: table}
}

// Flush writes any buffered data to the underlying stream.
func (e *Encoder) Flush() error {
	if err := e.w.Flush(); err != nil {
		return zerr.Wrap(err, "failed to flush state stream")
	}
	return nil
}

// WriteBool writes a boolean as a single byte.
func (e *Encoder) WriteBool(v bool) error {
	b := byte(0)
	if v {
		b = 1
	}
	return e.writeError(e.w.WriteByte(b))
}

// WriteUint writes an unsigned integer as a uvarint.
func (e *Encoder) WriteUint(v uint64) error {
	n := binary.PutUvarint(e.varbuf[:], v)
	_, err := e.w.Write(e.varbuf[:n])
	return e.writeError(err)
}

// WriteInt writes a signed integer as a zig-zag encoded uvarint.
func (e *Encoder) WriteInt(v int64) error {
	n := binary.PutVarint(e.varbuf[:], v)
	_, err := e.w.Write(e.varbuf[:n])
	return e.writeError(err)
}

// WriteFixed32 writes exactly four big-endian bytes. Used for the stream
// sentinel, which must be bit-exact and independent of varint framing.
func (e *Encoder) WriteFixed32(v uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	_, err := e.w.Write(buf[:])
	return e.writeError(err)
}

// WriteString writes a length-prefixed string.
func (e *Encoder) WriteString(s string) error {
	if err := e.WriteUint(uint64(len(s))); err != nil {
		return err
	}
	_, err := e.w.WriteString(s)
	return e.writeError(err)
}

// WriteBytes writes a length-prefixed byte slice.
func (e *Encoder) WriteBytes(b []byte) error {
	if err := e.WriteUint(uint64(len(b))); err != nil {
		return err
	}
	_, err := e.w.Write(b)
	return e.writeError(err)
}

// WriteFile writes a file path.
func (e *Encoder) WriteFile(path string) error {
	return e.WriteString(path)
}

// WriteStrings writes a length-prefixed string collection in order.
func (e *Encoder) WriteStrings(ss []string) error {
	return e.WriteCollection(len(ss), func(i int) error {
		return e.WriteString(ss[i])
	})
}

// WriteCollection writes a count followed by each element in iteration order.
func (e *Encoder) WriteCollection(n int, fn func(i int) error) error {
	if err := e.WriteUint(uint64(n)); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := fn(i); err != nil {
			return err
		}
	}
	return nil
}

// WriteValue writes a nullable polymorphic value: a discriminator byte
// followed by the payload of the registered codec. Inside an isolate, a
// pointer value already written in the same scope is written as a
// backreference instead of being re-encoded.
func (e *Encoder) WriteValue(v any) error {
	if v == nil {
		return e.writeError(e.w.WriteByte(tagNil))
	}

	iso := e.currentIsolate()
	shareable := iso != nil && referencable(v)
	if shareable {
		if id, ok := iso.ids[v]; ok {
			if err := e.writeError(e.w.WriteByte(tagRef)); err != nil {
				return err
			}
			return e.WriteUint(id)
		}
	}

	typ := reflect.TypeOf(v)
	entry, ok := e.table.entryForType(typ)
	if !ok {
		return e.attributeFrame(zerr.With(domain.ErrEncoding, "type", typ.String()))
	}
	if err := e.writeError(e.w.WriteByte(entry.tag)); err != nil {
		return err
	}
	if err := entry.codec.Encode(e, v); err != nil {
		return e.attributeFrame(err)
	}
	if shareable {
		// Registered after the payload so nested shared values claim their
		// identities in the same order the decoder observes them.
		iso.ids[v] = uint64(len(iso.ids))
	}
	return nil
}

// WithIsolate runs fn inside a fresh identity scope.
func (e *Encoder) WithIsolate(fn func() error) error {
	e.isolates = append(e.isolates, &encodeIsolate{ids: make(map[any]uint64)})
	defer func() { e.isolates = e.isolates[:len(e.isolates)-1] }()
	return fn()
}

// WithFrame runs fn inside a named diagnostic frame. Frames are a wire
// format no-op; failures are attributed to the innermost active frame.
func (e *Encoder) WithFrame(label string, fn func() error) error {
	e.frames = append(e.frames, label)
	defer func() { e.frames = e.frames[:len(e.frames)-1] }()
	return e.attributeFrame(fn())
}

func (e *Encoder) currentIsolate() *encodeIsolate {
	if len(e.isolates) == 0 {
		return nil
	}
	return e.isolates[len(e.isolates)-1]
}

func (e *Encoder) writeError(err error) error {
	if err == nil {
		return nil
	}
	return e.attributeFrame(zerr.Wrap(err, "failed to write state stream"))
}

func (e *Encoder) attributeFrame(err error) error {
	return attributeFrame(err, e.frames)
}

// referencable reports whether a value participates in shared-reference
// dedup. Only pointer values carry a usable identity.
func referencable(v any) bool {
	return reflect.TypeOf(v).Kind() == reflect.Pointer
}

// attributeFrame tags err with the innermost active frame label, once.
func attributeFrame(err error, frames []string) error {
	if err == nil || len(frames) == 0 {
		return err
	}
	var zErr *zerr.Error
	if errors.As(err, &zErr) {
		if _, attributed := zErr.Metadata()["frame"]; attributed {
			return err
		}
	} else {
		err = zerr.Wrap(err, "state stream failure")
	}
	return zerr.With(err, "frame", frames[len(frames)-1])
}
