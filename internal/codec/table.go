// Package codec implements the binary wire format of the build-state cache:
// length-prefixed primitives, ordered collections, and polymorphic values
// resolved through a registered codec table. Encoding and decoding of a state
// stream must mirror each other exactly; there is no resynchronization.
package codec

import (
	"fmt"
	"reflect"
)

// Wire tags for polymorphic values. Registered codecs are assigned tags
// starting at firstUserTag in registration order, so writer and reader must
// build their tables identically.
const (
	tagNil byte = iota
	tagRef
	firstUserTag
)

// ValueCodec encodes and decodes one concrete type.
type ValueCodec interface {
	Encode(e *Encoder, v any) error
	Decode(d *Decoder) (any, error)
}

// FuncCodec adapts a pair of functions to the ValueCodec interface.
type FuncCodec struct {
	EncodeFn func(e *Encoder, v any) error
	DecodeFn func(d *Decoder) (any, error)
}

func (c FuncCodec) Encode(e *Encoder, v any) error { return c.EncodeFn(e, v) }

func (c FuncCodec) Decode(d *Decoder) (any, error) { return c.DecodeFn(d) }

type tableEntry struct {
	tag   byte
	codec ValueCodec
}

// Table maps concrete types to value codecs and wire discriminators.
type Table struct {
	byType map[reflect.Type]*tableEntry
	byTag  map[byte]*tableEntry
	next   byte
}

// NewTable creates an empty codec table.
func NewTable() *Table {
	return &Table{
		byType: make(map[reflect.Type]*tableEntry),
		byTag:  make(map[byte]*tableEntry),
		next:   firstUserTag,
	}
}

// Register assigns the next discriminator to the concrete type of prototype.
// Registration order defines the wire format; it panics on duplicates since
// that is a programming error, not a runtime condition.
func (t *Table) Register(prototype any, c ValueCodec) {
	typ := reflect.TypeOf(prototype)
	if _, exists := t.byType[typ]; exists {
		panic(fmt.Sprintf("codec: type %s registered twice", typ))
	}
	entry := &tableEntry{tag: t.next, codec: c}
	t.byType[typ] = entry
	t.byTag[entry.tag] = entry
	t.next++
}

// RegisterBasicTypes registers codecs for string, bool, int64 and []string.
func (t *Table) RegisterBasicTypes() {
	t.Register("", FuncCodec{
		EncodeFn: func(e *Encoder, v any) error { return e.WriteString(v.(string)) },
		DecodeFn: func(d *Decoder) (any, error) { return d.ReadString() },
	})
	t.Register(false, FuncCodec{
		EncodeFn: func(e *Encoder, v any) error { return e.WriteBool(v.(bool)) },
		DecodeFn: func(d *Decoder) (any, error) { return d.ReadBool() },
	})
	t.Register(int64(0), FuncCodec{
		EncodeFn: func(e *Encoder, v any) error { return e.WriteInt(v.(int64)) },
		DecodeFn: func(d *Decoder) (any, error) { return d.ReadInt() },
	})
	t.Register([]string(nil), FuncCodec{
		EncodeFn: func(e *Encoder, v any) error { return e.WriteStrings(v.([]string)) },
		DecodeFn: func(d *Decoder) (any, error) { return d.ReadStrings() },
	})
}

func (t *Table) entryForType(typ reflect.Type) (*tableEntry, bool) {
	entry, ok := t.byType[typ]
	return entry, ok
}

func (t *Table) entryForTag(tag byte) (*tableEntry, bool) {
	entry, ok := t.byTag[tag]
	return entry, ok
}
