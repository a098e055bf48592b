// Package codec builds the canonical, deterministic byte encodings that
// every signable object in this module exposes. Canonical encoding is
// both the message that gets signed and the object's identity: equal
// inputs must always produce equal bytes, and any field change must
// change the bytes.
package codec

import (
	"strings"
	"time"
)

// delimiter separates fields in a canonical encoding. It is the ASCII
// unit separator, reserved for exactly this purpose and never expected
// to appear in a voter name, election label, ballot choice, or other
// text field. Fields added with AddBytes (raw hashes, identities,
// signatures, nested canonical encodings) are not escaped and may
// contain it.
const delimiter = "\x1f"

// MinuteLayout is the timestamp resolution canonical encodings use.
// Formatting at one-minute resolution makes retries within the same
// minute produce identical signing content.
const MinuteLayout = "2006-01-02 15:04"

// FormatMinute renders t at the canonical one-minute resolution, in UTC
// so replicas in different locales agree on the string.
func FormatMinute(t time.Time) string {
	return t.UTC().Format(MinuteLayout)
}

// Builder assembles a canonical byte string field by field, in exactly
// the order the caller appends them. Field order is part of the
// encoding: callers must add fields in the fixed order their type's
// canonical representation defines.
type Builder struct {
	fields []string
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Add appends a string field.
func (b *Builder) Add(field string) *Builder {
	b.fields = append(b.fields, field)
	return b
}

// AddBytes appends a []byte field as a string.
func (b *Builder) AddBytes(field []byte) *Builder {
	return b.Add(string(field))
}

// Bytes returns the canonical encoding: every added field joined by the
// reserved delimiter.
func (b *Builder) Bytes() []byte {
	return []byte(strings.Join(b.fields, delimiter))
}