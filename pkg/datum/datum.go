// Package datum provides a bounded, zero-copy, fail-sticky cursor over a
// caller-owned byte buffer, together with the primitive readers and the
// fixed-size pattern matchers the protocol decoders are built from.
//
// A Datum never copies and never reads past the end of its view. A read
// that cannot be satisfied marks the cursor invalid; every later read on an
// invalid cursor is a no-op, so a decoder can run its fields in sequence
// and check validity once at the end.
package datum

import (
	"bytes"

	"github.com/rawbytedev/btsniff/internal/common"
)

// Datum is a view over the unread part of a buffer.
// The zero value is a valid, empty cursor.
type Datum struct {
	b   []byte
	bad bool
}

// New wraps b without copying it.
func New(b []byte) Datum {
	return Datum{b: b}
}

// invalid is what reads return once a cursor has failed.
var invalid = Datum{bad: true}

// IsNotEmpty reports whether the cursor is valid and has unread bytes.
func (d Datum) IsNotEmpty() bool {
	return !d.bad && len(d.b) > 0
}

// IsValid reports whether no operation has invalidated the cursor. An
// exhausted cursor is still valid.
func (d Datum) IsValid() bool {
	return !d.bad
}

// Len returns the number of unread bytes, zero when invalid.
func (d Datum) Len() int {
	return len(d.b)
}

// Bytes returns the unread bytes as a view. Callers must not modify it.
func (d Datum) Bytes() []byte {
	return d.b
}

// String copies the unread bytes into a string.
func (d Datum) String() string {
	return string(d.b)
}

// Invalidate drops the view and marks the cursor invalid for good.
func (d *Datum) Invalidate() {
	d.b = nil
	d.bad = true
}

// ReadExact returns the next n bytes as a sub-cursor and advances past
// them. If fewer than n bytes remain the cursor is invalidated and the
// returned Datum is invalid too.
func (d *Datum) ReadExact(n int) Datum {
	if d.bad || n < 0 || n > len(d.b) {
		d.Invalidate()
		return invalid
	}
	sub := Datum{b: d.b[:n:n]}
	d.b = d.b[n:]
	return sub
}

// ReadBytes is ReadExact returning the raw view; nil on failure.
func (d *Datum) ReadBytes(n int) []byte {
	sub := d.ReadExact(n)
	return sub.b
}

// ReadLiteral consumes len(lit) bytes if they equal lit, and invalidates
// the cursor otherwise.
func (d *Datum) ReadLiteral(lit []byte) bool {
	if d.bad {
		return false
	}
	if !bytes.HasPrefix(d.b, lit) {
		d.Invalidate()
		return false
	}
	d.b = d.b[len(lit):]
	return true
}

// HasPrefix reports whether the unread bytes start with lit. It never
// consumes and never invalidates.
func (d Datum) HasPrefix(lit []byte) bool {
	return !d.bad && bytes.HasPrefix(d.b, lit)
}

// PeekByte returns the next byte without consuming it.
func (d Datum) PeekByte() (byte, bool) {
	if d.bad || len(d.b) == 0 {
		return 0, false
	}
	return d.b[0], true
}

// ReadUint reads width bytes (1 to 8) as a big-endian unsigned integer.
func (d *Datum) ReadUint(width int) uint64 {
	if width < 1 || width > 8 {
		d.Invalidate()
		return 0
	}
	b := d.ReadBytes(width)
	if d.bad {
		return 0
	}
	return common.BigEndian(b)
}

func (d *Datum) ReadUint8() uint8   { return uint8(d.ReadUint(1)) }
func (d *Datum) ReadUint16() uint16 { return uint16(d.ReadUint(2)) }
func (d *Datum) ReadUint32() uint32 { return uint32(d.ReadUint(4)) }

// SkipClass advances past a run of bytes in c. A run of length zero is
// legal; it never invalidates.
func (d *Datum) SkipClass(c *Class) {
	d.ReadClass(c)
}

// ReadClass returns the longest prefix whose bytes are all in c.
func (d *Datum) ReadClass(c *Class) Datum {
	if d.bad {
		return invalid
	}
	n := 0
	for n < len(d.b) && c[d.b[n]] {
		n++
	}
	sub := Datum{b: d.b[:n:n]}
	d.b = d.b[n:]
	return sub
}

// ReadUntil returns the longest prefix containing no byte of c.
func (d *Datum) ReadUntil(c *Class) Datum {
	if d.bad {
		return invalid
	}
	n := 0
	for n < len(d.b) && !c[d.b[n]] {
		n++
	}
	sub := Datum{b: d.b[:n:n]}
	d.b = d.b[n:]
	return sub
}

// Remaining returns the unread region as an independent cursor without
// consuming it.
func (d Datum) Remaining() Datum {
	if d.bad {
		return invalid
	}
	return Datum{b: d.b[:len(d.b):len(d.b)]}
}
