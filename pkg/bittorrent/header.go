package bittorrent

import (
	"iter"

	"github.com/rawbytedev/btsniff/pkg/datum"
	"github.com/rawbytedev/btsniff/pkg/jsonout"
)

var (
	crlf  = []byte("\r\n")
	colon = []byte(":")
)

// Header is one "name: value" line of an HTTP-like message.
type Header struct {
	Name  datum.Datum
	Value datum.Datum
}

// ParseHeader reads a non-empty header name, the colon, the whitespace run after it
// and the value up to (not including) the line terminator.
func ParseHeader(d *datum.Datum) Header {
	var h Header
	h.Name = d.ReadUntil(&datum.TokenStop)
	if !h.Name.IsNotEmpty() {
		d.Invalidate()
	}
	d.ReadLiteral(colon)
	d.SkipClass(&datum.Space)
	h.Value = d.ReadUntil(&datum.LineEnd)
	return h
}

// IsNotEmpty reports whether the header carries a value. A header with an
// empty value is treated as absent.
func (h *Header) IsNotEmpty() bool {
	return h.Value.IsNotEmpty()
}

// WriteJSON appends {"key", "value"} to a.
func (h *Header) WriteJSON(a *jsonout.Array) {
	if !h.IsNotEmpty() {
		return
	}
	o := a.Object()
	o.Text("key", h.Name.Bytes())
	o.Text("value", h.Value.Bytes())
	o.Close()
}

// Headers yields the header lines of region in source order. It stops at
// a bare CRLF, at the end of region, or at the first malformed line.
func Headers(region datum.Datum) iter.Seq[Header] {
	return func(yield func(Header) bool) {
		tmp := region
		for tmp.IsNotEmpty() {
			if tmp.HasPrefix(crlf) {
				return
			}
			h := ParseHeader(&tmp)
			if !tmp.IsValid() || !h.IsNotEmpty() {
				return
			}
			if !yield(h) {
				return
			}
			tmp.ReadLiteral(crlf)
		}
	}
}
