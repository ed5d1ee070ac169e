package bittorrent

import (
	"fmt"
	"io"
	"iter"

	"github.com/rawbytedev/btsniff/internal/common"
	"github.com/rawbytedev/btsniff/pkg/datum"
	"github.com/rawbytedev/btsniff/pkg/jsonout"
)

// Local Service Discovery announces are multicast to 239.192.152.143:6771
// and [ff15::efc0:988f]:6771 and look like:
//
//	BT-SEARCH * HTTP/1.1\r\n
//	Host: <host>\r\n
//	Port: <port>\r\n
//	Infohash: <40 hex digits>\r\n
//	cookie: <opaque, optional>\r\n
//	\r\n
//
// Infohash may repeat to announce several torrents in one packet.

var (
	lsdMethod = []byte("BT-SEARCH")
	asterisk  = []byte("*")
)

// LSDMatcher classifies on the first eight bytes of the method.
var LSDMatcher = datum.NewMaskAndValue(
	[8]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
	[8]byte{'B', 'T', '-', 'S', 'E', 'A', 'R', 'C'},
)

// LSD is a decoded Local Service Discovery announce.
type LSD struct {
	version datum.Datum
	headers datum.Datum
	valid   bool
}

// ParseLSD decodes the request line from d. Headers are scanned on demand
// and never affect validity.
func ParseLSD(d *datum.Datum) LSD {
	var l LSD
	d.ReadLiteral(lsdMethod)
	d.SkipClass(&datum.Space)
	d.ReadLiteral(asterisk)
	d.SkipClass(&datum.Space)
	l.version = d.ReadUntil(&datum.Whitespace)
	if d.IsValid() && !l.version.IsNotEmpty() {
		d.Invalidate()
	}
	d.ReadLiteral(crlf)
	l.headers = d.Remaining()
	l.valid = d.IsValid()
	return l
}

func (l *LSD) IsNotEmpty() bool { return l.valid }

func (l *LSD) Protocol() Protocol { return ProtocolLSD }

// Version returns the protocol version token, e.g. "HTTP/1.1".
func (l *LSD) Version() []byte { return l.version.Bytes() }

// Headers yields the announce headers in source order.
func (l *LSD) Headers() iter.Seq[Header] {
	if !l.valid {
		return func(func(Header) bool) {}
	}
	return Headers(l.headers)
}

// Header returns the value of the first header named name, compared
// case-insensitively.
func (l *LSD) Header(name string) ([]byte, bool) {
	for h := range l.Headers() {
		if common.EqualFold(h.Name.Bytes(), name) {
			return h.Value.Bytes(), true
		}
	}
	return nil, false
}

// InfoHashes returns the value of every Infohash header.
func (l *LSD) InfoHashes() [][]byte {
	var out [][]byte
	for h := range l.Headers() {
		if common.EqualFold(h.Name.Bytes(), "infohash") {
			out = append(out, h.Value.Bytes())
		}
	}
	return out
}

// WriteJSON writes the "bittorrent_lsd" object into o.
func (l *LSD) WriteJSON(o *jsonout.Object) {
	if !l.IsNotEmpty() {
		return
	}
	lsd := o.Object("bittorrent_lsd")
	lsd.Text("version", l.Version())
	hdrs := lsd.Array("headers")
	for h := range l.Headers() {
		h.WriteJSON(hdrs)
	}
	hdrs.Close()
	lsd.Close()
}

// Fprint writes the version and one "name: value" line per header to w.
func (l *LSD) Fprint(w io.Writer) error {
	if !l.IsNotEmpty() {
		return nil
	}
	if _, err := fmt.Fprintf(w, "version: %s\n", l.Version()); err != nil {
		return err
	}
	for h := range l.Headers() {
		if _, err := fmt.Fprintf(w, "%s: %s\n", h.Name.Bytes(), h.Value.Bytes()); err != nil {
			return err
		}
	}
	return nil
}

func (l *LSD) isRecord() {}
