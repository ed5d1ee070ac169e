// Package bittorrent decodes captured BitTorrent payloads: mainline DHT
// messages, Local Service Discovery announces and the peer handshake with
// the message stream behind it.
//
// Every decoder works on a datum.Datum over the caller's buffer and keeps
// only views into it. Decoders never fail loudly; IsNotEmpty reports
// whether the buffer matched, and WriteJSON writes nothing when it did not.
package bittorrent

import (
	"io"

	"github.com/rawbytedev/btsniff/pkg/datum"
	"github.com/rawbytedev/btsniff/pkg/jsonout"
)

type Protocol uint8

const (
	ProtocolNone Protocol = iota
	ProtocolHandshake
	ProtocolLSD
	ProtocolDHT
)

func (p Protocol) String() string {
	switch p {
	case ProtocolHandshake:
		return "bittorrent"
	case ProtocolLSD:
		return "bittorrent_lsd"
	case ProtocolDHT:
		return "bittorrent_dht"
	default:
		return "none"
	}
}

// ParseProtocol is the inverse of Protocol.String, also accepting the
// short names "handshake", "lsd" and "dht".
func ParseProtocol(s string) (Protocol, bool) {
	switch s {
	case "bittorrent", "handshake":
		return ProtocolHandshake, true
	case "bittorrent_lsd", "lsd":
		return ProtocolLSD, true
	case "bittorrent_dht", "dht":
		return ProtocolDHT, true
	}
	return ProtocolNone, false
}

// Protocols lists every variant in classification order.
var Protocols = []Protocol{ProtocolHandshake, ProtocolLSD, ProtocolDHT}

// Record is a decoded payload. The set of implementations is closed:
// *Handshake, *LSD and *DHT.
type Record interface {
	Protocol() Protocol
	IsNotEmpty() bool
	WriteJSON(o *jsonout.Object)
	// Fprint writes a plain-text summary; invalid records write nothing.
	Fprint(w io.Writer) error
	isRecord()
}

// Matcher returns the classifier of p.
func (p Protocol) Matcher() (datum.MaskAndValue, bool) {
	switch p {
	case ProtocolHandshake:
		return HandshakeMatcher, true
	case ProtocolLSD:
		return LSDMatcher, true
	case ProtocolDHT:
		return DHTMatcher, true
	}
	return datum.MaskAndValue{}, false
}

// Classify returns the first protocol in classification order whose
// matcher accepts b. It only looks at the first datum.MatchLen bytes.
func Classify(b []byte) Protocol {
	return ClassifyAmong(b, Protocols)
}

// ClassifyAmong is Classify restricted to candidates, tried in order.
func ClassifyAmong(b []byte, candidates []Protocol) Protocol {
	for _, p := range candidates {
		if m, ok := p.Matcher(); ok && m.Matches(b) {
			return p
		}
	}
	return ProtocolNone
}

// DecodeAs runs the decoder of p over b.
func DecodeAs(p Protocol, b []byte) Record {
	d := datum.New(b)
	switch p {
	case ProtocolHandshake:
		h := ParseHandshake(&d)
		return &h
	case ProtocolLSD:
		l := ParseLSD(&d)
		return &l
	case ProtocolDHT:
		m := ParseDHT(&d)
		return &m
	}
	return nil
}

// Decode classifies b and decodes it. The record is returned only if it
// is non-empty.
func Decode(b []byte) (Record, bool) {
	return DecodeAmong(b, Protocols)
}

// DecodeAmong is Decode restricted to candidates.
func DecodeAmong(b []byte, candidates []Protocol) (Record, bool) {
	p := ClassifyAmong(b, candidates)
	if p == ProtocolNone {
		return nil, false
	}
	r := DecodeAs(p, b)
	if !r.IsNotEmpty() {
		return nil, false
	}
	return r, true
}
