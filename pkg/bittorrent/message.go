package bittorrent

import (
	"fmt"
	"iter"

	"github.com/rawbytedev/btsniff/pkg/datum"
	"github.com/rawbytedev/btsniff/pkg/jsonout"
)

// MessageType is the one-byte tag of a peer wire message.
type MessageType uint8

const (
	Choke         MessageType = 0x00
	Unchoke       MessageType = 0x01
	Interested    MessageType = 0x02
	NotInterested MessageType = 0x03
	Have          MessageType = 0x04
	BitField      MessageType = 0x05
	Request       MessageType = 0x06
	Piece         MessageType = 0x07
	Cancel        MessageType = 0x08
	Extended      MessageType = 0x14
)

// Name returns the wire name of a known type.
func (t MessageType) Name() (string, bool) {
	switch t {
	case Choke:
		return "choke", true
	case Unchoke:
		return "unchoke", true
	case Interested:
		return "interested", true
	case NotInterested:
		return "not_interested", true
	case Have:
		return "have", true
	case BitField:
		return "bit_field", true
	case Request:
		return "request", true
	case Piece:
		return "piece", true
	case Cancel:
		return "cancel", true
	case Extended:
		return "extended", true
	}
	return "", false
}

func (t MessageType) String() string {
	if name, ok := t.Name(); ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", uint8(t))
}

// PeerMessage is one length-prefixed frame: a 4-byte big-endian length L,
// then, when L > 0, a type byte and L-1 bytes of payload.
type PeerMessage struct {
	Length  uint32
	Type    MessageType
	Payload datum.Datum
	valid   bool
}

// ParsePeerMessage reads one frame from d. A frame whose declared length
// runs past the end of d invalidates d.
func ParsePeerMessage(d *datum.Datum) PeerMessage {
	var m PeerMessage
	m.Length = d.ReadUint32()
	if m.Length > 0 {
		m.Type = MessageType(d.ReadUint8())
		m.Payload = d.ReadExact(int(m.Length - 1))
	}
	m.valid = d.IsValid()
	return m
}

// IsNotEmpty reports whether the frame parsed completely.
func (m *PeerMessage) IsNotEmpty() bool { return m.valid }

// KeepAlive reports whether m is a zero-length keepalive frame.
func (m *PeerMessage) KeepAlive() bool { return m.valid && m.Length == 0 }

// WriteJSON appends the frame to a; invalid frames write nothing.
func (m *PeerMessage) WriteJSON(a *jsonout.Array) {
	if !m.valid {
		return
	}
	o := a.Object()
	o.Uint("message_length", uint64(m.Length))
	o.Uint("message_type", uint64(m.Type))
	if name, ok := m.Type.Name(); ok {
		o.String("name", name)
	}
	o.Hex("payload", m.Payload.Bytes())
	o.Close()
}

// PeerMessages yields the frames of body in order, skipping keepalives.
// The sequence ends when body is exhausted or a frame is truncated; a
// truncated frame is not yielded. Each call starts again from the start
// of body.
func PeerMessages(body datum.Datum) iter.Seq[PeerMessage] {
	return func(yield func(PeerMessage) bool) {
		tmp := body
		for tmp.IsNotEmpty() {
			m := ParsePeerMessage(&tmp)
			if !tmp.IsValid() {
				return
			}
			if m.KeepAlive() {
				continue
			}
			if !yield(m) {
				return
			}
		}
	}
}
