package bittorrent

import (
	"fmt"
	"io"
	"iter"

	"github.com/rawbytedev/btsniff/pkg/datum"
	"github.com/rawbytedev/btsniff/pkg/jsonout"
)

// The peer wire protocol opens with a handshake: the byte 19, the string
// "BitTorrent protocol", eight reserved bytes, the 20-byte SHA-1 of the
// info dictionary and the 20-byte peer id. A stream of length-prefixed
// messages follows; all integers in it are four bytes big-endian.
const (
	extensionLen = 8
	infoHashLen  = 20
	peerIDLen    = 20

	// HandshakeLen is the size of the fixed part of a handshake.
	HandshakeLen = 1 + 19 + extensionLen + infoHashLen + peerIDLen
)

var protocolString = []byte("\x13BitTorrent protocol")

// HandshakeMatcher classifies on the first eight bytes of the protocol
// string.
var HandshakeMatcher = datum.NewMaskAndValue(
	[8]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
	[8]byte{0x13, 'B', 'i', 't', 'T', 'o', 'r', 'r'},
)

// Handshake is a decoded peer handshake plus the message region that
// follows it.
type Handshake struct {
	extensionBytes datum.Datum
	infoHash       datum.Datum
	peerID         datum.Datum
	body           datum.Datum
	valid          bool
}

// ParseHandshake decodes the fixed handshake fields from d and keeps the
// rest of d as the message body. Messages are only parsed on demand, so a
// malformed body never invalidates the handshake.
func ParseHandshake(d *datum.Datum) Handshake {
	var h Handshake
	d.ReadLiteral(protocolString)
	h.extensionBytes = d.ReadExact(extensionLen)
	h.infoHash = d.ReadExact(infoHashLen)
	h.peerID = d.ReadExact(peerIDLen)
	h.body = d.Remaining()
	h.valid = d.IsValid()
	return h
}

func (h *Handshake) IsNotEmpty() bool { return h.valid }

func (h *Handshake) Protocol() Protocol { return ProtocolHandshake }

func (h *Handshake) ExtensionBytes() []byte { return h.extensionBytes.Bytes() }
func (h *Handshake) InfoHash() []byte       { return h.infoHash.Bytes() }
func (h *Handshake) PeerID() []byte         { return h.peerID.Bytes() }

// Body returns the bytes after the fixed handshake.
func (h *Handshake) Body() []byte { return h.body.Bytes() }

// Messages yields the peer messages following the handshake.
func (h *Handshake) Messages() iter.Seq[PeerMessage] {
	if !h.valid {
		return func(func(PeerMessage) bool) {}
	}
	return PeerMessages(h.body)
}

// WriteJSON writes the "bittorrent" object into o.
func (h *Handshake) WriteJSON(o *jsonout.Object) {
	if !h.IsNotEmpty() {
		return
	}
	bt := o.Object("bittorrent")
	bt.Hex("extension_bytes", h.ExtensionBytes())
	bt.Hex("info_hash", h.InfoHash())
	bt.Hex("peer_id", h.PeerID())
	msgs := bt.Array("messages")
	for m := range h.Messages() {
		m.WriteJSON(msgs)
	}
	msgs.Close()
	bt.Close()
}

// Fprint writes a plain-text summary of the handshake to w.
func (h *Handshake) Fprint(w io.Writer) error {
	if !h.IsNotEmpty() {
		return nil
	}
	_, err := fmt.Fprintf(w, "extension_bytes:   %x\ninfo_hash:         %x\npeer_id:           %x\n",
		h.ExtensionBytes(), h.InfoHash(), h.PeerID())
	if err != nil {
		return err
	}
	for m := range h.Messages() {
		if _, err := fmt.Fprintf(w, "message:           %s length %d\n", m.Type, m.Length); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handshake) isRecord() {}
