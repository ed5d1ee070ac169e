package bittorrent

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rawbytedev/btsniff/pkg/datum"
	"github.com/rawbytedev/btsniff/pkg/jsonout"
	"github.com/stretchr/testify/require"
)

var (
	testExt      = []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x10, 0x00, 0x05}
	testInfoHash = bytes.Repeat([]byte{0xaa}, 20)
	testPeerID   = []byte("-qB4500-abcdefghijkl")
)

func handshakeBytes(body ...[]byte) []byte {
	b := append([]byte{}, protocolString...)
	b = append(b, testExt...)
	b = append(b, testInfoHash...)
	b = append(b, testPeerID...)
	for _, m := range body {
		b = append(b, m...)
	}
	return b
}

type renderedHandshake struct {
	BitTorrent *struct {
		ExtensionBytes string `json:"extension_bytes"`
		InfoHash       string `json:"info_hash"`
		PeerID         string `json:"peer_id"`
		Messages       []struct {
			Length  uint32  `json:"message_length"`
			Type    uint8   `json:"message_type"`
			Name    *string `json:"name"`
			Payload string  `json:"payload"`
		} `json:"messages"`
	} `json:"bittorrent"`
}

func renderRecord(t *testing.T, r Record) []byte {
	t.Helper()
	w := jsonout.NewWriter(nil)
	root := w.Object()
	r.WriteJSON(root)
	root.Close()
	out := append([]byte{}, w.Buffered()...)
	require.True(t, json.Valid(out), string(out))
	return out
}

func decodeHandshake(t *testing.T, b []byte) (Handshake, renderedHandshake) {
	t.Helper()
	d := datum.New(b)
	h := ParseHandshake(&d)
	var out renderedHandshake
	require.NoError(t, json.Unmarshal(renderRecord(t, &h), &out))
	return h, out
}

func TestHandshakeWithoutMessages(t *testing.T) {
	b := handshakeBytes()
	require.Len(t, b, HandshakeLen)
	h, out := decodeHandshake(t, b)
	require.True(t, h.IsNotEmpty())
	require.Equal(t, testPeerID, h.PeerID())
	require.Empty(t, h.Body())
	require.NotNil(t, out.BitTorrent)
	require.Equal(t, "0000000000100005", out.BitTorrent.ExtensionBytes)
	require.Equal(t, strings.Repeat("aa", 20), out.BitTorrent.InfoHash)
	require.NotNil(t, out.BitTorrent.Messages)
	require.Empty(t, out.BitTorrent.Messages)
}

func TestHandshakeSingleChoke(t *testing.T) {
	_, out := decodeHandshake(t, handshakeBytes([]byte{0, 0, 0, 1, 0}))
	require.Len(t, out.BitTorrent.Messages, 1)
	m := out.BitTorrent.Messages[0]
	require.NotNil(t, m.Name)
	require.Equal(t, "choke", *m.Name)
	require.Equal(t, uint32(1), m.Length)
	require.Equal(t, "", m.Payload)
}

func TestHandshakeTruncatedFrameEndsStream(t *testing.T) {
	have := []byte{0, 0, 0, 5, 4, 0, 0, 0, 9}
	truncated := []byte{0, 0, 0, 13, 6, 0, 0}
	h, out := decodeHandshake(t, handshakeBytes(have, truncated))
	require.True(t, h.IsNotEmpty())
	require.Len(t, out.BitTorrent.Messages, 1)
	require.Equal(t, "have", *out.BitTorrent.Messages[0].Name)
	require.Equal(t, "00000009", out.BitTorrent.Messages[0].Payload)
}

func TestHandshakeSkipsKeepalives(t *testing.T) {
	keepalive := []byte{0, 0, 0, 0}
	interested := []byte{0, 0, 0, 1, 2}
	_, out := decodeHandshake(t, handshakeBytes(keepalive, interested, keepalive))
	require.Len(t, out.BitTorrent.Messages, 1)
	require.Equal(t, "interested", *out.BitTorrent.Messages[0].Name)
}

func TestHandshakeUnmappedType(t *testing.T) {
	_, out := decodeHandshake(t, handshakeBytes([]byte{0, 0, 0, 2, 0x09, 0xfe}))
	require.Len(t, out.BitTorrent.Messages, 1)
	m := out.BitTorrent.Messages[0]
	require.Nil(t, m.Name)
	require.Equal(t, uint8(0x09), m.Type)
	require.Equal(t, "fe", m.Payload)
}

func TestHandshakeShortInputIsEmpty(t *testing.T) {
	full := handshakeBytes()
	for n := 0; n < len(full); n++ {
		d := datum.New(full[:n])
		h := ParseHandshake(&d)
		require.False(t, h.IsNotEmpty(), "len %d", n)
		require.Equal(t, "{}", string(renderRecord(t, &h)))
		for range h.Messages() {
			t.Fatal("invalid handshake yielded a message")
		}
	}
}

func TestHandshakeWrongProtocolString(t *testing.T) {
	b := handshakeBytes()
	b[5] = 'X'
	d := datum.New(b)
	h := ParseHandshake(&d)
	require.False(t, h.IsNotEmpty())
}

func TestHandshakeRenderIsIdempotent(t *testing.T) {
	b := handshakeBytes([]byte{0, 0, 0, 1, 1}, []byte{0, 0, 0, 3, 0x14, 0, 'd'})
	d := datum.New(b)
	h := ParseHandshake(&d)
	require.Equal(t, renderRecord(t, &h), renderRecord(t, &h))
}

func TestHandshakeFprint(t *testing.T) {
	d := datum.New(handshakeBytes())
	h := ParseHandshake(&d)
	var buf bytes.Buffer
	require.NoError(t, h.Fprint(&buf))
	require.Contains(t, buf.String(), "peer_id:           2d71423435")
	require.Contains(t, buf.String(), "extension_bytes:   0000000000100005")

	d = datum.New(handshakeBytes([]byte{0, 0, 0, 5, 4, 0, 0, 0, 9}, []byte{0, 0, 0, 1, 0x30}))
	h = ParseHandshake(&d)
	buf.Reset()
	require.NoError(t, h.Fprint(&buf))
	require.True(t, strings.HasSuffix(buf.String(),
		"message:           have length 5\nmessage:           unknown(48) length 1\n"), buf.String())
}

func TestPeerMessagesStopEarly(t *testing.T) {
	frames := []byte{0, 0, 0, 1, 0, 0, 0, 0, 1, 1, 0, 0, 0, 1, 2}
	var got []MessageType
	for m := range PeerMessages(datum.New(frames)) {
		got = append(got, m.Type)
		if len(got) == 2 {
			break
		}
	}
	require.Equal(t, []MessageType{Choke, Unchoke}, got)
}

func TestParsePeerMessage(t *testing.T) {
	d := datum.New([]byte{0, 0, 0, 13, 6, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0x40, 0})
	m := ParsePeerMessage(&d)
	require.True(t, m.IsNotEmpty())
	require.False(t, m.KeepAlive())
	require.Equal(t, Request, m.Type)
	require.Equal(t, 12, m.Payload.Len())
	require.False(t, d.IsNotEmpty())

	d = datum.New([]byte{0xff, 0xff, 0xff, 0xff, 7})
	m = ParsePeerMessage(&d)
	require.False(t, m.IsNotEmpty())
	require.False(t, d.IsValid())
}

func TestMessageTypeNames(t *testing.T) {
	names := map[MessageType]string{
		Choke: "choke", Unchoke: "unchoke", Interested: "interested",
		NotInterested: "not_interested", Have: "have", BitField: "bit_field",
		Request: "request", Piece: "piece", Cancel: "cancel", Extended: "extended",
	}
	for typ, want := range names {
		got, ok := typ.Name()
		require.True(t, ok)
		require.Equal(t, want, got)
		require.Equal(t, want, typ.String())
	}
	_, ok := MessageType(0x09).Name()
	require.False(t, ok)
	require.Equal(t, "unknown(9)", MessageType(0x09).String())
}
