package bittorrent

import (
	"fmt"
	"io"

	"github.com/rawbytedev/btsniff/pkg/bencode"
	"github.com/rawbytedev/btsniff/pkg/datum"
	"github.com/rawbytedev/btsniff/pkg/jsonout"
)

// DHTMatcher classifies KRPC messages. Keys of a bencoded dictionary are
// sorted, so queries start "d1:ad2:id" and responses "d1:rd2:id". Byte 3 is
// the one-byte key; the mask accepts 'a' and 'r' (both give zero under
// 0x8c) and leaves the full check to the bencode grammar.
var DHTMatcher = datum.NewMaskAndValue(
	[8]byte{0xff, 0xff, 0xff, 0x8c, 0xff, 0xff, 0xff, 0xff},
	[8]byte{'d', '1', ':', 0x00, 'd', '2', ':', 'i'},
)

// DHT is a decoded mainline DHT (KRPC) message.
type DHT struct {
	dict bencode.Dictionary
}

// ParseDHT decodes one bencoded dictionary from d.
func ParseDHT(d *datum.Datum) DHT {
	return DHT{dict: bencode.ParseDictionary(d)}
}

// IsNotEmpty reports whether the dictionary parsed with at least one key.
func (m *DHT) IsNotEmpty() bool { return m.dict.IsNotEmpty() }

func (m *DHT) Protocol() Protocol { return ProtocolDHT }

// Dictionary exposes the decoded message.
func (m *DHT) Dictionary() *bencode.Dictionary { return &m.dict }

// MessageKind returns the "y" key: "q" for a query, "r" for a response and
// "e" for an error.
func (m *DHT) MessageKind() string { return m.stringField("y") }

// TransactionID returns the "t" key.
func (m *DHT) TransactionID() []byte {
	v, ok := m.lookup("t")
	if !ok || v.Kind != bencode.KindString {
		return nil
	}
	return v.Raw
}

// QueryName returns the "q" key of a query, e.g. "ping" or "get_peers".
func (m *DHT) QueryName() string { return m.stringField("q") }

func (m *DHT) lookup(key string) (bencode.Value, bool) {
	if !m.IsNotEmpty() {
		return bencode.Value{}, false
	}
	return m.dict.Lookup(key)
}

func (m *DHT) stringField(key string) string {
	v, ok := m.lookup(key)
	if !ok || v.Kind != bencode.KindString {
		return ""
	}
	return string(v.Raw)
}

// WriteJSON writes the "bittorrent_dht" object into o. An empty
// dictionary writes nothing.
func (m *DHT) WriteJSON(o *jsonout.Object) {
	if !m.IsNotEmpty() {
		return
	}
	dht := o.Object("bittorrent_dht")
	m.dict.WriteJSON(dht)
	dht.Close()
}

// Fprint writes the message kind, transaction id and query name to w.
func (m *DHT) Fprint(w io.Writer) error {
	if !m.IsNotEmpty() {
		return nil
	}
	_, err := fmt.Fprintf(w, "y: %s\nt: %x\n", m.MessageKind(), m.TransactionID())
	if err == nil && m.QueryName() != "" {
		_, err = fmt.Fprintf(w, "q: %s\n", m.QueryName())
	}
	return err
}

func (m *DHT) isRecord() {}
