package bencode

import (
	"encoding/hex"

	"github.com/rawbytedev/btsniff/internal/common"
	"github.com/rawbytedev/btsniff/pkg/jsonout"
)

// WriteJSON writes the dictionary entries as members of o. Dictionary
// keys keep their source order.
func (dict *Dictionary) WriteJSON(o *jsonout.Object) {
	if !dict.IsNotEmpty() {
		return
	}
	writeEntries(o, dict.Entries)
}

func writeEntries(o *jsonout.Object, entries []Entry) {
	for _, e := range entries {
		key := keyString(e.Key)
		switch e.Value.Kind {
		case KindInteger:
			if n, ok := e.Value.Int(); ok {
				o.Int(key, n)
			} else {
				o.Text(key, e.Value.Raw)
			}
		case KindString:
			if common.IsPrintable(e.Value.Raw) {
				o.Text(key, e.Value.Raw)
			} else {
				o.Hex(key, e.Value.Raw)
			}
		case KindList:
			a := o.Array(key)
			writeItems(a, e.Value.Items)
			a.Close()
		case KindDictionary:
			child := o.Object(key)
			writeEntries(child, e.Value.Entries)
			child.Close()
		}
	}
}

func writeItems(a *jsonout.Array, items []Value) {
	for _, v := range items {
		switch v.Kind {
		case KindInteger:
			if n, ok := v.Int(); ok {
				a.Int(n)
			} else {
				a.Text(v.Raw)
			}
		case KindString:
			if common.IsPrintable(v.Raw) {
				a.Text(v.Raw)
			} else {
				a.Hex(v.Raw)
			}
		case KindList:
			child := a.Array()
			writeItems(child, v.Items)
			child.Close()
		case KindDictionary:
			child := a.Object()
			writeEntries(child, v.Entries)
			child.Close()
		}
	}
}

// keyString renders binary keys as hex so that output stays valid text.
func keyString(k []byte) string {
	if common.IsPrintable(k) {
		return string(k)
	}
	return hex.EncodeToString(k)
}
