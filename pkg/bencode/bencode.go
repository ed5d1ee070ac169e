// Package bencode decodes bencoded values into a tree of views over the
// input buffer. Strings and integers are never copied.
//
// Grammar:
//
//	value   = integer | string | list | dict
//	integer = "i" ["-"] digits "e"
//	string  = length ":" bytes
//	list    = "l" *value "e"
//	dict    = "d" *(string value) "e"
//
// Every value is self-terminating, so a decoder consumes exactly the bytes
// of one value or leaves the cursor invalid.
package bencode

import (
	"bytes"
	"math"

	"github.com/rawbytedev/btsniff/internal/common"
	"github.com/rawbytedev/btsniff/pkg/datum"
)

// MaxDepth bounds list/dictionary nesting so that hostile input cannot
// exhaust the stack.
const MaxDepth = 64

// maxLengthDigits keeps string lengths well inside int on every platform.
const maxLengthDigits = 10

type Kind uint8

const (
	KindInvalid Kind = iota
	KindInteger
	KindString
	KindList
	KindDictionary
)

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindDictionary:
		return "dictionary"
	default:
		return "invalid"
	}
}

// Value is one decoded bencoded value. Raw holds the digits of an integer
// (sign included) or the bytes of a string.
type Value struct {
	Kind    Kind
	Raw     []byte
	Items   []Value
	Entries []Entry
}

// Entry is one dictionary member, in source order.
type Entry struct {
	Key   []byte
	Value Value
}

// Int returns an integer value, false if v is not an integer or does not
// fit in int64.
func (v Value) Int() (int64, bool) {
	if v.Kind != KindInteger {
		return 0, false
	}
	neg := len(v.Raw) > 0 && v.Raw[0] == '-'
	digits := v.Raw
	if neg {
		digits = digits[1:]
	}
	u, ok := common.ParseDecimal(digits)
	if !ok {
		return 0, false
	}
	if neg {
		if u > math.MaxInt64+1 {
			return 0, false
		}
		return -int64(u), true
	}
	if u > math.MaxInt64 {
		return 0, false
	}
	return int64(u), true
}

// Lookup returns the first entry whose key equals key.
func (v Value) Lookup(key string) (Value, bool) {
	for _, e := range v.Entries {
		if string(e.Key) == key {
			return e.Value, true
		}
	}
	return Value{}, false
}

// ParseValue consumes one value from d. On malformed input d is
// invalidated and the returned value has KindInvalid.
func ParseValue(d *datum.Datum) Value {
	return parse(d, 0)
}

func parse(d *datum.Datum, depth int) Value {
	c, ok := d.PeekByte()
	if !ok {
		d.Invalidate()
		return Value{}
	}
	switch {
	case c == 'i':
		return parseInteger(d)
	case c == 'l':
		return parseList(d, depth)
	case c == 'd':
		return parseDict(d, depth)
	case datum.Digit[c]:
		return parseString(d)
	}
	d.Invalidate()
	return Value{}
}

var (
	prefixInt  = []byte("i")
	prefixList = []byte("l")
	prefixDict = []byte("d")
	colon      = []byte(":")
	end        = []byte("e")
	minus      = []byte("-")
)

func parseInteger(d *datum.Datum) Value {
	d.ReadLiteral(prefixInt)
	start := d.Bytes()
	neg := d.HasPrefix(minus)
	if neg {
		d.ReadExact(1)
	}
	digits := d.ReadClass(&datum.Digit)
	d.ReadLiteral(end)
	if !d.IsValid() || !canonical(digits.Bytes()) || (neg && digits.Bytes()[0] == '0') {
		d.Invalidate()
		return Value{}
	}
	n := digits.Len()
	if neg {
		n++
	}
	return Value{Kind: KindInteger, Raw: start[:n:n]}
}

// canonical rejects empty digit runs and leading zeros.
func canonical(digits []byte) bool {
	if len(digits) == 0 {
		return false
	}
	return digits[0] != '0' || len(digits) == 1
}

func parseString(d *datum.Datum) Value {
	digits := d.ReadClass(&datum.Digit)
	d.ReadLiteral(colon)
	if !d.IsValid() || digits.Len() > maxLengthDigits || !canonical(digits.Bytes()) {
		d.Invalidate()
		return Value{}
	}
	n, ok := common.ParseDecimal(digits.Bytes())
	if !ok || n > uint64(d.Len()) {
		d.Invalidate()
		return Value{}
	}
	s := d.ReadExact(int(n))
	return Value{Kind: KindString, Raw: s.Bytes()}
}

func parseList(d *datum.Datum, depth int) Value {
	if depth >= MaxDepth {
		d.Invalidate()
		return Value{}
	}
	d.ReadLiteral(prefixList)
	v := Value{Kind: KindList}
	for d.IsNotEmpty() && !d.HasPrefix(end) {
		item := parse(d, depth+1)
		if !d.IsValid() {
			return Value{}
		}
		v.Items = append(v.Items, item)
	}
	if !d.ReadLiteral(end) {
		return Value{}
	}
	return v
}

func parseDict(d *datum.Datum, depth int) Value {
	if depth >= MaxDepth {
		d.Invalidate()
		return Value{}
	}
	d.ReadLiteral(prefixDict)
	v := Value{Kind: KindDictionary}
	for d.IsNotEmpty() && !d.HasPrefix(end) {
		c, _ := d.PeekByte()
		if !datum.Digit[c] {
			d.Invalidate()
			return Value{}
		}
		key := parseString(d)
		val := parse(d, depth+1)
		if !d.IsValid() {
			return Value{}
		}
		v.Entries = append(v.Entries, Entry{Key: key.Raw, Value: val})
	}
	if !d.ReadLiteral(end) {
		return Value{}
	}
	return v
}

// Dictionary is a top-level bencoded dictionary, the form every DHT
// message takes.
type Dictionary struct {
	Value
	valid bool
}

// ParseDictionary consumes one dictionary from d.
func ParseDictionary(d *datum.Datum) Dictionary {
	if !d.HasPrefix(prefixDict) {
		d.Invalidate()
		return Dictionary{}
	}
	v := parse(d, 0)
	return Dictionary{Value: v, valid: d.IsValid()}
}

// IsNotEmpty reports whether the dictionary parsed and holds at least
// one key.
func (dict *Dictionary) IsNotEmpty() bool {
	return dict.valid && len(dict.Entries) > 0
}

// Equal reports whether two values have the same structure and bytes.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind || !bytes.Equal(v.Raw, o.Raw) ||
		len(v.Items) != len(o.Items) || len(v.Entries) != len(o.Entries) {
		return false
	}
	for i := range v.Items {
		if !v.Items[i].Equal(o.Items[i]) {
			return false
		}
	}
	for i := range v.Entries {
		if !bytes.Equal(v.Entries[i].Key, o.Entries[i].Key) || !v.Entries[i].Value.Equal(o.Entries[i].Value) {
			return false
		}
	}
	return true
}
