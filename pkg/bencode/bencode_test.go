package bencode

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/rawbytedev/btsniff/pkg/datum"
	"github.com/rawbytedev/btsniff/pkg/jsonout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ping = "d1:ad2:id20:abcdefghij0123456789e1:q4:ping1:t2:aa1:y1:qe"

func TestParsePingQuery(t *testing.T) {
	d := datum.New([]byte(ping))
	dict := ParseDictionary(&d)
	require.True(t, d.IsValid())
	require.False(t, d.IsNotEmpty())
	require.True(t, dict.IsNotEmpty())
	require.Len(t, dict.Entries, 4)

	args, ok := dict.Lookup("a")
	require.True(t, ok)
	require.Equal(t, KindDictionary, args.Kind)
	id, ok := args.Lookup("id")
	require.True(t, ok)
	require.Equal(t, "abcdefghij0123456789", string(id.Raw))

	q, ok := dict.Lookup("q")
	require.True(t, ok)
	require.Equal(t, "ping", string(q.Raw))

	_, ok = dict.Lookup("r")
	require.False(t, ok)
}

func TestParseConsumesExactlyOneValue(t *testing.T) {
	d := datum.New([]byte("i42eXYZ"))
	v := ParseValue(&d)
	require.True(t, d.IsValid())
	require.Equal(t, "XYZ", d.String())
	n, ok := v.Int()
	require.True(t, ok)
	require.Equal(t, int64(42), n)
}

func TestParseIntegers(t *testing.T) {
	cases := map[string]int64{
		"i0e":                    0,
		"i-7e":                   -7,
		"i9223372036854775807e":  9223372036854775807,
		"i-9223372036854775808e": -9223372036854775808,
	}
	for in, want := range cases {
		d := datum.New([]byte(in))
		v := ParseValue(&d)
		require.True(t, d.IsValid(), in)
		n, ok := v.Int()
		require.True(t, ok, in)
		require.Equal(t, want, n, in)
	}
}

func TestIntegerOutOfRangeKeepsDigits(t *testing.T) {
	d := datum.New([]byte("i9223372036854775808e"))
	v := ParseValue(&d)
	require.True(t, d.IsValid())
	require.Equal(t, KindInteger, v.Kind)
	_, ok := v.Int()
	require.False(t, ok)
	require.Equal(t, "9223372036854775808", string(v.Raw))
}

func TestRejectsMalformed(t *testing.T) {
	for _, in := range []string{
		"",
		"x",
		"ie",
		"i-e",
		"i-0e",
		"i01e",
		"i12",
		"5:abc",
		"01:a",
		"99999999999:a",
		"l",
		"li1e",
		"d1:a",
		"di1ei2ee",
		"d1:ae",
	} {
		d := datum.New([]byte(in))
		v := ParseValue(&d)
		assert.False(t, d.IsValid(), "%q", in)
		assert.Equal(t, KindInvalid, v.Kind, "%q", in)
	}
}

func TestDepthLimit(t *testing.T) {
	deep := strings.Repeat("l", MaxDepth+1) + strings.Repeat("e", MaxDepth+1)
	d := datum.New([]byte(deep))
	ParseValue(&d)
	require.False(t, d.IsValid())

	ok := strings.Repeat("l", MaxDepth) + strings.Repeat("e", MaxDepth)
	d = datum.New([]byte(ok))
	ParseValue(&d)
	require.True(t, d.IsValid())
}

func TestParseDictionaryRequiresDict(t *testing.T) {
	d := datum.New([]byte("li1ee"))
	dict := ParseDictionary(&d)
	require.False(t, dict.IsNotEmpty())
	require.False(t, d.IsValid())

	d = datum.New([]byte("de"))
	dict = ParseDictionary(&d)
	require.True(t, d.IsValid())
	require.False(t, dict.IsNotEmpty())
}

func TestStringsAreViews(t *testing.T) {
	buf := []byte("4:spam")
	d := datum.New(buf)
	v := ParseValue(&d)
	require.Equal(t, "spam", string(v.Raw))
	buf[2] = 'S'
	require.Equal(t, "Spam", string(v.Raw))
}

func TestEqual(t *testing.T) {
	a := datum.New([]byte(ping))
	b := datum.New([]byte(ping))
	va, vb := ParseValue(&a), ParseValue(&b)
	require.True(t, va.Equal(vb))

	c := datum.New([]byte("d1:ai1ee"))
	require.False(t, va.Equal(ParseValue(&c)))
}

func TestWriteJSON(t *testing.T) {
	d := datum.New([]byte("d1:ad2:id3:\x00\x01\x02e1:lli1e4:spamled1:xi-1eee1:t2:aae"))
	dict := ParseDictionary(&d)
	require.True(t, dict.IsNotEmpty())

	w := jsonout.NewWriter(nil)
	root := w.Object()
	dict.WriteJSON(root)
	root.Close()

	want := `{"a":{"id":"000102"},"l":[1,"spam",[],{"x":-1}],"t":"aa"}`
	require.Equal(t, want, string(w.Buffered()))
	require.True(t, json.Valid(w.Buffered()))
}

func TestWriteJSONBinaryKey(t *testing.T) {
	d := datum.New([]byte("d2:\xff\xfei1ee"))
	dict := ParseDictionary(&d)
	w := jsonout.NewWriter(nil)
	root := w.Object()
	dict.WriteJSON(root)
	root.Close()
	require.Equal(t, `{"fffe":1}`, string(w.Buffered()))
}

func TestWriteJSONEmptyDictionaryWritesNothing(t *testing.T) {
	d := datum.New([]byte("de"))
	dict := ParseDictionary(&d)
	w := jsonout.NewWriter(nil)
	root := w.Object()
	dict.WriteJSON(root)
	root.Close()
	require.Equal(t, `{}`, string(w.Buffered()))
}

func FuzzParseValue(f *testing.F) {
	f.Add([]byte(ping))
	f.Add([]byte("li1e4:spame"))
	f.Add([]byte("i-12e"))
	f.Fuzz(func(t *testing.T, data []byte) {
		d := datum.New(data)
		dict := ParseDictionary(&d)
		w := jsonout.NewWriter(nil)
		root := w.Object()
		dict.WriteJSON(root)
		root.Close()
		require.True(t, json.Valid(w.Buffered()))
		if !d.IsValid() {
			require.False(t, dict.IsNotEmpty())
		}
	})
}
