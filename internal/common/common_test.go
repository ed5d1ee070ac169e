package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsPrintable(t *testing.T) {
	assert.True(t, IsPrintable([]byte("announce_peer")))
	assert.True(t, IsPrintable(nil))
	assert.False(t, IsPrintable([]byte{'a', 0x00}))
	assert.False(t, IsPrintable([]byte{0x7f}))
}

func TestEqualFold(t *testing.T) {
	assert.True(t, EqualFold([]byte("InfoHash"), "infohash"))
	assert.False(t, EqualFold([]byte("Infohas"), "infohash"))
	assert.False(t, EqualFold([]byte("Infohasj"), "infohash"))
}

func TestParseDecimal(t *testing.T) {
	v, ok := ParseDecimal([]byte("6771"))
	require.True(t, ok)
	require.Equal(t, uint64(6771), v)

	v, ok = ParseDecimal([]byte("18446744073709551615"))
	require.True(t, ok)
	require.Equal(t, uint64(18446744073709551615), v)

	_, ok = ParseDecimal([]byte("18446744073709551616"))
	require.False(t, ok)
	_, ok = ParseDecimal([]byte(""))
	require.False(t, ok)
	_, ok = ParseDecimal([]byte("12a"))
	require.False(t, ok)
}

func TestBigEndian(t *testing.T) {
	require.Equal(t, uint64(0x01020304), BigEndian([]byte{1, 2, 3, 4}))
	require.Equal(t, uint64(0), BigEndian(nil))
}
