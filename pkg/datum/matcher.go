package datum

import "encoding/binary"

// MatchLen is the number of leading bytes a MaskAndValue inspects.
const MatchLen = 8

// MaskAndValue classifies a buffer by its first MatchLen bytes: it matches
// when (b[i] & Mask[i]) == Value[i] for every i. It never extracts data.
type MaskAndValue struct {
	mask  uint64
	value uint64
}

// NewMaskAndValue builds a matcher. A value bit set outside the mask can
// never be matched, so such a pair matches nothing; see Satisfiable.
func NewMaskAndValue(mask, value [MatchLen]byte) MaskAndValue {
	return MaskAndValue{mask: binary.BigEndian.Uint64(mask[:]), value: binary.BigEndian.Uint64(value[:])}
}

// Satisfiable reports whether some buffer can match m.
func (m MaskAndValue) Satisfiable() bool {
	return m.value&^m.mask == 0
}

// Matches reports whether b matches; buffers shorter than MatchLen never do.
func (m MaskAndValue) Matches(b []byte) bool {
	if len(b) < MatchLen {
		return false
	}
	return binary.BigEndian.Uint64(b)&m.mask == m.value
}
