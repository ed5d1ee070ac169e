package btsniff

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/zeebo/xxh3"
)

// Fingerprint hashes a payload for duplicate detection.
func Fingerprint(b []byte) uint64 {
	return xxh3.Hash(b)
}

// Stats is a point-in-time copy of the engine counters.
type Stats struct {
	Seen       uint64
	Unmatched  uint64
	Duplicates uint64
	Handshake  uint64
	LSD        uint64
	DHT        uint64
}

// Matched is the number of payloads that decoded to a record.
func (s Stats) Matched() uint64 {
	return s.Handshake + s.LSD + s.DHT
}

// Summary formats the counters for a log line.
func (s Stats) Summary() string {
	return fmt.Sprintf("%s payloads, %s matched (handshake=%s lsd=%s dht=%s), %s unmatched, %s duplicates",
		comma(s.Seen), comma(s.Matched()), comma(s.Handshake), comma(s.LSD), comma(s.DHT),
		comma(s.Unmatched), comma(s.Duplicates))
}

func comma(v uint64) string {
	return humanize.Comma(int64(v))
}
