package btsniff

import (
	"encoding/json"
	"testing"

	"github.com/rawbytedev/btsniff/pkg/bittorrent"
)

func BenchmarkClassify(b *testing.B) {
	in := []byte(pingQuery)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = bittorrent.Classify(in)
	}
}

func BenchmarkDecodeHandshake(b *testing.B) {
	in := handshake(0, 0, 0, 1, 0, 0, 0, 0, 5, 4, 0, 0, 0, 7)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = bittorrent.Decode(in)
	}
}

func BenchmarkProcessLSD(b *testing.B) {
	e := NewEngine(Options{})
	in := []byte(announce)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = e.Process(in)
	}
}

func BenchmarkProcessDHT(b *testing.B) {
	e := NewEngine(Options{})
	in := []byte(pingQuery)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = e.Process(in)
	}
}

// Baseline: the same LSD record built as a map and marshalled with
// encoding/json.
func BenchmarkStdlibLSD(b *testing.B) {
	in := []byte(announce)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		r, _ := bittorrent.Decode(in)
		l := r.(*bittorrent.LSD)
		var hdrs []map[string]string
		for h := range l.Headers() {
			hdrs = append(hdrs, map[string]string{"key": h.Name.String(), "value": h.Value.String()})
		}
		_, _ = json.Marshal(map[string]any{"bittorrent_lsd": map[string]any{"version": string(l.Version()), "headers": hdrs}})
	}
}
