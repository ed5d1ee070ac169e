// Package btsniff turns captured payloads into JSON records for the
// BitTorrent family of wire formats. It ties together classification,
// the decoders in pkg/bittorrent and the renderer in pkg/jsonout.
package btsniff

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rawbytedev/btsniff/pkg/bittorrent"
	"github.com/rawbytedev/btsniff/pkg/jsonout"
)

var (
	ErrEmptyPayload = errors.New("btsniff: empty payload")
	ErrNoMatch      = errors.New("btsniff: payload matches no enabled protocol")
	ErrDuplicate    = errors.New("btsniff: duplicate payload")
)

// DefaultDedupEntries bounds the fingerprint set when Options leaves it 0.
const DefaultDedupEntries = 1 << 16

type Options struct {
	// Protocols restricts classification to these variants, tried in the
	// given order. Empty means all of bittorrent.Protocols.
	Protocols []bittorrent.Protocol
	// Dedup drops payloads whose fingerprint was already seen.
	Dedup bool
	// DedupEntries caps the fingerprint set; the set is cleared when full.
	DedupEntries int
}

// Engine decodes payloads. It is safe for concurrent use; decoding itself
// shares no state, only the dedup set and counters are shared.
type Engine struct {
	Opts Options

	mu   sync.RWMutex
	seen map[uint64]struct{}

	stats counters
	pool  sync.Pool
}

// Result is one rendered record.
type Result struct {
	Protocol bittorrent.Protocol
	Record   bittorrent.Record
	// JSON is a single object without trailing newline. It is a copy and
	// stays valid after the payload buffer is reused.
	JSON []byte
}

func NewEngine(opts Options) *Engine {
	if len(opts.Protocols) == 0 {
		opts.Protocols = bittorrent.Protocols
	}
	if opts.DedupEntries <= 0 {
		opts.DedupEntries = DefaultDedupEntries
	}
	e := &Engine{Opts: opts}
	if opts.Dedup {
		e.seen = make(map[uint64]struct{}, 1024)
	}
	e.pool.New = func() any { return jsonout.NewWriter(nil) }
	return e
}

// Classify reports which enabled protocol b would be decoded as.
func (e *Engine) Classify(b []byte) bittorrent.Protocol {
	return bittorrent.ClassifyAmong(b, e.Opts.Protocols)
}

// Decode classifies and decodes b without rendering it.
func (e *Engine) Decode(b []byte) (bittorrent.Record, error) {
	e.stats.seen.Add(1)
	if len(b) == 0 {
		e.stats.unmatched.Add(1)
		return nil, ErrEmptyPayload
	}
	r, ok := bittorrent.DecodeAmong(b, e.Opts.Protocols)
	if !ok {
		e.stats.unmatched.Add(1)
		return nil, ErrNoMatch
	}
	if e.Opts.Dedup && !e.firstSighting(Fingerprint(b)) {
		e.stats.duplicates.Add(1)
		return nil, ErrDuplicate
	}
	e.stats.matched(r.Protocol())
	return r, nil
}

// Process decodes b and renders it as
// {"protocol":"<name>","<name>":{...}}.
func (e *Engine) Process(b []byte) (Result, error) {
	r, err := e.Decode(b)
	if err != nil {
		return Result{}, err
	}
	return Result{Protocol: r.Protocol(), Record: r, JSON: e.Render(r)}, nil
}

// Render writes r as one JSON object and returns a copy of the bytes.
func (e *Engine) Render(r bittorrent.Record) []byte {
	w := e.pool.Get().(*jsonout.Writer)
	defer e.pool.Put(w)
	w.Reset(nil)
	root := w.Object()
	root.String("protocol", r.Protocol().String())
	r.WriteJSON(root)
	root.Close()
	return append([]byte(nil), w.Buffered()...)
}

// firstSighting records fp and reports whether it was new.
func (e *Engine) firstSighting(fp uint64) bool {
	e.mu.RLock()
	_, dup := e.seen[fp]
	e.mu.RUnlock()
	if dup {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	// Double-check
	if _, dup := e.seen[fp]; dup {
		return false
	}
	if len(e.seen) >= e.Opts.DedupEntries {
		clear(e.seen)
	}
	e.seen[fp] = struct{}{}
	return true
}

// Reset forgets seen fingerprints and zeroes the counters.
func (e *Engine) Reset() {
	e.mu.Lock()
	clear(e.seen)
	e.mu.Unlock()
	e.stats.reset()
}

// Stats returns a snapshot of the counters.
func (e *Engine) Stats() Stats {
	return e.stats.snapshot()
}

type counters struct {
	seen       atomic.Uint64
	unmatched  atomic.Uint64
	duplicates atomic.Uint64
	handshake  atomic.Uint64
	lsd        atomic.Uint64
	dht        atomic.Uint64
}

func (c *counters) matched(p bittorrent.Protocol) {
	switch p {
	case bittorrent.ProtocolHandshake:
		c.handshake.Add(1)
	case bittorrent.ProtocolLSD:
		c.lsd.Add(1)
	case bittorrent.ProtocolDHT:
		c.dht.Add(1)
	}
}

func (c *counters) reset() {
	c.seen.Store(0)
	c.unmatched.Store(0)
	c.duplicates.Store(0)
	c.handshake.Store(0)
	c.lsd.Store(0)
	c.dht.Store(0)
}

func (c *counters) snapshot() Stats {
	return Stats{
		Seen:       c.seen.Load(),
		Unmatched:  c.unmatched.Load(),
		Duplicates: c.duplicates.Load(),
		Handshake:  c.handshake.Load(),
		LSD:        c.lsd.Load(),
		DHT:        c.dht.Load(),
	}
}
