package binuuid

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
)

// gregorianOffset is the number of 100ns intervals between 1582-10-15 and the Unix epoch.
const gregorianOffset = 122192928000000000

// Generator mints time-based UUIDs. Version 1 is the default; version 7 is
// available through WithVersion. A Generator is safe for concurrent use and
// never returns two UUIDs with the same timestamp field for one node.
type Generator struct {
	mu         sync.Mutex
	version    Version
	randReader io.Reader

	// version 1 state
	node     [6]byte
	nodeSet  bool
	clockSeq uint16 // 14 bits
	seqSet   bool
	lastTick uint64 // 100ns ticks since the Gregorian epoch

	// version 7 state
	lastMilli uint64
	counter   uint16 // 12-bit counter for sub-millisecond ordering
}

// Option configures a Generator
type Option func(*Generator)

// WithVersion selects the UUID version to mint: VersionTimeBased or VersionTimeSorted.
func WithVersion(v Version) Option {
	return func(g *Generator) {
		g.version = v
	}
}

// WithNodeID fixes the 48-bit node identifier of version 1 UUIDs.
func WithNodeID(node [6]byte) Option {
	return func(g *Generator) {
		g.node = node
		g.nodeSet = true
	}
}

// WithClockSequence fixes the initial 14-bit clock sequence of version 1 UUIDs.
func WithClockSequence(seq uint16) Option {
	return func(g *Generator) {
		g.clockSeq = seq & 0x3fff
		g.seqSet = true
	}
}

// WithRandReader replaces crypto/rand as the random source.
// This is primarily useful for testing with deterministic random sources.
func WithRandReader(r io.Reader) Option {
	return func(g *Generator) {
		g.randReader = r
	}
}

// NewGenerator creates a Generator. Without WithNodeID the node is the
// hardware address reported by github.com/google/uuid (or a random one).
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		version:    VersionTimeBased,
		randReader: rand.Reader,
	}
	for _, opt := range opts {
		opt(g)
	}
	if !g.nodeSet {
		copy(g.node[:], uuid.NodeID())
		g.nodeSet = true
	}
	return g
}

// Version returns the UUID version this generator mints
func (g *Generator) Version() Version {
	return g.version
}

// Node returns the node identifier used for version 1 UUIDs
func (g *Generator) Node() [6]byte {
	return g.node
}

// New generates a UUID stamped with the current time.
func (g *Generator) New() (UUID, error) {
	return g.NewWithTime(time.Now())
}

// NewWithTime generates a UUID stamped with t.
func (g *Generator) NewWithTime(t time.Time) (UUID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch g.version {
	case VersionTimeBased:
		return g.newV1(t)
	case VersionTimeSorted:
		return g.newV7(t)
	default:
		return Nil, fmt.Errorf("%w: generator cannot mint version %d", ErrInvalidVersion, g.version)
	}
}

func (g *Generator) newV1(t time.Time) (UUID, error) {
	var u UUID

	if !g.seqSet {
		var b [2]byte
		if _, err := io.ReadFull(g.randReader, b[:]); err != nil {
			return u, err
		}
		g.clockSeq = binary.BigEndian.Uint16(b[:]) & 0x3fff
		g.seqSet = true
	}

	tick := uint64(t.UnixNano()/100) + gregorianOffset
	// Keep the timestamp strictly increasing so encoded values never tie.
	if tick <= g.lastTick {
		tick = g.lastTick + 1
	}
	g.lastTick = tick

	binary.BigEndian.PutUint32(u[0:4], uint32(tick))
	binary.BigEndian.PutUint16(u[4:6], uint16(tick>>32))
	binary.BigEndian.PutUint16(u[6:8], uint16(tick>>48)&0x0fff|0x1000)
	binary.BigEndian.PutUint16(u[8:10], g.clockSeq&0x3fff|0x8000)
	copy(u[10:], g.node[:])

	return u, nil
}

func (g *Generator) newV7(t time.Time) (UUID, error) {
	var u UUID

	milli := uint64(t.UnixMilli())

	if milli <= g.lastMilli {
		g.counter++
		if g.counter > 0xfff {
			g.counter = 0
			milli = g.lastMilli + 1
			g.lastMilli = milli
		} else {
			milli = g.lastMilli
		}
	} else {
		// New millisecond, reseed the counter
		var b [2]byte
		if _, err := io.ReadFull(g.randReader, b[:]); err != nil {
			return u, err
		}
		g.counter = binary.BigEndian.Uint16(b[:]) & 0x7ff
		g.lastMilli = milli
	}

	binary.BigEndian.PutUint64(u[0:8], milli<<16)
	u[6] = byte(0x70 | (g.counter >> 8))
	u[7] = byte(g.counter)

	if _, err := io.ReadFull(g.randReader, u[8:]); err != nil {
		return u, err
	}
	u[8] = (u[8] & 0x3f) | 0x80

	return u, nil
}

// Must is a helper that wraps a call to a function returning (UUID, error)
// and panics if the error is non-nil.
//
//	var id = binuuid.Must(gen.New())
func Must(u UUID, err error) UUID {
	if err != nil {
		panic(err)
	}
	return u
}

// Timestamp returns the embedded timestamp of a version 1 or 7 UUID in Unix
// milliseconds, or 0 for other versions.
func (u UUID) Timestamp() int64 {
	switch u.Version() {
	case VersionTimeBased:
		return (int64(u.ticks()) - gregorianOffset) / 10000
	case VersionTimeSorted:
		return int64(binary.BigEndian.Uint64(u[0:8]) >> 16)
	}
	return 0
}

// Time returns the embedded timestamp of a version 1 or 7 UUID, or the zero
// time for other versions.
func (u UUID) Time() time.Time {
	switch u.Version() {
	case VersionTimeBased:
		return time.Unix(0, (int64(u.ticks())-gregorianOffset)*100)
	case VersionTimeSorted:
		return time.UnixMilli(u.Timestamp())
	}
	return time.Time{}
}

// ClockSequence returns the 14-bit clock sequence of a version 1 UUID
func (u UUID) ClockSequence() uint16 {
	return binary.BigEndian.Uint16(u[8:10]) & 0x3fff
}

// NodeID returns the 48-bit node field
func (u UUID) NodeID() [6]byte {
	var node [6]byte
	copy(node[:], u[10:])
	return node
}

// ticks reassembles the 60-bit v1 timestamp
func (u UUID) ticks() uint64 {
	low := uint64(binary.BigEndian.Uint32(u[0:4]))
	mid := uint64(binary.BigEndian.Uint16(u[4:6]))
	high := uint64(binary.BigEndian.Uint16(u[6:8]) & 0x0fff)
	return high<<48 | mid<<32 | low
}
