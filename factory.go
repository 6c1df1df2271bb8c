package binuuid

import (
	"fmt"
	"reflect"
	"sync"
)

// Factory mints UUIDs and converts them to and from their stored form with
// one configured Codec. Build it once at startup and hand it to the
// components that create records; there is no package-level factory.
type Factory struct {
	mu     sync.RWMutex
	codec  Codec
	gen    *Generator
	minted bool
}

// NewFactory returns a factory using codec and gen. A nil codec selects
// OrderedTimeCodec; a nil generator selects NewGenerator().
func NewFactory(codec Codec, gen *Generator) *Factory {
	if codec == nil {
		codec = OrderedTimeCodec{}
	}
	if gen == nil {
		gen = NewGenerator()
	}
	return &Factory{codec: codec, gen: gen}
}

// Codec returns the active codec
func (f *Factory) Codec() Codec {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.codec
}

// Generator returns the generator used by New
func (f *Factory) Generator() *Generator {
	return f.gen
}

// SetCodec installs c. Installing the codec already in use is a no-op.
// A different codec is accepted only until the first UUID is minted;
// afterwards it fails with ErrCodecInUse, since previously minted values
// would no longer decode.
func (f *Factory) SetCodec(c Codec) error {
	if c == nil {
		return fmt.Errorf("binuuid: nil codec")
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if sameCodec(f.codec, c) {
		return nil
	}
	if f.minted {
		return fmt.Errorf("%w: active %T, requested %T", ErrCodecInUse, f.codec, c)
	}
	f.codec = c
	return nil
}

// New mints a UUID. The factory counts as minted before generation starts.
func (f *Factory) New() (UUID, error) {
	f.markMinted()
	return f.gen.New()
}

// NewBinary mints a UUID and returns its stored form
func (f *Factory) NewBinary() (BinaryUUID, error) {
	u, err := f.New()
	if err != nil {
		return BinaryUUID{}, err
	}
	return f.Encode(u)
}

// Encode converts u to its stored form with the active codec
func (f *Factory) Encode(u UUID) (BinaryUUID, error) {
	return f.Codec().Encode(u)
}

// Decode converts stored bytes back to a UUID with the active codec
func (f *Factory) Decode(b []byte) (UUID, error) {
	return f.Codec().Decode(b)
}

// EncodeString parses s and encodes it
func (f *Factory) EncodeString(s string) (BinaryUUID, error) {
	u, err := Parse(s)
	if err != nil {
		return BinaryUUID{}, fmt.Errorf("%w: %q", err, s)
	}
	return f.Encode(u)
}

// DecodeString decodes b and returns the canonical text
func (f *Factory) DecodeString(b []byte) (string, error) {
	u, err := f.Decode(b)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func (f *Factory) markMinted() {
	f.mu.RLock()
	minted := f.minted
	f.mu.RUnlock()
	if minted {
		return
	}
	f.mu.Lock()
	f.minted = true
	f.mu.Unlock()
}

// sameCodec reports whether a and b are the same codec. Codecs of a type
// that cannot be compared are never the same.
func sameCodec(a, b Codec) bool {
	t := reflect.TypeOf(a)
	if t != reflect.TypeOf(b) || !t.Comparable() {
		return false
	}
	return a == b
}
