package binuuid

import (
	"bytes"
	"encoding/hex"
	"fmt"
)

// BinaryUUID is the 16-byte stored form of a UUID as produced by a Codec.
// Byte-wise comparison of BinaryUUID values is the order a storage index sees.
type BinaryUUID [16]byte

// Bytes returns the stored bytes
func (b BinaryUUID) Bytes() []byte {
	return b[:]
}

// Compare returns -1, 0 or +1 comparing b and other byte by byte
func (b BinaryUUID) Compare(other BinaryUUID) int {
	return bytes.Compare(b[:], other[:])
}

// Hex returns the stored bytes as 32 lowercase hex digits
func (b BinaryUUID) Hex() string {
	return hex.EncodeToString(b[:])
}

// SQLLiteral returns the value as a hex blob literal (X'...') accepted by
// both MySQL and SQLite.
func (b BinaryUUID) SQLLiteral() string {
	return "X'" + b.Hex() + "'"
}

// Codec converts between a UUID and its stored binary form.
// Implementations must be stateless and safe for concurrent use.
type Codec interface {
	Encode(u UUID) (BinaryUUID, error)
	Decode(b []byte) (UUID, error)
}

// OrderedTimeCodec stores time-based (version 1) UUIDs with their timestamp
// fields most significant first: time_hi_and_version, time_mid, time_low,
// then clock sequence and node unchanged. Values minted by one node then sort
// by generation time. Other versions are stored in RFC 4122 order.
type OrderedTimeCodec struct{}

// Encode returns the ordered binary form of u.
//
// A non-v1 UUID whose first hex digit is 1 shares its byte pattern with the
// ordered image of some v1 UUID and is rejected with ErrUnencodable.
func (OrderedTimeCodec) Encode(u UUID) (BinaryUUID, error) {
	var b BinaryUUID
	if u.Version() == VersionTimeBased {
		copy(b[0:2], u[6:8])
		copy(b[2:4], u[4:6])
		copy(b[4:8], u[0:4])
		copy(b[8:], u[8:])
		return b, nil
	}
	if u[0]>>4 == byte(VersionTimeBased) {
		return b, fmt.Errorf("%w: %s is version %d and collides with the ordered layout", ErrUnencodable, u, u.Version())
	}
	copy(b[:], u[:])
	return b, nil
}

// Decode is the inverse of Encode. Bytes that do not hold a UUID of
// version 1 to 8 (or the Nil or Max UUID) fail with ErrMalformedEncoding.
func (OrderedTimeCodec) Decode(b []byte) (UUID, error) {
	var u UUID
	if len(b) != 16 {
		return u, fmt.Errorf("%w: got %d", ErrInvalidLength, len(b))
	}
	if b[0]>>4 == byte(VersionTimeBased) {
		copy(u[0:4], b[4:8])
		copy(u[4:6], b[2:4])
		copy(u[6:8], b[0:2])
		copy(u[8:], b[8:])
		return u, nil
	}
	// Encode never leaves a v1 UUID in RFC order.
	if b[6]>>4 == byte(VersionTimeBased) {
		return u, fmt.Errorf("%w: %x holds a version 1 UUID in RFC 4122 order", ErrMalformedEncoding, b)
	}
	copy(u[:], b)
	if u == Nil || u == Max {
		return u, nil
	}
	if v := u.Version(); v < VersionTimeBased || v > VersionCustom {
		return Nil, fmt.Errorf("%w: %x has version %d", ErrMalformedEncoding, b, v)
	}
	return u, nil
}

// StandardCodec stores UUIDs in plain RFC 4122 byte order.
type StandardCodec struct{}

// Encode returns the RFC 4122 bytes of u
func (StandardCodec) Encode(u UUID) (BinaryUUID, error) {
	return BinaryUUID(u), nil
}

// Decode copies 16 bytes into a UUID
func (StandardCodec) Decode(b []byte) (UUID, error) {
	var u UUID
	if len(b) != 16 {
		return u, fmt.Errorf("%w: got %d", ErrInvalidLength, len(b))
	}
	copy(u[:], b)
	return u, nil
}

var (
	_ Codec = OrderedTimeCodec{}
	_ Codec = StandardCodec{}
)
