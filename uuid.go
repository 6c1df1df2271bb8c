package binuuid

import (
	"bytes"
	"database/sql/driver"
	"encoding/hex"
	"fmt"
	"strings"
)

// UUID is a 128-bit identifier in RFC 4122 byte order. This is the logical
// value callers pass around; the stored form is a BinaryUUID produced by a Codec.
type UUID [16]byte

// Version represents the UUID version
type Version byte

const (
	_ Version = iota
	VersionTimeBased
	VersionDCESecurity
	VersionNameBasedMD5
	VersionRandom
	VersionNameBasedSHA1
	VersionReordered  // UUIDv6
	VersionTimeSorted // UUIDv7
	VersionCustom     // UUIDv8
)

// Variant represents the UUID variant
type Variant byte

const (
	VariantNCS Variant = iota
	VariantRFC4122
	VariantMicrosoft
	VariantFuture
)

var (
	// Nil is the nil UUID (all zeros)
	Nil UUID

	// Max is the max UUID (all ones)
	Max = UUID{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
)

// dash positions of the canonical 8-4-4-4-12 form
var hyphens = [4]int{8, 13, 18, 23}

// Version returns the version nibble of the UUID
func (u UUID) Version() Version {
	return Version(u[6] >> 4)
}

// Variant returns the variant of the UUID
func (u UUID) Variant() Variant {
	switch {
	case (u[8] & 0x80) == 0x00:
		return VariantNCS
	case (u[8] & 0xc0) == 0x80:
		return VariantRFC4122
	case (u[8] & 0xe0) == 0xc0:
		return VariantMicrosoft
	default:
		return VariantFuture
	}
}

// String returns the canonical lowercase form xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx
func (u UUID) String() string {
	var buf [36]byte
	encodeCanonical(buf[:], u)
	return string(buf[:])
}

func encodeCanonical(dst []byte, u UUID) {
	hex.Encode(dst[0:8], u[0:4])
	dst[8] = '-'
	hex.Encode(dst[9:13], u[4:6])
	dst[13] = '-'
	hex.Encode(dst[14:18], u[6:8])
	dst[18] = '-'
	hex.Encode(dst[19:23], u[8:10])
	dst[23] = '-'
	hex.Encode(dst[24:36], u[10:16])
}

// Parse parses a UUID from its textual representation.
// Accepted forms:
//   - xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx (canonical, any case)
//   - urn:uuid:xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx
//   - {xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx}
//   - xxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx
func Parse(s string) (UUID, error) {
	var u UUID

	switch {
	case len(s) == 45 && strings.EqualFold(s[:9], "urn:uuid:"):
		s = s[9:]
	case len(s) == 38 && s[0] == '{' && s[37] == '}':
		s = s[1:37]
	}

	var digits []byte
	switch len(s) {
	case 36:
		digits = make([]byte, 0, 32)
		last := 0
		for _, pos := range hyphens {
			if s[pos] != '-' {
				return u, ErrInvalidFormat
			}
			digits = append(digits, s[last:pos]...)
			last = pos + 1
		}
		digits = append(digits, s[last:]...)
	case 32:
		digits = []byte(s)
	default:
		return u, ErrInvalidFormat
	}

	if _, err := hex.Decode(u[:], digits); err != nil {
		return u, ErrInvalidFormat
	}
	return u, nil
}

// MustParse is like Parse but panics if the string cannot be parsed.
func MustParse(s string) UUID {
	u, err := Parse(s)
	if err != nil {
		panic(fmt.Sprintf("binuuid: Parse(%q): %v", s, err))
	}
	return u
}

// Bytes returns the UUID as a byte slice in RFC 4122 order
func (u UUID) Bytes() []byte {
	return u[:]
}

// IsNil reports whether u is the nil UUID
func (u UUID) IsNil() bool {
	return u == Nil
}

// MarshalText implements encoding.TextMarshaler
func (u UUID) MarshalText() ([]byte, error) {
	var buf [36]byte
	encodeCanonical(buf[:], u)
	return buf[:], nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (u *UUID) UnmarshalText(data []byte) error {
	id, err := Parse(string(data))
	if err != nil {
		return err
	}
	*u = id
	return nil
}

// MarshalBinary implements encoding.BinaryMarshaler. The output is RFC 4122
// order; use a Codec for the storage layout.
func (u UUID) MarshalBinary() ([]byte, error) {
	return u[:], nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler
func (u *UUID) UnmarshalBinary(data []byte) error {
	if len(data) != 16 {
		return fmt.Errorf("%w: got %d", ErrInvalidLength, len(data))
	}
	copy(u[:], data)
	return nil
}

// Scan implements sql.Scanner for columns holding the textual form
// or raw RFC 4122 bytes.
func (u *UUID) Scan(src interface{}) error {
	switch src := src.(type) {
	case nil:
		*u = Nil
		return nil
	case string:
		return u.UnmarshalText([]byte(src))
	case []byte:
		switch len(src) {
		case 0:
			*u = Nil
			return nil
		case 16:
			copy(u[:], src)
			return nil
		}
		return u.UnmarshalText(src)
	default:
		return fmt.Errorf("binuuid: cannot scan type %T into UUID", src)
	}
}

// Value implements driver.Valuer, emitting the textual form
func (u UUID) Value() (driver.Value, error) {
	return u.String(), nil
}

// Compare returns -1, 0 or +1 comparing the RFC 4122 bytes of u and other
func (u UUID) Compare(other UUID) int {
	return bytes.Compare(u[:], other[:])
}

// Equal reports whether u and other are the same UUID
func (u UUID) Equal(other UUID) bool {
	return u == other
}
