package binuuid

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

// cborTagUUID is the IANA CBOR tag for a binary UUID (RFC 9562 section 4).
const cborTagUUID = 37

// EncodeToHex encodes the UUID to 32 hex digits without hyphens
func (u UUID) EncodeToHex() string {
	return hex.EncodeToString(u[:])
}

// EncodeToBase64 encodes the UUID to URL-safe base64 without padding
func (u UUID) EncodeToBase64() string {
	return base64.RawURLEncoding.EncodeToString(u[:])
}

// DecodeFromHex decodes 32 hex digits into a UUID
func DecodeFromHex(s string) (UUID, error) {
	var u UUID
	if len(s) != 32 {
		return u, ErrInvalidFormat
	}
	if _, err := hex.Decode(u[:], []byte(s)); err != nil {
		return u, ErrInvalidFormat
	}
	return u, nil
}

// DecodeFromBase64 decodes URL-safe unpadded base64 into a UUID
func DecodeFromBase64(s string) (UUID, error) {
	var u UUID
	data, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return u, ErrInvalidFormat
	}
	if len(data) != 16 {
		return u, fmt.Errorf("%w: got %d", ErrInvalidLength, len(data))
	}
	copy(u[:], data)
	return u, nil
}

// FromBytes creates a UUID from 16 bytes in RFC 4122 order
func FromBytes(b []byte) (UUID, error) {
	var u UUID
	if len(b) != 16 {
		return u, fmt.Errorf("%w: got %d", ErrInvalidLength, len(b))
	}
	copy(u[:], b)
	return u, nil
}

// BinaryFromHex decodes 32 hex digits into a stored binary UUID without
// interpreting the bytes.
func BinaryFromHex(s string) (BinaryUUID, error) {
	u, err := DecodeFromHex(s)
	return BinaryUUID(u), err
}

// FromGoogle converts a github.com/google/uuid value
func FromGoogle(id uuid.UUID) UUID {
	return UUID(id)
}

// Google converts u to a github.com/google/uuid value
func (u UUID) Google() uuid.UUID {
	return uuid.UUID(u)
}

// MarshalCBOR encodes u as tag 37 wrapping a 16-byte string
func (u UUID) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(cbor.Tag{Number: cborTagUUID, Content: u[:]})
}

// UnmarshalCBOR accepts tag 37, an untagged 16-byte string or a text string
func (u *UUID) UnmarshalCBOR(data []byte) error {
	var raw cbor.RawTag
	if err := cbor.Unmarshal(data, &raw); err == nil {
		if raw.Number != cborTagUUID {
			return fmt.Errorf("binuuid: expected CBOR tag %d, got %d", cborTagUUID, raw.Number)
		}
		data = raw.Content
	}

	var v interface{}
	if err := cbor.Unmarshal(data, &v); err != nil {
		return err
	}
	switch v := v.(type) {
	case []byte:
		return u.UnmarshalBinary(v)
	case string:
		return u.UnmarshalText([]byte(v))
	default:
		return fmt.Errorf("binuuid: cannot decode CBOR %T into UUID", v)
	}
}
