package binuuid

import "errors"

var (
	// ErrInvalidFormat indicates that the UUID string format is invalid
	ErrInvalidFormat = errors.New("binuuid: invalid UUID format")

	// ErrInvalidLength indicates that a binary UUID is not exactly 16 bytes
	ErrInvalidLength = errors.New("binuuid: invalid UUID length (expected 16 bytes)")

	// ErrMalformedEncoding indicates that 16 bytes are not a value the codec could have produced
	ErrMalformedEncoding = errors.New("binuuid: malformed binary UUID encoding")

	// ErrUnencodable indicates that a UUID has no unambiguous binary form under the codec
	ErrUnencodable = errors.New("binuuid: UUID cannot be encoded by this codec")

	// ErrInvalidVersion indicates that the UUID version is not supported
	ErrInvalidVersion = errors.New("binuuid: invalid or unsupported UUID version")

	// ErrCodecInUse indicates an attempt to swap the codec of a factory that already minted UUIDs
	ErrCodecInUse = errors.New("binuuid: factory codec cannot change after UUIDs were minted")
)
