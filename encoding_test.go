package binuuid

import (
	"bytes"
	"errors"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

func TestUUID_EncodeToHex(t *testing.T) {
	expected := "f47ac10b58cc4372a5670e02b2c3d479"
	if got := sampleV4.EncodeToHex(); got != expected {
		t.Errorf("EncodeToHex() = %v, want %v", got, expected)
	}

	got, err := DecodeFromHex(expected)
	if err != nil {
		t.Fatalf("DecodeFromHex() error = %v", err)
	}
	if got != sampleV4 {
		t.Errorf("DecodeFromHex() = %v, want %v", got, sampleV4)
	}
}

func TestDecodeFromHex_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"too short", "f47ac10b58cc4372"},
		{"too long", "f47ac10b58cc4372a5670e02b2c3d479ff"},
		{"invalid hex", "g47ac10b58cc4372a5670e02b2c3d479"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeFromHex(tt.input); err == nil {
				t.Errorf("DecodeFromHex() expected error for input %q", tt.input)
			}
		})
	}
}

func TestBinaryFromHex(t *testing.T) {
	b, err := BinaryFromHex("13332222111111114444555555555555")
	if err != nil {
		t.Fatalf("BinaryFromHex() error = %v", err)
	}
	u, err := OrderedTimeCodec{}.Decode(b.Bytes())
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if u.String() != "11111111-2222-1333-4444-555555555555" {
		t.Errorf("Decode() = %s", u)
	}
}

func TestDecodeFromBase64(t *testing.T) {
	decoded, err := DecodeFromBase64(sampleV4.EncodeToBase64())
	if err != nil {
		t.Fatalf("DecodeFromBase64() error = %v", err)
	}
	if decoded != sampleV4 {
		t.Errorf("DecodeFromBase64() = %v, want %v", decoded, sampleV4)
	}

	if _, err := DecodeFromBase64("!!!invalid!!!"); !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("DecodeFromBase64(invalid) error = %v", err)
	}
	if _, err := DecodeFromBase64("YWJj"); !errors.Is(err, ErrInvalidLength) {
		t.Errorf("DecodeFromBase64(3 bytes) error = %v", err)
	}
}

func TestFromBytes(t *testing.T) {
	got, err := FromBytes(sampleV4.Bytes())
	if err != nil {
		t.Fatalf("FromBytes() error = %v", err)
	}
	if got != sampleV4 {
		t.Errorf("FromBytes() = %v, want %v", got, sampleV4)
	}

	for _, input := range [][]byte{{0x01, 0x02, 0x03}, make([]byte, 20), {}} {
		if _, err := FromBytes(input); !errors.Is(err, ErrInvalidLength) {
			t.Errorf("FromBytes(%d bytes) error = %v, want %v", len(input), err, ErrInvalidLength)
		}
	}
}

func TestGoogleInterop(t *testing.T) {
	g := uuid.MustParse(sampleV4.String())
	if FromGoogle(g) != sampleV4 {
		t.Errorf("FromGoogle() = %v, want %v", FromGoogle(g), sampleV4)
	}
	if sampleV4.Google() != g {
		t.Errorf("Google() = %v, want %v", sampleV4.Google(), g)
	}

	// version 1 values minted by google/uuid survive the ordered codec
	v1, err := uuid.NewUUID()
	if err != nil {
		t.Fatalf("uuid.NewUUID() error = %v", err)
	}
	b, err := OrderedTimeCodec{}.Encode(FromGoogle(v1))
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	back, err := OrderedTimeCodec{}.Decode(b.Bytes())
	if err != nil || back.Google() != v1 {
		t.Errorf("Decode() = %v, %v; want %v", back, err, v1)
	}
}

func TestUUID_CBOR(t *testing.T) {
	data, err := cbor.Marshal(sampleV4)
	if err != nil {
		t.Fatalf("cbor.Marshal() error = %v", err)
	}
	// tag 37 (0xd8 0x25) followed by a 16-byte string (0x50)
	if !bytes.HasPrefix(data, []byte{0xd8, 0x25, 0x50}) {
		t.Errorf("cbor.Marshal() = %x, want tag 37 byte string", data)
	}

	var got UUID
	if err := cbor.Unmarshal(data, &got); err != nil {
		t.Fatalf("cbor.Unmarshal() error = %v", err)
	}
	if got != sampleV4 {
		t.Errorf("CBOR round trip = %v, want %v", got, sampleV4)
	}

	text, _ := cbor.Marshal(sampleV4.String())
	if err := cbor.Unmarshal(text, &got); err != nil || got != sampleV4 {
		t.Errorf("cbor.Unmarshal(text) = %v, %v", got, err)
	}

	wrongTag, _ := cbor.Marshal(cbor.Tag{Number: 8, Content: sampleV4.Bytes()})
	if err := cbor.Unmarshal(wrongTag, &got); err == nil {
		t.Error("cbor.Unmarshal() with tag 8 should fail")
	}
}
