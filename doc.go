// Package binuuid stores UUID keys as compact 16-byte binary values instead
// of 36-character text.
//
// The stored layout is chosen by a Codec. OrderedTimeCodec moves the
// timestamp fields of a version 1 UUID to the front, most significant first,
// so that byte-wise order of stored keys follows generation time and new rows
// land at the right edge of a B-tree index:
//
//	RFC 4122:  time_low(4) time_mid(2) time_hi_and_version(2) clock_seq(2) node(6)
//	stored:    time_hi_and_version(2) time_mid(2) time_low(4) clock_seq(2) node(6)
//
// Other versions keep their RFC 4122 byte order; version 7 is already time
// ordered.
//
// Basic Usage:
//
//	factory := binuuid.NewFactory(binuuid.OrderedTimeCodec{}, binuuid.NewGenerator())
//
//	id, err := factory.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	stored, err := factory.Encode(id) // 16 bytes for the database
//	back, err := factory.Decode(stored.Bytes())
//
// The Factory is an explicit configuration object: build one at startup and
// pass it to whatever creates records. Its codec may be re-set to the same
// value at any time, but cannot be swapped once UUIDs have been minted.
//
// Column types for the supported SQL dialects live in package dialect and
// the gorm model field adapter in package gormuuid.
//
// Thread Safety:
//
// Codecs are stateless. Generator and Factory are safe for concurrent use.
package binuuid
