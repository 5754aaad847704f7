package wire

import (
	"encoding/binary"
	"fmt"
)

// Encode renders a Value as its wire bytes: a one-byte tag followed by
// a tag-specific payload. It never fails; Encode is only ever called on
// Values built through the constructors in this package, which cannot
// represent an invalid tag.
func Encode(v Value) []byte {
	buf := make([]byte, 0, 16)
	buf = append(buf, byte(v.Tag))
	switch v.Tag {
	case TagBoolean:
		if v.boolV {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	case TagInteger, TagEnumerated:
		ib := minimalTwosComplement(v.intV)
		buf = append(buf, byte(len(ib)))
		buf = append(buf, ib...)
	case TagOctetString:
		var lb [4]byte
		binary.BigEndian.PutUint32(lb[:], uint32(len(v.bytesV)))
		buf = append(buf, lb[:]...)
		buf = append(buf, v.bytesV...)
	case TagSequence, TagSet:
		var lb [4]byte
		binary.BigEndian.PutUint32(lb[:], uint32(len(v.items)))
		buf = append(buf, lb[:]...)
		for _, item := range v.items {
			buf = append(buf, Encode(item)...)
		}
	default:
		panic(fmt.Sprintf("wire: encode called on unconstructed Value with tag 0x%02x", byte(v.Tag)))
	}
	return buf
}

// minimalTwosComplement returns the shortest big-endian two's
// complement encoding of i, 0 to 8 bytes. Zero encodes as zero bytes.
func minimalTwosComplement(i int64) []byte {
	if i == 0 {
		return nil
	}
	var full [8]byte
	binary.BigEndian.PutUint64(full[:], uint64(i))

	// Drop leading bytes that are pure sign-extension: a leading 0x00
	// whose next byte's high bit is also 0, or a leading 0xff whose
	// next byte's high bit is also 1.
	start := 0
	for start < 7 {
		b, next := full[start], full[start+1]
		if b == 0x00 && next&0x80 == 0 {
			start++
			continue
		}
		if b == 0xff && next&0x80 != 0 {
			start++
			continue
		}
		break
	}
	return full[start:]
}
