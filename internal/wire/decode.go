package wire

import (
	"encoding/binary"
	"fmt"
)

// maxCollectionLen bounds how many elements a single sequence or set
// may claim to carry, and maxStringLen bounds a single octet-string.
// Both guard against a corrupt or hostile length prefix driving an
// unbounded allocation before any byte of the claimed payload has even
// been read.
const (
	maxCollectionLen = 1 << 20
	maxStringLen     = 64 << 20
)

// decoder walks a byte slice left to right, consuming one Value at a
// time. It never reads past the end of buf; running out of bytes is
// reported as an error rather than a panic, since buf is the body of a
// record a peer supplied.
type decoder struct {
	buf []byte
	pos int
}

// Decode parses exactly one Value from buf and errors if any bytes of
// buf are left unconsumed, since a record body is defined to be a
// single top-level Value (spec §4.1).
func Decode(buf []byte) (Value, error) {
	d := &decoder{buf: buf}
	v, err := d.value()
	if err != nil {
		return Value{}, err
	}
	if d.pos != len(d.buf) {
		return Value{}, fmt.Errorf("wire: %d trailing bytes after decoded value", len(d.buf)-d.pos)
	}
	return v, nil
}

func (d *decoder) need(n int) error {
	if len(d.buf)-d.pos < n {
		return fmt.Errorf("wire: need %d bytes, have %d", n, len(d.buf)-d.pos)
	}
	return nil
}

func (d *decoder) byte() (byte, error) {
	if err := d.need(1); err != nil {
		return 0, err
	}
	b := d.buf[d.pos]
	d.pos++
	return b, nil
}

func (d *decoder) take(n int) ([]byte, error) {
	if err := d.need(n); err != nil {
		return nil, err
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

func (d *decoder) uint32() (uint32, error) {
	b, err := d.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (d *decoder) value() (Value, error) {
	tagByte, err := d.byte()
	if err != nil {
		return Value{}, err
	}
	tag := Tag(tagByte)
	switch tag {
	case TagBoolean:
		b, err := d.byte()
		if err != nil {
			return Value{}, err
		}
		return Bool(b != 0), nil

	case TagInteger, TagEnumerated:
		n, err := d.byte()
		if err != nil {
			return Value{}, err
		}
		if n > 8 {
			return Value{}, fmt.Errorf("wire: integer length %d exceeds 8", n)
		}
		raw, err := d.take(int(n))
		if err != nil {
			return Value{}, err
		}
		i := decodeTwosComplement(raw)
		if tag == TagEnumerated {
			return Enum(i), nil
		}
		return Int(i), nil

	case TagOctetString:
		n, err := d.uint32()
		if err != nil {
			return Value{}, err
		}
		if n > maxStringLen {
			return Value{}, fmt.Errorf("wire: octet-string length %d exceeds limit", n)
		}
		raw, err := d.take(int(n))
		if err != nil {
			return Value{}, err
		}
		return OctetString(raw), nil

	case TagSequence, TagSet:
		n, err := d.uint32()
		if err != nil {
			return Value{}, err
		}
		if n > maxCollectionLen {
			return Value{}, fmt.Errorf("wire: collection length %d exceeds limit", n)
		}
		items := make([]Value, 0, n)
		for i := uint32(0); i < n; i++ {
			item, err := d.value()
			if err != nil {
				return Value{}, fmt.Errorf("wire: element %d: %w", i, err)
			}
			items = append(items, item)
		}
		if tag == TagSequence {
			return Seq(items...), nil
		}
		return Set(items...), nil

	default:
		return Value{}, fmt.Errorf("wire: unknown tag 0x%02x", tagByte)
	}
}

func decodeTwosComplement(raw []byte) int64 {
	if len(raw) == 0 {
		return 0
	}
	var full [8]byte
	if raw[0]&0x80 != 0 {
		for i := range full {
			full[i] = 0xff
		}
	}
	copy(full[8-len(raw):], raw)
	return int64(binary.BigEndian.Uint64(full[:]))
}
