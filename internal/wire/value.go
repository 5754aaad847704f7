// Package wire implements the framed, self-describing record encoding
// every listener in this module speaks (load-client, resource-monitor,
// stat, and client-manager connections all share the same codec). A
// record is a typed tree of Values; the wire layer knows nothing about
// message catalogs or job semantics, only how to turn a Value into
// bytes and back.
package wire

import "fmt"

// Tag identifies the shape of a Value on the wire.
type Tag byte

const (
	TagBoolean     Tag = 0x01
	TagInteger     Tag = 0x02
	TagOctetString Tag = 0x03
	TagEnumerated  Tag = 0x04
	TagSequence    Tag = 0x05
	TagSet         Tag = 0x06
)

func (t Tag) String() string {
	switch t {
	case TagBoolean:
		return "boolean"
	case TagInteger:
		return "integer"
	case TagOctetString:
		return "octet-string"
	case TagEnumerated:
		return "enumerated"
	case TagSequence:
		return "sequence"
	case TagSet:
		return "set"
	default:
		return fmt.Sprintf("tag(0x%02x)", byte(t))
	}
}

// Value is one node of the typed tree a record is built from. Only one
// of the fields is meaningful, selected by Tag.
type Value struct {
	Tag    Tag
	boolV  bool
	intV   int64
	bytesV []byte
	items  []Value
}

// Bool builds a boolean Value.
func Bool(b bool) Value { return Value{Tag: TagBoolean, boolV: b} }

// Int builds an integer Value.
func Int(i int64) Value { return Value{Tag: TagInteger, intV: i} }

// Enum builds an enumerated Value. Enumerated values share the
// integer's minimal two's-complement encoding but carry their own tag,
// and only the Enum accessor reads them back (Int refuses them), so
// callers can't mix up an ordinal with a count by accident.
func Enum(i int64) Value { return Value{Tag: TagEnumerated, intV: i} }

// OctetString builds an octet-string Value. Both UTF-8 text and
// arbitrary binary payloads (msgpack'd job params, class-transfer
// bytes) use this tag; the wire layer does not interpret the content.
func OctetString(b []byte) Value {
	cp := make([]byte, len(b))
	copy(cp, b)
	return Value{Tag: TagOctetString, bytesV: cp}
}

// String builds an octet-string Value from a Go string.
func String(s string) Value { return OctetString([]byte(s)) }

// Seq builds a sequence Value: an ordered, positionally-significant
// list of fields (spec §6 message bodies are sequences).
func Seq(items ...Value) Value { return Value{Tag: TagSequence, items: items} }

// Set builds a set Value: an unordered collection where element count
// is significant but position is not.
func Set(items ...Value) Value { return Value{Tag: TagSet, items: items} }

// Bool returns the boolean payload, or an error if Tag isn't boolean.
func (v Value) Bool() (bool, error) {
	if v.Tag != TagBoolean {
		return false, fmt.Errorf("wire: expected boolean, got %s", v.Tag)
	}
	return v.boolV, nil
}

// Int returns the integer payload, or an error if Tag isn't integer.
func (v Value) Int() (int64, error) {
	if v.Tag != TagInteger {
		return 0, fmt.Errorf("wire: expected integer, got %s", v.Tag)
	}
	return v.intV, nil
}

// Enum returns the enumerated payload, or an error if Tag isn't enumerated.
func (v Value) Enum() (int64, error) {
	if v.Tag != TagEnumerated {
		return 0, fmt.Errorf("wire: expected enumerated, got %s", v.Tag)
	}
	return v.intV, nil
}

// Bytes returns the octet-string payload, or an error if Tag isn't
// octet-string. The returned slice is a copy; callers may retain it.
func (v Value) Bytes() ([]byte, error) {
	if v.Tag != TagOctetString {
		return nil, fmt.Errorf("wire: expected octet-string, got %s", v.Tag)
	}
	cp := make([]byte, len(v.bytesV))
	copy(cp, v.bytesV)
	return cp, nil
}

// String returns the octet-string payload decoded as a Go string.
func (v Value) String() (string, error) {
	b, err := v.Bytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Items returns the element list of a sequence or set, or an error for
// any other tag.
func (v Value) Items() ([]Value, error) {
	if v.Tag != TagSequence && v.Tag != TagSet {
		return nil, fmt.Errorf("wire: expected sequence or set, got %s", v.Tag)
	}
	return v.items, nil
}

// At returns the i'th element of a sequence, bounds-checked. Message
// decoders use this heavily since spec §6 bodies are positional.
func (v Value) At(i int) (Value, error) {
	items, err := v.Items()
	if err != nil {
		return Value{}, err
	}
	if i < 0 || i >= len(items) {
		return Value{}, fmt.Errorf("wire: index %d out of range (len %d)", i, len(items))
	}
	return items[i], nil
}

// Len returns the element count of a sequence or set.
func (v Value) Len() (int, error) {
	items, err := v.Items()
	if err != nil {
		return 0, err
	}
	return len(items), nil
}
