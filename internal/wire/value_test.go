package wire

import "testing"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []Value{
		Bool(true),
		Bool(false),
		Int(0),
		Int(127),
		Int(-1),
		Int(-128),
		Int(1 << 40),
		Int(-(1 << 40)),
		Enum(3),
		OctetString(nil),
		String("hello"),
		Seq(Int(1), String("two"), Bool(true)),
		Set(Int(1), Int(2), Int(3)),
		Seq(Seq(Int(1)), Seq(Int(2), Int(3))),
	}

	for _, want := range cases {
		buf := Encode(want)
		got, err := Decode(buf)
		if err != nil {
			t.Fatalf("Decode(%v): %v", want, err)
		}
		if !valuesEqual(want, got) {
			t.Fatalf("round trip mismatch: want %+v, got %+v", want, got)
		}
	}
}

func TestDecodeTrailingBytesError(t *testing.T) {
	buf := append(Encode(Int(1)), 0xff)
	if _, err := Decode(buf); err == nil {
		t.Fatal("expected error for trailing bytes, got nil")
	}
}

func TestDecodeTruncatedError(t *testing.T) {
	buf := Encode(Seq(Int(1), Int(2)))
	for n := 0; n < len(buf); n++ {
		if _, err := Decode(buf[:n]); err == nil {
			t.Fatalf("expected error decoding truncated buffer of length %d", n)
		}
	}
}

func TestWrongAccessorErrors(t *testing.T) {
	v := Int(5)
	if _, err := v.Bool(); err == nil {
		t.Fatal("expected error calling Bool() on an integer Value")
	}
	if _, err := v.Bytes(); err == nil {
		t.Fatal("expected error calling Bytes() on an integer Value")
	}
	if _, err := v.Items(); err == nil {
		t.Fatal("expected error calling Items() on an integer Value")
	}
}

func TestSeqAtAndLen(t *testing.T) {
	v := Seq(Int(1), String("a"), Bool(true))
	n, err := v.Len()
	if err != nil || n != 3 {
		t.Fatalf("Len() = %d, %v; want 3, nil", n, err)
	}
	second, err := v.At(1)
	if err != nil {
		t.Fatalf("At(1): %v", err)
	}
	s, err := second.String()
	if err != nil || s != "a" {
		t.Fatalf("At(1).String() = %q, %v; want \"a\", nil", s, err)
	}
	if _, err := v.At(3); err == nil {
		t.Fatal("expected out-of-range error for At(3)")
	}
}

func valuesEqual(a, b Value) bool {
	if a.Tag != b.Tag {
		return false
	}
	switch a.Tag {
	case TagBoolean:
		av, _ := a.Bool()
		bv, _ := b.Bool()
		return av == bv
	case TagInteger, TagEnumerated:
		av, bv := a.intV, b.intV
		return av == bv
	case TagOctetString:
		ab, _ := a.Bytes()
		bb, _ := b.Bytes()
		if len(ab) != len(bb) {
			return false
		}
		for i := range ab {
			if ab[i] != bb[i] {
				return false
			}
		}
		return true
	case TagSequence, TagSet:
		ai, _ := a.Items()
		bi, _ := b.Items()
		if len(ai) != len(bi) {
			return false
		}
		for i := range ai {
			if !valuesEqual(ai[i], bi[i]) {
				return false
			}
		}
		return true
	}
	return false
}
