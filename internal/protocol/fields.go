package protocol

import "loadgrid/internal/wire"

// fieldString, fieldBytes, fieldBool, fieldInt, and fieldEnum read the
// i'th positional field of a sequence body and wrap wire's accessor
// errors with the field index, since a bare "expected integer, got
// boolean" is useless without knowing which of a dozen fields failed.

func fieldString(body wire.Value, i int) (string, error) {
	v, err := body.At(i)
	if err != nil {
		return "", protocolErrorf("field %d: %v", i, err)
	}
	s, err := v.String()
	if err != nil {
		return "", protocolErrorf("field %d: %v", i, err)
	}
	return s, nil
}

func fieldBytes(body wire.Value, i int) ([]byte, error) {
	v, err := body.At(i)
	if err != nil {
		return nil, protocolErrorf("field %d: %v", i, err)
	}
	b, err := v.Bytes()
	if err != nil {
		return nil, protocolErrorf("field %d: %v", i, err)
	}
	return b, nil
}

func fieldBool(body wire.Value, i int) (bool, error) {
	v, err := body.At(i)
	if err != nil {
		return false, protocolErrorf("field %d: %v", i, err)
	}
	b, err := v.Bool()
	if err != nil {
		return false, protocolErrorf("field %d: %v", i, err)
	}
	return b, nil
}

func fieldInt(body wire.Value, i int) (int64, error) {
	v, err := body.At(i)
	if err != nil {
		return 0, protocolErrorf("field %d: %v", i, err)
	}
	n, err := v.Int()
	if err != nil {
		return 0, protocolErrorf("field %d: %v", i, err)
	}
	return n, nil
}

func fieldEnum(body wire.Value, i int) (int64, error) {
	v, err := body.At(i)
	if err != nil {
		return 0, protocolErrorf("field %d: %v", i, err)
	}
	n, err := v.Enum()
	if err != nil {
		return 0, protocolErrorf("field %d: %v", i, err)
	}
	return n, nil
}
