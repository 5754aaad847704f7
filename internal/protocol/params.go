package protocol

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"loadgrid/internal/wire"
)

// EncodeParams renders a job's opaque parameter map as an octet-string
// Value. The wire protocol's primitive set (spec §4.1) has no map
// shape of its own, so the parameter list is msgpack'd and carried as
// an opaque byte string inside the framed record — a nested encoding,
// not a second wire format.
func EncodeParams(params map[string]any) (wire.Value, error) {
	b, err := msgpack.Marshal(params)
	if err != nil {
		return wire.Value{}, fmt.Errorf("protocol: encode params: %w", err)
	}
	return wire.OctetString(b), nil
}

// DecodeParams reverses EncodeParams.
func DecodeParams(v wire.Value) (map[string]any, error) {
	b, err := v.Bytes()
	if err != nil {
		return nil, fmt.Errorf("protocol: params field: %w", err)
	}
	if len(b) == 0 {
		return map[string]any{}, nil
	}
	var params map[string]any
	if err := msgpack.Unmarshal(b, &params); err != nil {
		return nil, fmt.Errorf("protocol: decode params: %w", err)
	}
	return params, nil
}
