package protocol

import (
	"fmt"

	"loadgrid/internal/wire"
)

// ErrProtocol marks a structural decode failure: a malformed envelope
// or a body that does not match its type's expected shape.
// DecodeEnvelope does not check the type tag; a message of unknown type
// decodes and reaches the session's unexpected-message path.
type ErrProtocol struct {
	Reason string
}

func (e *ErrProtocol) Error() string { return "protocol: " + e.Reason }

func protocolErrorf(format string, args ...any) error {
	return &ErrProtocol{Reason: fmt.Sprintf(format, args...)}
}

// Envelope is the outer shape every message shares: { messageID,
// messageType, body } (spec §6).
type Envelope struct {
	ID   int64
	Type MessageType
	Body wire.Value
}

// Encode renders an envelope as the wire.Value read_record/write_record
// transmit.
func Encode(e Envelope) wire.Value {
	return wire.Seq(wire.Int(e.ID), wire.Enum(int64(e.Type)), e.Body)
}

// DecodeEnvelope splits a decoded record into its envelope shape
// without interpreting the body; callers dispatch on Type and decode
// Body with the matching per-message decoder.
func DecodeEnvelope(v wire.Value) (Envelope, error) {
	n, err := v.Len()
	if err != nil || n != 3 {
		return Envelope{}, protocolErrorf("malformed envelope: %v", err)
	}
	idV, _ := v.At(0)
	typeV, _ := v.At(1)
	body, _ := v.At(2)

	id, err := idV.Int()
	if err != nil {
		return Envelope{}, protocolErrorf("envelope message-id: %v", err)
	}
	typ, err := typeV.Enum()
	if err != nil {
		return Envelope{}, protocolErrorf("envelope message-type: %v", err)
	}

	return Envelope{ID: id, Type: MessageType(typ), Body: body}, nil
}
