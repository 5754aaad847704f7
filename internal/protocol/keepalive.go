package protocol

import "loadgrid/internal/wire"

// EncodeKeepalive builds a server-originated keepalive: an otherwise
// empty envelope whose only purpose is to hold the wire open and keep
// the connection's message-ID counter advancing (spec §4.3 step 2).
func EncodeKeepalive(id int64) wire.Value {
	return Encode(Envelope{ID: id, Type: TypeKeepalive, Body: wire.Seq()})
}

// ServerShutdown is sent to every live session as the server begins
// its shutdown fan-out (spec §4.8 step 4).
type ServerShutdown struct {
	Message string
}

func EncodeServerShutdown(id int64, s ServerShutdown) wire.Value {
	body := wire.Seq(wire.String(s.Message))
	return Encode(Envelope{ID: id, Type: TypeServerShutdown, Body: body})
}

func DecodeServerShutdown(body wire.Value) (ServerShutdown, error) {
	n, err := body.Len()
	if err != nil || n != 1 {
		return ServerShutdown{}, protocolErrorf("malformed server-shutdown: %v", err)
	}
	msg, err := fieldString(body, 0)
	if err != nil {
		return ServerShutdown{}, err
	}
	return ServerShutdown{Message: msg}, nil
}
