package protocol

import "loadgrid/internal/wire"

// ClientHello is the handshake message sent by load, monitor, and stat
// agents (spec §4.3). AuthID and Credentials are empty when the agent
// offers no credentials; Scheme is meaningless in that case.
type ClientHello struct {
	ClientID         string
	ClientVersion    string
	AuthID           string
	Credentials      []byte
	Scheme           string
	SupportsTimeSync bool
	Restricted       bool
}

func EncodeClientHello(id int64, h ClientHello) wire.Value {
	body := wire.Seq(
		wire.String(h.ClientID),
		wire.String(h.ClientVersion),
		wire.String(h.AuthID),
		wire.OctetString(h.Credentials),
		wire.String(h.Scheme),
		wire.Bool(h.SupportsTimeSync),
		wire.Bool(h.Restricted),
	)
	return Encode(Envelope{ID: id, Type: TypeClientHello, Body: body})
}

func DecodeClientHello(body wire.Value) (ClientHello, error) {
	n, err := body.Len()
	if err != nil || n != 7 {
		return ClientHello{}, protocolErrorf("malformed client-hello: %v", err)
	}
	var h ClientHello
	h.ClientID, _ = fieldString(body, 0)
	h.ClientVersion, _ = fieldString(body, 1)
	h.AuthID, _ = fieldString(body, 2)
	h.Credentials, _ = fieldBytes(body, 3)
	h.Scheme, _ = fieldString(body, 4)
	h.SupportsTimeSync, _ = fieldBool(body, 5)
	h.Restricted, _ = fieldBool(body, 6)
	return h, nil
}

// ClientManagerHello is the handshake message client-manager agents
// send (spec §4.7): it additionally advertises host capacity.
type ClientManagerHello struct {
	ClientID           string
	ClientVersion      string
	AuthID             string
	Credentials        []byte
	Scheme             string
	MaxClientsThisHost int
}

func EncodeClientManagerHello(id int64, h ClientManagerHello) wire.Value {
	body := wire.Seq(
		wire.String(h.ClientID),
		wire.String(h.ClientVersion),
		wire.String(h.AuthID),
		wire.OctetString(h.Credentials),
		wire.String(h.Scheme),
		wire.Int(int64(h.MaxClientsThisHost)),
	)
	return Encode(Envelope{ID: id, Type: TypeClientManagerHello, Body: body})
}

func DecodeClientManagerHello(body wire.Value) (ClientManagerHello, error) {
	n, err := body.Len()
	if err != nil || n != 6 {
		return ClientManagerHello{}, protocolErrorf("malformed client-manager-hello: %v", err)
	}
	var h ClientManagerHello
	h.ClientID, _ = fieldString(body, 0)
	h.ClientVersion, _ = fieldString(body, 1)
	h.AuthID, _ = fieldString(body, 2)
	h.Credentials, _ = fieldBytes(body, 3)
	h.Scheme, _ = fieldString(body, 4)
	maxClients, err := fieldInt(body, 5)
	if err != nil {
		return ClientManagerHello{}, err
	}
	h.MaxClientsThisHost = int(maxClients)
	return h, nil
}

// NoServerTime is the sentinel server-time value for a hello-response
// when the agent did not request time sync (spec §4.3).
const NoServerTime int64 = -1

// HelloResponse answers a hello (spec §4.3).
type HelloResponse struct {
	Code             ResponseCode
	Message          string
	ServerTimeMillis int64
}

func EncodeHelloResponse(id int64, r HelloResponse) wire.Value {
	body := wire.Seq(
		wire.Enum(int64(r.Code)),
		wire.String(r.Message),
		wire.Int(r.ServerTimeMillis),
	)
	return Encode(Envelope{ID: id, Type: TypeHelloResponse, Body: body})
}

func DecodeHelloResponse(body wire.Value) (HelloResponse, error) {
	n, err := body.Len()
	if err != nil || n != 3 {
		return HelloResponse{}, protocolErrorf("malformed hello-response: %v", err)
	}
	var r HelloResponse
	code, err := fieldEnum(body, 0)
	if err != nil {
		return HelloResponse{}, err
	}
	r.Code = ResponseCode(code)
	r.Message, _ = fieldString(body, 1)
	r.ServerTimeMillis, _ = fieldInt(body, 2)
	return r, nil
}
