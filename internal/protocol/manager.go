package protocol

import "loadgrid/internal/wire"

// StartClientRequest asks a client manager to launch n load clients,
// pointed at the given load-listener port (spec §4.7 start_clients).
type StartClientRequest struct {
	Count            int
	LoadListenerPort int
}

func EncodeStartClientRequest(id int64, r StartClientRequest) wire.Value {
	body := wire.Seq(wire.Int(int64(r.Count)), wire.Int(int64(r.LoadListenerPort)))
	return Encode(Envelope{ID: id, Type: TypeStartClientRequest, Body: body})
}

func DecodeStartClientRequest(body wire.Value) (StartClientRequest, error) {
	n, err := body.Len()
	if err != nil || n != 2 {
		return StartClientRequest{}, protocolErrorf("malformed start-client-request: %v", err)
	}
	count, err := fieldInt(body, 0)
	if err != nil {
		return StartClientRequest{}, err
	}
	port, err := fieldInt(body, 1)
	if err != nil {
		return StartClientRequest{}, err
	}
	return StartClientRequest{Count: int(count), LoadListenerPort: int(port)}, nil
}

// StartClientResponse answers a start-client-request.
type StartClientResponse struct {
	Code    ResponseCode
	Message string
}

func EncodeStartClientResponse(id int64, r StartClientResponse) wire.Value {
	body := wire.Seq(wire.Enum(int64(r.Code)), wire.String(r.Message))
	return Encode(Envelope{ID: id, Type: TypeStartClientResponse, Body: body})
}

func DecodeStartClientResponse(body wire.Value) (StartClientResponse, error) {
	n, err := body.Len()
	if err != nil || n != 2 {
		return StartClientResponse{}, protocolErrorf("malformed start-client-response: %v", err)
	}
	code, err := fieldEnum(body, 0)
	if err != nil {
		return StartClientResponse{}, err
	}
	msg, _ := fieldString(body, 1)
	return StartClientResponse{Code: ResponseCode(code), Message: msg}, nil
}

// StopClientRequest asks a manager to stop n load clients; Count <= 0
// means "all" (spec §4.7 stop_clients).
type StopClientRequest struct {
	Count int
}

func EncodeStopClientRequest(id int64, r StopClientRequest) wire.Value {
	body := wire.Seq(wire.Int(int64(r.Count)))
	return Encode(Envelope{ID: id, Type: TypeStopClientRequest, Body: body})
}

func DecodeStopClientRequest(body wire.Value) (StopClientRequest, error) {
	n, err := body.Len()
	if err != nil || n != 1 {
		return StopClientRequest{}, protocolErrorf("malformed stop-client-request: %v", err)
	}
	count, err := fieldInt(body, 0)
	if err != nil {
		return StopClientRequest{}, err
	}
	return StopClientRequest{Count: int(count)}, nil
}

// StopClientResponse answers a stop-client-request.
type StopClientResponse struct {
	Code    ResponseCode
	Message string
}

func EncodeStopClientResponse(id int64, r StopClientResponse) wire.Value {
	body := wire.Seq(wire.Enum(int64(r.Code)), wire.String(r.Message))
	return Encode(Envelope{ID: id, Type: TypeStopClientResponse, Body: body})
}

func DecodeStopClientResponse(body wire.Value) (StopClientResponse, error) {
	n, err := body.Len()
	if err != nil || n != 2 {
		return StopClientResponse{}, protocolErrorf("malformed stop-client-response: %v", err)
	}
	code, err := fieldEnum(body, 0)
	if err != nil {
		return StopClientResponse{}, err
	}
	msg, _ := fieldString(body, 1)
	return StopClientResponse{Code: ResponseCode(code), Message: msg}, nil
}
