package protocol

import "loadgrid/internal/wire"

// NoJobID is the sentinel job-ID for "no job specified" (spec §4.3
// status_request's optional job-id).
const NoJobID = ""

// StatusRequest asks an agent to report its current state, optionally
// scoped to one job (spec §4.3, §4.7 initial status prompt on accept).
type StatusRequest struct {
	JobID string
}

func EncodeStatusRequest(id int64, r StatusRequest) wire.Value {
	body := wire.Seq(wire.String(r.JobID))
	return Encode(Envelope{ID: id, Type: TypeStatusRequest, Body: body})
}

func DecodeStatusRequest(body wire.Value) (StatusRequest, error) {
	n, err := body.Len()
	if err != nil || n != 1 {
		return StatusRequest{}, protocolErrorf("malformed status-request: %v", err)
	}
	jobID, err := fieldString(body, 0)
	if err != nil {
		return StatusRequest{}, err
	}
	return StatusRequest{JobID: jobID}, nil
}

// StatusResponse answers a status-request, and is also the shape an
// agent sends unsolicited to announce it is shutting down (spec §4.3
// step 6, "status-response with client-state = shutting-down").
type StatusResponse struct {
	Code        ResponseCode
	ClientState ClientState
	JobID       string
	Message     string
}

func EncodeStatusResponse(id int64, r StatusResponse) wire.Value {
	body := wire.Seq(
		wire.Enum(int64(r.Code)),
		wire.Enum(int64(r.ClientState)),
		wire.String(r.JobID),
		wire.String(r.Message),
	)
	return Encode(Envelope{ID: id, Type: TypeStatusResponse, Body: body})
}

func DecodeStatusResponse(body wire.Value) (StatusResponse, error) {
	n, err := body.Len()
	if err != nil || n != 4 {
		return StatusResponse{}, protocolErrorf("malformed status-response: %v", err)
	}
	var r StatusResponse
	code, err := fieldEnum(body, 0)
	if err != nil {
		return StatusResponse{}, err
	}
	state, err := fieldEnum(body, 1)
	if err != nil {
		return StatusResponse{}, err
	}
	r.Code = ResponseCode(code)
	r.ClientState = ClientState(state)
	r.JobID, _ = fieldString(body, 2)
	r.Message, _ = fieldString(body, 3)
	return r, nil
}
