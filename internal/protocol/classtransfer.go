package protocol

import "loadgrid/internal/wire"

// ClassTransferRequest is sent unsolicited by a load session wanting
// the bytecode for a job class it does not have cached locally (spec
// §4.3 step 6).
type ClassTransferRequest struct {
	ClassName string
}

func EncodeClassTransferRequest(id int64, r ClassTransferRequest) wire.Value {
	body := wire.Seq(wire.String(r.ClassName))
	return Encode(Envelope{ID: id, Type: TypeClassTransferRequest, Body: body})
}

func DecodeClassTransferRequest(body wire.Value) (ClassTransferRequest, error) {
	n, err := body.Len()
	if err != nil || n != 1 {
		return ClassTransferRequest{}, protocolErrorf("malformed class-transfer-request: %v", err)
	}
	name, err := fieldString(body, 0)
	if err != nil {
		return ClassTransferRequest{}, err
	}
	return ClassTransferRequest{ClassName: name}, nil
}

// ClassTransferResponse answers a class-transfer-request with the
// resolved class bytes, or one of CodeClassNotFound / CodeServerError
// (spec §4.3 step 6).
type ClassTransferResponse struct {
	Code      ResponseCode
	ClassName string
	Bytes     []byte
	Message   string
}

func EncodeClassTransferResponse(id int64, r ClassTransferResponse) wire.Value {
	body := wire.Seq(
		wire.Enum(int64(r.Code)),
		wire.String(r.ClassName),
		wire.OctetString(r.Bytes),
		wire.String(r.Message),
	)
	return Encode(Envelope{ID: id, Type: TypeClassTransferResponse, Body: body})
}

func DecodeClassTransferResponse(body wire.Value) (ClassTransferResponse, error) {
	n, err := body.Len()
	if err != nil || n != 4 {
		return ClassTransferResponse{}, protocolErrorf("malformed class-transfer-response: %v", err)
	}
	var r ClassTransferResponse
	code, err := fieldEnum(body, 0)
	if err != nil {
		return ClassTransferResponse{}, err
	}
	r.Code = ResponseCode(code)
	r.ClassName, _ = fieldString(body, 1)
	r.Bytes, _ = fieldBytes(body, 2)
	r.Message, _ = fieldString(body, 3)
	return r, nil
}
