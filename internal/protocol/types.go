// Package protocol is the message catalog (spec §2 C2, §4.2, §6): one
// Go type per wire message kind, built on top of the typed records
// internal/wire encodes and decodes. protocol knows nothing about
// sockets or sessions; it only turns envelopes into wire.Values and
// back.
package protocol

import "fmt"

// MessageType is the enumerated tag carried by every envelope.
type MessageType int64

const (
	TypeClientHello MessageType = iota + 1
	TypeClientManagerHello
	TypeHelloResponse
	TypeKeepalive
	TypeServerShutdown
	TypeStatusRequest
	TypeStatusResponse
	TypeJobRequest
	TypeJobResponse
	TypeJobControlRequest
	TypeJobControlResponse
	TypeJobCompleted
	TypeClassTransferRequest
	TypeClassTransferResponse
	TypeRegisterStat
	TypeReportStat
	TypeStartClientRequest
	TypeStartClientResponse
	TypeStopClientRequest
	TypeStopClientResponse
)

func (t MessageType) String() string {
	switch t {
	case TypeClientHello:
		return "client-hello"
	case TypeClientManagerHello:
		return "client-manager-hello"
	case TypeHelloResponse:
		return "hello-response"
	case TypeKeepalive:
		return "keepalive"
	case TypeServerShutdown:
		return "server-shutdown"
	case TypeStatusRequest:
		return "status-request"
	case TypeStatusResponse:
		return "status-response"
	case TypeJobRequest:
		return "job-request"
	case TypeJobResponse:
		return "job-response"
	case TypeJobControlRequest:
		return "job-control-request"
	case TypeJobControlResponse:
		return "job-control-response"
	case TypeJobCompleted:
		return "job-completed"
	case TypeClassTransferRequest:
		return "class-transfer-request"
	case TypeClassTransferResponse:
		return "class-transfer-response"
	case TypeRegisterStat:
		return "register-stat"
	case TypeReportStat:
		return "report-stat"
	case TypeStartClientRequest:
		return "start-client-request"
	case TypeStartClientResponse:
		return "start-client-response"
	case TypeStopClientRequest:
		return "stop-client-request"
	case TypeStopClientResponse:
		return "stop-client-response"
	default:
		return fmt.Sprintf("message-type(%d)", int64(t))
	}
}

// ResponseCode is the result carried by every response-shaped message
// (spec §7 "error kinds", §4.3 handshake, §4.4 cohort/capacity).
type ResponseCode int64

const (
	CodeSuccess ResponseCode = iota
	CodeServerError
	CodeClientRejected
	CodeConnectionLimitReached
	CodeNoResponse
	CodeLocalError
	CodeClassNotFound
	CodeClassNotValid
	CodeJobCreationFailure
	CodeNoSuchJob
	CodeTooManyClients
)

func (c ResponseCode) String() string {
	switch c {
	case CodeSuccess:
		return "success"
	case CodeServerError:
		return "server-error"
	case CodeClientRejected:
		return "client-rejected"
	case CodeConnectionLimitReached:
		return "connection-limit-reached"
	case CodeNoResponse:
		return "no-response"
	case CodeLocalError:
		return "local-error"
	case CodeClassNotFound:
		return "class-not-found"
	case CodeClassNotValid:
		return "class-not-valid"
	case CodeJobCreationFailure:
		return "job-creation-failure"
	case CodeNoSuchJob:
		return "no-such-job"
	case CodeTooManyClients:
		return "too-many-clients"
	default:
		return fmt.Sprintf("code(%d)", int64(c))
	}
}

// ClientState is the agent-reported liveness carried by status-response
// (spec §4.3 step 6, unsolicited shutdown notice).
type ClientState int64

const (
	ClientStateUnknown ClientState = iota
	ClientStateIdle
	ClientStateRunning
	ClientStateShuttingDown
)

func (s ClientState) String() string {
	switch s {
	case ClientStateIdle:
		return "idle"
	case ClientStateRunning:
		return "running"
	case ClientStateShuttingDown:
		return "shutting-down"
	default:
		return "unknown"
	}
}

// ControlType selects the operation carried by a job-control-request
// (spec §4.3 control_job, §4.8 shutdown drain).
type ControlType int64

const (
	ControlStop ControlType = iota
	ControlStopDueToShutdown
)

func (c ControlType) String() string {
	if c == ControlStopDueToShutdown {
		return "stop-due-to-shutdown"
	}
	return "stop"
}

// JobState mirrors internal/job.State on the wire; kept distinct so
// protocol does not import job and job does not import protocol.
type JobState int64

const (
	JobStateUnknown JobState = iota
	JobStateSuccess
	JobStateStoppedDueToError
	JobStateStoppedDueToShutdown
)

// StatType is the aggregation semantic of one report-stat sample
// (spec §3 "Real-time stat store", §4.6, GLOSSARY "Stat-type").
type StatType int64

const (
	StatAdd StatType = iota
	StatAverage
	StatDone
)

func (s StatType) String() string {
	switch s {
	case StatAdd:
		return "add"
	case StatAverage:
		return "average"
	case StatDone:
		return "done"
	default:
		return fmt.Sprintf("stat-type(%d)", int64(s))
	}
}
