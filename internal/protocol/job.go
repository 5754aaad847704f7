package protocol

import (
	"time"

	"loadgrid/internal/wire"
)

// JobRequest dispatches one job to a load session (spec §4.3
// dispatch_job, §4.4). ClientNumber is the cohort-relative index
// dispatch_job passes through so the agent can vary per-client
// behavior (e.g. a ramp delay) deterministically across the cohort.
type JobRequest struct {
	JobID              string
	Class              string
	DurationMillis     int64
	StartTimeMillis    int64
	StopTimeMillis     int64
	ThreadsPerClient   int
	ThreadStartupDelay int64
	CollectionInterval int64
	Params             wire.Value // opaque, see EncodeParams/DecodeParams
	ClientNumber       int
}

func EncodeJobRequest(id int64, r JobRequest) wire.Value {
	body := wire.Seq(
		wire.String(r.JobID),
		wire.String(r.Class),
		wire.Int(r.DurationMillis),
		wire.Int(r.StartTimeMillis),
		wire.Int(r.StopTimeMillis),
		wire.Int(int64(r.ThreadsPerClient)),
		wire.Int(r.ThreadStartupDelay),
		wire.Int(r.CollectionInterval),
		r.Params,
		wire.Int(int64(r.ClientNumber)),
	)
	return Encode(Envelope{ID: id, Type: TypeJobRequest, Body: body})
}

func DecodeJobRequest(body wire.Value) (JobRequest, error) {
	n, err := body.Len()
	if err != nil || n != 10 {
		return JobRequest{}, protocolErrorf("malformed job-request: %v", err)
	}
	var r JobRequest
	r.JobID, _ = fieldString(body, 0)
	r.Class, _ = fieldString(body, 1)
	r.DurationMillis, _ = fieldInt(body, 2)
	r.StartTimeMillis, _ = fieldInt(body, 3)
	r.StopTimeMillis, _ = fieldInt(body, 4)
	threads, err := fieldInt(body, 5)
	if err != nil {
		return JobRequest{}, err
	}
	r.ThreadsPerClient = int(threads)
	r.ThreadStartupDelay, _ = fieldInt(body, 6)
	r.CollectionInterval, _ = fieldInt(body, 7)
	r.Params, err = body.At(8)
	if err != nil {
		return JobRequest{}, protocolErrorf("malformed job-request params: %v", err)
	}
	clientNum, err := fieldInt(body, 9)
	if err != nil {
		return JobRequest{}, err
	}
	r.ClientNumber = int(clientNum)
	return r, nil
}

// JobResponse answers a job-request (spec §4.3).
type JobResponse struct {
	Code    ResponseCode
	Message string
}

func EncodeJobResponse(id int64, r JobResponse) wire.Value {
	body := wire.Seq(wire.Enum(int64(r.Code)), wire.String(r.Message))
	return Encode(Envelope{ID: id, Type: TypeJobResponse, Body: body})
}

func DecodeJobResponse(body wire.Value) (JobResponse, error) {
	n, err := body.Len()
	if err != nil || n != 2 {
		return JobResponse{}, protocolErrorf("malformed job-response: %v", err)
	}
	code, err := fieldEnum(body, 0)
	if err != nil {
		return JobResponse{}, err
	}
	msg, _ := fieldString(body, 1)
	return JobResponse{Code: ResponseCode(code), Message: msg}, nil
}

// JobControlRequest asks an agent to stop a job it holds (spec §4.3
// control_job, §4.8 shutdown drain).
type JobControlRequest struct {
	JobID string
	Type  ControlType
}

func EncodeJobControlRequest(id int64, r JobControlRequest) wire.Value {
	body := wire.Seq(wire.String(r.JobID), wire.Enum(int64(r.Type)))
	return Encode(Envelope{ID: id, Type: TypeJobControlRequest, Body: body})
}

func DecodeJobControlRequest(body wire.Value) (JobControlRequest, error) {
	n, err := body.Len()
	if err != nil || n != 2 {
		return JobControlRequest{}, protocolErrorf("malformed job-control-request: %v", err)
	}
	jobID, _ := fieldString(body, 0)
	typ, err := fieldEnum(body, 1)
	if err != nil {
		return JobControlRequest{}, err
	}
	return JobControlRequest{JobID: jobID, Type: ControlType(typ)}, nil
}

// JobControlResponse answers a job-control-request (spec §4.3).
type JobControlResponse struct {
	Code    ResponseCode
	Message string
}

func EncodeJobControlResponse(id int64, r JobControlResponse) wire.Value {
	body := wire.Seq(wire.Enum(int64(r.Code)), wire.String(r.Message))
	return Encode(Envelope{ID: id, Type: TypeJobControlResponse, Body: body})
}

func DecodeJobControlResponse(body wire.Value) (JobControlResponse, error) {
	n, err := body.Len()
	if err != nil || n != 2 {
		return JobControlResponse{}, protocolErrorf("malformed job-control-response: %v", err)
	}
	code, err := fieldEnum(body, 0)
	if err != nil {
		return JobControlResponse{}, err
	}
	msg, _ := fieldString(body, 1)
	return JobControlResponse{Code: ResponseCode(code), Message: msg}, nil
}

// StatTracker is one named scalar attached to a job-completed report.
type StatTracker struct {
	Name  string
	Value float64
}

// JobCompleted is sent unsolicited by an agent when a job finishes
// (spec §4.3 step 6), and is also the shape a session synthesizes
// locally on connection loss (spec §4.4 "Connection-loss path").
type JobCompleted struct {
	JobID           string
	State           JobState
	ActualStartTime int64
	ActualStopTime  int64
	Stats           []StatTracker
	Message         string
}

func EncodeJobCompleted(id int64, c JobCompleted) wire.Value {
	trackers := make([]wire.Value, len(c.Stats))
	for i, s := range c.Stats {
		trackers[i] = wire.Seq(wire.String(s.Name), wire.String(formatFloat(s.Value)))
	}
	body := wire.Seq(
		wire.String(c.JobID),
		wire.Enum(int64(c.State)),
		wire.Int(c.ActualStartTime),
		wire.Int(c.ActualStopTime),
		wire.Seq(trackers...),
		wire.String(c.Message),
	)
	return Encode(Envelope{ID: id, Type: TypeJobCompleted, Body: body})
}

func DecodeJobCompleted(body wire.Value) (JobCompleted, error) {
	n, err := body.Len()
	if err != nil || n != 6 {
		return JobCompleted{}, protocolErrorf("malformed job-completed: %v", err)
	}
	var c JobCompleted
	c.JobID, _ = fieldString(body, 0)
	state, err := fieldEnum(body, 1)
	if err != nil {
		return JobCompleted{}, err
	}
	c.State = JobState(state)
	c.ActualStartTime, _ = fieldInt(body, 2)
	c.ActualStopTime, _ = fieldInt(body, 3)

	trackersV, err := body.At(4)
	if err != nil {
		return JobCompleted{}, protocolErrorf("malformed job-completed stats: %v", err)
	}
	trackers, err := trackersV.Items()
	if err != nil {
		return JobCompleted{}, protocolErrorf("malformed job-completed stats: %v", err)
	}
	c.Stats = make([]StatTracker, 0, len(trackers))
	for _, t := range trackers {
		name, err := fieldString(t, 0)
		if err != nil {
			return JobCompleted{}, err
		}
		valStr, err := fieldString(t, 1)
		if err != nil {
			return JobCompleted{}, err
		}
		val, err := parseFloat(valStr)
		if err != nil {
			return JobCompleted{}, protocolErrorf("stat tracker %q value: %v", name, err)
		}
		c.Stats = append(c.Stats, StatTracker{Name: name, Value: val})
	}
	c.Message, _ = fieldString(body, 5)
	return c, nil
}

// MillisOf converts a time.Time to the unix-millisecond integer the
// wire protocol carries for every timestamp field.
func MillisOf(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

// TimeFromMillis is the inverse of MillisOf.
func TimeFromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
