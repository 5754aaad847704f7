package protocol

import (
	"testing"

	"loadgrid/internal/wire"
)

func roundTrip(t *testing.T, v wire.Value) wire.Value {
	t.Helper()
	buf := wire.Encode(v)
	got, err := wire.Decode(buf)
	if err != nil {
		t.Fatalf("wire round trip: %v", err)
	}
	return got
}

func TestClientHelloRoundTrip(t *testing.T) {
	want := ClientHello{
		ClientID:         "loader-1",
		ClientVersion:    "1.0",
		AuthID:           "u:admin",
		Credentials:      []byte("secret"),
		Scheme:           "simple",
		SupportsTimeSync: true,
		Restricted:       false,
	}
	env := roundTrip(t, EncodeClientHello(0, want))
	e, err := DecodeEnvelope(env)
	if err != nil {
		t.Fatalf("DecodeEnvelope: %v", err)
	}
	if e.Type != TypeClientHello {
		t.Fatalf("Type = %v, want client-hello", e.Type)
	}
	got, err := DecodeClientHello(e.Body)
	if err != nil {
		t.Fatalf("DecodeClientHello: %v", err)
	}
	if got.ClientID != want.ClientID || got.ClientVersion != want.ClientVersion ||
		got.AuthID != want.AuthID || string(got.Credentials) != string(want.Credentials) ||
		got.Scheme != want.Scheme || got.SupportsTimeSync != want.SupportsTimeSync ||
		got.Restricted != want.Restricted {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestHelloResponseNoTimeSyncSentinel(t *testing.T) {
	want := HelloResponse{Code: CodeSuccess, Message: "", ServerTimeMillis: NoServerTime}
	env := roundTrip(t, EncodeHelloResponse(0, want))
	e, _ := DecodeEnvelope(env)
	got, err := DecodeHelloResponse(e.Body)
	if err != nil {
		t.Fatalf("DecodeHelloResponse: %v", err)
	}
	if got.ServerTimeMillis != -1 {
		t.Fatalf("ServerTimeMillis = %d, want -1", got.ServerTimeMillis)
	}
}

func TestJobRequestRoundTrip(t *testing.T) {
	params, err := EncodeParams(map[string]any{"threads": int64(4), "target": "ldap://example"})
	if err != nil {
		t.Fatalf("EncodeParams: %v", err)
	}
	want := JobRequest{
		JobID:              "job-1",
		Class:              "SearchRateJobClass",
		DurationMillis:     60000,
		StartTimeMillis:    1000,
		StopTimeMillis:     61000,
		ThreadsPerClient:   10,
		ThreadStartupDelay: 100,
		CollectionInterval: 5000,
		Params:             params,
		ClientNumber:       2,
	}
	env := roundTrip(t, EncodeJobRequest(1, want))
	e, _ := DecodeEnvelope(env)
	if e.ID != 1 {
		t.Fatalf("ID = %d, want 1", e.ID)
	}
	got, err := DecodeJobRequest(e.Body)
	if err != nil {
		t.Fatalf("DecodeJobRequest: %v", err)
	}
	gotParams, err := DecodeParams(got.Params)
	if err != nil {
		t.Fatalf("DecodeParams: %v", err)
	}
	if gotParams["target"] != "ldap://example" {
		t.Fatalf("params round trip mismatch: %+v", gotParams)
	}
	if got.JobID != want.JobID || got.ClientNumber != want.ClientNumber || got.ThreadsPerClient != want.ThreadsPerClient {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestJobCompletedRoundTrip(t *testing.T) {
	want := JobCompleted{
		JobID:           "job-1",
		State:           JobStateStoppedDueToError,
		ActualStartTime: 1000,
		ActualStopTime:  2000,
		Stats:           []StatTracker{{Name: "searches-per-sec", Value: 1234.5}},
		Message:         "job cancelled because the connection to client loader-1 was lost",
	}
	env := roundTrip(t, EncodeJobCompleted(2, want))
	e, _ := DecodeEnvelope(env)
	got, err := DecodeJobCompleted(e.Body)
	if err != nil {
		t.Fatalf("DecodeJobCompleted: %v", err)
	}
	if got.JobID != want.JobID || got.State != want.State || got.Message != want.Message {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	if len(got.Stats) != 1 || got.Stats[0].Name != "searches-per-sec" || got.Stats[0].Value != 1234.5 {
		t.Fatalf("stats round trip mismatch: %+v", got.Stats)
	}
}

func TestReportStatDualShape(t *testing.T) {
	withInterval := StatSample{ClientID: "c1", ThreadID: 0, StatName: "ops", Interval: 3, StatType: StatAdd, Value: 7.5}
	done := StatSample{ClientID: "c1", ThreadID: 0, StatName: "ops", StatType: StatDone}

	report := ReportStat{JobID: "job-1", Samples: []StatSample{withInterval, done}}
	env := roundTrip(t, EncodeReportStat(4, report))
	e, _ := DecodeEnvelope(env)
	got, err := DecodeReportStat(e.Body)
	if err != nil {
		t.Fatalf("DecodeReportStat: %v", err)
	}
	if len(got.Samples) != 2 {
		t.Fatalf("got %d samples, want 2", len(got.Samples))
	}
	if got.Samples[0].Interval != 3 || got.Samples[0].StatType != StatAdd || got.Samples[0].Value != 7.5 {
		t.Fatalf("with-interval sample mismatch: %+v", got.Samples[0])
	}
	if got.Samples[1].StatType != StatDone || got.Samples[1].Interval != 0 {
		t.Fatalf("done sample mismatch: %+v", got.Samples[1])
	}

	// The done sample must actually be encoded with fewer fields on
	// the wire, not merely decode the same way.
	doneBody := encodeStatSample(done)
	n, err := doneBody.Len()
	if err != nil || n != 4 {
		t.Fatalf("done shape has %d fields, want 4", n)
	}
	withBody := encodeStatSample(withInterval)
	n, err = withBody.Len()
	if err != nil || n != 6 {
		t.Fatalf("with-interval shape has %d fields, want 6", n)
	}
}

func TestStatusResponseUnsolicitedShutdown(t *testing.T) {
	want := StatusResponse{Code: CodeSuccess, ClientState: ClientStateShuttingDown, JobID: NoJobID, Message: "bye"}
	env := roundTrip(t, EncodeStatusResponse(2, want))
	e, _ := DecodeEnvelope(env)
	if e.ID%2 != 0 {
		t.Fatalf("unsolicited message ID %d should be even", e.ID)
	}
	got, err := DecodeStatusResponse(e.Body)
	if err != nil {
		t.Fatalf("DecodeStatusResponse: %v", err)
	}
	if got.ClientState != ClientStateShuttingDown {
		t.Fatalf("ClientState = %v, want shutting-down", got.ClientState)
	}
}

func TestDecodeEnvelopeUnknownType(t *testing.T) {
	body := wire.Seq(wire.Int(1), wire.Enum(999), wire.Seq())
	e, err := DecodeEnvelope(body)
	if err != nil {
		t.Fatalf("DecodeEnvelope: %v", err)
	}
	if e.Type.String() == "" {
		t.Fatal("expected a non-empty fallback string for an unknown type")
	}
}

func TestClassTransferResponseRoundTrip(t *testing.T) {
	want := ClassTransferResponse{Code: CodeSuccess, ClassName: "SearchRateJobClass", Bytes: []byte{0xca, 0xfe}, Message: ""}
	env := roundTrip(t, EncodeClassTransferResponse(3, want))
	e, _ := DecodeEnvelope(env)
	got, err := DecodeClassTransferResponse(e.Body)
	if err != nil {
		t.Fatalf("DecodeClassTransferResponse: %v", err)
	}
	if len(got.Bytes) != 2 || got.Bytes[0] != 0xca || got.Bytes[1] != 0xfe {
		t.Fatalf("Bytes round trip mismatch: %v", got.Bytes)
	}
}

func TestStartStopClientRoundTrip(t *testing.T) {
	startEnv := roundTrip(t, EncodeStartClientRequest(5, StartClientRequest{Count: 3, LoadListenerPort: 2345}))
	e, _ := DecodeEnvelope(startEnv)
	start, err := DecodeStartClientRequest(e.Body)
	if err != nil || start.Count != 3 || start.LoadListenerPort != 2345 {
		t.Fatalf("start-client-request round trip: %+v, %v", start, err)
	}

	stopEnv := roundTrip(t, EncodeStopClientRequest(7, StopClientRequest{Count: -1}))
	e, _ = DecodeEnvelope(stopEnv)
	stop, err := DecodeStopClientRequest(e.Body)
	if err != nil || stop.Count != -1 {
		t.Fatalf("stop-client-request round trip: %+v, %v", stop, err)
	}
}
