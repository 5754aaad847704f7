package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"loadgrid/internal/job"
	"loadgrid/internal/protocol"
)

// ErrJobRequestRefused is returned by DispatchJob when the session
// already holds a job; per spec §4.3 this check happens before any
// wire activity (verified by §8 invariant 2, scenario S5).
var ErrJobRequestRefused = errors.New("session: job already in progress")

// ErrNoSuchJob is returned by ControlJob when the named job is not
// recorded in progress on this session (spec §4.3 control_job).
var ErrNoSuchJob = errors.New("session: no such job on this session")

func millis(t time.Time) int64 { return protocol.MillisOf(t) }

// DispatchJob sends a job-request for j and waits for the matching
// job-response (spec §4.3 dispatch_job). On load sessions, a session
// already holding a job refuses immediately with ErrJobRequestRefused
// and touches nothing on the wire (spec §8 invariant 2); monitor
// sessions carry a set of in-progress jobs and are not gated this way
// (spec §4.5).
func (s *Session) DispatchJob(ctx context.Context, j job.Job, clientNumber int) (protocol.JobResponse, error) {
	if s.Role == RoleLoad && s.jobCount() > 0 {
		return protocol.JobResponse{}, ErrJobRequestRefused
	}
	s.addJob(j)

	params, err := protocol.EncodeParams(j.Params)
	if err != nil {
		s.removeJob(j.ID)
		return protocol.JobResponse{}, fmt.Errorf("session: encode job params: %w", err)
	}

	id := s.nextID()
	req := protocol.JobRequest{
		JobID:              string(j.ID),
		Class:              j.Class,
		DurationMillis:     j.Duration.Milliseconds(),
		StartTimeMillis:    millis(j.StartTime),
		StopTimeMillis:     millis(j.StopTime),
		ThreadsPerClient:   j.ThreadsPerClient,
		ThreadStartupDelay: j.ThreadStartupDelay.Milliseconds(),
		CollectionInterval: j.CollectionInterval.Milliseconds(),
		Params:             params,
		ClientNumber:       clientNumber,
	}
	if err := s.send(protocol.EncodeJobRequest(id, req)); err != nil {
		s.removeJob(j.ID)
		s.noteIOError()
		return protocol.JobResponse{Code: protocol.CodeLocalError}, fmt.Errorf("session: send job-request: %w", err)
	}

	env, ok := s.queue.await(ctx, id, protocol.TypeJobResponse, s.timeout.ResponseWait)
	if !ok {
		return protocol.JobResponse{Code: protocol.CodeNoResponse}, nil
	}

	resp, err := protocol.DecodeJobResponse(env.Body)
	if err != nil {
		s.removeJob(j.ID)
		return protocol.JobResponse{}, err
	}
	if resp.Code != protocol.CodeSuccess {
		s.removeJob(j.ID)
	}
	return resp, nil
}

// ControlJob sends a job-control-request for a job this session holds
// and waits for the matching response (spec §4.3 control_job).
func (s *Session) ControlJob(ctx context.Context, jobID job.ID, ctype protocol.ControlType) (protocol.JobControlResponse, error) {
	if !s.hasJob(jobID) {
		return protocol.JobControlResponse{}, ErrNoSuchJob
	}

	id := s.nextID()
	req := protocol.JobControlRequest{JobID: string(jobID), Type: ctype}
	if err := s.send(protocol.EncodeJobControlRequest(id, req)); err != nil {
		s.noteIOError()
		return protocol.JobControlResponse{Code: protocol.CodeLocalError}, fmt.Errorf("session: send job-control-request: %w", err)
	}

	env, ok := s.queue.await(ctx, id, protocol.TypeJobControlResponse, s.timeout.ResponseWait)
	if !ok {
		return protocol.JobControlResponse{Code: protocol.CodeNoResponse}, nil
	}

	resp, err := protocol.DecodeJobControlResponse(env.Body)
	if err != nil {
		return protocol.JobControlResponse{}, err
	}
	if clearsInProgress(s.Role, resp.Code) {
		s.removeJob(jobID)
	}
	return resp, nil
}

// clearsInProgress implements the per-role response-code table from
// spec §4.3 control_job: class-not-found, class-not-valid, and
// job-creation-failure only clear the in-progress job on load
// sessions; no-such-job clears it on both load and monitor sessions.
func clearsInProgress(role Role, code protocol.ResponseCode) bool {
	switch code {
	case protocol.CodeClassNotFound, protocol.CodeClassNotValid, protocol.CodeJobCreationFailure:
		return role == RoleLoad
	case protocol.CodeNoSuchJob:
		return true
	default:
		return false
	}
}

// StatusRequest sends a status-request, optionally scoped to one job,
// and waits for the response. On timeout or IO error it synthesizes a
// no-response status (spec §4.3 status_request).
func (s *Session) StatusRequest(ctx context.Context, jobID job.ID) protocol.StatusResponse {
	id := s.nextID()
	req := protocol.StatusRequest{JobID: string(jobID)}
	if err := s.send(protocol.EncodeStatusRequest(id, req)); err != nil {
		s.noteIOError()
		return protocol.StatusResponse{
			Code:        protocol.CodeNoResponse,
			ClientState: protocol.ClientStateUnknown,
			Message:     fmt.Sprintf("local error sending status-request: %v", err),
		}
	}

	env, ok := s.queue.await(ctx, id, protocol.TypeStatusResponse, s.timeout.ResponseWait)
	if !ok {
		return protocol.StatusResponse{
			Code:        protocol.CodeNoResponse,
			ClientState: protocol.ClientStateUnknown,
			Message:     "no response to status-request",
		}
	}

	resp, err := protocol.DecodeStatusResponse(env.Body)
	if err != nil {
		return protocol.StatusResponse{
			Code:        protocol.CodeNoResponse,
			ClientState: protocol.ClientStateUnknown,
			Message:     err.Error(),
		}
	}
	return resp
}

// Shutdown drains any in-progress jobs, then sends server-shutdown,
// then (if closeSocket) closes the connection (spec §4.3 shutdown,
// §8 invariant 8).
func (s *Session) Shutdown(ctx context.Context, closeSocket bool) error {
	for _, j := range s.inProgressJobs() {
		if _, err := s.ControlJob(ctx, j.ID, protocol.ControlStopDueToShutdown); err != nil && !errors.Is(err, ErrNoSuchJob) {
			s.logger.Warn("shutdown: control_job failed", "job_id", j.ID, "error", err)
		}
	}

	if err := s.jobsCleared.WaitUntil(ctx, func() bool { return s.jobCount() == 0 }); err != nil {
		s.logger.Warn("shutdown: in-progress jobs did not clear before context expired", "error", err)
	}

	id := s.nextID()
	shutdownMsg := protocol.ServerShutdown{Message: "server is shutting down"}
	if err := s.send(protocol.EncodeServerShutdown(id, shutdownMsg)); err != nil {
		s.noteIOError()
	}

	if closeSocket {
		s.Stop()
		return s.Close()
	}
	return nil
}
