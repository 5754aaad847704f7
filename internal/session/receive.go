package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"loadgrid/internal/job"
	"loadgrid/internal/protocol"
	"loadgrid/internal/wire"
)

// defaultReadTimeout is the read deadline used when no keepalive
// interval is configured — a long but finite window so the loop still
// periodically reevaluates ctx cancellation and s.keepListening.
const defaultReadTimeout = 5 * time.Minute

// Run is the receive loop (spec §4.3 "Receive loop"). It owns the read
// side of the connection and the solicited-queue writes; it returns
// once the connection is closed, EOF'd, or ctx is cancelled. Callers
// run it in its own goroutine, one per accepted session.
func (s *Session) Run(ctx context.Context, handler Handler) {
	defer s.finishConnectionLost(handler)

	readTimeout := s.timeout.KeepaliveInterval
	if readTimeout <= 0 {
		readTimeout = defaultReadTimeout
	}

	for s.keepListening.Load() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		rec, err := wire.ReadRecord(s.conn, readTimeout)
		switch {
		case err == nil:
			// handled below

		case errors.Is(err, wire.ErrTimeout):
			if s.timeout.KeepaliveInterval <= 0 {
				continue // no keepalive configured; just re-arm the read
			}
			if sendErr := s.sendKeepalive(); sendErr != nil {
				if s.noteIOError() {
					return
				}
			} else {
				s.noteIOSuccess()
			}
			continue

		case errors.Is(err, io.EOF):
			return

		default:
			var protoErr *protocol.ErrProtocol
			if errors.As(err, &protoErr) {
				s.logger.Warn("decode error", "error", err)
				continue
			}
			if s.noteIOError() {
				return
			}
			continue
		}

		s.noteIOSuccess()

		env, err := protocol.DecodeEnvelope(rec)
		if err != nil {
			s.logger.Warn("malformed envelope", "error", err)
			continue
		}

		if env.ID%2 != 0 {
			// Solicited: a response to something this session sent.
			s.queue.push(env)
			continue
		}

		s.dispatchUnsolicited(env, handler)
	}
}

// finishConnectionLost closes the socket, removes the session from its
// owning registry, then synthesizes a job-completed-with-error for
// every job still recorded in progress (spec §4.3 steps 3/5 "close,
// notify registry-owner connection-lost"; §4.4 "Connection-loss path"
// orders registry removal before the synthesized completions so a
// concurrent GetCohort can never select an already-dead session; §4.5,
// §8 invariant 9).
func (s *Session) finishConnectionLost(handler Handler) {
	_ = s.Close()
	handler.ConnectionLost(s)
	for _, j := range s.inProgressJobs() {
		s.removeJob(j.ID)
		handler.JobLost(s, s.synthesizeLossCompletion(j))
	}
}

func (s *Session) synthesizeLossCompletion(j job.Job) job.Completion {
	return job.Completion{
		JobID:           j.ID,
		State:           job.StateStoppedDueToError,
		ActualStartTime: j.StartTime,
		ActualStopTime:  time.Now(),
		Message:         fmt.Sprintf("job was cancelled on client %s because the connection to the client was lost", s.ClientID),
	}
}

// dispatchUnsolicited handles one even-ID (client-originated) message
// per the per-type table in spec §4.3 step 6.
func (s *Session) dispatchUnsolicited(env protocol.Envelope, handler Handler) {
	if s.Role == RoleManager && env.Type != protocol.TypeStatusResponse {
		s.protocolWarning(env)
		return
	}
	switch env.Type {
	case protocol.TypeJobCompleted:
		c, err := protocol.DecodeJobCompleted(env.Body)
		if err != nil {
			s.logger.Warn("malformed job-completed", "error", err)
			return
		}
		s.handleJobCompleted(c, handler)

	case protocol.TypeStatusResponse:
		resp, err := protocol.DecodeStatusResponse(env.Body)
		if err != nil {
			s.logger.Warn("malformed status-response", "error", err)
			return
		}
		if resp.ClientState == protocol.ClientStateShuttingDown {
			handler.ShuttingDown(s)
			s.Stop()
			_ = s.Close()
		} else if s.Role == RoleManager {
			s.protocolWarning(env)
		}

	case protocol.TypeClassTransferRequest:
		if s.Role != RoleLoad {
			s.protocolWarning(env)
			return
		}
		req, err := protocol.DecodeClassTransferRequest(env.Body)
		if err != nil {
			s.logger.Warn("malformed class-transfer-request", "error", err)
			return
		}
		resp := handler.ClassTransferRequested(s, req)
		if err := s.send(protocol.EncodeClassTransferResponse(env.ID, resp)); err != nil {
			s.noteIOError()
		}

	case protocol.TypeRegisterStat:
		if s.Role != RoleStat {
			s.protocolWarning(env)
			return
		}
		req, err := protocol.DecodeRegisterStat(env.Body)
		if err != nil {
			s.logger.Warn("malformed register-stat", "error", err)
			return
		}
		handler.StatRegistered(s, req)

	case protocol.TypeReportStat:
		if s.Role != RoleStat {
			s.protocolWarning(env)
			return
		}
		req, err := protocol.DecodeReportStat(env.Body)
		if err != nil {
			s.logger.Warn("malformed report-stat", "error", err)
			return
		}
		handler.StatReported(s, req)

	default:
		s.protocolWarning(env)
	}
}

func (s *Session) handleJobCompleted(c protocol.JobCompleted, handler Handler) {
	jid := job.ID(c.JobID)
	if !s.hasJob(jid) {
		s.logger.Warn("job-completed for unknown job", "job_id", c.JobID)
		return
	}
	s.removeJob(jid)

	stats := make([]job.StatTracker, len(c.Stats))
	for i, t := range c.Stats {
		stats[i] = job.StatTracker{Name: t.Name, Value: t.Value}
	}
	handler.JobCompleted(s, job.Completion{
		JobID:           jid,
		State:           job.State(c.State),
		ActualStartTime: protocol.TimeFromMillis(c.ActualStartTime),
		ActualStopTime:  protocol.TimeFromMillis(c.ActualStopTime),
		Stats:           stats,
		Message:         c.Message,
	})
}

// protocolWarning implements the catch-all of spec §4.3 step 6:
// "anything else on an unexpected role -> log protocol-warning; on
// stat/manager roles, close the connection."
func (s *Session) protocolWarning(env protocol.Envelope) {
	s.logger.Warn("unexpected message for role", "type", env.Type, "role", s.Role)
	if s.Role == RoleStat || s.Role == RoleManager {
		s.Stop()
		_ = s.send(protocol.EncodeServerShutdown(s.nextID(), protocol.ServerShutdown{Message: "protocol violation"}))
		_ = s.Close()
	}
}
