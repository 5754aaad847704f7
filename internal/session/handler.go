package session

import (
	"loadgrid/internal/job"
	"loadgrid/internal/protocol"
)

// Handler reacts to the events a session's receive loop produces
// (spec §4.3 step 6, §4.4, §4.5). Each listener (C4-C7) supplies the
// implementation matching its role; embedding NoopHandler lets each
// one override only the methods it needs.
type Handler interface {
	// JobCompleted fires for an agent-reported job-completed.
	JobCompleted(s *Session, c job.Completion)
	// JobLost fires for the synthetic stopped-due-to-error completions
	// this package builds on connection loss (spec §4.4 "Connection-loss
	// path"), once per job that was still in progress. It is distinct
	// from JobCompleted because a load session's JobCompleted also
	// readmits the session to the available list — wrong for a session
	// whose connection just died and which ConnectionLost already
	// removed from the registry.
	JobLost(s *Session, c job.Completion)
	// ShuttingDown fires when the agent announces client-state
	// shutting-down unsolicited (spec §4.3 step 6, §4.7).
	ShuttingDown(s *Session)
	// ClassTransferRequested resolves a class-transfer-request (load
	// sessions only).
	ClassTransferRequested(s *Session, req protocol.ClassTransferRequest) protocol.ClassTransferResponse
	// StatRegistered and StatReported forward register-stat/report-stat
	// to the stat handler (stat sessions only).
	StatRegistered(s *Session, req protocol.RegisterStat)
	StatReported(s *Session, req protocol.ReportStat)
	// ConnectionLost fires first, before any in-progress jobs are
	// reported via JobLost, so the listener removes the session from
	// its registry before a concurrent cohort selection could observe
	// it (spec §4.4, §4.5).
	ConnectionLost(s *Session)
}

// NoopHandler gives every Handler method a default no-op
// implementation; listeners embed it and override what their role
// actually needs.
type NoopHandler struct{}

func (NoopHandler) JobCompleted(*Session, job.Completion) {}
func (NoopHandler) JobLost(*Session, job.Completion)      {}
func (NoopHandler) ShuttingDown(*Session)                 {}

func (NoopHandler) ClassTransferRequested(_ *Session, _ protocol.ClassTransferRequest) protocol.ClassTransferResponse {
	return protocol.ClassTransferResponse{Code: protocol.CodeServerError, Message: "class transfer not supported on this connection"}
}

func (NoopHandler) StatRegistered(*Session, protocol.RegisterStat) {}
func (NoopHandler) StatReported(*Session, protocol.ReportStat)     {}
func (NoopHandler) ConnectionLost(*Session)                        {}
