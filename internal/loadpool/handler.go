package loadpool

import (
	"loadgrid/internal/job"
	"loadgrid/internal/jobclass"
	"loadgrid/internal/protocol"
	"loadgrid/internal/session"
)

// Notifier is the scheduler-facing contract a Pool reports job
// completions to (spec §4.4 "Deliver this to the scheduler").
type Notifier interface {
	JobCompleted(job.Completion)
}

// poolHandler implements session.Handler for load sessions, wiring the
// receive loop's events back into the pool's registry and the
// scheduler notifier.
type poolHandler struct {
	session.NoopHandler
	pool *Pool
}

func (h *poolHandler) JobCompleted(s *session.Session, c job.Completion) {
	h.pool.registry.readmit(s)
	if h.pool.notifier != nil {
		h.pool.notifier.JobCompleted(c)
	}
}

// JobLost delivers a connection-loss-synthesized completion without
// readmitting the session: ConnectionLost has already removed it from
// the registry (spec §4.4 "Connection-loss path"), and a session whose
// socket just died must never be reinserted into the available list.
func (h *poolHandler) JobLost(_ *session.Session, c job.Completion) {
	if h.pool.notifier != nil {
		h.pool.notifier.JobCompleted(c)
	}
}

func (h *poolHandler) ConnectionLost(s *session.Session) {
	h.pool.registry.remove(s.ConnID)
	if h.pool.onClientLost != nil {
		h.pool.onClientLost(s.IP())
	}
}

func (h *poolHandler) ClassTransferRequested(s *session.Session, req protocol.ClassTransferRequest) protocol.ClassTransferResponse {
	if h.pool.classes == nil {
		return protocol.ClassTransferResponse{
			Code:      protocol.CodeServerError,
			ClassName: req.ClassName,
			Message:   "no job-class provider configured",
		}
	}
	bytes, err := h.pool.classes.Resolve(req.ClassName)
	if err != nil {
		code := protocol.CodeServerError
		if err == jobclass.ErrClassNotFound {
			code = protocol.CodeClassNotFound
		}
		s.Logger().Warn("class transfer failed", "class", req.ClassName, "error", err)
		return protocol.ClassTransferResponse{Code: code, ClassName: req.ClassName, Message: err.Error()}
	}
	return protocol.ClassTransferResponse{Code: protocol.CodeSuccess, ClassName: req.ClassName, Bytes: bytes}
}
