package stats

import (
	"loadgrid/internal/job"
	"loadgrid/internal/protocol"
	"loadgrid/internal/session"
)

// statHandler forwards register-stat/report-stat to the Store and
// removes the session from the optional duplicate-ID registry on
// connection loss (spec §4.6).
type statHandler struct {
	session.NoopHandler
	store *Store
	reg   *registry
}

func (h *statHandler) StatRegistered(_ *session.Session, req protocol.RegisterStat) {
	h.store.Register(job.ID(req.JobID), req.StatName)
}

func (h *statHandler) StatReported(_ *session.Session, req protocol.ReportStat) {
	h.store.Report(job.ID(req.JobID), req.Samples)
}

func (h *statHandler) ConnectionLost(s *session.Session) {
	if h.reg != nil {
		h.reg.remove(s)
	}
}
