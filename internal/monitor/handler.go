package monitor

import (
	"loadgrid/internal/job"
	"loadgrid/internal/session"
)

// Notifier is the scheduler-facing contract a Registry reports job
// completions to (spec §4.5 "same as C4 except... one
// completion-with-error per in-progress job").
type Notifier interface {
	JobCompleted(job.Completion)
}

// monitorHandler implements session.Handler for monitor sessions.
// Unlike load sessions, a monitor reporting job-completed does not
// need to be reinserted anywhere — it was never removed from the
// registry by taking a job, since monitor sessions hold a set of jobs
// rather than at most one.
type monitorHandler struct {
	session.NoopHandler
	reg      *registry
	notifier Notifier
}

func (h *monitorHandler) JobCompleted(_ *session.Session, c job.Completion) {
	if h.notifier != nil {
		h.notifier.JobCompleted(c)
	}
}

// JobLost has nothing extra to do beyond JobCompleted's notifier
// delivery: a monitor session was never removed-then-needing-readmit
// by taking a job, so the two paths coincide here.
func (h *monitorHandler) JobLost(_ *session.Session, c job.Completion) {
	if h.notifier != nil {
		h.notifier.JobCompleted(c)
	}
}

func (h *monitorHandler) ConnectionLost(s *session.Session) {
	h.reg.remove(s)
}
