// Package monitor implements the resource-monitor listener and
// registry (C5): same accept/handshake skeleton as internal/loadpool,
// but keyed by client-ID and IP rather than split into full/available
// views, since a monitor session holds a set of in-progress jobs
// rather than at most one (spec §4.5).
package monitor

import (
	"errors"
	"sync"

	"loadgrid/internal/job"
	"loadgrid/internal/session"
)

// registry indexes monitor sessions by client-ID (duplicate refusal,
// explicit lookup) and by IP (colocation lookup). Spec §5 only calls
// out the load registry's accept lock as bounded-timeout; this
// registry's lock is a plain mutex held only for short, non-blocking
// critical sections.
type registry struct {
	mu       sync.Mutex
	byClient map[string]*session.Session
	byIP     map[string]*session.Session
}

func newRegistry() *registry {
	return &registry{
		byClient: make(map[string]*session.Session),
		byIP:     make(map[string]*session.Session),
	}
}

// admitIfAbsent atomically checks for a conflicting client-ID and
// inserts s if none exists (spec §4.3 "duplicate client-id on
// monitor... is refused"). The check and insert must happen under one
// lock acquisition or two concurrent accepts for the same client-ID
// could both pass the check.
func (r *registry) admitIfAbsent(s *session.Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byClient[s.ClientID]; exists {
		return false
	}
	r.byClient[s.ClientID] = s
	if _, taken := r.byIP[s.IP()]; !taken {
		r.byIP[s.IP()] = s
	}
	return true
}

func (r *registry) remove(s *session.Session) {
	r.mu.Lock()
	if cur, ok := r.byClient[s.ClientID]; ok && cur == s {
		delete(r.byClient, s.ClientID)
	}
	if cur, ok := r.byIP[s.IP()]; ok && cur == s {
		delete(r.byIP, s.IP())
	}
	r.mu.Unlock()
}

func (r *registry) byIPLookup(ip string) (*session.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byIP[ip]
	return s, ok
}

func (r *registry) snapshot() []*session.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*session.Session, 0, len(r.byClient))
	for _, s := range r.byClient {
		out = append(out, s)
	}
	return out
}

// ErrNoMonitorsAvailable is returned by Cohort when a required monitor
// IP has no registered session (spec §4.5 "hard abort with
// no-monitors-available").
var ErrNoMonitorsAvailable = errors.New("monitor: no monitors available")

// Cohort implements "Monitor cohort for a job" (spec §4.5): resolve
// every required monitor IP (hard-aborting if any is missing), then
// optionally add the colocated monitor for each load-cohort session,
// deduplicated.
func (r *registry) cohort(j job.Job, loadCohort []*session.Session) ([]*session.Session, error) {
	seen := make(map[int64]bool)
	var out []*session.Session

	for _, ip := range j.RequiredMonitorIPs {
		s, ok := r.byIPLookup(ip)
		if !ok {
			return nil, ErrNoMonitorsAvailable
		}
		if !seen[s.ConnID] {
			seen[s.ConnID] = true
			out = append(out, s)
		}
	}

	if j.ColocateMonitors {
		for _, loadSession := range loadCohort {
			if s, ok := r.byIPLookup(loadSession.IP()); ok && !seen[s.ConnID] {
				seen[s.ConnID] = true
				out = append(out, s)
			}
		}
	}

	return out, nil
}
