// Package loadpool implements the load-client listener and pool (C4):
// accept loop, the full/available session registry, and cohort
// selection for job dispatch (spec §4.4).
package loadpool

import (
	"loadgrid/internal/job"
	"loadgrid/internal/session"
)

// registry holds the two views spec §3/§4.4 describe: every accepted
// load session (for status listings) and the subset currently free to
// take a job. Every access, reads included, holds one exclusive
// timeoutMutex, so readers do not run concurrently with each other;
// the accept path uses a bounded-timeout acquisition (spec §5).
type registry struct {
	lock *timeoutMutex

	full      map[int64]*session.Session
	available map[int64]*session.Session
}

func newRegistry() *registry {
	return &registry{
		lock:      newTimeoutMutex(),
		full:      make(map[int64]*session.Session),
		available: make(map[int64]*session.Session),
	}
}

// insert adds s to both views. Called from the accept path, which has
// already acquired the lock with a bounded timeout.
func (r *registry) insert(s *session.Session) {
	r.full[s.ConnID] = s
	r.available[s.ConnID] = s
}

// remove drops s from both views (spec §4.4 "Connection-loss path").
func (r *registry) remove(connID int64) {
	r.lock.Lock()
	delete(r.full, connID)
	delete(r.available, connID)
	r.lock.Unlock()
}

// readmit reinserts a session into the available view after it
// reports job-completed; a duplicate readmit is a no-op (spec §4.4
// "Completion path").
func (r *registry) readmit(s *session.Session) {
	r.lock.Lock()
	if _, stillPresent := r.full[s.ConnID]; stillPresent {
		r.available[s.ConnID] = s
	}
	r.lock.Unlock()
}

// snapshot returns every session in the full view, for status listings.
func (r *registry) snapshot() []*session.Session {
	r.lock.Lock()
	defer r.lock.Unlock()
	out := make([]*session.Session, 0, len(r.full))
	for _, s := range r.full {
		out = append(out, s)
	}
	return out
}

func (r *registry) size() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return len(r.full)
}

// getCohort implements the cohort-selection algorithm of spec §4.4
// steps 1-5 and invariant 3 (atomic commit-or-abort, no torn state).
// It works entirely against a shallow clone of the available view and
// only mutates the real registry on a guaranteed-successful outcome.
func (r *registry) getCohort(j job.Job) ([]*session.Session, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	clone := make([]*session.Session, 0, len(r.available))
	for _, s := range r.available {
		clone = append(clone, s)
	}

	var cohort []*session.Session

	for _, ip := range j.ExplicitIPs {
		idx := -1
		for i, s := range clone {
			if s.IP() == ip {
				idx = i
				break
			}
		}
		if idx == -1 {
			return nil, ErrNoCohortAvailable
		}
		cohort = append(cohort, clone[idx])
		clone = append(clone[:idx], clone[idx+1:]...)
	}

	if len(cohort) < j.RequiredClients {
		filled := fillRoundRobin(clone, j.RequiredClients-len(cohort))
		cohort = append(cohort, filled...)
	}

	if len(cohort) < j.RequiredClients {
		return nil, ErrNoCohortAvailable
	}

	for _, s := range cohort {
		delete(r.available, s.ConnID)
	}
	return cohort, nil
}

// fillRoundRobin selects up to need sessions from candidates, skipping
// restricted-mode sessions, round-robining across distinct hosts so no
// single host is drained before another is touched (spec §4.4 step 3,
// scenario S3).
func fillRoundRobin(candidates []*session.Session, need int) []*session.Session {
	byHost := make(map[string][]*session.Session)
	var hostOrder []string
	for _, s := range candidates {
		if s.Restricted {
			continue
		}
		ip := s.IP()
		if _, seen := byHost[ip]; !seen {
			hostOrder = append(hostOrder, ip)
		}
		byHost[ip] = append(byHost[ip], s)
	}

	var picked []*session.Session
	for len(picked) < need {
		progressed := false
		for _, host := range hostOrder {
			if len(picked) >= need {
				break
			}
			bucket := byHost[host]
			if len(bucket) == 0 {
				continue
			}
			picked = append(picked, bucket[0])
			byHost[host] = bucket[1:]
			progressed = true
		}
		if !progressed {
			break
		}
	}
	return picked
}
