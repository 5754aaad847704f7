package manager

import (
	"sync"

	"loadgrid/internal/session"
)

// registry is the flat client-manager registry keyed by client-ID
// (spec §4.7 "The registry is a flat list").
type registry struct {
	mu  sync.Mutex
	all map[string]*Manager
}

func newRegistry() *registry {
	return &registry{all: make(map[string]*Manager)}
}

// admitIfAbsent refuses a duplicate client-ID (spec §4.7 "Duplicate
// client-ID is refused").
func (r *registry) admitIfAbsent(m *Manager) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.all[m.Session.ClientID]; exists {
		return false
	}
	r.all[m.Session.ClientID] = m
	return true
}

func (r *registry) remove(s *session.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.all[s.ClientID]; ok && m.Session == s {
		delete(r.all, s.ClientID)
	}
}

func (r *registry) snapshot() []*Manager {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Manager, 0, len(r.all))
	for _, m := range r.all {
		out = append(out, m)
	}
	return out
}

// byIP returns every manager whose session IP matches ip. Multiple
// managers could in principle share a host; in practice there is one.
func (r *registry) byIP(ip string) []*Manager {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Manager
	for _, m := range r.all {
		if m.Session.IP() == ip {
			out = append(out, m)
		}
	}
	return out
}

// NotifyClientLost decrements started_count on every manager sharing
// ip, called by C4 when a load session on that host is lost (spec
// §4.7 "C4 informs C7 whenever a load session is lost").
func (r *registry) NotifyClientLost(ip string) {
	for _, m := range r.byIP(ip) {
		m.decrementOnClientLost()
	}
}
