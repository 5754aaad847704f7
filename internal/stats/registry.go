package stats

import (
	"sync"

	"loadgrid/internal/session"
)

// registry tracks connected stat sessions by client-ID so duplicate
// refusal can be enforced when Options.RequireUniqueClientID is set
// (spec §4.6 "may enforce duplicate client-ID refusal").
type registry struct {
	mu       sync.Mutex
	byClient map[string]*session.Session
}

func newRegistry() *registry {
	return &registry{byClient: make(map[string]*session.Session)}
}

func (r *registry) admitIfAbsent(s *session.Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byClient[s.ClientID]; exists {
		return false
	}
	r.byClient[s.ClientID] = s
	return true
}

func (r *registry) admit(s *session.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byClient[s.ClientID] = s
}

func (r *registry) remove(s *session.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.byClient[s.ClientID]; ok && cur == s {
		delete(r.byClient, s.ClientID)
	}
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
