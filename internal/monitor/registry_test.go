package monitor

import (
	"net"
	"testing"

	"loadgrid/internal/job"
	"loadgrid/internal/logging"
	"loadgrid/internal/session"
)

type fakeConn struct {
	net.Conn
	remote string
}

func (f *fakeConn) RemoteAddr() net.Addr { return fakeAddr(f.remote) }
func (f *fakeConn) Close() error         { return nil }

type fakeAddr string

func (a fakeAddr) Network() string { return "tcp" }
func (a fakeAddr) String() string  { return string(a) }

func newTestSession(t *testing.T, clientID, ip string) *session.Session {
	t.Helper()
	conn := &fakeConn{remote: ip + ":9999"}
	s := session.New(conn, session.NextConnID(), session.RoleMonitor, session.Timeouts{}, logging.Discard())
	s.ClientID = clientID
	return s
}

// TestDuplicateClientIDRefused mirrors scenario S2: a second monitor
// session with the same client-ID must be refused and the registry
// must still contain exactly one entry.
func TestDuplicateClientIDRefused(t *testing.T) {
	r := newRegistry()
	first := newTestSession(t, "monitor-1", "10.0.0.5")
	second := newTestSession(t, "monitor-1", "10.0.0.6")

	if !r.admitIfAbsent(first) {
		t.Fatal("first registration should succeed")
	}
	if r.admitIfAbsent(second) {
		t.Fatal("duplicate client-id registration must be refused")
	}
	if len(r.byClient) != 1 {
		t.Fatalf("expected exactly one registry entry, got %d", len(r.byClient))
	}
}

func TestCohortRequiredIPsAllMustResolve(t *testing.T) {
	r := newRegistry()
	r.admitIfAbsent(newTestSession(t, "mon-a", "10.0.0.1"))

	j := job.Job{RequiredMonitorIPs: []string{"10.0.0.1", "10.0.0.2"}}
	_, err := r.cohort(j, nil)
	if err != ErrNoMonitorsAvailable {
		t.Fatalf("expected ErrNoMonitorsAvailable, got %v", err)
	}
}

func TestCohortColocationDeduped(t *testing.T) {
	r := newRegistry()
	monA := newTestSession(t, "mon-a", "10.0.0.1")
	r.admitIfAbsent(monA)

	loadSessionSameHost := newTestSession(t, "load-1", "10.0.0.1")

	j := job.Job{ColocateMonitors: true}
	cohort, err := r.cohort(j, []*session.Session{loadSessionSameHost, loadSessionSameHost})
	if err != nil {
		t.Fatalf("cohort: %v", err)
	}
	if len(cohort) != 1 || cohort[0] != monA {
		t.Fatalf("expected exactly one deduped monitor, got %v", cohort)
	}
}

func TestCohortRequiredPlusColocation(t *testing.T) {
	r := newRegistry()
	required := newTestSession(t, "mon-required", "10.0.0.9")
	colocated := newTestSession(t, "mon-colocated", "10.0.0.1")
	r.admitIfAbsent(required)
	r.admitIfAbsent(colocated)

	loadSession := newTestSession(t, "load-1", "10.0.0.1")

	j := job.Job{RequiredMonitorIPs: []string{"10.0.0.9"}, ColocateMonitors: true}
	cohort, err := r.cohort(j, []*session.Session{loadSession})
	if err != nil {
		t.Fatalf("cohort: %v", err)
	}
	if len(cohort) != 2 {
		t.Fatalf("expected both required and colocated monitors, got %v", cohort)
	}
}
