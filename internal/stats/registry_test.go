package stats

import (
	"net"
	"testing"

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
	s := session.New(conn, session.NextConnID(), session.RoleStat, session.Timeouts{}, logging.Discard())
	s.ClientID = clientID
	return s
}

func TestRegistryRefusesDuplicateWhenAdmitIfAbsentUsed(t *testing.T) {
	r := newRegistry()
	first := newTestSession(t, "stat-1", "10.0.0.5")
	second := newTestSession(t, "stat-1", "10.0.0.6")

	if !r.admitIfAbsent(first) {
		t.Fatal("first registration should succeed")
	}
	if r.admitIfAbsent(second) {
		t.Fatal("duplicate client-id registration must be refused")
	}
	if len(r.snapshot()) != 1 {
		t.Fatalf("expected exactly one registry entry, got %d", len(r.snapshot()))
	}
}

func TestRegistryRemove(t *testing.T) {
	r := newRegistry()
	s := newTestSession(t, "stat-1", "10.0.0.5")
	r.admit(s)
	r.remove(s)
	if len(r.snapshot()) != 0 {
		t.Fatalf("expected empty registry after remove, got %d", len(r.snapshot()))
	}
}
