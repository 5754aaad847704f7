package manager

import (
	"context"
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

func newTestManager(t *testing.T, clientID, ip string, maxClients int) *Manager {
	t.Helper()
	conn := &fakeConn{remote: ip + ":9999"}
	s := session.New(conn, session.NextConnID(), session.RoleManager, session.Timeouts{}, logging.Discard())
	s.ClientID = clientID
	return &Manager{Session: s, MaxClients: maxClients}
}

func TestDuplicateManagerClientIDRefused(t *testing.T) {
	r := newRegistry()
	first := newTestManager(t, "mgr-1", "10.0.0.1", 10)
	second := newTestManager(t, "mgr-1", "10.0.0.2", 10)

	if !r.admitIfAbsent(first) {
		t.Fatal("first registration should succeed")
	}
	if r.admitIfAbsent(second) {
		t.Fatal("duplicate client-id registration must be refused")
	}
}

func TestStartClientsRefusesOverCapacityLocally(t *testing.T) {
	m := newTestManager(t, "mgr-1", "10.0.0.1", 5)
	m.StartedCount = 3

	_, err := m.StartClients(context.Background(), 4, 9000)
	if err != ErrTooManyClients {
		t.Fatalf("expected ErrTooManyClients, got %v", err)
	}
	if m.StartedCount != 3 {
		t.Fatalf("started count must be untouched on local refusal, got %d", m.StartedCount)
	}
}

func TestStopClientsRefusesExcessCountLocally(t *testing.T) {
	m := newTestManager(t, "mgr-1", "10.0.0.1", 5)
	m.StartedCount = 2

	_, err := m.StopClients(context.Background(), 3)
	if err != ErrInvalidStopCount {
		t.Fatalf("expected ErrInvalidStopCount, got %v", err)
	}
}

func TestNotifyClientLostDecrementsStartedCount(t *testing.T) {
	r := newRegistry()
	m := newTestManager(t, "mgr-1", "10.0.0.1", 5)
	m.StartedCount = 2
	r.admitIfAbsent(m)

	r.NotifyClientLost("10.0.0.1")
	if m.StartedCount != 1 {
		t.Fatalf("started count = %d, want 1", m.StartedCount)
	}

	r.NotifyClientLost("10.0.0.1")
	r.NotifyClientLost("10.0.0.1")
	if m.StartedCount != 0 {
		t.Fatalf("started count should floor at 0, got %d", m.StartedCount)
	}
}
