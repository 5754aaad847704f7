// Package manager implements the client-manager listener and registry
// (C7): a flat registry of manager sessions keyed by client-ID, with
// local admission bookkeeping for start_clients/stop_clients (spec
// §4.7).
package manager

import (
	"context"
	"errors"
	"sync"

	"loadgrid/internal/protocol"
	"loadgrid/internal/session"
)

// ErrTooManyClients is returned by StartClients when the request would
// exceed the manager's advertised max_clients_this_host (spec §4.7
// start_clients).
var ErrTooManyClients = errors.New("manager: too many clients requested")

// ErrInvalidStopCount is returned by StopClients when count exceeds
// the manager's currently tracked started_count (spec §4.7
// stop_clients).
var ErrInvalidStopCount = errors.New("manager: stop count exceeds started count")

// Manager wraps one client-manager session with the local bookkeeping
// the core owns: the advertised host capacity and a running count of
// clients this manager has been told to start (spec §4.7).
type Manager struct {
	mu sync.Mutex

	Session      *session.Session
	MaxClients   int
	StartedCount int
}

// StartClients implements start_clients: checks the local admission
// rule before touching the wire, then sends the request and, on
// success, advances StartedCount (spec §4.7).
func (m *Manager) StartClients(ctx context.Context, count, loadListenerPort int) (protocol.StartClientResponse, error) {
	m.mu.Lock()
	if count+m.StartedCount > m.MaxClients {
		m.mu.Unlock()
		return protocol.StartClientResponse{Code: protocol.CodeTooManyClients}, ErrTooManyClients
	}
	m.mu.Unlock()

	resp, err := m.Session.StartClients(ctx, count, loadListenerPort)
	if err != nil {
		return resp, err
	}
	if resp.Code == protocol.CodeSuccess {
		m.mu.Lock()
		m.StartedCount += count
		m.mu.Unlock()
	}
	return resp, nil
}

// StopClients implements stop_clients: count <= 0 means "all"; a
// positive count greater than StartedCount is refused locally (spec
// §4.7).
func (m *Manager) StopClients(ctx context.Context, count int) (protocol.StopClientResponse, error) {
	m.mu.Lock()
	if count > 0 && count > m.StartedCount {
		m.mu.Unlock()
		return protocol.StopClientResponse{Code: protocol.CodeServerError}, ErrInvalidStopCount
	}
	m.mu.Unlock()

	resp, err := m.Session.StopClients(ctx, count)
	if err != nil {
		return resp, err
	}
	if resp.Code == protocol.CodeSuccess {
		m.mu.Lock()
		if count <= 0 {
			m.StartedCount = 0
		} else {
			m.StartedCount -= count
		}
		m.mu.Unlock()
	}
	return resp, nil
}

// decrementOnClientLost adjusts StartedCount when C4 reports a load
// client from this manager's host was lost. A stale count causes no
// correctness issue; it only affects future admission decisions (spec
// §4.7 "C4 informs C7... a stale count does not cause correctness
// issues").
func (m *Manager) decrementOnClientLost() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.StartedCount > 0 {
		m.StartedCount--
	}
}
