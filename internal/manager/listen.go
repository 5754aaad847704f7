package manager

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"loadgrid/internal/authn"
	"loadgrid/internal/logging"
	"loadgrid/internal/protocol"
	"loadgrid/internal/session"
)

// Options configures a Registry's listener.
type Options struct {
	Addr      string
	TLSConfig *tls.Config

	Validator   authn.Validator
	RequireAuth bool

	Timeouts          session.Timeouts
	HandshakeDeadline time.Duration

	Logger *slog.Logger
}

// Registry is the client-manager listener and registry (C7).
type Registry struct {
	opts     Options
	logger   *slog.Logger
	registry *registry
	listener net.Listener
}

// New constructs a Registry. Call Serve to start accepting.
func New(opts Options) *Registry {
	return &Registry{
		opts:     opts,
		logger:   logging.Default(opts.Logger).With("component", "manager"),
		registry: newRegistry(),
	}
}

func (m *Registry) Addr() net.Addr {
	if m.listener == nil {
		return nil
	}
	return m.listener.Addr()
}

// Snapshot returns every registered manager.
func (m *Registry) Snapshot() []*Manager { return m.registry.snapshot() }

// NotifyClientLost decrements started_count for the manager on ip
// (spec §4.7 "C4 informs C7 whenever a load session is lost").
func (m *Registry) NotifyClientLost(ip string) { m.registry.NotifyClientLost(ip) }

// Serve opens the listening socket and accepts connections until ctx
// is cancelled, mirroring internal/loadpool's accept loop.
func (m *Registry) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", m.opts.Addr)
	if err != nil {
		return err
	}
	if m.opts.TLSConfig != nil {
		ln = tls.NewListener(ln, m.opts.TLSConfig)
	}
	m.listener = ln
	m.logger.Info("client-manager listener starting", "addr", ln.Addr().String())

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			m.logger.Warn("accept error", "error", err)
			continue
		}
		go m.handleConn(ctx, conn)
	}
}

// Shutdown stops accepting and sends server-shutdown to every
// registered session.
func (m *Registry) Shutdown(ctx context.Context) error {
	if m.listener != nil {
		m.listener.Close()
	}
	for _, mgr := range m.registry.snapshot() {
		if err := mgr.Session.Shutdown(ctx, true); err != nil {
			m.logger.Warn("session shutdown error", "session", mgr.Session.String(), "error", err)
		}
	}
	return nil
}

func (m *Registry) handleConn(ctx context.Context, conn net.Conn) {
	connID := session.NextConnID()
	result, err := session.Accept(conn, connID, session.AcceptOptions{
		Role:              session.RoleManager,
		HandshakeDeadline: m.opts.HandshakeDeadline,
		Timeout:           m.opts.Timeouts,
		Validator:         m.opts.Validator,
		RequireAuth:       m.opts.RequireAuth,
		Logger:            m.logger,
		Admit:             m.admit,
	})
	if err != nil {
		m.logger.Warn("handshake rejected", "remote", conn.RemoteAddr(), "error", err)
		return
	}

	go result.Session.Run(ctx, &managerHandler{reg: m.registry})
}

// admit refuses a duplicate client-ID (spec §4.7 "Duplicate client-ID
// is refused") and otherwise inserts a Manager wrapper into the
// registry.
func (m *Registry) admit(s *session.Session) (bool, protocol.ResponseCode, string) {
	mgr := &Manager{Session: s, MaxClients: s.ManagerMaxClientsThisHost}
	if !m.registry.admitIfAbsent(mgr) {
		return false, protocol.CodeClientRejected, fmt.Sprintf("duplicate client-id %q", s.ClientID)
	}
	return true, protocol.CodeSuccess, ""
}
