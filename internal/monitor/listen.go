package monitor

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"loadgrid/internal/authn"
	"loadgrid/internal/job"
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

	Notifier Notifier
	Logger   *slog.Logger
}

// Registry is the resource-monitor listener and registry (C5).
type Registry struct {
	opts     Options
	logger   *slog.Logger
	registry *registry
	notifier Notifier
	listener net.Listener
}

// New constructs a Registry. Call Serve to start accepting.
func New(opts Options) *Registry {
	return &Registry{
		opts:     opts,
		logger:   logging.Default(opts.Logger).With("component", "monitor"),
		registry: newRegistry(),
		notifier: opts.Notifier,
	}
}

func (m *Registry) Addr() net.Addr {
	if m.listener == nil {
		return nil
	}
	return m.listener.Addr()
}

// Snapshot returns every registered monitor session.
func (m *Registry) Snapshot() []*session.Session { return m.registry.snapshot() }

// Cohort resolves the monitor cohort for a job against the already
// selected load cohort (spec §4.5 "Monitor cohort for a job").
func (m *Registry) Cohort(j job.Job, loadCohort []*session.Session) ([]*session.Session, error) {
	return m.registry.cohort(j, loadCohort)
}

// Serve opens the listening socket and accepts connections until ctx is
// cancelled, mirroring internal/loadpool's accept loop.
func (m *Registry) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", m.opts.Addr)
	if err != nil {
		return err
	}
	if m.opts.TLSConfig != nil {
		ln = tls.NewListener(ln, m.opts.TLSConfig)
	}
	m.listener = ln
	m.logger.Info("resource-monitor listener starting", "addr", ln.Addr().String())

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
	for _, s := range m.registry.snapshot() {
		if err := s.Shutdown(ctx, true); err != nil {
			m.logger.Warn("session shutdown error", "session", s.String(), "error", err)
		}
	}
	return nil
}

func (m *Registry) handleConn(ctx context.Context, conn net.Conn) {
	connID := session.NextConnID()
	result, err := session.Accept(conn, connID, session.AcceptOptions{
		Role:              session.RoleMonitor,
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

	go result.Session.Run(ctx, &monitorHandler{reg: m.registry, notifier: m.notifier})
}

// admit refuses a duplicate client-ID (spec §4.5 "duplicate client-ID
// on monitor registry is refused") and otherwise inserts the session.
func (m *Registry) admit(s *session.Session) (bool, protocol.ResponseCode, string) {
	if !m.registry.admitIfAbsent(s) {
		return false, protocol.CodeClientRejected, fmt.Sprintf("duplicate client-id %q", s.ClientID)
	}
	return true, protocol.CodeSuccess, ""
}
