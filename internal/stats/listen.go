package stats

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

// defaultMaxIntervals bounds a Series when Options.MaxIntervals is
// left at zero.
const defaultMaxIntervals = 60

// Options configures a Listener.
type Options struct {
	Addr      string
	TLSConfig *tls.Config

	Validator   authn.Validator
	RequireAuth bool

	// RequireUniqueClientID enforces duplicate client-ID refusal (spec
	// §4.6 "may enforce duplicate client-ID refusal").
	RequireUniqueClientID bool

	// MaxIntervals bounds every Series' ring; defaults to
	// defaultMaxIntervals when zero.
	MaxIntervals int
	// JobKnown reports whether a job-ID is still known to the
	// scheduler; nil treats every job-ID as known.
	JobKnown func(job.ID) bool

	Timeouts          session.Timeouts
	HandshakeDeadline time.Duration

	Logger *slog.Logger
}

// Listener is the stat listener and real-time stat handler (C6).
type Listener struct {
	opts     Options
	logger   *slog.Logger
	store    *Store
	registry *registry
	listener net.Listener
}

// New constructs a Listener. Call Serve to start accepting.
func New(opts Options) *Listener {
	maxIntervals := opts.MaxIntervals
	if maxIntervals <= 0 {
		maxIntervals = defaultMaxIntervals
	}
	store := NewStore(maxIntervals)
	store.JobKnown = opts.JobKnown

	return &Listener{
		opts:     opts,
		logger:   logging.Default(opts.Logger).With("component", "stats"),
		store:    store,
		registry: newRegistry(),
	}
}

func (l *Listener) Addr() net.Addr {
	if l.listener == nil {
		return nil
	}
	return l.listener.Addr()
}

// Store exposes the read API for external consumers (spec §4.6 "Read
// API for external consumers").
func (l *Listener) Store() *Store { return l.store }

// Snapshot returns every connected stat session.
func (l *Listener) Snapshot() []*session.Session { return l.registry.snapshot() }

// Serve opens the listening socket and accepts connections until ctx
// is cancelled, mirroring internal/loadpool and internal/monitor.
func (l *Listener) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", l.opts.Addr)
	if err != nil {
		return err
	}
	if l.opts.TLSConfig != nil {
		ln = tls.NewListener(ln, l.opts.TLSConfig)
	}
	l.listener = ln
	l.logger.Info("stat listener starting", "addr", ln.Addr().String())

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
			l.logger.Warn("accept error", "error", err)
			continue
		}
		go l.handleConn(ctx, conn)
	}
}

// Shutdown stops accepting and sends server-shutdown to every
// connected session.
func (l *Listener) Shutdown(ctx context.Context) error {
	if l.listener != nil {
		l.listener.Close()
	}
	for _, s := range l.registry.snapshot() {
		if err := s.Shutdown(ctx, true); err != nil {
			l.logger.Warn("session shutdown error", "session", s.String(), "error", err)
		}
	}
	return nil
}

func (l *Listener) handleConn(ctx context.Context, conn net.Conn) {
	connID := session.NextConnID()
	result, err := session.Accept(conn, connID, session.AcceptOptions{
		Role:              session.RoleStat,
		HandshakeDeadline: l.opts.HandshakeDeadline,
		Timeout:           l.opts.Timeouts,
		Validator:         l.opts.Validator,
		RequireAuth:       l.opts.RequireAuth,
		Logger:            l.logger,
		Admit:             l.admit,
	})
	if err != nil {
		l.logger.Warn("handshake rejected", "remote", conn.RemoteAddr(), "error", err)
		return
	}

	go result.Session.Run(ctx, &statHandler{store: l.store, reg: l.registry})
}

func (l *Listener) admit(s *session.Session) (bool, protocol.ResponseCode, string) {
	if l.opts.RequireUniqueClientID {
		if !l.registry.admitIfAbsent(s) {
			return false, protocol.CodeClientRejected, fmt.Sprintf("duplicate client-id %q", s.ClientID)
		}
		return true, protocol.CodeSuccess, ""
	}
	l.registry.admit(s)
	return true, protocol.CodeSuccess, ""
}
