package loadpool

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"time"

	"golang.org/x/time/rate"

	"loadgrid/internal/authn"
	"loadgrid/internal/job"
	"loadgrid/internal/jobclass"
	"loadgrid/internal/logging"
	"loadgrid/internal/protocol"
	"loadgrid/internal/session"
)

// defaultRegistryLockTimeout bounds the accept-path registry lock
// acquisition (spec §5).
const defaultRegistryLockTimeout = 3 * time.Second

// Options configures a Pool.
type Options struct {
	Addr      string
	TLSConfig *tls.Config

	MaxClients          int
	RegistryLockTimeout time.Duration

	AcceptRate  rate.Limit
	AcceptBurst int

	Validator   authn.Validator
	RequireAuth bool

	Timeouts          session.Timeouts
	HandshakeDeadline time.Duration

	Classes  jobclass.Provider
	Notifier Notifier

	// OnClientLost is invoked with a load session's IP address when its
	// connection is lost, so C7 can decrement a manager's started-count
	// (spec §4.4 last paragraph, §4.7).
	OnClientLost func(ip string)

	Logger *slog.Logger
}

// Pool is the load-client listener and registry (C4).
type Pool struct {
	opts     Options
	logger   *slog.Logger
	registry *registry
	limiter  *acceptLimiter
	classes  jobclass.Provider
	notifier Notifier

	onClientLost func(ip string)

	listener net.Listener
}

// New constructs a Pool. Call Serve to start accepting.
func New(opts Options) *Pool {
	if opts.RegistryLockTimeout <= 0 {
		opts.RegistryLockTimeout = defaultRegistryLockTimeout
	}
	var limiter *acceptLimiter
	if opts.AcceptRate > 0 {
		limiter = newAcceptLimiter(opts.AcceptRate, opts.AcceptBurst)
	}
	return &Pool{
		opts:         opts,
		logger:       logging.Default(opts.Logger).With("component", "loadpool"),
		registry:     newRegistry(),
		limiter:      limiter,
		classes:      opts.Classes,
		notifier:     opts.Notifier,
		onClientLost: opts.OnClientLost,
	}
}

// Addr returns the listener's bound address. Only valid after Serve has
// started.
func (p *Pool) Addr() net.Addr {
	if p.listener == nil {
		return nil
	}
	return p.listener.Addr()
}

// Snapshot returns every currently registered session, for status
// listings.
func (p *Pool) Snapshot() []*session.Session { return p.registry.snapshot() }

// GetCohort runs cohort selection for j (spec §4.4 "Cohort selection
// for a job").
func (p *Pool) GetCohort(j job.Job) ([]*session.Session, error) {
	return p.registry.getCohort(j)
}

// Serve opens the listening socket and accepts connections until ctx is
// cancelled (spec §4.4), grounded on the teacher's RELP ingester accept
// loop.
func (p *Pool) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", p.opts.Addr)
	if err != nil {
		return err
	}
	if p.opts.TLSConfig != nil {
		ln = tls.NewListener(ln, p.opts.TLSConfig)
	}
	p.listener = ln
	p.logger.Info("load-client listener starting", "addr", ln.Addr().String())

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
			p.logger.Warn("accept error", "error", err)
			continue
		}
		go p.handleConn(ctx, conn)
	}
}

// Shutdown stops accepting and sends server-shutdown to every
// registered session (spec §4.8).
func (p *Pool) Shutdown(ctx context.Context) error {
	if p.listener != nil {
		p.listener.Close()
	}
	for _, s := range p.registry.snapshot() {
		if err := s.Shutdown(ctx, true); err != nil {
			p.logger.Warn("session shutdown error", "session", s.String(), "error", err)
		}
	}
	return nil
}

func (p *Pool) handleConn(ctx context.Context, conn net.Conn) {
	ip, _, _ := net.SplitHostPort(conn.RemoteAddr().String())
	if !p.limiter.allow(ip) {
		conn.Close()
		return
	}

	connID := session.NextConnID()
	result, err := session.Accept(conn, connID, session.AcceptOptions{
		Role:              session.RoleLoad,
		HandshakeDeadline: p.opts.HandshakeDeadline,
		Timeout:           p.opts.Timeouts,
		Validator:         p.opts.Validator,
		RequireAuth:       p.opts.RequireAuth,
		Logger:            p.logger,
		Admit:             p.admit,
	})
	if err != nil {
		p.logger.Warn("handshake rejected", "remote", conn.RemoteAddr(), "error", err)
		return
	}
	s := result.Session

	go s.Run(ctx, &poolHandler{pool: p})
	go p.promptInitialStatus(ctx, s)
}

// admit acquires the registry lock with the bounded accept-path timeout
// and, on success, checks the max-clients limit before inserting (spec
// §4.4 "Acquire the registry write lock..." / "If a configured
// max-clients limit is set...").
func (p *Pool) admit(s *session.Session) (bool, protocol.ResponseCode, string) {
	if !p.registry.lock.TryLock(p.opts.RegistryLockTimeout) {
		return false, protocol.CodeServerError, "registry lock acquisition timed out"
	}
	defer p.registry.lock.Unlock()

	if p.opts.MaxClients > 0 && len(p.registry.full) >= p.opts.MaxClients {
		return false, protocol.CodeConnectionLimitReached, "load-client connection limit reached"
	}
	p.registry.insert(s)
	return true, protocol.CodeSuccess, ""
}

// promptInitialStatus issues the unsolicited status-request spec §4.4
// calls for right after a session is registered, so the scheduler gets
// an initial state exchange without waiting for the agent to speak
// first.
func (p *Pool) promptInitialStatus(ctx context.Context, s *session.Session) {
	resp := s.StatusRequest(ctx, "")
	if resp.Code != protocol.CodeSuccess {
		p.logger.Debug("initial status-request did not succeed", "client_id", s.ClientID, "code", resp.Code)
	}
}
