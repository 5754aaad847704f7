// Package session implements the per-connection state machine every
// agent role shares (spec §2 C3, §4.3): handshake, the receive loop,
// message-ID correlation, and the send/await API the scheduler-facing
// operations (dispatch_job, control_job, status_request, shutdown)
// are built from.
package session

import (
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"loadgrid/internal/job"
	"loadgrid/internal/logging"
	"loadgrid/internal/notify"
)

// Role distinguishes the four agent populations this module talks to.
type Role int

const (
	RoleLoad Role = iota
	RoleMonitor
	RoleStat
	RoleManager
)

func (r Role) String() string {
	switch r {
	case RoleLoad:
		return "load"
	case RoleMonitor:
		return "monitor"
	case RoleStat:
		return "stat"
	case RoleManager:
		return "manager"
	default:
		return "unknown"
	}
}

var connIDCounter atomic.Int64

// NextConnID issues the next server-assigned connection-ID. IDs are
// unique and monotonically increasing for the lifetime of the process
// (spec §3 "connection-ID").
func NextConnID() int64 { return connIDCounter.Add(1) }

// Timeouts bundles the per-session timing knobs the receive loop and
// send/await API use (spec §4.3, §5).
type Timeouts struct {
	// KeepaliveInterval is the soft read deadline; zero disables
	// keepalives (the read is then re-armed every defaultReadTimeout
	// until an EOF or data arrives).
	KeepaliveInterval time.Duration
	// ResponseWait is the total budget await_response blocks for.
	ResponseWait time.Duration
	// WriteTimeout bounds a single outbound write; zero uses
	// defaultWriteTimeout.
	WriteTimeout time.Duration
}

// Session is one accepted connection plus its state machine (spec
// §3 "Session").
type Session struct {
	ConnID        int64
	ClientID      string
	ClientVersion string
	RemoteAddr    string
	Established   time.Time
	Role          Role
	Restricted    bool

	// ManagerMaxClientsThisHost is the capacity a client-manager
	// session advertised in its hello (spec §4.7); zero for every
	// other role.
	ManagerMaxClientsThisHost int

	conn    net.Conn
	timeout Timeouts
	logger  *slog.Logger

	nextOutID atomic.Int64 // last issued odd ID; first Send uses 1

	writeMu sync.Mutex
	queue   *solicitedQueue

	jobsMu      sync.Mutex
	inProgress  map[job.ID]job.Job
	jobsCleared *notify.Signal

	ioFailed atomic.Bool

	keepListening atomic.Bool
	closeOnce     sync.Once
}

// New constructs a Session around an already-accepted connection. The
// caller is expected to run the handshake before inserting the session
// into a registry or starting its receive loop.
func New(conn net.Conn, connID int64, role Role, timeout Timeouts, logger *slog.Logger) *Session {
	s := &Session{
		ConnID:      connID,
		RemoteAddr:  conn.RemoteAddr().String(),
		Established: time.Now(),
		Role:        role,
		conn:        conn,
		timeout:     timeout,
		logger:      logging.Default(logger).With("component", "session", "role", role, "conn_id", connID),
		inProgress:  make(map[job.ID]job.Job),
		jobsCleared: notify.NewSignal(),
	}
	s.nextOutID.Store(-1)
	s.queue = newSolicitedQueue(s.logger)
	s.keepListening.Store(true)
	return s
}

// nextID returns the next server-originated message-ID: odd, strictly
// greater than every ID issued before it on this session (spec §3
// invariant, §8 invariant 1).
func (s *Session) nextID() int64 { return s.nextOutID.Add(2) }

// IP returns the dotted host part of RemoteAddr, used by registries
// that key or colocate on IP rather than the full host:port.
func (s *Session) IP() string {
	host, _, err := net.SplitHostPort(s.RemoteAddr)
	if err != nil {
		return s.RemoteAddr
	}
	return host
}

// Logger exposes the session's component logger for listener code that
// wants to attach additional context.
func (s *Session) Logger() *slog.Logger { return s.logger }

// Stop clears keepListening so the receive loop exits at its next
// opportunity; it does not close the socket (see Close for that).
func (s *Session) Stop() { s.keepListening.Store(false) }

// Close closes the underlying connection exactly once. Safe to call
// from any goroutine, any number of times.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.keepListening.Store(false)
		err = s.conn.Close()
	})
	return err
}

// jobCount reports how many jobs are currently in progress on this
// session (spec §3 invariant: load holds at most one; monitor holds
// many keyed by job-ID).
func (s *Session) jobCount() int {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()
	return len(s.inProgress)
}

// hasJob reports whether the given job is recorded in progress here.
func (s *Session) hasJob(id job.ID) bool {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()
	_, ok := s.inProgress[id]
	return ok
}

// addJob records a job as in progress on this session. Load sessions
// must only ever call this after confirming jobCount() == 0 — that
// invariant is enforced by DispatchJob, not here, since monitor
// sessions legitimately hold many.
func (s *Session) addJob(j job.Job) {
	s.jobsMu.Lock()
	s.inProgress[j.ID] = j
	s.jobsMu.Unlock()
}

// removeJob drops a job from the in-progress set, returning it and
// whether it was present. It wakes Shutdown's drain wait once the set
// becomes empty.
func (s *Session) removeJob(id job.ID) (job.Job, bool) {
	s.jobsMu.Lock()
	j, ok := s.inProgress[id]
	empty := false
	if ok {
		delete(s.inProgress, id)
		empty = len(s.inProgress) == 0
	}
	s.jobsMu.Unlock()
	if empty {
		s.jobsCleared.Notify()
	}
	return j, ok
}

// inProgressJobs returns a snapshot of every job currently recorded on
// this session, for the connection-loss synthesis path (spec §4.4,
// §4.5).
func (s *Session) inProgressJobs() []job.Job {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()
	out := make([]job.Job, 0, len(s.inProgress))
	for _, j := range s.inProgress {
		out = append(out, j)
	}
	return out
}

// noteIOError applies the two-strike consecutive-failure gate (spec
// §4.3 step 5, §5, §9 "Consecutive-failure gate"): the first IO error
// on a session is absorbed; a second before any successful read or
// write is fatal and the caller must treat the connection as dead.
func (s *Session) noteIOError() (fatal bool) {
	return !s.ioFailed.CompareAndSwap(false, true)
}

// noteIOSuccess resets the consecutive-failure gate (spec §4.3:
// "Any IO failure outside the normal flow shall reset the
// consecutive-failure flag on the next successful read.").
func (s *Session) noteIOSuccess() { s.ioFailed.Store(false) }

// String renders a short identity for logging.
func (s *Session) String() string {
	return fmt.Sprintf("session(conn=%d client=%q role=%s)", s.ConnID, s.ClientID, s.Role)
}
