package session

import (
	"fmt"
	"log/slog"
	"net"
	"time"

	"loadgrid/internal/authn"
	"loadgrid/internal/protocol"
	"loadgrid/internal/wire"
)

// helloIdentity is the role-agnostic subset of a decoded hello this
// package needs to run the handshake (spec §4.3).
type helloIdentity struct {
	MessageID                 int64
	ClientID                  string
	ClientVersion             string
	AuthID                    string
	Credentials               []byte
	Scheme                    string
	SupportsTimeSync          bool
	Restricted                bool
	ManagerMaxClientsThisHost int
}

func readHello(conn net.Conn, role Role, deadline time.Duration) (helloIdentity, error) {
	rec, err := wire.ReadRecord(conn, deadline)
	if err != nil {
		return helloIdentity{}, fmt.Errorf("session: handshake read: %w", err)
	}
	env, err := protocol.DecodeEnvelope(rec)
	if err != nil {
		return helloIdentity{}, fmt.Errorf("session: handshake decode: %w", err)
	}

	if role == RoleManager {
		if env.Type != protocol.TypeClientManagerHello {
			return helloIdentity{}, fmt.Errorf("session: expected client-manager-hello, got %s", env.Type)
		}
		h, err := protocol.DecodeClientManagerHello(env.Body)
		if err != nil {
			return helloIdentity{}, err
		}
		return helloIdentity{
			MessageID:                 env.ID,
			ClientID:                  h.ClientID,
			ClientVersion:             h.ClientVersion,
			AuthID:                    h.AuthID,
			Credentials:               h.Credentials,
			Scheme:                    h.Scheme,
			ManagerMaxClientsThisHost: h.MaxClientsThisHost,
		}, nil
	}

	if env.Type != protocol.TypeClientHello {
		return helloIdentity{}, fmt.Errorf("session: expected client-hello, got %s", env.Type)
	}
	h, err := protocol.DecodeClientHello(env.Body)
	if err != nil {
		return helloIdentity{}, err
	}
	return helloIdentity{
		MessageID:        env.ID,
		ClientID:         h.ClientID,
		ClientVersion:    h.ClientVersion,
		AuthID:           h.AuthID,
		Credentials:      h.Credentials,
		Scheme:           h.Scheme,
		SupportsTimeSync: h.SupportsTimeSync,
		Restricted:       h.Restricted,
	}, nil
}

// validateCredentials implements the decision table from spec §4.3:
// absent credentials defer to whether the listener requires auth;
// present credentials require a configured validator supporting the
// hello's scheme. fatal means the scheme itself is unsupported — a
// protocol error closed without any hello-response acknowledgement.
func validateCredentials(h helloIdentity, validator authn.Validator, requireAuth bool) (accepted bool, code protocol.ResponseCode, message string, fatal bool) {
	switch {
	case len(h.Credentials) == 0 && !requireAuth:
		return true, protocol.CodeSuccess, "", false
	case len(h.Credentials) == 0 && requireAuth:
		return false, protocol.CodeServerError, "authentication required", false
	case validator == nil:
		return false, protocol.CodeServerError, "authentication not configured", false
	case h.Scheme != validator.Scheme():
		return false, protocol.CodeServerError, "", true
	default:
		d := validator.Validate(h.AuthID, h.Credentials)
		if !d.Accepted {
			return false, d.Code, d.Message, false
		}
		return true, protocol.CodeSuccess, "", false
	}
}

// AcceptOptions configures Accept for one listener's role.
type AcceptOptions struct {
	Role              Role
	HandshakeDeadline time.Duration
	Timeout           Timeouts
	Validator         authn.Validator
	RequireAuth       bool
	Logger            *slog.Logger

	// Admit is consulted after credential validation succeeds, with the
	// fully constructed (not yet started, not yet registered) Session.
	// It is the listener's one chance to perform registry-level
	// admission under its own lock — duplicate-client-ID refusal (spec
	// §4.5 "duplicate client-id on monitor registry is refused"),
	// max-clients / bounded-lock-timeout admission (spec §4.4 "Acquire
	// the registry write lock... If a configured max-clients limit is
	// set...") — and to insert the session into its registry before
	// Accept sends the success hello-response, so no accepted session
	// is ever left outside its registry. Returning ok=false rejects the
	// handshake with the given code/message and the session is
	// discarded without ever being inserted anywhere. Load listeners
	// that permit duplicates and have no capacity limit may pass nil.
	Admit func(s *Session) (ok bool, code protocol.ResponseCode, message string)
}

// AcceptResult is what Accept hands back to the listener on success.
type AcceptResult struct {
	Session                   *Session
	ManagerMaxClientsThisHost int
}

// Accept runs the full handshake on a freshly-accepted connection:
// read hello, validate credentials, consult opts.Admit (duplicate
// client-ID and capacity checks, registry insert), and send
// hello-response. On any rejection the connection is closed and an
// error is returned; the caller does not need to close conn again. On
// success the returned Session has not yet had its receive loop
// started; starting it is the caller's job. It is already in its
// registry when Admit inserted it; with a nil Admit it is in none.
func Accept(conn net.Conn, connID int64, opts AcceptOptions) (AcceptResult, error) {
	h, err := readHello(conn, opts.Role, opts.HandshakeDeadline)
	if err != nil {
		conn.Close()
		return AcceptResult{}, err
	}

	accepted, code, message, fatal := validateCredentials(h, opts.Validator, opts.RequireAuth)
	if fatal {
		conn.Close()
		return AcceptResult{}, fmt.Errorf("session: unsupported authentication scheme %q", h.Scheme)
	}

	s := New(conn, connID, opts.Role, opts.Timeout, opts.Logger)
	s.ClientID = h.ClientID
	s.ClientVersion = h.ClientVersion
	s.Restricted = h.Restricted
	s.ManagerMaxClientsThisHost = h.ManagerMaxClientsThisHost

	if accepted && opts.Admit != nil {
		var admitted bool
		admitted, code, message = opts.Admit(s)
		accepted = admitted
	}

	if !accepted {
		writeHelloResponse(conn, h.MessageID, code, message, protocol.NoServerTime, opts.Timeout.WriteTimeout)
		conn.Close()
		return AcceptResult{}, fmt.Errorf("session: handshake rejected: %s", message)
	}

	serverTime := protocol.NoServerTime
	if h.SupportsTimeSync {
		serverTime = time.Now().UnixMilli()
	}
	if err := writeHelloResponse(conn, h.MessageID, protocol.CodeSuccess, "", serverTime, opts.Timeout.WriteTimeout); err != nil {
		conn.Close()
		return AcceptResult{}, fmt.Errorf("session: send hello-response: %w", err)
	}

	return AcceptResult{Session: s, ManagerMaxClientsThisHost: h.ManagerMaxClientsThisHost}, nil
}

func writeHelloResponse(conn net.Conn, id int64, code protocol.ResponseCode, message string, serverTime int64, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}
	v := protocol.EncodeHelloResponse(id, protocol.HelloResponse{Code: code, Message: message, ServerTimeMillis: serverTime})
	return wire.WriteRecord(conn, v, timeout)
}
