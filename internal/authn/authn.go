// Package authn is the credential validator the session handshake
// consults (spec §4.3, §9 "Global mutable state": the validator is
// injected into each listener at startup, never a static singleton).
// The core only depends on the Validator interface; this package
// supplies two concrete implementations (static table and JWT bearer).
package authn

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"

	"loadgrid/internal/protocol"
)

// Decision is a validator's verdict on one hello's credentials.
type Decision struct {
	Accepted bool
	Code     protocol.ResponseCode
	Message  string
}

// Validator authenticates a hello's authentication-ID and credentials
// (spec §4.3). Scheme reports the single authentication scheme this
// validator supports; a hello naming any other scheme is a fatal
// protocol error before Validate is ever called.
type Validator interface {
	Scheme() string
	Validate(authID string, credentials []byte) Decision
}

// Argon2id parameters, OWASP-recommended defaults.
const (
	argonMemory  = 64 * 1024
	argonTime    = 3
	argonThreads = 4
	argonKeyLen  = 32
	argonSaltLen = 16
)

// StaticValidator checks credentials against an in-memory table of
// argon2id password hashes, keyed by authentication-ID. It supports
// the "simple" scheme.
type StaticValidator struct {
	mu    sync.RWMutex
	table map[string]string // authID -> PHC-format argon2id hash
}

// NewStaticValidator builds a validator from an authID-to-hash table.
// Use HashPassword to produce entries for it.
func NewStaticValidator(table map[string]string) *StaticValidator {
	cp := make(map[string]string, len(table))
	for k, v := range table {
		cp[k] = v
	}
	return &StaticValidator{table: cp}
}

func (v *StaticValidator) Scheme() string { return "simple" }

func (v *StaticValidator) Validate(authID string, credentials []byte) Decision {
	v.mu.RLock()
	hash, ok := v.table[authID]
	v.mu.RUnlock()
	if !ok {
		return Decision{Code: protocol.CodeClientRejected, Message: "unknown authentication ID"}
	}
	match, err := verifyPassword(string(credentials), hash)
	if err != nil || !match {
		return Decision{Code: protocol.CodeClientRejected, Message: "credential mismatch"}
	}
	return Decision{Accepted: true}
}

// Set installs or replaces one entry in the credential table.
func (v *StaticValidator) Set(authID, hash string) {
	v.mu.Lock()
	v.table[authID] = hash
	v.mu.Unlock()
}

// HashPassword hashes a password into a PHC-format argon2id string
// suitable for StaticValidator's table.
func HashPassword(password string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("authn: generate salt: %w", err)
	}
	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonTime, argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

func verifyPassword(password, encoded string) (bool, error) {
	salt, hash, memory, time, threads, keyLen, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}
	candidate := argon2.IDKey([]byte(password), salt, time, memory, threads, keyLen)
	return subtle.ConstantTimeCompare(hash, candidate) == 1, nil
}

func parsePHC(encoded string) (salt, hash []byte, memory, time uint32, threads uint8, keyLen uint32, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return nil, nil, 0, 0, 0, 0, fmt.Errorf("authn: invalid PHC format: expected 6 parts, got %d", len(parts))
	}
	if parts[1] != "argon2id" {
		return nil, nil, 0, 0, 0, 0, fmt.Errorf("authn: unsupported algorithm %q", parts[1])
	}
	var m, t uint32
	var p uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &m, &t, &p); err != nil {
		return nil, nil, 0, 0, 0, 0, fmt.Errorf("authn: parse params: %w", err)
	}
	salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, nil, 0, 0, 0, 0, fmt.Errorf("authn: decode salt: %w", err)
	}
	hash, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, nil, 0, 0, 0, 0, fmt.Errorf("authn: decode hash: %w", err)
	}
	return salt, hash, m, t, p, uint32(len(hash)), nil
}
