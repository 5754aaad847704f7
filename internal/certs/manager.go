// Package certs loads and hot-reloads the TLS certificates each
// listener (load, monitor, stat, manager) terminates TLS with (spec
// §6 "TLS").
package certs

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"loadgrid/internal/logging"
)

// Source describes where a listener's certificate material comes
// from: inline PEM, or a pair of files to watch and reload on change.
// File paths take precedence when both are set.
type Source struct {
	CertPEM, KeyPEM   string
	CertFile, KeyFile string
}

// entry holds one listener's currently active certificate, swapped
// atomically on reload so in-flight TLS handshakes never observe a
// half-updated certificate.
type entry struct {
	cert atomic.Pointer[tls.Certificate]
}

// Manager keyed by listener name ("load", "monitor", "stat",
// "manager") holds the certificate each one's TLS config should
// present. Safe for concurrent use.
type Manager struct {
	logger *slog.Logger

	mu    sync.RWMutex
	certs map[string]*entry

	fileSources map[string]Source
	watcher     *fsnotify.Watcher
	watcherStop chan struct{}
}

// New constructs an empty Manager. Call Load to populate it from
// configuration.
func New(logger *slog.Logger) *Manager {
	return &Manager{
		logger: logging.Default(logger).With("component", "certs"),
		certs:  make(map[string]*entry),
	}
}

// Load replaces every certificate the manager holds with the given
// set, keyed by listener name. Entries with CertFile/KeyFile set are
// read from disk and watched for subsequent changes; all others are
// taken as inline PEM.
func (m *Manager) Load(sources map[string]Source) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopWatcherLocked()
	m.certs = make(map[string]*entry)
	m.fileSources = make(map[string]Source)

	for name, src := range sources {
		certPEM, keyPEM := src.CertPEM, src.KeyPEM
		if src.CertFile != "" && src.KeyFile != "" {
			m.fileSources[name] = src
			var err error
			certPEM, keyPEM, err = readPair(src.CertFile, src.KeyFile)
			if err != nil {
				m.logger.Warn("read certificate files failed", "listener", name, "error", err)
				continue
			}
		}
		if certPEM == "" || keyPEM == "" {
			continue
		}
		cert, err := tls.X509KeyPair([]byte(certPEM), []byte(keyPEM))
		if err != nil {
			m.logger.Warn("parse certificate failed", "listener", name, "error", err)
			continue
		}
		e := &entry{}
		e.cert.Store(&cert)
		m.certs[name] = e
	}

	if len(m.fileSources) > 0 {
		m.startWatcherLocked()
	}
	return nil
}

func readPair(certFile, keyFile string) (certPEM, keyPEM string, err error) {
	certB, err := os.ReadFile(certFile)
	if err != nil {
		return "", "", fmt.Errorf("certs: read cert file: %w", err)
	}
	keyB, err := os.ReadFile(keyFile)
	if err != nil {
		return "", "", fmt.Errorf("certs: read key file: %w", err)
	}
	return string(certB), string(keyB), nil
}

func (m *Manager) stopWatcherLocked() {
	if m.watcherStop != nil {
		close(m.watcherStop)
		m.watcherStop = nil
	}
	if m.watcher != nil {
		m.watcher.Close()
		m.watcher = nil
	}
}

func (m *Manager) startWatcherLocked() {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		m.logger.Warn("start certificate watcher failed", "error", err)
		return
	}
	m.watcher = watcher
	m.watcherStop = make(chan struct{})

	pathToName := make(map[string]string)
	for name, src := range m.fileSources {
		pathToName[src.CertFile] = name
		pathToName[src.KeyFile] = name
		if err := watcher.Add(src.CertFile); err != nil {
			m.logger.Warn("watch certificate file", "file", src.CertFile, "error", err)
		}
		if err := watcher.Add(src.KeyFile); err != nil {
			m.logger.Warn("watch key file", "file", src.KeyFile, "error", err)
		}
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-m.watcherStop:
				return
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				m.logger.Warn("certificate watcher error", "error", err)
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				name, ok := pathToName[ev.Name]
				if !ok {
					continue
				}
				m.reload(name)
			}
		}
	}()
}

func (m *Manager) reload(name string) {
	m.mu.RLock()
	src, ok := m.fileSources[name]
	m.mu.RUnlock()
	if !ok {
		return
	}
	certPEM, keyPEM, err := readPair(src.CertFile, src.KeyFile)
	if err != nil {
		m.logger.Warn("reload certificate failed", "listener", name, "error", err)
		return
	}
	cert, err := tls.X509KeyPair([]byte(certPEM), []byte(keyPEM))
	if err != nil {
		m.logger.Warn("reload certificate parse failed", "listener", name, "error", err)
		return
	}
	m.mu.Lock()
	if e, ok := m.certs[name]; ok {
		e.cert.Store(&cert)
	}
	m.mu.Unlock()
}

// TLSConfig returns a *tls.Config that always presents the
// certificate registered under name, suitable for one listener's
// net.Listen wrapper. Returns nil if name has no certificate loaded.
func (m *Manager) TLSConfig(name string) *tls.Config {
	m.mu.RLock()
	_, ok := m.certs[name]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	return &tls.Config{
		GetCertificate: func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
			m.mu.RLock()
			e, ok := m.certs[name]
			m.mu.RUnlock()
			if !ok {
				return nil, fmt.Errorf("certs: no certificate registered for %q", name)
			}
			c := e.cert.Load()
			if c == nil {
				return nil, fmt.Errorf("certs: certificate for %q not yet loaded", name)
			}
			return c, nil
		},
	}
}
