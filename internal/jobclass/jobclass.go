// Package jobclass resolves a job-class name to the bytes an agent needs
// to execute it (spec §4.3 class-transfer-request/response). It does not
// compile or run job classes — that remains the out-of-scope job-class
// engine named in spec §1; this package only answers "what bytes does
// class X mean" for the wire transfer.
package jobclass

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/klauspost/compress/zstd"
)

// ErrClassNotFound is returned when no file under the configured root
// matches the requested class name.
var ErrClassNotFound = errors.New("jobclass: class not found")

// Provider resolves a class name to its (already compressed) transfer
// payload. Implementations must be safe for concurrent use.
type Provider interface {
	Resolve(className string) ([]byte, error)
}

// FileProvider resolves class names against a root directory: a class
// named "foo" matches the first file under Root whose base name (without
// extension) is "foo", searched via a doublestar glob so class files may
// be nested in subdirectories. Resolved bytes are zstd-compressed once
// and cached; the underlying files are expected to be static for the
// life of the process (job classes are not hot-reloaded).
type FileProvider struct {
	Root string

	mu    sync.Mutex
	cache map[string][]byte
	enc   *zstd.Encoder
}

// NewFileProvider constructs a FileProvider rooted at root.
func NewFileProvider(root string) (*FileProvider, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	return &FileProvider{
		Root:  root,
		cache: make(map[string][]byte),
		enc:   enc,
	}, nil
}

// Resolve implements Provider.
func (p *FileProvider) Resolve(className string) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if cached, ok := p.cache[className]; ok {
		return cached, nil
	}

	matches, err := doublestar.FilepathGlob(filepath.Join(p.Root, "**", className+".*"))
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		matches, err = doublestar.FilepathGlob(filepath.Join(p.Root, className+".*"))
		if err != nil {
			return nil, err
		}
	}
	if len(matches) == 0 {
		return nil, ErrClassNotFound
	}

	raw, err := os.ReadFile(matches[0])
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	p.enc.Reset(&buf)
	if _, err := p.enc.Write(raw); err != nil {
		return nil, err
	}
	if err := p.enc.Close(); err != nil {
		return nil, err
	}

	compressed := buf.Bytes()
	p.cache[className] = compressed
	return compressed, nil
}
