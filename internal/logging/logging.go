// Package logging provides the structured-logging conventions shared by
// every component of the coordinator.
//
// Rules:
//   - Loggers are dependency-injected, never global.
//   - Each component scopes its own logger once, at construction time,
//     with a "component" attribute (and further attributes as needed).
//   - A nil logger is replaced with a discard logger so components never
//     have to nil-check before logging.
//   - Logging stays off hot paths (the receive loop's per-record switch,
//     the stat-series update path); lifecycle boundaries are the
//     intended log points.
package logging

import (
	"context"
	"log/slog"
	"maps"
	"sync/atomic"
)

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// Discard returns a logger that drops everything written to it.
func Discard() *slog.Logger {
	return slog.New(discardHandler{})
}

// Default returns logger if non-nil, otherwise a discard logger. Use at
// the top of every constructor that takes an optional *slog.Logger:
//
//	func New(logger *slog.Logger) *Thing {
//	    logger = logging.Default(logger).With("component", "thing")
//	    return &Thing{logger: logger}
//	}
func Default(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return Discard()
}

// LevelFilter wraps an slog.Handler and applies a per-component minimum
// level on top of the handler's own level, so a forced log level (§6
// "optional forced log level") can be overridden for one noisy
// component — e.g. the stat handler — without touching everything else.
//
// Reads are lock-free (atomic snapshot); writes (SetLevel/ClearLevel) use
// copy-on-write so Handle never blocks on a writer.
type LevelFilter struct {
	next     slog.Handler
	fallback slog.Level
	preAttrs []slog.Attr
	levels   *atomic.Pointer[map[string]slog.Level]
}

// NewLevelFilter wraps next, using fallback as the minimum level for any
// component that has no explicit override.
func NewLevelFilter(next slog.Handler, fallback slog.Level) *LevelFilter {
	p := &atomic.Pointer[map[string]slog.Level]{}
	empty := make(map[string]slog.Level)
	p.Store(&empty)
	return &LevelFilter{next: next, fallback: fallback, levels: p}
}

func (f *LevelFilter) Enabled(context.Context, slog.Level) bool {
	// Deferred to Handle, where the component attribute is visible.
	return true
}

func (f *LevelFilter) Handle(ctx context.Context, r slog.Record) error {
	min := f.fallback
	if comp := f.component(r); comp != "" {
		if lvl, ok := (*f.levels.Load())[comp]; ok {
			min = lvl
		}
	}
	if r.Level < min {
		return nil
	}
	if !f.next.Enabled(ctx, r.Level) {
		return nil
	}
	return f.next.Handle(ctx, r)
}

func (f *LevelFilter) component(r slog.Record) string {
	for _, a := range f.preAttrs {
		if a.Key == "component" {
			if s, ok := a.Value.Resolve().Any().(string); ok {
				return s
			}
		}
	}
	var comp string
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "component" {
			if s, ok := a.Value.Resolve().Any().(string); ok {
				comp = s
				return false
			}
		}
		return true
	})
	return comp
}

func (f *LevelFilter) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return f
	}
	merged := make([]slog.Attr, len(f.preAttrs), len(f.preAttrs)+len(attrs))
	copy(merged, f.preAttrs)
	merged = append(merged, attrs...)
	return &LevelFilter{next: f.next.WithAttrs(attrs), fallback: f.fallback, preAttrs: merged, levels: f.levels}
}

func (f *LevelFilter) WithGroup(name string) slog.Handler {
	if name == "" {
		return f
	}
	return &LevelFilter{next: f.next.WithGroup(name), fallback: f.fallback, preAttrs: f.preAttrs, levels: f.levels}
}

// SetLevel overrides the minimum level for one component.
func (f *LevelFilter) SetLevel(component string, level slog.Level) {
	old := *f.levels.Load()
	next := make(map[string]slog.Level, len(old)+1)
	maps.Copy(next, old)
	next[component] = level
	f.levels.Store(&next)
}

// ClearLevel removes a component's override, reverting to the fallback.
func (f *LevelFilter) ClearLevel(component string) {
	old := *f.levels.Load()
	if _, ok := old[component]; !ok {
		return
	}
	next := make(map[string]slog.Level, len(old))
	for k, v := range old {
		if k != component {
			next[k] = v
		}
	}
	f.levels.Store(&next)
}
