package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"loadgrid/internal/notify"
	"loadgrid/internal/protocol"
)

// solicitedQueue is the per-session FIFO of solicited-response
// envelopes awaiting a matching awaitResponse call (spec §3 "inbound
// solicited-message queue", §4.3 await_response).
type solicitedQueue struct {
	mu      sync.Mutex
	entries []protocol.Envelope
	ready   *notify.Signal
	logger  *slog.Logger
}

func newSolicitedQueue(logger *slog.Logger) *solicitedQueue {
	return &solicitedQueue{ready: notify.NewSignal(), logger: logger}
}

// push appends a solicited envelope and wakes any waiter.
func (q *solicitedQueue) push(e protocol.Envelope) {
	q.mu.Lock()
	q.entries = append(q.entries, e)
	q.mu.Unlock()
	q.ready.Notify()
}

// take scans for the first entry with a matching ID. An ID match with
// the wrong type is logged and discarded rather than returned — it
// cannot belong to any other outstanding wait, since IDs are unique
// per session — and scanning continues over the rest of the queue.
func (q *solicitedQueue) take(id int64, typ protocol.MessageType) (protocol.Envelope, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := 0; i < len(q.entries); {
		e := q.entries[i]
		if e.ID != id {
			i++
			continue
		}
		q.entries = append(q.entries[:i], q.entries[i+1:]...)
		if e.Type != typ {
			if q.logger != nil {
				q.logger.Warn("solicited queue type mismatch", "id", id, "want", typ, "got", e.Type)
			}
			continue
		}
		return e, true
	}
	return protocol.Envelope{}, false
}

// await blocks until an entry matching (id, typ) arrives or timeout
// elapses in total (spec §4.3: "the total budget is bounded").
func (q *solicitedQueue) await(ctx context.Context, id int64, typ protocol.MessageType, timeout time.Duration) (protocol.Envelope, bool) {
	deadline := time.Now().Add(timeout)
	for {
		if e, ok := q.take(id, typ); ok {
			return e, true
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return protocol.Envelope{}, false
		}

		waitCtx, cancel := context.WithTimeout(ctx, remaining)
		select {
		case <-q.ready.C():
		case <-waitCtx.Done():
		}
		cancel()
	}
}
