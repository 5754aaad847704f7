package session

import (
	"context"
	"fmt"

	"loadgrid/internal/protocol"
)

// StartClients sends a start-client-request and waits for the matching
// response (spec §4.7 start_clients). Local admission bookkeeping
// (too-many-clients, started_count) is the caller's responsibility —
// this method only drives the wire exchange.
func (s *Session) StartClients(ctx context.Context, count, loadListenerPort int) (protocol.StartClientResponse, error) {
	id := s.nextID()
	req := protocol.StartClientRequest{Count: count, LoadListenerPort: loadListenerPort}
	if err := s.send(protocol.EncodeStartClientRequest(id, req)); err != nil {
		s.noteIOError()
		return protocol.StartClientResponse{Code: protocol.CodeLocalError}, fmt.Errorf("session: send start-client-request: %w", err)
	}

	env, ok := s.queue.await(ctx, id, protocol.TypeStartClientResponse, s.timeout.ResponseWait)
	if !ok {
		return protocol.StartClientResponse{Code: protocol.CodeNoResponse}, nil
	}
	return protocol.DecodeStartClientResponse(env.Body)
}

// StopClients sends a stop-client-request and waits for the matching
// response (spec §4.7 stop_clients). count <= 0 means "all".
func (s *Session) StopClients(ctx context.Context, count int) (protocol.StopClientResponse, error) {
	id := s.nextID()
	req := protocol.StopClientRequest{Count: count}
	if err := s.send(protocol.EncodeStopClientRequest(id, req)); err != nil {
		s.noteIOError()
		return protocol.StopClientResponse{Code: protocol.CodeLocalError}, fmt.Errorf("session: send stop-client-request: %w", err)
	}

	env, ok := s.queue.await(ctx, id, protocol.TypeStopClientResponse, s.timeout.ResponseWait)
	if !ok {
		return protocol.StopClientResponse{Code: protocol.CodeNoResponse}, nil
	}
	return protocol.DecodeStopClientResponse(env.Body)
}
