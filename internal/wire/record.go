package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"time"
)

// maxRecordLen bounds the length prefix of an incoming record. A
// length this large could only come from a corrupt stream or a peer
// trying to force a large allocation; either way the connection is
// not worth keeping.
const maxRecordLen = 256 << 20

// ErrTimeout is returned by ReadRecord when no complete record arrived
// within the soft deadline. It is not a connection error: the caller
// (the session receive loop, spec §4.3) is expected to send a
// keepalive and call ReadRecord again on the same connection.
var ErrTimeout = errors.New("wire: read timed out")

// ReadRecord reads one length-prefixed record from conn, decodes its
// body, and returns the resulting Value. Every read uses a fresh
// deadline of timeout so that an idle connection surfaces ErrTimeout
// rather than blocking the caller forever — the rolling-deadline
// pattern this module's listeners all use to interleave keepalive
// scheduling with blocking reads.
func ReadRecord(conn net.Conn, timeout time.Duration) (Value, error) {
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		if errors.Is(err, io.ErrClosedPipe) {
			return Value{}, io.EOF
		}
		return Value{}, fmt.Errorf("wire: set read deadline: %w", err)
	}

	var lenBuf [4]byte
	if _, err := io.ReadFull(conn, lenBuf[:]); err != nil {
		return Value{}, classifyReadErr(err)
	}

	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > maxRecordLen {
		return Value{}, fmt.Errorf("wire: record length %d exceeds limit", n)
	}

	// A peer that has committed to sending a record length gets a
	// fresh window to finish sending the body; the idle-connection
	// deadline only guards the wait for the *next* record.
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return Value{}, fmt.Errorf("wire: set read deadline: %w", err)
	}

	body := make([]byte, n)
	if _, err := io.ReadFull(conn, body); err != nil {
		return Value{}, classifyReadErr(err)
	}

	v, err := Decode(body)
	if err != nil {
		return Value{}, fmt.Errorf("wire: decode record: %w", err)
	}
	return v, nil
}

func classifyReadErr(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return io.EOF
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout
	}
	return err
}

// WriteRecord encodes v and writes it to conn as one length-prefixed
// record, under the given write deadline.
func WriteRecord(conn net.Conn, v Value, timeout time.Duration) error {
	if err := conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return fmt.Errorf("wire: set write deadline: %w", err)
	}

	body := Encode(v)
	if len(body) > maxRecordLen {
		return fmt.Errorf("wire: record length %d exceeds limit", len(body))
	}

	frame := make([]byte, 4+len(body))
	binary.BigEndian.PutUint32(frame[:4], uint32(len(body)))
	copy(frame[4:], body)

	if _, err := conn.Write(frame); err != nil {
		return fmt.Errorf("wire: write record: %w", err)
	}
	return nil
}
