package wire

import (
	"errors"
	"io"
	"net"
	"testing"
	"time"
)

func TestWriteReadRecordRoundTrip(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	want := Seq(String("client-hello"), Int(42))

	go func() {
		if err := WriteRecord(client, want, time.Second); err != nil {
			t.Errorf("WriteRecord: %v", err)
		}
	}()

	got, err := ReadRecord(server, time.Second)
	if err != nil {
		t.Fatalf("ReadRecord: %v", err)
	}
	if !valuesEqual(want, got) {
		t.Fatalf("round trip mismatch: want %+v, got %+v", want, got)
	}
}

func TestReadRecordTimeout(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	_, err := ReadRecord(server, 20*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestReadRecordEOF(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	client.Close()

	_, err := ReadRecord(server, time.Second)
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestReadRecordThenTimeoutThenRead(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	_, err := ReadRecord(server, 20*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout on idle read, got %v", err)
	}

	want := Int(7)
	go func() {
		if err := WriteRecord(client, want, time.Second); err != nil {
			t.Errorf("WriteRecord: %v", err)
		}
	}()

	got, err := ReadRecord(server, time.Second)
	if err != nil {
		t.Fatalf("ReadRecord after timeout: %v", err)
	}
	if !valuesEqual(want, got) {
		t.Fatalf("round trip mismatch after timeout: want %+v, got %+v", want, got)
	}
}
