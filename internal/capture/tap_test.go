package capture_test

import (
	"bytes"
	"testing"

	"github.com/rtbrick/bngblaster-core/api"
	"github.com/rtbrick/bngblaster-core/internal/capture"
)

func TestPushFlush(t *testing.T) {
	var buf bytes.Buffer
	tap, err := capture.New(&buf, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := tap.AddInterface("eth0", 65535); err != nil {
		t.Fatal(err)
	}
	frame := make([]byte, 64)
	tap.Push(1, 0, frame, 0, api.CaptureInbound)
	if err := tap.FlushErr(); err != nil {
		t.Fatal(err)
	}
	if buf.Len() == 0 {
		t.Fatal("expected bytes written to the underlying writer")
	}
}

func TestFlushWithNothingPendingIsNoop(t *testing.T) {
	var buf bytes.Buffer
	tap, err := capture.New(&buf, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := tap.FlushErr(); err != nil {
		t.Fatalf("unexpected error on empty flush: %v", err)
	}
}

func TestMultipleInterfacesOrdering(t *testing.T) {
	var buf bytes.Buffer
	tap, err := capture.New(&buf, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := tap.AddInterface("eth0", 65535); err != nil {
		t.Fatal(err)
	}
	if err := tap.AddInterface("eth1", 65535); err != nil {
		t.Fatal(err)
	}
	tap.Push(1, 0, make([]byte, 64), 0, api.CaptureInbound)
	tap.Push(1, 0, make([]byte, 64), 1, api.CaptureOutbound)
	if err := tap.FlushErr(); err != nil {
		t.Fatal(err)
	}
}
