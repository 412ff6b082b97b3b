package transport_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/rtbrick/bngblaster-core/api"
	"github.com/rtbrick/bngblaster-core/internal/transport"
)

func TestMemPairRoundTrip(t *testing.T) {
	a, b := transport.NewMemPair(8)
	if err := a.Send([][]byte{{1, 2, 3}, {4, 5}}); err != nil {
		t.Fatal(err)
	}
	got, err := b.Recv()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || !bytes.Equal(got[0], []byte{1, 2, 3}) || !bytes.Equal(got[1], []byte{4, 5}) {
		t.Fatalf("recv = %v", got)
	}
	// Nothing for a until b sends.
	if got, _ := a.Recv(); len(got) != 0 {
		t.Fatalf("unexpected frames on a: %v", got)
	}
	if err := b.Send([][]byte{{9}}); err != nil {
		t.Fatal(err)
	}
	got, err = a.Recv()
	if err != nil || len(got) != 1 || got[0][0] != 9 {
		t.Fatalf("reverse direction: %v %v", got, err)
	}
}

func TestMemPairCopiesOnSend(t *testing.T) {
	a, b := transport.NewMemPair(8)
	frame := []byte{1, 2, 3}
	if err := a.Send([][]byte{frame}); err != nil {
		t.Fatal(err)
	}
	frame[0] = 0xFF // caller reuses its slot immediately
	got, _ := b.Recv()
	if got[0][0] != 1 {
		t.Fatal("send did not copy the frame")
	}
}

func TestMemPairBackpressure(t *testing.T) {
	a, _ := transport.NewMemPair(2)
	if err := a.Send([][]byte{{1}, {2}}); err != nil {
		t.Fatal(err)
	}
	if err := a.Send([][]byte{{3}}); !errors.Is(err, api.ErrResourceExhausted) {
		t.Fatalf("err = %v, want resource exhausted", err)
	}
}

func TestMemLoopback(t *testing.T) {
	lo := transport.NewMemLoopback(4)
	if err := lo.Send([][]byte{{7}}); err != nil {
		t.Fatal(err)
	}
	got, err := lo.Recv()
	if err != nil || len(got) != 1 || got[0][0] != 7 {
		t.Fatalf("loopback: %v %v", got, err)
	}
}

func TestMemClosed(t *testing.T) {
	a, b := transport.NewMemPair(4)
	if err := a.Close(); err != nil {
		t.Fatal(err)
	}
	if err := a.Send([][]byte{{1}}); !errors.Is(err, api.ErrTransportClosed) {
		t.Fatalf("send after close: %v", err)
	}
	if _, err := b.Recv(); err != nil {
		t.Fatalf("peer recv should still work: %v", err)
	}
}
