package hexstream

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/ariash/ariash-engine/internal/ariashlog"
	"github.com/ariash/ariash-engine/internal/ringbuf"
)

func TestDrainerBlockPolicyTransfersAllBytes(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	defer r.Close()

	buf := ringbuf.New(1024)
	d := newDrainer(Stdout, r, buf, PolicyBlock, ariashlog.Discard, nil)

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	payload := []byte("the quick brown fox\n")
	if _, err := w.Write(payload); err != nil {
		t.Fatalf("write: %v", err)
	}
	w.Close()

	select {
	case <-d.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("drainer did not finish after EOF")
	}
	cancel()

	if d.BytesTransferred() != uint64(len(payload)) {
		t.Errorf("BytesTransferred = %d, want %d", d.BytesTransferred(), len(payload))
	}
	if d.Dropped() != 0 {
		t.Errorf("Dropped = %d, want 0 under block policy", d.Dropped())
	}
	out := make([]byte, len(payload))
	n := buf.Read(out)
	if string(out[:n]) != string(payload) {
		t.Errorf("buffer contents = %q, want %q", out[:n], payload)
	}
}

func TestDrainerDropPolicyDiscardsExcess(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	defer r.Close()

	// Capacity 8 means 7 usable bytes (one slot reserved).
	buf := ringbuf.New(8)
	d := newDrainer(StdDbg, r, buf, PolicyDrop, ariashlog.Discard, nil)

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)
	defer cancel()

	payload := []byte("0123456789")
	if _, err := w.Write(payload); err != nil {
		t.Fatalf("write: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for d.BytesTransferred()+d.Dropped() < uint64(len(payload)) && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	w.Close()
	<-d.Done()

	if d.Dropped() == 0 {
		t.Error("expected some bytes dropped when payload exceeds buffer capacity under drop policy")
	}
	if d.BytesTransferred()+d.Dropped() != uint64(len(payload)) {
		t.Errorf("transferred(%d)+dropped(%d) != payload length(%d)", d.BytesTransferred(), d.Dropped(), len(payload))
	}
}

func TestDrainerStopsOnCancelEvenWithoutEOF(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	defer r.Close()
	defer w.Close()

	buf := ringbuf.New(64)
	d := newDrainer(Stdout, r, buf, PolicyBlock, ariashlog.Discard, nil)

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	if !d.Active() {
		t.Fatal("drainer should be active immediately after Start")
	}

	start := time.Now()
	cancel()

	select {
	case <-d.Done():
	case <-time.After(500 * time.Millisecond):
		t.Fatal("drainer did not stop within cancellation budget")
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("cancellation took %v, want <= 500ms", elapsed)
	}
	if d.Active() {
		t.Error("drainer reports active after Done closed")
	}
}

func TestDrainerInvokesOnChunkCallback(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	defer r.Close()

	buf := ringbuf.New(256)
	var received []byte
	d := newDrainer(Stdout, r, buf, PolicyBlock, ariashlog.Discard, func(ch Channel, data []byte) {
		if ch == Stdout {
			received = append(received, data...)
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)
	defer cancel()

	msg := []byte("callback data\n")
	w.Write(msg)
	w.Close()

	<-d.Done()

	if string(received) != string(msg) {
		t.Errorf("callback received %q, want %q", received, msg)
	}
}
