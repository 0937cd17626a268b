package ringbuf

import (
	"bytes"
	"math/rand"
	"testing"
)

func TestNewClampsMinimumCapacity(t *testing.T) {
	b := New(0)
	if b.Capacity() != 2 {
		t.Errorf("expected capacity clamped to 2, got %d", b.Capacity())
	}
}

func TestEmptyBufferInvariants(t *testing.T) {
	b := New(16)

	if !b.Empty() {
		t.Error("new buffer should be empty")
	}
	if b.Full() {
		t.Error("new buffer should not be full")
	}
	if got := b.Available() + b.FreeSpace() + 1; got != b.Capacity() {
		t.Errorf("available + free_space + 1 = %d, want %d", got, b.Capacity())
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	b := New(32)
	msg := []byte("Hello stdin!\n")

	n := b.Write(msg)
	if n != len(msg) {
		t.Fatalf("expected to write %d bytes, wrote %d", len(msg), n)
	}

	out := make([]byte, len(msg))
	n = b.Read(out)
	if n != len(msg) {
		t.Fatalf("expected to read %d bytes, read %d", len(msg), n)
	}
	if !bytes.Equal(out, msg) {
		t.Errorf("round trip mismatch: got %q, want %q", out, msg)
	}
	if !b.Empty() {
		t.Error("buffer should be empty after draining the write")
	}
}

func TestWriteExactlyFreeSpaceThenOneMore(t *testing.T) {
	b := New(8) // 7 usable bytes

	free := b.FreeSpace()
	if free != 7 {
		t.Fatalf("expected free space 7, got %d", free)
	}

	payload := bytes.Repeat([]byte{'x'}, free)
	if n := b.Write(payload); n != free {
		t.Fatalf("expected to fill exactly %d bytes, wrote %d", free, n)
	}
	if !b.Full() {
		t.Error("buffer should report full after writing exactly free_space bytes")
	}

	if n := b.Write([]byte{'y'}); n != 0 {
		t.Errorf("expected short write of 0 once full, got %d", n)
	}
}

func TestWrapAroundPreservesBytes(t *testing.T) {
	b := New(8)

	// Push the read/write pointers near the capacity boundary first.
	scratch := make([]byte, 8)
	b.Write([]byte("abcde"))
	b.Read(scratch[:5])

	payload := []byte("0123456")
	n := b.Write(payload)
	if n != len(payload) {
		t.Fatalf("expected to write %d bytes across the wrap, wrote %d", len(payload), n)
	}

	out := make([]byte, len(payload))
	n = b.Read(out)
	if n != len(payload) || !bytes.Equal(out, payload) {
		t.Errorf("wrap-around read mismatch: got %q, want %q", out[:n], payload)
	}
}

func TestPeekDoesNotAdvance(t *testing.T) {
	b := New(16)
	b.Write([]byte("peekme"))

	out := make([]byte, 6)
	n := b.Peek(out)
	if n != 6 || string(out) != "peekme" {
		t.Fatalf("unexpected peek result: %q (n=%d)", out, n)
	}
	if b.Available() != 6 {
		t.Errorf("peek must not advance read position, available = %d", b.Available())
	}

	n = b.Read(out)
	if n != 6 || string(out) != "peekme" {
		t.Fatalf("read after peek mismatch: %q (n=%d)", out, n)
	}
}

func TestClearResetsToEmpty(t *testing.T) {
	b := New(16)
	b.Write([]byte("data"))
	b.Clear()

	if !b.Empty() {
		t.Error("expected buffer to be empty after Clear")
	}
	if b.Available() != 0 {
		t.Errorf("expected 0 available after Clear, got %d", b.Available())
	}
}

func TestInvariantHoldsAfterRandomizedOps(t *testing.T) {
	b := New(64)
	rng := rand.New(rand.NewSource(1))
	scratch := make([]byte, 32)

	for i := 0; i < 1000; i++ {
		if rng.Intn(2) == 0 {
			chunk := make([]byte, rng.Intn(20))
			b.Write(chunk)
		} else {
			b.Read(scratch[:rng.Intn(20)])
		}

		if got := b.Available() + b.FreeSpace() + 1; got != b.Capacity() {
			t.Fatalf("invariant violated at step %d: available+free_space+1 = %d, want %d", i, got, b.Capacity())
		}
	}
}
