package hexstream

import "testing"

func TestChannelString(t *testing.T) {
	tests := []struct {
		ch   Channel
		want string
	}{
		{Stdin, "stdin"},
		{Stdout, "stdout"},
		{Stderr, "stderr"},
		{StdDbg, "stddbg"},
		{StdDatI, "stddati"},
		{StdDatO, "stddato"},
		{Channel(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.ch.String(); got != tt.want {
			t.Errorf("Channel(%d).String() = %q, want %q", tt.ch, got, tt.want)
		}
	}
}

func TestChildWrites(t *testing.T) {
	writers := map[Channel]bool{
		Stdin:   false,
		Stdout:  true,
		Stderr:  true,
		StdDbg:  true,
		StdDatI: false,
		StdDatO: true,
	}
	for ch, want := range writers {
		if got := ch.ChildWrites(); got != want {
			t.Errorf("Channel(%d).ChildWrites() = %v, want %v", ch, got, want)
		}
	}
}

func TestDefaultPolicy(t *testing.T) {
	if DefaultPolicy(StdDbg) != PolicyDrop {
		t.Error("stddbg must default to drop-on-overflow")
	}
	for _, ch := range []Channel{Stdout, Stderr, StdDatO} {
		if DefaultPolicy(ch) != PolicyBlock {
			t.Errorf("channel %s must default to block-on-overflow", ch)
		}
	}
}

func TestDefaultCapacity(t *testing.T) {
	if DefaultCapacity(StdDbg) != DefaultTelemetryCapacity {
		t.Error("stddbg must use the telemetry capacity")
	}
	if DefaultCapacity(Stdout) != DefaultTextCapacity {
		t.Error("stdout must use the text capacity")
	}
}
