package config

import (
	"testing"
	"time"

	"github.com/ariash/ariash-engine/internal/hexstream"
)

func TestDefaultMatchesSpecCapacities(t *testing.T) {
	d := Default()
	if d.TextCapacity != hexstream.DefaultTextCapacity {
		t.Errorf("TextCapacity = %d, want %d", d.TextCapacity, hexstream.DefaultTextCapacity)
	}
	if d.TelemetryCapacity != hexstream.DefaultTelemetryCapacity {
		t.Errorf("TelemetryCapacity = %d, want %d", d.TelemetryCapacity, hexstream.DefaultTelemetryCapacity)
	}
	if d.PollInterval != 100*time.Millisecond {
		t.Errorf("PollInterval = %v, want 100ms", d.PollInterval)
	}
}

func TestFromLookupOverridesDefaults(t *testing.T) {
	env := map[string]string{
		EnvTextCapacity:      "2048",
		EnvTelemetryCapacity: "1024",
		EnvPollInterval:      "50",
		EnvLogLevel:          "debug",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	e := fromLookup(lookup)
	if e.TextCapacity != 2048 {
		t.Errorf("TextCapacity = %d, want 2048", e.TextCapacity)
	}
	if e.TelemetryCapacity != 1024 {
		t.Errorf("TelemetryCapacity = %d, want 1024", e.TelemetryCapacity)
	}
	if e.PollInterval != 50*time.Millisecond {
		t.Errorf("PollInterval = %v, want 50ms", e.PollInterval)
	}
	if e.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", e.LogLevel)
	}
}

func TestFromLookupIgnoresMalformedValues(t *testing.T) {
	env := map[string]string{
		EnvTextCapacity: "not-a-number",
		EnvPollInterval: "-5",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	e := fromLookup(lookup)
	def := Default()
	if e.TextCapacity != def.TextCapacity {
		t.Errorf("TextCapacity should fall back to default on malformed input, got %d", e.TextCapacity)
	}
	if e.PollInterval != def.PollInterval {
		t.Errorf("PollInterval should fall back to default on negative input, got %v", e.PollInterval)
	}
}

func TestFromLookupNoOverridesReturnsDefault(t *testing.T) {
	lookup := func(string) (string, bool) { return "", false }
	if got, want := fromLookup(lookup), Default(); got != want {
		t.Errorf("fromLookup with no env set = %+v, want %+v", got, want)
	}
}
