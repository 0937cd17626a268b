// Package config loads engine tunables from environment variables: one
// ring buffer capacity for the stdout/stderr/stddato channels and one for
// stddbg, the drainer poll interval, and the log level. Overflow policies
// are not configurable here. There is no file format; KEY=VALUE
// environment parsing matches the ambient, flag-driven style of the
// teacher's own app options rather than pulling in a configuration
// framework with no other consumer in this core.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/ariash/ariash-engine/internal/hexstream"
)

// Env var names. All are optional; unset means "use the spec default".
const (
	EnvTextCapacity      = "ARIASH_TEXT_CAPACITY"
	EnvTelemetryCapacity = "ARIASH_TELEMETRY_CAPACITY"
	EnvPollInterval      = "ARIASH_POLL_INTERVAL_MS"
	EnvLogLevel          = "ARIASH_LOG_LEVEL"
)

// Engine holds the resolved tunables for one engine instance.
type Engine struct {
	// TextCapacity is the ring buffer capacity for text channels
	// (stdout, stderr, stddato). Defaults to hexstream.DefaultTextCapacity.
	TextCapacity int

	// TelemetryCapacity is the ring buffer capacity for stddbg.
	// Defaults to hexstream.DefaultTelemetryCapacity.
	TelemetryCapacity int

	// PollInterval bounds how long a drainer blocks in a single read
	// before checking for cancellation. Defaults to 100ms, matching the
	// spec's cancellation-latency budget; raising it directly raises
	// worst-case cancellation latency.
	PollInterval time.Duration

	// LogLevel is the name passed to ariashlog.ParseLevel ("debug",
	// "info", "warn", "error").
	LogLevel string
}

// Default returns the spec's documented defaults.
func Default() Engine {
	return Engine{
		TextCapacity:      hexstream.DefaultTextCapacity,
		TelemetryCapacity: hexstream.DefaultTelemetryCapacity,
		PollInterval:      100 * time.Millisecond,
		LogLevel:          "info",
	}
}

// FromEnviron builds an Engine by overlaying environment variables onto
// Default(). Malformed values are ignored and the default is kept,
// matching the same "never fatal, degrade gracefully" posture the core
// takes with malformed Handle Map entries.
func FromEnviron() Engine {
	return fromLookup(os.LookupEnv)
}

func fromLookup(lookup func(string) (string, bool)) Engine {
	e := Default()

	if v, ok := lookup(EnvTextCapacity); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			e.TextCapacity = n
		}
	}
	if v, ok := lookup(EnvTelemetryCapacity); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			e.TelemetryCapacity = n
		}
	}
	if v, ok := lookup(EnvPollInterval); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			e.PollInterval = time.Duration(n) * time.Millisecond
		}
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		e.LogLevel = v
	}

	return e
}
