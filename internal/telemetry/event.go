// Package telemetry decodes the structured JSON-lines telemetry a job
// may push through hex-stream channel 3 (stddbg) and offers an encoder
// for producing the same shape, used by tests to synthesize telemetry
// without hand-building JSON strings. Telemetry
// producers are free-form: this package never enforces a schema, only
// well-known field names it happens to expose accessors for.
package telemetry

import (
	"bufio"
	"bytes"
	"strings"

	"github.com/tidwall/gjson"
)

// Event is one parsed telemetry line.
type Event struct {
	raw string
}

// ParseEvent parses a single JSON-lines record. It never returns an
// error: a malformed line simply yields an Event whose Field lookups
// all come back empty, matching the spec's stance that telemetry is
// advisory and never fatal to drain correctness.
func ParseEvent(line string) Event {
	return Event{raw: strings.TrimRight(line, "\r\n")}
}

// Raw returns the original line text.
func (e Event) Raw() string {
	return e.raw
}

// Valid reports whether the line parses as a JSON object.
func (e Event) Valid() bool {
	return gjson.Valid(e.raw) && gjson.Parse(e.raw).IsObject()
}

// Field looks up an arbitrary field by gjson path syntax, so downstream
// consumers are never limited to the well-known accessors below.
func (e Event) Field(path string) gjson.Result {
	return gjson.Get(e.raw, path)
}

// Level returns the "level" field, or "" if absent.
func (e Event) Level() string {
	return gjson.Get(e.raw, "level").String()
}

// Message returns the "msg" field, or "" if absent.
func (e Event) Message() string {
	return gjson.Get(e.raw, "msg").String()
}

// Timestamp returns the "ts" field's raw string representation, or ""
// if absent. Producers are free to use whatever timestamp encoding they
// like; this package does not parse it into a time.Time.
func (e Event) Timestamp() string {
	return gjson.Get(e.raw, "ts").String()
}

// ScanEvents splits a chunk of channel-3 bytes into complete lines and
// parses each into an Event. A trailing partial line (no terminating
// newline yet) is returned separately so a caller accumulating bytes
// across multiple OnData callbacks can prepend it to the next chunk.
func ScanEvents(data []byte) (events []Event, trailing []byte) {
	if len(data) == 0 {
		return nil, nil
	}

	lastNL := bytes.LastIndexByte(data, '\n')
	if lastNL < 0 {
		return nil, data
	}

	complete := data[:lastNL+1]
	trailing = data[lastNL+1:]
	if len(trailing) == 0 {
		trailing = nil
	}

	scanner := bufio.NewScanner(bytes.NewReader(complete))
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		events = append(events, ParseEvent(line))
	}

	return events, trailing
}
