package telemetry

import "github.com/tidwall/sjson"

// Encoder builds JSON-lines telemetry records incrementally. Used by
// tests; production telemetry producers are free to
// write JSON lines however they like since the decoder in this package
// imposes no schema.
type Encoder struct {
	json string
}

// NewEncoder starts a new record.
func NewEncoder() *Encoder {
	return &Encoder{json: "{}"}
}

// Set assigns value at path (sjson path syntax, e.g. "level" or
// "fields.count"). Errors are swallowed and leave the record unchanged;
// telemetry construction is not expected to fail for well-formed paths
// and values, and this mirrors the decoder's advisory-only stance.
func (e *Encoder) Set(path string, value any) *Encoder {
	if updated, err := sjson.Set(e.json, path, value); err == nil {
		e.json = updated
	}
	return e
}

// Level sets the well-known "level" field.
func (e *Encoder) Level(level string) *Encoder {
	return e.Set("level", level)
}

// Message sets the well-known "msg" field.
func (e *Encoder) Message(msg string) *Encoder {
	return e.Set("msg", msg)
}

// Timestamp sets the well-known "ts" field.
func (e *Encoder) Timestamp(ts string) *Encoder {
	return e.Set("ts", ts)
}

// Line renders the record as a single JSON-lines record, terminated
// with a newline so it can be written directly to channel 3.
func (e *Encoder) Line() string {
	return e.json + "\n"
}

// Bytes renders Line as a byte slice.
func (e *Encoder) Bytes() []byte {
	return []byte(e.Line())
}
