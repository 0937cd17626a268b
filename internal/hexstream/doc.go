// Package hexstream implements the six-channel ("hex-stream") I/O
// topology a job's child process is given: a pipe set with parent/child
// endpoint discipline, a ring buffer and drainer per output channel, and
// a Controller that owns all of it for the lifetime of one job.
//
// Channels keep a fixed role:
//
//	0 stdin    text input,  child reads, parent writes
//	1 stdout   text output, child writes, parent reads, block-on-overflow
//	2 stderr   error text,  child writes, parent reads, block-on-overflow
//	3 stddbg   telemetry,   child writes, parent reads, drop-on-overflow
//	4 stddati  binary in,   child reads,  parent writes
//	5 stddato  binary out,  child writes, parent reads, block-on-overflow
//
// A Controller is created per job and lives until the job reaches its
// terminal state and every drainer has finalized.
package hexstream
