// Package job implements the job-control core: a table-driven state
// machine for foreground/background/stopped/terminated transitions, the
// Job Control Block that pairs a spawned process group with its
// hex-stream Controller, and the Job Manager that spawns jobs, mediates
// terminal-control handoff, and demultiplexes exit notifications into
// state transitions.
package job
