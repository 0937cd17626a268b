package job

import (
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/ariash/ariash-engine/internal/hexstream"
)

// ProcessHandle is one member of a job's process group. A job with a
// single command has one handle; a job built from a pipeline (not
// exercised by the shell layer built here, but supported by the JCB
// shape) would carry one handle per pipeline stage.
type ProcessHandle struct {
	Pid   int
	watch *ExitWatch
}

// ExitDisposition records how a job's process ultimately (or most
// recently, for a stop) left the running state.
type ExitDisposition struct {
	ExitedNormally bool
	Signaled       bool
	Stopped        bool
	Code           int
	Signal         syscall.Signal
}

// FromWaitStatus fills in an ExitDisposition from a raw wait status,
// following the spec's exit-code conventions: normal exit propagates the
// child's status; a signaled process reports 128+signal.
func (d *ExitDisposition) FromWaitStatus(status syscall.WaitStatus) {
	switch {
	case status.Exited():
		d.ExitedNormally = true
		d.Signaled = false
		d.Stopped = false
		d.Code = status.ExitStatus()
	case status.Signaled():
		d.ExitedNormally = false
		d.Signaled = true
		d.Stopped = false
		d.Signal = status.Signal()
		d.Code = 128 + int(status.Signal())
	case status.Stopped():
		d.Stopped = true
		d.Signal = status.StopSignal()
	}
}

// JCB is a Job Control Block: everything the Manager tracks about one
// spawned job. Non-copyable in spirit — always handled through a
// pointer — and owns its Stream Controller and process handles for its
// entire lifetime. Removing a JCB from the Manager's registry is the
// only path that destroys it; destruction closes handles and stops
// drainers via Controller.Close.
type JCB struct {
	JobID int
	// TraceID is a process-unique correlation id for this job's log
	// lines and telemetry, independent of the monotonic JobID (which is
	// reused-safe only within a single shell session, not across
	// sessions or logs aggregated from many shells).
	TraceID string
	Command string

	Pgid int

	Processes []ProcessHandle

	state    atomic.Int32
	notified atomic.Bool

	terminalModes TerminalModes

	Exit ExitDisposition

	Controller *hexstream.Controller

	Started time.Time
	Ended   time.Time
}

// newJCB constructs a JCB in state NONE. The Manager transitions it to
// FOREGROUND or BACKGROUND immediately as part of spawning; a JCB never
// sits observably in NONE once inserted into the registry.
func newJCB(id int, command string, ctrl *hexstream.Controller) *JCB {
	j := &JCB{
		JobID:      id,
		TraceID:    uuid.New().String(),
		Command:    command,
		Controller: ctrl,
		Started:    time.Now(),
	}
	j.state.Store(int32(StateNone))
	return j
}

// State returns the JCB's current state.
func (j *JCB) State() State {
	return State(j.state.Load())
}

// apply performs a state-machine transition on this JCB, storing the
// result atomically only when it is valid. Returns ErrInvalidTransition
// on failure, leaving state untouched.
func (j *JCB) apply(event Event) (State, error) {
	current := j.State()
	next, ok := Transition(current, event)
	if !ok {
		return current, ErrInvalidTransition
	}
	j.state.Store(int32(next))
	if next == StateTerminated {
		j.Ended = time.Now()
	}
	return next, nil
}

// SetTerminalModes stores a captured snapshot of the tty's modes for
// this job, taken when the job last held the foreground.
func (j *JCB) SetTerminalModes(m TerminalModes) {
	j.terminalModes = m
}

// TerminalModes returns the job's saved terminal-mode snapshot, if any.
func (j *JCB) TerminalModes() TerminalModes {
	return j.terminalModes
}

// PrimaryPid returns the pid of the job's first (or only) process, or 0
// if the job has none.
func (j *JCB) PrimaryPid() int {
	if len(j.Processes) == 0 {
		return 0
	}
	return j.Processes[0].Pid
}
