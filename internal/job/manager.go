package job

import (
	"context"
	"fmt"
	"sync"
	"syscall"
	"time"

	"github.com/ariash/ariash-engine/internal/ariashlog"
	"github.com/ariash/ariash-engine/internal/config"
)

// StatusCallback is invoked synchronously, from the goroutine performing
// the transition, whenever a job changes state.
type StatusCallback func(jobID int, oldState, newState State)

// JobInfo is the read-only summary returned by ListJobs, sized for the
// shell's `jobs` builtin.
type JobInfo struct {
	JobID   int
	State   State
	Command string
}

// jobEvent tags a raw wait result with the job it belongs to, so
// multiple concurrent exit watches can fan into one event stream.
type jobEvent struct {
	jobID  int
	result WaitResult
}

// Manager is the Job Manager: registry, event loop, signal mediation,
// and terminal-control handoff. One Manager exists per shell session.
type Manager struct {
	log *ariashlog.Logger

	mu     sync.Mutex
	jobs   map[int]*JCB
	nextID int

	callbacksMu sync.Mutex
	callbacks   []StatusCallback

	term *Terminal
	eng  config.Engine

	events chan jobEvent

	shutdownMu sync.Mutex
	shutdown   bool
}

// NewManager creates a Job Manager. term may report HasTerminal() false
// for non-interactive sessions; the Manager degrades terminal operations
// to no-ops in that case rather than failing.
func NewManager(log *ariashlog.Logger, term *Terminal) *Manager {
	return NewManagerWithConfig(log, term, config.Default())
}

// NewManagerWithConfig is NewManager with explicit engine tunables
// (ring buffer capacities, drainer poll interval) applied to every job
// this Manager spawns.
func NewManagerWithConfig(log *ariashlog.Logger, term *Terminal, eng config.Engine) *Manager {
	if log == nil {
		log = ariashlog.Discard
	}
	return &Manager{
		log:    log,
		jobs:   make(map[int]*JCB),
		term:   term,
		eng:    eng,
		events: make(chan jobEvent, 64),
	}
}

// OnStatusChange registers a callback fired on every state transition
// across every job this Manager owns.
func (m *Manager) OnStatusChange(cb StatusCallback) {
	m.callbacksMu.Lock()
	defer m.callbacksMu.Unlock()
	m.callbacks = append(m.callbacks, cb)
}

func (m *Manager) fireCallbacks(jobID int, oldState, newState State) {
	m.callbacksMu.Lock()
	cbs := make([]StatusCallback, len(m.callbacks))
	copy(cbs, m.callbacks)
	m.callbacksMu.Unlock()

	for _, cb := range cbs {
		cb(jobID, oldState, newState)
	}
}

// Spawn launches cfg in the foreground. Returns the new job id, or 0 on
// spawn failure with no registry mutation, per the spec's exit-code
// conventions.
func (m *Manager) Spawn(cfg SpawnConfig) (int, error) {
	cfg.Foreground = true
	return m.spawnWithEvent(cfg, EventSpawn)
}

// SpawnBackground launches cfg in the background.
func (m *Manager) SpawnBackground(cfg SpawnConfig) (int, error) {
	cfg.Foreground = false
	return m.spawnWithEvent(cfg, EventSpawnBG)
}

func (m *Manager) spawnWithEvent(cfg SpawnConfig, event Event) (int, error) {
	m.shutdownMu.Lock()
	if m.shutdown {
		m.shutdownMu.Unlock()
		return 0, ErrManagerShutdown
	}
	m.shutdownMu.Unlock()

	res, err := spawn(cfg, m.term, m.log, m.eng)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	id := m.nextID + 1
	m.nextID = id
	jcb := newJCB(id, joinArgv(cfg.Argv), res.ctrl)
	jcb.Pgid = res.pgid
	jcb.Processes = []ProcessHandle{{Pid: res.cmd.Process.Pid, watch: res.watch}}
	if _, err := jcb.apply(event); err != nil {
		m.mu.Unlock()
		_ = res.ctrl.Close()
		return 0, err
	}
	m.jobs[id] = jcb
	m.mu.Unlock()

	m.log.With("job_id", id).With("trace_id", jcb.TraceID).Info("spawned %q pid=%d", jcb.Command, jcb.PrimaryPid())
	m.fireCallbacks(id, StateNone, jcb.State())

	go m.forwardExits(id, res.watch)

	return id, nil
}

func joinArgv(argv []string) string {
	s := ""
	for i, a := range argv {
		if i > 0 {
			s += " "
		}
		s += a
	}
	return s
}

func (m *Manager) forwardExits(jobID int, watch *ExitWatch) {
	for result := range watch.Result() {
		m.events <- jobEvent{jobID: jobID, result: result}
	}
}

// ProcessEvents demultiplexes at most one ready exit-notification event,
// applying CHILD_EXIT or CHILD_STOP to the corresponding job's state
// machine and firing status callbacks. Blocks up to timeout; returns
// false if nothing was ready within it. A timeout of zero or less
// blocks indefinitely until an event arrives.
func (m *Manager) ProcessEvents(timeout time.Duration) bool {
	var timer <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}

	select {
	case ev := <-m.events:
		m.handleEvent(ev)
		return true
	case <-timer:
		return false
	}
}

// RunEventLoop calls ProcessEvents in a loop with a fixed poll interval
// until ctx is cancelled. Intended for the shell's main loop to run in
// its own goroutine.
func (m *Manager) RunEventLoop(ctx context.Context, pollInterval time.Duration) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		m.ProcessEvents(pollInterval)
	}
}

func (m *Manager) handleEvent(ev jobEvent) {
	m.mu.Lock()
	jcb, ok := m.jobs[ev.jobID]
	m.mu.Unlock()
	if !ok {
		return
	}

	if ev.result.Err != nil {
		m.transition(jcb, EventError)
		return
	}

	jcb.Exit.FromWaitStatus(ev.result.Status)

	switch {
	case ev.result.Status.Stopped():
		m.transition(jcb, EventChildStop)
	case ev.result.Status.Exited(), ev.result.Status.Signaled():
		m.transition(jcb, EventChildExit)
	}
}

// transition applies event to jcb, performs the terminal-handoff and
// cleanup side effects a valid transition implies, and fires callbacks.
// Invalid transitions are logged and otherwise ignored: process_events
// routinely observes an OS event for a job the manager already
// considered terminated (e.g. a stray CHILD_STOP after CTRL_C raced the
// signal), and that must not be treated as an error.
func (m *Manager) transition(jcb *JCB, event Event) {
	oldState := jcb.State()
	newState, err := jcb.apply(event)
	if err != nil {
		m.log.Debug("job %d: %s ignored in state %s", jcb.JobID, event, oldState)
		return
	}
	if newState == oldState && newState != StateBackground {
		return
	}

	m.applyTerminalHandoff(jcb, oldState, newState)

	m.fireCallbacks(jcb.JobID, oldState, newState)

	if newState == StateTerminated {
		jcb.Controller.FlushBuffers()
		_ = jcb.Controller.Close()
		m.reap(jcb.JobID)
	}
}

func (m *Manager) applyTerminalHandoff(jcb *JCB, oldState, newState State) {
	if m.term == nil || !m.term.HasTerminal() {
		return
	}

	if newState == StateForeground {
		if err := m.term.SetForegroundGroup(jcb.Pgid); err != nil {
			m.log.Warn("job %d: set foreground group: %v", jcb.JobID, err)
		}
		if modes := jcb.TerminalModes(); modes.Valid() {
			_ = m.term.RestoreModes(modes)
		}
		return
	}

	if oldState == StateForeground && newState != StateForeground {
		if modes, err := m.term.SaveModes(); err == nil {
			jcb.SetTerminalModes(modes)
		}
		if err := m.term.ReclaimForeground(); err != nil {
			m.log.Warn("job %d: reclaim foreground: %v", jcb.JobID, err)
		}
	}
}

// reap removes a terminated job from the registry. Deletion is explicit,
// as the spec requires, but this Manager performs it itself immediately
// after the terminal-state callback fires rather than exposing a
// separate caller-invoked step; a job is never observably present in
// the registry after its TERMINATED callback has returned.
func (m *Manager) reap(jobID int) {
	m.mu.Lock()
	delete(m.jobs, jobID)
	m.mu.Unlock()
}

// GetJob returns the JCB for id, if it is still registered.
func (m *Manager) GetJob(id int) (*JCB, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	jcb, ok := m.jobs[id]
	return jcb, ok
}

// ListJobs returns id, state, and command for every non-terminated job.
func (m *Manager) ListJobs() []JobInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]JobInfo, 0, len(m.jobs))
	for _, jcb := range m.jobs {
		out = append(out, JobInfo{JobID: jcb.JobID, State: jcb.State(), Command: jcb.Command})
	}
	return out
}

// Foreground applies FG_CMD to job id. If the job was stopped, it is
// also sent SIGCONT before the call returns; the caller is expected to
// then block-wait on the job (e.g. via WaitFor) per the built-in command
// contract in the spec.
func (m *Manager) Foreground(id int) error {
	jcb, ok := m.GetJob(id)
	if !ok {
		return ErrNoSuchJob
	}
	wasStopped := jcb.State() == StateStopped

	oldState := jcb.State()
	newState, err := jcb.apply(EventFGCmd)
	if err != nil {
		return err
	}
	m.applyTerminalHandoff(jcb, oldState, newState)
	m.fireCallbacks(id, oldState, newState)

	if wasStopped {
		return m.signalGroup(jcb, syscall.SIGCONT)
	}
	return nil
}

// Background applies BG_CMD to job id, sending SIGCONT if it was stopped.
func (m *Manager) Background(id int) error {
	jcb, ok := m.GetJob(id)
	if !ok {
		return ErrNoSuchJob
	}
	wasStopped := jcb.State() == StateStopped

	oldState := jcb.State()
	newState, err := jcb.apply(EventBGCmd)
	if err != nil {
		return err
	}
	m.applyTerminalHandoff(jcb, oldState, newState)
	m.fireCallbacks(id, oldState, newState)

	if wasStopped {
		return m.signalGroup(jcb, syscall.SIGCONT)
	}
	return nil
}

// SignalJob delivers sig to the job's process group.
func (m *Manager) SignalJob(id int, sig syscall.Signal) error {
	jcb, ok := m.GetJob(id)
	if !ok {
		return ErrNoSuchJob
	}
	return m.signalGroup(jcb, sig)
}

// Terminate delivers SIGTERM (or SIGKILL if force) to the job's process
// group.
func (m *Manager) Terminate(id int, force bool) error {
	sig := syscall.SIGTERM
	if force {
		sig = syscall.SIGKILL
	}
	return m.SignalJob(id, sig)
}

func (m *Manager) signalGroup(jcb *JCB, sig syscall.Signal) error {
	if jcb.Pgid == 0 {
		return fmt.Errorf("job %d has no process group", jcb.JobID)
	}
	if err := syscall.Kill(-jcb.Pgid, sig); err != nil {
		return fmt.Errorf("signal job %d: %w", jcb.JobID, err)
	}
	return nil
}

// InterruptForeground translates a shell-observed CTRL_C keystroke into
// SIGINT delivery to the current foreground job's process group and the
// corresponding CTRL_C state event. A no-op, returning ErrNoSuchJob, if
// no job currently holds the foreground.
func (m *Manager) InterruptForeground() error {
	jcb, ok := m.currentForeground()
	if !ok {
		return ErrNoSuchJob
	}
	if err := m.signalGroup(jcb, syscall.SIGINT); err != nil {
		return err
	}
	m.transition(jcb, EventCtrlC)
	return nil
}

// SuspendForeground translates a shell-observed CTRL_Z keystroke into
// SIGTSTP delivery and the CTRL_Z state event.
func (m *Manager) SuspendForeground() error {
	jcb, ok := m.currentForeground()
	if !ok {
		return ErrNoSuchJob
	}
	if err := m.signalGroup(jcb, syscall.SIGTSTP); err != nil {
		return err
	}
	m.transition(jcb, EventCtrlZ)
	return nil
}

func (m *Manager) currentForeground() (*JCB, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, jcb := range m.jobs {
		if jcb.State() == StateForeground {
			return jcb, true
		}
	}
	return nil, false
}

// WaitFor blocks until job id leaves the registry (reaches TERMINATED
// and is reaped) or ctx is cancelled. While waiting it processes exit
// events itself, so no separate event loop needs to be running.
func (m *Manager) WaitFor(ctx context.Context, id int) error {
	for {
		if _, ok := m.GetJob(id); !ok {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		m.ProcessEvents(10 * time.Millisecond)
	}
}

// Shutdown terminates every remaining job and stops accepting new spawns.
func (m *Manager) Shutdown(timeout time.Duration) {
	m.shutdownMu.Lock()
	if m.shutdown {
		m.shutdownMu.Unlock()
		return
	}
	m.shutdown = true
	m.shutdownMu.Unlock()

	m.mu.Lock()
	ids := make([]int, 0, len(m.jobs))
	for id := range m.jobs {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		_ = m.Terminate(id, false)
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		m.mu.Lock()
		remaining := len(m.jobs)
		m.mu.Unlock()
		if remaining == 0 {
			return
		}
		m.ProcessEvents(10 * time.Millisecond)
	}

	for _, id := range ids {
		_ = m.Terminate(id, true)
	}
	deadline = time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		m.mu.Lock()
		remaining := len(m.jobs)
		m.mu.Unlock()
		if remaining == 0 {
			return
		}
		m.ProcessEvents(10 * time.Millisecond)
	}
}
