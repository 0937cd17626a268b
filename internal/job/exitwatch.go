package job

import (
	"fmt"
	"syscall"
)

// WaitResult is one reap event for a monitored process: it stopped (job
// control suspend, deliverable multiple times across a job's lifetime),
// it was continued after a stop (also repeatable), or it left the
// run/stop states permanently (exited or was killed by a signal,
// delivered exactly once, terminating the watch).
type WaitResult struct {
	Status syscall.WaitStatus
	Err    error
}

// Final reports whether this result ends the watch: no further results
// will ever arrive on the same ExitWatch after one with Final() true.
func (r WaitResult) Final() bool {
	if r.Err != nil {
		return true
	}
	return r.Status.Exited() || r.Status.Signaled()
}

// ExitWatch delivers a stream of WaitResult values for a single pid from
// a dedicated goroutine, race-free with respect to pid reuse: the
// watcher owns the only wait4 call for this pid (os/exec never issues
// its own for jobs the shell spawns directly), so no other code can reap
// it out from under the watch and no later process can be confused for
// this one.
//
// A watch reports every stop (job may be stopped and continued any
// number of times) and terminates after the first exit or signaled
// result.
type ExitWatch struct {
	pid    int
	result chan WaitResult
}

// newExitWatch starts watching pid. The channel is closed after the
// final result is sent.
func newExitWatch(pid int) *ExitWatch {
	w := &ExitWatch{
		pid:    pid,
		result: make(chan WaitResult),
	}
	go w.run()
	return w
}

func (w *ExitWatch) run() {
	defer close(w.result)
	for {
		var status syscall.WaitStatus
		var rusage syscall.Rusage
		_, err := syscall.Wait4(w.pid, &status, syscall.WUNTRACED|syscall.WCONTINUED, &rusage)
		if err != nil {
			if err == syscall.EINTR {
				continue
			}
			w.result <- WaitResult{Err: fmt.Errorf("wait4 pid %d: %w", w.pid, err)}
			return
		}

		res := WaitResult{Status: status}
		w.result <- res
		if res.Final() {
			return
		}
	}
}

// Result returns the channel this watch's results arrive on.
func (w *ExitWatch) Result() <-chan WaitResult {
	return w.result
}

// Pid returns the process id this watcher observes.
func (w *ExitWatch) Pid() int {
	return w.pid
}
