package job

import (
	"os/exec"
	"testing"
	"time"
)

func TestExitWatchReportsExit(t *testing.T) {
	cmd := exec.Command("true")
	if err := cmd.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	watch := newExitWatch(cmd.Process.Pid)

	select {
	case res := <-watch.Result():
		if res.Err != nil {
			t.Fatalf("unexpected error: %v", res.Err)
		}
		if !res.Status.Exited() {
			t.Errorf("expected Exited status, got %+v", res.Status)
		}
		if !res.Final() {
			t.Error("exit result should be Final")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not report exit within 2s")
	}

	if _, ok := <-watch.Result(); ok {
		t.Error("channel should be closed after final result")
	}
}

func TestExitWatchPid(t *testing.T) {
	watch := &ExitWatch{pid: 4242}
	if watch.Pid() != 4242 {
		t.Errorf("Pid() = %d, want 4242", watch.Pid())
	}
}

func TestWaitResultFinalOnError(t *testing.T) {
	r := WaitResult{Err: errTest}
	if !r.Final() {
		t.Error("a result with a non-nil Err must be Final")
	}
}

var errTest = &testError{"boom"}

type testError struct{ s string }

func (e *testError) Error() string { return e.s }
