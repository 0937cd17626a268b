package job

import (
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/ariash/ariash-engine/internal/ariashlog"
	"github.com/ariash/ariash-engine/internal/config"
	"github.com/ariash/ariash-engine/internal/hexstream"
)

// SpawnConfig describes a job to launch.
type SpawnConfig struct {
	// Argv is the command and its arguments; Argv[0] is resolved via
	// exec.LookPath semantics (os/exec does this for us).
	Argv []string

	// Env is the child's environment. Nil means inherit the shell's own.
	Env []string

	// Foreground requests that the new process group become the
	// terminal's foreground group once started.
	Foreground bool
}

// spawnResult carries everything the Manager needs to build a JCB after
// a successful spawn.
type spawnResult struct {
	cmd   *exec.Cmd
	ctrl  *hexstream.Controller
	pgid  int
	watch *ExitWatch
}

// spawn implements the process-spawner sequence: create pipes, fork,
// wire the child side, and — in the parent — close child-owned
// endpoints, start draining, and register a race-free exit watch. It
// does not touch the Manager's registry; the caller is responsible for
// building and inserting the JCB.
func spawn(cfg SpawnConfig, term *Terminal, log *ariashlog.Logger, eng config.Engine) (*spawnResult, error) {
	if len(cfg.Argv) == 0 {
		return nil, fmt.Errorf("%w: empty argument vector", ErrSpawnFailed)
	}

	ctrl := hexstream.NewController(log)
	ctrl.SetPollInterval(eng.PollInterval)
	ctrl.SetCapacity(hexstream.Stdout, eng.TextCapacity)
	ctrl.SetCapacity(hexstream.Stderr, eng.TextCapacity)
	ctrl.SetCapacity(hexstream.StdDatO, eng.TextCapacity)
	ctrl.SetCapacity(hexstream.StdDbg, eng.TelemetryCapacity)
	if err := ctrl.CreatePipes(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSpawnFailed, err)
	}

	cmd := exec.Command(cfg.Argv[0], cfg.Argv[1:]...)
	cmd.Env = cfg.Env
	ctrl.ConfigureCmd(cmd)

	// New process group so the shell can hand terminal control to the
	// job independently of its own pgid, and so CTRL_C/CTRL_Z can target
	// exactly this job's descendants via kill(-pgid).
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
		Pgid:    0,
	}

	// The shell holds these ignored while it owns the terminal in raw
	// mode; a background job's own attempt to touch the tty must not
	// stop the shell itself. Restored once the child has actually
	// started, matching the spec's "restores default signal
	// dispositions" step, which applies inside the child post-fork — in
	// Go the equivalent is scoping the parent's ignore window tightly
	// around Start.
	signal.Ignore(syscall.SIGTTOU, syscall.SIGTTIN, syscall.SIGTSTP)
	startErr := cmd.Start()
	signal.Reset(syscall.SIGTTOU, syscall.SIGTTIN, syscall.SIGTSTP)

	if startErr != nil {
		_ = ctrl.Close()
		return nil, fmt.Errorf("%w: %v", ErrSpawnFailed, startErr)
	}

	if err := ctrl.SetupParent(); err != nil {
		log.Warn("close child pipe ends: %v", err)
	}

	pgid := cmd.Process.Pid

	if cfg.Foreground && term != nil && term.HasTerminal() {
		if err := term.SetForegroundGroup(pgid); err != nil {
			log.Warn("set foreground group %d: %v", pgid, err)
		}
	}

	ctrl.SetForegroundMode(cfg.Foreground, os.Stdout, os.Stderr)
	ctrl.StartDraining()

	watch := newExitWatch(cmd.Process.Pid)

	return &spawnResult{
		cmd:   cmd,
		ctrl:  ctrl,
		pgid:  pgid,
		watch: watch,
	}, nil
}
