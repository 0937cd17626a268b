// Package main is a demo entry point exercising the ariash job-control
// engine: it reads command lines from stdin, spawns each as a job, and
// reports state transitions and telemetry as they occur. It is not a
// full shell — no pipelines, no expansion — just enough surface to
// drive the engine end to end.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/ariash/ariash-engine/internal/ariashlog"
	"github.com/ariash/ariash-engine/internal/bootstrap"
	"github.com/ariash/ariash-engine/internal/config"
	"github.com/ariash/ariash-engine/internal/hexstream"
	"github.com/ariash/ariash-engine/internal/job"
	"github.com/ariash/ariash-engine/internal/telemetry"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

type options struct {
	logLevel    string
	showVersion bool
	showHelp    bool
}

func run() int {
	// Any --aria-fd-map flag is stripped before flag parsing sees argv.
	// The resolved map would describe channels 3-5 on a host that
	// delivers them via opaque tokens; nothing in this fork/exec-based
	// demo consumes it.
	_, cleanArgv := bootstrap.Resolve(os.LookupEnv, os.Args)
	os.Args = cleanArgv

	opts := parseFlags()
	if opts.showHelp {
		flag.Usage()
		return 0
	}
	if opts.showVersion {
		fmt.Printf("ariash-engine %s (%s)\n", version, commit)
		return 0
	}

	eng := config.FromEnviron()
	if opts.logLevel != "" {
		eng.LogLevel = opts.logLevel
	}

	logger := ariashlog.New(ariashlog.Config{
		Level:  ariashlog.ParseLevel(eng.LogLevel),
		Output: os.Stderr,
		Prefix: "ariash-engine",
	})

	term := job.OpenTerminal(job.StdinFd())
	if term.HasTerminal() {
		if err := term.EnterRawMode(); err != nil {
			logger.Warn("enter raw mode: %v", err)
		}
		defer term.ExitRawMode()
	}

	mgr := job.NewManagerWithConfig(logger, term, eng)
	mgr.OnStatusChange(func(jobID int, oldState, newState job.State) {
		fmt.Fprintf(os.Stderr, "[job %d] %s -> %s\n", jobID, oldState, newState)
	})

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGTERM)
	go func() {
		<-sigs
		mgr.Shutdown(2 * time.Second)
		os.Exit(130)
	}()

	shell := newShell(mgr, logger)
	return shell.runLoop()
}

func parseFlags() options {
	var opts options
	flag.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.BoolVar(&opts.showVersion, "version", false, "Show version information")
	flag.BoolVar(&opts.showHelp, "help", false, "Show help message")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "ariash-engine - job-control engine demo shell\n\n")
		fmt.Fprintf(os.Stderr, "Usage: ariash-engine [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nBuilt-ins: jobs, fg <id>, bg <id>, kill <id>, exit\n")
	}

	flag.Parse()
	return opts
}

// shell is the minimal command loop driving the Job Manager.
type shell struct {
	mgr *job.Manager
	log *ariashlog.Logger
	in  *bufio.Scanner
}

func newShell(mgr *job.Manager, log *ariashlog.Logger) *shell {
	return &shell{mgr: mgr, log: log, in: bufio.NewScanner(os.Stdin)}
}

func (s *shell) runLoop() int {
	defer s.mgr.Shutdown(2 * time.Second)

	for {
		fmt.Fprint(os.Stderr, "ariash$ ")
		if !s.in.Scan() {
			break
		}
		line := strings.TrimSpace(s.in.Text())
		if line == "" {
			continue
		}
		if s.dispatch(line) {
			break
		}
	}
	return 0
}

// dispatch handles one line of input, returning true if the shell
// should exit.
func (s *shell) dispatch(line string) bool {
	fields := strings.Fields(line)
	cmd := fields[0]
	background := strings.HasSuffix(line, "&")
	if background {
		fields[len(fields)-1] = strings.TrimSuffix(fields[len(fields)-1], "&")
		if fields[len(fields)-1] == "" {
			fields = fields[:len(fields)-1]
		}
	}

	switch cmd {
	case "exit":
		return true
	case "jobs":
		s.builtinJobs()
		return false
	case "fg":
		s.builtinFgBg(fields, s.mgr.Foreground)
		return false
	case "bg":
		s.builtinFgBg(fields, s.mgr.Background)
		return false
	case "kill":
		s.builtinKill(fields)
		return false
	}

	s.spawn(fields, background)
	return false
}

func (s *shell) builtinJobs() {
	for _, info := range s.mgr.ListJobs() {
		fmt.Fprintf(os.Stderr, "[%d] %-12s %s\n", info.JobID, info.State, info.Command)
	}
}

func (s *shell) builtinFgBg(fields []string, apply func(int) error) {
	if len(fields) < 2 {
		fmt.Fprintln(os.Stderr, "usage: fg|bg <job-id>")
		return
	}
	id, err := strconv.Atoi(strings.TrimPrefix(fields[1], "%"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid job id: %s\n", fields[1])
		return
	}
	if err := apply(id); err != nil && !errors.Is(err, job.ErrNoSuchJob) {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	} else if errors.Is(err, job.ErrNoSuchJob) {
		fmt.Fprintf(os.Stderr, "no such job: %d\n", id)
	}
}

func (s *shell) builtinKill(fields []string) {
	if len(fields) < 2 {
		fmt.Fprintln(os.Stderr, "usage: kill <job-id>")
		return
	}
	id, err := strconv.Atoi(strings.TrimPrefix(fields[1], "%"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid job id: %s\n", fields[1])
		return
	}
	if err := s.mgr.Terminate(id, false); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
}

func (s *shell) spawn(argv []string, background bool) {
	cfg := job.SpawnConfig{Argv: argv}

	var id int
	var err error
	if background {
		id, err = s.mgr.SpawnBackground(cfg)
	} else {
		id, err = s.mgr.Spawn(cfg)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "spawn failed: %v\n", err)
		return
	}

	if background {
		fmt.Fprintf(os.Stderr, "[%d] started in background\n", id)
		return
	}

	s.drainForeground(id)
}

// drainForeground blocks until the foreground job leaves the registry.
// Channels 1 and 2 already reach the terminal directly via
// Controller.SetForegroundMode passthrough; here we additionally decode
// channel 3 telemetry as it arrives.
func (s *shell) drainForeground(id int) {
	jcb, ok := s.mgr.GetJob(id)
	if !ok {
		return
	}

	var tail []byte
	jcb.Controller.OnData(func(ch hexstream.Channel, data []byte) {
		if ch != hexstream.StdDbg {
			return
		}
		buf := append(tail, data...)
		events, trailing := telemetry.ScanEvents(buf)
		tail = trailing
		for _, ev := range events {
			s.log.Debug("telemetry job=%d level=%s msg=%s", id, ev.Level(), ev.Message())
		}
	})

	for {
		if _, ok := s.mgr.GetJob(id); !ok {
			return
		}
		s.mgr.ProcessEvents(0)
	}
}
