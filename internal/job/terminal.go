package job

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// TerminalModes is an opaque snapshot of a tty's line discipline,
// captured by SaveTerminalModes and later handed back to
// RestoreTerminalModes. The zero value is not valid; check Valid.
type TerminalModes struct {
	state *term.State
	valid bool
}

// Valid reports whether the snapshot holds a real captured state.
func (m TerminalModes) Valid() bool {
	return m.valid
}

// Terminal wraps the shell's controlling terminal, if it has one. A
// Manager without a controlling terminal still constructs a Terminal
// whose HasTerminal is false; every method on such a Terminal is a
// documented no-op, matching the spec's "non-interactive mode" carve-out.
type Terminal struct {
	fd         int
	hasTTY     bool
	shellPgid  int
	shellModes TerminalModes
	rawActive  bool
}

// OpenTerminal probes fd (conventionally os.Stdin's descriptor) for
// whether it is a controlling terminal and, if so, records the shell's
// own process group and terminal modes for later restoration.
func OpenTerminal(fd int) *Terminal {
	t := &Terminal{fd: fd}

	if !term.IsTerminal(fd) {
		return t
	}

	pgid, err := unix.IoctlGetInt(fd, unix.TIOCGPGRP)
	if err != nil {
		return t
	}

	t.hasTTY = true
	t.shellPgid = pgid
	if state, err := term.GetState(fd); err == nil {
		t.shellModes = TerminalModes{state: state, valid: true}
	}
	return t
}

// HasTerminal reports whether this Terminal has a live controlling tty.
func (t *Terminal) HasTerminal() bool {
	return t.hasTTY
}

// SetForegroundGroup makes pgid the terminal's foreground process group.
// A no-op returning ErrNoControllingTerminal in non-interactive mode.
func (t *Terminal) SetForegroundGroup(pgid int) error {
	if !t.hasTTY {
		return ErrNoControllingTerminal
	}
	return unix.IoctlSetPointerInt(t.fd, unix.TIOCSPGRP, pgid)
}

// ForegroundGroup returns the terminal's current foreground process
// group. Returns 0, ErrNoControllingTerminal in non-interactive mode.
func (t *Terminal) ForegroundGroup() (int, error) {
	if !t.hasTTY {
		return 0, ErrNoControllingTerminal
	}
	return unix.IoctlGetInt(t.fd, unix.TIOCGPGRP)
}

// ReclaimForeground restores the shell's own process group as the
// terminal's foreground group. Called when a foreground job leaves that
// state (stops, backgrounds, or terminates).
func (t *Terminal) ReclaimForeground() error {
	return t.SetForegroundGroup(t.shellPgid)
}

// SaveModes captures the terminal's current line discipline.
func (t *Terminal) SaveModes() (TerminalModes, error) {
	if !t.hasTTY {
		return TerminalModes{}, ErrNoControllingTerminal
	}
	state, err := term.GetState(t.fd)
	if err != nil {
		return TerminalModes{}, fmt.Errorf("get terminal state: %w", err)
	}
	return TerminalModes{state: state, valid: true}, nil
}

// RestoreModes reapplies a previously captured snapshot. A no-op if the
// snapshot is invalid or there is no controlling terminal.
func (t *Terminal) RestoreModes(m TerminalModes) error {
	if !t.hasTTY || !m.valid {
		return nil
	}
	return term.Restore(t.fd, m.state)
}

// EnterRawMode clears canonical mode, echo, signal generation on
// special characters, XON/XOFF flow control, and CR-to-LF translation
// on input, matching the spec's job-manager raw mode contract. It is a
// no-op in non-interactive mode.
func (t *Terminal) EnterRawMode() error {
	if !t.hasTTY {
		return ErrNoControllingTerminal
	}
	if t.rawActive {
		return nil
	}
	if _, err := term.MakeRaw(t.fd); err != nil {
		return fmt.Errorf("enter raw mode: %w", err)
	}
	t.rawActive = true
	return nil
}

// ExitRawMode restores the shell's own saved modes, undoing EnterRawMode.
func (t *Terminal) ExitRawMode() error {
	if !t.hasTTY || !t.rawActive {
		return nil
	}
	t.rawActive = false
	return t.RestoreModes(t.shellModes)
}

// RawModeActive reports whether the shell currently holds the terminal
// in raw mode.
func (t *Terminal) RawModeActive() bool {
	return t.rawActive
}

// ShellPgid returns the shell's own process group, captured at open time.
func (t *Terminal) ShellPgid() int {
	return t.shellPgid
}

// Fd returns the terminal's file descriptor.
func (t *Terminal) Fd() int {
	return t.fd
}

// StdinFd is the conventional descriptor a shell probes for a
// controlling terminal.
func StdinFd() int {
	return int(os.Stdin.Fd())
}
