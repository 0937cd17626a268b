package hexstream

import (
	"fmt"
	"os"
	"os/exec"
	"sync"
)

// endpoint is one half of a pipe, tagged with which side owns it so
// Close can be made idempotent without double-closing a shared *os.File.
type endpoint struct {
	file *os.File
	once sync.Once
}

func (e *endpoint) close() error {
	if e == nil || e.file == nil {
		return nil
	}
	var err error
	e.once.Do(func() {
		err = e.file.Close()
	})
	return err
}

// PipeSet holds the twelve endpoints (read/write pair per channel) of a
// single job's hex-stream topology. Parent-side ownership is the write
// end of channels 0 and 4 and the read end of channels 1, 2, 3, 5;
// child-side ownership is the inverse.
type PipeSet struct {
	// parent-owned
	stdinW   *endpoint // channel 0, parent writes
	stdoutR  *endpoint // channel 1, parent reads
	stderrR  *endpoint // channel 2, parent reads
	stddbgR  *endpoint // channel 3, parent reads
	stddatiW *endpoint // channel 4, parent writes
	stddatoR *endpoint // channel 5, parent reads

	// child-owned; handed to exec.Cmd and closed in the parent after Start
	stdinR   *endpoint
	stdoutW  *endpoint
	stderrW  *endpoint
	stddbgW  *endpoint
	stddatiR *endpoint
	stddatoW *endpoint
}

// CreatePipes opens all six channels. On Unix, os.Pipe creates its file
// descriptors close-on-exec by default, so any endpoint not explicitly
// handed to a child process is invisible across exec; the endpoints that
// do cross exec lose close-on-exec only because os/exec dup2s them onto
// the target descriptor during fork.
func CreatePipes() (*PipeSet, error) {
	var ps PipeSet

	pairs := []struct {
		r, w **endpoint
	}{
		{&ps.stdinR, &ps.stdinW},
		{&ps.stdoutR, &ps.stdoutW},
		{&ps.stderrR, &ps.stderrW},
		{&ps.stddbgR, &ps.stddbgW},
		{&ps.stddatiR, &ps.stddatiW},
		{&ps.stddatoR, &ps.stddatoW},
	}

	var opened []*endpoint
	cleanup := func() {
		for _, e := range opened {
			_ = e.close()
		}
	}

	for _, p := range pairs {
		r, w, err := os.Pipe()
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("%w: %v", ErrPipeCreateFailed, err)
		}
		*p.r = &endpoint{file: r}
		*p.w = &endpoint{file: w}
		opened = append(opened, *p.r, *p.w)
	}

	return &ps, nil
}

// ConfigureCmd wires the child-owned endpoints onto cmd's standard
// descriptors. Channels 0-2 use the fields os/exec already understands;
// channels 3-5 ride cmd.ExtraFiles, which os/exec places at descriptors
// 3, 4, 5 in order. This is setup_child from the spec: on hosts with
// numeric descriptor inheritance, assigning these fields before Start is
// the dup onto 0..5.
func (p *PipeSet) ConfigureCmd(cmd *exec.Cmd) {
	cmd.Stdin = p.stdinR.file
	cmd.Stdout = p.stdoutW.file
	cmd.Stderr = p.stderrW.file
	cmd.ExtraFiles = []*os.File{p.stddbgW.file, p.stddatiR.file, p.stddatoW.file}
}

// CloseChildEnds closes the child-owned endpoints in the parent process.
// Must be called after the child has been started (or spawn failed);
// failing to close these prevents EOF from ever propagating to the
// parent's drainers.
func (p *PipeSet) CloseChildEnds() error {
	return closeAll(p.stdinR, p.stdoutW, p.stderrW, p.stddbgW, p.stddatiR, p.stddatoW)
}

// CloseParentEnds closes the parent-owned endpoints. Used on the child
// side of non-Go hosts conceptually; in this Go implementation the
// "child side" never runs parent code, so this exists for symmetry and
// for tests that want to simulate a hung job by severing the parent's
// own pipes.
func (p *PipeSet) CloseParentEnds() error {
	return closeAll(p.stdinW, p.stdoutR, p.stderrR, p.stddbgR, p.stddatiW, p.stddatoR)
}

// Close closes every endpoint. Idempotent.
func (p *PipeSet) Close() error {
	return closeAll(
		p.stdinW, p.stdoutR, p.stderrR, p.stddbgR, p.stddatiW, p.stddatoR,
		p.stdinR, p.stdoutW, p.stderrW, p.stddbgW, p.stddatiR, p.stddatoW,
	)
}

// StdinWriter returns the parent's write end of channel 0.
func (p *PipeSet) StdinWriter() *os.File { return p.stdinW.file }

// StdDatIWriter returns the parent's write end of channel 4.
func (p *PipeSet) StdDatIWriter() *os.File { return p.stddatiW.file }

// Reader returns the parent's read end of an output channel.
func (p *PipeSet) Reader(c Channel) *os.File {
	switch c {
	case Stdout:
		return p.stdoutR.file
	case Stderr:
		return p.stderrR.file
	case StdDbg:
		return p.stddbgR.file
	case StdDatO:
		return p.stddatoR.file
	default:
		return nil
	}
}

func closeAll(endpoints ...*endpoint) error {
	var first error
	for _, e := range endpoints {
		if err := e.close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
