package hexstream

import (
	"context"
	"io"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ariash/ariash-engine/internal/ariashlog"
	"github.com/ariash/ariash-engine/internal/ringbuf"
)

// DataCallback is invoked with bytes a drainer accepted into its ring
// buffer. It is called from the drainer's own goroutine, and from the
// goroutine that calls FlushBuffers; implementations must not block.
type DataCallback func(channel Channel, data []byte)

// Controller owns one job's PipeSet and its six ring buffers, and runs
// the drainers that keep the child's output pipes from filling. A
// Controller is created per job and lives until the job terminates and
// every drainer has finalized; Close is idempotent.
type Controller struct {
	log *ariashlog.Logger

	pipes   *PipeSet
	buffers [6]*ringbuf.Buffer

	capacities   [6]int
	pollInterval time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	drainersMu sync.Mutex
	drainers   map[Channel]*Drainer

	callbacksMu sync.Mutex
	callbacks   []DataCallback

	fgMu              sync.RWMutex
	foreground        bool
	passthroughStdout io.Writer
	passthroughStderr io.Writer

	closeOnce sync.Once
	closed    atomic.Bool
}

// NewController creates a Controller that has not yet created its pipes.
func NewController(log *ariashlog.Logger) *Controller {
	if log == nil {
		log = ariashlog.Discard
	}
	c := &Controller{
		log:          log,
		drainers:     make(map[Channel]*Drainer),
		pollInterval: pollInterval,
	}
	for _, ch := range []Channel{Stdin, Stdout, Stderr, StdDbg, StdDatI, StdDatO} {
		c.capacities[ch] = DefaultCapacity(ch)
	}
	return c
}

// SetCapacity overrides the ring buffer capacity used for ch. Must be
// called before CreatePipes; a Controller with pipes already created
// keeps its existing buffers.
func (c *Controller) SetCapacity(ch Channel, capacity int) {
	if c.pipes != nil {
		return
	}
	c.capacities[ch] = capacity
}

// SetPollInterval overrides the drainer poll interval used by every
// drainer this Controller starts. Must be called before StartDraining.
func (c *Controller) SetPollInterval(d time.Duration) {
	c.pollInterval = d
}

// CreatePipes creates the six channels and allocates their ring buffers.
func (c *Controller) CreatePipes() error {
	pipes, err := CreatePipes()
	if err != nil {
		return err
	}
	c.pipes = pipes
	for _, ch := range []Channel{Stdin, Stdout, Stderr, StdDbg, StdDatI, StdDatO} {
		c.buffers[ch] = ringbuf.New(c.capacities[ch])
	}
	return nil
}

// ConfigureCmd wires the child-owned endpoints onto cmd; this is
// setup_child from the spec, applied before cmd.Start.
func (c *Controller) ConfigureCmd(cmd *exec.Cmd) {
	c.pipes.ConfigureCmd(cmd)
}

// SetupParent closes the child-owned endpoints in the parent process.
// Must be called once, immediately after cmd.Start returns (success or
// failure) so EOF can propagate to the drainers.
func (c *Controller) SetupParent() error {
	return c.pipes.CloseChildEnds()
}

// StartDraining spawns one Drainer per output channel (1, 2, 3, 5) with
// the policies {block, block, drop, block}.
func (c *Controller) StartDraining() {
	c.ctx, c.cancel = context.WithCancel(context.Background())

	c.drainersMu.Lock()
	defer c.drainersMu.Unlock()

	for _, ch := range OutputChannels {
		d := newDrainer(ch, c.pipes.Reader(ch), c.buffers[ch], DefaultPolicy(ch), c.log.With("channel", ch.String()), c.deliverToCallbacks)
		d.pollInterval = c.pollInterval
		c.drainers[ch] = d
		d.Start(c.ctx)
	}
}

// StopDraining requests cancellation of all drainers and blocks until
// every one has finalized. Synchronous and idempotent.
func (c *Controller) StopDraining() {
	if c.cancel != nil {
		c.cancel()
	}

	c.drainersMu.Lock()
	drainers := make([]*Drainer, 0, len(c.drainers))
	for _, d := range c.drainers {
		drainers = append(drainers, d)
	}
	c.drainersMu.Unlock()

	for _, d := range drainers {
		<-d.Done()
	}
}

// WriteStdin writes to the producer side of channel 0. May block on the
// underlying pipe if the child is slow to read — deliberate upstream
// backpressure.
func (c *Controller) WriteStdin(p []byte) (int, error) {
	return c.pipes.StdinWriter().Write(p)
}

// CloseStdin closes channel 0's write end, signalling EOF to the child.
func (c *Controller) CloseStdin() error {
	return c.pipes.stdinW.close()
}

// WriteStdDatI writes to the producer side of channel 4.
func (c *Controller) WriteStdDatI(p []byte) (int, error) {
	return c.pipes.StdDatIWriter().Write(p)
}

// ReadBuffer copies buffered bytes for an output channel into out.
func (c *Controller) ReadBuffer(ch Channel, out []byte) int {
	return c.buffers[ch].Read(out)
}

// Available reports how many bytes are buffered for channel ch.
func (c *Controller) Available(ch Channel) int {
	return c.buffers[ch].Available()
}

// Dropped reports the advisory drop counter for a drop-policy channel
// (non-zero only for StdDbg). Returns 0 before draining has started.
func (c *Controller) Dropped(ch Channel) uint64 {
	c.drainersMu.Lock()
	defer c.drainersMu.Unlock()
	if d, ok := c.drainers[ch]; ok {
		return d.Dropped()
	}
	return 0
}

// OnData registers a callback invoked (channel, bytes) as drainers
// accept data. Safe to call concurrently with drainer activity.
func (c *Controller) OnData(cb DataCallback) {
	c.callbacksMu.Lock()
	defer c.callbacksMu.Unlock()
	c.callbacks = append(c.callbacks, cb)
}

// SetForegroundMode toggles direct passthrough of channels 1 and 2 to
// the shell's own terminal endpoints. Buffers continue to receive data
// regardless of mode.
func (c *Controller) SetForegroundMode(foreground bool, stdout, stderr io.Writer) {
	c.fgMu.Lock()
	defer c.fgMu.Unlock()
	c.foreground = foreground
	c.passthroughStdout = stdout
	c.passthroughStderr = stderr
}

func (c *Controller) deliverToCallbacks(ch Channel, data []byte) {
	c.fgMu.RLock()
	if c.foreground {
		switch ch {
		case Stdout:
			if c.passthroughStdout != nil {
				_, _ = c.passthroughStdout.Write(data)
			}
		case Stderr:
			if c.passthroughStderr != nil {
				_, _ = c.passthroughStderr.Write(data)
			}
		}
	}
	c.fgMu.RUnlock()

	c.callbacksMu.Lock()
	cbs := make([]DataCallback, len(c.callbacks))
	copy(cbs, c.callbacks)
	c.callbacksMu.Unlock()

	for _, cb := range cbs {
		cb(ch, data)
	}
}

// FlushBuffers drains every ring buffer through the registered
// callbacks. Used after job termination to deliver trailing output that
// arrived after the last caller-initiated read.
func (c *Controller) FlushBuffers() {
	scratch := make([]byte, scratchSize)
	for _, ch := range OutputChannels {
		for {
			n := c.buffers[ch].Read(scratch)
			if n == 0 {
				break
			}
			c.deliverToCallbacks(ch, scratch[:n])
		}
	}
}

// Close stops draining and closes every pipe endpoint. The ring buffers
// stay allocated, so ReadBuffer still returns what they hold.
// Idempotent.
func (c *Controller) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.StopDraining()
		if c.pipes != nil {
			err = c.pipes.Close()
		}
	})
	return err
}
