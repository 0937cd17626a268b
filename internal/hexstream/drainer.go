package hexstream

import (
	"context"
	"errors"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/ariash/ariash-engine/internal/ariashlog"
	"github.com/ariash/ariash-engine/internal/ringbuf"
)

// pollInterval bounds how long a drainer blocks in a single read before
// checking for cancellation. It must stay well under a second so
// cancellation latency meets the spec's sub-500ms destruction budget.
const pollInterval = 100 * time.Millisecond

// scratchSize is the size of the stack-local buffer each read call fills.
const scratchSize = 4096

// Drainer reads one child-owned output channel into a ring buffer,
// applying an overflow policy when the buffer cannot keep up. One
// Drainer runs per output channel (1, 2, 3, 5) of a Controller.
type Drainer struct {
	channel      Channel
	file         *os.File
	buf          *ringbuf.Buffer
	policy       Policy
	log          *ariashlog.Logger
	pollInterval time.Duration

	onChunk func(Channel, []byte)

	bytesTransferred atomic.Uint64
	dropped          atomic.Uint64
	active           atomic.Bool

	done chan struct{}
}

// newDrainer constructs a Drainer. It does not start the goroutine;
// call Start for that.
func newDrainer(channel Channel, file *os.File, buf *ringbuf.Buffer, policy Policy, log *ariashlog.Logger, onChunk func(Channel, []byte)) *Drainer {
	return &Drainer{
		channel:      channel,
		file:         file,
		buf:          buf,
		policy:       policy,
		log:          log,
		pollInterval: pollInterval,
		onChunk:      onChunk,
		done:         make(chan struct{}),
	}
}

// Start launches the drain loop in its own goroutine.
func (d *Drainer) Start(ctx context.Context) {
	d.active.Store(true)
	go d.run(ctx)
}

// BytesTransferred returns the total bytes this drainer has moved from
// the pipe into its ring buffer (bytes it accepted, not bytes the pipe
// produced — dropped bytes are not counted here).
func (d *Drainer) BytesTransferred() uint64 {
	return d.bytesTransferred.Load()
}

// Dropped returns the number of bytes discarded under PolicyDrop.
// Advisory only; never surfaced per-occurrence, per the spec's
// OverflowDropped error kind.
func (d *Drainer) Dropped() uint64 {
	return d.dropped.Load()
}

// Active reports whether the drain loop is still running.
func (d *Drainer) Active() bool {
	return d.active.Load()
}

// Done returns a channel closed once the drainer has finalized.
func (d *Drainer) Done() <-chan struct{} {
	return d.done
}

func (d *Drainer) run(ctx context.Context) {
	defer func() {
		d.active.Store(false)
		close(d.done)
	}()

	scratch := make([]byte, scratchSize)

	for {
		if ctx.Err() != nil {
			// Cancelled: collect what the child already wrote into the
			// pipe, bounded by one more poll interval, so output emitted
			// just before StopDraining is not lost.
			_ = d.file.SetReadDeadline(time.Now().Add(d.pollInterval))
			for {
				n, err := d.file.Read(scratch)
				if n > 0 {
					d.deliver(ctx, scratch[:n])
				}
				if err != nil {
					return
				}
			}
		}

		_ = d.file.SetReadDeadline(time.Now().Add(d.pollInterval))
		n, err := d.file.Read(scratch)

		if n > 0 {
			d.deliver(ctx, scratch[:n])
		}

		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				continue
			}
			if errors.Is(err, io.EOF) {
				return
			}
			d.log.Warn("drainer %s terminating on read error: %v", d.channel, err)
			return
		}
	}
}

// deliver applies the channel's overflow policy and, on success, invokes
// the registered chunk callback.
func (d *Drainer) deliver(ctx context.Context, chunk []byte) {
	switch d.policy {
	case PolicyDrop:
		n := d.buf.Write(chunk)
		if n < len(chunk) {
			d.dropped.Add(uint64(len(chunk) - n))
		}
		d.bytesTransferred.Add(uint64(n))
		if n > 0 && d.onChunk != nil {
			d.onChunk(d.channel, chunk[:n])
		}

	default: // PolicyBlock
		remaining := chunk
		for len(remaining) > 0 {
			n := d.buf.Write(remaining)
			if n > 0 {
				d.bytesTransferred.Add(uint64(n))
				if d.onChunk != nil {
					d.onChunk(d.channel, remaining[:n])
				}
				remaining = remaining[n:]
				continue
			}

			select {
			case <-ctx.Done():
				return
			default:
			}
			// Buffer full: yield and retry. This is backpressure by
			// design — the OS pipe fills behind the drainer, which in
			// turn blocks the child's write.
			time.Sleep(time.Millisecond)
		}
	}
}
