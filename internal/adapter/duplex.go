package adapter

import (
	"context"
	"io"

	"github.com/shapestone/shape-dsv/internal/header"
	"github.com/shapestone/shape-dsv/internal/model"
	"github.com/shapestone/shape-dsv/internal/streamer"
)

const duplexChunkBytes = 32 * 1024

// DuplexAdapter is a readable-and-writable gateway used for pipe-style
// composition, per spec §4.5's "Duplex adapter": writes arriving on the
// writable side (Write) are queued by the underlying io.Pipe, which
// itself blocks the writer until the reader (this adapter's Stream loop)
// has consumed the bytes — an io.Pipe write is its own per-write
// acknowledgement, so no separate ack channel is needed. Parsed rows are
// pushed out Rows/Named one row per item; Done is closed when the stream
// completes. This has no teacher equivalent; it is the idiomatic Go
// rendering of the spec's JS duplex-stream contract (see DESIGN.md).
type DuplexAdapter struct {
	Rows  chan model.Row
	Named chan model.NamedRow
	Done  chan struct{}

	streamer *streamer.Streamer
	pr       *io.PipeReader
	pw       *io.PipeWriter
}

// NewDuplexAdapter builds a DuplexAdapter around typ, wiring opts'
// Step/Complete callbacks (if any) to also forward rows onto Rows/Named
// and close Done, respectively.
func NewDuplexAdapter(typ *header.Typer, opts streamer.Options) *DuplexAdapter {
	pr, pw := io.Pipe()
	d := &DuplexAdapter{
		Rows:  make(chan model.Row, 16),
		Named: make(chan model.NamedRow, 16),
		Done:  make(chan struct{}),
		pr:    pr,
		pw:    pw,
	}

	userStep := opts.Callbacks.Step
	opts.Callbacks.Step = func(row model.Row, named model.NamedRow, handle *streamer.Handle) {
		if row != nil {
			d.Rows <- row
		}
		if named != nil {
			d.Named <- named
		}
		if userStep != nil {
			userStep(row, named, handle)
		}
	}

	userComplete := opts.Callbacks.Complete
	opts.Callbacks.Complete = func(result model.Result) {
		close(d.Rows)
		close(d.Named)
		close(d.Done)
		if userComplete != nil {
			userComplete(result)
		}
	}

	d.streamer = streamer.New(typ, opts)
	return d
}

// Write queues p on the writable side; it blocks until Stream's read loop
// has consumed it, providing per-write flow control for free via io.Pipe.
func (d *DuplexAdapter) Write(p []byte) (int, error) { return d.pw.Write(p) }

// CloseWrite signals that no further writes are coming; Stream's read
// loop will see io.EOF and treat the trailing partial line as final.
func (d *DuplexAdapter) CloseWrite() error { return d.pw.Close() }

func (d *DuplexAdapter) Pause()  { d.streamer.Pause() }
func (d *DuplexAdapter) Resume() { d.streamer.Resume() }
func (d *DuplexAdapter) Abort()  { d.streamer.Abort() }

func (d *DuplexAdapter) Stream(ctx context.Context) error {
	buf := make([]byte, duplexChunkBytes)
	for {
		if err := waitWhilePaused(ctx, d.streamer); err != nil {
			return err
		}
		if d.streamer.Aborted() || d.streamer.Halted() {
			return nil
		}

		n, err := d.pr.Read(buf)
		final := err == io.EOF
		if err != nil && err != io.EOF {
			d.streamer.Error(err)
			return err
		}

		d.streamer.ParseChunk(string(buf[:n]), final)
		if final || d.streamer.Halted() {
			return nil
		}
	}
}
