package adapter

import (
	"context"
	"io"
	"os"

	"github.com/shapestone/shape-dsv/internal/errs"
)

// FileAdapter streams a local file, per spec §4.5's "Local-file adapter".
// ChunkSize <= 0 selects whole-file mode: the file is memory-mapped on
// unix (mmap_unix.go) or read in full as a fallback (mmap_other.go).
// ChunkSize > 0 reads the file in chunkSize-byte slices.
type FileAdapter struct {
	Path      string
	ChunkSize int

	Streamer streamerLike
}

func (a *FileAdapter) Pause()  { a.Streamer.Pause() }
func (a *FileAdapter) Resume() { a.Streamer.Resume() }
func (a *FileAdapter) Abort()  { a.Streamer.Abort() }

func (a *FileAdapter) Stream(ctx context.Context) error {
	if a.ChunkSize <= 0 {
		data, cleanup, err := mmapFile(a.Path)
		if err != nil {
			return a.fail(errs.CodeFileReadError, err)
		}
		defer cleanup()
		a.Streamer.ParseChunk(string(data), true)
		return ctx.Err()
	}

	f, err := os.Open(a.Path)
	if err != nil {
		return a.fail(errs.CodeFileReadError, err)
	}
	defer f.Close()

	buf := make([]byte, a.ChunkSize)
	for {
		if err := waitWhilePaused(ctx, a.Streamer); err != nil {
			return err
		}
		if a.Streamer.Aborted() || a.Streamer.Halted() {
			return nil
		}

		n, readErr := f.Read(buf)
		final := readErr == io.EOF || n == 0
		if readErr != nil && readErr != io.EOF {
			return a.fail(errs.CodeFileReadError, readErr)
		}

		a.Streamer.ParseChunk(string(buf[:n]), final)
		if final || a.Streamer.Halted() {
			return nil
		}
	}
}

func (a *FileAdapter) fail(code errs.Code, err error) error {
	a.Streamer.Error(&errs.TransportError{Kind: errs.KindFile, Code: code, Message: "file adapter failed", Err: err})
	return err
}
