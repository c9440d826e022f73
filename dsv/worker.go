package dsv

import (
	"context"

	"github.com/shapestone/shape-dsv/internal/streamer"
)

// WorkerMessage is the Go rendering of spec.md §6's incoming worker wire
// schema {workerId, results?, error?, finished}. Results, when present, is
// always a value copy — never a pointer into the worker goroutine's
// working state — per spec §5's "no shared mutable state" rule.
type WorkerMessage struct {
	WorkerID int
	Results  *ParseResult
	Err      error
	Finished bool
}

// RunWorker runs Parse(ctx, input, cfg) on a separate goroutine ("a
// worker runtime", spec §4.7 step 2), reporting every chunk (unless
// cfg.Callbacks.Step is set) and the final outcome as WorkerMessage
// values on the returned channel, which is closed once Finished has been
// sent. When neither Step nor Chunk is set, the Finished message carries
// every row gathered across the chunks. cfg.Worker is ignored (reset to
// false) to avoid re-dispatching into another worker.
func RunWorker(ctx context.Context, workerID int, input any, cfg Config) <-chan WorkerMessage {
	out := make(chan WorkerMessage, 8)
	cfg.Worker = false

	userChunk := cfg.Callbacks.Chunk
	gather := userChunk == nil && cfg.Callbacks.Step == nil
	var gathered ParseResult
	if cfg.Callbacks.Step == nil {
		cfg.Callbacks.Chunk = func(r ParseResult, h *streamer.Handle) {
			cp := r
			out <- WorkerMessage{WorkerID: workerID, Results: &cp}
			if gather {
				gathered.Rows = append(gathered.Rows, r.Rows...)
				gathered.Named = append(gathered.Named, r.Named...)
				gathered.Errors = append(gathered.Errors, r.Errors...)
				gathered.Meta = r.Meta
			}
			if userChunk != nil {
				userChunk(r, h)
			}
		}
	}

	go func() {
		defer close(out)
		result, _, err := Parse(ctx, input, cfg)
		if err != nil {
			out <- WorkerMessage{WorkerID: workerID, Err: err, Finished: true}
			return
		}
		if result == nil && gather {
			result = &gathered
		}
		out <- WorkerMessage{WorkerID: workerID, Results: result, Finished: true}
	}()

	return out
}

// parseViaWorker implements spec §4.7 step 2: dispatch to a worker and
// re-dispatch complete/error from its returned messages on the calling
// side; step/chunk callbacks run on the worker goroutine itself. Parse stays synchronous from the caller's point of view —
// it blocks draining the worker's channel — which is the natural
// rendering of "worker" in a language without a separate JS-style main
// thread to return control to.
func parseViaWorker(ctx context.Context, input any, cfg Config) (*ParseResult, *ParserHandle, error) {
	userComplete := cfg.Callbacks.Complete
	userError := cfg.Callbacks.Error
	// Cleared so that only this side fires them, from the worker's messages.
	cfg.Callbacks.Complete = nil
	cfg.Callbacks.Error = nil

	messages := RunWorker(ctx, 0, input, cfg)

	var final *ParseResult
	var finalErr error
	for msg := range messages {
		if msg.Err != nil {
			finalErr = msg.Err
			if userError != nil {
				userError(msg.Err)
			}
			continue
		}
		if msg.Finished {
			final = msg.Results
			if userComplete != nil && final != nil {
				userComplete(*final)
			}
		}
	}
	return final, &ParserHandle{}, finalErr
}
