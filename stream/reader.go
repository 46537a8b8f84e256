package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/introlix/deskflow/core"
	"github.com/introlix/deskflow/logging"
)

// Callbacks receive the reader's lifecycle notifications. All callbacks are
// invoked from the reader's goroutine; nil entries are skipped.
type Callbacks struct {
	// OnUpdate delivers the live ParsedTurn after every received chunk.
	OnUpdate func(turn core.ParsedTurn)
	// OnComplete delivers the final ParsedTurn and the full accumulated text
	// once the source signals completion or cancellation was honored.
	OnComplete func(turn core.ParsedTurn, accumulated string)
	// OnError surfaces a transport failure. Fired at most once per turn.
	OnError func(err error)
}

// Options holds dependency and configuration overrides passed to NewReader.
type Options struct {
	// Limiter guards against a second concurrent turn per desk. A shared
	// instance is required when multiple readers serve the same desk set.
	Limiter *core.TurnLimiter
	// Logger receives debug/error records. Defaults to NoOpLogger.
	Logger logging.Logger
}

// Reader drives one streamed turn at a time for a desk: it opens the turn
// through a TurnSubmitter, accumulates chunks, re-decodes the growing text
// after every chunk and reports the live ParsedTurn through callbacks.
// Cancellation is cooperative, honored at chunk boundaries via the context;
// decoded content up to that point stays visible (no rollback).
type Reader struct {
	submitter core.TurnSubmitter
	limiter   *core.TurnLimiter
	logger    logging.Logger

	mu          sync.Mutex
	accumulated strings.Builder
}

// NewReader constructs a Reader with optional overrides.
func NewReader(submitter core.TurnSubmitter, optFns ...func(o *Options)) *Reader {
	opts := Options{
		Limiter: core.NewTurnLimiter(),
		Logger:  logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Reader{
		submitter: submitter,
		limiter:   opts.Limiter,
		logger:    opts.Logger,
	}
}

// Accumulated returns the text received so far for the in-flight turn.
func (r *Reader) Accumulated() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.accumulated.String()
}

// Run submits one turn and blocks until it terminates. Termination paths:
//
//   - source completion: final Decode with live=false, OnComplete fired,
//     working buffer cleared, nil returned
//   - context cancellation: checked at the next chunk boundary, OnComplete
//     fired with what was decoded, ctx.Err() returned
//   - transport error: OnError fired once, working buffer cleared, the
//     error returned
//
// A second Run for the same desk while one is active fails immediately with
// core.ErrTurnActive.
func (r *Reader) Run(ctx context.Context, workspaceID, chatID string, req core.TurnRequest, cb Callbacks) error {
	if err := r.limiter.Acquire(chatID); err != nil {
		return err
	}
	defer r.limiter.Release(chatID)
	defer r.reset()

	source, err := r.submitter.SubmitTurn(ctx, workspaceID, chatID, req)
	if err != nil {
		err = fmt.Errorf("failed to submit turn: %w", err)
		if cb.OnError != nil {
			cb.OnError(err)
		}
		return err
	}
	defer func() {
		if cerr := source.Close(); cerr != nil {
			r.logger.Warn("turn source close failed", "chat_id", chatID, "error", cerr)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			r.logger.Debug("turn cancelled", "chat_id", chatID)
			r.complete(cb, false)
			return ctx.Err()
		default:
		}

		chunk, err := source.Recv()
		if chunk != "" {
			r.mu.Lock()
			r.accumulated.WriteString(chunk)
			text := r.accumulated.String()
			r.mu.Unlock()
			if cb.OnUpdate != nil {
				cb.OnUpdate(Decode(text, true))
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				r.complete(cb, true)
				return nil
			}
			// Cancelling the context mid-read surfaces as a receive error
			// from the transport. That is still a cancellation, not a
			// stream failure: keep what was decoded so far.
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				r.logger.Debug("turn cancelled", "chat_id", chatID)
				r.complete(cb, false)
				if cerr := ctx.Err(); cerr != nil {
					return cerr
				}
				return err
			}
			err = fmt.Errorf("turn stream failed: %w", err)
			r.logger.Error("turn stream failed", "chat_id", chatID, "error", err)
			if cb.OnError != nil {
				cb.OnError(err)
			}
			return err
		}
	}
}

func (r *Reader) complete(cb Callbacks, final bool) {
	r.mu.Lock()
	text := r.accumulated.String()
	r.mu.Unlock()
	if cb.OnComplete != nil {
		cb.OnComplete(Decode(text, !final), text)
	}
}

func (r *Reader) reset() {
	r.mu.Lock()
	r.accumulated.Reset()
	r.mu.Unlock()
}
