package pipeline

import (
	"context"
	"time"

	"github.com/sayaproofs/saya/internal/stageerr"
)

// Context derives a context.Context from parent that is cancelled the
// moment the stage's shutdown signal fires, so a single blocking RPC call
// can be both a normal context-bound call and a cancellation suspension
// point at once. Callers must still call the returned cancel func.
func Context(h *FinishHandle, parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	stop := make(chan struct{})
	go func() {
		select {
		case <-h.Cancelled():
			cancel()
		case <-stop:
		}
	}()
	return ctx, func() {
		close(stop)
		cancel()
	}
}

// Sleep blocks for d or until the stage's cancellation signal fires,
// whichever comes first. It is the cooperative-cancellation replacement
// for time.Sleep: every stage's polling loops use it instead of a bare
// sleep so shutdown preempts them with bounded latency.
func Sleep(h *FinishHandle, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-h.Cancelled():
		return stageerr.ErrShutdown
	case <-t.C:
		return nil
	}
}

// Send delivers v on out unless the stage is cancelled first. A full
// channel therefore blocks the caller (propagating backpressure upstream)
// while still observing shutdown.
func Send[T any](h *FinishHandle, out chan<- T, v T) error {
	select {
	case <-h.Cancelled():
		return stageerr.ErrShutdown
	case out <- v:
		return nil
	}
}

// Recv reads the next value from in, or reports shutdown/closed-channel.
// ok is false when the channel closed upstream (clean end of input).
func Recv[T any](h *FinishHandle, in <-chan T) (v T, ok bool, err error) {
	select {
	case <-h.Cancelled():
		return v, false, stageerr.ErrShutdown
	case v, ok = <-in:
		return v, ok, nil
	}
}
