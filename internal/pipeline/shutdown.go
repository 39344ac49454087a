// Package pipeline provides the stage/daemon contract shared by every
// long-running component of the proving pipeline: a cloneable shutdown
// handle, a finish signal, and the select-on-cancellation idiom every
// suspension point in a stage must use.
package pipeline

import "sync"

// FinishHandle composes two one-shot signals: cancellation, set by an
// external caller requesting shutdown, and finish, set by the stage
// itself once its run loop has exited. Every blocking operation inside a
// stage must select on Cancelled() alongside its real work so that
// shutdown preempts work with bounded latency.
type FinishHandle struct {
	once       sync.Once
	cancelCh   chan struct{}
	finishOnce sync.Once
	finishCh   chan struct{}
}

// NewFinishHandle returns a handle in the running state.
func NewFinishHandle() *FinishHandle {
	return &FinishHandle{
		cancelCh: make(chan struct{}),
		finishCh: make(chan struct{}),
	}
}

// Shutdown requests cancellation. Idempotent: calling it twice is a no-op.
func (h *FinishHandle) Shutdown() {
	h.once.Do(func() { close(h.cancelCh) })
}

// Cancelled returns a channel that closes once Shutdown has been called.
// Every select inside a stage's run loop must include this channel.
func (h *FinishHandle) Cancelled() <-chan struct{} {
	return h.cancelCh
}

// MarkFinished records that the stage's run loop has exited. Safe to call
// more than once; only the first call has effect.
func (h *FinishHandle) MarkFinished() {
	h.finishOnce.Do(func() { close(h.finishCh) })
}

// Finished returns a channel that closes once the stage's run loop has
// exited, whether due to cancellation, a fatal error, or a clean end of
// input.
func (h *FinishHandle) Finished() <-chan struct{} {
	return h.finishCh
}

// ShutdownHandle is the narrow, cloneable view of a FinishHandle exposed
// to orchestrators: they may request shutdown and await termination, but
// never observe or set internal stage state directly.
type ShutdownHandle struct {
	inner *FinishHandle
}

// NewShutdownHandle wraps a FinishHandle for external callers.
func NewShutdownHandle(h *FinishHandle) ShutdownHandle {
	return ShutdownHandle{inner: h}
}

// Shutdown requests the stage to stop.
func (s ShutdownHandle) Shutdown() { s.inner.Shutdown() }

// Finished reports when the stage has stopped.
func (s ShutdownHandle) Finished() <-chan struct{} { return s.inner.Finished() }

// Daemon is the contract every pipeline stage implements: it can report
// its shutdown handle for orchestrator-driven cancellation, and it can be
// started to run in the background.
type Daemon interface {
	ShutdownHandle() ShutdownHandle
	Start()
}
