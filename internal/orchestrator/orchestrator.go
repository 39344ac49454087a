// Package orchestrator wires the pipeline engine's stages into the
// three concrete topologies spec.md names — sovereign, persistent, and
// sharding — and runs the supervisor task that drives resume-point
// persistence and cooperative shutdown across all of them.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sayaproofs/saya/internal/pipeline"
)

// GracefulShutdownTimeout bounds how long the supervisor waits for every
// stage to report Finished() after Shutdown is called, before giving up
// and returning a timeout error.
const GracefulShutdownTimeout = 10 * time.Second

// stage is the minimal contract the supervisor drives: every concrete
// pipeline.Daemon satisfies it.
type stage = pipeline.Daemon

// Orchestrator runs a wired pipeline to completion, fanning shutdown
// requests out to every stage and waiting for them in parallel via
// errgroup, the same concurrency primitive the teacher's module
// dependency set already carries for fan-out/fan-in coordination.
type Orchestrator struct {
	stages     []stage
	supervisor func(ctx context.Context) error
}

// Start launches every stage and the supervisor loop, then blocks until
// the supervisor exits (clean end of input, a fatal stage error, or a
// completed shutdown).
func (o *Orchestrator) Start(ctx context.Context) error {
	for _, s := range o.stages {
		s.Start()
	}
	return o.supervisor(ctx)
}

// watchEarlyFinish launches one goroutine per stage that blocks on its
// Finished() signal and reports onto the returned channel the instant it
// fires. Every stage in a healthy topology runs until Shutdown cancels
// it, so any Finished() firing before that point is the "unexpected
// early-finish" condition spec §7 has the supervisor watch for — a
// stage that hit a fatal error and ended its run loop without anyone
// having requested shutdown. The channel is buffered to len(stages) and
// every send is non-blocking, so once a supervisor stops selecting on it
// (having already torn the pipeline down through the normal path) the
// watcher goroutines exit without blocking forever.
func watchEarlyFinish(stages []stage) <-chan struct{} {
	out := make(chan struct{}, len(stages))
	for _, s := range stages {
		s := s
		go func() {
			<-s.ShutdownHandle().Finished()
			select {
			case out <- struct{}{}:
			default:
			}
		}()
	}
	return out
}

// Shutdown requests every stage to stop and waits up to
// GracefulShutdownTimeout for all of them to report Finished(), using an
// errgroup so the waits run concurrently rather than serially.
func Shutdown(stages []stage) error {
	for _, s := range stages {
		s.ShutdownHandle().Shutdown()
	}

	g, _ := errgroup.WithContext(context.Background())
	deadline := time.After(GracefulShutdownTimeout)
	done := make(chan struct{})

	go func() {
		for _, s := range stages {
			s := s
			g.Go(func() error {
				<-s.ShutdownHandle().Finished()
				return nil
			})
		}
		_ = g.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-deadline:
		return fmt.Errorf("orchestrator: graceful shutdown timed out after %s", GracefulShutdownTimeout)
	}
}
