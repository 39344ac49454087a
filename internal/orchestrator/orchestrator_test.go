package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sayaproofs/saya/internal/pipeline"
)

type fakeStage struct {
	handle *pipeline.FinishHandle
}

func newFakeStage() *fakeStage {
	return &fakeStage{handle: pipeline.NewFinishHandle()}
}

func (f *fakeStage) ShutdownHandle() pipeline.ShutdownHandle {
	return pipeline.NewShutdownHandle(f.handle)
}

func (f *fakeStage) Start() {
	go func() {
		<-f.handle.Cancelled()
		f.handle.MarkFinished()
	}()
}

func TestShutdown_FansOutAndWaitsForAllStages(t *testing.T) {
	a, b, c := newFakeStage(), newFakeStage(), newFakeStage()
	stages := []stage{a, b, c}
	for _, s := range stages {
		s.Start()
	}

	done := make(chan error, 1)
	go func() { done <- Shutdown(stages) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown did not complete")
	}

	for _, s := range []*fakeStage{a, b, c} {
		select {
		case <-s.handle.Finished():
		default:
			t.Fatal("expected every stage to have finished")
		}
	}
}

func TestOrchestrator_StartRunsStagesAndSupervisor(t *testing.T) {
	s := newFakeStage()
	s2 := newFakeStage()
	called := make(chan struct{})
	o := &Orchestrator{
		stages: []stage{s, s2},
		supervisor: func(_ context.Context) error {
			close(called)
			return nil
		},
	}

	err := o.Start(context.Background())
	require.NoError(t, err)

	select {
	case <-called:
	default:
		t.Fatal("expected supervisor to have run")
	}
}
