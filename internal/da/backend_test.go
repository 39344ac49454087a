package da

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sayaproofs/saya/internal/types"
)

type fakeProof struct{ n uint64 }

func (p fakeProof) BlockNum() uint64 { return p.n }

type fakePublisher struct {
	calls int
	next  types.DataAvailabilityPointer
}

func (f *fakePublisher) Publish(_ context.Context, _ []byte) (types.DataAvailabilityPointer, error) {
	f.calls++
	f.next.Height++
	return f.next, nil
}

func buildStage(t *testing.T, publisher Publisher) (*Stage[fakeProof], chan fakeProof, chan types.DataAvailabilityCursor[fakeProof]) {
	t.Helper()
	in := make(chan fakeProof, 1)
	out := make(chan types.DataAvailabilityCursor[fakeProof], 1)
	stage, err := NewBuilder[fakeProof](nil, publisher).WithInbound(in).WithOutbound(out).Build()
	require.NoError(t, err)
	return stage, in, out
}

func TestStage_NoopPassthroughWhenPublisherNil(t *testing.T) {
	stage, in, out := buildStage(t, nil)
	stage.Start()
	defer stage.ShutdownHandle().Shutdown()

	in <- fakeProof{n: 7}
	select {
	case cursor := <-out:
		assert.Equal(t, uint64(7), cursor.BlockNumber)
		assert.Nil(t, cursor.Pointer)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for cursor")
	}
}

func TestStage_PublishesThroughPublisher(t *testing.T) {
	pub := &fakePublisher{}
	stage, in, out := buildStage(t, pub)
	stage.Start()
	defer stage.ShutdownHandle().Shutdown()

	in <- fakeProof{n: 1}
	select {
	case cursor := <-out:
		assert.Equal(t, uint64(1), cursor.BlockNumber)
		require.NotNil(t, cursor.Pointer)
		assert.Equal(t, uint64(1), cursor.Pointer.Height)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for cursor")
	}
	assert.Equal(t, 1, pub.calls)
}

func TestStage_ChainsPrevPointerAcrossCalls(t *testing.T) {
	pub := &fakePublisher{}
	stage, in, out := buildStage(t, pub)
	stage.Start()
	defer stage.ShutdownHandle().Shutdown()

	in <- fakeProof{n: 1}
	first := <-out
	in <- fakeProof{n: 2}
	second := <-out

	assert.Equal(t, uint64(1), first.Pointer.Height)
	assert.Equal(t, uint64(2), second.Pointer.Height)
}

func TestStage_ShutdownStopsRunLoop(t *testing.T) {
	stage, _, _ := buildStage(t, nil)
	stage.Start()
	handle := stage.ShutdownHandle()
	handle.Shutdown()

	select {
	case <-handle.Finished():
	case <-time.After(time.Second):
		t.Fatal("stage did not finish after shutdown")
	}
}

func TestBuilder_RequiresInboundAndOutbound(t *testing.T) {
	_, err := NewBuilder[fakeProof](nil, nil).Build()
	assert.Error(t, err)
}
