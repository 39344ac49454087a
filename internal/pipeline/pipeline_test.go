package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sayaproofs/saya/internal/stageerr"
)

func TestFinishHandle_ShutdownIsIdempotent(t *testing.T) {
	h := NewFinishHandle()
	h.Shutdown()
	assert.NotPanics(t, func() { h.Shutdown() })

	select {
	case <-h.Cancelled():
	default:
		t.Fatal("expected cancelled channel to be closed")
	}
}

func TestFinishHandle_MarkFinishedIsIdempotent(t *testing.T) {
	h := NewFinishHandle()
	h.MarkFinished()
	assert.NotPanics(t, func() { h.MarkFinished() })

	select {
	case <-h.Finished():
	default:
		t.Fatal("expected finished channel to be closed")
	}
}

func TestSend_DeliversUnlessCancelled(t *testing.T) {
	h := NewFinishHandle()
	out := make(chan int, 1)
	require.NoError(t, Send(h, out, 42))
	assert.Equal(t, 42, <-out)
}

func TestSend_ReturnsShutdownErrorWhenCancelled(t *testing.T) {
	h := NewFinishHandle()
	h.Shutdown()
	out := make(chan int)
	err := Send(h, out, 1)
	assert.ErrorIs(t, err, stageerr.ErrShutdown)
}

func TestRecv_ReadsValue(t *testing.T) {
	h := NewFinishHandle()
	in := make(chan int, 1)
	in <- 9
	v, ok, err := Recv(h, in)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 9, v)
}

func TestRecv_ReportsClosedChannel(t *testing.T) {
	h := NewFinishHandle()
	in := make(chan int)
	close(in)
	_, ok, err := Recv(h, in)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecv_ReturnsShutdownErrorWhenCancelled(t *testing.T) {
	h := NewFinishHandle()
	h.Shutdown()
	in := make(chan int)
	_, _, err := Recv(h, in)
	assert.ErrorIs(t, err, stageerr.ErrShutdown)
}

func TestSleep_ReturnsNilAfterDuration(t *testing.T) {
	h := NewFinishHandle()
	require.NoError(t, Sleep(h, time.Millisecond))
}

func TestSleep_PreemptedByShutdown(t *testing.T) {
	h := NewFinishHandle()
	go func() {
		time.Sleep(5 * time.Millisecond)
		h.Shutdown()
	}()
	err := Sleep(h, time.Second)
	assert.ErrorIs(t, err, stageerr.ErrShutdown)
}

func TestContext_CancelledByShutdown(t *testing.T) {
	h := NewFinishHandle()
	ctx, cancel := Context(h, context.Background())
	defer cancel()

	h.Shutdown()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("expected derived context to be cancelled")
	}
}
