package stageerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransient_ClassifiesAsTransient(t *testing.T) {
	err := Transient("snos_prover", 10, errors.New("boom"))
	assert.Equal(t, KindTransient, KindOf(err))
	assert.Contains(t, err.Error(), "snos_prover")
	assert.Contains(t, err.Error(), "block=10")
}

func TestFatal_ClassifiesAsFatal(t *testing.T) {
	err := Fatal("layout_bridge_prover", 7, errors.New("boom"))
	assert.Equal(t, KindFatal, KindOf(err))
}

func TestShutdown_IsRecognizedByIsShutdown(t *testing.T) {
	err := Shutdown("ingestor")
	assert.True(t, IsShutdown(err))
	assert.True(t, errors.Is(err, ErrShutdown))
}

func TestIsShutdown_FalseForOtherKinds(t *testing.T) {
	assert.False(t, IsShutdown(Fatal("x", 1, errors.New("boom"))))
}

func TestKindOf_UnclassifiedDefaultsToUnknown(t *testing.T) {
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain error")))
}

func TestUnwrap_ExposesCause(t *testing.T) {
	cause := errors.New("root cause")
	err := Fatal("snos_prover", 1, cause)
	assert.ErrorIs(t, err, cause)
}

func TestConfig_HasNoBlockNumber(t *testing.T) {
	err := Config("ingestor", errors.New("missing rollup rpc"))
	var se *StageError
	assert.True(t, errors.As(err, &se))
	assert.Nil(t, se.BlockNumber)
	assert.Equal(t, KindConfig, se.Kind)
}
