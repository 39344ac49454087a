package snos

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sayaproofs/saya/internal/prover/atlantic"
	"github.com/sayaproofs/saya/internal/storage/memstore"
	"github.com/sayaproofs/saya/internal/types"
)

func TestBuilder_RejectsMissingCollaborators(t *testing.T) {
	_, err := NewBuilder(nil, nil, nil).Build()
	assert.Error(t, err)

	client := atlantic.New("http://example.invalid", "key")
	store := memstore.New()
	in := make(chan types.NewBlock)
	out := make(chan types.SnosProof[string])

	_, err = NewBuilder(nil, client, nil).WithInbound(in).WithOutbound(out).Build()
	assert.Error(t, err)

	_, err = NewBuilder(nil, client, store).WithOutbound(out).Build()
	assert.Error(t, err)

	_, err = NewBuilder(nil, client, store).WithInbound(in).Build()
	assert.Error(t, err)
}

func TestBuilder_SucceedsWithAllCollaboratorsWired(t *testing.T) {
	client := atlantic.New("http://example.invalid", "key")
	store := memstore.New()
	in := make(chan types.NewBlock)
	out := make(chan types.SnosProof[string])

	stage, err := NewBuilder(nil, client, store).WithInbound(in).WithOutbound(out).Build()
	require.NoError(t, err)
	require.NotNil(t, stage.ShutdownHandle())
}
