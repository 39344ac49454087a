package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeCBOR_RoundTrip(t *testing.T) {
	packet := DataAvailabilityPacket[string]{
		Prev:    &DataAvailabilityPointer{Height: 10, Commitment: [32]byte{1, 2, 3}},
		Content: "block-11-proof",
	}

	encoded, err := EncodeCBOR(packet)
	require.NoError(t, err)

	decoded, err := DecodeCBOR[string](encoded)
	require.NoError(t, err)
	assert.Equal(t, packet.Content, decoded.Content)
	assert.Equal(t, packet.Prev.Height, decoded.Prev.Height)
	assert.Equal(t, packet.Prev.Commitment, decoded.Prev.Commitment)
}

func TestEncodeCBOR_GenesisHasNilPrev(t *testing.T) {
	packet := DataAvailabilityPacket[string]{Content: "genesis-proof"}
	encoded, err := EncodeCBOR(packet)
	require.NoError(t, err)

	decoded, err := DecodeCBOR[string](encoded)
	require.NoError(t, err)
	assert.Nil(t, decoded.Prev)
}

func TestGenesis_IsGenesisChainHead(t *testing.T) {
	head := Genesis()
	assert.True(t, head.IsGenesis)
}

func TestBlock_BuildsNonGenesisChainHead(t *testing.T) {
	ptr := &DataAvailabilityPointer{Height: 5}
	head := Block(5, ptr)
	assert.False(t, head.IsGenesis)
	assert.Equal(t, uint64(5), head.Height)
	assert.Same(t, ptr, head.DAPointer)
}
