package felt

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromHex_RoundTrip(t *testing.T) {
	f, err := FromHex("0x1234abcd")
	require.NoError(t, err)
	assert.Equal(t, "0x1234abcd", f.Hex())
}

func TestFromHex_RejectsMissingPrefix(t *testing.T) {
	_, err := FromHex("1234abcd")
	assert.Error(t, err)
}

func TestFromDecimal(t *testing.T) {
	f, err := FromDecimal("4096")
	require.NoError(t, err)
	assert.Equal(t, "0x1000", f.Hex())
}

func TestFromBigInt_ReducesModPrime(t *testing.T) {
	over := new(big.Int).Add(modulus, big.NewInt(5))
	f := FromBigInt(over)
	assert.Equal(t, FromUint64(5).Hex(), f.Hex())
}

func TestBytes32_RoundTrip(t *testing.T) {
	f := FromUint64(0xdeadbeef)
	b := f.Bytes32()
	assert.Equal(t, f.Hex(), FromBytes32(b).Hex())
}

func TestZeroValueIsFieldZero(t *testing.T) {
	var f Felt
	assert.Equal(t, "0x0", f.Hex())
}

func TestJSON_RoundTripHex(t *testing.T) {
	f := FromUint64(42)
	data, err := json.Marshal(f)
	require.NoError(t, err)
	assert.Equal(t, `"0x2a"`, string(data))

	var out Felt
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, f.Hex(), out.Hex())
}

func TestJSON_AcceptsNumber(t *testing.T) {
	var out Felt
	require.NoError(t, json.Unmarshal([]byte("42"), &out))
	assert.Equal(t, FromUint64(42).Hex(), out.Hex())
}

func TestCBOR_RoundTrip(t *testing.T) {
	f := FromUint64(0x1234)
	data, err := f.MarshalCBOR()
	require.NoError(t, err)

	var out Felt
	require.NoError(t, out.UnmarshalCBOR(data))
	assert.Equal(t, f.Hex(), out.Hex())
}
