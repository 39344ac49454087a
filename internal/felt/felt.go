// Package felt implements the 252-bit Starknet field element, the atomic
// value type for every Cairo-ecosystem input and output the pipeline
// passes around (program outputs, calldata, transaction hashes).
package felt

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
)

// primeHex is the Stark field's modulus, 2**251 + 17*2**192 + 1.
const primeHex = "0x800000000000011000000000000000000000000000000000000000000000001"

var modulus = mustParse(primeHex)

func mustParse(s string) *big.Int {
	n, ok := new(big.Int).SetString(s[2:], 16)
	if !ok {
		panic("felt: invalid modulus literal")
	}
	return n
}

// Felt is a value reduced modulo the Stark prime. The zero value is the
// field element 0.
type Felt struct {
	v big.Int
}

// FromBigInt reduces n modulo the Stark prime.
func FromBigInt(n *big.Int) Felt {
	var f Felt
	f.v.Mod(n, modulus)
	return f
}

// FromUint64 builds a Felt from a small unsigned integer.
func FromUint64(n uint64) Felt {
	return FromBigInt(new(big.Int).SetUint64(n))
}

// FromHex parses a "0x"-prefixed hex string.
func FromHex(s string) (Felt, error) {
	if len(s) < 2 || s[0] != '0' || (s[1] != 'x' && s[1] != 'X') {
		return Felt{}, fmt.Errorf("felt: not a hex literal: %q", s)
	}
	n, ok := new(big.Int).SetString(s[2:], 16)
	if !ok {
		return Felt{}, fmt.Errorf("felt: invalid hex literal: %q", s)
	}
	return FromBigInt(n), nil
}

// FromDecimal parses a base-10 string, the form some proof artifacts use
// for field elements instead of hex.
func FromDecimal(s string) (Felt, error) {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Felt{}, fmt.Errorf("felt: invalid decimal literal: %q", s)
	}
	return FromBigInt(n), nil
}

// Big returns a copy of the underlying big.Int.
func (f Felt) Big() *big.Int {
	return new(big.Int).Set(&f.v)
}

// Hex renders the canonical "0x"-prefixed lowercase representation.
func (f Felt) Hex() string {
	return "0x" + f.v.Text(16)
}

// Bytes32 renders the big-endian 32-byte representation.
func (f Felt) Bytes32() [32]byte {
	var out [32]byte
	b := f.v.Bytes()
	copy(out[32-len(b):], b)
	return out
}

// FromBytes32 interprets b as a big-endian field element.
func FromBytes32(b [32]byte) Felt {
	return FromBigInt(new(big.Int).SetBytes(b[:]))
}

func (f Felt) String() string { return f.Hex() }

// MarshalJSON renders the Felt as a hex string, matching how the rest of
// the Starknet ecosystem serialises field elements.
func (f Felt) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Hex())
}

// UnmarshalJSON accepts either a hex string or a JSON number.
func (f *Felt) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := FromHex(s)
		if err != nil {
			return err
		}
		*f = parsed
		return nil
	}
	var n uint64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("felt: cannot unmarshal %s: %w", data, err)
	}
	*f = FromUint64(n)
	return nil
}

// MarshalCBOR renders the Felt as its 32-byte big-endian encoding, used by
// the DA packet wire format.
func (f Felt) MarshalCBOR() ([]byte, error) {
	b := f.Bytes32()
	return cborByteString(b[:]), nil
}

// UnmarshalCBOR parses a CBOR byte string into a Felt.
func (f *Felt) UnmarshalCBOR(data []byte) error {
	b, err := cborDecodeByteString(data)
	if err != nil {
		return err
	}
	var arr [32]byte
	copy(arr[32-len(b):], b)
	*f = FromBytes32(arr)
	return nil
}

// cborByteString and cborDecodeByteString are minimal helpers so Felt can
// implement cbor.Marshaler/Unmarshaler without importing the cbor package
// here (it is imported once, at the packet encoding boundary, in
// internal/types).
func cborByteString(b []byte) []byte {
	return append([]byte{0x58, byte(len(b))}, b...)
}

func cborDecodeByteString(data []byte) ([]byte, error) {
	if len(data) < 2 || data[0] != 0x58 {
		return hex.DecodeString(string(data))
	}
	n := int(data[1])
	if len(data) < 2+n {
		return nil, fmt.Errorf("felt: truncated cbor byte string")
	}
	return data[2 : 2+n], nil
}
