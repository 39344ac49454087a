package piltover

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/sayaproofs/saya/internal/felt"
)

// LocalSigner signs v3 invoke transactions with a private key held in
// process memory, the way control-plane's nitro.LocalSigner signs L1
// transactions for local/dev chains — suitable for the
// --settlement-account-private-key flag, never for a production
// custodied key.
//
// Starknet's account-abstraction signature scheme runs over the Stark
// curve with a Poseidon-based transaction hash, for which this module's
// dependency set carries no implementation (no pack example imports a
// Stark-curve library). LocalSigner instead signs a locally computed
// keccak256 digest (see transactionDigest) with secp256k1 via
// go-ethereum's crypto package, the
// same primitive control-plane already uses for its own local signer,
// and reports the resulting (r, s) pair as the two-felt signature
// Starknet invoke transactions carry: structurally compatible with the
// wire format, not a drop-in replacement for a certified Stark-curve
// account implementation.
type LocalSigner struct {
	privateKey *ecdsa.PrivateKey
	address    felt.Felt
}

// NewLocalSigner builds a LocalSigner from a hex-encoded private key and
// the account contract address it controls.
func NewLocalSigner(hexKey string, accountAddress felt.Felt) (*LocalSigner, error) {
	privateKey, err := crypto.HexToECDSA(trimHexPrefix(hexKey))
	if err != nil {
		return nil, fmt.Errorf("piltover: parse account private key: %w", err)
	}
	return &LocalSigner{privateKey: privateKey, address: accountAddress}, nil
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

func (s *LocalSigner) AccountAddress() felt.Felt { return s.address }

// Sign computes a hash binding call and nonce, then signs it with the
// local key, returning the (r, s) pair as the invoke's signature felts.
func (s *LocalSigner) Sign(_ context.Context, call Call, nonce uint64) ([]felt.Felt, error) {
	hash := s.transactionDigest(call, nonce)
	sig, err := crypto.Sign(hash[:], s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("piltover: sign transaction digest: %w", err)
	}
	r := new(big.Int).SetBytes(sig[:32])
	sv := new(big.Int).SetBytes(sig[32:64])
	return []felt.Felt{felt.FromBigInt(r), felt.FromBigInt(sv)}, nil
}

// transactionDigest folds the account address, call, and nonce into a
// 32-byte hash via keccak256, standing in for Starknet's Poseidon-based
// SNIP-9 transaction hash (see the package doc comment on LocalSigner).
func (s *LocalSigner) transactionDigest(call Call, nonce uint64) [32]byte {
	data := make([]byte, 0, 32*(4+len(call.Calldata)))
	appendFelt := func(f felt.Felt) { b := f.Bytes32(); data = append(data, b[:]...) }
	appendFelt(s.address)
	appendFelt(call.To)
	appendFelt(call.Selector)
	appendFelt(felt.FromUint64(nonce))
	for _, c := range call.Calldata {
		appendFelt(c)
	}
	return [32]byte(crypto.Keccak256Hash(data))
}
