package types

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// DataAvailabilityPointer is the opaque address of a published DA blob:
// the height it landed at and the commitment computed for it.
type DataAvailabilityPointer struct {
	Height     uint64
	Commitment [32]byte
}

// DataAvailabilityPacket is the wire structure submitted to the DA layer.
// It forms a back-linked chain: for block N greater than the configured
// genesis, Prev must equal the pointer emitted for block N-1; at genesis
// it is nil. P is the DA-backend-specific payload type (e.g. a
// RecursiveProof or a raw SnosProof).
type DataAvailabilityPacket[P any] struct {
	Prev    *DataAvailabilityPointer `cbor:"prev"`
	Content P                        `cbor:"content"`
}

// EncodeCBOR serialises a packet deterministically (fxamacker/cbor's
// default struct encoding is already canonical-map-ordered for our use,
// since DataAvailabilityPacket has a fixed, ordered field set).
func EncodeCBOR[P any](packet DataAvailabilityPacket[P]) ([]byte, error) {
	opts := cbor.CanonicalEncOptions()
	mode, err := opts.EncMode()
	if err != nil {
		return nil, fmt.Errorf("da packet: build cbor encoder: %w", err)
	}
	b, err := mode.Marshal(packet)
	if err != nil {
		return nil, fmt.Errorf("da packet: encode: %w", err)
	}
	return b, nil
}

// DecodeCBOR is the inverse of EncodeCBOR.
func DecodeCBOR[P any](data []byte) (DataAvailabilityPacket[P], error) {
	var packet DataAvailabilityPacket[P]
	if err := cbor.Unmarshal(data, &packet); err != nil {
		return packet, fmt.Errorf("da packet: decode: %w", err)
	}
	return packet, nil
}

// DataAvailabilityCursor is emitted by the DA backend once a packet has
// been published (or, in the noop variant, synthesized immediately).
type DataAvailabilityCursor[P any] struct {
	BlockNumber uint64
	Pointer     *DataAvailabilityPointer
	FullPayload P
}

// SettlementCursor is emitted by the settlement backend once the
// on-chain transaction updating state for BlockNumber has confirmed.
type SettlementCursor struct {
	BlockNumber     uint64
	TransactionHash [32]byte
}

// ChainHead is the persisted watermark storage tracks: either Genesis
// (never advanced) or a specific settled/published block with the DA
// pointer that followed it, the point a restart resumes from.
type ChainHead struct {
	// IsGenesis is true until the pipeline has advanced past the first
	// block; Height and DAPointer are meaningless while it holds.
	IsGenesis bool
	Height    uint64
	DAPointer *DataAvailabilityPointer
}

// Genesis is the zero ChainHead: no block has ever been processed.
func Genesis() ChainHead {
	return ChainHead{IsGenesis: true}
}

// Block builds a non-genesis ChainHead.
func Block(height uint64, ptr *DataAvailabilityPointer) ChainHead {
	return ChainHead{Height: height, DAPointer: ptr}
}
