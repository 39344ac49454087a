package aggregator

import (
	"fmt"
	"sort"

	"github.com/sayaproofs/saya/internal/felt"
)

// StateDiff is the running squashed state-diff sharding mode folds
// per-block SNOS outputs into: later writes to the same storage key
// supersede earlier ones, the same "last writer wins" rule a rollup's
// state-diff commitment applies across the blocks in one shard.
type StateDiff struct {
	writes map[string]felt.Felt // keyed by the storage key's Hex()
	order  []felt.Felt          // first-seen order, for deterministic Squash output
}

// NewStateDiff returns an empty state-diff.
func NewStateDiff() *StateDiff {
	return &StateDiff{writes: make(map[string]felt.Felt)}
}

// Fold applies one block's SNOS output to the running diff.
// calculate_output's convention for a state-diff-bearing program output
// is a flat (key, value) felt sequence, so output must have even
// length.
func (d *StateDiff) Fold(output []felt.Felt) error {
	if len(output)%2 != 0 {
		return fmt.Errorf("aggregator: state-diff output has odd length %d", len(output))
	}
	for i := 0; i < len(output); i += 2 {
		key, value := output[i], output[i+1]
		if _, exists := d.writes[key.Hex()]; !exists {
			d.order = append(d.order, key)
		}
		d.writes[key.Hex()] = value
	}
	return nil
}

// Squash flattens the current diff back into a (key, value) felt
// sequence, in first-write order.
func (d *StateDiff) Squash() []felt.Felt {
	out := make([]felt.Felt, 0, 2*len(d.order))
	for _, key := range d.order {
		out = append(out, key, d.writes[key.Hex()])
	}
	return out
}

// Len returns the number of distinct keys currently tracked.
func (d *StateDiff) Len() int { return len(d.writes) }

// sortedKeys is used only by tests that need deterministic iteration
// independent of Squash's first-write ordering.
func (d *StateDiff) sortedKeys() []felt.Felt {
	keys := append([]felt.Felt(nil), d.order...)
	sort.Slice(keys, func(i, j int) bool { return keys[i].Hex() < keys[j].Hex() })
	return keys
}
