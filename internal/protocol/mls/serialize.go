package mls

import (
	"bytes"
	"encoding/json"
	"fmt"

	"msgcrypt/internal/crypto"
	"msgcrypt/internal/domain"
)

// Serialize encodes the group for commits/welcomes and for the session
// store. The bytes include the epoch secret and are secret themselves.
func (g *Group) Serialize() ([]byte, error) {
	return json.Marshal(g)
}

// Deserialize parses and validates a serialized group. A group whose tree
// hash does not match its leaves, or whose secrets have the wrong length,
// fails with ErrCorruptState.
func Deserialize(blob []byte) (*Group, error) {
	var g Group
	if err := json.Unmarshal(blob, &g); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorruptState, err)
	}
	if g.ID == "" {
		return nil, fmt.Errorf("%w: missing group id", domain.ErrCorruptState)
	}
	if len(g.EpochSecret) != crypto.KeyBytes || len(g.SenderRatchetKey) != crypto.KeyBytes {
		return nil, fmt.Errorf("%w: bad secret length", domain.ErrCorruptState)
	}
	if g.MemberCount() > domain.MaxGroupMembers {
		return nil, fmt.Errorf("%w: member count exceeds limit", domain.ErrCorruptState)
	}
	for i := range g.Leaves {
		if g.Leaves[i].Index != uint32(i) {
			return nil, fmt.Errorf("%w: leaf index mismatch", domain.ErrCorruptState)
		}
	}
	if !bytes.Equal(g.TreeHash, computeTreeHash(g.Leaves)) {
		return nil, fmt.Errorf("%w: tree hash mismatch", domain.ErrCorruptState)
	}
	return &g, nil
}
