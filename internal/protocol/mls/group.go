package mls

import (
	"crypto/rand"
	"fmt"
	"io"

	"msgcrypt/internal/crypto"
	"msgcrypt/internal/domain"
	"msgcrypt/internal/util/memzero"
)

// Derivation labels for the group key schedule.
const (
	epochInfo         = "msgcrypt/mls/epoch"
	senderRatchetInfo = "msgcrypt/mls/sender-ratchet"
	messageKeyInfo    = "msgcrypt/mls/message-key"
)

// Group is one group's complete key-tree state.
type Group struct {
	ID         string            `json:"group_id"`
	Suite      domain.CipherSuite `json:"cipher_suite"`
	Epoch      uint64            `json:"epoch"`
	Leaves     []domain.LeafNode `json:"leaves"`
	Extensions []byte            `json:"extensions,omitempty"`
	TreeHash   []byte            `json:"tree_hash"`

	EpochSecret      []byte `json:"epoch_secret"`
	SenderRatchetKey []byte `json:"sender_ratchet_key"`
}

// NewGroup creates an empty group at epoch 0 with a fresh epoch secret.
func NewGroup(id string, suite domain.CipherSuite, extensions []byte, rng io.Reader) (*Group, error) {
	if rng == nil {
		rng = rand.Reader
	}
	secret := make([]byte, crypto.KeyBytes)
	if _, err := io.ReadFull(rng, secret); err != nil {
		return nil, err
	}
	g := &Group{
		ID:          id,
		Suite:       suite,
		Extensions:  append([]byte(nil), extensions...),
		EpochSecret: secret,
	}
	g.SenderRatchetKey = crypto.Derive(secret, senderRatchetInfo)
	g.TreeHash = computeTreeHash(g.Leaves)
	return g, nil
}

// MemberCount returns the number of live (non-tombstoned) leaves.
func (g *Group) MemberCount() int {
	n := 0
	for i := range g.Leaves {
		if !g.Leaves[i].Removed {
			n++
		}
	}
	return n
}

// CanAdd is the non-throwing probe used before attempting an add.
func (g *Group) CanAdd() bool { return g.MemberCount() < domain.MaxGroupMembers }

// SizeStatus reports the performance tier for the current member count.
func (g *Group) SizeStatus() domain.GroupSizeStatus {
	return domain.GroupSizeStatusFor(g.MemberCount())
}

// AddMember validates the key package, appends a fresh leaf and advances the
// epoch. The key package is consumed: presenting the same signature key again
// while its leaf is live is rejected.
func (g *Group) AddMember(kp domain.KeyPackage) error {
	if g.MemberCount() >= domain.MaxGroupMembers {
		return domain.ErrGroupFull
	}
	if !crypto.VerifyEd25519(kp.SignatureKey, kp.EncryptionKey.Slice(), kp.Signature) {
		return domain.ErrSignatureInvalid
	}
	for i := range g.Leaves {
		if !g.Leaves[i].Removed && g.Leaves[i].SignatureKey == kp.SignatureKey {
			return domain.ErrDuplicateKeyPackage
		}
	}

	g.Epoch++
	g.Leaves = append(g.Leaves, domain.LeafNode{
		Index:         uint32(len(g.Leaves)),
		UserID:        kp.UserID,
		EncryptionKey: kp.EncryptionKey,
		SignatureKey:  kp.SignatureKey,
		AddedAtEpoch:  g.Epoch,
	})
	g.TreeHash = computeTreeHash(g.Leaves)
	g.advanceEpochSecret()
	return nil
}

// RemoveMember tombstones the leaf at index and re-keys the group. The slot
// is never reused.
func (g *Group) RemoveMember(index uint32) error {
	if int(index) >= len(g.Leaves) || g.Leaves[index].Removed {
		return domain.ErrInvalidLeafIndex
	}
	g.Leaves[index].Removed = true
	g.Leaves[index].EncryptionKey = domain.X25519Public{}

	g.Epoch++
	g.TreeHash = computeTreeHash(g.Leaves)
	g.advanceEpochSecret()
	return nil
}

// Optimize rebalances cached tree material for the current size tier. It is
// a performance transform: membership and epoch are untouched. Larger tiers
// refresh the sender ratchet key so wide groups keep a warm per-message key.
func (g *Group) Optimize() {
	switch g.SizeStatus() {
	case domain.GroupSizeOptimal:
		// Nothing cached to refresh at this size.
	case domain.GroupSizeGood:
		g.refreshSenderRatchetKey()
	default: // WARNING, AT_LIMIT
		g.TreeHash = computeTreeHash(g.Leaves)
		g.refreshSenderRatchetKey()
	}
}

// advanceEpochSecret replaces the epoch secret with a one-way derivation of
// the previous secret bound to the new epoch and tree shape. Old secrets are
// wiped, so neither a new member nor a removed one can reach secrets outside
// its membership window.
func (g *Group) advanceEpochSecret() {
	mix := make([]byte, 0, len(g.EpochSecret)+len(g.TreeHash)+8)
	mix = append(mix, g.EpochSecret...)
	mix = append(mix, g.TreeHash...)
	mix = append(mix, epochBytes(g.Epoch)...)

	next := crypto.Derive(mix, epochInfo)
	memzero.Zero(g.EpochSecret)
	memzero.Zero(mix)
	g.EpochSecret = next
	g.refreshSenderRatchetKey()
}

func (g *Group) refreshSenderRatchetKey() {
	old := g.SenderRatchetKey
	g.SenderRatchetKey = crypto.Derive(g.EpochSecret, senderRatchetInfo)
	memzero.Zero(old)
}

// Zeroize wipes the group's secret material.
func (g *Group) Zeroize() {
	memzero.Zero(g.EpochSecret)
	memzero.Zero(g.SenderRatchetKey)
	g.EpochSecret, g.SenderRatchetKey = nil, nil
}

func epochBytes(e uint64) []byte {
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = byte(e)
		e >>= 8
	}
	return b
}

func (g *Group) String() string {
	return fmt.Sprintf("group %s epoch=%d members=%d status=%s", g.ID, g.Epoch, g.MemberCount(), g.SizeStatus())
}
