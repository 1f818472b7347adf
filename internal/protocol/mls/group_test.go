package mls_test

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"msgcrypt/internal/crypto"
	"msgcrypt/internal/domain"
	"msgcrypt/internal/protocol/mls"
)

func keyPackage(t *testing.T, user string) domain.KeyPackage {
	t.Helper()
	_, encPub, err := crypto.GenerateX25519(nil)
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}
	sigPriv, sigPub, err := crypto.GenerateEd25519(nil)
	if err != nil {
		t.Fatalf("GenerateEd25519: %v", err)
	}
	return domain.KeyPackage{
		UserID:        user,
		EncryptionKey: encPub,
		SignatureKey:  sigPub,
		Signature:     crypto.SignEd25519(sigPriv, encPub.Slice()),
	}
}

func newGroup(t *testing.T, id string) *mls.Group {
	t.Helper()
	g, err := mls.NewGroup(id, domain.SuiteX25519AES256GCMEd25519, nil, nil)
	if err != nil {
		t.Fatalf("NewGroup: %v", err)
	}
	return g
}

func TestNewGroup_EmptyAtEpochZero(t *testing.T) {
	g := newGroup(t, "g1")
	if g.Epoch != 0 {
		t.Fatalf("epoch = %d, want 0", g.Epoch)
	}
	if g.MemberCount() != 0 {
		t.Fatalf("members = %d, want 0", g.MemberCount())
	}
	if g.SizeStatus() != domain.GroupSizeOptimal {
		t.Fatalf("status = %s, want OPTIMAL", g.SizeStatus())
	}
	if len(g.EpochSecret) != 32 {
		t.Fatal("epoch secret not initialized")
	}
}

func TestAddMember_AdvancesEpochAndRekeys(t *testing.T) {
	g := newGroup(t, "g1")
	before := append([]byte(nil), g.EpochSecret...)

	if err := g.AddMember(keyPackage(t, "u1")); err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	if g.Epoch != 1 || g.MemberCount() != 1 {
		t.Fatalf("epoch=%d members=%d, want 1/1", g.Epoch, g.MemberCount())
	}
	if bytes.Equal(before, g.EpochSecret) {
		t.Fatal("epoch secret unchanged by add")
	}
}

func TestAddMember_RejectsBadSignature(t *testing.T) {
	g := newGroup(t, "g1")
	kp := keyPackage(t, "u1")
	kp.Signature[0] ^= 0x01

	if err := g.AddMember(kp); !errors.Is(err, domain.ErrSignatureInvalid) {
		t.Fatalf("got %v, want ErrSignatureInvalid", err)
	}
	if g.Epoch != 0 || g.MemberCount() != 0 {
		t.Fatal("rejected add changed the group")
	}
}

func TestAddMember_RejectsDuplicateSignatureKey(t *testing.T) {
	g := newGroup(t, "g1")
	kp := keyPackage(t, "u1")

	if err := g.AddMember(kp); err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	if err := g.AddMember(kp); !errors.Is(err, domain.ErrDuplicateKeyPackage) {
		t.Fatalf("got %v, want ErrDuplicateKeyPackage", err)
	}
}

func TestRemoveMember_TombstonesLeaf(t *testing.T) {
	g := newGroup(t, "g1")
	for i := 0; i < 3; i++ {
		if err := g.AddMember(keyPackage(t, fmt.Sprintf("u%d", i))); err != nil {
			t.Fatalf("AddMember: %v", err)
		}
	}
	secretBefore := append([]byte(nil), g.EpochSecret...)
	epochBefore := g.Epoch

	if err := g.RemoveMember(1); err != nil {
		t.Fatalf("RemoveMember: %v", err)
	}
	if g.MemberCount() != 2 {
		t.Fatalf("members = %d, want 2", g.MemberCount())
	}
	if g.Epoch != epochBefore+1 {
		t.Fatalf("epoch = %d, want %d", g.Epoch, epochBefore+1)
	}
	if bytes.Equal(secretBefore, g.EpochSecret) {
		t.Fatal("epoch secret unchanged by remove")
	}
	if !g.Leaves[1].Removed {
		t.Fatal("leaf not tombstoned")
	}
	if len(g.Leaves) != 3 {
		t.Fatal("tombstoned leaf was deleted, slot could be reused")
	}

	// The slot is never reused; a re-added user gets a fresh leaf.
	if err := g.AddMember(keyPackage(t, "u1")); err != nil {
		t.Fatalf("re-add: %v", err)
	}
	if len(g.Leaves) != 4 || g.Leaves[3].Index != 3 {
		t.Fatal("re-added member did not get a fresh leaf")
	}

	// Removing the same index twice, or an index out of range, fails.
	if err := g.RemoveMember(1); !errors.Is(err, domain.ErrInvalidLeafIndex) {
		t.Fatalf("double remove: got %v, want ErrInvalidLeafIndex", err)
	}
	if err := g.RemoveMember(99); !errors.Is(err, domain.ErrInvalidLeafIndex) {
		t.Fatalf("out of range: got %v, want ErrInvalidLeafIndex", err)
	}
}

func TestGroupSizeTransitions(t *testing.T) {
	g := newGroup(t, "g1")

	// Exact tier boundaries as the group grows to the hard limit.
	want := map[int]domain.GroupSizeStatus{
		0:   domain.GroupSizeOptimal,
		100: domain.GroupSizeOptimal,
		250: domain.GroupSizeOptimal,
		251: domain.GroupSizeGood,
		400: domain.GroupSizeGood,
		401: domain.GroupSizeWarning,
		499: domain.GroupSizeWarning,
		500: domain.GroupSizeAtLimit,
	}

	check := func(count int) {
		if st, ok := want[count]; ok && g.SizeStatus() != st {
			t.Fatalf("at %d members status = %s, want %s", count, g.SizeStatus(), st)
		}
	}
	check(0)

	lastEpoch := g.Epoch
	for i := 0; i < domain.MaxGroupMembers; i++ {
		if !g.CanAdd() {
			t.Fatalf("CanAdd false at %d members", g.MemberCount())
		}
		if err := g.AddMember(keyPackage(t, fmt.Sprintf("u%d", i))); err != nil {
			t.Fatalf("AddMember %d: %v", i, err)
		}
		if g.Epoch <= lastEpoch {
			t.Fatalf("epoch not strictly increasing at member %d", i)
		}
		lastEpoch = g.Epoch
		check(g.MemberCount())
	}

	if g.CanAdd() {
		t.Fatal("CanAdd true at the member limit")
	}
	if err := g.AddMember(keyPackage(t, "one-too-many")); !errors.Is(err, domain.ErrGroupFull) {
		t.Fatalf("got %v, want ErrGroupFull", err)
	}
	if g.MemberCount() != domain.MaxGroupMembers {
		t.Fatalf("members = %d after rejected add, want %d", g.MemberCount(), domain.MaxGroupMembers)
	}
	if g.SizeStatus() != domain.GroupSizeAtLimit {
		t.Fatalf("status = %s, want AT_LIMIT", g.SizeStatus())
	}
}

func TestOptimize_PreservesMembershipAndEpoch(t *testing.T) {
	g := newGroup(t, "g1")
	for i := 0; i < 5; i++ {
		if err := g.AddMember(keyPackage(t, fmt.Sprintf("u%d", i))); err != nil {
			t.Fatalf("AddMember: %v", err)
		}
	}
	epoch, members := g.Epoch, g.MemberCount()
	secret := append([]byte(nil), g.EpochSecret...)

	g.Optimize()

	if g.Epoch != epoch || g.MemberCount() != members {
		t.Fatal("optimize changed membership or epoch")
	}
	if !bytes.Equal(secret, g.EpochSecret) {
		t.Fatal("optimize changed the epoch secret")
	}
}

func TestSerializeDeserialize_RoundTrip(t *testing.T) {
	g := newGroup(t, "g1")
	for i := 0; i < 4; i++ {
		if err := g.AddMember(keyPackage(t, fmt.Sprintf("u%d", i))); err != nil {
			t.Fatalf("AddMember: %v", err)
		}
	}
	if err := g.RemoveMember(2); err != nil {
		t.Fatalf("RemoveMember: %v", err)
	}

	blob, err := g.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	got, err := mls.Deserialize(blob)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if got.Epoch != g.Epoch || got.MemberCount() != g.MemberCount() {
		t.Fatal("group state differs after round trip")
	}
	if !bytes.Equal(got.EpochSecret, g.EpochSecret) {
		t.Fatal("epoch secret differs after round trip")
	}
	if !got.Leaves[2].Removed {
		t.Fatal("tombstone lost in round trip")
	}
}

func TestDeserialize_RejectsCorruptState(t *testing.T) {
	g := newGroup(t, "g1")
	if err := g.AddMember(keyPackage(t, "u0")); err != nil {
		t.Fatalf("AddMember: %v", err)
	}

	damage := func(mutate func(c *mls.Group)) []byte {
		blob, err := g.Serialize()
		if err != nil {
			t.Fatalf("Serialize: %v", err)
		}
		c, err := mls.Deserialize(blob)
		if err != nil {
			t.Fatalf("Deserialize: %v", err)
		}
		mutate(c)
		out, err := c.Serialize()
		if err != nil {
			t.Fatalf("Serialize (damaged): %v", err)
		}
		return out
	}

	cases := map[string][]byte{
		"not json":     []byte(`]`),
		"missing id":   damage(func(c *mls.Group) { c.ID = "" }),
		"short secret": damage(func(c *mls.Group) { c.EpochSecret = c.EpochSecret[:4] }),
		"bad index":    damage(func(c *mls.Group) { c.Leaves[0].Index = 7 }),
		"tree hash":    damage(func(c *mls.Group) { c.Leaves[0].UserID = "someone-else" }),
	}
	for name, blob := range cases {
		if _, err := mls.Deserialize(blob); !errors.Is(err, domain.ErrCorruptState) {
			t.Fatalf("%s: got %v, want ErrCorruptState", name, err)
		}
	}
}

func TestSealOpenMessage(t *testing.T) {
	g := newGroup(t, "g1")
	if err := g.AddMember(keyPackage(t, "u0")); err != nil {
		t.Fatalf("AddMember: %v", err)
	}

	meta := domain.MessageMetadata{MessageID: "m1", ChatID: "g1", SenderID: "u0"}
	ct, meta, err := g.SealMessage([]byte("to the group"), meta, nil)
	if err != nil {
		t.Fatalf("SealMessage: %v", err)
	}
	if meta.KeyID != g.Epoch {
		t.Fatalf("key id = %d, want epoch %d", meta.KeyID, g.Epoch)
	}

	pt, err := g.OpenMessage(ct, meta)
	if err != nil {
		t.Fatalf("OpenMessage: %v", err)
	}
	if string(pt) != "to the group" {
		t.Fatalf("got %q", pt)
	}
}

func TestOpenMessage_StaleEpochFails(t *testing.T) {
	g := newGroup(t, "g1")
	if err := g.AddMember(keyPackage(t, "u0")); err != nil {
		t.Fatalf("AddMember: %v", err)
	}

	meta := domain.MessageMetadata{MessageID: "m1", ChatID: "g1", SenderID: "u0"}
	ct, meta, err := g.SealMessage([]byte("pre-admission history"), meta, nil)
	if err != nil {
		t.Fatalf("SealMessage: %v", err)
	}

	// A membership change rekeys the group; the old epoch's traffic is gone.
	if err := g.AddMember(keyPackage(t, "u1")); err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	if _, err := g.OpenMessage(ct, meta); !errors.Is(err, domain.ErrDecryptionFailure) {
		t.Fatalf("got %v, want ErrDecryptionFailure", err)
	}
}

func TestZeroize(t *testing.T) {
	g := newGroup(t, "g1")
	g.Zeroize()
	if g.EpochSecret != nil || g.SenderRatchetKey != nil {
		t.Fatal("secrets survived zeroize")
	}
}
