package x3dh_test

import (
	"bytes"
	"errors"
	"testing"

	"msgcrypt/internal/crypto"
	"msgcrypt/internal/domain"
	"msgcrypt/internal/protocol/x3dh"
)

// makeIdentity creates a domain.Identity with fresh X25519 and Ed25519 pairs.
func makeIdentity(t *testing.T, user string) domain.Identity {
	t.Helper()
	xPriv, xPub, err := crypto.GenerateX25519(nil)
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}
	edPriv, edPub, err := crypto.GenerateEd25519(nil)
	if err != nil {
		t.Fatalf("GenerateEd25519: %v", err)
	}
	return domain.Identity{
		UserID: user,
		XPub:   xPub, XPriv: xPriv,
		EdPub: edPub, EdPriv: edPriv,
	}
}

// makeBundle builds bob's public bundle and returns the private prekey halves
// the responder side needs.
func makeBundle(t *testing.T, bob domain.Identity, withOPK bool) (domain.IdentityBundle, domain.X25519Private, *domain.X25519Private) {
	t.Helper()
	spkPriv, spkPub, err := crypto.GenerateX25519(nil)
	if err != nil {
		t.Fatalf("GenerateX25519 (spk): %v", err)
	}
	bundle := domain.IdentityBundle{
		UserID:      bob.UserID,
		IdentityKey: bob.XPub,
		SigningKey:  bob.EdPub,
		SignedPrekey: domain.SignedPrekey{
			ID:  "spk-test",
			Pub: spkPub,
			Sig: crypto.SignEd25519(bob.EdPriv, spkPub.Slice()),
		},
	}
	var opkPriv *domain.X25519Private
	if withOPK {
		priv, pub, err := crypto.GenerateX25519(nil)
		if err != nil {
			t.Fatalf("GenerateX25519 (opk): %v", err)
		}
		bundle.OneTime = []domain.OneTimePrekey{{ID: "opk-1", Pub: pub}}
		opkPriv = &priv
	}
	return bundle, spkPriv, opkPriv
}

func TestInitiatorAndResponderRoot_NoOneTimePrekey(t *testing.T) {
	alice := makeIdentity(t, "alice")
	bob := makeIdentity(t, "bob")
	bundle, spkPriv, _ := makeBundle(t, bob, false)

	rootA, spkID, opkID, ephPub, err := x3dh.InitiatorRoot(nil, alice, bundle)
	if err != nil {
		t.Fatalf("InitiatorRoot: %v", err)
	}
	if spkID != "spk-test" {
		t.Fatalf("signed prekey id = %q, want spk-test", spkID)
	}
	if opkID != "" {
		t.Fatalf("one-time prekey id = %q, want empty", opkID)
	}

	rootB, err := x3dh.ResponderRoot(bob, spkPriv, nil, alice.XPub, ephPub)
	if err != nil {
		t.Fatalf("ResponderRoot: %v", err)
	}
	if !bytes.Equal(rootA, rootB) {
		t.Fatal("root keys differ (no OPK)")
	}
}

func TestInitiatorAndResponderRoot_WithOneTimePrekey(t *testing.T) {
	alice := makeIdentity(t, "alice")
	bob := makeIdentity(t, "bob")
	bundle, spkPriv, opkPriv := makeBundle(t, bob, true)

	rootA, _, opkID, ephPub, err := x3dh.InitiatorRoot(nil, alice, bundle)
	if err != nil {
		t.Fatalf("InitiatorRoot: %v", err)
	}
	if opkID != "opk-1" {
		t.Fatalf("one-time prekey id = %q, want opk-1", opkID)
	}

	rootB, err := x3dh.ResponderRoot(bob, spkPriv, opkPriv, alice.XPub, ephPub)
	if err != nil {
		t.Fatalf("ResponderRoot: %v", err)
	}
	if !bytes.Equal(rootA, rootB) {
		t.Fatal("root keys differ (with OPK)")
	}
}

func TestInitiatorRoot_OPKChangesRoot(t *testing.T) {
	// The quadruple-DH root must not collapse onto the triple-DH root.
	alice := makeIdentity(t, "alice")
	bob := makeIdentity(t, "bob")
	bundle, spkPriv, opkPriv := makeBundle(t, bob, true)

	rootWith, _, _, ephPub, err := x3dh.InitiatorRoot(nil, alice, bundle)
	if err != nil {
		t.Fatalf("InitiatorRoot: %v", err)
	}
	rootWithout, err := x3dh.ResponderRoot(bob, spkPriv, nil, alice.XPub, ephPub)
	if err != nil {
		t.Fatalf("ResponderRoot: %v", err)
	}
	if bytes.Equal(rootWith, rootWithout) {
		t.Fatal("root ignores the one-time prekey leg")
	}
	_ = opkPriv
}

func TestInitiatorRoot_MissingSignedPrekey(t *testing.T) {
	alice := makeIdentity(t, "alice")
	bob := makeIdentity(t, "bob")

	bundle := domain.IdentityBundle{
		UserID:      bob.UserID,
		IdentityKey: bob.XPub,
		SigningKey:  bob.EdPub,
	}
	if _, _, _, _, err := x3dh.InitiatorRoot(nil, alice, bundle); !errors.Is(err, domain.ErrMissingPrekey) {
		t.Fatalf("got %v, want ErrMissingPrekey", err)
	}
}

func TestInitiatorRoot_BadSignature(t *testing.T) {
	alice := makeIdentity(t, "alice")
	bob := makeIdentity(t, "bob")
	bundle, _, _ := makeBundle(t, bob, false)
	bundle.SignedPrekey.Sig[0] ^= 0x01

	if _, _, _, _, err := x3dh.InitiatorRoot(nil, alice, bundle); !errors.Is(err, domain.ErrSignatureInvalid) {
		t.Fatalf("got %v, want ErrSignatureInvalid", err)
	}
}

func TestVerifySPK(t *testing.T) {
	bob := makeIdentity(t, "bob")
	_, spkPub, err := crypto.GenerateX25519(nil)
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}
	sig := crypto.SignEd25519(bob.EdPriv, spkPub.Slice())

	if !x3dh.VerifySPK(bob.EdPub, spkPub, sig) {
		t.Fatal("valid signed prekey rejected")
	}
	other := makeIdentity(t, "mallory")
	if x3dh.VerifySPK(other.EdPub, spkPub, sig) {
		t.Fatal("signature verified against the wrong identity key")
	}
}
