package x3dh

import (
	"io"

	"msgcrypt/internal/crypto"
	"msgcrypt/internal/domain"
	"msgcrypt/internal/util/memzero"
)

const rootInfo = "msgcrypt/x3dh/root"

// InitiatorRoot runs X3DH against the peer's registered bundle.
//
// It verifies the signed-prekey signature, generates a fresh ephemeral pair,
// performs the three (or four, with a one-time prekey) DH legs and derives
// the initial root key. The returned ids and ephemeral public key are echoed
// to the responder so it can recompute the same secret.
func InitiatorRoot(rng io.Reader, local domain.Identity, bundle domain.IdentityBundle) (
	root []byte,
	spkID, opkID string,
	ephPub domain.X25519Public,
	err error,
) {
	var zero domain.X25519Public
	if bundle.SignedPrekey.Pub == zero || bundle.SignedPrekey.ID == "" {
		return nil, "", "", ephPub, domain.ErrMissingPrekey
	}
	if !crypto.VerifyEd25519(bundle.SigningKey, bundle.SignedPrekey.Pub.Slice(), bundle.SignedPrekey.Sig) {
		return nil, "", "", ephPub, domain.ErrSignatureInvalid
	}

	ephPriv, ephPubK, err := crypto.GenerateX25519(rng)
	if err != nil {
		return nil, "", "", ephPub, err
	}
	defer memzero.Zero(ephPriv[:])

	dh1, err := crypto.DH(local.XPriv, bundle.SignedPrekey.Pub) // DH(IK_A, SPK_B)
	if err != nil {
		return nil, "", "", ephPub, err
	}
	dh2, err := crypto.DH(ephPriv, bundle.IdentityKey) // DH(EK_A, IK_B)
	if err != nil {
		return nil, "", "", ephPub, err
	}
	dh3, err := crypto.DH(ephPriv, bundle.SignedPrekey.Pub) // DH(EK_A, SPK_B)
	if err != nil {
		return nil, "", "", ephPub, err
	}

	concat := make([]byte, 0, 32*4)
	concat = append(concat, dh1[:]...)
	concat = append(concat, dh2[:]...)
	concat = append(concat, dh3[:]...)
	memzero.Zero(dh1[:])
	memzero.Zero(dh2[:])
	memzero.Zero(dh3[:])

	if len(bundle.OneTime) > 0 {
		opk := bundle.OneTime[0]
		dh4, err := crypto.DH(ephPriv, opk.Pub) // DH(EK_A, OPK_B)
		if err != nil {
			return nil, "", "", ephPub, err
		}
		concat = append(concat, dh4[:]...)
		memzero.Zero(dh4[:])
		opkID = opk.ID
	}

	root = crypto.Derive(concat, rootInfo)
	memzero.Zero(concat)
	return root, bundle.SignedPrekey.ID, opkID, ephPubK, nil
}

// ResponderRoot recomputes the initiator's root key from the responder's
// private material: its identity key, the signed-prekey private half named by
// the initiation, and the consumed one-time prekey private half if one was
// used.
func ResponderRoot(
	local domain.Identity,
	spkPriv domain.X25519Private,
	opkPriv *domain.X25519Private,
	initiatorIK domain.X25519Public,
	initiatorEph domain.X25519Public,
) ([]byte, error) {
	dh1, err := crypto.DH(spkPriv, initiatorIK) // DH(SPK_B, IK_A)
	if err != nil {
		return nil, err
	}
	dh2, err := crypto.DH(local.XPriv, initiatorEph) // DH(IK_B, EK_A)
	if err != nil {
		return nil, err
	}
	dh3, err := crypto.DH(spkPriv, initiatorEph) // DH(SPK_B, EK_A)
	if err != nil {
		return nil, err
	}

	concat := make([]byte, 0, 32*4)
	concat = append(concat, dh1[:]...)
	concat = append(concat, dh2[:]...)
	concat = append(concat, dh3[:]...)
	memzero.Zero(dh1[:])
	memzero.Zero(dh2[:])
	memzero.Zero(dh3[:])

	if opkPriv != nil {
		dh4, err := crypto.DH(*opkPriv, initiatorEph) // DH(OPK_B, EK_A)
		if err != nil {
			return nil, err
		}
		concat = append(concat, dh4[:]...)
		memzero.Zero(dh4[:])
	}

	root := crypto.Derive(concat, rootInfo)
	memzero.Zero(concat)
	return root, nil
}

// VerifySPK checks a signed-prekey signature against the identity signing key.
func VerifySPK(edPub domain.Ed25519Public, spk domain.X25519Public, sig []byte) bool {
	return crypto.VerifyEd25519(edPub, spk.Slice(), sig)
}
