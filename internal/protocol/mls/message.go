package mls

import (
	"io"

	"msgcrypt/internal/crypto"
	"msgcrypt/internal/domain"
	"msgcrypt/internal/util/memzero"
)

// SealMessage encrypts plaintext under the current epoch's message key with
// the group's cipher suite. The returned metadata carries the epoch as its
// key id; members on an older epoch cannot open the result.
func (g *Group) SealMessage(plaintext []byte, meta domain.MessageMetadata, rng io.Reader) ([]byte, domain.MessageMetadata, error) {
	meta.Algorithm = g.Suite.AEAD()
	meta.KeyID = g.Epoch

	mk := crypto.Derive(g.EpochSecret, messageKeyInfo)
	defer memzero.Zero(mk)

	ct, nonce, err := crypto.Seal(meta.Algorithm, mk, plaintext, meta.AAD(), rng)
	if err != nil {
		return nil, domain.MessageMetadata{}, err
	}
	meta.Nonce = nonce
	return ct, meta, nil
}

// OpenMessage decrypts a group ciphertext. A stale or future epoch fails the
// same way a damaged ciphertext does: secrets from other epochs no longer
// exist here, and the error must not reveal which check failed.
func (g *Group) OpenMessage(ciphertext []byte, meta domain.MessageMetadata) ([]byte, error) {
	if meta.KeyID != g.Epoch {
		return nil, domain.ErrDecryptionFailure
	}
	mk := crypto.Derive(g.EpochSecret, messageKeyInfo)
	defer memzero.Zero(mk)

	return crypto.Open(meta.Algorithm, mk, ciphertext, meta.Nonce, meta.AAD())
}
