package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"io"

	"golang.org/x/crypto/chacha20poly1305"

	"msgcrypt/internal/domain"
)

var errInvalidKeySize = errors.New("aead key must be 32 bytes")

// KeyBytes is the symmetric key size shared by both supported AEAD suites.
const KeyBytes = 32

// NonceBytes is the nonce size shared by AES-256-GCM and ChaCha20-Poly1305.
const NonceBytes = 12

// Seal encrypts plaintext under key with a fresh random nonce and returns
// (ciphertext, nonce). The authentication tag is appended to the ciphertext.
// aad is authenticated but not encrypted; it must bind the message to its
// context so the ciphertext cannot be replayed elsewhere.
func Seal(alg domain.Algorithm, key, plaintext, aad []byte, rng io.Reader) (ct, nonce []byte, err error) {
	aead, err := newAEAD(alg, key)
	if err != nil {
		return nil, nil, err
	}
	if rng == nil {
		rng = rand.Reader
	}
	nonce = make([]byte, NonceBytes)
	if _, err := io.ReadFull(rng, nonce); err != nil {
		return nil, nil, err
	}
	return aead.Seal(nil, nonce, plaintext, aad), nonce, nil
}

// Open decrypts and authenticates ciphertext. Any failure, whether a
// truncated input, tag mismatch, aad mismatch or wrong key, surfaces as the
// single ErrDecryptionFailure with no distinguishing detail.
func Open(alg domain.Algorithm, key, ct, nonce, aad []byte) ([]byte, error) {
	aead, err := newAEAD(alg, key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != NonceBytes {
		return nil, domain.ErrDecryptionFailure
	}
	pt, err := aead.Open(nil, nonce, ct, aad)
	if err != nil {
		return nil, domain.ErrDecryptionFailure
	}
	return pt, nil
}

func newAEAD(alg domain.Algorithm, key []byte) (cipher.AEAD, error) {
	if len(key) != KeyBytes {
		return nil, errInvalidKeySize
	}
	switch alg {
	case domain.AlgAES256GCM:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, err
		}
		return cipher.NewGCM(block)
	case domain.AlgChaCha20Poly1305:
		return chacha20poly1305.New(key)
	default:
		return nil, domain.ErrUnsupportedAlgorithm
	}
}
