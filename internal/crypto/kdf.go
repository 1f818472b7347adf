package crypto

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"

	"msgcrypt/internal/domain"
)

// Derive performs one HKDF-SHA256 step over key with the given info label and
// returns a fresh 32-byte key. The step is one-way: the output reveals
// nothing about key, and distinct labels yield independent outputs.
func Derive(key []byte, info string) []byte {
	out := make([]byte, KeyBytes)
	r := hkdf.New(sha256.New, key, nil, []byte(info))
	_, _ = io.ReadFull(r, out)
	return out
}

// GenerateKeyPair produces fresh key material for the asymmetric algorithm
// tags. Symmetric tags and unknown tags fail with ErrUnsupportedAlgorithm.
func GenerateKeyPair(alg domain.Algorithm, rng io.Reader) (priv, pub []byte, err error) {
	switch alg {
	case domain.AlgX25519:
		xp, xP, err := GenerateX25519(rng)
		if err != nil {
			return nil, nil, err
		}
		return xp.Slice(), xP.Slice(), nil
	case domain.AlgEd25519:
		ep, eP, err := GenerateEd25519(rng)
		if err != nil {
			return nil, nil, err
		}
		return ep.Slice(), eP.Slice(), nil
	default:
		return nil, nil, domain.ErrUnsupportedAlgorithm
	}
}
