package domain

import "fmt"

// ------------- X25519 -------------

// X25519Public is a Curve25519 public key.
type X25519Public [32]byte

// X25519Private is a Curve25519 private key.
type X25519Private [32]byte

func (p X25519Public) Slice() []byte  { return p[:] }
func (k X25519Private) Slice() []byte { return k[:] }

// MustX25519Public copies b into a fixed array, panicking on bad length.
func MustX25519Public(b []byte) X25519Public {
	if len(b) != 32 {
		panic(fmt.Errorf("X25519 public: want 32 bytes, got %d", len(b)))
	}
	var out X25519Public
	copy(out[:], b)
	return out
}

// ------------- Ed25519 -------------

// Ed25519Public is a signing public key.
type Ed25519Public [32]byte

// Ed25519Private is a signing private key (ed25519.PrivateKey layout).
type Ed25519Private [64]byte

func (p Ed25519Public) Slice() []byte  { return p[:] }
func (k Ed25519Private) Slice() []byte { return k[:] }

// Algorithm tags the key material and AEAD suites the engine understands.
type Algorithm string

const (
	AlgX25519           Algorithm = "X25519"
	AlgEd25519          Algorithm = "Ed25519"
	AlgAES256GCM        Algorithm = "AES-256-GCM"
	AlgChaCha20Poly1305 Algorithm = "ChaCha20-Poly1305"
)

// Valid reports whether a is one of the supported tags.
func (a Algorithm) Valid() bool {
	switch a {
	case AlgX25519, AlgEd25519, AlgAES256GCM, AlgChaCha20Poly1305:
		return true
	}
	return false
}
