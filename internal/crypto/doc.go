// Package crypto exposes the stateless primitives used by msgcrypt.
//
// Contents
//
//   - X25519 key generation, clamping and Diffie–Hellman (GenerateX25519, DH)
//   - Ed25519 key generation, signing and verification (GenerateEd25519,
//     SignEd25519, VerifyEd25519)
//   - AEAD seal/open for AES-256-GCM and ChaCha20-Poly1305 (Seal, Open)
//   - One-way HKDF-SHA256 derivation steps with distinct info labels (Derive)
//   - Short public-key fingerprints for display (Fingerprint)
//
// All functions are deterministic given their inputs except key and nonce
// generation, which read from an injectable io.Reader (nil selects
// crypto/rand.Reader, mirroring the ed25519 API). Callers must treat
// returned secrets as sensitive and wipe them when their use ends.
package crypto
