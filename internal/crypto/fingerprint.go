package crypto

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint returns a short hex fingerprint of a public key or root secret.
//
// It hashes with SHA-256 and truncates to 10 bytes (20 hex chars).
func Fingerprint(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:10])
}
