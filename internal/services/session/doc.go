// Package session owns pairwise session records and their lifecycle:
// PENDING on initiation, ACTIVE once the responder recomputes the same
// secret, COMPROMISED or CLOSED as terminal states with the root key
// zeroized.
//
// It orchestrates X3DH against the identity registry; the per-message key
// schedule built on the resulting root key lives in the message engine.
package session
