// Package domain defines the core types, interfaces and error taxonomy of
// the msgcrypt encryption engine.
//
// Contents
//
//   - Fixed-size key types for X25519 and Ed25519 material with Slice()
//     helpers (avoids accidental reallocation of secret bytes)
//   - Session records and their lifecycle states
//   - Double Ratchet per-conversation state
//   - Group key-tree types (leaf nodes, key packages, size status)
//   - The ciphertext metadata envelope exchanged with the transport layer
//   - Capability interfaces consumed by the engines (identity registry,
//     session store, metrics sink)
//   - Sentinel errors matched by callers with errors.Is
//
// Nothing in this package performs cryptography; it is shared vocabulary
// for the protocol and service packages.
package domain
