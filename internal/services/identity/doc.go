// Package identity is the in-process identity/prekey registry: it generates
// long-term identities, signs and serves prekey bundles, and hands out each
// one-time prekey exactly once.
//
// In a deployment the registry half of this (bundle serving, one-time prekey
// issuance) lives in the provisioning service; this implementation keeps both
// halves together so establishment can be exercised end to end in one
// process.
package identity
