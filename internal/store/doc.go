// Package store provides SessionStore implementations: a file-backed store
// for durable snapshots and an in-memory store for tests. The blobs are
// opaque to this package; encrypting them at rest is the deployment's
// concern, not re-decided here.
package store
