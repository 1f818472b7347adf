// Package mls implements the group key tree: an append-only collection of
// member leaves with a monotone epoch counter and an epoch secret that is
// re-derived on every membership change.
//
// Adds are forward-secure (a new member cannot reconstruct pre-admission
// epoch secrets, each re-derivation being one-way) and removals re-key the
// group so a removed member cannot follow future traffic. Removed leaves are
// tombstoned, never reused; re-admitting a user occupies a fresh leaf.
//
// The package mutates Group values without locking; callers order
// membership operations per group.
package mls
