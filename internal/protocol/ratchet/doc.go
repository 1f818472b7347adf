// Package ratchet implements the per-conversation key schedule: advancing
// sending/receiving chains that yield one-shot message keys, plus the bounded
// cache of keys derived for skipped message numbers.
//
// Each chain step replaces the chain key with a one-way derivation of itself,
// so compromising a later chain key never reveals earlier message keys.
// Functions here mutate a domain.RatchetState in place and perform no
// locking; callers serialize access per conversation.
package ratchet
