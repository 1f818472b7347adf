// Package message is the per-conversation encryption engine. It owns the
// Double Ratchet state for every chat, advancing chains under per-chat
// mutual exclusion while unrelated chats proceed in parallel.
//
// Encrypt and decrypt are atomic with respect to ratchet state: work happens
// on a copy and is committed only when the AEAD succeeds, so a failed
// operation leaves no partial advancement behind.
package message
