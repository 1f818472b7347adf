package domain

// SessionLifecycle tracks a pairwise session through its states.
type SessionLifecycle uint8

const (
	SessionPending SessionLifecycle = iota
	SessionActive
	SessionCompromised
	SessionClosed
)

func (s SessionLifecycle) String() string {
	switch s {
	case SessionPending:
		return "PENDING"
	case SessionActive:
		return "ACTIVE"
	case SessionCompromised:
		return "COMPROMISED"
	case SessionClosed:
		return "CLOSED"
	}
	return "UNKNOWN"
}

// Session identifies a pairwise cryptographic relationship. The root key it
// carries seeds exactly one Double Ratchet state; the session record and the
// ratchet state share a lifetime.
type Session struct {
	ID         string
	LocalUser  string
	RemoteUser string
	State      SessionLifecycle
	CreatedUTC int64

	RootKey []byte

	// Establishment parameters echoed to the responder so it can recompute
	// the shared secret.
	SignedPrekeyID  string
	OneTimePrekeyID string
	InitiatorEphPub X25519Public
	InitiatorIK     X25519Public
}

// RatchetState holds per-conversation Double Ratchet state: the advancing
// sending/receiving chain keys with their counters and the bounded cache of
// message keys derived for skipped message numbers.
//
// Every derived message key is used for exactly one seal or open and then
// discarded. A skipped cache entry is consumed at most once.
type RatchetState struct {
	RootKey []byte

	SendCK []byte
	RecvCK []byte

	Ns uint32 // next sending message number
	Nr uint32 // next expected receiving message number

	Skipped map[uint32][]byte
}
